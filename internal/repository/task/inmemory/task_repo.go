package inmemory

import (
	"context"
	"fmt"
	"sync"
	"taskSync/internal/logger"
	"taskSync/internal/models/task"
	repo "taskSync/internal/repository"
	"time"

	"go.uber.org/zap"
)

type TaskStorage struct {
	storage map[string]*task.Task
	mtx     *sync.RWMutex
	codes   []string
	seq     int64
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[string]*task.Task),
		mtx:     &sync.RWMutex{},
		codes:   []string{},
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Info("Repository: Соединение стабильно")
	return nil
}

// Create назначает id, код задачи и метки времени
func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.seq++
	now := time.Now()
	taskToCreate.ID = s.seq
	taskToCreate.TaskID = fmt.Sprintf("T%04d", s.seq)
	taskToCreate.CreatedAt = now
	taskToCreate.UpdatedAt = now
	taskToCreate.Version = 1
	if taskToCreate.Collaborators == nil {
		taskToCreate.Collaborators = []task.User{}
	}

	s.storage[taskToCreate.TaskID] = taskToCreate.Clone()
	s.codes = append(s.codes, taskToCreate.TaskID)
	return nil
}

// Update пишет задачу, только если версия не изменилась с момента чтения
func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existed, ok := s.storage[taskToUpdate.TaskID]
	if !ok {
		return repo.ErrNotFound
	}
	if existed.Version != taskToUpdate.Version {
		logger.Warn("Конфликт версий при обновлении задачи",
			zap.String("task_id", taskToUpdate.TaskID),
			zap.Int("expected_version", taskToUpdate.Version),
			zap.Int("actual_version", existed.Version))
		return repo.ErrVersionConflict
	}

	taskToUpdate.ID = existed.ID
	taskToUpdate.CreatedAt = existed.CreatedAt
	taskToUpdate.UpdatedAt = time.Now()
	taskToUpdate.Version++
	s.storage[taskToUpdate.TaskID] = taskToUpdate.Clone()
	return nil
}

func (s *TaskStorage) GetByCode(ctx context.Context, code string) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[code]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return taskToGet.Clone(), nil
}

// мягкое удаление: задача остаётся, ставится пометка
func (s *TaskStorage) DeleteSoft(ctx context.Context, taskToDelete *task.Task, actor string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existed, ok := s.storage[taskToDelete.TaskID]
	if !ok {
		return repo.ErrNotFound
	}
	if existed.Version != taskToDelete.Version {
		return repo.ErrVersionConflict
	}

	now := time.Now()
	by := actor
	existed.UpdatedAt = now
	existed.DeletedAt = &now
	existed.DeletedBy = &by
	existed.Version++

	stored := existed.Clone()
	taskToDelete.UpdatedAt = stored.UpdatedAt
	taskToDelete.DeletedAt = stored.DeletedAt
	taskToDelete.DeletedBy = stored.DeletedBy
	taskToDelete.Version = stored.Version
	return nil
}

// полное удаление
func (s *TaskStorage) DeleteFull(ctx context.Context, code string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[code]; !ok {
		return repo.ErrNotFound
	}

	delete(s.storage, code)
	for ind, val := range s.codes {
		if val == code {
			s.codes = append(s.codes[:ind], s.codes[ind+1:]...)
			break
		}
	}
	return nil
}

// List в порядке создания; удалённые только при includeDeleted
func (s *TaskStorage) List(ctx context.Context, includeDeleted bool) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, code := range s.codes {
		t := s.storage[code]
		if t.IsDeleted() && !includeDeleted {
			continue
		}
		res = append(res, t.Clone())
	}
	return res, nil
}
