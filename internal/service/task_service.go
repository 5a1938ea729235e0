package service

import (
	"context"
	"errors"
	"fmt"
	"taskSync/internal/logger"
	"taskSync/internal/models/task"
	rep "taskSync/internal/repository"
	"time"

	"go.uber.org/zap"
)

// здесь проверяются ошибки бизнес-логики; сервис реализует контракт шлюза задач

const maxConflictRetries = 3

type TaskService struct {
	repo     TaskRepository
	repoType RepoType
}

func NewTaskService(repo TaskRepository, repoType RepoType) TaskService {
	return TaskService{
		repo:     repo,
		repoType: repoType,
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

func (s *TaskService) ListActive(ctx context.Context) ([]*task.Task, error) {
	tasks, err := s.repo.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("получение активных задач: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) ListAll(ctx context.Context) ([]*task.Task, error) {
	tasks, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) Get(ctx context.Context, code string) (*task.Task, error) {
	t, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, s.lookupError(code, err)
	}
	return t, nil
}

func (s *TaskService) Create(ctx context.Context, draft task.Draft) (*task.Task, error) {
	if draft.Title == "" {
		return nil, NewValidationError("title", "пустое значение")
	}
	if draft.Status != "" && !draft.Status.Valid() {
		return nil, NewValidationError("status", fmt.Sprintf("неизвестный статус %q", draft.Status))
	}

	t := draft.NewTask()
	now := time.Now()
	t.CreatedDisplay = now.Format("Jan 2, 2006")
	if t.Status == task.StatusCompleted {
		by := t.CreatedBy
		t.MarkedComplete = &now
		t.MarkedCompleteBy = &by
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("создание задачи: %w", err)
	}

	logger.Info("Service: Задача создана",
		zap.String("task_id", t.TaskID),
		zap.Int64("id", t.ID),
		zap.String("repository", string(s.repoType)))
	return t, nil
}

// Update частичное обновление; при конфликте версий перечитывает задачу и применяет патч заново
func (s *TaskService) Update(ctx context.Context, code string, patch task.Patch) (*task.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, patchError(err)
	}

	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		t, err := s.repo.GetByCode(ctx, code)
		if err != nil {
			return nil, s.lookupError(code, err)
		}

		patch.Apply(t)
		// рассогласование archived/status исправляется здесь же, а не у клиентов
		if patch.Status != nil && patch.Archived == nil {
			t.Archived = t.Status == task.StatusCompleted
		}
		if err := t.Validate(); err != nil {
			return nil, patchError(err)
		}

		err = s.repo.Update(ctx, t)
		if err == nil {
			logger.Info("Service: Задача обновлена",
				zap.String("task_id", code),
				zap.Int("version", t.Version))
			return t, nil
		}
		if !errors.Is(err, rep.ErrVersionConflict) {
			return nil, s.lookupError(code, err)
		}

		lastErr = err
		logger.Warn("Service: Конфликт версий, повтор",
			zap.String("task_id", code),
			zap.Int("attempt", attempt+1))
	}
	return nil, NewVersionConflict(code, lastErr)
}

func (s *TaskService) SoftDelete(ctx context.Context, code, actor string) error {
	if actor == "" {
		return NewValidationError("deleted_by", "не указан автор удаления")
	}

	t, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return s.lookupError(code, err)
	}
	if t.IsDeleted() {
		return NewBusinessError(CodeTaskDeleted, fmt.Sprintf("задача %s уже в корзине", code),
			ToDetail("task_id", code))
	}

	if err := s.repo.DeleteSoft(ctx, t, actor); err != nil {
		if errors.Is(err, rep.ErrVersionConflict) {
			return NewVersionConflict(code, err)
		}
		return s.lookupError(code, err)
	}

	logger.Info("Service: Задача перемещена в корзину",
		zap.String("task_id", code),
		zap.String("deleted_by", actor))
	return nil
}

func (s *TaskService) Restore(ctx context.Context, code string) (*task.Task, error) {
	t, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, s.lookupError(code, err)
	}
	if !t.IsDeleted() {
		return nil, NewBusinessError(CodeNotDeleted, fmt.Sprintf("задача %s не в корзине", code),
			ToDetail("task_id", code))
	}

	return s.Update(ctx, code, task.NewPatch(task.WithoutDeletion()))
}

func (s *TaskService) PermanentDelete(ctx context.Context, code string) error {
	if err := s.repo.DeleteFull(ctx, code); err != nil {
		return s.lookupError(code, err)
	}
	logger.Info("Service: Задача удалена безвозвратно", zap.String("task_id", code))
	return nil
}

func (s *TaskService) lookupError(code string, err error) error {
	if errors.Is(err, rep.ErrNotFound) {
		logger.Info("Service: Задача не найдена", zap.String("target_id", code))
		return NewNotFound(code)
	}
	return fmt.Errorf("задача %s: %w", code, err)
}

func patchError(err error) *BusinessError {
	switch {
	case errors.Is(err, task.ErrInvalidStatus):
		return NewValidationError("status", err.Error())
	case errors.Is(err, task.ErrDeletionUnpaired):
		return NewValidationError("deletion", err.Error())
	case errors.Is(err, task.ErrEmptyTitle):
		return NewValidationError("title", err.Error())
	case errors.Is(err, task.ErrArchivedMismatch):
		return NewValidationError("archived", err.Error())
	case errors.Is(err, task.ErrDuplicateCollab):
		return NewValidationError("collaborators", err.Error())
	}
	return NewValidationError("patch", err.Error())
}
