package tasksync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskSync/internal/logger"
	"taskSync/internal/models/task"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Store локальный упорядоченный снимок задач. Писать в него может только Engine.
type Store struct {
	gw           Gateway
	includeTrash bool

	mtx      sync.RWMutex
	tasks    []*task.Task
	index    map[string]int
	pending  map[string]int
	loadedAt time.Time

	loads singleflight.Group
}

type StoreOption func(*Store)

// WithoutTrash загружает только активные задачи (listActive)
func WithoutTrash() StoreOption {
	return func(s *Store) {
		s.includeTrash = false
	}
}

func NewStore(gw Gateway, opts ...StoreOption) *Store {
	s := &Store{
		gw:           gw,
		includeTrash: true,
		index:        make(map[string]int),
		pending:      make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Group колонка доски
type Group struct {
	Status task.Status
	Tasks  []*task.Task
}

func (g Group) Count() int {
	return len(g.Tasks)
}

// Load полностью заменяет снимок ответом шлюза.
// Параллельные вызовы склеиваются в один запрос; задачи с незавершённой
// мутацией сохраняют локальное значение.
func (s *Store) Load(ctx context.Context) error {
	_, err, shared := s.loads.Do("load", func() (any, error) {
		start := time.Now()

		var (
			tasks []*task.Task
			err   error
		)
		if s.includeTrash {
			tasks, err = s.gw.ListAll(ctx)
		} else {
			tasks, err = s.gw.ListActive(ctx)
		}
		if err != nil {
			return nil, remoteError("list", "", err)
		}

		kept := s.replace(tasks)
		logger.Info("Sync: Снимок задач обновлён",
			zap.Int("count", len(tasks)),
			zap.Int("kept_pending", kept),
			zap.Duration("ms", time.Since(start)))
		return nil, nil
	})
	if err != nil {
		logger.Warn("Sync: Не удалось загрузить задачи", zap.Error(err), zap.Bool("shared", shared))
		return fmt.Errorf("загрузка задач: %w", err)
	}
	return nil
}

func (s *Store) replace(tasks []*task.Task) int {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	next := make([]*task.Task, 0, len(tasks))
	index := make(map[string]int, len(tasks))
	kept := 0

	for _, t := range tasks {
		if _, dup := index[t.TaskID]; dup {
			continue
		}
		entry := t.Clone()
		if s.pending[t.TaskID] > 0 {
			if local, ok := s.lookup(t.TaskID); ok {
				entry = local
				kept++
			}
		}
		index[t.TaskID] = len(next)
		next = append(next, entry)
	}

	// задача с мутацией в полёте могла ещё не дойти до шлюза
	for code, n := range s.pending {
		if n == 0 {
			continue
		}
		if _, ok := index[code]; ok {
			continue
		}
		if local, ok := s.lookup(code); ok {
			index[code] = len(next)
			next = append(next, local)
			kept++
		}
	}

	s.tasks = next
	s.index = index
	s.loadedAt = time.Now()
	return kept
}

func (s *Store) lookup(code string) (*task.Task, bool) {
	i, ok := s.index[code]
	if !ok {
		return nil, false
	}
	return s.tasks[i], true
}

func (s *Store) Get(code string) (*task.Task, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	t, ok := s.lookup(code)
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

func (s *Store) All() []*task.Task {
	return s.filter(func(*task.Task) bool { return true })
}

func (s *Store) Len() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.tasks)
}

func (s *Store) LoadedAt() time.Time {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.loadedAt
}

// GroupByStatus раскладывает задачи по фиксированным колонкам.
// Задачи из корзины на доску не попадают.
func (s *Store) GroupByStatus() []Group {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	groups := make([]Group, len(task.Statuses))
	pos := make(map[task.Status]int, len(task.Statuses))
	for i, st := range task.Statuses {
		groups[i] = Group{Status: st, Tasks: []*task.Task{}}
		pos[st] = i
	}

	for _, t := range s.tasks {
		if t.IsDeleted() {
			continue
		}
		i, ok := pos[t.Status]
		if !ok {
			continue
		}
		groups[i].Tasks = append(groups[i].Tasks, t.Clone())
	}
	return groups
}

// ActiveOnly без архивных, завершённых и удалённых
func (s *Store) ActiveOnly() []*task.Task {
	return s.filter(func(t *task.Task) bool {
		return !t.Archived && t.Status != task.StatusCompleted && !t.IsDeleted()
	})
}

func (s *Store) TrashOnly() []*task.Task {
	return s.filter(func(t *task.Task) bool {
		return t.IsDeleted()
	})
}

// VisibleTo применяет фильтр доступа к виду
func (s *Store) VisibleTo(ctx context.Context, f *AccessFilter, viewerID string, view func() []*task.Task) []*task.Task {
	return f.Visible(ctx, view(), viewerID)
}

func (s *Store) filter(keep func(*task.Task) bool) []*task.Task {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, t := range s.tasks {
		if keep(t) {
			res = append(res, t.Clone())
		}
	}
	return res
}

// put заменяет запись по коду или добавляет её в конец
func (s *Store) put(t *task.Task) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	entry := t.Clone()
	if i, ok := s.index[t.TaskID]; ok {
		s.tasks[i] = entry
		return
	}
	s.index[t.TaskID] = len(s.tasks)
	s.tasks = append(s.tasks, entry)
}

// restore откатывает запись, только если она всё ещё в снимке
func (s *Store) restore(t *task.Task) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	i, ok := s.index[t.TaskID]
	if !ok {
		return false
	}
	s.tasks[i] = t.Clone()
	return true
}

func (s *Store) remove(code string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	i, ok := s.index[code]
	if !ok {
		return
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	delete(s.index, code)
	for j := i; j < len(s.tasks); j++ {
		s.index[s.tasks[j].TaskID] = j
	}
}

func (s *Store) beginMutation(code string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.pending[code]++
}

func (s *Store) endMutation(code string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.pending[code] <= 1 {
		delete(s.pending, code)
		return
	}
	s.pending[code]--
}
