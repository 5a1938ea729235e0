package tasksync

import (
	"context"
	"sync"
	"time"

	"taskSync/internal/logger"
	"taskSync/internal/models/task"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UndoKind string

const (
	UndoCompletion UndoKind = "completion"
	UndoSoftDelete UndoKind = "soft_delete"
)

// Undo действие отмены, которое показывает уведомление.
// Живёт, пока его не вызвали, не закрыли или не вытеснили более новым
// для той же задачи; при заданном окне истекает по времени.
type Undo struct {
	ID        uuid.UUID
	TaskID    string
	Kind      UndoKind
	IssuedAt  time.Time
	ExpiresAt time.Time

	reverse task.Patch
	engine  *Engine
}

func (u *Undo) Active() bool {
	return u.engine.undos.active(u, u.engine.now())
}

func (u *Undo) Dismiss() {
	u.engine.undos.drop(u)
}

// Invoke применяет обратный патч через Mutate. Повторный вызов даёт ErrUndoExpired.
func (u *Undo) Invoke(ctx context.Context) (*task.Task, error) {
	if !u.engine.undos.take(u, u.engine.now()) {
		return nil, ErrUndoExpired
	}

	res, err := u.engine.mutate(ctx, u.TaskID, u.reverse, false)
	if err != nil {
		u.engine.undos.reinstate(u)
		logger.Warn("Sync: Отмена не применилась",
			zap.String("task_id", u.TaskID),
			zap.String("kind", string(u.Kind)),
			zap.Error(err))
		return nil, err
	}

	logger.Info("Sync: Отмена применена",
		zap.String("task_id", u.TaskID),
		zap.String("kind", string(u.Kind)))
	return res.Task, nil
}

type undoRegistry struct {
	mtx     sync.Mutex
	window  time.Duration
	current map[string]*Undo
}

func newUndoRegistry(window time.Duration) *undoRegistry {
	return &undoRegistry{
		window:  window,
		current: make(map[string]*Undo),
	}
}

func (r *undoRegistry) issue(e *Engine, code string, kind UndoKind, reverse task.Patch) *Undo {
	now := e.now()
	u := &Undo{
		ID:       uuid.New(),
		TaskID:   code,
		Kind:     kind,
		IssuedAt: now,
		reverse:  reverse,
		engine:   e,
	}
	if r.window > 0 {
		u.ExpiresAt = now.Add(r.window)
	}

	r.mtx.Lock()
	r.current[code] = u
	r.mtx.Unlock()
	return u
}

func (r *undoRegistry) active(u *Undo, now time.Time) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return r.current[u.TaskID] == u && !u.expired(now)
}

func (r *undoRegistry) take(u *Undo, now time.Time) bool {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.current[u.TaskID] != u || u.expired(now) {
		return false
	}
	delete(r.current, u.TaskID)
	return true
}

// reinstate возвращает отмену после сбоя, если её ещё никто не вытеснил
func (r *undoRegistry) reinstate(u *Undo) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if _, ok := r.current[u.TaskID]; !ok {
		r.current[u.TaskID] = u
	}
}

func (r *undoRegistry) drop(u *Undo) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.current[u.TaskID] == u {
		delete(r.current, u.TaskID)
	}
}

func (r *undoRegistry) dropTask(code string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	delete(r.current, code)
}

func (u *Undo) expired(now time.Time) bool {
	return !u.ExpiresAt.IsZero() && now.After(u.ExpiresAt)
}
