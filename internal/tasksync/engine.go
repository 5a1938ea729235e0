package tasksync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskSync/internal/logger"
	"taskSync/internal/models/task"

	"go.uber.org/zap"
)

// FailurePolicy что делать с оптимистичной копией, если шлюз ответил ошибкой
type FailurePolicy string

const (
	// RollbackOnFailure возвращает запись к значению до мутации
	RollbackOnFailure FailurePolicy = "rollback"
	// KeepOnFailure оставляет оптимистичное значение до следующего Load
	KeepOnFailure FailurePolicy = "keep"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "", RollbackOnFailure:
		return RollbackOnFailure, nil
	case KeepOnFailure:
		return KeepOnFailure, nil
	}
	return "", fmt.Errorf("неизвестная политика отказа %q", s)
}

// Engine применяет мутации оптимистично и сверяет их с ответом шлюза
type Engine struct {
	store  *Store
	gw     Gateway
	labels task.Labels
	policy FailurePolicy
	queue  *taskQueue
	undos  *undoRegistry
	now    func() time.Time
}

type Option func(*Engine)

func WithFailurePolicy(p FailurePolicy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

func WithLabels(l task.Labels) Option {
	return func(e *Engine) {
		e.labels = l
	}
}

// WithUndoWindow ограничивает время жизни отмены; 0 означает без срока
func WithUndoWindow(d time.Duration) Option {
	return func(e *Engine) {
		e.undos.window = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(store *Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		gw:     store.gw,
		labels: task.DefaultLabels(),
		policy: RollbackOnFailure,
		queue:  newTaskQueue(),
		undos:  newUndoRegistry(0),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Store() *Store {
	return e.store
}

// Result подтверждённая задача и отмена, если мутация её предполагает
type Result struct {
	Task *task.Task
	Undo *Undo
}

// Mutate применяет патч к задаче с кодом code.
// archived и отметку завершения задаёт только машина состояний.
func (e *Engine) Mutate(ctx context.Context, code string, patch task.Patch) (Result, error) {
	if patch.Archived != nil || patch.MarkedComplete != nil || patch.MarkedCompleteBy != nil {
		return Result{}, fmt.Errorf("%w: archived и отметка завершения вычисляются из статуса", ErrInvalidPatch)
	}
	return e.mutate(ctx, code, patch, true)
}

func (e *Engine) mutate(ctx context.Context, code string, patch task.Patch, withUndo bool) (Result, error) {
	if err := checkPatch(patch); err != nil {
		return Result{}, err
	}
	return e.update(ctx, code, withUndo, func(*task.Task) (task.Patch, error) {
		return patch, nil
	})
}

// errNoChange патч не меняет задачу, шлюз не вызывается
var errNoChange = errors.New("нет изменений")

// update строит патч под блокировкой задачи, чтобы чтение и запись не разошлись
func (e *Engine) update(ctx context.Context, code string, withUndo bool, build func(*task.Task) (task.Patch, error)) (Result, error) {
	release := e.queue.acquire(code)
	defer release()

	before, ok := e.store.Get(code)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, code)
	}

	patch, err := build(before)
	if errors.Is(err, errNoChange) {
		return Result{Task: before}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if err := checkPatch(patch); err != nil {
		return Result{}, err
	}

	now := e.now()
	var (
		reverse *task.Patch
		kind    UndoKind
	)

	if patch.Status != nil {
		ch, err := Transition(before, *patch.Status, ActorFrom(ctx), now)
		if err != nil {
			return Result{}, err
		}
		patch = ch.merge(patch)
		if ch.Reverse != nil {
			reverse, kind = ch.Reverse, UndoCompletion
		}
	}
	if patch.Deletion != nil && patch.Deletion.At != nil && !before.IsDeleted() {
		reverse, kind = &task.Patch{Deletion: &task.DeletionMark{}}, UndoSoftDelete
	}

	updated, err := e.reconcile(ctx, "update", before, patch, now, func() (*task.Task, error) {
		return e.gw.Update(ctx, code, patch)
	})
	if err != nil {
		return Result{}, err
	}

	res := Result{Task: updated}
	if withUndo && reverse != nil {
		res.Undo = e.undos.issue(e, code, kind, *reverse)
	}
	return res, nil
}

func checkPatch(patch task.Patch) error {
	if err := patch.Validate(); err != nil {
		if errors.Is(err, task.ErrInvalidStatus) {
			return fmt.Errorf("%w: %q", ErrInvalidStatus, *patch.Status)
		}
		return fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	if patch.IsEmpty() {
		return fmt.Errorf("%w: пустой патч", ErrInvalidPatch)
	}
	return nil
}

// reconcile оптимистично пишет копию, вызывает шлюз и кладёт в Store авторитетный ответ
func (e *Engine) reconcile(ctx context.Context, op string, before *task.Task, patch task.Patch, now time.Time, call func() (*task.Task, error)) (*task.Task, error) {
	start := time.Now()
	code := before.TaskID

	optimistic := before.Clone()
	patch.Apply(optimistic)
	optimistic.UpdatedAt = now

	e.store.beginMutation(code)
	defer e.store.endMutation(code)
	e.store.put(optimistic)

	confirmed, err := call()
	if err != nil {
		rf := remoteError(op, code, err)
		e.onFailure(before, op, rf)
		return nil, rf
	}
	if confirmed == nil {
		confirmed = optimistic
	}

	e.store.put(confirmed)
	logger.Info("Sync: Мутация подтверждена",
		zap.String("op", op),
		zap.String("task_id", code),
		zap.Int("version", confirmed.Version),
		zap.Duration("ms", time.Since(start)))
	return confirmed.Clone(), nil
}

func (e *Engine) onFailure(before *task.Task, op string, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("task_id", before.TaskID),
		zap.String("policy", string(e.policy)),
		zap.Error(err),
	}
	if e.policy == KeepOnFailure {
		logger.Warn("Sync: Шлюз отклонил мутацию, оптимистичное значение оставлено", fields...)
		return
	}
	e.store.restore(before)
	logger.Warn("Sync: Шлюз отклонил мутацию, запись откатана", fields...)
}

// Create ждёт ответа шлюза: временных записей без id не бывает
func (e *Engine) Create(ctx context.Context, draft task.Draft) (*task.Task, error) {
	if draft.Title == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, task.ErrEmptyTitle)
	}
	if draft.Status != "" && !draft.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, draft.Status)
	}
	if draft.CreatedBy == "" {
		draft.CreatedBy = ActorFrom(ctx)
	}
	draft.Collaborators = task.UniqueUsers(draft.Collaborators)

	created, err := e.gw.Create(ctx, draft)
	if err != nil {
		rf := remoteError("create", "", err)
		logger.Warn("Sync: Не удалось создать задачу", zap.Error(rf))
		return nil, rf
	}

	e.store.put(created)
	logger.Info("Sync: Задача создана",
		zap.Int64("id", created.ID),
		zap.String("task_id", created.TaskID))
	return created.Clone(), nil
}

// Remove безвозвратно удаляет задачу; локальная запись уходит только после успеха шлюза
func (e *Engine) Remove(ctx context.Context, code string) error {
	release := e.queue.acquire(code)
	defer release()

	if _, ok := e.store.Get(code); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	return e.removeLocked(ctx, code)
}

func (e *Engine) removeLocked(ctx context.Context, code string) error {
	if err := e.gw.PermanentDelete(ctx, code); err != nil {
		rf := remoteError("permanent_delete", code, err)
		logger.Warn("Sync: Не удалось удалить задачу", zap.String("task_id", code), zap.Error(rf))
		return rf
	}

	e.store.remove(code)
	e.undos.dropTask(code)
	logger.Info("Sync: Задача удалена безвозвратно", zap.String("task_id", code))
	return nil
}

// SetStatus принимает подпись статуса из конфигурации
func (e *Engine) SetStatus(ctx context.Context, code, label string) (Result, error) {
	st, err := e.labels.Parse(label)
	if err != nil {
		return Result{}, err
	}
	return e.Mutate(ctx, code, task.Patch{Status: &st})
}

func (e *Engine) Complete(ctx context.Context, code string) (Result, error) {
	st := task.StatusCompleted
	return e.Mutate(ctx, code, task.Patch{Status: &st})
}

// Unarchive возвращает завершённую задачу в работу
func (e *Engine) Unarchive(ctx context.Context, code string) (Result, error) {
	st := task.StatusInProgress
	return e.Mutate(ctx, code, task.Patch{Status: &st})
}

// Assign назначает исполнителя; nil снимает его
func (e *Engine) Assign(ctx context.Context, code string, user *task.User) (Result, error) {
	return e.Mutate(ctx, code, task.NewPatch(task.WithAssignee(user)))
}

func (e *Engine) AddCollaborator(ctx context.Context, code string, user task.User) (Result, error) {
	return e.update(ctx, code, false, func(current *task.Task) (task.Patch, error) {
		if current.HasCollaborator(user.ID) {
			return task.Patch{}, errNoChange
		}
		users := append(current.Collaborators, user)
		return task.NewPatch(task.WithCollaborators(users)), nil
	})
}

func (e *Engine) RemoveCollaborator(ctx context.Context, code, userID string) (Result, error) {
	return e.update(ctx, code, false, func(current *task.Task) (task.Patch, error) {
		if !current.HasCollaborator(userID) {
			return task.Patch{}, errNoChange
		}
		users := make([]task.User, 0, len(current.Collaborators))
		for _, u := range current.Collaborators {
			if u.ID != userID {
				users = append(users, u)
			}
		}
		return task.NewPatch(task.WithCollaborators(users)), nil
	})
}
