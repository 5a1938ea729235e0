package tasksync

import (
	"context"
	"fmt"

	"taskSync/internal/logger"
	"taskSync/internal/models/task"

	"go.uber.org/zap"
)

// SoftDelete помечает задачу удалённой; она остаётся в Store и видна только в корзине.
// Возвращает отмену, которая снимает пометку через Mutate.
func (e *Engine) SoftDelete(ctx context.Context, code, actor string) (Result, error) {
	if actor == "" {
		actor = ActorFrom(ctx)
	}
	if actor == "" {
		return Result{}, fmt.Errorf("%w: не указан автор удаления", ErrInvalidPatch)
	}

	release := e.queue.acquire(code)
	defer release()

	before, ok := e.store.Get(code)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	if before.IsDeleted() {
		return Result{}, fmt.Errorf("%w: %s", ErrAlreadyInTrash, code)
	}

	now := e.now()
	patch := task.NewPatch(task.WithDeletion(now, actor))

	deleted, err := e.reconcile(ctx, "soft_delete", before, patch, now, func() (*task.Task, error) {
		if err := e.gw.SoftDelete(ctx, code, actor); err != nil {
			return nil, err
		}
		// шлюз ничего не возвращает, авторитетные поля дочитываем отдельно
		confirmed, err := e.gw.Get(ctx, code)
		if err != nil {
			logger.Warn("Sync: Не удалось перечитать задачу после удаления",
				zap.String("task_id", code), zap.Error(err))
			return nil, nil
		}
		return confirmed, nil
	})
	if err != nil {
		return Result{}, err
	}

	undo := e.undos.issue(e, code, UndoSoftDelete, task.NewPatch(task.WithoutDeletion()))
	logger.Info("Sync: Задача перемещена в корзину",
		zap.String("task_id", code),
		zap.String("deleted_by", actor))
	return Result{Task: deleted, Undo: undo}, nil
}

// Restore достаёт задачу из корзины в любой момент, без срока
func (e *Engine) Restore(ctx context.Context, code string) (*task.Task, error) {
	release := e.queue.acquire(code)
	defer release()

	before, ok := e.store.Get(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	if !before.IsDeleted() {
		return nil, fmt.Errorf("%w: %s", ErrNotInTrash, code)
	}

	restored, err := e.reconcile(ctx, "restore", before, task.NewPatch(task.WithoutDeletion()), e.now(), func() (*task.Task, error) {
		return e.gw.Restore(ctx, code)
	})
	if err != nil {
		return nil, err
	}

	e.undos.dropTask(code)
	logger.Info("Sync: Задача восстановлена", zap.String("task_id", code))
	return restored, nil
}

// PermanentDelete доступно только из корзины и не откатывается
func (e *Engine) PermanentDelete(ctx context.Context, code string) error {
	release := e.queue.acquire(code)
	defer release()

	current, ok := e.store.Get(code)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	if !current.IsDeleted() {
		return fmt.Errorf("%w: %s", ErrNotInTrash, code)
	}
	return e.removeLocked(ctx, code)
}
