package tasksync

import (
	"context"

	"taskSync/internal/models/task"
)

// Gateway узкий CRUD-контракт удалённого хранилища задач.
// Задача адресуется человекочитаемым кодом (task_id), а не числовым id.
type Gateway interface {
	ListActive(ctx context.Context) ([]*task.Task, error)
	ListAll(ctx context.Context) ([]*task.Task, error)
	Get(ctx context.Context, code string) (*task.Task, error)
	Create(ctx context.Context, draft task.Draft) (*task.Task, error)
	Update(ctx context.Context, code string, patch task.Patch) (*task.Task, error)
	SoftDelete(ctx context.Context, code, actor string) error
	PermanentDelete(ctx context.Context, code string) error
	Restore(ctx context.Context, code string) (*task.Task, error)
}

type contextKey string

const actorKey contextKey = "actor"

// WithActor кладёт в контекст пользователя, от имени которого идут мутации
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey, userID)
}

func ActorFrom(ctx context.Context) string {
	if id, ok := ctx.Value(actorKey).(string); ok {
		return id
	}
	return ""
}
