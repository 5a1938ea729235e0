package handlers

import (
	"context"
	"taskSync/internal/models/task"
)

type Service interface {
	HealthCheck(context.Context) error
	ListActive(context.Context) ([]*task.Task, error)
	ListAll(context.Context) ([]*task.Task, error)
	Get(context.Context, string) (*task.Task, error)
	Create(context.Context, task.Draft) (*task.Task, error)
	Update(context.Context, string, task.Patch) (*task.Task, error)
	SoftDelete(context.Context, string, string) error
	PermanentDelete(context.Context, string) error
	Restore(context.Context, string) (*task.Task, error)
}
