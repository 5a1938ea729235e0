package service

import (
	"context"
	"taskSync/internal/models/task"
)

type TaskRepository interface {
	HealthCheck(context.Context) error
	Create(context.Context, *task.Task) error
	Update(context.Context, *task.Task) error
	GetByCode(context.Context, string) (*task.Task, error)
	DeleteSoft(context.Context, *task.Task, string) error
	DeleteFull(context.Context, string) error
	List(context.Context, bool) ([]*task.Task, error)
}

type RepoType string

const InMemoryType RepoType = "inmemory"
const DBType RepoType = "postgres"
