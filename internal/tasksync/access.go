package tasksync

import (
	"context"

	"taskSync/internal/logger"
	"taskSync/internal/models/task"

	"go.uber.org/zap"
)

// Directory внешний справочник пользователей; здесь нужна только проверка роли
type Directory interface {
	IsPrivileged(ctx context.Context, userID string) (bool, error)
}

// StaticDirectory набор администраторов из конфигурации
type StaticDirectory map[string]struct{}

func NewStaticDirectory(admins ...string) StaticDirectory {
	d := make(StaticDirectory, len(admins))
	for _, id := range admins {
		d[id] = struct{}{}
	}
	return d
}

func (d StaticDirectory) IsPrivileged(_ context.Context, userID string) (bool, error) {
	_, ok := d[userID]
	return ok, nil
}

type Reason string

const (
	ReasonAssignee             Reason = "ASSIGNEE"
	ReasonCollaborator         Reason = "COLLABORATOR"
	ReasonAuthor               Reason = "AUTHOR"
	ReasonPrivileged           Reason = "PRIVILEGED"
	ReasonNotAssigned          Reason = "NOT_ASSIGNED"
	ReasonNoViewer             Reason = "NO_VIEWER"
	ReasonDirectoryUnavailable Reason = "DIRECTORY_UNAVAILABLE"
)

type Decision struct {
	Allowed bool
	Reason  Reason
}

// AccessFilter видимость задачи целиком, без частичного скрытия полей
type AccessFilter struct {
	dir Directory
}

func NewAccessFilter(dir Directory) *AccessFilter {
	return &AccessFilter{dir: dir}
}

func (f *AccessFilter) Check(ctx context.Context, t *task.Task, viewerID string) Decision {
	if viewerID == "" {
		return Decision{Reason: ReasonNoViewer}
	}
	if d, ok := relation(t, viewerID); ok {
		return d
	}

	privileged, err := f.privileged(ctx, viewerID)
	if err != nil {
		return Decision{Reason: ReasonDirectoryUnavailable}
	}
	if privileged {
		return Decision{Allowed: true, Reason: ReasonPrivileged}
	}
	return Decision{Reason: ReasonNotAssigned}
}

// Visible оставляет задачи, которые viewer может видеть; справочник опрашивается один раз
func (f *AccessFilter) Visible(ctx context.Context, tasks []*task.Task, viewerID string) []*task.Task {
	res := []*task.Task{}
	if viewerID == "" {
		return res
	}

	privileged, err := f.privileged(ctx, viewerID)
	if err == nil && privileged {
		return append(res, tasks...)
	}

	for _, t := range tasks {
		if _, ok := relation(t, viewerID); ok {
			res = append(res, t)
		}
	}
	return res
}

func relation(t *task.Task, viewerID string) (Decision, bool) {
	switch {
	case t.Assignee != nil && t.Assignee.ID == viewerID:
		return Decision{Allowed: true, Reason: ReasonAssignee}, true
	case t.HasCollaborator(viewerID):
		return Decision{Allowed: true, Reason: ReasonCollaborator}, true
	case t.CreatedBy == viewerID:
		return Decision{Allowed: true, Reason: ReasonAuthor}, true
	}
	return Decision{}, false
}

func (f *AccessFilter) privileged(ctx context.Context, viewerID string) (bool, error) {
	if f.dir == nil {
		return false, nil
	}
	ok, err := f.dir.IsPrivileged(ctx, viewerID)
	if err != nil {
		logger.Warn("Sync: Справочник пользователей недоступен",
			zap.String("viewer", viewerID), zap.Error(err))
		return false, err
	}
	return ok, nil
}
