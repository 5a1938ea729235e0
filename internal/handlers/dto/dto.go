package dto

import (
	"taskSync/internal/models/task"
)

type CreateTaskRequest struct {
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	ProjectID     string      `json:"project_id"`
	DueDate       string      `json:"due_date"`
	Estimate      string      `json:"estimate"`
	Status        string      `json:"status"`
	Assignee      *task.User  `json:"assignee,omitempty"`
	Collaborators []task.User `json:"collaborators,omitempty"`
	CreatedBy     string      `json:"created_by"`
}

// UpdateTaskRequest тот же патч, но статус приходит подписью и разбирается по таблице подписей
type UpdateTaskRequest struct {
	task.Patch
	Status *string `json:"status,omitempty"`
}

func (r CreateTaskRequest) ToDraft(labels task.Labels) (task.Draft, error) {
	draft := task.Draft{
		Title:         r.Title,
		Description:   r.Description,
		ProjectID:     r.ProjectID,
		DueDate:       r.DueDate,
		Estimate:      r.Estimate,
		Assignee:      r.Assignee,
		Collaborators: r.Collaborators,
		CreatedBy:     r.CreatedBy,
	}
	if r.Status != "" {
		st, err := labels.Parse(r.Status)
		if err != nil {
			return task.Draft{}, err
		}
		draft.Status = st
	}
	return draft, nil
}

func (r UpdateTaskRequest) ToPatch(labels task.Labels) (task.Patch, error) {
	patch := r.Patch
	if r.Status != nil {
		st, err := labels.Parse(*r.Status)
		if err != nil {
			return task.Patch{}, err
		}
		patch.Status = &st
	}
	return patch, nil
}

// FromDraft обратное преобразование для клиента шлюза
func FromDraft(d task.Draft) CreateTaskRequest {
	return CreateTaskRequest{
		Title:         d.Title,
		Description:   d.Description,
		ProjectID:     d.ProjectID,
		DueDate:       d.DueDate,
		Estimate:      d.Estimate,
		Status:        string(d.Status),
		Assignee:      d.Assignee,
		Collaborators: d.Collaborators,
		CreatedBy:     d.CreatedBy,
	}
}

type TaskResponse struct {
	Task *task.Task `json:"task"`
}

type TaskListResponse struct {
	Tasks []*task.Task `json:"tasks"`
	Count int          `json:"count"`
}

type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
