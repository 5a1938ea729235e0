package task

import (
	"time"
)

// Patch частичное обновление: меняются только заданные поля
type Patch struct {
	Title            *string        `json:"title,omitempty"`
	Description      *string        `json:"description,omitempty"`
	ProjectID        *string        `json:"project_id,omitempty"`
	DueDate          *string        `json:"due_date,omitempty"`
	Estimate         *string        `json:"estimate,omitempty"`
	Status           *Status        `json:"status,omitempty"`
	Archived         *bool          `json:"archived,omitempty"`
	MarkedComplete   *time.Time     `json:"marked_complete,omitempty"`
	MarkedCompleteBy *string        `json:"marked_complete_by,omitempty"`
	Assignee         *AssigneePatch `json:"assignee,omitempty"`
	Collaborators    *[]User        `json:"collaborators,omitempty"`
	Deletion         *DeletionMark  `json:"deletion,omitempty"`
}

// AssigneePatch с пустым User снимает исполнителя
type AssigneePatch struct {
	User *User `json:"user"`
}

// DeletionMark: оба поля nil снимают пометку, оба заданы ставят её
type DeletionMark struct {
	At *time.Time `json:"deleted_at"`
	By *string    `json:"deleted_by"`
}

// Draft поля новой задачи; id, код и метки времени назначает шлюз
type Draft struct {
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	ProjectID     string `json:"project_id,omitempty"`
	DueDate       string `json:"due_date,omitempty"`
	Estimate      string `json:"estimate,omitempty"`
	Status        Status `json:"status,omitempty"`
	Assignee      *User  `json:"assignee,omitempty"`
	Collaborators []User `json:"collaborators,omitempty"`
	CreatedBy     string `json:"created_by,omitempty"`
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.ProjectID == nil &&
		p.DueDate == nil && p.Estimate == nil && p.Status == nil &&
		p.Archived == nil && p.MarkedComplete == nil && p.MarkedCompleteBy == nil &&
		p.Assignee == nil && p.Collaborators == nil && p.Deletion == nil
}

// Validate проверяет только форму патча; допустимость перехода решает машина состояний
func (p Patch) Validate() error {
	if p.Title != nil && *p.Title == "" {
		return ErrEmptyTitle
	}
	if p.Status != nil && !p.Status.Valid() {
		return ErrInvalidStatus
	}
	if p.Deletion != nil && (p.Deletion.At == nil) != (p.Deletion.By == nil) {
		return ErrDeletionUnpaired
	}
	return nil
}

// Apply применяет патч к задаче на месте
func (p Patch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.ProjectID != nil {
		t.ProjectID = *p.ProjectID
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Estimate != nil {
		t.Estimate = *p.Estimate
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Archived != nil {
		t.Archived = *p.Archived
	}
	if p.MarkedComplete != nil {
		t.MarkedComplete = cloneTime(p.MarkedComplete)
	}
	if p.MarkedCompleteBy != nil {
		t.MarkedCompleteBy = cloneString(p.MarkedCompleteBy)
	}
	if p.Assignee != nil {
		if p.Assignee.User == nil {
			t.Assignee = nil
		} else {
			u := *p.Assignee.User
			t.Assignee = &u
		}
	}
	if p.Collaborators != nil {
		t.Collaborators = UniqueUsers(*p.Collaborators)
	}
	if p.Deletion != nil {
		t.DeletedAt = cloneTime(p.Deletion.At)
		t.DeletedBy = cloneString(p.Deletion.By)
	}
}

// NewTask собирает задачу из черновика; серверные поля заполняет вызывающий
func (d Draft) NewTask() *Task {
	t := &Task{
		Title:         d.Title,
		Description:   d.Description,
		ProjectID:     d.ProjectID,
		DueDate:       d.DueDate,
		Estimate:      d.Estimate,
		Status:        d.Status,
		Collaborators: UniqueUsers(d.Collaborators),
		CreatedBy:     d.CreatedBy,
	}
	if t.Status == "" {
		t.Status = StatusRedline
	}
	t.Archived = t.Status == StatusCompleted
	if d.Assignee != nil {
		u := *d.Assignee
		t.Assignee = &u
	}
	return t
}
