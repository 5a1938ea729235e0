package task

import (
	"errors"
	"fmt"
	"time"
)

type User struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Avatar   string `json:"avatar,omitempty" db:"avatar"`
	Color    string `json:"color,omitempty" db:"color"`
	FullName string `json:"full_name,omitempty" db:"full_name"`
}

type Task struct {
	ID               int64      `json:"id" db:"id"`
	TaskID           string     `json:"task_id" db:"task_id"`
	Title            string     `json:"title" db:"title"`
	Description      string     `json:"description" db:"description"`
	ProjectID        string     `json:"project_id,omitempty" db:"project_id"`
	DueDate          string     `json:"due_date,omitempty" db:"due_date"`
	Estimate         string     `json:"estimate,omitempty" db:"estimate"`
	CreatedDisplay   string     `json:"created_display,omitempty" db:"created_display"`
	Assignee         *User      `json:"assignee,omitempty" db:"assignee"`
	Collaborators    []User     `json:"collaborators" db:"collaborators"`
	Status           Status     `json:"status" db:"status"`
	Archived         bool       `json:"archived" db:"archived"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	DeletedBy        *string    `json:"deleted_by,omitempty" db:"deleted_by"`
	CreatedBy        string     `json:"created_by" db:"created_by"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
	MarkedComplete   *time.Time `json:"marked_complete,omitempty" db:"marked_complete"`
	MarkedCompleteBy *string    `json:"marked_complete_by,omitempty" db:"marked_complete_by"`
	Version          int        `json:"version" db:"version"`
}

var (
	ErrArchivedMismatch = errors.New("archived не согласован со статусом")
	ErrDeletionUnpaired = errors.New("deleted_at и deleted_by должны задаваться вместе")
	ErrDuplicateCollab  = errors.New("соавтор указан дважды")
	ErrEmptyTitle       = errors.New("название не может быть пустым")
)

// Clone возвращает глубокую копию, чтобы Store не отдавал наружу свои указатели
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Assignee != nil {
		a := *t.Assignee
		c.Assignee = &a
	}
	if t.Collaborators != nil {
		c.Collaborators = append([]User(nil), t.Collaborators...)
	}
	c.DeletedAt = cloneTime(t.DeletedAt)
	c.DeletedBy = cloneString(t.DeletedBy)
	c.MarkedComplete = cloneTime(t.MarkedComplete)
	c.MarkedCompleteBy = cloneString(t.MarkedCompleteBy)
	return &c
}

func (t *Task) IsDeleted() bool {
	return t.DeletedAt != nil
}

func (t *Task) HasCollaborator(userID string) bool {
	for _, u := range t.Collaborators {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// Validate проверяет инварианты сущности
func (t *Task) Validate() error {
	if t.Archived != (t.Status == StatusCompleted) {
		return fmt.Errorf("%w: status=%s archived=%t", ErrArchivedMismatch, t.Status, t.Archived)
	}
	if (t.DeletedAt == nil) != (t.DeletedBy == nil) {
		return ErrDeletionUnpaired
	}
	seen := make(map[string]struct{}, len(t.Collaborators))
	for _, u := range t.Collaborators {
		if _, ok := seen[u.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateCollab, u.ID)
		}
		seen[u.ID] = struct{}{}
	}
	return nil
}

// UniqueUsers убирает повторы по id, сохраняя порядок первого появления
func UniqueUsers(users []User) []User {
	res := make([]User, 0, len(users))
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		if _, ok := seen[u.ID]; ok {
			continue
		}
		seen[u.ID] = struct{}{}
		res = append(res, u)
	}
	return res
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
