package task

import (
	"time"
)

// PatchOption собирает Patch из отдельных изменений, как это делают CLI и handlers
type PatchOption func(*Patch)

func NewPatch(opts ...PatchOption) Patch {
	var p Patch
	for _, opt := range opts {
		if opt != nil {
			opt(&p)
		}
	}
	return p
}

func WithTitle(title string) PatchOption {
	return func(p *Patch) {
		p.Title = &title
	}
}

func WithDescription(description string) PatchOption {
	return func(p *Patch) {
		p.Description = &description
	}
}

func WithProject(projectID string) PatchOption {
	return func(p *Patch) {
		p.ProjectID = &projectID
	}
}

func WithDueDate(dueDate string) PatchOption {
	if dueDate == "" {
		return nil
	}
	return func(p *Patch) {
		p.DueDate = &dueDate
	}
}

func WithEstimate(estimate string) PatchOption {
	if estimate == "" {
		return nil
	}
	return func(p *Patch) {
		p.Estimate = &estimate
	}
}

func WithStatus(status Status) PatchOption {
	if status == "" {
		return nil
	}
	return func(p *Patch) {
		p.Status = &status
	}
}

func WithAssignee(user *User) PatchOption {
	return func(p *Patch) {
		p.Assignee = &AssigneePatch{User: user}
	}
}

func WithCollaborators(users []User) PatchOption {
	return func(p *Patch) {
		unique := UniqueUsers(users)
		p.Collaborators = &unique
	}
}

func WithDeletion(at time.Time, by string) PatchOption {
	return func(p *Patch) {
		p.Deletion = &DeletionMark{At: &at, By: &by}
	}
}

func WithoutDeletion() PatchOption {
	return func(p *Patch) {
		p.Deletion = &DeletionMark{}
	}
}
