package tasksync

import (
	"time"

	"taskSync/internal/models/task"
)

// Change результат перехода: полный патч и, если положено, обратный патч для отмены
type Change struct {
	Patch   task.Patch
	Reverse *task.Patch
}

// Transition единственное место, где связываются status и archived.
// Переход в completed архивирует и ставит отметку завершения,
// выход из completed снимает архив, а отметку оставляет как есть.
func Transition(current *task.Task, to task.Status, actor string, now time.Time) (Change, error) {
	if !to.Valid() {
		return Change{}, ErrInvalidStatus
	}

	from := current.Status
	target := to
	var ch Change
	ch.Patch.Status = &target

	if from == to {
		archived := to == task.StatusCompleted
		ch.Patch.Archived = &archived
		return ch, nil
	}

	switch to.Class() {
	case task.ClassDone:
		archived := true
		at := now
		ch.Patch.Archived = &archived
		ch.Patch.MarkedComplete = &at
		if actor != "" {
			by := actor
			ch.Patch.MarkedCompleteBy = &by
		}

		prev := from
		if !prev.Valid() {
			prev = task.StatusRedline
		}
		ch.Reverse = &task.Patch{Status: &prev}
	default:
		archived := false
		ch.Patch.Archived = &archived
	}
	return ch, nil
}

// merge переносит в base поля статуса из перехода
func (c Change) merge(base task.Patch) task.Patch {
	base.Status = c.Patch.Status
	base.Archived = c.Patch.Archived
	if c.Patch.MarkedComplete != nil {
		base.MarkedComplete = c.Patch.MarkedComplete
	}
	if c.Patch.MarkedCompleteBy != nil {
		base.MarkedCompleteBy = c.Patch.MarkedCompleteBy
	}
	return base
}
