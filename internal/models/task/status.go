package task

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

// Class задаёт поведение статуса; конкретные подписи живут в конфигурации
type Class int

const (
	ClassNotStarted Class = iota
	ClassActive
	ClassDone
)

const StatusRedline Status = "redline"
const StatusInProgress Status = "progress"
const StatusCompleted Status = "completed"

var ErrInvalidStatus = errors.New("неизвестный статус")

// Statuses в порядке колонок доски
var Statuses = []Status{StatusRedline, StatusInProgress, StatusCompleted}

func (s Status) Class() Class {
	switch s {
	case StatusInProgress:
		return ClassActive
	case StatusCompleted:
		return ClassDone
	default:
		return ClassNotStarted
	}
}

func (s Status) Valid() bool {
	return s == StatusRedline || s == StatusInProgress || s == StatusCompleted
}

func (c Class) String() string {
	switch c {
	case ClassNotStarted:
		return "not-started"
	case ClassActive:
		return "active"
	case ClassDone:
		return "completed"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// Labels сопоставляет внешние подписи статусов с закрытым набором значений
type Labels map[string]Status

func DefaultLabels() Labels {
	return Labels{
		"redline":     StatusRedline,
		"backlog":     StatusRedline,
		"not-started": StatusRedline,
		"progress":    StatusInProgress,
		"in-progress": StatusInProgress,
		"active":      StatusInProgress,
		"completed":   StatusCompleted,
		"done":        StatusCompleted,
	}
}

// Parse принимает подпись без учёта регистра и пробелов по краям
func (l Labels) Parse(label string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(label))
	if s, ok := l[key]; ok {
		return s, nil
	}
	if s := Status(key); s.Valid() {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, label)
}

// Extend добавляет подписи из конфигурации; значение должно быть одним из классов
func (l Labels) Extend(extra map[string]string) error {
	for label, class := range extra {
		s, err := l.Parse(class)
		if err != nil {
			return fmt.Errorf("подпись %q: %w", label, err)
		}
		l[strings.ToLower(strings.TrimSpace(label))] = s
	}
	return nil
}
