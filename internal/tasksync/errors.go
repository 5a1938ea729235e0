package tasksync

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"taskSync/internal/models/task"
)

var (
	ErrNotFound       = errors.New("задача не найдена")
	ErrInvalidStatus  = task.ErrInvalidStatus
	ErrInvalidPatch   = errors.New("недопустимый патч")
	ErrNotInTrash     = errors.New("задача не в корзине")
	ErrAlreadyInTrash = errors.New("задача уже в корзине")
	ErrUndoExpired    = errors.New("отмена больше недоступна")
)

// RemoteFailure любой неуспешный ответ шлюза: статус и текст сервера
type RemoteFailure struct {
	Op      string
	TaskID  string
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *RemoteFailure) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("шлюз %s %s: [%d] %s", e.Op, e.TaskID, e.Status, msg)
	}
	if e.Code != "" {
		return fmt.Sprintf("шлюз %s %s: [%s] %s", e.Op, e.TaskID, e.Code, msg)
	}
	return fmt.Sprintf("шлюз %s %s: %s", e.Op, e.TaskID, msg)
}

func (e *RemoteFailure) Unwrap() error {
	return e.Err
}

// Is позволяет проверять удалённый 404 через errors.Is(err, ErrNotFound)
func (e *RemoteFailure) Is(target error) bool {
	return target == ErrNotFound && (e.Status == http.StatusNotFound || e.Code == "NOT_FOUND")
}

// Conflict сообщает о конфликте версий на стороне шлюза
func (e *RemoteFailure) Conflict() bool {
	return e.Status == http.StatusConflict || e.Code == "VERSION_CONFLICT"
}

type coded interface {
	ErrorCode() string
}

// remoteError приводит ошибку шлюза к RemoteFailure
func remoteError(op, code string, err error) error {
	var rf *RemoteFailure
	if errors.As(err, &rf) {
		if rf.Op == "" {
			rf.Op = op
		}
		if rf.TaskID == "" {
			rf.TaskID = code
		}
		return rf
	}
	res := &RemoteFailure{Op: op, TaskID: code, Message: err.Error(), Err: err}
	var c coded
	if errors.As(err, &c) {
		res.Code = c.ErrorCode()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		res.Status = http.StatusGatewayTimeout
	}
	return res
}
