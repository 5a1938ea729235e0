// Package output печатает задачи для CLI: таблицей, доской или JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
)

type Format int

const (
	FormatTable Format = iota
	FormatJSON
)

func Detect(jsonFlag bool) Format {
	if jsonFlag {
		return FormatJSON
	}
	return FormatTable
}

func JSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("кодирование JSON: %w", err)
	}
	return nil
}

// ErrorResponse ошибка команды в режиме --json
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Status  int    `json:"status,omitempty"`
	TaskID  string `json:"task_id,omitempty"`
	Message string `json:"message,omitempty"`
}

func JSONError(w io.Writer, resp ErrorResponse) {
	_ = JSON(w, resp)
}

func Messagef(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}
