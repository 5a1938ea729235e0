package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taskSync/internal/app"
	"taskSync/internal/config"
	"taskSync/internal/gateway"
	"taskSync/internal/models/task"
	"taskSync/internal/output"
	"taskSync/internal/tasksync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{name: "not found", err: errNotFound("T0009"), code: "TASK_NOT_FOUND"},
		{name: "invalid status", err: fmt.Errorf("x: %w", tasksync.ErrInvalidStatus), code: "INVALID_STATUS"},
		{name: "invalid patch", err: tasksync.ErrInvalidPatch, code: "INVALID_INPUT"},
		{name: "not in trash", err: tasksync.ErrNotInTrash, code: "NOT_IN_TRASH"},
		{name: "already in trash", err: tasksync.ErrAlreadyInTrash, code: "ALREADY_IN_TRASH"},
		{name: "undo expired", err: tasksync.ErrUndoExpired, code: "UNDO_EXPIRED"},
		{name: "remote coded", err: &tasksync.RemoteFailure{Op: "get", Status: 410, Code: "TASK_DELETED"}, code: "TASK_DELETED"},
		{name: "remote plain", err: &tasksync.RemoteFailure{Op: "list", Status: 502}, code: "REMOTE_FAILURE"},
		{name: "remote conflict", err: &tasksync.RemoteFailure{Op: "update", Status: http.StatusConflict}, code: "VERSION_CONFLICT"},
		{name: "other", err: fmt.Errorf("boom"), code: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := errorResponse(tt.err)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.err.Error(), resp.Error)
		})
	}

	resp := errorResponse(&tasksync.RemoteFailure{Op: "get", TaskID: "T0003", Status: 404, Message: "нет"})
	assert.Equal(t, 404, resp.Status)
	assert.Equal(t, "T0003", resp.TaskID)
	assert.Equal(t, "нет", resp.Message)
}

// startServer поднимает сервер задач и пишет config.yml клиента
func startServer(t *testing.T) string {
	t.Helper()
	a, err := app.New(&config.Config{Repository: config.RepositoryConfig{Type: "inmemory"}}).Init(context.Background())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "config.yml")
	body := fmt.Sprintf("gateway:\n  url: %s\n  user: alice\n", srv.URL)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	prev := flagConfig
	flagConfig = path
	t.Cleanup(func() { flagConfig = prev })
	return srv.URL
}

// TestRepl_UndoFlow интерактивная сессия: завершение, отмена, корзина, отмена удаления
func TestRepl_UndoFlow(t *testing.T) {
	output.DisableColor()
	url := startServer(t)

	ctx := tasksync.WithActor(context.Background(), "alice")
	_, err := gateway.New(url, gateway.WithUser("alice")).Create(ctx, task.Draft{Title: "Report"})
	require.NoError(t, err)

	ctx, s, err := openSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", s.user)
	assert.Equal(t, 1, s.store.Len())

	var out bytes.Buffer
	r := &repl{s: s, out: &out}
	input := strings.Join([]string{
		"undo",
		"done T0001",
		"undo",
		"rm T0001",
		"trash",
		"undo",
		"show T0001",
		"bogus",
		"quit",
		"list",
	}, "\n")
	require.NoError(t, r.loop(ctx, strings.NewReader(input)))

	text := out.String()
	assert.Contains(t, text, "Ошибка: "+tasksync.ErrUndoExpired.Error())
	assert.Contains(t, text, "T0001: completed")
	assert.Contains(t, text, "Отменено: T0001 redline")
	assert.Contains(t, text, `неизвестная команда "bogus"`)
	assert.NotContains(t, text, "В корзине")
	assert.Equal(t, 2, strings.Count(text, "Report"), "trash и show")

	got, ok := s.store.Get("T0001")
	require.True(t, ok)
	assert.False(t, got.IsDeleted())
	assert.Equal(t, task.StatusRedline, got.Status)
}

func TestRepl_Arguments(t *testing.T) {
	startServer(t)
	ctx, s, err := openSession(context.Background())
	require.NoError(t, err)

	r := &repl{s: s, out: &bytes.Buffer{}}
	assert.EqualError(t, r.exec(ctx, "status", []string{"T0001"}), "status: не хватает аргументов")
	assert.ErrorIs(t, r.exec(ctx, "show", []string{"T0404"}), tasksync.ErrNotFound)
	assert.NoError(t, r.exec(ctx, "dismiss", nil))
}
