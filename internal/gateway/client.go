package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"taskSync/internal/handlers/dto"
	"taskSync/internal/logger"
	"taskSync/internal/middleware"
	"taskSync/internal/models/task"
	"taskSync/internal/tasksync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Client удалённый шлюз задач поверх REST API сервера
type Client struct {
	baseURL string
	user    string
	http    *http.Client
}

var _ tasksync.Gateway = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithUser пользователь по умолчанию, если в контексте нет tasksync.WithActor
func WithUser(id string) Option {
	return func(c *Client) {
		c.user = id
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListActive(ctx context.Context) ([]*task.Task, error) {
	var res dto.TaskListResponse
	if err := c.do(ctx, "list_active", "", http.MethodGet, "/tasks", nil, &res); err != nil {
		return nil, err
	}
	return res.Tasks, nil
}

func (c *Client) ListAll(ctx context.Context) ([]*task.Task, error) {
	var res dto.TaskListResponse
	if err := c.do(ctx, "list_all", "", http.MethodGet, "/tasks/all", nil, &res); err != nil {
		return nil, err
	}
	return res.Tasks, nil
}

func (c *Client) Get(ctx context.Context, code string) (*task.Task, error) {
	var res dto.TaskResponse
	if err := c.do(ctx, "get", code, http.MethodGet, taskPath(code), nil, &res); err != nil {
		return nil, err
	}
	return res.Task, nil
}

func (c *Client) Create(ctx context.Context, draft task.Draft) (*task.Task, error) {
	var res dto.TaskResponse
	if err := c.do(ctx, "create", "", http.MethodPost, "/tasks", dto.FromDraft(draft), &res); err != nil {
		return nil, err
	}
	return res.Task, nil
}

func (c *Client) Update(ctx context.Context, code string, patch task.Patch) (*task.Task, error) {
	body := dto.UpdateTaskRequest{Patch: patch}
	if patch.Status != nil {
		label := string(*patch.Status)
		body.Status = &label
	}

	var res dto.TaskResponse
	if err := c.do(ctx, "update", code, http.MethodPatch, taskPath(code), body, &res); err != nil {
		return nil, err
	}
	return res.Task, nil
}

// SoftDelete автор удаления уходит заголовком X-User-ID
func (c *Client) SoftDelete(ctx context.Context, code, actor string) error {
	return c.do(tasksync.WithActor(ctx, actor), "soft_delete", code, http.MethodDelete, taskPath(code), nil, nil)
}

func (c *Client) PermanentDelete(ctx context.Context, code string) error {
	return c.do(ctx, "permanent_delete", code, http.MethodDelete, taskPath(code)+"/purge", nil, nil)
}

func (c *Client) Restore(ctx context.Context, code string) (*task.Task, error) {
	var res dto.TaskResponse
	if err := c.do(ctx, "restore", code, http.MethodPost, taskPath(code)+"/restore", nil, &res); err != nil {
		return nil, err
	}
	return res.Task, nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	return c.do(ctx, "health", "", http.MethodGet, "/health", nil, nil)
}

func taskPath(code string) string {
	return "/tasks/" + url.PathEscape(code)
}

func (c *Client) do(ctx context.Context, op, code, method, path string, body, out any) error {
	start := time.Now()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("кодирование запроса %s: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("создание запроса %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.RequestIDHeader, uuid.New().String())
	if actor := c.actor(ctx); actor != "" {
		req.Header.Set(middleware.ActorHeader, actor)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		rf := &tasksync.RemoteFailure{Op: op, TaskID: code, Message: err.Error(), Err: err}
		if errors.Is(err, context.DeadlineExceeded) {
			rf.Status = http.StatusGatewayTimeout
		}
		return rf
	}
	defer resp.Body.Close()

	logger.Debug("Gateway: Ответ сервера",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("ms", time.Since(start)))

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeFailure(op, code, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &tasksync.RemoteFailure{
			Op:      op,
			TaskID:  code,
			Status:  resp.StatusCode,
			Message: "неверный ответ сервера: " + err.Error(),
			Err:     err,
		}
	}
	return nil
}

func (c *Client) actor(ctx context.Context) string {
	if actor := tasksync.ActorFrom(ctx); actor != "" {
		return actor
	}
	return c.user
}

func decodeFailure(op, code string, resp *http.Response) error {
	rf := &tasksync.RemoteFailure{
		Op:      op,
		TaskID:  code,
		Status:  resp.StatusCode,
		Message: http.StatusText(resp.StatusCode),
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(raw) == 0 {
		return rf
	}

	var body dto.ErrorResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		rf.Message = strings.TrimSpace(string(raw))
		return rf
	}
	if body.Error != "" && body.Error != http.StatusText(resp.StatusCode) {
		rf.Code = body.Error
	}
	if body.Message != "" {
		rf.Message = body.Message
	}
	return rf
}

// IsConflict удобная проверка для вызывающих
func IsConflict(err error) bool {
	var rf *tasksync.RemoteFailure
	return errors.As(err, &rf) && rf.Conflict()
}
