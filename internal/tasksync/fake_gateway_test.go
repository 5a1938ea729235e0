package tasksync_test

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"taskSync/internal/models/task"
	"taskSync/internal/tasksync"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeGateway шлюз в памяти с серверной семантикой: версия, время сервера, коды T%04d.
// hold задерживает Update и SoftDelete конкретной задачи до release.
type fakeGateway struct {
	mtx        sync.Mutex
	tasks      []*task.Task
	nextID     int64
	serverTime time.Time
	failures   map[string]error
	calls      map[string]int
	hold       map[string]chan struct{}
	listGate   chan struct{}
	entered    chan string
	inflight   int
	maxInfl    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		serverTime: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		failures:   make(map[string]error),
		calls:      make(map[string]int),
		hold:       make(map[string]chan struct{}),
		entered:    make(chan string, 64),
	}
}

// add кладёт задачу прямо на сервер и возвращает её код
func (g *fakeGateway) add(title string, status task.Status, mods ...func(*task.Task)) string {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	g.nextID++
	t := &task.Task{
		ID:            g.nextID,
		TaskID:        fmt.Sprintf("T%04d", g.nextID),
		Title:         title,
		Status:        status,
		Archived:      status == task.StatusCompleted,
		Collaborators: []task.User{},
		CreatedBy:     "alice",
		CreatedAt:     g.serverTime,
		UpdatedAt:     g.serverTime,
		Version:       1,
	}
	for _, mod := range mods {
		mod(t)
	}
	g.tasks = append(g.tasks, t)
	return t.TaskID
}

func (g *fakeGateway) edit(code string, fn func(*task.Task)) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	if t := g.find(code); t != nil {
		fn(t)
		t.Version++
	}
}

func (g *fakeGateway) server(code string) *task.Task {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.find(code).Clone()
}

func (g *fakeGateway) fail(op string, err error) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	if err == nil {
		delete(g.failures, op)
		return
	}
	g.failures[op] = err
}

func (g *fakeGateway) count(op string) int {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.calls[op]
}

func (g *fakeGateway) maxInflight() int {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.maxInfl
}

func (g *fakeGateway) holdTask(code string) func() {
	gate := make(chan struct{})
	g.mtx.Lock()
	g.hold[code] = gate
	g.mtx.Unlock()

	return func() {
		g.mtx.Lock()
		delete(g.hold, code)
		g.mtx.Unlock()
		close(gate)
	}
}

func (g *fakeGateway) awaitEntered(t *testing.T, code string) {
	t.Helper()
	select {
	case got := <-g.entered:
		require.Equal(t, code, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("шлюз не получил запрос по %s", code)
	}
}

func (g *fakeGateway) hit(op string) error {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	g.calls[op]++
	return g.failures[op]
}

func (g *fakeGateway) wait(code string) {
	g.mtx.Lock()
	gate := g.hold[code]
	g.inflight++
	if g.inflight > g.maxInfl {
		g.maxInfl = g.inflight
	}
	g.mtx.Unlock()

	if gate != nil {
		g.entered <- code
		<-gate
	}

	g.mtx.Lock()
	g.inflight--
	g.mtx.Unlock()
}

func (g *fakeGateway) find(code string) *task.Task {
	for _, t := range g.tasks {
		if t.TaskID == code {
			return t
		}
	}
	return nil
}

func notFound(code string) error {
	return &tasksync.RemoteFailure{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "задача " + code + " не найдена"}
}

func (g *fakeGateway) list(includeDeleted bool) []*task.Task {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	res := make([]*task.Task, 0, len(g.tasks))
	for _, t := range g.tasks {
		if includeDeleted || !t.IsDeleted() {
			res = append(res, t.Clone())
		}
	}
	return res
}

func (g *fakeGateway) ListActive(ctx context.Context) ([]*task.Task, error) {
	if err := g.hit("list_active"); err != nil {
		return nil, err
	}
	return g.list(false), nil
}

func (g *fakeGateway) ListAll(ctx context.Context) ([]*task.Task, error) {
	if err := g.hit("list_all"); err != nil {
		return nil, err
	}
	g.mtx.Lock()
	gate := g.listGate
	g.mtx.Unlock()
	if gate != nil {
		<-gate
	}
	return g.list(true), nil
}

func (g *fakeGateway) Get(ctx context.Context, code string) (*task.Task, error) {
	if err := g.hit("get"); err != nil {
		return nil, err
	}
	g.mtx.Lock()
	defer g.mtx.Unlock()
	t := g.find(code)
	if t == nil {
		return nil, notFound(code)
	}
	return t.Clone(), nil
}

func (g *fakeGateway) Create(ctx context.Context, draft task.Draft) (*task.Task, error) {
	if err := g.hit("create"); err != nil {
		return nil, err
	}
	g.mtx.Lock()
	defer g.mtx.Unlock()

	g.nextID++
	t := draft.NewTask()
	t.ID = g.nextID
	t.TaskID = fmt.Sprintf("T%04d", g.nextID)
	t.CreatedAt = g.serverTime
	t.UpdatedAt = g.serverTime
	t.Version = 1
	g.tasks = append(g.tasks, t)
	return t.Clone(), nil
}

func (g *fakeGateway) Update(ctx context.Context, code string, patch task.Patch) (*task.Task, error) {
	if err := g.hit("update"); err != nil {
		return nil, err
	}
	g.wait(code)

	g.mtx.Lock()
	defer g.mtx.Unlock()
	t := g.find(code)
	if t == nil {
		return nil, notFound(code)
	}
	patch.Apply(t)
	t.Version++
	t.UpdatedAt = g.serverTime
	return t.Clone(), nil
}

func (g *fakeGateway) SoftDelete(ctx context.Context, code, actor string) error {
	if err := g.hit("soft_delete"); err != nil {
		return err
	}
	g.wait(code)

	g.mtx.Lock()
	defer g.mtx.Unlock()
	t := g.find(code)
	if t == nil {
		return notFound(code)
	}
	at := g.serverTime
	by := actor
	t.DeletedAt = &at
	t.DeletedBy = &by
	t.Version++
	t.UpdatedAt = g.serverTime
	return nil
}

func (g *fakeGateway) PermanentDelete(ctx context.Context, code string) error {
	if err := g.hit("permanent_delete"); err != nil {
		return err
	}
	g.mtx.Lock()
	defer g.mtx.Unlock()
	for i, t := range g.tasks {
		if t.TaskID == code {
			g.tasks = append(g.tasks[:i], g.tasks[i+1:]...)
			return nil
		}
	}
	return notFound(code)
}

func (g *fakeGateway) Restore(ctx context.Context, code string) (*task.Task, error) {
	if err := g.hit("restore"); err != nil {
		return nil, err
	}
	g.mtx.Lock()
	defer g.mtx.Unlock()
	t := g.find(code)
	if t == nil {
		return nil, notFound(code)
	}
	t.DeletedAt = nil
	t.DeletedBy = nil
	t.Version++
	t.UpdatedAt = g.serverTime
	return t.Clone(), nil
}

// MockGateway - мок шлюза для проверки того, что именно уходит на сервер
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) ListActive(ctx context.Context) ([]*task.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockGateway) ListAll(ctx context.Context) ([]*task.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockGateway) Get(ctx context.Context, code string) (*task.Task, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockGateway) Create(ctx context.Context, draft task.Draft) (*task.Task, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockGateway) Update(ctx context.Context, code string, patch task.Patch) (*task.Task, error) {
	args := m.Called(ctx, code, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockGateway) SoftDelete(ctx context.Context, code, actor string) error {
	args := m.Called(ctx, code, actor)
	return args.Error(0)
}

func (m *MockGateway) PermanentDelete(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockGateway) Restore(ctx context.Context, code string) (*task.Task, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

// setup сервер с задачами, загруженный Store и Engine
func setup(t *testing.T, gw *fakeGateway, opts ...tasksync.Option) (*tasksync.Store, *tasksync.Engine) {
	t.Helper()
	store := tasksync.NewStore(gw)
	engine := tasksync.NewEngine(store, opts...)
	require.NoError(t, store.Load(context.Background()))
	return store, engine
}

func actorCtx(user string) context.Context {
	return tasksync.WithActor(context.Background(), user)
}

func mustGet(t *testing.T, store *tasksync.Store, code string) *task.Task {
	t.Helper()
	got, ok := store.Get(code)
	require.True(t, ok, "задачи %s нет в Store", code)
	return got
}
