package tasksync_test

import (
	"context"
	"errors"
	"testing"

	"taskSync/internal/models/task"
	"taskSync/internal/tasksync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TestEngine_SoftDelete задача уходит в корзину, но остаётся в Store
func TestEngine_SoftDelete(t *testing.T) {
	gw := newFakeGateway()
	code := gw.add("Report", task.StatusInProgress)
	store, engine := setup(t, gw)

	res, err := engine.SoftDelete(actorCtx("alice"), code, "bob")
	require.NoError(t, err)

	require.NotNil(t, res.Task.DeletedAt)
	require.NotNil(t, res.Task.DeletedBy)
	assert.Equal(t, "bob", *res.Task.DeletedBy)
	assert.True(t, gw.serverTime.Equal(*res.Task.DeletedAt))
	assert.Equal(t, 2, res.Task.Version)

	require.NotNil(t, res.Undo)
	assert.Equal(t, tasksync.UndoSoftDelete, res.Undo.Kind)

	assert.Equal(t, 1, store.Len())
	assert.Len(t, store.TrashOnly(), 1)
	assert.Empty(t, store.ActiveOnly())
	for _, g := range store.GroupByStatus() {
		assert.Zero(t, g.Count())
	}
	assert.Equal(t, 1, gw.count("get"))
}

func TestEngine_SoftDelete_ActorFromContext(t *testing.T) {
	gw := newFakeGateway()
	code := gw.add("Report", task.StatusRedline)
	_, engine := setup(t, gw)

	res, err := engine.SoftDelete(actorCtx("carol"), code, "")
	require.NoError(t, err)
	assert.Equal(t, "carol", *res.Task.DeletedBy)

	other := gw.add("Other", task.StatusRedline)
	_, engine = setup(t, gw)
	_, err = engine.SoftDelete(context.Background(), other, "")
	assert.ErrorIs(t, err, tasksync.ErrInvalidPatch)
}

func TestEngine_SoftDelete_Errors(t *testing.T) {
	gw := newFakeGateway()
	code := gw.add("Report", task.StatusRedline)
	store, engine := setup(t, gw)
	ctx := actorCtx("alice")

	_, err := engine.SoftDelete(ctx, "T0404", "bob")
	assert.ErrorIs(t, err, tasksync.ErrNotFound)

	gw.fail("soft_delete", errors.New("offline"))
	_, err = engine.SoftDelete(ctx, code, "bob")
	require.Error(t, err)
	assert.False(t, mustGet(t, store, code).IsDeleted())

	gw.fail("soft_delete", nil)
	_, err = engine.SoftDelete(ctx, code, "bob")
	require.NoError(t, err)

	_, err = engine.SoftDelete(ctx, code, "bob")
	assert.ErrorIs(t, err, tasksync.ErrAlreadyInTrash)
	assert.Equal(t, 2, gw.count("soft_delete"))
}

// TestEngine_SoftDelete_Undo отмена снимает пометку удаления целиком
func TestEngine_SoftDelete_Undo(t *testing.T) {
	gw := newFakeGateway()
	code := gw.add("Report", task.StatusRedline)
	store, engine := setup(t, gw)
	ctx := actorCtx("alice")

	res, err := engine.SoftDelete(ctx, code, "bob")
	require.NoError(t, err)

	back, err := res.Undo.Invoke(ctx)
	require.NoError(t, err)
	assert.Nil(t, back.DeletedAt)
	assert.Nil(t, back.DeletedBy)

	got := mustGet(t, store, code)
	assert.False(t, got.IsDeleted())
	assert.Nil(t, got.DeletedBy)
	assert.False(t, gw.server(code).IsDeleted())
	assert.Empty(t, store.TrashOnly())
}

// TestEngine_Restore восстановление доступно без срока и гасит отмену
func TestEngine_Restore(t *testing.T) {
	gw := newFakeGateway()
	code := gw.add("Report", task.StatusRedline)
	store, engine := setup(t, gw)
	ctx := actorCtx("alice")

	res, err := engine.SoftDelete(ctx, code, "bob")
	require.NoError(t, err)

	restored, err := engine.Restore(ctx, code)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted())
	assert.False(t, mustGet(t, store, code).IsDeleted())
	assert.False(t, res.Undo.Active())

	_, err = engine.Restore(ctx, code)
	assert.ErrorIs(t, err, tasksync.ErrNotInTrash)

	_, err = engine.Restore(ctx, "T0404")
	assert.ErrorIs(t, err, tasksync.ErrNotFound)
}

func TestEngine_Restore_Rollback(t *testing.T) {
	gw := newFakeGateway()
	code := gw.add("Report", task.StatusRedline, deleted("bob"))
	store, engine := setup(t, gw)

	gw.fail("restore", errors.New("offline"))
	_, err := engine.Restore(actorCtx("alice"), code)

	require.Error(t, err)
	assert.True(t, mustGet(t, store, code).IsDeleted())
}

// TestEngine_PermanentDelete только из корзины
func TestEngine_PermanentDelete(t *testing.T) {
	gw := newFakeGateway()
	code := gw.add("Report", task.StatusRedline)
	store, engine := setup(t, gw)
	ctx := actorCtx("alice")

	assert.ErrorIs(t, engine.PermanentDelete(ctx, code), tasksync.ErrNotInTrash)
	assert.Equal(t, 0, gw.count("permanent_delete"))

	res, err := engine.SoftDelete(ctx, code, "bob")
	require.NoError(t, err)

	require.NoError(t, engine.PermanentDelete(ctx, code))
	_, ok := store.Get(code)
	assert.False(t, ok)
	assert.False(t, res.Undo.Active())

	_, err = res.Undo.Invoke(ctx)
	assert.ErrorIs(t, err, tasksync.ErrUndoExpired)
	assert.ErrorIs(t, engine.PermanentDelete(ctx, code), tasksync.ErrNotFound)
}

// TestEngine_SoftDelete_RefetchFails без перечитывания остаётся оптимистичная копия
func TestEngine_SoftDelete_RefetchFails(t *testing.T) {
	current := &task.Task{ID: 1, TaskID: "T0001", Title: "Report", Status: task.StatusRedline, Version: 1}

	gw := new(MockGateway)
	gw.On("ListAll", mock.Anything).Return([]*task.Task{current}, nil)
	gw.On("SoftDelete", mock.Anything, "T0001", "bob").Return(nil)
	gw.On("Get", mock.Anything, "T0001").Return(nil, errors.New("flaky"))

	store := tasksync.NewStore(gw)
	engine := tasksync.NewEngine(store)
	require.NoError(t, store.Load(context.Background()))

	res, err := engine.SoftDelete(actorCtx("alice"), "T0001", "bob")

	require.NoError(t, err)
	require.NotNil(t, res.Task.DeletedBy)
	assert.Equal(t, "bob", *res.Task.DeletedBy)
	assert.Len(t, store.TrashOnly(), 1)
	gw.AssertExpectations(t)
}
