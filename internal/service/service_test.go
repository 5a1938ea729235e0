package service_test

import (
	"context"
	"errors"
	"taskSync/internal/models/task"
	"taskSync/internal/repository"
	"taskSync/internal/service"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTaskRepository - мок репозитория
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskRepository) Create(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) Update(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) GetByCode(ctx context.Context, code string) (*task.Task, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) DeleteSoft(ctx context.Context, t *task.Task, actor string) error {
	args := m.Called(ctx, t, actor)
	return args.Error(0)
}

func (m *MockTaskRepository) DeleteFull(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockTaskRepository) List(ctx context.Context, includeDeleted bool) ([]*task.Task, error) {
	args := m.Called(ctx, includeDeleted)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func activeTask(code string) *task.Task {
	return &task.Task{
		ID:      7,
		TaskID:  code,
		Title:   "Test Task",
		Status:  task.StatusRedline,
		Version: 1,
	}
}

func deletedTask(code string) *task.Task {
	t := activeTask(code)
	now := time.Now()
	by := "alice"
	t.DeletedAt = &now
	t.DeletedBy = &by
	return t
}

func businessCode(t *testing.T, err error) string {
	t.Helper()
	var busErr *service.BusinessError
	require.True(t, errors.As(err, &busErr), "ожидалась BusinessError, получено %v", err)
	return busErr.Code
}

// TestTaskService_HealthCheck тестирует проверку здоровья
func TestTaskService_HealthCheck(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(*MockTaskRepository)
		expectError bool
	}{
		{
			name: "success - health check passes",
			setupMock: func(m *MockTaskRepository) {
				m.On("HealthCheck", mock.Anything).Return(nil)
			},
			expectError: false,
		},
		{
			name: "error - health check fails",
			setupMock: func(m *MockTaskRepository) {
				m.On("HealthCheck", mock.Anything).Return(errors.New("db connection failed"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			svc := service.NewTaskService(mockRepo, service.DBType)
			err := svc.HealthCheck(context.Background())

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "проверка здоровья сервиса")
			} else {
				assert.NoError(t, err)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

// TestTaskService_List тестирует выборку активных и всех задач
func TestTaskService_List(t *testing.T) {
	ctx := context.Background()
	active := []*task.Task{activeTask("T0001")}
	all := []*task.Task{activeTask("T0001"), deletedTask("T0002")}

	mockRepo := new(MockTaskRepository)
	mockRepo.On("List", mock.Anything, false).Return(active, nil)
	mockRepo.On("List", mock.Anything, true).Return(all, nil)

	svc := service.NewTaskService(mockRepo, service.InMemoryType)

	got, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	mockRepo.AssertExpectations(t)
}

func TestTaskService_List_Error(t *testing.T) {
	mockRepo := new(MockTaskRepository)
	mockRepo.On("List", mock.Anything, false).Return(nil, errors.New("db down"))

	svc := service.NewTaskService(mockRepo, service.DBType)
	_, err := svc.ListActive(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "получение активных задач")
}

// TestTaskService_Get тестирует получение по коду
func TestTaskService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("GetByCode", mock.Anything, "T0007").Return(activeTask("T0007"), nil)

		svc := service.NewTaskService(mockRepo, service.DBType)
		got, err := svc.Get(ctx, "T0007")

		require.NoError(t, err)
		assert.Equal(t, int64(7), got.ID)
	})

	t.Run("not found maps to business error", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("GetByCode", mock.Anything, "T0404").Return(nil, repository.ErrNotFound)

		svc := service.NewTaskService(mockRepo, service.DBType)
		_, err := svc.Get(ctx, "T0404")

		assert.Equal(t, service.CodeNotFound, businessCode(t, err))
	})

	t.Run("storage failure is wrapped", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("GetByCode", mock.Anything, "T0001").Return(nil, errors.New("timeout"))

		svc := service.NewTaskService(mockRepo, service.DBType)
		_, err := svc.Get(ctx, "T0001")

		require.Error(t, err)
		var busErr *service.BusinessError
		assert.False(t, errors.As(err, &busErr))
		assert.Contains(t, err.Error(), "T0001")
	})
}

// TestTaskService_Create тестирует создание задачи
func TestTaskService_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		draft       task.Draft
		setupMock   func(*MockTaskRepository)
		expectCode  string
		checkResult func(*testing.T, *task.Task)
	}{
		{
			name:  "success - defaults to redline",
			draft: task.Draft{Title: "New", CreatedBy: "alice"},
			setupMock: func(m *MockTaskRepository) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
					return t.Status == task.StatusRedline && !t.Archived && t.CreatedDisplay != ""
				})).Run(func(args mock.Arguments) {
					created := args.Get(1).(*task.Task)
					created.ID = 7
					created.TaskID = "T0007"
				}).Return(nil)
			},
			checkResult: func(t *testing.T, got *task.Task) {
				assert.Equal(t, "T0007", got.TaskID)
				assert.Nil(t, got.MarkedComplete)
			},
		},
		{
			name:  "success - completed on create is archived and marked",
			draft: task.Draft{Title: "Done", Status: task.StatusCompleted, CreatedBy: "alice"},
			setupMock: func(m *MockTaskRepository) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil)
			},
			checkResult: func(t *testing.T, got *task.Task) {
				assert.True(t, got.Archived)
				require.NotNil(t, got.MarkedComplete)
				require.NotNil(t, got.MarkedCompleteBy)
				assert.Equal(t, "alice", *got.MarkedCompleteBy)
			},
		},
		{
			name:       "error - empty title",
			draft:      task.Draft{},
			setupMock:  func(m *MockTaskRepository) {},
			expectCode: service.CodeValidation,
		},
		{
			name:       "error - unknown status",
			draft:      task.Draft{Title: "x", Status: "blocked"},
			setupMock:  func(m *MockTaskRepository) {},
			expectCode: service.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			svc := service.NewTaskService(mockRepo, service.DBType)
			got, err := svc.Create(ctx, tt.draft)

			if tt.expectCode != "" {
				assert.Equal(t, tt.expectCode, businessCode(t, err))
				mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			tt.checkResult(t, got)
			mockRepo.AssertExpectations(t)
		})
	}
}

// TestTaskService_Update тестирует частичное обновление
func TestTaskService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("status change keeps archived consistent", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("GetByCode", mock.Anything, "T0001").Return(activeTask("T0001"), nil)
		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
			return t.Status == task.StatusCompleted && t.Archived
		})).Return(nil)

		svc := service.NewTaskService(mockRepo, service.DBType)
		got, err := svc.Update(ctx, "T0001", task.NewPatch(task.WithStatus(task.StatusCompleted)))

		require.NoError(t, err)
		assert.True(t, got.Archived)
		mockRepo.AssertExpectations(t)
	})

	t.Run("retries on version conflict", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("GetByCode", mock.Anything, "T0001").Return(activeTask("T0001"), nil).Once()
		mockRepo.On("GetByCode", mock.Anything, "T0001").Return(activeTask("T0001"), nil).Once()
		mockRepo.On("Update", mock.Anything, mock.Anything).Return(repository.ErrVersionConflict).Once()
		mockRepo.On("Update", mock.Anything, mock.Anything).Return(nil).Once()

		svc := service.NewTaskService(mockRepo, service.DBType)
		got, err := svc.Update(ctx, "T0001", task.NewPatch(task.WithTitle("renamed")))

		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Title)
		mockRepo.AssertNumberOfCalls(t, "GetByCode", 2)
		mockRepo.AssertNumberOfCalls(t, "Update", 2)
	})

	t.Run("gives up after repeated conflicts", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("GetByCode", mock.Anything, "T0001").Return(activeTask("T0001"), nil)
		mockRepo.On("Update", mock.Anything, mock.Anything).Return(repository.ErrVersionConflict)

		svc := service.NewTaskService(mockRepo, service.DBType)
		_, err := svc.Update(ctx, "T0001", task.NewPatch(task.WithTitle("renamed")))

		assert.Equal(t, service.CodeVersionConflict, businessCode(t, err))
		assert.ErrorIs(t, err, repository.ErrVersionConflict)
		mockRepo.AssertNumberOfCalls(t, "Update", 3)
	})

	t.Run("invalid patch never reaches storage", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)

		svc := service.NewTaskService(mockRepo, service.DBType)
		empty := ""
		_, err := svc.Update(ctx, "T0001", task.Patch{Title: &empty})

		assert.Equal(t, service.CodeValidation, businessCode(t, err))
		mockRepo.AssertNotCalled(t, "GetByCode", mock.Anything, mock.Anything)
	})

	t.Run("explicit archived mismatch rejected", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("GetByCode", mock.Anything, "T0001").Return(activeTask("T0001"), nil)

		svc := service.NewTaskService(mockRepo, service.DBType)
		archived := true
		_, err := svc.Update(ctx, "T0001", task.Patch{Archived: &archived})

		assert.Equal(t, service.CodeValidation, businessCode(t, err))
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("not found", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("GetByCode", mock.Anything, "T0404").Return(nil, repository.ErrNotFound)

		svc := service.NewTaskService(mockRepo, service.DBType)
		_, err := svc.Update(ctx, "T0404", task.NewPatch(task.WithTitle("x")))

		assert.Equal(t, service.CodeNotFound, businessCode(t, err))
	})
}

// TestTaskService_SoftDelete тестирует перемещение в корзину
func TestTaskService_SoftDelete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		actor      string
		setupMock  func(*MockTaskRepository)
		expectCode string
	}{
		{
			name:  "success",
			actor: "bob",
			setupMock: func(m *MockTaskRepository) {
				m.On("GetByCode", mock.Anything, "T0001").Return(activeTask("T0001"), nil)
				m.On("DeleteSoft", mock.Anything, mock.Anything, "bob").Return(nil)
			},
		},
		{
			name:       "error - no actor",
			actor:      "",
			setupMock:  func(m *MockTaskRepository) {},
			expectCode: service.CodeValidation,
		},
		{
			name:  "error - already in trash",
			actor: "bob",
			setupMock: func(m *MockTaskRepository) {
				m.On("GetByCode", mock.Anything, "T0001").Return(deletedTask("T0001"), nil)
			},
			expectCode: service.CodeTaskDeleted,
		},
		{
			name:  "error - not found",
			actor: "bob",
			setupMock: func(m *MockTaskRepository) {
				m.On("GetByCode", mock.Anything, "T0001").Return(nil, repository.ErrNotFound)
			},
			expectCode: service.CodeNotFound,
		},
		{
			name:  "error - version conflict",
			actor: "bob",
			setupMock: func(m *MockTaskRepository) {
				m.On("GetByCode", mock.Anything, "T0001").Return(activeTask("T0001"), nil)
				m.On("DeleteSoft", mock.Anything, mock.Anything, "bob").Return(repository.ErrVersionConflict)
			},
			expectCode: service.CodeVersionConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			svc := service.NewTaskService(mockRepo, service.DBType)
			err := svc.SoftDelete(ctx, "T0001", tt.actor)

			if tt.expectCode != "" {
				assert.Equal(t, tt.expectCode, businessCode(t, err))
			} else {
				assert.NoError(t, err)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

// TestTaskService_Restore тестирует восстановление из корзины
func TestTaskService_Restore(t *testing.T) {
	ctx := context.Background()

	t.Run("success clears deletion pair", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("GetByCode", mock.Anything, "T0002").Return(deletedTask("T0002"), nil)
		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
			return t.DeletedAt == nil && t.DeletedBy == nil
		})).Return(nil)

		svc := service.NewTaskService(mockRepo, service.DBType)
		got, err := svc.Restore(ctx, "T0002")

		require.NoError(t, err)
		assert.False(t, got.IsDeleted())
		mockRepo.AssertExpectations(t)
	})

	t.Run("error - not in trash", func(t *testing.T) {
		mockRepo := new(MockTaskRepository)
		mockRepo.On("GetByCode", mock.Anything, "T0001").Return(activeTask("T0001"), nil)

		svc := service.NewTaskService(mockRepo, service.DBType)
		_, err := svc.Restore(ctx, "T0001")

		assert.Equal(t, service.CodeNotDeleted, businessCode(t, err))
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

// TestTaskService_PermanentDelete тестирует полное удаление
func TestTaskService_PermanentDelete(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockTaskRepository)
	mockRepo.On("DeleteFull", mock.Anything, "T0001").Return(nil)
	mockRepo.On("DeleteFull", mock.Anything, "T0404").Return(repository.ErrNotFound)

	svc := service.NewTaskService(mockRepo, service.DBType)

	assert.NoError(t, svc.PermanentDelete(ctx, "T0001"))
	assert.Equal(t, service.CodeNotFound, businessCode(t, svc.PermanentDelete(ctx, "T0404")))
	mockRepo.AssertExpectations(t)
}

func TestBusinessError(t *testing.T) {
	cause := errors.New("boom")
	err := service.NewVersionConflict("T0001", cause)

	assert.Contains(t, err.Error(), service.CodeVersionConflict)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, service.CodeVersionConflict, err.ErrorCode())

	withDetail := service.NewBusinessError("X", "msg", service.ToDetail("k", 1))
	assert.Equal(t, 1, withDetail.Details["k"])
	assert.Equal(t, "[X] msg", withDetail.Error())
}
