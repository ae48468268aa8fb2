package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"go-todo-api/internal/model"
)

type MockTodoStore struct {
	mock.Mock
}

func (m *MockTodoStore) FindAllByOwner(ctx context.Context, ownerID string) ([]model.Todo, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]model.Todo), args.Error(1)
}

func (m *MockTodoStore) FindOne(ctx context.Context, ownerID string, todoID string) (model.Todo, error) {
	args := m.Called(ctx, ownerID, todoID)
	return args.Get(0).(model.Todo), args.Error(1)
}

func (m *MockTodoStore) Create(ctx context.Context, t model.Todo) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTodoStore) Update(ctx context.Context, t model.Todo) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTodoStore) Delete(ctx context.Context, ownerID string, todoID string) error {
	args := m.Called(ctx, ownerID, todoID)
	return args.Error(0)
}

func (m *MockTodoStore) DeleteCompleted(ctx context.Context, ownerID string) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

func TestTodoService_Create(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		todos := new(MockTodoStore)
		svc := NewTodoService(todos)

		todos.On("Create", mock.Anything, mock.MatchedBy(func(todo model.Todo) bool {
			return todo.Title == "buy milk" && todo.OwnerID == "user-id-1" &&
				todo.ID != "" && !todo.IsCompleted
		})).Return(nil)

		todo, err := svc.Create(context.Background(), "user-id-1", model.CreateTodoRequest{
			Title:       "  buy milk  ",
			Description: "2 liters",
			IsStarred:   true,
		})
		require.NoError(t, err)
		assert.Equal(t, "buy milk", todo.Title)
		assert.True(t, todo.IsStarred)
		todos.AssertExpectations(t)
	})

	t.Run("empty title rejected", func(t *testing.T) {
		todos := new(MockTodoStore)
		svc := NewTodoService(todos)

		_, err := svc.Create(context.Background(), "user-id-1", model.CreateTodoRequest{Title: "   "})
		assert.ErrorIs(t, err, model.ErrInvalidInput)
		todos.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestTodoService_Update(t *testing.T) {
	existing := model.Todo{
		ID:          "todo-1",
		Title:       "buy milk",
		Description: "2 liters",
		OwnerID:     "user-id-1",
	}

	t.Run("partial update keeps untouched fields", func(t *testing.T) {
		todos := new(MockTodoStore)
		svc := NewTodoService(todos)

		todos.On("FindOne", mock.Anything, "user-id-1", "todo-1").Return(existing, nil)
		todos.On("Update", mock.Anything, mock.MatchedBy(func(todo model.Todo) bool {
			return todo.Title == "buy milk" && todo.IsCompleted
		})).Return(nil)

		completed := true
		updated, err := svc.Update(context.Background(), "user-id-1", "todo-1", model.UpdateTodoRequest{
			IsCompleted: &completed,
		})
		require.NoError(t, err)
		assert.Equal(t, "buy milk", updated.Title)
		assert.True(t, updated.IsCompleted)
	})

	t.Run("missing todo", func(t *testing.T) {
		todos := new(MockTodoStore)
		svc := NewTodoService(todos)

		todos.On("FindOne", mock.Anything, "user-id-1", "nope").Return(model.Todo{}, model.ErrTodoNotFound)

		_, err := svc.Update(context.Background(), "user-id-1", "nope", model.UpdateTodoRequest{})
		assert.ErrorIs(t, err, model.ErrTodoNotFound)
	})

	t.Run("blank title rejected", func(t *testing.T) {
		todos := new(MockTodoStore)
		svc := NewTodoService(todos)

		todos.On("FindOne", mock.Anything, "user-id-1", "todo-1").Return(existing, nil)

		blank := " "
		_, err := svc.Update(context.Background(), "user-id-1", "todo-1", model.UpdateTodoRequest{Title: &blank})
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	})
}

func TestTodoService_DeleteCompleted(t *testing.T) {
	todos := new(MockTodoStore)
	svc := NewTodoService(todos)

	todos.On("DeleteCompleted", mock.Anything, "user-id-1").Return(int64(3), nil)

	removed, err := svc.DeleteCompleted(context.Background(), "user-id-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
}
