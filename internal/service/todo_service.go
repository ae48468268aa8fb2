package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-todo-api/internal/model"
)

type TodoStore interface {
	FindAllByOwner(ctx context.Context, ownerID string) ([]model.Todo, error)
	FindOne(ctx context.Context, ownerID string, todoID string) (model.Todo, error)
	Create(ctx context.Context, t model.Todo) error
	Update(ctx context.Context, t model.Todo) error
	Delete(ctx context.Context, ownerID string, todoID string) error
	DeleteCompleted(ctx context.Context, ownerID string) (int64, error)
}

type TodoService struct {
	todos TodoStore
}

func NewTodoService(todos TodoStore) *TodoService {
	return &TodoService{todos: todos}
}

func (s *TodoService) List(ctx context.Context, ownerID string) ([]model.Todo, error) {
	return s.todos.FindAllByOwner(ctx, ownerID)
}

func (s *TodoService) Get(ctx context.Context, ownerID string, todoID string) (model.Todo, error) {
	return s.todos.FindOne(ctx, ownerID, todoID)
}

func (s *TodoService) Create(ctx context.Context, ownerID string, req model.CreateTodoRequest) (model.Todo, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return model.Todo{}, fmt.Errorf("%w: title is required", model.ErrInvalidInput)
	}

	now := time.Now().UTC()
	todo := model.Todo{
		ID:          uuid.NewString(),
		Title:       title,
		Description: req.Description,
		IsStarred:   req.IsStarred,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.todos.Create(ctx, todo); err != nil {
		return model.Todo{}, err
	}
	return todo, nil
}

func (s *TodoService) Update(ctx context.Context, ownerID string, todoID string, req model.UpdateTodoRequest) (model.Todo, error) {
	todo, err := s.todos.FindOne(ctx, ownerID, todoID)
	if err != nil {
		return model.Todo{}, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return model.Todo{}, fmt.Errorf("%w: title cannot be empty", model.ErrInvalidInput)
		}
		todo.Title = title
	}
	if req.Description != nil {
		todo.Description = *req.Description
	}
	if req.IsStarred != nil {
		todo.IsStarred = *req.IsStarred
	}
	if req.IsCompleted != nil {
		todo.IsCompleted = *req.IsCompleted
	}
	todo.UpdatedAt = time.Now().UTC()

	if err := s.todos.Update(ctx, todo); err != nil {
		return model.Todo{}, err
	}
	return todo, nil
}

func (s *TodoService) Delete(ctx context.Context, ownerID string, todoID string) error {
	return s.todos.Delete(ctx, ownerID, todoID)
}

func (s *TodoService) DeleteCompleted(ctx context.Context, ownerID string) (int64, error) {
	return s.todos.DeleteCompleted(ctx, ownerID)
}
