package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-todo-api/internal/model"
)

type TodoRepository struct {
	pool *pgxpool.Pool
}

func NewTodoRepository(pool *pgxpool.Pool) *TodoRepository {
	return &TodoRepository{pool: pool}
}

func (r *TodoRepository) FindAllByOwner(ctx context.Context, ownerID string) ([]model.Todo, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, description, is_starred, is_completed, owner_id, created_at, updated_at
		 FROM todos WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	todos := make([]model.Todo, 0)
	for rows.Next() {
		var t model.Todo
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.IsStarred, &t.IsCompleted,
			&t.OwnerID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

func (r *TodoRepository) FindOne(ctx context.Context, ownerID string, todoID string) (model.Todo, error) {
	var t model.Todo
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, description, is_starred, is_completed, owner_id, created_at, updated_at
		 FROM todos WHERE id = $1 AND owner_id = $2`, todoID, ownerID).
		Scan(&t.ID, &t.Title, &t.Description, &t.IsStarred, &t.IsCompleted,
			&t.OwnerID, &t.CreatedAt, &t.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Todo{}, model.ErrTodoNotFound
	}
	if err != nil {
		return model.Todo{}, fmt.Errorf("find todo: %w", err)
	}
	return t, nil
}

func (r *TodoRepository) Create(ctx context.Context, t model.Todo) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO todos (id, title, description, is_starred, is_completed, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.Title, t.Description, t.IsStarred, t.IsCompleted, t.OwnerID, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create todo: %w", err)
	}
	return nil
}

func (r *TodoRepository) Update(ctx context.Context, t model.Todo) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE todos SET title = $3, description = $4, is_starred = $5, is_completed = $6, updated_at = $7
		 WHERE id = $1 AND owner_id = $2`,
		t.ID, t.OwnerID, t.Title, t.Description, t.IsStarred, t.IsCompleted, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTodoNotFound
	}
	return nil
}

func (r *TodoRepository) Delete(ctx context.Context, ownerID string, todoID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM todos WHERE id = $1 AND owner_id = $2`, todoID, ownerID)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTodoNotFound
	}
	return nil
}

func (r *TodoRepository) DeleteCompleted(ctx context.Context, ownerID string) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM todos WHERE owner_id = $1 AND is_completed`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete completed todos: %w", err)
	}
	return tag.RowsAffected(), nil
}
