package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/taskboard/internal/model"
)

// SQLiteTaskRepo はSQLiteを使用したタスクリポジトリ。
type SQLiteTaskRepo struct {
	db *sql.DB
}

// NewSQLiteTaskRepo はSQLiteTaskRepoを生成する。
func NewSQLiteTaskRepo(db *sql.DB) *SQLiteTaskRepo {
	return &SQLiteTaskRepo{db: db}
}

// ListRecentByUserID は指定ユーザーのタスクを作成日時の新しい順に最大limit件返す。
func (r *SQLiteTaskRepo) ListRecentByUserID(ctx context.Context, userID string, limit int) ([]*model.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*model.Task, 0, limit)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// Create はタスクを作成し、採番されたIDをtask.IDに設定する。
func (r *SQLiteTaskRepo) Create(ctx context.Context, task *model.Task) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, description, completed, scheduled_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.UserID, task.Title, nullStringPtr(task.Description), task.Completed,
		nullStringPtr(task.ScheduledAt), task.CreatedAt.UTC(), task.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get task id: %w", err)
	}
	task.ID = id
	return nil
}

// FindByIDAndUserID は所有者が一致するタスクを取得する。見つからない場合はnilを返す。
func (r *SQLiteTaskRepo) FindByIDAndUserID(ctx context.Context, id int64, userID string) (*model.Task, error) {
	task, err := scanTask(r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`,
		id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// UpdateCompleted は所有者が一致するタスクの完了状態を更新し、更新後のタスクを返す。
// 見つからない場合はnilを返す。
func (r *SQLiteTaskRepo) UpdateCompleted(ctx context.Context, id int64, userID string, completed bool, updatedAt time.Time) (*model.Task, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET completed = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		completed, updatedAt.UTC(), id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil
	}
	return r.FindByIDAndUserID(ctx, id, userID)
}

// DeleteByIDAndUserID は所有者が一致するタスクを削除する。
func (r *SQLiteTaskRepo) DeleteByIDAndUserID(ctx context.Context, id int64, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ TaskRepository = (*SQLiteTaskRepo)(nil)
