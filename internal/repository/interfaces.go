// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/taskboard/internal/model"
)

// ErrDuplicate はユニーク制約違反を表す。
var ErrDuplicate = errors.New("duplicate key")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByExternalSubjectID は外部IdPのsubでユーザーを検索する。見つからない場合はnilを返す。
	FindByExternalSubjectID(ctx context.Context, subject string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。email・subjectが重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// Update はemail・name・subject・updated_atを更新する。
	// email・subjectが他ユーザーと重複する場合はErrDuplicateを返す。
	Update(ctx context.Context, user *model.User) error
}

// TaskRepository はタスクデータの永続化インターフェース。
// すべての操作は所有ユーザーIDでスコープされる。
type TaskRepository interface {
	// ListRecentByUserID は指定ユーザーのタスクを作成日時の新しい順に最大limit件返す。
	ListRecentByUserID(ctx context.Context, userID string, limit int) ([]*model.Task, error)

	// Create はタスクを作成し、採番されたIDをtask.IDに設定する。
	Create(ctx context.Context, task *model.Task) error

	// FindByIDAndUserID は所有者が一致するタスクを取得する。見つからない場合はnilを返す。
	FindByIDAndUserID(ctx context.Context, id int64, userID string) (*model.Task, error)

	// UpdateCompleted は所有者が一致するタスクの完了状態を更新し、更新後のタスクを返す。
	// 見つからない場合はnilを返す。
	UpdateCompleted(ctx context.Context, id int64, userID string, completed bool, updatedAt time.Time) (*model.Task, error)

	// DeleteByIDAndUserID は所有者が一致するタスクを削除する。
	// 削除対象が存在しない場合はfalseを返す。
	DeleteByIDAndUserID(ctx context.Context, id int64, userID string) (bool, error)
}
