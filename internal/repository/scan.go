package repository

import (
	"database/sql"

	"github.com/hitoshi/taskboard/internal/model"
)

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, email, name, external_subject_id, created_at, updated_at`

const taskColumns = `id, user_id, title, description, completed, scheduled_at, created_at, updated_at`

func scanUser(row rowScanner) (*model.User, error) {
	var (
		user    model.User
		name    sql.NullString
		subject sql.NullString
	)
	if err := row.Scan(&user.ID, &user.Email, &name, &subject, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	user.Name = name.String
	user.ExternalSubjectID = subject.String
	return &user, nil
}

func scanTask(row rowScanner) (*model.Task, error) {
	var (
		task        model.Task
		description sql.NullString
		scheduledAt sql.NullString
	)
	err := row.Scan(
		&task.ID, &task.UserID, &task.Title, &description, &task.Completed,
		&scheduledAt, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		task.Description = &description.String
	}
	if scheduledAt.Valid {
		task.ScheduledAt = &scheduledAt.String
	}
	return &task, nil
}

// nullString は空文字をNULLとして扱う。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
