// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskboard/internal/metrics"
	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/repository"
)

// Directory はGoogleログイン時のユーザー登録・更新を担う。
type Directory struct {
	repo    repository.UserRepository
	metrics metrics.MetricsCollector
	now     func() time.Time
	newID   func() string
}

// NewDirectory はDirectoryを生成する。collectorがnilの場合は記録しない。
func NewDirectory(repo repository.UserRepository, collector metrics.MetricsCollector) *Directory {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Directory{
		repo:    repo,
		metrics: collector,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (d *Directory) FindByID(ctx context.Context, id string) (*model.User, error) {
	return d.repo.FindByID(ctx, id)
}

// Upsert は検証済みのsubject・email・nameでユーザーを作成または更新する。
//
// 検索はsubject一致を優先し、見つからない場合のみemailで検索する。
// subjectで見つかったユーザーのemailが別ユーザーに使われている場合はemailを更新せず、
// 2つのアカウントを統合しない。
func (d *Directory) Upsert(ctx context.Context, subject, email, name string) (*model.User, error) {
	user, err := d.lookup(ctx, subject, email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		user, err = d.create(ctx, subject, email, name)
		if !errors.Is(err, repository.ErrDuplicate) {
			return user, err
		}
		// 同時ログインで先に作成された場合は再検索して更新に回る
		user, err = d.lookup(ctx, subject, email)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, fmt.Errorf("user vanished after duplicate insert: subject=%s", subject)
		}
	}

	return d.refresh(ctx, user, subject, email, name)
}

func (d *Directory) lookup(ctx context.Context, subject, email string) (*model.User, error) {
	user, err := d.repo.FindByExternalSubjectID(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by subject: %w", err)
	}
	if user != nil {
		return user, nil
	}

	user, err = d.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

func (d *Directory) create(ctx context.Context, subject, email, name string) (*model.User, error) {
	now := d.now()
	user := &model.User{
		ID:                d.newID(),
		Email:             email,
		Name:              name,
		ExternalSubjectID: subject,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := d.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	d.metrics.RecordUserCreated()
	slog.Info("new user created",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

func (d *Directory) refresh(ctx context.Context, user *model.User, subject, email, name string) (*model.User, error) {
	if user.Email != email {
		owner, err := d.repo.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to find user by email: %w", err)
		}
		if owner != nil && owner.ID != user.ID {
			slog.Warn("email belongs to another user, keeping current email",
				slog.String("user_id", user.ID),
				slog.String("other_user_id", owner.ID),
			)
		} else {
			user.Email = email
		}
	}

	user.ExternalSubjectID = subject
	if name != "" {
		user.Name = name
	}
	user.UpdatedAt = d.now()

	if err := d.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}
