// Package task はタスク管理のドメインロジックを提供する。
// すべての操作はセッションのユーザーIDでスコープされる。
package task

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/taskboard/internal/metrics"
	"github.com/hitoshi/taskboard/internal/model"
	"github.com/hitoshi/taskboard/internal/repository"
)

// MaxTitleLength はタイトルの最大文字数。
const MaxTitleLength = 255

// タスク操作のメトリクスラベル
const (
	opList     = "list"
	opCreate   = "create"
	opComplete = "complete"
	opDelete   = "delete"
)

// CreateInput はタスク作成の入力。
type CreateInput struct {
	Title       string
	Description *string
	ScheduledAt *string // 受け取った文字列をそのまま保存する
}

// Service はタスク管理のサービス層。
type Service struct {
	repo    repository.TaskRepository
	metrics metrics.MetricsCollector
	now     func() time.Time
}

// NewService はServiceを生成する。collectorがnilの場合は記録しない。
func NewService(repo repository.TaskRepository, collector metrics.MetricsCollector) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		repo:    repo,
		metrics: collector,
		now:     time.Now,
	}
}

// List は指定ユーザーの最新タスクを新しい順に最大RecentTaskLimit件返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Task, error) {
	tasks, err := s.repo.ListRecentByUserID(ctx, userID, model.RecentTaskLimit)
	if err != nil {
		return nil, s.storageError(opList, userID, err)
	}
	s.metrics.RecordTaskOperation(opList, metrics.ResultSuccess)
	return tasks, nil
}

// Create はタスクを作成する。
// titleとdescriptionは前後の空白のみ取り除き、それ以外は受け取った文字列のまま保存する。
// 空白を除いたtitleが空の場合はVALIDATION_FAILEDを返す。
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		s.metrics.RecordTaskOperation(opCreate, metrics.ResultFailure)
		return nil, model.NewValidationError("Title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		s.metrics.RecordTaskOperation(opCreate, metrics.ResultFailure)
		return nil, model.NewValidationError("Title must be at most 255 characters")
	}

	var description *string
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		if d != "" {
			description = &d
		}
	}

	var scheduledAt *string
	if in.ScheduledAt != nil && *in.ScheduledAt != "" {
		v := *in.ScheduledAt
		scheduledAt = &v
	}

	now := s.now()
	task := &model.Task{
		UserID:      userID,
		Title:       title,
		Description: description,
		Completed:   false,
		ScheduledAt: scheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, s.storageError(opCreate, userID, err)
	}

	s.metrics.RecordTaskOperation(opCreate, metrics.ResultSuccess)
	slog.Info("task created",
		slog.String("user_id", userID),
		slog.Int64("task_id", task.ID),
	)
	return task, nil
}

// Complete は所有者が一致するタスクを完了にする。
// 既に完了済みのタスクに対しても成功を返す。
func (s *Service) Complete(ctx context.Context, userID string, taskID int64) (*model.Task, error) {
	task, err := s.repo.UpdateCompleted(ctx, taskID, userID, true, s.now())
	if err != nil {
		return nil, s.storageError(opComplete, userID, err)
	}
	if task == nil {
		s.metrics.RecordTaskOperation(opComplete, metrics.ResultFailure)
		return nil, model.NewTaskNotFoundError(taskID)
	}

	s.metrics.RecordTaskOperation(opComplete, metrics.ResultSuccess)
	return task, nil
}

// Delete は所有者が一致するタスクを削除する。
func (s *Service) Delete(ctx context.Context, userID string, taskID int64) error {
	deleted, err := s.repo.DeleteByIDAndUserID(ctx, taskID, userID)
	if err != nil {
		return s.storageError(opDelete, userID, err)
	}
	if !deleted {
		s.metrics.RecordTaskOperation(opDelete, metrics.ResultFailure)
		return model.NewTaskNotFoundError(taskID)
	}

	s.metrics.RecordTaskOperation(opDelete, metrics.ResultSuccess)
	slog.Info("task deleted",
		slog.String("user_id", userID),
		slog.Int64("task_id", taskID),
	)
	return nil
}

// storageError は永続化層のエラーを記録し、STORAGE_UNAVAILABLEに変換する。
func (s *Service) storageError(op, userID string, err error) error {
	s.metrics.RecordTaskOperation(op, metrics.ResultError)
	slog.Error("task storage operation failed",
		slog.String("op", op),
		slog.String("user_id", userID),
		slog.String("error", err.Error()),
	)
	return model.NewStorageUnavailableError()
}
