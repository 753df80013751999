// Package auth はGoogle IDトークンの検証とセッショントークンの発行・検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/taskboard/internal/metrics"
	"github.com/hitoshi/taskboard/internal/model"
)

// UserDirectory はユーザーの登録・参照インターフェース。
type UserDirectory interface {
	// Upsert は検証済みのIdP情報でユーザーを作成または更新する。
	Upsert(ctx context.Context, subject, email, name string) (*model.User, error)
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// TokenIssuer はセッショントークンの発行インターフェース。
type TokenIssuer interface {
	Issue(userID, email, name string) (string, time.Time, error)
}

// LoginResult はログイン成功時の結果。
type LoginResult struct {
	User      *model.User
	Picture   string // IDトークンのpicture。永続化しない
	Token     string
	ExpiresAt time.Time
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	verifier IDTokenVerifier
	users    UserDirectory
	tokens   TokenIssuer
	metrics  metrics.MetricsCollector
}

// NewService はServiceを生成する。collectorがnilの場合は記録しない。
func NewService(verifier IDTokenVerifier, users UserDirectory, tokens TokenIssuer, collector metrics.MetricsCollector) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		verifier: verifier,
		users:    users,
		tokens:   tokens,
		metrics:  collector,
	}
}

// LoginWithGoogle はGoogle IDトークンを検証し、ユーザーをupsertしてセッショントークンを発行する。
// 検証失敗はAUTHENTICATION_FAILED、永続化失敗はSTORAGE_UNAVAILABLEを返し、いずれもトークンは発行しない。
func (s *Service) LoginWithGoogle(ctx context.Context, idToken string) (*LoginResult, error) {
	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		s.metrics.RecordLogin(metrics.ResultFailure)
		slog.Warn("google id token verification failed", slog.String("error", err.Error()))
		return nil, model.NewAuthenticationFailedError()
	}

	user, err := s.users.Upsert(ctx, identity.Subject, identity.Email, identity.Name)
	if err != nil {
		s.metrics.RecordLogin(metrics.ResultError)
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		slog.Error("failed to upsert user on login",
			slog.String("subject", identity.Subject),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStorageUnavailableError()
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email, user.Name)
	if err != nil {
		s.metrics.RecordLogin(metrics.ResultError)
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	s.metrics.RecordLogin(metrics.ResultSuccess)
	slog.Info("user logged in", slog.String("user_id", user.ID))

	return &LoginResult{
		User:      user,
		Picture:   identity.Picture,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// CurrentUser はセッションのユーザーIDからユーザーを取得する。
// ユーザーが存在しない場合はUNAUTHORIZEDを返す。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		slog.Error("failed to load current user",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewStorageUnavailableError()
	}
	if user == nil {
		return nil, model.NewUnauthorizedError("User not found")
	}
	return user, nil
}
