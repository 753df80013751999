// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/taskboard/internal/auth"
	"github.com/hitoshi/taskboard/internal/model"
)

// SessionCookieName はセッショントークンを格納するCookie名。
const SessionCookieName = "token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
	userIDContextKey = contextKey("user_id")
	// sessionClaimsContextKey はセッションのクレームを格納するためのキー。
	sessionClaimsContextKey = contextKey("session_claims")
	// credentialSourceContextKey はトークンの取得元を格納するためのキー。
	credentialSourceContextKey = contextKey("credential_source")
)

// credentialSource はセッショントークンの取得元。
type credentialSource int

const (
	credentialNone credentialSource = iota
	credentialHeader
	credentialCookie
)

// SessionVerifier はセッショントークンの検証に必要なインターフェース。
type SessionVerifier interface {
	Verify(token string) (*auth.SessionClaims, error)
}

// NewSessionMiddleware はAuthorizationヘッダーのBearerトークン、
// またはtoken Cookieからセッションを読み取り、有効性を検証するミドルウェアを返す。
// 両方ある場合はヘッダーを優先する。形式不正のAuthorizationヘッダーは無いものとして扱う。
// 認証済みユーザーIDをリクエストコンテキストに注入する。
// 未認証リクエストには401を返し、後続のハンドラーは呼ばない。
func NewSessionMiddleware(verifier SessionVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, source := extractToken(r)
			if token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("Missing Authorization token"))
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError("Invalid or expired token"))
				return
			}

			setRequestUserID(r.Context(), claims.Subject)
			ctx := ContextWithSessionClaims(r.Context(), claims)
			ctx = context.WithValue(ctx, credentialSourceContextKey, source)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken はBearerヘッダー、次にCookieの順でトークンを取り出し、取得元とともに返す。
func extractToken(r *http.Request) (string, credentialSource) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Fields(header)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1], credentialHeader
		}
	}

	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, credentialCookie
	}
	return "", credentialNone
}

// credentialSourceFromContext はセッションミドルウェアが記録したトークンの取得元を返す。
func credentialSourceFromContext(ctx context.Context) credentialSource {
	source, _ := ctx.Value(credentialSourceContextKey).(credentialSource)
	return source
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// SessionClaimsFromContext はリクエストコンテキストからセッションのクレームを取得する。
func SessionClaimsFromContext(ctx context.Context) (*auth.SessionClaims, bool) {
	claims, ok := ctx.Value(sessionClaimsContextKey).(*auth.SessionClaims)
	return claims, ok && claims != nil
}

// ContextWithSessionClaims はコンテキストにクレームとそのsubをユーザーIDとして注入する。
func ContextWithSessionClaims(ctx context.Context, claims *auth.SessionClaims) context.Context {
	ctx = context.WithValue(ctx, userIDContextKey, claims.Subject)
	return context.WithValue(ctx, sessionClaimsContextKey, claims)
}
