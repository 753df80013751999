package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSession はセッショントークンが無効であることを表す。
var ErrInvalidSession = errors.New("invalid session token")

// SessionClaims はセッショントークンのクレーム。subはローカルのユーザーID。
type SessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// SessionTokenManager はHS256署名のセッショントークンを発行・検証する。
// トークンは永続化せず、失効リストも持たない。
type SessionTokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionTokenManager はSessionTokenManagerを生成する。
func NewSessionTokenManager(secret string, ttl time.Duration) *SessionTokenManager {
	return &SessionTokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock は時刻取得関数を差し替えたコピーを返す。
func (m *SessionTokenManager) WithClock(now func() time.Time) *SessionTokenManager {
	c := *m
	c.now = now
	return &c
}

// TTL はトークンの有効期間を返す。
func (m *SessionTokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue はユーザーIDをsubに持つトークンを発行し、トークンと有効期限を返す。
func (m *SessionTokenManager) Issue(userID, email, name string) (string, time.Time, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.ttl)

	claims := SessionClaims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify はトークンの署名・有効期限・subを検証してクレームを返す。
// HS256以外のアルゴリズムは拒否する。
func (m *SessionTokenManager) Verify(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: token is empty", ErrInvalidSession)
	}

	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrInvalidSession)
	}
	return claims, nil
}
