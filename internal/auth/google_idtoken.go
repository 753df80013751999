package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/hitoshi/taskboard/internal/model"
)

const (
	// GoogleIssuer はGoogle IDトークンのiss。スキーム無しの"accounts.google.com"もgo-oidcが許容する。
	GoogleIssuer = "https://accounts.google.com"
	// GoogleJWKSURL はGoogleの公開鍵セットのURL。
	GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// ErrAuthenticationFailed はIDトークン検証に失敗したことを表す。
var ErrAuthenticationFailed = errors.New("identity token verification failed")

// IDTokenVerifier は外部IdPのIDトークンを検証するインターフェース。
type IDTokenVerifier interface {
	// Verify はIDトークンを検証し、検証済みのユーザー情報を返す。
	// 失敗した場合はErrAuthenticationFailedをラップしたエラーを返し、部分的な情報は返さない。
	Verify(ctx context.Context, rawToken string) (*model.Identity, error)
}

// GoogleIDTokenVerifier はGoogle Sign-InのIDトークンを検証する。
// 署名・aud・iss・expの検証はgo-oidcが行う。
type GoogleIDTokenVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleIDTokenVerifier はGoogleの公開鍵セットを使うVerifierを生成する。
// 鍵セットは初回検証時に取得され、ctxはその取得に使われるためアプリケーションの存続期間と同じものを渡す。
func NewGoogleIDTokenVerifier(ctx context.Context, clientID string) *GoogleIDTokenVerifier {
	keySet := oidc.NewRemoteKeySet(ctx, GoogleJWKSURL)
	return NewGoogleIDTokenVerifierWithKeySet(keySet, GoogleIssuer, clientID)
}

// NewGoogleIDTokenVerifierWithKeySet は任意の鍵セットとissuerでVerifierを生成する。
func NewGoogleIDTokenVerifierWithKeySet(keySet oidc.KeySet, issuer, clientID string) *GoogleIDTokenVerifier {
	return &GoogleIDTokenVerifier{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{ClientID: clientID}),
	}
}

// googleClaims はGoogle IDトークンのうち利用するクレーム。
type googleClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Verify はIDトークンを検証し、sub・email・name・pictureを返す。
// subまたはemailが無いトークンは拒否する。
func (v *GoogleIDTokenVerifier) Verify(ctx context.Context, rawToken string) (*model.Identity, error) {
	if rawToken == "" {
		return nil, fmt.Errorf("%w: token is empty", ErrAuthenticationFailed)
	}

	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: failed to decode claims: %v", ErrAuthenticationFailed, err)
	}
	if idToken.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrAuthenticationFailed)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: token has no email", ErrAuthenticationFailed)
	}

	return &model.Identity{
		Subject: idToken.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
	}, nil
}

// compile-time interface check
var _ IDTokenVerifier = (*GoogleIDTokenVerifier)(nil)
