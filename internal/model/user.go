package model

import "time"

// User はサービス利用ユーザーを表す。
// 初回のGoogleログイン時に作成され、以降のログインでemail・nameが更新される。
type User struct {
	ID                string
	Email             string
	Name              string
	ExternalSubjectID string // Google IDトークンのsub。未連携の場合は空文字
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Identity は外部IdPで検証済みのユーザー情報を表す。
// IDトークン検証の結果として生成され、永続化はされない。
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}
