package model

import "time"

// RecentTaskLimit はタスク一覧で返す最大件数。
// ページネーションではなく固定の打ち切り。
const RecentTaskLimit = 5

// Task はユーザーが所有するタスクを表す。
type Task struct {
	ID          int64
	UserID      string
	Title       string
	Description *string // 未指定の場合はnil
	Completed   bool
	ScheduledAt *string // クライアントが送った文字列をそのまま保持する。タイムゾーン変換はしない
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
