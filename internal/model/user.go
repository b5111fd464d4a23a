package model

import "time"

// User は管理画面にログインしたユーザーを表す。
// emailは正規化済み（前後空白除去・小文字化）の業務キー。
type User struct {
	ID        string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Session はセッショントークンによるログイン状態を表す。
// 有効期限は作成時に固定され、延長されない。
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired は指定時刻においてセッションが期限切れかどうかを返す。
// expires_at ちょうどの時刻も期限切れとして扱う。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
