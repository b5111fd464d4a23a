// Package repository はデータ永続化のインターフェースと、
// MongoDB・PostgreSQLによる実装を提供する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/atelie/catalog/internal/model"
)

// ErrDuplicateKey は一意制約（email、session_token等）に違反した場合に返される。
var ErrDuplicateKey = errors.New("duplicate key")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は正規化済みemailでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。emailが重複する場合はErrDuplicateKeyを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile はnameとpictureのみを更新する。
	UpdateProfile(ctx context.Context, id, name, picture string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。トークンが重複する場合はErrDuplicateKeyを返す。
	Create(ctx context.Context, session *model.Session) error

	// FindByToken はトークンの完全一致でセッションを取得する。
	// 期限切れかどうかは判定しない。見つからない場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.Session, error)

	// DeleteByToken は指定トークンのセッションを削除する。存在しなくてもエラーにしない。
	DeleteByToken(ctx context.Context, token string) error

	// DeleteExpired はexpires_atがnow以前のセッションを全て削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ProductRepository は商品データの永続化インターフェース。
type ProductRepository interface {
	// List は全商品を返す。順序はストアの既定順。
	List(ctx context.Context) ([]*model.Product, error)

	// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Product, error)

	// Create は商品を作成する。
	Create(ctx context.Context, product *model.Product) error

	// Update はpatchで指定されたフィールドとupdated_atのみを更新する。
	// 対象が存在しない場合はfalseを返す。
	Update(ctx context.Context, id string, patch model.ProductPatch, updatedAt time.Time) (bool, error)

	// Delete は指定IDの商品を削除する。対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// Store はバックエンドごとのリポジトリ一式をまとめる。
type Store struct {
	Users    UserRepository
	Sessions SessionRepository
	Products ProductRepository
}
