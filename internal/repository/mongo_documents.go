package repository

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/atelie/catalog/internal/model"
)

// MongoDBのコレクション名。
const (
	usersCollection    = "users"
	sessionsCollection = "user_sessions"
	productsCollection = "products"
)

// userDocument はusersコレクションのドキュメント。
// タイムスタンプは文字列・日時型のどちらでも読めるようanyで受ける。
type userDocument struct {
	UserID    string `bson:"user_id"`
	Email     string `bson:"email"`
	Name      string `bson:"name"`
	Picture   any    `bson:"picture"`
	CreatedAt any    `bson:"created_at"`
}

// sessionDocument はuser_sessionsコレクションのドキュメント。
type sessionDocument struct {
	UserID       string `bson:"user_id"`
	SessionToken string `bson:"session_token"`
	ExpiresAt    any    `bson:"expires_at"`
	CreatedAt    any    `bson:"created_at"`
}

// productDocument はproductsコレクションのドキュメント。
type productDocument struct {
	ProductID   string   `bson:"product_id"`
	Name        string   `bson:"name"`
	Description string   `bson:"description"`
	Price       float64  `bson:"price"`
	Sizes       []string `bson:"sizes"`
	Colors      []string `bson:"colors"`
	Images      []string `bson:"images"`
	CreatedAt   any      `bson:"created_at"`
	UpdatedAt   any      `bson:"updated_at"`
}

func (d *userDocument) toModel() (*model.User, error) {
	createdAt, err := NormalizeTimestamp(d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("user %s: created_at: %w", d.UserID, err)
	}
	// pictureは欠落・nullの場合がある
	picture, _ := d.Picture.(string)
	return &model.User{
		ID:        d.UserID,
		Email:     d.Email,
		Name:      d.Name,
		Picture:   picture,
		CreatedAt: createdAt,
	}, nil
}

// toModel はセッションドキュメントをモデルに変換する。
// expires_atが欠落または解釈できない場合はゼロ値とし、期限切れとして扱わせる。
func (d *sessionDocument) toModel() *model.Session {
	expiresAt, err := NormalizeTimestamp(d.ExpiresAt)
	if err != nil {
		slog.Warn("unreadable session expiry, treating as expired",
			slog.String("user_id", d.UserID),
			slog.String("error", err.Error()),
		)
		expiresAt = time.Time{}
	}
	createdAt, _ := NormalizeTimestamp(d.CreatedAt)
	return &model.Session{
		Token:     d.SessionToken,
		UserID:    d.UserID,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}
}

func (d *productDocument) toModel() (*model.Product, error) {
	createdAt, err := NormalizeTimestamp(d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("product %s: created_at: %w", d.ProductID, err)
	}
	updatedAt, err := NormalizeTimestamp(d.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("product %s: updated_at: %w", d.ProductID, err)
	}
	return &model.Product{
		ID:          d.ProductID,
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		Sizes:       nonNil(d.Sizes),
		Colors:      nonNil(d.Colors),
		Images:      nonNil(d.Images),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// nonNil はJSONで null ではなく [] を返すために nil スライスを空スライスに置き換える。
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// translateMongoError はドライバのエラーをリポジトリのエラーに変換する。
func translateMongoError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	return err
}

// isNoDocuments はFindOneの結果が0件かどうかを返す。
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
