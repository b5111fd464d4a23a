package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/atelie/catalog/internal/model"
)

// MongoSessionRepo はMongoDBを使用したセッションリポジトリ。
type MongoSessionRepo struct {
	collection *mongo.Collection
}

// NewMongoSessionRepo はMongoSessionRepoを生成する。
func NewMongoSessionRepo(db *mongo.Database) *MongoSessionRepo {
	return &MongoSessionRepo{collection: db.Collection(sessionsCollection)}
}

// Create はセッションを作成する。
func (r *MongoSessionRepo) Create(ctx context.Context, session *model.Session) error {
	doc := bson.M{
		"user_id":       session.UserID,
		"session_token": session.Token,
		"expires_at":    session.ExpiresAt.UTC(),
		"created_at":    session.CreatedAt.UTC(),
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert session: %w", translateMongoError(err))
	}
	return nil
}

// FindByToken はトークンの完全一致でセッションを取得する。見つからない場合はnilを返す。
func (r *MongoSessionRepo) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	var doc sessionDocument
	err := r.collection.FindOne(ctx, bson.M{"session_token": token}).Decode(&doc)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return doc.toModel(), nil
}

// DeleteByToken は指定トークンのセッションを削除する。
func (r *MongoSessionRepo) DeleteByToken(ctx context.Context, token string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"session_token": token}); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired は期限切れセッションを全て削除する。
// expires_atが文字列と日時型で混在するため、サーバー側のクエリではなく
// 1件ずつ正規化して判定する。期限が読めないセッションも削除対象となる。
func (r *MongoSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var expired []string
	for cursor.Next(ctx) {
		var doc sessionDocument
		if err := cursor.Decode(&doc); err != nil {
			return 0, fmt.Errorf("failed to decode session: %w", err)
		}
		if doc.toModel().Expired(now) {
			expired = append(expired, doc.SessionToken)
		}
	}
	if err := cursor.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	if len(expired) == 0 {
		return 0, nil
	}

	result, err := r.collection.DeleteMany(ctx, bson.M{"session_token": bson.M{"$in": expired}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.DeletedCount, nil
}

// compile-time interface check
var _ SessionRepository = (*MongoSessionRepo)(nil)
