package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/atelie/catalog/internal/model"
)

// MongoUserRepo はMongoDBを使用したユーザーリポジトリ。
type MongoUserRepo struct {
	collection *mongo.Collection
}

// NewMongoUserRepo はMongoUserRepoを生成する。
func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{collection: db.Collection(usersCollection)}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"user_id": id})
}

// FindByEmail は正規化済みemailでユーザーを取得する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var doc userDocument
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toModel()
}

// Create はユーザーを作成する。
func (r *MongoUserRepo) Create(ctx context.Context, user *model.User) error {
	doc := bson.M{
		"user_id":    user.ID,
		"email":      user.Email,
		"name":       user.Name,
		"picture":    nullableString(user.Picture),
		"created_at": user.CreatedAt.UTC(),
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert user: %w", translateMongoError(err))
	}
	return nil
}

// UpdateProfile はnameとpictureのみを更新する。
func (r *MongoUserRepo) UpdateProfile(ctx context.Context, id, name, picture string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"user_id": id},
		bson.M{"$set": bson.M{"name": name, "picture": nullableString(picture)}},
	)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return nil
}

// nullableString は空文字列をnullとして保存するために変換する。
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// compile-time interface check
var _ UserRepository = (*MongoUserRepo)(nil)
