package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// connectTimeout はMongoDB接続確認のタイムアウト。
const connectTimeout = 10 * time.Second

// ConnectMongo はMongoDBに接続し、疎通を確認したクライアントを返す。
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client, nil
}

// mongoIndex はコレクションと一意キーの組。
type mongoIndex struct {
	collection string
	field      string
}

// uniqueIndexes はデータモデルの一意性を保証するためのインデックス。
// email と session_token の一意性はストア側で強制する。
var uniqueIndexes = []mongoIndex{
	{collection: "users", field: "user_id"},
	{collection: "users", field: "email"},
	{collection: "user_sessions", field: "session_token"},
	{collection: "products", field: "product_id"},
}

// EnsureMongoIndexes は一意インデックスを作成する。既に存在する場合は何もしない。
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	for _, idx := range uniqueIndexes {
		model := mongo.IndexModel{
			Keys:    bson.D{{Key: idx.field, Value: 1}},
			Options: options.Index().SetUnique(true).SetName(idx.field + "_unique"),
		}
		if _, err := db.Collection(idx.collection).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("failed to create index %s.%s: %w", idx.collection, idx.field, err)
		}
	}
	return nil
}

// MongoPinger は*mongo.Clientをヘルスチェック用のPingerに適合させる。
type MongoPinger struct {
	Client *mongo.Client
}

// Ping はMongoDBへの疎通を確認する。
func (p MongoPinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx, readpref.Primary())
}
