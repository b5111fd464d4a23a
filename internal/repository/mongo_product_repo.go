package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/atelie/catalog/internal/model"
)

// MongoProductRepo はMongoDBを使用した商品リポジトリ。
type MongoProductRepo struct {
	collection *mongo.Collection
}

// NewMongoProductRepo はMongoProductRepoを生成する。
func NewMongoProductRepo(db *mongo.Database) *MongoProductRepo {
	return &MongoProductRepo{collection: db.Collection(productsCollection)}
}

// List は全商品を返す。
func (r *MongoProductRepo) List(ctx context.Context) ([]*model.Product, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make([]*model.Product, 0)
	for cursor.Next(ctx) {
		var doc productDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		product, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, nil
}

// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
func (r *MongoProductRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var doc productDocument
	err := r.collection.FindOne(ctx, bson.M{"product_id": id}).Decode(&doc)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return doc.toModel()
}

// Create は商品を作成する。
func (r *MongoProductRepo) Create(ctx context.Context, product *model.Product) error {
	doc := bson.M{
		"product_id":  product.ID,
		"name":        product.Name,
		"description": product.Description,
		"price":       product.Price,
		"sizes":       nonNil(product.Sizes),
		"colors":      nonNil(product.Colors),
		"images":      nonNil(product.Images),
		"created_at":  product.CreatedAt.UTC(),
		"updated_at":  product.UpdatedAt.UTC(),
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert product: %w", translateMongoError(err))
	}
	return nil
}

// Update はpatchで指定されたフィールドとupdated_atのみを$setで更新する。
func (r *MongoProductRepo) Update(ctx context.Context, id string, patch model.ProductPatch, updatedAt time.Time) (bool, error) {
	set := bson.M{"updated_at": updatedAt.UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Sizes != nil {
		set["sizes"] = patch.Sizes
	}
	if patch.Colors != nil {
		set["colors"] = patch.Colors
	}
	if patch.Images != nil {
		set["images"] = patch.Images
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"product_id": id}, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to update product: %w", err)
	}
	return result.MatchedCount > 0, nil
}

// Delete は指定IDの商品を削除する。
func (r *MongoProductRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.collection.DeleteOne(ctx, bson.M{"product_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}
	return result.DeletedCount > 0, nil
}

// NewMongoStore はMongoDBのリポジトリ一式を生成する。
func NewMongoStore(db *mongo.Database) *Store {
	return &Store{
		Users:    NewMongoUserRepo(db),
		Sessions: NewMongoSessionRepo(db),
		Products: NewMongoProductRepo(db),
	}
}

// compile-time interface check
var _ ProductRepository = (*MongoProductRepo)(nil)
