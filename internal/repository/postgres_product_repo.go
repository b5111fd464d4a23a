package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/atelie/catalog/internal/model"
)

const productColumns = `product_id, name, description, price, sizes, colors, images, created_at, updated_at`

// PostgresProductRepo はPostgreSQLを使用した商品リポジトリ。
// sizes、colors、imagesは順序を保持するtext[]として保存する。
type PostgresProductRepo struct {
	db *sql.DB
}

// NewPostgresProductRepo はPostgresProductRepoを生成する。
func NewPostgresProductRepo(db *sql.DB) *PostgresProductRepo {
	return &PostgresProductRepo{db: db}
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner) (*model.Product, error) {
	p := &model.Product{}
	var sizes, colors, images pq.StringArray
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Price,
		&sizes, &colors, &images, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Sizes = nonNil(sizes)
	p.Colors = nonNil(colors)
	p.Images = nonNil(images)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

// List は全商品を返す。
func (r *PostgresProductRepo) List(ctx context.Context) ([]*model.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]*model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, nil
}

// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
func (r *PostgresProductRepo) FindByID(ctx context.Context, id string) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE product_id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return p, nil
}

// Create は商品を作成する。
func (r *PostgresProductRepo) Create(ctx context.Context, p *model.Product) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Name, p.Description, p.Price,
		pq.Array(nonNil(p.Sizes)), pq.Array(nonNil(p.Colors)), pq.Array(nonNil(p.Images)),
		p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", translatePQError(err))
	}
	return nil
}

// Update はpatchで指定されたフィールドとupdated_atのみを更新する。
// 未指定のフィールドはNULLとして渡し、COALESCEで既存値を維持する。
func (r *PostgresProductRepo) Update(ctx context.Context, id string, patch model.ProductPatch, updatedAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET
		   name        = COALESCE($2, name),
		   description = COALESCE($3, description),
		   price       = COALESCE($4, price),
		   sizes       = COALESCE($5, sizes),
		   colors      = COALESCE($6, colors),
		   images      = COALESCE($7, images),
		   updated_at  = $8
		 WHERE product_id = $1`,
		id,
		nullableStringPtr(patch.Name),
		nullableStringPtr(patch.Description),
		nullableFloatPtr(patch.Price),
		pq.Array(patch.Sizes),
		pq.Array(patch.Colors),
		pq.Array(patch.Images),
		updatedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update product: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// Delete は指定IDの商品を削除する。
func (r *PostgresProductRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE product_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

func nullableStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullableFloatPtr(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// NewPostgresStore はPostgreSQLのリポジトリ一式を生成する。
func NewPostgresStore(db *sql.DB) *Store {
	return &Store{
		Users:    NewPostgresUserRepo(db),
		Sessions: NewPostgresSessionRepo(db),
		Products: NewPostgresProductRepo(db),
	}
}

// compile-time interface check
var _ ProductRepository = (*PostgresProductRepo)(nil)
