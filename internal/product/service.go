// Package product は商品カタログのドメインロジックを提供する。
package product

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atelie/catalog/internal/model"
	"github.com/atelie/catalog/internal/repository"
)

// Service は商品カタログのサービス層。
// 参照は公開、作成・更新・削除の権限判定はHTTP層で行う。
type Service struct {
	repo repository.ProductRepository
	now  func() time.Time
}

// NewService はServiceを生成する。nowがnilの場合はtime.Nowを使用する。
func NewService(repo repository.ProductRepository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, now: now}
}

// List は全商品を返す。並び順はストアの既定順。
func (s *Service) List(ctx context.Context) ([]*model.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("商品一覧の取得に失敗しました: %w", err)
	}
	return products, nil
}

// Get は指定IDの商品を返す。存在しない場合はPRODUCT_NOT_FOUNDエラーを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewProductNotFoundError(id)
	}
	return p, nil
}

// Create は新しい商品IDを採番し、入力値をそのまま保存する。
// created_atとupdated_atは同じ時刻になる。
func (s *Service) Create(ctx context.Context, input model.ProductInput) (*model.Product, error) {
	now := repository.StoreTime(s.now())
	p := &model.Product{
		ID:          NewProductID(),
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Sizes:       copyStrings(input.Sizes),
		Colors:      copyStrings(input.Colors),
		Images:      copyStrings(input.Images),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("商品の作成に失敗しました: %w", err)
	}

	slog.Info("product created", slog.String("product_id", p.ID), slog.String("name", p.Name))
	return p, nil
}

// Update はpatchで指定されたフィールドのみを更新し、updated_atを必ず更新する。
// 更新後の商品を返す。
func (s *Service) Update(ctx context.Context, id string, patch model.ProductPatch) (*model.Product, error) {
	updatedAt := repository.StoreTime(s.now())

	found, err := s.repo.Update(ctx, id, patch, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("商品の更新に失敗しました: %w", err)
	}
	if !found {
		return nil, model.NewProductNotFoundError(id)
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗しました: %w", err)
	}
	if p == nil {
		// 更新直後に別リクエストで削除された
		return nil, model.NewProductNotFoundError(id)
	}

	slog.Info("product updated", slog.String("product_id", id))
	return p, nil
}

// Delete は指定IDの商品を削除する。削除対象が無い場合はPRODUCT_NOT_FOUNDエラーを返す。
func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("商品の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewProductNotFoundError(id)
	}

	slog.Info("product deleted", slog.String("product_id", id))
	return nil
}

// Seed は同名の商品が存在しない入力のみを作成し、作成件数を返す。
func (s *Service) Seed(ctx context.Context, inputs []model.ProductInput) (int, error) {
	existing, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	names := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		names[p.Name] = struct{}{}
	}

	created := 0
	for _, input := range inputs {
		if _, ok := names[input.Name]; ok {
			slog.Debug("seed product already exists", slog.String("name", input.Name))
			continue
		}
		if _, err := s.Create(ctx, input); err != nil {
			return created, err
		}
		names[input.Name] = struct{}{}
		created++
	}
	return created, nil
}

// NewProductID は"prod_"に続くランダムな12桁の16進数からなる商品IDを生成する。
func NewProductID() string {
	return "prod_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func copyStrings(values []string) []string {
	return append([]string{}, values...)
}
