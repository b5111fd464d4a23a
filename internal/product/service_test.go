package product

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"testing"
	"time"

	"github.com/atelie/catalog/internal/model"
	"github.com/atelie/catalog/internal/repository"
)

// --- インメモリの商品リポジトリ ---

type memoryProductRepo struct {
	products map[string]*model.Product
	order    []string
	listErr  error

	// precision が0より大きい場合、保存時にタイムスタンプを切り捨てる（MongoDBのミリ秒精度を模す）
	precision time.Duration
}

func newMemoryProductRepo() *memoryProductRepo {
	return &memoryProductRepo{products: map[string]*model.Product{}}
}

func (m *memoryProductRepo) List(_ context.Context) ([]*model.Product, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := make([]*model.Product, 0, len(m.order))
	for _, id := range m.order {
		if p, ok := m.products[id]; ok {
			cp := *p
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *memoryProductRepo) FindByID(_ context.Context, id string) (*model.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memoryProductRepo) Create(_ context.Context, p *model.Product) error {
	if _, ok := m.products[p.ID]; ok {
		return repository.ErrDuplicateKey
	}
	cp := *p
	cp.CreatedAt = m.truncate(cp.CreatedAt)
	cp.UpdatedAt = m.truncate(cp.UpdatedAt)
	m.products[p.ID] = &cp
	m.order = append(m.order, p.ID)
	return nil
}

func (m *memoryProductRepo) Update(_ context.Context, id string, patch model.ProductPatch, updatedAt time.Time) (bool, error) {
	p, ok := m.products[id]
	if !ok {
		return false, nil
	}
	patch.ApplyTo(p)
	p.UpdatedAt = m.truncate(updatedAt)
	return true, nil
}

func (m *memoryProductRepo) truncate(t time.Time) time.Time {
	if m.precision <= 0 {
		return t
	}
	return t.Truncate(m.precision)
}

func (m *memoryProductRepo) Delete(_ context.Context, id string) (bool, error) {
	if _, ok := m.products[id]; !ok {
		return false, nil
	}
	delete(m.products, id)
	return true, nil
}

var _ repository.ProductRepository = (*memoryProductRepo)(nil)

// steppingClock は呼び出しごとに1秒進む時計を返す。
func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		t := current
		current = current.Add(time.Second)
		return t
	}
}

var clockStart = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// --- テスト ---

func TestCreateGetUpdateDelete_Scenario(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryProductRepo(), steppingClock(clockStart))

	created, err := svc.Create(ctx, model.ProductInput{
		Name: "A", Description: "d", Price: 10,
		Sizes: []string{"M"}, Colors: []string{"red"}, Images: []string{},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !regexp.MustCompile(`^prod_[0-9a-f]{12}$`).MatchString(created.ID) {
		t.Errorf("unexpected product id format: %s", created.ID)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "A" || got.Description != "d" || got.Price != 10 ||
		!reflect.DeepEqual(got.Sizes, []string{"M"}) || !reflect.DeepEqual(got.Colors, []string{"red"}) ||
		len(got.Images) != 0 {
		t.Errorf("unexpected stored product: %+v", got)
	}
	if !got.CreatedAt.Equal(got.UpdatedAt) {
		t.Errorf("expected created_at == updated_at, got %v / %v", got.CreatedAt, got.UpdatedAt)
	}

	if _, err := svc.Update(ctx, created.ID, model.ProductPatch{Price: ptr(20.0)}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	got, _ = svc.Get(ctx, created.ID)
	if got.Price != 20 || got.Name != "A" {
		t.Errorf("unexpected product after update: %+v", got)
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Errorf("expected updated_at > created_at, got %v / %v", got.UpdatedAt, got.CreatedAt)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); !model.HasCode(err, model.ErrCodeProductNotFound) {
		t.Errorf("expected PRODUCT_NOT_FOUND after delete, got %v", err)
	}
}

func TestUpdate_ChangesOnlyPriceAndUpdatedAt(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryProductRepo(), steppingClock(clockStart))

	before, _ := svc.Create(ctx, model.ProductInput{
		Name: "Bolsa", Description: "desc", Price: 45.9,
		Sizes: []string{"P", "M"}, Colors: []string{"#FFF"}, Images: []string{"http://img"},
	})

	after, err := svc.Update(ctx, before.ID, model.ProductPatch{Price: ptr(55.99)})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if after.Price != 55.99 {
		t.Errorf("expected price 55.99, got %v", after.Price)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Error("expected updated_at to be bumped")
	}
	expected := *before
	expected.Price = 55.99
	expected.UpdatedAt = after.UpdatedAt
	if !reflect.DeepEqual(&expected, after) {
		t.Errorf("unexpected fields changed:\nexpected %+v\ngot      %+v", &expected, after)
	}
}

func TestUpdate_EmptyPatchStillBumpsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryProductRepo(), steppingClock(clockStart))

	before, _ := svc.Create(ctx, model.ProductInput{Name: "X"})
	after, err := svc.Update(ctx, before.ID, model.ProductPatch{})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Error("expected updated_at to be bumped")
	}
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryProductRepo(), nil)

	if _, err := svc.Get(ctx, "nonexistent"); !model.HasCode(err, model.ErrCodeProductNotFound) {
		t.Errorf("get: expected PRODUCT_NOT_FOUND, got %v", err)
	}
	if err := svc.Delete(ctx, "nonexistent"); !model.HasCode(err, model.ErrCodeProductNotFound) {
		t.Errorf("delete: expected PRODUCT_NOT_FOUND, got %v", err)
	}
	if _, err := svc.Update(ctx, "nonexistent", model.ProductPatch{Name: ptr("n")}); !model.HasCode(err, model.ErrCodeProductNotFound) {
		t.Errorf("update: expected PRODUCT_NOT_FOUND, got %v", err)
	}
}

func TestCreate_DoesNotAliasInputSlices(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryProductRepo(), nil)

	sizes := []string{"M"}
	p, _ := svc.Create(ctx, model.ProductInput{Name: "A", Sizes: sizes})
	sizes[0] = "XL"

	if p.Sizes[0] != "M" {
		t.Errorf("expected stored sizes to be independent, got %v", p.Sizes)
	}
	if p.Colors == nil || p.Images == nil {
		t.Error("expected nil slices to be stored as empty")
	}
}

func TestList_PropagatesStoreError(t *testing.T) {
	repo := newMemoryProductRepo()
	repo.listErr = errors.New("connection refused")
	svc := NewService(repo, nil)

	if _, err := svc.List(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestSeed_SkipsExistingNames(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryProductRepo(), nil)

	if _, err := svc.Create(ctx, SampleProducts[0]); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	created, err := svc.Seed(ctx, SampleProducts)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if created != len(SampleProducts)-1 {
		t.Errorf("expected %d created, got %d", len(SampleProducts)-1, created)
	}

	again, err := svc.Seed(ctx, SampleProducts)
	if err != nil || again != 0 {
		t.Errorf("expected second seed to be a no-op, got (%d, %v)", again, err)
	}

	all, _ := svc.List(ctx)
	if len(all) != len(SampleProducts) {
		t.Errorf("expected %d products, got %d", len(SampleProducts), len(all))
	}
}

func TestCreate_ReturnsStoredRecord(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProductRepo()
	repo.precision = time.Millisecond
	// ナノ秒を含む時刻
	svc := NewService(repo, fixedClockAt(time.Date(2025, 1, 1, 0, 0, 0, 123456789, time.UTC)))

	created, err := svc.Create(ctx, model.ProductInput{Name: "Tapete", Description: "d", Price: 1})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if !reflect.DeepEqual(created, got) {
		t.Errorf("Create result differs from stored record:\ncreate=%+v\nget   =%+v", created, got)
	}
	if want := time.Date(2025, 1, 1, 0, 0, 0, 123000000, time.UTC); !created.CreatedAt.Equal(want) {
		t.Errorf("created_at = %v, want %v", created.CreatedAt, want)
	}
}

func TestUpdate_StoresTruncatedUpdatedAt(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryProductRepo()
	repo.precision = time.Millisecond
	times := []time.Time{
		time.Date(2025, 1, 1, 0, 0, 0, 100_000_001, time.UTC),
		time.Date(2025, 1, 1, 0, 0, 0, 900_999_999, time.UTC),
	}
	i := 0
	svc := NewService(repo, func() time.Time { tm := times[i]; i++; return tm })

	created, _ := svc.Create(ctx, model.ProductInput{Name: "A", Description: "d", Price: 1})
	updated, err := svc.Update(ctx, created.ID, model.ProductPatch{Price: ptr(2.0)})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if want := time.Date(2025, 1, 1, 0, 0, 0, 900_000_000, time.UTC); !updated.UpdatedAt.Equal(want) {
		t.Errorf("updated_at = %v, want %v", updated.UpdatedAt, want)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Errorf("expected updated_at > created_at, got %v / %v", updated.UpdatedAt, updated.CreatedAt)
	}
}

func fixedClockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
