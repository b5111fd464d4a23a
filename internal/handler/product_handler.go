package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atelie/catalog/internal/metrics"
	"github.com/atelie/catalog/internal/model"
)

// ProductServiceInterface は商品ハンドラーが必要とするサービスインターフェース。
type ProductServiceInterface interface {
	List(ctx context.Context) ([]*model.Product, error)
	Get(ctx context.Context, id string) (*model.Product, error)
	Create(ctx context.Context, input model.ProductInput) (*model.Product, error)
	Update(ctx context.Context, id string, patch model.ProductPatch) (*model.Product, error)
	Delete(ctx context.Context, id string) error
}

// 商品の変更操作のメトリクスラベル
const (
	productOpCreate = "create"
	productOpUpdate = "update"
	productOpDelete = "delete"
)

// ProductHandler は商品カタログのHTTPハンドラー。
type ProductHandler struct {
	service  ProductServiceInterface
	recorder metrics.MetricsCollector
}

// NewProductHandler はProductHandlerを生成する。recorderがnilの場合は記録しない。
func NewProductHandler(service ProductServiceInterface, recorder metrics.MetricsCollector) *ProductHandler {
	if recorder == nil {
		recorder = metrics.NopCollector{}
	}
	return &ProductHandler{service: service, recorder: recorder}
}

// createProductRequest は商品作成リクエストのボディ。
// 全フィールド必須。配列は空配列を許すが、省略とnullは受け付けない。
type createProductRequest struct {
	Name        *string  `json:"name" validate:"required"`
	Description *string  `json:"description" validate:"required"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Sizes       []string `json:"sizes" validate:"required"`
	Colors      []string `json:"colors" validate:"required"`
	Images      []string `json:"images" validate:"required"`
}

func (req createProductRequest) toInput() model.ProductInput {
	return model.ProductInput{
		Name:        *req.Name,
		Description: *req.Description,
		Price:       *req.Price,
		Sizes:       req.Sizes,
		Colors:      req.Colors,
		Images:      req.Images,
	}
}

// updateProductRequest は商品更新リクエストのボディ。
// 省略またはnullのフィールドは変更しない。
type updateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Sizes       []string `json:"sizes"`
	Colors      []string `json:"colors"`
	Images      []string `json:"images"`
}

func (req updateProductRequest) toPatch() model.ProductPatch {
	return model.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Sizes:       req.Sizes,
		Colors:      req.Colors,
		Images:      req.Images,
	}
}

// List は全商品を返す。
// GET /products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if products == nil {
		products = []*model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// Get は指定IDの商品を返す。
// GET /products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// Create は商品を作成する。
// POST /products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSONBody(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	product, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.recorder.RecordProductMutation(productOpCreate)

	writeJSON(w, http.StatusOK, product)
}

// Update は商品を部分更新する。
// PUT /products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := decodeJSONBody(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	product, err := h.service.Update(r.Context(), id, req.toPatch())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.recorder.RecordProductMutation(productOpUpdate)

	writeJSON(w, http.StatusOK, product)
}

// Delete は商品を削除する。
// DELETE /products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}
	h.recorder.RecordProductMutation(productOpDelete)

	writeJSON(w, http.StatusOK, messageResponse{Message: "Product deleted successfully"})
}
