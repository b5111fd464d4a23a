package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atelie/catalog/internal/metrics"
	"github.com/atelie/catalog/internal/middleware"
)

// healthCheckTimeout は/healthでのストア疎通確認のタイムアウト。
const healthCheckTimeout = 3 * time.Second

// HealthChecker はストアの疎通確認を行う。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authorizer  middleware.Authorizer
	RateLimiter *middleware.RateLimiter
	CORSOrigins []string
	HSTS        bool
	Logger      *slog.Logger

	// メトリクス
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler

	// ヘルスチェック
	HealthChecker HealthChecker

	// ルーティング
	APIPrefix string

	// 認証
	AuthService AuthServiceInterface
	Admins      AdminChecker
	AuthConfig  AuthHandlerConfig

	// 商品
	ProductService ProductServiceInterface

	// 画像アップロード
	UploadMaxBytes int64
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Recovery → Logging → Metrics → CORS → SecurityHeaders
//
// 管理ルートには RequireAdmin → AdminRateLimit、セッション交換には AuthRateLimit を追加する。
// /health と /metrics はAPIプレフィックスの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.NopCollector{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(recorder))
	r.Use(middleware.NewCORSMiddleware(deps.CORSOrigins))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))

	authHandler := NewAuthHandler(deps.AuthService, deps.Admins, recorder, deps.AuthConfig)
	productHandler := NewProductHandler(deps.ProductService, recorder)
	uploadHandler := NewUploadHandler(deps.UploadMaxBytes)

	requireAuth := middleware.NewRequireAuthMiddleware(deps.Authorizer)
	requireAdmin := middleware.NewRequireAdminMiddleware(deps.Authorizer)

	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	api := func(r chi.Router) {
		// 認証
		r.Route("/auth", func(r chi.Router) {
			r.With(deps.RateLimiter.AuthMiddleware()).Post("/session", authHandler.CreateSession)
			r.With(requireAuth).Get("/me", authHandler.Me)
			r.Post("/logout", authHandler.Logout)
		})

		// 商品（公開）
		r.Get("/products", productHandler.List)
		r.Get("/products/{id}", productHandler.Get)

		// 管理操作
		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Use(deps.RateLimiter.AdminMiddleware())

			r.Post("/products", productHandler.Create)
			r.Put("/products/{id}", productHandler.Update)
			r.Delete("/products/{id}", productHandler.Delete)
			r.Post("/upload-image", uploadHandler.UploadImage)
		})
	}

	// chiは空のパターンでのマウントを受け付けないため、プレフィックス無しは直接登録する
	if deps.APIPrefix == "" {
		api(r)
	} else {
		r.Route(deps.APIPrefix, api)
	}

	return r
}

// healthHandler はストアへの疎通を確認するヘルスチェックハンドラーを返す。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := checker.Ping(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
