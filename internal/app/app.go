// Package app はサブコマンドごとの起動処理と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/atelie/catalog/internal/auth"
	"github.com/atelie/catalog/internal/config"
	"github.com/atelie/catalog/internal/database"
	"github.com/atelie/catalog/internal/handler"
	"github.com/atelie/catalog/internal/logger"
	"github.com/atelie/catalog/internal/metrics"
	"github.com/atelie/catalog/internal/middleware"
	"github.com/atelie/catalog/internal/product"
	"github.com/atelie/catalog/internal/security"
	"github.com/atelie/catalog/internal/worker/cleanup"
)

// commandTimeout はserve以外のワンショットコマンドのタイムアウト。
const commandTimeout = 2 * time.Minute

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envがあれば環境変数に読み込む（既存の環境変数は上書きしない）
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 4. ログレベルを反映
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8000"
		}
		return runHealthcheck(fmt.Sprintf("http://localhost:%s/health", port))
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(cfg)
	case CommandPurgeSessions:
		return runPurgeSessions(cfg)
	default:
		return runServe(cfg)
	}
}

// services はストアの上に組み立てたドメインサービス一式。
type services struct {
	authenticator *auth.Authenticator
	auth          *auth.Service
	products      *product.Service
}

// newServices は設定とバックエンドからドメインサービスを組み立てる。
// 管理者許可リストは起動時に1回だけ構築する。
func newServices(cfg *config.Config, b *backend) (*services, error) {
	now := time.Now
	admins := auth.NewAdminAllowlist(cfg.AdminEmails)
	slog.Info("admin allowlist loaded", slog.Int("count", admins.Len()))

	sessionCfg := auth.SessionDataClientConfig{
		URL:     cfg.SessionDataURL,
		Timeout: cfg.AuthExchangeTimeout,
	}
	if cfg.AuthBlockPrivateNetworks {
		if err := security.ValidateEndpoint(cfg.SessionDataURL); err != nil {
			return nil, fmt.Errorf("invalid SESSION_DATA_URL: %w", err)
		}
		sessionCfg.HTTPClient = security.NewEgressClient(cfg.AuthExchangeTimeout)
	}
	sessionData := auth.NewSessionDataClient(sessionCfg)

	return &services{
		authenticator: auth.NewAuthenticator(b.store.Users, b.store.Sessions, admins, now),
		auth: auth.NewService(sessionData, b.store.Users, b.store.Sessions, admins, auth.ServiceConfig{
			SessionTTL:     cfg.SessionTTL,
			AdminOnlyLogin: cfg.AdminOnlyLogin,
		}, now),
		products: product.NewService(b.store.Products, now),
	}, nil
}

// runServe はAPIサーバーモードで起動する。
// ストアに接続し、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. ストア接続
	connectCtx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	b, err := openBackend(connectCtx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer b.Close()

	slog.Info("database connection established", slog.String("backend", string(b.kind)))

	// MongoDBは一意インデックスを起動時に保証する（PostgreSQLはmigrateコマンドで作成）
	if b.kind == database.BackendMongo {
		if err := b.prepare(connectCtx); err != nil {
			return fmt.Errorf("failed to prepare database: %w", err)
		}
	}

	// 2. ドメインサービスの初期化
	svc, err := newServices(cfg, b)
	if err != nil {
		return err
	}

	// 3. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 4. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitAuth, cfg.RateLimitAdmin),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Authorizer:  svc.authenticator,
		RateLimiter: rateLimiter,
		CORSOrigins: cfg.CORSOrigins,
		HSTS:        cfg.CookieSecure,
		Logger:      slog.Default(),

		Metrics:        collector,
		MetricsHandler: metrics.Handler(registry),

		HealthChecker: b.pinger,

		APIPrefix: cfg.APIPrefix,

		AuthService: svc.auth,
		Admins:      svc.authenticator,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
			SessionTTL:   cfg.SessionTTL,
		},

		ProductService: svc.products,
		UploadMaxBytes: cfg.UploadMaxBytes,
	}

	router := handler.NewRouter(deps)

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.String("api_prefix", cfg.APIPrefix),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はPostgreSQLのマイグレーション、またはMongoDBの一意インデックス作成を実行する。
func runMigrate(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer b.Close()

	slog.Info("running database migrations", slog.String("backend", string(b.kind)))

	if err := b.prepare(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSeed はサンプル商品を投入する。同名の商品が既にある場合はスキップする。
func runSeed(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer b.Close()

	created, err := product.NewService(b.store.Products, time.Now).Seed(ctx, product.SampleProducts)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	slog.Info("sample products seeded",
		slog.Int("created", created),
		slog.Int("skipped", len(product.SampleProducts)-created),
	)
	return nil
}

// runPurgeSessions は期限切れセッションを一括削除する。
func runPurgeSessions(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	b, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer b.Close()

	svc, err := newServices(cfg, b)
	if err != nil {
		return err
	}

	if _, err := cleanup.NewSessionPurgeJob(svc.auth, slog.Default()).Run(ctx); err != nil {
		return fmt.Errorf("purge sessions failed: %w", err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(url string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
