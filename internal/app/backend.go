package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atelie/catalog/internal/config"
	"github.com/atelie/catalog/internal/database"
	"github.com/atelie/catalog/internal/handler"
	"github.com/atelie/catalog/internal/repository"
)

// backend は接続URLから選択したストアのリポジトリ一式と、
// 疎通確認・スキーマ準備・切断の手段をまとめる。
type backend struct {
	kind    database.Backend
	store   *repository.Store
	pinger  handler.HealthChecker
	prepare func(ctx context.Context) error
	close   func() error
}

// openBackend は設定に従ってMongoDBまたはPostgreSQLに接続する。
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	kind, err := database.DetectBackend(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	switch kind {
	case database.BackendMongo:
		client, err := database.ConnectMongo(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.DatabaseName)
		return &backend{
			kind:   kind,
			store:  repository.NewMongoStore(db),
			pinger: database.MongoPinger{Client: client},
			prepare: func(ctx context.Context) error {
				return database.EnsureMongoIndexes(ctx, db)
			},
			close: func() error {
				return client.Disconnect(context.Background())
			},
		}, nil

	case database.BackendPostgres:
		db, err := database.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return &backend{
			kind:   kind,
			store:  repository.NewPostgresStore(db),
			pinger: database.SQLPinger{DB: db},
			prepare: func(context.Context) error {
				return database.RunMigrations(cfg.DatabaseURL)
			},
			close: db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported backend: %s", kind)
	}
}

// Close は接続を閉じる。失敗はログのみに記録する。
func (b *backend) Close() {
	if err := b.close(); err != nil {
		slog.Error("failed to close database connection",
			slog.String("backend", string(b.kind)),
			slog.String("error", err.Error()),
		)
	}
}
