package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
)

// Backend はドキュメントストアのバックエンド種別を表す。
type Backend string

const (
	// BackendMongo はMongoDBを表す。
	BackendMongo Backend = "mongodb"
	// BackendPostgres はPostgreSQLを表す。
	BackendPostgres Backend = "postgres"
)

// DetectBackend は接続URLのスキームからバックエンドを判定する。
func DetectBackend(databaseURL string) (Backend, error) {
	lower := strings.ToLower(strings.TrimSpace(databaseURL))
	switch {
	case strings.HasPrefix(lower, "mongodb://"), strings.HasPrefix(lower, "mongodb+srv://"):
		return BackendMongo, nil
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return BackendPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database URL scheme")
	}
}

// OpenPostgres はPostgreSQLデータベース接続を開く。
// sql.Openは接続を試行しないため、実際の接続確認にはPingを使用すること。
func OpenPostgres(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return db, nil
}

// SQLPinger は*sql.DBをヘルスチェック用のPingerに適合させる。
type SQLPinger struct {
	DB *sql.DB
}

// Ping はデータベースへの疎通を確認する。
func (p SQLPinger) Ping(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}
