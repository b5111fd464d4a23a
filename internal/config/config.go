package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL  string
	DatabaseName string

	// Auth
	AdminEmails              string
	SessionDataURL           string
	AuthExchangeTimeout      time.Duration
	AdminOnlyLogin           bool
	AuthBlockPrivateNetworks bool // プライベートネットワーク宛てのIdP接続を拒否する

	// Session
	SessionTTL time.Duration

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSOrigins []string

	// HTTP
	ServerPort     string
	APIPrefix      string
	UploadMaxBytes int64

	// Rate Limit (req/min)
	RateLimitAuth  int
	RateLimitAdmin int

	// Logging
	LogLevel string
}

// LoadDotEnv はカレントディレクトリの.envファイルを環境変数に読み込む。
// 既に設定済みの環境変数は上書きしない。ファイルが無い場合は何もしない。
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	var existing []string
	for _, f := range filenames {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load %v: %w", existing, err)
	}
	return nil
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = getEnvString("DATABASE_URL", os.Getenv("MONGO_URL"))
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.DatabaseName = os.Getenv("DB_NAME")
	if cfg.DatabaseName == "" && isMongoURL(cfg.DatabaseURL) {
		missing = append(missing, "DB_NAME")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.AdminEmails = os.Getenv("ADMIN_EMAILS")
	cfg.SessionDataURL = getEnvString("AUTH_SESSION_DATA_URL",
		"https://demobackend.emergentagent.com/auth/v1/env/oauth/session-data")
	cfg.AuthExchangeTimeout = getEnvDuration("AUTH_EXCHANGE_TIMEOUT", 10*time.Second)
	cfg.AdminOnlyLogin = getEnvBool("AUTH_ADMIN_ONLY_LOGIN", false)
	cfg.AuthBlockPrivateNetworks = getEnvBool("AUTH_BLOCK_PRIVATE_NETWORKS", false)
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", 7*24*time.Hour)
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", true)
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSOrigins = getEnvList("CORS_ORIGINS", []string{"*"})
	cfg.ServerPort = getEnvString("SERVER_PORT", "8000")
	cfg.APIPrefix = normalizePrefix(getEnvString("API_PREFIX", "/api"))
	cfg.UploadMaxBytes = getEnvInt64("UPLOAD_MAX_BYTES", 10<<20)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 20)
	cfg.RateLimitAdmin = getEnvInt("RATE_LIMIT_ADMIN", 120)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

func isMongoURL(url string) bool {
	return strings.HasPrefix(url, "mongodb://") || strings.HasPrefix(url, "mongodb+srv://")
}

// normalizePrefix は先頭に"/"を付け、末尾の"/"を除去する。"/"のみの場合は空文字列になる。
func normalizePrefix(prefix string) string {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvList はカンマ区切りの値を前後空白を除去したリストとして返す。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var list []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	if len(list) == 0 {
		return defaultVal
	}
	return list
}
