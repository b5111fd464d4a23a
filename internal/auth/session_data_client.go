package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultSessionDataURL  = "https://demobackend.emergentagent.com/auth/v1/env/oauth/session-data"
	defaultExchangeTimeout = 10 * time.Second
	// maxSessionDataBytes はレスポンスボディの読み取り上限。
	maxSessionDataBytes = 1 << 20
	sessionIDHeader     = "X-Session-ID"
)

// SessionData は外部IdPがセッションIDに対して返すユーザー情報とトークン。
type SessionData struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Picture      string `json:"picture"`
	SessionToken string `json:"session_token"`
}

// SessionDataProvider は外部セッションIDを検証し、ユーザー情報を取得するインターフェース。
type SessionDataProvider interface {
	FetchSessionData(ctx context.Context, externalSessionID string) (*SessionData, error)
}

// SessionDataClientConfig は外部IdPクライアントの設定。
type SessionDataClientConfig struct {
	// テスト用にオーバーライド可能なURL
	URL     string
	Timeout time.Duration
	// HTTPClient が指定された場合はTimeoutより優先して使用する
	HTTPClient *http.Client
}

// SessionDataClient は外部IdPのsession-dataエンドポイントを呼び出すクライアント。
// タイムアウトや2xx以外の応答は失敗として扱い、リトライしない。
type SessionDataClient struct {
	config     SessionDataClientConfig
	httpClient *http.Client
}

// NewSessionDataClient はSessionDataClientを生成する。
func NewSessionDataClient(config SessionDataClientConfig) *SessionDataClient {
	if config.URL == "" {
		config.URL = defaultSessionDataURL
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultExchangeTimeout
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	return &SessionDataClient{
		config:     config,
		httpClient: httpClient,
	}
}

// FetchSessionData は外部セッションIDをX-Session-IDヘッダーで送り、セッション情報を取得する。
func (c *SessionDataClient) FetchSessionData(ctx context.Context, externalSessionID string) (*SessionData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session data request: %w", err)
	}
	req.Header.Set(sessionIDHeader, externalSessionID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session data request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSessionDataBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read session data response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("session data request failed with status %d", resp.StatusCode)
	}

	var data SessionData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse session data response: %w", err)
	}

	return &data, nil
}

// compile-time interface check
var _ SessionDataProvider = (*SessionDataClient)(nil)
