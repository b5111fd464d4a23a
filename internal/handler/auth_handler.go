package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/atelie/catalog/internal/auth"
	"github.com/atelie/catalog/internal/metrics"
	"github.com/atelie/catalog/internal/middleware"
	"github.com/atelie/catalog/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Exchange は外部セッションIDをユーザーとセッショントークンに交換する。
	Exchange(ctx context.Context, externalSessionID string) (*model.User, string, error)
	// Logout は指定トークンのセッションを削除する。
	Logout(ctx context.Context, token string) error
}

// AdminChecker はユーザーが管理者かどうかを判定する。
type AdminChecker interface {
	IsAdmin(user *model.User) bool
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
	SessionTTL   time.Duration // セッションCookieの有効期間
}

// AuthHandler はセッション交換・ログアウト関連のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	admins   AdminChecker
	recorder metrics.MetricsCollector
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。recorderがnilの場合は記録しない。
func NewAuthHandler(service AuthServiceInterface, admins AdminChecker, recorder metrics.MetricsCollector, config AuthHandlerConfig) *AuthHandler {
	if recorder == nil {
		recorder = metrics.NopCollector{}
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = auth.DefaultSessionTTL
	}
	return &AuthHandler{
		service:  service,
		admins:   admins,
		recorder: recorder,
		config:   config,
	}
}

// createSessionRequest はセッション交換リクエストのボディ。
type createSessionRequest struct {
	SessionID *string `json:"session_id" validate:"required"`
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Picture   *string   `json:"picture"`
	CreatedAt time.Time `json:"created_at"`
	IsAdmin   bool      `json:"is_admin"`
}

func (h *AuthHandler) toUserResponse(user *model.User) userResponse {
	resp := userResponse{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
		IsAdmin:   h.admins.IsAdmin(user),
	}
	if user.Picture != "" {
		picture := user.Picture
		resp.Picture = &picture
	}
	return resp
}

// CreateSession は外部セッションIDを交換し、セッションCookieを設定する。
// POST /auth/session
func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	user, token, err := h.service.Exchange(r.Context(), *req.SessionID)
	if err != nil {
		h.recorder.RecordAuthExchange(exchangeResult(err))
		handleServiceError(w, err)
		return
	}
	h.recorder.RecordAuthExchange(metrics.ExchangeSuccess)

	http.SetCookie(w, h.sessionCookie(token, int(h.config.SessionTTL.Seconds())))
	writeJSON(w, http.StatusOK, h.toUserResponse(user))
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me（RequireAuthミドルウェアの内側で使用する）
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		handleServiceError(w, model.NewUnauthenticatedError())
		return
	}
	writeJSON(w, http.StatusOK, h.toUserResponse(user))
}

// Logout はセッションを破棄し、セッションCookieをクリアする。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			// ログアウト失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
		}
	}

	http.SetCookie(w, h.sessionCookie("", -1))
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

// sessionCookie はセッションCookieを組み立てる。
// クロスサイトでの送信にはSameSite=NoneとSecureの組が必要なため、
// Secureを無効にした開発環境ではLaxに落とす。
func (h *AuthHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	sameSite := http.SameSiteNoneMode
	if !h.config.CookieSecure {
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: sameSite,
	}
}

// exchangeResult はセッション交換の失敗をメトリクスのラベルに変換する。
func exchangeResult(err error) string {
	switch {
	case model.HasCode(err, model.ErrCodeInvalidExternalSession):
		return metrics.ExchangeInvalidSession
	case model.HasCode(err, model.ErrCodeLoginNotAllowed):
		return metrics.ExchangeLoginNotAllowed
	default:
		return metrics.ExchangeError
	}
}
