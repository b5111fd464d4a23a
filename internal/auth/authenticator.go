package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/atelie/catalog/internal/model"
	"github.com/atelie/catalog/internal/repository"
)

// SessionCookieName はセッショントークンを保持するCookie名。
const SessionCookieName = "session_token"

const bearerPrefix = "Bearer "

// TokenFromRequest はリクエストからセッショントークンを取り出す。
// session_token Cookieを優先し、なければAuthorizationヘッダーのBearerトークンを使用する。
// どちらも無い場合は空文字列を返す。
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix); ok {
		return token
	}
	return ""
}

// Authenticator はセッショントークンからユーザーを解決し、
// 認証・管理者権限の判定を行う。
type Authenticator struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	admins      AdminAllowlist
	now         func() time.Time
}

// NewAuthenticator はAuthenticatorを生成する。nowがnilの場合はtime.Nowを使用する。
func NewAuthenticator(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	admins AdminAllowlist,
	now func() time.Time,
) *Authenticator {
	if now == nil {
		now = time.Now
	}
	return &Authenticator{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		admins:      admins,
		now:         now,
	}
}

// Resolve はトークンに対応するユーザーを返す。
// トークン不明・期限切れ・ユーザー不在の場合は(nil, nil)を返す。
// 期限切れのセッションはこの時点で削除する。
func (a *Authenticator) Resolve(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}

	session, err := a.sessionRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	if session.Expired(a.now().UTC()) {
		if err := a.sessionRepo.DeleteByToken(ctx, token); err != nil {
			return nil, fmt.Errorf("failed to delete expired session: %w", err)
		}
		slog.Info("expired session removed", slog.String("user_id", session.UserID))
		return nil, nil
	}

	user, err := a.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// ResolveRequest はリクエストのトークンからユーザーを解決する。
func (a *Authenticator) ResolveRequest(r *http.Request) (*model.User, error) {
	return a.Resolve(r.Context(), TokenFromRequest(r))
}

// RequireAuth は認証済みユーザーを返す。解決できない場合はUNAUTHENTICATEDエラーを返す。
func (a *Authenticator) RequireAuth(r *http.Request) (*model.User, error) {
	user, err := a.ResolveRequest(r)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUnauthenticatedError()
	}
	return user, nil
}

// RequireAdmin は管理者ユーザーを返す。
// 未認証の場合はUNAUTHENTICATED、許可リスト外の場合はFORBIDDENエラーを返す。
func (a *Authenticator) RequireAdmin(r *http.Request) (*model.User, error) {
	user, err := a.RequireAuth(r)
	if err != nil {
		return nil, err
	}
	if !a.IsAdmin(user) {
		return nil, model.NewForbiddenError()
	}
	return user, nil
}

// IsAdmin はユーザーのemailが管理者許可リストに含まれるかどうかを返す。
func (a *Authenticator) IsAdmin(user *model.User) bool {
	if user == nil {
		return false
	}
	return a.admins.Contains(user.Email)
}
