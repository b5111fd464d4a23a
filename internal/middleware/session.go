// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/atelie/catalog/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// userContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
	userContextKey = contextKey("user")
	// userSlotContextKey は外側のミドルウェアが内側で解決したユーザーを参照するためのキー。
	userSlotContextKey = contextKey("user_slot")
)

// userSlot は認証ミドルウェアが解決したユーザーを外側のミドルウェアへ受け渡す。
type userSlot struct {
	user *model.User
}

// Authorizer は認証・認可の判定に必要なインターフェース。
// auth.Authenticatorが実装する。
type Authorizer interface {
	RequireAuth(r *http.Request) (*model.User, error)
	RequireAdmin(r *http.Request) (*model.User, error)
}

// NewRequireAuthMiddleware はセッショントークンからユーザーを解決し、
// 認証済みユーザーをリクエストコンテキストに注入するミドルウェアを返す。
// 未認証リクエストには401を返す。
func NewRequireAuthMiddleware(authorizer Authorizer) func(next http.Handler) http.Handler {
	return newGateMiddleware(authorizer.RequireAuth)
}

// NewRequireAdminMiddleware は管理者ユーザーのみを通過させるミドルウェアを返す。
// 未認証には401、許可リスト外のユーザーには403を返す。
func NewRequireAdminMiddleware(authorizer Authorizer) func(next http.Handler) http.Handler {
	return newGateMiddleware(authorizer.RequireAdmin)
}

func newGateMiddleware(require func(r *http.Request) (*model.User, error)) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := require(r)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					WriteErrorResponse(w, StatusForAPIError(apiErr), apiErr)
					return
				}
				slog.Error("failed to resolve session", slog.String("error", err.Error()))
				WriteInternalServerError(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// UserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 認証ミドルウェアを通過していない場合はnilを返す。
func UserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

// UserIDFromContext はリクエストコンテキストから認証済みユーザーのIDを取得する。
// ユーザーが無い場合は空文字列を返す。
func UserIDFromContext(ctx context.Context) string {
	if user := UserFromContext(ctx); user != nil {
		return user.ID
	}
	return ""
}

// ContextWithUser はコンテキストにユーザーを注入する。
// 外側のミドルウェアがスロットを用意している場合はそこにも記録する。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	if slot, ok := ctx.Value(userSlotContextKey).(*userSlot); ok {
		slot.user = user
	}
	return context.WithValue(ctx, userContextKey, user)
}

// withUserSlot はリクエスト処理後に解決済みユーザーを読み取るためのスロットを用意する。
func withUserSlot(ctx context.Context) (context.Context, *userSlot) {
	if slot, ok := ctx.Value(userSlotContextKey).(*userSlot); ok {
		return ctx, slot
	}
	slot := &userSlot{}
	return context.WithValue(ctx, userSlotContextKey, slot), slot
}
