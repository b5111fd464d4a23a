// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated        = "UNAUTHENTICATED"
	ErrCodeForbidden              = "FORBIDDEN"
	ErrCodeProductNotFound        = "PRODUCT_NOT_FOUND"
	ErrCodeInvalidExternalSession = "INVALID_EXTERNAL_SESSION"
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeLoginNotAllowed        = "LOGIN_NOT_ALLOWED"
)

// HasCode はerrがAPIErrorであり、指定コードを持つかどうかを返す。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "Not authenticated",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は管理者権限がない場合のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "Not authorized",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError(productID string) *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  fmt.Sprintf("Product not found: %s", productID),
		Category: "catalog",
		Action:   "商品IDを確認してください。",
	}
}

// NewInvalidExternalSessionError は外部セッションの検証失敗エラーを生成する。
func NewInvalidExternalSessionError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidExternalSession,
		Message:  fmt.Sprintf("Failed to validate session: %s", reason),
		Category: "auth",
		Action:   "もう一度ログインをやり直してください。",
	}
}

// NewValidationError はリクエストボディの形式エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("Invalid request body: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewLoginNotAllowedError は管理者以外のアカウントでログインしようとした場合のエラーを生成する。
func NewLoginNotAllowedError() *APIError {
	return &APIError{
		Code:     ErrCodeLoginNotAllowed,
		Message:  "This account is not allowed to access admin.",
		Category: "auth",
		Action:   "管理者として登録されたアカウントでログインしてください。",
	}
}
