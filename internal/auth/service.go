// Package auth は外部IdPとのセッション交換、セッショントークンによる認証、
// 管理者許可リストによる認可を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atelie/catalog/internal/model"
	"github.com/atelie/catalog/internal/repository"
)

// DefaultSessionTTL はセッションの既定有効期間（7日）。
const DefaultSessionTTL = 7 * 24 * time.Hour

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionTTL time.Duration
	// AdminOnlyLogin がtrueの場合、許可リスト外のアカウントはログインできない。
	AdminOnlyLogin bool
}

// Service はログイン（外部セッション交換）とログアウトのビジネスロジックを提供する。
type Service struct {
	provider    SessionDataProvider
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	admins      AdminAllowlist
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。nowがnilの場合はtime.Nowを使用する。
func NewService(
	provider SessionDataProvider,
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	admins AdminAllowlist,
	config ServiceConfig,
	now func() time.Time,
) *Service {
	if config.SessionTTL <= 0 {
		config.SessionTTL = DefaultSessionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		provider:    provider,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		admins:      admins,
		config:      config,
		now:         now,
	}
}

// Exchange は外部セッションIDをIdPで検証し、ユーザーをupsertしてセッションを発行する。
// 戻り値のトークンはIdPが発行したsession_tokenそのもの。
func (s *Service) Exchange(ctx context.Context, externalSessionID string) (*model.User, string, error) {
	if strings.TrimSpace(externalSessionID) == "" {
		return nil, "", model.NewInvalidExternalSessionError("session_id is required")
	}

	// 1. 外部IdPでセッションIDを検証
	data, err := s.provider.FetchSessionData(ctx, externalSessionID)
	if err != nil {
		slog.Warn("external session validation failed", slog.String("error", err.Error()))
		return nil, "", model.NewInvalidExternalSessionError("identity provider rejected the session")
	}

	email := NormalizeEmail(data.Email)
	name := strings.TrimSpace(data.Name)
	token := strings.TrimSpace(data.SessionToken)
	if email == "" || name == "" || token == "" {
		return nil, "", model.NewInvalidExternalSessionError("identity provider returned incomplete data")
	}

	if s.config.AdminOnlyLogin && !s.admins.Contains(email) {
		slog.Info("login rejected for non-admin account", slog.String("email", email))
		return nil, "", model.NewLoginNotAllowedError()
	}

	// 2. emailをキーにユーザーをupsert
	now := repository.StoreTime(s.now())
	user, err := s.upsertUser(ctx, email, name, data.Picture, now)
	if err != nil {
		return nil, "", err
	}

	// 3. セッションを発行（既存セッションは無効化しない）
	session := &model.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.config.SessionTTL),
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, "", model.NewInvalidExternalSessionError("session token already in use")
		}
		return nil, "", fmt.Errorf("failed to save session: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return user, token, nil
}

// upsertUser はemailで既存ユーザーを検索し、存在すればname/pictureを更新、
// 存在しなければ新規作成する。同時作成でemailが重複した場合は既存ユーザーを更新する。
func (s *Service) upsertUser(ctx context.Context, email, name, picture string, now time.Time) (*model.User, error) {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		return s.updateProfile(ctx, existing, name, picture)
	}

	user := &model.User{
		ID:        NewUserID(),
		Email:     email,
		Name:      name,
		Picture:   picture,
		CreatedAt: now,
	}
	err = s.userRepo.Create(ctx, user)
	if err == nil {
		slog.Info("new user created", slog.String("user_id", user.ID), slog.String("email", email))
		return user, nil
	}
	if !errors.Is(err, repository.ErrDuplicateKey) {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	existing, err = s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("user with email %s vanished after duplicate insert", email)
	}
	return s.updateProfile(ctx, existing, name, picture)
}

func (s *Service) updateProfile(ctx context.Context, user *model.User, name, picture string) (*model.User, error) {
	if err := s.userRepo.UpdateProfile(ctx, user.ID, name, picture); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	user.Name = name
	user.Picture = picture
	return user, nil
}

// Logout は指定トークンのセッションのみを削除する。
// トークンが空・不明の場合も成功として扱う。
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessionRepo.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	slog.Info("user logged out")
	return nil
}

// PurgeExpiredSessions は期限切れのセッションを一括削除し、削除件数を返す。
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	deleted, err := s.sessionRepo.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	slog.Info("expired sessions purged", slog.Int64("deleted", deleted))
	return deleted, nil
}

// NewUserID は"user_"に続くランダムな12桁の16進数からなるユーザーIDを生成する。
func NewUserID() string {
	return "user_" + shortHex()
}

func shortHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
