package auth

import (
	"context"
	"time"

	"github.com/atelie/catalog/internal/model"
	"github.com/atelie/catalog/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn      func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn   func(ctx context.Context, email string) (*model.User, error)
	createFn        func(ctx context.Context, user *model.User) error
	updateProfileFn func(ctx context.Context, id, name, picture string) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id, name, picture string) error {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, id, name, picture)
	}
	return nil
}

type mockSessionRepo struct {
	createFn        func(ctx context.Context, session *model.Session) error
	findByTokenFn   func(ctx context.Context, token string) (*model.Session, error)
	deleteByTokenFn func(ctx context.Context, token string) error
	deleteExpiredFn func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	if m.findByTokenFn != nil {
		return m.findByTokenFn(ctx, token)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByToken(ctx context.Context, token string) error {
	if m.deleteByTokenFn != nil {
		return m.deleteByTokenFn(ctx, token)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx, now)
	}
	return 0, nil
}

type mockSessionDataProvider struct {
	fetchFn func(ctx context.Context, externalSessionID string) (*SessionData, error)
}

func (m *mockSessionDataProvider) FetchSessionData(ctx context.Context, externalSessionID string) (*SessionData, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, externalSessionID)
	}
	return nil, nil
}

// --- インメモリのユーザー・セッションリポジトリ ---

// memoryUserRepo はemailの一意制約を持つインメモリのユーザーストア。
type memoryUserRepo struct {
	users map[string]*model.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[string]*model.User{}}
}

func (m *memoryUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memoryUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Email == user.Email || u.ID == user.ID {
			return repository.ErrDuplicateKey
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memoryUserRepo) UpdateProfile(_ context.Context, id, name, picture string) error {
	if u, ok := m.users[id]; ok {
		u.Name = name
		u.Picture = picture
	}
	return nil
}

// memorySessionRepo はsession_tokenの一意制約を持つインメモリのセッションストア。
type memorySessionRepo struct {
	sessions map[string]*model.Session
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: map[string]*model.Session{}}
}

func (m *memorySessionRepo) Create(_ context.Context, session *model.Session) error {
	if _, ok := m.sessions[session.Token]; ok {
		return repository.ErrDuplicateKey
	}
	cp := *session
	m.sessions[session.Token] = &cp
	return nil
}

func (m *memorySessionRepo) FindByToken(_ context.Context, token string) (*model.Session, error) {
	s, ok := m.sessions[token]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memorySessionRepo) DeleteByToken(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func (m *memorySessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for token, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, token)
			n++
		}
	}
	return n, nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)
var _ SessionDataProvider = (*mockSessionDataProvider)(nil)
var _ repository.UserRepository = (*memoryUserRepo)(nil)
var _ repository.SessionRepository = (*memorySessionRepo)(nil)

// fixedClock はテスト用に固定時刻を返す関数を生成する。
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
