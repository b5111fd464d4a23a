package auth

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// sequentialProvider は呼び出しごとに異なるsession_tokenを返すIdPを模す。
func sequentialProvider(email string, names ...string) *mockSessionDataProvider {
	calls := 0
	return &mockSessionDataProvider{
		fetchFn: func(_ context.Context, _ string) (*SessionData, error) {
			name := names[calls%len(names)]
			calls++
			return &SessionData{
				Email:        email,
				Name:         name,
				Picture:      "pic-" + name,
				SessionToken: fmt.Sprintf("tok-%d", calls),
			}, nil
		},
	}
}

func TestExchange_SameEmailTwice_ReusesUserAndAddsSession(t *testing.T) {
	ctx := context.Background()
	users := newMemoryUserRepo()
	sessions := newMemorySessionRepo()
	svc := NewService(sequentialProvider("Ana@Shop.com", "Ana", "Ana Maria"), users, sessions,
		NewAdminAllowlist("admin@shop.com"), ServiceConfig{}, fixedClock(testNow))

	first, tok1, err := svc.Exchange(ctx, "ext-1")
	if err != nil {
		t.Fatalf("first exchange failed: %v", err)
	}
	second, tok2, err := svc.Exchange(ctx, "ext-2")
	if err != nil {
		t.Fatalf("second exchange failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("user_id changed between logins: %s -> %s", first.ID, second.ID)
	}
	if len(users.users) != 1 {
		t.Errorf("user count = %d, want 1", len(users.users))
	}
	if tok1 == tok2 {
		t.Fatalf("expected distinct tokens, got %q twice", tok1)
	}
	if len(sessions.sessions) != 2 {
		t.Errorf("session count = %d, want 2", len(sessions.sessions))
	}
	for _, tok := range []string{tok1, tok2} {
		s, _ := sessions.FindByToken(ctx, tok)
		if s == nil || s.UserID != first.ID {
			t.Errorf("session %q = %+v, want user %s", tok, s, first.ID)
		}
	}

	stored, _ := users.FindByID(ctx, first.ID)
	if stored.Name != "Ana Maria" || stored.Picture != "pic-Ana Maria" {
		t.Errorf("profile not updated: %+v", stored)
	}
	if !stored.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", first.CreatedAt, stored.CreatedAt)
	}
}

func TestExchange_StoresTimestampsAtStorePrecision(t *testing.T) {
	ctx := context.Background()
	sessions := newMemorySessionRepo()
	now := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)
	svc := NewService(sequentialProvider("a@b.com", "A"), newMemoryUserRepo(), sessions,
		NewAdminAllowlist(""), ServiceConfig{}, fixedClock(now))

	user, token, err := svc.Exchange(ctx, "ext")
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}

	want := time.Date(2025, 3, 1, 12, 0, 0, 123000000, time.UTC)
	if !user.CreatedAt.Equal(want) {
		t.Errorf("user created_at = %v, want %v", user.CreatedAt, want)
	}
	s, _ := sessions.FindByToken(ctx, token)
	if !s.CreatedAt.Equal(want) || !s.ExpiresAt.Equal(want.Add(DefaultSessionTTL)) {
		t.Errorf("session timestamps = %v / %v", s.CreatedAt, s.ExpiresAt)
	}
}

func TestResolve_ExpiredSessionIsRemovedFromStore(t *testing.T) {
	ctx := context.Background()
	users := newMemoryUserRepo()
	sessions := newMemorySessionRepo()

	// 7日前にログインしたユーザー
	loginAt := testNow.Add(-DefaultSessionTTL)
	svc := NewService(sequentialProvider("old@shop.com", "Old"), users, sessions,
		NewAdminAllowlist(""), ServiceConfig{}, fixedClock(loginAt))
	_, token, err := svc.Exchange(ctx, "ext")
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}

	authn := NewAuthenticator(users, sessions, NewAdminAllowlist(""), fixedClock(testNow))

	if user, err := authn.Resolve(ctx, token); err != nil || user != nil {
		t.Fatalf("first resolve = (%v, %v), want (nil, nil)", user, err)
	}
	if s, _ := sessions.FindByToken(ctx, token); s != nil {
		t.Errorf("expired session still stored: %+v", s)
	}
	if user, err := authn.Resolve(ctx, token); err != nil || user != nil {
		t.Errorf("second resolve = (%v, %v), want (nil, nil)", user, err)
	}
	if len(users.users) != 1 {
		t.Errorf("user must survive session expiry, count = %d", len(users.users))
	}
}

func TestResolve_AfterExchangeAndLogout(t *testing.T) {
	ctx := context.Background()
	users := newMemoryUserRepo()
	sessions := newMemorySessionRepo()
	svc := NewService(sequentialProvider("c@shop.com", "C"), users, sessions,
		NewAdminAllowlist(""), ServiceConfig{}, fixedClock(testNow))
	authn := NewAuthenticator(users, sessions, NewAdminAllowlist(""), fixedClock(testNow.Add(time.Hour)))

	issued, tok1, _ := svc.Exchange(ctx, "ext-1")
	_, tok2, _ := svc.Exchange(ctx, "ext-2")

	if user, _ := authn.Resolve(ctx, tok1); user == nil || user.ID != issued.ID {
		t.Fatalf("resolve(tok1) = %+v, want %s", user, issued.ID)
	}

	if err := svc.Logout(ctx, tok1); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if user, _ := authn.Resolve(ctx, tok1); user != nil {
		t.Errorf("token survived logout: %+v", user)
	}
	if user, _ := authn.Resolve(ctx, tok2); user == nil {
		t.Error("logout must only remove the presented token")
	}
}
