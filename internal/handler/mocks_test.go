package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/atelie/catalog/internal/auth"
	"github.com/atelie/catalog/internal/middleware"
	"github.com/atelie/catalog/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	exchangeFn func(ctx context.Context, externalSessionID string) (*model.User, string, error)
	logoutFn   func(ctx context.Context, token string) error
}

func (m *mockAuthService) Exchange(ctx context.Context, externalSessionID string) (*model.User, string, error) {
	if m.exchangeFn != nil {
		return m.exchangeFn(ctx, externalSessionID)
	}
	return nil, "", nil
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, token)
	}
	return nil
}

// adminEmails はemailの集合で管理者を判定するAdminChecker。
type adminEmails map[string]bool

func (a adminEmails) IsAdmin(user *model.User) bool {
	return user != nil && a[user.Email]
}

type mockProductService struct {
	listFn   func(ctx context.Context) ([]*model.Product, error)
	getFn    func(ctx context.Context, id string) (*model.Product, error)
	createFn func(ctx context.Context, input model.ProductInput) (*model.Product, error)
	updateFn func(ctx context.Context, id string, patch model.ProductPatch) (*model.Product, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockProductService) List(ctx context.Context) ([]*model.Product, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockProductService) Get(ctx context.Context, id string) (*model.Product, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewProductNotFoundError(id)
}

func (m *mockProductService) Create(ctx context.Context, input model.ProductInput) (*model.Product, error) {
	if m.createFn != nil {
		return m.createFn(ctx, input)
	}
	return nil, nil
}

func (m *mockProductService) Update(ctx context.Context, id string, patch model.ProductPatch) (*model.Product, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return nil, model.NewProductNotFoundError(id)
}

func (m *mockProductService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// tokenAuthorizer はトークンとユーザーの対応表で認証するmiddleware.Authorizer。
type tokenAuthorizer struct {
	users  map[string]*model.User
	admins adminEmails
}

func (a *tokenAuthorizer) RequireAuth(r *http.Request) (*model.User, error) {
	user, ok := a.users[auth.TokenFromRequest(r)]
	if !ok {
		return nil, model.NewUnauthenticatedError()
	}
	return user, nil
}

func (a *tokenAuthorizer) RequireAdmin(r *http.Request) (*model.User, error) {
	user, err := a.RequireAuth(r)
	if err != nil {
		return nil, err
	}
	if !a.admins.IsAdmin(user) {
		return nil, model.NewForbiddenError()
	}
	return user, nil
}

type fakeRecorder struct {
	mu        sync.Mutex
	exchanges []string
	mutations []string
	requests  int
}

func (f *fakeRecorder) RecordHTTPRequest(string, string, int, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
}

func (f *fakeRecorder) RecordAuthExchange(result string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges = append(f.exchanges, result)
}

func (f *fakeRecorder) RecordProductMutation(operation string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations = append(f.mutations, operation)
}

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error {
	return f.err
}

// --- テストヘルパー ---

var testCreatedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

var (
	adminUser = &model.User{
		ID:        "user_admin0001",
		Email:     "admin@atelie.example",
		Name:      "Admin",
		CreatedAt: testCreatedAt,
	}
	customerUser = &model.User{
		ID:        "user_cust00001",
		Email:     "customer@example.com",
		Name:      "Customer",
		Picture:   "https://example.com/p.png",
		CreatedAt: testCreatedAt,
	}
)

func testAuthorizer() *tokenAuthorizer {
	return &tokenAuthorizer{
		users: map[string]*model.User{
			"admin-token":    adminUser,
			"customer-token": customerUser,
		},
		admins: adminEmails{adminUser.Email: true},
	}
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response body %q: %v", w.Body.String(), err)
	}
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	decodeBody(t, w, &body)
	return body
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
