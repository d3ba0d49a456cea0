package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/auth"
	"backend/internal/middleware"
	"backend/internal/models"
)

// fakeUserStore backs the auth service in HTTP tests without mongo. Reads
// mirror the repository projections: secret fields only surface on the
// dedicated lookups.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*models.User{}}
}

func (f *fakeUserStore) byEmail(email string) *models.User {
	for _, u := range f.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

func (f *fakeUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.byEmail(email); u != nil {
		sanitized := u.Sanitized()
		return &sanitized, nil
	}
	return nil, auth.ErrUserNotFound
}

func (f *fakeUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			sanitized := u.Sanitized()
			return &sanitized, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (f *fakeUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		sanitized := u.Sanitized()
		return &sanitized, nil
	}
	return nil, auth.ErrUserNotFound
}

func (f *fakeUserStore) FindByEmailWithSecret(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u := f.byEmail(email); u != nil {
		copied := *u
		copied.RefreshFingerprint = ""
		return &copied, nil
	}
	return nil, auth.ErrUserNotFound
}

func (f *fakeUserStore) FindByIDWithFingerprint(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		copied := *u
		copied.PasswordHash = ""
		return &copied, nil
	}
	return nil, auth.ErrUserNotFound
}

func (f *fakeUserStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = primitive.NewObjectID()
	copied := *user
	f.users[user.ID.Hex()] = &copied
	return user, nil
}

func (f *fakeUserStore) Update(ctx context.Context, id string, update auth.UserUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil
	}
	if update.Username != nil {
		u.Username = *update.Username
	}
	if update.RefreshFingerprint != nil {
		u.RefreshFingerprint = *update.RefreshFingerprint
	}
	u.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUserStore) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	issuer, err := auth.NewTokenIssuer("test-access-secret", "test-refresh-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	svc := auth.NewService(newFakeUserStore(), auth.NewBcryptHasher(), issuer, 0)

	r := gin.New()
	r.POST("/auth/register", Register(svc))
	r.POST("/auth/login", Login(svc))
	r.POST("/auth/refresh", Refresh(svc))
	r.POST("/auth/logout", middleware.RequireAuth(svc), Logout(svc))
	r.GET("/auth/me", middleware.RequireAuth(svc), GetMe())
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body map[string]any, headers map[string]string) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	decoded := map[string]any{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w.Code, decoded
}

func TestAuthFlow(t *testing.T) {
	r := newAuthRouter(t)

	creds := map[string]any{"email": "a@x.com", "password": "Secret123!", "username": "alice"}

	status, body := doJSON(t, r, http.MethodPost, "/auth/register", creds, nil)
	if status != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%v)", status, body)
	}
	if user, _ := body["user"].(map[string]any); user["passwordHash"] != nil || user["refreshFingerprint"] != nil {
		t.Fatalf("register response leaks secret fields: %v", body["user"])
	}

	// duplicate email conflicts regardless of username
	status, _ = doJSON(t, r, http.MethodPost, "/auth/register",
		map[string]any{"email": "a@x.com", "password": "Other456!", "username": "bob"}, nil)
	if status != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", status)
	}

	status, body = doJSON(t, r, http.MethodPost, "/auth/login",
		map[string]any{"email": "a@x.com", "password": "Secret123!"}, nil)
	if status != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%v)", status, body)
	}
	access1, _ := body["accessToken"].(string)
	refresh1, _ := body["refreshToken"].(string)
	if access1 == "" || refresh1 == "" || access1 == refresh1 {
		t.Fatalf("login: expected distinct token pair, got access=%q refresh=%q", access1, refresh1)
	}

	// rotation returns a new pair
	status, body = doJSON(t, r, http.MethodPost, "/auth/refresh",
		map[string]any{"refreshToken": refresh1}, nil)
	if status != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d (%v)", status, body)
	}
	refresh2, _ := body["refreshToken"].(string)
	if refresh2 == "" || refresh2 == refresh1 {
		t.Fatalf("refresh: expected rotated token, got %q", refresh2)
	}

	// replaying the old token fails and poisons the session
	status, _ = doJSON(t, r, http.MethodPost, "/auth/refresh",
		map[string]any{"refreshToken": refresh1}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("stale refresh: expected 401, got %d", status)
	}
	status, _ = doJSON(t, r, http.MethodPost, "/auth/refresh",
		map[string]any{"refreshToken": refresh2}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("poisoned refresh: expected 401, got %d", status)
	}

	// fresh login restores service
	status, body = doJSON(t, r, http.MethodPost, "/auth/login",
		map[string]any{"email": "a@x.com", "password": "Secret123!"}, nil)
	if status != http.StatusOK {
		t.Fatalf("re-login: expected 200, got %d", status)
	}
	access3, _ := body["accessToken"].(string)
	refresh3, _ := body["refreshToken"].(string)

	bearer := map[string]string{"Authorization": "Bearer " + access3}

	status, body = doJSON(t, r, http.MethodGet, "/auth/me", nil, bearer)
	if status != http.StatusOK {
		t.Fatalf("me: expected 200, got %d (%v)", status, body)
	}

	status, _ = doJSON(t, r, http.MethodPost, "/auth/logout", nil, bearer)
	if status != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", status)
	}

	// logout is idempotent
	status, _ = doJSON(t, r, http.MethodPost, "/auth/logout", nil, bearer)
	if status != http.StatusOK {
		t.Fatalf("second logout: expected 200, got %d", status)
	}

	// the refresh token from before logout is dead
	status, _ = doJSON(t, r, http.MethodPost, "/auth/refresh",
		map[string]any{"refreshToken": refresh3}, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected 401, got %d", status)
	}
}

func TestLoginDoesNotRevealAccountExistence(t *testing.T) {
	r := newAuthRouter(t)

	doJSON(t, r, http.MethodPost, "/auth/register",
		map[string]any{"email": "a@x.com", "password": "Secret123!"}, nil)

	status1, body1 := doJSON(t, r, http.MethodPost, "/auth/login",
		map[string]any{"email": "nobody@x.com", "password": "Secret123!"}, nil)
	status2, body2 := doJSON(t, r, http.MethodPost, "/auth/login",
		map[string]any{"email": "a@x.com", "password": "wrong"}, nil)

	if status1 != http.StatusUnauthorized || status2 != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", status1, status2)
	}
	if body1["error"] != body2["error"] {
		t.Fatalf("unauthorized bodies differ: %v vs %v", body1["error"], body2["error"])
	}
}

func TestProtectedRouteRejectsBadTokens(t *testing.T) {
	r := newAuthRouter(t)

	status, _ := doJSON(t, r, http.MethodGet, "/auth/me", nil, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", status)
	}

	status, _ = doJSON(t, r, http.MethodGet, "/auth/me", nil,
		map[string]string{"Authorization": "Bearer not-a-token"})
	if status != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", status)
	}
}
