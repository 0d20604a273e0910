package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soloviov/accounthub/internal/auth"
	"github.com/soloviov/accounthub/internal/domain/user"
	"github.com/soloviov/accounthub/internal/http/handlers"
	"github.com/soloviov/accounthub/internal/http/middlewares"
	"github.com/soloviov/accounthub/internal/repo/postgres"
	"github.com/soloviov/accounthub/internal/security"
)

type fakeTokenStore struct {
	getFn    func(ctx context.Context, id string) (postgres.AccessTokenRow, error)
	revokeFn func(ctx context.Context, id string) error
	created  []postgres.AccessTokenRow
	revoked  []string
}

func (f *fakeTokenStore) Create(ctx context.Context, row postgres.AccessTokenRow) error {
	f.created = append(f.created, row)
	return nil
}

func (f *fakeTokenStore) Get(ctx context.Context, id string) (postgres.AccessTokenRow, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}

	return postgres.AccessTokenRow{}, postgres.ErrTokenNotFound
}

func (f *fakeTokenStore) Revoke(ctx context.Context, id string) error {
	f.revoked = append(f.revoked, id)

	if f.revokeFn != nil {
		return f.revokeFn(ctx, id)
	}
	return nil
}

type fakeDenylist struct {
	revoked map[string]time.Duration
	err     error
}

func (f *fakeDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}

	if f.revoked == nil {
		f.revoked = make(map[string]time.Duration)
	}
	f.revoked[jti] = ttl
	return nil
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()

	hash, err := security.HashPassword(plain)

	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	return hash
}

func TestLoginHandler(t *testing.T) {
	manager := auth.NewManager("test-secret-key", time.Hour)

	knownHash := ""

	tests := []struct {
		name           string
		body           string
		wantStatusCode int
		wantToken      bool
	}{
		{
			name:           "success",
			body:           `{"email": "user@example.com", "password": "Password123"}`,
			wantStatusCode: http.StatusOK,
			wantToken:      true,
		},
		{
			name:           "wrong_password",
			body:           `{"email": "user@example.com", "password": "WrongPassword1"}`,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "unknown_email",
			body:           `{"email": "nobody@example.com", "password": "Password123"}`,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "missing_password",
			body:           `{"email": "user@example.com"}`,
			wantStatusCode: http.StatusUnprocessableEntity,
		},
	}

	knownHash = mustHash(t, "Password123")

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			users := &fakeUsersRepo{
				getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
					if email != "user@example.com" {
						return user.User{}, postgres.ErrUserNotFound
					}

					return user.User{
						ID:           1,
						Email:        email,
						PasswordHash: knownHash,
						Gender:       user.GenderMale,
					}, nil
				},
			}

			tokens := &fakeTokenStore{}

			h := handlers.NewAuthHandler(users, tokens, manager, &fakeDenylist{})

			r := setupRouter(http.MethodPost, "/login", h.Login)

			w := postJSON(r, "/login", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if !tt.wantToken {
				if len(tokens.created) != 0 {
					t.Errorf("no token row should be recorded, got %d", len(tokens.created))
				}
				return
			}

			var resp struct {
				AccessToken string `json:"accessToken"`
			}

			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}

			if resp.AccessToken == "" {
				t.Fatal("expected an access token")
			}

			claims, err := manager.VerifyAccessToken(resp.AccessToken)

			if err != nil {
				t.Fatalf("issued token should verify: %v", err)
			}

			if claims.UserID != 1 {
				t.Errorf("got uid %d, want 1", claims.UserID)
			}

			if len(tokens.created) != 1 {
				t.Fatalf("expected one ledger row, got %d", len(tokens.created))
			}

			row := tokens.created[0]

			if row.UserID != 1 || row.ID != claims.JTI {
				t.Errorf("unexpected ledger row: %+v", row)
			}

			if row.TokenHash == resp.AccessToken {
				t.Error("ledger must store a hash, not the raw token")
			}
		})
	}
}

// setupLogoutRouter mounts Logout behind the real RequireAuth middleware so
// the handler sees the same claims a live request would carry.
func setupLogoutRouter(manager *auth.Manager, tokens *fakeTokenStore, denylist *fakeDenylist) *gin.Engine {
	h := handlers.NewAuthHandler(&fakeUsersRepo{}, tokens, manager, denylist)

	mw := middlewares.NewAuthMiddleware(manager, nil)

	r := gin.New()
	r.POST("/logout", mw.RequireAuth(), h.Logout)

	return r
}

func postLogout(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func issueToken(t *testing.T, manager *auth.Manager) (raw, jti string, expiresAt time.Time) {
	t.Helper()

	raw, jti, expiresAt, err := manager.GenerateAccessToken(user.User{ID: 1, Email: "user@example.com"})

	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	return raw, jti, expiresAt
}

func TestLogoutHandler(t *testing.T) {
	manager := auth.NewManager("test-secret-key", time.Hour)

	raw, jti, expiresAt := issueToken(t, manager)

	tokens := &fakeTokenStore{
		getFn: func(ctx context.Context, id string) (postgres.AccessTokenRow, error) {
			if id != jti {
				return postgres.AccessTokenRow{}, postgres.ErrTokenNotFound
			}

			return postgres.AccessTokenRow{
				ID:        jti,
				UserID:    1,
				TokenHash: manager.HashToken(raw),
				ExpiresAt: expiresAt,
			}, nil
		},
	}
	denylist := &fakeDenylist{}

	r := setupLogoutRouter(manager, tokens, denylist)

	w := postLogout(r, raw)

	if w.Code != http.StatusNoContent {
		t.Fatalf("got status %d, want 204, body=%s", w.Code, w.Body.String())
	}

	if len(tokens.revoked) != 1 || tokens.revoked[0] != jti {
		t.Errorf("expected ledger revocation for %s, got %v", jti, tokens.revoked)
	}

	ttl, ok := denylist.revoked[jti]

	if !ok {
		t.Fatalf("expected a denylist entry for %s", jti)
	}

	if ttl <= 0 || ttl > time.Hour {
		t.Errorf("denylist ttl should match remaining token life, got %v", ttl)
	}
}

func TestLogoutFailsWhenRevocationFails(t *testing.T) {
	manager := auth.NewManager("test-secret-key", time.Hour)

	raw, jti, expiresAt := issueToken(t, manager)

	goodRow := postgres.AccessTokenRow{
		ID:        jti,
		UserID:    1,
		TokenHash: manager.HashToken(raw),
		ExpiresAt: expiresAt,
	}

	tests := []struct {
		name     string
		tokens   *fakeTokenStore
		denylist *fakeDenylist
	}{
		{
			name: "ledger_write_fails",
			tokens: &fakeTokenStore{
				getFn: func(ctx context.Context, id string) (postgres.AccessTokenRow, error) {
					return goodRow, nil
				},
				revokeFn: func(ctx context.Context, id string) error {
					return errors.New("db down")
				},
			},
			denylist: &fakeDenylist{},
		},
		{
			name: "denylist_write_fails",
			tokens: &fakeTokenStore{
				getFn: func(ctx context.Context, id string) (postgres.AccessTokenRow, error) {
					return goodRow, nil
				},
			},
			denylist: &fakeDenylist{err: errors.New("redis down")},
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			r := setupLogoutRouter(manager, tt.tokens, tt.denylist)

			w := postLogout(r, raw)

			// a 204 here would leave the token authenticating until expiry
			if w.Code != http.StatusInternalServerError {
				t.Fatalf("got status %d, want 500, body=%s", w.Code, w.Body.String())
			}
		})
	}
}

func TestLogoutRejectsUnknownToken(t *testing.T) {
	manager := auth.NewManager("test-secret-key", time.Hour)

	raw, _, _ := issueToken(t, manager)

	// ledger has no row for this jti
	r := setupLogoutRouter(manager, &fakeTokenStore{}, &fakeDenylist{})

	w := postLogout(r, raw)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401, body=%s", w.Code, w.Body.String())
	}
}

func TestLogoutRejectsSubstitutedToken(t *testing.T) {
	manager := auth.NewManager("test-secret-key", time.Hour)

	raw, jti, expiresAt := issueToken(t, manager)

	tokens := &fakeTokenStore{
		getFn: func(ctx context.Context, id string) (postgres.AccessTokenRow, error) {
			return postgres.AccessTokenRow{
				ID:        jti,
				UserID:    1,
				TokenHash: manager.HashToken("some-other-token"),
				ExpiresAt: expiresAt,
			}, nil
		},
	}

	r := setupLogoutRouter(manager, tokens, &fakeDenylist{})

	w := postLogout(r, raw)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401, body=%s", w.Code, w.Body.String())
	}

	if len(tokens.revoked) != 0 {
		t.Errorf("nothing should be revoked on a hash mismatch, got %v", tokens.revoked)
	}
}

func TestLogoutWithoutIdentity(t *testing.T) {
	manager := auth.NewManager("test-secret-key", time.Hour)

	h := handlers.NewAuthHandler(&fakeUsersRepo{}, &fakeTokenStore{}, manager, &fakeDenylist{})

	r := setupRouter(http.MethodPost, "/logout", h.Logout)

	w := postJSON(r, "/logout", "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", w.Code)
	}
}
