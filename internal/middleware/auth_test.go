package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v4"

	"github.com/hitoshi/mangashelf/internal/auth"
	"github.com/hitoshi/mangashelf/internal/model"
)

type mockTokenValidator struct {
	validateFn func(token string) (*auth.Claims, error)
}

func (m *mockTokenValidator) ValidateToken(token string) (*auth.Claims, error) {
	return m.validateFn(token)
}

// validTokenValidator は"good-token"のみを有効とするバリデーターを返す。
func validTokenValidator(role model.Role) *mockTokenValidator {
	return &mockTokenValidator{
		validateFn: func(token string) (*auth.Claims, error) {
			if token != "good-token" {
				return nil, model.NewInvalidTokenError()
			}
			return &auth.Claims{
				Username:         "reader",
				Email:            "reader@example.com",
				Role:             role,
				RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
			}, nil
		},
	}
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Code
}

func TestAuthMiddleware_ValidToken_InjectsIdentity(t *testing.T) {
	var captured Identity
	handler := NewAuthMiddleware(validTokenValidator(model.RoleContributor))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	want := Identity{UserID: "user-1", Username: "reader", Email: "reader@example.com", Role: model.RoleContributor}
	if captured != want {
		t.Errorf("identity = %+v, want %+v", captured, want)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"ヘッダーなし", "", model.ErrCodeUnauthorized},
		{"Bearer以外のスキーム", "Basic dXNlcjpwYXNz", model.ErrCodeInvalidToken},
		{"空のトークン", "Bearer ", model.ErrCodeInvalidToken},
		{"無効なトークン", "Bearer bad-token", model.ErrCodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAuthMiddleware(validTokenValidator(model.RoleUser))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("next handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if code := decodeErrorCode(t, w); code != tt.wantCode {
				t.Errorf("code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

// 公開ルートでは無効なトークンでもリクエストを通し、認証情報は注入しない
func TestIdentityMiddleware_InvalidToken_PassesThroughAnonymously(t *testing.T) {
	called := false
	handler := NewIdentityMiddleware(validTokenValidator(model.RoleUser))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := IdentityFromContext(r.Context()); ok {
			t.Error("identity should not be set for invalid token")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/manga", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Error("next handler should be called")
	}
}

func TestIdentityMiddleware_ThenAuth_UsesInjectedIdentity(t *testing.T) {
	calls := 0
	validator := validTokenValidator(model.RoleUser)
	counting := &mockTokenValidator{validateFn: func(token string) (*auth.Claims, error) {
		calls++
		return validator.ValidateToken(token)
	}}

	handler := NewIdentityMiddleware(counting)(NewAuthMiddleware(counting)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if calls != 1 {
		t.Errorf("token validated %d times, want 1", calls)
	}
}

func TestRequireRoles(t *testing.T) {
	tests := []struct {
		name       string
		identity   *Identity
		wantStatus int
	}{
		{"未認証", nil, http.StatusUnauthorized},
		{"一般ユーザー", &Identity{UserID: "u1", Role: model.RoleUser}, http.StatusForbidden},
		{"投稿者", &Identity{UserID: "u2", Role: model.RoleContributor}, http.StatusOK},
		{"管理者", &Identity{UserID: "u3", Role: model.RoleAdmin}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireRoles(model.RoleContributor, model.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/manga", nil)
			if tt.identity != nil {
				req = req.WithContext(ContextWithIdentity(req.Context(), *tt.identity))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}
