// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/mangashelf/internal/auth"
	"github.com/hitoshi/mangashelf/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストに認証済みユーザー情報を格納するためのキー。
var identityContextKey = contextKey("identity")

// Identity はアクセストークンから復元した認証済みユーザー情報。
type Identity struct {
	UserID   string
	Username string
	Email    string
	Role     model.Role
}

// TokenValidator はアクセストークンの検証に必要なインターフェース。
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(token), true
}

// NewIdentityMiddleware はBearerトークンが有効な場合に認証済みユーザー情報を
// リクエストコンテキストに注入するミドルウェアを返す。
// トークンがない・無効な場合もリクエストは拒否せずそのまま通す。
// 認証必須のルートではNewAuthMiddlewareと組み合わせて使う。
func NewIdentityMiddleware(validator TokenValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, present := bearerToken(r)
			if !present || token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), Identity{
				UserID:   claims.UserID(),
				Username: claims.Username,
				Email:    claims.Email,
				Role:     claims.Role,
			})))
		})
	}
}

// NewAuthMiddleware は認証済みのリクエストのみを通すミドルウェアを返す。
// Authorizationヘッダーがない場合はUNAUTHORIZED、
// トークンが無効・期限切れの場合はINVALID_TOKENの401を返す。
// コンテキストに認証情報がない場合はここでトークンを検証する。
func NewAuthMiddleware(validator TokenValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := IdentityFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			token, present := bearerToken(r)
			if !present {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			if token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), Identity{
				UserID:   claims.UserID(),
				Username: claims.Username,
				Email:    claims.Email,
				Role:     claims.Role,
			})))
		})
	}
}

// IdentityFromContext はリクエストコンテキストから認証済みユーザー情報を取得する。
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}

// ContextWithIdentity はコンテキストに認証済みユーザー情報を注入する。
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// ContextWithUserID は一般ユーザーロールのユーザーIDをコンテキストに注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return ContextWithIdentity(ctx, Identity{UserID: userID, Role: model.RoleUser})
}
