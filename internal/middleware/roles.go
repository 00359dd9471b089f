package middleware

import (
	"net/http"

	"github.com/hitoshi/mangashelf/internal/auth"
	"github.com/hitoshi/mangashelf/internal/model"
)

// RequireRoles は呼び出し元のロールが指定ロールのいずれかである場合のみ通すミドルウェアを返す。
// 認証ミドルウェアの後に配置する。未認証は401、ロール不一致は403を返す。
func RequireRoles(roles ...model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			if !auth.Authorize(id.Role, roles) {
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
