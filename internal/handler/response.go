package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/mangashelf/internal/middleware"
	"github.com/hitoshi/mangashelf/internal/model"
)

// maxRequestBodySize はJSONリクエストボディの最大サイズ（1MB）。
const maxRequestBodySize = 1 << 20

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// writeAPIErrorResponse はAPIErrorを統一フォーマットのJSONとして書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUserNotFound, model.ErrCodeMangaNotFound, model.ErrCodeChapterNotFound,
		model.ErrCodeCommentNotFound, model.ErrCodeBookmarkNotFound, model.ErrCodeHistoryNotFound,
		model.ErrCodeRatingNotFound:
		return http.StatusNotFound
	case model.ErrCodeUserAlreadyExists, model.ErrCodeBookmarkExists:
		return http.StatusConflict
	case model.ErrCodeInvalidRequest, model.ErrCodeValidationFailed, model.ErrCodeChapterNumberExists,
		model.ErrCodeViewNotTracked, model.ErrCodeInvalidCoverURL:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials, model.ErrCodeInvalidToken,
		model.ErrCodeCommentNotOwned:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden, model.ErrCodeAdminProtected, model.ErrCodeMangaNotOwned:
		return http.StatusForbidden
	case model.ErrCodeCatalogUnavailable:
		return http.StatusBadGateway
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON はリクエストボディをvにデコードする。失敗時はINVALID_REQUESTを書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize))
	if err := dec.Decode(v); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return false
	}
	return true
}

// requireActor は認証済みユーザーを返す。未認証の場合は401を書き込みfalseを返す。
func requireActor(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return model.Actor{}, false
	}
	return model.Actor{UserID: id.UserID, Role: id.Role}, true
}

// pageRequestFromQuery はpageとlimitのクエリパラメータを読み取る。
// 数値でない値は0として扱い、サービス層でデフォルト値に補正する。
func pageRequestFromQuery(r *http.Request) model.PageRequest {
	return model.PageRequest{
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
	}
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
