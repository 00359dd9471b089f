package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type mockStatusRecorder struct {
	statuses []int
}

func (m *mockStatusRecorder) RecordHTTPStatus(statusCode int) {
	m.statuses = append(m.statuses, statusCode)
}

func TestMetricsMiddleware_RecordsStatus(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    int
	}{
		{"明示的なステータス", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) }, http.StatusCreated},
		{"ボディのみ", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) }, http.StatusOK},
		{"何も書かない", func(w http.ResponseWriter, r *http.Request) {}, http.StatusOK},
		{"エラー", func(w http.ResponseWriter, r *http.Request) { WriteInternalServerError(w) }, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &mockStatusRecorder{}
			handler := NewMetricsMiddleware(rec)(tt.handler)

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/manga", nil))

			if len(rec.statuses) != 1 || rec.statuses[0] != tt.want {
				t.Errorf("recorded = %v, want [%d]", rec.statuses, tt.want)
			}
		})
	}
}
