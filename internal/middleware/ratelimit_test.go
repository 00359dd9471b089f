package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/mangashelf/internal/model"
)

func testRateLimiterConfig(generalBurst, authBurst int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    generalBurst,
		AuthRate:        1.0 / 60.0,
		AuthBurst:       authBurst,
		CleanupInterval: time.Minute,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestAsUser(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/manga", nil)
	return req.WithContext(ContextWithUserID(req.Context(), userID))
}

func requestFromIP(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = addr
	return req
}

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig(60, 6)
	if cfg.GeneralRate != 1 {
		t.Errorf("GeneralRate = %v, want 1", cfg.GeneralRate)
	}
	if cfg.GeneralBurst != 60 {
		t.Errorf("GeneralBurst = %d, want 60", cfg.GeneralBurst)
	}
	if cfg.AuthRate != 0.1 {
		t.Errorf("AuthRate = %v, want 0.1", cfg.AuthRate)
	}
	if cfg.AuthBurst != 6 {
		t.Errorf("AuthBurst = %d, want 6", cfg.AuthBurst)
	}

	fallback := DefaultRateLimiterConfig(0, -1)
	if fallback.GeneralBurst != 120 || fallback.AuthBurst != 10 {
		t.Errorf("fallback bursts = %d/%d, want 120/10", fallback.GeneralBurst, fallback.AuthBurst)
	}
}

func TestRateLimitMiddleware_AllowsRequestsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(5, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestAsUser("user-1"))
		if w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
}

func TestRateLimitMiddleware_Returns429WithRetryAfter(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(2, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestAsUser("user-limited"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAsUser("user-limited"))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retryAfter < 1 {
		t.Errorf("Retry-After = %q, want positive integer", w.Header().Get("Retry-After"))
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != model.ErrCodeRateLimited {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeRateLimited)
	}
}

func TestRateLimitMiddleware_UsersAreIndependent(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for _, user := range []string{"user-a", "user-b", "user-c"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestAsUser(user))
		if w.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want %d", user, w.Code, http.StatusOK)
		}
	}

	if got := rl.GeneralLimiterCount(); got != 3 {
		t.Errorf("GeneralLimiterCount = %d, want 3", got)
	}
}

// 未認証のリクエストはIPアドレス単位で制限される
func TestAuthRateLimit_KeyedByIP(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(100, 2))
	defer rl.Stop()

	handler := rl.AuthMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFromIP("192.0.2.10:50000"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}

	// 同一IPの別ポートも同じクライアントとして扱う
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFromIP("192.0.2.10:50001"))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("same IP: status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, requestFromIP("192.0.2.20:50000"))
	if w.Code != http.StatusOK {
		t.Errorf("other IP: status = %d, want %d", w.Code, http.StatusOK)
	}

	if got := rl.AuthLimiterCount(); got != 2 {
		t.Errorf("AuthLimiterCount = %d, want 2", got)
	}
	if got := rl.GeneralLimiterCount(); got != 0 {
		t.Errorf("GeneralLimiterCount = %d, want 0", got)
	}
}

func TestClientKey(t *testing.T) {
	if got := clientKey(requestAsUser("u-1")); got != "user:u-1" {
		t.Errorf("clientKey(user) = %q, want %q", got, "user:u-1")
	}
	if got := clientKey(requestFromIP("198.51.100.7:1234")); got != "ip:198.51.100.7" {
		t.Errorf("clientKey(ip) = %q, want %q", got, "ip:198.51.100.7")
	}
	if got := clientKey(requestFromIP("no-port")); got != "ip:no-port" {
		t.Errorf("clientKey(no port) = %q, want %q", got, "ip:no-port")
	}
}

func TestRateLimiter_CleanupRemovesStaleEntries(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(10, 10))
	defer rl.Stop()

	rl.general.get("user:stale")
	rl.general.limiters["user:stale"].lastAccess = time.Now().Add(-3 * time.Minute)
	rl.general.get("user:fresh")

	rl.cleanup()

	if got := rl.GeneralLimiterCount(); got != 1 {
		t.Errorf("GeneralLimiterCount = %d, want 1", got)
	}
	if _, ok := rl.general.limiters["user:fresh"]; !ok {
		t.Error("fresh entry should be kept")
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1000, 10))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handler.ServeHTTP(httptest.NewRecorder(), requestAsUser("user-"+strconv.Itoa(i%5)))
		}(i)
	}
	wg.Wait()

	if got := rl.GeneralLimiterCount(); got != 5 {
		t.Errorf("GeneralLimiterCount = %d, want 5", got)
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	rl.Stop()
	rl.Stop()
}
