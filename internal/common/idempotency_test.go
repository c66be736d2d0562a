package common

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newGuard(t *testing.T) IdempotencyGuard {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return IdempotencyGuard{Redis: client, TTL: time.Minute}
}

func TestIdempotencyGuardRejectsReplay(t *testing.T) {
	guard := newGuard(t)
	handler := guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/confirm", nil)
	req.Header.Set("Idempotency-Key", "order-123")

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, req.Clone(req.Context()))
	if rr1.Code != http.StatusCreated {
		t.Fatalf("expected first confirm to pass, got %d", rr1.Code)
	}

	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, req.Clone(req.Context()))
	if rr2.Code != http.StatusConflict {
		t.Fatalf("expected replay to get 409, got %d", rr2.Code)
	}
}

func TestIdempotencyGuardScopesKeyToRoute(t *testing.T) {
	guard := newGuard(t)
	handler := guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	confirm := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/confirm", nil)
	confirm.Header.Set("Idempotency-Key", "shared")
	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, confirm)
	if rr1.Code != http.StatusOK {
		t.Fatalf("expected confirm to pass, got %d", rr1.Code)
	}

	cancel := httptest.NewRequest(http.MethodPost, "/api/v1/orders/abc/cancel", nil)
	cancel.Header.Set("Idempotency-Key", "shared")
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, cancel)
	if rr2.Code != http.StatusOK {
		t.Fatalf("same key on a different route must not collide, got %d", rr2.Code)
	}
}

func TestIdempotencyGuardPassesWithoutKey(t *testing.T) {
	guard := newGuard(t)
	handler := guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/confirm", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("keyless request %d should pass, got %d", i, rr.Code)
		}
	}
}
