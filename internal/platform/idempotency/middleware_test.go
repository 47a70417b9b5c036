package idempotency

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func fixedClock(t time.Time) clockFunc {
	return func() time.Time { return t }
}

func TestMiddlewareReplaysCompletedResponse(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	var handlerCalls int32
	handler := Middleware(store, WithClock(fixedClock(now)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&handlerCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"order-1"}}`))
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/checkout", strings.NewReader(`{"paymentMethod":"qris"}`))
		req.Header.Set("Idempotency-Key", "key-123")
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	first := send()
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.Code)
	}
	if first.Header().Get("X-Idempotent-Replay") != "" {
		t.Fatalf("first response must not be marked as replay")
	}

	second := send()
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d", second.Code)
	}
	if second.Header().Get("X-Idempotent-Replay") != "true" {
		t.Fatalf("expected replay marker on second response")
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("expected identical replayed body")
	}
	if calls := atomic.LoadInt32(&handlerCalls); calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
}

func TestMiddlewarePassesThroughWithoutKey(t *testing.T) {
	store := NewMemoryStore()

	var handlerCalls int32
	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&handlerCalls, 1)
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/checkout", strings.NewReader(`{}`))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rr.Code)
		}
	}

	if calls := atomic.LoadInt32(&handlerCalls); calls != 2 {
		t.Fatalf("expected handler to run twice without key, ran %d times", calls)
	}
}

func TestMiddlewareRejectsReusedKeyWithDifferentBody(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	handler := Middleware(store, WithClock(fixedClock(now)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRequest(http.MethodPost, "/api/v1/orders/checkout", strings.NewReader(`{"paymentMethod":"qris"}`))
	first.Header.Set("Idempotency-Key", "key-456")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, first)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/orders/checkout", strings.NewReader(`{"paymentMethod":"bank_transfer"}`))
	second.Header.Set("Idempotency-Key", "key-456")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, second)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key with different payload, got %d", rr.Code)
	}
}

func TestMiddlewareIgnoresNonMutatingMethods(t *testing.T) {
	store := NewMemoryStore()

	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Idempotency-Key", "key-789")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-Idempotent-Replay") != "" {
		t.Fatalf("GET requests must bypass idempotency")
	}
}
