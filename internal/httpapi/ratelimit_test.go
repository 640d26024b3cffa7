package httpapi

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wsmontes/concierge-sync/internal/auth"
	"github.com/wsmontes/concierge-sync/internal/engine"
	"github.com/wsmontes/concierge-sync/internal/store"
)

func TestRateLimiting_429Response(t *testing.T) {
	mem := store.NewMemory()
	srv := &Server{
		Store:  mem,
		Engine: engine.New(mem),
		RateLimitConfig: RateLimitInfo{
			WindowSeconds: 60,
			MaxRequests:   10, // Very low for testing
			Burst:         2,  // Allow only 2 requests in burst
		},
	}
	router := srv.Routes(auth.JWTCfg{HS256Secret: "test-secret", DevMode: true})

	// Burst is 2, so first 2 should succeed, 3rd should fail with 429
	for i := 1; i <= 3; i++ {
		req := httptest.NewRequest("GET", "/api/restaurants/server-ids", nil)
		req.Header.Set("X-Debug-Sub", "test-curator")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		t.Logf("Request %d: status=%d", i, rec.Code)

		// Rate limit headers are always present on limited routes
		for _, h := range []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "X-RateLimit-Burst"} {
			if rec.Header().Get(h) == "" {
				t.Errorf("Request %d: %s header missing", i, h)
			}
		}

		if i <= 2 && rec.Code != 200 {
			t.Errorf("Request %d: status = %d, want 200 within burst", i, rec.Code)
		}
		if i == 3 {
			if rec.Code != 429 {
				t.Errorf("Request %d: status = %d, want 429 past burst", i, rec.Code)
			}
			if rec.Header().Get("Retry-After") == "" {
				t.Error("429 response missing Retry-After header")
			}
		}
	}
}

func TestRateLimiting_PerCuratorBuckets(t *testing.T) {
	mem := store.NewMemory()
	srv := &Server{
		Store:  mem,
		Engine: engine.New(mem),
		RateLimitConfig: RateLimitInfo{
			WindowSeconds: 60,
			MaxRequests:   10,
			Burst:         1,
		},
	}
	router := srv.Routes(auth.JWTCfg{HS256Secret: "test-secret", DevMode: true})

	send := func(curator string) int {
		req := httptest.NewRequest("GET", "/api/restaurants/server-ids", nil)
		req.Header.Set("X-Debug-Sub", curator)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("curator-a"); code != 200 {
		t.Fatalf("curator-a first request = %d, want 200", code)
	}
	if code := send("curator-a"); code != 429 {
		t.Fatalf("curator-a second request = %d, want 429", code)
	}
	// One curator exhausting their bucket never affects another.
	if code := send("curator-b"); code != 200 {
		t.Fatalf("curator-b first request = %d, want 200", code)
	}
}

func TestTokenBucketRefill(t *testing.T) {
	// 10 tokens/second refill, capacity 1
	tb := NewTokenBucket(1, 10)

	allowed, _, _, _ := tb.Allow()
	if !allowed {
		t.Fatal("first request should be allowed")
	}
	allowed, _, _, _ = tb.Allow()
	if allowed {
		t.Fatal("bucket should be empty immediately after consuming capacity")
	}

	time.Sleep(150 * time.Millisecond)

	allowed, _, _, _ = tb.Allow()
	if !allowed {
		t.Fatal("token should have refilled after waiting")
	}
}
