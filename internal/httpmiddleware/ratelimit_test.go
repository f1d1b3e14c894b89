package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestAllowBurstThenRefill(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	l := NewTokenBucket(3, 60) // one token per second
	l.now = c.now

	for i := 0; i < 3; i++ {
		if !l.Allow("a") {
			t.Fatalf("request %d within burst rejected", i+1)
		}
	}
	if l.Allow("a") {
		t.Fatal("request beyond burst allowed")
	}
	if !l.Allow("b") {
		t.Fatal("other client should have its own bucket")
	}

	c.t = c.t.Add(1500 * time.Millisecond)
	if !l.Allow("a") {
		t.Fatal("token should refill after a second")
	}
	if l.Allow("a") {
		t.Fatal("only one token should have refilled")
	}
}

func TestAllowDisabled(t *testing.T) {
	l := NewTokenBucket(0, 0)
	for i := 0; i < 100; i++ {
		if !l.Allow("a") {
			t.Fatal("disabled limiter rejected a request")
		}
	}
}

func TestSweepDropsIdleBuckets(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	l := NewTokenBucket(1, 60)
	l.now = c.now

	l.Allow("a")
	c.t = c.t.Add(11 * time.Minute)
	l.Allow("b")

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.state["a"]; ok {
		t.Error("idle bucket not swept")
	}
	if _, ok := l.state["b"]; !ok {
		t.Error("active bucket missing")
	}
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limited := 0
	l := NewTokenBucket(1, 1).OnLimit(func() { limited++ })

	r := gin.New()
	r.Use(l.GinMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != want {
			t.Errorf("request %d: status %d, want %d", i+1, rec.Code, want)
		}
	}
	if limited != 1 {
		t.Errorf("OnLimit called %d times", limited)
	}
}
