package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scribeapp/scribe/cmd/server/internal/admission"
)

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimit(admission.NewRateLimiter(time.Minute, 2)))
	r.POST("/api/transcribe", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	do := func(addr string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/transcribe", nil)
		req.RemoteAddr = addr
		r.ServeHTTP(w, req)
		return w
	}

	// Two admits, then 429 for the same client.
	for i := 0; i < 2; i++ {
		if w := do("10.0.0.1:1234"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}
	w := do("10.0.0.1:1234")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}

	// A different client is unaffected.
	if w := do("10.0.0.2:1234"); w.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", w.Code)
	}
}
