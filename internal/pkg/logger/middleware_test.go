package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newMiddlewareLogger(t *testing.T) *Logger {
	t.Helper()
	logger, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return logger
}

func TestGinLoggerGeneratesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := newMiddlewareLogger(t)

	var seenID string
	router := gin.New()
	router.Use(GinLogger(logger))
	router.GET("/ping", func(c *gin.Context) {
		seenID = GetRequestID(c.Request.Context())
		if FromContext(c.Request.Context()) == nil {
			t.Error("FromContext() returned nil logger inside handler")
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	if seenID == "" {
		t.Error("handler saw no request ID in context")
	}
	if got := w.Header().Get("X-Request-ID"); got != seenID {
		t.Errorf("X-Request-ID header = %v, want %v", got, seenID)
	}
}

func TestGinLoggerPreservesClientRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := newMiddlewareLogger(t)

	router := gin.New()
	router.Use(GinLogger(logger))
	router.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-supplied-id" {
		t.Errorf("X-Request-ID header = %v, want client-supplied-id", got)
	}
}

func TestGinRecoveryReturns500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := newMiddlewareLogger(t)

	router := gin.New()
	router.Use(GinRecovery(logger))
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %v, want %v", w.Code, http.StatusInternalServerError)
	}
}
