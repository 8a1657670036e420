package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestRecoveryTurnsPanicInto500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	r := gin.New()
	r.Use(Recovery(log))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(buf.String(), "recovered from panic") {
		t.Fatalf("expected panic to be logged, got %q", buf.String())
	}
}

func TestLoggingLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		status int
		level  string
	}{
		{http.StatusOK, `"level":"info"`},
		{http.StatusConflict, `"level":"warn"`},
		{http.StatusInternalServerError, `"level":"error"`},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		r := gin.New()
		r.Use(Logging(zerolog.New(&buf)))
		r.GET("/x", func(c *gin.Context) { c.Status(tc.status) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

		out := buf.String()
		if !strings.Contains(out, tc.level) || !strings.Contains(out, `"path":"/x"`) {
			t.Fatalf("status %d: unexpected log line %q", tc.status, out)
		}
	}
}
