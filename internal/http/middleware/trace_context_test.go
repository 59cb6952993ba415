package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/idmap-backend/internal/observability"
)

func TestCorrelationID(t *testing.T) {
	cases := map[string]string{
		"  req-42  ":                "req-42",
		"":                          "",
		"has\nnewline":              "",
		"ünïcode":                   "",
		strings.Repeat("a", 129):    "",
		strings.Repeat("b", 128):    strings.Repeat("b", 128),
		"4bf92f3577b34da6a3ce929d0": "4bf92f3577b34da6a3ce929d0",
	}
	for in, want := range cases {
		if got := correlationID(in); got != want {
			t.Fatalf("correlationID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAttachTraceContextReplacesUnsafeRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/scheme", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/scheme", nil)
	req.Header.Set(headerRequestID, strings.Repeat("x", 500))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	got := w.Header().Get(headerRequestID)
	if got == "" || len(got) > maxCorrelationIDLength {
		t.Fatalf("unexpected request id %q", got)
	}
	if w.Header().Get(headerTraceID) == "" {
		t.Fatalf("missing trace id")
	}
}

func TestMetricsSkipsProbesAndCollapsesUnmatched(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "1")
	m := observability.Init(nil)
	if m == nil {
		t.Fatalf("metrics not enabled")
	}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(m))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/healthcheck", ok)
	r.GET("/scheme", ok)

	for _, path := range []string{"/healthcheck", "/scheme", "/wp-admin.php"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`route="/scheme"`, `route="unmatched"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in:\n%s", want, out)
		}
	}
	for _, banned := range []string{"/healthcheck", "wp-admin"} {
		if strings.Contains(out, banned) {
			t.Fatalf("unexpected %s in:\n%s", banned, out)
		}
	}
}
