package handlers_test

import (
	"compress/gzip"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nspcc-dev/welcome-gw/handlers"
	"github.com/nspcc-dev/welcome-gw/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func serve(t *testing.T, h http.Handler, method, target string, secure bool) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	if secure {
		req.TLS = &tls.ConnectionState{}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	router := handlers.New(&handlers.PrmSite{}).Router()

	for _, secure := range []bool{false, true} {
		t.Run(fmt.Sprintf("tls=%t", secure), func(t *testing.T) { testRoutes(t, router, secure) })
	}
}

func testRoutes(t *testing.T, router http.Handler, secure bool) {
	t.Run("root", func(t *testing.T) {
		rec := serve(t, router, http.MethodGet, "/", secure)
		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, "/index.html", rec.Header().Get("Location"))
	})

	t.Run("index", func(t *testing.T) {
		rec := serve(t, router, http.MethodGet, "/index.html", secure)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		require.Contains(t, rec.Body.String(), "<html>")
		require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	})

	t.Run("head index", func(t *testing.T) {
		rec := serve(t, router, http.MethodHead, "/index.html", secure)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown", func(t *testing.T) {
		rec := serve(t, router, http.MethodGet, "/unknown", secure)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("favicon not configured", func(t *testing.T) {
		rec := serve(t, router, http.MethodGet, "/favicon.ico", secure)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestFavicon(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "favicon.ico")

	router := handlers.New(&handlers.PrmSite{FaviconPath: path, FaviconTTL: time.Minute}).Router()

	rec := serve(t, router, http.MethodGet, "/favicon.ico", false)
	require.Equal(t, http.StatusNotFound, rec.Code)

	icon := []byte{0, 0, 1, 0, 1, 0}
	require.NoError(t, os.WriteFile(path, icon, 0o600))

	rec = serve(t, router, http.MethodGet, "/favicon.ico", false)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/x-icon", rec.Header().Get("Content-Type"))
	require.Equal(t, icon, rec.Body.Bytes())

	require.NoError(t, os.Remove(path))
	rec = serve(t, router, http.MethodGet, "/favicon.ico", true)
	require.Equal(t, http.StatusOK, rec.Code, "served from cache")
}

func TestRequestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	router := handlers.New(&handlers.PrmSite{Metrics: metrics.NewRequestMetrics(reg)}).Router()

	serve(t, router, http.MethodGet, "/", true)
	serve(t, router, http.MethodGet, "/index.html", false)
	serve(t, router, http.MethodGet, "/favicon.ico", false)

	count, err := testutil.GatherAndCount(reg, "welcome_gw_http_request_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 3, count)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)

	var labels []string
	for _, m := range families[0].GetMetric() {
		var parts []string
		for _, l := range m.GetLabel() {
			parts = append(parts, l.GetName()+"="+l.GetValue())
		}
		labels = append(labels, strings.Join(parts, ","))
	}
	require.ElementsMatch(t, []string{
		"code=302,method=GET,protocol=tls,route=/",
		"code=200,method=GET,protocol=plaintext,route=/index.html",
		"code=404,method=GET,protocol=plaintext,route=/favicon.ico",
	}, labels)
}

func TestRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	router := handlers.New(&handlers.PrmSite{Logger: zap.New(core)}).Router()

	serve(t, router, http.MethodGet, "/index.html", true)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "/index.html", fields["uri"])
	require.EqualValues(t, http.StatusOK, fields["status"])
	require.Equal(t, "tls", fields["protocol"])
	require.Equal(t, 1, logs.FilterMessage("index requested").Len())
}

func TestCompress(t *testing.T) {
	payload := strings.Repeat("welcome ", 1024)
	reg := prometheus.NewRegistry()

	router := handlers.New(&handlers.PrmSite{Compress: true, Metrics: metrics.NewRequestMetrics(reg)}).Router()
	router.GET("/large", func(c echo.Context) error {
		return c.String(http.StatusOK, payload)
	})

	gzipped := func(target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := gzipped("/large")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Equal(t, payload, string(body))

	rec = serve(t, router, http.MethodGet, "/large", false)
	require.Empty(t, rec.Header().Get("Content-Encoding"))
	require.Equal(t, payload, rec.Body.String())

	rec = gzipped("/index.html")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = gzipped("/")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/index.html", rec.Header().Get("Location"))

	rec = gzipped("/favicon.ico")
	require.Equal(t, http.StatusNotFound, rec.Code)

	count, err := testutil.GatherAndCount(reg, "welcome_gw_http_request_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 4, count)
}
