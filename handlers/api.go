package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nspcc-dev/welcome-gw/internal/cache"
	"github.com/nspcc-dev/welcome-gw/metrics"
	"go.uber.org/zap"
)

// Site is the request handler serving the welcome pages.
type Site struct {
	log     *zap.Logger
	favicon  *cache.File
	metrics  *metrics.RequestMetrics
	compress bool
}

// PrmSite groups parameters to init the site.
type PrmSite struct {
	Logger      *zap.Logger
	FaviconPath string
	FaviconTTL  time.Duration
	Metrics     *metrics.RequestMetrics
	// Compress enables gzip responses for clients accepting them.
	Compress bool
}

const (
	RootPath    = "/"
	IndexPath   = "/index.html"
	FaviconPath = "/favicon.ico"

	protocolPlain = "plaintext"
	protocolTLS   = "tls"
	unmatched     = "unmatched"
)

// New creates a new Site using specified logger, favicon location and metrics.
func New(prm *PrmSite) *Site {
	log := prm.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var favicon *cache.File
	if prm.FaviconPath != "" {
		favicon = cache.NewFileCache(prm.FaviconPath, prm.FaviconTTL)
	}

	return &Site{
		log:      log,
		favicon:  favicon,
		metrics:  prm.Metrics,
		compress: prm.Compress,
	}
}

// Router builds the route table. The result is meant to be shared by every
// listener and must not be modified afterwards.
func (s *Site) Router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(s.observe)
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:    true,
		LogRemoteIP:   true,
		LogMethod:     true,
		LogURI:        true,
		LogRequestID:  true,
		LogStatus:     true,
		LogValuesFunc: s.logRequest,
	}))
	if s.compress {
		e.Use(gzipResponse())
	}

	e.GET(RootPath, s.Redirect)
	e.HEAD(RootPath, s.Redirect)

	e.GET(IndexPath, s.Index)
	e.HEAD(IndexPath, s.Index)

	e.GET(FaviconPath, s.Favicon)
	e.HEAD(FaviconPath, s.Favicon)

	return e
}

// gzipResponse compresses responses with gzhttp. Handler errors are turned
// into responses while the gzip writer is still open, so error pages are
// compressed as well.
func gzipResponse() echo.MiddlewareFunc {
	wrap, err := gzhttp.NewWrapper()
	if err != nil {
		panic(err)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)
				c.SetResponse(echo.NewResponse(w, c.Echo()))
				if err := next(c); err != nil {
					c.Error(err)
				}
			})).ServeHTTP(c.Response(), c.Request())
			return nil
		}
	}
}

func (s *Site) logRequest(c echo.Context, v middleware.RequestLoggerValues) error {
	s.log.Debug("request",
		zap.String("method", v.Method),
		zap.String("uri", v.URI),
		zap.Int("status", v.Status),
		zap.Duration("latency", v.Latency),
		zap.String("request_id", v.RequestID),
		zap.String("remote_ip", v.RemoteIP),
		zap.String("protocol", protocolOf(c)),
	)
	return nil
}
