package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypeIcon = "image/x-icon"

	welcomePage = "<!DOCTYPE html><html><body><p>Welcome!</p></body></html>"
)

// Index serves the static welcome page.
func (s *Site) Index(c echo.Context) error {
	req := c.Request()
	s.log.Debug("index requested",
		zap.String("proto", req.Proto),
		zap.String("host", req.Host),
		zap.String("user_agent", req.UserAgent()),
		zap.Bool("tls", c.IsTLS()),
	)

	return c.Blob(http.StatusOK, contentTypeHTML, []byte(welcomePage))
}

// Redirect sends the client to the welcome page.
func (s *Site) Redirect(c echo.Context) error {
	return c.Redirect(http.StatusFound, IndexPath)
}

// Favicon serves the favicon file, 404 if it's not present on disk.
func (s *Site) Favicon(c echo.Context) error {
	if s.favicon == nil {
		return echo.ErrNotFound
	}

	data, err := s.favicon.Bytes()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return echo.ErrNotFound
		}
		s.log.Error("read favicon", zap.String("path", s.favicon.Path()), zap.Error(err))
		return echo.ErrInternalServerError
	}

	return c.Blob(http.StatusOK, contentTypeIcon, data)
}

func (s *Site) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		route := c.Path()
		if route == "" {
			route = unmatched
		}
		done := s.metrics.Elapsed(route, c.Request().Method, protocolOf(c))

		err := next(c)

		status := c.Response().Status
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
		}
		done(strconv.Itoa(status))

		return err
	}
}

func protocolOf(c echo.Context) string {
	if c.IsTLS() {
		return protocolTLS
	}
	return protocolPlain
}
