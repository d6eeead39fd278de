package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"

	"go.uber.org/zap"
)

// Config groups side service parameters.
type Config struct {
	Enabled bool
	Address string
}

// Service serves metrics or profiling data on its own address.
type Service struct {
	*http.Server
	enabled     bool
	log         *zap.Logger
	serviceType string
}

func newService(log *zap.Logger, cfg Config, serviceType string, handler http.Handler) *Service {
	return &Service{
		Server: &http.Server{
			Addr:    cfg.Address,
			Handler: handler,
		},
		enabled:     cfg.Enabled,
		serviceType: serviceType,
		log:         log.With(zap.String("service", serviceType)),
	}
}

// NewPprofService creates a new service exposing net/http/pprof handlers.
func NewPprofService(log *zap.Logger, cfg Config) *Service {
	if log == nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return newService(log, cfg, "Pprof", mux)
}

// Start runs the service in background if it's enabled.
func (s *Service) Start() {
	if s == nil {
		return
	}
	if !s.enabled {
		s.log.Info("service is disabled, skip")
		return
	}

	s.log.Info("service is running", zap.String("endpoint", s.Addr))
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("service couldn't start on configured port", zap.Error(err))
		}
	}()
}

// ShutDown stops the service.
func (s *Service) ShutDown(ctx context.Context) {
	if s == nil || !s.enabled {
		return
	}

	s.log.Info("shutting down service", zap.String("endpoint", s.Addr))
	if err := s.Shutdown(ctx); err != nil {
		s.log.Error("can't shut down service", zap.Error(err))
	}
}
