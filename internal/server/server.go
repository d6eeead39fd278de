package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nspcc-dev/welcome-gw/internal/certs"
	"github.com/nspcc-dev/welcome-gw/metrics"
	"go.uber.org/zap"
)

// PrmBootstrap groups parameters to bring the listeners up.
type PrmBootstrap struct {
	Logger *zap.Logger
	// Router is shared by every listener. Its Server and TLSServer are
	// configured and started by Bootstrap.
	Router *echo.Echo
	// TLSConfig and CertErr are the outcome of the certificate load. TLS
	// listener is only bound when TLSConfig is set and CertErr is nil.
	TLSConfig *tls.Config
	CertErr   error
	Config    Config
	Metrics   *metrics.GateMetrics
}

// Server is a set of running listeners created by Bootstrap.
type Server struct {
	log     *zap.Logger
	cfg     Config
	metrics *metrics.GateMetrics
	e       *echo.Echo

	state     atomic.Uint32
	listeners []*listener
	errCh     chan error
	wg        sync.WaitGroup

	done         chan struct{}
	shutdownOnce sync.Once
	shutdownErr  error
}

type listener struct {
	binding Binding
	ln      net.Listener
	srv     *http.Server
}

// Bootstrap binds the TLS listener if the certificate was loaded, then the
// plaintext one, and starts serving both. A failed certificate load only
// disables TLS, while any bind failure is returned as *BindError with every
// already bound listener closed.
func Bootstrap(prm PrmBootstrap) (*Server, error) {
	log := prm.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if prm.Router == nil {
		return nil, errors.New("no router provided")
	}

	s := &Server{
		log:     log,
		cfg:     prm.Config,
		metrics: prm.Metrics,
		e:       prm.Router,
		done:    make(chan struct{}),
	}
	s.e.StdLogger = zap.NewStdLog(log.Named("http"))
	s.setState(StateCertEvaluated)

	tlsEnabled := prm.CertErr == nil && prm.TLSConfig != nil
	if tlsEnabled {
		l, err := s.listen(ProtocolTLS, prm.TLSConfig)
		if err != nil {
			return nil, err
		}
		s.listeners = append(s.listeners, l)
		s.setState(StateTLSBound)
	} else {
		if prm.CertErr != nil {
			log.Warn("TLS certificate is unavailable, serving plaintext only",
				zap.String("reason", reasonOf(prm.CertErr)),
				zap.Error(prm.CertErr))
		} else {
			log.Warn("no TLS configuration provided, serving plaintext only")
		}
		s.metrics.SetListenerUp(ProtocolTLS.String(), false)
		s.setState(StateTLSSkipped)
	}

	l, err := s.listen(ProtocolPlain, nil)
	if err != nil {
		s.closeListeners()
		return nil, err
	}
	s.listeners = append(s.listeners, l)
	s.setState(StatePlainBound)

	s.errCh = make(chan error, len(s.listeners))
	for _, l := range s.listeners {
		s.wg.Add(1)
		go s.serve(l)
	}
	s.setState(StateServing)

	return s, nil
}

func (s *Server) listen(p Protocol, tlsConfig *tls.Config) (*listener, error) {
	b := s.cfg.Binding(p)

	ln, err := net.Listen("tcp", b.Address())
	if err != nil {
		return nil, &BindError{Protocol: p, Address: b.Address(), Err: err}
	}
	b.Port = ln.Addr().(*net.TCPAddr).Port

	s.log.Info("listener bound",
		zap.Stringer("protocol", p),
		zap.String("address", ln.Addr().String()))

	srv := s.e.Server
	if p == ProtocolTLS {
		// Echo serves TLSServer on TLSListener as is.
		srv = s.e.TLSServer
		srv.TLSConfig = tlsConfig
		ln = tls.NewListener(ln, tlsConfig)
		s.e.TLSListener = ln
	} else {
		s.e.Listener = ln
	}
	srv.ReadTimeout = s.cfg.ReadTimeout
	srv.ReadHeaderTimeout = s.cfg.ReadHeaderTimeout
	srv.WriteTimeout = s.cfg.WriteTimeout
	srv.IdleTimeout = s.cfg.IdleTimeout
	srv.MaxHeaderBytes = s.cfg.MaxHeaderBytes

	return &listener{binding: b, ln: ln, srv: srv}, nil
}

func (s *Server) serve(l *listener) {
	defer s.wg.Done()

	s.metrics.SetListenerUp(l.binding.Protocol.String(), true)
	defer s.metrics.SetListenerUp(l.binding.Protocol.String(), false)

	err := s.e.StartServer(l.srv)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errCh <- fmt.Errorf("serve %s on %s: %w", l.binding.Protocol, l.ln.Addr(), err)
	}
}

func (s *Server) closeListeners() {
	for _, l := range s.listeners {
		if err := l.ln.Close(); err != nil {
			s.log.Warn("close listener", zap.Stringer("protocol", l.binding.Protocol), zap.Error(err))
		}
	}
	s.listeners = nil
}

func (s *Server) setState(st State) {
	s.state.Store(uint32(st))
	s.log.Debug("bootstrap state changed", zap.Stringer("state", st))
}

// State returns the current bootstrap phase.
func (s *Server) State() State {
	return State(s.state.Load())
}

// Addr returns the bound address of the listener for p, nil if there is no
// such listener.
func (s *Server) Addr(p Protocol) net.Addr {
	for _, l := range s.listeners {
		if l.binding.Protocol == p {
			return l.ln.Addr()
		}
	}
	return nil
}

// TLSEnabled tells whether the TLS listener is up.
func (s *Server) TLSEnabled() bool {
	return s.Addr(ProtocolTLS) != nil
}

// Bindings returns the bound listeners with actual ports.
func (s *Server) Bindings() []Binding {
	res := make([]Binding, 0, len(s.listeners))
	for _, l := range s.listeners {
		res = append(res, l.binding)
	}
	return res
}

// Run blocks until ctx is done or a listener fails, then shuts the server
// down giving in-flight requests Config.ShutdownTimeout to finish. It also
// returns once Shutdown is called elsewhere.
func (s *Server) Run(ctx context.Context) error {
	var runErr error

	select {
	case <-ctx.Done():
		s.log.Info("shutting down gracefully...")
	case runErr = <-s.errCh:
		s.log.Error("listener failed, shutting down", zap.Error(runErr))
	case <-s.done:
		return s.shutdownErr
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return errors.Join(runErr, s.Shutdown(shutdownCtx))
}

// Shutdown stops accepting connections on all listeners and waits for
// in-flight requests until ctx is done. Subsequent calls return the result
// of the first one.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		started := time.Now()

		err := s.e.Shutdown(ctx)
		if err != nil {
			err = fmt.Errorf("shutdown listeners: %w", err)
			_ = s.e.Close()
		}
		s.wg.Wait()

		s.shutdownErr = err
		s.setState(StateStopped)
		s.log.Info("shutdown complete", zap.Duration("took", time.Since(started)))
		close(s.done)
	})

	return s.shutdownErr
}

func reasonOf(err error) string {
	if r := certs.Reason(err); r != nil {
		return r.Error()
	}
	return "unknown"
}
