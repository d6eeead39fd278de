package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nspcc-dev/welcome-gw/handlers"
	"github.com/nspcc-dev/welcome-gw/internal/server"
	"github.com/nspcc-dev/welcome-gw/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const serviceShutdownTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	v := config(os.Args[1:])
	logger := newLogger(v)
	zap.ReplaceGlobals(logger)

	if err := run(ctx, v, logger, prometheus.DefaultRegisterer, prometheus.DefaultGatherer); err != nil {
		logger.Fatal("welcome gateway failed", zap.Error(err))
	}
}

func run(ctx context.Context, v *viper.Viper, logger *zap.Logger, reg prometheus.Registerer, gatherer prometheus.Gatherer) error {
	logger.Info("starting welcome gateway", zap.String("version", Version))

	gateMetrics := metrics.NewGateMetrics(reg)
	gateMetrics.SetGWVersion(Version)
	requestMetrics := metrics.NewRequestMetrics(reg)

	prometheusService := metrics.NewPrometheusService(logger, metrics.Config{
		Enabled: v.GetBool(cfgPrometheusEnabled),
		Address: v.GetString(cfgPrometheusAddress),
	}, gatherer)
	pprofService := metrics.NewPprofService(logger, metrics.Config{
		Enabled: v.GetBool(cfgPprofEnabled),
		Address: v.GetString(cfgPprofAddress),
	})
	prometheusService.Start()
	pprofService.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serviceShutdownTimeout)
		defer cancel()
		prometheusService.ShutDown(shutdownCtx)
		pprofService.ShutDown(shutdownCtx)
	}()

	site := handlers.New(&handlers.PrmSite{
		Logger:      logger.Named("http"),
		FaviconPath: v.GetString(cfgFavicon),
		FaviconTTL:  v.GetDuration(cfgStaticCacheTTL),
		Metrics:     requestMetrics,
		Compress:    v.GetBool(cfgCompress),
	})

	tlsConfig, certErr := loadTLS(logger, tlsInfo(v), gateMetrics)

	srv, err := server.Bootstrap(server.PrmBootstrap{
		Logger:    logger,
		Router:    site.Router(),
		TLSConfig: tlsConfig,
		CertErr:   certErr,
		Config:    serverConfig(v),
		Metrics:   gateMetrics,
	})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	for _, b := range srv.Bindings() {
		logger.Info("serving", zap.Stringer("protocol", b.Protocol), zap.String("address", b.Address()))
	}
	gateMetrics.SetHealth(1)
	defer gateMetrics.SetHealth(0)

	return srv.Run(ctx)
}
