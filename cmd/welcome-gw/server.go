package main

import (
	"crypto/tls"

	"github.com/nspcc-dev/welcome-gw/internal/certs"
	"github.com/nspcc-dev/welcome-gw/metrics"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type (
	// ServerTLSInfo locates TLS material on disk.
	ServerTLSInfo struct {
		CertFile string
		KeyFile  string
	}
)

func tlsInfo(v *viper.Viper) ServerTLSInfo {
	return ServerTLSInfo{
		CertFile: v.GetString(cfgTLSCertFile),
		KeyFile:  v.GetString(cfgTLSKeyFile),
	}
}

// loadTLS loads the server certificate. Failures are only reported, the
// caller decides whether TLS can be skipped.
func loadTLS(logger *zap.Logger, info ServerTLSInfo, m *metrics.GateMetrics) (*tls.Config, error) {
	logger.Debug("loading TLS certificate",
		zap.String("cert", info.CertFile),
		zap.String("key", info.KeyFile))

	cfg, err := certs.Load(info.CertFile, info.KeyFile)
	if err != nil {
		reason := "unknown"
		if r := certs.Reason(err); r != nil {
			reason = r.Error()
		}
		m.CertificateFailed(reason)
		return nil, err
	}

	m.CertificateLoaded()
	logger.Info("TLS certificate loaded", zap.String("cert", info.CertFile))

	return cfg, nil
}
