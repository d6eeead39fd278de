package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/nspcc-dev/welcome-gw/internal/server"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

const (
	defaultFaviconTTL = time.Minute

	// Listeners.
	cfgHost              = "server.host"
	cfgHTTPPort          = "server.http-port"
	cfgHTTPSPort         = "server.https-port"
	cfgReadTimeout       = "server.read-timeout"
	cfgReadHeaderTimeout = "server.read-header-timeout"
	cfgWriteTimeout      = "server.write-timeout"
	cfgIdleTimeout       = "server.idle-timeout"
	cfgMaxHeaderBytes    = "server.max-header-bytes"
	cfgShutdownTimeout   = "server.shutdown-timeout"
	cfgCompress          = "server.compress"

	// TLS.
	cfgTLSCertFile = "tls.cert-file"
	cfgTLSKeyFile  = "tls.key-file"

	// Static files.
	cfgFavicon         = "static.favicon"
	cfgStaticCacheTTL  = "static.cache-ttl"
	defaultFaviconPath = "static/favicon.ico"

	// Metrics / Profiler.
	cfgPrometheusEnabled = "prometheus.enabled"
	cfgPrometheusAddress = "prometheus.address"
	cfgPprofEnabled      = "pprof.enabled"
	cfgPprofAddress      = "pprof.address"

	// Logger.
	cfgLoggerLevel    = "logger.level"
	cfgLoggerEncoding = "logger.encoding"

	// Command line args.
	cmdHelp            = "help"
	cmdVersion         = "version"
	cmdPprof           = "pprof"
	cmdMetrics         = "metrics"
	cmdConfig          = "config"
	cmdHost            = "host"
	cmdHTTPPort        = "http-port"
	cmdHTTPSPort       = "https-port"
	cmdCert            = "cert"
	cmdKey             = "key"
	cmdFavicon         = "favicon"
	cmdShutdownTimeout = "shutdown-timeout"
)

var ignore = map[string]struct{}{
	cmdHelp:    {},
	cmdVersion: {},
	cmdConfig:  {},
}

// Prefix is a prefix used for environment variables containing gateway
// configuration.
const Prefix = "WELCOME_GW"

var (
	// Version is gateway version.
	Version = "dev"
)

// flagKeys maps command line flags to the configuration keys they override.
var flagKeys = map[string]string{
	cmdPprof:           cfgPprofEnabled,
	cmdMetrics:         cfgPrometheusEnabled,
	cmdHost:            cfgHost,
	cmdHTTPPort:        cfgHTTPPort,
	cmdHTTPSPort:       cfgHTTPSPort,
	cmdCert:            cfgTLSCertFile,
	cmdKey:             cfgTLSKeyFile,
	cmdFavicon:         cfgFavicon,
	cmdShutdownTimeout: cfgShutdownTimeout,
}

func config(args []string) *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvPrefix(Prefix)
	v.AllowEmptyEnv(true)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// flags setup:
	flagSet := pflag.NewFlagSet("commandline", pflag.ExitOnError)
	flagSet.SetOutput(os.Stdout)
	flagSet.SortFlags = false

	flagSet.Bool(cmdPprof, false, "enable pprof")
	flagSet.Bool(cmdMetrics, false, "enable prometheus")

	help := flagSet.BoolP(cmdHelp, "h", false, "show help")
	version := flagSet.BoolP(cmdVersion, "v", false, "show version")

	config := flagSet.String(cmdConfig, "", "config path")
	flagSet.String(cmdHost, server.DefaultHost, "address to bind both listeners on")
	flagSet.Int(cmdHTTPPort, server.DefaultHTTPPort, "plaintext listener port")
	flagSet.Int(cmdHTTPSPort, server.DefaultHTTPSPort, "TLS listener port")
	flagSet.String(cmdCert, "cert.pem", "path to the PEM certificate chain")
	flagSet.String(cmdKey, "key.pem", "path to the PEM PKCS#8 private key")
	flagSet.String(cmdFavicon, defaultFaviconPath, "path to the favicon file")
	flagSet.Duration(cmdShutdownTimeout, server.DefaultShutdownTimeout, "grace period for in-flight requests on shutdown")

	// set defaults:
	// server
	v.SetDefault(cfgReadTimeout, server.DefaultReadTimeout)
	v.SetDefault(cfgReadHeaderTimeout, server.DefaultReadHeaderTimeout)
	v.SetDefault(cfgWriteTimeout, server.DefaultWriteTimeout)
	v.SetDefault(cfgIdleTimeout, server.DefaultIdleTimeout)
	v.SetDefault(cfgMaxHeaderBytes, server.DefaultMaxHeaderBytes)
	v.SetDefault(cfgCompress, true)

	// static
	v.SetDefault(cfgStaticCacheTTL, defaultFaviconTTL)

	// metrics
	v.SetDefault(cfgPprofAddress, "localhost:8091")
	v.SetDefault(cfgPrometheusAddress, "localhost:8092")

	// logger:
	v.SetDefault(cfgLoggerLevel, "info")
	v.SetDefault(cfgLoggerEncoding, "")

	// Bind flags
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, flagSet.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	if err := flagSet.Parse(args); err != nil {
		panic(err)
	}

	switch {
	case help != nil && *help:
		fmt.Printf("Welcome Gateway %s\n", Version)
		flagSet.PrintDefaults()

		fmt.Println()
		fmt.Println("Default environments:")
		fmt.Println()
		cmdKeys := v.AllKeys()
		sort.Strings(cmdKeys)

		for i := range cmdKeys {
			if _, ok := ignore[cmdKeys[i]]; ok {
				continue
			}

			k := strings.NewReplacer(".", "_", "-", "_").Replace(cmdKeys[i])
			fmt.Printf("%s_%s = %v\n", Prefix, strings.ToUpper(k), v.Get(cmdKeys[i]))
		}

		os.Exit(0)
	case version != nil && *version:
		fmt.Printf("Welcome Gateway %s\n", Version)
		os.Exit(0)
	}

	if *config != "" {
		if cfgFile, err := os.Open(*config); err != nil {
			panic(err)
		} else if err := v.ReadConfig(cfgFile); err != nil {
			panic(err)
		}
	}

	return v
}

// newLogger constructs a zap.Logger instance for current application.
// Panics on failure.
//
// Logger is built from zap's production logging configuration with:
//   - parameterized level (info by default)
//   - console encoding on terminals and JSON otherwise, unless set explicitly
//   - ISO8601 time encoding
//
// Logger records a stack trace for all messages at or above fatal level.
//
// See also zapcore.Level, zap.NewProductionConfig, zap.AddStacktrace.
func newLogger(v *viper.Viper) *zap.Logger {
	var lvl zapcore.Level
	lvlStr := v.GetString(cfgLoggerLevel)
	err := lvl.UnmarshalText([]byte(lvlStr))
	if err != nil {
		panic(fmt.Sprintf("incorrect logger level configuration %s (%v), "+
			"value should be one of %v", lvlStr, err, [...]zapcore.Level{
			zapcore.DebugLevel,
			zapcore.InfoLevel,
			zapcore.WarnLevel,
			zapcore.ErrorLevel,
			zapcore.DPanicLevel,
			zapcore.PanicLevel,
			zapcore.FatalLevel,
		}))
	}

	c := zap.NewProductionConfig()
	c.Level = zap.NewAtomicLevelAt(lvl)
	c.Encoding = logEncoding(v.GetString(cfgLoggerEncoding))
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := c.Build(
		zap.AddStacktrace(zap.NewAtomicLevelAt(zap.FatalLevel)),
	)
	if err != nil {
		panic(fmt.Sprintf("build zap logger instance: %v", err))
	}

	return l
}

func logEncoding(configured string) string {
	if configured != "" {
		return configured
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return "console"
	}
	return "json"
}

func serverConfig(v *viper.Viper) server.Config {
	return server.Config{
		Host:              v.GetString(cfgHost),
		HTTPPort:          v.GetInt(cfgHTTPPort),
		HTTPSPort:         v.GetInt(cfgHTTPSPort),
		ReadTimeout:       v.GetDuration(cfgReadTimeout),
		ReadHeaderTimeout: v.GetDuration(cfgReadHeaderTimeout),
		WriteTimeout:      v.GetDuration(cfgWriteTimeout),
		IdleTimeout:       v.GetDuration(cfgIdleTimeout),
		MaxHeaderBytes:    v.GetInt(cfgMaxHeaderBytes),
		ShutdownTimeout:   v.GetDuration(cfgShutdownTimeout),
	}
}
