// Package server brings up the plaintext and TLS listeners sharing a single
// request router and drives them until shutdown.
package server

import (
	"net"
	"strconv"
	"time"
)

const (
	DefaultHost      = "127.0.0.1"
	DefaultHTTPPort  = 8080
	DefaultHTTPSPort = 8443

	DefaultReadTimeout       = 30 * time.Second
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 2 * time.Minute
	DefaultMaxHeaderBytes    = 8 * 1024
	DefaultShutdownTimeout   = 5 * time.Second
)

// Config holds listener parameters. Zero ports ask the OS for an ephemeral
// one, the actual address is available via Server.Addr.
type Config struct {
	Host      string
	HTTPPort  int
	HTTPSPort int

	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// ShutdownTimeout bounds in-flight request draining in Server.Run.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:              DefaultHost,
		HTTPPort:          DefaultHTTPPort,
		HTTPSPort:         DefaultHTTPSPort,
		ReadTimeout:       DefaultReadTimeout,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		MaxHeaderBytes:    DefaultMaxHeaderBytes,
		ShutdownTimeout:   DefaultShutdownTimeout,
	}
}

// Protocol is the transport of a listener.
type Protocol uint8

const (
	ProtocolPlain Protocol = iota
	ProtocolTLS
)

func (p Protocol) String() string {
	switch p {
	case ProtocolPlain:
		return "plaintext"
	case ProtocolTLS:
		return "tls"
	default:
		return "unknown"
	}
}

// Binding describes a socket the process accepts connections on.
type Binding struct {
	Host     string
	Port     int
	Protocol Protocol
}

// Address returns host:port of the binding.
func (b Binding) Address() string {
	return net.JoinHostPort(b.Host, strconv.Itoa(b.Port))
}

// Binding returns the binding for the given protocol.
func (c Config) Binding(p Protocol) Binding {
	port := c.HTTPPort
	if p == ProtocolTLS {
		port = c.HTTPSPort
	}
	return Binding{Host: c.Host, Port: port, Protocol: p}
}
