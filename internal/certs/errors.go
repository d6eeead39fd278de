package certs

import (
	"errors"
	"fmt"
)

var (
	// ErrCertFileUnreadable is returned when the certificate chain file can't
	// be opened or read.
	ErrCertFileUnreadable = errors.New("certificate file unreadable")
	// ErrKeyFileUnreadable is returned when the private key file can't be
	// opened or read.
	ErrKeyFileUnreadable = errors.New("private key file unreadable")
	// ErrNoPrivateKey is returned when the key file holds no PKCS#8 private
	// key blocks.
	ErrNoPrivateKey = errors.New("no PKCS#8 private keys found")
	// ErrConfigConstruction is returned when the chain and the key can't be
	// combined into a TLS server configuration.
	ErrConfigConstruction = errors.New("TLS configuration construction failed")
)

// LoadError describes a failed certificate load. It matches both its Reason
// (one of the Err* values of this package) and the underlying cause with
// errors.Is.
type LoadError struct {
	Reason error
	Path   string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Path, e.Reason)
	}
	return fmt.Sprintf("%s: %v: %v", e.Path, e.Reason, e.Err)
}

func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

// Reason returns the Err* value of this package err was caused by, or nil
// if err is not a certificate load error.
func Reason(err error) error {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Reason
	}
	return nil
}
