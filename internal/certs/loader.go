// Package certs reads PEM-encoded certificate chains and PKCS#8 private keys
// from disk and turns them into server-side TLS configurations.
package certs

import (
	"crypto/tls"
	"encoding/pem"
	"os"
)

const (
	pemCertificate = "CERTIFICATE"
	pemPrivateKey  = "PRIVATE KEY"
)

// Material is the decoded content of a certificate chain file and a private
// key file.
type Material struct {
	// Chain holds DER-encoded certificates in file order, leaf first.
	Chain [][]byte
	// Key is the DER-encoded PKCS#8 private key, the first one found in the
	// key file.
	Key []byte
}

// Load reads the certificate chain from certPath and the private key from
// keyPath and builds a TLS server configuration out of them. Every failure
// is reported as *LoadError.
func Load(certPath, keyPath string) (*tls.Config, error) {
	m, err := ReadMaterial(certPath, keyPath)
	if err != nil {
		return nil, err
	}

	cfg, err := m.TLSConfig()
	if err != nil {
		return nil, &LoadError{Reason: ErrConfigConstruction, Path: certPath, Err: err}
	}
	return cfg, nil
}

// ReadMaterial reads and decodes both files. An empty chain is accepted here
// and rejected later by TLSConfig, while a key file without PKCS#8 keys
// fails with ErrNoPrivateKey. Extra keys are ignored.
func ReadMaterial(certPath, keyPath string) (*Material, error) {
	certData, err := os.ReadFile(certPath)
	if err != nil {
		return nil, &LoadError{Reason: ErrCertFileUnreadable, Path: certPath, Err: err}
	}

	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, &LoadError{Reason: ErrKeyFileUnreadable, Path: keyPath, Err: err}
	}

	keys := ParsePrivateKeys(keyData)
	if len(keys) == 0 {
		return nil, &LoadError{Reason: ErrNoPrivateKey, Path: keyPath}
	}

	return &Material{
		Chain: ParseCertificates(certData),
		Key:   keys[0],
	}, nil
}

// ParseCertificates returns DER bytes of every CERTIFICATE block in data.
func ParseCertificates(data []byte) [][]byte {
	return blocks(data, pemCertificate)
}

// ParsePrivateKeys returns DER bytes of every PKCS#8 PRIVATE KEY block in
// data. PKCS#1 and SEC 1 blocks are skipped.
func ParsePrivateKeys(data []byte) [][]byte {
	return blocks(data, pemPrivateKey)
}

func blocks(data []byte, typ string) [][]byte {
	var res [][]byte
	for {
		var b *pem.Block
		b, data = pem.Decode(data)
		if b == nil {
			return res
		}
		if b.Type == typ {
			res = append(res, b.Bytes)
		}
	}
}

// Certificate combines the chain and the key, checking that the key matches
// the leaf certificate.
func (m *Material) Certificate() (tls.Certificate, error) {
	var certPEM []byte
	for _, der := range m.Chain {
		certPEM = append(certPEM, pem.EncodeToMemory(&pem.Block{Type: pemCertificate, Bytes: der})...)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: pemPrivateKey, Bytes: m.Key})

	return tls.X509KeyPair(certPEM, keyPEM)
}

// TLSConfig builds a server-authentication-only TLS configuration. Cipher
// suites are left to the runtime defaults.
func (m *Material) TLSConfig() (*tls.Config, error) {
	cert, err := m.Certificate()
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.NoClientCert,
		MinVersion:   tls.VersionTLS12,
	}, nil
}
