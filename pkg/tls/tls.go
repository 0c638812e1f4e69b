// Package tls prepares the certificate material for the HTTPS listener.
//
// Material is built once at startup, either from PEM files or as a
// self-signed localhost certificate, and handed to the server by reference.
package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"time"
)

// ErrIncompletePair is returned when only one of the certificate and key files is given.
var ErrIncompletePair = errors.New("both a certificate and a key file are required")

// DefaultValidity is the lifetime of a generated certificate.
const DefaultValidity = 365 * 24 * time.Hour

// Material is the certificate used by the HTTPS listener.
type Material struct {
	Certificate tls.Certificate
	// Leaf is the parsed server certificate.
	Leaf *x509.Certificate
	// CertPEM is the PEM encoded certificate, for clients that want to trust it.
	CertPEM []byte
	// SelfSigned is set when the material was generated rather than loaded.
	SelfSigned bool
}

// Load reads a PEM certificate and key. With both paths empty it generates a
// self-signed certificate for localhost instead.
func Load(certFile, keyFile string) (*Material, error) {
	switch {
	case certFile == "" && keyFile == "":
		return SelfSigned("localhost")
	case certFile == "" || keyFile == "":
		return nil, ErrIncompletePair
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	cert.Leaf = leaf
	return &Material{
		Certificate: cert,
		Leaf:        leaf,
		CertPEM:     pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Certificate[0]}),
	}, nil
}

// SelfSigned generates an ECDSA P-256 certificate valid for the given hosts,
// which may be DNS names or IP addresses. Loopback addresses are always included.
func SelfSigned(hosts ...string) (*Material, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"stubby"},
			CommonName:   "localhost",
		},
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(DefaultValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else if h != "" {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	return &Material{
		Certificate: tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf},
		Leaf:        leaf,
		CertPEM:     pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		SelfSigned:  true,
	}, nil
}

// ServerConfig returns a TLS config serving this material.
func (m *Material) ServerConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{m.Certificate},
		MinVersion:   tls.VersionTLS12,
	}
}

// CertPool returns a pool trusting this certificate.
func (m *Material) CertPool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(m.Leaf)
	return pool
}
