// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

// Package tls provides development TLS certificate generation and
// loading for serving the Helmgate API over HTTPS. Browsers only send
// Secure cookies over HTTPS, so local setups need a usable certificate
// without reaching for external tooling.
package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	stdtls "crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
)

// ServerCertName is the file stem for the API server certificate pair.
const ServerCertName = "api"

// CA holds a certificate authority certificate and private key.
type CA struct {
	Certificate *x509.Certificate
	PrivateKey  *ecdsa.PrivateKey
}

// ServerCert holds a server certificate and private key.
type ServerCert struct {
	Certificate *x509.Certificate
	PrivateKey  *ecdsa.PrivateKey
	Name        string
}

// GenerateCA creates a new root CA for local development certificates.
// The CA is valid for ten years.
func GenerateCA() (*CA, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, oops.Code("TLS_GENERATE_FAILED").Wrap(err)
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"Helmgate"},
			CommonName:   "Helmgate Dev CA",
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().AddDate(10, 0, 0),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
	}

	certBytes, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, oops.Code("TLS_GENERATE_FAILED").Wrap(err)
	}

	cert, err := x509.ParseCertificate(certBytes)
	if err != nil {
		return nil, oops.Code("TLS_GENERATE_FAILED").Wrap(err)
	}

	return &CA{Certificate: cert, PrivateKey: key}, nil
}

// GenerateServerCert creates a server certificate signed by the CA.
// localhost and 127.0.0.1 are always included; extra hosts may add DNS
// names or IP addresses. The certificate is valid for one year.
func GenerateServerCert(ca *CA, hosts []string) (*ServerCert, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, oops.Code("TLS_GENERATE_FAILED").Wrap(err)
	}

	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	dnsNames := []string{"localhost"}
	ipAddresses := []net.IP{net.ParseIP("127.0.0.1")}
	for _, host := range hosts {
		if host == "" {
			continue
		}
		if ip := net.ParseIP(host); ip != nil {
			ipAddresses = append(ipAddresses, ip)
			continue
		}
		dnsNames = append(dnsNames, host)
	}

	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"Helmgate"},
			CommonName:   "helmgate-" + ServerCertName,
		},
		NotBefore:   time.Now(),
		NotAfter:    time.Now().AddDate(1, 0, 0),
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:    dnsNames,
		IPAddresses: ipAddresses,
	}

	certBytes, err := x509.CreateCertificate(rand.Reader, template, ca.Certificate, &key.PublicKey, ca.PrivateKey)
	if err != nil {
		return nil, oops.Code("TLS_GENERATE_FAILED").Wrap(err)
	}

	cert, err := x509.ParseCertificate(certBytes)
	if err != nil {
		return nil, oops.Code("TLS_GENERATE_FAILED").Wrap(err)
	}

	return &ServerCert{Certificate: cert, PrivateKey: key, Name: ServerCertName}, nil
}

// SaveCertificates saves the CA and optionally a server certificate to
// the certs directory. The CA is saved as root-ca.crt and root-ca.key,
// the server certificate as {name}.crt and {name}.key.
func SaveCertificates(certsDir string, ca *CA, serverCert *ServerCert) error {
	if err := os.MkdirAll(certsDir, 0o700); err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("dir", certsDir).Wrap(err)
	}

	if err := saveCert(filepath.Join(certsDir, "root-ca.crt"), ca.Certificate); err != nil {
		return err
	}
	if err := saveKey(filepath.Join(certsDir, "root-ca.key"), ca.PrivateKey); err != nil {
		return err
	}

	if serverCert != nil {
		if err := saveCert(filepath.Join(certsDir, serverCert.Name+".crt"), serverCert.Certificate); err != nil {
			return err
		}
		if err := saveKey(filepath.Join(certsDir, serverCert.Name+".key"), serverCert.PrivateKey); err != nil {
			return err
		}
	}

	return nil
}

// LoadCA loads an existing CA from the certs directory.
func LoadCA(certsDir string) (*CA, error) {
	certPEM, err := os.ReadFile(filepath.Clean(filepath.Join(certsDir, "root-ca.crt")))
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").Wrap(err)
	}
	keyPEM, err := os.ReadFile(filepath.Clean(filepath.Join(certsDir, "root-ca.key")))
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").Wrap(err)
	}

	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, oops.Code("TLS_LOAD_FAILED").Errorf("decode CA certificate PEM")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").Wrap(err)
	}

	block, _ = pem.Decode(keyPEM)
	if block == nil {
		return nil, oops.Code("TLS_LOAD_FAILED").Errorf("decode CA key PEM")
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").Wrap(err)
	}

	return &CA{Certificate: cert, PrivateKey: key}, nil
}

// ServerFiles returns the certificate and key paths for the API server
// certificate in the certs directory.
func ServerFiles(certsDir string) (certFile, keyFile string) {
	return filepath.Join(certsDir, ServerCertName+".crt"),
		filepath.Join(certsDir, ServerCertName+".key")
}

// LoadServerConfig loads a server TLS configuration from a certificate
// and key file pair.
func LoadServerConfig(certFile, keyFile string) (*stdtls.Config, error) {
	cert, err := stdtls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, oops.Code("TLS_LOAD_FAILED").
			With("cert_file", certFile).
			With("key_file", keyFile).
			Wrap(err)
	}
	return &stdtls.Config{
		Certificates: []stdtls.Certificate{cert},
		MinVersion:   stdtls.VersionTLS12,
	}, nil
}

func randomSerial() (*big.Int, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, oops.Code("TLS_GENERATE_FAILED").Wrap(err)
	}
	return serial, nil
}

func saveCert(path string, cert *x509.Certificate) error {
	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("path", path).Wrap(err)
	}

	if err := pem.Encode(f, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}); err != nil {
		_ = f.Close() //nolint:errcheck // encode error takes precedence
		return oops.Code("TLS_SAVE_FAILED").With("path", path).Wrap(err)
	}

	if err := f.Close(); err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

func saveKey(path string, key *ecdsa.PrivateKey) error {
	keyBytes, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return oops.Code("TLS_SAVE_FAILED").Wrap(err)
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("path", path).Wrap(err)
	}

	if err := pem.Encode(f, &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes}); err != nil {
		_ = f.Close() //nolint:errcheck // encode error takes precedence
		return oops.Code("TLS_SAVE_FAILED").With("path", path).Wrap(err)
	}

	if err := f.Close(); err != nil {
		return oops.Code("TLS_SAVE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
