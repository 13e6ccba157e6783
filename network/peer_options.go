package network

import (
	"crypto/tls"
	"crypto/x509"
	"log/slog"
	"time"
)

// WithTimeout bounds how long Send keeps retrying. Zero means until the
// context ends.
func WithTimeout(timeout time.Duration) PeerOption {
	return func(p Peer) Peer {
		p.timeout = timeout
		return p
	}
}

// WithCertificate serves and sends over TLS, presenting cert.
func WithCertificate(cert tls.Certificate) PeerOption {
	return func(p Peer) Peer {
		p.tlsConfig = cloneTLS(p.tlsConfig)
		p.tlsConfig.Certificates = append(p.tlsConfig.Certificates, cert)
		return p
	}
}

// WithLimitedCAs only trusts, and only accepts clients signed by, the
// certificates in certPool.
func WithLimitedCAs(certPool *x509.CertPool) PeerOption {
	return func(p Peer) Peer {
		p.tlsConfig = cloneTLS(p.tlsConfig)
		p.tlsConfig.RootCAs = certPool
		p.tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
		p.tlsConfig.ClientCAs = certPool
		return p
	}
}

// WithInboxSize sets how many received messages may wait unread before
// senders are held back.
func WithInboxSize(n int) PeerOption {
	return func(p Peer) Peer {
		if n > 0 {
			p.inboxSize = n
		}
		return p
	}
}

func WithLogger(l *slog.Logger) PeerOption {
	return func(p Peer) Peer {
		p.logger = l
		return p
	}
}

func cloneTLS(c *tls.Config) *tls.Config {
	if c == nil {
		return &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return c.Clone()
}
