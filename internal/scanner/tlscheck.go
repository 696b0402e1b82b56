package scanner

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cyberguardx/cyberguardx/internal/domain/scans"
)

// Cipher suites considered weak (CBC with SHA1, 3DES, RC4).
var weakCiphers = map[uint16]bool{
	tls.TLS_RSA_WITH_RC4_128_SHA:                true,
	tls.TLS_RSA_WITH_3DES_EDE_CBC_SHA:           true,
	tls.TLS_RSA_WITH_AES_128_CBC_SHA:            true,
	tls.TLS_RSA_WITH_AES_256_CBC_SHA:            true,
	tls.TLS_ECDHE_RSA_WITH_RC4_128_SHA:          true,
	tls.TLS_ECDHE_RSA_WITH_3DES_EDE_CBC_SHA:     true,
	tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA:      true,
	tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA:      true,
	tls.TLS_ECDHE_ECDSA_WITH_RC4_128_SHA:        true,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA:    true,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA:    true,
}

const certExpiryWarning = 30 * 24 * time.Hour

// TLSCheck performs the passive TLS/SSL configuration check: a standard
// handshake, no exploits.
type TLSCheck struct {
	timeout time.Duration
	roots   *x509.CertPool
	logger  *logrus.Logger
}

func NewTLSCheck(timeout time.Duration, logger *logrus.Logger) *TLSCheck {
	if logger == nil {
		logger = logrus.New()
	}
	roots, _ := x509.SystemCertPool()
	return &TLSCheck{timeout: timeout, roots: roots, logger: logger}
}

func (t *TLSCheck) Check(ctx context.Context, target *url.URL) scans.CheckOutcome {
	if target.Scheme != "https" {
		return scans.CheckOutcome{
			Phase:  scans.PhaseTLS,
			Grade:  scans.GradeF,
			Score:  0,
			Issues: []string{"site is not served over HTTPS"},
			Recommendations: []scans.Recommendation{{
				Severity: scans.SeverityCritical,
				Category: "SSL",
				Text:     "Serve the site over HTTPS with a certificate from a trusted CA",
			}},
		}
	}

	host := target.Hostname()
	port := target.Port()
	if port == "" {
		port = "443"
	}
	addr := net.JoinHostPort(host, port)

	dialer := &net.Dialer{Timeout: t.timeout}
	// Handshake with verification disabled so misconfigured certificates
	// can still be inspected; trust is evaluated manually below.
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS10,
	})
	if err != nil {
		t.logger.WithError(err).WithField("target", addr).Warn("tls check degraded")
		return degradedOutcome(scans.PhaseTLS, "SSL", "TLS handshake failed: "+err.Error())
	}
	state := conn.ConnectionState()
	conn.Close()

	legacyAccepted := t.acceptsLegacyTLS(addr, host)

	return t.evaluate(host, state, legacyAccepted)
}

// acceptsLegacyTLS probes whether the server still negotiates TLS 1.0/1.1.
func (t *TLSCheck) acceptsLegacyTLS(addr, host string) bool {
	dialer := &net.Dialer{Timeout: t.timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: true,
		MinVersion:         tls.VersionTLS10,
		MaxVersion:         tls.VersionTLS11,
	})
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (t *TLSCheck) evaluate(host string, state tls.ConnectionState, legacyAccepted bool) scans.CheckOutcome {
	out := scans.CheckOutcome{
		Phase: scans.PhaseTLS,
		Score: 100,
	}
	deduct := func(points int, issue string, sev scans.Severity, advice string) {
		out.Score -= points
		out.Issues = append(out.Issues, issue)
		out.Recommendations = append(out.Recommendations, scans.Recommendation{
			Severity: sev, Category: "SSL", Text: advice,
		})
	}

	if state.Version < tls.VersionTLS12 {
		deduct(30, fmt.Sprintf("negotiated legacy protocol %s", tlsVersionName(state.Version)),
			scans.SeverityCritical, "Disable TLS 1.0/1.1; require TLS 1.2 or newer")
	} else if legacyAccepted {
		deduct(15, "server still accepts TLS 1.0/1.1",
			scans.SeverityHigh, "Disable TLS 1.0/1.1 support on the server")
	}

	if weakCiphers[state.CipherSuite] {
		deduct(15, "weak cipher suite negotiated: "+tls.CipherSuiteName(state.CipherSuite),
			scans.SeverityHigh, "Prefer AEAD cipher suites (AES-GCM, ChaCha20-Poly1305)")
	}

	if len(state.PeerCertificates) == 0 {
		deduct(40, "no certificate presented", scans.SeverityCritical,
			"Install a valid TLS certificate")
	} else {
		leaf := state.PeerCertificates[0]
		now := time.Now()

		if now.After(leaf.NotAfter) {
			deduct(30, "certificate expired "+leaf.NotAfter.Format("2006-01-02"),
				scans.SeverityCritical, "Renew the expired TLS certificate")
		} else if leaf.NotAfter.Sub(now) < certExpiryWarning {
			deduct(10, "certificate expires within 30 days",
				scans.SeverityMedium, "Renew the TLS certificate before it expires")
		}
		if now.Before(leaf.NotBefore) {
			deduct(20, "certificate not yet valid", scans.SeverityHigh,
				"Deploy a certificate with a valid notBefore date")
		}

		if err := leaf.VerifyHostname(host); err != nil {
			deduct(25, "certificate does not match hostname", scans.SeverityHigh,
				"Issue a certificate covering "+host)
		}

		opts := x509.VerifyOptions{
			DNSName:       host,
			Intermediates: x509.NewCertPool(),
			Roots:         t.roots,
		}
		for _, ic := range state.PeerCertificates[1:] {
			opts.Intermediates.AddCert(ic)
		}
		if _, err := leaf.Verify(opts); err != nil {
			deduct(25, "certificate chain not trusted: "+err.Error(),
				scans.SeverityHigh, "Use a certificate issued by a trusted CA with the full chain installed")
		}
	}

	out.Score = clampScore(out.Score)
	out.Grade = gradeFromScore(out.Score)
	return out
}

func tlsVersionName(v uint16) string {
	switch v {
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("0x%04x", v)
	}
}
