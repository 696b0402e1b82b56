package scanner

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cyberguardx/cyberguardx/internal/domain/scans"
)

// headerSpec describes one security header the posture check looks for.
type headerSpec struct {
	name     string
	severity scans.Severity
	points   int // deducted from the dimension score when missing
	advice   string
}

// Ordered by severity; HSTS only applies to HTTPS targets.
var securityHeaders = []headerSpec{
	{"Strict-Transport-Security", scans.SeverityCritical, 20,
		"add Strict-Transport-Security to force HTTPS and prevent downgrade attacks"},
	{"Content-Security-Policy", scans.SeverityCritical, 20,
		"add Content-Security-Policy to mitigate XSS and injection attacks"},
	{"X-Frame-Options", scans.SeverityHigh, 15,
		"add X-Frame-Options (DENY or SAMEORIGIN) to prevent clickjacking"},
	{"X-Content-Type-Options", scans.SeverityMedium, 10,
		"add X-Content-Type-Options: nosniff to prevent MIME sniffing"},
	{"Referrer-Policy", scans.SeverityMedium, 10,
		"add Referrer-Policy to limit referrer information leakage"},
	{"Permissions-Policy", scans.SeverityMedium, 10,
		"add Permissions-Policy to restrict browser features"},
	{"Cross-Origin-Opener-Policy", scans.SeverityLow, 5,
		"add Cross-Origin-Opener-Policy: same-origin to isolate the browsing context"},
	{"X-XSS-Protection", scans.SeverityLow, 5,
		"add X-XSS-Protection: 1; mode=block for legacy browsers"},
}

// HeaderCheck performs the passive HTTP security header posture check.
// Standard requests only, response headers only.
type HeaderCheck struct {
	client *http.Client
	logger *logrus.Logger
}

func NewHeaderCheck(timeout time.Duration, logger *logrus.Logger) *HeaderCheck {
	if logger == nil {
		logger = logrus.New()
	}
	return &HeaderCheck{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		logger: logger,
	}
}

func (h *HeaderCheck) Check(ctx context.Context, target *url.URL) scans.CheckOutcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return degradedOutcome(scans.PhaseHeaders, "HTTP", err.Error())
	}
	req.Header.Set("User-Agent", "CyberGuardX-Scanner/2.0")

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.WithError(err).WithField("target", target.Host).
			Warn("header check degraded")
		return degradedOutcome(scans.PhaseHeaders, "HTTP", "HTTP request failed: "+err.Error())
	}
	defer resp.Body.Close()

	return evaluateHeaders(resp.Header, target.Scheme == "https")
}

// evaluateHeaders grades a response header set. Pure, unit-testable.
func evaluateHeaders(hdr http.Header, isHTTPS bool) scans.CheckOutcome {
	out := scans.CheckOutcome{
		Phase: scans.PhaseHeaders,
		Score: 100,
	}

	for _, spec := range securityHeaders {
		if spec.name == "Strict-Transport-Security" && !isHTTPS {
			continue
		}
		if hdr.Get(spec.name) != "" {
			continue
		}
		out.Score -= spec.points
		out.Issues = append(out.Issues, "missing "+spec.name)
		out.Recommendations = append(out.Recommendations, scans.Recommendation{
			Severity: spec.severity,
			Category: "HTTP",
			Text:     spec.name + ": " + spec.advice,
		})
	}

	// Version strings in the Server header help attackers fingerprint
	// known-vulnerable builds.
	if server := hdr.Get("Server"); strings.Contains(server, "/") {
		out.Issues = append(out.Issues, "server version disclosed: "+server)
		out.Recommendations = append(out.Recommendations, scans.Recommendation{
			Severity: scans.SeverityLow,
			Category: "HTTP",
			Text:     "Server: remove the version string from the Server header",
		})
		out.Score -= 2
	}

	out.Score = clampScore(out.Score)
	out.Grade = gradeFromScore(out.Score)
	return out
}
