// Package scanner performs the live website assessment: HTTP header
// posture, TLS configuration and DNS security records. All checks are
// passive; the scanner never sends payloads.
package scanner

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cyberguardx/cyberguardx/internal/domain/scans"
)

// Options tune the per-check network behavior.
type Options struct {
	CheckTimeout time.Duration // budget for each sub-check
	DNSServers   []string
}

func (o *Options) withDefaults() {
	if o.CheckTimeout <= 0 {
		o.CheckTimeout = 10 * time.Second
	}
}

// WebsiteScanner runs the three sub-checks concurrently against one target
// and merges their outcomes deterministically. Implements
// scans.TargetScanner.
type WebsiteScanner struct {
	headers interface {
		Check(ctx context.Context, target *url.URL) scans.CheckOutcome
	}
	tls interface {
		Check(ctx context.Context, target *url.URL) scans.CheckOutcome
	}
	dns interface {
		Check(ctx context.Context, domain string) scans.CheckOutcome
	}
	resolver *net.Resolver
	timeout  time.Duration
	logger   *logrus.Logger
}

func New(opts Options, logger *logrus.Logger) *WebsiteScanner {
	if logger == nil {
		logger = logrus.New()
	}
	opts.withDefaults()
	return &WebsiteScanner{
		headers:  NewHeaderCheck(opts.CheckTimeout, logger),
		tls:      NewTLSCheck(opts.CheckTimeout, logger),
		dns:      NewDNSCheck(opts.DNSServers, opts.CheckTimeout, logger),
		resolver: net.DefaultResolver,
		timeout:  opts.CheckTimeout,
		logger:   logger,
	}
}

// ParseTarget validates a scan target URL.
func ParseTarget(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scans.ErrInvalidInput, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: target must be an http(s) URL with a host", scans.ErrInvalidInput)
	}
	return u, nil
}

// Scan assesses one target. The progress callback fires once per completed
// phase, always from the calling goroutine. Individual sub-check failures
// degrade that dimension only; Scan fails as a whole only when the target
// cannot be resolved at all.
func (s *WebsiteScanner) Scan(ctx context.Context, target string, progress func(scans.Phase)) (*scans.Assessment, error) {
	u, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	host := u.Hostname()

	// Pre-flight resolution: the only whole-scan fatal condition.
	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	addrs, err := s.resolver.LookupHost(rctx, host)
	cancel()
	if err != nil || len(addrs) == 0 {
		return nil, fmt.Errorf("%w: cannot resolve %s: %v", scans.ErrTargetUnreachable, host, err)
	}

	type phaseResult struct {
		phase   scans.Phase
		outcome scans.CheckOutcome
	}
	results := make(chan phaseResult, 3)

	g, gctx := errgroup.WithContext(ctx)
	run := func(phase scans.Phase, check func(context.Context) scans.CheckOutcome) {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, s.timeout)
			defer cancel()
			results <- phaseResult{phase: phase, outcome: check(cctx)}
			return nil
		})
	}
	run(scans.PhaseHeaders, func(ctx context.Context) scans.CheckOutcome { return s.headers.Check(ctx, u) })
	run(scans.PhaseTLS, func(ctx context.Context) scans.CheckOutcome { return s.tls.Check(ctx, u) })
	run(scans.PhaseDNS, func(ctx context.Context) scans.CheckOutcome { return s.dns.Check(ctx, host) })

	outcomes := make(map[scans.Phase]scans.CheckOutcome, 3)
	for i := 0; i < 3; i++ {
		r := <-results
		outcomes[r.phase] = r.outcome
		if progress != nil {
			progress(r.phase)
		}
	}
	_ = g.Wait()

	for phase, o := range outcomes {
		if o.Degraded {
			s.logger.WithFields(logrus.Fields{
				"target": host,
				"phase":  phase,
				"reason": o.Reason,
			}).Warn("sub-check degraded to worst-case grade")
		}
	}

	return merge(target, host,
		outcomes[scans.PhaseHeaders],
		outcomes[scans.PhaseTLS],
		outcomes[scans.PhaseDNS],
	), nil
}
