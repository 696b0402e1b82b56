package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	mdns "github.com/miekg/dns"
	"github.com/sirupsen/logrus"

	"github.com/cyberguardx/cyberguardx/internal/domain/scans"
)

var defaultDNSServers = []string{"8.8.8.8:53", "1.1.1.1:53"}

// dnsPosture is everything the check learned about a domain's records.
type dnsPosture struct {
	hasSPF         bool
	spfPermissive  bool // +all or ?all
	spfNoFail      bool // missing -all/~all
	hasDMARC       bool
	dmarcPolicy    string
	hasMX          bool
	hasCAA         bool
	hasDNSKEY      bool
}

// DNSCheck performs the passive DNS security records check: standard
// queries against public resolvers, no zone transfers.
type DNSCheck struct {
	servers []string
	client  *mdns.Client
	logger  *logrus.Logger
}

func NewDNSCheck(servers []string, timeout time.Duration, logger *logrus.Logger) *DNSCheck {
	if logger == nil {
		logger = logrus.New()
	}
	if len(servers) == 0 {
		servers = defaultDNSServers
	}
	return &DNSCheck{
		servers: servers,
		client: &mdns.Client{
			Net:          "udp",
			Timeout:      timeout,
			DialTimeout:  timeout,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
			UDPSize:      1232,
		},
		logger: logger,
	}
}

func (d *DNSCheck) Check(ctx context.Context, domain string) scans.CheckOutcome {
	fqdn := mdns.Fqdn(domain)

	txt, err := d.queryTXT(ctx, fqdn)
	if err != nil {
		d.logger.WithError(err).WithField("domain", domain).Warn("dns check degraded")
		return degradedOutcome(scans.PhaseDNS, "DNS", "DNS query failed: "+err.Error())
	}

	var p dnsPosture
	evaluateSPF(txt, &p)

	dmarcTXT, err := d.queryTXT(ctx, "_dmarc."+fqdn)
	if err == nil {
		evaluateDMARC(dmarcTXT, &p)
	}

	if mx, err := d.query(ctx, fqdn, mdns.TypeMX); err == nil && len(mx) > 0 {
		p.hasMX = true
	}
	if caa, err := d.query(ctx, fqdn, mdns.TypeCAA); err == nil && len(caa) > 0 {
		p.hasCAA = true
	}
	if key, err := d.query(ctx, fqdn, mdns.TypeDNSKEY); err == nil && len(key) > 0 {
		p.hasDNSKEY = true
	}

	return evaluatePosture(p)
}

// query resolves one record type, trying each configured server in order.
func (d *DNSCheck) query(ctx context.Context, fqdn string, qtype uint16) ([]mdns.RR, error) {
	msg := new(mdns.Msg)
	msg.SetQuestion(fqdn, qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range d.servers {
		resp, _, err := d.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Truncated {
			tcp := *d.client
			tcp.Net = "tcp"
			if retcp, _, err := tcp.ExchangeContext(ctx, msg, server); err == nil {
				resp = retcp
			}
		}
		if resp.Rcode == mdns.RcodeNameError {
			return nil, nil // NXDOMAIN means the record set is absent
		}
		if resp.Rcode != mdns.RcodeSuccess {
			lastErr = fmt.Errorf("dns rcode %s from %s", mdns.RcodeToString[resp.Rcode], server)
			continue
		}
		return resp.Answer, nil
	}
	return nil, lastErr
}

func (d *DNSCheck) queryTXT(ctx context.Context, fqdn string) ([]string, error) {
	answers, err := d.query(ctx, fqdn, mdns.TypeTXT)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, rr := range answers {
		if txt, ok := rr.(*mdns.TXT); ok {
			out = append(out, strings.Join(txt.Txt, ""))
		}
	}
	return out, nil
}

// evaluateSPF inspects TXT records for an SPF policy. Pure.
func evaluateSPF(txtRecords []string, p *dnsPosture) {
	for _, rec := range txtRecords {
		rec = strings.TrimSpace(rec)
		if !strings.HasPrefix(rec, "v=spf1") {
			continue
		}
		p.hasSPF = true
		if strings.Contains(rec, "+all") || strings.Contains(rec, "?all") {
			p.spfPermissive = true
		}
		if !strings.Contains(rec, "-all") && !strings.Contains(rec, "~all") {
			p.spfNoFail = true
		}
		return
	}
}

// evaluateDMARC inspects _dmarc TXT records. Pure.
func evaluateDMARC(txtRecords []string, p *dnsPosture) {
	for _, rec := range txtRecords {
		rec = strings.TrimSpace(rec)
		if !strings.HasPrefix(rec, "v=DMARC1") {
			continue
		}
		p.hasDMARC = true
		for _, field := range strings.Split(rec, ";") {
			field = strings.TrimSpace(field)
			if strings.HasPrefix(field, "p=") {
				p.dmarcPolicy = strings.ToLower(strings.TrimPrefix(field, "p="))
			}
		}
		return
	}
}

// evaluatePosture turns the collected records into the DNS outcome. Pure.
func evaluatePosture(p dnsPosture) scans.CheckOutcome {
	out := scans.CheckOutcome{
		Phase: scans.PhaseDNS,
		Score: 100,
	}
	deduct := func(points int, issue string, sev scans.Severity, advice string) {
		out.Score -= points
		out.Issues = append(out.Issues, issue)
		out.Recommendations = append(out.Recommendations, scans.Recommendation{
			Severity: sev, Category: "DNS", Text: advice,
		})
	}

	// Missing mail policies matter less for domains that receive no mail.
	mailSeverity := scans.SeverityHigh
	mailPoints := 12
	if !p.hasMX {
		mailSeverity = scans.SeverityMedium
		mailPoints = 6
	}

	switch {
	case !p.hasSPF:
		deduct(mailPoints, "no SPF record configured", mailSeverity,
			"Add an SPF record to prevent email spoofing")
	case p.spfPermissive:
		deduct(15, "SPF record too permissive (+all/?all)", scans.SeverityHigh,
			"Tighten SPF: end the record with ~all or -all")
	case p.spfNoFail:
		deduct(6, "SPF record missing a fail mechanism", scans.SeverityMedium,
			"End the SPF record with ~all or -all")
	}

	switch {
	case !p.hasDMARC:
		deduct(mailPoints, "no DMARC record configured", mailSeverity,
			"Add a DMARC record for email authentication")
	case p.dmarcPolicy == "none" || p.dmarcPolicy == "":
		deduct(7, "DMARC policy is monitoring-only", scans.SeverityMedium,
			"Move the DMARC policy to quarantine or reject")
	}

	if !p.hasDNSKEY {
		deduct(10, "DNSSEC not enabled", scans.SeverityMedium,
			"Enable DNSSEC signing for the zone")
	}
	if !p.hasCAA {
		deduct(5, "no CAA record", scans.SeverityLow,
			"Add a CAA record restricting which CAs may issue certificates")
	}

	out.Score = clampScore(out.Score)
	out.Grade = gradeFromScore(out.Score)
	return out
}
