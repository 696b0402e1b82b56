package scanner

import (
	"sort"

	"github.com/cyberguardx/cyberguardx/internal/domain/scans"
)

// Dimension weights for the aggregate risk score.
const (
	weightHTTP = 0.35
	weightSSL  = 0.40
	weightDNS  = 0.25
)

var severityRank = map[scans.Severity]int{
	scans.SeverityCritical: 0,
	scans.SeverityHigh:     1,
	scans.SeverityMedium:   2,
	scans.SeverityLow:      3,
}

// gradeFromScore maps a 0-100 dimension score (100 best) to a letter grade.
func gradeFromScore(score int) scans.Grade {
	switch {
	case score >= 95:
		return scans.GradeA
	case score >= 85:
		return scans.GradeB
	case score >= 70:
		return scans.GradeC
	case score >= 50:
		return scans.GradeD
	default:
		return scans.GradeF
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// degradedOutcome is the worst-case result a sub-check collapses to when it
// cannot complete. The sibling checks are unaffected.
func degradedOutcome(phase scans.Phase, category, reason string) scans.CheckOutcome {
	return scans.CheckOutcome{
		Phase:    phase,
		Grade:    scans.GradeF,
		Score:    0,
		Issues:   []string{reason},
		Degraded: true,
		Reason:   reason,
		Recommendations: []scans.Recommendation{{
			Severity: scans.SeverityHigh,
			Category: category,
			Text:     "Check could not complete: " + reason + "; re-scan once the target is reachable",
		}},
	}
}

// merge combines the three sub-check outcomes into the aggregate assessment.
// It always processes the dimensions in a fixed order, so the result is
// deterministic regardless of which check finished first. The severity
// counts are derived by counting recommendation tags, keeping both views of
// the issue list consistent.
func merge(target, host string, http, ssl, dns scans.CheckOutcome) *scans.Assessment {
	a := &scans.Assessment{
		Target: target,
		Host:   host,
		HTTP:   http,
		SSL:    ssl,
		DNS:    dns,
	}

	// risk contribution of a dimension is the inverse of its score
	weighted := weightHTTP*float64(100-http.Score) +
		weightSSL*float64(100-ssl.Score) +
		weightDNS*float64(100-dns.Score)
	a.RiskScore = clampScore(int(weighted))
	a.OverallGrade = gradeFromScore(100 - a.RiskScore)

	for _, outcome := range []scans.CheckOutcome{http, ssl, dns} {
		for _, rec := range outcome.Recommendations {
			a.Recommendations = append(a.Recommendations, rec)
			a.Counts.Add(rec.Severity)
		}
	}
	sort.SliceStable(a.Recommendations, func(i, j int) bool {
		return severityRank[a.Recommendations[i].Severity] < severityRank[a.Recommendations[j].Severity]
	})

	return a
}
