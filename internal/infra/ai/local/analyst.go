package local

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	domain "github.com/cyberguardx/cyberguardx/internal/domain/scans"
)

// Analyst is a deterministic, offline fallback for the OpenAI analyst.
// It derives a prioritized action plan from the scan report alone, so
// deployments without an API key still get a usable summary.
type Analyst struct{}

func New() *Analyst { return &Analyst{} }

type action struct {
	Title     string `json:"title"`
	Severity  string `json:"severity"`
	Rationale string `json:"rationale"`
}

type output struct {
	Summary            string   `json:"summary"`
	OverallAssessment  string   `json:"overall_assessment"`
	PrioritizedActions []action `json:"prioritized_actions"`
	Advice             string   `json:"advice"`
}

const maxActions = 5

// Analyze parses the scan report and returns a schema-compliant JSON
// summary. It never fails on well-formed reports.
func (a *Analyst) Analyze(_ context.Context, report []byte) (string, error) {
	var scan domain.ScanResult
	if err := json.Unmarshal(report, &scan); err != nil {
		return "", fmt.Errorf("parsing scan report: %w", err)
	}

	out := output{
		OverallAssessment: assessment(scan),
		Summary:           summary(scan),
		Advice:            advice(scan),
	}

	// Recommendations arrive sorted by severity; keep the top of the list.
	for _, rec := range scan.Recommendations {
		if len(out.PrioritizedActions) == maxActions {
			break
		}
		out.PrioritizedActions = append(out.PrioritizedActions, action{
			Title:     rec.Text,
			Severity:  string(rec.Severity),
			Rationale: fmt.Sprintf("Flagged by the %s check of the automated scan.", strings.ToLower(rec.Category)),
		})
	}

	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encoding analysis: %w", err)
	}
	return string(b), nil
}

func assessment(scan domain.ScanResult) string {
	switch {
	case scan.Counts.Critical > 0:
		return "critical"
	case scan.Counts.High > 0:
		return "high"
	case scan.Counts.Medium > 0:
		return "medium"
	case scan.Counts.Low > 0:
		return "low"
	default:
		return "info"
	}
}

func summary(scan domain.ScanResult) string {
	if scan.Counts.Total == 0 {
		return fmt.Sprintf("The scan of %s found no security issues. The site earned an overall grade of %s.",
			scan.Target, scan.OverallGrade)
	}
	parts := make([]string, 0, 4)
	if scan.Counts.Critical > 0 {
		parts = append(parts, fmt.Sprintf("%d critical", scan.Counts.Critical))
	}
	if scan.Counts.High > 0 {
		parts = append(parts, fmt.Sprintf("%d high", scan.Counts.High))
	}
	if scan.Counts.Medium > 0 {
		parts = append(parts, fmt.Sprintf("%d medium", scan.Counts.Medium))
	}
	if scan.Counts.Low > 0 {
		parts = append(parts, fmt.Sprintf("%d low", scan.Counts.Low))
	}
	return fmt.Sprintf("The scan of %s found %d issue(s): %s. Overall grade %s with a risk score of %d out of 100 (HTTP %s, SSL %s, DNS %s).",
		scan.Target, scan.Counts.Total, strings.Join(parts, ", "),
		scan.OverallGrade, scan.RiskScore, scan.HTTPGrade, scan.SSLGrade, scan.DNSGrade)
}

func advice(scan domain.ScanResult) string {
	switch {
	case scan.Counts.Critical > 0:
		return "Address the critical findings immediately; they leave the site exposed to well-known attacks. Re-run the scan after each fix to confirm the issue is resolved."
	case scan.Counts.High > 0:
		return "Schedule the high severity fixes for this week and re-run the scan afterwards. The remaining items can follow in the next maintenance window."
	case scan.Counts.Total > 0:
		return "The site is in reasonable shape. Work through the remaining items during routine maintenance and re-scan periodically."
	default:
		return "Keep the current configuration under change control and re-scan after infrastructure or DNS changes."
	}
}
