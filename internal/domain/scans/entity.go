package scans

import (
	"time"

	"github.com/cyberguardx/cyberguardx/internal/domain/risk"
)

// ID tipe for a website scan
type ScanID string

// Status enum for the scan lifecycle
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether a status will never change again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Phase enum, the three independent sub-checks of a website scan
type Phase string

const (
	PhaseHeaders Phase = "headers"
	PhaseTLS     Phase = "tls"
	PhaseDNS     Phase = "dns"
)

// Grade is a letter-scale summary of a single scan dimension.
type Grade string

const (
	GradeA    Grade = "A"
	GradeB    Grade = "B"
	GradeC    Grade = "C"
	GradeD    Grade = "D"
	GradeF    Grade = "F"
	GradeNone Grade = "N/A"
)

// Severity enum for issues and recommendations
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// SeverityCounts value object
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Total    int `json:"total"`
}

// Add increments the bucket for sev. Total always moves with it, so the
// counts stay consistent with the recommendation list they are derived from.
func (c *SeverityCounts) Add(sev Severity) {
	switch sev {
	case SeverityCritical:
		c.Critical++
	case SeverityHigh:
		c.High++
	case SeverityMedium:
		c.Medium++
	default:
		c.Low++
	}
	c.Total++
}

// Recommendation is a single remediation item. Each recommendation maps to
// exactly one counted issue.
type Recommendation struct {
	Severity Severity `json:"severity"`
	Category string   `json:"category"` // HTTP | SSL | DNS
	Text     string   `json:"text"`
}

// Aggregate Root: ScanResult. Immutable once written.
type ScanResult struct {
	ID              ScanID           `json:"scan_id"`
	Target          string           `json:"url"`
	ScannedAt       time.Time        `json:"scanned_at"`
	Status          Status           `json:"status"`
	OverallGrade    Grade            `json:"overall_grade"`
	RiskScore       int              `json:"risk_score"` // 0 best, 100 worst
	RiskLevel       risk.Level       `json:"risk_level"`
	HTTPGrade       Grade            `json:"http_grade"`
	SSLGrade        Grade            `json:"ssl_grade"`
	DNSGrade        Grade            `json:"dns_grade"`
	Counts          SeverityCounts   `json:"counts"`
	Recommendations []Recommendation `json:"recommendations"`
	DurationMS      int64            `json:"scan_duration_ms"`
	ReportURL       string           `json:"report_url,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// ScanProgress is the transient per-scan progress snapshot. It is mutated
// only by the orchestrator goroutine owning the scan; readers get
// eventually-consistent copies.
type ScanProgress struct {
	ScanID               ScanID    `json:"scan_id"`
	Target               string    `json:"url"`
	Status               Status    `json:"status"`
	Phase                string    `json:"current_step"`
	Percent              int       `json:"progress_percentage"`
	Completed            []string  `json:"completed_steps"`
	Remaining            []string  `json:"remaining_steps"`
	StartedAt            time.Time `json:"started_at"`
	UpdatedAt            time.Time `json:"last_update"`
	EstimatedSecondsLeft int       `json:"estimated_seconds_remaining"`
	Error                string    `json:"error,omitempty"`
}

// CheckKind distinguishes audit records of the lightweight checkers.
type CheckKind string

const (
	CheckEmail CheckKind = "email"
	CheckURL   CheckKind = "url"
)

// CheckRecord is the audit trail row for an email or URL check. Appended
// best-effort; a failed append never fails the request.
type CheckRecord struct {
	ID            int64      `json:"id"`
	Kind          CheckKind  `json:"kind"`
	Subject       string     `json:"subject"`
	Breached      bool       `json:"breached"`
	PhishingScore *float64   `json:"phishing_score,omitempty"`
	RiskLevel     risk.Level `json:"risk_level"`
	CheckedAt     time.Time  `json:"checked_at"`
}
