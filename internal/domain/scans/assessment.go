package scans

// CheckOutcome is the result of one sub-check (headers, tls or dns).
// A sub-check that failed over the network is degraded to the worst-case
// grade with the reason recorded; it never aborts the sibling checks.
type CheckOutcome struct {
	Phase           Phase            `json:"phase"`
	Grade           Grade            `json:"grade"`
	Score           int              `json:"score"` // 0-100, 100 best
	Issues          []string         `json:"issues"`
	Recommendations []Recommendation `json:"recommendations"`
	Degraded        bool             `json:"degraded"`
	Reason          string           `json:"degraded_reason,omitempty"`
}

// Assessment is the merged output of a full website scan, before the
// orchestrator attaches identity, timing and persistence concerns.
type Assessment struct {
	Target          string           `json:"url"`
	Host            string           `json:"host"`
	HTTP            CheckOutcome     `json:"http"`
	SSL             CheckOutcome     `json:"ssl"`
	DNS             CheckOutcome     `json:"dns"`
	OverallGrade    Grade            `json:"overall_grade"`
	RiskScore       int              `json:"risk_score"`
	Counts          SeverityCounts   `json:"counts"`
	Recommendations []Recommendation `json:"recommendations"`
}
