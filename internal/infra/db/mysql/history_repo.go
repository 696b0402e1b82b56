package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/cyberguardx/cyberguardx/internal/domain/scans"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

const scanColumns = `id, url, scanned_at, status, overall_grade, risk_score, risk_level,
       http_grade, ssl_grade, dns_grade,
       critical, high, medium, low, findings_total,
       recommendations, duration_ms, report_url`

// SaveScan insert/update a scan result. Results are immutable after the
// scan completes, the upsert only covers retried writes.
func (r *HistoryRepository) SaveScan(ctx context.Context, s *domain.ScanResult) error {
	const q = `
INSERT INTO scan_results
(` + scanColumns + `)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 status=VALUES(status),
 report_url=VALUES(report_url);
`
	recs, err := json.Marshal(s.Recommendations)
	if err != nil {
		return fmt.Errorf("encoding recommendations: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q,
		s.ID, s.Target, s.ScannedAt, s.Status, s.OverallGrade, s.RiskScore, s.RiskLevel,
		s.HTTPGrade, s.SSLGrade, s.DNSGrade,
		s.Counts.Critical, s.Counts.High, s.Counts.Medium, s.Counts.Low, s.Counts.Total,
		recs, s.DurationMS, s.ReportURL,
	)
	return err
}

// GetScan by ID
func (r *HistoryRepository) GetScan(ctx context.Context, id domain.ScanID) (*domain.ScanResult, error) {
	const q = `
SELECT ` + scanColumns + `
FROM scan_results
WHERE id=? LIMIT 1;
`
	s, err := scanRow(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return s, err
}

// ListScans newest first
func (r *HistoryRepository) ListScans(ctx context.Context, limit, offset int) ([]*domain.ScanResult, error) {
	const q = `
SELECT ` + scanColumns + `
FROM scan_results
ORDER BY scanned_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ScanResult
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveCheck appends an audit record for an email or URL check.
func (r *HistoryRepository) SaveCheck(ctx context.Context, c *domain.CheckRecord) error {
	const q = `
INSERT INTO check_records
(kind, subject, breached, phishing_score, risk_level, checked_at)
VALUES (?,?,?,?,?,?);
`
	var score sql.NullFloat64
	if c.PhishingScore != nil {
		score = sql.NullFloat64{Float64: *c.PhishingScore, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, q, c.Kind, c.Subject, c.Breached, score, c.RiskLevel, c.CheckedAt)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		c.ID = id
	}
	return nil
}

// ListChecks newest first
func (r *HistoryRepository) ListChecks(ctx context.Context, limit, offset int) ([]*domain.CheckRecord, error) {
	const q = `
SELECT id, kind, subject, breached, phishing_score, risk_level, checked_at
FROM check_records
ORDER BY checked_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.CheckRecord
	for rows.Next() {
		var c domain.CheckRecord
		var score sql.NullFloat64
		if err := rows.Scan(&c.ID, &c.Kind, &c.Subject, &c.Breached, &score, &c.RiskLevel, &c.CheckedAt); err != nil {
			return nil, err
		}
		if score.Valid {
			v := score.Float64
			c.PhishingScore = &v
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (*domain.ScanResult, error) {
	var s domain.ScanResult
	var crit, hi, med, lo, tot int
	var recs []byte
	if err := row.Scan(
		&s.ID, &s.Target, &s.ScannedAt, &s.Status, &s.OverallGrade, &s.RiskScore, &s.RiskLevel,
		&s.HTTPGrade, &s.SSLGrade, &s.DNSGrade,
		&crit, &hi, &med, &lo, &tot,
		&recs, &s.DurationMS, &s.ReportURL,
	); err != nil {
		return nil, err
	}
	s.Counts = domain.SeverityCounts{Critical: crit, High: hi, Medium: med, Low: lo, Total: tot}
	if len(recs) > 0 {
		if err := json.Unmarshal(recs, &s.Recommendations); err != nil {
			return nil, fmt.Errorf("decoding recommendations: %w", err)
		}
	}
	return &s, nil
}
