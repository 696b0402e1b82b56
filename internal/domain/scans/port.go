package scans

import "context"

// HistoryRepository port (interface for persistence). Implementations must
// support concurrent append and concurrent read without lost updates.
type HistoryRepository interface {
	SaveScan(ctx context.Context, s *ScanResult) error
	GetScan(ctx context.Context, id ScanID) (*ScanResult, error)
	ListScans(ctx context.Context, limit, offset int) ([]*ScanResult, error)

	SaveCheck(ctx context.Context, c *CheckRecord) error
	ListChecks(ctx context.Context, limit, offset int) ([]*CheckRecord, error)
}

// ProgressStore port for transient scan progress. Terminal snapshots are
// retained for a store-defined window and then expire.
type ProgressStore interface {
	Put(ctx context.Context, p *ScanProgress) error
	// Get returns ErrNotFound for unknown or expired scan ids.
	Get(ctx context.Context, id ScanID) (*ScanProgress, error)
}

// TargetScanner port (interface for the live website assessment). The
// progress callback fires once per completed phase; assessments must merge
// deterministically regardless of phase completion order.
type TargetScanner interface {
	Scan(ctx context.Context, target string, progress func(Phase)) (*Assessment, error)
}

// ReportStore port for full scan report artifacts.
type ReportStore interface {
	Put(ctx context.Context, key string, data []byte) (url string, err error)
}

// Analyst port for AI-generated report summaries.
type Analyst interface {
	Analyze(ctx context.Context, report []byte) (string, error)
}
