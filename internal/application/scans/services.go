package scans

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cyberguardx/cyberguardx/internal/application"
	"github.com/cyberguardx/cyberguardx/internal/domain/risk"
	domain "github.com/cyberguardx/cyberguardx/internal/domain/scans"
)

// Human-readable phase labels for progress snapshots.
var phaseLabels = map[domain.Phase]string{
	domain.PhaseHeaders: "Checking HTTP security headers",
	domain.PhaseTLS:     "Analyzing SSL/TLS configuration",
	domain.PhaseDNS:     "Scanning DNS security records",
}

var allPhaseLabels = []string{
	phaseLabels[domain.PhaseHeaders],
	phaseLabels[domain.PhaseTLS],
	phaseLabels[domain.PhaseDNS],
}

// Service implements the website scan use-cases.
// Service is designed to be used concurrently and is thread-safe: each
// scan owns its progress record and the stores support concurrent access.
type Service struct {
	History  domain.HistoryRepository
	Progress domain.ProgressStore
	Scanner  domain.TargetScanner
	Reports  domain.ReportStore // optional, nil disables report artifacts
	Analyst  domain.Analyst     // optional, nil disables AI analysis
	Clock    application.Clock
	Logger   *logrus.Logger
}

// ScanWebsiteCommand carries a scan request. All three permission flags
// must be asserted before any network activity happens.
type ScanWebsiteCommand struct {
	URL                 string
	ConfirmedPermission bool
	OwnerConfirmation   bool
	LegalResponsibility bool
	ClientIP            string
}

func (s *Service) logger() *logrus.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return logrus.StandardLogger()
}

// ScanWebsite runs a full website scan synchronously, publishing progress
// after each phase. Lifecycle: pending -> running(phase) -> completed or
// failed. Only a successfully completed scan is appended to history.
func (s *Service) ScanWebsite(ctx context.Context, cmd ScanWebsiteCommand) (*domain.ScanResult, error) {
	if err := Authorize(cmd); err != nil {
		return nil, err
	}

	id := domain.ScanID(uuid.New().String())
	startedAt := s.Clock.Now()

	progress := &domain.ScanProgress{
		ScanID:    id,
		Target:    cmd.URL,
		Status:    domain.StatusPending,
		Phase:     "Validating target",
		Percent:   0,
		Remaining: append([]string(nil), allPhaseLabels...),
		StartedAt: startedAt,
		UpdatedAt: startedAt,
	}
	s.publish(ctx, progress)

	progress.Status = domain.StatusRunning
	progress.Phase = allPhaseLabels[0]
	progress.Percent = 10
	s.publish(ctx, progress)

	phasesDone := 0
	onPhase := func(p domain.Phase) {
		phasesDone++
		label := phaseLabels[p]
		progress.Completed = append(progress.Completed, label)
		progress.Remaining = remove(progress.Remaining, label)
		progress.Percent = 10 + phasesDone*27 // 37 / 64 / 91
		if len(progress.Remaining) > 0 {
			progress.Phase = progress.Remaining[0]
		} else {
			progress.Phase = "Generating report"
		}
		s.publish(ctx, progress)
	}

	assessment, err := s.Scanner.Scan(ctx, cmd.URL, onPhase)
	if err != nil {
		progress.Status = domain.StatusFailed
		progress.Error = err.Error()
		s.publish(ctx, progress)
		return nil, err
	}

	finishedAt := s.Clock.Now()
	result := &domain.ScanResult{
		ID:              id,
		Target:          cmd.URL,
		ScannedAt:       startedAt.UTC(),
		Status:          domain.StatusCompleted,
		OverallGrade:    assessment.OverallGrade,
		RiskScore:       assessment.RiskScore,
		RiskLevel:       risk.FromRiskScore(assessment.RiskScore),
		HTTPGrade:       assessment.HTTP.Grade,
		SSLGrade:        assessment.SSL.Grade,
		DNSGrade:        assessment.DNS.Grade,
		Counts:          assessment.Counts,
		Recommendations: assessment.Recommendations,
		DurationMS:      finishedAt.Sub(startedAt).Milliseconds(),
	}

	// The full report artifact is best-effort; the scan result stands on
	// its own when upload fails.
	if s.Reports != nil {
		if url, err := s.uploadReport(ctx, id, assessment); err != nil {
			s.logger().WithError(err).WithField("scan_id", id).Warn("report upload failed")
		} else {
			result.ReportURL = url
		}
	}

	if err := s.History.SaveScan(ctx, result); err != nil {
		progress.Status = domain.StatusFailed
		progress.Error = "failed to persist scan result"
		s.publish(ctx, progress)
		return nil, fmt.Errorf("saving scan result: %w", err)
	}

	progress.Status = domain.StatusCompleted
	progress.Phase = "Completed"
	progress.Percent = 100
	s.publish(ctx, progress)

	return result, nil
}

// GetProgress returns the progress snapshot for a scan. Unknown or expired
// ids yield domain.ErrNotFound.
func (s *Service) GetProgress(ctx context.Context, id domain.ScanID) (*domain.ScanProgress, error) {
	return s.Progress.Get(ctx, id)
}

// GetScan returns a stored scan result by id.
func (s *Service) GetScan(ctx context.Context, id domain.ScanID) (*domain.ScanResult, error) {
	return s.History.GetScan(ctx, id)
}

// HistoryList returns stored scan results, most recent first.
func (s *Service) HistoryList(ctx context.Context, limit, offset int) ([]*domain.ScanResult, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.History.ListScans(ctx, limit, offset)
}

// Analyze produces an AI analyst summary for a completed scan.
func (s *Service) Analyze(ctx context.Context, id domain.ScanID) (string, error) {
	if s.Analyst == nil {
		return "", domain.ErrAnalystDisabled
	}
	result, err := s.History.GetScan(ctx, id)
	if err != nil {
		return "", err
	}
	report, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return s.Analyst.Analyze(ctx, report)
}

func (s *Service) uploadReport(ctx context.Context, id domain.ScanID, a *domain.Assessment) (string, error) {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("scans/%s/%s.json", s.Clock.Now().UTC().Format("2006/01/02"), id)
	return s.Reports.Put(ctx, key, data)
}

// publish writes a progress snapshot. Progress is advisory; a store
// failure is logged, never propagated.
func (s *Service) publish(ctx context.Context, p *domain.ScanProgress) {
	p.UpdatedAt = s.Clock.Now()
	p.EstimatedSecondsLeft = estimateRemaining(p)
	snapshot := *p
	snapshot.Completed = append([]string(nil), p.Completed...)
	snapshot.Remaining = append([]string(nil), p.Remaining...)
	if err := s.Progress.Put(ctx, &snapshot); err != nil {
		s.logger().WithError(err).WithField("scan_id", p.ScanID).Warn("progress update failed")
	}
}

func estimateRemaining(p *domain.ScanProgress) int {
	if p.Status.Terminal() || p.Percent <= 0 {
		return 0
	}
	elapsed := p.UpdatedAt.Sub(p.StartedAt).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / float64(p.Percent) * float64(100-p.Percent))
}

func remove(list []string, item string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != item {
			out = append(out, s)
		}
	}
	return out
}
