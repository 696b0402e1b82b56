package checks

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cyberguardx/cyberguardx/internal/application"
	"github.com/cyberguardx/cyberguardx/internal/breach"
	"github.com/cyberguardx/cyberguardx/internal/domain/risk"
	domain "github.com/cyberguardx/cyberguardx/internal/domain/scans"
	"github.com/cyberguardx/cyberguardx/internal/phishing"
)

// Service implements the email breach check and URL phishing check
// use-cases. Both are read-only against the outside world; check records
// are appended to history best-effort.
type Service struct {
	Breach  *breach.Checker
	Model   *phishing.Model
	History domain.HistoryRepository
	Clock   application.Clock
	Logger  *logrus.Logger
}

// EmailCheckResult is the API payload for an email breach check.
type EmailCheckResult struct {
	Email           string          `json:"email"`
	Breached        bool            `json:"breached"`
	PwnedCount      int             `json:"pwned_count"`
	Breaches        []breach.Detail `json:"breaches,omitempty"`
	RiskLevel       risk.Level      `json:"risk_level"`
	Recommendations []string        `json:"recommendations"`
	Source          string          `json:"source"`
	LastChecked     time.Time       `json:"last_checked"`
	Message         string          `json:"message,omitempty"`
}

// URLCheckResult is the API payload for a URL phishing check.
type URLCheckResult struct {
	URL             string                     `json:"url"`
	IsPhishing      bool                       `json:"is_phishing"`
	PhishingScore   float64                    `json:"phishing_score"`
	Confidence      float64                    `json:"confidence"`
	RiskLevel       risk.Level                 `json:"risk_level"`
	ModelInfo       phishing.ModelInfo         `json:"model_info"`
	FeatureAnalysis []phishing.FeatureAnalysis `json:"feature_analysis"`
	Recommendations []string                   `json:"recommendations"`
}

func (s *Service) logger() *logrus.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return logrus.StandardLogger()
}

// CheckEmail looks an address up against known breach data.
func (s *Service) CheckEmail(ctx context.Context, email string) (*EmailCheckResult, error) {
	res, err := s.Breach.Check(ctx, email)
	if err != nil {
		return nil, err
	}
	out := &EmailCheckResult{
		Email:           res.Email,
		Breached:        res.Breached,
		PwnedCount:      res.PwnedCount,
		Breaches:        res.Breaches,
		RiskLevel:       res.RiskLevel,
		Recommendations: res.Recommendations,
		Source:          res.Source,
		LastChecked:     res.LastChecked,
		Message:         res.Message,
	}
	s.record(ctx, &domain.CheckRecord{
		Kind:      domain.CheckEmail,
		Subject:   res.Email,
		Breached:  res.Breached,
		RiskLevel: res.RiskLevel,
		CheckedAt: s.Clock.Now().UTC(),
	})
	return out, nil
}

// CheckURL extracts lexical features from a URL and classifies it with
// the phishing model.
func (s *Service) CheckURL(ctx context.Context, rawURL string) (*URLCheckResult, error) {
	if s.Model == nil {
		return nil, domain.ErrModelUnavailable
	}
	features, err := phishing.Extract(rawURL)
	if err != nil {
		return nil, err
	}
	pred := s.Model.Predict(features)
	out := &URLCheckResult{
		URL:             rawURL,
		IsPhishing:      pred.IsPhishing,
		PhishingScore:   pred.Probability,
		Confidence:      pred.Confidence,
		RiskLevel:       risk.FromPhishingScore(false, pred.Probability, true),
		ModelInfo:       s.Model.Info(),
		FeatureAnalysis: phishing.Explain(s.Model, features),
		Recommendations: phishing.Recommendations(features, pred),
	}
	score := pred.Probability
	s.record(ctx, &domain.CheckRecord{
		Kind:          domain.CheckURL,
		Subject:       rawURL,
		PhishingScore: &score,
		RiskLevel:     out.RiskLevel,
		CheckedAt:     s.Clock.Now().UTC(),
	})
	return out, nil
}

// CheckHistory returns recent check records, most recent first.
func (s *Service) CheckHistory(ctx context.Context, limit, offset int) ([]*domain.CheckRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.History.ListChecks(ctx, limit, offset)
}

// record appends a check record. Persistence failures never fail the check.
func (s *Service) record(ctx context.Context, rec *domain.CheckRecord) {
	if s.History == nil {
		return
	}
	if err := s.History.SaveCheck(ctx, rec); err != nil {
		s.logger().WithError(err).Warn("check record persistence failed")
	}
}
