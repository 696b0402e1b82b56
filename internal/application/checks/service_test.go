package checks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cyberguardx/cyberguardx/internal/breach"
	domain "github.com/cyberguardx/cyberguardx/internal/domain/scans"
	"github.com/cyberguardx/cyberguardx/internal/phishing"
)

type fakeHistory struct {
	mu     sync.Mutex
	checks []*domain.CheckRecord
	fail   bool
}

func (f *fakeHistory) SaveScan(context.Context, *domain.ScanResult) error { return nil }
func (f *fakeHistory) GetScan(context.Context, domain.ScanID) (*domain.ScanResult, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeHistory) ListScans(context.Context, int, int) ([]*domain.ScanResult, error) {
	return nil, nil
}

func (f *fakeHistory) SaveCheck(_ context.Context, c *domain.CheckRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("store down")
	}
	f.checks = append(f.checks, c)
	return nil
}

func (f *fakeHistory) ListChecks(_ context.Context, limit, offset int) ([]*domain.CheckRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.CheckRecord, 0, limit)
	for i := len(f.checks) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.checks[i])
	}
	return out, nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestService(t *testing.T) (*Service, *fakeHistory) {
	t.Helper()
	dataset, err := breach.LoadDataset("../../breach/testdata/dataset.json")
	if err != nil {
		t.Fatalf("loading dataset: %v", err)
	}
	model, err := phishing.LoadModel("../../phishing/testdata/model.json")
	if err != nil {
		t.Fatalf("loading model: %v", err)
	}
	history := &fakeHistory{}
	svc := &Service{
		Breach:  breach.NewChecker(dataset, nil, nil),
		Model:   model,
		History: history,
		Clock:   fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	return svc, history
}

func TestCheckEmailBreached(t *testing.T) {
	svc, history := newTestService(t)

	res, err := svc.CheckEmail(context.Background(), "breached@example.com")
	if err != nil {
		t.Fatalf("CheckEmail: %v", err)
	}
	if !res.Breached || res.PwnedCount != 1 {
		t.Fatalf("breached=%v count=%d, want true/1", res.Breached, res.PwnedCount)
	}
	if len(history.checks) != 1 {
		t.Fatalf("check records = %d, want 1", len(history.checks))
	}
	rec := history.checks[0]
	if rec.Kind != domain.CheckEmail || !rec.Breached || rec.PhishingScore != nil {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestCheckEmailInvalid(t *testing.T) {
	svc, history := newTestService(t)

	for _, email := range []string{"", "nodomain", "user@", "@example.com", "user@nodot"} {
		if _, err := svc.CheckEmail(context.Background(), email); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%q: err = %v, want ErrInvalidInput", email, err)
		}
	}
	if len(history.checks) != 0 {
		t.Fatal("invalid input must not be recorded")
	}
}

func TestCheckEmailRecordFailureIsSwallowed(t *testing.T) {
	svc, history := newTestService(t)
	history.fail = true

	res, err := svc.CheckEmail(context.Background(), "clean@example.com")
	if err != nil {
		t.Fatalf("CheckEmail: %v", err)
	}
	if res.Breached {
		t.Fatal("clean address reported breached")
	}
}

func TestCheckURLPhishing(t *testing.T) {
	svc, history := newTestService(t)

	res, err := svc.CheckURL(context.Background(), "http://paypal-verify-security-check.com/login@update")
	if err != nil {
		t.Fatalf("CheckURL: %v", err)
	}
	if !res.IsPhishing {
		t.Fatalf("is_phishing = false for %q, score %f", res.URL, res.PhishingScore)
	}
	if res.PhishingScore <= 0 || res.PhishingScore >= 1 {
		t.Fatalf("phishing_score = %f, want (0,1)", res.PhishingScore)
	}
	if res.Confidence < 0 || res.Confidence > 1 {
		t.Fatalf("confidence = %f, want [0,1]", res.Confidence)
	}
	if res.ModelInfo.Name == "" || res.ModelInfo.Version == "" {
		t.Fatal("model info must be populated")
	}
	if len(res.FeatureAnalysis) == 0 {
		t.Fatal("expected feature analysis entries")
	}
	rec := history.checks[0]
	if rec.Kind != domain.CheckURL || rec.PhishingScore == nil {
		t.Fatalf("unexpected record %+v", rec)
	}
	if *rec.PhishingScore != res.PhishingScore {
		t.Fatalf("recorded score %f != response score %f", *rec.PhishingScore, res.PhishingScore)
	}
}

func TestCheckURLTrusted(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.CheckURL(context.Background(), "https://www.google.com/search?q=go")
	if err != nil {
		t.Fatalf("CheckURL: %v", err)
	}
	if res.IsPhishing {
		t.Fatalf("trusted domain flagged as phishing, score %f", res.PhishingScore)
	}
	if res.RiskLevel != "LOW" {
		t.Fatalf("risk_level = %s, want LOW", res.RiskLevel)
	}
}

func TestCheckURLInvalid(t *testing.T) {
	svc, _ := newTestService(t)

	for _, raw := range []string{"", "not a url", "example.com"} {
		if _, err := svc.CheckURL(context.Background(), raw); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%q: err = %v, want ErrInvalidInput", raw, err)
		}
	}
}

func TestCheckURLModelUnavailable(t *testing.T) {
	svc, _ := newTestService(t)
	svc.Model = nil

	if _, err := svc.CheckURL(context.Background(), "https://example.com"); !errors.Is(err, domain.ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
}

func TestCheckHistoryNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.CheckEmail(context.Background(), "clean@example.com"); err != nil {
		t.Fatalf("CheckEmail: %v", err)
	}
	if _, err := svc.CheckURL(context.Background(), "https://example.com/a"); err != nil {
		t.Fatalf("CheckURL: %v", err)
	}

	list, err := svc.CheckHistory(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("CheckHistory: %v", err)
	}
	if len(list) != 2 || list[0].Kind != domain.CheckURL || list[1].Kind != domain.CheckEmail {
		t.Fatal("expected newest-first ordering of check records")
	}
}
