package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cyberguardx/cyberguardx/internal/application"
	appchecks "github.com/cyberguardx/cyberguardx/internal/application/checks"
	appscans "github.com/cyberguardx/cyberguardx/internal/application/scans"
	"github.com/cyberguardx/cyberguardx/internal/breach"
	domain "github.com/cyberguardx/cyberguardx/internal/domain/scans"
	"github.com/cyberguardx/cyberguardx/internal/infra/progress"
	"github.com/cyberguardx/cyberguardx/internal/phishing"
)

type memoryHistory struct {
	scans  []*domain.ScanResult
	checks []*domain.CheckRecord
}

func (m *memoryHistory) SaveScan(_ context.Context, s *domain.ScanResult) error {
	m.scans = append(m.scans, s)
	return nil
}

func (m *memoryHistory) GetScan(_ context.Context, id domain.ScanID) (*domain.ScanResult, error) {
	for _, s := range m.scans {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memoryHistory) ListScans(_ context.Context, limit, offset int) ([]*domain.ScanResult, error) {
	out := make([]*domain.ScanResult, 0, limit)
	for i := len(m.scans) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.scans[i])
	}
	return out, nil
}

func (m *memoryHistory) SaveCheck(_ context.Context, c *domain.CheckRecord) error {
	m.checks = append(m.checks, c)
	return nil
}

func (m *memoryHistory) ListChecks(_ context.Context, limit, offset int) ([]*domain.CheckRecord, error) {
	out := make([]*domain.CheckRecord, 0, limit)
	for i := len(m.checks) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.checks[i])
	}
	return out, nil
}

type stubScanner struct{}

func (stubScanner) Scan(_ context.Context, target string, onPhase func(domain.Phase)) (*domain.Assessment, error) {
	onPhase(domain.PhaseHeaders)
	onPhase(domain.PhaseTLS)
	onPhase(domain.PhaseDNS)
	return &domain.Assessment{
		Target:       target,
		HTTP:         domain.CheckOutcome{Phase: domain.PhaseHeaders, Grade: domain.GradeA, Score: 100},
		SSL:          domain.CheckOutcome{Phase: domain.PhaseTLS, Grade: domain.GradeA, Score: 100},
		DNS:          domain.CheckOutcome{Phase: domain.PhaseDNS, Grade: domain.GradeA, Score: 95},
		OverallGrade: domain.GradeA,
		RiskScore:    1,
		Counts:       domain.SeverityCounts{Low: 1, Total: 1},
		Recommendations: []domain.Recommendation{
			{Severity: domain.SeverityLow, Category: "DNS", Text: "Add a CAA record restricting which CAs may issue certificates"},
		},
	}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dataset, err := breach.LoadDataset("../../breach/testdata/dataset.json")
	if err != nil {
		t.Fatalf("loading dataset: %v", err)
	}
	model, err := phishing.LoadModel("../../phishing/testdata/model.json")
	if err != nil {
		t.Fatalf("loading model: %v", err)
	}

	history := &memoryHistory{}
	clock := application.SystemClock{}
	checksSvc := &appchecks.Service{
		Breach:  breach.NewChecker(dataset, nil, nil),
		Model:   model,
		History: history,
		Clock:   clock,
	}
	scansSvc := &appscans.Service{
		History:  history,
		Progress: progress.NewMemoryStore(),
		Scanner:  stubScanner{},
		Clock:    clock,
	}
	return NewRouter(checksSvc, scansSvc, Options{})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func TestRoot(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["project"] == "" || body["status"] != "operational" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestCheckEmail(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/check-email", `{"email":"breached@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Email     string `json:"email"`
		Breached  bool   `json:"breached"`
		RiskLevel string `json:"risk_level"`
	}
	decode(t, rec, &body)
	if !body.Breached || body.RiskLevel != "MEDIUM" {
		t.Fatalf("got breached=%v risk=%s, want true/MEDIUM", body.Breached, body.RiskLevel)
	}
}

func TestCheckEmailInvalid(t *testing.T) {
	router := newTestRouter(t)

	for _, payload := range []string{`{"email":"nodomain"}`, `{"email":""}`, `not json`} {
		rec := do(t, router, http.MethodPost, "/check-email", payload)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", payload, rec.Code)
		}
	}
}

func TestCheckURL(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/check-url", `{"url":"http://paypal-verify-security-check.com/login"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		IsPhishing      bool    `json:"is_phishing"`
		PhishingScore   float64 `json:"phishing_score"`
		RiskLevel       string  `json:"risk_level"`
		FeatureAnalysis []struct {
			Feature string `json:"feature"`
			Risk    string `json:"risk"`
		} `json:"feature_analysis"`
		ModelInfo struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"model_info"`
	}
	decode(t, rec, &body)
	if !body.IsPhishing {
		t.Fatalf("is_phishing = false, score %f", body.PhishingScore)
	}
	if body.ModelInfo.Name == "" || len(body.FeatureAnalysis) == 0 {
		t.Fatal("model_info and feature_analysis must be populated")
	}
}

func TestScanWebsiteFullFlow(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/scan-website",
		`{"url":"https://example.com","confirmed_permission":true,"owner_confirmation":true,"legal_responsibility":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var scan struct {
		ScanID          string   `json:"scan_id"`
		Status          string   `json:"status"`
		OverallGrade    string   `json:"overall_grade"`
		RiskScore       int      `json:"risk_score"`
		LowIssues       int      `json:"low_issues_count"`
		TotalIssues     int      `json:"total_issues_count"`
		Recommendations []string `json:"recommendations"`
	}
	decode(t, rec, &scan)
	if scan.ScanID == "" || scan.Status != "completed" || scan.OverallGrade != "A" {
		t.Fatalf("unexpected scan %+v", scan)
	}
	if scan.LowIssues != 1 || scan.TotalIssues != 1 {
		t.Fatalf("issue counts = %d/%d, want 1/1", scan.LowIssues, scan.TotalIssues)
	}
	if len(scan.Recommendations) != 1 || !strings.HasPrefix(scan.Recommendations[0], "[LOW] ") {
		t.Fatalf("unexpected recommendations %v", scan.Recommendations)
	}

	// Terminal progress must still be retrievable.
	rec = do(t, router, http.MethodGet, "/scan-progress/"+scan.ScanID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("progress status %d: %s", rec.Code, rec.Body.String())
	}
	var prog struct {
		Status  string `json:"status"`
		Percent int    `json:"progress_percentage"`
	}
	decode(t, rec, &prog)
	if prog.Status != "completed" || prog.Percent != 100 {
		t.Fatalf("progress %s/%d, want completed/100", prog.Status, prog.Percent)
	}

	// The completed scan is in history.
	rec = do(t, router, http.MethodGet, "/scan-history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("history status %d", rec.Code)
	}
	var hist struct {
		Count int `json:"count"`
		Scans []struct {
			ScanID string `json:"scan_id"`
		} `json:"scans"`
	}
	decode(t, rec, &hist)
	if hist.Count != 1 || hist.Scans[0].ScanID != scan.ScanID {
		t.Fatalf("unexpected history %+v", hist)
	}

	// And retrievable by id.
	rec = do(t, router, http.MethodGet, "/scan-result/"+scan.ScanID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("result status %d", rec.Code)
	}
}

func TestScanWebsiteUnauthorized(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/scan-website",
		`{"url":"https://example.com","confirmed_permission":true,"owner_confirmation":false,"legal_responsibility":true}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status %d, want 403", rec.Code)
	}

	// No history entry after a refused scan.
	rec = do(t, router, http.MethodGet, "/scan-history", "")
	var hist struct {
		Count int `json:"count"`
	}
	decode(t, rec, &hist)
	if hist.Count != 0 {
		t.Fatalf("history count = %d, want 0", hist.Count)
	}
}

func TestScanProgressUnknownID(t *testing.T) {
	router := newTestRouter(t)

	// Well-formed but unknown id: 404, not 500.
	rec := do(t, router, http.MethodGet, "/scan-progress/0f9a4a2e-9d8e-4f5c-8a1b-2c3d4e5f6a7b", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}

	// Malformed id: 400.
	rec = do(t, router, http.MethodGet, "/scan-progress/not-a-uuid", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}

func TestScanAnalysisDisabled(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/scan-analysis/0f9a4a2e-9d8e-4f5c-8a1b-2c3d4e5f6a7b", "")
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status %d, want 501", rec.Code)
	}
}

func TestCheckHistoryAccumulates(t *testing.T) {
	router := newTestRouter(t)

	do(t, router, http.MethodPost, "/check-email", `{"email":"clean@example.com"}`)
	do(t, router, http.MethodPost, "/check-url", `{"url":"https://example.com"}`)

	rec := do(t, router, http.MethodGet, "/check-history", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var hist struct {
		Count  int `json:"count"`
		Checks []struct {
			Kind      string    `json:"kind"`
			CheckedAt time.Time `json:"checked_at"`
		} `json:"checks"`
	}
	decode(t, rec, &hist)
	if hist.Count != 2 || hist.Checks[0].Kind != "url" || hist.Checks[1].Kind != "email" {
		t.Fatalf("unexpected check history %+v", hist)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	dataset, _ := breach.LoadDataset("../../breach/testdata/dataset.json")
	model, _ := phishing.LoadModel("../../phishing/testdata/model.json")
	history := &memoryHistory{}
	checksSvc := &appchecks.Service{
		Breach:  breach.NewChecker(dataset, nil, nil),
		Model:   model,
		History: history,
		Clock:   application.SystemClock{},
	}
	scansSvc := &appscans.Service{
		History:  history,
		Progress: progress.NewMemoryStore(),
		Scanner:  stubScanner{},
		Clock:    application.SystemClock{},
	}
	router := NewRouter(checksSvc, scansSvc, Options{APIKeys: []string{"secret-key"}})

	rec := do(t, router, http.MethodGet, "/scan-history", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("without key: status %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/scan-history", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("with key: status %d, want 200", rr.Code)
	}

	// Root stays open for probes.
	rec = do(t, router, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("root: status %d, want 200", rec.Code)
	}
}
