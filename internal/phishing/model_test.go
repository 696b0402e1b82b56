package phishing

import (
	"errors"
	"strings"
	"testing"

	"github.com/cyberguardx/cyberguardx/internal/domain/scans"
)

func loadTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := LoadModel("testdata/model.json")
	if err != nil {
		t.Fatalf("loading test model: %v", err)
	}
	return m
}

func TestLoadModelMissingFile(t *testing.T) {
	_, err := LoadModel("testdata/does-not-exist.json")
	if !errors.Is(err, scans.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestLoadModelRejectsWrongSign(t *testing.T) {
	art := modelArtifact{
		ModelName:    "bad",
		ModelVersion: "0",
		Coefficients: map[string]float64{},
	}
	for _, n := range FeatureNames() {
		art.Coefficients[n] = 0.1
	}
	// protective feature with a positive weight breaks monotonicity
	art.Coefficients["has_https"] = 0.5
	if _, err := newModel(art); !errors.Is(err, scans.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable for sign violation, got %v", err)
	}
}

func TestPredictProbabilityRange(t *testing.T) {
	m := loadTestModel(t)
	urls := []string{
		"https://www.google.com",
		"http://paypal-verify-security-check.com",
		"https://bit.ly/3xYzAbC",
		"http://192.168.1.1:8080/admin@login",
		"https://example.com/" + strings.Repeat("a", 200),
	}
	for _, u := range urls {
		f, err := Extract(u)
		if err != nil {
			continue
		}
		p := m.Predict(f)
		if p.Probability < 0 || p.Probability > 1 {
			t.Errorf("probability out of [0,1] for %q: %v", u, p.Probability)
		}
		if p.Confidence < 0 || p.Confidence > 1 {
			t.Errorf("confidence out of [0,1] for %q: %v", u, p.Confidence)
		}
		if p.IsPhishing != (p.Probability >= decisionThreshold) {
			t.Errorf("is_phishing inconsistent with threshold for %q", u)
		}
	}
}

// A clean well-known URL must score strictly below an impersonation URL.
func TestPredictOrdering(t *testing.T) {
	m := loadTestModel(t)

	clean, err := Extract("https://www.google.com")
	if err != nil {
		t.Fatal(err)
	}
	shady, err := Extract("http://paypal-verify-security-check.com")
	if err != nil {
		t.Fatal(err)
	}

	pc := m.Predict(clean)
	ps := m.Predict(shady)
	if pc.Probability >= ps.Probability {
		t.Errorf("clean URL scored %v, impersonation URL scored %v; want clean < shady",
			pc.Probability, ps.Probability)
	}
	if pc.IsPhishing {
		t.Error("clean URL flagged as phishing")
	}
	if !ps.IsPhishing {
		t.Error("impersonation URL not flagged as phishing")
	}
}

// Increasing any risky feature must never decrease the probability, and
// increasing any protective feature must never increase it.
func TestPredictMonotonic(t *testing.T) {
	m := loadTestModel(t)

	base, err := Extract("http://login-example-secure.net/account")
	if err != nil {
		t.Fatal(err)
	}
	p0 := m.Predict(base).Probability

	bump := func(f Features, name string, delta float64) Features {
		switch name {
		case "url_length":
			f.URLLength += delta
		case "num_dots":
			f.NumDots += delta
		case "num_hyphens":
			f.NumHyphens += delta
		case "num_digits":
			f.NumDigits += delta
		case "has_at":
			f.HasAt += delta
		case "has_brand_token":
			f.HasBrandToken += delta
		case "uses_shortener":
			f.UsesShortener += delta
		case "has_https":
			f.HasHTTPS += delta
		case "domain_age":
			f.DomainAge += delta
		case "ssl_valid":
			f.SSLValid += delta
		case "path_length":
			f.PathLength += delta
		case "special_char_ratio":
			f.SpecialCharRatio += delta
		}
		return f
	}

	for name, dir := range featureDirection {
		p1 := m.Predict(bump(base, name, 1)).Probability
		if dir > 0 && p1 < p0 {
			t.Errorf("raising risky feature %q decreased probability: %v -> %v", name, p0, p1)
		}
		if dir < 0 && p1 > p0 {
			t.Errorf("raising protective feature %q increased probability: %v -> %v", name, p0, p1)
		}
	}
}

func TestModelInfo(t *testing.T) {
	m := loadTestModel(t)
	info := m.Info()
	if info.Name == "" || info.Version == "" {
		t.Errorf("model identity must be populated, got %+v", info)
	}
	if info.Metrics.Accuracy <= 0 || info.Metrics.Accuracy > 1 {
		t.Errorf("accuracy out of range: %v", info.Metrics.Accuracy)
	}
}

func TestExplainRankedByImpact(t *testing.T) {
	m := loadTestModel(t)
	f, err := Extract("http://paypal-verify-security-check.com/login@update")
	if err != nil {
		t.Fatal(err)
	}
	analysis := Explain(m, f)
	if len(analysis) == 0 {
		t.Fatal("expected feature analysis entries")
	}
	if len(analysis) > maxAnalysisEntries {
		t.Errorf("analysis has %d entries, cap is %d", len(analysis), maxAnalysisEntries)
	}
	for i := 1; i < len(analysis); i++ {
		if analysis[i-1].Impact < analysis[i].Impact {
			t.Errorf("analysis not sorted by impact at %d: %v < %v",
				i, analysis[i-1].Impact, analysis[i].Impact)
		}
	}
}
