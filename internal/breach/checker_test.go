package breach

import (
	"context"
	"errors"
	"testing"

	"github.com/cyberguardx/cyberguardx/internal/domain/risk"
	"github.com/cyberguardx/cyberguardx/internal/domain/scans"
)

func loadTestChecker(t *testing.T) *Checker {
	t.Helper()
	ds, err := LoadDataset("testdata/dataset.json")
	if err != nil {
		t.Fatalf("loading dataset: %v", err)
	}
	return NewChecker(ds, nil, nil)
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"user@example.com", "a.b+c@sub.example.org"}
	invalid := []string{"", "user", "user@", "@example.com", "user@nodot", "a@b@c.com"}

	for _, e := range valid {
		if err := ValidateEmail(e); err != nil {
			t.Errorf("ValidateEmail(%q) = %v, want nil", e, err)
		}
	}
	for _, e := range invalid {
		if err := ValidateEmail(e); !errors.Is(err, scans.ErrInvalidInput) {
			t.Errorf("ValidateEmail(%q) = %v, want ErrInvalidInput", e, err)
		}
	}
}

func TestCheckBreached(t *testing.T) {
	c := loadTestChecker(t)

	res, err := c.Check(context.Background(), "breached@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Breached || res.PwnedCount != 1 {
		t.Errorf("breached=%v pwned=%d, want true/1", res.Breached, res.PwnedCount)
	}
	if res.RiskLevel != risk.LevelMedium {
		t.Errorf("risk level = %v, want MEDIUM", res.RiskLevel)
	}
	if len(res.Recommendations) == 0 {
		t.Error("expected recommendations for breached email")
	}
	if res.Source != "offline-dataset" {
		t.Errorf("source = %q", res.Source)
	}
}

func TestCheckHeavilyBreached(t *testing.T) {
	c := loadTestChecker(t)

	res, err := c.Check(context.Background(), "pwned.many@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if res.PwnedCount != 5 {
		t.Errorf("pwned count = %d, want 5", res.PwnedCount)
	}
	if res.RiskLevel != risk.LevelHigh {
		t.Errorf("risk level = %v, want HIGH", res.RiskLevel)
	}
}

func TestCheckClean(t *testing.T) {
	c := loadTestChecker(t)

	res, err := c.Check(context.Background(), "clean@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if res.Breached || res.PwnedCount != 0 {
		t.Errorf("clean email reported breached: %+v", res)
	}
	if res.RiskLevel != risk.LevelLow {
		t.Errorf("risk level = %v, want LOW", res.RiskLevel)
	}
}

func TestCheckNormalizesCase(t *testing.T) {
	c := loadTestChecker(t)

	res, err := c.Check(context.Background(), "  Breached@Example.COM ")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Breached {
		t.Error("lookup must be case- and whitespace-insensitive")
	}
}

func TestCheckCaches(t *testing.T) {
	c := loadTestChecker(t)

	first, err := c.Check(context.Background(), "breached@example.com")
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Check(context.Background(), "breached@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !first.LastChecked.Equal(second.LastChecked) {
		t.Error("second lookup should be served from cache")
	}
}
