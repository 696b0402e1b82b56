package phishing

import (
	"errors"
	"reflect"
	"testing"

	"github.com/cyberguardx/cyberguardx/internal/domain/scans"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
		check   func(t *testing.T, f Features)
	}{
		{
			name: "trusted https domain",
			url:  "https://www.google.com",
			check: func(t *testing.T, f Features) {
				if f.HasHTTPS != 1 {
					t.Error("expected has_https=1")
				}
				if f.DomainAge != 1 {
					t.Error("expected domain_age=1 for google.com")
				}
				if f.SSLValid != 1 {
					t.Error("expected ssl_valid=1")
				}
				if f.HasBrandToken != 0 {
					t.Error("trusted domain must not count as brand impersonation")
				}
			},
		},
		{
			name: "brand impersonation with hyphens",
			url:  "http://paypal-verify-security-check.com",
			check: func(t *testing.T, f Features) {
				if f.HasBrandToken != 1 {
					t.Error("expected has_brand_token=1")
				}
				if f.NumHyphens != 3 {
					t.Errorf("num_hyphens = %v, want 3", f.NumHyphens)
				}
				if f.HasHTTPS != 0 || f.DomainAge != 0 {
					t.Error("expected http + untrusted domain")
				}
			},
		},
		{
			name: "at symbol and shortener",
			url:  "https://bit.ly/x@y",
			check: func(t *testing.T, f Features) {
				if f.HasAt != 1 {
					t.Error("expected has_at=1")
				}
				if f.UsesShortener != 1 {
					t.Error("expected uses_shortener=1")
				}
			},
		},
		{name: "missing scheme", url: "www.example.com", wantErr: true},
		{name: "empty", url: "", wantErr: true},
		{name: "scheme only", url: "https://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Extract(tt.url)
			if tt.wantErr {
				if !errors.Is(err, scans.ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract(%q): %v", tt.url, err)
			}
			tt.check(t, f)
		})
	}
}

func TestExtractDeterministic(t *testing.T) {
	a, err := Extract("https://paypal-login.example.com/path?x=1")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Extract("https://paypal-login.example.com/path?x=1")
	if !reflect.DeepEqual(a, b) {
		t.Errorf("extraction is not deterministic: %+v vs %+v", a, b)
	}
}

func TestVectorMatchesFeatureNames(t *testing.T) {
	f, err := Extract("https://example.com/a")
	if err != nil {
		t.Fatal(err)
	}
	names := FeatureNames()
	vec := f.Vector()
	if len(names) != len(vec) {
		t.Fatalf("len(names)=%d len(vector)=%d", len(names), len(vec))
	}
	for i, n := range names {
		if f.Value(n) != vec[i] {
			t.Errorf("feature %q: Value()=%v Vector()[%d]=%v", n, f.Value(n), i, vec[i])
		}
	}
}
