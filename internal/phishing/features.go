package phishing

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/cyberguardx/cyberguardx/internal/domain/scans"
)

// Long-established domains used as a proxy for domain age. A full WHOIS
// lookup would make extraction impure; the classifier only needs a
// reputation bit.
var trustedDomains = map[string]bool{
	"google.com": true, "facebook.com": true, "amazon.com": true,
	"microsoft.com": true, "apple.com": true, "wikipedia.org": true,
	"github.com": true, "stackoverflow.com": true, "linkedin.com": true,
	"twitter.com": true, "instagram.com": true, "youtube.com": true,
	"reddit.com": true, "ebay.com": true, "netflix.com": true,
	"paypal.com": true, "adobe.com": true, "dropbox.com": true,
	"yahoo.com": true, "bing.com": true,
}

// Brands commonly impersonated in phishing hostnames.
var brandTokens = []string{
	"paypal", "apple", "amazon", "microsoft", "netflix", "facebook",
	"google", "instagram", "whatsapp", "bank", "secure-login",
}

// Known URL shortener hosts.
var shortenerHosts = map[string]bool{
	"bit.ly": true, "tinyurl.com": true, "goo.gl": true, "t.co": true,
	"is.gd": true, "ow.ly": true, "buff.ly": true, "rebrand.ly": true,
}

// Features is the fixed, ordered lexical feature set extracted from a URL.
// Extraction is deterministic and pure: no network access.
type Features struct {
	URLLength        float64 `json:"url_length"`
	NumDots          float64 `json:"num_dots"`
	NumHyphens       float64 `json:"num_hyphens"`
	NumDigits        float64 `json:"num_digits"`
	HasAt            float64 `json:"has_at"`
	HasBrandToken    float64 `json:"has_brand_token"`
	UsesShortener    float64 `json:"uses_shortener"`
	HasHTTPS         float64 `json:"has_https"`
	DomainAge        float64 `json:"domain_age"`
	SSLValid         float64 `json:"ssl_valid"`
	PathLength       float64 `json:"path_length"`
	SpecialCharRatio float64 `json:"special_char_ratio"`
}

// FeatureNames lists the model input order. Vector() must match it.
func FeatureNames() []string {
	return []string{
		"url_length", "num_dots", "num_hyphens", "num_digits", "has_at",
		"has_brand_token", "uses_shortener", "has_https", "domain_age",
		"ssl_valid", "path_length", "special_char_ratio",
	}
}

// Vector returns the features in model input order.
func (f Features) Vector() []float64 {
	return []float64{
		f.URLLength, f.NumDots, f.NumHyphens, f.NumDigits, f.HasAt,
		f.HasBrandToken, f.UsesShortener, f.HasHTTPS, f.DomainAge,
		f.SSLValid, f.PathLength, f.SpecialCharRatio,
	}
}

// Value looks a feature up by its model input name.
func (f Features) Value(name string) float64 {
	for i, n := range FeatureNames() {
		if n == name {
			return f.Vector()[i]
		}
	}
	return 0
}

// Extract derives lexical features from a raw URL. Returns
// scans.ErrInvalidInput when the URL cannot be parsed into scheme/host.
func Extract(rawURL string) (Features, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil {
		return Features{}, fmt.Errorf("%w: %v", scans.ErrInvalidInput, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Features{}, fmt.Errorf("%w: URL must include scheme and host", scans.ErrInvalidInput)
	}

	var f Features
	f.URLLength = float64(len(rawURL))
	f.NumDots = float64(strings.Count(rawURL, "."))
	f.NumHyphens = float64(strings.Count(rawURL, "-"))
	for _, c := range rawURL {
		if unicode.IsDigit(c) {
			f.NumDigits++
		}
	}
	if strings.Contains(rawURL, "@") {
		f.HasAt = 1
	}
	if u.Scheme == "https" {
		f.HasHTTPS = 1
	}

	host := strings.ToLower(u.Hostname())
	domain := strings.TrimPrefix(host, "www.")
	if trustedDomains[domain] {
		f.DomainAge = 1
	}
	if f.HasHTTPS == 1 && f.DomainAge == 1 {
		f.SSLValid = 1
	}
	if !trustedDomains[domain] {
		for _, brand := range brandTokens {
			if strings.Contains(host, brand) {
				f.HasBrandToken = 1
				break
			}
		}
	}
	if shortenerHosts[domain] {
		f.UsesShortener = 1
	}

	f.PathLength = float64(len(u.Path))

	special := 0
	for _, c := range rawURL {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '/' || c == '.' || c == '-' || c == '_' || c == ':':
		default:
			special++
		}
	}
	if len(rawURL) > 0 {
		f.SpecialCharRatio = float64(special) / float64(len(rawURL))
	}

	return f, nil
}
