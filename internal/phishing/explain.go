package phishing

import (
	"fmt"
	"math"
	"sort"
)

// FeatureAnalysis is one per-feature contribution entry for explainability.
type FeatureAnalysis struct {
	Feature     string  `json:"feature"`
	Value       float64 `json:"value"`
	Impact      float64 `json:"impact"`
	Risk        string  `json:"risk"`
	Explanation string  `json:"explanation"`
}

const maxAnalysisEntries = 5

// Explain grades each extracted feature and ranks the entries by model
// impact, highest first. Only features that carry an observation worth
// surfacing are included, capped at maxAnalysisEntries.
func Explain(m *Model, f Features) []FeatureAnalysis {
	var out []FeatureAnalysis

	add := func(name, riskLabel, explanation string) {
		out = append(out, FeatureAnalysis{
			Feature:     name,
			Value:       f.Value(name),
			Impact:      math.Abs(m.Coefficient(name)) * math.Abs(f.Value(name)),
			Risk:        riskLabel,
			Explanation: explanation,
		})
	}

	switch {
	case f.URLLength > 75:
		add("url_length", "HIGH", "Unusually long URL, common in phishing to hide malicious intent")
	case f.URLLength > 54:
		add("url_length", "MEDIUM", "Longer than average URL, slightly suspicious")
	default:
		add("url_length", "LOW", "Normal URL length")
	}

	switch {
	case f.NumHyphens >= 3:
		add("num_hyphens", "HIGH", "Multiple hyphens in domain, common phishing technique")
	case f.NumHyphens >= 1:
		add("num_hyphens", "MEDIUM", "Hyphen present, monitor for brand impersonation")
	}

	if f.HasAt == 1 {
		add("has_at", "CRITICAL", "Contains @ symbol, often used to trick users about the actual domain")
	}
	if f.HasBrandToken == 1 {
		add("has_brand_token", "CRITICAL", "Well-known brand name in an unrelated domain, likely impersonation")
	}
	if f.UsesShortener == 1 {
		add("uses_shortener", "HIGH", "URL shortener hides the real destination")
	}
	if f.HasHTTPS == 0 {
		add("has_https", "HIGH", "No HTTPS encryption, data transmitted insecurely")
	}
	if f.DomainAge == 0 {
		add("domain_age", "HIGH", "New or unknown domain, not in trusted domains list")
	} else {
		add("domain_age", "LOW", "Established trusted domain")
	}
	if f.SSLValid == 0 {
		add("ssl_valid", "HIGH", "No valid SSL certificate detected")
	}
	if f.PathLength > 100 {
		add("path_length", "MEDIUM", "Unusually long URL path, may be attempting obfuscation")
	}
	if f.SpecialCharRatio > 0.15 {
		add("special_char_ratio", "HIGH",
			fmt.Sprintf("High special character ratio (%.0f%%), possible obfuscation", f.SpecialCharRatio*100))
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Impact > out[j].Impact })
	if len(out) > maxAnalysisEntries {
		out = out[:maxAnalysisEntries]
	}
	return out
}

// Recommendations produces the advice list for a scored URL, most important
// first.
func Recommendations(f Features, pred Prediction) []string {
	if !pred.IsPhishing {
		return []string{
			"URL appears legitimate based on analysis",
			"Always verify the sender before clicking links in emails",
			"Look for HTTPS and valid SSL certificates",
		}
	}

	recs := []string{
		"This URL shows multiple phishing indicators, do not click or enter credentials",
	}
	if f.HasHTTPS == 0 {
		recs = append(recs, "Missing HTTPS encryption, legitimate sites use HTTPS")
	}
	if f.DomainAge == 0 {
		recs = append(recs, "New or unknown domain, verify legitimacy before visiting")
	}
	if f.HasAt == 1 {
		recs = append(recs, "Contains @ symbol, often used to disguise the real destination")
	}
	if f.HasBrandToken == 1 {
		recs = append(recs, "Brand name appears in an unofficial domain, check the spelling of the real site")
	}
	if f.NumHyphens >= 2 {
		recs = append(recs, "Multiple hyphens in domain, possible brand impersonation")
	}
	recs = append(recs,
		"Verify the URL matches the official website",
		"Check for spelling errors in the domain name",
	)
	return recs
}
