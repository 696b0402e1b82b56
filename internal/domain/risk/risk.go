package risk

// Level is a categorical severity label derived from a continuous
// score via fixed thresholds.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Phishing score thresholds (probability, 0.0-1.0).
const (
	phishingCriticalThreshold = 0.85
	phishingHighThreshold     = 0.70
)

// FromPhishingScore maps a phishing probability and breach status to a
// risk level. Pure business rule, no I/O.
func FromPhishingScore(emailBreached bool, phishingScore float64, hasScore bool) Level {
	if hasScore && phishingScore >= phishingCriticalThreshold {
		return LevelCritical
	}
	if hasScore && phishingScore >= phishingHighThreshold {
		return LevelHigh
	}
	if emailBreached {
		return LevelMedium
	}
	return LevelLow
}

// FromRiskScore maps a website risk score (0 best, 100 worst) to a level.
func FromRiskScore(score int) Level {
	switch {
	case score >= 75:
		return LevelCritical
	case score >= 50:
		return LevelHigh
	case score >= 25:
		return LevelMedium
	default:
		return LevelLow
	}
}

// FromBreachCount maps the number of known breaches for an email to a level.
func FromBreachCount(total int) Level {
	switch {
	case total >= 10:
		return LevelCritical
	case total >= 5:
		return LevelHigh
	case total >= 1:
		return LevelMedium
	default:
		return LevelLow
	}
}
