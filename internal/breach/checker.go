package breach

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cyberguardx/cyberguardx/internal/domain/risk"
	"github.com/cyberguardx/cyberguardx/internal/domain/scans"
)

const cacheTTL = 15 * time.Minute

// Result is the outcome of a breach check for one address.
type Result struct {
	Email           string     `json:"email"`
	Breached        bool       `json:"breached"`
	PwnedCount      int        `json:"pwned_count"`
	Breaches        []Detail   `json:"breaches"`
	RiskLevel       risk.Level `json:"risk_level"`
	Recommendations []string   `json:"recommendations"`
	Source          string     `json:"breach_source"`
	LastChecked     time.Time  `json:"last_checked"`
	Message         string     `json:"message"`
}

type cacheEntry struct {
	result  Result
	expires time.Time
}

// Checker answers email breach queries from the offline dataset first and
// falls back to the remote API when one is configured.
type Checker struct {
	dataset *Dataset
	remote  *HIBPClient
	logger  *logrus.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

func NewChecker(dataset *Dataset, remote *HIBPClient, logger *logrus.Logger) *Checker {
	if logger == nil {
		logger = logrus.New()
	}
	return &Checker{
		dataset: dataset,
		remote:  remote,
		logger:  logger,
		cache:   make(map[string]cacheEntry),
	}
}

// ValidateEmail rejects addresses that cannot be split into a nonempty
// local part and domain.
func ValidateEmail(email string) error {
	parts := strings.Split(strings.TrimSpace(email), "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || !strings.Contains(parts[1], ".") {
		return fmt.Errorf("%w: malformed email", scans.ErrInvalidInput)
	}
	return nil
}

// Check looks an email up. Results are cached briefly keyed by email hash.
func (c *Checker) Check(ctx context.Context, email string) (Result, error) {
	if err := ValidateEmail(email); err != nil {
		return Result{}, err
	}

	key := HashEmail(email)
	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expires) {
		return entry.result, nil
	}

	details := c.dataset.Lookup(email)
	source := "offline-dataset"

	if len(details) == 0 && c.remote != nil && c.remote.Enabled() {
		remote, err := c.remote.Check(ctx, email)
		if err != nil {
			// Remote failures degrade to the offline answer.
			c.logger.WithError(err).Warn("remote breach lookup failed")
		} else if len(remote) > 0 {
			details = remote
			source = "hibp"
		}
	}

	res := c.buildResult(email, details, source)

	c.mu.Lock()
	c.cache[key] = cacheEntry{result: res, expires: time.Now().Add(cacheTTL)}
	c.mu.Unlock()

	return res, nil
}

func (c *Checker) buildResult(email string, details []Detail, source string) Result {
	now := time.Now().UTC()
	total := len(details)
	res := Result{
		Email:           email,
		Breached:        total > 0,
		PwnedCount:      total,
		Breaches:        details,
		RiskLevel:       risk.FromBreachCount(total),
		Recommendations: recommendations(total),
		Source:          source,
		LastChecked:     now,
	}
	if total == 0 {
		res.Message = "No known breaches found for this email"
	} else {
		res.Message = fmt.Sprintf("Email found in %d known breach(es)", total)
	}
	return res
}

func recommendations(total int) []string {
	if total == 0 {
		return []string{
			"Keep using unique passwords for every account",
			"Enable two-factor authentication where available",
		}
	}
	recs := []string{
		"Change the password for every account using this email",
		"Enable two-factor authentication on all critical accounts",
		"Watch for phishing emails referencing the breached services",
	}
	if total >= 5 {
		recs = append(recs, "Consider using a dedicated password manager and rotating this address for sensitive accounts")
	}
	return recs
}
