package breach

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultHIBPBaseURL = "https://haveibeenpwned.com/api/v3/breachedaccount/"

// HIBPClient queries the Have I Been Pwned breached-account API. Used as a
// supplement to the offline dataset when an API key is configured.
type HIBPClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	logger  *logrus.Logger
}

func NewHIBPClient(apiKey string, logger *logrus.Logger) *HIBPClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &HIBPClient{
		apiKey:  apiKey,
		baseURL: defaultHIBPBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// Enabled reports whether an API key is configured.
func (c *HIBPClient) Enabled() bool { return c.apiKey != "" }

type hibpBreach struct {
	Name       string `json:"Name"`
	BreachDate string `json:"BreachDate"`
}

// Check returns the breaches recorded for an email. A 404 means the
// address is clean. One retry on transient failures; 429 gets a short
// backoff first.
func (c *HIBPClient) Check(ctx context.Context, email string) ([]Detail, error) {
	if !c.Enabled() {
		return nil, nil
	}

	endpoint := c.baseURL + url.PathEscape(email) + "?truncateResponse=false"

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("hibp-api-key", c.apiKey)
		req.Header.Set("User-Agent", "CyberGuardX-BreachChecker")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt == 1 {
				select {
				case <-time.After(500 * time.Millisecond):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				continue
			}
			return nil, lastErr
		}

		switch resp.StatusCode {
		case http.StatusOK:
			var breaches []hibpBreach
			err := json.NewDecoder(resp.Body).Decode(&breaches)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("decoding HIBP response: %w", err)
			}
			out := make([]Detail, 0, len(breaches))
			for _, b := range breaches {
				out = append(out, Detail{Name: b.Name, Date: b.BreachDate})
			}
			return out, nil

		case http.StatusNotFound:
			resp.Body.Close()
			return nil, nil

		case http.StatusTooManyRequests:
			resp.Body.Close()
			lastErr = fmt.Errorf("HIBP rate limit hit")
			if attempt == 1 {
				c.logger.WithField("email_hash", HashEmail(email)).
					Debug("HIBP rate limit hit, backing off and retrying")
				select {
				case <-time.After(1600 * time.Millisecond):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				continue
			}
			return nil, lastErr

		default:
			resp.Body.Close()
			lastErr = fmt.Errorf("HIBP returned status %d", resp.StatusCode)
			if attempt == 1 {
				time.Sleep(500 * time.Millisecond)
				continue
			}
			return nil, lastErr
		}
	}
	return nil, lastErr
}
