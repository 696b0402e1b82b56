package breach

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Detail describes one known breach an email appeared in.
type Detail struct {
	Name        string   `json:"name"`
	Date        string   `json:"date"`
	Accounts    int64    `json:"accounts"`
	DataClasses []string `json:"data_classes"`
}

// Dataset is the offline breach corpus: email hashes mapped to breach
// details. The dataset never stores plaintext addresses. Read-only after
// load, safe for concurrent use.
type Dataset struct {
	entries map[string][]Detail
}

// HashEmail normalizes and hashes an address the way the dataset keys are
// built: lowercase, trimmed, SHA-256 hex.
func HashEmail(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

// LoadDataset reads the offline breach dataset from a JSON file keyed by
// email hash.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading breach dataset: %w", err)
	}
	var entries map[string][]Detail
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing breach dataset %s: %w", path, err)
	}
	return &Dataset{entries: entries}, nil
}

// Lookup returns the breaches recorded for an email, or nil.
func (d *Dataset) Lookup(email string) []Detail {
	return d.entries[HashEmail(email)]
}

// Size reports how many distinct addresses the dataset covers.
func (d *Dataset) Size() int { return len(d.entries) }
