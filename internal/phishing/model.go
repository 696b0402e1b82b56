package phishing

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/cyberguardx/cyberguardx/internal/domain/scans"
)

const decisionThreshold = 0.5

// featureDirection pins the sign each coefficient is allowed to take:
// +1 for risk features, -1 for protective ones. Rejecting artifacts that
// violate it makes the monotonicity contract hold by construction:
// increasing a risky feature can only raise the probability.
var featureDirection = map[string]int{
	"url_length":         +1,
	"num_dots":           +1,
	"num_hyphens":        +1,
	"num_digits":         +1,
	"has_at":             +1,
	"has_brand_token":    +1,
	"uses_shortener":     +1,
	"has_https":          -1,
	"domain_age":         -1,
	"ssl_valid":          -1,
	"path_length":        +1,
	"special_char_ratio": +1,
}

// ModelMetrics are the offline evaluation metrics of the trained model,
// carried for auditability.
type ModelMetrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1_score"`
}

// ModelInfo identifies the model artifact behind a prediction.
type ModelInfo struct {
	Name    string       `json:"name"`
	Version string       `json:"version"`
	Metrics ModelMetrics `json:"metrics"`
}

// modelArtifact is the on-disk JSON layout of a trained model.
type modelArtifact struct {
	ModelName    string             `json:"model_name"`
	ModelVersion string             `json:"model_version"`
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`
	Metrics      ModelMetrics       `json:"metrics"`
}

// Model is a logistic classifier over the lexical feature set. Loaded once
// at startup and safe for concurrent use (read-only after load).
type Model struct {
	info      ModelInfo
	intercept float64
	weights   []float64 // in FeatureNames() order
	byName    map[string]float64
}

// Prediction is the classifier output for a single URL.
type Prediction struct {
	Probability float64 // phishing probability in [0,1]
	Confidence  float64 // distance from the decision boundary, scaled to [0,1]
	IsPhishing  bool
}

// LoadModel reads a model artifact from disk. Any failure wraps
// scans.ErrModelUnavailable: callers treat this as a cold-start fatal
// condition, not a per-request error.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scans.ErrModelUnavailable, err)
	}
	var art modelArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("%w: malformed artifact %s: %v", scans.ErrModelUnavailable, path, err)
	}
	return newModel(art)
}

func newModel(art modelArtifact) (*Model, error) {
	names := FeatureNames()
	weights := make([]float64, len(names))
	byName := make(map[string]float64, len(names))
	for i, name := range names {
		w, ok := art.Coefficients[name]
		if !ok {
			return nil, fmt.Errorf("%w: artifact missing coefficient %q", scans.ErrModelUnavailable, name)
		}
		if dir := featureDirection[name]; float64(dir)*w < 0 {
			return nil, fmt.Errorf("%w: coefficient %q has wrong sign %g", scans.ErrModelUnavailable, name, w)
		}
		weights[i] = w
		byName[name] = w
	}
	return &Model{
		info: ModelInfo{
			Name:    art.ModelName,
			Version: art.ModelVersion,
			Metrics: art.Metrics,
		},
		intercept: art.Intercept,
		weights:   weights,
		byName:    byName,
	}, nil
}

// Info exposes model identity and metrics for auditability.
func (m *Model) Info() ModelInfo { return m.info }

// Coefficient returns the weight of a named feature (0 if unknown).
func (m *Model) Coefficient(name string) float64 { return m.byName[name] }

// Predict scores a feature vector.
func (m *Model) Predict(f Features) Prediction {
	z := m.intercept
	for i, x := range f.Vector() {
		z += m.weights[i] * x
	}
	p := 1.0 / (1.0 + math.Exp(-z))
	return Prediction{
		Probability: p,
		Confidence:  math.Abs(p-decisionThreshold) * 2,
		IsPhishing:  p >= decisionThreshold,
	}
}
