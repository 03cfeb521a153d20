package inference

import (
	"context"
	"fmt"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"fintrust/internal/scoring/features"
)

// Artifact is a serialized logistic classifier: an intercept, standardized
// numeric weights and per-code categorical weights.
type Artifact struct {
	Version     string                        `yaml:"version"`
	Intercept   float64                       `yaml:"intercept"`
	Numeric     map[string]NumericWeight      `yaml:"numeric"`
	Categorical map[string]map[string]float64 `yaml:"categorical"`
}

// NumericWeight contributes weight * (x - mean) / scale.
type NumericWeight struct {
	Weight float64 `yaml:"weight"`
	Mean   float64 `yaml:"mean"`
	Scale  float64 `yaml:"scale"`
}

// ArtifactRuntime evaluates an Artifact. It holds no mutable state.
type ArtifactRuntime struct {
	artifact Artifact
}

// LoadArtifact reads and validates a YAML artifact from disk.
func LoadArtifact(path string) (*ArtifactRuntime, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	return ParseArtifact(data)
}

// ParseArtifact decodes and validates a YAML artifact.
func ParseArtifact(data []byte) (*ArtifactRuntime, error) {
	var a Artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	if a.Version == "" {
		a.Version = DefaultModelVersion
	}
	return &ArtifactRuntime{artifact: a}, nil
}

func (a Artifact) validate() error {
	known := features.FieldNames()
	if !finite(a.Intercept) {
		return fmt.Errorf("model artifact: intercept is not finite")
	}
	if len(a.Numeric) == 0 && len(a.Categorical) == 0 {
		return fmt.Errorf("model artifact: no weights")
	}
	for name, w := range a.Numeric {
		if !slices.Contains(known, name) {
			return fmt.Errorf("model artifact: unknown numeric input %q", name)
		}
		if !finite(w.Weight) || !finite(w.Mean) || !finite(w.Scale) || w.Scale < 0 {
			return fmt.Errorf("model artifact: invalid weight for %q", name)
		}
	}
	for name, codes := range a.Categorical {
		if !slices.Contains(known, name) {
			return fmt.Errorf("model artifact: unknown categorical input %q", name)
		}
		for code, w := range codes {
			if !finite(w) {
				return fmt.Errorf("model artifact: invalid weight for %s=%s", name, code)
			}
		}
	}
	return nil
}

func (r *ArtifactRuntime) Version() string {
	return r.artifact.Version
}

// Run scores a single row and emits "label" and "probabilities" channels.
func (r *ArtifactRuntime) Run(ctx context.Context, feeds Feeds) (Outputs, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	z := r.artifact.Intercept
	for name, w := range r.artifact.Numeric {
		t, ok := feeds[name]
		if !ok || len(t.Floats) == 0 {
			return nil, fmt.Errorf("missing numeric input %q", name)
		}
		scale := w.Scale
		if scale == 0 {
			scale = 1
		}
		z += w.Weight * (float64(t.Floats[0]) - w.Mean) / scale
	}
	for name, codes := range r.artifact.Categorical {
		t, ok := feeds[name]
		if !ok || len(t.Strings) == 0 {
			return nil, fmt.Errorf("missing categorical input %q", name)
		}
		z += codes[t.Strings[0]]
	}

	p := 1 / (1 + math.Exp(-z))
	label := float32(0)
	if p >= 0.5 {
		label = 1
	}
	return Outputs{
		"label":         {Values: []float32{label}},
		"probabilities": {Values: []float32{float32(1 - p), float32(p)}},
	}, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
