// Package inference wraps the pretrained classifier behind a narrow port. The
// adapter shapes feature vectors into runtime feeds and reads the positive
// class probability back out.
package inference

import (
	"context"
	"maps"
	"math"
	"slices"
	"strings"

	"fintrust/internal/scoring/features"
	dErrors "fintrust/pkg/domain-errors"
)

// DefaultModelVersion is recorded when no artifact supplies a version.
const DefaultModelVersion = "1.0.0"

// positiveClass is the index of the "creditworthy" class.
const positiveClass = 1

// Runtime executes a loaded classifier. Implementations must be safe for
// concurrent use.
type Runtime interface {
	Run(ctx context.Context, feeds Feeds) (Outputs, error)
	Version() string
}

// Result is the classifier's verdict for one vector.
type Result struct {
	Probability  float64
	Creditworthy bool
}

// Adapter is constructed with the startup load result. A nil runtime means the
// model never loaded and every call fails with CodeModelNotReady.
type Adapter struct {
	runtime Runtime
}

func NewAdapter(runtime Runtime) *Adapter {
	return &Adapter{runtime: runtime}
}

// Ready reports whether a runtime is loaded.
func (a *Adapter) Ready() bool {
	return a.runtime != nil
}

// ModelVersion is the loaded artifact's version, or DefaultModelVersion.
func (a *Adapter) ModelVersion() string {
	if a.runtime == nil || a.runtime.Version() == "" {
		return DefaultModelVersion
	}
	return a.runtime.Version()
}

// Infer runs one vector through the model. It does not retry.
func (a *Adapter) Infer(ctx context.Context, vector features.Vector) (Result, error) {
	if a.runtime == nil {
		return Result{}, dErrors.New(dErrors.CodeModelNotReady, "classifier is not loaded")
	}

	outputs, err := a.runtime.Run(ctx, BuildFeeds(vector))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeModelNotReady) || dErrors.HasCode(err, dErrors.CodeTimeout) {
			return Result{}, err
		}
		return Result{}, dErrors.Wrap(err, dErrors.CodeInference, "classifier run failed")
	}

	p, err := positiveProbability(outputs)
	if err != nil {
		return Result{}, err
	}
	return Result{Probability: p, Creditworthy: p >= 0.5}, nil
}

// BuildFeeds converts each column into a [1,1] tensor: numbers as float32,
// categorical codes as strings.
func BuildFeeds(vector features.Vector) Feeds {
	cols := vector.Columns()
	feeds := make(Feeds, len(cols))
	for _, c := range cols {
		if c.Numeric {
			feeds[c.Name] = Tensor{Shape: scalarShape(), Floats: []float32{float32(c.Number)}}
		} else {
			feeds[c.Name] = Tensor{Shape: scalarShape(), Strings: []string{c.Code}}
		}
	}
	return feeds
}

// positiveProbability reads the creditworthy class from the first row of the
// first channel, by name order, whose name mentions "prob".
func positiveProbability(outputs Outputs) (float64, error) {
	for _, name := range slices.Sorted(maps.Keys(outputs)) {
		if !strings.Contains(strings.ToLower(name), "prob") {
			continue
		}
		out := outputs[name]
		var (
			p  float32
			ok bool
		)
		switch {
		case len(out.Maps) > 0:
			p, ok = out.Maps[0][positiveClass]
		case len(out.Values) > positiveClass:
			p, ok = out.Values[positiveClass], true
		}
		if !ok {
			return 0, dErrors.New(dErrors.CodeInference, "probability channel "+name+" has no creditworthy class")
		}
		prob := float64(p)
		if math.IsNaN(prob) || prob < 0 || prob > 1 {
			return 0, dErrors.New(dErrors.CodeInference, "probability out of range")
		}
		return prob, nil
	}
	return 0, dErrors.New(dErrors.CodeInference, "classifier output has no probability channel")
}
