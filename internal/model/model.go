// Package model decodes the serialized ML artifacts the dashboard consumes
// and scores them. Three kinds exist: a fitted column pipeline
// (preprocessor), an additive tree ensemble, and a linear model. All three
// are plain JSON documents; none of them mutate after decoding.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// SchemaVersion is the artifact document version this codec understands.
const SchemaVersion = 1

// Artifact kinds dispatched on the top-level "kind" field.
const (
	KindColumnPipeline = "column_pipeline"
	KindTreeEnsemble   = "tree_ensemble"
	KindLinear         = "linear"
)

// Tasks a scoring model can be fitted for.
const (
	TaskClassification = "classification"
	TaskRegression     = "regression"
)

var (
	// ErrSchemaMismatch marks input that does not match what an artifact was
	// fitted on: missing column, unknown category, wrong vector width.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrUnsupportedModel marks an operation the model kind cannot serve,
	// e.g. classification calls on a regression fit or path attribution on a
	// non-tree model.
	ErrUnsupportedModel = errors.New("unsupported model type")
)

// Row is a single named-field record handed to a fitted pipeline. Lookup is
// by column name, never by position, so callers cannot misalign fields.
type Row map[string]any

// Transformer converts a raw feature record into the numeric vector the
// scoring models were trained on.
type Transformer interface {
	Transform(row Row) ([]float64, error)
	FeatureNames() []string
	InputColumns() []string
}

// Classifier is a binary classifier over a transformed feature vector.
// PredictProba returns the class probability masses [P(0), P(1)].
type Classifier interface {
	PredictProba(x []float64) ([]float64, error)
	PredictClass(x []float64) (int, error)
}

// Regressor predicts a scalar from a transformed feature vector.
type Regressor interface {
	Predict(x []float64) (float64, error)
}

// Info describes a decoded artifact for logs and the model-info surface.
type Info struct {
	Kind        string `json:"kind"`
	Task        string `json:"task,omitempty"`
	NumFeatures int    `json:"num_features"`
}

// Described is implemented by every decodable artifact.
type Described interface {
	Info() Info
}

type header struct {
	Schema int    `json:"schema"`
	Kind   string `json:"kind"`
}

// Decode parses a serialized artifact into its concrete model type and
// validates its structure. A structurally invalid document is an error; the
// caller treats that as a fatal load failure.
func Decode(data []byte) (Described, error) {
	var h header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode artifact header: %w", err)
	}
	if h.Schema != SchemaVersion {
		return nil, fmt.Errorf("unsupported artifact schema %d (want %d)", h.Schema, SchemaVersion)
	}

	switch h.Kind {
	case KindColumnPipeline:
		p := &ColumnPipeline{}
		if err := json.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("decode column pipeline: %w", err)
		}
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("column pipeline: %w", err)
		}
		return p, nil
	case KindTreeEnsemble:
		e := &TreeEnsemble{}
		if err := json.Unmarshal(data, e); err != nil {
			return nil, fmt.Errorf("decode tree ensemble: %w", err)
		}
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("tree ensemble: %w", err)
		}
		return e, nil
	case KindLinear:
		m := &LinearModel{}
		if err := json.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("decode linear model: %w", err)
		}
		if err := m.validate(); err != nil {
			return nil, fmt.Errorf("linear model: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: unknown artifact kind %q", ErrUnsupportedModel, h.Kind)
	}
}

// sigmoid maps a margin (log-odds) to a probability.
func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func checkWidth(x []float64, want int) error {
	if len(x) != want {
		return fmt.Errorf("%w: vector width %d, model expects %d", ErrSchemaMismatch, len(x), want)
	}
	return nil
}

func checkTask(have, want string) error {
	if have != want {
		return fmt.Errorf("%w: fitted for %s, not %s", ErrUnsupportedModel, have, want)
	}
	return nil
}
