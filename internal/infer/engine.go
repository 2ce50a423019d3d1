// Package infer runs the prediction cycle: raw operator input through the
// preprocessor, then through the failure classifier and the RUL regressor.
// The engine holds the once-loaded artifact set and a metrics sink; it keeps
// no state between predictions.
package infer

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"predmaint/internal/artifact"
	"predmaint/internal/explain"
	"predmaint/internal/features"
	"predmaint/internal/model"
)

// ErrModelOutput marks a model response outside its contract: a probability
// off [0,1], a class outside {0,1} or a non-finite value.
var ErrModelOutput = errors.New("invalid model output")

// MetricsSink receives the engine's instrumentation events. metrics.Metrics
// satisfies it; tests pass a mock.
type MetricsSink interface {
	PredictionsInc()
	PredictionFailuresInc()
	SchemaMismatchesInc()
	PredictionLatencyObserve(float64)
	ProbabilityObserve(float64)
	RULObserve(float64)
	ExplanationsInc()
	ExplanationFailuresInc()
	ExplanationLatencyObserve(float64)
}

// Engine executes prediction cycles against an immutable artifact set.
type Engine struct {
	set     *artifact.Set
	metrics MetricsSink
}

// Prediction is the outcome of one cycle.
type Prediction struct {
	ID                 string
	FailureProbability float64
	HealthClass        int
	RUL                float64
	Elapsed            time.Duration

	// Vector is the transformed feature row, retained for attribution.
	Vector []float64
}

func New(set *artifact.Set) *Engine {
	return NewWithMetrics(set, nil)
}

func NewWithMetrics(set *artifact.Set, metrics MetricsSink) *Engine {
	return &Engine{set: set, metrics: metrics}
}

// Predict runs one full cycle for raw operator input. Invalid input fails
// with features.ErrInvalidInput before any model is touched; a schema
// mismatch or bad model output aborts the cycle with no partial result.
func (e *Engine) Predict(in features.RawInput) (*Prediction, error) {
	start := time.Now()
	id := uuid.NewString()

	p, err := e.predict(id, in)
	if err != nil {
		if e.metrics != nil {
			if !errors.Is(err, features.ErrInvalidInput) {
				e.metrics.PredictionFailuresInc()
			}
			if errors.Is(err, model.ErrSchemaMismatch) {
				e.metrics.SchemaMismatchesInc()
			}
		}
		log.Error().Err(err).Str("prediction_id", id).Msg("prediction cycle aborted")
		return nil, err
	}

	p.Elapsed = time.Since(start)
	if e.metrics != nil {
		e.metrics.PredictionsInc()
		e.metrics.PredictionLatencyObserve(p.Elapsed.Seconds())
		e.metrics.ProbabilityObserve(p.FailureProbability)
		e.metrics.RULObserve(p.RUL)
	}
	log.Debug().
		Str("prediction_id", id).
		Float64("failure_probability", p.FailureProbability).
		Int("health_class", p.HealthClass).
		Float64("rul_hours", p.RUL).
		Dur("elapsed", p.Elapsed).
		Msg("prediction complete")
	return p, nil
}

func (e *Engine) predict(id string, in features.RawInput) (*Prediction, error) {
	if err := features.ValidateBounds(in); err != nil {
		return nil, err
	}
	obs, err := features.Derive(in)
	if err != nil {
		return nil, err
	}

	x, err := e.set.Preprocessor.Transform(obs.Row())
	if err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}

	proba, err := e.set.Classifier.PredictProba(x)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	if len(proba) != 2 {
		return nil, fmt.Errorf("%w: %d probability masses, want 2", ErrModelOutput, len(proba))
	}
	failureProb := proba[1]
	if math.IsNaN(failureProb) || failureProb < 0 || failureProb > 1 {
		return nil, fmt.Errorf("%w: failure probability %v", ErrModelOutput, failureProb)
	}

	class, err := e.set.Classifier.PredictClass(x)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	if class != 0 && class != 1 {
		return nil, fmt.Errorf("%w: health class %d", ErrModelOutput, class)
	}

	rul, err := e.set.Regressor.Predict(x)
	if err != nil {
		return nil, fmt.Errorf("estimate RUL: %w", err)
	}
	if math.IsNaN(rul) || math.IsInf(rul, 0) {
		return nil, fmt.Errorf("%w: non-finite RUL estimate", ErrModelOutput)
	}

	return &Prediction{
		ID:                 id,
		FailureProbability: failureProb,
		HealthClass:        class,
		RUL:                rul,
		Vector:             x,
	}, nil
}

// Explain computes the per-feature attribution for a finished prediction.
// Failure here is recoverable: the caller shows a textual notice instead of
// the attribution chart and keeps the prediction results.
func (e *Engine) Explain(p *Prediction) (*explain.Explanation, error) {
	start := time.Now()
	exp, err := explain.Attribute(e.set.ClassifierArtifact, p.Vector)
	if err != nil {
		if e.metrics != nil {
			e.metrics.ExplanationFailuresInc()
		}
		log.Warn().Err(err).Str("prediction_id", p.ID).Msg("explanation unavailable")
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.ExplanationsInc()
		e.metrics.ExplanationLatencyObserve(time.Since(start).Seconds())
	}
	return exp, nil
}
