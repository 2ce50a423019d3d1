package infer

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"predmaint/internal/artifact"
	"predmaint/internal/features"
	"predmaint/internal/model"
	"predmaint/internal/model/modeltest"
)

// MockSink records instrumentation calls for assertions.
type MockSink struct {
	Predictions         int
	Failures            int
	SchemaMismatches    int
	Explanations        int
	ExplanationFailures int
	LastProbability     float64
	LastRUL             float64
}

func (m *MockSink) PredictionsInc()                   { m.Predictions++ }
func (m *MockSink) PredictionFailuresInc()            { m.Failures++ }
func (m *MockSink) SchemaMismatchesInc()              { m.SchemaMismatches++ }
func (m *MockSink) PredictionLatencyObserve(float64)  {}
func (m *MockSink) ProbabilityObserve(p float64)      { m.LastProbability = p }
func (m *MockSink) RULObserve(r float64)              { m.LastRUL = r }
func (m *MockSink) ExplanationsInc()                  { m.Explanations++ }
func (m *MockSink) ExplanationFailuresInc()           { m.ExplanationFailures++ }
func (m *MockSink) ExplanationLatencyObserve(float64) {}

func fixtureSet() *artifact.Set {
	return &artifact.Set{
		Preprocessor:       modeltest.Pipeline(),
		Classifier:         modeltest.Classifier(),
		Regressor:          modeltest.Regressor(),
		ClassifierArtifact: modeltest.Classifier(),
		Infos:              map[string]model.Info{},
	}
}

func defaultInput() features.RawInput {
	return features.RawInput{
		MachineModel:       "Model_A",
		AvgTemperature:     50,
		VibrationLevel:     2,
		RotatingSpeed:      1500,
		VoltageFluctuation: 5,
		TorqueNm:           100,
		OilViscosity:       10,
		AmbientHumidity:    40,
		OperatorExperience: "Senior",
		LastServiceDays:    30,
		FaultCode:          "None",
		WorkingHoursTotal:  1000,
	}
}

func TestPredictDefaults(t *testing.T) {
	sink := &MockSink{}
	e := NewWithMetrics(fixtureSet(), sink)

	p, err := e.Predict(defaultInput())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if p.ID == "" {
		t.Error("expected a prediction id")
	}
	if p.FailureProbability < 0 || p.FailureProbability > 1 {
		t.Errorf("probability %v outside [0,1]", p.FailureProbability)
	}
	if p.HealthClass != 0 && p.HealthClass != 1 {
		t.Errorf("health class %d outside {0,1}", p.HealthClass)
	}
	if p.RUL < 0 {
		t.Errorf("negative RUL estimate %v", p.RUL)
	}
	if len(p.Vector) != len(modeltest.Pipeline().FeatureNames()) {
		t.Errorf("vector width %d, want %d", len(p.Vector), len(modeltest.Pipeline().FeatureNames()))
	}
	if sink.Predictions != 1 {
		t.Errorf("predictions counter = %d, want 1", sink.Predictions)
	}
	if sink.LastProbability != p.FailureProbability {
		t.Errorf("probability not observed: %v != %v", sink.LastProbability, p.FailureProbability)
	}
}

func TestPredictInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*features.RawInput)
	}{
		{"temperature above range", func(in *features.RawInput) { in.AvgTemperature = 151 }},
		{"negative vibration", func(in *features.RawInput) { in.VibrationLevel = -1 }},
		{"NaN torque", func(in *features.RawInput) { in.TorqueNm = math.NaN() }},
		{"unknown machine model", func(in *features.RawInput) { in.MachineModel = "Model_X" }},
		{"unknown experience", func(in *features.RawInput) { in.OperatorExperience = "Expert" }},
		{"unknown fault code", func(in *features.RawInput) { in.FaultCode = "E999" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &MockSink{}
			e := NewWithMetrics(fixtureSet(), sink)
			in := defaultInput()
			tt.mutate(&in)

			_, err := e.Predict(in)
			if !errors.Is(err, features.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if sink.Predictions != 0 {
				t.Error("invalid input must not count as a prediction")
			}
		})
	}
}

// schemaMismatchTransformer simulates a preprocessor fitted on a different
// column set than the feature engineer produces.
type schemaMismatchTransformer struct{}

func (schemaMismatchTransformer) Transform(model.Row) ([]float64, error) {
	return nil, fmt.Errorf("%w: missing column %q", model.ErrSchemaMismatch, "Pressure_Bar")
}
func (schemaMismatchTransformer) FeatureNames() []string { return nil }
func (schemaMismatchTransformer) InputColumns() []string { return nil }

func TestPredictSchemaMismatchAborts(t *testing.T) {
	sink := &MockSink{}
	set := fixtureSet()
	set.Preprocessor = schemaMismatchTransformer{}
	e := NewWithMetrics(set, sink)

	p, err := e.Predict(defaultInput())
	if !errors.Is(err, model.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if p != nil {
		t.Error("expected no partial result on schema mismatch")
	}
	if sink.SchemaMismatches != 1 {
		t.Errorf("schema mismatch counter = %d, want 1", sink.SchemaMismatches)
	}
	if sink.Failures != 1 {
		t.Errorf("failure counter = %d, want 1", sink.Failures)
	}
}

// badClassifier returns a probability outside [0,1].
type badClassifier struct{}

func (badClassifier) PredictProba([]float64) ([]float64, error) { return []float64{-0.5, 1.5}, nil }
func (badClassifier) PredictClass([]float64) (int, error)       { return 1, nil }

func TestPredictRejectsOutOfRangeProbability(t *testing.T) {
	set := fixtureSet()
	set.Classifier = badClassifier{}
	e := New(set)

	_, err := e.Predict(defaultInput())
	if !errors.Is(err, ErrModelOutput) {
		t.Fatalf("expected ErrModelOutput, got %v", err)
	}
}

func TestExplainTreeClassifier(t *testing.T) {
	sink := &MockSink{}
	e := NewWithMetrics(fixtureSet(), sink)

	p, err := e.Predict(defaultInput())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	exp, err := e.Explain(p)
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if len(exp.Contributions) != len(p.Vector) {
		t.Errorf("%d contributions for %d features", len(exp.Contributions), len(p.Vector))
	}
	if sink.Explanations != 1 {
		t.Errorf("explanations counter = %d, want 1", sink.Explanations)
	}
}

func TestExplainLinearClassifierRecoverable(t *testing.T) {
	sink := &MockSink{}
	set := fixtureSet()
	set.Classifier = modeltest.LinearClassifier()
	set.ClassifierArtifact = modeltest.LinearClassifier()
	e := NewWithMetrics(set, sink)

	// The prediction itself must still work on a non-tree classifier.
	p, err := e.Predict(defaultInput())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	_, err = e.Explain(p)
	if !errors.Is(err, model.ErrUnsupportedModel) {
		t.Fatalf("expected ErrUnsupportedModel, got %v", err)
	}
	if sink.ExplanationFailures != 1 {
		t.Errorf("explanation failure counter = %d, want 1", sink.ExplanationFailures)
	}
}

func BenchmarkPredict(b *testing.B) {
	e := New(fixtureSet())
	in := defaultInput()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Predict(in); err != nil {
			b.Fatal(err)
		}
	}
}
