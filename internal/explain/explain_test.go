package explain

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"predmaint/internal/model"
	"predmaint/internal/model/modeltest"
)

func TestAttributeAdditivity(t *testing.T) {
	ens := modeltest.Classifier()
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 100; trial++ {
		x := make([]float64, len(ens.Features))
		for i := range x {
			x[i] = rng.NormFloat64() * 2
		}

		exp, err := Attribute(ens, x)
		if err != nil {
			t.Fatalf("Attribute: %v", err)
		}

		margin, err := ens.Margin(x)
		if err != nil {
			t.Fatalf("Margin: %v", err)
		}
		sum := exp.BaseValue
		for _, c := range exp.Contributions {
			sum += c.Value
		}
		if math.Abs(sum-margin) > 1e-9 {
			t.Fatalf("trial %d: base + contributions = %v, margin = %v", trial, sum, margin)
		}
		if math.Abs(exp.Margin-margin) > 1e-9 {
			t.Fatalf("trial %d: reported margin %v, actual %v", trial, exp.Margin, margin)
		}
	}
}

func TestAttributeSortedByMagnitude(t *testing.T) {
	ens := modeltest.Classifier()
	x := make([]float64, len(ens.Features))
	x[4] = 3 // past both vibration and rolling-average splits
	x[18] = 2
	x[19] = 1

	exp, err := Attribute(ens, x)
	if err != nil {
		t.Fatalf("Attribute: %v", err)
	}
	for i := 1; i < len(exp.Contributions); i++ {
		if math.Abs(exp.Contributions[i].Value) > math.Abs(exp.Contributions[i-1].Value) {
			t.Fatalf("contributions not sorted at %d: %v after %v",
				i, exp.Contributions[i].Value, exp.Contributions[i-1].Value)
		}
	}
}

func TestAttributeCreditsSplitFeatures(t *testing.T) {
	ens := modeltest.Classifier()
	x := make([]float64, len(ens.Features))
	x[19] = 5 // only the stress-index split fires in tree 1

	exp, err := Attribute(ens, x)
	if err != nil {
		t.Fatalf("Attribute: %v", err)
	}
	byFeature := make(map[string]float64, len(exp.Contributions))
	for _, c := range exp.Contributions {
		byFeature[c.Feature] = c.Value
	}
	if byFeature["Stress_Index"] == 0 {
		t.Error("stress index split fired but received no credit")
	}
	// Features never tested on the path get exactly zero.
	if v := byFeature["Oil_Viscosity"]; v != 0 {
		t.Errorf("untested feature credited %v, want 0", v)
	}
}

func TestAttributeUnsupportedModel(t *testing.T) {
	lin := modeltest.LinearClassifier()
	x := make([]float64, len(lin.Features))

	_, err := Attribute(lin, x)
	if !errors.Is(err, model.ErrUnsupportedModel) {
		t.Fatalf("expected ErrUnsupportedModel, got %v", err)
	}
}

func TestAttributeWidthMismatch(t *testing.T) {
	ens := modeltest.Classifier()
	_, err := Attribute(ens, []float64{1, 2, 3})
	if !errors.Is(err, model.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestTop(t *testing.T) {
	ens := modeltest.Classifier()
	x := make([]float64, len(ens.Features))
	exp, err := Attribute(ens, x)
	if err != nil {
		t.Fatalf("Attribute: %v", err)
	}

	if got := exp.Top(3); len(got) != 3 {
		t.Errorf("Top(3) returned %d contributions", len(got))
	}
	if got := exp.Top(0); len(got) != len(ens.Features) {
		t.Errorf("Top(0) returned %d contributions, want all %d", len(got), len(ens.Features))
	}
	if got := exp.Top(1000); len(got) != len(ens.Features) {
		t.Errorf("Top(1000) returned %d contributions, want all %d", len(got), len(ens.Features))
	}
}

func BenchmarkAttribute(b *testing.B) {
	ens := modeltest.Classifier()
	x := make([]float64, len(ens.Features))
	for i := range x {
		x[i] = float64(i%5) - 2
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Attribute(ens, x); err != nil {
			b.Fatal(err)
		}
	}
}
