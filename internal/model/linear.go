package model

import (
	"fmt"
	"math"
)

// LinearModel scores intercept + w·x, with a sigmoid link for classification
// fits. It is the non-tree classifier kind: path attribution does not apply
// to it.
type LinearModel struct {
	Schema    int       `json:"schema"`
	Kind      string    `json:"kind"`
	Task      string    `json:"task"`
	Intercept float64   `json:"intercept"`
	Weights   []float64 `json:"weights"`
	Features  []string  `json:"features"`
}

func (m *LinearModel) validate() error {
	if m.Task != TaskClassification && m.Task != TaskRegression {
		return fmt.Errorf("unknown task %q", m.Task)
	}
	if len(m.Features) == 0 {
		return fmt.Errorf("no features")
	}
	if len(m.Weights) != len(m.Features) {
		return fmt.Errorf("%d weights for %d features", len(m.Weights), len(m.Features))
	}
	if math.IsNaN(m.Intercept) || math.IsInf(m.Intercept, 0) {
		return fmt.Errorf("non-finite intercept")
	}
	for i, w := range m.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("weight %d: non-finite value", i)
		}
	}
	return nil
}

// Margin returns intercept + w·x; the log-odds for classification fits.
func (m *LinearModel) Margin(x []float64) (float64, error) {
	if err := checkWidth(x, len(m.Features)); err != nil {
		return 0, err
	}
	margin := m.Intercept
	for i, w := range m.Weights {
		margin += w * x[i]
	}
	return margin, nil
}

// PredictProba returns [P(class 0), P(class 1)] for a classification fit.
func (m *LinearModel) PredictProba(x []float64) ([]float64, error) {
	if err := checkTask(m.Task, TaskClassification); err != nil {
		return nil, err
	}
	margin, err := m.Margin(x)
	if err != nil {
		return nil, err
	}
	p := sigmoid(margin)
	return []float64{1 - p, p}, nil
}

// PredictClass returns the discrete class, thresholding P(1) at 0.5.
func (m *LinearModel) PredictClass(x []float64) (int, error) {
	proba, err := m.PredictProba(x)
	if err != nil {
		return 0, err
	}
	if proba[1] >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

// Predict returns the scalar prediction for a regression fit.
func (m *LinearModel) Predict(x []float64) (float64, error) {
	if err := checkTask(m.Task, TaskRegression); err != nil {
		return 0, err
	}
	return m.Margin(x)
}

// Info implements Described.
func (m *LinearModel) Info() Info {
	return Info{Kind: KindLinear, Task: m.Task, NumFeatures: len(m.Features)}
}
