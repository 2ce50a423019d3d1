package model

import (
	"fmt"
	"math"
)

// TreeNode is one node in a flat tree array. Internal nodes test
// x[Feature] <= Threshold and carry the training-time expected value of
// their subtree; the attribution walk depends on that value being present.
type TreeNode struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Value     float64 `json:"value"`
}

// Tree is a single additive tree, nodes stored as a flat array with the
// root at index 0 and child indexes strictly increasing.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// TreeEnsemble is an additive ensemble of binary trees, fitted either as a
// binary classifier (sigmoid of the summed margin) or as a regressor (raw
// summed margin).
type TreeEnsemble struct {
	Schema    int      `json:"schema"`
	Kind      string   `json:"kind"`
	Task      string   `json:"task"`
	BaseScore float64  `json:"base_score"`
	Features  []string `json:"features"`
	Trees     []Tree   `json:"trees"`
}

func (e *TreeEnsemble) validate() error {
	if e.Task != TaskClassification && e.Task != TaskRegression {
		return fmt.Errorf("unknown task %q", e.Task)
	}
	if math.IsNaN(e.BaseScore) || math.IsInf(e.BaseScore, 0) {
		return fmt.Errorf("non-finite base score")
	}
	if len(e.Features) == 0 {
		return fmt.Errorf("no features")
	}
	if len(e.Trees) == 0 {
		return fmt.Errorf("no trees")
	}
	for ti, t := range e.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d: no nodes", ti)
		}
		for ni, n := range t.Nodes {
			if math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
				return fmt.Errorf("tree %d node %d: non-finite value", ti, ni)
			}
			if n.Leaf {
				continue
			}
			if n.Feature < 0 || n.Feature >= len(e.Features) {
				return fmt.Errorf("tree %d node %d: feature index %d out of range", ti, ni, n.Feature)
			}
			if math.IsNaN(n.Threshold) || math.IsInf(n.Threshold, 0) {
				return fmt.Errorf("tree %d node %d: non-finite threshold", ti, ni)
			}
			// Children must point forward in the array. This both rules out
			// cycles and keeps every walk finite.
			if n.Left <= ni || n.Left >= len(t.Nodes) || n.Right <= ni || n.Right >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d: child index out of range", ti, ni)
			}
		}
	}
	return nil
}

// Margin returns the raw additive output for x: base score plus the leaf
// value reached in every tree. For classification fits this is the log-odds.
func (e *TreeEnsemble) Margin(x []float64) (float64, error) {
	if err := checkWidth(x, len(e.Features)); err != nil {
		return 0, err
	}
	margin := e.BaseScore
	for i := range e.Trees {
		margin += e.Trees[i].score(x)
	}
	return margin, nil
}

func (t *Tree) score(x []float64) float64 {
	i := 0
	for !t.Nodes[i].Leaf {
		n := &t.Nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

// PredictProba returns [P(class 0), P(class 1)] for a classification fit.
func (e *TreeEnsemble) PredictProba(x []float64) ([]float64, error) {
	if err := checkTask(e.Task, TaskClassification); err != nil {
		return nil, err
	}
	margin, err := e.Margin(x)
	if err != nil {
		return nil, err
	}
	p := sigmoid(margin)
	return []float64{1 - p, p}, nil
}

// PredictClass returns the discrete class, thresholding P(1) at 0.5.
func (e *TreeEnsemble) PredictClass(x []float64) (int, error) {
	proba, err := e.PredictProba(x)
	if err != nil {
		return 0, err
	}
	if proba[1] >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

// Predict returns the scalar prediction for a regression fit.
func (e *TreeEnsemble) Predict(x []float64) (float64, error) {
	if err := checkTask(e.Task, TaskRegression); err != nil {
		return 0, err
	}
	return e.Margin(x)
}

// Info implements Described.
func (e *TreeEnsemble) Info() Info {
	return Info{Kind: KindTreeEnsemble, Task: e.Task, NumFeatures: len(e.Features)}
}
