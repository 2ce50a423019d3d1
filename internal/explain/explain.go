// Package explain decomposes a single tree-ensemble prediction into additive
// per-feature contributions. Walking each tree's decision path, the change
// in expected subtree value at every split is credited to the feature tested
// there; base value plus all contributions reproduces the ensemble margin
// exactly.
package explain

import (
	"fmt"
	"sort"

	"predmaint/internal/model"
)

// Contribution is one feature's additive share of a prediction, in margin
// (log-odds) space.
type Contribution struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// Explanation is the full decomposition of one prediction. BaseValue is the
// ensemble's expected output before seeing the input; Contributions cover
// every feature, sorted by absolute magnitude, and sum to Margin-BaseValue.
type Explanation struct {
	BaseValue     float64        `json:"base_value"`
	Margin        float64        `json:"margin"`
	Contributions []Contribution `json:"contributions"`
}

// Attribute explains a single prediction of m on the transformed vector x.
// Only tree ensembles carry the per-node expected values the path walk
// needs; any other model kind fails with model.ErrUnsupportedModel, which
// callers treat as a recoverable display condition rather than an inference
// failure.
func Attribute(m model.Described, x []float64) (*Explanation, error) {
	ens, ok := m.(*model.TreeEnsemble)
	if !ok {
		return nil, fmt.Errorf("%w: no path attribution for kind %q", model.ErrUnsupportedModel, m.Info().Kind)
	}
	if len(x) != len(ens.Features) {
		return nil, fmt.Errorf("%w: vector width %d, ensemble expects %d", model.ErrSchemaMismatch, len(x), len(ens.Features))
	}

	contrib := make([]float64, len(ens.Features))
	base := ens.BaseScore
	for ti := range ens.Trees {
		nodes := ens.Trees[ti].Nodes
		base += nodes[0].Value
		i := 0
		for !nodes[i].Leaf {
			n := nodes[i]
			next := n.Left
			if x[n.Feature] > n.Threshold {
				next = n.Right
			}
			contrib[n.Feature] += nodes[next].Value - nodes[i].Value
			i = next
		}
	}

	margin := base
	out := make([]Contribution, len(contrib))
	for i, v := range contrib {
		out[i] = Contribution{Feature: ens.Features[i], Value: v}
		margin += v
	}
	sort.SliceStable(out, func(a, b int) bool {
		return abs(out[a].Value) > abs(out[b].Value)
	})

	return &Explanation{BaseValue: base, Margin: margin, Contributions: out}, nil
}

// Top returns the n largest-magnitude contributions (all of them when n
// exceeds the feature count or is non-positive).
func (e *Explanation) Top(n int) []Contribution {
	if n <= 0 || n > len(e.Contributions) {
		n = len(e.Contributions)
	}
	return e.Contributions[:n]
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
