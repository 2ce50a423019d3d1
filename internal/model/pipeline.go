package model

import (
	"fmt"
	"math"
)

// Column types a fitted pipeline knows how to transform.
const (
	ColumnNumeric     = "numeric"
	ColumnCategorical = "categorical"
)

// ColumnSpec is one fitted input column. Numeric columns carry the fitted
// standardization parameters; categorical columns carry the fitted category
// list in encoding order.
type ColumnSpec struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Mean       float64  `json:"mean,omitempty"`
	Scale      float64  `json:"scale,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// ColumnPipeline is a fitted preprocessor: standard scaling for numeric
// columns and one-hot encoding for categorical columns, with output slots in
// the exact column order it was fitted with.
type ColumnPipeline struct {
	Schema  int          `json:"schema"`
	Kind    string       `json:"kind"`
	Columns []ColumnSpec `json:"columns"`

	names []string
}

func (p *ColumnPipeline) validate() error {
	if len(p.Columns) == 0 {
		return fmt.Errorf("no columns")
	}
	seen := make(map[string]bool, len(p.Columns))
	for i, col := range p.Columns {
		if col.Name == "" {
			return fmt.Errorf("column %d: empty name", i)
		}
		if seen[col.Name] {
			return fmt.Errorf("column %q: duplicate name", col.Name)
		}
		seen[col.Name] = true
		switch col.Type {
		case ColumnNumeric:
			if math.IsNaN(col.Mean) || math.IsInf(col.Mean, 0) ||
				math.IsNaN(col.Scale) || math.IsInf(col.Scale, 0) || col.Scale < 0 {
				return fmt.Errorf("column %q: invalid scaling parameters", col.Name)
			}
		case ColumnCategorical:
			if len(col.Categories) == 0 {
				return fmt.Errorf("column %q: no fitted categories", col.Name)
			}
			cats := make(map[string]bool, len(col.Categories))
			for _, c := range col.Categories {
				if c == "" || cats[c] {
					return fmt.Errorf("column %q: empty or duplicate category", col.Name)
				}
				cats[c] = true
			}
		default:
			return fmt.Errorf("column %q: unknown type %q", col.Name, col.Type)
		}
	}
	p.names = p.buildNames()
	return nil
}

func (p *ColumnPipeline) buildNames() []string {
	names := make([]string, 0, len(p.Columns))
	for _, col := range p.Columns {
		if col.Type == ColumnCategorical {
			for _, c := range col.Categories {
				names = append(names, col.Name+"="+c)
			}
			continue
		}
		names = append(names, col.Name)
	}
	return names
}

// FeatureNames returns the post-transform output slot names: numeric columns
// keep their name, categorical columns expand to one "name=category" slot
// per fitted category.
func (p *ColumnPipeline) FeatureNames() []string {
	if p.names != nil {
		return p.names
	}
	return p.buildNames()
}

// InputColumns returns the names of the raw columns the pipeline was fitted
// on, in fit order.
func (p *ColumnPipeline) InputColumns() []string {
	cols := make([]string, len(p.Columns))
	for i, col := range p.Columns {
		cols[i] = col.Name
	}
	return cols
}

// Transform converts a named-field row into the numeric vector the scoring
// models expect. A missing field, a non-numeric value in a numeric column,
// or a category the pipeline was not fitted with is a schema mismatch.
func (p *ColumnPipeline) Transform(row Row) ([]float64, error) {
	out := make([]float64, 0, len(p.FeatureNames()))
	for _, col := range p.Columns {
		v, ok := row[col.Name]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrSchemaMismatch, col.Name)
		}
		switch col.Type {
		case ColumnNumeric:
			f, err := toFloat(v)
			if err != nil {
				return nil, fmt.Errorf("%w: column %q: %v", ErrSchemaMismatch, col.Name, err)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("%w: column %q: non-finite value", ErrSchemaMismatch, col.Name)
			}
			scale := col.Scale
			if scale == 0 {
				scale = 1 // zero-variance fit, pass the centered value through
			}
			out = append(out, (f-col.Mean)/scale)
		case ColumnCategorical:
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: column %q: expected string category, got %T", ErrSchemaMismatch, col.Name, v)
			}
			hot := -1
			for i, c := range col.Categories {
				if c == s {
					hot = i
					break
				}
			}
			if hot < 0 {
				return nil, fmt.Errorf("%w: column %q: unknown category %q", ErrSchemaMismatch, col.Name, s)
			}
			for i := range col.Categories {
				if i == hot {
					out = append(out, 1)
				} else {
					out = append(out, 0)
				}
			}
		}
	}
	return out, nil
}

// Info implements Described.
func (p *ColumnPipeline) Info() Info {
	return Info{Kind: KindColumnPipeline, NumFeatures: len(p.FeatureNames())}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected numeric value, got %T", v)
	}
}
