package artifact

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"predmaint/internal/features"
	"predmaint/internal/model"
)

// Set is the immutable artifact set one process runs on: the fitted
// preprocessor and the two scoring models, loaded once at startup and passed
// into the inference engine explicitly.
type Set struct {
	Preprocessor model.Transformer
	Classifier   model.Classifier
	Regressor    model.Regressor

	// ClassifierArtifact keeps the decoded classifier in its concrete form
	// for the attribution walk, which needs more than the scoring interface.
	ClassifierArtifact model.Described

	Infos    map[string]model.Info
	LoadedAt time.Time
}

// Load fetches and decodes the three artifacts from src and verifies that
// they fit together and fit the canonical input schema. Any failure here
// means the process must not start accepting input.
func Load(ctx context.Context, src Source) (*Set, error) {
	decoded := make(map[string]model.Described, 3)
	infos := make(map[string]model.Info, 3)
	for _, name := range Names() {
		data, err := src.Fetch(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		d, err := model.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		decoded[name] = d
		infos[name] = d.Info()
		log.Info().
			Str("artifact", name).
			Str("kind", d.Info().Kind).
			Str("task", d.Info().Task).
			Int("num_features", d.Info().NumFeatures).
			Msg("artifact decoded")
	}

	pre, ok := decoded[PreprocessorName].(model.Transformer)
	if !ok {
		return nil, fmt.Errorf("artifact %s: kind %q is not a preprocessor", PreprocessorName, infos[PreprocessorName].Kind)
	}
	clf, err := classifierFor(decoded[ClassifierName])
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", ClassifierName, err)
	}
	reg, err := regressorFor(decoded[RULModelName])
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", RULModelName, err)
	}

	if err := checkCompatibility(pre, infos); err != nil {
		return nil, err
	}

	return &Set{
		Preprocessor:       pre,
		Classifier:         clf,
		Regressor:          reg,
		ClassifierArtifact: decoded[ClassifierName],
		Infos:              infos,
		LoadedAt:           time.Now(),
	}, nil
}

func classifierFor(d model.Described) (model.Classifier, error) {
	c, ok := d.(model.Classifier)
	if !ok {
		return nil, fmt.Errorf("kind %q cannot classify", d.Info().Kind)
	}
	if task := d.Info().Task; task != model.TaskClassification {
		return nil, fmt.Errorf("fitted for %s, want %s", task, model.TaskClassification)
	}
	return c, nil
}

func regressorFor(d model.Described) (model.Regressor, error) {
	r, ok := d.(model.Regressor)
	if !ok {
		return nil, fmt.Errorf("kind %q cannot regress", d.Info().Kind)
	}
	if task := d.Info().Task; task != model.TaskRegression {
		return nil, fmt.Errorf("fitted for %s, want %s", task, model.TaskRegression)
	}
	return r, nil
}

// checkCompatibility verifies that the preprocessor expects exactly the
// canonical input columns, by name and order, and that both models accept
// the preprocessor's output width. The training side guarantees none of
// this, and a silent misalignment here would corrupt every prediction.
func checkCompatibility(pre model.Transformer, infos map[string]model.Info) error {
	want := features.ColumnNames()
	got := pre.InputColumns()
	if len(got) != len(want) {
		return fmt.Errorf("preprocessor expects %d input columns, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i] != name {
			return fmt.Errorf("preprocessor input column %d is %q, want %q", i, got[i], name)
		}
	}

	width := len(pre.FeatureNames())
	if n := infos[ClassifierName].NumFeatures; n != width {
		return fmt.Errorf("classifier expects %d features, preprocessor produces %d", n, width)
	}
	if n := infos[RULModelName].NumFeatures; n != width {
		return fmt.Errorf("rul_model expects %d features, preprocessor produces %d", n, width)
	}
	return nil
}
