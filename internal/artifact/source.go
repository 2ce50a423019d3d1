// Package artifact loads the three pre-trained model blobs the dashboard
// runs on. A Source hands out raw bytes by artifact name; Load decodes the
// full set, checks it against the canonical input schema and returns an
// immutable Set. Loading happens once at process start, and any failure
// there is fatal for the caller.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact names, fixed by convention with the training side.
const (
	ClassifierName   = "classifier"
	RULModelName     = "rul_model"
	PreprocessorName = "preprocessor"
)

// ErrNotFound marks an artifact name the source does not carry.
var ErrNotFound = errors.New("artifact not found")

// Names returns the three artifact names every source must serve.
func Names() []string {
	return []string{PreprocessorName, ClassifierName, RULModelName}
}

// Source fetches one serialized artifact by name.
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// DirSource reads artifacts from <dir>/<name>.json.
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (s *DirSource) Fetch(_ context.Context, name string) ([]byte, error) {
	path := filepath.Join(s.dir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	return data, nil
}
