package scene

import (
	"os"

	"github.com/jwbonner/advantagescope/internal/security"
)

// ModelReader abstracts model file IO so loads can be gated in tests and
// swapped for other sources later.
type ModelReader interface {
	// ReadModel returns the raw bytes for a model path. An empty path is a
	// model-less asset, not an error.
	ReadModel(path string) ([]byte, error)
}

// FSModelReader reads models from the local filesystem.
type FSModelReader struct{}

// ReadModel loads the model file bytes.
func (FSModelReader) ReadModel(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

// RootedModelReader reads models from the local filesystem, refusing paths
// outside Root. The service wires it with the asset catalog directory so a
// crafted descriptor cannot read elsewhere.
type RootedModelReader struct {
	Root string
}

// ReadModel loads the model file bytes after containment validation.
func (r RootedModelReader) ReadModel(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	if err := security.WithinRoot(path, r.Root); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}
