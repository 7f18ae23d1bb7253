package scene

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRootedModelReaderReadsInsideRoot(t *testing.T) {
	root := t.TempDir()
	model := filepath.Join(root, "Robot_A", "model.glb")
	if err := os.MkdirAll(filepath.Dir(model), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(model, []byte("glb"), 0o644); err != nil {
		t.Fatal(err)
	}

	reader := RootedModelReader{Root: root}
	data, err := reader.ReadModel(model)
	if err != nil {
		t.Fatalf("ReadModel() error = %v", err)
	}
	if string(data) != "glb" {
		t.Errorf("ReadModel() = %q, want %q", data, "glb")
	}
}

func TestRootedModelReaderRefusesEscape(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(t.TempDir(), "secret.glb")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	reader := RootedModelReader{Root: root}
	if _, err := reader.ReadModel(outside); err == nil {
		t.Fatal("ReadModel() accepted a path outside the root")
	}
	if _, err := reader.ReadModel(filepath.Join(root, "..", "secret.glb")); err == nil {
		t.Fatal("ReadModel() accepted a traversal path")
	}
}

func TestRootedModelReaderEmptyPath(t *testing.T) {
	reader := RootedModelReader{Root: t.TempDir()}
	data, err := reader.ReadModel("")
	if err != nil {
		t.Fatalf("ReadModel(\"\") error = %v", err)
	}
	if data != nil {
		t.Errorf("ReadModel(\"\") = %v, want nil", data)
	}
}
