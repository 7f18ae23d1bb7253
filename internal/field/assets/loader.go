package assets

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/jwbonner/advantagescope/internal/security"
)

// descriptorFile is the on-disk shape of a per-asset config.json. The type
// field selects which descriptor the entry becomes.
type descriptorFile struct {
	Type         string         `json:"type"`
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Model        string         `json:"model"`
	Rotations    []RotationStep `json:"rotations"`
	Position     [3]float64     `json:"position"`
	Cameras      []CameraMount  `json:"cameras"`
	WidthInches  float64        `json:"widthInches"`
	HeightInches float64        `json:"heightInches"`
}

// LoadCatalog scans dir for asset subdirectories containing a config.json
// and builds the catalog. Entries that fail to parse, carry an unknown
// type, or reference a model outside dir are skipped; only an unreadable
// directory is an error. Descriptors are sorted by id so the catalog
// fingerprint is deterministic.
func LoadCatalog(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read assets dir: %w", err)
	}

	catalog := &Catalog{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		assetDir := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(filepath.Join(assetDir, "config.json"))
		if err != nil {
			continue
		}

		var desc descriptorFile
		if err := json.Unmarshal(raw, &desc); err != nil {
			continue
		}
		if desc.ID == "" {
			desc.ID = entry.Name()
		}
		model, ok := resolveModel(dir, assetDir, desc.Model)
		if !ok {
			continue
		}

		switch desc.Type {
		case "field":
			catalog.Fields = append(catalog.Fields, Field{
				ID:           desc.ID,
				Name:         desc.Name,
				Model:        model,
				Rotations:    desc.Rotations,
				WidthInches:  desc.WidthInches,
				HeightInches: desc.HeightInches,
			})
		case "robot":
			catalog.Robots = append(catalog.Robots, Robot{
				ID:        desc.ID,
				Name:      desc.Name,
				Model:     model,
				Rotations: desc.Rotations,
				Position:  desc.Position,
				Cameras:   desc.Cameras,
			})
		}
	}

	sort.Slice(catalog.Fields, func(i, j int) bool { return catalog.Fields[i].ID < catalog.Fields[j].ID })
	sort.Slice(catalog.Robots, func(i, j int) bool { return catalog.Robots[i].ID < catalog.Robots[j].ID })
	return catalog, nil
}

// resolveModel joins a descriptor's model reference onto its asset
// directory. References escaping the catalog root are rejected.
func resolveModel(root, assetDir, model string) (string, bool) {
	if model == "" {
		return "", true
	}
	path := filepath.Join(assetDir, model)
	if err := security.WithinRoot(path, root); err != nil {
		return "", false
	}
	return path, true
}
