package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jwbonner/advantagescope/internal/field/extract"
)

func TestDefaultAccessors(t *testing.T) {
	cfg := Default()

	if got := cfg.GetLogLevel(); got != "info" {
		t.Errorf("GetLogLevel() = %q, want \"info\"", got)
	}
	if got := cfg.GetTelemetryPath(); got != "telemetry.db" {
		t.Errorf("GetTelemetryPath() = %q, want \"telemetry.db\"", got)
	}
	if got := cfg.GetAssetsDir(); got != "assets" {
		t.Errorf("GetAssetsDir() = %q, want \"assets\"", got)
	}
	if !cfg.GetAssetsWatch() {
		t.Error("GetAssetsWatch() = false, want true")
	}
	if got := cfg.GetRefreshHz(); got != 60 {
		t.Errorf("GetRefreshHz() = %d, want 60", got)
	}
	if got := cfg.GetAPIAddr(); got != ":8080" {
		t.Errorf("GetAPIAddr() = %q, want \":8080\"", got)
	}
	if got := cfg.GetMonitorAddr(); got != ":8081" {
		t.Errorf("GetMonitorAddr() = %q, want \":8081\"", got)
	}
	if got := cfg.GetStreamAddr(); got != ":9090" {
		t.Errorf("GetStreamAddr() = %q, want \":9090\"", got)
	}
	if cfg.GetRecorderEnabled() {
		t.Error("GetRecorderEnabled() = true, want false")
	}
	if got := cfg.GetRecorderDir(); got != "recordings" {
		t.Errorf("GetRecorderDir() = %q, want \"recordings\"", got)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "fieldview.yaml")

	testYAML := `
logging:
  level: debug
telemetry:
  path: /var/lib/fieldview/match.db
render:
  refresh_hz: 30
scene:
  field: field-2026
  robot: robot-a
  origin: auto
  bindings:
    - key: /robot/pose
      role: robot
    - key: /robot/trajectory
      role: trajectory
  alliance_key: /match/alliance
`
	if err := os.WriteFile(configPath, []byte(testYAML), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if got := cfg.GetLogLevel(); got != "debug" {
		t.Errorf("GetLogLevel() = %q, want \"debug\"", got)
	}
	if got := cfg.GetTelemetryPath(); got != "/var/lib/fieldview/match.db" {
		t.Errorf("GetTelemetryPath() = %q", got)
	}
	if got := cfg.GetRefreshHz(); got != 30 {
		t.Errorf("GetRefreshHz() = %d, want 30", got)
	}

	// Omitted sections keep their defaults.
	if got := cfg.GetAPIAddr(); got != ":8080" {
		t.Errorf("GetAPIAddr() = %q, want \":8080\"", got)
	}

	snap := cfg.Snapshot()
	if snap.FieldID != "field-2026" || snap.RobotID != "robot-a" {
		t.Errorf("snapshot ids = %q/%q", snap.FieldID, snap.RobotID)
	}
	if snap.AllianceKey != "/match/alliance" {
		t.Errorf("snapshot alliance key = %q", snap.AllianceKey)
	}
	if len(snap.Bindings) != 2 {
		t.Fatalf("snapshot bindings = %d, want 2", len(snap.Bindings))
	}
	if snap.Bindings[0].Role != extract.RoleRobot {
		t.Errorf("binding 0 role = %v, want robot", snap.Bindings[0].Role)
	}
	if snap.Bindings[1].Role != extract.RoleTrajectory {
		t.Errorf("binding 1 role = %v, want trajectory", snap.Bindings[1].Role)
	}
}

func TestLoadRejectsWrongExtension(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "fieldview.json")
	if err := os.WriteFile(configPath, []byte("{}"), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("expected error for non-yaml extension, got nil")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/fieldview.yaml"); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	badHz := 300
	cfg := &Config{Render: RenderConfig{RefreshHz: &badHz}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for refresh_hz 300, got nil")
	}

	badRole := &Config{Scene: &SceneConfig{
		Bindings: []SceneBinding{{Key: "/robot/pose", Role: "laser"}},
	}}
	if err := badRole.Validate(); err == nil {
		t.Error("expected error for unknown role, got nil")
	}

	missingKey := &Config{Scene: &SceneConfig{
		Bindings: []SceneBinding{{Role: "robot"}},
	}}
	if err := missingKey.Validate(); err == nil {
		t.Error("expected error for missing binding key, got nil")
	}

	badChoice := "purple"
	badAlliance := &Config{Scene: &SceneConfig{Origin: &badChoice}}
	if err := badAlliance.Validate(); err == nil {
		t.Error("expected error for unknown alliance choice, got nil")
	}

	badUnits := "furlongs"
	badDistance := &Config{Scene: &SceneConfig{DistanceUnits: &badUnits}}
	if err := badDistance.Validate(); err == nil {
		t.Error("expected error for unknown distance units, got nil")
	}
}

func TestSnapshotWithoutSceneBlock(t *testing.T) {
	snap := Default().Snapshot()
	if snap.FieldID != "" || len(snap.Bindings) != 0 {
		t.Errorf("zero scene snapshot = %+v", snap)
	}
}
