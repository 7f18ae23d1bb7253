// Package extract converts raw telemetry samples into typed pose collections
// and derived aggregates: robots with motion trails, ghosts, trajectories,
// vision targets, directional arrows, and occupancy heatmaps. It knows
// nothing about 3D rendering; every output leaves in meters and radians.
package extract

import (
	"encoding/json"
	"fmt"
)

// Role names what a bound telemetry key renders as.
type Role int

const (
	RoleRobot Role = iota
	RoleGhost
	RoleTrajectory
	RoleVisionTarget
	RoleArrowFront
	RoleArrowCenter
	RoleArrowBack
	RoleHeatmap
	RoleHeatmapEnabled
)

var roleNames = map[Role]string{
	RoleRobot:          "robot",
	RoleGhost:          "ghost",
	RoleTrajectory:     "trajectory",
	RoleVisionTarget:   "vision",
	RoleArrowFront:     "arrow-front",
	RoleArrowCenter:    "arrow-center",
	RoleArrowBack:      "arrow-back",
	RoleHeatmap:        "heatmap",
	RoleHeatmapEnabled: "heatmap-enabled",
}

// String returns the lowercase role name used in configs and the API.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseRole resolves a role name to its Role value.
func ParseRole(name string) (Role, error) {
	for role, n := range roleNames {
		if n == name {
			return role, nil
		}
	}
	return 0, fmt.Errorf("parse role %q: unknown role", name)
}

// MarshalJSON encodes the role as its name.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a role from its name.
func (r *Role) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	role, err := ParseRole(name)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Binding ties one telemetry key to the role it renders as.
type Binding struct {
	Key  string `json:"key"`
	Role Role   `json:"role"`
}

// AllianceChoice selects how an alliance-dependent setting resolves: pinned
// to a side, or inferred from telemetry.
type AllianceChoice int

const (
	ChoiceAuto AllianceChoice = iota
	ChoiceBlue
	ChoiceRed
)

var choiceNames = map[AllianceChoice]string{
	ChoiceAuto: "auto",
	ChoiceBlue: "blue",
	ChoiceRed:  "red",
}

// String returns the lowercase choice name.
func (c AllianceChoice) String() string {
	if name, ok := choiceNames[c]; ok {
		return name
	}
	return "auto"
}

// ParseAllianceChoice resolves a choice name to its value.
func ParseAllianceChoice(name string) (AllianceChoice, error) {
	for choice, n := range choiceNames {
		if n == name {
			return choice, nil
		}
	}
	return 0, fmt.Errorf("parse alliance choice %q: unknown choice", name)
}

// MarshalJSON encodes the choice as its name.
func (c AllianceChoice) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a choice from its name.
func (c *AllianceChoice) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	choice, err := ParseAllianceChoice(name)
	if err != nil {
		return err
	}
	*c = choice
	return nil
}
