package field

import (
	"github.com/jwbonner/advantagescope/internal/field/extract"
)

// Snapshot is the complete declarative scene configuration for one tick,
// pushed by the external UI. The loop never edits a snapshot besides the
// camera index, which the selection channel also feeds.
type Snapshot struct {
	// Time is the evaluation instant in log seconds.
	Time float64 `json:"time"`

	FieldID string `json:"fieldId"`
	RobotID string `json:"robotId"`

	CameraIndex int `json:"cameraIndex"`

	// ReducedRate throttles redraws to the reduced cadence.
	ReducedRate bool `json:"reducedRate"`

	Bumpers extract.AllianceChoice `json:"bumpers"`
	Origin  extract.AllianceChoice `json:"origin"`

	DistanceUnits string `json:"distanceUnits,omitempty"`
	RotationUnits string `json:"rotationUnits,omitempty"`

	Bindings []extract.Binding `json:"bindings,omitempty"`

	// EnabledKey names the series gating heatmap-enabled samples.
	EnabledKey string `json:"enabledKey,omitempty"`

	// AllianceKey names the series consulted for auto alliance choices.
	AllianceKey string `json:"allianceKey,omitempty"`
}

// Equal reports whether two snapshots would render identical scenes.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.Time != o.Time ||
		s.FieldID != o.FieldID ||
		s.RobotID != o.RobotID ||
		s.CameraIndex != o.CameraIndex ||
		s.ReducedRate != o.ReducedRate ||
		s.Bumpers != o.Bumpers ||
		s.Origin != o.Origin ||
		s.DistanceUnits != o.DistanceUnits ||
		s.RotationUnits != o.RotationUnits ||
		s.EnabledKey != o.EnabledKey ||
		s.AllianceKey != o.AllianceKey ||
		len(s.Bindings) != len(o.Bindings) {
		return false
	}
	for i := range s.Bindings {
		if s.Bindings[i] != o.Bindings[i] {
			return false
		}
	}
	return true
}

// query maps the snapshot onto an extraction request.
func (s Snapshot) query() extract.Query {
	return extract.Query{
		Time:          s.Time,
		Bindings:      s.Bindings,
		EnabledKey:    s.EnabledKey,
		AllianceKey:   s.AllianceKey,
		Bumpers:       s.Bumpers,
		Origin:        s.Origin,
		DistanceUnits: s.DistanceUnits,
		RotationUnits: s.RotationUnits,
	}
}

// DisplayState describes the output surface for one tick.
type DisplayState struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`

	// DarkMode is the color-scheme mode in effect.
	DarkMode bool `json:"darkMode"`

	// Visible gates rendering; triggers still accumulate while hidden.
	Visible bool `json:"visible"`

	// CameraMoved flags an interactive viewpoint move since the last push.
	// The loop consumes it once per tick.
	CameraMoved bool `json:"cameraMoved,omitempty"`
}

// surfaceEqual reports whether geometry, pixel density, and color scheme
// match. Visibility and the moved flag are not surface properties.
func (d DisplayState) surfaceEqual(o DisplayState) bool {
	return d.Width == o.Width &&
		d.Height == o.Height &&
		d.PixelRatio == o.PixelRatio &&
		d.DarkMode == o.DarkMode
}
