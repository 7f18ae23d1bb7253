// Package units provides shared constants and conversion helpers for
// telemetry distance and rotation units. The engine works in meters and
// radians; every value entering from a telemetry source is normalized here.
package units

import "math"

// Distance unit constants
const (
	Meters = "meters"
	Inches = "inches"
	Feet   = "feet"
)

// Rotation unit constants
const (
	Radians = "radians"
	Degrees = "degrees"
)

// ValidDistanceUnits contains all valid distance unit values
var ValidDistanceUnits = []string{Meters, Inches, Feet}

// ValidRotationUnits contains all valid rotation unit values
var ValidRotationUnits = []string{Radians, Degrees}

// IsValidDistance checks if the given unit is a recognized distance unit
func IsValidDistance(unit string) bool {
	for _, validUnit := range ValidDistanceUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// IsValidRotation checks if the given unit is a recognized rotation unit
func IsValidRotation(unit string) bool {
	for _, validUnit := range ValidRotationUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// ToMeters converts a distance from the source units to meters.
// Unknown units are passed through unchanged.
func ToMeters(value float64, sourceUnits string) float64 {
	switch sourceUnits {
	case Inches:
		return value * 0.0254
	case Feet:
		return value * 0.3048
	case Meters:
		return value
	default:
		return value
	}
}

// ToRadians converts an angle from the source units to radians.
// Unknown units are passed through unchanged.
func ToRadians(value float64, sourceUnits string) float64 {
	switch sourceUnits {
	case Degrees:
		return value * math.Pi / 180
	case Radians:
		return value
	default:
		return value
	}
}
