package units

import (
	"math"
	"testing"
)

func TestToMeters(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		units    string
		expected float64
	}{
		{"meters pass through", 3.5, Meters, 3.5},
		{"inches to meters", 100.0, Inches, 2.54},
		{"feet to meters", 10.0, Feet, 3.048},
		{"field length inches", 651.25, Inches, 16.54175},
		{"unknown units pass through", 7.0, "furlongs", 7.0},
		{"zero", 0.0, Inches, 0.0},
		{"negative inches", -39.3700787, Inches, -1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToMeters(tt.value, tt.units)
			if math.Abs(result-tt.expected) > 1e-6 {
				t.Errorf("ToMeters(%f, %s) = %f, want %f", tt.value, tt.units, result, tt.expected)
			}
		})
	}
}

func TestToRadians(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		units    string
		expected float64
	}{
		{"radians pass through", 1.25, Radians, 1.25},
		{"degrees to radians", 180.0, Degrees, math.Pi},
		{"quarter turn", 90.0, Degrees, math.Pi / 2},
		{"negative degrees", -45.0, Degrees, -math.Pi / 4},
		{"unknown units pass through", 2.0, "gradians", 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToRadians(tt.value, tt.units)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("ToRadians(%f, %s) = %f, want %f", tt.value, tt.units, result, tt.expected)
			}
		})
	}
}

func TestIsValidDistance(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid meters", Meters, true},
		{"valid inches", Inches, true},
		{"valid feet", Feet, true},
		{"rotation unit is not distance", Degrees, false},
		{"invalid unit", "cubits", false},
		{"empty string", "", false},
		{"case sensitive", "Meters", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidDistance(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValidDistance(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestIsValidRotation(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid radians", Radians, true},
		{"valid degrees", Degrees, true},
		{"distance unit is not rotation", Feet, false},
		{"empty string", "", false},
		{"case sensitive", "DEGREES", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidRotation(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValidRotation(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}
