package units

import (
	"math"
	"testing"
)

func TestConvertAngle(t *testing.T) {
	tests := []struct {
		name     string
		deg      float64
		units    string
		expected float64
	}{
		{"180 deg to rad", 180.0, Radians, math.Pi},
		{"90 deg to rad", 90.0, Radians, math.Pi / 2},
		{"90 deg to deg", 90.0, Degrees, 90.0},
		{"unknown units default to deg", 45.0, "unknown", 45.0},
		{"zero", 0.0, Radians, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertAngle(tt.deg, tt.units)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("ConvertAngle(%f, %s) = %f, want %f", tt.deg, tt.units, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid deg", Degrees, true},
		{"valid rad", Radians, true},
		{"invalid unit", "grad", false},
		{"empty string", "", false},
		{"case sensitive", "DEG", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.unit); got != tt.expected {
				t.Errorf("IsValid(%q) = %v, want %v", tt.unit, got, tt.expected)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, d := range []float64{0, 10, 90, 120, 160, 180} {
		if got := DegreesFromRadians(RadiansFromDegrees(d)); math.Abs(got-d) > 1e-9 {
			t.Errorf("round trip of %f gave %f", d, got)
		}
	}
}

func TestGetValidUnitsString(t *testing.T) {
	if got := GetValidUnitsString(); got != "deg, rad" {
		t.Errorf("GetValidUnitsString() = %q", got)
	}
}
