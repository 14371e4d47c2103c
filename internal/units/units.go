// Package units provides shared constants and validation for angle units
package units

import "math"

// Unit constants
const (
	Degrees = "deg"
	Radians = "rad"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{Degrees, Radians}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "deg, rad"
}

// DegreesFromRadians converts r radians to degrees.
func DegreesFromRadians(r float64) float64 {
	return r * 180.0 / math.Pi
}

// RadiansFromDegrees converts d degrees to radians.
func RadiansFromDegrees(d float64) float64 {
	return d * math.Pi / 180.0
}

// ConvertAngle converts an angle from degrees to the target units.
// Joint angles are computed and stored in degrees.
func ConvertAngle(deg float64, targetUnits string) float64 {
	switch targetUnits {
	case Radians:
		return RadiansFromDegrees(deg)
	case Degrees:
		return deg
	default:
		return deg // default to degrees if unknown unit
	}
}
