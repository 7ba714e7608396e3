package common

import (
	"fmt"
	"math"
	"strings"
)

// Unit is the temperature unit readings are persisted in.
type Unit string

const (
	Fahrenheit Unit = "F"
	Celsius    Unit = "C"
)

// ParseUnit accepts F/C in any case.
func ParseUnit(s string) (Unit, error) {
	switch Unit(strings.ToUpper(strings.TrimSpace(s))) {
	case Fahrenheit:
		return Fahrenheit, nil
	case Celsius:
		return Celsius, nil
	}
	return "", fmt.Errorf("unknown temperature unit %q", s)
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// FromCelsius converts a Celsius value into u, rounded to two places.
// The Celsius value is rounded first, matching how the station has always
// recorded its readings.
func FromCelsius(c float64, u Unit) float64 {
	c = Round(c, 2)
	if u == Celsius {
		return c
	}
	return Round(c*9.0/5.0+32.0, 2)
}
