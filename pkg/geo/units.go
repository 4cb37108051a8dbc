package geo

import (
	"math"

	"github.com/gilby125/fly-or-drive/pkg/apperr"
)

const (
	// KmPerMile is the number of kilometers in a statute mile.
	KmPerMile = 1.60934
	// LitersPerGallon is the number of liters in a US gallon.
	LitersPerGallon = 3.78541
	// mpgLPer100KmFactor converts between MPG (US) and L/100km in either direction.
	mpgLPer100KmFactor = 235.214
)

// Unit is the distance unit attached to results for display.
type Unit string

const (
	Kilometers Unit = "km"
	Miles      Unit = "mi"
)

// ParseUnit maps "" to Kilometers and rejects anything outside {km, mi}.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case "", Kilometers:
		return Kilometers, nil
	case Miles:
		return Miles, nil
	default:
		return "", apperr.InvalidArgument("unit", s, "must be km or mi")
	}
}

// Valid reports whether u is one of the supported units.
func (u Unit) Valid() bool {
	return u == Kilometers || u == Miles
}

func KmToMiles(km float64) float64 {
	return km / KmPerMile
}

func MilesToKm(mi float64) float64 {
	return mi * KmPerMile
}

func GallonsToLiters(gal float64) float64 {
	return gal * LitersPerGallon
}

func LitersToGallons(l float64) float64 {
	return l / LitersPerGallon
}

// LPer100KmToMPG converts fuel consumption to US miles per gallon.
// Zero, negative or non-finite input is rejected.
func LPer100KmToMPG(lPer100Km float64) (float64, error) {
	if err := checkEconomy("fuel_economy_l_per_100km", lPer100Km); err != nil {
		return 0, err
	}
	return mpgLPer100KmFactor / lPer100Km, nil
}

// MPGToLPer100Km converts US miles per gallon to L/100km.
// Zero, negative or non-finite input is rejected.
func MPGToLPer100Km(mpg float64) (float64, error) {
	if err := checkEconomy("fuel_economy_mpg", mpg); err != nil {
		return 0, err
	}
	return mpgLPer100KmFactor / mpg, nil
}

func checkEconomy(param string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return apperr.InvalidArgument(param, v, "must be a positive finite number")
	}
	return nil
}
