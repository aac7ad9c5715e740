package normalize

import (
	"fmt"
	"slices"
	"strings"
)

// Aliases lists, for each canonical field, the upstream keys it may be read
// from. The first alias present with a non-null value wins.
type Aliases struct {
	Date         []string
	Name         []string
	Distance     []string
	Duration     []string
	Pace         []string
	AvgHeartRate []string
	TrainingLoad []string
}

// Variant is a named upstream schema: where the entries of a page live and how
// their fields are spelled.
type Variant struct {
	Name     string
	ListPath []string
	Aliases  Aliases
}

var Coros = Variant{
	Name:     "coros",
	ListPath: []string{"data", "dataList"},
	Aliases: Aliases{
		Date:         []string{"date"},
		Name:         []string{"name"},
		Distance:     []string{"distance"},
		Duration:     []string{"totalTime", "workoutTime"},
		Pace:         []string{"adjustedPace", "avgPace"},
		AvgHeartRate: []string{"avgHr"},
		TrainingLoad: []string{"trainingLoad"},
	},
}

// Canonical reads documents written by this tool.
var Canonical = Variant{
	Name:     "canonical",
	ListPath: nil,
	Aliases: Aliases{
		Date:         []string{"date"},
		Name:         []string{"name"},
		Distance:     []string{"distance"},
		Duration:     []string{"duration"},
		Pace:         []string{"pace"},
		AvgHeartRate: []string{"avg_hr"},
		TrainingLoad: []string{"training_load"},
	},
}

var variants = []Variant{Coros, Canonical}

// VariantNames lists the built-in variants.
func VariantNames() []string {
	names := make([]string, len(variants))
	for i, v := range variants {
		names[i] = v.Name
	}
	return names
}

// LookupVariant finds a built-in variant by name, case insensitive.
func LookupVariant(name string) (Variant, error) {
	idx := slices.IndexFunc(variants, func(v Variant) bool {
		return strings.EqualFold(v.Name, name)
	})
	if idx < 0 {
		return Variant{}, fmt.Errorf(
			"unknown variant '%s' (known: %s)",
			name, strings.Join(VariantNames(), ", "),
		)
	}
	return variants[idx], nil
}

// DistanceUnit is the unit the platform reports distance in, records always
// carry meters.
type DistanceUnit string

const (
	Meters      DistanceUnit = "m"
	Kilometers  DistanceUnit = "km"
	Centimeters DistanceUnit = "cm"
)

func ParseDistanceUnit(text string) (DistanceUnit, error) {
	switch unit := DistanceUnit(strings.ToLower(strings.TrimSpace(text))); unit {
	case "":
		return Meters, nil
	case Meters, Kilometers, Centimeters:
		return unit, nil
	}
	return "", fmt.Errorf("unknown distance unit '%s'", text)
}

func (u DistanceUnit) toMeters(value float64) float64 {
	switch u {
	case Kilometers:
		return value * 1000
	case Centimeters:
		return value / 100
	}
	return value
}
