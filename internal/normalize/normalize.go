// Package normalize maps raw upstream entries onto ActivityRecord.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"corossync/internal/components/assert"
	"corossync/internal/components/telemetry"
	"corossync/internal/failure"

	"github.com/goccy/go-json"
)

const (
	report_normalizer_field = "normalizer.field"
)

// maxExactInteger is the largest magnitude a float64 holds without losing
// integer precision.
const maxExactInteger = 1 << 53

type Normalizer struct {
	variant Variant
	unit    DistanceUnit
	tel     telemetry.API
}

func NewNormalizer(variant Variant, unit DistanceUnit, tel telemetry.API) Normalizer {
	assert.NotNil(tel, "tel")
	if unit == "" {
		unit = Meters
	}
	return Normalizer{
		variant: variant,
		unit:    unit,
		tel:     telemetry.NewScopedAPI("normalize", tel),
	}
}

func (n Normalizer) Variant() Variant {
	return n.variant
}

// Normalize maps a single entry. It fails only when the entry has no usable
// date, other fields that cannot be read are left absent.
func (n Normalizer) Normalize(entry map[string]any) (ActivityRecord, error) {
	key, raw := lookup(entry, n.variant.Aliases.Date)
	date, ok := scalarText(raw)
	date = strings.TrimSpace(date)
	if !ok || date == "" {
		if key == "" {
			key = strings.Join(n.variant.Aliases.Date, "/")
		}
		return ActivityRecord{}, failure.Newf(
			failure.MissingRequiredField,
			"entry has no usable '%s'", key,
		)
	}

	record := ActivityRecord{Date: date}

	if _, raw := lookup(entry, n.variant.Aliases.Name); raw != nil {
		name, _ := scalarText(raw)
		record.Name = name
	}

	if distance := n.number(entry, n.variant.Aliases.Distance); distance != nil {
		meters := n.unit.toMeters(*distance)
		record.DistanceMeters = &meters
	}
	record.DurationSeconds = n.number(entry, n.variant.Aliases.Duration)
	record.TrainingLoad = n.number(entry, n.variant.Aliases.TrainingLoad)

	record.AvgHeartRate = n.integer(entry, n.variant.Aliases.AvgHeartRate)

	record.Pace = n.pace(entry)

	return record, nil
}

// NormalizeAll maps every entry, it stops at the first failure.
func (n Normalizer) NormalizeAll(entries []map[string]any) (ActivityList, error) {
	out := make(ActivityList, 0, len(entries))
	for i, entry := range entries {
		record, err := n.Normalize(entry)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, record)
	}
	return out, nil
}

func (n Normalizer) number(entry map[string]any, aliases []string) *float64 {
	key, raw := lookup(entry, aliases)
	if raw == nil {
		return nil
	}
	value, ok := parseNumber(raw)
	if !ok {
		n.tel.ReportWarning(report_normalizer_field, fmt.Errorf("'%s' is not a number", key), raw)
		return nil
	}
	return value
}

func (n Normalizer) integer(entry map[string]any, aliases []string) *int64 {
	value := n.number(entry, aliases)
	if value == nil {
		return nil
	}
	rounded := math.Round(*value)
	if math.Abs(rounded) > maxExactInteger {
		key, _ := lookup(entry, aliases)
		n.tel.ReportWarning(report_normalizer_field, fmt.Errorf("'%s' is out of range", key), *value)
		return nil
	}
	result := int64(rounded)
	return &result
}

func (n Normalizer) pace(entry map[string]any) Pace {
	key, raw := lookup(entry, n.variant.Aliases.Pace)
	if raw == nil {
		return Pace{}
	}
	if value, ok := parseNumber(raw); ok {
		if value == nil {
			return Pace{}
		}
		return Pace{Seconds: value}
	}
	if text, ok := raw.(string); ok {
		return PaceText(strings.TrimSpace(text))
	}
	n.tel.ReportWarning(report_normalizer_field, fmt.Errorf("'%s' is neither a number nor text", key), raw)
	return Pace{}
}

func lookup(entry map[string]any, aliases []string) (string, any) {
	for _, alias := range aliases {
		value, ok := entry[alias]
		if ok && value != nil {
			return alias, value
		}
	}
	return "", nil
}

func scalarText(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	}
	return "", false
}

// parseNumber accepts JSON numbers and numeric strings. A blank string is a
// valid absent value (nil, true).
func parseNumber(raw any) (*float64, bool) {
	var value float64
	switch v := raw.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, false
		}
		value = f
	case float64:
		value = v
	case int:
		value = float64(v)
	case int64:
		value = float64(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, true
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, false
		}
		value = f
	default:
		return nil, false
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, false
	}
	return &value, true
}
