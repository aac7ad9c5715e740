package normalize

import (
	"bytes"
	"testing"

	"corossync/internal/components/telemetry"
	"corossync/internal/failure"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func decode(t *testing.T, text string) map[string]any {
	t.Helper()
	var entry map[string]any
	decoder := json.NewDecoder(bytes.NewReader([]byte(text)))
	decoder.UseNumber()
	require.NoError(t, decoder.Decode(&entry))
	return entry
}

func TestNormalizeCoros(t *testing.T) {
	testCases := []struct {
		name     string
		entry    string
		unit     DistanceUnit
		expected ActivityRecord
	}{
		{
			name: "full entry",
			entry: `{
				"date": 20250102, "name": "Morning Run", "distance": 10012.5,
				"totalTime": 3005, "adjustedPace": 300, "avgHr": 152, "trainingLoad": 87
			}`,
			expected: ActivityRecord{
				Date:            "20250102",
				Name:            "Morning Run",
				DistanceMeters:  ptr(10012.5),
				DurationSeconds: ptr(3005.0),
				Pace:            PaceSeconds(300),
				AvgHeartRate:    ptr(int64(152)),
				TrainingLoad:    ptr(87.0),
			},
		},
		{
			name:     "only date",
			entry:    `{"date": "2025-01-02"}`,
			expected: ActivityRecord{Date: "2025-01-02"},
		},
		{
			name:  "pace falls back to avgPace",
			entry: `{"date": 20250102, "adjustedPace": null, "avgPace": 310}`,
			expected: ActivityRecord{
				Date: "20250102",
				Pace: PaceSeconds(310),
			},
		},
		{
			name:  "pace as text",
			entry: `{"date": 20250102, "adjustedPace": "5'10\""}`,
			expected: ActivityRecord{
				Date: "20250102",
				Pace: PaceText(`5'10"`),
			},
		},
		{
			name:  "numeric strings",
			entry: `{"date": 20250102, "distance": " 5000 ", "avgHr": "140.6", "trainingLoad": ""}`,
			expected: ActivityRecord{
				Date:           "20250102",
				DistanceMeters: ptr(5000.0),
				AvgHeartRate:   ptr(int64(141)),
			},
		},
		{
			name:  "unparseable numbers are absent",
			entry: `{"date": 20250102, "distance": "far", "totalTime": {"s": 1}, "avgHr": true}`,
			expected: ActivityRecord{
				Date: "20250102",
			},
		},
		{
			name:  "kilometers",
			entry: `{"date": 20250102, "distance": 10.5}`,
			unit:  Kilometers,
			expected: ActivityRecord{
				Date:           "20250102",
				DistanceMeters: ptr(10500.0),
			},
		},
		{
			name:  "centimeters",
			entry: `{"date": 20250102, "distance": 1000000}`,
			unit:  Centimeters,
			expected: ActivityRecord{
				Date:           "20250102",
				DistanceMeters: ptr(10000.0),
			},
		},
		{
			name:  "unknown fields ignored",
			entry: `{"date": 20250102, "sportType": 100, "labelId": "abc"}`,
			expected: ActivityRecord{
				Date: "20250102",
			},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			n := NewNormalizer(Coros, test.unit, telemetry.NewRecorder())
			record, err := n.Normalize(decode(t, test.entry))
			require.NoError(t, err)
			if diff := cmp.Diff(test.expected, record); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestNormalizeMissingDate(t *testing.T) {
	n := NewNormalizer(Coros, Meters, telemetry.NewRecorder())

	for _, entry := range []string{
		`{"name": "Morning Run"}`,
		`{"date": null}`,
		`{"date": ""}`,
		`{"date": "   "}`,
		`{"date": {"y": 2025}}`,
	} {
		_, err := n.Normalize(decode(t, entry))
		require.Error(t, err, entry)
		require.Equal(t, failure.MissingRequiredField, failure.KindOf(err), entry)
	}
}

func TestNormalizeAllStopsAtFirstFailure(t *testing.T) {
	n := NewNormalizer(Coros, Meters, telemetry.NewRecorder())

	records, err := n.NormalizeAll([]map[string]any{
		decode(t, `{"date": 1}`),
		decode(t, `{"name": "no date"}`),
		decode(t, `{"date": 3}`),
	})
	require.Nil(t, records)
	require.Equal(t, failure.MissingRequiredField, failure.KindOf(err))
	require.Contains(t, err.Error(), "entry 1")

	records, err = n.NormalizeAll([]map[string]any{
		decode(t, `{"date": 2}`),
		decode(t, `{"date": 1}`),
	})
	require.NoError(t, err)
	require.Equal(t, "2", records[0].Date)
	require.Equal(t, "1", records[1].Date)
}

func TestNormalizeReportsUnparseable(t *testing.T) {
	rec := telemetry.NewRecorder()
	n := NewNormalizer(Coros, Meters, rec)

	_, err := n.Normalize(decode(t, `{"date": 1, "distance": "far", "avgHr": 150}`))
	require.NoError(t, err)
	warnings := rec.Find("warning", report_normalizer_field)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Params[0].(error).Error(), "distance")
}

func TestNormalizeHeartRateOutOfRange(t *testing.T) {
	rec := telemetry.NewRecorder()
	n := NewNormalizer(Coros, Meters, rec)

	for _, entry := range []string{
		`{"date": 1, "avgHr": 1e300}`,
		`{"date": 1, "avgHr": -1e19}`,
		`{"date": 1, "avgHr": "9007199254740994"}`,
	} {
		record, err := n.Normalize(decode(t, entry))
		require.NoError(t, err)
		require.Nil(t, record.AvgHeartRate, entry)
	}
	warnings := rec.Find("warning", report_normalizer_field)
	require.Len(t, warnings, 3)
	require.Contains(t, warnings[0].Params[0].(error).Error(), "avgHr")

	record, err := n.Normalize(decode(t, `{"date": 1, "avgHr": 9007199254740992}`))
	require.NoError(t, err)
	require.Equal(t, int64(9007199254740992), *record.AvgHeartRate)
}

func TestNormalizeCanonical(t *testing.T) {
	n := NewNormalizer(Canonical, Meters, telemetry.NewRecorder())

	record, err := n.Normalize(decode(t, `{
		"date": "20250102", "name": "Run", "distance": 5000, "duration": 1500,
		"pace": 300, "avg_hr": 140, "training_load": 50
	}`))
	require.NoError(t, err)
	require.Equal(t, ActivityRecord{
		Date:            "20250102",
		Name:            "Run",
		DistanceMeters:  ptr(5000.0),
		DurationSeconds: ptr(1500.0),
		Pace:            PaceSeconds(300),
		AvgHeartRate:    ptr(int64(140)),
		TrainingLoad:    ptr(50.0),
	}, record)
}

func TestLookupVariant(t *testing.T) {
	v, err := LookupVariant("COROS")
	require.NoError(t, err)
	require.Equal(t, "coros", v.Name)
	require.Equal(t, []string{"data", "dataList"}, v.ListPath)

	_, err = LookupVariant("strava")
	require.ErrorContains(t, err, "coros, canonical")
}

func TestParseDistanceUnit(t *testing.T) {
	unit, err := ParseDistanceUnit("")
	require.NoError(t, err)
	require.Equal(t, Meters, unit)

	unit, err = ParseDistanceUnit("KM")
	require.NoError(t, err)
	require.Equal(t, Kilometers, unit)

	_, err = ParseDistanceUnit("mi")
	require.Error(t, err)
}

func TestRecordJson(t *testing.T) {
	content, err := json.Marshal(ActivityRecord{Date: "20250102"})
	require.NoError(t, err)
	require.JSONEq(t, `{
		"date": "20250102", "name": "", "distance": null, "duration": null,
		"pace": null, "avg_hr": null, "training_load": null
	}`, string(content))

	content, err = json.Marshal(ActivityRecord{Date: "1", Pace: PaceText(`5'10"`)})
	require.NoError(t, err)
	var back ActivityRecord
	require.NoError(t, json.Unmarshal(content, &back))
	require.Equal(t, PaceText(`5'10"`), back.Pace)

	content, err = json.Marshal(ActivityRecord{Date: "1", Pace: PaceSeconds(312.5)})
	require.NoError(t, err)
	require.Contains(t, string(content), `"pace":312.5`)
}
