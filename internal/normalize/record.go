package normalize

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
)

// ActivityRecord is the schema-stable form of one activity. Every field is
// always serialized, absent values are null.
type ActivityRecord struct {
	// Date is the activity date exactly as the platform reports it.
	Date            string   `json:"date"`
	Name            string   `json:"name"`
	DistanceMeters  *float64 `json:"distance"`
	DurationSeconds *float64 `json:"duration"`
	Pace            Pace     `json:"pace"`
	AvgHeartRate    *int64   `json:"avg_hr"`
	TrainingLoad    *float64 `json:"training_load"`
}

// ActivityList keeps records in the order they arrived from the platform.
type ActivityList []ActivityRecord

// Pace is either a number of seconds (per kilometer) or a preformatted text
// such as 5'30". The zero value is an absent pace.
type Pace struct {
	Seconds *float64
	Text    string
}

func PaceSeconds(seconds float64) Pace {
	return Pace{Seconds: &seconds}
}

func PaceText(text string) Pace {
	return Pace{Text: text}
}

func (p Pace) Absent() bool {
	return p.Seconds == nil && p.Text == ""
}

func (p Pace) MarshalJSON() ([]byte, error) {
	switch {
	case p.Seconds != nil:
		return []byte(strconv.FormatFloat(*p.Seconds, 'f', -1, 64)), nil
	case p.Text != "":
		return json.MarshalNoEscape(p.Text)
	}
	return []byte("null"), nil
}

func (p *Pace) UnmarshalJSON(data []byte) error {
	*p = Pace{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '"' {
		return json.Unmarshal(trimmed, &p.Text)
	}
	var seconds float64
	err := json.Unmarshal(trimmed, &seconds)
	if err != nil {
		return err
	}
	p.Seconds = &seconds
	return nil
}
