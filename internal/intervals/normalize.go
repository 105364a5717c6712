package intervals

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/activity-tracker/internal/domain"
)

// RawActivity mirrors one record of the Intervals.icu activities payload.
// Numeric fields are pointers so omitted values survive as nil; the tags
// field stays raw because the API is not consistent about its shape.
type RawActivity struct {
	ID                  FlexID          `json:"id"`
	Name                string          `json:"name"`
	Type                string          `json:"type"`
	StartDateLocal      string          `json:"start_date_local"`
	MovingTime          *float64        `json:"moving_time"`
	ElapsedTime         *float64        `json:"elapsed_time"`
	Distance            *float64        `json:"distance"`
	AverageSpeed        *float64        `json:"average_speed"`
	MaxSpeed            *float64        `json:"max_speed"`
	AverageHeartrate    *float64        `json:"average_heartrate"`
	MaxHeartrate        *float64        `json:"max_heartrate"`
	AverageWatts        *float64        `json:"average_watts"`
	MaxWatts            *float64        `json:"max_watts"`
	TrainingStressScore *float64        `json:"training_stress_score"`
	IntensityFactor     *float64        `json:"intensity_factor"`
	NormalizedPower     *float64        `json:"normalized_power"`
	Description         string          `json:"description"`
	Tags                json.RawMessage `json:"tags"`
}

// FlexID accepts the upstream id whether it arrives as a JSON string or a
// number and holds its string form.
type FlexID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*f = FlexID(asString)
		return nil
	}
	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err == nil {
		*f = FlexID(asNumber.String())
		return nil
	}
	// Unusable id shapes degrade to empty; the sync loop skips such records.
	*f = ""
	return nil
}

// Normalize translates a raw Intervals.icu record into the canonical activity
// shape. It never fails: malformed pieces degrade to absent values. The
// returned activity carries no bookkeeping timestamps; the reconciliation
// engine owns those.
func Normalize(raw RawActivity) domain.Activity {
	return domain.Activity{
		ExternalID:       string(raw.ID),
		Name:             raw.Name,
		Type:             raw.Type,
		StartDate:        parseStartDate(raw.StartDateLocal),
		MovingTime:       toSeconds(raw.MovingTime),
		ElapsedTime:      toSeconds(raw.ElapsedTime),
		Distance:         raw.Distance,
		AverageSpeed:     raw.AverageSpeed,
		MaxSpeed:         raw.MaxSpeed,
		AverageHeartrate: raw.AverageHeartrate,
		MaxHeartrate:     raw.MaxHeartrate,
		AveragePower:     raw.AverageWatts,
		MaxPower:         raw.MaxWatts,
		TSS:              raw.TrainingStressScore,
		IntensityFactor:  raw.IntensityFactor,
		NormalizedPower:  raw.NormalizedPower,
		Description:      raw.Description,
		Tags:             joinTags(raw.Tags),
	}
}

var startDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
}

// parseStartDate parses the ISO-8601-ish local start time, tolerating a
// trailing "Z" zone marker. Unparsable strings yield nil with a warning.
func parseStartDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	candidate := value
	if strings.HasSuffix(candidate, "Z") {
		candidate = strings.TrimSuffix(candidate, "Z") + "+00:00"
		if parsed, err := time.Parse("2006-01-02T15:04:05Z07:00", candidate); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	for _, layout := range startDateLayouts {
		if parsed, err := time.Parse(layout, candidate); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	logrus.WithField("start_date", value).Warn("intervals: could not parse start date")
	return nil
}

// joinTags flattens a tag list into a comma-joined string. Absent or
// non-list values become the empty string.
func joinTags(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return ""
	}
	return strings.Join(tags, ",")
}

func toSeconds(value *float64) *int64 {
	if value == nil {
		return nil
	}
	seconds := int64(*value)
	return &seconds
}
