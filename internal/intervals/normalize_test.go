package intervals

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func decodeRaw(t *testing.T, payload string) RawActivity {
	t.Helper()
	var raw RawActivity
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))
	return raw
}

func TestNormalizeMapsFields(t *testing.T) {
	raw := decodeRaw(t, `{
        "id": "i42",
        "name": "Morning Run",
        "type": "Run",
        "start_date_local": "2024-01-01T06:00:00",
        "moving_time": 1800,
        "elapsed_time": 1900,
        "distance": 5000,
        "average_speed": 2.78,
        "max_speed": 4.1,
        "average_heartrate": 150,
        "max_heartrate": 176,
        "average_watts": 210,
        "max_watts": 420,
        "training_stress_score": 55.5,
        "intensity_factor": 0.85,
        "normalized_power": 230,
        "description": "easy",
        "tags": ["hard", "z4"]
    }`)

	activity := Normalize(raw)

	require.Equal(t, "i42", activity.ExternalID)
	require.Equal(t, "Morning Run", activity.Name)
	require.Equal(t, "Run", activity.Type)

	require.NotNil(t, activity.StartDate)
	require.Equal(t, time.Date(2024, time.January, 1, 6, 0, 0, 0, time.UTC), *activity.StartDate)

	require.NotNil(t, activity.MovingTime)
	require.Equal(t, int64(1800), *activity.MovingTime)
	require.NotNil(t, activity.ElapsedTime)
	require.Equal(t, int64(1900), *activity.ElapsedTime)

	// The source's watts fields surface as power, and the training stress
	// field surfaces as tss.
	require.NotNil(t, activity.AveragePower)
	require.InDelta(t, 210, *activity.AveragePower, 0.001)
	require.NotNil(t, activity.MaxPower)
	require.InDelta(t, 420, *activity.MaxPower, 0.001)
	require.NotNil(t, activity.TSS)
	require.InDelta(t, 55.5, *activity.TSS, 0.001)

	require.Equal(t, "easy", activity.Description)
	require.Equal(t, "hard,z4", activity.Tags)
}

func TestNormalizeNumericID(t *testing.T) {
	raw := decodeRaw(t, `{"id": 42, "name": "x"}`)
	require.Equal(t, "42", Normalize(raw).ExternalID)
}

func TestNormalizeMissingID(t *testing.T) {
	raw := decodeRaw(t, `{"name": "no id"}`)
	require.Equal(t, "", Normalize(raw).ExternalID)
}

func TestNormalizeAbsentFieldsStayNil(t *testing.T) {
	raw := decodeRaw(t, `{"id": "i1", "name": "bare"}`)
	activity := Normalize(raw)

	require.Nil(t, activity.StartDate)
	require.Nil(t, activity.MovingTime)
	require.Nil(t, activity.Distance)
	require.Nil(t, activity.AveragePower)
	require.Nil(t, activity.TSS)
	require.Equal(t, "", activity.Tags)
}

func TestNormalizeTagsShapes(t *testing.T) {
	raw := decodeRaw(t, `{"id": "i1", "tags": ["hard", "z4"]}`)
	require.Equal(t, "hard,z4", Normalize(raw).Tags)

	raw = decodeRaw(t, `{"id": "i1", "tags": "not-a-list"}`)
	require.Equal(t, "", Normalize(raw).Tags)

	raw = decodeRaw(t, `{"id": "i1", "tags": 7}`)
	require.Equal(t, "", Normalize(raw).Tags)

	raw = decodeRaw(t, `{"id": "i1"}`)
	require.Equal(t, "", Normalize(raw).Tags)
}

func TestParseStartDateVariants(t *testing.T) {
	parsed := parseStartDate("2024-01-01T06:00:00Z")
	require.NotNil(t, parsed)
	require.Equal(t, time.Date(2024, time.January, 1, 6, 0, 0, 0, time.UTC), *parsed)

	parsed = parseStartDate("2024-01-01T06:00:00+02:00")
	require.NotNil(t, parsed)
	require.Equal(t, time.Date(2024, time.January, 1, 4, 0, 0, 0, time.UTC), *parsed)

	require.Nil(t, parseStartDate(""))
	require.Nil(t, parseStartDate("not-a-date"))
}
