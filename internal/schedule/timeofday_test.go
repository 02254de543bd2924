package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"08:00", 480, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{"9:15", 555, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"noon", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestTimeOfDayString(t *testing.T) {
	assert.Equal(t, "08:05", TimeOfDay(485).String())
	assert.Equal(t, "00:00", TimeOfDay(0).String())
	assert.Equal(t, "13:30", TimeOfDay(810).String())
}

func TestTimeOfDayAt(t *testing.T) {
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	at := TimeOfDay(9*60 + 15).At(date, time.UTC)

	assert.Equal(t, time.Date(2026, 9, 7, 9, 15, 0, 0, time.UTC), at)
	assert.Equal(t, TimeOfDay(555), TimeOfDayFrom(at))
}

func TestTimeOfDayJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(TimeOfDay(510))
	require.NoError(t, err)
	assert.Equal(t, `"08:30"`, string(data))

	var back TimeOfDay
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, TimeOfDay(510), back)

	assert.Error(t, json.Unmarshal([]byte(`"25:00"`), &back))
}
