package gtfstime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{"08:15:00", 8*3600 + 15*60, false},
		{"8:15:00", 8*3600 + 15*60, false},
		{"00:00:00", 0, false},
		{"23:59:59", 23*3600 + 59*60 + 59, false},
		{"24:00:00", 86400, false},
		{"25:30:00", 25*3600 + 30*60, false},
		{"27:05:10", 27*3600 + 5*60 + 10, false},
		{"", 0, true},
		{"8:15", 0, true},
		{"08:60:00", 0, true},
		{"08:00:60", 0, true},
		{"-1:00:00", 0, true},
		{"abc:00:00", 0, true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "Parse(%q)", tt.input)
			continue
		}
		require.NoError(t, err, "Parse(%q)", tt.input)
		assert.Equal(t, tt.want, got, "Parse(%q)", tt.input)
	}
}

func TestAnchor_NextDayRollover(t *testing.T) {
	ref := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tod, err := Parse("25:30:00")
	require.NoError(t, err)

	anchored := tod.Anchor(ref)
	assert.Equal(t, time.Date(2025, 1, 2, 1, 30, 0, 0, time.UTC), anchored)
}

func TestAnchor_EquivalenceAcrossMidnight(t *testing.T) {
	// "24:XX:XX" on day D must equal "00:XX:XX" on day D+1.
	ref := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	nextDay := ref.AddDate(0, 0, 1)

	late, err := Parse("24:45:30")
	require.NoError(t, err)
	early, err := Parse("00:45:30")
	require.NoError(t, err)

	assert.Equal(t, early.Anchor(nextDay), late.Anchor(ref))
}

func TestAnchor_SameDay(t *testing.T) {
	ref := time.Date(2025, 6, 1, 14, 22, 9, 0, time.UTC)

	tod, err := Parse("09:05:00")
	require.NoError(t, err)

	// The reference's own clock time is ignored; only its date matters.
	assert.Equal(t, time.Date(2025, 6, 1, 9, 5, 0, 0, time.UTC), tod.Anchor(ref))
}

func TestTimeOfDay_Hours(t *testing.T) {
	tod, err := Parse("25:30:00")
	require.NoError(t, err)
	assert.Equal(t, 25.5, tod.Hours())
}

func TestTimeOfDay_String_RoundTrip(t *testing.T) {
	for _, s := range []string{"0:00:00", "8:15:00", "23:59:59", "25:30:00"} {
		tod, err := Parse(s)
		require.NoError(t, err)
		assert.Equal(t, s, tod.String())
	}
}

func TestDateOf(t *testing.T) {
	assert.Equal(t, ServiceDate("20250102"),
		DateOf(time.Date(2025, 1, 2, 1, 30, 0, 0, time.UTC)))
}
