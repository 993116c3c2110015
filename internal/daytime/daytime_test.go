package daytime_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/daytime"
)

var refNow = time.Date(2024, time.March, 14, 15, 4, 5, 123, time.UTC)

func TestToTime_FirstSecondIsMidnight(t *testing.T) {
	t.Parallel()

	got := daytime.ToTime(daytime.Min, refNow)
	assert.Equal(t, time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC), got)

	got = daytime.ToTime(daytime.Max, refNow)
	assert.Equal(t, time.Date(2024, time.March, 14, 23, 59, 59, 0, time.UTC), got)
}

func TestToTime_ToDaySeconds_Inverse(t *testing.T) {
	t.Parallel()

	for _, seconds := range []int{1, 2, 60, 3601, 43200, 86399, 86400} {
		got := daytime.ToDaySeconds(daytime.ToTime(seconds, refNow))
		assert.Equal(t, seconds, got, "round trip of %d", seconds)
	}
}

func TestDayBoundary(t *testing.T) {
	t.Parallel()

	got := daytime.DayBoundary(refNow)
	assert.Equal(t, time.Date(2024, time.March, 14, 23, 59, 59, 0, time.UTC), got)
}

func TestTimeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "15:4:5", daytime.TimeString(refNow))
	assert.Equal(t, "0:0:0", daytime.TimeString(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseDaySeconds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		want    int
		wantErr bool
	}{
		{name: "midnight", value: "00:00:00", want: 1},
		{name: "ten am", value: "10:00:00", want: 36001},
		{name: "last second", value: "23:59:59", want: 86400},
		{name: "unpadded", value: "9:5:7", want: 9*3600 + 5*60 + 7 + 1},
		{name: "missing seconds", value: "10:00", wantErr: true},
		{name: "not a number", value: "aa:00:00", wantErr: true},
		{name: "hour out of range", value: "24:00:00", wantErr: true},
		{name: "minute out of range", value: "10:60:00", wantErr: true},
		{name: "negative", value: "-1:00:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := daytime.ParseDaySeconds(tt.value)
			if tt.wantErr {
				require.ErrorIs(t, err, daytime.ErrInvalidTime)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDaySeconds_MatchesTimeString(t *testing.T) {
	t.Parallel()

	got, err := daytime.ParseDaySeconds(daytime.TimeString(refNow))
	require.NoError(t, err)
	assert.Equal(t, daytime.ToDaySeconds(refNow), got)
}

func TestClock(t *testing.T) {
	t.Parallel()

	h, m, s := daytime.Clock(36001)
	assert.Equal(t, []int{10, 0, 0}, []int{h, m, s})

	h, m, s = daytime.Clock(daytime.Max)
	assert.Equal(t, []int{23, 59, 59}, []int{h, m, s})
}
