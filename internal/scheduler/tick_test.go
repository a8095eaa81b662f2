package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contextutils "challengeapp/internal/utils"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseFlexibleDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "ISO date", input: "2024-01-05", want: date(2024, time.January, 5)},
		{name: "french slash date", input: "05/03/2024", want: date(2024, time.March, 5)},
		{name: "two digit year", input: "05/03/24", want: date(2024, time.March, 5)},
		{name: "year first slash date", input: "2024/03/05", want: date(2024, time.March, 5)},
		{name: "garbage", input: "not-a-date", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFlexibleDate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, contextutils.ErrorCodeSchedulerConfigInvalid, contextutils.GetErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestTick(t *testing.T) {
	tests := []struct {
		name        string
		granularity string
		reference   string
		now         time.Time
		want        int
	}{
		{name: "jour counts elapsed days", granularity: "jour", reference: "2024-01-01", now: date(2024, time.January, 5), want: 4},
		{name: "jour on reference day", granularity: "jour", reference: "2024-01-01", now: date(2024, time.January, 1), want: 0},
		{name: "jour ignores time of day", granularity: "jour", reference: "2024-01-01", now: time.Date(2024, time.January, 1, 23, 59, 59, 0, time.UTC), want: 0},
		{name: "jour before launch", granularity: "jour", reference: "2024-01-10", now: date(2024, time.January, 7), want: -3},
		{name: "semaine first week", granularity: "semaine", reference: "2024-01-01", now: date(2024, time.January, 5), want: 0},
		{name: "semaine day seven ends week zero", granularity: "semaine", reference: "2024-01-01", now: date(2024, time.January, 7), want: 0},
		{name: "semaine day eight starts week one", granularity: "semaine", reference: "2024-01-01", now: date(2024, time.January, 8), want: 1},
		{name: "semaine before launch floors down", granularity: "semaine", reference: "2024-01-08", now: date(2024, time.January, 5), want: -1},
		{name: "mois counts month boundaries", granularity: "mois", reference: "2024-01-01", now: date(2024, time.March, 15), want: 2},
		{name: "mois ignores day of month", granularity: "mois", reference: "2024-01-31", now: date(2024, time.February, 1), want: 1},
		{name: "mois across year boundary", granularity: "mois", reference: "2023-11-15", now: date(2024, time.February, 1), want: 3},
		{name: "mois before launch", granularity: "mois", reference: "2024-03-01", now: date(2024, time.January, 20), want: -2},
		{name: "njours bucket zero", granularity: "10jours", reference: "2024-01-01", now: date(2024, time.January, 9), want: 0},
		{name: "njours bucket one", granularity: "10jours", reference: "2024-01-01", now: date(2024, time.January, 11), want: 1},
		{name: "njours french slash reference", granularity: "3jours", reference: "01/01/2024", now: date(2024, time.January, 7), want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tick(tt.granularity, tt.reference, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTickConfigErrors(t *testing.T) {
	tests := []struct {
		name        string
		granularity string
		reference   string
	}{
		{name: "unparseable reference date", granularity: "jour", reference: "sometime in 2024"},
		{name: "unsupported granularity", granularity: "fortnight", reference: "2024-01-01"},
		{name: "zero day bucket", granularity: "0jours", reference: "2024-01-01"},
		{name: "empty granularity", granularity: "", reference: "2024-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tick(tt.granularity, tt.reference, date(2024, time.June, 1))
			require.Error(t, err)
			assert.Equal(t, contextutils.ErrorCodeSchedulerConfigInvalid, contextutils.GetErrorCode(err))
		})
	}
}

func TestTickNonDecreasing(t *testing.T) {
	granularities := []string{"jour", "semaine", "mois", "5jours"}
	start := date(2023, time.December, 15)

	for _, g := range granularities {
		t.Run(g, func(t *testing.T) {
			prev, err := Tick(g, "2024-01-01", start)
			require.NoError(t, err)
			for i := 1; i <= 120; i++ {
				tick, err := Tick(g, "2024-01-01", start.AddDate(0, 0, i))
				require.NoError(t, err)
				assert.GreaterOrEqual(t, tick, prev, "tick regressed on day offset %d", i)
				prev = tick
			}
		})
	}
}
