package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func at(h, m int) time.Time {
	return time.Date(2026, 3, 14, h, m, 0, 0, time.UTC)
}

func iv(sh, sm, eh, em int) Interval {
	return Interval{Start: at(sh, sm), End: at(eh, em)}
}

func TestIntervalOverlaps(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"disjoint", iv(9, 0, 10, 0), iv(11, 0, 12, 0), false},
		{"touching endpoints do not overlap", iv(9, 0, 10, 0), iv(10, 0, 11, 0), false},
		{"partial overlap", iv(9, 0, 10, 30), iv(10, 0, 11, 0), true},
		{"containment", iv(9, 0, 12, 0), iv(10, 0, 11, 0), true},
		{"identical", iv(9, 0, 10, 0), iv(9, 0, 10, 0), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.a.Overlaps(tc.b))
			require.Equal(t, tc.want, tc.b.Overlaps(tc.a), "overlap must be symmetric")
		})
	}
}

func TestPolicyValidate(t *testing.T) {
	t.Parallel()
	p := Policy{StepMinutes: 15, MaxDuration: 12 * time.Hour}

	require.NoError(t, p.Validate(iv(9, 0, 10, 0)))
	require.NoError(t, p.Validate(iv(9, 45, 10, 15)))

	cases := []struct {
		name string
		iv   Interval
	}{
		{"empty", iv(9, 0, 9, 0)},
		{"inverted", iv(10, 0, 9, 0)},
		{"start off grid", iv(9, 10, 10, 0)},
		{"end off grid", iv(9, 0, 10, 5)},
		{"sub-minute precision", Interval{Start: at(9, 0).Add(30 * time.Second), End: at(10, 0)}},
		{"too long", Interval{Start: at(8, 0), End: at(8, 0).Add(12*time.Hour + 15*time.Minute)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, p.Validate(tc.iv), ErrInvalidRange)
		})
	}

	t.Run("zero policy only requires a non-empty interval", func(t *testing.T) {
		var open Policy
		require.NoError(t, open.Validate(Interval{Start: at(9, 7), End: at(9, 7).Add(30 * time.Hour)}))
	})
}

func TestPolicyValidateExtra(t *testing.T) {
	t.Parallel()
	p := Policy{StepMinutes: 15, MaxDuration: 12 * time.Hour}

	require.NoError(t, p.ValidateExtra(15*time.Minute))
	require.NoError(t, p.ValidateExtra(2*time.Hour))
	require.ErrorIs(t, p.ValidateExtra(0), ErrInvalidRange)
	require.ErrorIs(t, p.ValidateExtra(-15*time.Minute), ErrInvalidRange)
	require.ErrorIs(t, p.ValidateExtra(20*time.Minute), ErrInvalidRange)
}

func TestSubtract(t *testing.T) {
	t.Parallel()
	window := iv(8, 0, 20, 0)

	t.Run("no busy spans leaves the whole window", func(t *testing.T) {
		free := Subtract(window, nil)
		require.Equal(t, []Interval{window}, free)
	})

	t.Run("busy spans punch holes", func(t *testing.T) {
		free := Subtract(window, []Interval{iv(10, 0, 11, 0), iv(14, 0, 16, 0)})
		require.Equal(t, []Interval{iv(8, 0, 10, 0), iv(11, 0, 14, 0), iv(16, 0, 20, 0)}, free)
	})

	t.Run("unsorted and overlapping spans merge", func(t *testing.T) {
		free := Subtract(window, []Interval{iv(14, 0, 16, 0), iv(10, 0, 12, 0), iv(11, 0, 13, 0)})
		require.Equal(t, []Interval{iv(8, 0, 10, 0), iv(13, 0, 14, 0), iv(16, 0, 20, 0)}, free)
	})

	t.Run("spans past the window edges are clipped", func(t *testing.T) {
		free := Subtract(window, []Interval{iv(7, 0, 9, 0), iv(19, 0, 21, 0)})
		require.Equal(t, []Interval{iv(9, 0, 19, 0)}, free)
	})

	t.Run("fully busy window yields nothing", func(t *testing.T) {
		free := Subtract(window, []Interval{iv(7, 0, 21, 0)})
		require.Empty(t, free)
	})

	t.Run("spans outside the window are ignored", func(t *testing.T) {
		free := Subtract(window, []Interval{iv(6, 0, 7, 0), iv(21, 0, 22, 0)})
		require.Equal(t, []Interval{window}, free)
	})
}
