package common

import (
	"testing"
	"time"
)

func TestDayKeyUTC(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want string
	}{
		{"конец суток", time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC), "2026-03-01"},
		{"полночь", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "2026-03-02"},
		{"не-UTC зона", time.Date(2026, 3, 2, 1, 30, 0, 0, time.FixedZone("MSK", 3*3600)), "2026-03-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DayKeyUTC(tc.in); got != tc.want {
				t.Errorf("DayKeyUTC(%v) = %q, ожидали %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNextDayUTC(t *testing.T) {
	in := time.Date(2026, 3, 1, 15, 4, 5, 0, time.UTC)
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if got := NextDayUTC(in); !got.Equal(want) {
		t.Errorf("NextDayUTC(%v) = %v, ожидали %v", in, got, want)
	}

	// Граница суток: следующая полночь, а не та же самая
	midnight := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if got := NextDayUTC(midnight); !got.Equal(midnight.Add(24 * time.Hour)) {
		t.Errorf("NextDayUTC(полночь) = %v", got)
	}
}

func TestStartOfDayUTC(t *testing.T) {
	in := time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC)
	want := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	if got := StartOfDayUTC(in); !got.Equal(want) {
		t.Errorf("StartOfDayUTC(%v) = %v, ожидали %v", in, got, want)
	}
}
