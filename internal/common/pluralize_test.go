package common

import "testing"

func TestPluralizeMerits(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{0, "меритов"},
		{1, "мерит"},
		{2, "мерита"},
		{4, "мерита"},
		{5, "меритов"},
		{11, "меритов"},
		{12, "меритов"},
		{14, "меритов"},
		{21, "мерит"},
		{22, "мерита"},
		{100, "меритов"},
		{101, "мерит"},
		{111, "меритов"},
		{-3, "мерита"},
	}
	for _, tc := range cases {
		if got := PluralizeMerits(tc.n); got != tc.want {
			t.Errorf("PluralizeMerits(%d) = %q, ожидали %q", tc.n, got, tc.want)
		}
	}
}

func TestFormatMeritsSigned(t *testing.T) {
	if got := FormatMeritsSigned(100); got != "+100 меритов" {
		t.Errorf("FormatMeritsSigned(100) = %q", got)
	}
	if got := FormatMeritsSigned(-50); got != "-50 меритов" {
		t.Errorf("FormatMeritsSigned(-50) = %q", got)
	}
}
