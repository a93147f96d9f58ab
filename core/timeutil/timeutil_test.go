package timeutil

import "testing"

func TestParseHHMM(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"06:00", 360},
		{"00:00", 0},
		{"23:59", 1439},
		{"25:10", 1510},
		{" 7:05 ", 425},
		{"", Invalid},
		{"6", Invalid},
		{"06:60", Invalid},
		{"ab:cd", Invalid},
		{"-1:00", Invalid},
	}
	for _, c := range cases {
		if got := ParseHHMM(c.in); got != c.want {
			t.Errorf("ParseHHMM(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestFormatHHMM(t *testing.T) {
	if got := FormatHHMM(360); got != "06:00" {
		t.Errorf("got %q", got)
	}
	if got := FormatHHMM(1510); got != "25:10" {
		t.Errorf("got %q", got)
	}
	if got := FormatHHMM(Invalid); got != "" {
		t.Errorf("invalid minutes should format empty, got %q", got)
	}
}

func TestAddMinutes(t *testing.T) {
	if got := AddMinutes("06:40", 10); got != "06:50" {
		t.Errorf("got %q", got)
	}
	if got := AddMinutes("06:40", -50) != "05:50"; got {
		t.Errorf("negative shift failed")
	}
	if got := AddMinutes("bogus", 5); got != "" {
		t.Errorf("malformed input should yield empty, got %q", got)
	}
}

func TestPeriodKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"07:13", "07:00"},
		{"07:30", "07:30"},
		{"07:59", "07:30"},
		{"00:00", "00:00"},
		{"", ""},
	}
	for _, c := range cases {
		if got := PeriodKey(c.in); got != c.want {
			t.Errorf("PeriodKey(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
