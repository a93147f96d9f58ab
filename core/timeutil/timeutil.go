package timeutil

import (
	"fmt"
	"strconv"
	"strings"
)

// Invalid is the sentinel returned for malformed time strings. Callers are
// expected to skip derivations involving it rather than fail the whole edit.
const Invalid = -1

// PeriodMinutes is the width of an analysis time period.
const PeriodMinutes = 30

// ParseHHMM converts an "HH:MM" string to minutes since midnight. Hours past
// 24 are accepted so schedules crossing midnight keep their ordering. Returns
// Invalid for empty or non-numeric input.
func ParseHHMM(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return Invalid
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return Invalid
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || h < 0 {
		return Invalid
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || m < 0 || m > 59 {
		return Invalid
	}
	return h*60 + m
}

// FormatHHMM renders minutes since midnight as "HH:MM". Negative values
// render as an empty string so an Invalid sentinel never round-trips into a
// plausible-looking time.
func FormatHHMM(minutes int) string {
	if minutes < 0 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// AddMinutes shifts an "HH:MM" string by delta minutes. A malformed input
// yields an empty string.
func AddMinutes(s string, delta int) string {
	m := ParseHHMM(s)
	if m == Invalid {
		return ""
	}
	return FormatHHMM(m + delta)
}

// PeriodStart returns the start, in minutes, of the 30-minute analysis period
// containing the given minute.
func PeriodStart(minutes int) int {
	if minutes < 0 {
		return Invalid
	}
	return minutes - minutes%PeriodMinutes
}

// PeriodKey buckets an "HH:MM" time into its 30-minute period key, e.g.
// "07:13" -> "07:00". Returns "" for malformed input.
func PeriodKey(s string) string {
	m := ParseHHMM(s)
	if m == Invalid {
		return ""
	}
	return FormatHHMM(PeriodStart(m))
}
