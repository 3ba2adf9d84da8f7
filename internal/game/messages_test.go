package game

import (
	"math/rand"
	"testing"
)

func TestPickMessage(t *testing.T) {
	if got := PickMessage(nil, rand.New(rand.NewSource(1))); got != "" {
		t.Fatalf("empty pool gave %q", got)
	}
	pool := []string{"one", "two", "three"}
	a := PickMessage(pool, rand.New(rand.NewSource(9)))
	b := PickMessage(pool, rand.New(rand.NewSource(9)))
	if a != b {
		t.Fatalf("same seed picked %q then %q", a, b)
	}
	if !contains(pool, a) {
		t.Fatalf("picked %q outside the pool", a)
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "00:00"},
		{9, "00:09"},
		{60, "01:00"},
		{754, "12:34"},
		{-3, "00:00"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.seconds); got != tt.want {
			t.Errorf("FormatClock(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		remaining int
		want      Severity
	}{
		{60, SeverityNormal},
		{11, SeverityNormal},
		{10, SeverityWarning},
		{6, SeverityWarning},
		{5, SeverityCritical},
		{0, SeverityCritical},
	}
	for _, tt := range tests {
		if got := SeverityFor(tt.remaining, 10, 5); got != tt.want {
			t.Errorf("SeverityFor(%d) = %s, want %s", tt.remaining, got, tt.want)
		}
	}
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"elapsed", "countdown"} {
		if m, ok := ParseMode(s); !ok || string(m) != s {
			t.Errorf("ParseMode(%q) = %q, %v", s, m, ok)
		}
	}
	if _, ok := ParseMode("hard"); ok {
		t.Error("ParseMode accepted an unknown mode")
	}
}
