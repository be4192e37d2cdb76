package leaderboard

import (
	"strings"
	"testing"
)

func TestMedalTiers(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "🥇"},
		{1, "🥈"},
		{2, "🥉"},
		{3, "🎖️"},
		{4, "🎖️"},
		{5, ""},
		{9, ""},
	}
	for _, tc := range tests {
		if got := Medal(tc.index); got != tc.want {
			t.Fatalf("index %d: expected %q, got %q", tc.index, tc.want, got)
		}
	}
}

func TestBitsLabelPluralization(t *testing.T) {
	if got := BitsLabel(1); got != "Bit" {
		t.Fatalf("expected singular for 1, got %q", got)
	}
	for _, bits := range []int64{0, 2, 100} {
		if got := BitsLabel(bits); got != "Bits" {
			t.Fatalf("%d: expected plural, got %q", bits, got)
		}
	}
}

func TestFormatOrderingAndMedals(t *testing.T) {
	out := Format("Current Bit Leaders", []Entry{
		{Name: "B", Bits: 10},
		{Name: "A", Bits: 5},
		{Name: "C", Bits: 1},
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if lines[0] != "🎉 Current Bit Leaders 🎉" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	// lines[1] is the blank spacer after the header.
	if lines[2] != "\t🥇B - 10 Bits" {
		t.Fatalf("unexpected gold row: %q", lines[2])
	}
	if lines[3] != "\t🥈A - 5 Bits" {
		t.Fatalf("unexpected silver row: %q", lines[3])
	}
	if lines[4] != "\t🥉C - 1 Bit" {
		t.Fatalf("unexpected bronze row: %q", lines[4])
	}
}

func TestFormatSingleEntryPluralizesToBit(t *testing.T) {
	out := Format("Current Bit Leaders", []Entry{{Name: "Solo", Bits: 1}})
	if !strings.Contains(out, "1 Bit\n") {
		t.Fatalf("expected singular Bit, got %q", out)
	}
	if strings.Contains(out, "1 Bits") {
		t.Fatalf("expected no plural for single bit, got %q", out)
	}
}

func TestTitles(t *testing.T) {
	if got := UsersTitle(""); got != "Current Bit Leaders" {
		t.Fatalf("unexpected current users title: %q", got)
	}
	if got := UsersTitle("fall-2025"); got != "fall-2025 Bit Leaders" {
		t.Fatalf("unexpected tagged users title: %q", got)
	}
	if got := TeamsTitle(" "); got != "Current Team Bit Leaders" {
		t.Fatalf("unexpected current teams title: %q", got)
	}
	if got := TeamsTitle("spring-2026"); got != "spring-2026 Team Bit Leaders" {
		t.Fatalf("unexpected tagged teams title: %q", got)
	}
}
