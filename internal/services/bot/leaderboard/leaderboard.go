// Package leaderboard ranks and renders bit standings for chat display.
package leaderboard

import (
	"fmt"
	"strings"
)

// DefaultLimit is the number of users shown on a leaderboard.
const DefaultLimit = 10

// Medals by rank index; positions past the ribbon tier get none.
const (
	medalGold   = "🥇"
	medalSilver = "🥈"
	medalBronze = "🥉"
	medalRibbon = "🎖️"
)

// Entry is one display row, already resolved to a human-friendly name.
type Entry struct {
	Name string
	Bits int64
}

// Medal returns the medal emoji for a zero-based rank index.
func Medal(index int) string {
	switch {
	case index == 0:
		return medalGold
	case index == 1:
		return medalSilver
	case index == 2:
		return medalBronze
	case index == 3 || index == 4:
		return medalRibbon
	default:
		return ""
	}
}

// BitsLabel returns the singular unit label for exactly one bit, plural otherwise.
func BitsLabel(bits int64) string {
	if bits == 1 {
		return "Bit"
	}
	return "Bits"
}

// Format renders a titled leaderboard in the bot's chat layout.
func Format(title string, entries []Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎉 %s 🎉\n\n", title)
	for index, entry := range entries {
		fmt.Fprintf(&b, "\t%s%s - %d %s\n", Medal(index), entry.Name, entry.Bits, BitsLabel(entry.Bits))
	}
	return b.String()
}

// UsersTitle names a user leaderboard, current when tag is empty.
func UsersTitle(tag string) string {
	if strings.TrimSpace(tag) == "" {
		return "Current Bit Leaders"
	}
	return fmt.Sprintf("%s Bit Leaders", tag)
}

// TeamsTitle names a team leaderboard, current when tag is empty.
func TeamsTitle(tag string) string {
	if strings.TrimSpace(tag) == "" {
		return "Current Team Bit Leaders"
	}
	return fmt.Sprintf("%s Team Bit Leaders", tag)
}
