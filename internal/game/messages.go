// internal/game/messages.go
//
// Display helpers for the engine.
// Provides:
//   - Stock symbol set and modal message pools.
//   - PickMessage: random modal message.
//   - FormatClock / SeverityFor: time readout text and urgency.

package game

import (
	"fmt"
	"math/rand"
)

// DefaultSymbols is the stock 8-pair emoji set.
var DefaultSymbols = []string{"🐶", "🐱", "🐭", "🐹", "🐰", "🦊", "🐻", "🐼"}

// Stock modal messages, used when a config supplies none.
var (
	DefaultWinMessages = []string{
		"Amazing memory!",
		"You matched them all!",
		"Brilliant! Every pair found.",
		"Sharp eyes, sharper mind!",
	}
	DefaultLoseMessages = []string{
		"Time's up! Give it another go.",
		"So close! Try again.",
		"The clock won this round.",
	}
)

// PickMessage returns one entry of pool chosen by rng. An empty pool yields "".
func PickMessage(pool []string, rng *rand.Rand) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[rng.Intn(len(pool))]
}

// FormatClock renders whole seconds as mm:ss. Negative input renders as 00:00.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// SeverityFor classifies remaining countdown seconds against the warning/critical thresholds.
func SeverityFor(remaining, warnAt, criticalAt int) Severity {
	switch {
	case remaining <= criticalAt:
		return SeverityCritical
	case remaining <= warnAt:
		return SeverityWarning
	}
	return SeverityNormal
}
