// internal/game/deck.go
//
// Board setup: building the paired deck and shuffling it.

package game

import (
	"errors"
	"fmt"
	"math/rand"
)

var (
	errNoSymbols       = errors.New("symbol set is empty")
	errEmptySymbol     = errors.New("symbol set contains an empty value")
	errDuplicateSymbol = errors.New("symbol set contains a duplicate")
)

// ValidateSymbols checks that a symbol set has at least one value and no duplicates.
func ValidateSymbols(symbols []string) error {
	if len(symbols) == 0 {
		return errNoSymbols
	}
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if s == "" {
			return errEmptySymbol
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("%w: %q", errDuplicateSymbol, s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

// NewDeck returns two copies of every symbol, in symbol order, all hidden.
// IDs are assigned by Shuffle.
func NewDeck(symbols []string) []Card {
	cards := make([]Card, 0, 2*len(symbols))
	for _, s := range symbols {
		cards = append(cards, Card{Face: s, State: CardHidden}, Card{Face: s, State: CardHidden})
	}
	return cards
}

// Shuffle permutes the deck in place with Fisher-Yates and then
// stamps each card's ID with its board position.
func Shuffle(cards []Card, rng *rand.Rand) []Card {
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	for i := range cards {
		cards[i].ID = i
	}
	return cards
}

// views builds the client-facing card list.
// Hidden cards do not expose their face.
func views(cards []Card) []CardView {
	out := make([]CardView, len(cards))
	for i, c := range cards {
		v := CardView{ID: c.ID, State: c.State}
		if c.State != CardHidden {
			v.Face = c.Face
		}
		out[i] = v
	}
	return out
}
