// Package engine implements the Twins & Followers card rules: deck
// construction, twin/follower adjacency, winning-hand search, fight
// detection, and fight resolution.
//
// Everything here is pure card logic. Randomness always comes from a
// caller-supplied *rand.Rand so sessions (and tests) control their own
// seed; no function touches global state.
package engine

import (
	"math/rand"

	"github.com/Mr-incredible442/twins-followers/internal/models"
)

// NumericValues is the numeric follower path, in path order. The ends
// wrap: A and 2 are followers of each other.
var NumericValues = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10"}

// FaceValues are the face cards. Any two different faces are followers.
var FaceValues = []string{"J", "Q", "K"}

// Suits in deck construction order.
var Suits = []string{"hearts", "diamonds", "clubs", "spades"}

// DeckSize is the size of a standard deck.
const DeckSize = 52

// NewDeck returns the 52-card deck in canonical order: each value
// (numeric path first, then faces) across all four suits.
func NewDeck() []models.Card {
	deck := make([]models.Card, 0, DeckSize)
	for _, v := range NumericValues {
		for _, s := range Suits {
			deck = append(deck, models.Card{Value: v, Suit: s})
		}
	}
	for _, v := range FaceValues {
		for _, s := range Suits {
			deck = append(deck, models.Card{Value: v, Suit: s})
		}
	}
	return deck
}

// Shuffle returns a uniformly shuffled copy of cards (Fisher-Yates).
// The input slice is not modified.
func Shuffle(rng *rand.Rand, cards []models.Card) []models.Card {
	out := make([]models.Card, len(cards))
	copy(out, cards)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// numericIndex returns the position of v on the numeric path, or -1 if
// v is not numeric.
func numericIndex(v string) int {
	for i, nv := range NumericValues {
		if nv == v {
			return i
		}
	}
	return -1
}

// isFace reports whether v is J, Q or K.
func isFace(v string) bool {
	return v == "J" || v == "Q" || v == "K"
}

// removeCard returns hand without the first occurrence of c. The input
// slice is not modified.
func removeCard(hand []models.Card, c models.Card) []models.Card {
	out := make([]models.Card, 0, len(hand))
	removed := false
	for _, h := range hand {
		if !removed && h == c {
			removed = true
			continue
		}
		out = append(out, h)
	}
	return out
}

// cardIn reports whether c appears in hand.
func cardIn(hand []models.Card, c models.Card) bool {
	for _, h := range hand {
		if h == c {
			return true
		}
	}
	return false
}
