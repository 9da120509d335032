package engine

import (
	"math/rand"
	"testing"

	"github.com/Mr-incredible442/twins-followers/internal/models"
)

// TestResolveFightTwoWinners replays the canonical fight: 7♣ is
// discarded while two other players each hold a hand it completes. Both
// forfeit the card that would have paired with it and draw a
// replacement; the 7♣ itself is voided.
func TestResolveFightTwoWinners(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	trigger := card("7", "clubs")
	b := &models.GamePlayer{PlayerName: "bea", Hand: []models.Card{
		card("6", "hearts"), card("6", "diamonds"), card("6", "spades"),
	}}
	c := &models.GamePlayer{PlayerName: "cam", Hand: []models.Card{
		card("8", "spades"), card("8", "diamonds"), card("8", "clubs"),
	}}
	deck := []models.Card{card("J", "hearts"), card("3", "clubs"), card("K", "diamonds")}
	discard := []models.Card{card("9", "hearts")}

	out := ResolveFight([]*models.GamePlayer{b, c}, trigger, deck, discard, rng)

	if got := out.Dropped["bea"]; got != card("6", "spades") {
		t.Errorf("bea dropped %v, want 6♠", got)
	}
	if got := out.Dropped["cam"]; got != card("8", "clubs") {
		t.Errorf("cam dropped %v, want 8♣", got)
	}
	for _, p := range []*models.GamePlayer{b, c} {
		if len(p.Hand) != 3 {
			t.Errorf("%s hand size = %d, want 3 (one card swapped)", p.PlayerName, len(p.Hand))
		}
		if cardIn(p.Hand, trigger) {
			t.Errorf("%s ended up holding the voided trigger card", p.PlayerName)
		}
	}
	if cardIn(out.Deck, trigger) || cardIn(out.DiscardPile, trigger) {
		t.Error("trigger card must not reach any pile")
	}
	// One replacement drawn per winner.
	if len(out.Deck) != 1 {
		t.Errorf("deck size = %d, want 1", len(out.Deck))
	}
	// The original discard card plus both forfeited cards.
	if len(out.DiscardPile) != 3 {
		t.Errorf("discard pile size = %d, want 3", len(out.DiscardPile))
	}
	if !cardIn(out.DiscardPile, card("6", "spades")) || !cardIn(out.DiscardPile, card("8", "clubs")) {
		t.Error("forfeited cards must land on the discard pile")
	}
}

// TestResolveFightReshuffles verifies the discard pile is reshuffled
// into the deck when the deck runs out mid-fight.
func TestResolveFightReshuffles(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	trigger := card("7", "clubs")
	b := &models.GamePlayer{PlayerName: "bea", Hand: []models.Card{
		card("6", "hearts"), card("6", "diamonds"), card("6", "spades"),
	}}
	discard := []models.Card{card("9", "hearts"), card("2", "clubs")}

	out := ResolveFight([]*models.GamePlayer{b}, trigger, nil, discard, rng)

	if len(out.DiscardPile) != 0 {
		t.Errorf("discard pile size = %d, want 0 after reshuffle", len(out.DiscardPile))
	}
	if len(out.Deck) != 2 {
		t.Errorf("deck size = %d, want 2 (three reshuffled, one drawn)", len(out.Deck))
	}
	if len(b.Hand) != 3 {
		t.Errorf("hand size = %d, want 3", len(b.Hand))
	}
	if _, ok := out.Drawn["bea"]; !ok {
		t.Error("expected a drawn replacement for bea")
	}
}

// TestResolveFightConservation checks the card multiset across hands
// and piles before and after a fight differs only by the voided
// trigger.
func TestResolveFightConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	trigger := card("4", "clubs")
	players := []*models.GamePlayer{
		{PlayerName: "p1", Hand: []models.Card{card("4", "hearts"), card("4", "diamonds"), card("5", "spades")}},
		{PlayerName: "p2", Hand: []models.Card{card("3", "hearts"), card("3", "diamonds"), card("3", "spades")}},
	}
	deck := []models.Card{card("10", "hearts"), card("A", "spades"), card("J", "diamonds")}
	discard := []models.Card{card("K", "hearts")}

	count := func(hands [][]models.Card, piles ...[]models.Card) map[models.Card]int {
		m := make(map[models.Card]int)
		for _, h := range hands {
			for _, c := range h {
				m[c]++
			}
		}
		for _, p := range piles {
			for _, c := range p {
				m[c]++
			}
		}
		return m
	}
	before := count([][]models.Card{players[0].Hand, players[1].Hand}, deck, discard)

	out := ResolveFight(players, trigger, deck, discard, rng)
	after := count([][]models.Card{players[0].Hand, players[1].Hand}, out.Deck, out.DiscardPile)

	if len(before) != len(after) {
		t.Fatalf("card set size changed: before %d, after %d", len(before), len(after))
	}
	for c, n := range before {
		if after[c] != n {
			t.Errorf("card %v count changed: %d -> %d", c, n, after[c])
		}
	}
	if after[trigger] != 0 {
		t.Errorf("voided trigger still in play %d times", after[trigger])
	}
}
