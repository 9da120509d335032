package engine

import (
	"math/rand"

	"github.com/Mr-incredible442/twins-followers/internal/models"
)

// FightOutcome carries the piles after a fight plus, per participant
// name, the card forfeited and the replacement drawn.
type FightOutcome struct {
	Deck        []models.Card
	DiscardPile []models.Card
	Dropped     map[string]models.Card
	Drawn       map[string]models.Card
}

// ResolveFight settles a multi-winner tie. Each winner forfeits the
// hand-resident partner of the pair the trigger card would have joined
// onto the discard pile, then draws one replacement from a random
// position in the deck,
// reshuffling the discard pile into the deck first if it ran dry. Hands
// are mutated in place. The trigger card is voided: it ends up in no
// hand and no pile.
func ResolveFight(winners []*models.GamePlayer, trigger models.Card, deck, discard []models.Card, rng *rand.Rand) FightOutcome {
	out := FightOutcome{
		Deck:        deck,
		DiscardPile: discard,
		Dropped:     make(map[string]models.Card, len(winners)),
		Drawn:       make(map[string]models.Card, len(winners)),
	}
	for _, w := range winners {
		drop, ok := DropCardFor(w.Hand, trigger)
		if !ok {
			continue
		}
		w.Hand = removeCard(w.Hand, drop)
		out.Dropped[w.PlayerName] = drop
		out.DiscardPile = append(out.DiscardPile, drop)

		if len(out.Deck) == 0 && len(out.DiscardPile) > 0 {
			out.Deck = append(out.Deck, Shuffle(rng, out.DiscardPile)...)
			out.DiscardPile = out.DiscardPile[:0]
		}
		if len(out.Deck) > 0 {
			i := rng.Intn(len(out.Deck))
			drawn := out.Deck[i]
			out.Deck = append(out.Deck[:i], out.Deck[i+1:]...)
			w.Hand = append(w.Hand, drawn)
			out.Drawn[w.PlayerName] = drawn
		}
	}
	return out
}
