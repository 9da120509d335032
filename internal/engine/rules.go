package engine

import "github.com/Mr-incredible442/twins-followers/internal/models"

// AreTwins reports whether two cards form a twin pair: equal value,
// suit irrelevant.
func AreTwins(a, b models.Card) bool {
	return a.Value == b.Value
}

// AreFollowers reports whether two cards form a follower pair. Numeric
// cards follow each other when adjacent on the A..10 path, with A and 2
// also wrapping. Face cards follow each other only when their values
// differ (equal faces are twins). Numeric and face never mix.
func AreFollowers(a, b models.Card) bool {
	ai, bi := numericIndex(a.Value), numericIndex(b.Value)
	if ai >= 0 && bi >= 0 {
		if ai-bi == 1 || bi-ai == 1 {
			return true
		}
		// Wraparound: the path ends meet at A/2 only.
		return (a.Value == "A" && b.Value == "2") || (a.Value == "2" && b.Value == "A")
	}
	if isFace(a.Value) && isFace(b.Value) {
		return a.Value != b.Value
	}
	return false
}

// FindDecomposition searches hand for a winning split: one twin pair
// plus one follower pair, four distinct cards. Twin pairs are
// enumerated in hand order (i<j); for each, follower pairs are searched
// in the remaining cards in hand order. The first hit wins. This
// canonical tie-break is load-bearing: it also decides which card a
// fight participant drops, so it must never be reordered.
func FindDecomposition(hand []models.Card) *models.Decomposition {
	for i := 0; i < len(hand); i++ {
		for j := i + 1; j < len(hand); j++ {
			if !AreTwins(hand[i], hand[j]) {
				continue
			}
			rest := removeCard(removeCard(hand, hand[i]), hand[j])
			for k := 0; k < len(rest); k++ {
				for l := k + 1; l < len(rest); l++ {
					if AreFollowers(rest[k], rest[l]) {
						return &models.Decomposition{
							Twins:     [2]models.Card{hand[i], hand[j]},
							Followers: [2]models.Card{rest[k], rest[l]},
						}
					}
				}
			}
		}
	}
	return nil
}

// DecompositionWith returns the winning decomposition the hand would
// have after taking card, or nil.
func DecompositionWith(hand []models.Card, card models.Card) *models.Decomposition {
	tmp := make([]models.Card, 0, len(hand)+1)
	tmp = append(tmp, hand...)
	tmp = append(tmp, card)
	return FindDecomposition(tmp)
}

// WinnersWith returns the subset of players whose hand plus card admits
// a winning decomposition. Two or more winners means a fight.
func WinnersWith(players []*models.GamePlayer, card models.Card) []*models.GamePlayer {
	var winners []*models.GamePlayer
	for _, p := range players {
		if DecompositionWith(p.Hand, card) != nil {
			winners = append(winners, p)
		}
	}
	return winners
}

// DropCardFor determines which hand card a fight participant forfeits:
// the hand-resident partner of whichever pair the trigger card joins in
// the canonical decomposition. Twins are checked before followers,
// matching FindDecomposition's order. Returns false if the trigger does
// not complete a win for this hand.
func DropCardFor(hand []models.Card, trigger models.Card) (models.Card, bool) {
	d := DecompositionWith(hand, trigger)
	if d == nil {
		return models.Card{}, false
	}
	pair := d.Followers
	if d.Twins[0] == trigger || d.Twins[1] == trigger {
		pair = d.Twins
	}
	for _, c := range pair {
		if cardIn(hand, c) {
			return c, true
		}
	}
	return models.Card{}, false
}
