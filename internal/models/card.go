package models

// Card is a pure value object: two cards are the same card iff their
// value and suit match. The zero value is not a valid card.
type Card struct {
	Value string `json:"value"`
	Suit  string `json:"suit"`
}

// HiddenCard is the placeholder sent to viewers who must not see a card.
var HiddenCard = Card{Value: "?", Suit: "?"}

// Decomposition is a winning four-card split: one twin pair plus one
// follower pair, disjoint.
type Decomposition struct {
	Twins     [2]Card `json:"twins"`
	Followers [2]Card `json:"followers"`
}

// Contains reports whether c appears in either pair of the decomposition.
func (d *Decomposition) Contains(c Card) bool {
	return d.Twins[0] == c || d.Twins[1] == c || d.Followers[0] == c || d.Followers[1] == c
}
