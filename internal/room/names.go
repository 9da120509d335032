package room

import (
	"fmt"
	"math/rand"
	"strings"
)

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// idLength is the room code length shown to players.
const idLength = 6

var adjectives = []string{
	"Brave", "Calm", "Clever", "Daring", "Eager", "Fierce", "Gentle",
	"Happy", "Jolly", "Keen", "Lively", "Mighty", "Noble", "Proud",
	"Quick", "Royal", "Silent", "Swift", "Wild", "Witty",
}

var nouns = []string{
	"Falcon", "Tiger", "Otter", "Raven", "Lynx", "Panda", "Badger",
	"Heron", "Wolf", "Fox", "Bear", "Hawk", "Crane", "Viper",
	"Moose", "Stag", "Owl", "Puma", "Seal", "Hare",
}

// generateID returns a random short room code.
func generateID(rng *rand.Rand) string {
	var b strings.Builder
	b.Grow(idLength)
	for i := 0; i < idLength; i++ {
		b.WriteByte(idAlphabet[rng.Intn(len(idAlphabet))])
	}
	return b.String()
}

// generateName returns a display name like "Brave Falcon 7".
func generateName(rng *rand.Rand) string {
	return fmt.Sprintf("%s %s %d",
		adjectives[rng.Intn(len(adjectives))],
		nouns[rng.Intn(len(nouns))],
		rng.Intn(100))
}
