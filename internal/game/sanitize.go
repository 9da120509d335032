package game

import (
	"time"

	"github.com/Mr-incredible442/twins-followers/internal/models"
)

// PlayerView is one seat as shown to a specific viewer. Hands other
// than the viewer's own are masked card-for-card until the game ends.
type PlayerView struct {
	PlayerName string        `json:"playerName"`
	Hand       []models.Card `json:"hand"`
	HandCount  int           `json:"handCount"`
	Connected  bool          `json:"connected"`
	IsCurrent  bool          `json:"isCurrent"`
}

// GameView is the session as shown to one viewer. The deck is exposed
// only as a count.
type GameView struct {
	RoomID              string            `json:"roomId"`
	Players             []PlayerView      `json:"players"`
	DeckCount           int               `json:"deckCount"`
	DiscardPile         []models.Card     `json:"discardPile"`
	LastDiscard         *models.Card      `json:"lastDiscard,omitempty"`
	CurrentPlayerIndex  int               `json:"currentPlayerIndex"`
	CurrentPlayerName   string            `json:"currentPlayerName"`
	Phase               models.Phase      `json:"phase"`
	Winner              *models.Winner    `json:"winner,omitempty"`
	FightData           *models.FightData `json:"fightData,omitempty"`
	Message             string            `json:"message,omitempty"`
	IsPaused            bool              `json:"isPaused"`
	PausedReason        string            `json:"pausedReason,omitempty"`
	DisconnectedPlayers []string          `json:"disconnectedPlayers"`
	TurnStartTime       time.Time         `json:"turnStartTime"`
	TurnTimeLimitSec    int               `json:"turnTimeLimit"`
}

// ViewFor returns the session sanitized for the named viewer. Views
// are keyed by player name because connection ids change across
// reconnects.
func (s *Session) ViewFor(playerName string) GameView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewForLocked(playerName)
}

// viewForLocked assumes lock is held.
func (s *Session) viewForLocked(viewer string) GameView {
	revealAll := s.Winner != nil
	players := make([]PlayerView, 0, len(s.Players))
	for i, p := range s.Players {
		pv := PlayerView{
			PlayerName: p.PlayerName,
			HandCount:  len(p.Hand),
			Connected:  p.ConnectionID != "",
			IsCurrent:  i == s.CurrentPlayerIndex,
		}
		if revealAll || p.PlayerName == viewer {
			pv.Hand = append([]models.Card{}, p.Hand...)
		} else {
			pv.Hand = make([]models.Card, len(p.Hand))
			for j := range pv.Hand {
				pv.Hand[j] = models.HiddenCard
			}
		}
		players = append(players, pv)
	}

	v := GameView{
		RoomID:              s.RoomID,
		Players:             players,
		DeckCount:           len(s.Deck),
		DiscardPile:         append([]models.Card{}, s.DiscardPile...),
		CurrentPlayerIndex:  s.CurrentPlayerIndex,
		Phase:               s.Phase,
		Winner:              s.Winner,
		FightData:           s.FightData,
		Message:             s.Message,
		IsPaused:            s.IsPaused,
		PausedReason:        s.PausedReason,
		DisconnectedPlayers: append([]string{}, s.Disconnected...),
		TurnStartTime:       s.TurnStartTime,
		TurnTimeLimitSec:    int(s.TurnTimeLimit / time.Second),
	}
	if s.LastDiscard != nil {
		c := *s.LastDiscard
		v.LastDiscard = &c
	}
	if len(s.Players) > 0 {
		v.CurrentPlayerName = s.currentPlayer().PlayerName
	}
	return v
}
