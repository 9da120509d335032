package models

import "time"

// Phase is the turn phase of an active session.
type Phase string

const (
	PhaseDraw    Phase = "draw"
	PhaseDiscard Phase = "discard"
	PhaseEnded   Phase = "ended"
)

// GamePlayer is a seated player inside a session. The hand is owned
// exclusively by this player; ConnectionID tracks the live transport
// identity and is empty while disconnected.
type GamePlayer struct {
	ConnectionID string `json:"connectionId"`
	PlayerName   string `json:"playerName"`
	Hand         []Card `json:"hand"`
}

// Winner records who won and with which four cards.
type Winner struct {
	ConnectionID string        `json:"connectionId"`
	PlayerName   string        `json:"playerName"`
	WinningHand  Decomposition `json:"winningHand"`
}

// FightData is the one-broadcast-lifetime record of a resolved fight,
// attached to the next game update and cleared by the following action.
type FightData struct {
	FightCard     Card              `json:"fightCard"`
	Participants  []string          `json:"participants"`
	OriginalHands map[string][]Card `json:"originalHands"`
	DroppedCards  map[string]Card   `json:"droppedCards"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// HistoryPlayer is the per-player slice of a completed game record.
type HistoryPlayer struct {
	ConnectionID string `json:"connectionId"`
	PlayerName   string `json:"playerName"`
}

// GameHistory is the durable record of one completed game.
type GameHistory struct {
	RoomID    string          `json:"roomId"`
	RoomName  string          `json:"roomName"`
	Players   []HistoryPlayer `json:"players"`
	Winner    Winner          `json:"winner"`
	StartedAt time.Time       `json:"startedAt"`
	EndedAt   time.Time       `json:"endedAt"`
	Duration  time.Duration   `json:"duration"`
}

// PlayerStats aggregates a player's completed games.
type PlayerStats struct {
	TotalGames int     `json:"totalGames"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	WinRate    float64 `json:"winRate"`
}
