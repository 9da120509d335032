package models

import "time"

// RoomStatus is the lifecycle state of a room.
type RoomStatus string

const (
	RoomWaiting RoomStatus = "waiting"
	RoomPlaying RoomStatus = "playing"
)

// RoomPlayer is a room member. ConnectionID is the current transport
// identity and is empty while the member is disconnected; PlayerName is
// the stable identity used to match reconnections.
type RoomPlayer struct {
	ConnectionID string    `json:"connectionId"`
	PlayerName   string    `json:"playerName"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// Connected reports whether the member currently holds a live connection.
func (p RoomPlayer) Connected() bool { return p.ConnectionID != "" }

// Room is the durable membership record for one game room.
type Room struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	IsPrivate    bool         `json:"isPrivate"`
	PasswordHash string       `json:"-"`
	Players      []RoomPlayer `json:"players"`
	Status       RoomStatus   `json:"status"`
	MinPlayers   int          `json:"minPlayers"`
	MaxPlayers   int          `json:"maxPlayers"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// ConnectedPlayers returns the members holding a live connection, in
// join order.
func (r *Room) ConnectedPlayers() []RoomPlayer {
	out := make([]RoomPlayer, 0, len(r.Players))
	for _, p := range r.Players {
		if p.Connected() {
			out = append(out, p)
		}
	}
	return out
}

// MemberByName returns the first member with the given name, in join
// order. Duplicate names are permitted; a reconnection binds to the
// earliest member with that name.
func (r *Room) MemberByName(name string) (RoomPlayer, bool) {
	for _, p := range r.Players {
		if p.PlayerName == name {
			return p, true
		}
	}
	return RoomPlayer{}, false
}

// MemberByConnection returns the member bound to the given connection id.
func (r *Room) MemberByConnection(connID string) (RoomPlayer, bool) {
	if connID == "" {
		return RoomPlayer{}, false
	}
	for _, p := range r.Players {
		if p.ConnectionID == connID {
			return p, true
		}
	}
	return RoomPlayer{}, false
}

// LobbySummary is the public listing shape for a joinable room. It never
// carries the password or per-player detail.
type LobbySummary struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	IsPrivate   bool       `json:"isPrivate"`
	PlayerCount int        `json:"playerCount"`
	MaxPlayers  int        `json:"maxPlayers"`
	MinPlayers  int        `json:"minPlayers"`
	Status      RoomStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
}
