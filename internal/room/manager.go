// Package room implements the room concurrency layer: create, join,
// leave, and reconnect are expressed as conditional updates against
// the durable store so membership invariants hold under concurrent
// connections.
package room

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Mr-incredible442/twins-followers/internal/models"
	"github.com/Mr-incredible442/twins-followers/internal/store"
)

const (
	defaultMinPlayers = 2
	defaultMaxPlayers = 6
	// idRetries bounds id generation against collisions before the
	// create fails outright.
	idRetries = 10
)

// Manager mediates all room membership changes.
type Manager struct {
	store store.RoomStore

	mu  sync.Mutex
	rng *rand.Rand
}

// NewManager returns a manager over the given store.
func NewManager(s store.RoomStore) *Manager {
	return &Manager{
		store: s,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateParams are the client-supplied room settings.
type CreateParams struct {
	Name       string
	IsPrivate  bool
	Password   string
	PlayerName string
	// ConnectionID of the creator, who is seated immediately.
	ConnectionID string
}

// Create generates a unique room, seats the creator, and persists it.
func (m *Manager) Create(ctx context.Context, p CreateParams) (*models.Room, error) {
	if p.PlayerName == "" {
		return nil, models.E(models.KindValidation, "player name is required")
	}
	if p.IsPrivate && p.Password == "" {
		return nil, models.E(models.KindValidation, "private rooms require a password")
	}
	if _, err := m.store.FindByConnection(ctx, p.ConnectionID); err == nil {
		return nil, models.E(models.KindConflict, "connection already belongs to a room")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, models.E(models.KindInternal, "check connection: %v", err)
	}

	var passwordHash string
	if p.IsPrivate {
		hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, models.E(models.KindInternal, "hash password: %v", err)
		}
		passwordHash = string(hash)
	}

	name := p.Name
	if name == "" {
		m.mu.Lock()
		name = generateName(m.rng)
		m.mu.Unlock()
	}

	for attempt := 0; attempt < idRetries; attempt++ {
		m.mu.Lock()
		id := generateID(m.rng)
		m.mu.Unlock()

		room := &models.Room{
			ID:           id,
			Name:         name,
			IsPrivate:    p.IsPrivate,
			PasswordHash: passwordHash,
			Players: []models.RoomPlayer{{
				ConnectionID: p.ConnectionID,
				PlayerName:   p.PlayerName,
				JoinedAt:     time.Now(),
			}},
			Status:     models.RoomWaiting,
			MinPlayers: defaultMinPlayers,
			MaxPlayers: defaultMaxPlayers,
			CreatedAt:  time.Now(),
		}
		err := m.store.Insert(ctx, room)
		if errors.Is(err, store.ErrDuplicateID) {
			continue
		}
		if err != nil {
			return nil, models.E(models.KindInternal, "create room: %v", err)
		}
		logrus.WithFields(logrus.Fields{"roomId": id, "player": p.PlayerName}).Info("room created")
		return room, nil
	}
	return nil, models.E(models.KindCapacity, "could not allocate a room id")
}

// JoinResult reports the room after a join and whether the join was a
// reconnection of an existing member.
type JoinResult struct {
	Room      *models.Room
	Reconnect bool
}

// Join seats a player, or rebinds an existing member who is matched by
// name and currently disconnected. Capacity is enforced by the store's
// conditional append, never by a read-then-write.
func (m *Manager) Join(ctx context.Context, roomID, connID, playerName, password string) (*JoinResult, error) {
	if playerName == "" {
		return nil, models.E(models.KindValidation, "player name is required")
	}
	room, err := m.store.Get(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.E(models.KindNotFound, "room %s not found", roomID)
	}
	if err != nil {
		return nil, models.E(models.KindInternal, "load room: %v", err)
	}

	if room.IsPrivate {
		if bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte(password)) != nil {
			return nil, models.E(models.KindValidation, "incorrect password")
		}
	}

	if _, err := m.store.FindByConnection(ctx, connID); err == nil {
		return nil, models.E(models.KindConflict, "connection already belongs to a room")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, models.E(models.KindInternal, "check connection: %v", err)
	}

	// A disconnected member with the same name reclaims their seat
	// regardless of capacity or room status.
	if member, ok := room.MemberByName(playerName); ok && !member.Connected() {
		updated, err := m.store.BindConnection(ctx, roomID, playerName, connID)
		if err != nil {
			return nil, models.E(models.KindInternal, "rebind connection: %v", err)
		}
		logrus.WithFields(logrus.Fields{"roomId": roomID, "player": playerName}).Info("player reconnected to room")
		return &JoinResult{Room: updated, Reconnect: true}, nil
	}

	if room.Status != models.RoomWaiting {
		return nil, models.E(models.KindIllegalTransition, "game already in progress")
	}

	updated, err := m.store.AppendPlayer(ctx, roomID, models.RoomPlayer{
		ConnectionID: connID,
		PlayerName:   playerName,
		JoinedAt:     time.Now(),
	})
	if errors.Is(err, store.ErrRoomFull) {
		return nil, models.E(models.KindCapacity, "room %s is full", roomID)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.E(models.KindNotFound, "room %s not found", roomID)
	}
	if err != nil {
		return nil, models.E(models.KindInternal, "join room: %v", err)
	}
	logrus.WithFields(logrus.Fields{"roomId": roomID, "player": playerName}).Info("player joined room")
	return &JoinResult{Room: updated, Reconnect: false}, nil
}

// LeaveResult reports the state of the room after a leave.
type LeaveResult struct {
	Room *models.Room
	// Deleted is set when the last member left and the room is gone.
	Deleted bool
	// WasPlaying is set when the leave interrupted an active game; the
	// caller must discard the session.
	WasPlaying bool
}

// Leave removes the member bound to connID. The room is deleted when
// it empties; an interrupted game resets the room to waiting.
func (m *Manager) Leave(ctx context.Context, roomID, connID string) (*LeaveResult, error) {
	room, err := m.store.RemoveByConnection(ctx, roomID, connID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.E(models.KindNotFound, "member not found in room %s", roomID)
	}
	if err != nil {
		return nil, models.E(models.KindInternal, "leave room: %v", err)
	}

	res := &LeaveResult{Room: room, WasPlaying: room.Status == models.RoomPlaying}
	if len(room.Players) == 0 {
		if err := m.store.Delete(ctx, roomID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, models.E(models.KindInternal, "delete room: %v", err)
		}
		res.Deleted = true
		logrus.WithField("roomId", roomID).Info("room deleted")
		return res, nil
	}
	if res.WasPlaying {
		if err := m.store.SetStatus(ctx, roomID, models.RoomWaiting); err != nil {
			return nil, models.E(models.KindInternal, "reset room status: %v", err)
		}
		room.Status = models.RoomWaiting
	}
	return res, nil
}

// MarkDisconnected clears the member's connection binding while
// keeping their seat, so a later join by name reclaims it.
func (m *Manager) MarkDisconnected(ctx context.Context, roomID, playerName string) (*models.Room, error) {
	room, err := m.store.BindConnection(ctx, roomID, playerName, "")
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.E(models.KindNotFound, "member %s not found in room %s", playerName, roomID)
	}
	if err != nil {
		return nil, models.E(models.KindInternal, "mark disconnected: %v", err)
	}
	return room, nil
}

// Rebind points an existing member at a new connection id, for state
// restoration after a transport drop. No capacity or password check:
// the seat already belongs to the name.
func (m *Manager) Rebind(ctx context.Context, roomID, playerName, connID string) (*models.Room, error) {
	room, err := m.store.BindConnection(ctx, roomID, playerName, connID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.E(models.KindNotFound, "member %s not found in room %s", playerName, roomID)
	}
	if err != nil {
		return nil, models.E(models.KindInternal, "rebind connection: %v", err)
	}
	return room, nil
}

// RemoveDisconnected drops the named disconnected members (or all of
// them when names is empty), deleting the room if it empties.
func (m *Manager) RemoveDisconnected(ctx context.Context, roomID string, names ...string) (*LeaveResult, error) {
	room, err := m.store.RemoveDisconnected(ctx, roomID, names...)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.E(models.KindNotFound, "room %s not found", roomID)
	}
	if err != nil {
		return nil, models.E(models.KindInternal, "remove disconnected: %v", err)
	}
	res := &LeaveResult{Room: room, WasPlaying: room.Status == models.RoomPlaying}
	if len(room.Players) == 0 {
		if err := m.store.Delete(ctx, roomID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, models.E(models.KindInternal, "delete room: %v", err)
		}
		res.Deleted = true
	}
	return res, nil
}

// SetStatus transitions the room lifecycle status.
func (m *Manager) SetStatus(ctx context.Context, roomID string, status models.RoomStatus) error {
	if err := m.store.SetStatus(ctx, roomID, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.E(models.KindNotFound, "room %s not found", roomID)
		}
		return models.E(models.KindInternal, "set room status: %v", err)
	}
	return nil
}

// Get loads a room by id.
func (m *Manager) Get(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := m.store.Get(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.E(models.KindNotFound, "room %s not found", roomID)
	}
	if err != nil {
		return nil, models.E(models.KindInternal, "load room: %v", err)
	}
	return room, nil
}

// FindByConnection returns the room the connection is seated in.
func (m *Manager) FindByConnection(ctx context.Context, connID string) (*models.Room, error) {
	room, err := m.store.FindByConnection(ctx, connID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.E(models.KindNotFound, "connection is not in a room")
	}
	if err != nil {
		return nil, models.E(models.KindInternal, "find room: %v", err)
	}
	return room, nil
}

// FindByPlayerName returns the room holding a member with that name.
func (m *Manager) FindByPlayerName(ctx context.Context, name string, connectedOnly bool) (*models.Room, error) {
	room, err := m.store.FindByPlayerName(ctx, name, connectedOnly)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.E(models.KindNotFound, "player %s is not in a room", name)
	}
	if err != nil {
		return nil, models.E(models.KindInternal, "find room: %v", err)
	}
	return room, nil
}

// PublicLobbies lists joinable public rooms.
func (m *Manager) PublicLobbies(ctx context.Context) ([]models.LobbySummary, error) {
	lobbies, err := m.store.ListPublicLobbies(ctx)
	if err != nil {
		return nil, models.E(models.KindInternal, "list lobbies: %v", err)
	}
	return lobbies, nil
}

// DecisionMaker returns the earliest-joined member currently holding a
// live connection. They arbitrate continue/end when a pause outlasts
// the grace period.
func (m *Manager) DecisionMaker(ctx context.Context, roomID string) (models.RoomPlayer, error) {
	room, err := m.store.Get(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return models.RoomPlayer{}, models.E(models.KindNotFound, "room %s not found", roomID)
	}
	if err != nil {
		return models.RoomPlayer{}, models.E(models.KindInternal, "load room: %v", err)
	}
	for _, p := range room.Players {
		if p.Connected() {
			return p, nil
		}
	}
	return models.RoomPlayer{}, models.E(models.KindNotFound, "no connected member in room %s", roomID)
}
