package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Mr-incredible442/twins-followers/internal/models"
)

// MemoryStore is an in-process RoomStore. It is the fallback when no
// database is configured and the fixture store for tests. A single
// mutex serializes all operations, which trivially satisfies the
// conditional-update contract.
type MemoryStore struct {
	mu    sync.Mutex
	rooms map[string]*models.Room
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]*models.Room)}
}

// clone deep-copies a room so callers never alias store-internal state.
func clone(r *models.Room) *models.Room {
	cp := *r
	cp.Players = make([]models.RoomPlayer, len(r.Players))
	copy(cp.Players, r.Players)
	return &cp
}

func (s *MemoryStore) Insert(_ context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID]; ok {
		return ErrDuplicateID
	}
	s.rooms[room.ID] = clone(room)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(r), nil
}

func (s *MemoryStore) FindByConnection(_ context.Context, connID string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if _, ok := r.MemberByConnection(connID); ok {
			return clone(r), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindByPlayerName(_ context.Context, name string, connectedOnly bool) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		for _, p := range r.Players {
			if p.PlayerName != name {
				continue
			}
			if connectedOnly && !p.Connected() {
				continue
			}
			return clone(r), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) AppendPlayer(_ context.Context, roomID string, p models.RoomPlayer) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	if len(r.Players) >= r.MaxPlayers {
		return nil, ErrRoomFull
	}
	r.Players = append(r.Players, p)
	return clone(r), nil
}

func (s *MemoryStore) BindConnection(_ context.Context, roomID, playerName, connID string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	for i := range r.Players {
		if r.Players[i].PlayerName == playerName {
			r.Players[i].ConnectionID = connID
			return clone(r), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) RemoveByConnection(_ context.Context, roomID, connID string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	for i := range r.Players {
		if connID != "" && r.Players[i].ConnectionID == connID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return clone(r), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) RemoveDisconnected(_ context.Context, roomID string, names ...string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	named := make(map[string]bool, len(names))
	for _, n := range names {
		named[n] = true
	}
	kept := r.Players[:0]
	for _, p := range r.Players {
		if !p.Connected() && (len(names) == 0 || named[p.PlayerName]) {
			continue
		}
		kept = append(kept, p)
	}
	r.Players = kept
	return clone(r), nil
}

func (s *MemoryStore) SetStatus(_ context.Context, roomID string, status models.RoomStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		return ErrNotFound
	}
	delete(s.rooms, roomID)
	return nil
}

func (s *MemoryStore) ListPublicLobbies(_ context.Context) ([]models.LobbySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.LobbySummary, 0, len(s.rooms))
	for _, r := range s.rooms {
		if r.IsPrivate || r.Status != models.RoomWaiting || len(r.Players) >= r.MaxPlayers {
			continue
		}
		out = append(out, models.LobbySummary{
			ID:          r.ID,
			Name:        r.Name,
			IsPrivate:   r.IsPrivate,
			PlayerCount: len(r.Players),
			MaxPlayers:  r.MaxPlayers,
			MinPlayers:  r.MinPlayers,
			Status:      r.Status,
			CreatedAt:   r.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
