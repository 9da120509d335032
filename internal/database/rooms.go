package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Mr-incredible442/twins-followers/internal/models"
	"github.com/Mr-incredible442/twins-followers/internal/store"
)

// casRetries bounds the optimistic-update loop. Contention on one room
// is at most a handful of connections, so collisions resolve quickly.
const casRetries = 5

// roomDoc is the storage shape of a room. models.Room keeps its
// password hash out of client-facing JSON with a `json:"-"` tag, which
// would also strip it from the stored document; the explicit field
// here carries it through the jsonb column.
type roomDoc struct {
	models.Room
	PasswordHash string `json:"passwordHash,omitempty"`
}

func marshalRoom(r *models.Room) ([]byte, error) {
	return json.Marshal(roomDoc{Room: *r, PasswordHash: r.PasswordHash})
}

func unmarshalRoom(data []byte) (*models.Room, error) {
	var d roomDoc
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	room := d.Room
	room.PasswordHash = d.PasswordHash
	return &room, nil
}

// PostgresRoomStore implements store.RoomStore over the rooms table.
// Each mutation reads the document with its version, applies the change
// in memory, and writes back guarded by the version. A concurrent
// writer bumps the version and forces a re-read, so preconditions such
// as spare capacity are re-checked against the row actually replaced.
type PostgresRoomStore struct{}

// NewPostgresRoomStore returns a store backed by the shared pool.
func NewPostgresRoomStore() *PostgresRoomStore {
	return &PostgresRoomStore{}
}

func (s *PostgresRoomStore) Insert(ctx context.Context, room *models.Room) error {
	doc, err := marshalRoom(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	_, err = Pool.Exec(ctx,
		`INSERT INTO rooms (id, is_private, status, doc, created_at) VALUES ($1, $2, $3, $4, $5)`,
		room.ID, room.IsPrivate, string(room.Status), doc, room.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return store.ErrDuplicateID
		}
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

func (s *PostgresRoomStore) Get(ctx context.Context, id string) (*models.Room, error) {
	room, _, err := s.getVersioned(ctx, id)
	return room, err
}

func (s *PostgresRoomStore) getVersioned(ctx context.Context, id string) (*models.Room, int64, error) {
	var doc []byte
	var version int64
	err := Pool.QueryRow(ctx, `SELECT doc, version FROM rooms WHERE id = $1`, id).Scan(&doc, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, store.ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("select room: %w", err)
	}
	room, err := unmarshalRoom(doc)
	if err != nil {
		return nil, 0, fmt.Errorf("unmarshal room: %w", err)
	}
	return room, version, nil
}

// update applies mutate under the CAS loop. mutate returns an error to
// abort; that error surfaces unchanged.
func (s *PostgresRoomStore) update(ctx context.Context, roomID string, mutate func(*models.Room) error) (*models.Room, error) {
	for i := 0; i < casRetries; i++ {
		room, version, err := s.getVersioned(ctx, roomID)
		if err != nil {
			return nil, err
		}
		if err := mutate(room); err != nil {
			return nil, err
		}
		doc, err := marshalRoom(room)
		if err != nil {
			return nil, fmt.Errorf("marshal room: %w", err)
		}
		tag, err := Pool.Exec(ctx,
			`UPDATE rooms SET doc = $1, is_private = $2, status = $3, version = version + 1
			 WHERE id = $4 AND version = $5`,
			doc, room.IsPrivate, string(room.Status), roomID, version)
		if err != nil {
			return nil, fmt.Errorf("update room: %w", err)
		}
		if tag.RowsAffected() == 1 {
			return room, nil
		}
	}
	return nil, fmt.Errorf("room %s: update contention not resolved", roomID)
}

func (s *PostgresRoomStore) FindByConnection(ctx context.Context, connID string) (*models.Room, error) {
	return s.findMember(ctx, func(r *models.Room) bool {
		_, ok := r.MemberByConnection(connID)
		return ok
	})
}

func (s *PostgresRoomStore) FindByPlayerName(ctx context.Context, name string, connectedOnly bool) (*models.Room, error) {
	return s.findMember(ctx, func(r *models.Room) bool {
		for _, p := range r.Players {
			if p.PlayerName == name && (!connectedOnly || p.Connected()) {
				return true
			}
		}
		return false
	})
}

func (s *PostgresRoomStore) findMember(ctx context.Context, match func(*models.Room) bool) (*models.Room, error) {
	rows, err := Pool.Query(ctx, `SELECT doc FROM rooms`)
	if err != nil {
		return nil, fmt.Errorf("scan rooms: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan room doc: %w", err)
		}
		room, err := unmarshalRoom(doc)
		if err != nil {
			return nil, fmt.Errorf("unmarshal room: %w", err)
		}
		if match(room) {
			return room, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan rooms: %w", err)
	}
	return nil, store.ErrNotFound
}

func (s *PostgresRoomStore) AppendPlayer(ctx context.Context, roomID string, p models.RoomPlayer) (*models.Room, error) {
	return s.update(ctx, roomID, func(r *models.Room) error {
		if len(r.Players) >= r.MaxPlayers {
			return store.ErrRoomFull
		}
		r.Players = append(r.Players, p)
		return nil
	})
}

func (s *PostgresRoomStore) BindConnection(ctx context.Context, roomID, playerName, connID string) (*models.Room, error) {
	return s.update(ctx, roomID, func(r *models.Room) error {
		for i := range r.Players {
			if r.Players[i].PlayerName == playerName {
				r.Players[i].ConnectionID = connID
				return nil
			}
		}
		return store.ErrNotFound
	})
}

func (s *PostgresRoomStore) RemoveByConnection(ctx context.Context, roomID, connID string) (*models.Room, error) {
	return s.update(ctx, roomID, func(r *models.Room) error {
		for i := range r.Players {
			if connID != "" && r.Players[i].ConnectionID == connID {
				r.Players = append(r.Players[:i], r.Players[i+1:]...)
				return nil
			}
		}
		return store.ErrNotFound
	})
}

func (s *PostgresRoomStore) RemoveDisconnected(ctx context.Context, roomID string, names ...string) (*models.Room, error) {
	named := make(map[string]bool, len(names))
	for _, n := range names {
		named[n] = true
	}
	return s.update(ctx, roomID, func(r *models.Room) error {
		kept := r.Players[:0]
		for _, p := range r.Players {
			if !p.Connected() && (len(names) == 0 || named[p.PlayerName]) {
				continue
			}
			kept = append(kept, p)
		}
		r.Players = kept
		return nil
	})
}

func (s *PostgresRoomStore) SetStatus(ctx context.Context, roomID string, status models.RoomStatus) error {
	_, err := s.update(ctx, roomID, func(r *models.Room) error {
		r.Status = status
		return nil
	})
	return err
}

func (s *PostgresRoomStore) Delete(ctx context.Context, roomID string) error {
	tag, err := Pool.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, roomID)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *PostgresRoomStore) ListPublicLobbies(ctx context.Context) ([]models.LobbySummary, error) {
	rows, err := Pool.Query(ctx,
		`SELECT doc FROM rooms WHERE NOT is_private AND status = $1 ORDER BY created_at DESC`,
		string(models.RoomWaiting))
	if err != nil {
		return nil, fmt.Errorf("list lobbies: %w", err)
	}
	defer rows.Close()
	var out []models.LobbySummary
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan lobby doc: %w", err)
		}
		room, err := unmarshalRoom(doc)
		if err != nil {
			return nil, fmt.Errorf("unmarshal lobby: %w", err)
		}
		if len(room.Players) >= room.MaxPlayers {
			continue
		}
		out = append(out, models.LobbySummary{
			ID:          room.ID,
			Name:        room.Name,
			IsPrivate:   room.IsPrivate,
			PlayerCount: len(room.Players),
			MaxPlayers:  room.MaxPlayers,
			MinPlayers:  room.MinPlayers,
			Status:      room.Status,
			CreatedAt:   room.CreatedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list lobbies: %w", err)
	}
	return out, nil
}
