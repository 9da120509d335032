// Package store defines the durable room store contract. Room
// membership is the one piece of state whose concurrency control is
// delegated to storage: every mutating operation is conditional, so
// invariants like "never above capacity" hold even when two
// connections race on the same room.
package store

import (
	"context"
	"errors"

	"github.com/Mr-incredible442/twins-followers/internal/models"
)

var (
	// ErrNotFound: no room with that id (or no matching member).
	ErrNotFound = errors.New("room not found")
	// ErrDuplicateID: insert collided with an existing room id.
	ErrDuplicateID = errors.New("room id already exists")
	// ErrRoomFull: the capacity precondition failed on append.
	ErrRoomFull = errors.New("room is full")
)

// RoomStore is the durable store's conditional-update surface. An
// implementation must make each mutating call atomic with respect to
// its stated precondition: two concurrent AppendPlayer calls on a room
// with one free seat must not both succeed.
type RoomStore interface {
	// Insert creates the room; fails with ErrDuplicateID on id collision.
	Insert(ctx context.Context, room *models.Room) error
	// Get returns the room by id.
	Get(ctx context.Context, id string) (*models.Room, error)
	// FindByConnection returns the room holding a member bound to connID.
	FindByConnection(ctx context.Context, connID string) (*models.Room, error)
	// FindByPlayerName returns the room holding a member with that name.
	// With connectedOnly set, disconnected members (empty connection id)
	// do not match.
	FindByPlayerName(ctx context.Context, name string, connectedOnly bool) (*models.Room, error)
	// AppendPlayer atomically appends a member iff the room exists and
	// has spare capacity; returns ErrRoomFull otherwise.
	AppendPlayer(ctx context.Context, roomID string, p models.RoomPlayer) (*models.Room, error)
	// BindConnection updates the connection id of the first member with
	// the given name. An empty connID marks the member disconnected.
	BindConnection(ctx context.Context, roomID, playerName, connID string) (*models.Room, error)
	// RemoveByConnection removes the member bound to connID.
	RemoveByConnection(ctx context.Context, roomID, connID string) (*models.Room, error)
	// RemoveDisconnected removes members with an empty connection id.
	// With names given, only disconnected members with those names are
	// removed.
	RemoveDisconnected(ctx context.Context, roomID string, names ...string) (*models.Room, error)
	// SetStatus updates the room lifecycle status.
	SetStatus(ctx context.Context, roomID string, status models.RoomStatus) error
	// Delete removes the room entirely.
	Delete(ctx context.Context, roomID string) error
	// ListPublicLobbies returns waiting, non-private rooms with spare
	// capacity.
	ListPublicLobbies(ctx context.Context) ([]models.LobbySummary, error)
}
