package database

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mr-incredible442/twins-followers/internal/models"
)

func TestRoomDocRoundTripKeepsPasswordHash(t *testing.T) {
	room := &models.Room{
		ID:           "AB12CD",
		Name:         "Quiet Harbor 3",
		IsPrivate:    true,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		Players: []models.RoomPlayer{
			{ConnectionID: "c1", PlayerName: "ann", JoinedAt: time.Now().UTC()},
		},
		Status:     models.RoomWaiting,
		MinPlayers: 2,
		MaxPlayers: 6,
		CreatedAt:  time.Now().UTC(),
	}

	doc, err := marshalRoom(room)
	require.NoError(t, err)

	got, err := unmarshalRoom(doc)
	require.NoError(t, err)
	assert.Equal(t, room.PasswordHash, got.PasswordHash)
	assert.Equal(t, room.ID, got.ID)
	assert.Equal(t, room.IsPrivate, got.IsPrivate)
	require.Len(t, got.Players, 1)
	assert.Equal(t, "ann", got.Players[0].PlayerName)
}

func TestRoomJSONStillOmitsPasswordHash(t *testing.T) {
	// Client-facing serialization of the model itself must not leak
	// the hash; only the storage document carries it.
	room := models.Room{ID: "AB12CD", PasswordHash: "$2a$10$abcdefghijklmnopqrstuv"}
	data, err := json.Marshal(room)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "$2a$10$")

	var back models.Room
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Empty(t, back.PasswordHash)
}
