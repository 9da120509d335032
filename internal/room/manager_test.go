package room

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mr-incredible442/twins-followers/internal/models"
	"github.com/Mr-incredible442/twins-followers/internal/store"
)

func newManager() *Manager {
	return NewManager(store.NewMemoryStore())
}

func TestCreateGeneratesIDAndName(t *testing.T) {
	ctx := context.Background()
	m := newManager()

	room, err := m.Create(ctx, CreateParams{PlayerName: "ann", ConnectionID: "c1"})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), room.ID)
	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z]+ [A-Za-z]+ \d+$`), room.Name)
	assert.Equal(t, models.RoomWaiting, room.Status)
	require.Len(t, room.Players, 1)
	assert.Equal(t, "ann", room.Players[0].PlayerName)
	assert.Equal(t, 2, room.MinPlayers)
	assert.Equal(t, 6, room.MaxPlayers)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	m := newManager()

	_, err := m.Create(ctx, CreateParams{ConnectionID: "c1"})
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	_, err = m.Create(ctx, CreateParams{PlayerName: "ann", ConnectionID: "c1", IsPrivate: true})
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestJoinAndCapacity(t *testing.T) {
	ctx := context.Background()
	m := newManager()
	room, err := m.Create(ctx, CreateParams{PlayerName: "ann", ConnectionID: "c1"})
	require.NoError(t, err)

	for i := 2; i <= 6; i++ {
		res, err := m.Join(ctx, room.ID, fmt.Sprintf("c%d", i), fmt.Sprintf("p%d", i), "")
		require.NoError(t, err)
		assert.False(t, res.Reconnect)
	}

	_, err = m.Join(ctx, room.ID, "c7", "late", "")
	assert.Equal(t, models.KindCapacity, models.KindOf(err))

	_, err = m.Join(ctx, "ZZZZZZ", "c8", "lost", "")
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
}

func TestJoinConcurrentLastSeat(t *testing.T) {
	ctx := context.Background()
	m := newManager()
	room, err := m.Create(ctx, CreateParams{PlayerName: "ann", ConnectionID: "c1"})
	require.NoError(t, err)
	for i := 2; i <= 5; i++ {
		_, err := m.Join(ctx, room.ID, fmt.Sprintf("c%d", i), fmt.Sprintf("p%d", i), "")
		require.NoError(t, err)
	}

	// One seat left. Contenders race for it; exactly one may win.
	const contenders = 8
	errs := make([]error, contenders)
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Join(ctx, room.ID, fmt.Sprintf("r%d", i), fmt.Sprintf("racer%d", i), "")
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.Equal(t, models.KindCapacity, models.KindOf(err))
		}
	}
	assert.Equal(t, 1, won)

	got, err := m.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, got.Players, got.MaxPlayers)
}

func TestCreateConnectionBoundElsewhere(t *testing.T) {
	ctx := context.Background()
	m := newManager()
	_, err := m.Create(ctx, CreateParams{PlayerName: "ann", ConnectionID: "c1"})
	require.NoError(t, err)

	_, err = m.Create(ctx, CreateParams{PlayerName: "ann", ConnectionID: "c1"})
	assert.Equal(t, models.KindConflict, models.KindOf(err))
}

func TestJoinPrivateRoomPassword(t *testing.T) {
	ctx := context.Background()
	m := newManager()
	room, err := m.Create(ctx, CreateParams{
		PlayerName: "ann", ConnectionID: "c1", IsPrivate: true, Password: "hunter2",
	})
	require.NoError(t, err)

	_, err = m.Join(ctx, room.ID, "c2", "bea", "wrong")
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	res, err := m.Join(ctx, room.ID, "c2", "bea", "hunter2")
	require.NoError(t, err)
	assert.Len(t, res.Room.Players, 2)
}

func TestJoinConnectionBoundElsewhere(t *testing.T) {
	ctx := context.Background()
	m := newManager()
	r1, err := m.Create(ctx, CreateParams{PlayerName: "ann", ConnectionID: "c1"})
	require.NoError(t, err)
	r2, err := m.Create(ctx, CreateParams{PlayerName: "bea", ConnectionID: "c2"})
	require.NoError(t, err)

	_, err = m.Join(ctx, r2.ID, "c1", "ann2", "")
	assert.Equal(t, models.KindConflict, models.KindOf(err))

	// Leaving the first room frees the connection id.
	_, err = m.Leave(ctx, r1.ID, "c1")
	require.NoError(t, err)
	_, err = m.Join(ctx, r2.ID, "c1", "ann2", "")
	assert.NoError(t, err)
}

func TestJoinReconnectByName(t *testing.T) {
	ctx := context.Background()
	m := newManager()
	room, err := m.Create(ctx, CreateParams{PlayerName: "ann", ConnectionID: "c1"})
	require.NoError(t, err)
	_, err = m.Join(ctx, room.ID, "c2", "bea", "")
	require.NoError(t, err)

	// Game starts, bea drops. The seat stays and capacity no longer
	// applies to bea's return.
	require.NoError(t, m.SetStatus(ctx, room.ID, models.RoomPlaying))
	_, err = m.MarkDisconnected(ctx, room.ID, "bea")
	require.NoError(t, err)

	res, err := m.Join(ctx, room.ID, "c9", "bea", "")
	require.NoError(t, err)
	assert.True(t, res.Reconnect)
	member, ok := res.Room.MemberByName("bea")
	require.True(t, ok)
	assert.Equal(t, "c9", member.ConnectionID)

	// A brand-new name cannot join mid-game.
	_, err = m.Join(ctx, room.ID, "c10", "cam", "")
	assert.Equal(t, models.KindIllegalTransition, models.KindOf(err))
}

func TestJoinDuplicateNewNamePermitted(t *testing.T) {
	ctx := context.Background()
	m := newManager()
	room, err := m.Create(ctx, CreateParams{PlayerName: "ann", ConnectionID: "c1"})
	require.NoError(t, err)

	// "ann" is connected, so a second "ann" is a new member, not a
	// reconnection.
	res, err := m.Join(ctx, room.ID, "c2", "ann", "")
	require.NoError(t, err)
	assert.False(t, res.Reconnect)
	assert.Len(t, res.Room.Players, 2)
}

func TestLeaveDeletesEmptyRoom(t *testing.T) {
	ctx := context.Background()
	m := newManager()
	room, err := m.Create(ctx, CreateParams{PlayerName: "ann", ConnectionID: "c1"})
	require.NoError(t, err)

	res, err := m.Leave(ctx, room.ID, "c1")
	require.NoError(t, err)
	assert.True(t, res.Deleted)

	_, err = m.Get(ctx, room.ID)
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
}

func TestLeaveMidGameResetsStatus(t *testing.T) {
	ctx := context.Background()
	m := newManager()
	room, err := m.Create(ctx, CreateParams{PlayerName: "ann", ConnectionID: "c1"})
	require.NoError(t, err)
	_, err = m.Join(ctx, room.ID, "c2", "bea", "")
	require.NoError(t, err)
	require.NoError(t, m.SetStatus(ctx, room.ID, models.RoomPlaying))

	res, err := m.Leave(ctx, room.ID, "c2")
	require.NoError(t, err)
	assert.False(t, res.Deleted)
	assert.True(t, res.WasPlaying)
	assert.Equal(t, models.RoomWaiting, res.Room.Status)
}

func TestDecisionMakerEarliestConnected(t *testing.T) {
	ctx := context.Background()
	m := newManager()
	room, err := m.Create(ctx, CreateParams{PlayerName: "ann", ConnectionID: "c1"})
	require.NoError(t, err)
	_, err = m.Join(ctx, room.ID, "c2", "bea", "")
	require.NoError(t, err)
	_, err = m.Join(ctx, room.ID, "c3", "cam", "")
	require.NoError(t, err)

	dm, err := m.DecisionMaker(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann", dm.PlayerName)

	_, err = m.MarkDisconnected(ctx, room.ID, "ann")
	require.NoError(t, err)
	dm, err = m.DecisionMaker(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "bea", dm.PlayerName)
}

func TestPublicLobbiesHideDetail(t *testing.T) {
	ctx := context.Background()
	m := newManager()
	_, err := m.Create(ctx, CreateParams{PlayerName: "ann", ConnectionID: "c1"})
	require.NoError(t, err)
	_, err = m.Create(ctx, CreateParams{
		PlayerName: "bea", ConnectionID: "c2", IsPrivate: true, Password: "x",
	})
	require.NoError(t, err)

	lobbies, err := m.PublicLobbies(ctx)
	require.NoError(t, err)
	require.Len(t, lobbies, 1)
	assert.Equal(t, 1, lobbies[0].PlayerCount)
	assert.Equal(t, 6, lobbies[0].MaxPlayers)
}
