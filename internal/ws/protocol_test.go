package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mr-incredible442/twins-followers/internal/models"
)

func TestNackCarriesKind(t *testing.T) {
	a := nack("draw-card", models.E(models.KindIllegalTransition, "not your turn"))
	assert.False(t, a.Success)
	require.NotNil(t, a.Error)
	assert.Equal(t, "illegal-transition", a.Error.Kind)
	assert.Equal(t, "not your turn", a.Error.Message)

	a = nack("join-room", models.E(models.KindCapacity, "room is full"))
	assert.Equal(t, "capacity", a.Error.Kind)

	// Plain errors collapse to internal.
	a = nack("x", assert.AnError)
	assert.Equal(t, "internal", a.Error.Kind)
}

func TestDecode(t *testing.T) {
	env := Envelope{Action: "join-room", Data: json.RawMessage(`{"roomId":"AB12CD","playerName":"ann"}`)}
	var p joinRoomPayload
	require.NoError(t, decode(env, &p))
	assert.Equal(t, "AB12CD", p.RoomID)
	assert.Equal(t, "ann", p.PlayerName)

	err := decode(Envelope{Action: "join-room"}, &p)
	assert.Equal(t, models.KindValidation, models.KindOf(err))

	err = decode(Envelope{Action: "join-room", Data: json.RawMessage(`{`)}, &p)
	assert.Equal(t, models.KindValidation, models.KindOf(err))
}

func TestAckRoundTrip(t *testing.T) {
	a := ack("get-public-lobbies", map[string]interface{}{"lobbies": []string{}})
	raw, err := json.Marshal(a)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "get-public-lobbies", out["action"])
	assert.NotContains(t, out, "error")
}
