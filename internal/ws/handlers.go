package ws

import (
	"context"

	"github.com/Mr-incredible442/twins-followers/internal/database"
	"github.com/Mr-incredible442/twins-followers/internal/game"
	"github.com/Mr-incredible442/twins-followers/internal/models"
	"github.com/Mr-incredible442/twins-followers/internal/room"
)

func (h *Hub) timings() game.Timings {
	return game.Timings{
		TurnTimeLimit:      h.cfg.TurnTimeLimit,
		DisconnectCoalesce: h.cfg.DisconnectCoalesce,
		DecisionGrace:      h.cfg.DecisionGrace,
	}
}

func (h *Hub) handleCreateRoom(ctx context.Context, c *Client, env Envelope) Ack {
	var p createRoomPayload
	if err := decode(env, &p); err != nil {
		return nack(env.Action, err)
	}
	r, err := h.rooms.Create(ctx, room.CreateParams{
		Name:         p.Name,
		IsPrivate:    p.IsPrivate,
		Password:     p.Password,
		PlayerName:   p.PlayerName,
		ConnectionID: c.ID,
	})
	if err != nil {
		return nack(env.Action, err)
	}
	c.bindName(p.PlayerName)
	c.sendEvent("room-joined", map[string]interface{}{"room": r})
	return ack(env.Action, map[string]interface{}{"room": r})
}

func (h *Hub) handleJoinRoom(ctx context.Context, c *Client, env Envelope) Ack {
	var p joinRoomPayload
	if err := decode(env, &p); err != nil {
		return nack(env.Action, err)
	}
	res, err := h.rooms.Join(ctx, p.RoomID, c.ID, p.PlayerName, p.Password)
	if err != nil {
		return nack(env.Action, err)
	}
	c.bindName(p.PlayerName)

	if res.Reconnect {
		h.cancelLobbyRemoval(p.RoomID, p.PlayerName)
		if s, active := h.games.Get(p.RoomID); active {
			s.HandleReconnect(p.PlayerName, c.ID)
		}
	}
	h.broadcastRoomUpdate(ctx, p.RoomID)
	c.sendEvent("room-joined", map[string]interface{}{"room": res.Room})
	return ack(env.Action, map[string]interface{}{"room": res.Room, "reconnected": res.Reconnect})
}

func (h *Hub) handleLeaveRoom(ctx context.Context, c *Client, env Envelope) Ack {
	r, err := h.rooms.FindByConnection(ctx, c.ID)
	if err != nil {
		return nack(env.Action, err)
	}
	member, _ := r.MemberByConnection(c.ID)

	res, err := h.rooms.Leave(ctx, r.ID, c.ID)
	if err != nil {
		return nack(env.Action, err)
	}
	h.cancelLobbyRemoval(r.ID, member.PlayerName)

	if res.Deleted {
		h.games.Delete(r.ID)
	} else {
		if res.WasPlaying {
			if s, active := h.games.Get(r.ID); active {
				s.End(member.PlayerName + " left the game")
			}
			h.games.Delete(r.ID)
		}
		h.broadcastRoomUpdate(ctx, r.ID)
	}
	c.sendEvent("room-left", map[string]interface{}{})
	return ack(env.Action, nil)
}

func (h *Hub) handleGetPublicLobbies(ctx context.Context, c *Client, env Envelope) Ack {
	lobbies, err := h.rooms.PublicLobbies(ctx)
	if err != nil {
		return nack(env.Action, err)
	}
	c.sendEvent("lobbies-list", map[string]interface{}{"lobbies": lobbies})
	return ack(env.Action, map[string]interface{}{"lobbies": lobbies})
}

func (h *Hub) handleRestoreState(ctx context.Context, c *Client, env Envelope) Ack {
	var p restoreStatePayload
	if err := decode(env, &p); err != nil {
		return nack(env.Action, err)
	}
	r, err := h.rooms.FindByPlayerName(ctx, p.PlayerName, false)
	if err != nil {
		return nack(env.Action, err)
	}
	if member, ok := r.MemberByName(p.PlayerName); ok && member.Connected() && member.ConnectionID != c.ID {
		return nack(env.Action, models.E(models.KindConflict, "player %s is already connected", p.PlayerName))
	}
	updated, err := h.rooms.Rebind(ctx, r.ID, p.PlayerName, c.ID)
	if err != nil {
		return nack(env.Action, err)
	}
	c.bindName(p.PlayerName)
	h.cancelLobbyRemoval(r.ID, p.PlayerName)

	data := map[string]interface{}{"room": updated}
	if s, active := h.games.Get(r.ID); active {
		s.HandleReconnect(p.PlayerName, c.ID)
		data["gameState"] = s.ViewFor(p.PlayerName)
	}
	h.broadcastRoomUpdate(ctx, r.ID)
	return ack(env.Action, data)
}

func (h *Hub) handleStartGame(ctx context.Context, c *Client, env Envelope) Ack {
	r, err := h.rooms.FindByConnection(ctx, c.ID)
	if err != nil {
		return nack(env.Action, err)
	}
	if r.Status != models.RoomWaiting {
		return nack(env.Action, models.E(models.KindIllegalTransition, "game already in progress"))
	}
	connected := r.ConnectedPlayers()
	if len(connected) < r.MinPlayers {
		return nack(env.Action, models.E(models.KindIllegalTransition,
			"need at least %d connected players", r.MinPlayers))
	}
	if err := h.rooms.SetStatus(ctx, r.ID, models.RoomPlaying); err != nil {
		return nack(env.Action, err)
	}
	s := game.NewSession(r.ID, r.Name, connected, r.MinPlayers, h.timings(), h.sessionCallbacks(r.ID))
	h.games.Put(r.ID, s)
	for _, m := range connected {
		h.sendToConn(m.ConnectionID, "game-started", s.ViewFor(m.PlayerName))
	}
	s.Start()
	return ack(env.Action, nil)
}

// sessionFor resolves the acting connection's room and active session.
func (h *Hub) sessionFor(ctx context.Context, c *Client) (*game.Session, error) {
	r, err := h.rooms.FindByConnection(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	s, ok := h.games.Get(r.ID)
	if !ok {
		return nil, models.E(models.KindNotFound, "no active game in room %s", r.ID)
	}
	return s, nil
}

func (h *Hub) handleDrawCard(ctx context.Context, c *Client, env Envelope) Ack {
	s, err := h.sessionFor(ctx, c)
	if err != nil {
		return nack(env.Action, err)
	}
	if err := s.DrawCard(c.ID); err != nil {
		return nack(env.Action, err)
	}
	return ack(env.Action, nil)
}

func (h *Hub) handleDiscardCard(ctx context.Context, c *Client, env Envelope) Ack {
	var p discardCardPayload
	if err := decode(env, &p); err != nil {
		return nack(env.Action, err)
	}
	if p.Card.Value == "" || p.Card.Suit == "" {
		return nack(env.Action, models.E(models.KindValidation, "card value and suit are required"))
	}
	s, err := h.sessionFor(ctx, c)
	if err != nil {
		return nack(env.Action, err)
	}
	if err := s.DiscardCard(c.ID, p.Card); err != nil {
		return nack(env.Action, err)
	}
	return ack(env.Action, nil)
}

func (h *Hub) handlePickUpDiscard(ctx context.Context, c *Client, env Envelope) Ack {
	s, err := h.sessionFor(ctx, c)
	if err != nil {
		return nack(env.Action, err)
	}
	if err := s.PickUpDiscard(c.ID); err != nil {
		return nack(env.Action, err)
	}
	return ack(env.Action, nil)
}

func (h *Hub) handleDeclareWin(ctx context.Context, c *Client, env Envelope) Ack {
	s, err := h.sessionFor(ctx, c)
	if err != nil {
		return nack(env.Action, err)
	}
	if err := s.DeclareWin(c.ID); err != nil {
		return nack(env.Action, err)
	}
	return ack(env.Action, nil)
}

func (h *Hub) handleRestartGame(ctx context.Context, c *Client, env Envelope) Ack {
	r, err := h.rooms.FindByConnection(ctx, c.ID)
	if err != nil {
		return nack(env.Action, err)
	}
	if _, ok := h.games.Get(r.ID); !ok {
		return nack(env.Action, models.E(models.KindNotFound, "no game to restart in room %s", r.ID))
	}

	// Ghost seats from the previous game do not carry over.
	res, err := h.rooms.RemoveDisconnected(ctx, r.ID)
	if err != nil {
		return nack(env.Action, err)
	}
	connected := res.Room.ConnectedPlayers()
	if len(connected) < res.Room.MinPlayers {
		return nack(env.Action, models.E(models.KindIllegalTransition,
			"need at least %d connected players", res.Room.MinPlayers))
	}
	if err := h.rooms.SetStatus(ctx, r.ID, models.RoomPlaying); err != nil {
		return nack(env.Action, err)
	}
	s := game.NewSession(r.ID, r.Name, connected, res.Room.MinPlayers, h.timings(), h.sessionCallbacks(r.ID))
	h.games.Put(r.ID, s)
	for _, m := range connected {
		h.sendToConn(m.ConnectionID, "game-started", s.ViewFor(m.PlayerName))
	}
	s.Start()
	return ack(env.Action, nil)
}

func (h *Hub) handleContinueGame(ctx context.Context, c *Client, env Envelope) Ack {
	r, err := h.rooms.FindByConnection(ctx, c.ID)
	if err != nil {
		return nack(env.Action, err)
	}
	s, ok := h.games.Get(r.ID)
	if !ok {
		return nack(env.Action, models.E(models.KindNotFound, "no active game in room %s", r.ID))
	}
	res, err := s.ContinueAfterDisconnect(c.ID)
	if err != nil {
		return nack(env.Action, err)
	}
	if _, err := h.rooms.RemoveDisconnected(ctx, r.ID, res.Removed...); err != nil {
		return nack(env.Action, err)
	}
	if res.Ended {
		if err := h.rooms.SetStatus(ctx, r.ID, models.RoomWaiting); err != nil {
			return nack(env.Action, err)
		}
		h.games.Delete(r.ID)
	}
	h.broadcastRoomUpdate(ctx, r.ID)
	return ack(env.Action, map[string]interface{}{
		"removedPlayers": res.Removed,
		"gameEnded":      res.Ended,
	})
}

func (h *Hub) handleEndGame(ctx context.Context, c *Client, env Envelope) Ack {
	r, err := h.rooms.FindByConnection(ctx, c.ID)
	if err != nil {
		return nack(env.Action, err)
	}
	s, ok := h.games.Get(r.ID)
	if !ok {
		return nack(env.Action, models.E(models.KindNotFound, "no active game in room %s", r.ID))
	}
	if err := s.EndAfterDisconnect(c.ID); err != nil {
		return nack(env.Action, err)
	}
	if err := h.rooms.SetStatus(ctx, r.ID, models.RoomWaiting); err != nil {
		return nack(env.Action, err)
	}
	h.games.Delete(r.ID)
	h.broadcastRoomUpdate(ctx, r.ID)
	return ack(env.Action, nil)
}

func (h *Hub) handleGetPlayerStats(ctx context.Context, c *Client, env Envelope) Ack {
	var p playerStatsPayload
	if err := decode(env, &p); err != nil {
		return nack(env.Action, err)
	}
	if p.PlayerName == "" {
		return nack(env.Action, models.E(models.KindValidation, "player name is required"))
	}
	if database.Pool == nil {
		return nack(env.Action, models.E(models.KindNotFound, "player stats are not available"))
	}
	stats, err := database.GetPlayerStats(ctx, p.PlayerName)
	if err != nil {
		return nack(env.Action, models.E(models.KindInternal, "load player stats: %v", err))
	}
	return ack(env.Action, map[string]interface{}{"stats": stats})
}
