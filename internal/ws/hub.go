// Package ws is the websocket transport: it accepts connections,
// dispatches client commands to the room and game layers, and fans
// session broadcasts back out to room members.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Mr-incredible442/twins-followers/internal/config"
	"github.com/Mr-incredible442/twins-followers/internal/game"
	"github.com/Mr-incredible442/twins-followers/internal/models"
	"github.com/Mr-incredible442/twins-followers/internal/room"
)

// Hub owns all live connections and routes commands per room.
type Hub struct {
	cfg   *config.Config
	rooms *room.Manager
	games *game.Manager

	clientsMu sync.RWMutex
	clients   map[string]*Client

	// lobbyTimers holds the pending lobby-removal timers, keyed
	// roomID + "|" + playerName. A reconnection cancels the entry.
	timersMu    sync.Mutex
	lobbyTimers map[string]*time.Timer
}

// NewHub wires the transport over the room and session managers.
func NewHub(cfg *config.Config, rooms *room.Manager, games *game.Manager) *Hub {
	return &Hub{
		cfg:         cfg,
		rooms:       rooms,
		games:       games,
		clients:     make(map[string]*Client),
		lobbyTimers: make(map[string]*time.Timer),
	}
}

// ServeHTTP upgrades the request and runs the connection until it
// drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		logrus.WithError(err).Warn("websocket accept failed")
		return
	}
	client := newClient(uuid.NewString(), conn)

	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()
	logrus.WithField("connId", client.ID).Info("client connected")

	h.readLoop(r.Context(), client)

	h.clientsMu.Lock()
	delete(h.clients, client.ID)
	h.clientsMu.Unlock()
	client.close(websocket.StatusNormalClosure, "")
	h.handleDisconnect(client)
}

func (h *Hub) readLoop(ctx context.Context, c *Client) {
	for {
		var env Envelope
		if err := wsjson.Read(ctx, c.conn, &env); err != nil {
			logrus.WithFields(logrus.Fields{
				"connId": c.ID, "code": websocket.CloseStatus(err),
			}).Info("client disconnected")
			return
		}
		c.send(h.dispatch(ctx, c, env))
	}
}

// dispatch runs one command with panic recovery so a handler bug
// cannot take the connection or the room down.
func (h *Hub) dispatch(ctx context.Context, c *Client, env Envelope) (reply Ack) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"connId": c.ID, "action": env.Action, "panic": r,
			}).Error("command handler panicked")
			reply = nack(env.Action, models.E(models.KindInternal, "internal error"))
		}
	}()

	switch env.Action {
	case "create-room":
		return h.handleCreateRoom(ctx, c, env)
	case "join-room":
		return h.handleJoinRoom(ctx, c, env)
	case "leave-room":
		return h.handleLeaveRoom(ctx, c, env)
	case "get-public-lobbies":
		return h.handleGetPublicLobbies(ctx, c, env)
	case "restore-state":
		return h.handleRestoreState(ctx, c, env)
	case "start-game":
		return h.handleStartGame(ctx, c, env)
	case "draw-card":
		return h.handleDrawCard(ctx, c, env)
	case "discard-card":
		return h.handleDiscardCard(ctx, c, env)
	case "pick-up-discard":
		return h.handlePickUpDiscard(ctx, c, env)
	case "declare-win":
		return h.handleDeclareWin(ctx, c, env)
	case "restart-game":
		return h.handleRestartGame(ctx, c, env)
	case "continue-game-after-disconnect":
		return h.handleContinueGame(ctx, c, env)
	case "end-game-after-disconnect":
		return h.handleEndGame(ctx, c, env)
	case "get-player-stats":
		return h.handleGetPlayerStats(ctx, c, env)
	default:
		return nack(env.Action, models.E(models.KindValidation, "unknown action %q", env.Action))
	}
}

func decode(env Envelope, v interface{}) error {
	if len(env.Data) == 0 {
		return models.E(models.KindValidation, "missing payload for %s", env.Action)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return models.E(models.KindValidation, "malformed payload for %s", env.Action)
	}
	return nil
}

// client returns the live client for a connection id.
func (h *Hub) client(connID string) (*Client, bool) {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	c, ok := h.clients[connID]
	return c, ok
}

// sendToConn delivers an event to one connection, dropping it silently
// when the connection is gone.
func (h *Hub) sendToConn(connID, event string, data interface{}) {
	if c, ok := h.client(connID); ok {
		c.sendEvent(event, data)
	}
}

// broadcastToRoom delivers an event to every connected room member.
func (h *Hub) broadcastToRoom(roomID, event string, data interface{}) {
	r, err := h.rooms.Get(context.Background(), roomID)
	if err != nil {
		return
	}
	for _, p := range r.ConnectedPlayers() {
		h.sendToConn(p.ConnectionID, event, data)
	}
}

// sessionCallbacks binds a session's outbound events to this hub.
func (h *Hub) sessionCallbacks(roomID string) game.Callbacks {
	return game.Callbacks{
		Broadcast: func(event string, data interface{}) {
			h.broadcastToRoom(roomID, event, data)
		},
		BroadcastTo: func(connID, event string, data interface{}) {
			h.sendToConn(connID, event, data)
		},
		DecisionMaker: func() (models.RoomPlayer, error) {
			return h.rooms.DecisionMaker(context.Background(), roomID)
		},
	}
}

// handleDisconnect runs when a connection drops: mid-game it enters
// the pause workflow, in the lobby it starts the removal countdown.
func (h *Hub) handleDisconnect(c *Client) {
	ctx := context.Background()
	r, err := h.rooms.FindByConnection(ctx, c.ID)
	if err != nil {
		return
	}
	member, ok := r.MemberByConnection(c.ID)
	if !ok {
		return
	}
	if _, err := h.rooms.MarkDisconnected(ctx, r.ID, member.PlayerName); err != nil {
		logrus.WithError(err).WithField("roomId", r.ID).Warn("could not mark member disconnected")
		return
	}

	if s, active := h.games.Get(r.ID); active && s.HandleDisconnect(member.PlayerName) {
		h.broadcastRoomUpdate(ctx, r.ID)
		return
	}
	h.startLobbyRemoval(r.ID, member.PlayerName)
	h.broadcastRoomUpdate(ctx, r.ID)
}

// startLobbyRemoval arms the removal countdown for a disconnected
// lobby member. Rebinding the name cancels it.
func (h *Hub) startLobbyRemoval(roomID, playerName string) {
	key := roomID + "|" + playerName
	h.timersMu.Lock()
	defer h.timersMu.Unlock()
	if t, ok := h.lobbyTimers[key]; ok {
		t.Stop()
	}
	h.lobbyTimers[key] = time.AfterFunc(h.cfg.LobbyRemoval, func() {
		h.timersMu.Lock()
		delete(h.lobbyTimers, key)
		h.timersMu.Unlock()
		h.removeLobbyMember(roomID, playerName)
	})
}

// cancelLobbyRemoval stops a pending removal after a reconnection.
func (h *Hub) cancelLobbyRemoval(roomID, playerName string) {
	key := roomID + "|" + playerName
	h.timersMu.Lock()
	defer h.timersMu.Unlock()
	if t, ok := h.lobbyTimers[key]; ok {
		t.Stop()
		delete(h.lobbyTimers, key)
	}
}

func (h *Hub) removeLobbyMember(roomID, playerName string) {
	ctx := context.Background()
	res, err := h.rooms.RemoveDisconnected(ctx, roomID, playerName)
	if err != nil {
		return
	}
	logrus.WithFields(logrus.Fields{"roomId": roomID, "player": playerName}).Info("lobby member removed after timeout")
	if res.Deleted {
		h.games.Delete(roomID)
		return
	}
	h.broadcastToRoom(roomID, "room-update", map[string]interface{}{"room": res.Room})
}

func (h *Hub) broadcastRoomUpdate(ctx context.Context, roomID string) {
	r, err := h.rooms.Get(ctx, roomID)
	if err != nil {
		return
	}
	for _, p := range r.ConnectedPlayers() {
		h.sendToConn(p.ConnectionID, "room-update", map[string]interface{}{"room": r})
	}
}
