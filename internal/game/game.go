// Package game owns the per-room session state machine. All mutation
// runs under the session mutex; timer and grace callbacks re-acquire
// it and re-validate before acting.
package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mr-incredible442/twins-followers/internal/cache"
	"github.com/Mr-incredible442/twins-followers/internal/database"
	"github.com/Mr-incredible442/twins-followers/internal/engine"
	"github.com/Mr-incredible442/twins-followers/internal/models"
)

// handSize is the number of cards dealt to each player.
const handSize = 3

// Callbacks connect a session to the transport and room layers. All of
// them may be invoked while the session lock is held, so they must not
// call back into the session.
type Callbacks struct {
	// Broadcast sends an event to every connected player in the room.
	Broadcast func(event string, data interface{})
	// BroadcastTo sends an event to a single connection.
	BroadcastTo func(connID, event string, data interface{})
	// DecisionMaker resolves the earliest-joined connected room member.
	DecisionMaker func() (models.RoomPlayer, error)
}

// Timings are the session's scheduling knobs.
type Timings struct {
	TurnTimeLimit      time.Duration
	DisconnectCoalesce time.Duration
	DecisionGrace      time.Duration
}

// Session is one room's game in progress.
type Session struct {
	RoomID   string
	RoomName string

	Players            []*models.GamePlayer
	Deck               []models.Card
	DiscardPile        []models.Card
	LastDiscard        *models.Card
	CurrentPlayerIndex int
	Phase              models.Phase
	Winner             *models.Winner
	FightData          *models.FightData
	Message            string

	IsPaused     bool
	PausedReason string
	// Disconnected holds player names in disconnect order.
	Disconnected        []string
	DecisionMakerConnID string

	TurnStartTime time.Time
	TurnTimeLimit time.Duration
	StartedAt     time.Time
	MinPlayers    int

	timings Timings
	cb      Callbacks
	rng     *rand.Rand

	mu sync.Mutex

	turnTimer *time.Timer
	// turnID invalidates stale timer callbacks: it is bumped on every
	// arm and stop, and a firing callback carrying an older id returns
	// without acting.
	turnID int

	graceTimer *time.Timer
	// pauseGen plays the same role for the grace timer.
	pauseGen         int
	lastDisconnectAt time.Time

	actionIndex int
	ended       bool
}

// NewSession deals a fresh game for the given members in join order.
// The members slice must already be filtered to connected players.
func NewSession(roomID, roomName string, members []models.RoomPlayer, minPlayers int, timings Timings, cb Callbacks) *Session {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	s := &Session{
		RoomID:        roomID,
		RoomName:      roomName,
		Phase:         models.PhaseDraw,
		TurnTimeLimit: timings.TurnTimeLimit,
		StartedAt:     time.Now(),
		MinPlayers:    minPlayers,
		timings:       timings,
		cb:            cb,
		rng:           rng,
	}
	s.Deck = engine.Shuffle(rng, engine.NewDeck())
	for _, m := range members {
		s.Players = append(s.Players, &models.GamePlayer{
			ConnectionID: m.ConnectionID,
			PlayerName:   m.PlayerName,
		})
	}
	for i := 0; i < handSize; i++ {
		for _, p := range s.Players {
			p.Hand = append(p.Hand, s.drawTop())
		}
	}
	s.CurrentPlayerIndex = rng.Intn(len(s.Players))
	// Views sent before Start must already carry the turn clock.
	s.TurnStartTime = time.Now()
	return s
}

// Start arms the first turn deadline. Called once after game-started
// has been announced.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armTurnTimer()
	s.logAction(s.currentPlayer().PlayerName, "game-started", map[string]interface{}{
		"players": len(s.Players),
	})
}

func (s *Session) currentPlayer() *models.GamePlayer {
	return s.Players[s.CurrentPlayerIndex]
}

// drawTop removes and returns the top card of the deck. Callers must
// have verified the deck is non-empty or refilled it first.
func (s *Session) drawTop() models.Card {
	c := s.Deck[len(s.Deck)-1]
	s.Deck = s.Deck[:len(s.Deck)-1]
	return c
}

// refillDeck reshuffles the discard pile into the deck, keeping the
// last discard where it is so it stays claimable.
func (s *Session) refillDeck() error {
	if len(s.Deck) > 0 {
		return nil
	}
	var keep []models.Card
	var recycle []models.Card
	for _, c := range s.DiscardPile {
		if s.LastDiscard != nil && c == *s.LastDiscard && len(keep) == 0 {
			keep = append(keep, c)
			continue
		}
		recycle = append(recycle, c)
	}
	if len(recycle) == 0 {
		return models.E(models.KindResourceExhausted, "deck and discard pile are both empty")
	}
	s.Deck = engine.Shuffle(s.rng, recycle)
	s.DiscardPile = keep
	return nil
}

// validateActor checks the common preconditions of a player action.
// Assumes lock is held.
func (s *Session) validateActor(connID string, phase models.Phase) (*models.GamePlayer, error) {
	if s.Phase == models.PhaseEnded {
		return nil, models.E(models.KindIllegalTransition, "game has ended")
	}
	if s.IsPaused {
		return nil, models.E(models.KindIllegalTransition, "game is paused")
	}
	cur := s.currentPlayer()
	if cur.ConnectionID != connID {
		return nil, models.E(models.KindIllegalTransition, "not your turn")
	}
	if phase != "" && s.Phase != phase {
		return nil, models.E(models.KindIllegalTransition, "wrong phase for this action")
	}
	return cur, nil
}

// DrawCard draws the top card for the acting player.
func (s *Session) DrawCard(connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.validateActor(connID, models.PhaseDraw)
	if err != nil {
		return err
	}
	s.FightData = nil
	s.stopTurnTimer()
	if err := s.doDraw(p); err != nil {
		s.armTurnTimer()
		return err
	}
	s.logAction(p.PlayerName, "draw-card", nil)
	s.armTurnTimer()
	s.broadcastState()
	return nil
}

// doDraw is the shared draw mutation. Assumes lock is held.
func (s *Session) doDraw(p *models.GamePlayer) error {
	if err := s.refillDeck(); err != nil {
		return err
	}
	p.Hand = append(p.Hand, s.drawTop())
	if d := engine.FindDecomposition(p.Hand); d != nil {
		s.setWinner(p, *d)
		return nil
	}
	s.Phase = models.PhaseDiscard
	return nil
}

// DiscardCard discards the named card for the acting player, detecting
// immediate wins and fights.
func (s *Session) DiscardCard(connID string, card models.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.validateActor(connID, models.PhaseDiscard)
	if err != nil {
		return err
	}
	if !handContains(p.Hand, card) {
		return models.E(models.KindIllegalTransition, "card is not in your hand")
	}
	s.FightData = nil
	s.stopTurnTimer()
	s.doDiscard(p, card)
	// Arm before broadcasting so the views carry the new turn clock.
	s.armTurnTimer()
	s.broadcastState()
	return nil
}

// doDiscard is the shared discard mutation. The card must already be
// verified present in the hand by the caller path or chosen from it.
// Assumes lock is held.
func (s *Session) doDiscard(p *models.GamePlayer, card models.Card) {
	// A hand that already wins is declared instead of discarded.
	if d := engine.FindDecomposition(p.Hand); d != nil {
		s.setWinner(p, *d)
		return
	}
	p.Hand = removeFirst(p.Hand, card)

	others := make([]*models.GamePlayer, 0, len(s.Players)-1)
	for _, o := range s.Players {
		if o != p {
			others = append(others, o)
		}
	}
	winners := engine.WinnersWith(others, card)

	switch {
	case len(winners) == 0:
		s.DiscardPile = append(s.DiscardPile, card)
		c := card
		s.LastDiscard = &c
		s.advanceTurn()
		s.logAction(p.PlayerName, "discard-card", map[string]interface{}{
			"card": card,
		})

	case len(winners) == 1:
		w := winners[0]
		w.Hand = append(w.Hand, card)
		d := engine.FindDecomposition(w.Hand)
		s.LastDiscard = nil
		s.setWinner(w, *d)
		s.logAction(p.PlayerName, "discard-card-claimed", map[string]interface{}{
			"card":   card,
			"winner": w.PlayerName,
		})

	default:
		s.resolveFight(p, winners, card)
	}
}

// resolveFight captures pre-fight hands, resolves the drop-and-draw
// for every winner, and voids the trigger card. Assumes lock is held.
func (s *Session) resolveFight(actor *models.GamePlayer, winners []*models.GamePlayer, trigger models.Card) {
	fd := &models.FightData{
		FightCard:     trigger,
		Participants:  make([]string, 0, len(winners)),
		OriginalHands: make(map[string][]models.Card, len(winners)),
		CreatedAt:     time.Now(),
	}
	for _, w := range winners {
		fd.Participants = append(fd.Participants, w.PlayerName)
		hand := make([]models.Card, len(w.Hand))
		copy(hand, w.Hand)
		fd.OriginalHands[w.PlayerName] = hand
	}

	out := engine.ResolveFight(winners, trigger, s.Deck, s.DiscardPile, s.rng)
	s.Deck = out.Deck
	s.DiscardPile = out.DiscardPile
	s.LastDiscard = nil
	fd.DroppedCards = out.Dropped

	s.advanceTurn()
	s.FightData = fd
	s.Message = "Fight! " + joinNames(fd.Participants) + " each lost a card"
	s.logAction(actor.PlayerName, "fight", map[string]interface{}{
		"card":         trigger,
		"participants": fd.Participants,
	})
}

// PickUpDiscard claims the last discard when it completes the acting
// player's hand.
func (s *Session) PickUpDiscard(connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.validateActor(connID, models.PhaseDraw)
	if err != nil {
		return err
	}
	if s.LastDiscard == nil {
		return models.E(models.KindIllegalTransition, "no discard to pick up")
	}
	d := engine.DecompositionWith(p.Hand, *s.LastDiscard)
	if d == nil {
		return models.E(models.KindIllegalTransition, "picking up the discard would not win")
	}
	s.FightData = nil
	s.stopTurnTimer()

	card := *s.LastDiscard
	p.Hand = append(p.Hand, card)
	s.DiscardPile = removeFirst(s.DiscardPile, card)
	s.LastDiscard = nil
	s.setWinner(p, *d)
	s.logAction(p.PlayerName, "pick-up-discard", map[string]interface{}{"card": card})
	s.broadcastState()
	return nil
}

// DeclareWin succeeds when the acting player's hand already wins. It
// is accepted in either phase of the player's own turn.
func (s *Session) DeclareWin(connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.validateActor(connID, "")
	if err != nil {
		return err
	}
	d := engine.FindDecomposition(p.Hand)
	if d == nil {
		return models.E(models.KindIllegalTransition, "hand is not a winning hand")
	}
	s.FightData = nil
	s.stopTurnTimer()
	s.setWinner(p, *d)
	s.logAction(p.PlayerName, "declare-win", nil)
	s.broadcastState()
	return nil
}

// setWinner ends the game in favor of p. Assumes lock is held.
func (s *Session) setWinner(p *models.GamePlayer, d models.Decomposition) {
	s.Winner = &models.Winner{
		ConnectionID: p.ConnectionID,
		PlayerName:   p.PlayerName,
		WinningHand:  d,
	}
	s.Phase = models.PhaseEnded
	s.Message = p.PlayerName + " wins!"
	s.stopTurnTimer()
	s.stopGraceTimer()
	s.persistHistory()
	logrus.WithFields(logrus.Fields{"roomId": s.RoomID, "winner": p.PlayerName}).Info("game won")
}

// advanceTurn rotates to the next player. Assumes lock is held.
func (s *Session) advanceTurn() {
	s.CurrentPlayerIndex = (s.CurrentPlayerIndex + 1) % len(s.Players)
	s.Phase = models.PhaseDraw
	s.Message = ""
}

// End terminates the session without a winner and announces it.
func (s *Session) End(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLocked(message)
}

// endLocked assumes lock is held.
func (s *Session) endLocked(message string) {
	if s.ended {
		return
	}
	s.ended = true
	s.Phase = models.PhaseEnded
	s.Message = message
	s.stopTurnTimer()
	s.stopGraceTimer()
	if s.cb.Broadcast != nil {
		s.cb.Broadcast("game-ended", map[string]interface{}{"message": message})
	}
	logrus.WithFields(logrus.Fields{"roomId": s.RoomID, "reason": message}).Info("game ended")
}

// Stop cancels all outstanding timers without announcing anything,
// for teardown on leave or restart.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = true
	s.stopTurnTimer()
	s.stopGraceTimer()
}

// persistHistory records the completed game. Assumes lock is held;
// the write itself is asynchronous and optional.
func (s *Session) persistHistory() {
	if s.Winner == nil {
		return
	}
	h := models.GameHistory{
		RoomID:    s.RoomID,
		RoomName:  s.RoomName,
		Winner:    *s.Winner,
		StartedAt: s.StartedAt,
		EndedAt:   time.Now(),
	}
	h.Duration = h.EndedAt.Sub(h.StartedAt)
	for _, p := range s.Players {
		h.Players = append(h.Players, models.HistoryPlayer{
			ConnectionID: p.ConnectionID,
			PlayerName:   p.PlayerName,
		})
	}
	database.StoreGameHistory(h)
	if cache.Rdb != nil {
		roomID := s.RoomID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = cache.PurgeGameActions(ctx, roomID)
		}()
	}
}

// logAction publishes one historian record. Assumes lock is held; the
// Redis write is asynchronous and skipped when no client is configured.
func (s *Session) logAction(actor, actionType string, payload map[string]interface{}) {
	s.actionIndex++
	if payload == nil {
		payload = map[string]interface{}{}
	}
	rec := cache.GameActionRecord{
		RoomID:      s.RoomID,
		ActionIndex: s.actionIndex,
		ActorName:   actor,
		ActionType:  actionType,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	}
	go func(rec cache.GameActionRecord) {
		if cache.Rdb == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishGameAction(ctx, rec); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"roomId": rec.RoomID, "actionIndex": rec.ActionIndex,
			}).Error("failed to publish game action")
		}
	}(rec)
}

// broadcastState sends each connected player their own sanitized view.
// Assumes lock is held.
func (s *Session) broadcastState() {
	if s.cb.BroadcastTo == nil {
		return
	}
	for _, p := range s.Players {
		if p.ConnectionID == "" {
			continue
		}
		s.cb.BroadcastTo(p.ConnectionID, "game-update", s.viewForLocked(p.PlayerName))
	}
}

func handContains(cards []models.Card, c models.Card) bool {
	for _, x := range cards {
		if x == c {
			return true
		}
	}
	return false
}

func removeFirst(cards []models.Card, c models.Card) []models.Card {
	for i, x := range cards {
		if x == c {
			out := make([]models.Card, 0, len(cards)-1)
			out = append(out, cards[:i]...)
			return append(out, cards[i+1:]...)
		}
	}
	return cards
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	out := names[0]
	for _, n := range names[1 : len(names)-1] {
		out += ", " + n
	}
	return out + " and " + names[len(names)-1]
}
