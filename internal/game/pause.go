package game

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mr-incredible442/twins-followers/internal/models"
)

// HandleDisconnect transitions the session into (or extends) a pause
// episode when a seated player drops mid-game. Returns false when the
// player is not part of this session or the game is already over.
func (s *Session) HandleDisconnect(playerName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Phase == models.PhaseEnded || s.ended {
		return false
	}
	p := s.playerByName(playerName)
	if p == nil {
		return false
	}
	p.ConnectionID = ""

	now := time.Now()
	coalesced := s.IsPaused && now.Sub(s.lastDisconnectAt) <= s.timings.DisconnectCoalesce
	s.lastDisconnectAt = now

	if !contains(s.Disconnected, playerName) {
		s.Disconnected = append(s.Disconnected, playerName)
	}
	if !s.IsPaused {
		s.IsPaused = true
		s.PausedReason = playerName + " disconnected"
		s.stopTurnTimer()
	} else if !coalesced {
		// Outside the coalescing window this counts as a fresh
		// episode with its own reason and decision window.
		s.PausedReason = playerName + " disconnected"
	}
	s.armGraceTimer()

	logrus.WithFields(logrus.Fields{
		"roomId": s.RoomID, "player": playerName, "coalesced": coalesced,
		"disconnected": len(s.Disconnected),
	}).Info("player disconnected mid-game")

	if s.cb.Broadcast != nil {
		s.cb.Broadcast("game-paused", map[string]interface{}{
			"reason":              s.PausedReason,
			"disconnectedPlayers": append([]string{}, s.Disconnected...),
		})
	}
	s.broadcastState()
	return true
}

// HandleReconnect rebinds a returning player and resumes the session
// when nobody is left disconnected. Returns false when the name is not
// seated in this session.
func (s *Session) HandleReconnect(playerName, connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.playerByName(playerName)
	if p == nil {
		return false
	}
	p.ConnectionID = connID
	s.Disconnected = remove(s.Disconnected, playerName)

	if s.cb.Broadcast != nil {
		s.cb.Broadcast("player-reconnected", map[string]interface{}{
			"playerName": playerName,
		})
	}

	if s.IsPaused && len(s.Disconnected) == 0 {
		s.resumeLocked()
	} else if s.cb.BroadcastTo != nil {
		// Still paused; the returning player needs the frozen state.
		s.cb.BroadcastTo(connID, "game-update", s.viewForLocked(playerName))
	}
	return true
}

// resumeLocked lifts the pause and restarts the turn clock. Assumes
// lock is held.
func (s *Session) resumeLocked() {
	s.IsPaused = false
	s.PausedReason = ""
	s.DecisionMakerConnID = ""
	s.stopGraceTimer()
	s.armTurnTimer()
	if s.cb.Broadcast != nil {
		s.cb.Broadcast("game-resumed", map[string]interface{}{})
	}
	s.broadcastState()
	logrus.WithField("roomId", s.RoomID).Info("game resumed")
}

// armGraceTimer starts (or restarts) the decision grace window.
// Assumes lock is held.
func (s *Session) armGraceTimer() {
	s.stopGraceTimer()
	s.pauseGen++
	gen := s.pauseGen
	s.graceTimer = time.AfterFunc(s.timings.DecisionGrace, func() {
		s.handleGraceExpired(gen)
	})
}

// stopGraceTimer cancels the grace window and invalidates in-flight
// callbacks. Assumes lock is held.
func (s *Session) stopGraceTimer() {
	s.pauseGen++
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
}

// handleGraceExpired runs in the timer goroutine when the grace window
// elapses without full reconnection. It prompts only the decision
// maker.
func (s *Session) handleGraceExpired(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.pauseGen || !s.IsPaused || s.ended || len(s.Disconnected) == 0 {
		return
	}
	if s.cb.DecisionMaker == nil || s.cb.BroadcastTo == nil {
		return
	}
	dm, err := s.cb.DecisionMaker()
	if err != nil {
		logrus.WithError(err).WithField("roomId", s.RoomID).Warn("no decision maker available")
		return
	}
	s.DecisionMakerConnID = dm.ConnectionID
	s.cb.BroadcastTo(dm.ConnectionID, "decision-required", map[string]interface{}{
		"disconnectedPlayers": append([]string{}, s.Disconnected...),
	})
	logrus.WithFields(logrus.Fields{
		"roomId": s.RoomID, "decisionMaker": dm.PlayerName,
	}).Info("decision prompt sent")
}

// ContinueResult reports what a continue decision did to the session.
type ContinueResult struct {
	// Removed lists the players dropped from the session, in their
	// original disconnect order.
	Removed []string
	// Ended is set when too few players remained and the session was
	// terminated instead of resumed.
	Ended bool
}

// ContinueAfterDisconnect permanently removes every disconnected
// player and resumes play, or ends the game when fewer than MinPlayers
// remain. Only the prompted decision maker may invoke it.
func (s *Session) ContinueAfterDisconnect(connID string) (*ContinueResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.validateDecision(connID); err != nil {
		return nil, err
	}

	removed := append([]string{}, s.Disconnected...)
	s.removeDisconnectedLocked()
	s.Disconnected = nil

	if len(s.Players) < s.MinPlayers {
		s.endLocked("Not enough players to continue")
		return &ContinueResult{Removed: removed, Ended: true}, nil
	}
	s.resumeLocked()
	return &ContinueResult{Removed: removed, Ended: false}, nil
}

// EndAfterDisconnect terminates the session on the decision maker's
// say-so.
func (s *Session) EndAfterDisconnect(connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.validateDecision(connID); err != nil {
		return err
	}
	s.endLocked("Game ended due to player disconnection")
	return nil
}

// validateDecision assumes lock is held.
func (s *Session) validateDecision(connID string) error {
	if s.Phase == models.PhaseEnded || s.ended {
		return models.E(models.KindIllegalTransition, "game has ended")
	}
	if !s.IsPaused || len(s.Disconnected) == 0 {
		return models.E(models.KindIllegalTransition, "no disconnect decision is pending")
	}
	if s.DecisionMakerConnID == "" || connID != s.DecisionMakerConnID {
		return models.E(models.KindIllegalTransition, "only the decision maker may decide")
	}
	return nil
}

// removeDisconnectedLocked drops every disconnected player from the
// rotation, pushing their hands into the discard pile and keeping the
// turn on the next remaining player when the holder is removed.
// Assumes lock is held.
func (s *Session) removeDisconnectedLocked() {
	kept := make([]*models.GamePlayer, 0, len(s.Players))
	newIndex := s.CurrentPlayerIndex
	currentRemoved := false
	for i, p := range s.Players {
		if contains(s.Disconnected, p.PlayerName) && p.ConnectionID == "" {
			s.DiscardPile = append(s.DiscardPile, p.Hand...)
			p.Hand = nil
			if i < s.CurrentPlayerIndex {
				newIndex--
			} else if i == s.CurrentPlayerIndex {
				currentRemoved = true
			}
			continue
		}
		kept = append(kept, p)
	}
	s.Players = kept
	if len(s.Players) == 0 {
		s.CurrentPlayerIndex = 0
		return
	}
	// Removing the turn holder hands the turn to the next survivor,
	// which is the player now occupying the same index.
	if currentRemoved {
		s.Phase = models.PhaseDraw
		if newIndex >= len(s.Players) {
			newIndex = 0
		}
	} else if newIndex >= len(s.Players) {
		newIndex = 0
	}
	s.CurrentPlayerIndex = newIndex
}

func (s *Session) playerByName(name string) *models.GamePlayer {
	for _, p := range s.Players {
		if p.PlayerName == name {
			return p
		}
	}
	return nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func remove(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
