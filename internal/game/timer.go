package game

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mr-incredible442/twins-followers/internal/models"
)

// armTurnTimer schedules the turn deadline for the current state. Any
// prior deadline is stopped first, so at most one is ever live.
// Assumes lock is held.
func (s *Session) armTurnTimer() {
	s.stopTurnTimer()
	if s.IsPaused || s.Phase == models.PhaseEnded || s.ended {
		return
	}
	s.turnID++
	id := s.turnID
	s.TurnStartTime = time.Now()
	s.turnTimer = time.AfterFunc(s.TurnTimeLimit, func() {
		s.handleTurnTimeout(id)
	})
}

// stopTurnTimer cancels the pending deadline and invalidates any
// callback already in flight. Assumes lock is held.
func (s *Session) stopTurnTimer() {
	s.turnID++
	if s.turnTimer != nil {
		s.turnTimer.Stop()
		s.turnTimer = nil
	}
}

// handleTurnTimeout runs in the timer goroutine. It re-acquires the
// lock and validates the captured id: an action that landed between
// fire and lock acquisition has already advanced the state and bumped
// the id, making this callback a no-op.
func (s *Session) handleTurnTimeout(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.turnID || s.IsPaused || s.Phase == models.PhaseEnded || s.ended {
		return
	}
	s.autoSkip()
}

// autoSkip performs the default action for a stalled player: a draw in
// the draw phase, a uniformly random discard in the discard phase.
// Assumes lock is held.
func (s *Session) autoSkip() {
	p := s.currentPlayer()
	logrus.WithFields(logrus.Fields{
		"roomId": s.RoomID, "player": p.PlayerName, "phase": s.Phase,
	}).Info("turn timed out, auto-skipping")

	s.FightData = nil
	s.stopTurnTimer()
	switch s.Phase {
	case models.PhaseDraw:
		if err := s.doDraw(p); err != nil {
			// Both piles empty. Unreachable while card conservation
			// holds, but a stalled room must not wedge on it.
			s.endLocked("game ended: no cards left to draw")
			return
		}
		s.logAction(p.PlayerName, "auto-draw", nil)
	case models.PhaseDiscard:
		card := p.Hand[s.rng.Intn(len(p.Hand))]
		s.doDiscard(p, card)
		s.logAction(p.PlayerName, "auto-discard", map[string]interface{}{"card": card})
	}
	if s.Phase != models.PhaseEnded {
		s.Message = p.PlayerName + "'s turn timed out - auto-skipped"
	}
	// Re-arm before broadcasting so the views carry the new deadline.
	s.armTurnTimer()
	s.broadcastState()
}
