package game

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mr-incredible442/twins-followers/internal/models"
)

// mockBroadcaster captures session events for assertions.
type mockBroadcaster struct {
	mu           sync.Mutex
	events       []capturedEvent
	playerEvents map[string][]capturedEvent
	// decisionMaker is returned by the DecisionMaker callback.
	decisionMaker models.RoomPlayer
}

type capturedEvent struct {
	event string
	data  interface{}
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{playerEvents: make(map[string][]capturedEvent)}
}

func (mb *mockBroadcaster) callbacks() Callbacks {
	return Callbacks{
		Broadcast: func(event string, data interface{}) {
			mb.mu.Lock()
			defer mb.mu.Unlock()
			mb.events = append(mb.events, capturedEvent{event, data})
		},
		BroadcastTo: func(connID, event string, data interface{}) {
			mb.mu.Lock()
			defer mb.mu.Unlock()
			mb.playerEvents[connID] = append(mb.playerEvents[connID], capturedEvent{event, data})
		},
		DecisionMaker: func() (models.RoomPlayer, error) {
			mb.mu.Lock()
			defer mb.mu.Unlock()
			return mb.decisionMaker, nil
		},
	}
}

func (mb *mockBroadcaster) findEvent(event string) *capturedEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := len(mb.events) - 1; i >= 0; i-- {
		if mb.events[i].event == event {
			return &mb.events[i]
		}
	}
	return nil
}

func (mb *mockBroadcaster) findPlayerEvent(connID, event string) *capturedEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i := len(mb.playerEvents[connID]) - 1; i >= 0; i-- {
		if mb.playerEvents[connID][i].event == event {
			return &mb.playerEvents[connID][i]
		}
	}
	return nil
}

func card(v, s string) models.Card { return models.Card{Value: v, Suit: s} }

// newTestSession deals a session for the named players with a turn
// limit long enough that timers never fire unless a test shortens it.
func newTestSession(t *testing.T, names ...string) (*Session, *mockBroadcaster) {
	t.Helper()
	mb := newMockBroadcaster()
	var members []models.RoomPlayer
	for i, n := range names {
		members = append(members, models.RoomPlayer{
			ConnectionID: fmt.Sprintf("c%d", i+1),
			PlayerName:   n,
			JoinedAt:     time.Now(),
		})
	}
	mb.decisionMaker = members[0]
	s := NewSession("ROOM01", "Test Room", members, 2, Timings{
		TurnTimeLimit:      time.Hour,
		DisconnectCoalesce: 10 * time.Second,
		DecisionGrace:      time.Hour,
	}, mb.callbacks())
	t.Cleanup(s.Stop)
	return s, mb
}

func TestTurnClockInBroadcastViews(t *testing.T) {
	s, mb := newTestSession(t, "ann", "bea")

	// The pre-start views announced with game-started must already
	// carry a turn clock.
	assert.False(t, s.ViewFor("ann").TurnStartTime.IsZero())

	s.Start()
	s.CurrentPlayerIndex = 0
	s.Phase = models.PhaseDiscard
	s.Players[0].Hand = []models.Card{card("5", "hearts"), card("9", "spades"), card("J", "diamonds"), card("2", "clubs")}
	s.Players[1].Hand = []models.Card{card("A", "hearts"), card("4", "spades"), card("J", "clubs")}

	before := time.Now()
	require.NoError(t, s.DiscardCard("c1", card("2", "clubs")))

	// The turn passed to bea; the views sent for that update must show
	// the clock of the new turn, not the previous one.
	ev := mb.findPlayerEvent("c2", "game-update")
	require.NotNil(t, ev)
	view, ok := ev.data.(GameView)
	require.True(t, ok)
	assert.Equal(t, "bea", view.CurrentPlayerName)
	assert.False(t, view.TurnStartTime.Before(before))
	assert.Equal(t, s.TurnStartTime, view.TurnStartTime)
}

func TestNewSessionDeals(t *testing.T) {
	s, _ := newTestSession(t, "ann", "bea", "cam")
	assert.Equal(t, models.PhaseDraw, s.Phase)
	assert.Len(t, s.Deck, 52-3*handSize)
	for _, p := range s.Players {
		assert.Len(t, p.Hand, handSize)
	}
	assert.Less(t, s.CurrentPlayerIndex, 3)
}

func TestDrawCard(t *testing.T) {
	s, _ := newTestSession(t, "ann", "bea")
	s.CurrentPlayerIndex = 0
	s.Deck = []models.Card{card("2", "hearts"), card("K", "clubs")}
	s.Players[0].Hand = []models.Card{card("5", "hearts"), card("9", "spades"), card("J", "diamonds")}

	err := s.DrawCard("c2")
	assert.Equal(t, models.KindIllegalTransition, models.KindOf(err))

	require.NoError(t, s.DrawCard("c1"))
	assert.Equal(t, models.PhaseDiscard, s.Phase)
	assert.Len(t, s.Players[0].Hand, 4)
	assert.Contains(t, s.Players[0].Hand, card("K", "clubs"))

	// Drawing again in the discard phase is rejected.
	err = s.DrawCard("c1")
	assert.Equal(t, models.KindIllegalTransition, models.KindOf(err))
}

func TestDrawCardWins(t *testing.T) {
	s, _ := newTestSession(t, "ann", "bea")
	s.CurrentPlayerIndex = 0
	s.Players[0].Hand = []models.Card{card("Q", "spades"), card("Q", "hearts"), card("9", "diamonds")}
	s.Deck = []models.Card{card("10", "clubs")}

	require.NoError(t, s.DrawCard("c1"))
	assert.Equal(t, models.PhaseEnded, s.Phase)
	require.NotNil(t, s.Winner)
	assert.Equal(t, "ann", s.Winner.PlayerName)
	assert.Equal(t, "ann wins!", s.Message)
}

func TestDiscardAdvancesTurn(t *testing.T) {
	s, _ := newTestSession(t, "ann", "bea", "cam")
	s.CurrentPlayerIndex = 0
	s.Phase = models.PhaseDiscard
	s.Players[0].Hand = []models.Card{card("5", "hearts"), card("9", "spades"), card("J", "diamonds"), card("2", "clubs")}
	s.Players[1].Hand = []models.Card{card("A", "hearts"), card("7", "spades"), card("K", "diamonds")}
	s.Players[2].Hand = []models.Card{card("3", "hearts"), card("8", "spades"), card("Q", "diamonds")}

	require.NoError(t, s.DiscardCard("c1", card("9", "spades")))
	assert.Equal(t, 1, s.CurrentPlayerIndex)
	assert.Equal(t, models.PhaseDraw, s.Phase)
	assert.Empty(t, s.Message)
	require.NotNil(t, s.LastDiscard)
	assert.Equal(t, card("9", "spades"), *s.LastDiscard)
	assert.Contains(t, s.DiscardPile, card("9", "spades"))
	assert.Len(t, s.Players[0].Hand, 3)
}

func TestDiscardCardNotInHand(t *testing.T) {
	s, _ := newTestSession(t, "ann", "bea")
	s.CurrentPlayerIndex = 0
	s.Phase = models.PhaseDiscard
	s.Players[0].Hand = []models.Card{card("5", "hearts"), card("9", "spades"), card("J", "diamonds"), card("2", "clubs")}

	err := s.DiscardCard("c1", card("A", "clubs"))
	assert.Equal(t, models.KindIllegalTransition, models.KindOf(err))
	assert.Len(t, s.Players[0].Hand, 4)
}

func TestDiscardSingleWinnerClaims(t *testing.T) {
	s, _ := newTestSession(t, "ann", "bea", "cam")
	s.CurrentPlayerIndex = 0
	s.Phase = models.PhaseDiscard
	s.Players[0].Hand = []models.Card{card("10", "clubs"), card("2", "hearts"), card("7", "spades"), card("K", "diamonds")}
	s.Players[1].Hand = []models.Card{card("Q", "spades"), card("Q", "hearts"), card("9", "diamonds")}
	s.Players[2].Hand = []models.Card{card("A", "hearts"), card("3", "spades"), card("K", "hearts")}

	require.NoError(t, s.DiscardCard("c1", card("10", "clubs")))
	assert.Equal(t, models.PhaseEnded, s.Phase)
	require.NotNil(t, s.Winner)
	assert.Equal(t, "bea", s.Winner.PlayerName)
	assert.Contains(t, s.Players[1].Hand, card("10", "clubs"))
	assert.Nil(t, s.LastDiscard)
	// The claim does not advance the turn.
	assert.Equal(t, 0, s.CurrentPlayerIndex)
}

func TestDiscardFight(t *testing.T) {
	s, _ := newTestSession(t, "ann", "bea", "cam")
	s.CurrentPlayerIndex = 0
	s.Phase = models.PhaseDiscard
	s.Players[0].Hand = []models.Card{card("7", "clubs"), card("2", "hearts"), card("K", "diamonds"), card("9", "hearts")}
	s.Players[1].Hand = []models.Card{card("6", "hearts"), card("6", "diamonds"), card("6", "spades")}
	s.Players[2].Hand = []models.Card{card("8", "spades"), card("8", "diamonds"), card("8", "clubs")}
	s.Deck = []models.Card{card("A", "clubs"), card("3", "clubs"), card("4", "clubs")}

	require.NoError(t, s.DiscardCard("c1", card("7", "clubs")))

	require.NotNil(t, s.FightData)
	assert.Equal(t, card("7", "clubs"), s.FightData.FightCard)
	assert.ElementsMatch(t, []string{"bea", "cam"}, s.FightData.Participants)
	assert.Equal(t, card("6", "spades"), s.FightData.DroppedCards["bea"])
	assert.Equal(t, card("8", "clubs"), s.FightData.DroppedCards["cam"])
	assert.Len(t, s.FightData.OriginalHands["bea"], 3)

	// Trigger voided, hands refilled, turn advanced.
	assert.Nil(t, s.LastDiscard)
	assert.NotContains(t, s.DiscardPile, card("7", "clubs"))
	assert.Len(t, s.Players[1].Hand, 3)
	assert.Len(t, s.Players[2].Hand, 3)
	assert.NotContains(t, s.Players[1].Hand, card("6", "spades"))
	assert.Equal(t, 1, s.CurrentPlayerIndex)
	assert.Equal(t, models.PhaseDraw, s.Phase)
	assert.Contains(t, s.Message, "Fight!")

	// The next action consumes the one-shot fight record.
	require.NoError(t, s.DrawCard("c2"))
	assert.Nil(t, s.FightData)
}

func TestPickUpDiscard(t *testing.T) {
	s, _ := newTestSession(t, "ann", "bea")
	s.CurrentPlayerIndex = 0
	s.Phase = models.PhaseDraw
	s.Players[0].Hand = []models.Card{card("Q", "spades"), card("Q", "hearts"), card("9", "diamonds")}
	c := card("10", "clubs")
	s.DiscardPile = []models.Card{card("2", "hearts"), c}
	s.LastDiscard = &c

	require.NoError(t, s.PickUpDiscard("c1"))
	assert.Equal(t, models.PhaseEnded, s.Phase)
	require.NotNil(t, s.Winner)
	assert.Equal(t, "ann", s.Winner.PlayerName)
	assert.Nil(t, s.LastDiscard)
	assert.NotContains(t, s.DiscardPile, c)
}

func TestPickUpDiscardRejectedWithoutWin(t *testing.T) {
	s, _ := newTestSession(t, "ann", "bea")
	s.CurrentPlayerIndex = 0
	s.Phase = models.PhaseDraw
	s.Players[0].Hand = []models.Card{card("2", "spades"), card("7", "hearts"), card("9", "diamonds")}
	c := card("K", "clubs")
	s.DiscardPile = []models.Card{c}
	s.LastDiscard = &c

	err := s.PickUpDiscard("c1")
	assert.Equal(t, models.KindIllegalTransition, models.KindOf(err))
	assert.Len(t, s.Players[0].Hand, 3)
	assert.NotNil(t, s.LastDiscard)
}

func TestDeclareWinAnyPhase(t *testing.T) {
	s, _ := newTestSession(t, "ann", "bea")
	s.CurrentPlayerIndex = 0
	s.Phase = models.PhaseDiscard
	s.Players[0].Hand = []models.Card{card("5", "hearts"), card("5", "clubs"), card("3", "spades"), card("4", "spades")}

	require.NoError(t, s.DeclareWin("c1"))
	require.NotNil(t, s.Winner)
	assert.Equal(t, "ann", s.Winner.PlayerName)
}

func TestDeclareWinRejectedWithoutWin(t *testing.T) {
	s, _ := newTestSession(t, "ann", "bea")
	s.CurrentPlayerIndex = 0
	s.Players[0].Hand = []models.Card{card("5", "hearts"), card("9", "spades"), card("J", "diamonds")}

	err := s.DeclareWin("c1")
	assert.Equal(t, models.KindIllegalTransition, models.KindOf(err))
	err = s.DeclareWin("c2")
	assert.Equal(t, models.KindIllegalTransition, models.KindOf(err))
}

func TestDrawRefillKeepsLastDiscard(t *testing.T) {
	s, _ := newTestSession(t, "ann", "bea")
	s.CurrentPlayerIndex = 0
	s.Phase = models.PhaseDraw
	s.Players[0].Hand = []models.Card{card("2", "spades"), card("7", "hearts"), card("9", "diamonds")}
	s.Deck = nil
	last := card("K", "clubs")
	s.DiscardPile = []models.Card{card("3", "hearts"), card("8", "spades"), last}
	s.LastDiscard = &last

	require.NoError(t, s.DrawCard("c1"))
	// The two recycled cards: one drawn, one back in the deck. The
	// last discard never leaves the pile.
	assert.Len(t, s.Players[0].Hand, 4)
	assert.Len(t, s.Deck, 1)
	assert.Equal(t, []models.Card{last}, s.DiscardPile)
}

func TestDrawExhaustedBothPiles(t *testing.T) {
	s, _ := newTestSession(t, "ann", "bea")
	s.CurrentPlayerIndex = 0
	s.Phase = models.PhaseDraw
	s.Deck = nil
	s.DiscardPile = nil
	s.LastDiscard = nil

	err := s.DrawCard("c1")
	assert.Equal(t, models.KindResourceExhausted, models.KindOf(err))
}

func TestAutoSkipDrawThenDiscard(t *testing.T) {
	s, _ := newTestSession(t, "ann", "bea")
	s.CurrentPlayerIndex = 0
	s.Phase = models.PhaseDraw
	s.Players[0].Hand = []models.Card{card("2", "spades"), card("7", "hearts"), card("9", "diamonds")}
	s.Players[1].Hand = []models.Card{card("A", "hearts"), card("4", "clubs"), card("J", "spades")}
	s.Deck = []models.Card{card("K", "clubs")}

	s.mu.Lock()
	s.autoSkip()
	s.mu.Unlock()
	assert.Equal(t, models.PhaseDiscard, s.Phase)
	assert.Len(t, s.Players[0].Hand, 4)
	assert.Contains(t, s.Message, "auto-skipped")

	s.mu.Lock()
	s.autoSkip()
	s.mu.Unlock()
	assert.Equal(t, models.PhaseDraw, s.Phase)
	assert.Equal(t, 1, s.CurrentPlayerIndex)
	assert.Len(t, s.Players[0].Hand, 3)
}

func TestStaleTimerCallbackIsNoOp(t *testing.T) {
	s, _ := newTestSession(t, "ann", "bea")
	s.Start()
	s.mu.Lock()
	s.CurrentPlayerIndex = 0
	s.Phase = models.PhaseDraw
	s.Players[0].Hand = []models.Card{card("2", "spades"), card("7", "hearts"), card("9", "diamonds")}
	s.Deck = []models.Card{card("K", "clubs"), card("A", "clubs")}
	stale := s.turnID
	s.mu.Unlock()

	require.NoError(t, s.DrawCard("c1"))
	handLen := len(s.Players[0].Hand)

	// A deadline captured before the draw must not act on the new state.
	s.handleTurnTimeout(stale)
	assert.Equal(t, models.PhaseDiscard, s.Phase)
	assert.Len(t, s.Players[0].Hand, handLen)
}

// TestCardConservation drives a full game with auto-skips and checks
// that every card is in exactly one place, allowing one voided card
// per fight.
func TestCardConservation(t *testing.T) {
	s, _ := newTestSession(t, "ann", "bea", "cam", "dee")
	voided := 0
	for i := 0; i < 600; i++ {
		s.mu.Lock()
		if s.Phase == models.PhaseEnded {
			s.mu.Unlock()
			break
		}
		s.autoSkip()
		if s.FightData != nil {
			voided++
		}
		total := len(s.Deck) + len(s.DiscardPile)
		for _, p := range s.Players {
			total += len(p.Hand)
		}
		s.mu.Unlock()
		require.Equal(t, 52, total+voided, "iteration %d", i)
	}
}

func TestViewForSanitizesOtherHands(t *testing.T) {
	s, _ := newTestSession(t, "ann", "bea")
	s.CurrentPlayerIndex = 0
	s.Players[0].Hand = []models.Card{card("5", "hearts"), card("9", "spades"), card("J", "diamonds")}
	s.Players[1].Hand = []models.Card{card("A", "hearts"), card("7", "spades"), card("K", "diamonds")}

	v := s.ViewFor("ann")
	assert.Equal(t, s.Players[0].Hand, v.Players[0].Hand)
	require.Len(t, v.Players[1].Hand, 3)
	for _, c := range v.Players[1].Hand {
		assert.Equal(t, models.HiddenCard, c)
	}
	assert.Equal(t, 3, v.Players[1].HandCount)
	assert.Equal(t, len(s.Deck), v.DeckCount)
	assert.Equal(t, "ann", v.CurrentPlayerName)
}

func TestViewForRevealsAfterWin(t *testing.T) {
	s, _ := newTestSession(t, "ann", "bea")
	s.CurrentPlayerIndex = 0
	s.Players[0].Hand = []models.Card{card("5", "hearts"), card("5", "clubs"), card("3", "spades"), card("4", "spades")}
	require.NoError(t, s.DeclareWin("c1"))

	v := s.ViewFor("bea")
	assert.Equal(t, s.Players[0].Hand, v.Players[0].Hand)
	require.NotNil(t, v.Winner)
	assert.Equal(t, "ann", v.Winner.PlayerName)
}
