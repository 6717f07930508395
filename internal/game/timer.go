package game

import (
	"time"

	"github.com/jason-s-yu/mickarin/internal/models"
)

// awaitKey identifies the decision the game is waiting on. The timer is
// rearmed only when it changes, so actions by bystanders do not extend the
// acting player's deadline.
type awaitKey struct {
	actor      int
	status     models.Status
	turnState  models.TurnState
	offer      int
	victims    int
	bidder     int
	highestBid int
	turnIndex  int
}

func (s *Session) currentAwaitKey() (awaitKey, bool) {
	actor, ok := s.actingPlayerID()
	if !ok {
		return awaitKey{}, false
	}
	g := s.game
	k := awaitKey{
		actor:     actor,
		status:    g.Status,
		turnState: g.TurnState,
		offer:     len(g.MachineOffer),
		turnIndex: g.CurrentPlayerIndex,
	}
	if g.StealState != nil {
		k.victims = len(g.StealState.VictimQueue)
	}
	if g.AuctionState != nil {
		k.bidder = g.AuctionState.CurrentBidderIndex
		k.highestBid = g.AuctionState.HighestBid
	}
	return k, true
}

// syncTimer arms the turn timer for the acting player. With force it always
// restarts, otherwise only when the awaited decision changed.
func (s *Session) syncTimer(force bool) {
	key, ok := s.currentAwaitKey()
	timeout := s.mgr.rules.TurnTimeout
	if !ok || timeout <= 0 {
		s.stopTimer()
		s.game.TurnEndTime = nil
		return
	}
	if !force && s.timer != nil && key == s.timerKey {
		return
	}
	s.stopTimer()
	seq := s.timerSeq
	deadline := time.Now().Add(timeout)
	s.game.TurnEndTime = &deadline
	s.timerKey = key
	s.timer = time.AfterFunc(timeout, func() {
		s.mgr.handleTimeout(s, seq, key.actor)
	})
}

// stopTimer cancels the pending timeout. Bumping the sequence makes any
// callback already in flight stale.
func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerSeq++
}

// stopAll cancels every timer of the session.
func (s *Session) stopAll() {
	s.stopTimer()
	s.stopReveal()
}
