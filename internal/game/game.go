// internal/game/game.go
package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/mickarin/internal/models"
	"github.com/sirupsen/logrus"
)

// Session is the resident, serialized owner of one game document. Every read
// or mutation of game happens with mu held, including timer callbacks.
type Session struct {
	mu   sync.Mutex
	code string
	game *models.Game
	mgr  *Manager
	rng  *rand.Rand

	timer    *time.Timer
	timerSeq uint64
	timerKey awaitKey

	revealTimer *time.Timer
	revealSeq   uint64

	// closed is set once the session left the manager; late callers must reload.
	closed bool
}

func newSession(m *Manager, g *models.Game) *Session {
	return &Session{
		code: g.GameCode,
		game: g,
		mgr:  m,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Session) log() *logrus.Entry {
	return s.mgr.logger.WithField("game", s.code)
}

// playerByToken returns the seat bound to the connection token.
func (s *Session) playerByToken(token uuid.UUID) *models.Player {
	if token == uuid.Nil {
		return nil
	}
	for _, p := range s.game.Players {
		if p.Token == token {
			return p
		}
	}
	return nil
}

func (s *Session) rollDie() int {
	if s.mgr.dice != nil {
		return s.mgr.dice()
	}
	return s.rng.Intn(6) + 1
}

func (s *Session) flipCoin() bool {
	if s.mgr.coin != nil {
		return s.mgr.coin()
	}
	return s.rng.Intn(2) == 1
}

// startTurn resets per-turn state for the player at CurrentPlayerIndex.
func (s *Session) startTurn() {
	g := s.game
	g.Status = models.StatusInProgress
	g.TurnState = models.TurnStart
	g.MachineOffer = []models.MachineOffer{}
	g.AuctionState = nil
	g.StealState = nil
	g.PendingAward = nil
	g.LastDiceRoll = nil
	if cur := g.CurrentPlayer(); cur != nil {
		g.Log(fmt.Sprintf("It's %s's turn.", cur.Name))
	}
}

// endTurn discards any leftover offer and hands the turn to the next seat.
func (s *Session) endTurn() {
	g := s.game
	if len(g.Players) == 0 {
		return
	}
	if len(g.MachineOffer) > 0 {
		g.Log(fmt.Sprintf("%d tile(s) left in the offer are discarded.", len(g.MachineOffer)))
	}
	g.CurrentPlayerIndex = (g.CurrentPlayerIndex + 1) % len(g.Players)
	s.startTurn()
}

// endGame finishes the game. winner may be nil when nobody is left.
func (s *Session) endGame(winner *models.Player, reason string) {
	g := s.game
	g.Status = models.StatusFinished
	g.AuctionState = nil
	g.StealState = nil
	g.PendingAward = nil
	g.TurnEndTime = nil
	w := &models.Winner{Reason: reason}
	if winner != nil {
		id := winner.ID
		w.PlayerID = &id
		w.Name = winner.Name
		g.Log(fmt.Sprintf("%s wins the game: %s!", winner.Name, reason))
	} else {
		g.Log(fmt.Sprintf("The game is over: %s.", reason))
	}
	g.Winner = w
	s.stopReveal()
}

// checkWinner ends the game if p now satisfies a win condition.
func (s *Session) checkWinner(p *models.Player) bool {
	counts := p.SignCounts()
	for _, sign := range models.Signs {
		if counts[sign] >= models.WinSameSign {
			s.endGame(p, fmt.Sprintf("%d tiles of the %s sign", counts[sign], sign))
			return true
		}
	}
	if len(counts) >= len(models.Signs) {
		s.endGame(p, "one tile of every sign")
		return true
	}
	return false
}

// actingPlayerID returns the player whose decision the game waits on.
func (s *Session) actingPlayerID() (int, bool) {
	g := s.game
	if !g.IsActive() || g.TurnState == models.TurnRevealing {
		return 0, false
	}
	switch g.Status {
	case models.StatusAuction:
		if b := g.AuctionState.CurrentBidder(); b != nil {
			return b.PlayerID, true
		}
		return 0, false
	case models.StatusSteal:
		if g.StealState != nil {
			return g.StealState.ThiefID, true
		}
		return 0, false
	}
	if cur := g.CurrentPlayer(); cur != nil {
		return cur.ID, true
	}
	return 0, false
}

// removePlayer takes a seat out of a running game and repairs every index
// that pointed past it.
func (s *Session) removePlayer(id int, reason string) {
	g := s.game
	if g.TurnState == models.TurnRevealing && g.PendingAward != nil {
		s.completeReveal()
	}
	idx := g.IndexOf(id)
	if idx < 0 {
		return
	}
	p := g.Players[idx]
	wasCurrent := idx == g.CurrentPlayerIndex
	g.Players = append(g.Players[:idx:idx], g.Players[idx+1:]...)
	g.Log(fmt.Sprintf("%s left the game (%s).", p.Name, reason))

	if g.Status == models.StatusFinished {
		return
	}
	switch len(g.Players) {
	case 0:
		s.endGame(nil, "everyone left")
		return
	case 1:
		s.endGame(g.Players[0], "last player standing")
		return
	}

	if idx < g.CurrentPlayerIndex {
		g.CurrentPlayerIndex--
	}
	if wasCurrent {
		if len(g.MachineOffer) > 0 {
			g.Log(fmt.Sprintf("%d tile(s) left in the offer are discarded.", len(g.MachineOffer)))
		}
		g.CurrentPlayerIndex %= len(g.Players)
		s.startTurn()
		return
	}
	s.dropBidder(id)
	s.dropVictim(id)
}
