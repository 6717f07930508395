package game

import (
	"fmt"
	"strings"

	"github.com/jason-s-yu/mickarin/internal/models"
)

// findVictims lists, in path order, the players the mover overtakes when
// moving steps cells from position from. Cells are scanned from+1..from+steps
// (the landing cell included) and players on the same cell in roster order.
// A player is listed once and only if they hold at least one tile.
func findVictims(g *models.Game, mover *models.Player, from, steps int) []int {
	seen := make(map[int]bool)
	queue := []int{}
	for i := 1; i <= steps; i++ {
		cell := models.NormalizePosition(from + i)
		for _, o := range g.Players {
			if o.ID == mover.ID || seen[o.ID] || o.Position != cell {
				continue
			}
			seen[o.ID] = true
			if len(o.Tiles) > 0 {
				queue = append(queue, o.ID)
			}
		}
	}
	return queue
}

// beginSteal enters the steal phase for thief with the given victims.
func (s *Session) beginSteal(thief *models.Player, victims []int) {
	g := s.game
	g.Status = models.StatusSteal
	g.TurnState = models.TurnStealing
	g.StealState = &models.StealState{ThiefID: thief.ID, VictimQueue: victims}
	names := make([]string, 0, len(victims))
	for _, id := range victims {
		if v := g.PlayerByID(id); v != nil {
			names = append(names, v.Name)
		}
	}
	g.Log(fmt.Sprintf("%s overtakes %s and may steal a tile from each.", thief.Name, strings.Join(names, ", ")))
}

// stealTile takes the tile at tileIndex from the victim at the head of the queue.
func (s *Session) stealTile(p *models.Player, victimID, tileIndex int) error {
	g := s.game
	st := g.StealState
	if g.Status != models.StatusSteal || g.TurnState != models.TurnStealing || st == nil {
		return ErrWrongPhase
	}
	if st.ThiefID != p.ID {
		return ErrNotYourTurn
	}
	if len(st.VictimQueue) == 0 {
		return ErrWrongPhase
	}
	head := g.PlayerByID(st.VictimQueue[0])
	if head == nil {
		return ErrWrongPhase
	}
	if victimID != head.ID {
		return fmt.Errorf("%w: you must steal from %s first", ErrInvalidAction, head.Name)
	}
	if tileIndex < 0 || tileIndex >= len(head.Tiles) {
		return fmt.Errorf("%w: no tile at index %d", ErrInvalidAction, tileIndex)
	}

	tile := head.RemoveTileAt(tileIndex)
	p.Tiles = append(p.Tiles, tile)
	st.VictimQueue = st.VictimQueue[1:]
	g.Log(fmt.Sprintf("%s steals a %s %s tile from %s.", p.Name, tile.Sign, tile.Color, head.Name))
	if s.checkWinner(p) {
		return nil
	}
	s.advanceSteal()
	return nil
}

// advanceSteal drops queue heads that can no longer be stolen from and, once
// the queue is empty, hands the thief a second roll.
func (s *Session) advanceSteal() {
	g := s.game
	st := g.StealState
	if st == nil {
		return
	}
	for len(st.VictimQueue) > 0 {
		v := g.PlayerByID(st.VictimQueue[0])
		if v != nil && len(v.Tiles) > 0 {
			return
		}
		st.VictimQueue = st.VictimQueue[1:]
	}
	g.StealState = nil
	g.Status = models.StatusInProgress
	g.TurnState = models.TurnSecondRoll
	if cur := g.CurrentPlayer(); cur != nil {
		g.Log(fmt.Sprintf("%s rolls again.", cur.Name))
	}
}

// dropVictim removes a departing player from the steal queue.
func (s *Session) dropVictim(id int) {
	g := s.game
	if g.Status != models.StatusSteal || g.StealState == nil {
		return
	}
	q := g.StealState.VictimQueue[:0:0]
	for _, v := range g.StealState.VictimQueue {
		if v != id {
			q = append(q, v)
		}
	}
	g.StealState.VictimQueue = q
	s.advanceSteal()
}

// isQueuedVictim reports whether id still waits to be stolen from.
func (s *Session) isQueuedVictim(id int) bool {
	g := s.game
	if g.Status != models.StatusSteal || g.StealState == nil {
		return false
	}
	for _, v := range g.StealState.VictimQueue {
		if v == id {
			return true
		}
	}
	return false
}
