package game

import (
	"fmt"
	"strings"

	"github.com/jason-s-yu/mickarin/internal/models"
)

// rollDice moves the turn holder. A second roll after a steal only moves
// the pawn and ends the turn.
func (s *Session) rollDice(p *models.Player) error {
	g := s.game
	cur := g.CurrentPlayer()
	if !g.IsActive() || cur == nil {
		return ErrWrongPhase
	}
	if cur.ID != p.ID {
		return ErrNotYourTurn
	}
	if g.Status != models.StatusInProgress ||
		(g.TurnState != models.TurnStart && g.TurnState != models.TurnSecondRoll) {
		return ErrWrongPhase
	}

	roll := s.rollDie()
	from := p.Position
	g.LastDiceRoll = &roll
	p.Position = models.NormalizePosition(from + roll)
	g.Log(fmt.Sprintf("%s rolls a %d.", p.Name, roll))

	if g.TurnState == models.TurnSecondRoll {
		s.endTurn()
		return nil
	}
	if victims := findVictims(g, p, from, roll); len(victims) > 0 {
		s.beginSteal(p, victims)
		return nil
	}
	s.resolveLanding(p)
	return nil
}

// resolveLanding applies the effect of the cell under p.
func (s *Session) resolveLanding(p *models.Player) {
	g := s.game
	cell := models.CellAt(p.Position)
	if cell.Type == models.CellMoney {
		p.Money += models.MoneyCellReward
		g.Log(fmt.Sprintf("%s lands on a money cell and collects %d.", p.Name, models.MoneyCellReward))
		s.endTurn()
		return
	}
	s.chargeRent(p, cell.Sign)
	g.TurnState = models.TurnMachineChoice
	if _, ok := s.drawFromMachine(); !ok {
		s.endTurn()
	}
}

// sellTiles sells the listed tiles of p to the bank. Any player of a running
// game may sell, except a player still waiting to be stolen from.
func (s *Session) sellTiles(p *models.Player, tiles []models.Tile) error {
	g := s.game
	if !g.IsActive() || g.TurnState == models.TurnRevealing {
		return ErrWrongPhase
	}
	if s.isQueuedVictim(p.ID) {
		return fmt.Errorf("%w: you cannot sell while a steal against you is pending", ErrInvalidAction)
	}
	if len(tiles) == 0 {
		return fmt.Errorf("%w: choose at least one tile to sell", ErrInvalidAction)
	}

	want := make(map[string]bool, len(tiles))
	for _, t := range tiles {
		key := t.Key()
		if want[key] || !p.HasTile(key) {
			return fmt.Errorf("%w: you do not own %s %s", ErrInvalidAction, t.Sign, t.Color)
		}
		want[key] = true
	}

	total := 0
	sold := make([]string, 0, len(tiles))
	kept := p.Tiles[:0:0]
	for _, t := range p.Tiles {
		if want[t.Key()] {
			total += t.SellPrice()
			sold = append(sold, fmt.Sprintf("%s %s", t.Sign, t.Color))
			continue
		}
		kept = append(kept, t)
	}
	p.Tiles = kept
	p.Money += total
	g.Log(fmt.Sprintf("%s sells %s for %d.", p.Name, strings.Join(sold, ", "), total))
	return nil
}
