package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/jason-s-yu/mickarin/internal/models"
)

// NewMachine builds the full 72-tile set (every sign in every color) and
// shuffles it with rng.
func NewMachine(rng *rand.Rand) []models.Tile {
	tiles := make([]models.Tile, 0, len(models.Signs)*len(models.Colors))
	for _, sign := range models.Signs {
		for _, color := range models.Colors {
			tiles = append(tiles, models.NewTile(sign, color))
		}
	}
	rng.Shuffle(len(tiles), func(i, j int) {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	})
	return tiles
}

// drawFromMachine pops the next tile (the last element of the machine) into
// the offer with a random orientation. It returns false when the machine is
// empty.
func (s *Session) drawFromMachine() (models.MachineOffer, bool) {
	g := s.game
	if len(g.TileMachine) == 0 {
		g.Log("The tile machine is empty!")
		return models.MachineOffer{}, false
	}
	last := len(g.TileMachine) - 1
	tile := g.TileMachine[last]
	g.TileMachine = g.TileMachine[:last]
	offer := models.MachineOffer{Tile: tile, FaceUp: s.flipCoin()}
	g.MachineOffer = append(g.MachineOffer, offer)
	if offer.FaceUp {
		g.Log(fmt.Sprintf("The machine drops a face-up tile: %s %s.", tile.Sign, tile.Color))
	} else {
		g.Log("The machine drops a face-down tile.")
	}
	return offer, true
}

func (s *Session) requireMachineChoice(p *models.Player) error {
	g := s.game
	cur := g.CurrentPlayer()
	if !g.IsActive() || cur == nil {
		return ErrWrongPhase
	}
	if cur.ID != p.ID {
		return ErrNotYourTurn
	}
	if g.Status != models.StatusInProgress || g.TurnState != models.TurnMachineChoice {
		return ErrWrongPhase
	}
	return nil
}

// takeTiles gives the whole offer to the turn holder.
func (s *Session) takeTiles(p *models.Player) error {
	if err := s.requireMachineChoice(p); err != nil {
		return err
	}
	if len(s.game.MachineOffer) == 0 {
		return fmt.Errorf("%w: there is nothing to take", ErrInvalidAction)
	}
	s.game.Log(fmt.Sprintf("%s takes the %d tile(s) on offer.", p.Name, len(s.game.MachineOffer)))
	s.awardOffer(p)
	return nil
}

// relaunchMachine draws one more tile. A face-up draw opens an auction.
func (s *Session) relaunchMachine(p *models.Player) error {
	if err := s.requireMachineChoice(p); err != nil {
		return err
	}
	s.game.Log(fmt.Sprintf("%s relaunches the machine.", p.Name))
	offer, ok := s.drawFromMachine()
	if !ok {
		s.endTurn()
		return nil
	}
	if offer.FaceUp {
		s.startAuction()
	}
	return nil
}

// awardOffer hands the offer to recipient, revealing face-down tiles first.
// With a positive reveal delay the transfer is deferred to completeReveal.
func (s *Session) awardOffer(recipient *models.Player) {
	g := s.game
	g.AuctionState = nil
	g.Status = models.StatusInProgress

	hidden := false
	for i := range g.MachineOffer {
		if !g.MachineOffer[i].FaceUp {
			hidden = true
			g.MachineOffer[i].FaceUp = true
			t := g.MachineOffer[i].Tile
			g.Log(fmt.Sprintf("Revealed: %s %s.", t.Sign, t.Color))
		}
	}
	delay := s.mgr.rules.RevealDelay
	if !hidden || delay <= 0 {
		s.transferOffer(recipient)
		return
	}

	g.TurnState = models.TurnRevealing
	g.PendingAward = &models.PendingAward{RecipientID: recipient.ID}
	s.scheduleReveal(delay)
}

func (s *Session) scheduleReveal(delay time.Duration) {
	s.stopReveal()
	seq := s.revealSeq
	s.revealTimer = time.AfterFunc(delay, func() {
		s.mgr.finishReveal(s, seq)
	})
}

func (s *Session) stopReveal() {
	if s.revealTimer != nil {
		s.revealTimer.Stop()
		s.revealTimer = nil
	}
	s.revealSeq++
}

// completeReveal performs the deferred transfer of a pending award.
func (s *Session) completeReveal() {
	g := s.game
	pa := g.PendingAward
	g.PendingAward = nil
	s.stopReveal()
	if pa == nil {
		return
	}
	recipient := g.PlayerByID(pa.RecipientID)
	if recipient == nil {
		g.Log("The recipient left; the offer is discarded.")
		s.endTurn()
		return
	}
	s.transferOffer(recipient)
}

func (s *Session) transferOffer(recipient *models.Player) {
	g := s.game
	for _, o := range g.MachineOffer {
		recipient.Tiles = append(recipient.Tiles, o.Tile)
	}
	g.Log(fmt.Sprintf("%s receives %d tile(s).", recipient.Name, len(g.MachineOffer)))
	g.MachineOffer = []models.MachineOffer{}
	if s.checkWinner(recipient) {
		return
	}
	s.endTurn()
}
