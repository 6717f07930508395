package game

import (
	"fmt"

	"github.com/jason-s-yu/mickarin/internal/models"
)

// startAuction opens bidding on the current offer. Bidders are the connected
// players in roster order and the turn holder speaks first.
func (s *Session) startAuction() {
	g := s.game
	cur := g.CurrentPlayer()
	a := &models.AuctionState{InitiatorID: cur.ID}
	for _, p := range g.Players {
		if p.IsDisconnected {
			continue
		}
		if p.ID == cur.ID {
			a.CurrentBidderIndex = len(a.Bidders)
		}
		a.Bidders = append(a.Bidders, models.Bidder{PlayerID: p.ID, Name: p.Name})
	}
	if len(a.Bidders) == 0 {
		g.Log("Nobody can bid; the offer is discarded.")
		s.endTurn()
		return
	}
	g.Status = models.StatusAuction
	g.TurnState = models.TurnAuction
	g.AuctionState = a
	g.Log(fmt.Sprintf("Auction! %s opens the bidding.", cur.Name))
}

func (s *Session) requireBidder(p *models.Player) (*models.AuctionState, error) {
	g := s.game
	a := g.AuctionState
	if g.Status != models.StatusAuction || a == nil {
		return nil, ErrWrongPhase
	}
	b := a.CurrentBidder()
	if b == nil || b.PlayerID != p.ID {
		return nil, ErrNotYourTurn
	}
	return a, nil
}

// minimumBid is the smallest acceptable bid given the standing bid.
func minimumBid(a *models.AuctionState) int {
	if a.HighestBidderID == nil {
		return models.BidStep
	}
	return a.HighestBid + models.BidStep
}

func (s *Session) placeBid(p *models.Player, amount int) error {
	a, err := s.requireBidder(p)
	if err != nil {
		return err
	}
	min := minimumBid(a)
	if amount%models.BidStep != 0 || amount < min {
		return fmt.Errorf("%w: bid at least %d in steps of %d", ErrInvalidBid, min, models.BidStep)
	}
	if amount > p.Money {
		return fmt.Errorf("%w: you only have %d", ErrInvalidBid, p.Money)
	}
	id := p.ID
	a.HighestBid = amount
	a.HighestBidderID = &id
	a.HighestBidderName = p.Name
	a.InitialBidMade = true
	s.game.Log(fmt.Sprintf("%s bids %d.", p.Name, amount))
	s.advanceAuction()
	return nil
}

func (s *Session) passBid(p *models.Player) error {
	a, err := s.requireBidder(p)
	if err != nil {
		return err
	}
	if !a.InitialBidMade && p.ID == a.InitiatorID && p.Money >= models.BidStep {
		return fmt.Errorf("%w: you started the auction and must open with at least %d", ErrInvalidBid, models.BidStep)
	}
	a.CurrentBidder().HasPassed = true
	s.game.Log(fmt.Sprintf("%s passes.", p.Name))
	s.advanceAuction()
	return nil
}

// auctionOver reports whether at most one bidder has not passed. The highest
// bidder can never pass while standing, so that bidder is the one left.
func auctionOver(a *models.AuctionState) bool {
	open := 0
	for _, b := range a.Bidders {
		if !b.HasPassed {
			open++
		}
	}
	return open <= 1
}

// advanceAuction moves the floor to the next bidder who has not passed, or
// settles the auction.
func (s *Session) advanceAuction() {
	a := s.game.AuctionState
	if auctionOver(a) {
		s.settleAuction()
		return
	}
	n := len(a.Bidders)
	for i := 1; i <= n; i++ {
		next := (a.CurrentBidderIndex + i) % n
		if !a.Bidders[next].HasPassed {
			a.CurrentBidderIndex = next
			return
		}
	}
}

// settleAuction charges the winner and awards the offer, or discards it
// when nobody bid.
func (s *Session) settleAuction() {
	g := s.game
	a := g.AuctionState
	if a.HighestBidderID == nil {
		g.Log("Nobody bid; the offer is discarded.")
		s.endTurn()
		return
	}
	winner := g.PlayerByID(*a.HighestBidderID)
	if winner == nil {
		g.Log("The winning bidder left; the offer is discarded.")
		s.endTurn()
		return
	}
	winner.Money -= a.HighestBid
	g.Log(fmt.Sprintf("%s wins the auction for %d.", winner.Name, a.HighestBid))
	s.awardOffer(winner)
}

// dropBidder removes a departing player from the auction. A standing bid of
// theirs is voided.
func (s *Session) dropBidder(id int) {
	g := s.game
	a := g.AuctionState
	if g.Status != models.StatusAuction || a == nil {
		return
	}
	bi := -1
	for i, b := range a.Bidders {
		if b.PlayerID == id {
			bi = i
			break
		}
	}
	if bi < 0 {
		return
	}
	wasCurrent := bi == a.CurrentBidderIndex
	a.Bidders = append(a.Bidders[:bi:bi], a.Bidders[bi+1:]...)
	if bi < a.CurrentBidderIndex {
		a.CurrentBidderIndex--
	}
	if a.HighestBidderID != nil && *a.HighestBidderID == id {
		g.Log(fmt.Sprintf("The bid of %s is voided.", a.HighestBidderName))
		a.HighestBidderID = nil
		a.HighestBid = 0
		a.HighestBidderName = ""
	}
	if len(a.Bidders) == 0 || auctionOver(a) {
		s.settleAuction()
		return
	}
	if wasCurrent {
		// The slot now holds the bidder after the one who left.
		a.CurrentBidderIndex %= len(a.Bidders)
		if a.Bidders[a.CurrentBidderIndex].HasPassed {
			s.advanceAuction()
		}
	}
}
