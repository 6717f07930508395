package models

import "time"

// Status is the broad, visible phase of a game.
type Status string

const (
	StatusLobby      Status = "lobby"
	StatusInProgress Status = "in-progress"
	StatusSteal      Status = "steal"
	StatusAuction    Status = "auction"
	StatusFinished   Status = "finished"
)

// TurnState is the detailed sub-phase of the current turn.
type TurnState string

const (
	TurnStart         TurnState = "start"
	TurnSecondRoll    TurnState = "secondRoll"
	TurnMachineChoice TurnState = "machineChoice"
	TurnRevealing     TurnState = "revealing"
	TurnStealing      TurnState = "stealing"
	TurnAuction       TurnState = "auction"
)

// Bidder is one participant of an auction.
type Bidder struct {
	PlayerID  int    `json:"playerId" bson:"playerId"`
	Name      string `json:"name" bson:"name"`
	HasPassed bool   `json:"hasPassed" bson:"hasPassed"`
}

// AuctionState exists only while Status is StatusAuction.
type AuctionState struct {
	Bidders            []Bidder `json:"bidders" bson:"bidders"`
	CurrentBidderIndex int      `json:"currentBidderIndex" bson:"currentBidderIndex"`
	HighestBid         int      `json:"highestBid" bson:"highestBid"`
	HighestBidderID    *int     `json:"highestBidderId" bson:"highestBidderId"`
	HighestBidderName  string   `json:"highestBidderName,omitempty" bson:"highestBidderName,omitempty"`
	InitialBidMade     bool     `json:"initialBidMade" bson:"initialBidMade"`
	InitiatorID        int      `json:"initiatorId" bson:"initiatorId"`
}

// CurrentBidder returns the bidder whose decision is awaited.
func (a *AuctionState) CurrentBidder() *Bidder {
	if a == nil || a.CurrentBidderIndex < 0 || a.CurrentBidderIndex >= len(a.Bidders) {
		return nil
	}
	return &a.Bidders[a.CurrentBidderIndex]
}

// StealState exists only while Status is StatusSteal.
type StealState struct {
	ThiefID     int   `json:"thiefId" bson:"thiefId"`
	VictimQueue []int `json:"victimQueue" bson:"victimQueue"`
}

// PendingAward names the player receiving the offer once face-down tiles are revealed.
type PendingAward struct {
	RecipientID int `json:"recipientId" bson:"recipientId"`
}

// Winner records how a game ended. PlayerID is nil when everyone left.
type Winner struct {
	PlayerID *int   `json:"playerId" bson:"playerId"`
	Name     string `json:"name" bson:"name"`
	Reason   string `json:"reason" bson:"reason"`
}

// Game is the persisted document of one session, keyed by GameCode.
type Game struct {
	GameCode           string         `json:"gameCode" bson:"gameCode"`
	HostID             int            `json:"hostId" bson:"hostId"`
	Status             Status         `json:"status" bson:"status"`
	TurnState          TurnState      `json:"turnState" bson:"turnState"`
	Players            []*Player      `json:"players" bson:"players"`
	CurrentPlayerIndex int            `json:"currentPlayerIndex" bson:"currentPlayerIndex"`
	TileMachine        []Tile         `json:"tileMachine" bson:"tileMachine"`
	MachineOffer       []MachineOffer `json:"machineOffer" bson:"machineOffer"`
	AuctionState       *AuctionState  `json:"auctionState" bson:"auctionState"`
	StealState         *StealState    `json:"stealState" bson:"stealState"`
	PendingAward       *PendingAward  `json:"pendingAward,omitempty" bson:"pendingAward,omitempty"`
	GameLog            []string       `json:"gameLog" bson:"gameLog"`
	LastDiceRoll       *int           `json:"lastDiceRoll" bson:"lastDiceRoll"`
	TurnEndTime        *time.Time     `json:"turnEndTime" bson:"turnEndTime"`
	Winner             *Winner        `json:"winner" bson:"winner"`
	NextPlayerID       int            `json:"nextPlayerId" bson:"nextPlayerId"`
	ActionIndex        int            `json:"actionIndex" bson:"actionIndex"`
}

// NewGame creates a lobby hosted by a freshly seated player.
func NewGame(code string, host *Player) *Game {
	return &Game{
		GameCode:     code,
		HostID:       host.ID,
		Status:       StatusLobby,
		TurnState:    TurnStart,
		Players:      []*Player{host},
		MachineOffer: []MachineOffer{},
		GameLog:      []string{},
		NextPlayerID: host.ID + 1,
	}
}

// PlayerByID returns the seated player with id, or nil.
func (g *Game) PlayerByID(id int) *Player {
	if i := g.IndexOf(id); i >= 0 {
		return g.Players[i]
	}
	return nil
}

// IndexOf returns the roster index of player id, or -1.
func (g *Game) IndexOf(id int) int {
	for i, p := range g.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// CurrentPlayer returns the turn holder, or nil outside a running game.
func (g *Game) CurrentPlayer() *Player {
	if g.CurrentPlayerIndex < 0 || g.CurrentPlayerIndex >= len(g.Players) {
		return nil
	}
	return g.Players[g.CurrentPlayerIndex]
}

// IsActive reports whether turns are being played.
func (g *Game) IsActive() bool {
	return g.Status != StatusLobby && g.Status != StatusFinished
}

// Log prepends an entry and evicts the oldest beyond GameLogLimit.
func (g *Game) Log(msg string) {
	g.GameLog = append([]string{msg}, g.GameLog...)
	if len(g.GameLog) > GameLogLimit {
		g.GameLog = g.GameLog[:GameLogLimit]
	}
}

// Clone returns a deep copy, used to roll back a failed save.
func (g *Game) Clone() *Game {
	c := *g
	c.Players = make([]*Player, len(g.Players))
	for i, p := range g.Players {
		pc := *p
		pc.Tiles = append([]Tile(nil), p.Tiles...)
		c.Players[i] = &pc
	}
	c.TileMachine = append([]Tile(nil), g.TileMachine...)
	c.MachineOffer = append([]MachineOffer(nil), g.MachineOffer...)
	c.GameLog = append([]string(nil), g.GameLog...)
	if g.AuctionState != nil {
		a := *g.AuctionState
		a.Bidders = append([]Bidder(nil), g.AuctionState.Bidders...)
		if g.AuctionState.HighestBidderID != nil {
			id := *g.AuctionState.HighestBidderID
			a.HighestBidderID = &id
		}
		c.AuctionState = &a
	}
	if g.StealState != nil {
		s := *g.StealState
		s.VictimQueue = append([]int(nil), g.StealState.VictimQueue...)
		c.StealState = &s
	}
	if g.PendingAward != nil {
		pa := *g.PendingAward
		c.PendingAward = &pa
	}
	if g.LastDiceRoll != nil {
		r := *g.LastDiceRoll
		c.LastDiceRoll = &r
	}
	if g.TurnEndTime != nil {
		t := *g.TurnEndTime
		c.TurnEndTime = &t
	}
	if g.Winner != nil {
		w := *g.Winner
		if g.Winner.PlayerID != nil {
			id := *g.Winner.PlayerID
			w.PlayerID = &id
		}
		c.Winner = &w
	}
	return &c
}
