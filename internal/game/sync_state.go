// internal/game/sync_state.go
package game

import (
	"time"

	"github.com/jason-s-yu/mickarin/internal/models"
)

// HiddenMoney replaces the balance of every player other than the recipient.
const HiddenMoney = "???"

// PlayerView is one seat as seen by a given recipient. Money holds an int for
// the recipient and HiddenMoney for everyone else.
type PlayerView struct {
	ID             int           `json:"id"`
	Name           string        `json:"name"`
	Color          string        `json:"color"`
	Money          interface{}   `json:"money"`
	Position       int           `json:"position"`
	Tiles          []models.Tile `json:"tiles"`
	IsDisconnected bool          `json:"isDisconnected"`
	IsHost         bool          `json:"isHost"`
	IsCurrentTurn  bool          `json:"isCurrentTurn"`
}

// OfferView is a drawn tile; the tile itself is omitted while face down.
type OfferView struct {
	FaceUp bool         `json:"faceUp"`
	Tile   *models.Tile `json:"tile,omitempty"`
}

// GameView is the per-recipient snapshot sent with every state event.
type GameView struct {
	GameCode           string               `json:"gameCode"`
	HostID             int                  `json:"hostId"`
	Status             models.Status        `json:"status"`
	TurnState          models.TurnState     `json:"turnState"`
	Players            []PlayerView         `json:"players"`
	CurrentPlayerIndex int                  `json:"currentPlayerIndex"`
	MachineRemaining   int                  `json:"machineRemaining"`
	MachineOffer       []OfferView          `json:"machineOffer"`
	AuctionState       *models.AuctionState `json:"auctionState"`
	StealState         *models.StealState   `json:"stealState"`
	PendingAward       *models.PendingAward `json:"pendingAward,omitempty"`
	GameLog            []string             `json:"gameLog"`
	LastDiceRoll       *int                 `json:"lastDiceRoll"`
	TurnEndTime        *time.Time           `json:"turnEndTime"`
	Winner             *models.Winner       `json:"winner"`
	YourID             int                  `json:"yourId"`
}

// BuildView renders g for the player forID. It does not modify g, so
// rendering the same state twice yields equal views.
func BuildView(g *models.Game, forID int) GameView {
	c := g.Clone()
	v := GameView{
		GameCode:           c.GameCode,
		HostID:             c.HostID,
		Status:             c.Status,
		TurnState:          c.TurnState,
		Players:            make([]PlayerView, 0, len(c.Players)),
		CurrentPlayerIndex: c.CurrentPlayerIndex,
		MachineRemaining:   len(c.TileMachine),
		MachineOffer:       make([]OfferView, 0, len(c.MachineOffer)),
		AuctionState:       c.AuctionState,
		StealState:         c.StealState,
		PendingAward:       c.PendingAward,
		GameLog:            c.GameLog,
		LastDiceRoll:       c.LastDiceRoll,
		TurnEndTime:        c.TurnEndTime,
		Winner:             c.Winner,
		YourID:             forID,
	}
	active := c.IsActive()
	for i, p := range c.Players {
		pv := PlayerView{
			ID:             p.ID,
			Name:           p.Name,
			Color:          p.Color,
			Money:          HiddenMoney,
			Position:       p.Position,
			Tiles:          p.Tiles,
			IsDisconnected: p.IsDisconnected,
			IsHost:         p.ID == c.HostID,
			IsCurrentTurn:  active && i == c.CurrentPlayerIndex,
		}
		if p.ID == forID {
			pv.Money = p.Money
		}
		v.Players = append(v.Players, pv)
	}
	for _, o := range c.MachineOffer {
		ov := OfferView{FaceUp: o.FaceUp}
		if o.FaceUp {
			t := o.Tile
			ov.Tile = &t
		}
		v.MachineOffer = append(v.MachineOffer, ov)
	}
	return v
}

// EventType names an outbound message.
type EventType string

const (
	EventLobbyUpdate      EventType = "lobbyUpdate"
	EventGameStarted      EventType = "gameStarted"
	EventGameStateUpdate  EventType = "gameStateUpdate"
	EventReconnectSuccess EventType = "reconnectSuccess"
	EventLobbyClosed      EventType = "lobbyClosed"
	EventSession          EventType = "session"
	EventError            EventType = "error"
	EventPong             EventType = "pong"
)

// GameEvent is the envelope delivered to a connection.
type GameEvent struct {
	Type         EventType `json:"type"`
	GameCode     string    `json:"gameCode,omitempty"`
	State        *GameView `json:"state,omitempty"`
	Message      string    `json:"message,omitempty"`
	SessionToken string    `json:"sessionToken,omitempty"`
}
