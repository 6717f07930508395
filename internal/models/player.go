package models

import "github.com/google/uuid"

// PlayerColors are the pawn colors, assigned by player id.
var PlayerColors = []string{
	"#d90429", "#0077b6", "#fca311", "#588157",
	"#6f1d1b", "#432818", "#99582a", "#6a4c93",
}

// Player is one seat of a game. Token is the identity of the connection
// currently bound to the seat; it is neither persisted nor broadcast.
type Player struct {
	ID             int       `json:"id" bson:"id"`
	Name           string    `json:"name" bson:"name"`
	Token          uuid.UUID `json:"-" bson:"-"`
	Color          string    `json:"color" bson:"color"`
	Money          int       `json:"money" bson:"money"`
	Position       int       `json:"position" bson:"position"`
	Tiles          []Tile    `json:"tiles" bson:"tiles"`
	IsDisconnected bool      `json:"isDisconnected" bson:"isDisconnected"`
}

// NewPlayer seats a fresh player with the starting bankroll.
func NewPlayer(id int, name string, yearOfBirth int, token uuid.UUID) *Player {
	return &Player{
		ID:       id,
		Name:     name,
		Token:    token,
		Color:    PlayerColors[id%len(PlayerColors)],
		Money:    StartingMoney,
		Position: StartingPosition(yearOfBirth),
		Tiles:    []Tile{},
	}
}

// CountSign returns how many tiles of sign the player holds and whether one
// of them is the special tile.
func (p *Player) CountSign(sign Sign) (count int, hasSpecial bool) {
	for _, t := range p.Tiles {
		if t.Sign == sign {
			count++
			if t.IsSpecial {
				hasSpecial = true
			}
		}
	}
	return count, hasSpecial
}

// SignCounts tallies held tiles per sign.
func (p *Player) SignCounts() map[Sign]int {
	counts := make(map[Sign]int, len(Signs))
	for _, t := range p.Tiles {
		counts[t.Sign]++
	}
	return counts
}

// HasTile reports whether the player holds the tile with the given key.
func (p *Player) HasTile(key string) bool {
	for _, t := range p.Tiles {
		if t.Key() == key {
			return true
		}
	}
	return false
}

// RemoveTileAt takes the tile at idx out of the player's hand.
func (p *Player) RemoveTileAt(idx int) Tile {
	t := p.Tiles[idx]
	p.Tiles = append(p.Tiles[:idx:idx], p.Tiles[idx+1:]...)
	return t
}
