package models

// Game constants shared by the engine and the persisted document.
const (
	BoardSize            = 36
	StartingMoney        = 2500
	MoneyCellReward      = 100
	RentMonopoly         = 200
	RentSpecialMonopoly  = 400
	MonopolySize         = 3
	TileSellPrice        = 200
	SpecialTileSellPrice = 400
	BidStep              = 100
	MaxPlayers           = 8
	MinPlayers           = 2
	GameLogLimit         = 50
	WinSameSign          = 6
)

// CellType distinguishes money cells from color cells.
type CellType string

const (
	CellMoney CellType = "money"
	CellColor CellType = "color"
)

// Cell describes one board position.
type Cell struct {
	Position int      `json:"position"`
	Type     CellType `json:"type"`
	Sign     Sign     `json:"sign,omitempty"`
}

// CellAt resolves a board position. Every position p with p%3 == 1 is a
// money cell; the others are color cells tagged with Signs[(p/3)%12].
func CellAt(position int) Cell {
	p := NormalizePosition(position)
	if p%3 == 1 {
		return Cell{Position: p, Type: CellMoney}
	}
	return Cell{Position: p, Type: CellColor, Sign: Signs[(p/3)%len(Signs)]}
}

// NormalizePosition wraps a position onto the track.
func NormalizePosition(p int) int {
	p %= BoardSize
	if p < 0 {
		p += BoardSize
	}
	return p
}

// StartingPosition derives a player's first cell from their year of birth.
func StartingPosition(yearOfBirth int) int {
	y := yearOfBirth % len(Signs)
	if y < 0 {
		y += len(Signs)
	}
	return y * 3
}
