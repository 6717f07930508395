package models

// Sign is one of the twelve animal signs printed on tiles and board cells.
type Sign string

// Color is one of the six tile colors.
type Color string

const (
	SignSinge   Sign = "Singe"
	SignCoq     Sign = "Coq"
	SignChien   Sign = "Chien"
	SignCochon  Sign = "Cochon"
	SignRat     Sign = "Rat"
	SignBuffle  Sign = "Buffle"
	SignTigre   Sign = "Tigre"
	SignChat    Sign = "Chat"
	SignDragon  Sign = "Dragon"
	SignSerpent Sign = "Serpent"
	SignCheval  Sign = "Cheval"
	SignChevre  Sign = "Chevre"
)

const (
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorPink   Color = "pink"
	ColorPurple Color = "purple"
)

// Signs lists the signs in board order. Cell i carries Signs[(i/3)%12].
var Signs = []Sign{
	SignSinge, SignCoq, SignChien, SignCochon, SignRat, SignBuffle,
	SignTigre, SignChat, SignDragon, SignSerpent, SignCheval, SignChevre,
}

// Colors lists the tile colors.
var Colors = []Color{ColorRed, ColorYellow, ColorGreen, ColorBlue, ColorPink, ColorPurple}

// specialColors maps every sign to the color of its unique special tile.
// Each color carries exactly two special signs.
var specialColors = map[Sign]Color{
	SignDragon:  ColorGreen,
	SignChien:   ColorGreen,
	SignChevre:  ColorPink,
	SignBuffle:  ColorPink,
	SignSinge:   ColorYellow,
	SignTigre:   ColorYellow,
	SignRat:     ColorBlue,
	SignCheval:  ColorBlue,
	SignCochon:  ColorRed,
	SignSerpent: ColorRed,
	SignChat:    ColorPurple,
	SignCoq:     ColorPurple,
}

// Tile is an immutable (sign, color) pair.
type Tile struct {
	Sign      Sign  `json:"sign" bson:"sign"`
	Color     Color `json:"color" bson:"color"`
	IsSpecial bool  `json:"isSpecial" bson:"isSpecial"`
}

// NewTile builds a tile and derives its special flag.
func NewTile(sign Sign, color Color) Tile {
	return Tile{Sign: sign, Color: color, IsSpecial: IsSpecial(sign, color)}
}

// IsSpecial reports whether (sign, color) is the special tile of that sign.
func IsSpecial(sign Sign, color Color) bool {
	c, ok := specialColors[sign]
	return ok && c == color
}

// SpecialColorFor returns the color of the special tile for sign.
func SpecialColorFor(sign Sign) (Color, bool) {
	c, ok := specialColors[sign]
	return c, ok
}

// Key identifies a tile; every (sign, color) pair exists once per game.
func (t Tile) Key() string {
	return string(t.Sign) + "-" + string(t.Color)
}

// SellPrice is what the bank pays for the tile.
func (t Tile) SellPrice() int {
	if t.IsSpecial {
		return SpecialTileSellPrice
	}
	return TileSellPrice
}

// MachineOffer is one drawn tile waiting for a take/relaunch decision or an auction.
type MachineOffer struct {
	Tile   Tile `json:"tile" bson:"tile"`
	FaceUp bool `json:"faceUp" bson:"faceUp"`
}
