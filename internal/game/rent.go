package game

import (
	"fmt"

	"github.com/jason-s-yu/mickarin/internal/models"
)

// rentOutcome describes the landlord resolution for one landing.
type rentOutcome struct {
	Landlord *models.Player
	Amount   int
	Voided   bool // several monopolies and no unique special holder
}

// resolveRent finds who, if anyone, collects rent from tenant for sign.
// Only connected players other than the tenant holding at least
// MonopolySize tiles of the sign qualify. When several qualify, the unique
// holder of the special tile wins; otherwise the rent is voided.
func resolveRent(g *models.Game, tenant *models.Player, sign models.Sign) rentOutcome {
	var candidates, specialHolders []*models.Player
	for _, o := range g.Players {
		if o.ID == tenant.ID || o.IsDisconnected {
			continue
		}
		n, special := o.CountSign(sign)
		if n < models.MonopolySize {
			continue
		}
		candidates = append(candidates, o)
		if special {
			specialHolders = append(specialHolders, o)
		}
	}

	var landlord *models.Player
	switch {
	case len(candidates) == 0:
		return rentOutcome{}
	case len(candidates) == 1:
		landlord = candidates[0]
	case len(specialHolders) == 1:
		landlord = specialHolders[0]
	default:
		return rentOutcome{Voided: true}
	}

	amount := models.RentMonopoly
	if _, special := landlord.CountSign(sign); special {
		amount = models.RentSpecialMonopoly
	}
	return rentOutcome{Landlord: landlord, Amount: amount}
}

// chargeRent moves money from tenant to the landlord of sign, if any.
// The tenant's balance may go negative.
func (s *Session) chargeRent(tenant *models.Player, sign models.Sign) {
	out := resolveRent(s.game, tenant, sign)
	switch {
	case out.Voided:
		s.game.Log(fmt.Sprintf("Several players hold a %s monopoly; no rent is due.", sign))
	case out.Landlord != nil:
		tenant.Money -= out.Amount
		out.Landlord.Money += out.Amount
		s.game.Log(fmt.Sprintf("%s pays %d to %s for the %s monopoly.", tenant.Name, out.Amount, out.Landlord.Name, sign))
	}
}
