// internal/game/rules.go
package game

import (
	"fmt"
	"time"
)

// Rules holds the timing knobs of a game server. Board and economy constants
// live in the models package and are not configurable.
type Rules struct {
	TurnTimeout time.Duration `json:"turnTimeout"` // how long the acting player has before being removed; 0 disables
	RevealDelay time.Duration `json:"revealDelay"` // pause between revealing face-down tiles and awarding them; 0 awards immediately
}

// DefaultRules mirrors the production timings.
func DefaultRules() Rules {
	return Rules{
		TurnTimeout: 90 * time.Second,
		RevealDelay: 1500 * time.Millisecond,
	}
}

// Validate rejects negative durations.
func (r Rules) Validate() error {
	if r.TurnTimeout < 0 {
		return fmt.Errorf("turn timeout must not be negative, got %s", r.TurnTimeout)
	}
	if r.RevealDelay < 0 {
		return fmt.Errorf("reveal delay must not be negative, got %s", r.RevealDelay)
	}
	return nil
}
