package game

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Errors returned by engine operations. Callers match with errors.Is; the
// wrapped message is what the player sees.
var (
	ErrNotYourTurn   = errors.New("it is not your turn")
	ErrNotHost       = errors.New("only the host can do that")
	ErrNotInGame     = errors.New("you are not in this game")
	ErrWrongPhase    = errors.New("this action is not allowed right now")
	ErrInvalidBid    = errors.New("invalid bid")
	ErrInvalidAction = errors.New("invalid action")
	ErrGameNotFound  = errors.New("game not found")
	ErrGameStarted   = errors.New("the game has already started")
	ErrGameFull      = errors.New("the game is full")
	ErrNameTaken     = errors.New("that name is already taken")
	ErrStore         = errors.New("internal error")
)

// isValidationError reports whether err is a rejected-but-legitimate attempt
// by the acting player. Those restart the acting player's timer.
func isValidationError(err error) bool {
	return errors.Is(err, ErrInvalidBid) || errors.Is(err, ErrInvalidAction)
}

// userMessage is the text sent to the client in a private error event.
func userMessage(err error) string {
	if errors.Is(err, ErrStore) {
		return "Internal error."
	}
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	msg = string(unicode.ToUpper(r)) + msg[size:]
	if !strings.HasSuffix(msg, ".") {
		msg += "."
	}
	return msg
}
