package game

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"strings"
)

const (
	GameCodeLength = 5
	GameCodeChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeRetries = 32
)

// GenerateGameCode returns a random upper-case alphanumeric code.
func GenerateGameCode() string {
	code := make([]byte, GameCodeLength)
	for i := range GameCodeLength {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(GameCodeChars))))
		if err != nil {
			code[i] = GameCodeChars[rand.Intn(len(GameCodeChars))]
			continue
		}
		code[i] = GameCodeChars[n.Int64()]
	}
	return string(code)
}

// uniqueCode draws codes until one is unused both in memory and in the store.
func (m *Manager) uniqueCode(ctx context.Context) (string, error) {
	for range maxCodeRetries {
		code := GenerateGameCode()
		m.mu.Lock()
		_, resident := m.sessions[code]
		m.mu.Unlock()
		if resident {
			continue
		}
		_, err := m.store.Load(ctx, code)
		if errors.Is(err, ErrGameNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrStore, err)
		}
	}
	return "", fmt.Errorf("%w: could not allocate a game code", ErrStore)
}

// validateIdentity trims and checks the name and year of birth of a joining player.
func validateIdentity(name string, yearOfBirth int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: a name is required", ErrInvalidAction)
	}
	if len([]rune(name)) > 20 {
		return "", fmt.Errorf("%w: names are limited to 20 characters", ErrInvalidAction)
	}
	if yearOfBirth <= 0 {
		return "", fmt.Errorf("%w: a valid year of birth is required", ErrInvalidAction)
	}
	return name, nil
}
