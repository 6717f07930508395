// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer signs and verifies resume tokens binding a client to a seat.
// Tokens carry "sub" = player id and "game" = game code.
type Issuer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	expire     time.Duration // 0 => tokens never expire
}

// NewIssuer generates a fresh ed25519 key pair at runtime. Tokens from a
// previous process are therefore invalid after a restart unless keys are
// loaded with NewIssuerFromPath.
func NewIssuer(expire time.Duration) (*Issuer, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Issuer{privateKey: priv, publicKey: pub, expire: expire}, nil
}

// NewIssuerFromPath reads ed25519 private/public keys from file.
func NewIssuerFromPath(privatePath, publicPath string, expire time.Duration) (*Issuer, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid ed25519 key sizes")
	}
	return &Issuer{
		privateKey: ed25519.PrivateKey(privateKeyData),
		publicKey:  ed25519.PublicKey(publicKeyData),
		expire:     expire,
	}, nil
}

// ParseExpire reads a TOKEN_EXPIRE_TIME style value: "", "0" and "never"
// disable expiry, anything else is a Go duration.
func ParseExpire(v string) (time.Duration, error) {
	if v == "never" || v == "0" || v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}

// Issue creates a signed token for playerID in game code.
func (i *Issuer) Issue(code string, playerID int) (string, error) {
	claims := jwt.MapClaims{
		"sub":  strconv.Itoa(playerID),
		"game": code,
		"iat":  time.Now().Unix(),
	}
	if i.expire > 0 {
		claims["exp"] = time.Now().Add(i.expire).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(i.privateKey)
}

// Verify checks a token and returns the game code and player id it names.
func (i *Issuer) Verify(tokenString string) (string, int, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.publicKey, nil
	})
	if err != nil {
		return "", 0, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", 0, fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", 0, fmt.Errorf("invalid jwt claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return "", 0, fmt.Errorf("missing sub in jwt")
	}
	playerID, err := strconv.Atoi(sub)
	if err != nil {
		return "", 0, fmt.Errorf("invalid sub in jwt: %w", err)
	}
	code, ok := claims["game"].(string)
	if !ok || code == "" {
		return "", 0, fmt.Errorf("missing game in jwt")
	}
	return code, playerID, nil
}
