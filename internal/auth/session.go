// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"time"

	"github.com/Velozity/CastGameCoordinator/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// privateKey and publicKey are used for signing and verifying JWT tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// TOKEN_EXPIRE_TIME_SEC indicates how many seconds until JWT expiration (0 => never).
	TOKEN_EXPIRE_TIME_SEC int
)

// ErrUnauthorized is returned whenever a credential cannot be verified,
// regardless of the underlying cause.
var ErrUnauthorized = fmt.Errorf("unauthorized")

// parseTokenExpireTime reads the TOKEN_EXPIRE_TIME env var and sets TOKEN_EXPIRE_TIME_SEC accordingly.
func parseTokenExpireTime() {
	duration := os.Getenv("TOKEN_EXPIRE_TIME")
	if duration == "never" || duration == "0" || duration == "" {
		TOKEN_EXPIRE_TIME_SEC = 0
	} else {
		d, err := time.ParseDuration(duration)
		if err != nil {
			fmt.Printf("failed to parse token expire time: %v\n", err)
			os.Exit(1)
		}
		TOKEN_EXPIRE_TIME_SEC = int(d.Seconds())
	}
}

// Init generates a fresh ed25519 key pair at runtime and sets the token expiration.
func Init() {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		fmt.Printf("failed to generate ed25519 key pair: %v\n", err)
		os.Exit(1)
	}
	parseTokenExpireTime()
}

// InitFromPath reads ed25519 private/public keys from file and sets the token expiration.
func InitFromPath(privatePath, publicPath string) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}

	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	parseTokenExpireTime()
	return nil
}

// CreateJWT creates a signed JWT for the given principal, with "sub" = the
// principal id and "kind" = player|server. Players obtain these from the
// account service; game servers are issued one at registration time.
func CreateJWT(p models.Principal) (string, error) {
	claims := jwt.MapClaims{
		"sub":  p.ID.String(),
		"kind": string(p.Kind),
	}

	if TOKEN_EXPIRE_TIME_SEC > 0 {
		claims["exp"] = time.Now().Add(time.Duration(TOKEN_EXPIRE_TIME_SEC) * time.Second).Unix()
	} else {
		// "never" means no exp claim
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// Verify checks a bearer credential and returns the principal it carries.
// Any parse, signature, expiry or claim problem collapses into
// ErrUnauthorized; callers never distinguish why a credential failed.
func Verify(tokenString string) (models.Principal, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})

	if err != nil || !t.Valid {
		return models.Principal{}, ErrUnauthorized
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return models.Principal{}, ErrUnauthorized
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return models.Principal{}, ErrUnauthorized
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return models.Principal{}, ErrUnauthorized
	}

	kind, _ := claims["kind"].(string)
	switch models.PrincipalKind(kind) {
	case models.PrincipalPlayer, models.PrincipalServer:
		return models.Principal{Kind: models.PrincipalKind(kind), ID: id}, nil
	default:
		return models.Principal{}, ErrUnauthorized
	}
}
