package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

const clockSkew = 30 * time.Second

var (
	signingMethod = jwt.SigningMethodHS256

	ErrSecretMissing    = errors.New("jwt secret is required")
	ErrInvalidPrincipal = errors.New("token principal is invalid")
)

// Claims is the access token body: the caller's principal plus the
// registered expiry, issuer and id claims.
type Claims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) Principal() Principal {
	return Principal{UserID: c.UserID, Role: c.Role}
}

// IssueToken signs an access token for p that expires after the configured
// number of minutes from now.
func IssueToken(cfg config.JWTConfig, now time.Time, p Principal) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", ErrSecretMissing
	case cfg.Issuer == "":
		return "", errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt expiration must be positive")
	case !p.Valid():
		return "", fmt.Errorf("%w: user=%s role=%q", ErrInvalidPrincipal, p.UserID, p.Role)
	}

	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute
	claims := Claims{
		UserID: p.UserID,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    cfg.Issuer,
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature, issuer and expiry and returns the principal
// the token was issued for.
func VerifyToken(cfg config.JWTConfig, raw string) (Principal, error) {
	if cfg.Secret == "" {
		return Principal{}, ErrSecretMissing
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	var claims Claims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return Principal{}, err
	}
	p := claims.Principal()
	if !p.Valid() {
		return Principal{}, ErrInvalidPrincipal
	}
	return p, nil
}
