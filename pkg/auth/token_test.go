package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "bazaar", ExpirationMinutes: 30}
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	now := time.Now().UTC()
	want := Principal{UserID: uuid.New(), Role: enums.RoleVendor}

	token, err := IssueToken(cfg, now, want)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := VerifyToken(cfg, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != want {
		t.Fatalf("principal mismatch: got %+v want %+v", got, want)
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		t.Fatalf("decode claims: %v", err)
	}
	if claims.ID == "" || claims.Subject != want.UserID.String() || claims.Issuer != "bazaar" {
		t.Fatalf("registered claims not populated: %+v", claims.RegisteredClaims)
	}
	if wantExp := now.Add(30 * time.Minute).Truncate(time.Second); !claims.ExpiresAt.Time.Equal(wantExp) {
		t.Fatalf("expiry %s, want %s", claims.ExpiresAt.Time, wantExp)
	}
}

func TestIssueTokenRejectsBadInput(t *testing.T) {
	valid := Principal{UserID: uuid.New(), Role: enums.RoleCustomer}
	noSecret := testJWTConfig()
	noSecret.Secret = ""

	if _, err := IssueToken(noSecret, time.Now(), valid); !errors.Is(err, ErrSecretMissing) {
		t.Fatalf("expected ErrSecretMissing, got %v", err)
	}
	if _, err := IssueToken(testJWTConfig(), time.Now(), Principal{UserID: uuid.New(), Role: "owner"}); !errors.Is(err, ErrInvalidPrincipal) {
		t.Fatalf("expected ErrInvalidPrincipal for unknown role, got %v", err)
	}
	if _, err := IssueToken(testJWTConfig(), time.Now(), Principal{Role: enums.RoleAdmin}); !errors.Is(err, ErrInvalidPrincipal) {
		t.Fatalf("expected ErrInvalidPrincipal for nil user, got %v", err)
	}
}

func TestVerifyTokenRejections(t *testing.T) {
	cfg := testJWTConfig()
	p := Principal{UserID: uuid.New(), Role: enums.RoleAdmin}

	fresh, err := IssueToken(cfg, time.Now(), p)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	expired, err := IssueToken(cfg, time.Now().Add(-2*time.Hour), p)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID:           p.UserID,
		Role:             p.Role,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: cfg.Issuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign forged: %v", err)
	}

	otherSecret, otherIssuer := cfg, cfg
	otherSecret.Secret = "other"
	otherIssuer.Issuer = "someone-else"

	cases := map[string]struct {
		cfg   config.JWTConfig
		token string
	}{
		"expired":         {cfg, expired},
		"wrong secret":    {otherSecret, fresh},
		"wrong issuer":    {otherIssuer, fresh},
		"wrong algorithm": {cfg, forged},
		"garbage":         {cfg, "not.a.jwt"},
	}
	for name, tc := range cases {
		if _, err := VerifyToken(tc.cfg, tc.token); err == nil {
			t.Errorf("%s: expected verification failure", name)
		}
	}
}
