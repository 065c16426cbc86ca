package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tendant/simple-onboarding/pkg/domain"
)

const (
	// Default token lifetimes
	DefaultAccessTokenTTL  = 7 * 24 * time.Hour
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour

	DefaultIssuer   = "user-onboarding-api"
	DefaultAudience = "user-onboarding-client"
)

// Token types carried in the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenConfig holds token signing configuration.
type TokenConfig struct {
	Secret          []byte
	Issuer          string
	Audience        string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Clock           Clock
}

// Claims represents the claims in an access or refresh token.
type Claims struct {
	jwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Type          string `json:"typ"`
}

// AccountID parses the subject as an account ID.
func (c *Claims) AccountID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	config TokenConfig
}

// NewTokenIssuer creates a token issuer. An empty secret is a configuration error.
func NewTokenIssuer(config TokenConfig) (*TokenIssuer, error) {
	if len(config.Secret) == 0 {
		return nil, errors.New("token signing secret is required")
	}
	if config.Issuer == "" {
		config.Issuer = DefaultIssuer
	}
	if config.Audience == "" {
		config.Audience = DefaultAudience
	}
	if config.AccessTokenTTL == 0 {
		config.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if config.RefreshTokenTTL == 0 {
		config.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}
	return &TokenIssuer{config: config}, nil
}

// AccessTokenTTL returns the access token TTL.
func (t *TokenIssuer) AccessTokenTTL() time.Duration {
	return t.config.AccessTokenTTL
}

// RefreshTokenTTL returns the refresh token TTL.
func (t *TokenIssuer) RefreshTokenTTL() time.Duration {
	return t.config.RefreshTokenTTL
}

// IssueSession signs an access token for the account.
func (t *TokenIssuer) IssueSession(accountID uuid.UUID, email string, verified bool) (string, time.Time, error) {
	return t.sign(accountID, email, verified, TokenTypeAccess, t.config.AccessTokenTTL)
}

// IssueRefresh signs a refresh token for the account.
func (t *TokenIssuer) IssueRefresh(accountID uuid.UUID, email string, verified bool) (string, time.Time, error) {
	return t.sign(accountID, email, verified, TokenTypeRefresh, t.config.RefreshTokenTTL)
}

// IssuePair signs an access and a refresh token.
func (t *TokenIssuer) IssuePair(accountID uuid.UUID, email string, verified bool) (*domain.TokenPair, error) {
	access, accessExp, err := t.IssueSession(accountID, email, verified)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := t.IssueRefresh(accountID, email, verified)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresIn:        int(t.config.AccessTokenTTL.Seconds()),
		ExpiresAt:        accessExp,
		RefreshExpiresAt: &refreshExp,
	}, nil
}

func (t *TokenIssuer) sign(accountID uuid.UUID, email string, verified bool, typ string, ttl time.Duration) (string, time.Time, error) {
	now := t.config.Clock.Now()
	expiresAt := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			Issuer:    t.config.Issuer,
			Audience:  jwt.ClaimStrings{t.config.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		Email:         email,
		EmailVerified: verified,
		Type:          typ,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.config.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify validates signature, algorithm, issuer, audience and expiry.
// It returns domain.ErrTokenExpired or domain.ErrTokenInvalid on failure.
func (t *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrTokenInvalid
		}
		return t.config.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.config.Issuer),
		jwt.WithAudience(t.config.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.config.Clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrTokenInvalid
	}

	return claims, nil
}

// VerifyType validates a token and requires the given typ claim.
func (t *TokenIssuer) VerifyType(tokenString, typ string) (*Claims, error) {
	claims, err := t.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != typ {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}
