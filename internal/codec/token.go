// Package codec mints and verifies the signed tokens that gate Houseflow's
// HTTP and WebSocket entry points: access tokens, refresh tokens, and
// authorization codes.
//
// Each token kind is a standard compact JWT (header + claims + HMAC) signed
// under its own independent symmetric key. Encoding and verification share
// the same machinery; only the claims and the key differ per kind.
package codec

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes.
const (
	AccessTokenTTL       = 10 * time.Minute
	RefreshTokenTTL      = 7 * 24 * time.Hour
	AuthorizationCodeTTL = 10 * time.Minute
)

// Sentinel errors surfaced by Decode, checked with errors.Is.
var (
	// ErrInvalidSignature means the MAC did not verify under the given key.
	ErrInvalidSignature = errors.New("codec: invalid signature")
	// ErrMalformedClaims means a required claim (sub, or exp where
	// applicable) is missing.
	ErrMalformedClaims = errors.New("codec: malformed claims")
	// ErrExpired means the token's exp claim is in the past.
	ErrExpired = errors.New("codec: token expired")
	// ErrMissingBearer means an Authorization header was absent or not a
	// Bearer scheme.
	ErrMissingBearer = errors.New("codec: missing bearer token")
)

// Claims is the payload carried by every Houseflow token kind. Subject is
// always the holder's UserID. ExpiresAt is always set, including on
// refresh tokens, so every token kind expires deterministically under the
// same check in Decode.
type Claims struct {
	jwt.RegisteredClaims
	// TokenID is the refresh-token store key ("tid"). Empty for access
	// tokens and authorization codes.
	TokenID string `json:"tid,omitempty"`
}

// Codec signs and verifies one token kind under a single secret key.
type Codec struct {
	key []byte
	ttl time.Duration
}

// NewAccessCodec returns a Codec for access tokens under key.
func NewAccessCodec(key string) *Codec { return &Codec{key: []byte(key), ttl: AccessTokenTTL} }

// NewRefreshCodec returns a Codec for refresh tokens under key.
func NewRefreshCodec(key string) *Codec { return &Codec{key: []byte(key), ttl: RefreshTokenTTL} }

// NewAuthorizationCodeCodec returns a Codec for authorization codes under key.
func NewAuthorizationCodeCodec(key string) *Codec {
	return &Codec{key: []byte(key), ttl: AuthorizationCodeTTL}
}

// New mints a signed token for subject, valid for the codec's configured
// TTL. tokenID, when non-empty, is carried as the refresh-token store key.
func (c *Codec) New(subject string, tokenID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		TokenID: tokenID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Decode verifies encoded and returns its claims. Checks run signature
// first, then required claims, then expiry, so each failure mode reports
// distinctly instead of collapsing into one generic decode error.
func (c *Codec) Decode(encoded string) (*Claims, error) {
	// Expiry is checked manually below rather than via the library's
	// built-in claims validation, which would conflate an
	// expired-but-validly-signed token with a signature failure.
	token, err := jwt.ParseWithClaims(encoded, &Claims{}, func(_ *jwt.Token) (any, error) {
		return c.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrMalformedClaims
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformedClaims)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing expiry", ErrMalformedClaims)
	}
	if claims.ExpiresAt.Before(time.Now()) {
		return nil, ErrExpired
	}

	return claims, nil
}

// FromRequest extracts and decodes the Bearer token carried in req's
// Authorization header.
func (c *Codec) FromRequest(req *http.Request) (*Claims, error) {
	header := req.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return nil, ErrMissingBearer
	}
	return c.Decode(strings.TrimPrefix(header, prefix))
}
