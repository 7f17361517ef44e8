// Package auth provides bearer-token issuance/validation and password
// hashing for the task-list API.
//
// AUTHENTICATION FLOW:
//  1. Client POSTs /register or /login with a username and password.
//  2. The auth service verifies the password digest and issues a signed JWT
//     whose "sub" claim is the user's id.
//  3. The client keeps the token in its session store and sends it on every
//     task request as "Authorization: Bearer <token>".
//  4. RequireAuth validates the token and puts the user id in the request
//     context; task handlers scope every query by it.
//
// WHY JWT?
// A JWT carries everything the server needs (user id, expiry) and a signature
// over it. Checking a request costs one HMAC with the secret and no database
// lookup, so any number of server processes can validate tokens without
// sharing session state.
//
// The flip side: tokens are stateless. The server keeps no session table, so
// a token stays valid until it expires even after the client logs out.
//
// JWT STRUCTURE (three base64url parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header:    {"alg":"HS256","typ":"JWT"}
//	- Payload:   {"sub":"<user id>","iss":"tasklist","exp":...,"jti":"<xid>"}
//	- Signature: HMAC-SHA256(header + "." + payload, secret)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const (
	// TokenTTL is the fixed validity window of an access token.
	TokenTTL = 24 * time.Hour

	issuer = "tasklist"

	// MinSecretLength is the shortest signing secret NewTokenService accepts.
	MinSecretLength = 16
)

// ErrInvalidToken is returned (wrapped) for any token that fails validation.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenService signs and verifies HS256 access tokens with one shared secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret.
// There is no default secret: an empty or short one is rejected.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", MinSecretLength)
	}
	return &TokenService{secret: []byte(secret), ttl: TokenTTL, now: time.Now}, nil
}

type claims struct {
	jwt.RegisteredClaims
}

// Generate issues a token for userID valid for TokenTTL.
//
// Every call gets a fresh jti, so two tokens for the same user issued within
// the same second still differ.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration issues a token with a custom lifetime.
// Used by tests to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("auth: cannot issue token without a subject")
	}

	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token and returns the user id in its
// subject claim.
//
// Checks performed: HS256 only, valid signature, issuer "tasklist", expiry
// present and in the future, non-empty subject.
//
// ALGORITHM CONFUSION ATTACK:
// The token header names its own algorithm. If the parser trusted it, an
// attacker could send "alg":"none" (no signature at all) or switch to an
// asymmetric algorithm and sign with a public key. WithValidMethods pins the
// accepted list to HS256, and the keyfunc refuses any non-HMAC method before
// handing out the secret.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: bad claims", ErrInvalidToken)
	}
	if c.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}

	return c.Subject, nil
}
