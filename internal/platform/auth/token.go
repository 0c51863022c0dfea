package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims carries the identity attached to every issued token. UserID is
// duplicated into the registered Subject claim.
type Claims struct {
	jwt.RegisteredClaims
	UserID         string `json:"user_id"`
	Role           string `json:"role"`
	OrganizationID string `json:"organization_id,omitempty"`
	TokenType      string `json:"token_type"`
}

// TokenIssuer signs and verifies HMAC tokens for local users.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccess returns a signed access token for the user.
func (i *TokenIssuer) IssueAccess(userID, role, orgID string) (string, error) {
	return i.issue(userID, role, orgID, TokenTypeAccess, i.accessTTL)
}

// IssueRefresh returns a signed refresh token for the user. Refresh tokens
// carry the same identity but are only accepted by the refresh endpoint.
func (i *TokenIssuer) IssueRefresh(userID, role, orgID string) (string, error) {
	return i.issue(userID, role, orgID, TokenTypeRefresh, i.refreshTTL)
}

func (i *TokenIssuer) issue(userID, role, orgID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:         userID,
		Role:           role,
		OrganizationID: orgID,
		TokenType:      tokenType,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Parse validates a token signature and expiry and checks that it is of the
// expected type.
func (i *TokenIssuer) Parse(tokenStr, expectedType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.TokenType != expectedType {
		return nil, fmt.Errorf("expected %s token, got %s", expectedType, claims.TokenType)
	}
	return claims, nil
}
