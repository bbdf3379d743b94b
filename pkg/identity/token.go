package identity

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims extends standard JWT claims with the fields the Capability Gate
// (pkg/capability) needs to build a RequestContext directly from a token,
// without a second round-trip to a principal store.
type Claims struct {
	jwt.RegisteredClaims
	Type        PrincipalType `json:"type"`
	Permissions []string      `json:"permissions,omitempty"`
	DelegatorID string        `json:"delegator_id,omitempty"` // for agents
	Scopes      []string      `json:"scopes,omitempty"`
}

// TokenManager handles token generation and validation.
type TokenManager struct {
	keySet KeySet
}

func NewTokenManager(ks KeySet) *TokenManager {
	return &TokenManager{
		keySet: ks,
	}
}

// GenerateToken creates a signed JWT for a Principal, valid for duration.
func (tm *TokenManager) GenerateToken(p Principal, permissions []string, duration time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        p.ID(), // JTI
			Subject:   p.ID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			Issuer:    "tracectl",
			Audience:  jwt.ClaimStrings{"tracectl.core"},
		},
		Type:        p.Type(),
		Permissions: permissions,
	}

	if agent, ok := p.(*AgentIdentity); ok {
		claims.DelegatorID = agent.DelegatorID
		claims.Scopes = agent.Scopes
	}

	return tm.keySet.Sign(context.Background(), claims)
}

// ValidateToken parses and validates a JWT string, returning its claims.
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, tm.keySet.KeyFunc())
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrTokenSignatureInvalid
}
