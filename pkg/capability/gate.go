package capability

import (
	"context"
	"net"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/defarm/tracectl/pkg/identity"
	"github.com/defarm/tracectl/pkg/traceerr"
)

// Gate authenticates inbound requests into a RequestContext. It accepts a
// JWT (`Authorization: Bearer <jwt>`) or an API key, either as
// `X-API-Key: <key>` or, per spec.md §6, also in `Authorization: Bearer
// <key>` form — the two are told apart by the key's tag_<32 alnum> shape.
type Gate struct {
	tokens  *identity.TokenManager
	keys    KeyStore
	limiter RateLimiter
}

// New returns a Gate backed by an in-process, per-instance rate budget.
// rps/burst size the per-actor rate budget.
func New(tokens *identity.TokenManager, keys KeyStore, rps, burst int) *Gate {
	return &Gate{
		tokens:  tokens,
		keys:    keys,
		limiter: newActorLimiter(rps, burst),
	}
}

// NewWithLimiter returns a Gate using limiter instead of the default
// in-process budget, for a RedisRateLimiter shared across instances.
func NewWithLimiter(tokens *identity.TokenManager, keys KeyStore, limiter RateLimiter) *Gate {
	return &Gate{tokens: tokens, keys: keys, limiter: limiter}
}

// Authenticate builds a RequestContext from r's credentials and charges
// one unit against the resolved actor's rate budget. A budget that is
// already exhausted fails closed with traceerr.RateLimit.
func (g *Gate) Authenticate(ctx context.Context, r *http.Request) (*RequestContext, error) {
	credential, fromHeader, err := extractCredential(r)
	if err != nil {
		return nil, err
	}

	var rc *RequestContext
	if tag, secret, ok := splitAPIKey(credential); ok {
		rc, err = g.authenticateAPIKey(ctx, tag, secret, r)
	} else if fromHeader == headerAuthorization {
		rc, err = g.authenticateJWT(credential)
	} else {
		// X-API-Key was present but isn't shaped like a key.
		err = traceerr.Validation("malformed API key")
	}
	if err != nil {
		return nil, err
	}

	allowed, budget := g.limiter.Allow(rc.ActorID)
	rc.RateBudget = budget
	if !allowed {
		return nil, traceerr.RateLimit(int(budget.ResetAfter.Seconds()))
	}
	return rc, nil
}

type credentialSource int

const (
	headerNone credentialSource = iota
	headerAuthorization
	headerAPIKey
)

func extractCredential(r *http.Request) (string, credentialSource, error) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", headerNone, traceerr.Validation("Authorization header must be 'Bearer <token>'")
		}
		return parts[1], headerAuthorization, nil
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key, headerAPIKey, nil
	}
	return "", headerNone, traceerr.PermissionDenied("missing Authorization or X-API-Key header")
}

func (g *Gate) authenticateJWT(tokenStr string) (*RequestContext, error) {
	claims, err := g.tokens.ValidateToken(tokenStr)
	if err != nil {
		return nil, traceerr.PermissionDenied("invalid or expired token: %v", err)
	}
	if claims.Subject == "" {
		return nil, traceerr.PermissionDenied("token subject is required")
	}
	return &RequestContext{
		ActorID:     claims.Subject,
		ActorType:   claims.Type,
		Permissions: claims.Permissions,
	}, nil
}

func (g *Gate) authenticateAPIKey(ctx context.Context, tag, secret string, r *http.Request) (*RequestContext, error) {
	if g.keys == nil {
		return nil, traceerr.PermissionDenied("API key authentication not configured")
	}
	key, err := g.keys.GetByTag(ctx, tag)
	if err != nil {
		return nil, traceerr.PermissionDenied("unknown API key")
	}
	if key.Revoked {
		return nil, traceerr.PermissionDenied("API key revoked")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(key.SecretHash), []byte(secret)); err != nil {
		return nil, traceerr.PermissionDenied("invalid API key")
	}
	if !ipAllowed(remoteIP(r), key.IPAllowlist) {
		return nil, traceerr.PermissionDenied("source IP not in key's allowlist")
	}
	return &RequestContext{
		ActorID:     key.ActorID,
		ActorType:   identity.PrincipalService,
		Permissions: key.Permissions,
	}, nil
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.Trim(r.RemoteAddr, "[]")
	}
	return host
}
