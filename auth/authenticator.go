package auth

import (
	"collab-gateway/contract"
	"collab-gateway/domain"
	"collab-gateway/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

var _ contract.Authenticator = (*Authenticator)(nil)

// Authenticator validates the credential of a handshake and resolves the
// principal it references. It never creates state on failure.
type Authenticator struct {
	log        *slog.Logger
	tokens     TokenIssuer
	principals contract.PrincipalStore
	cache      *expirable.LRU[domain.PrincipalID, domain.Principal]
}

// NewAuthenticator builds an Authenticator. A cacheTTL of zero disables the
// principal cache, so every handshake reaches the principal store.
func NewAuthenticator(log *slog.Logger, tokens TokenIssuer, principals contract.PrincipalStore,
	cacheSize int, cacheTTL time.Duration) *Authenticator {
	a := &Authenticator{log: log, tokens: tokens, principals: principals}
	if cacheTTL > 0 && cacheSize > 0 {
		a.cache = expirable.NewLRU[domain.PrincipalID, domain.Principal](cacheSize, nil, cacheTTL)
	}
	return a
}

func (a *Authenticator) Authenticate(ctx context.Context, rawToken string) (domain.Principal, error) {
	rawToken = strings.TrimSpace(strings.TrimPrefix(rawToken, "Bearer "))
	if rawToken == "" {
		return domain.Principal{}, fmt.Errorf("%w: empty credential", errors.ErrInvalidToken)
	}

	claims, err := a.tokens.ValidateToken(rawToken)
	if err != nil {
		a.log.Warn("Handshake credential rejected", "error", err)
		return domain.Principal{}, err
	}

	principalID := domain.PrincipalID(claims.Subject)
	if a.cache != nil {
		if principal, ok := a.cache.Get(principalID); ok {
			return principal, nil
		}
	}

	principal, err := a.principals.LookupPrincipal(ctx, principalID)
	switch {
	case stderrors.Is(err, errors.ErrUnknownPrincipal):
		a.log.Warn("Handshake for unknown principal", "principal_id", principalID)
		return domain.Principal{}, err
	case err != nil:
		a.log.Error("Principal lookup failed", "principal_id", principalID, "error", err)
		return domain.Principal{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}

	if a.cache != nil {
		a.cache.Add(principalID, principal)
	}
	return principal, nil
}
