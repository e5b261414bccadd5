package auth

import (
	"context"
)

// ProviderType discriminates how a sign-in was performed
type ProviderType string

const (
	// ProviderTypeCredentials is the email+password form
	ProviderTypeCredentials ProviderType = "credentials"
	// ProviderTypeMagicLink is the email-only out-of-band link
	ProviderTypeMagicLink ProviderType = "magic-link"
	// ProviderTypeOAuth covers redirect-callback providers
	ProviderTypeOAuth ProviderType = "oauth"
)

// IsOAuth reports whether the provider type is an OAuth provider
func (p ProviderType) IsOAuth() bool {
	return p == ProviderTypeOAuth
}

// SignInResult is the outcome of a verified sign-in, the input to claims
// building.
type SignInResult struct {
	Identity     Identity
	Provider     string
	ProviderType ProviderType
}

// ClaimsBuilder assembles token claims on sign-in. It runs only when the
// framework signals a fresh sign-in, never per request.
type ClaimsBuilder struct {
	tokens *TokenServiceImpl
	roles  RoleStore
	logger Logger
}

// NewClaimsBuilder creates a ClaimsBuilder
func NewClaimsBuilder(tokens *TokenServiceImpl, roles RoleStore, logger Logger) *ClaimsBuilder {
	if logger == nil {
		logger = defLogger{}
	}
	return &ClaimsBuilder{
		tokens: tokens,
		roles:  roles,
		logger: logger,
	}
}

// Build returns the claims for the session token.
//
//   - signin nil: token refresh with no new sign-in, prev is returned
//     unchanged; claims stay sticky until the next sign-in.
//   - credentials/magic-link: the roles resolved during verification travel
//     on the identity and are copied verbatim, no extra store round-trip.
//   - OAuth: the incoming identity's role list is never trusted; roles are
//     re-fetched from the store. A fetch failure degrades to an empty role
//     slice, not to the stale incoming list.
func (b *ClaimsBuilder) Build(ctx context.Context, prev *TokenClaims, signin *SignInResult) (*TokenClaims, error) {
	if signin == nil || signin.Identity == nil {
		return prev, nil
	}

	claims := b.tokens.NewClaims(signin.Identity)

	if signin.ProviderType.IsOAuth() {
		claims.Roles = b.fetchRoles(ctx, signin.Identity)
		return claims, nil
	}

	roles := signin.Identity.Roles()
	if roles == nil {
		roles = []string{}
	}
	claims.Roles = roles

	return claims, nil
}

func (b *ClaimsBuilder) fetchRoles(ctx context.Context, identity Identity) []string {
	id, err := parseUserUUID(identity.ID())
	if err != nil {
		b.logger.Warn("claims builder could not parse user id %q, issuing empty roles: %s", identity.ID(), err)
		return []string{}
	}

	roles, err := b.roles.RolesFor(ctx, id)
	if err != nil {
		b.logger.Warn("claims builder role fetch for %s failed, issuing empty roles: %s", identity.ID(), err)
		return []string{}
	}

	if roles == nil {
		roles = []string{}
	}

	return roles
}
