package social

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	auth "github.com/stackpane/go-starter-auth"
)

// Authenticator orchestrates OAuth sign-in flows: redirect, callback,
// sign-in gate, account linking, and token minting.
type Authenticator struct {
	providers map[string]Provider
	state     StateManager
	accounts  LinkedAccountRepository
	users     auth.Users
	gate      *auth.SignInGate
	core      *auth.Auther
	config    Config
	logger    auth.Logger
}

// Config configures the social authenticator. Flags is the same switchboard
// the credential flows honor: a registered provider whose flag is off refuses
// both BeginAuth and CompleteAuth.
type Config struct {
	BaseURL            string
	DefaultRedirectURL string
	StateHMACKey       []byte
	StateTTL           time.Duration
	Flags              auth.ProviderFlags
}

// Option configures the social authenticator.
type Option func(*Authenticator)

// NewAuthenticator creates a new social authenticator.
func NewAuthenticator(
	accounts LinkedAccountRepository,
	users auth.Users,
	gate *auth.SignInGate,
	core *auth.Auther,
	config Config,
	opts ...Option,
) *Authenticator {
	cfg := config
	if cfg.StateTTL == 0 {
		cfg.StateTTL = 10 * time.Minute
	}
	if cfg.DefaultRedirectURL == "" {
		cfg.DefaultRedirectURL = "/"
	}

	sa := &Authenticator{
		providers: make(map[string]Provider),
		accounts:  accounts,
		users:     users,
		gate:      gate,
		core:      core,
		config:    cfg,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sa)
		}
	}

	if sa.state == nil {
		sa.state = NewSignedStateManager(cfg.StateHMACKey, cfg.StateTTL)
	}

	if sa.logger == nil {
		sa.logger = auth.NewLogger()
	}

	return sa
}

// WithProvider registers a social provider.
func WithProvider(provider Provider) Option {
	return func(sa *Authenticator) {
		if provider == nil {
			return
		}
		sa.providers[provider.Name()] = provider
	}
}

// WithStateManager sets a custom state manager.
func WithStateManager(sm StateManager) Option {
	return func(sa *Authenticator) {
		sa.state = sm
	}
}

// WithLogger sets the logger.
func WithLogger(logger auth.Logger) Option {
	return func(sa *Authenticator) {
		sa.logger = logger
	}
}

// AuthRedirect contains the authorization URL for redirecting users.
type AuthRedirect struct {
	URL      string
	State    string
	Provider string
}

// AuthResult contains the result of a successful authentication.
type AuthResult struct {
	User        auth.Identity
	Token       string
	IsNewUser   bool
	Provider    string
	RedirectURL string
	Warning     string
}

// BeginAuth starts the OAuth flow for a provider. The returned redirect URL
// carries a signed state token with the PKCE verifier baked in, so the
// callback is self-contained and needs no server-side session.
func (sa *Authenticator) BeginAuth(ctx context.Context, providerName, redirectURL string) (*AuthRedirect, error) {
	if !sa.providerEnabled(providerName) {
		return nil, auth.ErrMethodDisabled
	}

	provider, ok := sa.providers[providerName]
	if !ok {
		return nil, errors.Wrap(ErrProviderNotFound, errors.CategoryNotFound, "unknown provider").
			WithTextCode(ErrProviderNotFound.TextCode).
			WithMetadata(map[string]any{"provider": providerName})
	}

	if redirectURL == "" {
		redirectURL = sa.config.DefaultRedirectURL
	}

	pkce, err := NewPKCE()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to generate pkce pair")
	}

	state := &OAuthState{
		Provider:     providerName,
		CodeVerifier: pkce.Verifier,
		RedirectURL:  redirectURL,
		IssuedAt:     time.Now().Unix(),
		ExpiresAt:    time.Now().Add(sa.config.StateTTL).Unix(),
	}

	stateToken, err := sa.state.Encode(state)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to encode oauth state")
	}

	return &AuthRedirect{
		URL:      provider.AuthCodeURL(stateToken, pkce.AuthCodeOptions()...),
		State:    stateToken,
		Provider: providerName,
	}, nil
}

// CompleteAuth finishes the OAuth flow after the provider callback.
//
// The profile runs through the sign-in gate before anything is persisted:
// an identity without a usable email is rejected here, first-time users are
// created and granted the default role, and returning users get their
// profile backfilled. The linked account upsert is keyed on the provider
// identity, so repeated sign-ins refresh rather than duplicate.
func (sa *Authenticator) CompleteAuth(ctx context.Context, providerName, code, stateToken string) (*AuthResult, error) {
	if !sa.providerEnabled(providerName) {
		return nil, auth.ErrMethodDisabled
	}

	state, err := sa.state.Decode(stateToken)
	if err != nil {
		return nil, err
	}

	if state.Provider != providerName {
		return nil, ErrInvalidState
	}

	provider, ok := sa.providers[providerName]
	if !ok {
		return nil, errors.Wrap(ErrProviderNotFound, errors.CategoryNotFound, "unknown provider").
			WithTextCode(ErrProviderNotFound.TextCode).
			WithMetadata(map[string]any{"provider": providerName})
	}

	token, err := provider.Exchange(ctx, code, VerifierOption(state.CodeVerifier))
	if err != nil {
		return nil, err
	}

	profile, err := provider.Profile(ctx, token)
	if err != nil {
		return nil, err
	}

	gateResult, err := sa.gate.Check(ctx, auth.SignInAttempt{
		Email:        profile.Email,
		Provider:     providerName,
		ProviderType: auth.ProviderTypeOAuth,
		Profile: &auth.ProviderProfile{
			Name:      profile.Name,
			AvatarURL: profile.AvatarURL,
		},
	})
	if err != nil {
		return nil, err
	}

	user := gateResult.User
	isNewUser := gateResult.State == auth.GateOAuthNewUser
	warning := gateResult.RoleAssignmentWarning

	if user == nil {
		created, err := sa.users.GetOrCreate(ctx, &auth.User{
			Email:     auth.NormalizeEmail(profile.Email),
			Name:      profile.Name,
			AvatarURL: profile.AvatarURL,
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create oauth user")
		}
		user = created

		if isNewUser {
			hookResult := sa.gate.HandleUserCreated(ctx, user)
			if hookResult.RoleAssignmentWarning != "" {
				warning = hookResult.RoleAssignmentWarning
			}
		}
	}

	account := &LinkedAccount{
		UserID:         user.ID.String(),
		Provider:       providerName,
		ProviderUserID: profile.ProviderUserID,
		Email:          profile.Email,
		Name:           profile.Name,
		AvatarURL:      profile.AvatarURL,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		account.TokenExpiresAt = &expiry
	}

	if err := sa.accounts.Upsert(ctx, account); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to save linked account")
	}

	identity := auth.NewIdentity(user.ID.String(), user.Email, user.Name, user.AvatarURL, nil)

	claims, err := sa.core.ClaimsBuilder().Build(ctx, nil, &auth.SignInResult{
		Identity:     identity,
		Provider:     providerName,
		ProviderType: auth.ProviderTypeOAuth,
	})
	if err != nil {
		return nil, err
	}

	jwtToken, err := sa.core.TokenService().SignClaims(claims)
	if err != nil {
		return nil, err
	}

	if warning != "" {
		sa.logger.Warn("oauth sign-in for %s proceeded with degraded bookkeeping: %s", profile.Email, warning)
	}

	return &AuthResult{
		User:        identity,
		Token:       jwtToken,
		IsNewUser:   isNewUser,
		Provider:    providerName,
		RedirectURL: state.RedirectURL,
		Warning:     warning,
	}, nil
}

// providerEnabled consults the sign-in switchboard. Only the stock providers
// have named flags; custom providers are governed by registration alone.
func (sa *Authenticator) providerEnabled(name string) bool {
	switch name {
	case "google":
		return sa.config.Flags.EnableGoogleAuth
	case "github":
		return sa.config.Flags.EnableGithubAuth
	default:
		return true
	}
}

// ListProviders returns the registered provider names.
func (sa *Authenticator) ListProviders() []string {
	names := make([]string, 0, len(sa.providers))
	for name := range sa.providers {
		names = append(names, name)
	}
	return names
}
