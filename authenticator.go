package auth

import (
	"context"
	"reflect"

	"github.com/goliatone/go-errors"
)

// Auther is the core authenticator: it verifies credentials, runs the
// sign-in gate, builds claims, and mints session tokens.
type Auther struct {
	provider      IdentityProvider
	gate          *SignInGate
	claimsBuilder *ClaimsBuilder
	tokenService  *TokenServiceImpl
	flags         ProviderFlags
	logger        Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, roles RoleStore, opts Config, flags ProviderFlags) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		provider:      provider,
		tokenService:  tokenService,
		claimsBuilder: NewClaimsBuilder(tokenService, roles, defLogger{}),
		flags:         flags,
		logger:        defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	s.tokenService.logger = logger
	s.claimsBuilder.logger = logger
	return s
}

// WithSignInGate attaches the sign-in gate so that OAuth and first-time
// bookkeeping run on every login path.
func (s *Auther) WithSignInGate(gate *SignInGate) *Auther {
	s.gate = gate
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// ClaimsBuilder returns the claims builder so social and magic-link flows
// share the same claim semantics.
func (s *Auther) ClaimsBuilder() *ClaimsBuilder {
	return s.claimsBuilder
}

// Login verifies email+password credentials and returns a signed session
// token. All credential failures surface as ErrInvalidCredentials; the
// caller learns nothing about which part failed.
func (s *Auther) Login(ctx context.Context, identifier, password string) (string, error) {
	if !s.flags.EnableEmailPassword {
		return "", ErrMethodDisabled
	}

	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error: %s", err)
		if errors.Is(err, ErrMismatchedHashAndPassword) || errors.Is(err, ErrIdentityNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		return "", ErrInvalidCredentials
	}

	return s.TokenForSignIn(ctx, &SignInResult{
		Identity:     identity,
		Provider:     "credentials",
		ProviderType: ProviderTypeCredentials,
	})
}

// TokenForSignIn runs the sign-in gate and mints a token for a verified
// sign-in. The magic-link and social flows call this after their own
// verification step.
func (s *Auther) TokenForSignIn(ctx context.Context, signin *SignInResult) (string, error) {
	if signin == nil || signin.Identity == nil {
		return "", ErrIdentityNotFound
	}

	if s.gate != nil {
		result, err := s.gate.Check(ctx, SignInAttempt{
			Email:        signin.Identity.Email(),
			Provider:     signin.Provider,
			ProviderType: signin.ProviderType,
			Profile: &ProviderProfile{
				Name:      signin.Identity.Name(),
				AvatarURL: signin.Identity.AvatarURL(),
			},
		})
		if err != nil {
			return "", err
		}

		if !result.Allowed {
			return "", ErrInvalidCredentials
		}

		if result.RoleAssignmentWarning != "" {
			s.logger.Warn("sign-in proceeded with degraded bookkeeping: %s", result.RoleAssignmentWarning)
		}
	}

	claims, err := s.claimsBuilder.Build(ctx, nil, signin)
	if err != nil {
		return "", err
	}

	return s.tokenService.SignClaims(claims)
}

// SessionFromToken validates a raw token and projects it into a session
func (s *Auther) SessionFromToken(raw string) (Session, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed: %s", err)
		return nil, err
	}

	session, err := sessionFromClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims: %s", err)
		return nil, err
	}

	return session, nil
}

// IdentityFromSession resolves the full identity behind a session
func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	identity, err := s.provider.FindIdentityByIdentifier(ctx, session.GetEmail())
	if err != nil {
		s.logger.Error("IdentityFromSession find identity by identifier: %s", err)
		return nil, err
	}

	return identity, nil
}

var _ Authenticator = (*Auther)(nil)
