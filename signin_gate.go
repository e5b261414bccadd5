package auth

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// GateState is the sign-in gate's decision state
type GateState string

const (
	// GateNotOAuth is the unconditional pass-through for password and
	// magic-link attempts
	GateNotOAuth GateState = "not_oauth"
	// GateOAuthNoEmail rejects OAuth identities without a usable email
	GateOAuthNoEmail GateState = "oauth_no_email"
	// GateOAuthExistingUser links the attempt to a known local user
	GateOAuthExistingUser GateState = "oauth_existing_user"
	// GateOAuthNewUser lets the surrounding auth layer create the user
	GateOAuthNewUser GateState = "oauth_new_user"
)

// SignInAttempt is the input to the gate
type SignInAttempt struct {
	Email        string
	Provider     string
	ProviderType ProviderType
	Profile      *ProviderProfile
}

// ProviderProfile is the optional OAuth profile payload used for
// opportunistic backfill.
type ProviderProfile struct {
	Name      string
	AvatarURL string
}

func (a SignInAttempt) state() GateState {
	if !a.ProviderType.IsOAuth() {
		return GateNotOAuth
	}
	if strings.TrimSpace(a.Email) == "" {
		return GateOAuthNoEmail
	}
	return GateOAuthExistingUser
}

// GateResult is the typed outcome of a gate check. RoleAssignmentWarning
// carries the degraded path that would otherwise be invisible: a store
// failure during first-touch bookkeeping that did not block the sign-in.
type GateResult struct {
	Allowed               bool
	State                 GateState
	User                  *User
	HintPublicEmail       bool
	RoleAssignmentWarning string
}

// GateUserStore is the slice of the users repository the gate needs.
type GateUserStore interface {
	GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*User, error)
	Update(ctx context.Context, record *User, criteria ...repository.UpdateCriteria) (*User, error)
}

// GateRoleStore is the slice of the roles repository the gate needs.
type GateRoleStore interface {
	RoleStore
	Assign(ctx context.Context, userID uuid.UUID, role string) error
}

// SignInGate decides whether a sign-in attempt may proceed and performs
// first-time linking and role-assignment side effects for OAuth identities.
type SignInGate struct {
	users  GateUserStore
	roles  GateRoleStore
	logger Logger
}

// NewSignInGate creates a SignInGate
func NewSignInGate(users GateUserStore, roles GateRoleStore, logger Logger) *SignInGate {
	if logger == nil {
		logger = defLogger{}
	}
	return &SignInGate{
		users:  users,
		roles:  roles,
		logger: logger,
	}
}

// Check runs the gate state machine for one sign-in attempt.
//
// Non-OAuth attempts pass through without touching the role store. OAuth
// attempts without a usable email are rejected with ErrNoProviderEmail.
// For OAuth attempts with an email, the gate links to the existing user and
// performs bookkeeping (default role when the user holds none, profile
// backfill); any store failure along that path is logged, recorded on
// RoleAssignmentWarning, and the sign-in still succeeds. Availability wins
// over consistency here: a transient role-assignment failure must never
// block a legitimate sign-in.
func (g *SignInGate) Check(ctx context.Context, attempt SignInAttempt) (*GateResult, error) {
	state := attempt.state()

	switch state {
	case GateNotOAuth:
		return &GateResult{Allowed: true, State: state}, nil

	case GateOAuthNoEmail:
		hint := attempt.Provider == "github"
		if hint {
			g.logger.Warn("oauth sign-in rejected, no usable email from %s; user must make their github email public", attempt.Provider)
		} else {
			g.logger.Warn("oauth sign-in rejected, no usable email from %s", attempt.Provider)
		}
		return &GateResult{Allowed: false, State: state, HintPublicEmail: hint},
			errors.Wrap(ErrNoProviderEmail, errors.CategoryAuth, "oauth identity has no usable email").
				WithTextCode(TextCodeNoProviderEmail).
				WithMetadata(map[string]any{"provider": attempt.Provider})
	}

	user, err := g.users.GetByEmail(ctx, NormalizeEmail(attempt.Email))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// brand-new OAuth user; creation and the default role grant
			// happen in HandleUserCreated after the auth layer inserts
			// the record
			return &GateResult{Allowed: true, State: GateOAuthNewUser}, nil
		}

		g.logger.Warn("sign-in gate user lookup failed, allowing sign-in without bookkeeping: %s", err)
		return &GateResult{
			Allowed:               true,
			State:                 GateOAuthExistingUser,
			RoleAssignmentWarning: "user lookup failed: " + err.Error(),
		}, nil
	}

	result := &GateResult{Allowed: true, State: GateOAuthExistingUser, User: user}
	var warnings []string

	if warn := g.ensureDefaultRole(ctx, user.ID); warn != "" {
		warnings = append(warnings, warn)
	}

	if attempt.Profile != nil {
		if warn := g.backfillProfile(ctx, user, attempt.Profile); warn != "" {
			warnings = append(warnings, warn)
		}
	}

	result.RoleAssignmentWarning = strings.Join(warnings, "; ")
	return result, nil
}

// HandleUserCreated is the post-creation hook for brand-new OAuth users. It
// grants the default role and follows the same never-block policy as Check.
func (g *SignInGate) HandleUserCreated(ctx context.Context, user *User) *GateResult {
	result := &GateResult{Allowed: true, State: GateOAuthNewUser, User: user}
	if user == nil {
		return result
	}

	if err := g.roles.Assign(ctx, user.ID, RoleUser); err != nil {
		g.logger.Warn("default role grant for new oauth user %s failed: %s", user.ID, err)
		result.RoleAssignmentWarning = "default role grant failed: " + err.Error()
	}

	return result
}

// ensureDefaultRole grants "user" when the account holds zero roles. The
// grant itself is an idempotent upsert, so racing sign-ins collapse into a
// single row.
func (g *SignInGate) ensureDefaultRole(ctx context.Context, userID uuid.UUID) string {
	roles, err := g.roles.RolesFor(ctx, userID)
	if err != nil {
		// a fetch failure counts as "no roles" here, the assignment below
		// is idempotent either way
		g.logger.Warn("sign-in gate role fetch for %s failed, treating as no roles: %s", userID, err)
		roles = nil
	}

	if len(roles) > 0 {
		return ""
	}

	if err := g.roles.Assign(ctx, userID, RoleUser); err != nil {
		g.logger.Warn("default role grant for %s failed, sign-in proceeds without roles: %s", userID, err)
		return "default role grant failed: " + err.Error()
	}

	return ""
}

// backfillProfile sets the display name once and refreshes the avatar on
// every sign-in when the incoming value differs.
func (g *SignInGate) backfillProfile(ctx context.Context, user *User, profile *ProviderProfile) string {
	dirty := false

	if user.Name == "" && profile.Name != "" {
		user.Name = profile.Name
		dirty = true
	}

	if profile.AvatarURL != "" && user.AvatarURL != profile.AvatarURL {
		user.AvatarURL = profile.AvatarURL
		dirty = true
	}

	if !dirty {
		return ""
	}

	if _, err := g.users.Update(ctx, user, repository.UpdateByID(user.ID.String())); err != nil {
		g.logger.Warn("profile backfill for %s failed, sign-in proceeds: %s", user.ID, err)
		return "profile backfill failed: " + err.Error()
	}

	return ""
}
