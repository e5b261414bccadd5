package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// UserTracker is a store we can use to retrieve users
type UserTracker interface {
	GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// UserProvider verifies password credentials against the user store.
//
// It deliberately collapses unknown email, password-less account, and wrong
// password into the same ErrMismatchedHashAndPassword so a caller cannot
// tell from the error shape which emails exist.
type UserProvider struct {
	store  UserTracker
	roles  RoleStore
	logger Logger
}

// MaxLoginAttempts is the maximun number of attempts a user gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserTracker, roles RoleStore) *UserProvider {
	return &UserProvider{
		store:  store,
		roles:  roles,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// VerifyIdentity will find the user, compare to the password, and return identity
func (u *UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, NormalizeEmail(identifier))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user == nil {
		return nil, ErrIdentityNotFound
	}

	// OAuth-only accounts have no hash and can never pass a password check
	if !user.HasPassword() {
		return nil, ErrMismatchedHashAndPassword
	}

	if user.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*user.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			user.LoginAttempts = 0
		}
	}

	//if we have too many attempts in the given window, cool off!
	if user.LoginAttempts > MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		// We have to increment the login_attempts counter and login_attempt_at
		if err2 := u.store.TrackAttemptedLogin(ctx, user); err2 != nil {
			return nil, errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
		}

		return nil, ErrMismatchedHashAndPassword
	}

	// reset the login_attempts counter and login_attempt_at
	if err := u.store.TrackSuccessfulLogin(ctx, user); err != nil {
		u.logger.Error("failed to track successful login: %s", err)
	}

	return u.identityFor(ctx, user), nil
}

func (u *UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, NormalizeEmail(identifier))
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, ErrIdentityNotFound
	}

	return u.identityFor(ctx, user), nil
}

// identityFor assembles the identity, resolving roles through the store. A
// role lookup failure degrades to an empty role list so a store hiccup does
// not block an otherwise valid sign-in.
func (u *UserProvider) identityFor(ctx context.Context, user *User) Identity {
	roleNames := []string{}

	if u.roles != nil {
		names, err := u.roles.RolesFor(ctx, user.ID)
		if err != nil {
			u.logger.Warn("role lookup for %s failed, issuing identity without roles: %s", user.ID, err)
		} else if names != nil {
			roleNames = names
		}
	}

	return authIdentity{
		id:        user.ID.String(),
		email:     user.Email,
		name:      user.Name,
		avatarURL: user.AvatarURL,
		roles:     roleNames,
	}
}

type authIdentity struct {
	id        string
	email     string
	name      string
	avatarURL string
	roles     []string
}

func (a authIdentity) ID() string {
	return a.id
}

func (a authIdentity) Email() string {
	return a.email
}

func (a authIdentity) Name() string {
	return a.name
}

func (a authIdentity) AvatarURL() string {
	return a.avatarURL
}

func (a authIdentity) Roles() []string {
	if a.roles == nil {
		return []string{}
	}
	return a.roles
}

var _ Identity = authIdentity{}

// NewIdentity builds an Identity from raw attributes. Social providers use
// it to hand profile data to the claims builder.
func NewIdentity(id, email, name, avatarURL string, roles []string) Identity {
	if roles == nil {
		roles = []string{}
	}
	return authIdentity{
		id:        id,
		email:     email,
		name:      name,
		avatarURL: avatarURL,
		roles:     roles,
	}
}
