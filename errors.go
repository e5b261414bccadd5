package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials = "auth_invalid_credentials"
	TextCodeIdentityNotFound   = "auth_identity_not_found"
	TextCodeTooManyAttempts    = "auth_too_many_attempts"
	TextCodeTokenExpired       = "auth_token_expired"
	TextCodeTokenMalformed     = "auth_token_malformed"
	TextCodeNoProviderEmail    = "auth_no_provider_email"
	TextCodeSelfAdminRemoval   = "auth_self_admin_removal"
	TextCodeLastAdmin          = "auth_last_admin"
	TextCodeProtectedRole      = "auth_protected_role"
	TextCodeRoleNotFound       = "auth_role_not_found"
	TextCodeMethodDisabled     = "auth_method_disabled"
)

// ErrInvalidCredentials is the single rejection for bad password, unknown
// user, password-less account, or a dead magic link. No variant leaks which
// case applied.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is the internal bcrypt mismatch; callers map
// it to ErrInvalidCredentials before it leaves the package.
var ErrMismatchedHashAndPassword = errors.New("mismatched hash and password", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

// ErrTooManyLoginAttempts enforces the login cooldown window
var ErrTooManyLoginAttempts = errors.New("too many login attempts", errors.CategoryAuth).
	WithTextCode(TextCodeTooManyAttempts).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned for expired session tokens
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for undecodable session tokens
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrNoProviderEmail rejects OAuth identities that expose no usable email
var ErrNoProviderEmail = errors.New("provider identity has no usable email", errors.CategoryAuth).
	WithTextCode(TextCodeNoProviderEmail).
	WithCode(errors.CodeUnauthorized)

// ErrSelfAdminRemoval blocks an actor from removing their own admin role
var ErrSelfAdminRemoval = errors.New("cannot remove your own admin role", errors.CategoryValidation).
	WithTextCode(TextCodeSelfAdminRemoval).
	WithCode(errors.CodeBadRequest)

// ErrLastAdmin blocks removal of the last admin assignment system-wide
var ErrLastAdmin = errors.New("cannot remove the last admin", errors.CategoryValidation).
	WithTextCode(TextCodeLastAdmin).
	WithCode(errors.CodeBadRequest)

// ErrProtectedRole blocks deletion of system roles
var ErrProtectedRole = errors.New("role is system-protected", errors.CategoryValidation).
	WithTextCode(TextCodeProtectedRole).
	WithCode(errors.CodeBadRequest)

// ErrRoleNotFound is returned when assigning an unknown role name
var ErrRoleNotFound = errors.New("role not found", errors.CategoryNotFound).
	WithTextCode(TextCodeRoleNotFound).
	WithCode(errors.CodeNotFound)

// ErrMethodDisabled is returned when a sign-in method is switched off in config
var ErrMethodDisabled = errors.New("sign-in method disabled", errors.CategoryAuth).
	WithTextCode(TextCodeMethodDisabled).
	WithCode(errors.CodeForbidden)

// ErrUnableToFindSession is the error when our request has no cookie
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty input where a value is required
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTokenExpired) ||
		strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
