package auth_test

import (
	stderrors "errors"
	"testing"

	"github.com/goliatone/go-errors"
	auth "github.com/stackpane/go-starter-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelTextCodes(t *testing.T) {
	cases := []struct {
		err      error
		textCode string
	}{
		{auth.ErrInvalidCredentials, auth.TextCodeInvalidCredentials},
		{auth.ErrIdentityNotFound, auth.TextCodeIdentityNotFound},
		{auth.ErrTooManyLoginAttempts, auth.TextCodeTooManyAttempts},
		{auth.ErrTokenExpired, auth.TextCodeTokenExpired},
		{auth.ErrTokenMalformed, auth.TextCodeTokenMalformed},
		{auth.ErrNoProviderEmail, auth.TextCodeNoProviderEmail},
		{auth.ErrSelfAdminRemoval, auth.TextCodeSelfAdminRemoval},
		{auth.ErrLastAdmin, auth.TextCodeLastAdmin},
		{auth.ErrProtectedRole, auth.TextCodeProtectedRole},
		{auth.ErrRoleNotFound, auth.TextCodeRoleNotFound},
		{auth.ErrMethodDisabled, auth.TextCodeMethodDisabled},
	}

	for _, tc := range cases {
		t.Run(tc.textCode, func(t *testing.T) {
			var richErr *errors.Error
			require.True(t, errors.As(tc.err, &richErr))
			assert.Equal(t, tc.textCode, richErr.TextCode)
		})
	}
}

func TestSelfProtectionErrorsAreValidationCategory(t *testing.T) {
	for _, err := range []error{auth.ErrSelfAdminRemoval, auth.ErrLastAdmin, auth.ErrProtectedRole} {
		var richErr *errors.Error
		require.True(t, errors.As(err, &richErr))
		assert.Equal(t, errors.CategoryValidation, richErr.Category)
		assert.Equal(t, errors.CodeBadRequest, richErr.Code)
	}
}

func TestIsTokenExpiredError(t *testing.T) {
	assert.False(t, auth.IsTokenExpiredError(nil))
	assert.True(t, auth.IsTokenExpiredError(auth.ErrTokenExpired))
	assert.True(t, auth.IsTokenExpiredError(errors.Wrap(auth.ErrTokenExpired, errors.CategoryAuth, "wrapped")))
	assert.True(t, auth.IsTokenExpiredError(stderrors.New("token is expired by 3s")))
	assert.False(t, auth.IsTokenExpiredError(auth.ErrTokenMalformed))
}

func TestIsMalformedError(t *testing.T) {
	assert.False(t, auth.IsMalformedError(nil))
	assert.True(t, auth.IsMalformedError(auth.ErrTokenMalformed))
	assert.True(t, auth.IsMalformedError(stderrors.New("missing or malformed JWT")))
	assert.False(t, auth.IsMalformedError(auth.ErrTokenExpired))
}
