package auth_test

import (
	"context"
	"errors"
	"testing"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	auth "github.com/stackpane/go-starter-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignInGatePasswordAttemptsPassThrough(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserStore)
	roles := new(MockRoleStore)
	gate := auth.NewSignInGate(users, roles, nil)

	result, err := gate.Check(ctx, auth.SignInAttempt{
		Email:        "someone@example.com",
		Provider:     "credentials",
		ProviderType: auth.ProviderTypeCredentials,
	})

	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, auth.GateNotOAuth, result.State)
	assert.Empty(t, result.RoleAssignmentWarning)

	// non-OAuth attempts never touch the stores
	users.AssertNotCalled(t, "GetByEmail")
	roles.AssertNotCalled(t, "RolesFor")
}

func TestSignInGateMagicLinkPassesThrough(t *testing.T) {
	gate := auth.NewSignInGate(new(MockUserStore), new(MockRoleStore), nil)

	result, err := gate.Check(context.Background(), auth.SignInAttempt{
		Email:        "someone@example.com",
		Provider:     "magic-link",
		ProviderType: auth.ProviderTypeMagicLink,
	})

	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, auth.GateNotOAuth, result.State)
}

func TestSignInGateRejectsOAuthWithoutEmail(t *testing.T) {
	gate := auth.NewSignInGate(new(MockUserStore), new(MockRoleStore), nil)

	t.Run("github gets the public email hint", func(t *testing.T) {
		result, err := gate.Check(context.Background(), auth.SignInAttempt{
			Email:        "   ",
			Provider:     "github",
			ProviderType: auth.ProviderTypeOAuth,
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNoProviderEmail)
		assert.False(t, result.Allowed)
		assert.Equal(t, auth.GateOAuthNoEmail, result.State)
		assert.True(t, result.HintPublicEmail)
	})

	t.Run("other providers get no hint", func(t *testing.T) {
		result, err := gate.Check(context.Background(), auth.SignInAttempt{
			Provider:     "google",
			ProviderType: auth.ProviderTypeOAuth,
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNoProviderEmail)
		assert.False(t, result.Allowed)
		assert.False(t, result.HintPublicEmail)
	})
}

func TestSignInGateNewOAuthUser(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserStore)
	roles := new(MockRoleStore)
	gate := auth.NewSignInGate(users, roles, nil)

	users.On("GetByEmail", ctx, "new@example.com").
		Return(nil, repository.NewRecordNotFound()).Once()

	result, err := gate.Check(ctx, auth.SignInAttempt{
		Email:        "New@Example.com",
		Provider:     "google",
		ProviderType: auth.ProviderTypeOAuth,
	})

	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, auth.GateOAuthNewUser, result.State)
	assert.Nil(t, result.User)

	users.AssertExpectations(t)
	// role grant happens in HandleUserCreated, after the record exists
	roles.AssertNotCalled(t, "Assign")
}

func TestSignInGateLookupFailureAllowsWithWarning(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserStore)
	gate := auth.NewSignInGate(users, new(MockRoleStore), nil)

	users.On("GetByEmail", ctx, "someone@example.com").
		Return(nil, errors.New("connection refused")).Once()

	result, err := gate.Check(ctx, auth.SignInAttempt{
		Email:        "someone@example.com",
		Provider:     "google",
		ProviderType: auth.ProviderTypeOAuth,
	})

	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Contains(t, result.RoleAssignmentWarning, "user lookup failed")

	users.AssertExpectations(t)
}

func TestSignInGateExistingUser(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("user with roles, nothing to do", func(t *testing.T) {
		users := new(MockUserStore)
		roles := new(MockRoleStore)
		gate := auth.NewSignInGate(users, roles, nil)

		user := &auth.User{ID: userID, Email: "someone@example.com", Name: "Someone"}
		users.On("GetByEmail", ctx, "someone@example.com").Return(user, nil).Once()
		roles.On("RolesFor", ctx, userID).Return([]string{"user"}, nil).Once()

		result, err := gate.Check(ctx, auth.SignInAttempt{
			Email:        "someone@example.com",
			Provider:     "google",
			ProviderType: auth.ProviderTypeOAuth,
		})

		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, auth.GateOAuthExistingUser, result.State)
		assert.Equal(t, user, result.User)
		assert.Empty(t, result.RoleAssignmentWarning)

		roles.AssertNotCalled(t, "Assign")
		users.AssertExpectations(t)
		roles.AssertExpectations(t)
	})

	t.Run("user with zero roles gets the default", func(t *testing.T) {
		users := new(MockUserStore)
		roles := new(MockRoleStore)
		gate := auth.NewSignInGate(users, roles, nil)

		user := &auth.User{ID: userID, Email: "someone@example.com", Name: "Someone"}
		users.On("GetByEmail", ctx, "someone@example.com").Return(user, nil).Once()
		roles.On("RolesFor", ctx, userID).Return([]string{}, nil).Once()
		roles.On("Assign", ctx, userID, auth.RoleUser).Return(nil).Once()

		result, err := gate.Check(ctx, auth.SignInAttempt{
			Email:        "someone@example.com",
			Provider:     "google",
			ProviderType: auth.ProviderTypeOAuth,
		})

		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Empty(t, result.RoleAssignmentWarning)

		roles.AssertExpectations(t)
	})

	t.Run("role fetch failure is treated as no roles", func(t *testing.T) {
		users := new(MockUserStore)
		roles := new(MockRoleStore)
		gate := auth.NewSignInGate(users, roles, nil)

		user := &auth.User{ID: userID, Email: "someone@example.com", Name: "Someone"}
		users.On("GetByEmail", ctx, "someone@example.com").Return(user, nil).Once()
		roles.On("RolesFor", ctx, userID).Return(nil, errors.New("timeout")).Once()
		roles.On("Assign", ctx, userID, auth.RoleUser).Return(nil).Once()

		result, err := gate.Check(ctx, auth.SignInAttempt{
			Email:        "someone@example.com",
			Provider:     "google",
			ProviderType: auth.ProviderTypeOAuth,
		})

		require.NoError(t, err)
		assert.True(t, result.Allowed)

		roles.AssertExpectations(t)
	})

	t.Run("role grant failure never blocks the sign-in", func(t *testing.T) {
		users := new(MockUserStore)
		roles := new(MockRoleStore)
		gate := auth.NewSignInGate(users, roles, nil)

		user := &auth.User{ID: userID, Email: "someone@example.com", Name: "Someone"}
		users.On("GetByEmail", ctx, "someone@example.com").Return(user, nil).Once()
		roles.On("RolesFor", ctx, userID).Return([]string{}, nil).Once()
		roles.On("Assign", ctx, userID, auth.RoleUser).Return(errors.New("deadlock")).Once()

		result, err := gate.Check(ctx, auth.SignInAttempt{
			Email:        "someone@example.com",
			Provider:     "google",
			ProviderType: auth.ProviderTypeOAuth,
		})

		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Contains(t, result.RoleAssignmentWarning, "default role grant failed")

		roles.AssertExpectations(t)
	})
}

func TestSignInGateProfileBackfill(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("name is set once, avatar refreshes on change", func(t *testing.T) {
		users := new(MockUserStore)
		roles := new(MockRoleStore)
		gate := auth.NewSignInGate(users, roles, nil)

		user := &auth.User{ID: userID, Email: "someone@example.com"}
		users.On("GetByEmail", ctx, "someone@example.com").Return(user, nil).Once()
		roles.On("RolesFor", ctx, userID).Return([]string{"user"}, nil).Once()
		users.On("Update", ctx, user).Return(user, nil).Once()

		result, err := gate.Check(ctx, auth.SignInAttempt{
			Email:        "someone@example.com",
			Provider:     "google",
			ProviderType: auth.ProviderTypeOAuth,
			Profile: &auth.ProviderProfile{
				Name:      "Provider Name",
				AvatarURL: "https://cdn.example.com/a.png",
			},
		})

		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, "Provider Name", user.Name)
		assert.Equal(t, "https://cdn.example.com/a.png", user.AvatarURL)

		users.AssertExpectations(t)
	})

	t.Run("existing name is never overwritten", func(t *testing.T) {
		users := new(MockUserStore)
		roles := new(MockRoleStore)
		gate := auth.NewSignInGate(users, roles, nil)

		user := &auth.User{
			ID:        userID,
			Email:     "someone@example.com",
			Name:      "Chosen Name",
			AvatarURL: "https://cdn.example.com/old.png",
		}
		users.On("GetByEmail", ctx, "someone@example.com").Return(user, nil).Once()
		roles.On("RolesFor", ctx, userID).Return([]string{"user"}, nil).Once()
		users.On("Update", ctx, user).Return(user, nil).Once()

		_, err := gate.Check(ctx, auth.SignInAttempt{
			Email:        "someone@example.com",
			Provider:     "google",
			ProviderType: auth.ProviderTypeOAuth,
			Profile: &auth.ProviderProfile{
				Name:      "Provider Name",
				AvatarURL: "https://cdn.example.com/new.png",
			},
		})

		require.NoError(t, err)
		assert.Equal(t, "Chosen Name", user.Name)
		assert.Equal(t, "https://cdn.example.com/new.png", user.AvatarURL)
	})

	t.Run("identical profile is a no-op", func(t *testing.T) {
		users := new(MockUserStore)
		roles := new(MockRoleStore)
		gate := auth.NewSignInGate(users, roles, nil)

		user := &auth.User{
			ID:        userID,
			Email:     "someone@example.com",
			Name:      "Someone",
			AvatarURL: "https://cdn.example.com/a.png",
		}
		users.On("GetByEmail", ctx, "someone@example.com").Return(user, nil).Once()
		roles.On("RolesFor", ctx, userID).Return([]string{"user"}, nil).Once()

		_, err := gate.Check(ctx, auth.SignInAttempt{
			Email:        "someone@example.com",
			Provider:     "google",
			ProviderType: auth.ProviderTypeOAuth,
			Profile: &auth.ProviderProfile{
				Name:      "Someone",
				AvatarURL: "https://cdn.example.com/a.png",
			},
		})

		require.NoError(t, err)
		users.AssertNotCalled(t, "Update")
	})

	t.Run("backfill failure is a warning, not a block", func(t *testing.T) {
		users := new(MockUserStore)
		roles := new(MockRoleStore)
		gate := auth.NewSignInGate(users, roles, nil)

		user := &auth.User{ID: userID, Email: "someone@example.com"}
		users.On("GetByEmail", ctx, "someone@example.com").Return(user, nil).Once()
		roles.On("RolesFor", ctx, userID).Return([]string{"user"}, nil).Once()
		users.On("Update", ctx, user).Return(nil, errors.New("write failed")).Once()

		result, err := gate.Check(ctx, auth.SignInAttempt{
			Email:        "someone@example.com",
			Provider:     "google",
			ProviderType: auth.ProviderTypeOAuth,
			Profile:      &auth.ProviderProfile{Name: "Provider Name"},
		})

		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Contains(t, result.RoleAssignmentWarning, "profile backfill failed")
	})
}

func TestSignInGateHandleUserCreated(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("grants the default role", func(t *testing.T) {
		roles := new(MockRoleStore)
		gate := auth.NewSignInGate(new(MockUserStore), roles, nil)

		roles.On("Assign", ctx, userID, auth.RoleUser).Return(nil).Once()

		result := gate.HandleUserCreated(ctx, &auth.User{ID: userID})

		assert.True(t, result.Allowed)
		assert.Equal(t, auth.GateOAuthNewUser, result.State)
		assert.Empty(t, result.RoleAssignmentWarning)

		roles.AssertExpectations(t)
	})

	t.Run("grant failure surfaces as warning", func(t *testing.T) {
		roles := new(MockRoleStore)
		gate := auth.NewSignInGate(new(MockUserStore), roles, nil)

		roles.On("Assign", ctx, userID, auth.RoleUser).Return(errors.New("deadlock")).Once()

		result := gate.HandleUserCreated(ctx, &auth.User{ID: userID})

		assert.True(t, result.Allowed)
		assert.Contains(t, result.RoleAssignmentWarning, "default role grant failed")
	})

	t.Run("nil user is a no-op", func(t *testing.T) {
		roles := new(MockRoleStore)
		gate := auth.NewSignInGate(new(MockUserStore), roles, nil)

		result := gate.HandleUserCreated(ctx, nil)

		assert.True(t, result.Allowed)
		roles.AssertNotCalled(t, "Assign")
	})
}
