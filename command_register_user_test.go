package auth_test

import (
	"context"
	"testing"

	"github.com/goliatone/hashid/pkg/hashid"
	auth "github.com/stackpane/go-starter-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUserHandler(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := auth.NewRepositoryManager(db)
	require.NoError(t, repo.Roles().EnsureDefaults(ctx))

	handler := auth.NewRegisterUserHandler(repo)

	t.Run("registers the user with the default role", func(t *testing.T) {
		err := handler.Execute(ctx, auth.RegisterUserMessage{
			Name:     "Frank",
			Email:    "  Frank@Example.com ",
			Password: "password123",
		})
		require.NoError(t, err)

		user, err := repo.Users().GetByEmail(ctx, "frank@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Frank", user.Name)
		assert.True(t, user.HasPassword())
		assert.NoError(t, auth.ComparePasswordAndHash("password123", user.PasswordHash))

		names, err := repo.Roles().RolesFor(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{auth.RoleUser}, names)
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		err := handler.Execute(ctx, auth.RegisterUserMessage{
			Email: "grace@example.com",
		})
		require.Error(t, err)

		_, err = repo.Users().GetByEmail(ctx, "grace@example.com")
		assert.Error(t, err) // nothing persisted
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		err := handler.Execute(ctx, auth.RegisterUserMessage{
			Email:    "frank@example.com",
			Password: "password123",
		})
		assert.Error(t, err)
	})

	t.Run("registration is atomic with the role grant", func(t *testing.T) {
		// no seeded roles: the default grant fails inside the transaction
		// and must take the user insert down with it
		bare := auth.NewRepositoryManager(setupTestDB(t))
		bareHandler := auth.NewRegisterUserHandler(bare)

		err := bareHandler.Execute(ctx, auth.RegisterUserMessage{
			Email:    "ivy@example.com",
			Password: "password123",
		})
		require.Error(t, err)

		_, err = bare.Users().GetByEmail(ctx, "ivy@example.com")
		assert.Error(t, err)
	})

	t.Run("hashid gives deterministic ids", func(t *testing.T) {
		err := handler.Execute(ctx, auth.RegisterUserMessage{
			Email:     "heidi@example.com",
			Password:  "password123",
			UseHashid: true,
		})
		require.NoError(t, err)

		user, err := repo.Users().GetByEmail(ctx, "heidi@example.com")
		require.NoError(t, err)

		expected, err := hashid.NewUUID("heidi@example.com")
		require.NoError(t, err)
		assert.Equal(t, expected, user.ID)
	})
}
