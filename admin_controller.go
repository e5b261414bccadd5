package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// AdminController is the role management surface. Every route is expected to
// be mounted behind RequireRole(RoleAdmin).
type AdminController struct {
	Repo   RepositoryManager
	Logger Logger
}

func NewAdminController(repo RepositoryManager) *AdminController {
	return &AdminController{
		Repo:   repo,
		Logger: defLogger{},
	}
}

// RegisterAdminRoutes mounts the admin role endpoints behind the admin guard
func RegisterAdminRoutes[T any](app router.Router[T], guard HTTPAuthenticator, controller *AdminController) {
	admin := guard.RequireRole(RoleAdmin)

	app.Get("/admin/users/:id/roles", admin(controller.ListUserRoles)).
		SetName("admin.roles.list")
	app.Post("/admin/users/:id/roles", admin(controller.AssignRole)).
		SetName("admin.roles.assign")
	app.Delete("/admin/users/:id/roles/:role", admin(controller.RemoveRole)).
		SetName("admin.roles.remove")
}

// RoleAssignPayload names the role to grant
type RoleAssignPayload struct {
	Role string `form:"role" json:"role"`
}

// Validate will run validation rules
func (r RoleAssignPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, validation.Length(1, 100)),
	)
}

func (a *AdminController) ListUserRoles(ctx router.Context) error {
	userID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "invalid user id",
		})
	}

	names, err := a.Repo.Roles().RolesFor(ctx.Context(), userID)
	if err != nil {
		a.Logger.Error("admin list roles error: %s", err)
		return ctx.JSON(router.StatusInternalServerError, map[string]string{
			"error": "failed to list roles",
		})
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user_id": userID.String(),
		"roles":   names,
	})
}

func (a *AdminController) AssignRole(ctx router.Context) error {
	userID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "invalid user id",
		})
	}

	payload := new(RoleAssignPayload)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "failed to parse payload",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if err := a.Repo.Roles().Assign(ctx.Context(), userID, payload.Role); err != nil {
		return a.roleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"user_id": userID.String(),
		"role":    payload.Role,
	})
}

func (a *AdminController) RemoveRole(ctx router.Context) error {
	session, err := SessionFromLocals(ctx)
	if err != nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{
			"error": "missing session",
		})
	}

	actorID, err := session.GetUserUUID()
	if err != nil {
		return ctx.JSON(router.StatusUnauthorized, map[string]string{
			"error": "invalid session subject",
		})
	}

	userID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "invalid user id",
		})
	}

	role := ctx.Param("role", "")
	if role == "" {
		return ctx.JSON(router.StatusBadRequest, map[string]string{
			"error": "missing role",
		})
	}

	if err := a.Repo.Roles().Remove(ctx.Context(), actorID, userID, role); err != nil {
		return a.roleError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"user_id": userID.String(),
		"role":    role,
		"removed": true,
	})
}

// roleError maps the role-store sentinels to HTTP responses. The
// self-protection rules come back as 400s with their text code so the admin
// UI can explain what was blocked.
func (a *AdminController) roleError(ctx router.Context, err error) error {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		status := router.StatusBadRequest
		switch richErr.Category {
		case errors.CategoryNotFound:
			status = router.StatusNotFound
		case errors.CategoryInternal:
			status = router.StatusInternalServerError
		}

		return ctx.JSON(status, map[string]string{
			"error":     richErr.Message,
			"text_code": richErr.TextCode,
		})
	}

	a.Logger.Error("admin role operation error: %s", err)
	return ctx.JSON(router.StatusInternalServerError, map[string]string{
		"error": "role operation failed",
	})
}
