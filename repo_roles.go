package auth

import (
	"context"
	"database/sql"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Roles is the persistence surface for roles and role assignments
type Roles interface {
	repository.Repository[*Role]

	GetByName(ctx context.Context, name string) (*Role, error)
	GetByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error)

	RolesFor(ctx context.Context, userID uuid.UUID) ([]string, error)
	HasRole(ctx context.Context, userID uuid.UUID, role string) (bool, error)

	Assign(ctx context.Context, userID uuid.UUID, role string) error
	AssignTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, role string) error
	Remove(ctx context.Context, actorID, userID uuid.UUID, role string) error
	CountAssignments(ctx context.Context, role string) (int, error)

	EnsureDefaults(ctx context.Context) error
	DeleteRole(ctx context.Context, name string) error
}

type roles struct {
	repository.Repository[*Role]
	db *bun.DB
}

var (
	_ Roles         = (*roles)(nil)
	_ RoleStore     = (*roles)(nil)
	_ GateRoleStore = (*roles)(nil)
)

// NewRolesRepository creates the roles repository
func NewRolesRepository(db *bun.DB) Roles {
	repo := repository.NewRepository[*Role](db, repository.ModelHandlers[*Role]{
		NewRecord: func() *Role { return &Role{} },
		GetID: func(r *Role) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Role, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})

	return &roles{
		Repository: repo,
		db:         db,
	}
}

func (r *roles) GetByName(ctx context.Context, name string) (*Role, error) {
	return r.GetByNameTx(ctx, r.db, name)
}

func (r *roles) GetByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error) {
	record := &Role{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}

	return record, nil
}

// RolesFor returns the role names held by a user. A user with no
// assignments gets an empty slice, never nil.
func (r *roles) RolesFor(ctx context.Context, userID uuid.UUID) ([]string, error) {
	names := []string{}

	err := r.db.NewSelect().
		TableExpr("roles AS rol").
		ColumnExpr("rol.name").
		Join("JOIN user_roles AS usrl ON usrl.role_id = rol.id").
		Where("usrl.user_id = ?", userID).
		Where("usrl.deleted_at IS NULL").
		Where("rol.deleted_at IS NULL").
		OrderExpr("rol.name ASC").
		Scan(ctx, &names)

	if err != nil {
		return nil, err
	}

	return names, nil
}

func (r *roles) HasRole(ctx context.Context, userID uuid.UUID, role string) (bool, error) {
	return r.db.NewSelect().
		TableExpr("user_roles AS usrl").
		Join("JOIN roles AS rol ON rol.id = usrl.role_id").
		Where("usrl.user_id = ?", userID).
		Where("rol.name = ?", role).
		Where("usrl.deleted_at IS NULL").
		Where("rol.deleted_at IS NULL").
		Exists(ctx)
}

// Assign grants a role by name. The grant is an idempotent upsert keyed on
// (user_id, role_id): re-granting an existing assignment revives a
// soft-deleted row instead of erroring, so concurrent first sign-ins cannot
// race each other into a failure.
func (r *roles) Assign(ctx context.Context, userID uuid.UUID, role string) error {
	return r.AssignTx(ctx, r.db, userID, role)
}

func (r *roles) AssignTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, role string) error {
	record, err := r.GetByNameTx(ctx, tx, role)
	if err != nil {
		return err
	}

	assignment := &UserRole{
		ID:     uuid.New(),
		UserID: userID,
		RoleID: record.ID,
	}

	_, err = tx.NewInsert().
		Model(assignment).
		On("CONFLICT (user_id, role_id) DO UPDATE").
		Set("deleted_at = NULL").
		Exec(ctx)

	return err
}

// Remove revokes a role assignment, enforcing the admin self-protection
// rules: an actor cannot strip their own admin role, and the last admin
// assignment system-wide cannot be removed by anyone. The check and the
// delete run in one transaction.
func (r *roles) Remove(ctx context.Context, actorID, userID uuid.UUID, role string) error {
	if role == RoleAdmin && actorID == userID {
		return ErrSelfAdminRemoval
	}

	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if role == RoleAdmin {
			count, err := r.countAssignmentsTx(ctx, tx, RoleAdmin)
			if err != nil {
				return err
			}
			if count <= 1 {
				return ErrLastAdmin
			}
		}

		record, err := r.GetByNameTx(ctx, tx, role)
		if err != nil {
			return err
		}

		now := time.Now()
		_, err = tx.NewUpdate().
			Model((*UserRole)(nil)).
			Set("deleted_at = ?", now).
			Where("user_id = ?", userID).
			Where("role_id = ?", record.ID).
			Where("deleted_at IS NULL").
			Exec(ctx)

		return err
	})
}

func (r *roles) CountAssignments(ctx context.Context, role string) (int, error) {
	return r.countAssignmentsTx(ctx, r.db, role)
}

func (r *roles) countAssignmentsTx(ctx context.Context, tx bun.IDB, role string) (int, error) {
	return tx.NewSelect().
		TableExpr("user_roles AS usrl").
		Join("JOIN roles AS rol ON rol.id = usrl.role_id").
		Where("rol.name = ?", role).
		Where("usrl.deleted_at IS NULL").
		Where("rol.deleted_at IS NULL").
		Count(ctx)
}

// EnsureDefaults seeds the system roles. Safe to run on every boot.
func (r *roles) EnsureDefaults(ctx context.Context) error {
	for _, name := range []string{RoleUser, RoleAdmin} {
		record := &Role{
			ID:   uuid.New(),
			Name: name,
		}

		_, err := r.db.NewInsert().
			Model(record).
			On("CONFLICT (name) DO NOTHING").
			Exec(ctx)

		if err != nil {
			return err
		}
	}

	return nil
}

// DeleteRole soft deletes a role and its assignments. System roles are
// protected and cannot be deleted.
func (r *roles) DeleteRole(ctx context.Context, name string) error {
	if IsProtectedRole(name) {
		return ErrProtectedRole
	}

	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		record, err := r.GetByNameTx(ctx, tx, name)
		if err != nil {
			return err
		}

		now := time.Now()

		if _, err := tx.NewUpdate().
			Model((*UserRole)(nil)).
			Set("deleted_at = ?", now).
			Where("role_id = ?", record.ID).
			Where("deleted_at IS NULL").
			Exec(ctx); err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*Role)(nil)).
			Set("deleted_at = ?", now).
			Where("id = ?", record.ID).
			Where("deleted_at IS NULL").
			Exec(ctx)

		return err
	})
}
