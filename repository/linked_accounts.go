package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/stackpane/go-starter-auth/social"
	"github.com/uptrace/bun"
)

// LinkedAccountModel is the Bun model for linked OAuth accounts.
type LinkedAccountModel struct {
	bun.BaseModel `bun:"table:linked_accounts"`

	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid"`
	UserID         uuid.UUID  `bun:"user_id,notnull,type:uuid"`
	Provider       string     `bun:"provider,notnull,unique:linked_accounts_provider_user"`
	ProviderUserID string     `bun:"provider_user_id,notnull,unique:linked_accounts_provider_user"`
	Email          string     `bun:"email"`
	Name           string     `bun:"name"`
	AvatarURL      string     `bun:"avatar_url"`
	AccessToken    string     `bun:"access_token"`
	RefreshToken   string     `bun:"refresh_token"`
	TokenExpiresAt *time.Time `bun:"token_expires_at"`
	CreatedAt      time.Time  `bun:"created_at,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,default:current_timestamp"`
}

// LinkedAccountRepository implements social.LinkedAccountRepository using Bun.
type LinkedAccountRepository struct {
	db *bun.DB
}

var _ social.LinkedAccountRepository = (*LinkedAccountRepository)(nil)

// NewLinkedAccountRepository creates a new repository.
func NewLinkedAccountRepository(db *bun.DB) *LinkedAccountRepository {
	return &LinkedAccountRepository{db: db}
}

// FindByProviderID implements social.LinkedAccountRepository.
func (r *LinkedAccountRepository) FindByProviderID(ctx context.Context, provider, providerUserID string) (*social.LinkedAccount, error) {
	var model LinkedAccountModel
	err := r.db.NewSelect().
		Model(&model).
		Where("provider = ? AND provider_user_id = ?", provider, providerUserID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return r.toLinkedAccount(&model), nil
}

// FindByUserID implements social.LinkedAccountRepository.
func (r *LinkedAccountRepository) FindByUserID(ctx context.Context, userID string) ([]*social.LinkedAccount, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, err
	}

	var models []LinkedAccountModel
	err = r.db.NewSelect().
		Model(&models).
		Where("user_id = ?", uid).
		Order("provider ASC").
		Scan(ctx)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	accounts := make([]*social.LinkedAccount, 0, len(models))
	for i := range models {
		accounts = append(accounts, r.toLinkedAccount(&models[i]))
	}

	return accounts, nil
}

// Upsert implements social.LinkedAccountRepository. The upsert is keyed on
// (provider, provider_user_id); repeated sign-ins refresh the profile and
// token columns in place.
func (r *LinkedAccountRepository) Upsert(ctx context.Context, account *social.LinkedAccount) error {
	model := r.fromLinkedAccount(account)
	model.UpdatedAt = time.Now()

	_, err := r.db.NewInsert().
		Model(model).
		On("CONFLICT (provider, provider_user_id) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("email = EXCLUDED.email").
		Set("name = EXCLUDED.name").
		Set("avatar_url = EXCLUDED.avatar_url").
		Set("access_token = EXCLUDED.access_token").
		Set("refresh_token = EXCLUDED.refresh_token").
		Set("token_expires_at = EXCLUDED.token_expires_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	return err
}

// DeleteByUserAndProvider implements social.LinkedAccountRepository.
func (r *LinkedAccountRepository) DeleteByUserAndProvider(ctx context.Context, userID, provider string) error {
	_, err := r.db.NewDelete().
		Model((*LinkedAccountModel)(nil)).
		Where("user_id = ? AND provider = ?", userID, provider).
		Exec(ctx)
	return err
}

func (r *LinkedAccountRepository) toLinkedAccount(m *LinkedAccountModel) *social.LinkedAccount {
	return &social.LinkedAccount{
		ID:             m.ID.String(),
		UserID:         m.UserID.String(),
		Provider:       m.Provider,
		ProviderUserID: m.ProviderUserID,
		Email:          m.Email,
		Name:           m.Name,
		AvatarURL:      m.AvatarURL,
		AccessToken:    m.AccessToken,
		RefreshToken:   m.RefreshToken,
		TokenExpiresAt: m.TokenExpiresAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func (r *LinkedAccountRepository) fromLinkedAccount(a *social.LinkedAccount) *LinkedAccountModel {
	if a == nil {
		return &LinkedAccountModel{ID: uuid.New()}
	}

	var id uuid.UUID
	if a.ID != "" {
		if parsed, err := uuid.Parse(a.ID); err == nil {
			id = parsed
		}
	}
	if id == uuid.Nil {
		id = uuid.New()
	}

	var userID uuid.UUID
	if a.UserID != "" {
		if parsed, err := uuid.Parse(a.UserID); err == nil {
			userID = parsed
		}
	}

	model := &LinkedAccountModel{
		ID:             id,
		UserID:         userID,
		Provider:       a.Provider,
		ProviderUserID: a.ProviderUserID,
		Email:          a.Email,
		Name:           a.Name,
		AvatarURL:      a.AvatarURL,
		AccessToken:    a.AccessToken,
		RefreshToken:   a.RefreshToken,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
	model.TokenExpiresAt = a.TokenExpiresAt
	return model
}
