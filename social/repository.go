package social

import (
	"context"
	"time"
)

// LinkedAccount represents an OAuth identity linked to a local user.
type LinkedAccount struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Provider       string     `json:"provider"`
	ProviderUserID string     `json:"provider_user_id"`
	Email          string     `json:"email,omitempty"`
	Name           string     `json:"name,omitempty"`
	AvatarURL      string     `json:"avatar_url,omitempty"`
	AccessToken    string     `json:"-"`
	RefreshToken   string     `json:"-"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// LinkedAccountRepository manages linked account persistence.
type LinkedAccountRepository interface {
	FindByProviderID(ctx context.Context, provider, providerUserID string) (*LinkedAccount, error)
	FindByUserID(ctx context.Context, userID string) ([]*LinkedAccount, error)
	Upsert(ctx context.Context, account *LinkedAccount) error
	DeleteByUserAndProvider(ctx context.Context, userID, provider string) error
}
