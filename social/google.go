package social

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleConfig holds Google OAuth configuration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	UserInfoURL string
	HTTPClient  *http.Client
}

// GoogleProvider implements Provider for Google.
type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewGoogleProvider creates a new Google provider.
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}

	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultGoogleUserInfoURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     google.Endpoint,
			Scopes:       scopes,
		},
		userInfoURL: userInfoURL,
		httpClient:  client,
	}
}

// Name implements Provider.
func (p *GoogleProvider) Name() string {
	return "google"
}

// AuthCodeURL implements Provider.
func (p *GoogleProvider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return p.oauth.AuthCodeURL(state, opts...)
}

// Exchange implements Provider.
func (p *GoogleProvider) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.oauth.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, errors.Wrap(err, ErrTokenExchangeFailed.Category, ErrTokenExchangeFailed.Message).
			WithTextCode(ErrTokenExchangeFailed.TextCode).
			WithMetadata(map[string]any{"provider": p.Name()})
	}

	return token, nil
}

// Profile implements Provider.
func (p *GoogleProvider) Profile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	token.SetAuthHeader(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, p.userInfoError(err, 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.userInfoError(err, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.userInfoError(nil, resp.StatusCode)
	}

	var user googleUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, p.userInfoError(err, resp.StatusCode)
	}

	return &Profile{
		ProviderUserID: user.ID,
		Provider:       p.Name(),
		Email:          user.Email,
		EmailVerified:  user.VerifiedEmail,
		Name:           user.Name,
		AvatarURL:      user.Picture,
	}, nil
}

func (p *GoogleProvider) userInfoError(err error, status int) error {
	meta := map[string]any{"provider": p.Name()}
	if status != 0 {
		meta["status"] = status
	}

	if err == nil {
		err = ErrUserInfoFailed
	}

	return errors.Wrap(err, ErrUserInfoFailed.Category, ErrUserInfoFailed.Message).
		WithTextCode(ErrUserInfoFailed.TextCode).
		WithMetadata(meta)
}

type googleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

var _ Provider = (*GoogleProvider)(nil)
