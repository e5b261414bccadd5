package social

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goliatone/go-errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	defaultGithubUserURL   = "https://api.github.com/user"
	defaultGithubEmailsURL = "https://api.github.com/user/emails"
)

// GithubConfig holds GitHub OAuth configuration.
type GithubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	UserURL    string
	EmailsURL  string
	HTTPClient *http.Client
}

// GithubProvider implements Provider for GitHub.
type GithubProvider struct {
	oauth      *oauth2.Config
	userURL    string
	emailsURL  string
	httpClient *http.Client
}

// NewGithubProvider creates a new GitHub provider.
func NewGithubProvider(cfg GithubConfig) *GithubProvider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"user:email", "read:user"}
	}

	userURL := cfg.UserURL
	if userURL == "" {
		userURL = defaultGithubUserURL
	}

	emailsURL := cfg.EmailsURL
	if emailsURL == "" {
		emailsURL = defaultGithubEmailsURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &GithubProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     github.Endpoint,
			Scopes:       scopes,
		},
		userURL:    userURL,
		emailsURL:  emailsURL,
		httpClient: client,
	}
}

// Name implements Provider.
func (p *GithubProvider) Name() string {
	return "github"
}

// AuthCodeURL implements Provider.
func (p *GithubProvider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return p.oauth.AuthCodeURL(state, opts...)
}

// Exchange implements Provider.
func (p *GithubProvider) Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
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
//
// GitHub only exposes the account email through /user when the user made it
// public; otherwise we try /user/emails, which needs the user:email scope.
// A profile without any usable email is returned with Email empty so the
// sign-in gate can reject it with the public-email hint.
func (p *GithubProvider) Profile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	user, err := p.fetchUser(ctx, token)
	if err != nil {
		return nil, err
	}

	email := user.Email
	verified := false

	if fetched, fetchedVerified, err := p.fetchPrimaryEmail(ctx, token); err == nil && fetched != "" {
		email = fetched
		verified = fetchedVerified
	}

	return &Profile{
		ProviderUserID: strconv.FormatInt(user.ID, 10),
		Provider:       p.Name(),
		Email:          email,
		EmailVerified:  verified,
		Name:           user.Name,
		AvatarURL:      user.AvatarURL,
	}, nil
}

func (p *GithubProvider) fetchUser(ctx context.Context, token *oauth2.Token) (*githubUser, error) {
	body, status, err := p.apiGet(ctx, token, p.userURL)
	if err != nil {
		return nil, p.userInfoError(err, status)
	}

	if status != http.StatusOK {
		return nil, p.userInfoError(nil, status)
	}

	var user githubUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, p.userInfoError(err, status)
	}

	return &user, nil
}

func (p *GithubProvider) fetchPrimaryEmail(ctx context.Context, token *oauth2.Token) (string, bool, error) {
	body, status, err := p.apiGet(ctx, token, p.emailsURL)
	if err != nil {
		return "", false, err
	}

	if status != http.StatusOK {
		return "", false, p.userInfoError(nil, status)
	}

	var emails []githubEmail
	if err := json.Unmarshal(body, &emails); err != nil {
		return "", false, p.userInfoError(err, status)
	}

	for _, e := range emails {
		if e.Primary {
			return e.Email, e.Verified, nil
		}
	}

	for _, e := range emails {
		if e.Verified {
			return e.Email, true, nil
		}
	}

	return "", false, nil
}

func (p *GithubProvider) apiGet(ctx context.Context, token *oauth2.Token, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	return body, resp.StatusCode, nil
}

func (p *GithubProvider) userInfoError(err error, status int) error {
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

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

var _ Provider = (*GithubProvider)(nil)
