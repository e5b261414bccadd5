package social

import (
	"context"

	"golang.org/x/oauth2"
)

// Provider is an OAuth2 sign-in provider built on golang.org/x/oauth2.
type Provider interface {
	// Name returns the provider identifier (e.g., "github", "google").
	Name() string

	// AuthCodeURL returns the URL to redirect users for authorization.
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string

	// Exchange trades an authorization code for an access token.
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)

	// Profile fetches the user's normalized profile using the access token.
	Profile(ctx context.Context, token *oauth2.Token) (*Profile, error)
}

// Profile is the normalized user information from a provider. Email may be
// empty; the sign-in gate decides what that means for the attempt.
type Profile struct {
	ProviderUserID string
	Provider       string
	Email          string
	EmailVerified  bool
	Name           string
	AvatarURL      string
}

// PKCEParams carries the PKCE challenge pair for one auth round trip.
type PKCEParams struct {
	Verifier  string
	Challenge string
}

// NewPKCE generates a fresh verifier/challenge pair
func NewPKCE() (PKCEParams, error) {
	verifier, err := generateCodeVerifier()
	if err != nil {
		return PKCEParams{}, err
	}

	return PKCEParams{
		Verifier:  verifier,
		Challenge: computeCodeChallenge(verifier),
	}, nil
}

// AuthCodeOptions returns the oauth2 options carrying the PKCE challenge
func (p PKCEParams) AuthCodeOptions() []oauth2.AuthCodeOption {
	return []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", p.Challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}
}

// VerifierOption returns the oauth2 option carrying the verifier for the
// token exchange.
func VerifierOption(verifier string) oauth2.AuthCodeOption {
	return oauth2.SetAuthURLParam("code_verifier", verifier)
}
