package social

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	auth "github.com/stackpane/go-starter-auth"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPController handles social auth HTTP routes.
type HTTPController struct {
	authenticator *Authenticator
	httpAuth      auth.HTTPAuthenticator
	config        HTTPConfig
	logger        auth.Logger
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// PathPrefix for routes (default: "/auth/social")
	PathPrefix string

	// BaseURL is the trusted origin used to resolve redirect targets
	BaseURL string

	// SuccessRedirect is the default redirect after successful auth
	SuccessRedirect string

	// ErrorRedirect is the redirect for auth errors
	ErrorRedirect string
}

// NewHTTPController creates a new social auth HTTP controller.
func NewHTTPController(authenticator *Authenticator, httpAuth auth.HTTPAuthenticator, cfg HTTPConfig) *HTTPController {
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "/auth/social"
	}
	if cfg.SuccessRedirect == "" {
		cfg.SuccessRedirect = "/"
	}
	if cfg.ErrorRedirect == "" {
		cfg.ErrorRedirect = auth.SignInPath + "?error=auth_failed"
	}

	return &HTTPController{
		authenticator: authenticator,
		httpAuth:      httpAuth,
		config:        cfg,
		logger:        auth.NewLogger(),
	}
}

// RegisterRoutes registers social auth routes.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Get("/providers", c.ListProviders)
	group.Get("/:provider/callback", c.Callback)
	group.Get("/:provider", c.BeginAuth)
}

// ListProviders returns available social providers.
func (c *HTTPController) ListProviders(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]any{
		"providers": c.authenticator.ListProviders(),
	})
}

// BeginAuth starts the OAuth flow.
func (c *HTTPController) BeginAuth(ctx router.Context) error {
	providerName := ctx.Param("provider")

	redirectURL := ctx.Query("callbackUrl")
	if redirectURL == "" {
		redirectURL = c.config.SuccessRedirect
	}
	redirectURL = auth.ResolveRedirect(redirectURL, c.config.BaseURL)

	redirect, err := c.authenticator.BeginAuth(ctx.Context(), providerName, redirectURL)
	if err != nil {
		return c.handleError(ctx, err)
	}

	return ctx.Redirect(redirect.URL, http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback.
func (c *HTTPController) Callback(ctx router.Context) error {
	providerName := ctx.Param("provider")
	code := ctx.Query("code")
	state := ctx.Query("state")

	if errCode := ctx.Query("error"); errCode != "" {
		redirectURL := appendQueryParam(c.config.ErrorRedirect, "oauth_error", errCode)
		if errDesc := ctx.Query("error_description"); errDesc != "" {
			redirectURL = appendQueryParam(redirectURL, "desc", errDesc)
		}
		return ctx.Redirect(redirectURL, http.StatusTemporaryRedirect)
	}

	if code == "" || state == "" {
		redirectURL := appendQueryParam(c.config.ErrorRedirect, "error", "missing_params")
		return ctx.Redirect(redirectURL, http.StatusTemporaryRedirect)
	}

	result, err := c.authenticator.CompleteAuth(ctx.Context(), providerName, code, state)
	if err != nil {
		return c.handleError(ctx, err)
	}

	c.httpAuth.LoginToken(ctx, result.Token, false)

	redirectURL := result.RedirectURL
	if redirectURL == "" {
		redirectURL = c.config.SuccessRedirect
	}
	redirectURL = auth.ResolveRedirect(redirectURL, c.config.BaseURL)

	if result.IsNewUser {
		redirectURL = appendQueryParam(redirectURL, "new_user", "true")
	}

	return ctx.Redirect(redirectURL, http.StatusTemporaryRedirect)
}

// handleError sends the user back to sign-in with an error code in the
// query string. A missing public email gets its own code so the sign-in
// page can tell GitHub users how to fix it.
func (c *HTTPController) handleError(ctx router.Context, err error) error {
	c.logger.Warn("social auth error: %s", err)

	code := "auth_failed"
	switch {
	case errors.Is(err, auth.ErrNoProviderEmail):
		code = "no_provider_email"
	case errors.Is(err, ErrStateExpired):
		code = "state_expired"
	case errors.Is(err, ErrInvalidState):
		code = "invalid_state"
	case errors.Is(err, ErrProviderNotFound):
		code = "unknown_provider"
	}

	redirectURL := appendQueryParam(c.config.ErrorRedirect, "error", code)
	return ctx.Redirect(redirectURL, http.StatusTemporaryRedirect)
}

func appendQueryParam(rawURL, key, value string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err == nil {
		query := parsed.Query()
		query.Set(key, value)
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
