package auth

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// SessionKey is the Locals key under which the route guard stores the
// request session.
const SessionKey = "session"

// RouteAuthenticator is the HTTP-facing auth surface: cookie handling, the
// role-gated route guard, and the rejected-route redirect dance.
type RouteAuthenticator struct {
	auth                   Authenticator
	roles                  RoleStore
	cfg                    Config
	cookieDuration         time.Duration
	extendedCookieDuration time.Duration
	Logger                 Logger

	// ErrorHandler runs whenever the guard cannot establish a session. The
	// default redirects auth failures to the sign-in page and renders the
	// error view for anything else.
	ErrorHandler func(c router.Context, err error) error
}

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)

func NewHTTPAuthenticator(auther Authenticator, roles RoleStore, cfg Config) (*RouteAuthenticator, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	extendedCookieDuration := cookieDuration
	if cfg.GetExtendedTokenDuration() > 0 {
		extendedCookieDuration = time.Duration(cfg.GetExtendedTokenDuration()) * time.Hour
	}

	a := &RouteAuthenticator{
		cfg:                    cfg,
		auth:                   auther,
		roles:                  roles,
		Logger:                 defLogger{},
		cookieDuration:         cookieDuration,
		extendedCookieDuration: extendedCookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

func (a RouteAuthenticator) GetExtendedCookieDuration() time.Duration {
	return a.extendedCookieDuration
}

func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) error {
	token, err := a.auth.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return err
	}

	a.LoginToken(ctx, token, payload.GetExtendedSession())
	return nil
}

// LoginToken sets the session cookie for an already-minted token. Magic-link
// and social callbacks use this after their own verification.
func (a *RouteAuthenticator) LoginToken(ctx router.Context, token string, extended bool) {
	duration := a.cookieDuration
	if extended {
		duration = a.extendedCookieDuration
	}

	a.setCookieToken(ctx, token, duration)
}

func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetContextKey())
}

// RequireRole guards a route behind a role. The failure mode is always a
// silent redirect, never a 403 page:
//
//   - no cookie or an invalid/expired token goes through ErrorHandler, which
//     by default redirects to the sign-in page, remembering the rejected
//     route so sign-in can return the user there
//   - a valid session without the role redirects home
//
// The role check runs against the role store, not the roles minted on the
// token, so a revoked role locks the subject out on their next request
// rather than at token expiry. A store failure counts as a miss.
//
// On success the session is stored in Locals under SessionKey.
func (a *RouteAuthenticator) RequireRole(role string) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw := ctx.Cookies(a.cfg.GetContextKey())
			if raw == "" {
				return a.ErrorHandler(ctx, ErrUnableToFindSession)
			}

			session, err := a.auth.SessionFromToken(raw)
			if err != nil {
				return a.ErrorHandler(ctx, err)
			}

			if !a.sessionHasRole(ctx, session, role) {
				a.Logger.Info("session for %s lacks role %q, redirecting home", session.GetUserID(), role)
				return ctx.Redirect("/", redirectStatus(ctx))
			}

			ctx.Locals(SessionKey, session)
			return hf(ctx)
		}
	}
}

func (a *RouteAuthenticator) sessionHasRole(ctx router.Context, session Session, role string) bool {
	if a.roles == nil {
		// no store wired; fall back to the roles minted on the token
		holder, ok := session.(interface{ HasRole(string) bool })
		return ok && holder.HasRole(role)
	}

	uid, err := session.GetUserUUID()
	if err != nil {
		a.Logger.Error("role check for %s skipped, bad subject: %s", session.GetUserID(), err)
		return false
	}

	has, err := a.roles.HasRole(ctx.Context(), uid, role)
	if err != nil {
		a.Logger.Error("role check for %s failed, treating as a miss: %s", session.GetUserID(), err)
		return false
	}

	return has
}

func (a *RouteAuthenticator) redirectToSignIn(ctx router.Context, err error) error {
	a.Logger.Info("auth required for %s, redirecting to sign-in: %s", ctx.OriginalURL(), err)
	a.SetRedirect(ctx)
	return ctx.Redirect(a.cfg.GetSignInPath(), redirectStatus(ctx))
}

func redirectStatus(ctx router.Context) int {
	if ctx.Method() == string(router.GET) {
		return http.StatusFound
	}
	return http.StatusSeeOther
}

// SessionFromLocals retrieves the session the route guard stored for this
// request.
func SessionFromLocals(ctx router.Context) (Session, error) {
	val := ctx.Locals(SessionKey)
	if val == nil {
		return nil, ErrUnableToFindSession
	}

	session, ok := val.(Session)
	if !ok {
		return nil, ErrUnableToDecodeSession
	}

	return session, nil
}

func (a *RouteAuthenticator) GetRedirect(ctx router.Context, def ...string) string {
	rejectedRoute := a.cfg.GetRejectedRouteKey()
	r := ctx.Cookies(rejectedRoute)
	if r == "" {
		if len(def) > 0 {
			return def[0]
		}
		return "/"
	}
	a.cookieDel(ctx, rejectedRoute)
	return r
}

func (a *RouteAuthenticator) SetRedirect(ctx router.Context) {
	rejectedRoute := a.cfg.GetRejectedRouteKey()

	a.Logger.Info("Setting redirect cookie %s: %s", rejectedRoute, ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler %s %s: %s",
		richErr.Category,
		richErr.Message,
		print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.redirectToSignIn(c, richErr)
	default:
		return c.Status(richErr.Code).Render("errors/500", router.ViewContext{
			"error": richErr,
		})
	}
}
