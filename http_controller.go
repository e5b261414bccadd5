package auth

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// RegisterAuthRoutes mounts the auth controller on a router
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.
		Get(controller.Routes.SignIn, controller.LoginShow).
		SetName("sign-in.get")

	app.
		Post(controller.Routes.SignIn, controller.LoginPost).
		SetName("sign-in.post")

	app.Get(controller.Routes.SignOut, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Post(controller.Routes.MagicLink, controller.MagicLinkRequest).
		SetName("magic-link.post")
	app.Get(fmt.Sprintf("%s/:token", controller.Routes.MagicLink), controller.MagicLinkConsume).
		SetName("magic-link.get")
}

type AuthControllerRoutes struct {
	SignIn    string
	SignOut   string
	Register  string
	MagicLink string
}

type AuthControllerViews struct {
	SignIn   string
	Register string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Views        *AuthControllerViews
	Auther       HTTPAuthenticator
	Core         *Auther
	Config       Config
	Flags        ProviderFlags
	Mailer       Mailer
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultControllerErrHandler,
		Routes: &AuthControllerRoutes{
			SignIn:    SignInPath,
			SignOut:   "/auth/signout",
			Register:  "/auth/register",
			MagicLink: "/auth/magic-link",
		},
		Views: &AuthControllerViews{
			SignIn:   "signin",
			Register: "register",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	return c
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther HTTPAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerCore(core *Auther) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Core = core
		return c
	}
}

func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Config = cfg
		return c
	}
}

func WithControllerFlags(flags ProviderFlags) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Flags = flags
		return c
	}
}

func WithControllerMailer(mailer Mailer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Mailer = mailer
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func (a *AuthController) baseURL() string {
	if a.Config != nil {
		return a.Config.GetBaseURL()
	}
	return ""
}

func (a *AuthController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.SignIn, router.ViewContext{
		"errors":      nil,
		"record":      nil,
		"callbackUrl": ctx.Query("callbackUrl", ""),
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier  string `form:"identifier" json:"identifier"`
	Password    string `form:"password" json:"password"`
	RememberMe  bool   `form:"remember_me" json:"remember_me"`
	CallbackURL string `form:"callback_url" json:"callback_url"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession reports whether the user asked to stay signed in
func (r LoginRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)
	errs := map[string]string{}

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.SignIn, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		a.Logger.Debug("login payload: %s", print.MaybePrettyJSON(payload))
	}

	if err := a.Auther.Login(ctx, payload); err != nil {
		errs["authentication"] = "Authentication Error"
		return ctx.Render(a.Views.SignIn, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	redirect := payload.CallbackURL
	if redirect == "" {
		redirect = a.Auther.GetRedirect(ctx, "/")
	}

	// untrusted callback targets collapse to home
	redirect = ResolveRedirect(redirect, a.baseURL())

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.Redirect("/", router.StatusTemporaryRedirect)
}

func (a *AuthController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegisterUserMessage{},
	})
}

// RegistrationCreatePayload is the form payload
type RegistrationCreatePayload struct {
	Name            string `form:"name" json:"name"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(0, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	if !a.Flags.EnableEmailPassword {
		return a.ErrorHandler(ctx, ErrMethodDisabled)
	}

	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload: %s", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register user validate payload: %s", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	req := RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
	}

	registerUser := RegisterUserHandler{repo: a.Repo}
	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register user error: %s", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error registering user",
		}).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Successful user registration",
	}).Redirect("/", fiber.StatusSeeOther)
}

// MagicLinkRequestPayload holds the email for a magic link request
type MagicLinkRequestPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r MagicLinkRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AuthController) MagicLinkRequest(ctx router.Context) error {
	if !a.Flags.EnableMagicLink {
		return a.ErrorHandler(ctx, ErrMethodDisabled)
	}

	payload := new(MagicLinkRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.SignIn, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	req := MagicLinkRequestMessage{
		Email:   payload.Email,
		BaseURL: a.baseURL(),
	}

	handler := NewMagicLinkRequestHandler(a.Repo, a.Mailer, a.Logger)
	if err := handler.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("magic link request error: %s", err)
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "Unable to process the request",
		}).Render(a.Views.SignIn, router.ViewContext{
			"record": payload,
		})
	}

	// same message for known and unknown emails
	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "If the address exists, a sign-in link is on its way",
	}).Redirect(a.Routes.SignIn, fiber.StatusSeeOther)
}

func (a *AuthController) MagicLinkConsume(ctx router.Context) error {
	if !a.Flags.EnableMagicLink {
		return a.ErrorHandler(ctx, ErrMethodDisabled)
	}

	token := ctx.Param("token", "")

	var res *MagicLinkConsumeResponse
	req := MagicLinkConsumeMessage{
		Token: token,
		OnResponse: func(r *MagicLinkConsumeResponse) {
			res = r
		},
	}

	handler := NewMagicLinkConsumeHandler(a.Repo)
	if err := handler.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("magic link consume error: %s", err)
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "That sign-in link is no longer valid",
		}).Redirect(a.Routes.SignIn, fiber.StatusSeeOther)
	}

	if res == nil || res.User == nil || a.Core == nil {
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "That sign-in link is no longer valid",
		}).Redirect(a.Routes.SignIn, fiber.StatusSeeOther)
	}

	user := res.User

	roleNames, err := a.Repo.Roles().RolesFor(ctx.Context(), user.ID)
	if err != nil {
		a.Logger.Warn("magic link role lookup for %s failed, issuing empty roles: %s", user.ID, err)
		roleNames = nil
	}

	sessionToken, err := a.Core.TokenForSignIn(ctx.Context(), &SignInResult{
		Identity:     NewIdentity(user.ID.String(), user.Email, user.Name, user.AvatarURL, roleNames),
		Provider:     "magic-link",
		ProviderType: ProviderTypeMagicLink,
	})
	if err != nil {
		a.Logger.Error("magic link token mint error: %s", err)
		return flash.WithError(ctx, router.ViewContext{
			"system_message": "That sign-in link is no longer valid",
		}).Redirect(a.Routes.SignIn, fiber.StatusSeeOther)
	}

	a.Auther.LoginToken(ctx, sessionToken, false)

	redirect := ResolveRedirect(a.Auther.GetRedirect(ctx, "/"), a.baseURL())
	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func defaultControllerErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
