package auth

// SimpleConfig is the concrete Config used by the starter. Values are set
// once at startup and passed into constructors; nothing below reads the
// process environment.
type SimpleConfig struct {
	SigningKey            string
	SigningMethod         string
	ContextKey            string
	TokenExpiration       int
	ExtendedTokenDuration int
	Issuer                string
	Audience              []string
	BaseURL               string
	SignInPath            string
	RejectedRouteKey      string
	Providers             ProviderFlags
}

var _ Config = (*SimpleConfig)(nil)

// NewSimpleConfig applies starter defaults on top of the given config.
func NewSimpleConfig(cfg SimpleConfig) *SimpleConfig {
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = "HS256"
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = "jwt"
	}
	if cfg.TokenExpiration == 0 {
		cfg.TokenExpiration = 24
	}
	if cfg.ExtendedTokenDuration == 0 {
		cfg.ExtendedTokenDuration = 24 * 7
	}
	if cfg.SignInPath == "" {
		cfg.SignInPath = SignInPath
	}
	if cfg.RejectedRouteKey == "" {
		cfg.RejectedRouteKey = "rejected_route"
	}
	return &cfg
}

func (c *SimpleConfig) GetSigningKey() string { return c.SigningKey }

func (c *SimpleConfig) GetSigningMethod() string { return c.SigningMethod }

func (c *SimpleConfig) GetContextKey() string { return c.ContextKey }

func (c *SimpleConfig) GetTokenExpiration() int { return c.TokenExpiration }

func (c *SimpleConfig) GetExtendedTokenDuration() int { return c.ExtendedTokenDuration }

func (c *SimpleConfig) GetIssuer() string { return c.Issuer }

func (c *SimpleConfig) GetAudience() []string { return c.Audience }

func (c *SimpleConfig) GetBaseURL() string { return c.BaseURL }

func (c *SimpleConfig) GetSignInPath() string { return c.SignInPath }

func (c *SimpleConfig) GetRejectedRouteKey() string { return c.RejectedRouteKey }

// GetProviderFlags exposes the sign-in method switchboard.
func (c *SimpleConfig) GetProviderFlags() ProviderFlags { return c.Providers }
