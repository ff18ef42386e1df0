package storefront

// RuntimeConfig is the concrete Config used by the storefront. It is meant to
// be populated once at startup from whatever configuration source the host
// uses and handed to NewTokenService, NewSMTPMailer, and the HTTP layer.
type RuntimeConfig struct {
	SigningKey      string
	SigningMethod   string
	ContextKey      string
	TokenExpiration int
	TokenLookup     string
	AuthScheme      string
	Issuer          string
	Audience        []string
	MailTransport   MailTransportConfig
}

var _ Config = (*RuntimeConfig)(nil)

// DefaultRuntimeConfig returns a config with the storefront defaults: the
// session cookie is named "token" and tokens live for 72 hours.
func DefaultRuntimeConfig(signingKey string) *RuntimeConfig {
	return &RuntimeConfig{
		SigningKey:      signingKey,
		SigningMethod:   "HS256",
		ContextKey:      "user",
		TokenExpiration: 72,
		TokenLookup:     "cookie:" + SessionCookieName + ",header:Authorization",
		AuthScheme:      "Bearer",
		Issuer:          "storefront",
	}
}

func (c *RuntimeConfig) GetSigningKey() string    { return c.SigningKey }
func (c *RuntimeConfig) GetSigningMethod() string { return c.SigningMethod }

func (c *RuntimeConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "user"
	}
	return c.ContextKey
}

func (c *RuntimeConfig) GetTokenExpiration() int {
	if c.TokenExpiration <= 0 {
		return 72
	}
	return c.TokenExpiration
}

func (c *RuntimeConfig) GetTokenLookup() string {
	if c.TokenLookup == "" {
		return "cookie:" + SessionCookieName + ",header:Authorization"
	}
	return c.TokenLookup
}

func (c *RuntimeConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

func (c *RuntimeConfig) GetIssuer() string                     { return c.Issuer }
func (c *RuntimeConfig) GetAudience() []string                 { return c.Audience }
func (c *RuntimeConfig) GetMailTransport() MailTransportConfig { return c.MailTransport }
