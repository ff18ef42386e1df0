package storefront

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes token issuance needs from a principal
type Identity interface {
	ID() string
	Email() string
	Role() string
}

// TokenService issues and validates signed session tokens
type TokenService interface {
	Generate(identity Identity) (string, error)
	SignClaims(claims *JWTClaims) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

// Session holds attributes that are part of an auth session
type Session interface {
	GetUserID() string
	GetRole() string
	GetIssuer() string
	GetIssuedAt() *time.Time
	GetExpiration() *time.Time
}

// Config holds the options the trust core reads. Construct a RuntimeConfig
// once at process startup and pass it down; nothing reads the environment
// after that point.
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetMailTransport() MailTransportConfig
}

// MailTransportConfig describes the outbound SMTP collaborator. A zero value
// means the transport is unconfigured and verification sends must fail loudly.
type MailTransportConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	SenderName string
	Timeout    int
	BaseURL    string
}

// IsConfigured reports whether the transport can actually deliver mail.
func (m MailTransportConfig) IsConfigured() bool {
	return m.Host != "" && m.Port != 0 && m.Username != ""
}

// VerificationMailer delivers verification tokens to a principal's address.
type VerificationMailer interface {
	SendVerification(ctx context.Context, address, displayName, token string) error
}

// ErrorReporter is the telemetry sink for failures that are deliberately not
// surfaced to callers, e.g. audit write errors.
type ErrorReporter interface {
	Report(err error, context map[string]any)
}

// ErrorReporterFunc adapts a function to the ErrorReporter interface.
type ErrorReporterFunc func(err error, context map[string]any)

func (f ErrorReporterFunc) Report(err error, context map[string]any) {
	if f != nil {
		f(err, context)
	}
}

type noopErrorReporter struct{}

func (noopErrorReporter) Report(error, map[string]any) {}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] STORE "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] STORE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] STORE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] STORE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
