package storefront

import (
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/PlainAnoyn/go-storefront/middleware/tokenware"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "token"

// LoginPayload is the minimal shape the HTTP login flow needs.
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

// RouteSessionGuard wires the session guard into HTTP routes: cookie
// handling, the protected route middleware, and error translation.
type RouteSessionGuard struct {
	guard          *SessionGuard
	cfg            Config
	cookieDuration time.Duration
	Logger         Logger
	ErrorHandler   func(c router.Context, err error) error
}

func NewHTTPSessionGuard(guard *SessionGuard, cfg Config) (*RouteSessionGuard, error) {
	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	a := &RouteSessionGuard{
		cfg:            cfg,
		guard:          guard,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

func (a RouteSessionGuard) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// Guard exposes the underlying session guard for handlers that need to
// resolve the acting principal.
func (a *RouteSessionGuard) Guard() *SessionGuard {
	return a.guard
}

func (a *RouteSessionGuard) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return tokenware.New(tokenware.Config{
			ErrorHandler:    errorHandler,
			TokenValidator:  NewTokenValidatorAdapter(a.guard.TokenService()),
			AuthScheme:      cfg.GetAuthScheme(),
			ContextKey:      cfg.GetContextKey(),
			TokenLookup:     cfg.GetTokenLookup(),
			ContextEnricher: ContextEnricherAdapter,
		})(hf)
	}
}

// AdminRoute is ProtectedRoute plus the administrator role requirement
// enforced at the middleware layer. Handlers still re-check against the
// resolved principal, the claim alone is not trusted for writes.
func (a *RouteSessionGuard) AdminRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return tokenware.New(tokenware.Config{
			ErrorHandler:    errorHandler,
			TokenValidator:  NewTokenValidatorAdapter(a.guard.TokenService()),
			AuthScheme:      cfg.GetAuthScheme(),
			ContextKey:      cfg.GetContextKey(),
			TokenLookup:     cfg.GetTokenLookup(),
			MinimumRole:     string(RoleAdmin),
			ContextEnricher: ContextEnricherAdapter,
		})(hf)
	}
}

func (a *RouteSessionGuard) Login(ctx router.Context, payload LoginPayload) error {
	token, err := a.guard.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return err
	}

	a.setCookieToken(ctx, token, a.cookieDuration)
	return nil
}

func (a *RouteSessionGuard) Logout(ctx router.Context) {
	a.cookieDel(ctx, SessionCookieName)
}

func (a *RouteSessionGuard) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding: %s", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteSessionGuard) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     SessionCookieName,
		Value:    val,
		Path:     "/",
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteSessionGuard) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteSessionGuard) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler %s (%s): %s",
		richErr.Message,
		richErr.Category,
		print.MaybePrettyJSON(richErr.Metadata),
	)

	return c.JSON(statusForError(richErr), map[string]any{
		"success": false,
		"error": map[string]any{
			"message":   richErr.Message,
			"text_code": richErr.TextCode,
		},
	})
}

// statusForError maps a rich error to the HTTP status the client sees,
// falling back on the category when no code was set.
func statusForError(err *errors.Error) int {
	if err == nil {
		return router.StatusInternalServerError
	}

	if err.Code > 0 {
		return err.Code
	}

	switch err.Category {
	case errors.CategoryAuth:
		return router.StatusUnauthorized
	case errors.CategoryAuthz:
		return router.StatusForbidden
	case errors.CategoryValidation, errors.CategoryBadInput:
		return router.StatusBadRequest
	case errors.CategoryNotFound:
		return router.StatusNotFound
	case errors.CategoryConflict:
		return router.StatusConflict
	default:
		return router.StatusInternalServerError
	}
}
