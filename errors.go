package storefront

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCreds        = "INVALID_CREDENTIALS"
	TextCodeEmptyPassword       = "EMPTY_PASSWORD"
	TextCodePasswordTooShort    = "PASSWORD_TOO_SHORT"
	TextCodeTokenExpired        = "AUTH_TOKEN_EXPIRED"
	TextCodeTokenMalformed      = "AUTH_TOKEN_MALFORMED"
	TextCodeSessionNotFound     = "SESSION_NOT_FOUND"
	TextCodeBlacklisted         = "PRINCIPAL_BLACKLISTED"
	TextCodeNotOwner            = "NOT_RESOURCE_OWNER"
	TextCodeAdminOnly           = "ADMIN_ROLE_REQUIRED"
	TextCodeAlreadyVerified     = "EMAIL_ALREADY_VERIFIED"
	TextCodeVerificationInvalid = "VERIFICATION_INVALID_OR_EXPIRED"
	TextCodeResendThrottled     = "VERIFICATION_RESEND_THROTTLED"
	TextCodeMailerUnconfigured  = "MAIL_TRANSPORT_UNCONFIGURED"
	TextCodeInvalidTransition   = "INVALID_ORDER_TRANSITION"
)

// ErrMismatchedHashAndPassword is returned when a password comparison fails.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty secrets before they reach bcrypt.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrPasswordTooShort enforces the minimum secret length policy.
var ErrPasswordTooShort = errors.New("password must be at least 6 characters", errors.CategoryValidation).
	WithTextCode(TextCodePasswordTooShort).
	WithCode(errors.CodeBadRequest)

// ErrTokenExpired is returned for session tokens past their expiry.
var ErrTokenExpired = errors.New("authentication token has expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers tampered, mis-signed, or unparsable tokens.
var ErrTokenMalformed = errors.New("authentication token is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToFindSession is the error when the request carries no credential.
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrPrincipalNotFound is returned when a token references a principal that
// no longer exists. The token is not trusted.
var ErrPrincipalNotFound = errors.New("principal not found", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrPrincipalBlacklisted rejects blacklisted principals on every protected
// path, valid token or not.
var ErrPrincipalBlacklisted = errors.New("account has been suspended", errors.CategoryAuthz).
	WithTextCode(TextCodeBlacklisted).
	WithCode(errors.CodeForbidden)

// ErrNotResourceOwner is returned when an authenticated caller touches a
// resource it does not own.
var ErrNotResourceOwner = errors.New("caller does not own this resource", errors.CategoryAuthz).
	WithTextCode(TextCodeNotOwner).
	WithCode(errors.CodeForbidden)

// ErrAdminOnly guards administrator-only operations.
var ErrAdminOnly = errors.New("administrator role required", errors.CategoryAuthz).
	WithTextCode(TextCodeAdminOnly).
	WithCode(errors.CodeForbidden)

// ErrAlreadyVerified short-circuits verification reissue for verified
// accounts. The API contract surfaces it as a 400, not a 409.
var ErrAlreadyVerified = errors.New("email address is already verified", errors.CategoryConflict).
	WithTextCode(TextCodeAlreadyVerified).
	WithCode(errors.CodeBadRequest)

// ErrVerificationInvalid covers unknown, consumed, and expired verification
// tokens. The three cases are indistinguishable to the caller on purpose.
var ErrVerificationInvalid = errors.New("verification token is invalid or has expired", errors.CategoryValidation).
	WithTextCode(TextCodeVerificationInvalid).
	WithCode(errors.CodeBadRequest)

// ErrVerificationThrottled rejects a resend while the cooldown from the
// previous issue is still running.
var ErrVerificationThrottled = errors.New("a verification email was sent recently, try again later", errors.CategoryRateLimit).
	WithTextCode(TextCodeResendThrottled).
	WithCode(http.StatusTooManyRequests)

// ErrMailerNotConfigured is the loud failure for a missing mail transport.
var ErrMailerNotConfigured = errors.New("mail transport is not configured", errors.CategoryOperation).
	WithTextCode(TextCodeMailerUnconfigured).
	WithCode(errors.CodeInternal)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed session token")
}
