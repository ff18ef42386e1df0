package storefront

import (
	"context"

	"github.com/PlainAnoyn/go-storefront/middleware/tokenware"
)

// ValidationListener aliases the tokenware listener so consumers can use storefront helpers directly.
type ValidationListener = tokenware.ValidationListener

type tokenValidatorAdapter struct {
	tokens TokenService
}

// NewTokenValidatorAdapter bridges the token service to the middleware's
// validator interface without an import cycle.
func NewTokenValidatorAdapter(tokens TokenService) tokenware.TokenValidator {
	return tokenValidatorAdapter{tokens: tokens}
}

func (a tokenValidatorAdapter) Validate(tokenString string) (tokenware.AuthClaims, error) {
	claims, err := a.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// ContextEnricherAdapter adapts tokenware.AuthClaims to storefront claims and
// stores them in the standard context for downstream guard usage.
func ContextEnricherAdapter(c context.Context, claims tokenware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}

	return WithClaimsContext(c, authClaims)
}
