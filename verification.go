package storefront

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/goliatone/go-errors"
)

// VerificationTTL is the validity window of an email verification token.
const VerificationTTL = 24 * time.Hour

// verificationTokenBytes gives 256 bits of entropy per token.
const verificationTokenBytes = 32

// NewVerificationToken mints a single-use email verification token and its
// expiry. The token is opaque: it carries no structure and matches only by
// exact equality against the stored value.
func NewVerificationToken() (string, time.Time, error) {
	buf := make([]byte, verificationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, errors.Wrap(err, errors.CategoryInternal, "failed to generate verification token")
	}

	return hex.EncodeToString(buf), time.Now().Add(VerificationTTL), nil
}
