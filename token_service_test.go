package storefront_test

import (
	"strings"
	"testing"
	"time"

	storefront "github.com/PlainAnoyn/go-storefront"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testIdentity struct {
	id    string
	email string
	role  string
}

func (i testIdentity) ID() string    { return i.id }
func (i testIdentity) Email() string { return i.email }
func (i testIdentity) Role() string  { return i.role }

func newTestTokenService() storefront.TokenService {
	return storefront.NewTokenService(
		[]byte("test-signing-key"),
		24,
		"storefront-test",
		jwt.ClaimStrings{},
		nil,
	)
}

func TestTokenServiceGenerate(t *testing.T) {
	service := newTestTokenService()

	identity := testIdentity{
		id:    "b3f1a5cc-44a0-49a4-90fa-2bd553f4b04e",
		email: "shopper@example.com",
		role:  storefront.RoleStandard,
	}

	token, err := service.Generate(identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// a compact JWS has three dot-separated segments
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := service.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, identity.id, claims.UserID())
	assert.Equal(t, identity.id, claims.Subject())
	assert.Equal(t, storefront.RoleStandard, claims.Role())
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.Expires(), time.Minute)
}

func TestTokenServiceValidate(t *testing.T) {
	service := newTestTokenService()

	identity := testIdentity{
		id:   "b3f1a5cc-44a0-49a4-90fa-2bd553f4b04e",
		role: storefront.RoleAdmin,
	}

	t.Run("valid token round trip", func(t *testing.T) {
		token, err := service.Generate(identity)
		require.NoError(t, err)

		claims, err := service.Validate(token)
		require.NoError(t, err)
		assert.True(t, claims.IsAtLeast(storefront.RoleStandard))
		assert.True(t, claims.IsAtLeast(storefront.RoleAdmin))
	})

	t.Run("expired token", func(t *testing.T) {
		expired := storefront.NewTokenService(
			[]byte("test-signing-key"),
			-1,
			"storefront-test",
			jwt.ClaimStrings{},
			nil,
		)

		token, err := expired.Generate(identity)
		require.NoError(t, err)

		claims, err := service.Validate(token)
		assert.Nil(t, claims)
		assert.True(t, storefront.IsTokenExpiredError(err))
	})

	t.Run("tampered token", func(t *testing.T) {
		token, err := service.Generate(identity)
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)

		sig := "AAAA"
		if strings.HasPrefix(parts[2], sig) {
			sig = "BBBB"
		}
		tampered := parts[0] + "." + parts[1] + "." + sig + parts[2][4:]

		claims, err := service.Validate(tampered)
		assert.Nil(t, claims)
		assert.True(t, storefront.IsMalformedError(err))
	})

	t.Run("token signed with a different key", func(t *testing.T) {
		other := storefront.NewTokenService(
			[]byte("another-key-entirely"),
			24,
			"storefront-test",
			jwt.ClaimStrings{},
			nil,
		)

		token, err := other.Generate(identity)
		require.NoError(t, err)

		claims, err := service.Validate(token)
		assert.Nil(t, claims)
		assert.Error(t, err)
	})

	t.Run("garbage input", func(t *testing.T) {
		claims, err := service.Validate("not-a-token")
		assert.Nil(t, claims)
		assert.True(t, storefront.IsMalformedError(err))
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := storefront.NewTokenService(
			[]byte("test-signing-key"),
			24,
			"someone-else",
			jwt.ClaimStrings{},
			nil,
		)

		token, err := other.Generate(identity)
		require.NoError(t, err)

		claims, err := service.Validate(token)
		assert.Nil(t, claims)
		assert.Error(t, err)
	})
}

func TestSessionFromClaims(t *testing.T) {
	service := newTestTokenService()

	identity := testIdentity{id: "b3f1a5cc-44a0-49a4-90fa-2bd553f4b04e", role: storefront.RoleStandard}

	token, err := service.Generate(identity)
	require.NoError(t, err)

	claims, err := service.Validate(token)
	require.NoError(t, err)

	session, err := storefront.SessionFromClaims(claims)
	require.NoError(t, err)

	assert.Equal(t, identity.id, session.GetUserID())
	assert.Equal(t, storefront.RoleStandard, session.GetRole())
	assert.Equal(t, "storefront-test", session.GetIssuer())

	id, err := session.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, identity.id, id.String())
}

func TestSessionFromClaimsNil(t *testing.T) {
	session, err := storefront.SessionFromClaims(nil)
	assert.Nil(t, session)
	assert.Error(t, err)
}
