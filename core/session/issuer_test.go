package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cclient/core"
)

func newTestIssuer(t *testing.T, secret, appName string) *Issuer {
	t.Helper()
	conf := core.NewConfig()
	conf.SecretKey = secret
	conf.AppName = appName
	conf.Server.JWTExpirationDelta = time.Hour
	iss, err := NewIssuer(conf)
	require.NoError(t, err)
	return iss
}

func freeze(t *testing.T, at time.Time) *time.Time {
	now := at
	orig := nowFunc
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = orig })
	return &now
}

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()
	ss, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return ss
}

func TestNewIssuer(t *testing.T) {
	conf := core.NewConfig()
	conf.SecretKey = ""
	_, err := NewIssuer(conf)
	assert.Error(t, err)
}

func TestIssuer_IssueVerify(t *testing.T) {
	iss := newTestIssuer(t, "secret", "CClient")
	now := freeze(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	token, err := iss.Issue(42)
	require.NoError(t, err)

	id, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	*now = now.Add(59 * time.Minute)
	_, err = iss.Verify(token)
	assert.NoError(t, err)

	*now = now.Add(2 * time.Minute)
	_, err = iss.Verify(token)
	assert.Equal(t, ErrInvalidToken, errors.Cause(err))
	assert.Contains(t, err.Error(), "expired")
}

func TestIssuer_Verify_rejects(t *testing.T) {
	iss := newTestIssuer(t, "secret", "CClient")
	now := time.Now()
	valid := func(sub string, id int) Claims {
		return Claims{
			AdminID: id,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "CClient",
				Subject:   sub,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
	}
	otherIssuerToken, err := newTestIssuer(t, "secret", "Other").Issue(1)
	require.NoError(t, err)
	otherKeyToken, err := newTestIssuer(t, "other-secret", "CClient").Issue(1)
	require.NoError(t, err)
	noExpiry := valid("1", 1)
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "malformed", token: "not.a.jwt"},
		{name: "bad signature", token: otherKeyToken},
		{name: "wrong issuer", token: otherIssuerToken},
		{name: "wrong algorithm", token: sign(t, jwt.SigningMethodHS512, []byte("secret"), valid("1", 1))},
		{name: "unsigned", token: sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid("1", 1))},
		{name: "missing expiry", token: sign(t, jwt.SigningMethodHS256, []byte("secret"), noExpiry)},
		{name: "non-numeric subject", token: sign(t, jwt.SigningMethodHS256, []byte("secret"), valid("abc", 1))},
		{name: "subject mismatch", token: sign(t, jwt.SigningMethodHS256, []byte("secret"), valid("2", 1))},
		{name: "zero id", token: sign(t, jwt.SigningMethodHS256, []byte("secret"), valid("0", 0))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := iss.Verify(tt.token)
			assert.Zero(t, id)
			assert.Equal(t, ErrInvalidToken, errors.Cause(err))
		})
	}
}
