// Package session mints and verifies the signed session tokens handed to admins.
package session

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/cclient/core"
)

// ErrInvalidToken is the only error callers see; the wrapped message tells why.
var ErrInvalidToken = errors.New("invalid or expired token")

var nowFunc = time.Now // mockable

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	AdminID int `json:"adminId"`
	jwt.RegisteredClaims
}

type Issuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
}

func NewIssuer(conf *core.Config) (*Issuer, error) {
	err := vala.BeginValidation().Validate(
		vala.StringNotEmpty(conf.SecretKey, "SecretKey"),
		vala.StringNotEmpty(conf.AppName, "AppName"),
	).Check()
	if err != nil {
		return nil, errors.Wrap(err, "configuring session issuer")
	}

	ttl := conf.Server.JWTExpirationDelta
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Issuer{
		key:    []byte(conf.SecretKey),
		issuer: conf.AppName,
		ttl:    ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(conf.AppName),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(func() time.Time { return nowFunc() }),
		),
	}, nil
}

// Issue returns a signed HS256 token for adminID, valid for the configured delta.
func (iss *Issuer) Issue(adminID int) (string, error) {
	now := nowFunc()
	claims := Claims{
		AdminID: adminID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    iss.issuer,
			Subject:   strconv.Itoa(adminID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(iss.ttl)),
		},
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(iss.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Verify checks the token signature, issuer and expiry and returns the admin id it carries.
func (iss *Issuer) Verify(tokenStr string) (int, error) {
	claims := new(Claims)
	_, err := iss.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return iss.key, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return 0, errors.WithMessage(ErrInvalidToken, "expired")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return 0, errors.WithMessage(ErrInvalidToken, "bad signature")
	case errors.Is(err, jwt.ErrTokenMalformed):
		return 0, errors.WithMessage(ErrInvalidToken, "malformed")
	default:
		return 0, errors.WithMessage(ErrInvalidToken, err.Error())
	}

	id, err := strconv.Atoi(claims.Subject)
	if err != nil || id != claims.AdminID || id <= 0 {
		return 0, errors.WithMessage(ErrInvalidToken, "bad subject")
	}
	return id, nil
}
