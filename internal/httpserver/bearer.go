package httpserver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errNoBearer = errors.New("httpserver: missing bearer token")

// bearerVerifier checks HS256 access tokens minted for the configured
// audience.
type bearerVerifier struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

func (v *bearerVerifier) verify(header string) (*jwt.RegisteredClaims, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, errNoBearer
	}
	if len(v.secret) == 0 {
		return nil, errors.New("httpserver: no token secret configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("httpserver: verify bearer: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("httpserver: verify bearer: missing sub")
	}
	return claims, nil
}
