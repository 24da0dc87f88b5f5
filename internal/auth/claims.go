package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/smacontrol/sma/internal/model"
)

// identityFromToken extracts the ID token claims from a token response.
// The ID token arrives directly from the tenant's token endpoint over TLS,
// so only its issuer, audience and lifetime are checked.
func identityFromToken(tok *oauth2.Token, issuer, clientID string, now func() time.Time) (model.Identity, error) {
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("auth: token response has no id_token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("auth: parse id_token: %w", err)
	}

	v := jwt.NewValidator(
		jwt.WithIssuer(issuer),
		jwt.WithAudience(clientID),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(time.Minute),
		jwt.WithTimeFunc(now),
	)
	if err := v.Validate(claims); err != nil {
		return nil, fmt.Errorf("auth: validate id_token: %w", err)
	}

	data, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("auth: encode claims: %w", err)
	}
	return model.Identity(data), nil
}
