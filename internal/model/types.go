package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingClaim is returned by DecodeUser when a required claim is absent.
var ErrMissingClaim = errors.New("model: missing claim")

// User is the signed-in identity as reported by the identity provider.
// All fields are copied verbatim from the provider's claims.
type User struct {
	Nickname  string `json:"nickname"`
	Name      string `json:"name"`
	Picture   string `json:"picture"`
	UpdatedAt string `json:"updated_at"`
	Sub       string `json:"sub"`
}

// Identity is the provider's opaque "current auth user" payload, a raw JSON
// claims document. A nil Identity means the provider has no signed-in user.
type Identity json.RawMessage

// Session holds the authenticated user and the bearer credential used for
// backend calls. Both are optional.
type Session struct {
	User  *User
	Token *string
}

// SignedIn reports whether a user is present.
func (s Session) SignedIn() bool {
	return s.User != nil
}

// AuthConfig is the identity provider configuration served by the
// application origin at AuthConfigPath.
type AuthConfig struct {
	Domain   string `json:"domain"`
	ClientID string `json:"client_id"`
	Audience string `json:"audience"`
}

// Validate checks that every field is populated.
func (c AuthConfig) Validate() error {
	switch {
	case c.Domain == "":
		return fmt.Errorf("auth config: domain is required")
	case c.ClientID == "":
		return fmt.Errorf("auth config: client_id is required")
	case c.Audience == "":
		return fmt.Errorf("auth config: audience is required")
	}
	return nil
}

// Preferences is the settings page state persisted between runs.
type Preferences struct {
	Theme   string `yaml:"theme"`
	Compact bool   `yaml:"compact"`
}

// userClaims mirrors User with pointer fields so absent claims can be told
// apart from empty ones.
type userClaims struct {
	Nickname  *string `json:"nickname"`
	Name      *string `json:"name"`
	Picture   *string `json:"picture"`
	UpdatedAt *string `json:"updated_at"`
	Sub       *string `json:"sub"`
}

// DecodeUser deserializes an identity payload into a User. Every field must
// be present as a string; no other validation is applied.
func DecodeUser(id Identity) (User, error) {
	if len(id) == 0 {
		return User{}, fmt.Errorf("model: decode user: empty identity")
	}

	var c userClaims
	if err := json.Unmarshal(id, &c); err != nil {
		return User{}, fmt.Errorf("model: decode user: %w", err)
	}

	fields := []struct {
		name string
		v    *string
	}{
		{"nickname", c.Nickname},
		{"name", c.Name},
		{"picture", c.Picture},
		{"updated_at", c.UpdatedAt},
		{"sub", c.Sub},
	}
	for _, f := range fields {
		if f.v == nil {
			return User{}, fmt.Errorf("%w: %s", ErrMissingClaim, f.name)
		}
	}

	return User{
		Nickname:  *c.Nickname,
		Name:      *c.Name,
		Picture:   *c.Picture,
		UpdatedAt: *c.UpdatedAt,
		Sub:       *c.Sub,
	}, nil
}
