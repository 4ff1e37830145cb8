package session

import (
	"errors"
	"fmt"
	"time"

	"boutique/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrTokenExpired   = errors.New("token expired")
)

// Claims is the payload the shop API embeds in its bearer tokens.
type Claims struct {
	UserID    int      `json:"id"`
	Username  string   `json:"username"`
	Firstname string   `json:"firstname"`
	Lastname  string   `json:"lastname"`
	Roles     []string `json:"roles"`
	jwt.RegisteredClaims
}

// DecodeToken reads the claims of a bearer token locally. The signature is
// not checked: the API does that on every call, the storefront only needs
// identity and expiry. A token without an expiry is rejected.
func DecodeToken(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: no exp claim", ErrMalformedToken)
	}
	return claims, nil
}

func (c *Claims) Expired(now time.Time) bool {
	return c.ExpiresAt == nil || !now.Before(c.ExpiresAt.Time)
}

// User builds the session user, falling back to the login identifier when
// the token carries no username.
func (c *Claims) User(identifier string) *models.User {
	email := c.Username
	if email == "" {
		email = identifier
	}
	firstname := c.Firstname
	if firstname == "" {
		firstname = "User"
	}
	roles := append([]string(nil), c.Roles...)
	return &models.User{
		ID:        c.UserID,
		Email:     email,
		Firstname: firstname,
		Lastname:  c.Lastname,
		Roles:     roles,
	}
}

// validToken decodes token and checks it against now.
func validToken(token string, now time.Time) (*Claims, error) {
	claims, err := DecodeToken(token)
	if err != nil {
		return nil, err
	}
	if claims.Expired(now) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}
