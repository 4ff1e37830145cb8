package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"boutique/internal/models"
)

var ErrEmptyToken = errors.New("login response carried no token")

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, identifier, secret string) (string, error) {
	in := map[string]string{"username": identifier, "password": secret}

	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/login", "", in, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", ErrEmptyToken
	}
	return out.Token, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/register", "", req, nil)
}

func (c *Client) Addresses(ctx context.Context, token string) ([]models.Address, error) {
	return getList[models.Address](ctx, c, "/user/addresses", token)
}

func (c *Client) CreateAddress(ctx context.Context, token string, in models.AddressInput) (*models.Address, error) {
	var address models.Address
	if err := c.do(ctx, http.MethodPost, "/user/addresses", token, in, &address); err != nil {
		return nil, err
	}
	return &address, nil
}

func (c *Client) DeleteAddress(ctx context.Context, token string, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/user/addresses/%d", id), token, nil, nil)
}
