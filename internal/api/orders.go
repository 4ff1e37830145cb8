package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"boutique/internal/models"
)

func (c *Client) CreateOrder(ctx context.Context, token string, req models.OrderRequest) (*models.OrderCreated, error) {
	var out models.OrderCreated
	if err := c.do(ctx, http.MethodPost, "/orders", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Orders(ctx context.Context, token string) ([]models.Order, error) {
	return getList[models.Order](ctx, c, "/orders", token)
}

func (c *Client) Order(ctx context.Context, token string, id int) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), token, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateCheckoutSession asks the API for a hosted payment page. It is
// never retried: a second attempt could open a second payment session.
func (c *Client) CreateCheckoutSession(ctx context.Context, token string, req models.OrderRequest) (*models.CheckoutSession, error) {
	var out models.CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/checkout/create-session", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VerifyPayment(ctx context.Context, token, sessionID string) (*models.PaymentVerification, error) {
	var out models.PaymentVerification
	path := "/checkout/verify/" + url.PathEscape(sessionID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
