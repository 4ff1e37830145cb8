package api

import (
	"context"
	"fmt"
	"net/http"

	"boutique/internal/models"
)

func (c *Client) Wishlist(ctx context.Context, token string) ([]models.Product, error) {
	return getList[models.Product](ctx, c, "/wishlist", token)
}

func (c *Client) AddToWishlist(ctx context.Context, token string, productID int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/wishlist/%d", productID), token, nil, nil)
}

func (c *Client) RemoveFromWishlist(ctx context.Context, token string, productID int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/wishlist/%d", productID), token, nil, nil)
}
