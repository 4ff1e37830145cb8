package api

import (
	"context"
	"fmt"
	"net/http"

	"boutique/internal/models"
)

func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	return getList[models.Product](ctx, c, "/products", "")
}

func (c *Client) Product(ctx context.Context, id int) (*models.Product, error) {
	var product models.Product
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), "", nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	return getList[models.Category](ctx, c, "/categories", "")
}

func (c *Client) Carriers(ctx context.Context) ([]models.Carrier, error) {
	return getList[models.Carrier](ctx, c, "/carriers", "")
}
