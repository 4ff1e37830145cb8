package handlers

import (
	"context"
	"net/http"

	"boutique/internal/middleware"

	"github.com/gin-gonic/gin"
)

// handleWishlist serves the favorites page: full products plus the id set
// the product cards use for their heart icon.
func handleWishlist(c *gin.Context) {
	sf := middleware.Storefront(c)

	products, err := sf.Wishlist.Products(c.Request.Context())
	if err != nil {
		upstreamError(c, err, "Impossible de charger vos favoris")
		return
	}

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, viewProduct(c, p))
	}
	c.JSON(http.StatusOK, gin.H{"products": views, "ids": sf.Wishlist.IDs()})
}

func handleAddToWishlist(c *gin.Context) {
	wishlistAction(c, func(ctx context.Context, id int) error {
		return middleware.Storefront(c).Wishlist.Add(ctx, id)
	})
}

func handleRemoveFromWishlist(c *gin.Context) {
	wishlistAction(c, func(ctx context.Context, id int) error {
		return middleware.Storefront(c).Wishlist.Remove(ctx, id)
	})
}

func handleToggleWishlist(c *gin.Context) {
	wishlistAction(c, func(ctx context.Context, id int) error {
		return middleware.Storefront(c).Wishlist.Toggle(ctx, id)
	})
}

// wishlistAction runs an optimistic wishlist change. On failure the store
// has already rolled back, so the response reports the restored membership.
func wishlistAction(c *gin.Context, action func(ctx context.Context, id int) error) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	sf := middleware.Storefront(c)
	if err := action(c.Request.Context(), id); err != nil {
		upstreamError(c, err, "Impossible de mettre à jour vos favoris")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"inWishlist": sf.Wishlist.IsInWishlist(id),
		"count":      sf.Wishlist.Count(),
	})
}
