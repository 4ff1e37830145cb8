package handlers

import (
	"net/http"

	"boutique/internal/logger"
	"boutique/internal/middleware"
	"boutique/internal/models"
	"boutique/internal/storefront"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type cartLine struct {
	models.CartItem
	LineTotal        decimal.Decimal `json:"lineTotal"`
	LineTotalWithTax decimal.Decimal `json:"lineTotalWithTax"`
}

type cartView struct {
	Items             []cartLine      `json:"items"`
	TotalItems        int             `json:"totalItems"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	TotalPriceWithTax decimal.Decimal `json:"totalPriceWithTax"`
}

func viewCart(sf *storefront.Storefront) cartView {
	items := sf.Cart.Items()
	lines := make([]cartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, cartLine{
			CartItem:         item,
			LineTotal:        item.LineTotal(),
			LineTotalWithTax: item.LineTotalWithTax(),
		})
	}
	return cartView{
		Items:             lines,
		TotalItems:        sf.Cart.TotalItems(),
		TotalPrice:        sf.Cart.TotalPrice(),
		TotalPriceWithTax: sf.Cart.TotalPriceWithTax(),
	}
}

func handleCart(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cart": viewCart(middleware.Storefront(c))})
}

type addToCartRequest struct {
	ProductID int `json:"productId" binding:"required"`
}

// handleAddToCart looks the product up upstream so the cart always holds
// the catalog's price, never one sent by the browser.
func handleAddToCart(c *gin.Context) {
	var in addToCartRequest
	if err := c.ShouldBindJSON(&in); err != nil || in.ProductID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Produit invalide"})
		return
	}

	product, err := shopOf(c).Product(c.Request.Context(), in.ProductID)
	if err != nil {
		upstreamError(c, err, "Impossible d'ajouter le produit au panier")
		return
	}

	sf := middleware.Storefront(c)
	if err := sf.Cart.AddOrIncrement(c.Request.Context(), *product); err != nil {
		cartWriteFailed(c, sf, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": viewCart(sf)})
}

func handleDecrementCartItem(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	sf := middleware.Storefront(c)
	if err := sf.Cart.Decrement(c.Request.Context(), id); err != nil {
		cartWriteFailed(c, sf, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": viewCart(sf)})
}

func handleRemoveCartItem(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	sf := middleware.Storefront(c)
	if err := sf.Cart.Remove(c.Request.Context(), id); err != nil {
		cartWriteFailed(c, sf, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": viewCart(sf)})
}

func handleClearCart(c *gin.Context) {
	sf := middleware.Storefront(c)
	if err := sf.Cart.Clear(c.Request.Context()); err != nil {
		cartWriteFailed(c, sf, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": viewCart(sf)})
}

// cartWriteFailed reports a persistence failure. The in-memory cart has
// already changed, so the response still carries it.
func cartWriteFailed(c *gin.Context, sf *storefront.Storefront, err error) {
	logger.Error("Failed to persist cart", "client_id", sf.ClientID, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Le panier n'a pas pu être enregistré",
		"cart":  viewCart(sf),
	})
}
