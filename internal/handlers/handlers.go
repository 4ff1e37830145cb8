package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"boutique/internal/api"
	"boutique/internal/config"
	"boutique/internal/logger"
	"boutique/internal/middleware"
	"boutique/internal/models"
	"boutique/internal/storefront"

	"github.com/gin-gonic/gin"
)

// Shop is the read side of the remote API plus the account calls that do
// not go through a store.
type Shop interface {
	Products(ctx context.Context) ([]models.Product, error)
	Product(ctx context.Context, id int) (*models.Product, error)
	Categories(ctx context.Context) ([]models.Category, error)
	Carriers(ctx context.Context) ([]models.Carrier, error)
	Addresses(ctx context.Context, token string) ([]models.Address, error)
	CreateAddress(ctx context.Context, token string, in models.AddressInput) (*models.Address, error)
	DeleteAddress(ctx context.Context, token string, id int) error
	Orders(ctx context.Context, token string) ([]models.Order, error)
	Order(ctx context.Context, token string, id int) (*models.Order, error)
}

func SetupRoutes(r *gin.Engine, cfg *config.Config, shop Shop, registry *storefront.Registry) {
	r.GET("/healthz", handleHealth)

	r.Use(addShopContext(shop))
	r.Use(middleware.ClientIdentity(registry, cfg))

	r.POST("/login", middleware.AuthRateLimit(cfg), handleLogin)
	r.POST("/register", middleware.AuthRateLimit(cfg), handleRegister)
	r.POST("/logout", handleLogout)

	public := r.Group("/api")
	{
		public.GET("/session", handleSession)

		public.GET("/products", handleProducts)
		public.GET("/products/:id", handleProduct)
		public.GET("/categories", handleCategories)
		public.GET("/carriers", handleCarriers)

		public.GET("/cart", handleCart)
		public.POST("/cart/items", handleAddToCart)
		public.POST("/cart/items/:id/decrement", handleDecrementCartItem)
		public.DELETE("/cart/items/:id", handleRemoveCartItem)
		public.DELETE("/cart", handleClearCart)
	}

	protected := r.Group("/api")
	protected.Use(middleware.AuthRequired())
	{
		protected.GET("/wishlist", handleWishlist)
		protected.POST("/wishlist/:id", handleAddToWishlist)
		protected.DELETE("/wishlist/:id", handleRemoveFromWishlist)
		protected.POST("/wishlist/:id/toggle", handleToggleWishlist)

		protected.GET("/addresses", handleAddresses)
		protected.POST("/addresses", handleCreateAddress)
		protected.DELETE("/addresses/:id", handleDeleteAddress)

		protected.GET("/orders", handleOrders)
		protected.GET("/orders/:id", handleOrder)
	}

	checkout := r.Group("/checkout")
	checkout.Use(middleware.AuthRequired())
	{
		checkout.GET("/address", handleCheckoutAddress)
		checkout.POST("/address", handleSelectAddress)
		checkout.GET("/carrier", handleCheckoutCarrier)
		checkout.POST("/carrier", handleSelectCarrier)
		checkout.GET("/summary", handleCheckoutSummary)
		checkout.POST("/pay", handlePay)
		checkout.GET("/success", handleCheckoutSuccess)
		checkout.GET("/cancel", handleCheckoutCancel)
	}
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func addShopContext(shop Shop) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("shop", shop)
		c.Next()
	}
}

func shopOf(c *gin.Context) Shop {
	return c.MustGet("shop").(Shop)
}

// token is only called behind AuthRequired, so a missing token means the
// session expired mid-request.
func token(c *gin.Context) (string, bool) {
	t, ok := middleware.Storefront(c).Session.Token()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expirée", "redirect": middleware.LoginPath})
	}
	return t, ok
}

func idParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant invalide"})
		return 0, false
	}
	return id, true
}

// upstreamError maps a failed API call to a response. Transport details
// are logged, never sent to the browser. A rejected token ends the session.
func upstreamError(c *gin.Context, err error, message string) {
	sf := middleware.Storefront(c)

	var apiErr *api.Error
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		logger.Info("Upstream rejected token", "client_id", sf.ClientID)
		sf.Session.Logout(c.Request.Context())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expirée", "redirect": middleware.LoginPath})
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "Introuvable"})
	default:
		logger.Error(message, "client_id", sf.ClientID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": message})
	}
}
