package handlers

import (
	"net/http"

	"boutique/internal/middleware"
	"boutique/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type productView struct {
	models.Product
	PriceWithTax decimal.Decimal `json:"priceWithTax"`
	InWishlist   bool            `json:"inWishlist"`
	InCart       int             `json:"inCart"`
}

func viewProduct(c *gin.Context, p models.Product) productView {
	sf := middleware.Storefront(c)
	return productView{
		Product:      p,
		PriceWithTax: p.PriceWithTax(),
		InWishlist:   sf.Wishlist.IsInWishlist(p.ID),
		InCart:       sf.Cart.Quantity(p.ID),
	}
}

// handleProducts lists the catalog, optionally narrowed to one category
// slug or to homepage products.
func handleProducts(c *gin.Context) {
	products, err := shopOf(c).Products(c.Request.Context())
	if err != nil {
		upstreamError(c, err, "Impossible de charger les produits")
		return
	}

	category := c.Query("category")
	homepage := c.Query("homepage") == "true"

	out := make([]productView, 0, len(products))
	for _, p := range products {
		if category != "" && (p.Category == nil || p.Category.Slug != category) {
			continue
		}
		if homepage && !p.IsHomepage {
			continue
		}
		out = append(out, viewProduct(c, p))
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}

func handleProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	product, err := shopOf(c).Product(c.Request.Context(), id)
	if err != nil {
		upstreamError(c, err, "Impossible de charger le produit")
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": viewProduct(c, *product)})
}

func handleCategories(c *gin.Context) {
	categories, err := shopOf(c).Categories(c.Request.Context())
	if err != nil {
		upstreamError(c, err, "Impossible de charger les catégories")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func handleCarriers(c *gin.Context) {
	carriers, err := shopOf(c).Carriers(c.Request.Context())
	if err != nil {
		upstreamError(c, err, "Impossible de charger les transporteurs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"carriers": carriers})
}
