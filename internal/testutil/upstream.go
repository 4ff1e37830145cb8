package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"boutique/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Password is the only password the fake upstream accepts.
const Password = "secret1"

// Upstream is an in-process fake of the remote shop API. Lists are served
// inside a hydra:member envelope the way the real API does.
type Upstream struct {
	*httptest.Server

	mu         sync.Mutex
	Token      string
	Products   []models.Product
	Categories []models.Category
	Carriers   []models.Carrier
	Addresses  []models.Address
	Orders     []models.Order
	Wishlisted map[int]bool
	Sessions   []models.OrderRequest
	Paid       bool
	PaidOrder  int
	FailWrites bool
	nextID     int

	// WishlistGate, when set, holds wishlist reads until it is closed.
	WishlistGate chan struct{}
}

func NewUpstream() *Upstream {
	u := &Upstream{
		Token: Token(4, "ana@example.com", "Ana", time.Now().Add(time.Hour)),
		Products: []models.Product{
			Product(1, "robe", "10", "20"),
			Product(2, "sac", "45", "0"),
		},
		Categories: []models.Category{{ID: 1, Name: "Robes", Slug: "robes"}},
		Carriers: []models.Carrier{
			{ID: 3, Name: "Colissimo", Price: decimal.NewFromInt(5)},
			{ID: 4, Name: "Chronopost", Price: decimal.NewFromInt(12)},
		},
		Addresses: []models.Address{
			{ID: 11, Firstname: "Ana", Lastname: "Martin", Address: "1 rue de la Paix", Postal: "75001", City: "Paris", Country: "France", Phone: "0612345678"},
		},
		Orders: []models.Order{
			{ID: 123, Reference: "REF-123", State: models.OrderPaid, CarrierName: "Colissimo", Total: decimal.NewFromInt(50)},
		},
		Wishlisted: map[int]bool{},
		Paid:       true,
		PaidOrder:  123,
		nextID:     100,
	}
	u.Server = httptest.NewServer(u.routes())
	return u
}

func (u *Upstream) routes() http.Handler {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.POST("/login", u.login)
	r.POST("/register", func(c *gin.Context) { c.JSON(http.StatusCreated, gin.H{"success": true}) })
	r.GET("/products", func(c *gin.Context) { u.list(c, u.Products) })
	r.GET("/products/:id", u.product)
	r.GET("/categories", func(c *gin.Context) { u.list(c, u.Categories) })
	r.GET("/carriers", func(c *gin.Context) { u.list(c, u.Carriers) })

	auth := r.Group("/", u.requireToken)
	auth.GET("/user/addresses", func(c *gin.Context) { u.list(c, u.Addresses) })
	auth.POST("/user/addresses", u.createAddress)
	auth.DELETE("/user/addresses/:id", u.deleteAddress)
	auth.GET("/orders", func(c *gin.Context) { u.list(c, u.Orders) })
	auth.GET("/orders/:id", u.order)
	auth.GET("/wishlist", u.wishlist)
	auth.POST("/wishlist/:id", u.setWishlisted(true))
	auth.DELETE("/wishlist/:id", u.setWishlisted(false))
	auth.POST("/checkout/create-session", u.createSession)
	auth.GET("/checkout/verify/:id", u.verify)
	return r
}

func (u *Upstream) requireToken(c *gin.Context) {
	u.mu.Lock()
	want := "Bearer " + u.Token
	u.mu.Unlock()
	if c.GetHeader("Authorization") != want {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "JWT Token not found"})
		return
	}
	c.Next()
}

func (u *Upstream) list(c *gin.Context, v interface{}) {
	u.mu.Lock()
	defer u.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"hydra:member": v})
}

func (u *Upstream) login(c *gin.Context) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.Password != Password {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials."})
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"token": u.Token})
}

func (u *Upstream) product(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, p := range u.Products {
		if p.ID == id {
			c.JSON(http.StatusOK, p)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
}

func (u *Upstream) createAddress(c *gin.Context) {
	var in models.AddressInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.FailWrites {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "unavailable"})
		return
	}
	u.nextID++
	address := models.Address{
		ID: u.nextID, Firstname: in.Firstname, Lastname: in.Lastname, Address: in.Address,
		Postal: in.Postal, City: in.City, Country: in.Country, Phone: in.Phone,
	}
	u.Addresses = append(u.Addresses, address)
	c.JSON(http.StatusCreated, address)
}

func (u *Upstream) deleteAddress(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))
	u.mu.Lock()
	defer u.mu.Unlock()
	for i, a := range u.Addresses {
		if a.ID == id {
			u.Addresses = append(u.Addresses[:i], u.Addresses[i+1:]...)
			c.Status(http.StatusNoContent)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
}

func (u *Upstream) order(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, o := range u.Orders {
		if o.ID == id {
			c.JSON(http.StatusOK, o)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
}

func (u *Upstream) wishlist(c *gin.Context) {
	u.mu.Lock()
	gate := u.WishlistGate
	u.mu.Unlock()
	if gate != nil {
		<-gate
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	out := []models.Product{}
	for _, p := range u.Products {
		if u.Wishlisted[p.ID] {
			out = append(out, p)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (u *Upstream) setWishlisted(on bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := strconv.Atoi(c.Param("id"))
		u.mu.Lock()
		defer u.mu.Unlock()
		if u.FailWrites {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "unavailable"})
			return
		}
		u.Wishlisted[id] = on
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func (u *Upstream) createSession(c *gin.Context) {
	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid body"})
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.FailWrites {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "unavailable"})
		return
	}
	u.Sessions = append(u.Sessions, req)
	id := "cs_test_" + strconv.Itoa(len(u.Sessions))
	c.JSON(http.StatusOK, models.CheckoutSession{
		Success:     true,
		CheckoutURL: "https://pay.example/" + id,
		SessionID:   id,
	})
}

func (u *Upstream) verify(c *gin.Context) {
	if !strings.HasPrefix(c.Param("id"), "cs_") {
		c.JSON(http.StatusNotFound, gin.H{"message": "Unknown session"})
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	c.JSON(http.StatusOK, models.PaymentVerification{Success: true, Paid: u.Paid, OrderID: u.PaidOrder})
}

// SessionCount returns how many payment sessions were opened.
func (u *Upstream) SessionCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.Sessions)
}

// IsWishlisted reports the server-side wishlist membership of id.
func (u *Upstream) IsWishlisted(id int) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.Wishlisted[id]
}

// SetFailWrites makes every mutating endpoint answer 500.
func (u *Upstream) SetFailWrites(fail bool) {
	u.mu.Lock()
	u.FailWrites = fail
	u.mu.Unlock()
}
