package handlers

import (
	"errors"
	"net/http"
	"strings"

	"boutique/internal/logger"
	"boutique/internal/middleware"
	"boutique/internal/session"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func handleLogin(c *gin.Context) {
	var in loginRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide"})
		return
	}

	identifier := strings.TrimSpace(in.Username)
	if identifier == "" {
		identifier = strings.TrimSpace(in.Email)
	}

	errs := make(map[string]string)
	if identifier == "" {
		errs["email"] = "L'email est requis"
	}
	if in.Password == "" {
		errs["password"] = "Le mot de passe est requis"
	}
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tous les champs sont requis", "errors": errs})
		return
	}

	sf := middleware.Storefront(c)
	if !sf.Session.Login(c.Request.Context(), identifier, in.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Email ou mot de passe incorrect"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": sf.Session.User()})
}

func handleRegister(c *gin.Context) {
	var in session.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide"})
		return
	}

	sf := middleware.Storefront(c)
	err := sf.Session.Register(c.Request.Context(), in)

	var validation *session.ValidationError
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"success": true, "user": sf.Session.User()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message, "field": validation.Field})
	case errors.Is(err, session.ErrLoginAfterRegister):
		c.JSON(http.StatusCreated, gin.H{
			"success":  true,
			"message":  "Compte créé, veuillez vous connecter",
			"redirect": middleware.LoginPath,
		})
	default:
		logger.Warn("Registration failed", "email", in.Email, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Impossible de créer le compte"})
	}
}

func handleLogout(c *gin.Context) {
	middleware.Storefront(c).Session.Logout(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleSession is what the front end polls on load to render the header.
func handleSession(c *gin.Context) {
	sf := middleware.Storefront(c)
	ctx := c.Request.Context()

	resp := gin.H{
		"loading":       sf.Session.IsLoading(),
		"authenticated": sf.Session.Validate(ctx),
		"user":          sf.Session.User(),
		"cartCount":     sf.Cart.TotalItems(),
		"wishlistCount": sf.Wishlist.Count(),
	}
	if exp, ok := sf.Session.ExpiresAt(); ok {
		resp["expiresAt"] = exp
	}
	c.JSON(http.StatusOK, resp)
}
