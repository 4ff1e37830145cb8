package handlers

import (
	"net/http"
	"strings"

	"boutique/internal/logger"
	"boutique/internal/middleware"
	"boutique/internal/models"

	"github.com/gin-gonic/gin"
)

func handleAddresses(c *gin.Context) {
	t, ok := token(c)
	if !ok {
		return
	}

	addresses, err := shopOf(c).Addresses(c.Request.Context(), t)
	if err != nil {
		upstreamError(c, err, "Impossible de charger vos adresses")
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

// validateAddress trims every field and reports the missing ones.
func validateAddress(in *models.AddressInput) map[string]string {
	fields := []struct {
		name  string
		value *string
	}{
		{"firstname", &in.Firstname},
		{"lastname", &in.Lastname},
		{"address", &in.Address},
		{"postal", &in.Postal},
		{"city", &in.City},
		{"country", &in.Country},
		{"phone", &in.Phone},
	}

	errs := make(map[string]string)
	for _, f := range fields {
		*f.value = strings.TrimSpace(*f.value)
		if *f.value == "" {
			errs[f.name] = "Ce champ est requis"
		}
	}
	return errs
}

func handleCreateAddress(c *gin.Context) {
	var in models.AddressInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide"})
		return
	}
	if errs := validateAddress(&in); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tous les champs sont requis", "errors": errs})
		return
	}

	t, ok := token(c)
	if !ok {
		return
	}

	address, err := shopOf(c).CreateAddress(c.Request.Context(), t, in)
	if err != nil {
		upstreamError(c, err, "Impossible d'enregistrer l'adresse")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"address": address})
}

func handleDeleteAddress(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	t, ok := token(c)
	if !ok {
		return
	}

	if err := shopOf(c).DeleteAddress(c.Request.Context(), t, id); err != nil {
		upstreamError(c, err, "Impossible de supprimer l'adresse")
		return
	}

	// A checkout pointing at a deleted address has to start over.
	sf := middleware.Storefront(c)
	if sel := sf.Checkout.Selection(); sel.SelectedAddress != nil && sel.SelectedAddress.ID == id {
		logger.Debug("Selected address deleted, resetting checkout", "client_id", sf.ClientID)
		sf.AbandonCheckout()
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type orderView struct {
	models.Order
	StateLabel string `json:"stateLabel"`
}

func handleOrders(c *gin.Context) {
	t, ok := token(c)
	if !ok {
		return
	}

	orders, err := shopOf(c).Orders(c.Request.Context(), t)
	if err != nil {
		upstreamError(c, err, "Impossible de charger vos commandes")
		return
	}

	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderView{Order: o, StateLabel: o.State.Label()})
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

func handleOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	t, ok := token(c)
	if !ok {
		return
	}

	order, err := shopOf(c).Order(c.Request.Context(), t, id)
	if err != nil {
		upstreamError(c, err, "Impossible de charger la commande")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": orderView{Order: *order, StateLabel: order.State.Label()}})
}
