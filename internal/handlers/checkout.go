package handlers

import (
	"errors"
	"net/http"

	"boutique/internal/checkout"
	"boutique/internal/logger"
	"boutique/internal/middleware"
	"boutique/internal/storefront"

	"github.com/gin-gonic/gin"
)

const cartPath = "/cart"

// guardStep redirects to the wizard's first page when the step's
// precondition does not hold.
func guardStep(c *gin.Context, step checkout.Step) bool {
	if redirect, ok := middleware.Storefront(c).Checkout.Guard(step); !ok {
		c.Redirect(http.StatusFound, redirect)
		return false
	}
	return true
}

func requireItems(c *gin.Context) bool {
	if middleware.Storefront(c).Cart.IsEmpty() {
		c.Redirect(http.StatusFound, cartPath)
		return false
	}
	return true
}

func handleCheckoutAddress(c *gin.Context) {
	if !requireItems(c) || !guardStep(c, checkout.StepAddress) {
		return
	}
	t, ok := token(c)
	if !ok {
		return
	}

	addresses, err := shopOf(c).Addresses(c.Request.Context(), t)
	if err != nil {
		upstreamError(c, err, "Impossible de charger vos adresses")
		return
	}

	// The current choice, else the first address, is offered preselected.
	sel := middleware.Storefront(c).Checkout.Selection()
	suggested := 0
	if sel.SelectedAddress != nil {
		suggested = sel.SelectedAddress.ID
	} else if len(addresses) > 0 {
		suggested = addresses[0].ID
	}

	c.JSON(http.StatusOK, gin.H{"addresses": addresses, "selectedAddressId": suggested})
}

type selectAddressRequest struct {
	AddressID int `json:"addressId" binding:"required"`
}

func handleSelectAddress(c *gin.Context) {
	var in selectAddressRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Veuillez choisir une adresse"})
		return
	}
	t, ok := token(c)
	if !ok {
		return
	}

	addresses, err := shopOf(c).Addresses(c.Request.Context(), t)
	if err != nil {
		upstreamError(c, err, "Impossible de charger vos adresses")
		return
	}
	for _, a := range addresses {
		if a.ID == in.AddressID {
			middleware.Storefront(c).Checkout.SetSelectedAddress(a)
			c.JSON(http.StatusOK, gin.H{"success": true, "redirect": checkout.CarrierPath})
			return
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Adresse inconnue"})
}

func handleCheckoutCarrier(c *gin.Context) {
	if !requireItems(c) || !guardStep(c, checkout.StepCarrier) {
		return
	}

	carriers, err := shopOf(c).Carriers(c.Request.Context())
	if err != nil {
		upstreamError(c, err, "Impossible de charger les transporteurs")
		return
	}

	sel := middleware.Storefront(c).Checkout.Selection()
	suggested := 0
	if sel.SelectedCarrier != nil {
		suggested = sel.SelectedCarrier.ID
	} else if len(carriers) > 0 {
		suggested = carriers[0].ID
	}

	c.JSON(http.StatusOK, gin.H{
		"carriers":          carriers,
		"selectedCarrierId": suggested,
		"address":           sel.SelectedAddress,
	})
}

type selectCarrierRequest struct {
	CarrierID int `json:"carrierId" binding:"required"`
}

func handleSelectCarrier(c *gin.Context) {
	if !guardStep(c, checkout.StepCarrier) {
		return
	}

	var in selectCarrierRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Veuillez choisir un transporteur"})
		return
	}

	carriers, err := shopOf(c).Carriers(c.Request.Context())
	if err != nil {
		upstreamError(c, err, "Impossible de charger les transporteurs")
		return
	}
	for _, carrier := range carriers {
		if carrier.ID == in.CarrierID {
			middleware.Storefront(c).Checkout.SetSelectedCarrier(carrier)
			c.JSON(http.StatusOK, gin.H{"success": true, "redirect": checkout.SummaryPath})
			return
		}
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Transporteur inconnu"})
}

func handleCheckoutSummary(c *gin.Context) {
	if !requireItems(c) || !guardStep(c, checkout.StepSummary) {
		return
	}

	sf := middleware.Storefront(c)
	summary, err := sf.Summary()
	if err != nil {
		c.Redirect(http.StatusFound, checkout.AddressPath)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary, "state": sf.Checkout.State().String()})
}

func handlePay(c *gin.Context) {
	if !guardStep(c, checkout.StepSummary) {
		return
	}

	sf := middleware.Storefront(c)
	session, err := sf.BeginPayment(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"checkoutUrl": session.CheckoutURL,
			"sessionId":   session.SessionID,
		})
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Votre panier est vide", "redirect": cartPath})
	case errors.Is(err, checkout.ErrIncomplete):
		c.Redirect(http.StatusFound, checkout.AddressPath)
	case errors.Is(err, storefront.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expirée", "redirect": middleware.LoginPath})
	default:
		logger.Error("Failed to start payment", "client_id", sf.ClientID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"success":  false,
			"error":    "Le paiement n'a pas pu être initié",
			"redirect": cartPath,
		})
	}
}

// handleCheckoutSuccess is where the payment provider sends the browser
// back. The outcome is reported once, then the wizard starts over. A
// revisit of an already confirmed session changes nothing.
func handleCheckoutSuccess(c *gin.Context) {
	sf := middleware.Storefront(c)
	sessionID := c.Query("session_id")

	orderID, err := sf.VerifyPayment(c.Request.Context(), sessionID)
	switch {
	case err == nil:
		state := sf.Checkout.State().String()
		sf.AcknowledgeCompletion()
		c.JSON(http.StatusOK, gin.H{"success": true, "orderId": orderID, "state": state})
	case errors.Is(err, storefront.ErrAlreadyConfirmed):
		// revisited page: the wizard and cart now belong to a new order
		c.JSON(http.StatusOK, gin.H{
			"success":          true,
			"orderId":          orderID,
			"state":            sf.Checkout.State().String(),
			"alreadyConfirmed": true,
		})
	case errors.Is(err, storefront.ErrMissingSession):
		c.JSON(http.StatusBadRequest, gin.H{
			"success":  false,
			"error":    "Session de paiement manquante",
			"redirect": cartPath,
		})
	case errors.Is(err, storefront.ErrPaymentNotConfirmed):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"success":  false,
			"error":    "Le paiement n'a pas été confirmé",
			"redirect": cartPath,
		})
	default:
		logger.Error("Payment verification failed", "client_id", sf.ClientID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"success":  false,
			"error":    "Impossible de vérifier le paiement",
			"redirect": cartPath,
		})
	}
}

// handleCheckoutCancel resets the wizard. The cart is kept so the user can
// try again.
func handleCheckoutCancel(c *gin.Context) {
	middleware.Storefront(c).AbandonCheckout()
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Paiement annulé, votre panier a été conservé",
		"redirect": cartPath,
	})
}
