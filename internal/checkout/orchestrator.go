// Package checkout drives the address → carrier → summary → outcome wizard.
package checkout

import (
	"errors"
	"sync"

	"boutique/internal/models"

	"github.com/shopspring/decimal"
)

const (
	AddressPath = "/checkout/address"
	CarrierPath = "/checkout/carrier"
	SummaryPath = "/checkout/summary"
	SuccessPath = "/checkout/success"
	CancelPath  = "/checkout/cancel"
)

var (
	ErrIncomplete = errors.New("checkout selection incomplete")
	ErrEmptyCart  = errors.New("cart is empty")
)

type State int

const (
	NoAddress State = iota
	HasAddress
	HasCarrier
	Summarized
	Completed
)

func (s State) String() string {
	switch s {
	case NoAddress:
		return "no_address"
	case HasAddress:
		return "has_address"
	case HasCarrier:
		return "has_carrier"
	case Summarized:
		return "summarized"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Step is a wizard page that has a precondition.
type Step int

const (
	StepAddress Step = iota
	StepCarrier
	StepSummary
)

// Cart is what the summary reads from the cart store.
type Cart interface {
	Items() []models.CartItem
	TotalItems() int
	TotalPrice() decimal.Decimal
	TotalPriceWithTax() decimal.Decimal
}

type Selection struct {
	SelectedAddress *models.Address `json:"selectedAddress"`
	SelectedCarrier *models.Carrier `json:"selectedCarrier"`
	OrderID         *int            `json:"orderId"`
}

// Summary prices: Subtotal is pre-tax, Total = SubtotalWithTax + Shipping.
type Summary struct {
	Address         models.Address    `json:"address"`
	Carrier         models.Carrier    `json:"carrier"`
	Items           []models.CartItem `json:"items"`
	TotalItems      int               `json:"totalItems"`
	Subtotal        decimal.Decimal   `json:"subtotal"`
	Tax             decimal.Decimal   `json:"tax"`
	SubtotalWithTax decimal.Decimal   `json:"subtotalWithTax"`
	Shipping        decimal.Decimal   `json:"shipping"`
	Total           decimal.Decimal   `json:"total"`
}

type Orchestrator struct {
	mu         sync.RWMutex
	sel        Selection
	summarized bool
}

func New() *Orchestrator {
	return &Orchestrator{}
}

func (o *Orchestrator) SetSelectedAddress(address models.Address) {
	o.mu.Lock()
	o.sel.SelectedAddress = &address
	o.summarized = false
	o.mu.Unlock()
}

func (o *Orchestrator) SetSelectedCarrier(carrier models.Carrier) {
	o.mu.Lock()
	o.sel.SelectedCarrier = &carrier
	o.summarized = false
	o.mu.Unlock()
}

// Complete records the paid order. Only a summarized wizard moves to
// Completed; from any other state nothing changes and false is returned.
func (o *Orchestrator) Complete(orderID int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.summarized || o.sel.OrderID != nil {
		return false
	}
	o.sel.OrderID = &orderID
	return true
}

func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.sel = Selection{}
	o.summarized = false
	o.mu.Unlock()
}

// Selection returns a copy of the current selections.
func (o *Orchestrator) Selection() Selection {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var out Selection
	if o.sel.SelectedAddress != nil {
		a := *o.sel.SelectedAddress
		out.SelectedAddress = &a
	}
	if o.sel.SelectedCarrier != nil {
		c := *o.sel.SelectedCarrier
		out.SelectedCarrier = &c
	}
	if o.sel.OrderID != nil {
		id := *o.sel.OrderID
		out.OrderID = &id
	}
	return out
}

func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()

	switch {
	case o.sel.OrderID != nil:
		return Completed
	case o.sel.SelectedAddress == nil:
		return NoAddress
	case o.sel.SelectedCarrier == nil:
		return HasAddress
	case o.summarized:
		return Summarized
	default:
		return HasCarrier
	}
}

// Guard checks the precondition of step. When it does not hold, the
// returned path is the page to send the user back to.
func (o *Orchestrator) Guard(step Step) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	switch step {
	case StepCarrier:
		if o.sel.SelectedAddress == nil {
			return AddressPath, false
		}
	case StepSummary:
		if o.sel.SelectedAddress == nil || o.sel.SelectedCarrier == nil {
			return AddressPath, false
		}
	}
	return "", true
}

// Summarize computes the summary totals and moves the wizard to Summarized.
func (o *Orchestrator) Summarize(cart Cart) (Summary, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sel.SelectedAddress == nil || o.sel.SelectedCarrier == nil {
		return Summary{}, ErrIncomplete
	}

	subtotal := cart.TotalPrice()
	withTax := cart.TotalPriceWithTax()
	shipping := o.sel.SelectedCarrier.Price

	o.summarized = true
	return Summary{
		Address:         *o.sel.SelectedAddress,
		Carrier:         *o.sel.SelectedCarrier,
		Items:           cart.Items(),
		TotalItems:      cart.TotalItems(),
		Subtotal:        subtotal,
		Tax:             withTax.Sub(subtotal),
		SubtotalWithTax: withTax,
		Shipping:        shipping,
		Total:           withTax.Add(shipping),
	}, nil
}

// OrderRequest builds the payment-session body from the current selection.
func (o *Orchestrator) OrderRequest(items []models.CartItem) (models.OrderRequest, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.sel.SelectedAddress == nil || o.sel.SelectedCarrier == nil {
		return models.OrderRequest{}, ErrIncomplete
	}
	if len(items) == 0 {
		return models.OrderRequest{}, ErrEmptyCart
	}

	lines := make([]models.OrderLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, models.OrderLine{ProductID: item.Product.ID, Quantity: item.Quantity})
	}
	return models.OrderRequest{
		AddressID: o.sel.SelectedAddress.ID,
		CarrierID: o.sel.SelectedCarrier.ID,
		Items:     lines,
	}, nil
}
