// Package storefront wires the client-side stores of one browser together.
package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"boutique/internal/cart"
	"boutique/internal/checkout"
	"boutique/internal/database"
	"boutique/internal/logger"
	"boutique/internal/models"
	"boutique/internal/session"
	"boutique/internal/wishlist"
)

var (
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrMissingSession      = errors.New("payment session id missing")
	ErrPaymentSession      = errors.New("payment session could not be created")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
	ErrAlreadyConfirmed    = errors.New("payment session already confirmed")
)

// settledLimit bounds how many confirmed payment sessions a client remembers.
const settledLimit = 10

type settlement struct {
	SessionID string `json:"sessionId"`
	OrderID   int    `json:"orderId"`
}

type Storage interface {
	session.Storage
}

// API is the part of the remote shop API the stores need.
type API interface {
	session.Authenticator
	wishlist.Remote
	CreateCheckoutSession(ctx context.Context, token string, req models.OrderRequest) (*models.CheckoutSession, error)
	VerifyPayment(ctx context.Context, token, sessionID string) (*models.PaymentVerification, error)
}

// Notifier sends the order confirmation once a payment is verified.
type Notifier interface {
	IsEnabled() bool
	SendOrderConfirmation(user *models.User, orderID int, summary *checkout.Summary) error
}

type Storefront struct {
	ClientID string
	Session  *session.Store
	Cart     *cart.Store
	Wishlist *wishlist.Store
	Checkout *checkout.Orchestrator

	api      API
	storage  Storage
	notifier Notifier

	mu          sync.Mutex
	lastSummary *checkout.Summary

	// held from verification until the settlement is recorded
	payMu sync.Mutex
}

func New(clientID string, api API, storage Storage, notifier Notifier) *Storefront {
	sess := session.NewStore(api, storage)
	sf := &Storefront{
		ClientID: clientID,
		Session:  sess,
		Cart:     cart.NewStore(storage),
		Wishlist: wishlist.NewStore(api, sess),
		Checkout: checkout.New(),
		api:      api,
		storage:  storage,
		notifier: notifier,
	}
	sess.Subscribe(sf.onAuthChange)
	return sf
}

// Bootstrap restores the cart, then the session. A discarded token clears
// the restored cart through the session listener.
func (sf *Storefront) Bootstrap(ctx context.Context) {
	sf.restoreCart(ctx)
	sf.Session.Bootstrap(ctx)
}

func (sf *Storefront) restoreCart(ctx context.Context) {
	if err := sf.Cart.Restore(ctx); err != nil {
		logger.Warn("Failed to restore cart", "client_id", sf.ClientID, "error", err)
	}
}

func (sf *Storefront) onAuthChange(ctx context.Context, authenticated bool) {
	if authenticated {
		if err := sf.Wishlist.Refresh(ctx); err != nil {
			logger.Warn("Failed to load wishlist", "client_id", sf.ClientID, "error", err)
		}
		return
	}
	sf.ResetAll(ctx)
}

// ResetAll drops every piece of user-scoped state: cart, wishlist and the
// in-progress checkout.
func (sf *Storefront) ResetAll(ctx context.Context) {
	if err := sf.Cart.Clear(ctx); err != nil {
		logger.Error("Failed to clear cart", "client_id", sf.ClientID, "error", err)
	}
	sf.Wishlist.Reset()
	sf.Checkout.Reset()

	sf.mu.Lock()
	sf.lastSummary = nil
	sf.mu.Unlock()
}

// Summary computes the checkout summary from the current cart.
func (sf *Storefront) Summary() (checkout.Summary, error) {
	summary, err := sf.Checkout.Summarize(sf.Cart)
	if err != nil {
		return checkout.Summary{}, err
	}

	sf.mu.Lock()
	sf.lastSummary = &summary
	sf.mu.Unlock()
	return summary, nil
}

// BeginPayment opens a hosted payment session for the summarized checkout
// and returns it; the caller redirects to its CheckoutURL.
func (sf *Storefront) BeginPayment(ctx context.Context) (*models.CheckoutSession, error) {
	token, ok := sf.Session.Token()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	if _, err := sf.Summary(); err != nil {
		return nil, err
	}
	req, err := sf.Checkout.OrderRequest(sf.Cart.Items())
	if err != nil {
		return nil, err
	}

	result, err := sf.api.CreateCheckoutSession(ctx, token, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment session: %w", err)
	}
	if !result.Success || result.CheckoutURL == "" {
		return nil, ErrPaymentSession
	}

	logger.Info("Payment session created", "client_id", sf.ClientID, "session_id", result.SessionID)
	return result, nil
}

// VerifyPayment confirms a payment session with the API. Only a session
// reported both successful and paid completes the checkout. A session that
// was already confirmed returns its order id with ErrAlreadyConfirmed and
// touches neither the cart nor the wizard.
func (sf *Storefront) VerifyPayment(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, ErrMissingSession
	}
	token, ok := sf.Session.Token()
	if !ok {
		return 0, ErrNotAuthenticated
	}

	sf.payMu.Lock()
	defer sf.payMu.Unlock()

	settled, err := sf.settlements(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range settled {
		if p.SessionID == sessionID {
			logger.Debug("Payment session already confirmed", "client_id", sf.ClientID, "session_id", sessionID)
			return p.OrderID, ErrAlreadyConfirmed
		}
	}

	result, err := sf.api.VerifyPayment(ctx, token, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to verify payment: %w", err)
	}
	if !result.Success || !result.Paid {
		return 0, ErrPaymentNotConfirmed
	}

	settled = append(settled, settlement{SessionID: sessionID, OrderID: result.OrderID})
	if len(settled) > settledLimit {
		settled = settled[len(settled)-settledLimit:]
	}
	if err := sf.saveSettlements(ctx, settled); err != nil {
		logger.Error("Failed to record payment session", "client_id", sf.ClientID, "order_id", result.OrderID, "error", err)
	}

	if err := sf.ConfirmPayment(ctx, result.OrderID); err != nil {
		logger.Error("Failed to clear cart after payment", "client_id", sf.ClientID, "error", err)
	}
	return result.OrderID, nil
}

// ConfirmPayment empties the paid cart and moves a summarized checkout to
// Completed. A wizard that never reached the summary here, as after the
// client was evicted while the user was paying, keeps its state.
func (sf *Storefront) ConfirmPayment(ctx context.Context, orderID int) error {
	if !sf.Checkout.Complete(orderID) {
		logger.Info("Payment confirmed outside a summarized checkout",
			"client_id", sf.ClientID,
			"order_id", orderID,
			"state", sf.Checkout.State().String())
	}

	sf.mu.Lock()
	summary := sf.lastSummary
	sf.mu.Unlock()
	sf.sendConfirmation(orderID, summary)

	return sf.Cart.Clear(ctx)
}

func (sf *Storefront) settlements(ctx context.Context) ([]settlement, error) {
	raw, ok, err := sf.storage.Get(ctx, database.KeyPayments)
	if err != nil {
		return nil, fmt.Errorf("failed to read confirmed payments: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var settled []settlement
	if err := json.Unmarshal([]byte(raw), &settled); err != nil {
		logger.Warn("Discarding unreadable payment history", "client_id", sf.ClientID, "error", err)
		return nil, nil
	}
	return settled, nil
}

func (sf *Storefront) saveSettlements(ctx context.Context, settled []settlement) error {
	raw, err := json.Marshal(settled)
	if err != nil {
		return fmt.Errorf("failed to encode confirmed payments: %w", err)
	}
	return sf.storage.Set(ctx, database.KeyPayments, string(raw))
}

// AcknowledgeCompletion resets the wizard once the outcome has been shown.
func (sf *Storefront) AcknowledgeCompletion() {
	sf.Checkout.Reset()
	sf.mu.Lock()
	sf.lastSummary = nil
	sf.mu.Unlock()
}

// AbandonCheckout resets the wizard but keeps the cart.
func (sf *Storefront) AbandonCheckout() {
	sf.AcknowledgeCompletion()
}

func (sf *Storefront) sendConfirmation(orderID int, summary *checkout.Summary) {
	if sf.notifier == nil || !sf.notifier.IsEnabled() {
		return
	}
	user := sf.Session.User()
	if user == nil {
		return
	}

	go func() {
		if err := sf.notifier.SendOrderConfirmation(user, orderID, summary); err != nil {
			logger.Warn("Failed to send order confirmation",
				"email", user.Email,
				"order_id", orderID,
				"error", err)
		}
	}()
}
