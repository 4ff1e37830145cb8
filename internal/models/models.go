package models

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type User struct {
	ID        int      `json:"id"`
	Email     string   `json:"email"`
	Firstname string   `json:"firstname"`
	Lastname  string   `json:"lastname"`
	Roles     []string `json:"roles"`
}

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Product prices are stored pre-tax. TaxRate is a flat percentage.
type Product struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Description  string          `json:"description"`
	Illustration string          `json:"illustration"`
	Price        decimal.Decimal `json:"price"`
	TaxRate      decimal.Decimal `json:"tva"`
	Category     *Category       `json:"category,omitempty"`
	IsHomepage   bool            `json:"isHomepage"`
}

func (p Product) PriceWithTax() decimal.Decimal {
	return PriceWithTax(p.Price, p.TaxRate)
}

// PriceWithTax returns price × (1 + rate/100).
func PriceWithTax(price, rate decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(1).Add(rate.Div(hundred)))
}

type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i CartItem) LineTotalWithTax() decimal.Decimal {
	return i.Product.PriceWithTax().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Address struct {
	ID        int    `json:"id"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Address   string `json:"address"`
	Postal    string `json:"postal"`
	City      string `json:"city"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

type AddressInput struct {
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Address   string `json:"address"`
	Postal    string `json:"postal"`
	City      string `json:"city"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

type Carrier struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

type OrderState int

const (
	OrderPending OrderState = iota + 1
	OrderPaid
	OrderPreparing
	OrderShipped
	OrderCancelled
)

func (s OrderState) Label() string {
	switch s {
	case OrderPending:
		return "En attente"
	case OrderPaid:
		return "Paiement validé"
	case OrderPreparing:
		return "En préparation"
	case OrderShipped:
		return "Expédiée"
	case OrderCancelled:
		return "Annulée"
	default:
		return "Inconnu"
	}
}

type OrderDetail struct {
	ProductName     string          `json:"productName"`
	ProductQuantity int             `json:"productQuantity"`
	ProductPrice    decimal.Decimal `json:"productPrice"`
	ProductTva      decimal.Decimal `json:"productTva"`
}

type Order struct {
	ID           int             `json:"id"`
	Reference    string          `json:"reference"`
	State        OrderState      `json:"state"`
	CarrierName  string          `json:"carrierName"`
	CarrierPrice decimal.Decimal `json:"carrierPrice"`
	Total        decimal.Decimal `json:"total"`
	CreatedAt    time.Time       `json:"createdAt"`
	Details      []OrderDetail   `json:"orderDetails"`
}

type OrderLine struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

// OrderRequest is the body of both order creation and payment-session creation.
type OrderRequest struct {
	AddressID int         `json:"addressId"`
	CarrierID int         `json:"carrierId"`
	Items     []OrderLine `json:"items"`
}

type OrderCreated struct {
	Success   bool            `json:"success"`
	OrderID   int             `json:"orderId"`
	Total     decimal.Decimal `json:"total"`
	Reference string          `json:"reference"`
}

type CheckoutSession struct {
	Success     bool   `json:"success"`
	CheckoutURL string `json:"checkoutUrl"`
	SessionID   string `json:"sessionId"`
}

type PaymentVerification struct {
	Success bool `json:"success"`
	Paid    bool `json:"paid"`
	OrderID int  `json:"orderId"`
}
