package cart

import (
	"boutique/internal/models"

	"github.com/shopspring/decimal"
)

// The reducers never modify their input; they return a fresh slice.

func addOrIncrement(items []models.CartItem, product models.Product) []models.CartItem {
	next := append([]models.CartItem{}, items...)
	if i := indexOf(next, product.ID); i >= 0 {
		next[i].Quantity++
		return next
	}
	return append(next, models.CartItem{Product: product, Quantity: 1})
}

func decrement(items []models.CartItem, productID int) []models.CartItem {
	i := indexOf(items, productID)
	if i < 0 {
		return append([]models.CartItem{}, items...)
	}
	if items[i].Quantity <= 1 {
		return remove(items, productID)
	}
	next := append([]models.CartItem{}, items...)
	next[i].Quantity--
	return next
}

func remove(items []models.CartItem, productID int) []models.CartItem {
	next := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		if item.Product.ID != productID {
			next = append(next, item)
		}
	}
	return next
}

// sanitize folds duplicate product ids and drops non-positive quantities
// from a restored snapshot.
func sanitize(items []models.CartItem) []models.CartItem {
	next := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		if i := indexOf(next, item.Product.ID); i >= 0 {
			next[i].Quantity += item.Quantity
			continue
		}
		next = append(next, item)
	}
	return next
}

func indexOf(items []models.CartItem, productID int) int {
	for i, item := range items {
		if item.Product.ID == productID {
			return i
		}
	}
	return -1
}

func totalItems(items []models.CartItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

func totalPrice(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func totalPriceWithTax(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotalWithTax())
	}
	return total
}
