package checkout

import (
	"context"
	"testing"

	"boutique/internal/cart"
	"boutique/internal/models"
	"boutique/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	addressA = models.Address{ID: 11, Firstname: "Ana", Lastname: "Martin", Address: "1 rue de la Paix", Postal: "75001", City: "Paris", Country: "France", Phone: "0612345678"}
	carrierC = models.Carrier{ID: 3, Name: "Colissimo", Price: decimal.NewFromInt(5)}
)

func TestStateMachineTransitions(t *testing.T) {
	o := New()
	assert.Equal(t, NoAddress, o.State())

	o.SetSelectedAddress(addressA)
	assert.Equal(t, HasAddress, o.State())

	o.SetSelectedCarrier(carrierC)
	assert.Equal(t, HasCarrier, o.State())

	_, err := o.Summarize(cart.NewStore(testutil.NewMemStorage()))
	require.NoError(t, err)
	assert.Equal(t, Summarized, o.State())

	assert.True(t, o.Complete(123))
	assert.Equal(t, Completed, o.State())
	require.NotNil(t, o.Selection().OrderID)
	assert.Equal(t, 123, *o.Selection().OrderID)

	o.Reset()
	assert.Equal(t, NoAddress, o.State())
	assert.Equal(t, Selection{}, o.Selection())
}

func TestCompleteRequiresSummary(t *testing.T) {
	o := New()
	assert.False(t, o.Complete(1))
	assert.Equal(t, NoAddress, o.State())

	o.SetSelectedAddress(addressA)
	o.SetSelectedCarrier(carrierC)
	assert.False(t, o.Complete(1))
	assert.Equal(t, HasCarrier, o.State())
	assert.Nil(t, o.Selection().OrderID)

	_, err := o.Summarize(cart.NewStore(testutil.NewMemStorage()))
	require.NoError(t, err)
	require.True(t, o.Complete(7))
	assert.False(t, o.Complete(8))
	assert.Equal(t, 7, *o.Selection().OrderID)
}

func TestChangingSelectionDropsSummary(t *testing.T) {
	o := New()
	o.SetSelectedAddress(addressA)
	o.SetSelectedCarrier(carrierC)
	_, err := o.Summarize(cart.NewStore(testutil.NewMemStorage()))
	require.NoError(t, err)

	o.SetSelectedCarrier(models.Carrier{ID: 4, Price: decimal.Zero})
	assert.Equal(t, HasCarrier, o.State())
}

func TestGuards(t *testing.T) {
	o := New()

	_, ok := o.Guard(StepAddress)
	assert.True(t, ok)

	redirect, ok := o.Guard(StepCarrier)
	assert.False(t, ok)
	assert.Equal(t, AddressPath, redirect)

	redirect, ok = o.Guard(StepSummary)
	assert.False(t, ok)
	assert.Equal(t, AddressPath, redirect)

	// a carrier alone still does not open the summary
	o.SetSelectedCarrier(carrierC)
	redirect, ok = o.Guard(StepSummary)
	assert.False(t, ok)
	assert.Equal(t, AddressPath, redirect)

	o.SetSelectedAddress(addressA)
	_, ok = o.Guard(StepCarrier)
	assert.True(t, ok)
	_, ok = o.Guard(StepSummary)
	assert.True(t, ok)

	o.Reset()
	o.SetSelectedAddress(addressA)
	redirect, ok = o.Guard(StepSummary)
	assert.False(t, ok)
	assert.Equal(t, AddressPath, redirect)
}

func TestSummaryTotal(t *testing.T) {
	ctx := context.Background()
	c := cart.NewStore(testutil.NewMemStorage())
	require.NoError(t, c.AddOrIncrement(ctx, testutil.Product(1, "sac", "45", "0")))

	o := New()
	_, err := o.Summarize(c)
	assert.ErrorIs(t, err, ErrIncomplete)

	o.SetSelectedAddress(addressA)
	o.SetSelectedCarrier(carrierC)

	summary, err := o.Summarize(c)
	require.NoError(t, err)
	assert.True(t, summary.Subtotal.Equal(decimal.NewFromInt(45)))
	assert.True(t, summary.Shipping.Equal(decimal.NewFromInt(5)))
	assert.True(t, summary.Total.Equal(decimal.NewFromInt(50)), summary.Total.String())
	assert.Equal(t, 1, summary.TotalItems)
}

func TestSummaryAddsTaxOnce(t *testing.T) {
	ctx := context.Background()
	c := cart.NewStore(testutil.NewMemStorage())
	require.NoError(t, c.AddOrIncrement(ctx, testutil.Product(1, "robe", "10", "20")))
	require.NoError(t, c.AddOrIncrement(ctx, testutil.Product(1, "robe", "10", "20")))

	o := New()
	o.SetSelectedAddress(addressA)
	o.SetSelectedCarrier(carrierC)

	summary, err := o.Summarize(c)
	require.NoError(t, err)
	assert.True(t, summary.Subtotal.Equal(decimal.NewFromInt(20)))
	assert.True(t, summary.Tax.Equal(decimal.NewFromInt(4)))
	assert.True(t, summary.SubtotalWithTax.Equal(decimal.NewFromInt(24)))
	assert.True(t, summary.Total.Equal(decimal.NewFromInt(29)))
}

func TestOrderRequest(t *testing.T) {
	o := New()
	items := []models.CartItem{
		{Product: testutil.Product(1, "robe", "10", "20"), Quantity: 2},
		{Product: testutil.Product(4, "sac", "30", "20"), Quantity: 1},
	}

	_, err := o.OrderRequest(items)
	assert.ErrorIs(t, err, ErrIncomplete)

	o.SetSelectedAddress(addressA)
	o.SetSelectedCarrier(carrierC)

	_, err = o.OrderRequest(nil)
	assert.ErrorIs(t, err, ErrEmptyCart)

	req, err := o.OrderRequest(items)
	require.NoError(t, err)
	assert.Equal(t, models.OrderRequest{
		AddressID: 11,
		CarrierID: 3,
		Items:     []models.OrderLine{{ProductID: 1, Quantity: 2}, {ProductID: 4, Quantity: 1}},
	}, req)
}
