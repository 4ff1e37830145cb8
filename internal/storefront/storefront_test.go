package storefront

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"boutique/internal/api"
	"boutique/internal/checkout"
	"boutique/internal/database"
	"boutique/internal/models"
	"boutique/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu        sync.Mutex
	token     string
	wishlist  []int
	sessions  []models.OrderRequest
	verify    models.PaymentVerification
	verifyErr error
	hold      chan struct{}
}

func (f *fakeAPI) Login(_ context.Context, identifier, secret string) (string, error) {
	if secret != "secret1" {
		return "", &api.Error{Status: 401}
	}
	return f.token, nil
}

func (f *fakeAPI) Register(context.Context, api.RegisterRequest) error { return nil }

func (f *fakeAPI) Wishlist(context.Context, string) ([]models.Product, error) {
	if f.hold != nil {
		<-f.hold
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Product, 0, len(f.wishlist))
	for _, id := range f.wishlist {
		out = append(out, models.Product{ID: id})
	}
	return out, nil
}

func (f *fakeAPI) AddToWishlist(context.Context, string, int) error      { return nil }
func (f *fakeAPI) RemoveFromWishlist(context.Context, string, int) error { return nil }

func (f *fakeAPI) CreateCheckoutSession(_ context.Context, _ string, req models.OrderRequest) (*models.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, req)
	return &models.CheckoutSession{Success: true, CheckoutURL: "https://pay.example/cs_1", SessionID: "cs_1"}, nil
}

func (f *fakeAPI) VerifyPayment(context.Context, string, string) (*models.PaymentVerification, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	v := f.verify
	return &v, nil
}

type fakeNotifier struct {
	sent chan int
}

func (n *fakeNotifier) IsEnabled() bool { return true }

func (n *fakeNotifier) SendOrderConfirmation(_ *models.User, orderID int, _ *checkout.Summary) error {
	n.sent <- orderID
	return nil
}

func newFake() *fakeAPI {
	return &fakeAPI{
		token:    testutil.Token(4, "ana@example.com", "Ana", time.Now().Add(time.Hour)),
		wishlist: []int{8},
	}
}

func TestLoginLogoutScenario(t *testing.T) {
	ctx := context.Background()
	storage := testutil.NewMemStorage()
	sf := New("client-1", newFake(), storage, nil)
	sf.Bootstrap(ctx)

	require.True(t, sf.Session.Login(ctx, "ana@example.com", "secret1"))
	assert.True(t, sf.Session.IsAuthenticated())
	assert.Equal(t, "Ana", sf.Session.User().Firstname)
	assert.True(t, sf.Wishlist.IsInWishlist(8))

	require.NoError(t, sf.Cart.AddOrIncrement(ctx, testutil.Product(1, "robe", "10", "20")))
	sf.Checkout.SetSelectedAddress(models.Address{ID: 1})

	sf.Session.Logout(ctx)
	assert.False(t, sf.Session.IsAuthenticated())
	assert.True(t, sf.Cart.IsEmpty())
	assert.Equal(t, 0, sf.Wishlist.Count())
	assert.Equal(t, checkout.NoAddress, sf.Checkout.State())
	assert.False(t, storage.Has(database.KeyToken))

	// the persisted cart is gone too
	reloaded := New("client-1", newFake(), storage, nil)
	reloaded.Bootstrap(ctx)
	assert.True(t, reloaded.Cart.IsEmpty())
}

func TestGuestCartSurvivesReload(t *testing.T) {
	ctx := context.Background()
	storage := testutil.NewMemStorage()

	sf := New("guest", newFake(), storage, nil)
	sf.Bootstrap(ctx)
	require.NoError(t, sf.Cart.AddOrIncrement(ctx, testutil.Product(1, "robe", "10", "20")))
	require.NoError(t, sf.Cart.AddOrIncrement(ctx, testutil.Product(1, "robe", "10", "20")))

	reloaded := New("guest", newFake(), storage, nil)
	reloaded.Bootstrap(ctx)
	assert.Equal(t, 2, reloaded.Cart.Quantity(1))
	assert.False(t, reloaded.Session.IsLoading())
}

func TestExpiredTokenAtBootstrapDropsCart(t *testing.T) {
	ctx := context.Background()
	storage := testutil.NewMemStorage()

	sf := New("c", newFake(), storage, nil)
	sf.Bootstrap(ctx)
	require.NoError(t, sf.Cart.AddOrIncrement(ctx, testutil.Product(1, "robe", "10", "20")))
	require.NoError(t, storage.Set(ctx, database.KeyToken, testutil.Token(4, "ana@example.com", "Ana", time.Now().Add(-time.Hour))))

	reloaded := New("c", newFake(), storage, nil)
	reloaded.Bootstrap(ctx)
	assert.False(t, reloaded.Session.IsAuthenticated())
	assert.True(t, reloaded.Cart.IsEmpty())
	assert.False(t, storage.Has(database.KeyToken))
}

func TestTokenReadFailureKeepsSessionData(t *testing.T) {
	ctx := context.Background()
	storage := testutil.NewMemStorage()

	sf := New("c", newFake(), storage, nil)
	sf.Bootstrap(ctx)
	require.True(t, sf.Session.Login(ctx, "ana@example.com", "secret1"))
	require.NoError(t, sf.Cart.AddOrIncrement(ctx, testutil.Product(1, "robe", "10", "20")))

	storage.FailGets = 1
	storage.FailGetKey = database.KeyToken
	busy := New("c", newFake(), storage, nil)
	busy.Bootstrap(ctx)
	assert.False(t, busy.Session.IsLoading())
	assert.False(t, busy.Session.IsAuthenticated())
	assert.Equal(t, 1, busy.Cart.Quantity(1))
	assert.True(t, storage.Has(database.KeyToken))

	reloaded := New("c", newFake(), storage, nil)
	reloaded.Bootstrap(ctx)
	assert.True(t, reloaded.Session.IsAuthenticated())
	assert.Equal(t, 1, reloaded.Cart.Quantity(1))
}

func TestCheckoutScenario(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	fake.verify = models.PaymentVerification{Success: true, Paid: true, OrderID: 123}
	notifier := &fakeNotifier{sent: make(chan int, 1)}

	sf := New("c", fake, testutil.NewMemStorage(), notifier)
	sf.Bootstrap(ctx)
	require.True(t, sf.Session.Login(ctx, "ana@example.com", "secret1"))

	require.NoError(t, sf.Cart.AddOrIncrement(ctx, testutil.Product(1, "sac", "45", "0")))
	sf.Checkout.SetSelectedAddress(models.Address{ID: 11})
	sf.Checkout.SetSelectedCarrier(models.Carrier{ID: 3, Price: decimal.NewFromInt(5)})

	summary, err := sf.Summary()
	require.NoError(t, err)
	assert.True(t, summary.Total.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, checkout.Summarized, sf.Checkout.State())

	session, err := sf.BeginPayment(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/cs_1", session.CheckoutURL)
	require.Len(t, fake.sessions, 1)
	assert.Equal(t, []models.OrderLine{{ProductID: 1, Quantity: 1}}, fake.sessions[0].Items)

	orderID, err := sf.VerifyPayment(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, 123, orderID)
	assert.Equal(t, checkout.Completed, sf.Checkout.State())
	assert.True(t, sf.Cart.IsEmpty())

	select {
	case id := <-notifier.sent:
		assert.Equal(t, 123, id)
	case <-time.After(time.Second):
		t.Fatal("order confirmation was not sent")
	}

	sf.AcknowledgeCompletion()
	assert.Equal(t, checkout.NoAddress, sf.Checkout.State())
}

func TestConfirmPaymentDirectly(t *testing.T) {
	ctx := context.Background()
	sf := New("c", newFake(), testutil.NewMemStorage(), nil)
	sf.Bootstrap(ctx)
	require.NoError(t, sf.Cart.AddOrIncrement(ctx, testutil.Product(1, "sac", "45", "0")))
	sf.Checkout.SetSelectedAddress(models.Address{ID: 11})
	sf.Checkout.SetSelectedCarrier(models.Carrier{ID: 3, Price: decimal.NewFromInt(5)})
	_, err := sf.Summary()
	require.NoError(t, err)

	require.NoError(t, sf.ConfirmPayment(ctx, 123))
	assert.Equal(t, checkout.Completed, sf.Checkout.State())
	assert.True(t, sf.Cart.IsEmpty())
}

func TestRepeatedVerificationKeepsNewCart(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	fake.verify = models.PaymentVerification{Success: true, Paid: true, OrderID: 123}
	storage := testutil.NewMemStorage()

	sf := New("c", fake, storage, nil)
	sf.Bootstrap(ctx)
	require.True(t, sf.Session.Login(ctx, "ana@example.com", "secret1"))

	orderID, err := sf.VerifyPayment(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, 123, orderID)
	sf.AcknowledgeCompletion()

	require.NoError(t, sf.Cart.AddOrIncrement(ctx, testutil.Product(2, "sac", "45", "0")))

	orderID, err = sf.VerifyPayment(ctx, "cs_1")
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)
	assert.Equal(t, 123, orderID)
	assert.Equal(t, checkout.NoAddress, sf.Checkout.State())
	assert.Equal(t, 1, sf.Cart.Quantity(2))

	// the history survives eviction of the in-memory storefront
	reloaded := New("c", fake, storage, nil)
	reloaded.Bootstrap(ctx)
	_, err = reloaded.VerifyPayment(ctx, "cs_1")
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)
	assert.Equal(t, 1, reloaded.Cart.Quantity(2))
}

func TestVerificationOutsideSummaryClearsCartOnly(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	fake.verify = models.PaymentVerification{Success: true, Paid: true, OrderID: 9}

	sf := New("c", fake, testutil.NewMemStorage(), nil)
	sf.Bootstrap(ctx)
	require.True(t, sf.Session.Login(ctx, "ana@example.com", "secret1"))
	require.NoError(t, sf.Cart.AddOrIncrement(ctx, testutil.Product(1, "sac", "45", "0")))

	orderID, err := sf.VerifyPayment(ctx, "cs_2")
	require.NoError(t, err)
	assert.Equal(t, 9, orderID)
	assert.Equal(t, checkout.NoAddress, sf.Checkout.State())
	assert.True(t, sf.Cart.IsEmpty())
}

func TestUnpaidVerificationKeepsCart(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	fake.verify = models.PaymentVerification{Success: true, Paid: false}

	sf := New("c", fake, testutil.NewMemStorage(), nil)
	sf.Bootstrap(ctx)
	require.True(t, sf.Session.Login(ctx, "ana@example.com", "secret1"))
	require.NoError(t, sf.Cart.AddOrIncrement(ctx, testutil.Product(1, "sac", "45", "0")))

	_, err := sf.VerifyPayment(ctx, "cs_1")
	assert.ErrorIs(t, err, ErrPaymentNotConfirmed)
	assert.False(t, sf.Cart.IsEmpty())
	assert.NotEqual(t, checkout.Completed, sf.Checkout.State())

	_, err = sf.VerifyPayment(ctx, "")
	assert.ErrorIs(t, err, ErrMissingSession)

	fake.verifyErr = errors.New("gateway timeout")
	_, err = sf.VerifyPayment(ctx, "cs_1")
	assert.Error(t, err)
	assert.False(t, sf.Cart.IsEmpty())
}

func TestBeginPaymentRequiresSessionAndSelection(t *testing.T) {
	ctx := context.Background()
	sf := New("c", newFake(), testutil.NewMemStorage(), nil)
	sf.Bootstrap(ctx)

	_, err := sf.BeginPayment(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	require.True(t, sf.Session.Login(ctx, "ana@example.com", "secret1"))
	_, err = sf.BeginPayment(ctx)
	assert.ErrorIs(t, err, checkout.ErrIncomplete)

	sf.Checkout.SetSelectedAddress(models.Address{ID: 11})
	sf.Checkout.SetSelectedCarrier(models.Carrier{ID: 3})
	_, err = sf.BeginPayment(ctx)
	assert.ErrorIs(t, err, checkout.ErrEmptyCart)
}

func TestRegistryReusesAndEvicts(t *testing.T) {
	ctx := context.Background()
	storages := map[string]*testutil.MemStorage{}
	factory := func(id string) Storage {
		if _, ok := storages[id]; !ok {
			storages[id] = testutil.NewMemStorage()
		}
		return storages[id]
	}
	r := NewRegistry(newFake(), nil, factory)

	a := r.Get(ctx, "a")
	assert.Same(t, a, r.Get(ctx, "a"))
	assert.NotSame(t, a, r.Get(ctx, "b"))
	assert.False(t, a.Session.IsLoading())

	require.NoError(t, a.Cart.AddOrIncrement(ctx, testutil.Product(1, "robe", "10", "20")))

	r.idleTTL = 0
	time.Sleep(time.Millisecond)
	assert.Equal(t, 2, r.Cleanup())
	assert.Equal(t, 0, r.Len())

	again := r.Get(ctx, "a")
	assert.NotSame(t, a, again)
	assert.Equal(t, 1, again.Cart.Quantity(1))
}

func TestRegistryHandsBackLoadingSession(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	fake.hold = make(chan struct{})
	storage := testutil.NewMemStorage()
	require.NoError(t, storage.Set(ctx, database.KeyToken, fake.token))
	require.NoError(t, storage.Set(ctx, database.KeyCart, `[{"product":{"id":1,"price":"10","tva":"20"},"quantity":2}]`))

	r := NewRegistry(fake, nil, func(string) Storage { return storage }).
		WithBootstrapWait(10 * time.Millisecond)

	sf := r.Get(ctx, "c")
	assert.True(t, sf.Session.IsLoading())
	assert.Equal(t, 2, sf.Cart.Quantity(1))

	close(fake.hold)
	assert.Eventually(t, func() bool { return !sf.Session.IsLoading() }, time.Second, 5*time.Millisecond)
	assert.True(t, sf.Session.IsAuthenticated())
	assert.Same(t, sf, r.Get(ctx, "c"))
}
