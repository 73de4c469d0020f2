package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RomanDenysov/kromka-sub000/internal/cart"
	"github.com/RomanDenysov/kromka-sub000/internal/entity"
	"github.com/RomanDenysov/kromka-sub000/internal/ordernumber"
	"github.com/RomanDenysov/kromka-sub000/internal/pricing"
	catalogrepo "github.com/RomanDenysov/kromka-sub000/internal/repository/catalog"
	"github.com/RomanDenysov/kromka-sub000/pkg/errorbank"
)

type cartStoreMock struct {
	mu      sync.Mutex
	entries []cart.Entry
	getErr  error
	cleared int
}

func (m *cartStoreMock) Get(context.Context, string) ([]cart.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.entries, nil
}

func (m *cartStoreMock) Clear(context.Context, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared++
	m.entries = nil
	return nil
}

func (m *cartStoreMock) clearedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleared
}

type lastOrderMock struct {
	mu       sync.Mutex
	sessions map[string]int64
}

func (m *lastOrderMock) RememberLastOrder(_ context.Context, sessionID string, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions == nil {
		m.sessions = make(map[string]int64)
	}
	m.sessions[sessionID] = orderID
	return nil
}

func (m *lastOrderMock) remembered(sessionID string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.sessions[sessionID]
	return id, ok
}

type catalogMock struct {
	findActiveProducts func(ctx context.Context, ids []int64) ([]*entity.Product, error)
	storeExists        func(ctx context.Context, id int64) (bool, error)
	getOrganization    func(ctx context.Context, id int64) (*entity.Organization, error)
}

func (m *catalogMock) FindActiveProducts(ctx context.Context, ids []int64) ([]*entity.Product, error) {
	return m.findActiveProducts(ctx, ids)
}

func (m *catalogMock) StoreExists(ctx context.Context, id int64) (bool, error) {
	return m.storeExists(ctx, id)
}

func (m *catalogMock) GetOrganization(ctx context.Context, id int64) (*entity.Organization, error) {
	return m.getOrganization(ctx, id)
}

type priceResolverMock struct {
	resolve func(ctx context.Context, in pricing.Input) (map[int64]int64, error)
}

func (m *priceResolverMock) Resolve(ctx context.Context, in pricing.Input) (map[int64]int64, error) {
	return m.resolve(ctx, in)
}

type orderWriterMock struct {
	mu     sync.Mutex
	err    error
	order  *entity.Order
	items  []*entity.OrderItem
	nextID int64
}

func (m *orderWriterMock) Create(_ context.Context, order *entity.Order, items []*entity.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.nextID == 0 {
		m.nextID = 1
	}
	order.ID = m.nextID
	m.order = order
	m.items = items
	return nil
}

type profileWriterMock struct {
	mu    sync.Mutex
	calls []int64
}

func (m *profileWriterMock) SyncContactInfo(_ context.Context, userID int64, _, _, _ string, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, userID)
	return nil
}

type settingsMock struct {
	enabled bool
	err     error
}

func (m *settingsMock) Bool(context.Context, string, bool) (bool, error) {
	return m.enabled, m.err
}

type mailerMock struct {
	mu            sync.Mutex
	newOrder      int
	receipt       int
	confirmations int
	ready         int
	thankYou      int
}

func (m *mailerMock) SendNewOrderEmail(context.Context, *entity.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newOrder++
	return nil
}

func (m *mailerMock) SendReceiptEmail(context.Context, *entity.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipt++
	return nil
}

func (m *mailerMock) SendOrderConfirmationEmail(context.Context, *entity.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations++
	return nil
}

func (m *mailerMock) SendOrderReadyEmail(context.Context, *entity.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready++
	return nil
}

func (m *mailerMock) SendThankYouEmail(context.Context, *entity.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thankYou++
	return nil
}

type checkoutFixture struct {
	svc      *Service
	carts    *cartStoreMock
	last     *lastOrderMock
	orders   *orderWriterMock
	profiles *profileWriterMock
	mailer   *mailerMock
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		carts:    &cartStoreMock{entries: []cart.Entry{{ProductID: 1, Quantity: 2}}},
		last:     &lastOrderMock{},
		orders:   &orderWriterMock{},
		profiles: &profileWriterMock{},
		mailer:   &mailerMock{},
	}
	f.svc = &Service{
		carts:      f.carts,
		lastOrders: f.last,
		catalog: &catalogMock{
			findActiveProducts: func(_ context.Context, ids []int64) ([]*entity.Product, error) {
				products := make([]*entity.Product, 0, len(ids))
				for _, id := range ids {
					products = append(products, &entity.Product{
						ID: id, Name: "Sourdough", PriceCents: 500, IsActive: true,
					})
				}
				return products, nil
			},
			storeExists: func(context.Context, int64) (bool, error) { return true, nil },
			getOrganization: func(_ context.Context, id int64) (*entity.Organization, error) {
				tier := int64(10)
				return &entity.Organization{ID: id, Name: "Cafe Zila", PriceTierID: &tier, IsActive: true}, nil
			},
		},
		prices: &priceResolverMock{
			resolve: func(context.Context, pricing.Input) (map[int64]int64, error) {
				return map[int64]int64{}, nil
			},
		},
		orders:   f.orders,
		profiles: f.profiles,
		settings: &settingsMock{enabled: true},
		mailer:   f.mailer,
		numbers:  ordernumber.New("KRM"),
		logger:   zap.NewNop(),
		effects:  newEffectRunner(zap.NewNop()),
		now: func() time.Time {
			return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
		},
	}
	return f
}

func validInput() CreateOrderInput {
	storeID := int64(1)
	return CreateOrderInput{
		SessionID:     "sess",
		Channel:       entity.ChannelB2C,
		CustomerName:  "Jana Novak",
		CustomerEmail: "jana@example.com",
		CustomerPhone: "+421900123456",
		StoreID:       &storeID,
		PaymentMethod: entity.PaymentMethodInStore,
		PickupDate:    "2026-03-16",
		PickupTime:    "09:30",
	}
}

func appCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Code()
}

func TestCreateOrder_Success(t *testing.T) {
	f := newCheckoutFixture()

	result, err := f.svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)
	f.svc.Wait()

	require.NotNil(t, result)
	assert.Equal(t, int64(1), result.OrderID)
	assert.True(t, strings.HasPrefix(result.Number, "KRM-"))

	require.NotNil(t, f.orders.order)
	assert.Equal(t, entity.StatusNew, f.orders.order.Status)
	assert.Equal(t, entity.PaymentPending, f.orders.order.PaymentStatus)
	assert.Equal(t, int64(1000), f.orders.order.TotalCents)
	require.Len(t, f.orders.items, 1)
	assert.Equal(t, int64(500), f.orders.items[0].UnitPriceCents)
	assert.Equal(t, int64(1000), f.orders.items[0].TotalCents)

	assert.Equal(t, 1, f.carts.clearedCount())
	assert.Equal(t, 1, f.mailer.newOrder)
	assert.Equal(t, 1, f.mailer.receipt)

	// A guest checkout remembers the order on the session.
	id, ok := f.last.remembered("sess")
	assert.True(t, ok)
	assert.Equal(t, int64(1), id)
	assert.Empty(t, f.profiles.calls)
}

func TestCreateOrder_SignedInUserSyncsProfile(t *testing.T) {
	f := newCheckoutFixture()
	in := validInput()
	userID := int64(33)
	in.UserID = &userID

	_, err := f.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	f.svc.Wait()

	assert.Equal(t, []int64{33}, f.profiles.calls)
	_, ok := f.last.remembered("sess")
	assert.False(t, ok)
}

func TestCreateOrder_KillSwitch(t *testing.T) {
	f := newCheckoutFixture()
	f.svc.settings = &settingsMock{enabled: false}

	_, err := f.svc.CreateOrder(context.Background(), validInput())
	assert.Equal(t, CodeOrdersDisabled, appCode(t, err))
	assert.Equal(t, 0, f.carts.clearedCount())
}

func TestCreateOrder_ValidationCodes(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*CreateOrderInput)
		wantCode string
	}{
		{
			name:     "blank name",
			mutate:   func(in *CreateOrderInput) { in.CustomerName = " " },
			wantCode: CodeInvalidName,
		},
		{
			name:     "bad email",
			mutate:   func(in *CreateOrderInput) { in.CustomerEmail = "nope" },
			wantCode: CodeInvalidEmail,
		},
		{
			name:     "bad phone",
			mutate:   func(in *CreateOrderInput) { in.CustomerPhone = "abc" },
			wantCode: CodeInvalidPhone,
		},
		{
			name:     "same-day pickup",
			mutate:   func(in *CreateOrderInput) { in.PickupDate = "2026-03-15" },
			wantCode: CodeBadRequest,
		},
		{
			name:     "invoice on retail channel",
			mutate:   func(in *CreateOrderInput) { in.PaymentMethod = entity.PaymentMethodInvoice },
			wantCode: CodeInvalidPaymentMethod,
		},
		{
			name:     "missing store",
			mutate:   func(in *CreateOrderInput) { in.StoreID = nil },
			wantCode: CodeBadRequest,
		},
		{
			name: "unknown channel",
			mutate: func(in *CreateOrderInput) {
				in.Channel = entity.Channel("b2x")
			},
			wantCode: CodeBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newCheckoutFixture()
			in := validInput()
			tc.mutate(&in)

			_, err := f.svc.CreateOrder(context.Background(), in)
			assert.Equal(t, tc.wantCode, appCode(t, err))
			assert.Nil(t, f.orders.order)
		})
	}
}

func TestCreateOrder_UnknownStore(t *testing.T) {
	f := newCheckoutFixture()
	f.svc.catalog.(*catalogMock).storeExists = func(context.Context, int64) (bool, error) {
		return false, nil
	}

	_, err := f.svc.CreateOrder(context.Background(), validInput())
	assert.Equal(t, CodeStoreNotFound, appCode(t, err))
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	f := newCheckoutFixture()
	f.carts.entries = nil

	_, err := f.svc.CreateOrder(context.Background(), validInput())
	assert.Equal(t, CodeEmptyCart, appCode(t, err))
}

func TestCreateOrder_AllProductsUnavailable(t *testing.T) {
	f := newCheckoutFixture()
	f.svc.catalog.(*catalogMock).findActiveProducts = func(context.Context, []int64) ([]*entity.Product, error) {
		return nil, nil
	}

	_, err := f.svc.CreateOrder(context.Background(), validInput())
	assert.Equal(t, CodeInvalidProducts, appCode(t, err))
	assert.Equal(t, 0, f.carts.clearedCount())
}

func TestCreateOrder_UnavailableProductsAreDropped(t *testing.T) {
	f := newCheckoutFixture()
	f.carts.entries = []cart.Entry{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	}
	f.svc.catalog.(*catalogMock).findActiveProducts = func(context.Context, []int64) ([]*entity.Product, error) {
		// Product 2 is archived; only product 1 survives.
		return []*entity.Product{
			{ID: 1, Name: "Sourdough", PriceCents: 500, IsActive: true},
		}, nil
	}

	result, err := f.svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)
	f.svc.Wait()

	require.NotNil(t, result)
	require.Len(t, f.orders.items, 1)
	assert.Equal(t, int64(1), f.orders.items[0].ProductID)
	assert.Equal(t, int64(1000), f.orders.order.TotalCents)
}

func TestCreateOrder_DuplicateCartLinesAreMerged(t *testing.T) {
	f := newCheckoutFixture()
	f.carts.entries = []cart.Entry{
		{ProductID: 1, Quantity: 2},
		{ProductID: 1, Quantity: 3},
	}
	f.svc.prices = &priceResolverMock{
		resolve: func(_ context.Context, in pricing.Input) (map[int64]int64, error) {
			// Quantity-gated rules must see the combined quantity.
			assert.Equal(t, map[int64]int{1: 5}, in.Quantities)
			return map[int64]int64{}, nil
		},
	}

	result, err := f.svc.CreateOrder(context.Background(), validInput())
	require.NoError(t, err)
	f.svc.Wait()

	require.NotNil(t, result)
	require.Len(t, f.orders.items, 1)
	assert.Equal(t, 5, f.orders.items[0].Quantity)
	assert.Equal(t, int64(2500), f.orders.items[0].TotalCents)
	assert.Equal(t, int64(2500), f.orders.order.TotalCents)
}

func TestCreateOrder_WholesaleUsesTierPricing(t *testing.T) {
	f := newCheckoutFixture()
	f.svc.prices = &priceResolverMock{
		resolve: func(_ context.Context, in pricing.Input) (map[int64]int64, error) {
			require.NotNil(t, in.PriceTierID)
			assert.Equal(t, int64(10), *in.PriceTierID)
			require.NotNil(t, in.OrganizationID)
			assert.Equal(t, int64(7), *in.OrganizationID)
			return map[int64]int64{1: 400}, nil
		},
	}

	in := validInput()
	in.Channel = entity.ChannelB2B
	in.PaymentMethod = entity.PaymentMethodInvoice
	in.StoreID = nil
	companyID := int64(7)
	in.CompanyID = &companyID

	result, err := f.svc.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	f.svc.Wait()

	require.NotNil(t, result)
	require.Len(t, f.orders.items, 1)
	assert.Equal(t, int64(400), f.orders.items[0].UnitPriceCents)
	assert.Equal(t, int64(800), f.orders.order.TotalCents)
}

func TestCreateOrder_ChannelAnchorsAreExclusive(t *testing.T) {
	t.Run("wholesale drops a stray store id", func(t *testing.T) {
		f := newCheckoutFixture()
		in := validInput()
		in.Channel = entity.ChannelB2B
		in.PaymentMethod = entity.PaymentMethodInvoice
		companyID := int64(7)
		in.CompanyID = &companyID
		// StoreID still carries the retail default from validInput.

		_, err := f.svc.CreateOrder(context.Background(), in)
		require.NoError(t, err)
		f.svc.Wait()

		require.NotNil(t, f.orders.order)
		assert.Nil(t, f.orders.order.StoreID)
		require.NotNil(t, f.orders.order.CompanyID)
		assert.Equal(t, int64(7), *f.orders.order.CompanyID)
	})

	t.Run("retail drops a stray company id", func(t *testing.T) {
		f := newCheckoutFixture()
		in := validInput()
		companyID := int64(7)
		in.CompanyID = &companyID

		_, err := f.svc.CreateOrder(context.Background(), in)
		require.NoError(t, err)
		f.svc.Wait()

		require.NotNil(t, f.orders.order)
		assert.Nil(t, f.orders.order.CompanyID)
		require.NotNil(t, f.orders.order.StoreID)
		assert.Equal(t, int64(1), *f.orders.order.StoreID)
	})
}

func TestCreateOrder_UnknownOrganization(t *testing.T) {
	f := newCheckoutFixture()
	f.svc.catalog.(*catalogMock).getOrganization = func(context.Context, int64) (*entity.Organization, error) {
		return nil, catalogrepo.ErrOrganizationNotFound
	}

	in := validInput()
	in.Channel = entity.ChannelB2B
	in.PaymentMethod = entity.PaymentMethodInvoice
	in.StoreID = nil
	companyID := int64(7)
	in.CompanyID = &companyID

	_, err := f.svc.CreateOrder(context.Background(), in)
	assert.Equal(t, CodeBadRequest, appCode(t, err))
}

func TestCreateOrder_CommitFailureKeepsCart(t *testing.T) {
	f := newCheckoutFixture()
	f.orders.err = errors.New("deadlock")

	_, err := f.svc.CreateOrder(context.Background(), validInput())
	require.Error(t, err)

	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errorbank.KindInternal, appErr.Kind())

	// The commit never happened, so the cart must survive untouched.
	assert.Equal(t, 0, f.carts.clearedCount())
	assert.Equal(t, 0, f.mailer.newOrder)
	assert.Equal(t, 0, f.mailer.receipt)
}

func TestCreateOrder_InfrastructureFailureIsOpaque(t *testing.T) {
	f := newCheckoutFixture()
	f.carts.getErr = errors.New("redis down")

	_, err := f.svc.CreateOrder(context.Background(), validInput())
	require.Error(t, err)

	var appErr *errorbank.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errorbank.KindInternal, appErr.Kind())
	assert.Empty(t, appErr.Code())
	// Clients see only the message; the cause stays in logs.
	assert.NotContains(t, appErr.Message(), "redis")
}
