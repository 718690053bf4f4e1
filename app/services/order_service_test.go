package services_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lacocina/comanda/app/models"
	"github.com/lacocina/comanda/app/services"
)

// fakeLedger is an in-memory ProductLedger with the same conditional
// semantics as the SQL implementation.
type fakeLedger struct {
	mu       sync.Mutex
	products map[uint]*models.Product
	released map[uint]int // product id -> units released
}

func newFakeLedger(products ...models.Product) *fakeLedger {
	l := &fakeLedger{products: map[uint]*models.Product{}, released: map[uint]int{}}
	for i := range products {
		p := products[i]
		l.products[p.ID] = &p
	}
	return l
}

func (l *fakeLedger) Reserve(productID uint, qty int) (services.LineSnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.products[productID]
	if !ok {
		return services.LineSnapshot{}, services.ErrProductNotFound
	}
	if !p.Active {
		return services.LineSnapshot{}, services.ErrProductInactive
	}
	if p.Stock < qty {
		return services.LineSnapshot{}, &services.InsufficientStockError{
			ProductID: p.ID, Name: p.Name, Available: p.Stock,
		}
	}
	p.Stock -= qty
	return services.LineSnapshot{Name: p.Name, Price: p.Price}, nil
}

func (l *fakeLedger) Release(productID uint, qty int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.products[productID]; ok {
		p.Stock += qty
	}
	l.released[productID] += qty
}

func (l *fakeLedger) Find(productID uint) (models.Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.products[productID]; ok {
		return *p, nil
	}
	return models.Product{}, services.ErrProductNotFound
}

func (l *fakeLedger) stock(productID uint) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.products[productID].Stock
}

type fakeOrders struct {
	mu        sync.Mutex
	seq       uint
	orders    map[uint]models.Order
	createErr error
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[uint]models.Order{}}
}

func (s *fakeOrders) Create(order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.seq++
	order.ID = s.seq
	s.orders[order.ID] = *order
	return nil
}

func (s *fakeOrders) Find(id uint) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return models.Order{}, errors.New("record not found")
	}
	return order, nil
}

func (s *fakeOrders) Update(order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = *order
	return nil
}

func (s *fakeOrders) List(filter services.OrderFilter, page, limit int) ([]models.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.UserID != 0 && o.UserID != filter.UserID {
			continue
		}
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

func (s *fakeOrders) InRange(from, to *time.Time) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if from != nil && o.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && o.CreatedAt.After(*to) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

type fakeUsers struct {
	users map[uint]models.User
}

func (u *fakeUsers) Exists(id uint) (bool, error) {
	_, ok := u.users[id]
	return ok, nil
}

func (u *fakeUsers) Get(id uint) (models.User, error) {
	user, ok := u.users[id]
	if !ok {
		return models.User{}, errors.New("record not found")
	}
	return user, nil
}

func burger() models.Product {
	p := models.Product{Name: "Hamburguesa Clasica", Price: 5.00, Stock: 10, Category: "Hamburguesas", Active: true}
	p.ID = 1
	return p
}

func soda() models.Product {
	p := models.Product{Name: "Coca Cola", Price: 3.00, Stock: 10, Category: "Bebidas", Active: true}
	p.ID = 2
	return p
}

func newService(ledger *fakeLedger, orders *fakeOrders) *services.OrderService {
	users := &fakeUsers{users: map[uint]models.User{7: {Name: "Ana"}}}
	return services.NewOrderService(orders, ledger, users)
}

func TestPlaceOrderComputesTotalAndReservesStock(t *testing.T) {
	ledger := newFakeLedger(burger(), soda())
	orders := newFakeOrders()
	svc := newService(ledger, orders)

	order, err := svc.PlaceOrder(services.CreateOrderInput{
		UserID: 7,
		Items: []services.OrderLineInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 13.00, order.Total)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, models.PaymentCash, order.PaymentMethod)
	assert.Equal(t, 8, ledger.stock(1))
	assert.Equal(t, 9, ledger.stock(2))
	assert.Equal(t, "Hamburguesa Clasica", order.Items[0].Name)
	assert.Equal(t, 10.00, order.Items[0].Subtotal)
}

func TestPlaceOrderRollsBackEarlierLinesOnFailure(t *testing.T) {
	short := soda()
	short.Stock = 0
	ledger := newFakeLedger(burger(), short)
	svc := newService(ledger, newFakeOrders())

	_, err := svc.PlaceOrder(services.CreateOrderInput{
		UserID: 7,
		Items: []services.OrderLineInput{
			{ProductID: 1, Quantity: 2}, // reserves fine
			{ProductID: 2, Quantity: 1}, // out of stock
		},
	})

	require.Error(t, err)
	assert.Equal(t, services.KindConflict, services.KindOf(err))
	assert.Contains(t, err.Error(), "Coca Cola")
	assert.Equal(t, 10, ledger.stock(1), "first line must be rolled back")
	assert.Equal(t, 2, ledger.released[1])
}

func TestPlaceOrderReleasesStockWhenPersistFails(t *testing.T) {
	ledger := newFakeLedger(burger())
	orders := newFakeOrders()
	orders.createErr = errors.New("disk full")
	svc := newService(ledger, orders)

	_, err := svc.PlaceOrder(services.CreateOrderInput{
		UserID: 7,
		Items:  []services.OrderLineInput{{ProductID: 1, Quantity: 3}},
	})

	require.Error(t, err)
	assert.Equal(t, services.KindInternal, services.KindOf(err))
	assert.Equal(t, 10, ledger.stock(1))
}

func TestPlaceOrderRejectsUnknownUser(t *testing.T) {
	svc := newService(newFakeLedger(burger()), newFakeOrders())

	_, err := svc.PlaceOrder(services.CreateOrderInput{
		UserID: 99,
		Items:  []services.OrderLineInput{{ProductID: 1, Quantity: 1}},
	})

	require.Error(t, err)
	assert.Equal(t, services.KindNotFound, services.KindOf(err))
}

func TestPlaceOrderRejectsBadInput(t *testing.T) {
	svc := newService(newFakeLedger(burger()), newFakeOrders())

	cases := []services.CreateOrderInput{
		{UserID: 0, Items: []services.OrderLineInput{{ProductID: 1, Quantity: 1}}},
		{UserID: 7},
		{UserID: 7, Items: []services.OrderLineInput{{ProductID: 1, Quantity: 0}}},
		{UserID: 7, Items: []services.OrderLineInput{{ProductID: 0, Quantity: 1}}},
		{UserID: 7, Items: []services.OrderLineInput{{ProductID: 1, Quantity: 1}}, PaymentMethod: "crypto"},
	}
	for _, input := range cases {
		_, err := svc.PlaceOrder(input)
		require.Error(t, err)
		assert.Equal(t, services.KindInvalid, services.KindOf(err))
	}
}

func TestPlaceOrderRejectsInactiveProduct(t *testing.T) {
	off := burger()
	off.Active = false
	svc := newService(newFakeLedger(off), newFakeOrders())

	_, err := svc.PlaceOrder(services.CreateOrderInput{
		UserID: 7,
		Items:  []services.OrderLineInput{{ProductID: 1, Quantity: 1}},
	})

	require.Error(t, err)
	assert.Equal(t, services.KindConflict, services.KindOf(err))
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	scarce := burger()
	scarce.Stock = 3
	ledger := newFakeLedger(scarce)
	orders := newFakeOrders()
	svc := newService(ledger, orders)

	const attempts = 20
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(services.CreateOrderInput{
				UserID: 7,
				Items:  []services.OrderLineInput{{ProductID: 1, Quantity: 1}},
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, services.KindConflict, services.KindOf(err))
		}
	}
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 0, ledger.stock(1))
}

func placed(t *testing.T, svc *services.OrderService) models.Order {
	t.Helper()
	order, err := svc.PlaceOrder(services.CreateOrderInput{
		UserID: 7,
		Items:  []services.OrderLineInput{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	return order
}

func TestSetStatusWalksLifecycle(t *testing.T) {
	ledger := newFakeLedger(burger())
	svc := newService(ledger, newFakeOrders())
	order := placed(t, svc)

	for _, next := range []models.OrderStatus{
		models.StatusConfirmed, models.StatusPreparing, models.StatusReady, models.StatusDelivered,
	} {
		updated, err := svc.SetStatus(order.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, updated.Status)
	}
	// Delivery never touches stock.
	assert.Equal(t, 8, ledger.stock(1))
}

func TestSetStatusRejectsSkippedStep(t *testing.T) {
	svc := newService(newFakeLedger(burger()), newFakeOrders())
	order := placed(t, svc)

	_, err := svc.SetStatus(order.ID, models.StatusReady)

	require.Error(t, err)
	assert.Equal(t, services.KindConflict, services.KindOf(err))
	assert.Contains(t, err.Error(), "pending")
	assert.Contains(t, err.Error(), "ready")
}

func TestCancelReleasesStockExactlyOnce(t *testing.T) {
	ledger := newFakeLedger(burger())
	svc := newService(ledger, newFakeOrders())
	order := placed(t, svc)
	require.Equal(t, 8, ledger.stock(1))

	cancelled, err := svc.SetStatus(order.ID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, 10, ledger.stock(1))

	// Cancelling again is a no-op, not a second release.
	again, err := svc.SetStatus(order.ID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, again.Status)
	assert.Equal(t, 10, ledger.stock(1))
	assert.Equal(t, 2, ledger.released[1])
}

func TestCancelDeliveredOrderRejected(t *testing.T) {
	ledger := newFakeLedger(burger())
	svc := newService(ledger, newFakeOrders())
	order := placed(t, svc)

	for _, next := range []models.OrderStatus{
		models.StatusConfirmed, models.StatusPreparing, models.StatusReady, models.StatusDelivered,
	} {
		_, err := svc.SetStatus(order.ID, next)
		require.NoError(t, err)
	}

	_, err := svc.SetStatus(order.ID, models.StatusCancelled)
	require.Error(t, err)
	assert.Equal(t, services.KindConflict, services.KindOf(err))
	assert.Equal(t, 8, ledger.stock(1), "delivered order keeps its stock consumed")
}

func TestSetStatusUnknownOrderAndStatus(t *testing.T) {
	svc := newService(newFakeLedger(burger()), newFakeOrders())

	_, err := svc.SetStatus(42, models.StatusConfirmed)
	assert.Equal(t, services.KindNotFound, services.KindOf(err))

	order := placed(t, svc)
	_, err = svc.SetStatus(order.ID, models.OrderStatus("shipped"))
	assert.Equal(t, services.KindInvalid, services.KindOf(err))
}
