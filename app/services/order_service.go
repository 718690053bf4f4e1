package services

import (
	"errors"

	"github.com/lacocina/comanda/app/models"
	"github.com/lacocina/comanda/pkg/event"
	"github.com/lacocina/comanda/pkg/logger"
	"github.com/lacocina/comanda/pkg/metrics"
)

// OrderService drives order fulfillment: it validates requests against
// the ledger, commits stock reservations, computes totals server-side
// and walks persisted orders through the lifecycle.
type OrderService struct {
	orders OrderStore
	ledger ProductLedger
	users  UserDirectory
}

func NewOrderService(orders OrderStore, ledger ProductLedger, users UserDirectory) *OrderService {
	return &OrderService{orders: orders, ledger: ledger, users: users}
}

// OrderLineInput is one requested line of a new order.
type OrderLineInput struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// CreateOrderInput is the fulfillment request. Total is deliberately
// absent: it is always computed here, never accepted from the caller.
type CreateOrderInput struct {
	UserID          uint             `json:"user_id"`
	Items           []OrderLineInput `json:"items"`
	PaymentMethod   string           `json:"payment_method"   validate:"nullable,in=cash,card,transfer"`
	DeliveryAddress string           `json:"delivery_address" validate:"nullable,max=255"`
	Phone           string           `json:"phone"            validate:"nullable,max=30"`
	Notes           string           `json:"notes"            validate:"nullable,max=200"`
}

// OrderEvent is the payload fired on order creation and status changes,
// consumed by the live feed and cache invalidation.
type OrderEvent struct {
	OrderID uint               `json:"order_id"`
	UserID  uint               `json:"user_id"`
	Status  models.OrderStatus `json:"status"`
	Total   float64            `json:"total"`
}

// PlaceOrder validates every line against current stock, commits the
// reservations, and persists the order in `pending`.
//
// Reservation and persistence are one logical unit: the first line that
// fails validation rolls back every reservation already taken for this
// request, and a persistence failure after full reservation releases
// everything. Partial reservation is never an end state.
func (s *OrderService) PlaceOrder(input CreateOrderInput) (models.Order, error) {
	if input.UserID == 0 {
		return models.Order{}, Invalid("user is required")
	}
	if len(input.Items) == 0 {
		return models.Order{}, Invalid("order must contain at least one item")
	}
	for _, line := range input.Items {
		if line.ProductID == 0 || line.Quantity < 1 {
			return models.Order{}, Invalid("every item needs a product and a positive quantity")
		}
	}

	payment := models.PaymentMethod(input.PaymentMethod)
	if payment == "" {
		payment = models.PaymentCash
	}
	if !models.ValidPaymentMethod(payment) {
		return models.Order{}, Invalid("invalid payment method %q", input.PaymentMethod)
	}

	ok, err := s.users.Exists(input.UserID)
	if err != nil {
		return models.Order{}, Internal(err, "could not verify user")
	}
	if !ok {
		return models.Order{}, NotFound("user %d not found", input.UserID)
	}

	// Reserve line by line, in request order. Stock is committed as a
	// side effect of validation succeeding.
	reserved := make([]models.OrderItem, 0, len(input.Items))
	for _, line := range input.Items {
		snap, err := s.ledger.Reserve(line.ProductID, line.Quantity)
		if err != nil {
			s.rollback(reserved)
			return models.Order{}, s.reserveError(line.ProductID, err)
		}
		reserved = append(reserved, models.OrderItem{
			ProductID: line.ProductID,
			Name:      snap.Name,
			Price:     snap.Price,
			Quantity:  line.Quantity,
		})
	}

	order := models.Order{
		UserID:          input.UserID,
		Items:           reserved,
		Status:          models.StatusPending,
		PaymentMethod:   payment,
		DeliveryAddress: input.DeliveryAddress,
		Phone:           input.Phone,
		Notes:           input.Notes,
	}
	order.ComputeTotal()

	if err := s.orders.Create(&order); err != nil {
		// Reserved stock must not leak when the order itself is lost.
		s.rollback(reserved)
		return models.Order{}, Internal(err, "could not save order")
	}

	metrics.OrdersCreated.Inc()
	event.FireAsync(event.OrderCreated, OrderEvent{
		OrderID: order.ID, UserID: order.UserID, Status: order.Status, Total: order.Total,
	})

	return order, nil
}

// SetStatus transitions an order through the lifecycle. Only the
// transition into cancelled has an inventory side effect: each line's
// quantity is released back to the ledger, exactly once.
func (s *OrderService) SetStatus(orderID uint, next models.OrderStatus) (models.Order, error) {
	if !models.ValidStatus(next) {
		return models.Order{}, Invalid("invalid status %q", next)
	}

	order, err := s.orders.Find(orderID)
	if err != nil {
		return models.Order{}, NotFound("order %d not found", orderID)
	}

	// Re-cancelling is an idempotent no-op; the status check here is
	// what prevents a double release.
	if order.Status == models.StatusCancelled && next == models.StatusCancelled {
		return order, nil
	}

	if !order.Status.CanTransition(next) {
		return models.Order{}, Conflict("cannot transition order from %s to %s", order.Status, next)
	}

	prev := order.Status
	order.Status = next
	if err := s.orders.Update(&order); err != nil {
		return models.Order{}, Internal(err, "could not update order")
	}

	// Release only after the cancelled status is durable, so a failed
	// update can never have returned stock for a still-live order.
	if next == models.StatusCancelled {
		for _, item := range order.Items {
			s.ledger.Release(item.ProductID, item.Quantity)
			metrics.StockReleased.Add(float64(item.Quantity))
		}
	}

	metrics.StatusTransitions.WithLabelValues(string(prev), string(next)).Inc()
	event.FireAsync(event.OrderStatusChanged, OrderEvent{
		OrderID: order.ID, UserID: order.UserID, Status: order.Status, Total: order.Total,
	})

	return order, nil
}

// Get fetches one order.
func (s *OrderService) Get(orderID uint) (models.Order, error) {
	order, err := s.orders.Find(orderID)
	if err != nil {
		return models.Order{}, NotFound("order %d not found", orderID)
	}
	return order, nil
}

// List returns orders matching filter, newest first, with total count.
func (s *OrderService) List(filter OrderFilter, page, limit int) ([]models.Order, int64, error) {
	if filter.Status != "" && !models.ValidStatus(filter.Status) {
		return nil, 0, Invalid("invalid status %q", filter.Status)
	}
	orders, total, err := s.orders.List(filter, page, limit)
	if err != nil {
		return nil, 0, Internal(err, "could not list orders")
	}
	return orders, total, nil
}

// ListByUser returns one user's orders plus the user record.
func (s *OrderService) ListByUser(userID uint, page, limit int) ([]models.Order, int64, models.User, error) {
	user, err := s.users.Get(userID)
	if err != nil {
		return nil, 0, models.User{}, NotFound("user %d not found", userID)
	}
	orders, total, err := s.orders.List(OrderFilter{UserID: userID}, page, limit)
	if err != nil {
		return nil, 0, models.User{}, Internal(err, "could not list orders")
	}
	return orders, total, user, nil
}

// rollback releases every already-reserved line of a failed request.
func (s *OrderService) rollback(reserved []models.OrderItem) {
	for _, item := range reserved {
		s.ledger.Release(item.ProductID, item.Quantity)
		metrics.StockReleased.Add(float64(item.Quantity))
	}
}

// reserveError translates a ledger failure into the service taxonomy,
// naming the offending product the way the API reports it.
func (s *OrderService) reserveError(productID uint, err error) error {
	var short *InsufficientStockError
	switch {
	case errors.Is(err, ErrProductNotFound):
		metrics.ReservationsRejected.WithLabelValues("not_found").Inc()
		return NotFound("product %d not found", productID)
	case errors.Is(err, ErrProductInactive):
		metrics.ReservationsRejected.WithLabelValues("inactive").Inc()
		return Conflict("product %d is not available", productID)
	case errors.As(err, &short):
		metrics.ReservationsRejected.WithLabelValues("insufficient_stock").Inc()
		return Conflict("insufficient stock for %s: %d available", short.Name, short.Available)
	default:
		logger.Error("ledger: reserve failed", "product_id", productID, "error", err)
		return Internal(err, "could not reserve stock")
	}
}
