package models

import "gorm.io/gorm"

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// transitions is the lifecycle adjacency. Forward-only through the
// kitchen flow; any non-terminal state may jump to cancelled.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusDelivered, StatusCancelled},
	StatusDelivered: nil,
	StatusCancelled: nil,
}

// ValidStatus reports whether s is one of the six lifecycle states.
func ValidStatus(s OrderStatus) bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transition is permitted from s.
func (s OrderStatus) Terminal() bool {
	return len(transitions[s]) == 0 && ValidStatus(s)
}

// CanTransition reports whether s → to is in the lifecycle adjacency.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentMethod is how an order is settled on delivery.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

// ValidPaymentMethod reports whether m is one of the closed set.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

// Order is one customer order. Total is always derived from the items;
// it is recomputed on every persist and never taken from a request body.
type Order struct {
	gorm.Model
	UserID          uint          `gorm:"not null;index"                    json:"user_id"`
	Items           []OrderItem   `gorm:"constraint:OnDelete:CASCADE"       json:"items"`
	Total           float64       `gorm:"not null;default:0"                json:"total"`
	Status          OrderStatus   `gorm:"size:20;not null;default:pending;index" json:"status"`
	PaymentMethod   PaymentMethod `gorm:"size:20;not null;default:cash"     json:"payment_method"`
	DeliveryAddress string        `gorm:"size:255"                          json:"delivery_address"`
	Phone           string        `gorm:"size:30"                           json:"phone"`
	Notes           string        `gorm:"size:200"                          json:"notes"`
}

// OrderItem is the immutable snapshot of one order line. Name and Price
// are copied from the product at creation time so later catalog edits
// never rewrite history.
type OrderItem struct {
	gorm.Model
	OrderID   uint    `gorm:"not null;index" json:"-"`
	ProductID uint    `gorm:"not null;index" json:"product_id"`
	Name      string  `gorm:"size:100;not null" json:"name"`
	Price     float64 `gorm:"not null" json:"price"`
	Quantity  int     `gorm:"not null" json:"quantity"`
	Subtotal  float64 `gorm:"not null" json:"subtotal"`
}

// ComputeTotal recomputes every item's subtotal from price × quantity
// and returns the order total, storing both.
func (o *Order) ComputeTotal() float64 {
	total := 0.0
	for i := range o.Items {
		o.Items[i].Subtotal = o.Items[i].Price * float64(o.Items[i].Quantity)
		total += o.Items[i].Subtotal
	}
	o.Total = total
	return total
}
