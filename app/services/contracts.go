package services

import (
	"time"

	"github.com/lacocina/comanda/app/models"
)

// LineSnapshot is what the ledger returns from a successful reservation:
// the product's display name and unit price at the moment stock was
// committed, copied into the order line so later catalog edits never
// rewrite history.
type LineSnapshot struct {
	Name  string
	Price float64
}

// ProductLedger owns product stock. Reserve and Release are the only
// operations allowed to move it.
type ProductLedger interface {
	// Reserve atomically decrements stock by qty if, and only if, at
	// least qty units are available on an active product. Errors:
	// ErrProductNotFound, ErrProductInactive, *InsufficientStockError.
	Reserve(productID uint, qty int) (LineSnapshot, error)

	// Release returns qty units to the product. Best-effort: a missing
	// or deactivated product is logged, never surfaced; cancelling an
	// order must not be blocked by a ledger lookup failure.
	Release(productID uint, qty int)

	// Find is a read-only lookup.
	Find(productID uint) (models.Product, error)
}

// OrderFilter narrows an order listing.
type OrderFilter struct {
	Status   models.OrderStatus
	UserID   uint
	DateFrom *time.Time
	DateTo   *time.Time
}

// OrderStore is the durable order collection.
type OrderStore interface {
	Create(order *models.Order) error
	Find(id uint) (models.Order, error)
	Update(order *models.Order) error
	List(filter OrderFilter, page, limit int) ([]models.Order, int64, error)
	// InRange returns every order created inside the inclusive range;
	// nil endpoints leave that side unbounded.
	InRange(from, to *time.Time) ([]models.Order, error)
}

// UserDirectory validates order ownership. Registration and credential
// handling live elsewhere; the fulfillment engine only needs existence.
type UserDirectory interface {
	Exists(id uint) (bool, error)
	Get(id uint) (models.User, error)
}

// UserStore is the account side of the users table, used by AuthService.
type UserStore interface {
	Create(u *models.User) error
	FindByEmail(email string) (models.User, error)
}

// CatalogStore is the catalog-management side of the product table.
// Descriptive-field CRUD only; stock moves exclusively through the
// ProductLedger.
type CatalogStore interface {
	Find(id uint) (models.Product, error)
	FindByName(name string) (models.Product, error)
	List(filter ProductFilter, page, limit int) ([]models.Product, int64, error)
	Create(p *models.Product) error
	Update(p *models.Product) error
	Delete(id uint) error
	SetStock(id uint, stock int) error
	SetActive(id uint, active bool) error
}

// ProductFilter narrows a catalog listing.
type ProductFilter struct {
	Category string
	Active   *bool
	Search   string // matches name or description, case-insensitive
}
