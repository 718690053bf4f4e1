package repositories

import (
	"time"

	"gorm.io/gorm"

	"github.com/lacocina/comanda/app/models"
	"github.com/lacocina/comanda/app/services"
)

// OrderRepository persists orders and their items.
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

var _ services.OrderStore = (*OrderRepository)(nil)

// Create inserts the order and its items in one transaction.
func (r *OrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *OrderRepository) Find(id uint) (models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").First(&order, id).Error
	return order, err
}

// Update saves the order row only; items are immutable once written.
func (r *OrderRepository) Update(order *models.Order) error {
	return r.db.Omit("Items").Save(order).Error
}

func (r *OrderRepository) List(filter services.OrderFilter, page, limit int) ([]models.Order, int64, error) {
	q := r.db.Model(&models.Order{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	q = inRange(q, filter.DateFrom, filter.DateTo)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := q.Preload("Items").
		Order("created_at DESC").
		Offset(pageOffset(page, limit)).Limit(pageLimit(limit)).
		Find(&orders).Error
	return orders, total, err
}

func (r *OrderRepository) InRange(from, to *time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := inRange(r.db.Model(&models.Order{}), from, to).
		Preload("Items").
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

func inRange(q *gorm.DB, from, to *time.Time) *gorm.DB {
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("created_at <= ?", *to)
	}
	return q
}
