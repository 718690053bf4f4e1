package repositories

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/lacocina/comanda/app/models"
	"github.com/lacocina/comanda/app/services"
	"github.com/lacocina/comanda/pkg/logger"
)

// ProductRepository backs both the stock ledger and the catalog store
// with the products table.
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

var _ services.ProductLedger = (*ProductRepository)(nil)
var _ services.CatalogStore = (*ProductRepository)(nil)

// Reserve decrements stock with a single conditional UPDATE, so two
// concurrent reservations can never both take the last unit. When the
// guarded update matches no row, a follow-up read tells missing,
// inactive and short apart.
func (r *ProductRepository) Reserve(productID uint, qty int) (services.LineSnapshot, error) {
	res := r.db.Model(&models.Product{}).
		Where("id = ? AND active = ? AND stock >= ?", productID, true, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return services.LineSnapshot{}, res.Error
	}

	if res.RowsAffected == 0 {
		var p models.Product
		err := r.db.First(&p, productID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return services.LineSnapshot{}, services.ErrProductNotFound
		case err != nil:
			return services.LineSnapshot{}, err
		case !p.Active:
			return services.LineSnapshot{}, services.ErrProductInactive
		default:
			return services.LineSnapshot{}, &services.InsufficientStockError{
				ProductID: p.ID, Name: p.Name, Available: p.Stock,
			}
		}
	}

	var p models.Product
	if err := r.db.First(&p, productID).Error; err != nil {
		return services.LineSnapshot{}, err
	}
	return services.LineSnapshot{Name: p.Name, Price: p.Price}, nil
}

// Release returns qty units to the product. Failures are logged only;
// by contract release never blocks a cancellation.
func (r *ProductRepository) Release(productID uint, qty int) {
	res := r.db.Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		logger.Error("ledger: release failed", "product_id", productID, "qty", qty, "error", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		logger.Warn("ledger: release for missing product", "product_id", productID, "qty", qty)
	}
}

func (r *ProductRepository) Find(id uint) (models.Product, error) {
	var p models.Product
	err := r.db.First(&p, id).Error
	return p, err
}

func (r *ProductRepository) FindByName(name string) (models.Product, error) {
	var p models.Product
	err := r.db.Where("LOWER(name) = ?", strings.ToLower(name)).First(&p).Error
	return p, err
}

func (r *ProductRepository) List(filter services.ProductFilter, page, limit int) ([]models.Product, int64, error) {
	q := r.db.Model(&models.Product{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Active != nil {
		q = q.Where("active = ?", *filter.Active)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	err := q.Order("name ASC").
		Offset(pageOffset(page, limit)).Limit(pageLimit(limit)).
		Find(&products).Error
	return products, total, err
}

func (r *ProductRepository) Create(p *models.Product) error {
	return r.db.Create(p).Error
}

func (r *ProductRepository) Update(p *models.Product) error {
	return r.db.Save(p).Error
}

func (r *ProductRepository) Delete(id uint) error {
	return r.db.Delete(&models.Product{}, id).Error
}

func (r *ProductRepository) SetStock(id uint, stock int) error {
	return r.db.Model(&models.Product{}).Where("id = ?", id).Update("stock", stock).Error
}

func (r *ProductRepository) SetActive(id uint, active bool) error {
	return r.db.Model(&models.Product{}).Where("id = ?", id).Update("active", active).Error
}
