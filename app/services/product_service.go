package services

import (
	"strings"

	"github.com/lacocina/comanda/app/models"
	"github.com/lacocina/comanda/pkg/cache"
)

// CatalogCachePrefix groups cached catalog listings for invalidation.
const CatalogCachePrefix = "comanda:catalog:"

// ProductService manages the catalog: descriptive CRUD, activation and
// direct stock corrections. Order fulfillment never goes through here.
type ProductService struct {
	catalog CatalogStore
}

func NewProductService(catalog CatalogStore) *ProductService {
	return &ProductService{catalog: catalog}
}

// ProductInput carries the editable product fields.
type ProductInput struct {
	Name        string  `json:"name"        validate:"required,min=2,max=100"`
	Description string  `json:"description" validate:"nullable,max=500"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category"    validate:"required"`
}

func (s *ProductService) validateInput(in ProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return Invalid("product name is required")
	}
	if in.Price <= 0 {
		return Invalid("price must be greater than zero")
	}
	if in.Stock < 0 {
		return Invalid("stock cannot be negative")
	}
	if !models.ValidCategory(in.Category) {
		return Invalid("invalid category %q", in.Category)
	}
	return nil
}

// nameTaken reports whether another product already uses the name,
// compared case-insensitively. exclude skips the product being updated.
func (s *ProductService) nameTaken(name string, exclude uint) (bool, error) {
	existing, err := s.catalog.FindByName(name)
	if err != nil {
		return false, nil // no match, name is free
	}
	return existing.ID != exclude, nil
}

// Create adds a product to the catalog. Names are unique.
func (s *ProductService) Create(in ProductInput) (models.Product, error) {
	if err := s.validateInput(in); err != nil {
		return models.Product{}, err
	}
	if taken, _ := s.nameTaken(in.Name, 0); taken {
		return models.Product{}, Conflict("a product named %q already exists", in.Name)
	}

	p := models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Category:    in.Category,
		Active:      true,
	}
	if err := s.catalog.Create(&p); err != nil {
		return models.Product{}, Internal(err, "could not create product")
	}
	s.invalidate()
	return p, nil
}

// Update replaces the descriptive fields of an existing product. Stock
// is deliberately left alone; use SetStock for corrections.
func (s *ProductService) Update(id uint, in ProductInput) (models.Product, error) {
	if err := s.validateInput(in); err != nil {
		return models.Product{}, err
	}
	p, err := s.catalog.Find(id)
	if err != nil {
		return models.Product{}, NotFound("product %d not found", id)
	}
	if taken, _ := s.nameTaken(in.Name, id); taken {
		return models.Product{}, Conflict("a product named %q already exists", in.Name)
	}

	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.Category = in.Category
	if err := s.catalog.Update(&p); err != nil {
		return models.Product{}, Internal(err, "could not update product")
	}
	s.invalidate()
	return p, nil
}

// Get fetches one product.
func (s *ProductService) Get(id uint) (models.Product, error) {
	p, err := s.catalog.Find(id)
	if err != nil {
		return models.Product{}, NotFound("product %d not found", id)
	}
	return p, nil
}

// List returns catalog entries matching the filter.
func (s *ProductService) List(filter ProductFilter, page, limit int) ([]models.Product, int64, error) {
	if filter.Category != "" && !models.ValidCategory(filter.Category) {
		return nil, 0, Invalid("invalid category %q", filter.Category)
	}
	products, total, err := s.catalog.List(filter, page, limit)
	if err != nil {
		return nil, 0, Internal(err, "could not list products")
	}
	return products, total, nil
}

// Delete removes a product from the catalog. Existing order lines keep
// their name and price snapshot, so history stays intact.
func (s *ProductService) Delete(id uint) error {
	if _, err := s.catalog.Find(id); err != nil {
		return NotFound("product %d not found", id)
	}
	if err := s.catalog.Delete(id); err != nil {
		return Internal(err, "could not delete product")
	}
	s.invalidate()
	return nil
}

// SetStock overwrites the stock level. This is an administrative
// correction, not a reservation; it bypasses the ledger on purpose.
func (s *ProductService) SetStock(id uint, stock int) (models.Product, error) {
	if stock < 0 {
		return models.Product{}, Invalid("stock cannot be negative")
	}
	if _, err := s.catalog.Find(id); err != nil {
		return models.Product{}, NotFound("product %d not found", id)
	}
	if err := s.catalog.SetStock(id, stock); err != nil {
		return models.Product{}, Internal(err, "could not update stock")
	}
	s.invalidate()
	return s.catalog.Find(id)
}

// SetActive toggles availability without touching stock.
func (s *ProductService) SetActive(id uint, active bool) (models.Product, error) {
	if _, err := s.catalog.Find(id); err != nil {
		return models.Product{}, NotFound("product %d not found", id)
	}
	if err := s.catalog.SetActive(id, active); err != nil {
		return models.Product{}, Internal(err, "could not update product")
	}
	s.invalidate()
	return s.catalog.Find(id)
}

// SetImage records the stored image path for a product.
func (s *ProductService) SetImage(id uint, path string) (models.Product, error) {
	p, err := s.catalog.Find(id)
	if err != nil {
		return models.Product{}, NotFound("product %d not found", id)
	}
	p.Image = path
	if err := s.catalog.Update(&p); err != nil {
		return models.Product{}, Internal(err, "could not update product")
	}
	s.invalidate()
	return p, nil
}

func (s *ProductService) invalidate() {
	_ = cache.DelPrefix(CatalogCachePrefix)
}
