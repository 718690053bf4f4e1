package seeders

import (
	"gorm.io/gorm"

	"github.com/lacocina/comanda/app/models"
	"github.com/lacocina/comanda/pkg/auth"
)

func init() {
	Register("admin_user", SeedAdminUser)
	Register("products", SeedProducts)
}

// SeedAdminUser creates the default admin account when none exists.
// Change the password right after the first login.
func SeedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", "admin").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword("admin123")
	if err != nil {
		return err
	}
	return db.Create(&models.User{
		Name: "Administrador", Email: "admin@lacocina.local", Password: hash, Role: "admin",
	}).Error
}

// SeedProducts loads the starter menu. Idempotent: products that
// already exist by name are skipped.
func SeedProducts(db *gorm.DB) error {
	menu := []models.Product{
		{Name: "Hamburguesa Clásica", Description: "Carne de res, lechuga, tomate y queso", Price: 5.50, Stock: 50, Category: "Hamburguesas"},
		{Name: "Hamburguesa Doble", Description: "Doble carne y doble queso", Price: 7.50, Stock: 40, Category: "Hamburguesas"},
		{Name: "Hamburguesa de Pollo", Description: "Pechuga crispy con mayonesa de ajo", Price: 6.00, Stock: 35, Category: "Hamburguesas"},
		{Name: "Coca Cola 500ml", Description: "Bebida gaseosa", Price: 1.50, Stock: 100, Category: "Bebidas"},
		{Name: "Limonada Natural", Description: "Limón exprimido con hierbabuena", Price: 2.00, Stock: 60, Category: "Bebidas"},
		{Name: "Papas Fritas", Description: "Porción grande con sal de la casa", Price: 2.50, Stock: 80, Category: "Acompañamientos"},
		{Name: "Aros de Cebolla", Description: "Empanizados y crujientes", Price: 3.00, Stock: 45, Category: "Acompañamientos"},
		{Name: "Alitas BBQ x8", Description: "Bañadas en salsa barbacoa", Price: 6.50, Stock: 30, Category: "Pollo"},
		{Name: "Pollo Broaster 1/4", Description: "Con papas y ensalada", Price: 5.00, Stock: 25, Category: "Pollo"},
		{Name: "Flan de Caramelo", Description: "Postre casero", Price: 2.50, Stock: 20, Category: "Postres"},
		{Name: "Brownie con Helado", Description: "Brownie tibio y helado de vainilla", Price: 3.50, Stock: 20, Category: "Postres"},
		{Name: "Ensalada César", Description: "Pollo a la plancha, crutones y parmesano", Price: 4.50, Stock: 25, Category: "Ensaladas"},
	}

	for i := range menu {
		menu[i].Active = true
		var count int64
		if err := db.Model(&models.Product{}).Where("name = ?", menu[i].Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.Create(&menu[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
