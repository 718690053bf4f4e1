package models

import "gorm.io/gorm"

// Product is a catalog entry. Stock is the only field mutated outside
// catalog management: the product repository's reserve/release operations
// move it, and they are the only writers allowed to.
type Product struct {
	gorm.Model
	Name        string  `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string  `gorm:"size:500;not null"             json:"description"`
	Price       float64 `gorm:"not null;default:0"            json:"price"`
	Stock       int     `gorm:"not null;default:0"            json:"stock"`
	Image       string  `gorm:"size:255"                      json:"image"`
	Category    string  `gorm:"size:50;not null;index"        json:"category"`
	Active      bool    `gorm:"not null;default:true;index"   json:"active"`
}

// Categories is the closed set a product may belong to.
var Categories = []string{
	"Hamburguesas",
	"Bebidas",
	"Acompañamientos",
	"Pollo",
	"Postres",
	"Ensaladas",
	"Electronica",
	"Otros",
}

// ValidCategory reports whether c is one of the closed category set.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
