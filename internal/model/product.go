package model

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrDuplicateProduct is returned when a product with the same item name, brand and provider exists
var ErrDuplicateProduct = errors.New("product already exists")

// Product is the canonical grocery product shared by every retailer
type Product struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Provider     string    `gorm:"size:50;not null;uniqueIndex:idx_products_identity;index" json:"provider"`
	ItemName     string    `gorm:"size:255;not null;uniqueIndex:idx_products_identity" json:"itemName"`
	Category     string    `gorm:"size:100;index" json:"category"`
	Brand        string    `gorm:"size:100;not null;uniqueIndex:idx_products_identity" json:"brand"`
	Price        float64   `gorm:"type:numeric(10,2);not null" json:"price"`
	UnitAmountOz float64   `gorm:"type:numeric(10,3);not null" json:"unitAmountOz"`
}

func (Product) TableName() string {
	return "products"
}

// BeforeCreate assigns an id and rounds the price to cents
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Price = RoundCents(p.Price)
	return nil
}

// UnitCost returns price per ounce. ok is false when either value is not positive.
func (p Product) UnitCost() (cost float64, ok bool) {
	if p.Price <= 0 || p.UnitAmountOz <= 0 {
		return 0, false
	}
	return p.Price / p.UnitAmountOz, true
}

// Complete reports whether every field needed for a unit cost comparison is present
func (p Product) Complete() bool {
	_, ok := p.UnitCost()
	return ok && p.ItemName != ""
}

// Key identifies a product for de-duplication
func (p Product) Key() ProductKey {
	return ProductKey{ItemName: p.ItemName, Brand: p.Brand, Provider: p.Provider}
}

// ProductKey is the storage identity of a product
type ProductKey struct {
	ItemName string
	Brand    string
	Provider string
}

// RoundCents rounds a currency amount to two decimals
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
