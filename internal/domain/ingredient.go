package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Ingredient struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	Name           string    `gorm:"size:140;not null" json:"name"`
	Unit           Unit      `gorm:"type:varchar(10);not null" json:"unit"`
	CurrentStock   float64   `gorm:"not null" json:"current_stock"`
	MinStock       *float64  `json:"min_stock,omitempty"`
	Active         bool      `gorm:"not null" json:"active"`
	Description    string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (i Ingredient) IsLowStock() bool {
	return i.MinStock != nil && i.CurrentStock <= *i.MinStock
}

// IngredientCost is what the cost engine needs from an ingredient: the unit it
// is priced in and the unit cost of its most recent purchase (0 if none).
type IngredientCost struct {
	Unit     string
	UnitCost float64
}

type IngredientPurchase struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID   `gorm:"type:uuid;index;not null" json:"-"`
	IngredientID   uuid.UUID   `gorm:"type:uuid;index;not null" json:"ingredient_id"`
	Ingredient     *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
	Quantity       float64     `gorm:"not null" json:"quantity"`
	Unit           string      `gorm:"size:20;not null" json:"unit"`
	UnitCost       float64     `gorm:"not null" json:"unit_cost"`
	PurchaseDate   time.Time   `gorm:"index" json:"purchase_date"`
	InvoiceNumber  string      `gorm:"size:60" json:"invoice_number,omitempty"`
	SupplierName   string      `gorm:"size:140" json:"supplier_name,omitempty"`
	Notes          string      `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

func (p IngredientPurchase) Total() float64 { return p.Quantity * p.UnitCost }

func (p IngredientPurchase) MovementReason(edited bool) string {
	inv := "sin factura"
	if p.InvoiceNumber != "" {
		inv = "Fact: " + p.InvoiceNumber
	}
	if edited {
		return "Compra (editada) " + inv
	}
	return "Compra " + inv
}

func (p IngredientPurchase) MovementNotes() string {
	s := p.SupplierName
	if s == "" {
		s = "N/A"
	}
	return "Proveedor: " + s
}

// IngredientView is an ingredient with the figures derived from its purchases.
type IngredientView struct {
	Ingredient
	LastCost         float64    `json:"last_cost"`
	LastPurchaseDate *time.Time `json:"last_purchase_date,omitempty"`
	LowStock         bool       `json:"is_low_stock"`
}

type MovementType string

const (
	MovementPurchase   MovementType = "COMPRA"
	MovementAdjustment MovementType = "AJUSTE"
	MovementWithdrawal MovementType = "RETIRO"
	MovementReturn     MovementType = "DEVOLUCION"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementPurchase, MovementAdjustment, MovementWithdrawal, MovementReturn:
		return true
	}
	return false
}

const (
	RefPurchase   = "PURCHASE"
	RefAdjustment = "ADJUSTMENT"
)

type StockMovement struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID    `gorm:"type:uuid;index;not null" json:"-"`
	IngredientID   uuid.UUID    `gorm:"type:uuid;index;not null" json:"ingredient_id"`
	Ingredient     *Ingredient  `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
	Type           MovementType `gorm:"type:varchar(20);not null" json:"type"`
	Quantity       float64      `gorm:"not null" json:"quantity"`
	Unit           string       `gorm:"size:20" json:"unit"`
	Reason         string       `gorm:"size:255" json:"reason,omitempty"`
	ReferenceID    *uuid.UUID   `gorm:"type:uuid;index" json:"reference_id,omitempty"`
	ReferenceType  string       `gorm:"size:20" json:"reference_type,omitempty"`
	MovementDate   time.Time    `gorm:"index" json:"movement_date"`
	Notes          string       `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

func DefaultMovementReason(t MovementType) string {
	return fmt.Sprintf("Movimiento tipo %s", t)
}
