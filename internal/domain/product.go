package domain

import (
	"time"

	"github.com/google/uuid"
)

type ProductType string

const (
	// ProductElaborado is priced from its recipe; every other type uses ManualCost.
	ProductElaborado ProductType = "ELABORADO"
	ProductReventa   ProductType = "REVENTA"
	ProductOther     ProductType = "OTHER"
)

func (t ProductType) Valid() bool {
	switch t {
	case ProductElaborado, ProductReventa, ProductOther:
		return true
	}
	return false
}

type Product struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_products_org_slug" json:"-"`
	Slug           string       `gorm:"size:160;not null;uniqueIndex:idx_products_org_slug" json:"slug"`
	Name           string       `gorm:"size:180;not null" json:"name"`
	Type           ProductType  `gorm:"type:varchar(20);not null" json:"type"`
	Category       string       `gorm:"size:100" json:"category,omitempty"`
	Description    string       `gorm:"type:text" json:"description,omitempty"`
	BasePrice      float64      `gorm:"not null" json:"base_price"`
	ManualCost     *float64     `json:"manual_cost,omitempty"`
	Active         bool         `gorm:"not null" json:"active"`
	RecipeItems    []RecipeItem `gorm:"foreignKey:ProductID" json:"recipe_items,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// RecipeItem references exactly one of an ingredient or a sub-product.
// For sub-product lines Quantity is a plain multiplier and Unit is informative.
type RecipeItem struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID    uuid.UUID   `gorm:"type:uuid;index;not null" json:"product_id"`
	IngredientID *uuid.UUID  `gorm:"type:uuid;index" json:"ingredient_id,omitempty"`
	Ingredient   *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
	SubProductID *uuid.UUID  `gorm:"type:uuid;index" json:"sub_product_id,omitempty"`
	SubProduct   *Product    `gorm:"foreignKey:SubProductID" json:"sub_product,omitempty"`
	Quantity     float64     `gorm:"not null" json:"quantity"`
	Unit         string      `gorm:"size:20;not null" json:"unit"`
}

func (r RecipeItem) IsIngredient() bool { return r.IngredientID != nil }
func (r RecipeItem) IsSubProduct() bool { return r.IngredientID == nil && r.SubProductID != nil }

type ProductFilter struct {
	Query    string
	Category string
	Type     ProductType
	Active   *bool
}

// ProductView is a product with its evaluated cost. CostError is set when the
// recipe could not be evaluated (circular reference); Cost is then 0.
type ProductView struct {
	Product
	Cost      float64 `json:"cost"`
	Margin    float64 `json:"margin"`
	MarginPct float64 `json:"margin_pct"`
	CostError string  `json:"cost_error,omitempty"`
}

func NewProductView(p Product, cost float64, costErr error) ProductView {
	v := ProductView{Product: p, Cost: cost}
	if costErr != nil {
		v.Cost = 0
		v.CostError = costErr.Error()
	}
	v.Margin = p.BasePrice - v.Cost
	if p.BasePrice != 0 {
		v.MarginPct = v.Margin / p.BasePrice * 100
	}
	return v
}
