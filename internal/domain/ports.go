package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CostRepo is the read model the cost engine evaluates against. It is expected
// to be tenant scoped already.
type CostRepo interface {
	// FindProductWithRecipe returns (nil, nil) when the product does not exist.
	FindProductWithRecipe(ctx context.Context, id uuid.UUID) (*Product, error)
	// FindIngredientLatestCost never reports absence: an unknown ingredient or
	// one without purchases costs 0.
	FindIngredientLatestCost(ctx context.Context, id uuid.UUID) (IngredientCost, error)
}

type IngredientRepo interface {
	List(ctx context.Context) ([]Ingredient, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Ingredient, error)
	FindByName(ctx context.Context, name string) (*Ingredient, error)
	Create(ctx context.Context, ing *Ingredient, initial *StockMovement) error
	Update(ctx context.Context, ing *Ingredient) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountRecipeUsage(ctx context.Context, id uuid.UUID) (int64, error)
	LatestPurchases(ctx context.Context) (map[uuid.UUID]IngredientPurchase, error)
	LowStock(ctx context.Context) ([]Ingredient, error)
}

type PurchaseRepo interface {
	List(ctx context.Context, ingredientID *uuid.UUID) ([]IngredientPurchase, error)
	FindByID(ctx context.Context, id uuid.UUID) (*IngredientPurchase, error)
	// Create stores the purchase, increments stock and stores mv linked to it.
	Create(ctx context.Context, p *IngredientPurchase, mv *StockMovement) error
	// Update stores p and, when stockDelta is not zero, applies it to stock and
	// rewrites the linked movement.
	Update(ctx context.Context, p *IngredientPurchase, stockDelta float64) error
	Delete(ctx context.Context, p *IngredientPurchase) error
}

type StockRepo interface {
	List(ctx context.Context, ingredientID *uuid.UUID) ([]StockMovement, error)
	FindByID(ctx context.Context, id uuid.UUID) (*StockMovement, error)
	// Apply stores mv and adds its quantity to the ingredient stock. With
	// allowNegative false it fails with ErrInsufficientStock instead of
	// leaving the stock below zero.
	Apply(ctx context.Context, mv *StockMovement, allowNegative bool) error
	// Delete removes mv, subtracting its quantity from stock when revert is set.
	Delete(ctx context.Context, mv *StockMovement, revert bool) error
}

type ProductRepo interface {
	List(ctx context.Context, f ProductFilter) ([]Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindBySlug(ctx context.Context, slug string) (*Product, error)
	FindByName(ctx context.Context, name string) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error)
	Create(ctx context.Context, p *Product) error
	// Update saves the product and replaces all its recipe lines.
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	CountSubProductUsage(ctx context.Context, id uuid.UUID) (int64, error)
	CountSaleUsage(ctx context.Context, id uuid.UUID) (int64, error)
	DistinctCategories(ctx context.Context) ([]string, error)
}

type SaleRepo interface {
	Create(ctx context.Context, s *Sale) error
	Recent(ctx context.Context, limit int) ([]Sale, error)
	// History returns up to q.Limit+1 sales so callers can detect more pages,
	// plus the number of sales matching the filters.
	History(ctx context.Context, q SalesQuery) ([]Sale, int64, error)
	// Matching returns every sale matching the filters, ignoring cursor and limit.
	Matching(ctx context.Context, q SalesQuery) ([]Sale, error)
	Totals(ctx context.Context) (revenue, cost float64, count int64, err error)
}

type FixedCostRepo interface {
	ListActive(ctx context.Context) ([]FixedCost, error)
	FindByID(ctx context.Context, id uuid.UUID) (*FixedCost, error)
	Save(ctx context.Context, c *FixedCost) error
	Delete(ctx context.Context, id uuid.UUID) error
	SumActive(ctx context.Context) (float64, error)
}

type OrganizationRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	Save(ctx context.Context, o *Organization) error
}

// SaleNotifier is told about every recorded sale.
type SaleNotifier interface {
	SaleRecorded(ctx context.Context, s *Sale)
}

// Clock lets use cases be tested at fixed instants.
type Clock func() time.Time
