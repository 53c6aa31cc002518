package postgres

import (
	"gorm.io/gorm"

	"github.com/phenrril/costeo/internal/domain"
)

// AutoMigrate creates or updates every table the repositories use.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Organization{},
		&domain.Ingredient{},
		&domain.IngredientPurchase{},
		&domain.StockMovement{},
		&domain.Product{},
		&domain.RecipeItem{},
		&domain.Sale{},
		&domain.SaleItem{},
		&domain.FixedCost{},
	)
}
