package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/costeo/internal/domain"
)

type IngredientRepo struct{ db *gorm.DB }

func NewIngredientRepo(db *gorm.DB) *IngredientRepo { return &IngredientRepo{db: db} }

func (r *IngredientRepo) List(ctx context.Context) ([]domain.Ingredient, error) {
	q, _, err := scoped(ctx, r.db, &domain.Ingredient{}, "ingredients")
	if err != nil {
		return nil, err
	}
	var list []domain.Ingredient
	if err := q.Order("name asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *IngredientRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Ingredient, error) {
	q, _, err := scoped(ctx, r.db, &domain.Ingredient{}, "ingredients")
	if err != nil {
		return nil, err
	}
	var ing domain.Ingredient
	if err := q.Where("id = ?", id).First(&ing).Error; err != nil {
		return nil, notFound(err, "ingredient")
	}
	return &ing, nil
}

// FindByName matches case-insensitively.
func (r *IngredientRepo) FindByName(ctx context.Context, name string) (*domain.Ingredient, error) {
	q, _, err := scoped(ctx, r.db, &domain.Ingredient{}, "ingredients")
	if err != nil {
		return nil, err
	}
	var ing domain.Ingredient
	if err := q.Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).First(&ing).Error; err != nil {
		return nil, notFound(err, "ingredient")
	}
	return &ing, nil
}

func (r *IngredientRepo) Create(ctx context.Context, ing *domain.Ingredient, initial *domain.StockMovement) error {
	org, err := orgOf(ctx)
	if err != nil {
		return err
	}
	ing.OrganizationID = org
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ing).Error; err != nil {
			return err
		}
		if initial == nil {
			return nil
		}
		initial.OrganizationID = org
		initial.IngredientID = ing.ID
		return tx.Omit("Ingredient").Create(initial).Error
	})
}

// Update never touches current_stock.
func (r *IngredientRepo) Update(ctx context.Context, ing *domain.Ingredient) error {
	q, _, err := scoped(ctx, r.db, &domain.Ingredient{}, "ingredients")
	if err != nil {
		return err
	}
	res := q.Where("id = ?", ing.ID).
		Select("name", "unit", "min_stock", "active", "description", "updated_at").
		Updates(ing)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes the ingredient with its purchases and movements.
func (r *IngredientRepo) Delete(ctx context.Context, id uuid.UUID) error {
	org, err := orgOf(ctx)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cond := "ingredient_id = ? AND organization_id = ?"
		if err := tx.Where(cond, id, org).Delete(&domain.StockMovement{}).Error; err != nil {
			return err
		}
		if err := tx.Where(cond, id, org).Delete(&domain.IngredientPurchase{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ? AND organization_id = ?", id, org).Delete(&domain.Ingredient{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (r *IngredientRepo) CountRecipeUsage(ctx context.Context, id uuid.UUID) (int64, error) {
	org, err := orgOf(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	err = r.db.WithContext(ctx).Model(&domain.RecipeItem{}).
		Joins("JOIN products ON products.id = recipe_items.product_id").
		Where("products.organization_id = ? AND recipe_items.ingredient_id = ?", org, id).
		Count(&n).Error
	return n, err
}

// LatestPurchases maps each ingredient to its most recent purchase.
func (r *IngredientRepo) LatestPurchases(ctx context.Context) (map[uuid.UUID]domain.IngredientPurchase, error) {
	q, _, err := scoped(ctx, r.db, &domain.IngredientPurchase{}, "ingredient_purchases")
	if err != nil {
		return nil, err
	}
	var all []domain.IngredientPurchase
	if err := q.Order("purchase_date desc, created_at desc").Find(&all).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]domain.IngredientPurchase, len(all))
	for _, p := range all {
		if _, ok := out[p.IngredientID]; !ok {
			out[p.IngredientID] = p
		}
	}
	return out, nil
}

func (r *IngredientRepo) LowStock(ctx context.Context) ([]domain.Ingredient, error) {
	q, _, err := scoped(ctx, r.db, &domain.Ingredient{}, "ingredients")
	if err != nil {
		return nil, err
	}
	var list []domain.Ingredient
	err = q.Where("active = ? AND min_stock IS NOT NULL AND current_stock <= min_stock", true).
		Order("current_stock asc").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
