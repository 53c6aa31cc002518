package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/costeo/internal/domain"
)

// CostRepo is the cost engine's view of products and ingredients.
type CostRepo struct{ db *gorm.DB }

func NewCostRepo(db *gorm.DB) *CostRepo { return &CostRepo{db: db} }

func (r *CostRepo) FindProductWithRecipe(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	q, _, err := scoped(ctx, r.db, &domain.Product{}, "products")
	if err != nil {
		return nil, err
	}
	var p domain.Product
	if err := q.Preload("RecipeItems").Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *CostRepo) FindIngredientLatestCost(ctx context.Context, id uuid.UUID) (domain.IngredientCost, error) {
	q, org, err := scoped(ctx, r.db, &domain.Ingredient{}, "ingredients")
	if err != nil {
		return domain.IngredientCost{}, err
	}
	var ing domain.Ingredient
	if err := q.Where("id = ?", id).First(&ing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.IngredientCost{}, nil
		}
		return domain.IngredientCost{}, err
	}
	out := domain.IngredientCost{Unit: string(ing.Unit)}

	var last []domain.IngredientPurchase
	err = r.db.WithContext(ctx).
		Where("ingredient_id = ? AND organization_id = ?", id, org).
		Order("purchase_date desc, created_at desc").
		Limit(1).
		Find(&last).Error
	if err != nil {
		return domain.IngredientCost{}, err
	}
	if len(last) > 0 {
		out.UnitCost = last[0].UnitCost
	}
	return out, nil
}
