package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phenrril/costeo/internal/domain"
)

type StockRepo struct{ db *gorm.DB }

func NewStockRepo(db *gorm.DB) *StockRepo { return &StockRepo{db: db} }

func (r *StockRepo) List(ctx context.Context, ingredientID *uuid.UUID) ([]domain.StockMovement, error) {
	q, _, err := scoped(ctx, r.db, &domain.StockMovement{}, "stock_movements")
	if err != nil {
		return nil, err
	}
	if ingredientID != nil {
		q = q.Where("ingredient_id = ?", *ingredientID)
	}
	var list []domain.StockMovement
	if err := q.Preload("Ingredient").Order("movement_date desc, created_at desc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *StockRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.StockMovement, error) {
	q, _, err := scoped(ctx, r.db, &domain.StockMovement{}, "stock_movements")
	if err != nil {
		return nil, err
	}
	var mv domain.StockMovement
	if err := q.Where("id = ?", id).First(&mv).Error; err != nil {
		return nil, notFound(err, "stock movement")
	}
	return &mv, nil
}

func (r *StockRepo) Apply(ctx context.Context, mv *domain.StockMovement, allowNegative bool) error {
	org, err := orgOf(ctx)
	if err != nil {
		return err
	}
	mv.OrganizationID = org
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&domain.Ingredient{})
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var ing domain.Ingredient
		if err := q.Where("id = ? AND organization_id = ?", mv.IngredientID, org).First(&ing).Error; err != nil {
			return notFound(err, "ingredient")
		}
		if !allowNegative && ing.CurrentStock+mv.Quantity < 0 {
			return domain.ErrInsufficientStock
		}
		if err := tx.Omit(clause.Associations).Create(mv).Error; err != nil {
			return err
		}
		return addStock(tx, org, mv.IngredientID, mv.Quantity)
	})
}

func (r *StockRepo) Delete(ctx context.Context, mv *domain.StockMovement, revert bool) error {
	org, err := orgOf(ctx)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND organization_id = ?", mv.ID, org).Delete(&domain.StockMovement{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		if !revert {
			return nil
		}
		return addStock(tx, org, mv.IngredientID, -mv.Quantity)
	})
}
