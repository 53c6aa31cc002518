package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phenrril/costeo/internal/domain"
)

type PurchaseRepo struct{ db *gorm.DB }

func NewPurchaseRepo(db *gorm.DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

func (r *PurchaseRepo) List(ctx context.Context, ingredientID *uuid.UUID) ([]domain.IngredientPurchase, error) {
	q, _, err := scoped(ctx, r.db, &domain.IngredientPurchase{}, "ingredient_purchases")
	if err != nil {
		return nil, err
	}
	if ingredientID != nil {
		q = q.Where("ingredient_id = ?", *ingredientID)
	}
	var list []domain.IngredientPurchase
	if err := q.Preload("Ingredient").Order("purchase_date desc, created_at desc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *PurchaseRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.IngredientPurchase, error) {
	q, _, err := scoped(ctx, r.db, &domain.IngredientPurchase{}, "ingredient_purchases")
	if err != nil {
		return nil, err
	}
	var p domain.IngredientPurchase
	if err := q.Preload("Ingredient").Where("id = ?", id).First(&p).Error; err != nil {
		return nil, notFound(err, "purchase")
	}
	return &p, nil
}

func (r *PurchaseRepo) Create(ctx context.Context, p *domain.IngredientPurchase, mv *domain.StockMovement) error {
	org, err := orgOf(ctx)
	if err != nil {
		return err
	}
	p.OrganizationID = org
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return err
		}
		if err := addStock(tx, org, p.IngredientID, p.Quantity); err != nil {
			return err
		}
		mv.OrganizationID = org
		mv.IngredientID = p.IngredientID
		mv.ReferenceID = &p.ID
		mv.ReferenceType = domain.RefPurchase
		return tx.Omit(clause.Associations).Create(mv).Error
	})
}

func (r *PurchaseRepo) Update(ctx context.Context, p *domain.IngredientPurchase, stockDelta float64) error {
	org, err := orgOf(ctx)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.IngredientPurchase{}).
			Where("id = ? AND organization_id = ?", p.ID, org).
			Select("quantity", "unit_cost", "purchase_date", "invoice_number", "supplier_name", "notes", "updated_at").
			Updates(p)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		if stockDelta == 0 {
			return nil
		}
		if err := addStock(tx, org, p.IngredientID, stockDelta); err != nil {
			return err
		}
		return tx.Model(&domain.StockMovement{}).
			Where("reference_id = ? AND reference_type = ?", p.ID, domain.RefPurchase).
			Updates(map[string]any{
				"quantity": p.Quantity,
				"unit":     p.Unit,
				"reason":   p.MovementReason(true),
				"notes":    p.MovementNotes(),
			}).Error
	})
}

// Delete takes the purchased quantity back out of stock.
func (r *PurchaseRepo) Delete(ctx context.Context, p *domain.IngredientPurchase) error {
	org, err := orgOf(ctx)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := addStock(tx, org, p.IngredientID, -p.Quantity); err != nil {
			return err
		}
		if err := tx.Where("reference_id = ? AND reference_type = ?", p.ID, domain.RefPurchase).
			Delete(&domain.StockMovement{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND organization_id = ?", p.ID, org).Delete(&domain.IngredientPurchase{}).Error
	})
}

func addStock(tx *gorm.DB, org, ingredientID uuid.UUID, delta float64) error {
	res := tx.Model(&domain.Ingredient{}).
		Where("id = ? AND organization_id = ?", ingredientID, org).
		UpdateColumn("current_stock", gorm.Expr("current_stock + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
