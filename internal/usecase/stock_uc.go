package usecase

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phenrril/costeo/internal/domain"
)

type StockUC struct {
	Stock       domain.StockRepo
	Ingredients domain.IngredientRepo
	Now         domain.Clock
}

func (uc *StockUC) List(ctx context.Context, ingredientID *uuid.UUID) ([]domain.StockMovement, error) {
	return uc.Stock.List(ctx, ingredientID)
}

// Record applies a manual movement. Withdrawals are stored negative and may
// not take the stock below zero.
func (uc *StockUC) Record(ctx context.Context, mv *domain.StockMovement) error {
	if mv.IngredientID == uuid.Nil {
		return domain.Invalid("ingredient_id", "Debe seleccionar un ingrediente")
	}
	if !mv.Type.Valid() {
		return domain.Invalid("type", "tipo de movimiento desconocido")
	}
	if mv.Quantity == 0 || math.IsNaN(mv.Quantity) || math.IsInf(mv.Quantity, 0) {
		return domain.Invalid("quantity", "La cantidad debe ser diferente de 0")
	}
	ing, err := uc.Ingredients.FindByID(ctx, mv.IngredientID)
	if err != nil {
		return err
	}
	if mv.Type == domain.MovementWithdrawal {
		mv.Quantity = -math.Abs(mv.Quantity)
	}
	if mv.ID == uuid.Nil {
		mv.ID = uuid.New()
	}
	if strings.TrimSpace(mv.Unit) == "" {
		mv.Unit = string(ing.Unit)
	}
	if strings.TrimSpace(mv.Reason) == "" {
		mv.Reason = domain.DefaultMovementReason(mv.Type)
	}
	mv.ReferenceType = domain.RefAdjustment
	mv.ReferenceID = nil
	if mv.MovementDate.IsZero() {
		if uc.Now != nil {
			mv.MovementDate = uc.Now()
		} else {
			mv.MovementDate = time.Now().UTC()
		}
	}
	return uc.Stock.Apply(ctx, mv, mv.Type != domain.MovementWithdrawal)
}

// Delete removes a manual movement and reverts its stock effect. Movements
// created by purchases go away with their purchase.
func (uc *StockUC) Delete(ctx context.Context, id uuid.UUID) error {
	mv, err := uc.Stock.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if mv.ReferenceType == domain.RefPurchase {
		return domain.Invalid("id", "el movimiento pertenece a una compra; elimine la compra")
	}
	return uc.Stock.Delete(ctx, mv, mv.ReferenceType == domain.RefAdjustment)
}
