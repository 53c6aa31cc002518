package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phenrril/costeo/internal/domain"
)

type IngredientUC struct {
	Ingredients domain.IngredientRepo
	Stock       domain.StockRepo
	Now         domain.Clock
}

func (uc *IngredientUC) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now().UTC()
}

// List returns every ingredient with its last purchase cost and stock status.
func (uc *IngredientUC) List(ctx context.Context) ([]domain.IngredientView, error) {
	list, err := uc.Ingredients.List(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := uc.Ingredients.LatestPurchases(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.IngredientView, 0, len(list))
	for _, ing := range list {
		v := domain.IngredientView{Ingredient: ing, LowStock: ing.IsLowStock()}
		if p, ok := latest[ing.ID]; ok {
			v.LastCost = p.UnitCost
			d := p.PurchaseDate
			v.LastPurchaseDate = &d
		}
		out = append(out, v)
	}
	return out, nil
}

func (uc *IngredientUC) Get(ctx context.Context, id uuid.UUID) (*domain.Ingredient, error) {
	return uc.Ingredients.FindByID(ctx, id)
}

func (uc *IngredientUC) LowStock(ctx context.Context) ([]domain.Ingredient, error) {
	return uc.Ingredients.LowStock(ctx)
}

func (uc *IngredientUC) Create(ctx context.Context, ing *domain.Ingredient) error {
	if ing.ID == uuid.Nil {
		ing.ID = uuid.New()
	}
	if err := uc.validate(ctx, ing); err != nil {
		return err
	}
	if ing.CurrentStock < 0 {
		return domain.Invalid("current_stock", "El stock no puede ser negativo")
	}
	ing.Active = true

	var initial *domain.StockMovement
	if ing.CurrentStock > 0 {
		initial = &domain.StockMovement{
			ID:            uuid.New(),
			IngredientID:  ing.ID,
			Type:          domain.MovementAdjustment,
			Quantity:      ing.CurrentStock,
			Unit:          string(ing.Unit),
			Reason:        "Stock inicial",
			ReferenceType: domain.RefAdjustment,
			MovementDate:  uc.now(),
		}
	}
	return uc.Ingredients.Create(ctx, ing, initial)
}

// Update changes descriptive fields only; stock moves through SetStock,
// purchases and stock movements.
func (uc *IngredientUC) Update(ctx context.Context, ing *domain.Ingredient) error {
	cur, err := uc.Ingredients.FindByID(ctx, ing.ID)
	if err != nil {
		return err
	}
	if err := uc.validate(ctx, ing); err != nil {
		return err
	}
	cur.Name = ing.Name
	cur.Unit = ing.Unit
	cur.MinStock = ing.MinStock
	cur.Description = ing.Description
	cur.Active = ing.Active
	if err := uc.Ingredients.Update(ctx, cur); err != nil {
		return err
	}
	*ing = *cur
	return nil
}

// SetStock sets an absolute stock level, recording the difference as an
// adjustment.
func (uc *IngredientUC) SetStock(ctx context.Context, id uuid.UUID, stock float64, reason string) (*domain.Ingredient, error) {
	if stock < 0 {
		return nil, domain.Invalid("current_stock", "El stock debe ser un número válido")
	}
	ing, err := uc.Ingredients.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	diff := stock - ing.CurrentStock
	if diff == 0 {
		return ing, nil
	}
	if strings.TrimSpace(reason) == "" {
		reason = "Ajuste manual de stock"
	}
	mv := &domain.StockMovement{
		ID:            uuid.New(),
		IngredientID:  id,
		Type:          domain.MovementAdjustment,
		Quantity:      diff,
		Unit:          string(ing.Unit),
		Reason:        reason,
		ReferenceType: domain.RefAdjustment,
		MovementDate:  uc.now(),
	}
	if err := uc.Stock.Apply(ctx, mv, true); err != nil {
		return nil, err
	}
	return uc.Ingredients.FindByID(ctx, id)
}

func (uc *IngredientUC) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := uc.Ingredients.FindByID(ctx, id); err != nil {
		return err
	}
	n, err := uc.Ingredients.CountRecipeUsage(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return domain.Invalid("id", "el ingrediente se usa en recetas")
	}
	return uc.Ingredients.Delete(ctx, id)
}

func (uc *IngredientUC) validate(ctx context.Context, ing *domain.Ingredient) error {
	ing.Name = strings.TrimSpace(ing.Name)
	ing.Description = strings.TrimSpace(ing.Description)
	if ing.Name == "" {
		return domain.Invalid("name", "El nombre es requerido")
	}
	u, ok := domain.ParseUnit(string(ing.Unit))
	if !ok {
		return domain.Invalid("unit", fmt.Sprintf("unidad desconocida %q", ing.Unit))
	}
	ing.Unit = u
	if ing.MinStock != nil && *ing.MinStock < 0 {
		return domain.Invalid("min_stock", "El stock mínimo no puede ser negativo")
	}
	existing, err := uc.Ingredients.FindByName(ctx, ing.Name)
	switch {
	case err == nil && existing.ID != ing.ID:
		return fmt.Errorf("%w: Ya existe un ingrediente con este nombre", domain.ErrDuplicate)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return err
	}
	return nil
}
