package usecase

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phenrril/costeo/internal/domain"
)

type PurchaseUC struct {
	Purchases   domain.PurchaseRepo
	Ingredients domain.IngredientRepo
	Now         domain.Clock
}

const stockEpsilon = 0.001

func (uc *PurchaseUC) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now().UTC()
}

func (uc *PurchaseUC) List(ctx context.Context, ingredientID *uuid.UUID) ([]domain.IngredientPurchase, error) {
	return uc.Purchases.List(ctx, ingredientID)
}

// Create records a purchase; the ingredient stock grows by its quantity.
func (uc *PurchaseUC) Create(ctx context.Context, p *domain.IngredientPurchase) error {
	if p.IngredientID == uuid.Nil {
		return domain.Invalid("ingredient_id", "Debe seleccionar un ingrediente")
	}
	p.Unit = strings.TrimSpace(p.Unit)
	if p.Unit == "" {
		return domain.Invalid("unit", "Debe especificar la unidad de compra")
	}
	if err := validatePurchaseAmounts(p); err != nil {
		return err
	}
	if _, err := uc.Ingredients.FindByID(ctx, p.IngredientID); err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.PurchaseDate.IsZero() {
		p.PurchaseDate = uc.now()
	}
	trimPurchase(p)

	mv := &domain.StockMovement{
		ID:            uuid.New(),
		IngredientID:  p.IngredientID,
		Type:          domain.MovementPurchase,
		Quantity:      p.Quantity,
		Unit:          p.Unit,
		Reason:        p.MovementReason(false),
		ReferenceType: domain.RefPurchase,
		MovementDate:  uc.now(),
		Notes:         p.MovementNotes(),
	}
	return uc.Purchases.Create(ctx, p, mv)
}

// Update edits a purchase. Only the quantity difference reaches the stock.
func (uc *PurchaseUC) Update(ctx context.Context, in *domain.IngredientPurchase) (*domain.IngredientPurchase, error) {
	if in.ID == uuid.Nil {
		return nil, domain.Invalid("id", "ID de compra faltante")
	}
	if err := validatePurchaseAmounts(in); err != nil {
		return nil, err
	}
	cur, err := uc.Purchases.FindByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	diff := in.Quantity - cur.Quantity
	cur.Quantity = in.Quantity
	cur.UnitCost = in.UnitCost
	cur.InvoiceNumber = in.InvoiceNumber
	cur.SupplierName = in.SupplierName
	cur.Notes = in.Notes
	cur.PurchaseDate = in.PurchaseDate
	if cur.PurchaseDate.IsZero() {
		cur.PurchaseDate = uc.now()
	}
	trimPurchase(cur)
	cur.Ingredient = nil

	if math.Abs(diff) <= stockEpsilon {
		diff = 0
	}
	if err := uc.Purchases.Update(ctx, cur, diff); err != nil {
		return nil, err
	}
	return cur, nil
}

func (uc *PurchaseUC) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := uc.Purchases.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return uc.Purchases.Delete(ctx, p)
}

func validatePurchaseAmounts(p *domain.IngredientPurchase) error {
	if !(p.Quantity > 0) {
		return domain.Invalid("quantity", "La cantidad debe ser mayor a 0")
	}
	if !(p.UnitCost > 0) {
		return domain.Invalid("unit_cost", "El costo unitario debe ser mayor a 0")
	}
	return nil
}

func trimPurchase(p *domain.IngredientPurchase) {
	p.InvoiceNumber = strings.TrimSpace(p.InvoiceNumber)
	p.SupplierName = strings.TrimSpace(p.SupplierName)
	p.Notes = strings.TrimSpace(p.Notes)
}
