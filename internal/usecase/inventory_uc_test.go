package usecase_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/costeo/internal/domain"
)

func TestIngredientUC_CreateRecordsInitialStock(t *testing.T) {
	e := newEnv(t)
	ing := e.ingredient(t, "  Aceite ", domain.Unit("ML"), 500)
	assert.Equal(t, "Aceite", ing.Name)
	assert.Equal(t, domain.UnitMilliliter, ing.Unit)
	assert.True(t, ing.Active)

	mvs, err := e.stock.List(e.ctx, &ing.ID)
	require.NoError(t, err)
	require.Len(t, mvs, 1)
	assert.Equal(t, domain.MovementAdjustment, mvs[0].Type)
	assert.Equal(t, 500.0, mvs[0].Quantity)
	assert.Equal(t, "Stock inicial", mvs[0].Reason)

	empty := e.ingredient(t, "Sal", domain.UnitKilogram, 0)
	mvs, err = e.stock.List(e.ctx, &empty.ID)
	require.NoError(t, err)
	assert.Empty(t, mvs)
}

func TestIngredientUC_Validation(t *testing.T) {
	e := newEnv(t)
	e.ingredient(t, "Harina", domain.UnitKilogram, 0)
	neg := -1.0

	assert.ErrorIs(t, e.ingredients.Create(e.ctx, &domain.Ingredient{Name: " ", Unit: domain.UnitGram}), domain.ErrInvalid)
	assert.ErrorIs(t, e.ingredients.Create(e.ctx, &domain.Ingredient{Name: "X", Unit: "cups"}), domain.ErrInvalid)
	assert.ErrorIs(t, e.ingredients.Create(e.ctx, &domain.Ingredient{Name: "X", Unit: domain.UnitGram, MinStock: &neg}), domain.ErrInvalid)
	assert.ErrorIs(t, e.ingredients.Create(e.ctx, &domain.Ingredient{Name: "X", Unit: domain.UnitGram, CurrentStock: -3}), domain.ErrInvalid)
	assert.ErrorIs(t, e.ingredients.Create(e.ctx, &domain.Ingredient{Name: "HARINA", Unit: domain.UnitGram}), domain.ErrDuplicate)
}

func TestIngredientUC_ListAndLowStock(t *testing.T) {
	e := newEnv(t)
	z := e.pizzeria(t)

	cheese, err := e.ingredients.Get(e.ctx, z.cheese.ID)
	require.NoError(t, err)
	minStock := 10.0
	cheese.MinStock = &minStock
	cheese.CurrentStock = 999
	require.NoError(t, e.ingredients.Update(e.ctx, cheese))
	assert.Equal(t, 5.0, cheese.CurrentStock)

	list, err := e.ingredients.List(e.ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Harina", list[0].Name)
	assert.Equal(t, 1.5, list[0].LastCost)
	assert.NotNil(t, list[0].LastPurchaseDate)
	assert.False(t, list[0].LowStock)
	assert.True(t, list[1].LowStock)

	low, err := e.ingredients.LowStock(e.ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, z.cheese.ID, low[0].ID)
}

func TestIngredientUC_SetStock(t *testing.T) {
	e := newEnv(t)
	ing := e.ingredient(t, "Tomate", domain.UnitKilogram, 4)

	got, err := e.ingredients.SetStock(e.ctx, ing.ID, 1.5, "")
	require.NoError(t, err)
	assert.Equal(t, 1.5, got.CurrentStock)

	got, err = e.ingredients.SetStock(e.ctx, ing.ID, 1.5, "sin cambios")
	require.NoError(t, err)
	assert.Equal(t, 1.5, got.CurrentStock)

	mvs, err := e.stock.List(e.ctx, &ing.ID)
	require.NoError(t, err)
	require.Len(t, mvs, 2)
	var adj domain.StockMovement
	for _, mv := range mvs {
		if mv.Reason != "Stock inicial" {
			adj = mv
		}
	}
	assert.Equal(t, -2.5, adj.Quantity)
	assert.Equal(t, "Ajuste manual de stock", adj.Reason)

	_, err = e.ingredients.SetStock(e.ctx, ing.ID, -1, "")
	assert.ErrorIs(t, err, domain.ErrInvalid)
	_, err = e.ingredients.SetStock(e.ctx, uuid.New(), 1, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngredientUC_Delete(t *testing.T) {
	e := newEnv(t)
	z := e.pizzeria(t)

	assert.ErrorIs(t, e.ingredients.Delete(e.ctx, z.flour.ID), domain.ErrInvalid)

	spare := e.ingredient(t, "Orégano", domain.UnitGram, 100)
	e.purchase(t, spare, 50, 0.02)
	require.NoError(t, e.ingredients.Delete(e.ctx, spare.ID))
	_, err := e.ingredients.Get(e.ctx, spare.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	purchases, err := e.purchases.List(e.ctx, &spare.ID)
	require.NoError(t, err)
	assert.Empty(t, purchases)
	mvs, err := e.stock.List(e.ctx, &spare.ID)
	require.NoError(t, err)
	assert.Empty(t, mvs)

	assert.ErrorIs(t, e.ingredients.Delete(e.ctx, uuid.New()), domain.ErrNotFound)
}

func TestPurchaseUC_StockFollowsQuantity(t *testing.T) {
	e := newEnv(t)
	ing := e.ingredient(t, "Harina", domain.UnitKilogram, 0)

	p := e.purchase(t, ing, 25, 1.5)
	assert.Equal(t, 25.0, e.stockOf(t, ing.ID))
	assert.False(t, p.PurchaseDate.IsZero())

	mvs, err := e.stock.List(e.ctx, &ing.ID)
	require.NoError(t, err)
	require.Len(t, mvs, 1)
	assert.Equal(t, domain.MovementPurchase, mvs[0].Type)
	assert.Equal(t, domain.RefPurchase, mvs[0].ReferenceType)
	require.NotNil(t, mvs[0].ReferenceID)
	assert.Equal(t, p.ID, *mvs[0].ReferenceID)
	assert.Equal(t, "Compra sin factura", mvs[0].Reason)
	assert.Equal(t, "Proveedor: N/A", mvs[0].Notes)

	upd, err := e.purchases.Update(e.ctx, &domain.IngredientPurchase{
		ID: p.ID, Quantity: 30, UnitCost: 1.4, InvoiceNumber: " A-1 ",
	})
	require.NoError(t, err)
	assert.Equal(t, "A-1", upd.InvoiceNumber)
	assert.Equal(t, 30.0, e.stockOf(t, ing.ID))

	mvs, err = e.stock.List(e.ctx, &ing.ID)
	require.NoError(t, err)
	require.Len(t, mvs, 1)
	assert.Equal(t, 30.0, mvs[0].Quantity)
	assert.Equal(t, "Compra (editada) Fact: A-1", mvs[0].Reason)

	// differences under the tolerance leave the stock alone
	_, err = e.purchases.Update(e.ctx, &domain.IngredientPurchase{ID: p.ID, Quantity: 30.0004, UnitCost: 1.4})
	require.NoError(t, err)
	assert.Equal(t, 30.0, e.stockOf(t, ing.ID))

	require.NoError(t, e.purchases.Delete(e.ctx, p.ID))
	assert.InDelta(t, 0, e.stockOf(t, ing.ID), 1e-3)
	mvs, err = e.stock.List(e.ctx, &ing.ID)
	require.NoError(t, err)
	assert.Empty(t, mvs)
}

func TestPurchaseUC_Validation(t *testing.T) {
	e := newEnv(t)
	ing := e.ingredient(t, "Harina", domain.UnitKilogram, 0)

	cases := []struct {
		name string
		p    domain.IngredientPurchase
		want error
	}{
		{"no ingredient", domain.IngredientPurchase{Quantity: 1, Unit: "kg", UnitCost: 1}, domain.ErrInvalid},
		{"no unit", domain.IngredientPurchase{IngredientID: ing.ID, Quantity: 1, UnitCost: 1}, domain.ErrInvalid},
		{"zero quantity", domain.IngredientPurchase{IngredientID: ing.ID, Unit: "kg", UnitCost: 1}, domain.ErrInvalid},
		{"zero cost", domain.IngredientPurchase{IngredientID: ing.ID, Quantity: 1, Unit: "kg"}, domain.ErrInvalid},
		{"unknown ingredient", domain.IngredientPurchase{IngredientID: uuid.New(), Quantity: 1, Unit: "kg", UnitCost: 1}, domain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.p
			assert.ErrorIs(t, e.purchases.Create(e.ctx, &p), tc.want)
		})
	}
	assert.Zero(t, e.stockOf(t, ing.ID))

	_, err := e.purchases.Update(e.ctx, &domain.IngredientPurchase{ID: uuid.New(), Quantity: 1, UnitCost: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPurchaseUC_LatestPurchaseDrivesCost(t *testing.T) {
	e := newEnv(t)
	z := e.pizzeria(t)

	_, err := e.purchases.Update(e.ctx, &domain.IngredientPurchase{
		ID: e.onlyPurchase(t, z.flour.ID).ID, Quantity: 25, UnitCost: 1.5,
		PurchaseDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, e.purchases.Create(e.ctx, &domain.IngredientPurchase{
		IngredientID: z.flour.ID, Quantity: 10, Unit: "kg", UnitCost: 2,
		PurchaseDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}))

	cost, err := e.products.Cost(e.ctx, z.dough.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.40, cost, 1e-9)
	assert.Equal(t, 35.0, e.stockOf(t, z.flour.ID))
}

func (e *env) onlyPurchase(t *testing.T, ingredientID uuid.UUID) domain.IngredientPurchase {
	t.Helper()
	list, err := e.purchases.List(e.ctx, &ingredientID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0]
}

func TestStockUC_RecordAndDelete(t *testing.T) {
	e := newEnv(t)
	ing := e.ingredient(t, "Harina", domain.UnitKilogram, 0)
	p := e.purchase(t, ing, 25, 1.5)

	err := e.stock.Record(e.ctx, &domain.StockMovement{IngredientID: ing.ID, Type: domain.MovementWithdrawal, Quantity: 100})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 25.0, e.stockOf(t, ing.ID))

	out := &domain.StockMovement{IngredientID: ing.ID, Type: domain.MovementWithdrawal, Quantity: 5}
	require.NoError(t, e.stock.Record(e.ctx, out))
	assert.Equal(t, -5.0, out.Quantity)
	assert.Equal(t, "kg", out.Unit)
	assert.Equal(t, "Movimiento tipo RETIRO", out.Reason)
	assert.Equal(t, 20.0, e.stockOf(t, ing.ID))

	back := &domain.StockMovement{IngredientID: ing.ID, Type: domain.MovementReturn, Quantity: 2, Reason: "devolución proveedor"}
	require.NoError(t, e.stock.Record(e.ctx, back))
	assert.Equal(t, 22.0, e.stockOf(t, ing.ID))

	require.NoError(t, e.stock.Delete(e.ctx, out.ID))
	assert.Equal(t, 27.0, e.stockOf(t, ing.ID))

	mvs, err := e.stock.List(e.ctx, &ing.ID)
	require.NoError(t, err)
	for _, mv := range mvs {
		if mv.ReferenceID != nil && *mv.ReferenceID == p.ID {
			assert.ErrorIs(t, e.stock.Delete(e.ctx, mv.ID), domain.ErrInvalid)
		}
	}

	assert.ErrorIs(t, e.stock.Record(e.ctx, &domain.StockMovement{IngredientID: ing.ID, Type: "ROBO", Quantity: 1}), domain.ErrInvalid)
	assert.ErrorIs(t, e.stock.Record(e.ctx, &domain.StockMovement{IngredientID: ing.ID, Type: domain.MovementAdjustment}), domain.ErrInvalid)
	assert.ErrorIs(t, e.stock.Delete(e.ctx, uuid.New()), domain.ErrNotFound)
}
