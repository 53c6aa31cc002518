package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phenrril/costeo/internal/adapters/repo/postgres"
	"github.com/phenrril/costeo/internal/domain"
	"github.com/phenrril/costeo/internal/usecase"
)

type recordingNotifier struct {
	mu    sync.Mutex
	sales []*domain.Sale
}

func (n *recordingNotifier) SaleRecorded(_ context.Context, s *domain.Sale) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sales = append(n.sales, s)
}

// stepClock returns start, start+step, start+2*step...
func stepClock(start time.Time, step time.Duration) domain.Clock {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}

type env struct {
	ctx         context.Context
	db          *gorm.DB
	notifier    *recordingNotifier
	costs       *usecase.CostUC
	ingredients *usecase.IngredientUC
	purchases   *usecase.PurchaseUC
	stock       *usecase.StockUC
	products    *usecase.ProductUC
	sales       *usecase.SaleUC
	fixed       *usecase.FixedCostUC
	dashboard   *usecase.DashboardUC
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, postgres.AutoMigrate(db))

	org := &domain.Organization{Name: "Pizzería"}
	require.NoError(t, postgres.NewOrganizationRepo(db).Save(context.Background(), org))

	ingRepo := postgres.NewIngredientRepo(db)
	stockRepo := postgres.NewStockRepo(db)
	prodRepo := postgres.NewProductRepo(db)
	saleRepo := postgres.NewSaleRepo(db)
	fixedRepo := postgres.NewFixedCostRepo(db)

	e := &env{
		ctx:      domain.WithOrganization(context.Background(), org.ID),
		db:       db,
		notifier: &recordingNotifier{},
	}
	e.costs = &usecase.CostUC{Repo: postgres.NewCostRepo(db), Workers: 2}
	e.ingredients = &usecase.IngredientUC{Ingredients: ingRepo, Stock: stockRepo}
	e.purchases = &usecase.PurchaseUC{Purchases: postgres.NewPurchaseRepo(db), Ingredients: ingRepo}
	e.stock = &usecase.StockUC{Stock: stockRepo, Ingredients: ingRepo}
	e.products = &usecase.ProductUC{Products: prodRepo, Ingredients: ingRepo, Costs: e.costs}
	e.sales = &usecase.SaleUC{
		Sales: saleRepo, Products: prodRepo, Costs: e.costs, Notifier: e.notifier,
		Now: stepClock(time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC), time.Hour),
	}
	e.fixed = &usecase.FixedCostUC{Costs: fixedRepo}
	e.dashboard = &usecase.DashboardUC{Sales: saleRepo, FixedCosts: fixedRepo, Ingredients: ingRepo}
	return e
}

func (e *env) ingredient(t *testing.T, name string, unit domain.Unit, stock float64) *domain.Ingredient {
	t.Helper()
	ing := &domain.Ingredient{Name: name, Unit: unit, CurrentStock: stock}
	require.NoError(t, e.ingredients.Create(e.ctx, ing))
	return ing
}

func (e *env) purchase(t *testing.T, ing *domain.Ingredient, qty, unitCost float64) *domain.IngredientPurchase {
	t.Helper()
	p := &domain.IngredientPurchase{IngredientID: ing.ID, Quantity: qty, Unit: string(ing.Unit), UnitCost: unitCost}
	require.NoError(t, e.purchases.Create(e.ctx, p))
	return p
}

func (e *env) product(t *testing.T, p *domain.Product) *domain.Product {
	t.Helper()
	require.NoError(t, e.products.Create(e.ctx, p))
	return p
}

func (e *env) stockOf(t *testing.T, id uuid.UUID) float64 {
	t.Helper()
	ing, err := e.ingredients.Get(e.ctx, id)
	require.NoError(t, err)
	return ing.CurrentStock
}

// pizzeria seeds flour and cheese purchases plus dough, pizza and soda.
type pizzeria struct {
	flour, cheese      *domain.Ingredient
	dough, pizza, soda *domain.Product
}

func (e *env) pizzeria(t *testing.T) pizzeria {
	t.Helper()
	var z pizzeria
	z.flour = e.ingredient(t, "Harina", domain.UnitKilogram, 0)
	z.cheese = e.ingredient(t, "Queso", domain.UnitKilogram, 0)
	e.purchase(t, z.flour, 25, 1.5)
	e.purchase(t, z.cheese, 5, 10)

	z.dough = e.product(t, &domain.Product{
		Name: "Masa", Type: domain.ProductElaborado,
		RecipeItems: []domain.RecipeItem{{IngredientID: &z.flour.ID, Quantity: 200, Unit: "grams"}},
	})
	z.pizza = e.product(t, &domain.Product{
		Name: "Pizza", Type: domain.ProductElaborado, Category: "Pizzas", BasePrice: 5,
		RecipeItems: []domain.RecipeItem{
			{SubProductID: &z.dough.ID, Quantity: 1},
			{IngredientID: &z.cheese.ID, Quantity: 50, Unit: "g"},
		},
	})
	manual := 1.2
	z.soda = e.product(t, &domain.Product{
		Name: "Gaseosa importada", Type: domain.ProductReventa, Category: "Bebidas", BasePrice: 2.5, ManualCost: &manual,
	})
	return z
}
