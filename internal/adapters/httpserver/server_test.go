package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phenrril/costeo/internal/adapters/realtime"
	"github.com/phenrril/costeo/internal/adapters/repo/postgres"
	"github.com/phenrril/costeo/internal/domain"
	"github.com/phenrril/costeo/internal/usecase"
)

const testSecret = "test-secret"

type api struct {
	t       *testing.T
	handler http.Handler
	db      *gorm.DB
	orgs    *postgres.OrganizationRepo
	auth    *Auth
	token   string
}

func newAPI(t *testing.T) *api {
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

	ingRepo := postgres.NewIngredientRepo(db)
	stockRepo := postgres.NewStockRepo(db)
	prodRepo := postgres.NewProductRepo(db)
	saleRepo := postgres.NewSaleRepo(db)
	fixedRepo := postgres.NewFixedCostRepo(db)
	costs := &usecase.CostUC{Repo: postgres.NewCostRepo(db), Workers: 2}

	a := &api{t: t, db: db, orgs: postgres.NewOrganizationRepo(db), auth: NewAuth(testSecret)}
	a.handler = New(Deps{
		Ingredients:   &usecase.IngredientUC{Ingredients: ingRepo, Stock: stockRepo},
		Purchases:     &usecase.PurchaseUC{Purchases: postgres.NewPurchaseRepo(db), Ingredients: ingRepo},
		Stock:         &usecase.StockUC{Stock: stockRepo, Ingredients: ingRepo},
		Products:      &usecase.ProductUC{Products: prodRepo, Ingredients: ingRepo, Costs: costs},
		Sales:         &usecase.SaleUC{Sales: saleRepo, Products: prodRepo, Costs: costs},
		FixedCosts:    &usecase.FixedCostUC{Costs: fixedRepo},
		Dashboard:     &usecase.DashboardUC{Sales: saleRepo, FixedCosts: fixedRepo, Ingredients: ingRepo},
		Organizations: a.orgs,
		Hub:           realtime.NewHub(),
		Auth:          a.auth,
	})
	a.token = a.newOrgToken("Pizzería")
	return a
}

func (a *api) newOrgToken(name string) string {
	org := &domain.Organization{Name: name}
	require.NoError(a.t, a.orgs.Save(context.Background(), org))
	tok, err := a.auth.IssueToken(org.ID, "ana", time.Hour)
	require.NoError(a.t, err)
	return tok
}

func (a *api) do(method, path string, body any) *httptest.ResponseRecorder {
	return a.doAs(a.token, method, path, body)
}

func (a *api) doAs(token, method, path string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type idBody struct {
	ID uuid.UUID `json:"id"`
}

// seed creates flour with a purchase plus dough and pizza; it returns their ids.
func (a *api) seed() (flour, dough, pizza uuid.UUID) {
	rec := a.do(http.MethodPost, "/api/ingredients", map[string]any{"name": "Harina", "unit": "kg"})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	flour = decodeBody[idBody](a.t, rec).ID

	rec = a.do(http.MethodPost, "/api/purchases", map[string]any{
		"ingredient_id": flour, "quantity": 25, "unit": "kg", "unit_cost": 1.5, "purchase_date": "2024-06-01",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/products", map[string]any{
		"name": "Masa", "type": "elaborado",
		"recipe_items": []map[string]any{{"ingredient_id": flour, "quantity": 200, "unit": "grams"}},
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	dough = decodeBody[idBody](a.t, rec).ID

	rec = a.do(http.MethodPost, "/api/products", map[string]any{
		"name": "Pizza", "base_price": 5, "category": "Pizzas",
		"recipe_items": []map[string]any{{"sub_product_id": dough, "quantity": 2}},
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	pizza = decodeBody[idBody](a.t, rec).ID
	return flour, dough, pizza
}

func TestTenant_RequiresToken(t *testing.T) {
	a := newAPI(t)

	rec := a.doAs("", http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = a.doAs("", http.MethodGet, "/api/ingredients", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.doAs("not-a-jwt", http.MethodGet, "/api/ingredients", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := NewAuth("other-secret").IssueToken(uuid.New(), "x", time.Hour)
	require.NoError(t, err)
	rec = a.doAs(other, http.MethodGet, "/api/ingredients", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodGet, "/api/organization", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Pizzería")
}

func TestOrganization_Rename(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPut, "/api/organization", map[string]any{"name": " P "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name", decodeBody[errorBody](t, rec).Field)

	rec = a.do(http.MethodPut, "/api/organization", map[string]any{"name": "  Pizzería Don Luis "})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Pizzería Don Luis", decodeBody[map[string]any](t, rec)["name"])

	rec = a.do(http.MethodGet, "/api/organization", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pizzería Don Luis", decodeBody[map[string]any](t, rec)["name"])
}

func TestTenant_DataIsIsolated(t *testing.T) {
	a := newAPI(t)
	a.seed()

	other := a.newOrgToken("Heladería")
	rec := a.doAs(other, http.MethodGet, "/api/ingredients", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]map[string]any](t, rec))

	rec = a.doAs(other, http.MethodGet, "/api/products/pizza", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProducts_CostsAndErrors(t *testing.T) {
	a := newAPI(t)
	flour, dough, pizza := a.seed()

	rec := a.do(http.MethodGet, "/api/products/pizza", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[map[string]any](t, rec)
	assert.Equal(t, pizza.String(), got["id"])
	assert.InDelta(t, 0.6, got["cost"], 1e-9)
	assert.Equal(t, "$0.60", got["cost_display"])
	assert.Equal(t, "88.00%", got["margin_pct_display"])

	rec = a.do(http.MethodGet, "/api/products/"+dough.String()+"/cost", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 0.3, decodeBody[map[string]any](t, rec)["cost"], 1e-9)

	rec = a.do(http.MethodGet, "/api/products?category=Pizzas", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody[map[string]any](t, rec)["total"])

	rec = a.do(http.MethodPut, "/api/products/"+dough.String(), map[string]any{
		"name": "Masa", "type": "ELABORADO",
		"recipe_items": []map[string]any{
			{"ingredient_id": flour, "quantity": 200, "unit": "g"},
			{"sub_product_id": pizza, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody[errorBody](t, rec)
	assert.Equal(t, "invalid recipe configuration", body.Error)
	assert.Equal(t, []uuid.UUID{dough, pizza, dough}, body.Chain)

	rec = a.do(http.MethodPost, "/api/products", map[string]any{"name": "pizza"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Ya existe un producto con este nombre", decodeBody[errorBody](t, rec).Error)

	rec = a.do(http.MethodPost, "/api/products", map[string]any{"name": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name", decodeBody[errorBody](t, rec).Field)

	rec = a.do(http.MethodPut, "/api/products/nope", map[string]any{"name": "X"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "id", decodeBody[errorBody](t, rec).Field)

	rec = a.do(http.MethodGet, "/api/products/"+uuid.NewString()+"/cost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodDelete, "/api/products/"+dough.String(), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStock_InsufficientWithdrawal(t *testing.T) {
	a := newAPI(t)
	flour, _, _ := a.seed()

	rec := a.do(http.MethodPost, "/api/stock-movements", map[string]any{
		"ingredient_id": flour, "type": "RETIRO", "quantity": 30,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Stock insuficiente", decodeBody[errorBody](t, rec).Error)

	rec = a.do(http.MethodPut, "/api/ingredients/"+flour.String()+"/stock", map[string]any{"stock": 40})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 40, decodeBody[map[string]any](t, rec)["current_stock"])

	rec = a.do(http.MethodPut, "/api/ingredients/"+flour.String()+"/stock", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSales_RecordHistoryAndExport(t *testing.T) {
	a := newAPI(t)
	_, _, pizza := a.seed()

	rec := a.do(http.MethodPost, "/api/sales", map[string]any{
		"items": []map[string]any{{"product_id": pizza, "quantity": 3}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sale := decodeBody[map[string]any](t, rec)
	assert.EqualValues(t, 15, sale["total_amount"])
	assert.Equal(t, "$13.20", sale["profit_display"])
	assert.Equal(t, "ana", sale["user_id"])

	rec = a.do(http.MethodPost, "/api/sales", map[string]any{"items": []map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/api/sales/history?limit=10&search=piz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	h := decodeBody[map[string]any](t, rec)
	assert.EqualValues(t, 1, h["total_count"])
	assert.Equal(t, false, h["has_more"])
	stats := h["period_stats"].(map[string]any)
	assert.Equal(t, "$15.00", stats["revenue_display"])

	rec = a.do(http.MethodGet, "/api/sales/history?start=junio", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "start", decodeBody[errorBody](t, rec).Field)

	rec = a.do(http.MethodGet, "/api/sales/history/export.xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/vnd.openxmlformats"))
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Ventas")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Pizza", rows[1][2])

	rec = a.do(http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decodeBody[map[string]any](t, rec)["total_sales_count"])
}

func TestSales_CircularRecipeIs422(t *testing.T) {
	a := newAPI(t)
	_, dough, pizza := a.seed()
	require.NoError(t, a.db.Create(&domain.RecipeItem{
		ID: uuid.New(), ProductID: dough, SubProductID: &pizza, Quantity: 1, Unit: "unit",
	}).Error)

	rec := a.do(http.MethodPost, "/api/sales", map[string]any{
		"items": []map[string]any{{"product_id": pizza, "quantity": 1}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	body := decodeBody[errorBody](t, rec)
	assert.Equal(t, "invalid recipe configuration", body.Error)
	assert.Equal(t, []uuid.UUID{pizza, dough, pizza}, body.Chain)

	rec = a.do(http.MethodGet, "/api/sales/recent", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]map[string]any](t, rec))
}

func TestFixedCosts_AmountRequired(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/fixed-costs", map[string]any{"name": "Luz"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/fixed-costs", map[string]any{"name": "Luz", "amount": 30})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decodeBody[idBody](t, rec).ID

	rec = a.do(http.MethodDelete, "/api/fixed-costs/"+id.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(http.MethodDelete, "/api/fixed-costs/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecovery_TurnsPanicsInto500(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }), RequestID, Recovery, Logging)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", decodeBody[errorBody](t, rec).Error)
}

func TestAuth_RoundTrip(t *testing.T) {
	auth := NewAuth(testSecret)
	org := uuid.New()
	tok, err := auth.IssueToken(org, "ana", time.Minute)
	require.NoError(t, err)

	gotOrg, user, err := auth.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, org, gotOrg)
	assert.Equal(t, "ana", user)

	expired, err := auth.IssueToken(org, "ana", -time.Minute)
	require.NoError(t, err)
	_, _, err = auth.Parse(expired)
	assert.Error(t, err)

	noOrg, err := auth.IssueToken(uuid.Nil, "ana", time.Minute)
	require.NoError(t, err)
	_, _, err = auth.Parse(noOrg)
	assert.Error(t, err)
}
