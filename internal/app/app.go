package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phenrril/costeo/internal/adapters/httpserver"
	"github.com/phenrril/costeo/internal/adapters/realtime"
	repo "github.com/phenrril/costeo/internal/adapters/repo/postgres"
	"github.com/phenrril/costeo/internal/config"
	"github.com/phenrril/costeo/internal/domain"
	"github.com/phenrril/costeo/internal/usecase"
)

type App struct {
	Cfg  config.Config
	DB   *gorm.DB
	Hub  *realtime.Hub
	Auth *httpserver.Auth
	Orgs *repo.OrganizationRepo

	CostUC       *usecase.CostUC
	IngredientUC *usecase.IngredientUC
	PurchaseUC   *usecase.PurchaseUC
	StockUC      *usecase.StockUC
	ProductUC    *usecase.ProductUC
	SaleUC       *usecase.SaleUC
	FixedCostUC  *usecase.FixedCostUC
	DashboardUC  *usecase.DashboardUC
}

// OpenDB connects to postgres, or to a sqlite file when DB_DRIVER=sqlite.
func OpenDB(cfg config.Config) (*gorm.DB, error) {
	level := logger.Silent
	if cfg.LogLevel == "debug" {
		level = logger.Info
	}
	gcfg := &gorm.Config{
		Logger:  logger.Default.LogMode(level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
	switch cfg.DBDriver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DSN), gcfg)
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.DBPath), gcfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// one writer; keeps transactions from tripping over SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	}
	return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
}

func NewApp(db *gorm.DB, cfg config.Config) (*App, error) {
	if db == nil {
		return nil, fmt.Errorf("nil db")
	}
	if cfg.UsingDevSecret() && cfg.IsProduction() {
		return nil, errors.New("JWT_SECRET (or SECRET_KEY) must be set in production")
	}
	ingRepo := repo.NewIngredientRepo(db)
	purRepo := repo.NewPurchaseRepo(db)
	stockRepo := repo.NewStockRepo(db)
	prodRepo := repo.NewProductRepo(db)
	saleRepo := repo.NewSaleRepo(db)
	fixedRepo := repo.NewFixedCostRepo(db)

	a := &App{
		Cfg:  cfg,
		DB:   db,
		Hub:  realtime.NewHub(),
		Auth: httpserver.NewAuth(cfg.JWTSecret),
		Orgs: repo.NewOrganizationRepo(db),
	}
	a.CostUC = &usecase.CostUC{Repo: repo.NewCostRepo(db), Workers: cfg.CostWorkers}
	a.IngredientUC = &usecase.IngredientUC{Ingredients: ingRepo, Stock: stockRepo}
	a.PurchaseUC = &usecase.PurchaseUC{Purchases: purRepo, Ingredients: ingRepo}
	a.StockUC = &usecase.StockUC{Stock: stockRepo, Ingredients: ingRepo}
	a.ProductUC = &usecase.ProductUC{Products: prodRepo, Ingredients: ingRepo, Costs: a.CostUC}
	a.SaleUC = &usecase.SaleUC{Sales: saleRepo, Products: prodRepo, Costs: a.CostUC, Notifier: a.Hub}
	a.FixedCostUC = &usecase.FixedCostUC{Costs: fixedRepo}
	a.DashboardUC = &usecase.DashboardUC{Sales: saleRepo, FixedCosts: fixedRepo, Ingredients: ingRepo}

	if cfg.UsingDevSecret() {
		log.Warn().Msg("JWT_SECRET not set; using the development secret")
	}
	return a, nil
}

// Start runs background workers until ctx is done.
func (a *App) Start(ctx context.Context) {
	go a.Hub.Run(ctx)
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(httpserver.Deps{
		Ingredients:   a.IngredientUC,
		Purchases:     a.PurchaseUC,
		Stock:         a.StockUC,
		Products:      a.ProductUC,
		Sales:         a.SaleUC,
		FixedCosts:    a.FixedCostUC,
		Dashboard:     a.DashboardUC,
		Organizations: a.Orgs,
		Hub:           a.Hub,
		Auth:          a.Auth,
	})
}

func (a *App) MigrateAndSeed(ctx context.Context) error {
	if err := repo.AutoMigrate(a.DB); err != nil {
		return err
	}

	if a.DB.Dialector.Name() == "postgres" {
		_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_sales_org_date ON sales (organization_id, date_time DESC, id DESC)").Error
		_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_purchases_ingredient_date ON ingredient_purchases (ingredient_id, purchase_date DESC)").Error
		_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_products_org_active ON products (organization_id, active)").Error
		_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_ingredients_low_stock ON ingredients (organization_id) WHERE min_stock IS NOT NULL").Error
	}

	if err := backfillSlugs(a.DB); err != nil {
		return err
	}
	if !a.Cfg.SeedDemo {
		return nil
	}
	var orgs int64
	if err := a.DB.Model(&domain.Organization{}).Count(&orgs).Error; err != nil {
		return err
	}
	if orgs > 0 {
		return nil
	}
	return a.seedDemo(ctx)
}

// backfillSlugs gives products stored without a slug a unique one within
// their organization.
func backfillSlugs(db *gorm.DB) error {
	var products []domain.Product
	if err := db.Where("slug IS NULL OR slug = ''").Find(&products).Error; err != nil {
		return err
	}
	for _, p := range products {
		base := usecase.Slugify(p.Name)
		if base == "" {
			base = p.ID.String()[:8]
		}
		slug := base
		for i := 2; ; i++ {
			var count int64
			if err := db.Model(&domain.Product{}).
				Where("organization_id = ? AND slug = ?", p.OrganizationID, slug).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				break
			}
			slug = fmt.Sprintf("%s-%d", base, i)
		}
		if err := db.Model(&domain.Product{}).Where("id = ?", p.ID).Update("slug", slug).Error; err != nil {
			return err
		}
	}
	return nil
}

// seedDemo creates a demo organization with a small pizzeria catalog.
func (a *App) seedDemo(ctx context.Context) error {
	org := &domain.Organization{Name: "Demo"}
	if err := a.Orgs.Save(ctx, org); err != nil {
		return err
	}
	ctx = domain.WithOrganization(ctx, org.ID)
	now := time.Now().UTC()

	flour := &domain.Ingredient{Name: "Harina", Unit: domain.UnitKilogram}
	cheese := &domain.Ingredient{Name: "Queso", Unit: domain.UnitKilogram}
	for _, ing := range []*domain.Ingredient{flour, cheese} {
		if err := a.IngredientUC.Create(ctx, ing); err != nil {
			return err
		}
	}
	for _, p := range []*domain.IngredientPurchase{
		{IngredientID: flour.ID, Quantity: 25, Unit: "kg", UnitCost: 1.5, PurchaseDate: now, SupplierName: "Molino"},
		{IngredientID: cheese.ID, Quantity: 5, Unit: "kg", UnitCost: 10, PurchaseDate: now},
	} {
		if err := a.PurchaseUC.Create(ctx, p); err != nil {
			return err
		}
	}

	dough := &domain.Product{
		Name: "Masa", Type: domain.ProductElaborado, Category: "Preparaciones",
		RecipeItems: []domain.RecipeItem{{IngredientID: &flour.ID, Quantity: 200, Unit: "g"}},
	}
	if err := a.ProductUC.Create(ctx, dough); err != nil {
		return err
	}
	pizza := &domain.Product{
		Name: "Pizza", Type: domain.ProductElaborado, Category: "Pizzas", BasePrice: 5,
		RecipeItems: []domain.RecipeItem{
			{SubProductID: &dough.ID, Quantity: 1},
			{IngredientID: &cheese.ID, Quantity: 50, Unit: "g"},
		},
	}
	if err := a.ProductUC.Create(ctx, pizza); err != nil {
		return err
	}
	manual := 1.2
	soda := &domain.Product{Name: "Gaseosa importada", Type: domain.ProductReventa, Category: "Bebidas", BasePrice: 2.5, ManualCost: &manual}
	if err := a.ProductUC.Create(ctx, soda); err != nil {
		return err
	}

	ev := log.Info().Str("org", org.ID.String())
	if !a.Cfg.IsProduction() {
		if tok, err := a.Auth.IssueToken(org.ID, "demo", 30*24*time.Hour); err == nil {
			ev = ev.Str("token", tok)
		}
	}
	ev.Msg("demo organization seeded")
	return nil
}

// Token issues a bearer token for org; used by tooling and tests.
func (a *App) Token(org uuid.UUID, user string) (string, error) {
	return a.Auth.IssueToken(org, user, 24*time.Hour)
}
