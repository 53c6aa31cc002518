package usecase

import (
	"context"

	"github.com/phenrril/costeo/internal/domain"
)

type DashboardUC struct {
	Sales       domain.SaleRepo
	FixedCosts  domain.FixedCostRepo
	Ingredients domain.IngredientRepo
}

func (uc *DashboardUC) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	revenue, cost, count, err := uc.Sales.Totals(ctx)
	if err != nil {
		return nil, err
	}
	fixed, err := uc.FixedCosts.SumActive(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := uc.Sales.Recent(ctx, RecentSalesLimit)
	if err != nil {
		return nil, err
	}
	low, err := uc.Ingredients.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	st := &domain.DashboardStats{
		TotalRevenue:    revenue,
		TotalCost:       cost,
		TotalProfit:     revenue - cost,
		TotalFixedCosts: fixed,
		TotalSalesCount: count,
		LowStockCount:   len(low),
		RecentSales:     recent,
	}
	st.NetResult = st.TotalProfit - st.TotalFixedCosts
	return st, nil
}
