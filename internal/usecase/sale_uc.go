package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/costeo/internal/domain"
)

const (
	RecentSalesLimit    = 5
	SalesHistoryPerPage = 20
	salesHistoryMaxPage = 200
)

type SaleUC struct {
	Sales    domain.SaleRepo
	Products domain.ProductRepo
	Costs    *CostUC
	Notifier domain.SaleNotifier
	Now      domain.Clock
}

// RecordSale prices every line at the product's current price and snapshots
// its current cost. Any line that cannot be costed rejects the whole sale.
func (uc *SaleUC) RecordSale(ctx context.Context, userID string, lines []domain.SaleLine) (*domain.Sale, error) {
	if len(lines) == 0 {
		return nil, domain.Invalid("items", "la venta no tiene ítems")
	}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, domain.Invalid("items", "la cantidad debe ser mayor a 0")
		}
		ids = append(ids, l.ProductID)
	}
	products, err := uc.Products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	now := time.Now().UTC()
	if uc.Now != nil {
		now = uc.Now()
	}
	sale := &domain.Sale{ID: uuid.New(), UserID: userID, DateTime: now}
	costCache := map[uuid.UUID]float64{}
	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return nil, domain.ErrNotFound
		}
		unitCost, seen := costCache[p.ID]
		if !seen {
			if unitCost, err = uc.Costs.CalculateProductCost(ctx, p.ID); err != nil {
				log.Error().Err(err).Str("product_id", p.ID.String()).Msg("sale rejected: product cost")
				return nil, err
			}
			costCache[p.ID] = unitCost
		}
		sale.TotalAmount += p.BasePrice * float64(l.Quantity)
		sale.Items = append(sale.Items, domain.SaleItem{
			ID:        uuid.New(),
			SaleID:    sale.ID,
			ProductID: p.ID,
			Quantity:  l.Quantity,
			UnitPrice: p.BasePrice,
			UnitCost:  unitCost,
		})
	}

	if err := uc.Sales.Create(ctx, sale); err != nil {
		return nil, err
	}
	if uc.Notifier != nil {
		uc.Notifier.SaleRecorded(ctx, sale)
	}
	return sale, nil
}

func (uc *SaleUC) Recent(ctx context.Context) ([]domain.Sale, error) {
	return uc.Sales.Recent(ctx, RecentSalesLimit)
}

// History pages through sales newest first. Period stats cover every sale
// matching the filters, not only the returned page.
func (uc *SaleUC) History(ctx context.Context, q domain.SalesQuery) (*domain.SalesHistory, error) {
	q = normalizeSalesQuery(q)
	page, total, err := uc.Sales.History(ctx, q)
	if err != nil {
		return nil, err
	}
	all, err := uc.Sales.Matching(ctx, q)
	if err != nil {
		return nil, err
	}

	h := &domain.SalesHistory{TotalCount: total, Sales: page}
	if len(page) > q.Limit {
		h.HasMore = true
		h.Sales = page[:q.Limit]
		next := h.Sales[len(h.Sales)-1].ID
		h.NextCursor = &next
	}
	if h.Sales == nil {
		h.Sales = []domain.Sale{}
	}
	for _, s := range all {
		h.PeriodStats.Revenue += s.TotalAmount
		h.PeriodStats.Cost += s.Cost()
	}
	h.PeriodStats.Profit = h.PeriodStats.Revenue - h.PeriodStats.Cost
	return h, nil
}

// Export returns every sale matching the filters, for spreadsheets.
func (uc *SaleUC) Export(ctx context.Context, q domain.SalesQuery) ([]domain.Sale, error) {
	return uc.Sales.Matching(ctx, normalizeSalesQuery(q))
}

func normalizeSalesQuery(q domain.SalesQuery) domain.SalesQuery {
	if q.Limit <= 0 {
		q.Limit = SalesHistoryPerPage
	}
	if q.Limit > salesHistoryMaxPage {
		q.Limit = salesHistoryMaxPage
	}
	if q.End != nil {
		e := q.End.UTC()
		end := time.Date(e.Year(), e.Month(), e.Day(), 23, 59, 59, int(999*time.Millisecond), time.UTC)
		q.End = &end
	}
	if q.Start != nil {
		s := q.Start.UTC()
		q.Start = &s
	}
	return q
}
