package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/phenrril/costeo/internal/domain"
)

type saleJSON struct {
	domain.Sale
	Cost          float64 `json:"cost"`
	Profit        float64 `json:"profit"`
	TotalDisplay  string  `json:"total_display"`
	CostDisplay   string  `json:"cost_display"`
	ProfitDisplay string  `json:"profit_display"`
}

func newSaleJSON(s domain.Sale) saleJSON {
	cost := s.Cost()
	return saleJSON{
		Sale:          s,
		Cost:          cost,
		Profit:        s.TotalAmount - cost,
		TotalDisplay:  domain.FormatCurrency(s.TotalAmount),
		CostDisplay:   domain.FormatCurrency(cost),
		ProfitDisplay: domain.FormatCurrency(s.TotalAmount - cost),
	}
}

func newSalesJSON(list []domain.Sale) []saleJSON {
	out := make([]saleJSON, 0, len(list))
	for _, s := range list {
		out = append(out, newSaleJSON(s))
	}
	return out
}

func (s *Server) apiSaleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []domain.SaleLine `json:"items"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sale, err := s.sales.RecordSale(r.Context(), userFrom(r.Context()), req.Items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSaleJSON(*sale))
}

func (s *Server) apiSalesRecent(w http.ResponseWriter, r *http.Request) {
	list, err := s.sales.Recent(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSalesJSON(list))
}

func salesQuery(r *http.Request) (domain.SalesQuery, error) {
	q := r.URL.Query()
	var (
		sq  domain.SalesQuery
		err error
	)
	if sq.Start, err = parseDate("start", q.Get("start")); err != nil {
		return sq, err
	}
	if sq.End, err = parseDate("end", q.Get("end")); err != nil {
		return sq, err
	}
	if sq.Cursor, err = queryID(r, "cursor"); err != nil {
		return sq, err
	}
	sq.Search = strings.TrimSpace(q.Get("search"))
	if raw := q.Get("limit"); raw != "" {
		if sq.Limit, err = strconv.Atoi(raw); err != nil {
			return sq, domain.Invalid("limit", "límite inválido")
		}
	}
	return sq, nil
}

func (s *Server) apiSalesHistory(w http.ResponseWriter, r *http.Request) {
	sq, err := salesQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h, err := s.sales.History(r.Context(), sq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sales":       newSalesJSON(h.Sales),
		"has_more":    h.HasMore,
		"next_cursor": h.NextCursor,
		"total_count": h.TotalCount,
		"period_stats": map[string]any{
			"revenue":         h.PeriodStats.Revenue,
			"cost":            h.PeriodStats.Cost,
			"profit":          h.PeriodStats.Profit,
			"revenue_display": domain.FormatCurrency(h.PeriodStats.Revenue),
			"cost_display":    domain.FormatCurrency(h.PeriodStats.Cost),
			"profit_display":  domain.FormatCurrency(h.PeriodStats.Profit),
		},
	})
}

func (s *Server) apiSalesExport(w http.ResponseWriter, r *http.Request) {
	sq, err := salesQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.sales.Export(r.Context(), sq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := salesWorkbook(list)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=ventas.xlsx")
	if err := f.Write(w); err != nil {
		writeError(w, r, err)
	}
}

type fixedCostReq struct {
	Name        string   `json:"name"`
	Amount      *float64 `json:"amount"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Active      *bool    `json:"active"`
}

func (req fixedCostReq) toDomain(id uuid.UUID) (*domain.FixedCost, error) {
	if req.Amount == nil {
		return nil, domain.Invalid("", "Nombre y monto son obligatorios")
	}
	return &domain.FixedCost{
		ID:          id,
		Name:        req.Name,
		Amount:      *req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Active:      req.Active == nil || *req.Active,
	}, nil
}

func (s *Server) apiFixedCosts(w http.ResponseWriter, r *http.Request) {
	list, err := s.fixedCosts.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) apiFixedCostCreate(w http.ResponseWriter, r *http.Request) {
	var req fixedCostReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := req.toDomain(uuid.Nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.fixedCosts.Create(r.Context(), c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) apiFixedCostUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req fixedCostReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := req.toDomain(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.fixedCosts.Update(r.Context(), c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) apiFixedCostDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.fixedCosts.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "id": id})
}

func (s *Server) apiDashboard(w http.ResponseWriter, r *http.Request) {
	st, err := s.dashboard.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_revenue":             st.TotalRevenue,
		"total_cost":                st.TotalCost,
		"total_profit":              st.TotalProfit,
		"total_fixed_costs":         st.TotalFixedCosts,
		"net_result":                st.NetResult,
		"total_sales_count":         st.TotalSalesCount,
		"low_stock_count":           st.LowStockCount,
		"recent_sales":              newSalesJSON(st.RecentSales),
		"total_revenue_display":     domain.FormatCurrency(st.TotalRevenue),
		"total_cost_display":        domain.FormatCurrency(st.TotalCost),
		"total_profit_display":      domain.FormatCurrency(st.TotalProfit),
		"total_fixed_costs_display": domain.FormatCurrency(st.TotalFixedCosts),
		"net_result_display":        domain.FormatCurrency(st.NetResult),
	})
}
