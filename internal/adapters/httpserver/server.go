package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/costeo/internal/adapters/realtime"
	"github.com/phenrril/costeo/internal/domain"
	"github.com/phenrril/costeo/internal/usecase"
)

type Server struct {
	mux         *http.ServeMux
	ingredients *usecase.IngredientUC
	purchases   *usecase.PurchaseUC
	stock       *usecase.StockUC
	products    *usecase.ProductUC
	sales       *usecase.SaleUC
	fixedCosts  *usecase.FixedCostUC
	dashboard   *usecase.DashboardUC
	orgs        domain.OrganizationRepo
	hub         *realtime.Hub
}

type Deps struct {
	Ingredients   *usecase.IngredientUC
	Purchases     *usecase.PurchaseUC
	Stock         *usecase.StockUC
	Products      *usecase.ProductUC
	Sales         *usecase.SaleUC
	FixedCosts    *usecase.FixedCostUC
	Dashboard     *usecase.DashboardUC
	Organizations domain.OrganizationRepo
	Hub           *realtime.Hub
	Auth          *Auth
}

func New(d Deps) http.Handler {
	s := &Server{
		mux:         http.NewServeMux(),
		ingredients: d.Ingredients,
		purchases:   d.Purchases,
		stock:       d.Stock,
		products:    d.Products,
		sales:       d.Sales,
		fixedCosts:  d.FixedCosts,
		dashboard:   d.Dashboard,
		orgs:        d.Organizations,
		hub:         d.Hub,
	}
	s.routes()
	return Chain(s.mux,
		Tenant(d.Auth, "/healthz"),
		RequestID,
		Recovery,
		Logging,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/organization", s.apiOrganization)
	s.mux.HandleFunc("PUT /api/organization", s.apiOrganizationUpdate)

	s.mux.HandleFunc("GET /api/ingredients", s.apiIngredients)
	s.mux.HandleFunc("POST /api/ingredients", s.apiIngredientCreate)
	s.mux.HandleFunc("GET /api/ingredients/low-stock", s.apiIngredientsLowStock)
	s.mux.HandleFunc("GET /api/ingredients/{id}", s.apiIngredientByID)
	s.mux.HandleFunc("PUT /api/ingredients/{id}", s.apiIngredientUpdate)
	s.mux.HandleFunc("DELETE /api/ingredients/{id}", s.apiIngredientDelete)
	s.mux.HandleFunc("PUT /api/ingredients/{id}/stock", s.apiIngredientSetStock)

	s.mux.HandleFunc("GET /api/purchases", s.apiPurchases)
	s.mux.HandleFunc("POST /api/purchases", s.apiPurchaseCreate)
	s.mux.HandleFunc("PUT /api/purchases/{id}", s.apiPurchaseUpdate)
	s.mux.HandleFunc("DELETE /api/purchases/{id}", s.apiPurchaseDelete)

	s.mux.HandleFunc("GET /api/stock-movements", s.apiStockMovements)
	s.mux.HandleFunc("POST /api/stock-movements", s.apiStockMovementCreate)
	s.mux.HandleFunc("DELETE /api/stock-movements/{id}", s.apiStockMovementDelete)

	s.mux.HandleFunc("GET /api/products", s.apiProducts)
	s.mux.HandleFunc("POST /api/products", s.apiProductCreate)
	s.mux.HandleFunc("GET /api/products/categories", s.apiProductCategories)
	s.mux.HandleFunc("GET /api/products/{id}", s.apiProductByID)
	s.mux.HandleFunc("PUT /api/products/{id}", s.apiProductUpdate)
	s.mux.HandleFunc("DELETE /api/products/{id}", s.apiProductDelete)
	s.mux.HandleFunc("GET /api/products/{id}/cost", s.apiProductCost)

	s.mux.HandleFunc("POST /api/sales", s.apiSaleCreate)
	s.mux.HandleFunc("GET /api/sales/recent", s.apiSalesRecent)
	s.mux.HandleFunc("GET /api/sales/history", s.apiSalesHistory)
	s.mux.HandleFunc("GET /api/sales/history/export.xlsx", s.apiSalesExport)

	s.mux.HandleFunc("GET /api/fixed-costs", s.apiFixedCosts)
	s.mux.HandleFunc("POST /api/fixed-costs", s.apiFixedCostCreate)
	s.mux.HandleFunc("PUT /api/fixed-costs/{id}", s.apiFixedCostUpdate)
	s.mux.HandleFunc("DELETE /api/fixed-costs/{id}", s.apiFixedCostDelete)

	s.mux.HandleFunc("GET /api/dashboard", s.apiDashboard)
	s.mux.HandleFunc("GET /ws", s.handleWS)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) apiOrganization(w http.ResponseWriter, r *http.Request) {
	org, _ := domain.OrganizationFrom(r.Context())
	o, err := s.orgs.FindByID(r.Context(), org)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// apiOrganizationUpdate renames the caller's organization.
func (s *Server) apiOrganizationUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if utf8.RuneCountInString(name) < 2 {
		writeError(w, r, domain.Invalid("name", "El nombre debe tener al menos 2 caracteres"))
		return
	}
	org, _ := domain.OrganizationFrom(r.Context())
	o, err := s.orgs.FindByID(r.Context(), org)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o.Name = name
	if err := s.orgs.Save(r.Context(), o); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	org, ok := domain.OrganizationFrom(r.Context())
	if !ok {
		writeError(w, r, domain.ErrNoTenant)
		return
	}
	s.hub.ServeWS(w, r, org)
}

type errorBody struct {
	Error string      `json:"error"`
	Field string      `json:"field,omitempty"`
	Chain []uuid.UUID `json:"chain,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes. Anything unknown is logged
// and reported as a 500 without details.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		cyc *domain.CircularRecipeError
		ve  *domain.ValidationError
	)
	switch {
	case errors.As(err, &cyc):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid recipe configuration", Chain: cyc.Chain})
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Msg, Field: ve.Field})
	case errors.Is(err, domain.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrInsufficientStock):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Stock insuficiente"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, domain.ErrDuplicate):
		writeJSON(w, http.StatusConflict, errorBody{Error: strings.TrimPrefix(err.Error(), domain.ErrDuplicate.Error()+": ")})
	case errors.Is(err, domain.ErrNoTenant):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Str("request_id", requestIDFrom(r.Context())).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.Invalid("", "json inválido")
	}
	return nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, domain.Invalid("id", "id inválido")
	}
	return id, nil
}

func queryID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.Invalid(key, "id inválido")
	}
	return &id, nil
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates (UTC).
func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return nil, domain.Invalid(field, "fecha inválida")
	}
	return &t, nil
}
