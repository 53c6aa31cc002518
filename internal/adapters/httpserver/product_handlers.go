package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/phenrril/costeo/internal/domain"
)

type recipeLineReq struct {
	IngredientID *uuid.UUID `json:"ingredient_id"`
	SubProductID *uuid.UUID `json:"sub_product_id"`
	Quantity     float64    `json:"quantity"`
	Unit         string     `json:"unit"`
}

type productReq struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	BasePrice   float64         `json:"base_price"`
	ManualCost  *float64        `json:"manual_cost"`
	Active      *bool           `json:"active"`
	RecipeItems []recipeLineReq `json:"recipe_items"`
}

func (req productReq) toDomain(id uuid.UUID) *domain.Product {
	p := &domain.Product{
		ID:          id,
		Name:        req.Name,
		Type:        domain.ProductType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Category:    req.Category,
		Description: req.Description,
		BasePrice:   req.BasePrice,
		ManualCost:  req.ManualCost,
	}
	for _, l := range req.RecipeItems {
		p.RecipeItems = append(p.RecipeItems, domain.RecipeItem{
			IngredientID: l.IngredientID,
			SubProductID: l.SubProductID,
			Quantity:     l.Quantity,
			Unit:         l.Unit,
		})
	}
	return p
}

type productJSON struct {
	domain.ProductView
	BasePriceDisplay string `json:"base_price_display"`
	CostDisplay      string `json:"cost_display"`
	MarginDisplay    string `json:"margin_display"`
	MarginPctDisplay string `json:"margin_pct_display"`
}

func newProductJSON(v domain.ProductView) productJSON {
	return productJSON{
		ProductView:      v,
		BasePriceDisplay: domain.FormatCurrency(v.BasePrice),
		CostDisplay:      domain.FormatCurrency(v.Cost),
		MarginDisplay:    domain.FormatCurrency(v.Margin),
		MarginPctDisplay: fmt.Sprintf("%.2f%%", domain.RoundCurrency(v.MarginPct)),
	}
}

func (s *Server) apiProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.ProductFilter{
		Query:    q.Get("q"),
		Category: strings.TrimSpace(q.Get("category")),
		Type:     domain.ProductType(strings.ToUpper(strings.TrimSpace(q.Get("type")))),
	}
	if raw := q.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, domain.Invalid("active", "valor inválido"))
			return
		}
		f.Active = &active
	}
	list, err := s.products.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]productJSON, 0, len(list))
	for _, v := range list {
		out = append(out, newProductJSON(v))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "total": len(out)})
}

func (s *Server) apiProductCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.products.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// apiProductByID accepts either the product id or its slug.
func (s *Server) apiProductByID(w http.ResponseWriter, r *http.Request) {
	var (
		v   *domain.ProductView
		err error
	)
	key := r.PathValue("id")
	if id, perr := uuid.Parse(key); perr == nil {
		v, err = s.products.Get(r.Context(), id)
	} else {
		v, err = s.products.GetBySlug(r.Context(), key)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProductJSON(*v))
}

func (s *Server) apiProductCreate(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := req.toDomain(uuid.Nil)
	if err := s.products.Create(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	s.writeProduct(w, r, http.StatusCreated, p.ID)
}

func (s *Server) apiProductUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req productReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.products.Update(r.Context(), req.toDomain(id), req.Active); err != nil {
		writeError(w, r, err)
		return
	}
	s.writeProduct(w, r, http.StatusOK, id)
}

func (s *Server) writeProduct(w http.ResponseWriter, r *http.Request, code int, id uuid.UUID) {
	v, err := s.products.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, code, newProductJSON(*v))
}

func (s *Server) apiProductDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	deleted, err := s.products.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "id": id, "deleted": deleted, "deactivated": !deleted})
}

func (s *Server) apiProductCost(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cost, err := s.products.Cost(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"product_id":   id,
		"cost":         cost,
		"cost_display": domain.FormatCurrency(cost),
	})
}
