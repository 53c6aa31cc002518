package httpserver

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/phenrril/costeo/internal/domain"
)

type ingredientReq struct {
	Name         string   `json:"name"`
	Unit         string   `json:"unit"`
	CurrentStock float64  `json:"current_stock"`
	MinStock     *float64 `json:"min_stock"`
	Description  string   `json:"description"`
	Active       *bool    `json:"active"`
}

func (req ingredientReq) toDomain(id uuid.UUID) *domain.Ingredient {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return &domain.Ingredient{
		ID:           id,
		Name:         req.Name,
		Unit:         domain.Unit(req.Unit),
		CurrentStock: req.CurrentStock,
		MinStock:     req.MinStock,
		Description:  req.Description,
		Active:       active,
	}
}

func (s *Server) apiIngredients(w http.ResponseWriter, r *http.Request) {
	list, err := s.ingredients.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) apiIngredientsLowStock(w http.ResponseWriter, r *http.Request) {
	list, err := s.ingredients.LowStock(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) apiIngredientByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ing, err := s.ingredients.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ing)
}

func (s *Server) apiIngredientCreate(w http.ResponseWriter, r *http.Request) {
	var req ingredientReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ing := req.toDomain(uuid.Nil)
	if err := s.ingredients.Create(r.Context(), ing); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ing)
}

func (s *Server) apiIngredientUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req ingredientReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ing := req.toDomain(id)
	if err := s.ingredients.Update(r.Context(), ing); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ing)
}

func (s *Server) apiIngredientSetStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Stock  *float64 `json:"stock"`
		Reason string   `json:"reason"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Stock == nil {
		writeError(w, r, domain.Invalid("stock", "El stock debe ser un número válido"))
		return
	}
	ing, err := s.ingredients.SetStock(r.Context(), id, *req.Stock, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ing)
}

func (s *Server) apiIngredientDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.ingredients.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "id": id})
}

type purchaseReq struct {
	IngredientID  uuid.UUID `json:"ingredient_id"`
	Quantity      float64   `json:"quantity"`
	Unit          string    `json:"unit"`
	UnitCost      float64   `json:"unit_cost"`
	PurchaseDate  string    `json:"purchase_date"`
	InvoiceNumber string    `json:"invoice_number"`
	SupplierName  string    `json:"supplier_name"`
	Notes         string    `json:"notes"`
}

func (req purchaseReq) toDomain(id uuid.UUID) (*domain.IngredientPurchase, error) {
	at, err := parseDate("purchase_date", req.PurchaseDate)
	if err != nil {
		return nil, err
	}
	p := &domain.IngredientPurchase{
		ID:            id,
		IngredientID:  req.IngredientID,
		Quantity:      req.Quantity,
		Unit:          req.Unit,
		UnitCost:      req.UnitCost,
		InvoiceNumber: req.InvoiceNumber,
		SupplierName:  req.SupplierName,
		Notes:         req.Notes,
	}
	if at != nil {
		p.PurchaseDate = *at
	}
	return p, nil
}

type purchaseJSON struct {
	domain.IngredientPurchase
	Total        float64 `json:"total"`
	TotalDisplay string  `json:"total_display"`
}

func newPurchaseJSON(p domain.IngredientPurchase) purchaseJSON {
	return purchaseJSON{IngredientPurchase: p, Total: p.Total(), TotalDisplay: domain.FormatCurrency(p.Total())}
}

func (s *Server) apiPurchases(w http.ResponseWriter, r *http.Request) {
	ingID, err := queryID(r, "ingredient_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.purchases.List(r.Context(), ingID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]purchaseJSON, 0, len(list))
	for _, p := range list {
		out = append(out, newPurchaseJSON(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) apiPurchaseCreate(w http.ResponseWriter, r *http.Request) {
	var req purchaseReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := req.toDomain(uuid.Nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.purchases.Create(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPurchaseJSON(*p))
}

func (s *Server) apiPurchaseUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req purchaseReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.toDomain(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.purchases.Update(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPurchaseJSON(*p))
}

func (s *Server) apiPurchaseDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.purchases.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "id": id})
}

func (s *Server) apiStockMovements(w http.ResponseWriter, r *http.Request) {
	ingID, err := queryID(r, "ingredient_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.stock.List(r.Context(), ingID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) apiStockMovementCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IngredientID uuid.UUID `json:"ingredient_id"`
		Type         string    `json:"type"`
		Quantity     float64   `json:"quantity"`
		Unit         string    `json:"unit"`
		Reason       string    `json:"reason"`
		Notes        string    `json:"notes"`
		MovementDate string    `json:"movement_date"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	at, err := parseDate("movement_date", req.MovementDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	mv := &domain.StockMovement{
		IngredientID: req.IngredientID,
		Type:         domain.MovementType(req.Type),
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		Reason:       req.Reason,
		Notes:        req.Notes,
	}
	if at != nil {
		mv.MovementDate = *at
	}
	if err := s.stock.Record(r.Context(), mv); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mv)
}

func (s *Server) apiStockMovementDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.stock.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "id": id})
}
