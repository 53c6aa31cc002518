package usecase

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/phenrril/costeo/internal/domain"
)

type FixedCostUC struct {
	Costs domain.FixedCostRepo
}

func (uc *FixedCostUC) List(ctx context.Context) ([]domain.FixedCost, error) {
	return uc.Costs.ListActive(ctx)
}

func (uc *FixedCostUC) Create(ctx context.Context, c *domain.FixedCost) error {
	if err := validateFixedCost(c); err != nil {
		return err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Active = true
	return uc.Costs.Save(ctx, c)
}

func (uc *FixedCostUC) Update(ctx context.Context, c *domain.FixedCost) error {
	if c.ID == uuid.Nil {
		return domain.Invalid("id", "ID, nombre y monto son obligatorios")
	}
	if err := validateFixedCost(c); err != nil {
		return err
	}
	cur, err := uc.Costs.FindByID(ctx, c.ID)
	if err != nil {
		return err
	}
	c.OrganizationID = cur.OrganizationID
	c.CreatedAt = cur.CreatedAt
	return uc.Costs.Save(ctx, c)
}

func (uc *FixedCostUC) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := uc.Costs.FindByID(ctx, id); err != nil {
		return err
	}
	return uc.Costs.Delete(ctx, id)
}

func validateFixedCost(c *domain.FixedCost) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Category = strings.TrimSpace(c.Category)
	c.Description = strings.TrimSpace(c.Description)
	if c.Name == "" || math.IsNaN(c.Amount) || math.IsInf(c.Amount, 0) {
		return domain.Invalid("", "Nombre y monto son obligatorios")
	}
	return nil
}
