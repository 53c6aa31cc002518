package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/costeo/internal/domain"
)

type FixedCostRepo struct{ db *gorm.DB }

func NewFixedCostRepo(db *gorm.DB) *FixedCostRepo { return &FixedCostRepo{db: db} }

func (r *FixedCostRepo) ListActive(ctx context.Context) ([]domain.FixedCost, error) {
	q, _, err := scoped(ctx, r.db, &domain.FixedCost{}, "fixed_costs")
	if err != nil {
		return nil, err
	}
	var list []domain.FixedCost
	if err := q.Where("active = ?", true).Order("name asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *FixedCostRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.FixedCost, error) {
	q, _, err := scoped(ctx, r.db, &domain.FixedCost{}, "fixed_costs")
	if err != nil {
		return nil, err
	}
	var c domain.FixedCost
	if err := q.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, notFound(err, "fixed cost")
	}
	return &c, nil
}

func (r *FixedCostRepo) Save(ctx context.Context, c *domain.FixedCost) error {
	org, err := orgOf(ctx)
	if err != nil {
		return err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.OrganizationID = org
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *FixedCostRepo) Delete(ctx context.Context, id uuid.UUID) error {
	q, _, err := scoped(ctx, r.db, &domain.FixedCost{}, "fixed_costs")
	if err != nil {
		return err
	}
	res := q.Where("id = ?", id).Delete(&domain.FixedCost{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *FixedCostRepo) SumActive(ctx context.Context) (float64, error) {
	q, _, err := scoped(ctx, r.db, &domain.FixedCost{}, "fixed_costs")
	if err != nil {
		return 0, err
	}
	var sum struct{ Total float64 }
	if err := q.Where("active = ?", true).Select("COALESCE(SUM(amount), 0) AS total").Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum.Total, nil
}
