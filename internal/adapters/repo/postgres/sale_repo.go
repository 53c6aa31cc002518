package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phenrril/costeo/internal/domain"
)

type SaleRepo struct{ db *gorm.DB }

func NewSaleRepo(db *gorm.DB) *SaleRepo { return &SaleRepo{db: db} }

func (r *SaleRepo) Create(ctx context.Context, s *domain.Sale) error {
	org, err := orgOf(ctx)
	if err != nil {
		return err
	}
	s.OrganizationID = org
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(s).Error; err != nil {
			return err
		}
		if len(s.Items) == 0 {
			return nil
		}
		for i := range s.Items {
			if s.Items[i].ID == uuid.Nil {
				s.Items[i].ID = uuid.New()
			}
			s.Items[i].SaleID = s.ID
		}
		return tx.Omit(clause.Associations).Create(&s.Items).Error
	})
}

func (r *SaleRepo) Recent(ctx context.Context, limit int) ([]domain.Sale, error) {
	q, _, err := scoped(ctx, r.db, &domain.Sale{}, "sales")
	if err != nil {
		return nil, err
	}
	var list []domain.Sale
	err = q.Preload("Items.Product").
		Order("sales.date_time desc, sales.id desc").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// filtered builds a fresh query for the date range and product name search of q.
func (r *SaleRepo) filtered(ctx context.Context, q domain.SalesQuery) (*gorm.DB, error) {
	db, _, err := scoped(ctx, r.db, &domain.Sale{}, "sales")
	if err != nil {
		return nil, err
	}
	if q.Start != nil {
		db = db.Where("sales.date_time >= ?", *q.Start)
	}
	if q.End != nil {
		db = db.Where("sales.date_time <= ?", *q.End)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		db = db.Where(`EXISTS (SELECT 1 FROM sale_items
			JOIN products ON products.id = sale_items.product_id
			WHERE sale_items.sale_id = sales.id AND LOWER(products.name) LIKE ?)`,
			"%"+strings.ToLower(s)+"%")
	}
	return db, nil
}

func (r *SaleRepo) History(ctx context.Context, q domain.SalesQuery) ([]domain.Sale, int64, error) {
	counter, err := r.filtered(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := counter.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, err := r.filtered(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	if q.Cursor != nil {
		cur, _, err := scoped(ctx, r.db, &domain.Sale{}, "sales")
		if err != nil {
			return nil, 0, err
		}
		var at domain.Sale
		if err := cur.Select("id", "date_time").Where("id = ?", *q.Cursor).First(&at).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, domain.Invalid("cursor", "cursor desconocido")
			}
			return nil, 0, err
		}
		page = page.Where("(sales.date_time < ? OR (sales.date_time = ? AND sales.id < ?))",
			at.DateTime, at.DateTime, at.ID)
	}
	var list []domain.Sale
	err = page.Preload("Items.Product").
		Order("sales.date_time desc, sales.id desc").
		Limit(q.Limit + 1).
		Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *SaleRepo) Matching(ctx context.Context, q domain.SalesQuery) ([]domain.Sale, error) {
	db, err := r.filtered(ctx, q)
	if err != nil {
		return nil, err
	}
	var list []domain.Sale
	if err := db.Preload("Items.Product").Order("sales.date_time desc, sales.id desc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Totals sums every sale of the organization: revenue, cost of goods sold and
// number of sales.
func (r *SaleRepo) Totals(ctx context.Context) (revenue, cost float64, count int64, err error) {
	q, org, err := scoped(ctx, r.db, &domain.Sale{}, "sales")
	if err != nil {
		return 0, 0, 0, err
	}
	var agg struct {
		Revenue float64
		Count   int64
	}
	if err = q.Select("COALESCE(SUM(sales.total_amount), 0) AS revenue, COUNT(*) AS count").Scan(&agg).Error; err != nil {
		return 0, 0, 0, err
	}
	var cogs struct{ Cost float64 }
	err = r.db.WithContext(ctx).Model(&domain.SaleItem{}).
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.organization_id = ?", org).
		Select("COALESCE(SUM(sale_items.unit_cost * sale_items.quantity), 0) AS cost").
		Scan(&cogs).Error
	if err != nil {
		return 0, 0, 0, err
	}
	return agg.Revenue, cogs.Cost, agg.Count, nil
}
