package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phenrril/costeo/internal/domain"
)

type ProductRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	q, _, err := scoped(ctx, r.db, &domain.Product{}, "products")
	if err != nil {
		return nil, err
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Active != nil {
		q = q.Where("active = ?", *f.Active)
	}
	if query := strings.TrimSpace(f.Query); query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(category) LIKE ?)", like, like)
	}
	var list []domain.Product
	if err := q.Preload("RecipeItems").Order("name asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.findOne(ctx, "products.id = ?", id)
}

func (r *ProductRepo) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return r.findOne(ctx, "products.slug = ?", strings.ToLower(strings.TrimSpace(slug)))
}

func (r *ProductRepo) FindByName(ctx context.Context, name string) (*domain.Product, error) {
	return r.findOne(ctx, "LOWER(products.name) = ?", strings.ToLower(strings.TrimSpace(name)))
}

func (r *ProductRepo) findOne(ctx context.Context, cond string, arg any) (*domain.Product, error) {
	q, _, err := scoped(ctx, r.db, &domain.Product{}, "products")
	if err != nil {
		return nil, err
	}
	var p domain.Product
	if err := q.Preload("RecipeItems.Ingredient").Preload("RecipeItems.SubProduct").
		Where(cond, arg).First(&p).Error; err != nil {
		return nil, notFound(err, "product")
	}
	return &p, nil
}

func (r *ProductRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q, _, err := scoped(ctx, r.db, &domain.Product{}, "products")
	if err != nil {
		return nil, err
	}
	var list []domain.Product
	if err := q.Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ProductRepo) SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	q, _, err := scoped(ctx, r.db, &domain.Product{}, "products")
	if err != nil {
		return false, err
	}
	var n int64
	if err := q.Where("slug = ? AND id <> ?", slug, exclude).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	org, err := orgOf(ctx)
	if err != nil {
		return err
	}
	p.OrganizationID = org
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return err
		}
		return createRecipe(tx, p)
	})
}

func (r *ProductRepo) Update(ctx context.Context, p *domain.Product) error {
	org, err := orgOf(ctx)
	if err != nil {
		return err
	}
	p.OrganizationID = org
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Product{}).
			Where("id = ? AND organization_id = ?", p.ID, org).
			Select("slug", "name", "type", "category", "description", "base_price", "manual_cost", "active", "updated_at").
			Updates(p)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		if err := tx.Where("product_id = ?", p.ID).Delete(&domain.RecipeItem{}).Error; err != nil {
			return err
		}
		return createRecipe(tx, p)
	})
}

func createRecipe(tx *gorm.DB, p *domain.Product) error {
	if len(p.RecipeItems) == 0 {
		return nil
	}
	for i := range p.RecipeItems {
		if p.RecipeItems[i].ID == uuid.Nil {
			p.RecipeItems[i].ID = uuid.New()
		}
		p.RecipeItems[i].ProductID = p.ID
	}
	return tx.Omit(clause.Associations).Create(&p.RecipeItems).Error
}

func (r *ProductRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	q, _, err := scoped(ctx, r.db, &domain.Product{}, "products")
	if err != nil {
		return err
	}
	res := q.Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	org, err := orgOf(ctx)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Product{}).Where("id = ? AND organization_id = ?", id, org).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return domain.ErrNotFound
		}
		if err := tx.Where("product_id = ?", id).Delete(&domain.RecipeItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Product{}, "id = ?", id).Error
	})
}

func (r *ProductRepo) CountSubProductUsage(ctx context.Context, id uuid.UUID) (int64, error) {
	return r.countLines(ctx, "recipe_items.sub_product_id = ?", id)
}

func (r *ProductRepo) CountSaleUsage(ctx context.Context, id uuid.UUID) (int64, error) {
	org, err := orgOf(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	err = r.db.WithContext(ctx).Model(&domain.SaleItem{}).
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.organization_id = ? AND sale_items.product_id = ?", org, id).
		Count(&n).Error
	return n, err
}

func (r *ProductRepo) countLines(ctx context.Context, cond string, id uuid.UUID) (int64, error) {
	org, err := orgOf(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	err = r.db.WithContext(ctx).Model(&domain.RecipeItem{}).
		Joins("JOIN products ON products.id = recipe_items.product_id").
		Where("products.organization_id = ?", org).
		Where(cond, id).
		Count(&n).Error
	return n, err
}

func (r *ProductRepo) DistinctCategories(ctx context.Context) ([]string, error) {
	q, _, err := scoped(ctx, r.db, &domain.Product{}, "products")
	if err != nil {
		return nil, err
	}
	cats := []string{}
	if err := q.Distinct("category").Where("category <> ''").Order("category asc").Pluck("category", &cats).Error; err != nil {
		return nil, err
	}
	return cats, nil
}
