package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/phenrril/costeo/internal/domain"
)

type ProductUC struct {
	Products    domain.ProductRepo
	Ingredients domain.IngredientRepo
	Costs       *CostUC
}

func (uc *ProductUC) List(ctx context.Context, f domain.ProductFilter) ([]domain.ProductView, error) {
	list, err := uc.Products.List(ctx, f)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(list))
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	costs, err := uc.Costs.CalculateMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ProductView, 0, len(list))
	for _, p := range list {
		c := costs[p.ID]
		out = append(out, domain.NewProductView(p, c.Cost, c.Err))
	}
	return out, nil
}

func (uc *ProductUC) Get(ctx context.Context, id uuid.UUID) (*domain.ProductView, error) {
	p, err := uc.Products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.view(ctx, p)
}

func (uc *ProductUC) GetBySlug(ctx context.Context, slug string) (*domain.ProductView, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, domain.Invalid("slug", "slug vacío")
	}
	p, err := uc.Products.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return uc.view(ctx, p)
}

func (uc *ProductUC) view(ctx context.Context, p *domain.Product) (*domain.ProductView, error) {
	c, err := uc.Costs.CalculateProductCost(ctx, p.ID)
	if err != nil && !errors.Is(err, domain.ErrCircularRecipe) {
		return nil, err
	}
	v := domain.NewProductView(*p, c, err)
	return &v, nil
}

// Cost evaluates the product's cost, failing with ErrNotFound for unknown ids.
func (uc *ProductUC) Cost(ctx context.Context, id uuid.UUID) (float64, error) {
	if _, err := uc.Products.FindByID(ctx, id); err != nil {
		return 0, err
	}
	return uc.Costs.CalculateProductCost(ctx, id)
}

func (uc *ProductUC) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if err := uc.validate(ctx, p); err != nil {
		return err
	}
	slug, err := uc.uniqueSlug(ctx, p.Name, p.ID)
	if err != nil {
		return err
	}
	p.Slug = slug
	p.Active = true
	uc.prepareLines(p)
	return uc.Products.Create(ctx, p)
}

// Update overwrites the product and replaces its whole recipe. A nil active
// keeps the stored status.
func (uc *ProductUC) Update(ctx context.Context, p *domain.Product, active *bool) error {
	if p.ID == uuid.Nil {
		return domain.Invalid("id", "ID de producto faltante")
	}
	cur, err := uc.Products.FindByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := uc.validate(ctx, p); err != nil {
		return err
	}
	p.Slug = cur.Slug
	if !strings.EqualFold(strings.TrimSpace(cur.Name), p.Name) {
		if p.Slug, err = uc.uniqueSlug(ctx, p.Name, p.ID); err != nil {
			return err
		}
	}
	p.Active = cur.Active
	if active != nil {
		p.Active = *active
	}
	p.CreatedAt = cur.CreatedAt
	uc.prepareLines(p)
	return uc.Products.Update(ctx, p)
}

// Delete removes the product, or only deactivates it when sales reference it.
// The bool reports whether the row was removed.
func (uc *ProductUC) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, err := uc.Products.FindByID(ctx, id); err != nil {
		return false, err
	}
	n, err := uc.Products.CountSubProductUsage(ctx, id)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, domain.Invalid("id", "el producto se usa como sub-producto en otras recetas")
	}
	sold, err := uc.Products.CountSaleUsage(ctx, id)
	if err != nil {
		return false, err
	}
	if sold > 0 {
		// sale items keep pointing at it
		return false, uc.Products.SetActive(ctx, id, false)
	}
	return true, uc.Products.Delete(ctx, id)
}

func (uc *ProductUC) Categories(ctx context.Context) ([]string, error) {
	return uc.Products.DistinctCategories(ctx)
}

func (uc *ProductUC) validate(ctx context.Context, p *domain.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	p.Description = strings.TrimSpace(p.Description)
	if p.Name == "" {
		return domain.Invalid("name", "El nombre es requerido")
	}
	if p.Type == "" {
		p.Type = domain.ProductElaborado
	}
	if !p.Type.Valid() {
		return domain.Invalid("type", fmt.Sprintf("tipo de producto desconocido %q", p.Type))
	}
	if p.BasePrice < 0 {
		return domain.Invalid("base_price", "El precio no puede ser negativo")
	}
	if p.ManualCost != nil && *p.ManualCost < 0 {
		return domain.Invalid("manual_cost", "El costo no puede ser negativo")
	}

	existing, err := uc.Products.FindByName(ctx, p.Name)
	switch {
	case err == nil && existing.ID != p.ID:
		return fmt.Errorf("%w: Ya existe un producto con este nombre", domain.ErrDuplicate)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return err
	}

	for i := range p.RecipeItems {
		if err := uc.validateLine(ctx, p.ID, &p.RecipeItems[i]); err != nil {
			return err
		}
	}
	return uc.Costs.CheckRecipe(ctx, p.ID, p.Type, p.RecipeItems)
}

func (uc *ProductUC) validateLine(ctx context.Context, productID uuid.UUID, l *domain.RecipeItem) error {
	hasIng := l.IngredientID != nil && *l.IngredientID != uuid.Nil
	hasSub := l.SubProductID != nil && *l.SubProductID != uuid.Nil
	if hasIng == hasSub {
		return domain.Invalid("recipe_items", "cada línea debe referir a un ingrediente o a un sub-producto")
	}
	if l.Quantity <= 0 {
		return domain.Invalid("recipe_items", "la cantidad debe ser mayor a 0")
	}
	if hasIng {
		l.SubProductID = nil
		u, ok := domain.ParseUnit(l.Unit)
		if !ok {
			return domain.Invalid("recipe_items", fmt.Sprintf("unidad desconocida %q", l.Unit))
		}
		l.Unit = string(u)
		if _, err := uc.Ingredients.FindByID(ctx, *l.IngredientID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Invalid("recipe_items", "ingrediente inexistente")
			}
			return err
		}
		return nil
	}

	l.IngredientID = nil
	if strings.TrimSpace(l.Unit) == "" {
		l.Unit = string(domain.UnitPiece)
	}
	if *l.SubProductID == productID {
		return &domain.CircularRecipeError{Chain: []uuid.UUID{productID, productID}}
	}
	if _, err := uc.Products.FindByID(ctx, *l.SubProductID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Invalid("recipe_items", "sub-producto inexistente")
		}
		return err
	}
	return nil
}

func (uc *ProductUC) prepareLines(p *domain.Product) {
	for i := range p.RecipeItems {
		l := &p.RecipeItems[i]
		l.ID = uuid.New()
		l.ProductID = p.ID
		l.Ingredient = nil
		l.SubProduct = nil
	}
}

func (uc *ProductUC) uniqueSlug(ctx context.Context, name string, self uuid.UUID) (string, error) {
	base := Slugify(name)
	if base == "" {
		base = self.String()[:8]
	}
	slug := base
	for i := 2; ; i++ {
		taken, err := uc.Products.SlugTaken(ctx, slug, self)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// Slugify lowercases, strips accents and joins words with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range norm.NFD.String(strings.ToLower(strings.TrimSpace(s))) {
		switch {
		case unicode.Is(unicode.Mn, r):
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
