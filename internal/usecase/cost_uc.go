package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/phenrril/costeo/internal/domain"
)

const defaultCostWorkers = 4

type CostUC struct {
	Repo domain.CostRepo
	// Workers bounds CalculateMany fan-out.
	Workers int
}

type CostResult struct {
	Cost float64
	Err  error
}

// CalculateProductCost returns the cost of one unit of the product. Missing
// products, ingredients and prices count as 0; a recipe that reaches itself
// through sub-products fails with *domain.CircularRecipeError.
func (uc *CostUC) CalculateProductCost(ctx context.Context, productID uuid.UUID) (float64, error) {
	return uc.cost(ctx, productID, nil)
}

func (uc *CostUC) cost(ctx context.Context, id uuid.UUID, path []uuid.UUID) (float64, error) {
	for i, seen := range path {
		if seen == id {
			chain := make([]uuid.UUID, 0, len(path)-i+1)
			chain = append(chain, path[i:]...)
			return 0, &domain.CircularRecipeError{Chain: append(chain, id)}
		}
	}

	p, err := uc.Repo.FindProductWithRecipe(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("load product %s: %w", id, err)
	}
	if p == nil {
		return 0, nil
	}
	if p.Type != domain.ProductElaborado {
		if p.ManualCost == nil {
			return 0, nil
		}
		return *p.ManualCost, nil
	}
	if len(p.RecipeItems) == 0 {
		return 0, nil
	}

	next := append(path[:len(path):len(path)], id)
	var total float64
	for _, item := range p.RecipeItems {
		switch {
		case item.IngredientID != nil:
			ic, err := uc.Repo.FindIngredientLatestCost(ctx, *item.IngredientID)
			if err != nil {
				return 0, fmt.Errorf("load ingredient %s: %w", *item.IngredientID, err)
			}
			if ic.Unit == "" {
				// ingredient no longer exists
				continue
			}
			c, exact := domain.Conversion(item.Quantity, item.Unit, ic.Unit, ic.UnitCost)
			if !exact {
				log.Warn().
					Str("product_id", id.String()).
					Str("ingredient_id", item.IngredientID.String()).
					Str("recipe_unit", item.Unit).
					Str("ingredient_unit", ic.Unit).
					Msg("no unit conversion known, priced 1:1")
			}
			total += c
		case item.SubProductID != nil:
			sub, err := uc.cost(ctx, *item.SubProductID, next)
			if err != nil {
				return 0, err
			}
			total += item.Quantity * sub
		}
	}
	return total, nil
}

// CalculateMany evaluates independent products concurrently. Circular recipes
// are reported per product; any other failure aborts the whole call.
func (uc *CostUC) CalculateMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]CostResult, error) {
	out := make(map[uuid.UUID]CostResult, len(ids))
	var mu sync.Mutex

	workers := uc.Workers
	if workers <= 0 {
		workers = defaultCostWorkers
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			c, err := uc.CalculateProductCost(gctx, id)
			if err != nil && !errors.Is(err, domain.ErrCircularRecipe) {
				return err
			}
			mu.Lock()
			out[id] = CostResult{Cost: c, Err: err}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckRecipe reports whether saving lines as the recipe of productID would
// make the product reach itself. Only ELABORADO products are walked since no
// other type evaluates its recipe.
func (uc *CostUC) CheckRecipe(ctx context.Context, productID uuid.UUID, typ domain.ProductType, lines []domain.RecipeItem) error {
	if typ != domain.ProductElaborado {
		return nil
	}
	visited := map[uuid.UUID]bool{}
	root := []uuid.UUID{productID}
	for _, l := range lines {
		if !l.IsSubProduct() {
			continue
		}
		chain, err := uc.pathTo(ctx, *l.SubProductID, productID, root, visited)
		if err != nil {
			return err
		}
		if chain != nil {
			return &domain.CircularRecipeError{Chain: chain}
		}
	}
	return nil
}

func (uc *CostUC) pathTo(ctx context.Context, from, target uuid.UUID, path []uuid.UUID, visited map[uuid.UUID]bool) ([]uuid.UUID, error) {
	path = append(path[:len(path):len(path)], from)
	if from == target {
		return path, nil
	}
	if visited[from] {
		return nil, nil
	}
	visited[from] = true

	p, err := uc.Repo.FindProductWithRecipe(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("load product %s: %w", from, err)
	}
	if p == nil || p.Type != domain.ProductElaborado {
		return nil, nil
	}
	for _, l := range p.RecipeItems {
		if !l.IsSubProduct() {
			continue
		}
		chain, err := uc.pathTo(ctx, *l.SubProductID, target, path, visited)
		if err != nil || chain != nil {
			return chain, err
		}
	}
	return nil, nil
}
