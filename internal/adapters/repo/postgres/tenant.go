package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/costeo/internal/domain"
)

// orgOf resolves the organization every query is restricted to.
func orgOf(ctx context.Context) (uuid.UUID, error) {
	org, ok := domain.OrganizationFrom(ctx)
	if !ok {
		return uuid.Nil, domain.ErrNoTenant
	}
	return org, nil
}

func inOrg(table string, org uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".organization_id = ?", org)
	}
}

// scoped starts a query on model (stored in table) restricted to the caller's
// organization.
func scoped(ctx context.Context, db *gorm.DB, model any, table string) (*gorm.DB, uuid.UUID, error) {
	org, err := orgOf(ctx)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return db.WithContext(ctx).Model(model).Scopes(inOrg(table, org)), org, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return err
}
