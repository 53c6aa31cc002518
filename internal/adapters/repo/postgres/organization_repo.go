package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/costeo/internal/domain"
)

// OrganizationRepo is the only repository that is not tenant scoped: it
// manages the tenants themselves.
type OrganizationRepo struct{ db *gorm.DB }

func NewOrganizationRepo(db *gorm.DB) *OrganizationRepo { return &OrganizationRepo{db: db} }

func (r *OrganizationRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	var o domain.Organization
	if err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrganizationRepo) Save(ctx context.Context, o *domain.Organization) error {
	o.Name = strings.TrimSpace(o.Name)
	if o.Name == "" {
		return errors.New("organization name vacío")
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Save(o).Error
}
