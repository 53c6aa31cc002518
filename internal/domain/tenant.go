package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Organization struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:140;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type orgKey struct{}

func WithOrganization(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, orgKey{}, id)
}

func OrganizationFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(orgKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
