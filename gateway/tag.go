package gateway

import (
	"context"

	"github.com/tracklite/client/domain"
)

// TagGateway is the typed boundary to the backend's tag endpoints.
type TagGateway interface {
	ListTags(ctx context.Context, skip, limit int) ([]domain.Tag, error)
	CreateTag(ctx context.Context, name string) (*domain.Tag, error)
}
