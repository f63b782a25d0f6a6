package gateway

import (
	"context"

	"github.com/tracklite/client/domain"
)

// ActivityFilter narrows GET /activities/ listings.
type ActivityFilter struct {
	Skip  int
	Limit int
	Tag   string
}

// ActivityGateway is the typed boundary to the backend's activity
// endpoints.
type ActivityGateway interface {
	List(ctx context.Context, filter ActivityFilter) ([]domain.Activity, error)
	Get(ctx context.Context, id int64) (*domain.Activity, error)
	Create(ctx context.Context, req domain.ActivityCreateRequest) (*domain.Activity, error)
	Update(ctx context.Context, id int64, req domain.ActivityUpdateRequest) (*domain.Activity, error)
	Delete(ctx context.Context, id int64) error
	TimerAction(ctx context.Context, id int64, action domain.TimerActionKind) (*domain.Activity, error)
}
