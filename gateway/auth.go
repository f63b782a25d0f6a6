package gateway

import (
	"context"

	"github.com/tracklite/client/domain"
)

// AuthGateway is the typed boundary to the backend's user endpoints.
type AuthGateway interface {
	Login(ctx context.Context, email, password string) (*domain.AuthToken, error)
	Register(ctx context.Context, email, password string) (*domain.User, error)
	CurrentUser(ctx context.Context) (*domain.User, error)
}

// TokenSource supplies the persisted bearer credentials for outbound
// requests. When ok is false no Authorization header is sent. The
// session store is the process-scoped implementation; request code
// never reads ambient storage on its own.
type TokenSource interface {
	Token() (scheme, token string, ok bool)
}
