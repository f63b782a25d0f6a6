// Package session owns the authentication state machine:
// anonymous -> authenticating -> authenticated, falling back to
// anonymous on any failure along the way. The Store is the single
// process-scoped holder of credentials; the gateway receives it as a
// TokenSource instead of reading ambient storage.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/tracklite/client/domain"
	"github.com/tracklite/client/gateway"
)

// Status is the session state machine position.
type Status string

const (
	StatusAnonymous      Status = "anonymous"
	StatusAuthenticating Status = "authenticating"
	StatusAuthenticated  Status = "authenticated"
)

const defaultScheme = "Bearer"

// Vault persists the two credential strings between processes. An
// empty token from Load means no credentials are stored.
type Vault interface {
	Store(token, scheme string) error
	Load() (token, scheme string, err error)
	Clear() error
}

// Store drives login/register/logout and user hydration. A login only
// counts once both the credential exchange and the dependent user
// fetch succeed; a half-authenticated session is purged outright.
type Store struct {
	auth   gateway.AuthGateway
	vault  Vault
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	status  Status
	user    *domain.User
	token   string
	scheme  string
	lastErr error
}

// New creates a Store hydrated from the vault: a persisted token makes
// the initial state authenticated (the user itself is fetched lazily
// via CurrentUser).
func New(auth gateway.AuthGateway, vault Vault, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		auth:   auth,
		vault:  vault,
		logger: logger,
		now:    time.Now,
		status: StatusAnonymous,
		scheme: defaultScheme,
	}

	if vault != nil {
		token, scheme, err := vault.Load()
		if err != nil {
			logger.Warn("failed to read persisted credentials", zap.Error(err))
		} else if token != "" {
			s.token = token
			if scheme != "" {
				s.scheme = scheme
			}
			s.status = StatusAuthenticated
		}
	}
	return s
}

// BindGateway attaches the auth gateway after construction. The
// session is the gateway's TokenSource, so one of the two has to be
// wired late; binding must happen before any session operation runs.
func (s *Store) BindGateway(auth gateway.AuthGateway) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = auth
}

// Token implements gateway.TokenSource.
func (s *Store) Token() (scheme, token string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", "", false
	}
	scheme = s.scheme
	if scheme == "" {
		scheme = defaultScheme
	}
	return scheme, s.token, true
}

// Status returns the state machine position.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// IsAuthenticated reports whether the session is authenticated.
func (s *Store) IsAuthenticated() bool {
	return s.Status() == StatusAuthenticated
}

// User returns the hydrated user, nil before CurrentUser succeeds.
func (s *Store) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Err returns the last recorded session error.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ErrorMessage returns the last session error as a display string.
func (s *Store) ErrorMessage() string {
	return domain.ErrorMessage(s.Err())
}

// ClearError dismisses the last error explicitly.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = nil
}

// Login exchanges credentials for a token, persists it, then performs
// the dependent user fetch. If the fetch fails the token is purged and
// the whole login is treated as a failure.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.mu.Lock()
	s.status = StatusAuthenticating
	s.lastErr = nil
	s.mu.Unlock()

	token, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.failLogin(err)
		return err
	}

	scheme := token.TokenType
	if scheme == "" {
		scheme = defaultScheme
	}

	// Credentials go live before the user fetch; that request must
	// already carry the Authorization header.
	s.mu.Lock()
	s.token = token.AccessToken
	s.scheme = scheme
	s.mu.Unlock()

	if s.vault != nil {
		if err := s.vault.Store(token.AccessToken, scheme); err != nil {
			s.logger.Warn("failed to persist credentials", zap.Error(err))
		}
	}

	user, err := s.auth.CurrentUser(ctx)
	if err != nil {
		s.purge()
		s.failLogin(err)
		return err
	}

	s.mu.Lock()
	s.user = user
	s.status = StatusAuthenticated
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// Register creates the account and then runs the regular login with
// the same credentials; token handling lives in Login alone. The
// password length check happens before anything goes on the wire.
func (s *Store) Register(ctx context.Context, email, password string) error {
	if len(password) < 8 {
		s.mu.Lock()
		s.lastErr = domain.ErrPasswordTooShort
		s.mu.Unlock()
		return domain.ErrPasswordTooShort
	}

	s.mu.Lock()
	s.status = StatusAuthenticating
	s.lastErr = nil
	s.mu.Unlock()

	if _, err := s.auth.Register(ctx, email, password); err != nil {
		s.failLogin(err)
		return err
	}

	return s.Login(ctx, email, password)
}

// CurrentUser re-hydrates the user for an existing token. It fails
// fast without a round trip when no token is persisted or the bearer
// token has visibly expired; a rejected fetch drops the session back
// to anonymous and purges the token.
func (s *Store) CurrentUser(ctx context.Context) (*domain.User, error) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token == "" {
		s.mu.Lock()
		s.lastErr = domain.ErrNotAuthenticated
		s.mu.Unlock()
		return nil, domain.ErrNotAuthenticated
	}

	if s.tokenExpired(token) {
		err := domain.NewError(domain.ErrCodeUnauthorized, "session expired")
		s.purge()
		s.mu.Lock()
		s.status = StatusAnonymous
		s.user = nil
		s.lastErr = err
		s.mu.Unlock()
		return nil, err
	}

	user, err := s.auth.CurrentUser(ctx)
	if err != nil {
		s.purge()
		s.mu.Lock()
		s.status = StatusAnonymous
		s.user = nil
		s.lastErr = err
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	s.user = user
	s.status = StatusAuthenticated
	s.lastErr = nil
	s.mu.Unlock()
	return user, nil
}

// Logout clears credentials. It always succeeds locally; a vault
// write failure is logged, not surfaced.
func (s *Store) Logout() {
	if s.vault != nil {
		if err := s.vault.Clear(); err != nil {
			s.logger.Warn("failed to clear persisted credentials", zap.Error(err))
		}
	}
	s.mu.Lock()
	s.token = ""
	s.scheme = defaultScheme
	s.user = nil
	s.status = StatusAnonymous
	s.lastErr = nil
	s.mu.Unlock()
}

func (s *Store) failLogin(err error) {
	s.mu.Lock()
	s.status = StatusAnonymous
	s.user = nil
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Store) purge() {
	if s.vault != nil {
		if err := s.vault.Clear(); err != nil {
			s.logger.Warn("failed to clear persisted credentials", zap.Error(err))
		}
	}
	s.mu.Lock()
	s.token = ""
	s.scheme = defaultScheme
	s.mu.Unlock()
}

// tokenExpired inspects the bearer token's exp claim without verifying
// the signature; only the backend can verify, this is a shortcut to
// skip a doomed round trip. Opaque non-JWT tokens pass through.
func (s *Store) tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	// VerifyExpiresAt with required=false treats a missing exp claim
	// as valid, which is what an opaque token deserves.
	return !claims.VerifyExpiresAt(s.now().Unix(), false)
}
