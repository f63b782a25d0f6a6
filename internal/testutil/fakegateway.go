// Package testutil provides in-memory gateway fakes for tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tracklite/client/domain"
	"github.com/tracklite/client/gateway"
)

// FakeActivityGateway is an in-memory implementation of
// gateway.ActivityGateway with per-method error injection and call
// counters.
type FakeActivityGateway struct {
	mu         sync.Mutex
	activities []domain.Activity
	nextID     int64

	// Error injection.
	ListErr   error
	GetErr    error
	CreateErr error
	UpdateErr error
	DeleteErr error
	TimerErr  error

	// Call counters.
	ListCalls   int
	CreateCalls int
	UpdateCalls int
	DeleteCalls int
	TimerCalls  int

	// LastTimerAction records the most recent timer verb.
	LastTimerAction domain.TimerActionKind
}

// NewFakeActivityGateway creates an empty fake.
func NewFakeActivityGateway() *FakeActivityGateway {
	return &FakeActivityGateway{nextID: 1}
}

// Seed inserts an activity verbatim, bumping the id counter past it.
func (f *FakeActivityGateway) Seed(activity domain.Activity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activities = append(f.activities, activity)
	if activity.ID >= f.nextID {
		f.nextID = activity.ID + 1
	}
}

// List implements gateway.ActivityGateway.
func (f *FakeActivityGateway) List(ctx context.Context, filter gateway.ActivityFilter) ([]domain.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	result := make([]domain.Activity, len(f.activities))
	copy(result, f.activities)
	return result, nil
}

// Get implements gateway.ActivityGateway.
func (f *FakeActivityGateway) Get(ctx context.Context, id int64) (*domain.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	for _, activity := range f.activities {
		if activity.ID == id {
			found := activity
			return &found, nil
		}
	}
	return nil, domain.NewError(domain.ErrCodeNotFound, fmt.Sprintf("activity %d not found", id))
}

// Create implements gateway.ActivityGateway.
func (f *FakeActivityGateway) Create(ctx context.Context, req domain.ActivityCreateRequest) (*domain.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}

	tags := make([]domain.Tag, 0, len(req.Tags))
	for i, name := range req.Tags {
		tags = append(tags, domain.Tag{ID: int64(i + 1), Name: name})
	}

	description := req.Description
	activity := domain.Activity{
		ID:          f.nextID,
		Title:       req.Title,
		Description: &description,
		StartTime:   time.Now().UTC().Format(time.RFC3339),
		TimerStatus: string(domain.TimerIdle),
		Tags:        tags,
	}
	f.nextID++
	f.activities = append(f.activities, activity)
	created := activity
	return &created, nil
}

// Update implements gateway.ActivityGateway.
func (f *FakeActivityGateway) Update(ctx context.Context, id int64, req domain.ActivityUpdateRequest) (*domain.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpdateCalls++
	if f.UpdateErr != nil {
		return nil, f.UpdateErr
	}
	for i := range f.activities {
		if f.activities[i].ID != id {
			continue
		}
		activity := &f.activities[i]
		activity.Title = req.Title
		if req.Description != nil {
			activity.Description = req.Description
		}
		if req.Tags != nil {
			tags := make([]domain.Tag, 0, len(req.Tags))
			for j, name := range req.Tags {
				tags = append(tags, domain.Tag{ID: int64(j + 1), Name: name})
			}
			activity.Tags = tags
		}
		if req.EndTime.Set {
			activity.EndTime = req.EndTime.Value
		}
		if req.RecordedTime != nil {
			activity.RecordedTime = *req.RecordedTime
		}
		if req.TimerStatus != nil {
			activity.TimerStatus = *req.TimerStatus
		}
		updated := *activity
		return &updated, nil
	}
	return nil, domain.NewError(domain.ErrCodeNotFound, fmt.Sprintf("activity %d not found", id))
}

// Delete implements gateway.ActivityGateway.
func (f *FakeActivityGateway) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	for i := range f.activities {
		if f.activities[i].ID == id {
			f.activities = append(f.activities[:i], f.activities[i+1:]...)
			return nil
		}
	}
	return domain.NewError(domain.ErrCodeNotFound, fmt.Sprintf("activity %d not found", id))
}

// TimerAction implements gateway.ActivityGateway.
func (f *FakeActivityGateway) TimerAction(ctx context.Context, id int64, action domain.TimerActionKind) (*domain.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TimerCalls++
	f.LastTimerAction = action
	if f.TimerErr != nil {
		return nil, f.TimerErr
	}
	for i := range f.activities {
		if f.activities[i].ID != id {
			continue
		}
		activity := &f.activities[i]
		switch action {
		case domain.TimerActionStart:
			activity.TimerStatus = string(domain.TimerRunning)
		case domain.TimerActionPause:
			activity.TimerStatus = string(domain.TimerPaused)
			activity.RecordedTime += 60
		case domain.TimerActionStop:
			activity.TimerStatus = string(domain.TimerIdle)
			activity.RecordedTime += 60
		case domain.TimerActionSave:
			activity.RecordedTime += 30
		}
		updated := *activity
		return &updated, nil
	}
	return nil, domain.NewError(domain.ErrCodeNotFound, fmt.Sprintf("activity %d not found", id))
}

// FakeAuthGateway is an in-memory implementation of
// gateway.AuthGateway.
type FakeAuthGateway struct {
	mu sync.Mutex

	Token domain.AuthToken
	User  domain.User

	LoginErr       error
	RegisterErr    error
	CurrentUserErr error

	LoginCalls       int
	RegisterCalls    int
	CurrentUserCalls int
}

// NewFakeAuthGateway creates a fake with plausible defaults.
func NewFakeAuthGateway() *FakeAuthGateway {
	return &FakeAuthGateway{
		Token: domain.AuthToken{AccessToken: "opaque-token", TokenType: "Bearer"},
		User:  domain.User{ID: 1, Email: "user@example.com", IsActive: true},
	}
}

// Login implements gateway.AuthGateway.
func (f *FakeAuthGateway) Login(ctx context.Context, email, password string) (*domain.AuthToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LoginCalls++
	if f.LoginErr != nil {
		return nil, f.LoginErr
	}
	token := f.Token
	return &token, nil
}

// Register implements gateway.AuthGateway.
func (f *FakeAuthGateway) Register(ctx context.Context, email, password string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RegisterCalls++
	if f.RegisterErr != nil {
		return nil, f.RegisterErr
	}
	user := f.User
	user.Email = email
	return &user, nil
}

// CurrentUser implements gateway.AuthGateway.
func (f *FakeAuthGateway) CurrentUser(ctx context.Context) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CurrentUserCalls++
	if f.CurrentUserErr != nil {
		return nil, f.CurrentUserErr
	}
	user := f.User
	return &user, nil
}

// FakeVault is an in-memory session.Vault.
type FakeVault struct {
	mu     sync.Mutex
	token  string
	scheme string

	StoreErr error
	LoadErr  error
	ClearErr error
}

// SeedToken pre-populates the vault.
func (f *FakeVault) SeedToken(token, scheme string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
	f.scheme = scheme
}

// Store implements session.Vault.
func (f *FakeVault) Store(token, scheme string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StoreErr != nil {
		return f.StoreErr
	}
	f.token = token
	f.scheme = scheme
	return nil
}

// Load implements session.Vault.
func (f *FakeVault) Load() (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LoadErr != nil {
		return "", "", f.LoadErr
	}
	return f.token, f.scheme, nil
}

// Clear implements session.Vault.
func (f *FakeVault) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ClearErr != nil {
		return f.ClearErr
	}
	f.token = ""
	f.scheme = ""
	return nil
}

// HasToken reports whether a token is persisted.
func (f *FakeVault) HasToken() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token != ""
}
