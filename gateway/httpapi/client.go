// Package httpapi implements the gateway interfaces over the tracker
// backend's HTTP API using fasthttp.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/tracklite/client/domain"
	"github.com/tracklite/client/gateway"
	"github.com/tracklite/client/pkg/logger"
)

const defaultTimeout = 5 * time.Second

// Client talks to the tracker backend. It implements ActivityGateway,
// TagGateway and AuthGateway. Every request carries an Authorization
// header when the token source has credentials.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	tokens  gateway.TokenSource
	timeout time.Duration
	logger  *zap.Logger
}

// Option customizes the Client.
type Option func(*Client)

// WithTimeout overrides the per-request deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithHTTPClient substitutes the underlying fasthttp client, used by
// tests to dial an in-memory listener.
func WithHTTPClient(hc *fasthttp.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a Client against the given base URL. tokens may be nil
// for a purely anonymous client.
func New(baseURL string, tokens gateway.TokenSource, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL: baseURL,
		http:    &fasthttp.Client{Name: "tracklite"},
		tokens:  tokens,
		timeout: defaultTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List implements gateway.ActivityGateway.
func (c *Client) List(ctx context.Context, filter gateway.ActivityFilter) ([]domain.Activity, error) {
	query := url.Values{}
	query.Set("skip", strconv.Itoa(filter.Skip))
	query.Set("limit", strconv.Itoa(filter.Limit))
	if filter.Tag != "" {
		query.Set("tag", filter.Tag)
	}

	var activities []domain.Activity
	if err := c.do(ctx, fasthttp.MethodGet, "/activities/", query, nil, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// Get implements gateway.ActivityGateway.
func (c *Client) Get(ctx context.Context, id int64) (*domain.Activity, error) {
	var activity domain.Activity
	if err := c.do(ctx, fasthttp.MethodGet, fmt.Sprintf("/activities/%d", id), nil, nil, &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

// Create implements gateway.ActivityGateway.
func (c *Client) Create(ctx context.Context, req domain.ActivityCreateRequest) (*domain.Activity, error) {
	var activity domain.Activity
	if err := c.do(ctx, fasthttp.MethodPost, "/activities/", nil, req, &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

// Update implements gateway.ActivityGateway.
func (c *Client) Update(ctx context.Context, id int64, req domain.ActivityUpdateRequest) (*domain.Activity, error) {
	var activity domain.Activity
	if err := c.do(ctx, fasthttp.MethodPut, fmt.Sprintf("/activities/%d", id), nil, req, &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

// Delete implements gateway.ActivityGateway.
func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, fasthttp.MethodDelete, fmt.Sprintf("/activities/%d", id), nil, nil, nil)
}

// TimerAction implements gateway.ActivityGateway.
func (c *Client) TimerAction(ctx context.Context, id int64, action domain.TimerActionKind) (*domain.Activity, error) {
	var activity domain.Activity
	body := domain.TimerActionRequest{Action: action}
	if err := c.do(ctx, fasthttp.MethodPost, fmt.Sprintf("/activities/%d/timer", id), nil, body, &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

// ListTags implements gateway.TagGateway.
func (c *Client) ListTags(ctx context.Context, skip, limit int) ([]domain.Tag, error) {
	query := url.Values{}
	query.Set("skip", strconv.Itoa(skip))
	query.Set("limit", strconv.Itoa(limit))

	var tags []domain.Tag
	if err := c.do(ctx, fasthttp.MethodGet, "/tags/", query, nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// CreateTag implements gateway.TagGateway.
func (c *Client) CreateTag(ctx context.Context, name string) (*domain.Tag, error) {
	var tag domain.Tag
	body := map[string]string{"name": name}
	if err := c.do(ctx, fasthttp.MethodPost, "/tags/", nil, body, &tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

// Login implements gateway.AuthGateway.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.AuthToken, error) {
	var token domain.AuthToken
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, fasthttp.MethodPost, "/users/login", nil, body, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// Register implements gateway.AuthGateway.
func (c *Client) Register(ctx context.Context, email, password string) (*domain.User, error) {
	var user domain.User
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, fasthttp.MethodPost, "/users/", nil, body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUser implements gateway.AuthGateway.
func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, fasthttp.MethodGet, "/users/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := ctx.Err(); err != nil {
		return domain.WrapError(domain.ErrCodeRemote, "request aborted", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := c.baseURL + path
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}
	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	req.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		if scheme, token, ok := c.tokens.Token(); ok {
			req.Header.Set("Authorization", scheme+" "+token)
		}
	}

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return domain.WrapError(domain.ErrCodeInternal, "encode request body", err)
		}
		req.SetBody(payload)
	}

	// A CLI command run under one request id keeps it; otherwise
	// each call gets its own.
	requestID, ok := logger.RequestIDFrom(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	log := c.logger.With(
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", path),
	)
	log.Debug("api request")

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		log.Debug("api request failed", zap.Error(err))
		return domain.WrapError(domain.ErrCodeRemote, "backend unreachable", err)
	}

	status := resp.StatusCode()
	log.Debug("api response", zap.Int("status", status))

	if status < fasthttp.StatusOK || status >= fasthttp.StatusMultipleChoices {
		return normalizeError(status, resp.Body())
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return domain.WrapError(domain.ErrCodeRemote, "decode response body", err)
		}
	}
	return nil
}

// normalizeError folds a non-2xx response into the domain error
// taxonomy, preferring the backend's detail message when present.
func normalizeError(status int, body []byte) error {
	message := serverDetail(body)
	if message == "" {
		message = fmt.Sprintf("backend returned status %d", status)
	}

	code := domain.ErrCodeRemote
	switch status {
	case fasthttp.StatusUnauthorized, fasthttp.StatusForbidden:
		code = domain.ErrCodeUnauthorized
	case fasthttp.StatusNotFound:
		code = domain.ErrCodeNotFound
	}
	return domain.NewError(code, message)
}

// serverDetail extracts the "detail" field the backend puts in error
// bodies. Validation errors arrive as an array of objects; anything
// non-string is passed through as raw JSON.
func serverDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(envelope.Detail, &detail); err == nil {
		return detail
	}
	return string(envelope.Detail)
}
