package httpapi_test

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/tracklite/client/domain"
	"github.com/tracklite/client/gateway"
	"github.com/tracklite/client/gateway/httpapi"
)

// staticTokens is a fixed-credential gateway.TokenSource.
type staticTokens struct {
	scheme string
	token  string
}

func (s staticTokens) Token() (string, string, bool) {
	if s.token == "" {
		return "", "", false
	}
	return s.scheme, s.token, true
}

// backend captures requests hitting the fake tracker API.
type backend struct {
	lastAuth   string
	lastQuery  map[string]string
	lastBody   []byte
	lastMethod string
}

func (b *backend) capture(ctx *fasthttp.RequestCtx) {
	b.lastAuth = string(ctx.Request.Header.Peek("Authorization"))
	b.lastMethod = string(ctx.Method())
	b.lastBody = append([]byte(nil), ctx.PostBody()...)
	b.lastQuery = map[string]string{}
	ctx.QueryArgs().VisitAll(func(key, value []byte) {
		b.lastQuery[string(key)] = string(value)
	})
}

func respondJSON(ctx *fasthttp.RequestCtx, status int, payload any) {
	body, _ := json.Marshal(payload)
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func newTestClient(t *testing.T, tokens gateway.TokenSource, configure func(r *router.Router, b *backend)) (*httpapi.Client, *backend) {
	t.Helper()

	b := &backend{}
	r := router.New()
	configure(r, b)

	ln := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: r.Handler}
	go func() {
		_ = server.Serve(ln)
	}()
	t.Cleanup(func() {
		ln.Close()
	})

	hc := &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) {
			return ln.Dial()
		},
	}
	client := httpapi.New("http://tracker.test", tokens, nil,
		httpapi.WithHTTPClient(hc),
		httpapi.WithTimeout(2*time.Second),
	)
	return client, b
}

func sampleActivity() domain.Activity {
	description := "DUE_DATE:2024-06-01T10:00"
	return domain.Activity{
		ID:           7,
		Title:        "Write report",
		Description:  &description,
		StartTime:    "2024-05-30T08:00:00Z",
		RecordedTime: 120,
		TimerStatus:  "idle",
		UserID:       1,
		Tags:         []domain.Tag{{ID: 1, Name: "work"}},
	}
}

func TestListSendsQueryAndAuthHeader(t *testing.T) {
	client, b := newTestClient(t, staticTokens{"Bearer", "tok-123"}, func(r *router.Router, b *backend) {
		r.GET("/activities/", func(ctx *fasthttp.RequestCtx) {
			b.capture(ctx)
			respondJSON(ctx, fasthttp.StatusOK, []domain.Activity{sampleActivity()})
		})
	})

	activities, err := client.List(context.Background(), gateway.ActivityFilter{Skip: 30, Limit: 15, Tag: "work"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(activities) != 1 || activities[0].ID != 7 {
		t.Errorf("activities = %+v", activities)
	}
	if b.lastAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q", b.lastAuth)
	}
	if b.lastQuery["skip"] != "30" || b.lastQuery["limit"] != "15" || b.lastQuery["tag"] != "work" {
		t.Errorf("query = %v", b.lastQuery)
	}
}

func TestNoTokenMeansNoAuthHeader(t *testing.T) {
	client, b := newTestClient(t, staticTokens{}, func(r *router.Router, b *backend) {
		r.GET("/activities/", func(ctx *fasthttp.RequestCtx) {
			b.capture(ctx)
			respondJSON(ctx, fasthttp.StatusOK, []domain.Activity{})
		})
	})

	if _, err := client.List(context.Background(), gateway.ActivityFilter{Limit: 15}); err != nil {
		t.Fatalf("list: %v", err)
	}
	if b.lastAuth != "" {
		t.Errorf("Authorization = %q, want no header", b.lastAuth)
	}
}

func TestGetFetchesSingleActivity(t *testing.T) {
	client, b := newTestClient(t, staticTokens{"Bearer", "tok"}, func(r *router.Router, b *backend) {
		r.GET("/activities/{id}", func(ctx *fasthttp.RequestCtx) {
			b.capture(ctx)
			respondJSON(ctx, fasthttp.StatusOK, sampleActivity())
		})
	})

	activity, err := client.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if activity.ID != 7 || activity.Title != "Write report" {
		t.Errorf("activity = %+v", activity)
	}
	if b.lastMethod != fasthttp.MethodGet {
		t.Errorf("method = %q", b.lastMethod)
	}
	if b.lastAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", b.lastAuth)
	}
}

func TestCreatePostsBody(t *testing.T) {
	client, b := newTestClient(t, staticTokens{"Bearer", "tok"}, func(r *router.Router, b *backend) {
		r.POST("/activities/", func(ctx *fasthttp.RequestCtx) {
			b.capture(ctx)
			respondJSON(ctx, fasthttp.StatusCreated, sampleActivity())
		})
	})

	created, err := client.Create(context.Background(), domain.ActivityCreateRequest{
		Title:       "Write report",
		Description: "DUE_DATE:2024-06-01T10:00",
		Tags:        []string{"work"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 7 {
		t.Errorf("ID = %d", created.ID)
	}

	var sent map[string]any
	if err := json.Unmarshal(b.lastBody, &sent); err != nil {
		t.Fatalf("unmarshal sent body: %v", err)
	}
	if sent["description"] != "DUE_DATE:2024-06-01T10:00" {
		t.Errorf("sent description = %v", sent["description"])
	}
}

func TestUpdateHitsIDPath(t *testing.T) {
	client, b := newTestClient(t, staticTokens{"Bearer", "tok"}, func(r *router.Router, b *backend) {
		r.PUT("/activities/{id}", func(ctx *fasthttp.RequestCtx) {
			b.capture(ctx)
			if id, _ := ctx.UserValue("id").(string); id != "7" {
				respondJSON(ctx, fasthttp.StatusNotFound, map[string]string{"detail": "Activity not found"})
				return
			}
			respondJSON(ctx, fasthttp.StatusOK, sampleActivity())
		})
	})

	if _, err := client.Update(context.Background(), 7, domain.ActivityUpdateRequest{Title: "Write report"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	var sent map[string]any
	if err := json.Unmarshal(b.lastBody, &sent); err != nil {
		t.Fatalf("unmarshal sent body: %v", err)
	}
	if sent["title"] != "Write report" {
		t.Errorf("sent title = %v", sent["title"])
	}
}

func TestDeleteAndTimerAction(t *testing.T) {
	client, b := newTestClient(t, staticTokens{"Bearer", "tok"}, func(r *router.Router, b *backend) {
		r.DELETE("/activities/{id}", func(ctx *fasthttp.RequestCtx) {
			b.capture(ctx)
			ctx.SetStatusCode(fasthttp.StatusNoContent)
		})
		r.POST("/activities/{id}/timer", func(ctx *fasthttp.RequestCtx) {
			b.capture(ctx)
			activity := sampleActivity()
			activity.TimerStatus = "running"
			respondJSON(ctx, fasthttp.StatusOK, activity)
		})
	})

	if err := client.Delete(context.Background(), 7); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if b.lastMethod != fasthttp.MethodDelete {
		t.Errorf("method = %q", b.lastMethod)
	}

	activity, err := client.TimerAction(context.Background(), 7, domain.TimerActionStart)
	if err != nil {
		t.Fatalf("timer action: %v", err)
	}
	if activity.TimerStatus != "running" {
		t.Errorf("TimerStatus = %q", activity.TimerStatus)
	}
	var sent map[string]string
	if err := json.Unmarshal(b.lastBody, &sent); err != nil {
		t.Fatalf("unmarshal sent body: %v", err)
	}
	if sent["action"] != "start" {
		t.Errorf("sent action = %q", sent["action"])
	}
}

func TestErrorNormalization(t *testing.T) {
	client, _ := newTestClient(t, staticTokens{}, func(r *router.Router, b *backend) {
		r.POST("/users/login", func(ctx *fasthttp.RequestCtx) {
			respondJSON(ctx, fasthttp.StatusUnauthorized, map[string]string{"detail": "Incorrect email or password"})
		})
		r.GET("/activities/{id}", func(ctx *fasthttp.RequestCtx) {
			respondJSON(ctx, fasthttp.StatusNotFound, map[string]string{"detail": "Activity not found"})
		})
		r.POST("/activities/", func(ctx *fasthttp.RequestCtx) {
			respondJSON(ctx, fasthttp.StatusUnprocessableEntity, map[string]any{
				"detail": []map[string]string{{"msg": "field required"}},
			})
		})
	})

	_, err := client.Login(context.Background(), "a@b.c", "nope")
	if !domain.IsDomainError(err, domain.ErrCodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if domain.ErrorMessage(err) != "Incorrect email or password" {
		t.Errorf("message = %q, want the server detail", domain.ErrorMessage(err))
	}

	_, err = client.Get(context.Background(), 99)
	if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}

	_, err = client.Create(context.Background(), domain.ActivityCreateRequest{})
	if !domain.IsDomainError(err, domain.ErrCodeRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
}

func TestUnreachableBackendIsRemoteError(t *testing.T) {
	hc := &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) {
			return nil, net.ErrClosed
		},
	}
	client := httpapi.New("http://tracker.test", nil, nil,
		httpapi.WithHTTPClient(hc),
		httpapi.WithTimeout(time.Second),
	)

	_, err := client.List(context.Background(), gateway.ActivityFilter{Limit: 15})
	if !domain.IsDomainError(err, domain.ErrCodeRemote) {
		t.Fatalf("expected remote error, got %v", err)
	}
}

func TestAuthEndpoints(t *testing.T) {
	client, b := newTestClient(t, staticTokens{"Bearer", "tok"}, func(r *router.Router, b *backend) {
		r.POST("/users/login", func(ctx *fasthttp.RequestCtx) {
			b.capture(ctx)
			respondJSON(ctx, fasthttp.StatusOK, domain.AuthToken{AccessToken: "fresh", TokenType: "Bearer"})
		})
		r.POST("/users/", func(ctx *fasthttp.RequestCtx) {
			b.capture(ctx)
			respondJSON(ctx, fasthttp.StatusCreated, domain.User{ID: 2, Email: "new@example.com", IsActive: true})
		})
		r.GET("/users/me", func(ctx *fasthttp.RequestCtx) {
			b.capture(ctx)
			respondJSON(ctx, fasthttp.StatusOK, domain.User{ID: 1, Email: "me@example.com", IsActive: true})
		})
	})

	token, err := client.Login(context.Background(), "me@example.com", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token.AccessToken != "fresh" {
		t.Errorf("AccessToken = %q", token.AccessToken)
	}

	user, err := client.Register(context.Background(), "new@example.com", "secret-pass")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "new@example.com" {
		t.Errorf("Email = %q", user.Email)
	}

	me, err := client.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if me.Email != "me@example.com" {
		t.Errorf("Email = %q", me.Email)
	}
	if b.lastAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", b.lastAuth)
	}
}

func TestTagEndpoints(t *testing.T) {
	client, b := newTestClient(t, staticTokens{"Bearer", "tok"}, func(r *router.Router, b *backend) {
		r.GET("/tags/", func(ctx *fasthttp.RequestCtx) {
			b.capture(ctx)
			respondJSON(ctx, fasthttp.StatusOK, []domain.Tag{{ID: 1, Name: "work"}})
		})
		r.POST("/tags/", func(ctx *fasthttp.RequestCtx) {
			b.capture(ctx)
			respondJSON(ctx, fasthttp.StatusCreated, domain.Tag{ID: 2, Name: "home"})
		})
	})

	list, err := client.ListTags(context.Background(), 0, 100)
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	if len(list) != 1 || list[0].Name != "work" {
		t.Errorf("tags = %+v", list)
	}
	if b.lastQuery["limit"] != "100" {
		t.Errorf("query = %v", b.lastQuery)
	}

	tag, err := client.CreateTag(context.Background(), "home")
	if err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if tag.Name != "home" {
		t.Errorf("tag = %+v", tag)
	}
}
