package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/collabflow/internal/apiclient"
	"github.com/roach88/collabflow/internal/workflow"
)

type reply struct {
	status int
	body   any
}

// fakeBackend records requests and answers from per-route handlers.
type fakeBackend struct {
	mu     sync.Mutex
	calls  []string
	bodies map[string]map[string]any
	routes map[string]func(r *http.Request) reply
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		bodies: make(map[string]map[string]any),
		routes: make(map[string]func(r *http.Request) reply),
	}
}

func (f *fakeBackend) on(route string, fn func(r *http.Request) reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[route] = fn
}

func (f *fakeBackend) json(route string, status int, body any) {
	f.on(route, func(*http.Request) reply { return reply{status, body} })
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.calls = append(f.calls, key)
	if body != nil {
		f.bodies[key] = body
	}
	fn, ok := f.routes[key]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"no route ` + key + `"}`))
		return
	}
	rep := fn(r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rep.status)
	if rep.body != nil {
		_ = json.NewEncoder(w).Encode(rep.body)
	}
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) Body(route string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[route]
}

// fakeBrowser opens windows that close after a number of polls.
type fakeBrowser struct {
	closeAfter int32 // negative: never
	opened     []string
}

type fakeWindow struct {
	polls      atomic.Int32
	closeAfter int32
}

func (w *fakeWindow) Closed() bool {
	n := w.polls.Add(1)
	return w.closeAfter >= 0 && n > w.closeAfter
}

func (b *fakeBrowser) Open(_ context.Context, url string) (Window, error) {
	b.opened = append(b.opened, url)
	return &fakeWindow{closeAfter: b.closeAfter}, nil
}

func newFixture(t *testing.T, opts ...Option) (*fakeBackend, *Service, *workflow.Orchestrator) {
	t.Helper()
	backend := newFakeBackend()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client, err := apiclient.New(srv.URL, apiclient.WithRateLimit(0, 0))
	require.NoError(t, err)

	base := []Option{WithTiming(TestTiming())}
	svc := NewService(client, append(base, opts...)...)
	return backend, svc, workflow.New(nil)
}

func ok200(body any) func(*http.Request) reply {
	return func(*http.Request) reply { return reply{http.StatusOK, body} }
}
