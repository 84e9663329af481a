package services

import (
	"context"
	"delivery-fleet-sim/internal/domain"
	"sync"
	"time"
)

type fakeSource struct {
	mu         sync.Mutex
	missions   map[string]domain.Mission
	pendingErr error
	consumeErr error
	pending    int
	consumed   int
}

func newFakeSource() *fakeSource {
	return &fakeSource{missions: map[string]domain.Mission{}}
}

func (s *fakeSource) add(agentID string, m domain.Mission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missions[agentID] = m
}

func (s *fakeSource) has(agentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.missions[agentID]
	return ok
}

func (s *fakeSource) Pending(_ context.Context, agentID string) (*domain.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending++
	if s.pendingErr != nil {
		return nil, s.pendingErr
	}
	m, ok := s.missions[agentID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (s *fakeSource) Consume(_ context.Context, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumed++
	if s.consumeErr != nil {
		return s.consumeErr
	}
	delete(s.missions, agentID)
	return nil
}

type fakeReporter struct {
	mu            sync.Mutex
	batches       [][]domain.AgentSnapshot
	routes        []domain.RouteEvent
	completions   []domain.CompletionEvent
	locationsErr  error
	routeErr      error
	completionErr error
	panicOnRoute  bool
}

func (r *fakeReporter) ReportLocations(_ context.Context, drivers []domain.AgentSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, drivers)
	return r.locationsErr
}

// ReportRoute drops events sent on a finished context, like a real HTTP call.
func (r *fakeReporter) ReportRoute(ctx context.Context, ev domain.RouteEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panicOnRoute {
		panic("route sink exploded")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.routes = append(r.routes, ev)
	return r.routeErr
}

func (r *fakeReporter) ReportCompletion(_ context.Context, ev domain.CompletionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions = append(r.completions, ev)
	return r.completionErr
}

// routeFunc adapts a function to ports.RouteProvider.
type routeFunc func(ctx context.Context, o, d domain.Coordinates) (domain.Route, error)

func (f routeFunc) Route(ctx context.Context, o, d domain.Coordinates) (domain.Route, error) {
	return f(ctx, o, d)
}

var emptyRoutes = routeFunc(func(context.Context, domain.Coordinates, domain.Coordinates) (domain.Route, error) {
	return nil, nil
})

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
