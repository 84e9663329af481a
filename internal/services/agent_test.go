package services

import (
	"context"
	"delivery-fleet-sim/internal/adapters/routing"
	"delivery-fleet-sim/internal/domain"
	"delivery-fleet-sim/internal/ports"
	"errors"
	"math/rand/v2"
	"testing"
	"time"
)

func newTestEnv(src *fakeSource, routes ports.RouteProvider, rep *fakeReporter, clock *fakeClock) *Env {
	return &Env{
		Assignments: src,
		Routes:      routes,
		Reporter:    rep,
		Params: MotionParams{
			StepsPerTick: 1,
			PickupDwell:  3 * time.Second,
			WanderRadius: 0,
		},
		Now: clock.Now,
	}
}

func newTestAgent(id string, pos domain.Coordinates) *Agent {
	return NewAgent(id, pos, rand.New(rand.NewPCG(1, 2)))
}

func TestNewAgentIsIdle(t *testing.T) {
	fleet, err := NewFleet(
		FleetConfig{Size: 5, Center: domain.Coordinates{Lat: 51.505, Lng: -0.09}, SpawnSpread: 0.05, Seed: 7},
		newFakeSource(), emptyRoutes, &fakeReporter{},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, a := range fleet.Agents() {
		if a.Status() != domain.StatusIdle {
			t.Fatalf("%s status = %s, want IDLE", a.ID(), a.Status())
		}
		if len(a.Route()) != 0 {
			t.Fatalf("%s route = %v, want empty", a.ID(), a.Route())
		}
		if a.Mission() != nil {
			t.Fatalf("%s mission = %v, want nil", a.ID(), a.Mission())
		}
		if d := domain.Distance(a.Position(), domain.Coordinates{Lat: 51.505, Lng: -0.09}); d > 0.05*1.5 {
			t.Fatalf("%s spawned %v away from centre", a.ID(), d)
		}
	}
}

func TestAgentDirectJumpScenario(t *testing.T) {
	src := newFakeSource()
	rep := &fakeReporter{}
	clock := newFakeClock()
	env := newTestEnv(src, emptyRoutes, rep, clock)
	ctx := context.Background()

	pickup := domain.Coordinates{Lat: 1, Lng: 0}
	dropoff := domain.Coordinates{Lat: 1, Lng: 1}
	src.add("driver_0", domain.Mission{ID: "m1", Pickup: pickup, Dropoff: dropoff})

	a := newTestAgent("driver_0", domain.Coordinates{})

	// Tick 1: accept, consume, fall back to a direct jump.
	err := a.Update(ctx, env)
	if !errors.Is(err, ports.ErrNoRoute) {
		t.Fatalf("err = %v, want ErrNoRoute degradation", err)
	}
	if a.Status() != domain.StatusToWarehouse {
		t.Fatalf("status = %s, want TO_WAREHOUSE", a.Status())
	}
	if src.has("driver_0") {
		t.Fatalf("mission not consumed on acceptance")
	}
	if len(rep.routes) != 1 || rep.routes[0].Type != domain.LegPickup || rep.routes[0].OrderID != "m1" {
		t.Fatalf("route events = %+v, want one pickup event for m1", rep.routes)
	}
	if r := rep.routes[0].Route; len(r) != 1 || r[0] != pickup {
		t.Fatalf("pickup route = %v, want [%v]", r, pickup)
	}

	// Tick 2: jump to the warehouse.
	if err := a.Update(ctx, env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Position() != pickup || a.Status() != domain.StatusPickup {
		t.Fatalf("after tick 2 = (%v, %s), want (%v, PICKUP)", a.Position(), a.Status(), pickup)
	}
	if len(a.Route()) != 0 {
		t.Fatalf("route not cleared on arrival: %v", a.Route())
	}

	// Dwell not over yet.
	clock.Advance(time.Second)
	if err := a.Update(ctx, env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status() != domain.StatusPickup || a.Position() != pickup {
		t.Fatalf("left pickup early: (%v, %s)", a.Position(), a.Status())
	}

	clock.Advance(2 * time.Second)
	_ = a.Update(ctx, env)
	if a.Status() != domain.StatusToCustomer {
		t.Fatalf("status = %s, want TO_CUSTOMER after dwell", a.Status())
	}
	if len(rep.routes) != 2 || rep.routes[1].Type != domain.LegDelivery {
		t.Fatalf("route events = %+v, want a delivery event", rep.routes)
	}

	if err := a.Update(ctx, env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Position() != dropoff {
		t.Fatalf("position = %v, want %v", a.Position(), dropoff)
	}
	if a.Status() != domain.StatusIdle || a.Mission() != nil {
		t.Fatalf("after delivery = (%s, %v), want IDLE without mission", a.Status(), a.Mission())
	}
	if len(rep.completions) != 1 || rep.completions[0] != (domain.CompletionEvent{OrderID: "m1", DriverID: "driver_0"}) {
		t.Fatalf("completions = %+v, want one for m1", rep.completions)
	}
}

func TestAgentFollowsRoute(t *testing.T) {
	start := domain.Coordinates{Lat: 0, Lng: 0}
	pickup := domain.Coordinates{Lat: 0, Lng: 3}
	leg := domain.Route{start, {Lat: 0, Lng: 1}, {Lat: 0, Lng: 2}, pickup}

	routes := routing.NewMockRouteProvider([]routing.MockLeg{{From: start, To: pickup, Route: leg}})
	src := newFakeSource()
	rep := &fakeReporter{}
	env := newTestEnv(src, routes, rep, newFakeClock())
	ctx := context.Background()

	src.add("driver_0", domain.Mission{ID: "7", Pickup: pickup, Dropoff: start})
	a := newTestAgent("driver_0", start)

	if err := a.Update(ctx, env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, want := range leg[1:] {
		if a.Status() != domain.StatusToWarehouse {
			t.Fatalf("step %d: status = %s, want TO_WAREHOUSE", i, a.Status())
		}
		_ = a.Update(ctx, env)
		if a.Position() != want {
			t.Fatalf("step %d: position = %v, want %v", i, a.Position(), want)
		}
	}
	if a.Status() != domain.StatusPickup {
		t.Fatalf("status = %s, want PICKUP", a.Status())
	}
}

func TestMissionAcceptedExactlyOnce(t *testing.T) {
	src := newFakeSource()
	rep := &fakeReporter{}
	env := newTestEnv(src, emptyRoutes, rep, newFakeClock())
	env.Params.PickupDwell = 0
	ctx := context.Background()

	src.add("driver_0", domain.Mission{ID: "m1", Pickup: domain.Coordinates{Lat: 1}, Dropoff: domain.Coordinates{Lat: 2}})
	a := newTestAgent("driver_0", domain.Coordinates{})

	_ = a.Update(ctx, env)
	polls := src.pending

	for i := 0; i < 3; i++ {
		_ = a.Update(ctx, env)
	}
	if src.pending != polls {
		t.Fatalf("polled %d more times while on a mission", src.pending-polls)
	}
	if a.Status() != domain.StatusIdle {
		t.Fatalf("status = %s, want IDLE after delivery", a.Status())
	}

	for i := 0; i < 5; i++ {
		_ = a.Update(ctx, env)
	}
	if len(rep.completions) != 1 {
		t.Fatalf("completions = %d, want 1", len(rep.completions))
	}
	pickups := 0
	for _, ev := range rep.routes {
		if ev.Type == domain.LegPickup {
			pickups++
		}
	}
	if pickups != 1 {
		t.Fatalf("pickup legs = %d, want 1", pickups)
	}
}

func TestFailedConsumeDoesNotReplayMission(t *testing.T) {
	src := newFakeSource()
	src.consumeErr = errors.New("store read-only")
	rep := &fakeReporter{}
	env := newTestEnv(src, emptyRoutes, rep, newFakeClock())
	env.Params.PickupDwell = 0
	ctx := context.Background()

	src.add("driver_0", domain.Mission{ID: "m1", Pickup: domain.Coordinates{Lat: 1}, Dropoff: domain.Coordinates{Lat: 2}})
	a := newTestAgent("driver_0", domain.Coordinates{})

	if err := a.Update(ctx, env); err == nil {
		t.Fatalf("expected consume failure to be reported")
	}
	if a.Status() != domain.StatusToWarehouse {
		t.Fatalf("status = %s, want TO_WAREHOUSE despite consume failure", a.Status())
	}

	for i := 0; i < 10; i++ {
		_ = a.Update(ctx, env)
	}
	if len(rep.completions) != 1 {
		t.Fatalf("completions = %d, want 1", len(rep.completions))
	}
	if a.Status() != domain.StatusIdle {
		t.Fatalf("status = %s, want IDLE; stale record must not be re-accepted", a.Status())
	}
}

func TestTransitionsFollowMissionCycle(t *testing.T) {
	src := newFakeSource()
	rep := &fakeReporter{}
	clock := newFakeClock()
	env := newTestEnv(src, routing.NewStraightLineProvider(0.3), rep, clock)
	env.Params.WanderRadius = 0.1
	ctx := context.Background()

	a := newTestAgent("driver_0", domain.Coordinates{})
	prev := a.Status()
	missions := 0

	for tick := 0; tick < 400; tick++ {
		if tick%25 == 0 {
			missions++
			src.add("driver_0", domain.Mission{
				ID:      string(rune('a' + missions)),
				Pickup:  domain.Coordinates{Lat: float64(missions), Lng: 0},
				Dropoff: domain.Coordinates{Lat: 0, Lng: float64(missions)},
			})
		}
		clock.Advance(time.Second)

		_ = a.Update(ctx, env)

		cur := a.Status()
		if cur != prev && cur != prev.Next() {
			t.Fatalf("tick %d: illegal transition %s -> %s", tick, prev, cur)
		}
		if cur.OnMission() != (a.Mission() != nil) {
			t.Fatalf("tick %d: status %s with mission %v", tick, cur, a.Mission())
		}
		prev = cur
	}

	if len(rep.completions) == 0 {
		t.Fatalf("no mission completed in 400 ticks")
	}
}

func TestRouteFailureStillReachesDestination(t *testing.T) {
	failing := routeFunc(func(context.Context, domain.Coordinates, domain.Coordinates) (domain.Route, error) {
		return nil, errors.New("routing service down")
	})

	src := newFakeSource()
	rep := &fakeReporter{}
	env := newTestEnv(src, failing, rep, newFakeClock())
	env.Params.PickupDwell = 0
	ctx := context.Background()

	dropoff := domain.Coordinates{Lat: 5, Lng: 5}
	src.add("driver_0", domain.Mission{ID: "m9", Pickup: domain.Coordinates{Lat: 3}, Dropoff: dropoff})
	a := newTestAgent("driver_0", domain.Coordinates{})

	for i := 0; i < 10 && len(rep.completions) == 0; i++ {
		_ = a.Update(ctx, env)
	}

	if len(rep.completions) != 1 {
		t.Fatalf("mission never completed with failing routes")
	}
	if a.Position() != dropoff {
		t.Fatalf("position = %v, want %v", a.Position(), dropoff)
	}
}

func TestCompletionReportFailureStillGoesIdle(t *testing.T) {
	src := newFakeSource()
	rep := &fakeReporter{completionErr: errors.New("backend 500")}
	env := newTestEnv(src, emptyRoutes, rep, newFakeClock())
	env.Params.PickupDwell = 0
	ctx := context.Background()

	src.add("driver_0", domain.Mission{ID: "m1", Pickup: domain.Coordinates{Lat: 1}, Dropoff: domain.Coordinates{Lat: 2}})
	a := newTestAgent("driver_0", domain.Coordinates{})

	var last error
	for i := 0; i < 4; i++ {
		last = a.Update(ctx, env)
	}

	if a.Status() != domain.StatusIdle || a.Mission() != nil {
		t.Fatalf("after failed completion report = (%s, %v), want IDLE", a.Status(), a.Mission())
	}
	if last == nil {
		t.Fatalf("completion report failure was not surfaced")
	}
}

func TestPollFailuresKeepAgentIdle(t *testing.T) {
	cases := map[string]error{
		"store down": errors.New("connection refused"),
		"malformed":  ports.ErrMalformedMission,
	}

	for name, pollErr := range cases {
		t.Run(name, func(t *testing.T) {
			src := newFakeSource()
			src.pendingErr = pollErr
			rep := &fakeReporter{}
			env := newTestEnv(src, emptyRoutes, rep, newFakeClock())

			a := newTestAgent("driver_0", domain.Coordinates{})
			err := a.Update(context.Background(), env)

			if !errors.Is(err, pollErr) {
				t.Fatalf("err = %v, want %v", err, pollErr)
			}
			if a.Status() != domain.StatusIdle || a.Mission() != nil {
				t.Fatalf("status = %s, want IDLE", a.Status())
			}
			if src.consumed != 0 {
				t.Fatalf("consumed %d records after a failed poll", src.consumed)
			}
		})
	}
}

func TestWanderNeverBroadcasts(t *testing.T) {
	src := newFakeSource()
	rep := &fakeReporter{}
	env := newTestEnv(src, routing.NewStraightLineProvider(0.0001), rep, newFakeClock())
	env.Params.WanderRadius = 0.0005
	ctx := context.Background()

	origin := domain.Coordinates{Lat: 51.5, Lng: -0.1}
	a := newTestAgent("driver_0", origin)

	moved := false
	for i := 0; i < 20; i++ {
		if err := a.Update(ctx, env); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.Position() != origin {
			moved = true
		}
	}

	if !moved {
		t.Fatalf("idle agent never moved")
	}
	if len(rep.routes) != 0 {
		t.Fatalf("wander emitted %d route events", len(rep.routes))
	}
	if a.Status() != domain.StatusIdle {
		t.Fatalf("status = %s, want IDLE", a.Status())
	}
}

func TestOnlyMissionLegsAreCacheable(t *testing.T) {
	pickup := domain.Coordinates{Lat: 1, Lng: 0}
	var wanderCached, pickupCached []bool

	routes := routeFunc(func(ctx context.Context, o, d domain.Coordinates) (domain.Route, error) {
		if d == pickup {
			pickupCached = append(pickupCached, !ports.RouteCacheDisabled(ctx))
		} else {
			wanderCached = append(wanderCached, !ports.RouteCacheDisabled(ctx))
		}
		return domain.Route{o, d}, nil
	})

	src := newFakeSource()
	env := newTestEnv(src, routes, &fakeReporter{}, newFakeClock())
	env.Params.WanderRadius = 0.0005
	ctx := context.Background()

	a := newTestAgent("driver_0", domain.Coordinates{})
	if err := a.Update(ctx, env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	src.add("driver_0", domain.Mission{ID: "m1", Pickup: pickup, Dropoff: domain.Coordinates{Lat: 2}})
	if err := a.Update(ctx, env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(wanderCached) != 1 || wanderCached[0] {
		t.Fatalf("wander lookups cacheable = %v, want one uncached lookup", wanderCached)
	}
	if len(pickupCached) != 1 || !pickupCached[0] {
		t.Fatalf("pickup lookups cacheable = %v, want one cacheable lookup", pickupCached)
	}
}

func TestInvariantViolationResetsAgent(t *testing.T) {
	env := newTestEnv(newFakeSource(), emptyRoutes, &fakeReporter{}, newFakeClock())

	cases := []struct {
		name    string
		status  domain.Status
		mission *domain.Mission
	}{
		{"mission state without mission", domain.StatusToCustomer, nil},
		{"idle with mission", domain.StatusIdle, &domain.Mission{ID: "x"}},
		{"unknown state", domain.Status("LOST"), nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestAgent("driver_0", domain.Coordinates{Lat: 1, Lng: 1})
			a.status = tc.status
			a.mission = tc.mission
			a.route = domain.Route{{Lat: 2, Lng: 2}}

			err := a.Update(context.Background(), env)
			if !errors.Is(err, ports.ErrInvariant) {
				t.Fatalf("err = %v, want ErrInvariant", err)
			}
			if a.Status() != domain.StatusIdle || a.Mission() != nil || len(a.Route()) != 0 {
				t.Fatalf("agent not reset: (%s, %v, %v)", a.Status(), a.Mission(), a.Route())
			}
			if a.Position() != (domain.Coordinates{Lat: 1, Lng: 1}) {
				t.Fatalf("position changed on reset: %v", a.Position())
			}
		})
	}
}
