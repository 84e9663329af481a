package services

import (
	"context"
	"delivery-fleet-sim/internal/domain"
	"delivery-fleet-sim/internal/ports"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	log "github.com/sirupsen/logrus"
)

// MotionParams are the tunable constants of the motion model.
type MotionParams struct {
	// Waypoints consumed per tick.
	StepsPerTick int
	// Wall-clock loading time at the warehouse.
	PickupDwell time.Duration
	// Maximum idle random offset, in degrees per axis.
	WanderRadius float64
	// Budget of a single route lookup; 0 leaves only the caller's deadline.
	// Kept below the agent timeout so the leg broadcast still has time left.
	CallTimeout time.Duration
}

// Env holds the collaborators shared by every agent of a fleet.
// Agents never mutate it.
type Env struct {
	Assignments ports.AssignmentSource
	Routes      ports.RouteProvider
	Reporter    ports.Reporter
	Params      MotionParams
	Now         func() time.Time
}

// Agent is one simulated driver. It is mutated only by its own Update call
// and must not be updated concurrently with itself.
type Agent struct {
	id     string
	pos    domain.Coordinates
	status domain.Status

	route  domain.Route
	cursor int

	mission         *domain.Mission
	pickupStartedAt time.Time
	lastCompleted   string

	rng *rand.Rand
}

// NewAgent creates an IDLE agent with no route and no mission.
func NewAgent(id string, start domain.Coordinates, rng *rand.Rand) *Agent {
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &Agent{
		id:     id,
		pos:    start,
		status: domain.StatusIdle,
		rng:    rng,
	}
}

func (a *Agent) ID() string                   { return a.id }
func (a *Agent) Status() domain.Status        { return a.status }
func (a *Agent) Position() domain.Coordinates { return a.pos }

// Route returns a copy of the route currently being consumed.
func (a *Agent) Route() domain.Route { return append(domain.Route(nil), a.route...) }

// Mission returns a copy of the active mission, or nil.
func (a *Agent) Mission() *domain.Mission {
	if a.mission == nil {
		return nil
	}
	m := *a.mission
	return &m
}

func (a *Agent) Snapshot() domain.AgentSnapshot {
	return domain.AgentSnapshot{ID: a.id, Lat: a.pos.Lat, Lng: a.pos.Lng, Status: a.status}
}

// Update advances the agent by exactly one step of its state machine.
//
// Dependency failures never stop the machine: each has a fallback and is
// returned joined so the caller can log it. A broken invariant or a panic
// resets the agent to IDLE and returns an error wrapping ErrInvariant.
func (a *Agent) Update(ctx context.Context, env *Env) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.reset()
			err = fmt.Errorf("agent %s: %w: panic: %v", a.id, ports.ErrInvariant, r)
		}
	}()

	if !a.status.Valid() || a.status.OnMission() != (a.mission != nil) {
		bad, held := a.status, a.mission != nil
		a.reset()
		return fmt.Errorf("agent %s: %w: status=%q mission=%v", a.id, ports.ErrInvariant, bad, held)
	}

	switch a.status {
	case domain.StatusIdle:
		return a.updateIdle(ctx, env)
	case domain.StatusToWarehouse:
		a.updateToWarehouse(env)
		return nil
	case domain.StatusPickup:
		return a.updatePickup(ctx, env)
	default:
		return a.updateToCustomer(ctx, env)
	}
}

func (a *Agent) updateIdle(ctx context.Context, env *Env) error {
	var errs []error

	m, err := env.Assignments.Pending(ctx, a.id)
	if err != nil {
		// Unreachable store or unparseable record: no mission this tick.
		errs = append(errs, fmt.Errorf("poll mission: %w", err))
		m = nil
	}

	if m != nil && m.ID == a.lastCompleted {
		// Delivered already; an earlier consume must have failed.
		if err := env.Assignments.Consume(ctx, a.id); err != nil {
			errs = append(errs, fmt.Errorf("consume stale mission %s: %w", m.ID, err))
		}
		m = nil
	}

	if m == nil {
		a.wander(ctx, env)
		return errors.Join(errs...)
	}

	errs = append(errs, a.accept(ctx, env, *m))
	return errors.Join(errs...)
}

func (a *Agent) accept(ctx context.Context, env *Env, m domain.Mission) error {
	var errs []error

	a.mission = &m
	a.clearRoute()
	a.status = domain.StatusToWarehouse

	// Consume before routing so a slow route call can never lead to the
	// same record being accepted twice.
	if err := env.Assignments.Consume(ctx, a.id); err != nil {
		errs = append(errs, fmt.Errorf("consume mission %s: %w", m.ID, err))
	}

	log.WithFields(log.Fields{
		"driver_id": a.id,
		"order_id":  m.ID,
		"warehouse": m.Warehouse.Name,
	}).Info("mission accepted")

	route, err := a.routeTo(ctx, env, m.Pickup)
	if err != nil {
		errs = append(errs, err)
	}
	a.setRoute(route)

	errs = append(errs, a.broadcastLeg(ctx, env, domain.LegPickup))
	return errors.Join(errs...)
}

func (a *Agent) updateToWarehouse(env *Env) {
	if !a.step(env.Params.StepsPerTick) {
		return
	}

	a.clearRoute()
	a.status = domain.StatusPickup
	a.pickupStartedAt = env.Now()

	log.WithFields(log.Fields{"driver_id": a.id, "order_id": a.mission.ID}).Info("arrived at warehouse")
}

func (a *Agent) updatePickup(ctx context.Context, env *Env) error {
	if env.Now().Sub(a.pickupStartedAt) < env.Params.PickupDwell {
		return nil
	}

	var errs []error

	a.status = domain.StatusToCustomer
	route, err := a.routeTo(ctx, env, a.mission.Dropoff)
	if err != nil {
		errs = append(errs, err)
	}
	a.setRoute(route)

	log.WithFields(log.Fields{
		"driver_id": a.id,
		"order_id":  a.mission.ID,
		"leg_m":     int(route.LengthMeters()),
	}).Info("delivering")

	errs = append(errs, a.broadcastLeg(ctx, env, domain.LegDelivery))
	return errors.Join(errs...)
}

func (a *Agent) updateToCustomer(ctx context.Context, env *Env) error {
	if !a.step(env.Params.StepsPerTick) {
		return nil
	}

	orderID := a.mission.ID
	log.WithFields(log.Fields{"driver_id": a.id, "order_id": orderID}).Info("mission delivered")

	a.lastCompleted = orderID
	a.reset()

	// Best effort: the agent is IDLE whatever the outcome.
	if err := env.Reporter.ReportCompletion(ctx, domain.CompletionEvent{OrderID: orderID, DriverID: a.id}); err != nil {
		return fmt.Errorf("report completion: %w", err)
	}
	return nil
}

// wander keeps an idle agent moving along short random routes. Wander
// routes are never broadcast and their failures are not degradations.
func (a *Agent) wander(ctx context.Context, env *Env) {
	if len(a.route) == 0 {
		r := env.Params.WanderRadius
		target := domain.Coordinates{
			Lat: a.pos.Lat + (a.rng.Float64()*2-1)*r,
			Lng: a.pos.Lng + (a.rng.Float64()*2-1)*r,
		}

		route, err := a.routeTo(ports.WithoutRouteCache(ctx), env, target)
		if err != nil {
			log.WithFields(log.Fields{"driver_id": a.id}).WithError(err).Debug("wander route unavailable")
		}
		a.setRoute(route)
	}

	if a.step(env.Params.StepsPerTick) {
		a.clearRoute()
	}
}

// routeTo asks the provider for a route from the current position. On any
// failure it returns the single-waypoint jump to target plus the error.
//
// The call is abandoned after CallTimeout, or when ctx expires, even if the
// provider ignores ctx.
func (a *Agent) routeTo(ctx context.Context, env *Env, target domain.Coordinates) (domain.Route, error) {
	type result struct {
		route domain.Route
		err   error
	}

	if env.Params.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, env.Params.CallTimeout)
		defer cancel()
	}

	ch := make(chan result, 1)
	origin := a.pos
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- result{err: fmt.Errorf("route provider panic: %v", p)}
			}
		}()
		r, err := env.Routes.Route(ctx, origin, target)
		ch <- result{route: r, err: err}
	}()

	var res result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.err = ctx.Err()
	}

	if res.err == nil && len(res.route) == 0 {
		res.err = ports.ErrNoRoute
	}
	if res.err != nil {
		return domain.Route{target}, fmt.Errorf("route to %s: %w", target, res.err)
	}
	return res.route, nil
}

func (a *Agent) broadcastLeg(ctx context.Context, env *Env, leg domain.LegType) error {
	ev := domain.RouteEvent{
		DriverID: a.id,
		OrderID:  a.mission.ID,
		Type:     leg,
		Route:    a.Route(),
	}
	if err := env.Reporter.ReportRoute(ctx, ev); err != nil {
		return fmt.Errorf("report %s route: %w", leg, err)
	}
	return nil
}

// step consumes waypoints and reports arrival. An empty route counts as
// arrived without moving.
func (a *Agent) step(steps int) bool {
	if len(a.route) == 0 {
		return true
	}

	pos, cursor, arrived := domain.AdvanceAlongPath(a.route, a.cursor, steps)
	a.pos, a.cursor = pos, cursor
	return arrived
}

func (a *Agent) setRoute(r domain.Route) {
	a.route = r
	a.cursor = 0
}

func (a *Agent) clearRoute() {
	a.route = nil
	a.cursor = 0
}

// reset returns the agent to IDLE, dropping mission context and route.
// Position is kept.
func (a *Agent) reset() {
	a.status = domain.StatusIdle
	a.mission = nil
	a.pickupStartedAt = time.Time{}
	a.clearRoute()
}
