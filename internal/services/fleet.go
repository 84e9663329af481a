package services

import (
	"context"
	"delivery-fleet-sim/internal/domain"
	"delivery-fleet-sim/internal/platform/obs"
	"delivery-fleet-sim/internal/ports"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type FleetConfig struct {
	Size        int
	Center      domain.Coordinates
	SpawnSpread float64
	// Seed for spawn positions and wander offsets; 0 picks one from the clock.
	Seed uint64

	TickInterval   time.Duration
	AgentTimeout   time.Duration
	MaxConcurrency int

	Motion MotionParams
}

// TickResult summarizes one pass over the fleet.
type TickResult struct {
	TickID   string
	Agents   int
	Degraded int
	Reported bool
	Duration time.Duration
}

// TickReport is the snapshot handed to the backend by the latest tick.
type TickReport struct {
	TickID  string
	At      time.Time
	Drivers []domain.AgentSnapshot
}

// Fleet owns a fixed set of agents and drives them one tick at a time.
// Within a tick agents update concurrently; each agent is touched only by
// its own goroutine, and the batch report waits for all of them.
type Fleet struct {
	cfg    FleetConfig
	env    *Env
	agents []*Agent

	mu     sync.RWMutex
	latest TickReport
}

type Option func(*Fleet)

// WithClock replaces the wall clock used for pickup dwell.
func WithClock(now func() time.Time) Option {
	return func(f *Fleet) { f.env.Now = now }
}

// WithAgents replaces the spawned agents, for tests and replays.
func WithAgents(agents ...*Agent) Option {
	return func(f *Fleet) { f.agents = agents }
}

func NewFleet(
	cfg FleetConfig,
	assignments ports.AssignmentSource,
	routes ports.RouteProvider,
	reporter ports.Reporter,
	opts ...Option,
) (*Fleet, error) {
	if assignments == nil || routes == nil || reporter == nil {
		return nil, errors.New("new fleet: assignments, routes and reporter are required")
	}
	if cfg.Size < 1 {
		return nil, fmt.Errorf("new fleet: size must be positive, got %d", cfg.Size)
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if cfg.AgentTimeout <= 0 {
		cfg.AgentTimeout = 5 * time.Second
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Motion.CallTimeout <= 0 || cfg.Motion.CallTimeout >= cfg.AgentTimeout {
		cfg.Motion.CallTimeout = cfg.AgentTimeout / 2
	}
	if cfg.Motion.StepsPerTick < 1 {
		cfg.Motion.StepsPerTick = 1
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}

	f := &Fleet{
		cfg: cfg,
		env: &Env{
			Assignments: assignments,
			Routes:      routes,
			Reporter:    reporter,
			Params:      cfg.Motion,
			Now:         time.Now,
		},
	}
	f.agents = spawn(cfg)

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// spawn places agents uniformly within SpawnSpread degrees of Center.
func spawn(cfg FleetConfig) []*Agent {
	agents := make([]*Agent, 0, cfg.Size)
	for i := 0; i < cfg.Size; i++ {
		rng := rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
		start := domain.Coordinates{
			Lat: cfg.Center.Lat + (rng.Float64()*2-1)*cfg.SpawnSpread,
			Lng: cfg.Center.Lng + (rng.Float64()*2-1)*cfg.SpawnSpread,
		}
		agents = append(agents, NewAgent(fmt.Sprintf("driver_%d", i), start, rng))
	}
	return agents
}

func (f *Fleet) Agents() []*Agent { return f.agents }

// Tick updates every agent exactly once, then pushes one full snapshot.
// It never fails: agent and report errors are logged and counted.
func (f *Fleet) Tick(ctx context.Context) TickResult {
	start := time.Now()
	tickID := uuid.NewString()
	ctx = obs.WithTickID(ctx, tickID)

	errs := make([]error, len(f.agents))
	sem := make(chan struct{}, f.cfg.MaxConcurrency)
	var wg sync.WaitGroup

	for i, a := range f.agents {
		wg.Add(1)
		go func(i int, a *Agent) {
			sem <- struct{}{}
			defer wg.Done()
			defer func() { <-sem }()

			actx, cancel := context.WithTimeout(ctx, f.cfg.AgentTimeout)
			defer cancel()

			errs[i] = a.Update(actx, f.env)
		}(i, a)
	}

	wg.Wait()

	res := TickResult{TickID: tickID, Agents: len(f.agents)}

	for i, err := range errs {
		if err == nil {
			continue
		}
		res.Degraded++

		entry := log.WithFields(log.Fields{"tick_id": tickID, "driver_id": f.agents[i].ID()}).WithError(err)
		if errors.Is(err, ports.ErrInvariant) {
			entry.Error("agent reset to IDLE")
			continue
		}
		entry.Warn("agent update degraded")
	}

	drivers := make([]domain.AgentSnapshot, 0, len(f.agents))
	for _, a := range f.agents {
		drivers = append(drivers, a.Snapshot())
	}

	if err := f.env.Reporter.ReportLocations(ctx, drivers); err != nil {
		log.WithFields(log.Fields{"tick_id": tickID}).WithError(err).Warn("fleet snapshot not reported")
	} else {
		res.Reported = true
	}

	f.mu.Lock()
	f.latest = TickReport{TickID: tickID, At: time.Now(), Drivers: drivers}
	f.mu.Unlock()

	res.Duration = time.Since(start)

	log.WithFields(log.Fields{
		"tick_id":  tickID,
		"agents":   res.Agents,
		"degraded": res.Degraded,
		"reported": res.Reported,
		"dur_ms":   res.Duration.Milliseconds(),
	}).Debug("tick done")

	return res
}

// Run ticks at the configured interval until ctx is cancelled.
func (f *Fleet) Run(ctx context.Context) error {
	log.WithFields(log.Fields{
		"drivers":  len(f.agents),
		"interval": f.cfg.TickInterval,
	}).Info("fleet simulation running")

	ticker := time.NewTicker(f.cfg.TickInterval)
	defer ticker.Stop()

	for {
		res := f.Tick(ctx)
		if res.Duration > f.cfg.TickInterval {
			log.WithFields(log.Fields{
				"tick_id":  res.TickID,
				"dur_ms":   res.Duration.Milliseconds(),
				"interval": f.cfg.TickInterval,
			}).Warn("tick overran interval")
		}

		select {
		case <-ctx.Done():
			log.Info("fleet simulation stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Latest returns a copy of the most recent tick report.
func (f *Fleet) Latest() TickReport {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := f.latest
	out.Drivers = append([]domain.AgentSnapshot(nil), f.latest.Drivers...)
	return out
}
