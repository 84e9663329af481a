package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Movement profiles. Both drive the same state machine; they differ only in
// which route provider produces waypoints.
const (
	ModeAuto   = "auto"
	ModeRoute  = "route"
	ModeDirect = "direct"
)

// Config is the static process configuration, read once at startup.
type Config struct {
	BackendURL  string
	RedisURL    string
	RoutingURL  string
	DatabaseURL string
	StatusAddr  string
	LogLevel    string

	MovementMode   string
	NumDrivers     int
	TickInterval   time.Duration
	CallTimeout    time.Duration
	AgentTimeout   time.Duration
	MaxConcurrency int

	PickupDwell    time.Duration
	WanderRadius   float64
	StepsPerTick   int
	DirectStepSize float64

	CenterLat   float64
	CenterLng   float64
	SpawnSpread float64
	Seed        uint64
}

// Load reads an optional .env file and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found (using environment variables)")
	}

	p := &parser{}
	cfg := Config{
		BackendURL:  strings.TrimRight(Get("BACKEND_URL", "http://localhost:4000"), "/"),
		RedisURL:    Get("REDIS_URL", "redis://localhost:6379/0"),
		RoutingURL:  strings.TrimRight(Get("ROUTING_URL", ""), "/"),
		DatabaseURL: Get("DATABASE_URL", ""),
		StatusAddr:  os.Getenv("STATUS_ADDR"),
		LogLevel:    Get("LOG_LEVEL", "info"),

		MovementMode:   strings.ToLower(Get("MOVEMENT_MODE", ModeAuto)),
		NumDrivers:     p.int("NUM_DRIVERS", 50),
		TickInterval:   p.duration("TICK_INTERVAL", time.Second),
		CallTimeout:    p.duration("CALL_TIMEOUT", 2*time.Second),
		AgentTimeout:   p.duration("AGENT_TIMEOUT", 5*time.Second),
		MaxConcurrency: p.int("MAX_CONCURRENCY", 16),

		PickupDwell:    p.duration("PICKUP_DWELL", 3*time.Second),
		WanderRadius:   p.float("WANDER_RADIUS", 0.0005),
		StepsPerTick:   p.int("STEPS_PER_TICK", 1),
		DirectStepSize: p.float("DIRECT_STEP_SIZE", 0.005),

		CenterLat:   p.float("CENTER_LAT", 51.505),
		CenterLng:   p.float("CENTER_LNG", -0.09),
		SpawnSpread: p.float("SPAWN_SPREAD", 0.05),
		Seed:        p.uint64("SEED", 0),
	}
	if _, ok := os.LookupEnv("STATUS_ADDR"); !ok {
		cfg.StatusAddr = ":8081"
	}

	if p.err != nil {
		return Config{}, fmt.Errorf("load config: %w", p.err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

// Validate checks ranges and resolves the auto movement mode.
func (c *Config) Validate() error {
	var errs []error

	if c.BackendURL == "" {
		errs = append(errs, errors.New("BACKEND_URL is required"))
	}
	if c.NumDrivers < 1 {
		errs = append(errs, fmt.Errorf("NUM_DRIVERS must be positive, got %d", c.NumDrivers))
	}
	if c.TickInterval <= 0 {
		errs = append(errs, errors.New("TICK_INTERVAL must be positive"))
	}
	if c.CallTimeout <= 0 || c.AgentTimeout <= 0 {
		errs = append(errs, errors.New("CALL_TIMEOUT and AGENT_TIMEOUT must be positive"))
	}
	if c.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENCY must be positive, got %d", c.MaxConcurrency))
	}
	if c.StepsPerTick < 1 {
		errs = append(errs, fmt.Errorf("STEPS_PER_TICK must be positive, got %d", c.StepsPerTick))
	}
	if c.DirectStepSize <= 0 {
		errs = append(errs, errors.New("DIRECT_STEP_SIZE must be positive"))
	}
	if c.PickupDwell < 0 || c.WanderRadius < 0 || c.SpawnSpread < 0 {
		errs = append(errs, errors.New("PICKUP_DWELL, WANDER_RADIUS and SPAWN_SPREAD must not be negative"))
	}

	switch c.MovementMode {
	case ModeAuto:
		c.MovementMode = ModeDirect
		if c.RoutingURL != "" {
			c.MovementMode = ModeRoute
		}
	case ModeRoute:
		if c.RoutingURL == "" {
			errs = append(errs, errors.New("MOVEMENT_MODE=route requires ROUTING_URL"))
		}
	case ModeDirect:
	default:
		errs = append(errs, fmt.Errorf("unknown MOVEMENT_MODE %q", c.MovementMode))
	}

	return errors.Join(errs...)
}

// Get returns the environment value for key, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// parser collects the first conversion error so Load can report it once.
type parser struct{ err error }

func (p *parser) int(key string, fallback int) int {
	v := Get(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *parser) uint64(key string, fallback uint64) uint64 {
	v := Get(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	v := Get(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return f
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := Get(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return d
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
}
