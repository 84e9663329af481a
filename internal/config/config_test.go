package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ROUTING_URL", "")
	t.Setenv("MOVEMENT_MODE", "")
	t.Setenv("NUM_DRIVERS", "")
	t.Setenv("TICK_INTERVAL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.NumDrivers != 50 {
		t.Fatalf("NumDrivers = %d, want 50", cfg.NumDrivers)
	}
	if cfg.TickInterval != time.Second {
		t.Fatalf("TickInterval = %v, want 1s", cfg.TickInterval)
	}
	if cfg.MovementMode != ModeDirect {
		t.Fatalf("MovementMode = %q, want %q without ROUTING_URL", cfg.MovementMode, ModeDirect)
	}
	if cfg.PickupDwell != 3*time.Second {
		t.Fatalf("PickupDwell = %v, want 3s", cfg.PickupDwell)
	}
}

func TestLoadAutoSelectsRouteMode(t *testing.T) {
	t.Setenv("ROUTING_URL", "http://osrm:5000/")
	t.Setenv("MOVEMENT_MODE", "auto")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MovementMode != ModeRoute {
		t.Fatalf("MovementMode = %q, want %q", cfg.MovementMode, ModeRoute)
	}
	if cfg.RoutingURL != "http://osrm:5000" {
		t.Fatalf("RoutingURL = %q, want trailing slash trimmed", cfg.RoutingURL)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"NUM_DRIVERS":   "many",
		"TICK_INTERVAL": "-1s",
		"MOVEMENT_MODE": "teleport",
		"SEED":          "-1",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load with %s=%q returned nil error", key, value)
			}
		})
	}
}

func TestRouteModeRequiresRoutingURL(t *testing.T) {
	t.Setenv("ROUTING_URL", "")
	t.Setenv("MOVEMENT_MODE", "route")

	if _, err := Load(); err == nil {
		t.Fatalf("Load returned nil error for route mode without ROUTING_URL")
	}
}

func TestLoadSeed(t *testing.T) {
	t.Setenv("SEED", "18446744073709551615")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Seed != 18446744073709551615 {
		t.Fatalf("Seed = %d, want max uint64", cfg.Seed)
	}
}
