package repositories

import (
	"context"
	"delivery-fleet-sim/internal/adapters/assignments"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// MissionWriter stores pending mission records.
type MissionWriter interface {
	Put(ctx context.Context, rec assignments.MissionRecord) error
}

// Populate the assignment store with mission records from a JSON array file.
// Every record is validated before any is written.
func SeedMissionsFromJSON(ctx context.Context, w MissionWriter, jsonPath string) (int, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed missions: read %q: %w", jsonPath, err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return 0, fmt.Errorf("seed missions: parse json: %w", err)
	}

	records := make([]assignments.MissionRecord, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for i, item := range raw {
		if _, err := assignments.ParseMission(item); err != nil {
			return 0, fmt.Errorf("seed missions: item %d: %w", i+1, err)
		}

		var rec assignments.MissionRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			return 0, fmt.Errorf("seed missions: item %d: %w", i+1, err)
		}

		driverID := strings.TrimSpace(rec.DriverID)
		if driverID == "" {
			return 0, fmt.Errorf("seed missions: item %d: driverId cannot be empty", i+1)
		}
		if _, dup := seen[driverID]; dup {
			return 0, fmt.Errorf("seed missions: item %d: driver %q already has a mission", i+1, driverID)
		}
		seen[driverID] = struct{}{}

		rec.DriverID = driverID
		records = append(records, rec)
	}

	for _, rec := range records {
		if err := w.Put(ctx, rec); err != nil {
			return 0, fmt.Errorf("seed missions: %w", err)
		}
	}

	return len(records), nil
}
