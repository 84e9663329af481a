package assignments

import (
	"bytes"
	"context"
	"delivery-fleet-sim/internal/domain"
	"delivery-fleet-sim/internal/platform/obs"
	"delivery-fleet-sim/internal/ports"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const missionPrefix = "mission:"

// MissionKey is the store key holding the pending mission of a driver.
func MissionKey(agentID string) string { return missionPrefix + agentID }

// RedisAssignmentSource reads mission records written by the dispatch
// backend as JSON strings under mission:{driverId}.
type RedisAssignmentSource struct {
	rdb     *redis.Client
	timeout time.Duration
}

func NewRedisAssignmentSource(rdb *redis.Client, timeout time.Duration) *RedisAssignmentSource {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisAssignmentSource{rdb: rdb, timeout: timeout}
}

// NewRedis builds a client from a redis:// URL and checks it answers PING.
func NewRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opt.Addr, err)
	}
	return rdb, nil
}

// MustRedis is NewRedis with a 5s startup budget that exits on failure.
func MustRedis(url string) *redis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rdb, err := NewRedis(ctx, url)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return rdb
}

// MissionRecord is the wire format of a pending mission.
type MissionRecord struct {
	OrderID   json.RawMessage `json:"orderId"`
	DriverID  string          `json:"driverId"`
	Warehouse struct {
		ID   int      `json:"id"`
		Name string   `json:"name"`
		Lat  *float64 `json:"lat"`
		Lng  *float64 `json:"lng"`
	} `json:"warehouse"`
	Customer struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	} `json:"customer"`
}

func (s *RedisAssignmentSource) Pending(ctx context.Context, agentID string) (_ *domain.Mission, err error) {
	defer obs.Time(ctx, "assignments.Pending")(&err)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.rdb.Get(ctx, MissionKey(agentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pending mission for %q: %w", agentID, err)
	}

	m, err := ParseMission(raw)
	if err != nil {
		return nil, fmt.Errorf("get pending mission for %q: %w", agentID, err)
	}
	if m.DriverID == "" {
		m.DriverID = agentID
	}

	return m, nil
}

func (s *RedisAssignmentSource) Consume(ctx context.Context, agentID string) (err error) {
	defer obs.Time(ctx, "assignments.Consume")(&err)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.rdb.Del(ctx, MissionKey(agentID)).Err(); err != nil {
		return fmt.Errorf("consume mission for %q: %w", agentID, err)
	}
	return nil
}

// Put stores a mission record for its driver, replacing any pending one.
func (s *RedisAssignmentSource) Put(ctx context.Context, rec MissionRecord) error {
	if strings.TrimSpace(rec.DriverID) == "" {
		return errors.New("put mission: driverId must be non-empty")
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("put mission: encode: %w", err)
	}

	if err := s.rdb.Set(ctx, MissionKey(rec.DriverID), payload, 0).Err(); err != nil {
		return fmt.Errorf("put mission for %q: %w", rec.DriverID, err)
	}
	return nil
}

// ParseMission decodes a record. The order id may be a JSON number or string;
// missing coordinates or order id make the record malformed.
func ParseMission(raw []byte) (*domain.Mission, error) {
	var rec MissionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrMalformedMission, err)
	}

	orderID, err := orderIDString(rec.OrderID)
	if err != nil {
		return nil, err
	}

	w, c := rec.Warehouse, rec.Customer
	if w.Lat == nil || w.Lng == nil {
		return nil, fmt.Errorf("%w: order %s: warehouse coordinates missing", ports.ErrMalformedMission, orderID)
	}
	if c.Lat == nil || c.Lng == nil {
		return nil, fmt.Errorf("%w: order %s: customer coordinates missing", ports.ErrMalformedMission, orderID)
	}

	return &domain.Mission{
		ID:        orderID,
		DriverID:  rec.DriverID,
		Warehouse: domain.Warehouse{ID: w.ID, Name: w.Name},
		Pickup:    domain.Coordinates{Lat: *w.Lat, Lng: *w.Lng},
		Dropoff:   domain.Coordinates{Lat: *c.Lat, Lng: *c.Lng},
	}, nil
}

func orderIDString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("%w: orderId missing", ports.ErrMalformedMission)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return "", fmt.Errorf("%w: orderId empty", ports.ErrMalformedMission)
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("%w: orderId %s is neither string nor number", ports.ErrMalformedMission, raw)
	}
	return n.String(), nil
}
