package surgeguard

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	redisAlertsKey = "surgeguard:alerts"
	redisAlertsCap = 1000
)

// RedisAlertStore archives alerts in a capped Redis list so external
// dashboards can consume them without touching the process.
type RedisAlertStore struct {
	client *redis.Client
}

func NewRedisAlertStore(addr, password string) (*RedisAlertStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &RedisAlertStore{client: client}, nil
}

func (s *RedisAlertStore) SaveAlert(ctx context.Context, rec AlertRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := s.client.LPush(ctx, redisAlertsKey, data).Err(); err != nil {
		return fmt.Errorf("push alert: %w", err)
	}
	// keep the archive bounded
	return s.client.LTrim(ctx, redisAlertsKey, 0, redisAlertsCap-1).Err()
}

func (s *RedisAlertStore) RecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	raw, err := s.client.LRange(ctx, redisAlertsKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("range alerts: %w", err)
	}
	records := make([]AlertRecord, 0, len(raw))
	for _, item := range raw {
		var rec AlertRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *RedisAlertStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisAlertStore) Close() error { return s.client.Close() }
