package surgeguard

import (
	"context"
	"sync"
	"time"
)

// AlertRecord is one archived alert emission.
type AlertRecord struct {
	ID       int64     `json:"id" db:"id"`
	Address  string    `json:"address" db:"address"`
	Recorded time.Time `json:"recorded" db:"recorded"`
}

// AlertStore archives emitted alerts for later inspection. Implementations
// must be safe for concurrent use.
type AlertStore interface {
	SaveAlert(ctx context.Context, rec AlertRecord) error
	RecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// MemoryAlertStore keeps the archive in process memory.
type MemoryAlertStore struct {
	mu      sync.RWMutex
	nextID  int64
	records []AlertRecord
}

func NewMemoryAlertStore() *MemoryAlertStore {
	return &MemoryAlertStore{}
}

func (s *MemoryAlertStore) SaveAlert(_ context.Context, rec AlertRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec.ID = s.nextID
	s.records = append(s.records, rec)
	return nil
}

// RecentAlerts returns up to limit records, newest first.
func (s *MemoryAlertStore) RecentAlerts(_ context.Context, limit int) ([]AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]AlertRecord, 0, limit)
	for i := len(s.records) - 1; i >= len(s.records)-limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

func (s *MemoryAlertStore) HealthCheck(context.Context) error { return nil }

func (s *MemoryAlertStore) Close() error { return nil }
