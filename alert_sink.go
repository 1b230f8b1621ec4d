package surgeguard

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/oarkflow/log"
)

// AlertSink receives offending addresses, one per call. The contract is one
// address string per line on whatever destination the implementation wraps.
type AlertSink interface {
	WriteAlert(address string) error
}

// FileAlertSink appends one address per line to a text file. The file is
// opened fresh for every write and closed again, so external readers can
// tail it safely.
type FileAlertSink struct {
	path string
}

func NewFileAlertSink(path string) *FileAlertSink {
	return &FileAlertSink{path: path}
}

func (s *FileAlertSink) WriteAlert(address string) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open alert log: %w", err)
	}
	if _, err := fmt.Fprintln(f, address); err != nil {
		f.Close()
		return fmt.Errorf("write alert log: %w", err)
	}
	return f.Close()
}

// MemoryAlertSink collects addresses in memory. Used in tests.
type MemoryAlertSink struct {
	mu        sync.Mutex
	addresses []string
}

func (s *MemoryAlertSink) WriteAlert(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addresses = append(s.addresses, address)
	return nil
}

// Addresses returns the collected addresses in emission order.
func (s *MemoryAlertSink) Addresses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.addresses))
	copy(out, s.addresses)
	return out
}

// archivingSink forwards alerts to the primary sink and mirrors them into
// the configured archive. Archive failures are logged, not propagated: the
// text log is the contractual sink.
type archivingSink struct {
	next   AlertSink
	store  AlertStore
	logger *log.Logger
}

func (s *archivingSink) WriteAlert(address string) error {
	if err := s.next.WriteAlert(address); err != nil {
		return err
	}
	rec := AlertRecord{Address: address, Recorded: time.Now()}
	if err := s.store.SaveAlert(context.Background(), rec); err != nil {
		s.logger.Error().Err(err).Str("address", address).Msg("alert archive write failed")
	}
	return nil
}
