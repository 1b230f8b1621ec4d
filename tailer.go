package surgeguard

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/oarkflow/log"
)

// Tailer reads an access log sequentially and emits reduced records. In
// follow mode it keeps the file open and resumes whenever fsnotify reports
// new writes; otherwise it stops at EOF.
type Tailer struct {
	path   string
	parser *Parser
	follow bool
	logger *log.Logger
}

func NewTailer(path string, parser *Parser, follow bool) *Tailer {
	return &Tailer{
		path:   path,
		parser: parser,
		follow: follow,
		logger: &log.DefaultLogger,
	}
}

// SetLogger replaces the structured logger.
func (t *Tailer) SetLogger(l *log.Logger) {
	if l != nil {
		t.logger = l
	}
}

// Run streams records to out until the file is exhausted (batch mode), the
// context is cancelled, or a read error occurs. out is closed on return.
// Malformed lines are counted and skipped, never fatal.
func (t *Tailer) Run(ctx context.Context, out chan<- Record) error {
	defer close(out)

	f, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("open access log: %w", err)
	}
	defer f.Close()

	var watcher *fsnotify.Watcher
	if t.follow {
		watcher, err = fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()
		if err := watcher.Add(t.path); err != nil {
			return fmt.Errorf("watch access log: %w", err)
		}
	}

	reader := bufio.NewReader(f)
	var pending strings.Builder // partial line carried across EOF

	for {
		line, err := reader.ReadString('\n')
		if err == nil {
			if pending.Len() > 0 {
				line = pending.String() + line
				pending.Reset()
			}
			if !t.emit(ctx, out, line) {
				return ctx.Err()
			}
			continue
		}
		if err != io.EOF {
			return fmt.Errorf("read access log: %w", err)
		}
		if line != "" {
			pending.WriteString(line)
		}
		if !t.follow {
			if pending.Len() > 0 {
				t.emit(ctx, out, pending.String())
			}
			return nil
		}
		if err := t.await(ctx, watcher); err != nil {
			return err
		}
	}
}

// await blocks until the watched file changes or the context is done.
func (t *Tailer) await(ctx context.Context, watcher *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			t.logger.Error().Err(err).Msg("watcher error")
		}
	}
}

// emit parses and forwards one line. Returns false when ctx is done.
func (t *Tailer) emit(ctx context.Context, out chan<- Record, line string) bool {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return true
	}
	rec, err := t.parser.ParseLine(line)
	if err != nil {
		malformedLines.Inc()
		t.logger.Warn().Err(err).Msg("skipping malformed log line")
		return true
	}
	select {
	case out <- rec:
		return true
	case <-ctx.Done():
		return false
	}
}
