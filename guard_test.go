package surgeguard

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testBaseEpoch = 1700000100 // minute aligned

func writeAccessLog(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	// four normal minutes, ten requests each
	for unit := 0; unit < 4; unit++ {
		ts := testBaseEpoch + unit*60
		for i := 0; i < 5; i++ {
			fmt.Fprintf(&b, "10.0.0.1 %d\n", ts)
		}
		for i := 0; i < 5; i++ {
			fmt.Fprintf(&b, "10.0.0.2 %d\n", ts)
		}
	}
	// one surging minute
	for i := 0; i < 90; i++ {
		fmt.Fprintf(&b, "6.6.6.6 %d\n", testBaseEpoch+4*60)
	}
	// final line retires the surge bucket
	fmt.Fprintf(&b, "10.0.0.1 %d\n", testBaseEpoch+5*60)

	path := filepath.Join(dir, "access.log")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("write access log: %v", err)
	}
	return path
}

func TestGuardEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		AccessLog:     writeAccessLog(t, dir),
		AlertLog:      filepath.Join(dir, "alerts.log"),
		WindowSize:    5,
		BucketSeconds: 60,
		SQLitePath:    filepath.Join(dir, "alerts.db"),
		LedgerTTLMins: 30,
	}

	guard, err := NewGuard(cfg)
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	var status strings.Builder
	guard.Detector().SetOutput(&status)

	if err := guard.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if !guard.Detector().UnderAttack() {
		t.Fatal("expected attack state after the surge minute retired")
	}

	data, err := os.ReadFile(cfg.AlertLog)
	if err != nil {
		t.Fatalf("read alert log: %v", err)
	}
	if string(data) != "6.6.6.6\n" {
		t.Fatalf("alert log %q, want single 6.6.6.6 line", data)
	}

	lines := strings.Split(strings.TrimSpace(status.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 status lines, got %d:\n%s", len(lines), status.String())
	}
	if !strings.HasSuffix(lines[3], "Attack: false") {
		t.Fatalf("pre-surge line %q", lines[3])
	}
	if !strings.Contains(lines[4], "Number of requests: 89") || !strings.HasSuffix(lines[4], "Attack: true") {
		t.Fatalf("surge line %q", lines[4])
	}

	summary := guard.ledger.Summary()
	if summary.ActiveEvents != 1 || summary.FlaggedAddresses["6.6.6.6"] != 1 {
		t.Fatalf("ledger summary %+v", summary)
	}

	// the archive outlives the run
	store, err := NewSQLiteAlertStore(cfg.SQLitePath)
	if err != nil {
		t.Fatalf("reopen archive: %v", err)
	}
	defer store.Close()
	recs, err := store.RecentAlerts(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recs) != 1 || recs[0].Address != "6.6.6.6" {
		t.Fatalf("archived alerts %v", recs)
	}
}

func TestGuardSinkFailureStopsRun(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		AccessLog:     writeAccessLog(t, dir),
		AlertLog:      filepath.Join(dir, "no-such-dir", "alerts.log"),
		WindowSize:    5,
		BucketSeconds: 60,
	}

	guard, err := NewGuard(cfg)
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	guard.Detector().SetOutput(new(strings.Builder))

	if err := guard.Run(context.Background()); err == nil {
		t.Fatal("expected alert write failure to stop the run")
	}
	if !guard.Detector().UnderAttack() {
		t.Fatal("sink failure must not roll back the attack transition")
	}
}

func TestNewGuardRequiresAccessLog(t *testing.T) {
	if _, err := NewGuard(&Config{AlertLog: "alerts.log", WindowSize: 5}); err == nil {
		t.Fatal("expected error without an access log path")
	}
	if _, err := NewGuard(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
