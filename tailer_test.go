package surgeguard

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTailerBatchMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	content := "10.0.0.1 1700000100\n" +
		"10.0.0.2 1700000101\n" +
		"this line is garbage\n" +
		"10.0.0.3 1700000162\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	tailer := NewTailer(path, NewParser(time.Minute), false)
	out := make(chan Record, 16)
	if err := tailer.Run(context.Background(), out); err != nil {
		t.Fatalf("run: %v", err)
	}

	var records []Record
	for rec := range out {
		records = append(records, rec)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d: %v", len(records), records)
	}
	if records[0].Address != "10.0.0.1" || records[2].Address != "10.0.0.3" {
		t.Fatalf("unexpected records: %v", records)
	}
	if records[0].Label != records[1].Label {
		t.Fatal("same-minute records must share a label")
	}
	if records[2].Label == records[0].Label {
		t.Fatal("next-minute record must get a new label")
	}
}

func TestTailerMissingFile(t *testing.T) {
	tailer := NewTailer(filepath.Join(t.TempDir(), "nope.log"), NewParser(time.Minute), false)
	out := make(chan Record, 1)
	if err := tailer.Run(context.Background(), out); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestTailerFollowMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	if err := os.WriteFile(path, []byte("10.0.0.1 1700000100\n"), 0644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tailer := NewTailer(path, NewParser(time.Minute), true)
	out := make(chan Record, 16)
	done := make(chan error, 1)
	go func() { done <- tailer.Run(ctx, out) }()

	waitRecord := func(addr string) {
		t.Helper()
		select {
		case rec := <-out:
			if rec.Address != addr {
				t.Fatalf("record %v, want address %s", rec, addr)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s", addr)
		}
	}

	waitRecord("10.0.0.1")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("reopen log: %v", err)
	}
	if _, err := f.WriteString("10.0.0.2 1700000130\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	waitRecord("10.0.0.2")

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tailer did not stop after cancel")
	}
}
