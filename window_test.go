package surgeguard

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestWindowRollInFIFO(t *testing.T) {
	w := NewWindow(3)
	for i := 0; i < 5; i++ {
		w.RollIn(NewBucket(fmt.Sprintf("t%d", i)))
		if w.Len() > 3 {
			t.Fatalf("window exceeded capacity: %d", w.Len())
		}
	}
	if w.Len() != 3 {
		t.Fatalf("expected 3 buckets, got %d", w.Len())
	}
	for i, want := range []string{"t2", "t3", "t4"} {
		if got := w.buckets[i].Label(); got != want {
			t.Fatalf("slot %d: expected %s, got %s", i, want, got)
		}
	}
	if w.Last().Label() != "t4" {
		t.Fatalf("expected last bucket t4, got %s", w.Last().Label())
	}
}

func TestWindowContains(t *testing.T) {
	w := NewWindow(2)
	w.RollIn(NewBucket("t0"))
	if !w.Contains("t0") {
		t.Fatal("expected t0 to be held after roll-in")
	}
	w.RollIn(NewBucket("t1"))
	w.RollIn(NewBucket("t2")) // evicts t0
	if w.Contains("t0") {
		t.Fatal("t0 should have been evicted")
	}
	if !w.Contains("t1") || !w.Contains("t2") {
		t.Fatal("expected t1 and t2 to be held")
	}
}

func TestWindowZeroCapacity(t *testing.T) {
	w := NewWindow(0)
	w.RollIn(NewBucket("t0"))
	w.RollIn(NewBucket("t1"))
	if w.Len() != 0 {
		t.Fatalf("capacity-0 window should stay empty, got %d", w.Len())
	}
	if w.Last() != nil {
		t.Fatal("capacity-0 window should have no last bucket")
	}
}

func TestWindowRequestStats(t *testing.T) {
	w := NewWindow(5)
	for i, total := range []int{10, 20, 30} {
		b := NewBucket(fmt.Sprintf("t%d", i))
		for j := 0; j < total; j++ {
			b.Update("10.0.0.1")
		}
		w.RollIn(b)
	}

	st, err := w.RequestStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(st.Mean-20) > 1e-9 {
		t.Fatalf("expected mean 20, got %f", st.Mean)
	}
	want := math.Sqrt(200.0 / 3.0)
	if math.Abs(st.Stdev-want) > 1e-9 {
		t.Fatalf("expected stdev %f, got %f", want, st.Stdev)
	}

	if cached := w.CachedStats(); cached != st {
		t.Fatalf("cached stats %+v do not match computed %+v", cached, st)
	}
}

func TestWindowRequestStatsEmpty(t *testing.T) {
	w := NewWindow(3)
	if _, err := w.RequestStats(); !errors.Is(err, ErrDegenerateStats) {
		t.Fatalf("expected ErrDegenerateStats, got %v", err)
	}
}
