package parallel

import (
	"testing"
	"time"
)

func TestTunerScansThenLocks(t *testing.T) {
	tn := NewTuner([]int{10, 20, 30}, 2, 0)

	feed := map[int]time.Duration{
		10: 100 * time.Millisecond,
		20: 10 * time.Millisecond,
		30: 50 * time.Millisecond,
	}

	// Scan phase walks every candidate perCandidate times.
	seen := map[int]int{}
	for i := 0; i < 6; i++ {
		c := tn.ChunkSize()
		seen[c]++
		tn.Record(feed[c])
	}
	for _, c := range []int{10, 20, 30} {
		if seen[c] != 2 {
			t.Fatalf("candidate %d sampled %d times, want 2", c, seen[c])
		}
	}

	// Locked onto the fastest median.
	if tn.ChunkSize() != 20 {
		t.Fatalf("locked chunk = %d, want 20", tn.ChunkSize())
	}

	// Period 0 never re-scans.
	for i := 0; i < 100; i++ {
		tn.Record(time.Millisecond)
	}
	if tn.ChunkSize() != 20 {
		t.Fatal("tuner re-scanned with period 0")
	}
}

func TestTunerRescansAfterPeriod(t *testing.T) {
	tn := NewTuner([]int{10, 20}, 1, 3)

	tn.Record(50 * time.Millisecond) // candidate 10
	tn.Record(10 * time.Millisecond) // candidate 20, locks
	if tn.ChunkSize() != 20 {
		t.Fatalf("locked chunk = %d, want 20", tn.ChunkSize())
	}

	// Three locked launches trigger a fresh scan from the first candidate.
	for i := 0; i < 3; i++ {
		tn.Record(time.Millisecond)
	}
	if tn.ChunkSize() != 10 {
		t.Fatalf("after rescan chunk = %d, want first candidate 10", tn.ChunkSize())
	}

	// The new scan can lock onto a different winner.
	tn.Record(5 * time.Millisecond)  // candidate 10
	tn.Record(80 * time.Millisecond) // candidate 20
	if tn.ChunkSize() != 10 {
		t.Fatalf("second lock chunk = %d, want 10", tn.ChunkSize())
	}
}

func TestTunerDefaults(t *testing.T) {
	tn := NewTuner(nil, 0, 0)
	if tn.ChunkSize() != defaultCandidates()[0] {
		t.Fatalf("default first candidate = %d", tn.ChunkSize())
	}
	// perCandidate clamps to 1: one sample advances the scan.
	tn.Record(time.Millisecond)
	if tn.ChunkSize() != defaultCandidates()[1] {
		t.Fatalf("scan did not advance: %d", tn.ChunkSize())
	}
}

func TestMedian(t *testing.T) {
	if median(nil) != 0 {
		t.Fatal("median of empty should be 0")
	}
	xs := []time.Duration{5, 1, 9}
	if median(xs) != 5 {
		t.Fatalf("median = %d", median(xs))
	}
	// Input is not reordered.
	if xs[0] != 5 || xs[1] != 1 || xs[2] != 9 {
		t.Fatal("median mutated its input")
	}
}
