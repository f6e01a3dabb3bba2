package parallel

import (
	"sort"
	"time"
)

// Tuner picks a launch chunk size by sampling each candidate a few
// times, locking onto the fastest median, and re-scanning periodically.
// Tuning affects performance only, never correctness.
type Tuner struct {
	candidates []int
	samples    [][]time.Duration

	scanning  bool
	candIdx   int
	perCand   int
	locked    int
	sinceScan int
	period    int
}

// NewTuner creates a tuner over the given candidate chunk sizes,
// taking perCandidate samples per candidate and re-scanning every
// period launches.
func NewTuner(candidates []int, perCandidate, period int) *Tuner {
	if len(candidates) == 0 {
		candidates = defaultCandidates()
	}
	if perCandidate < 1 {
		perCandidate = 1
	}
	t := &Tuner{
		candidates: candidates,
		perCand:    perCandidate,
		period:     period,
		scanning:   true,
	}
	t.samples = make([][]time.Duration, len(candidates))
	return t
}

// ChunkSize returns the chunk size for the next launch.
func (t *Tuner) ChunkSize() int {
	if t.scanning {
		return t.candidates[t.candIdx]
	}
	return t.locked
}

// Record feeds the measured duration of the launch that used the chunk
// size last returned by ChunkSize.
func (t *Tuner) Record(d time.Duration) {
	if !t.scanning {
		t.sinceScan++
		if t.period > 0 && t.sinceScan >= t.period {
			t.restartScan()
		}
		return
	}

	t.samples[t.candIdx] = append(t.samples[t.candIdx], d)
	if len(t.samples[t.candIdx]) >= t.perCand {
		t.candIdx++
		if t.candIdx >= len(t.candidates) {
			t.lock()
		}
	}
}

// lock picks the candidate with the smallest median sample.
func (t *Tuner) lock() {
	best := 0
	bestMedian := median(t.samples[0])
	for i := 1; i < len(t.candidates); i++ {
		if m := median(t.samples[i]); m < bestMedian {
			best, bestMedian = i, m
		}
	}
	t.locked = t.candidates[best]
	t.scanning = false
	t.sinceScan = 0
}

// restartScan discards old samples and begins a fresh scan.
func (t *Tuner) restartScan() {
	for i := range t.samples {
		t.samples[i] = t.samples[i][:0]
	}
	t.candIdx = 0
	t.scanning = true
}

func median(xs []time.Duration) time.Duration {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(xs))
	copy(sorted, xs)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a] < sorted[b] })
	return sorted[len(sorted)/2]
}
