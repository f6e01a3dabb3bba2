// Package parallel fans per-particle work out across a pool of
// persistent workers and joins all partitions before returning, so no
// partition's output is visible downstream until every partition has
// finished. Launch granularity is picked by a runtime auto-tuner.
package parallel

import (
	"runtime"
	"sync"
	"time"
)

// serialThreshold is the minimum work-item count to use the pool.
// Below this, single-threaded is faster due to goroutine overhead.
const serialThreshold = 64

// chunk is one partition of a launch.
type chunk struct {
	start, end int
	fn         func(start, end int)
}

// Context owns the worker pool. It stands in for the accelerator
// execution configuration: components that dispatch per-particle
// kernels require one at construction.
type Context struct {
	numWorkers int
	tuner      *Tuner

	workChan chan chunk
	doneChan chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// NewContext creates an execution context with the given worker count.
// workers <= 0 uses GOMAXPROCS.
func NewContext(workers int) *Context {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Context{
		numWorkers: workers,
		tuner:      NewTuner(defaultCandidates(), 3, 5000),
	}
}

// NumWorkers returns the pool size.
func (c *Context) NumWorkers() int { return c.numWorkers }

// start launches the persistent workers.
func (c *Context) start() {
	if c.running {
		return
	}
	c.workChan = make(chan chunk, c.numWorkers)
	c.doneChan = make(chan struct{}, c.numWorkers)
	c.stopChan = make(chan struct{})
	c.running = true

	for i := 0; i < c.numWorkers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
}

// Close signals all workers to exit and waits for them.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	close(c.stopChan)
	c.wg.Wait()
	close(c.workChan)
	close(c.doneChan)
	c.running = false
}

// worker processes chunks until stopped. A panic inside a kernel is not
// recovered: an unrecoverable execution error terminates the run.
func (c *Context) worker() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopChan:
			return
		case ch, ok := <-c.workChan:
			if !ok {
				return
			}
			ch.fn(ch.start, ch.end)
			c.doneChan <- struct{}{}
		}
	}
}

// ForEach runs fn over [0, n) split into auto-tuned chunks and blocks
// until every chunk has completed. fn must be safe to call concurrently
// on disjoint ranges.
func (c *Context) ForEach(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if n < serialThreshold {
		fn(0, n)
		return
	}

	c.mu.Lock()
	c.start()

	chunkSize := c.tuner.ChunkSize()
	if chunkSize > n {
		chunkSize = n
	}

	begin := time.Now()
	chunks := (n + chunkSize - 1) / chunkSize

	// Dispatch from a separate goroutine: with more chunks than channel
	// capacity, the caller must drain completions while sends are still
	// in flight or both sides block.
	go func() {
		for start := 0; start < n; start += chunkSize {
			end := start + chunkSize
			if end > n {
				end = n
			}
			c.workChan <- chunk{start: start, end: end, fn: fn}
		}
	}()
	for i := 0; i < chunks; i++ {
		<-c.doneChan
	}
	c.tuner.Record(time.Since(begin))
	c.mu.Unlock()
}

// defaultCandidates lists the chunk sizes the tuner samples.
func defaultCandidates() []int {
	return []int{64, 128, 256, 512, 1024, 2048}
}
