// Package chunkio implements the OpenEXR block I/O engine: the
// four-state chunk state machine, the per-part offset table, and a
// bounded-parallel scheduler that decompresses chunks concurrently
// while preserving file order.
//
// The scheduler is grounded on mrjoshuak-go-jpeg2000/encoder.go's
// job-channel worker pool: a job source drained by numWorkers
// goroutines, a result channel collected into an index-addressed
// reorder buffer so results land back in submission order regardless
// of completion order. Per-worker scratch ownership (no cross-job
// shared mutable state) is grounded on deepteams-webp/internal/lossy's
// per-row worker buffers.
package chunkio

import (
	"context"
	"runtime"
	"sync"

	"github.com/coreexr/go-openexr/exrerrors"
)

// Job is one unit of schedulable work: decompress or compress a single
// chunk. Run must not mutate any state shared with other jobs; each
// invocation owns its own scratch buffers ("no cross-chunk shared
// mutable state").
type Job struct {
	Run func() ([]byte, error)
}

// JobSource lazily produces the next job, returning ok=false once
// every job has been produced. It is only ever called from a single
// goroutine (the caller in RunSequential, an internal producer
// goroutine in RunParallel), so an implementation that reads the next
// chunk off an io.Reader before handing back its decode job does not
// need any locking of its own. This is what lets the reader side build
// a JobSource that interleaves file I/O with decode: a chunk's bytes
// are only pulled off disk once the scheduler is ready to start
// working on it, instead of the whole part being read into memory up
// front.
type JobSource func() (job Job, ok bool, err error)

// RunSequential drains next one job at a time, in order, returning as
// soon as any job errors or ctx is cancelled. Used when the file is
// entirely uncompressed ("thread-pool overhead exceeds gain") or when
// the caller has no reason to parallelize.
func RunSequential(ctx context.Context, next JobSource) ([][]byte, error) {
	var results [][]byte
	for {
		if err := checkCancelled(ctx); err != nil {
			return nil, err
		}
		job, ok, err := next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return results, nil
		}
		out, err := job.Run()
		if err != nil {
			return nil, err
		}
		results = append(results, out)
	}
}

// reorderFactor bounds how many chunks RunParallel will have read or
// decoded but not yet handed back, as a multiple of numWorkers. Once
// that many chunks are in flight or sitting in the reorder buffer
// waiting on an earlier, still-running chunk, the producer goroutine
// blocks pulling further jobs from next. This keeps a large part's
// working set at a small multiple of numWorkers instead of the whole
// part sitting fully buffered in memory at once.
const reorderFactor = 4

// RunParallel drains next across a pool of numWorkers goroutines
// (numWorkers <= 0 defaults to runtime.GOMAXPROCS(0)), re-assembling
// results in submission order regardless of completion order. The
// pending-job and pending-result channels are each capped at
// reorderFactor*numWorkers, so next is only called about as fast as
// the slowest in-flight chunk drains — a multi-gigabyte file's chunk
// stream never sits fully buffered in memory at once, just a bounded
// working set around the worker pool. Cancellation is polled once per
// chunk: once ctx is done, no further jobs are started and any
// buffered-but-unconsumed results are discarded.
func RunParallel(ctx context.Context, next JobSource, numWorkers int) ([][]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	bufSize := reorderFactor * numWorkers

	type indexedJob struct {
		index int
		job   Job
	}
	type indexedResult struct {
		index int
		data  []byte
		err   error
	}

	jobChan := make(chan indexedJob, bufSize)
	resultChan := make(chan indexedResult, bufSize)
	produceErr := make(chan error, 1)
	// slots holds one token per chunk pulled from next but not yet
	// handed back in order; the producer blocks while it is full.
	slots := make(chan struct{}, bufSize)

	go func() {
		defer close(jobChan)
		for i := 0; ; i++ {
			select {
			case slots <- struct{}{}:
			case <-ctx.Done():
				return
			}
			job, ok, err := next()
			if err != nil {
				produceErr <- err
				return
			}
			if !ok {
				return
			}
			select {
			case jobChan <- indexedJob{i, job}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ij := range jobChan {
				if ctx.Err() != nil {
					resultChan <- indexedResult{index: ij.index, err: exrerrors.Abortedf("chunkio", "cancelled")}
					continue
				}
				data, err := ij.job.Run()
				resultChan <- indexedResult{index: ij.index, data: data, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	pending := make(map[int][]byte)
	var results [][]byte
	wantIndex := 0
	var firstErr error
	for r := range resultChan {
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
		pending[r.index] = r.data
		for {
			data, ok := pending[wantIndex]
			if !ok {
				break
			}
			results = append(results, data)
			delete(pending, wantIndex)
			wantIndex++
			<-slots
		}
	}
	if firstErr == nil {
		select {
		case err := <-produceErr:
			firstErr = err
		default:
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func checkCancelled(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return exrerrors.Abortedf("chunkio", "operation cancelled")
	default:
		return nil
	}
}
