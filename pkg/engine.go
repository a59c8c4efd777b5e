package statehash

import (
	"fmt"
	"io/fs"
	"sync"
	"time"
)

// checkResult is one completed hash task (or a queued path-scoped failure)
type checkResult struct {
	outcome CheckOutcome
	err     error
}

// checkEngine runs one classification pass over the tree. The walk and the
// classification decisions are single-threaded; only scheduled hash tasks
// run on the worker pool.
type checkEngine struct {
	rootDir    string
	threads    int
	readBuffer int
	force      bool // re-read every file regardless of metadata
	rules      ExcludeRules
	stats      *StatsCollector
}

// run consumes the candidate file stream and the loaded snapshot and
// produces one outcome per path considered.
//
// For each candidate in walk order: a path absent from prior is scheduled as
// New; a tracked path whose size and mtime still match is classified
// Unchanged on the spot, without a read, with its last-seen time bumped;
// anything else is scheduled for a full read. Scheduled tasks are consumed
// by a fixed pool of workers in first-scheduled-first-run order, each worker
// owning one reusable read buffer. Results land in a queue that is drained
// only after every dispatched task has finished.
//
// Matched records are removed from prior as the walk goes; whatever remains
// afterwards is converted to Missing in one ordered pass.
//
// A stat or read failure is tied to its path and queued like a result; it
// does not stop other in-flight work, but the first failure found while
// draining the queue fails the run.
func (e *checkEngine) run(prior *recordSkiplist) ([]CheckOutcome, error) {
	threads := e.threads
	if threads < 1 {
		threads = 1
	}
	bufSize := e.readBuffer
	if bufSize <= 0 {
		bufSize = DefaultReadBuffer
	}

	jobs := make(chan *checkJob)
	var wg sync.WaitGroup

	// Completed-results queue: many producers, drained once after the join
	var queueMu sync.Mutex
	var queue []checkResult
	push := func(r checkResult) {
		queueMu.Lock()
		queue = append(queue, r)
		queueMu.Unlock()
	}

	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, bufSize)
			for job := range jobs {
				outcome, err := job.run(buf)
				if err == nil {
					switch outcome.Kind {
					case OutcomeNew:
						e.stats.FileReadNew(&outcome.Record)
					case OutcomeUnchanged:
						e.stats.FileReadUnmodified(&outcome.Record)
					case OutcomeModified:
						e.stats.FileReadModified(&outcome.Record)
					case OutcomeMissing:
						// hash tasks never produce Missing
					}
				}
				push(checkResult{outcome: outcome, err: err})
			}
		}()
	}

	var walked uint64
	var outcomes []CheckOutcome

	walkErr := walkFiles(e.rootDir, e.rules, func(absPath, relPath string, d fs.DirEntry) error {
		walked++

		prev := prior.Take(relPath)
		if prev == nil {
			jobs <- &checkJob{absPath: absPath, relPath: relPath}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			push(checkResult{err: fmt.Errorf("failed to check if file needs to be read: %s: %w", absPath, err)})
			return nil
		}

		if e.force || needsReading(prev, info) {
			jobs <- &checkJob{absPath: absPath, relPath: relPath, previous: prev}
			return nil
		}

		// Metadata matches: no read, digest stands, last-seen bumped
		e.stats.FileUnchanged(prev)
		rec := *prev
		rec.LastSeen = time.Now()
		outcomes = append(outcomes, CheckOutcome{Kind: OutcomeUnchanged, Record: rec})
		return nil
	})

	// Join barrier: dispatched work always completes, even on a walk error
	close(jobs)
	wg.Wait()

	if walkErr != nil {
		return nil, walkErr
	}

	remaining := uint64(prior.Length())
	e.stats.FilesChecked(walked + remaining)
	e.stats.FilesNotFound(remaining)

	prior.ForEach(func(rec *FileRecord, source string) bool {
		outcomes = append(outcomes, CheckOutcome{Kind: OutcomeMissing, Record: *rec})
		return true
	})

	for _, result := range queue {
		if result.err != nil {
			return nil, result.err
		}
		outcomes = append(outcomes, result.outcome)
	}

	return outcomes, nil
}
