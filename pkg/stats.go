package statehash

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"
)

// Stats is the aggregate of one run's counters. Workers increment the
// collector concurrently; the snapshot is read once after the join barrier.
type Stats struct {
	BytesRead             uint64
	FilesChecked          uint64
	FilesRead             uint64
	FilesNew              uint64
	FilesModified         uint64
	FilesNotFound         uint64
	FilesDuplicateRemoved uint64
	FilesUnchanged        uint64
	FilesUnchangedSize    uint64
}

// StatsCollector aggregates counters across the hash workers and the main
// thread under a short-held lock. A collector belongs to one run and is
// passed by reference; there is no process-wide instance. Per-file progress
// lines are printed as results land.
type StatsCollector struct {
	mu    sync.Mutex
	stats Stats
	out   io.Writer
}

// NewStatsCollector creates a collector reporting to stdout
func NewStatsCollector() *StatsCollector {
	return newStatsCollector(os.Stdout)
}

func newStatsCollector(out io.Writer) *StatsCollector {
	return &StatsCollector{out: out}
}

// FilesChecked adds to the checked-file count
func (sc *StatsCollector) FilesChecked(amount uint64) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.stats.FilesChecked += amount
}

// FilesNotFound adds to the not-found count
func (sc *StatsCollector) FilesNotFound(amount uint64) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.stats.FilesNotFound += amount
}

// DuplicatesRemoved adds to the duplicate-removed count
func (sc *StatsCollector) DuplicatesRemoved(amount uint64) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.stats.FilesDuplicateRemoved += amount
}

// FileUnchanged records a file skipped on matching metadata, without a read
func (sc *StatsCollector) FileUnchanged(rec *FileRecord) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.stats.FilesUnchanged++
	sc.stats.FilesUnchangedSize += rec.Size
}

// FileReadUnmodified records a file that was fully re-read and found to
// still match its archived digest
func (sc *StatsCollector) FileReadUnmodified(rec *FileRecord) {
	fmt.Fprintf(sc.out, "  %s\n", rec.RelPath)
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.stats.FilesRead++
	sc.stats.BytesRead += rec.Size
	sc.stats.FilesUnchanged++
	sc.stats.FilesUnchangedSize += rec.Size
}

// FileReadModified records a file whose content changed in place
func (sc *StatsCollector) FileReadModified(rec *FileRecord) {
	fmt.Fprintf(sc.out, "M %s\n", rec.RelPath)
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.stats.FilesRead++
	sc.stats.BytesRead += rec.Size
	sc.stats.FilesModified++
}

// FileReadNew records a file with no prior snapshot entry
func (sc *StatsCollector) FileReadNew(rec *FileRecord) {
	fmt.Fprintf(sc.out, "+ %s\n", rec.RelPath)
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.stats.FilesRead++
	sc.stats.BytesRead += rec.Size
	sc.stats.FilesNew++
}

// Results returns a snapshot of the counters
func (sc *StatsCollector) Results() Stats {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.stats
}

// countWidth returns the print width of the largest of the given counters,
// for column alignment
func countWidth(counts ...uint64) int {
	var max uint64
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	return len(strconv.FormatUint(max, 10))
}

// gib converts a byte count to GiB
func gib(bytes uint64) float64 {
	return float64(bytes) / 1024.0 / 1024.0 / 1024.0
}

// PrintUpdateResults prints the hierarchical counter summary for an update
// run. newlyMissing is the post-dedup count of files that changed or
// vanished, which the collector cannot know on its own.
func (sc *StatsCollector) PrintUpdateResults(duration time.Duration, newlyMissing uint64) {
	r := sc.Results()

	width1 := countWidth(r.FilesChecked, r.FilesUnchanged)
	fmt.Fprintf(sc.out, "%*d files checked in %s:\n",
		width1, r.FilesChecked, duration.Round(time.Millisecond))

	width2 := countWidth(r.FilesRead, r.FilesNotFound)
	fmt.Fprintf(sc.out, "    %*d files read (%.1f GiB, %.0f MiB/s):\n",
		width2, r.FilesRead, gib(r.BytesRead),
		float64(r.BytesRead)/1024.0/1024.0/duration.Seconds())

	width3 := countWidth(r.FilesNew, r.FilesModified, r.FilesDuplicateRemoved, newlyMissing)
	fmt.Fprintf(sc.out, "        %*d new files\n", width3, r.FilesNew)
	fmt.Fprintf(sc.out, "        %*d files modified\n", width3, r.FilesModified)
	fmt.Fprintf(sc.out, "    %*d files not found:\n", width2, r.FilesNotFound)
	fmt.Fprintf(sc.out, "        %*d files found elsewhere (moved or duplicates removed)\n",
		width3, r.FilesDuplicateRemoved)
	fmt.Fprintf(sc.out, "        %*d files newly missing\n", width3, newlyMissing)
	fmt.Fprintf(sc.out, "%*d files unchanged (%.1f GiB)\n",
		width1, r.FilesUnchanged, gib(r.FilesUnchangedSize))
}

// PrintVerifyResults prints the read-rate summary for a verify run. It is
// printed before the policy verdict: the counters report what was read, the
// verdict reports what it meant.
func (sc *StatsCollector) PrintVerifyResults(duration time.Duration) {
	r := sc.Results()

	width1 := countWidth(r.FilesChecked, r.FilesUnchanged)
	fmt.Fprintf(sc.out, "%*d files checked in %s:\n",
		width1, r.FilesChecked, duration.Round(time.Millisecond))

	width2 := countWidth(r.FilesRead, r.FilesNotFound)
	fmt.Fprintf(sc.out, "    %*d files read (%.1f GiB, %.0f MiB/s):\n",
		width2, r.FilesRead, gib(r.BytesRead),
		float64(r.BytesRead)/1024.0/1024.0/duration.Seconds())
}
