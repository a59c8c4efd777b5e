package statehash

import (
	"fmt"
	"time"
)

// Options overrides the state directory's config file for one Archive.
// Zero values fall back to the config file and then to the defaults.
type Options struct {
	Threads    int          // hash worker count
	ReadBuffer string       // per-worker read buffer size, e.g. "4M"
	Exclude    ExcludeRules // walker exclusion rules
}

// Archive binds a state directory (where snapshot generations live) to the
// directory tree they describe, and carries one run's collaborators: the
// resolved performance settings and the stats collector.
type Archive struct {
	StateDir string
	RootDir  string

	threads    int
	readBuffer int
	rules      ExcludeRules
	stats      *StatsCollector
}

// NewArchive resolves configuration and creates an Archive. opts may be nil.
func NewArchive(stateDir, rootDir string, opts *Options) (*Archive, error) {
	if rootDir == "" {
		rootDir = "."
	}

	cfg, err := LoadConfig(stateDir)
	if err != nil {
		return nil, err
	}
	perf := cfg.GetPerformanceConfig()

	threads := perf.Threads
	bufferStr := perf.ReadBuffer
	var rules ExcludeRules
	if opts != nil {
		if opts.Threads > 0 {
			threads = opts.Threads
		}
		if opts.ReadBuffer != "" {
			bufferStr = opts.ReadBuffer
		}
		rules = opts.Exclude
	}

	if err := ValidateThreads(threads); err != nil {
		return nil, err
	}
	readBuffer, err := ParseReadBuffer(bufferStr)
	if err != nil {
		return nil, fmt.Errorf("invalid read buffer size: %w", err)
	}

	verbose := cfg.GetVerboseConfig()
	if verbose.Level > GetVerboseLevel() {
		SetVerboseLevel(verbose.Level)
	}
	if verbose.Debug != "" {
		SetDebugFlags(verbose.Debug)
	}

	return &Archive{
		StateDir:   stateDir,
		RootDir:    rootDir,
		threads:    threads,
		readBuffer: readBuffer,
		rules:      rules,
		stats:      NewStatsCollector(),
	}, nil
}

// Threads returns the resolved hash worker count
func (a *Archive) Threads() int {
	return a.threads
}

// Stats returns the run's stats collector
func (a *Archive) Stats() *StatsCollector {
	return a.stats
}

// loadState loads the latest snapshot and reports how long that took
func (a *Archive) loadState() (*recordSkiplist, error) {
	loadStart := time.Now()
	prior, err := LoadState(a.StateDir)
	if err != nil {
		return nil, err
	}
	fmt.Printf("loaded previous states of %d files in %s from %s\n",
		prior.Length(), time.Since(loadStart).Round(time.Millisecond), a.StateDir)
	return prior, nil
}

// checkOutcomes runs one full classification pass and returns the sorted
// outcome list
func (a *Archive) checkOutcomes(prior *recordSkiplist, force bool) ([]CheckOutcome, error) {
	engine := &checkEngine{
		rootDir:    a.RootDir,
		threads:    a.threads,
		readBuffer: a.readBuffer,
		force:      force,
		rules:      a.rules,
		stats:      a.stats,
	}

	outcomes, err := engine.run(prior)
	if err != nil {
		return nil, err
	}

	sortOutcomes(outcomes)
	return outcomes, nil
}

// Update classifies every file against the latest snapshot, reconciles
// duplicate content, writes a new snapshot generation and prints the
// counter summary. readAllFiles disables the metadata skip so every file is
// re-read and re-hashed.
func (a *Archive) Update(readAllFiles bool) error {
	prior, err := a.loadState()
	if err != nil {
		return err
	}

	start := time.Now()
	outcomes, err := a.checkOutcomes(prior, readAllFiles)
	if err != nil {
		return err
	}

	deduped := dedupOutcomes(outcomes, a.stats)

	if err := WriteState(a.StateDir, deduped); err != nil {
		return err
	}

	var newlyMissing uint64
	for i := range deduped {
		switch deduped[i].Kind {
		case OutcomeMissing, OutcomeModified:
			newlyMissing++
		case OutcomeNew, OutcomeUnchanged:
		}
	}

	a.stats.PrintUpdateResults(time.Since(start), newlyMissing)
	return nil
}

// Verify re-reads every file, evaluates the policy's rule against the
// outcome list and returns a *VerifyError on violation. It is read-only: no
// snapshot is written. The counter summary is printed before the verdict.
func (a *Archive) Verify(policy VerifyPolicy) error {
	prior, err := a.loadState()
	if err != nil {
		return err
	}

	start := time.Now()
	outcomes, err := a.checkOutcomes(prior, true)
	if err != nil {
		return err
	}

	a.stats.PrintVerifyResults(time.Since(start))

	return evaluateVerify(outcomes, policy)
}
