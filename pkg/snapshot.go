package statehash

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/vectorio"
	"golang.org/x/sys/unix"
)

// LoadState loads the lexically-last .state file in stateDir into a
// path-keyed index. Snapshot names are local timestamps, so lexical order is
// chronological order; .modified and .missing side logs are ignored. An
// empty or snapshot-free state directory is not an error and yields an
// empty index.
func LoadState(stateDir string) (*recordSkiplist, error) {
	entries, err := os.ReadDir(stateDir)
	if err != nil {
		return nil, fmt.Errorf("unable to list files in state directory %s: %w", stateDir, err)
	}

	// os.ReadDir returns names sorted, so the last matching entry wins
	var stateName string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), StateSuffix) {
			stateName = entry.Name()
		}
	}

	records := newRecordSkiplist()
	if stateName == "" {
		fmt.Printf("no previous state found in %s\n", stateDir)
		return records, nil
	}

	statePath := filepath.Join(stateDir, stateName)
	f, err := os.Open(statePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state file %s: %w", statePath, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		rec, err := ParseRecord(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("failed to read state from %s: %w", statePath, err)
		}
		// Duplicate paths are last-wins, like loading into a map keyed by
		// path. A well-formed snapshot never has them.
		if !records.Insert(rec, stateName) {
			records.Take(rec.RelPath)
			records.Insert(rec, stateName)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read state from %s: %w", statePath, err)
	}

	if IsDebugEnabled("snapshot") {
		VerboseLog(3, "LoadState: loaded %d records from %s", records.Length(), stateName)
	}

	return records, nil
}

// WriteState persists one run's outcomes as a new snapshot generation named
// by the current local time: New/Unchanged/Modified-current records go to
// the .state file, previous records of Modified outcomes to .modified, and
// Missing records to .missing. Side logs that end up empty are removed, so
// their mere presence signals that something changed or vanished. Snapshots
// are append-only generations; nothing is ever rewritten in place.
func WriteState(stateDir string, outcomes []CheckOutcome) error {
	return writeStateAt(stateDir, outcomes, time.Now())
}

// writeStateAt is WriteState with an explicit timestamp. All three files are
// opened with O_EXCL: a second run within the same second collides with the
// first and fails rather than overwrite it.
func writeStateAt(stateDir string, outcomes []CheckOutcome, now time.Time) error {
	stamp := now.Format(SnapshotTimeLayout)
	statePath := filepath.Join(stateDir, stamp+StateSuffix)
	modifiedPath := filepath.Join(stateDir, stamp+ModifiedSuffix)
	missingPath := filepath.Join(stateDir, stamp+MissingSuffix)

	var stateLines, modifiedLines, missingLines [][]byte
	for i := range outcomes {
		outcome := &outcomes[i]
		switch outcome.Kind {
		case OutcomeNew, OutcomeUnchanged:
			stateLines = append(stateLines, outcome.Record.EncodeLine())
		case OutcomeModified:
			stateLines = append(stateLines, outcome.Record.EncodeLine())
			modifiedLines = append(modifiedLines, outcome.Previous.EncodeLine())
		case OutcomeMissing:
			missingLines = append(missingLines, outcome.Record.EncodeLine())
		}
	}

	if err := writeSnapshotFile(statePath, stateLines); err != nil {
		return err
	}
	if err := writeSnapshotFile(modifiedPath, modifiedLines); err != nil {
		return err
	}
	if err := writeSnapshotFile(missingPath, missingLines); err != nil {
		return err
	}

	if len(modifiedLines) == 0 {
		if err := os.Remove(modifiedPath); err != nil {
			return fmt.Errorf("failed to remove empty modified log %s: %w", modifiedPath, err)
		}
	}
	if len(missingLines) == 0 {
		if err := os.Remove(missingPath); err != nil {
			return fmt.Errorf("failed to remove empty missing log %s: %w", missingPath, err)
		}
	}

	if IsDebugEnabled("snapshot") {
		VerboseLog(3, "writeStateAt: wrote %d state, %d modified, %d missing records to %s",
			len(stateLines), len(modifiedLines), len(missingLines), stamp)
	}

	return nil
}

// writeSnapshotFile creates path exclusively and writes all lines to it via
// writev, batching the iovecs to respect the system IOV_MAX limit
func writeSnapshotFile(path string, lines [][]byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file %s: %w", path, err)
	}
	defer f.Close()

	if len(lines) == 0 {
		return nil
	}

	iovecs := make([]syscall.Iovec, 0, len(lines))
	total := 0
	for _, line := range lines {
		iovecs = append(iovecs, syscall.Iovec{
			Base: &line[0],
			Len:  uint64(len(line)),
		})
		total += len(line)
	}

	maxIovecs := systemIOVMax()
	written := 0
	for offset := 0; offset < len(iovecs); offset += maxIovecs {
		end := offset + maxIovecs
		if end > len(iovecs) {
			end = len(iovecs)
		}

		nw, err := vectorio.WritevRaw(uintptr(f.Fd()), iovecs[offset:end])
		if err != nil {
			return fmt.Errorf("failed to write snapshot file %s: %w", path, err)
		}
		written += nw
	}

	if written != total {
		return fmt.Errorf("snapshot write incomplete for %s: wrote %d bytes, expected %d", path, written, total)
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync snapshot file %s: %w", path, err)
	}

	return nil
}

// systemIOVMax returns the writev vector limit via sysconf(_SC_IOV_MAX),
// falling back to a conservative value when the call fails or returns
// something unreasonable
func systemIOVMax() int {
	const scIOVMax = 60      // _SC_IOV_MAX on Linux
	const fallbackIOVMax = 1024

	r1, _, errno := unix.Syscall(99, uintptr(scIOVMax), 0, 0)
	if errno != 0 {
		return fallbackIOVMax
	}

	iovMax := int(r1)
	if iovMax <= 0 || iovMax > 1<<20 {
		return fallbackIOVMax
	}
	return iovMax
}
