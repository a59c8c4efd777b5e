package statehash

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"time"
)

// OutcomeKind classifies one path for the current run. The four variants
// partition every path considered: every candidate path becomes New,
// Unchanged or Modified, and every prior record not matched by a candidate
// becomes Missing. Consumption sites switch over all four.
type OutcomeKind int

const (
	OutcomeNew       OutcomeKind = iota // no prior entry for this path
	OutcomeUnchanged                    // same path, content confirmed or metadata-skip applied
	OutcomeModified                     // same path, digest differs
	OutcomeMissing                      // tracked path absent from the current walk
)

// String returns the outcome kind name
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNew:
		return "new"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeModified:
		return "modified"
	case OutcomeMissing:
		return "missing"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// CheckOutcome is the classification of one path. Record is the current
// record, except for Missing where it is the prior record. Previous is
// non-nil exactly for Modified outcomes.
type CheckOutcome struct {
	Kind     OutcomeKind
	Record   FileRecord
	Previous *FileRecord
}

// checkJob is one scheduled hash task: a full read of absPath. previous is
// nil for files with no prior snapshot entry.
type checkJob struct {
	absPath  string
	relPath  string
	previous *FileRecord
}

// run reads and hashes the file, then classifies it against the prior
// record. It always reads the full content; buf is the worker's reusable
// read buffer. A file that cannot be opened or read yields an error instead
// of an outcome.
func (job *checkJob) run(buf []byte) (CheckOutcome, error) {
	if job.previous == nil {
		rec, err := hashFile(job.absPath, job.relPath, buf)
		if err != nil {
			return CheckOutcome{}, fmt.Errorf("failed to read new file %s: %w", job.absPath, err)
		}
		return CheckOutcome{Kind: OutcomeNew, Record: rec}, nil
	}

	rec, err := hashFile(job.absPath, job.relPath, buf)
	if err != nil {
		return CheckOutcome{}, fmt.Errorf("failed to read potentially modified file %s: %w", job.absPath, err)
	}

	if rec.Digest == job.previous.Digest {
		return CheckOutcome{Kind: OutcomeUnchanged, Record: rec}, nil
	}
	return CheckOutcome{Kind: OutcomeModified, Record: rec, Previous: job.previous}, nil
}

// needsReading reports whether a tracked file must be re-read: its size or
// modification time no longer matches the stored record. Matching metadata
// skips the read entirely; the stored digest stands.
func needsReading(prev *FileRecord, info os.FileInfo) bool {
	return !prev.MTime.Equal(info.ModTime()) || prev.Size != uint64(info.Size())
}

// hashFile streams the file through buf into a SHA-256 hasher and returns a
// record stamped with the current time. Size is the byte count actually
// read, not the stat size, so the digest and length always describe the same
// bytes even if the file grows mid-read.
func hashFile(absPath, relPath string, buf []byte) (FileRecord, error) {
	f, err := os.Open(absPath)
	if err != nil {
		return FileRecord{}, err
	}
	defer f.Close()

	hasher := sha256.New()
	var total uint64
	for {
		n, err := f.Read(buf)
		if n > 0 {
			total += uint64(n)
			hasher.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return FileRecord{}, fmt.Errorf("failed to read from file %s: %w", absPath, err)
		}
	}

	info, err := f.Stat()
	if err != nil {
		return FileRecord{}, fmt.Errorf("failed to stat file %s: %w", absPath, err)
	}

	var digest Digest
	hasher.Sum(digest[:0])

	now := time.Now()
	return FileRecord{
		RelPath:   relPath,
		Digest:    digest,
		MTime:     info.ModTime(),
		Size:      total,
		FullyRead: now,
		LastSeen:  now,
	}, nil
}
