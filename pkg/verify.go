package statehash

import "fmt"

// VerifyPolicy selects one of four verdict rules as a pair of booleans.
//
//	IgnoreMissing  OnlyPresence  fails when
//	true           true          any found digest is absent from the archive
//	true           false         any file changed in place (new files tolerated)
//	false          true          either digest set difference is non-empty
//	false          false         any file is missing, modified or untracked
type VerifyPolicy struct {
	IgnoreMissing bool // tolerate archived files that are no longer present
	OnlyPresence  bool // match content digests only, ignore paths
}

// VerifyError is the structured verdict of a failed verification. It is an
// expected end-state, not a fault: the selected rule found an integrity
// violation, and the counts say which kind. Only the fields relevant to the
// failing policy are populated.
type VerifyError struct {
	Policy VerifyPolicy

	NotInArchive     uint64 // found files whose digest is nowhere in the archive
	Changed          uint64 // files modified in place
	New              uint64 // untracked files (informational under IgnoreMissing)
	MissingOrChanged uint64 // archived files missing or modified at their path
	ArchiveNotFound  uint64 // archived digests found nowhere on disk
}

func (e *VerifyError) Error() string {
	switch {
	case e.Policy.IgnoreMissing && e.Policy.OnlyPresence:
		return fmt.Sprintf("%d files not found in archive", e.NotInArchive)
	case e.Policy.IgnoreMissing:
		return fmt.Sprintf("%d files changed, %d files not found in archive", e.Changed, e.New)
	case e.Policy.OnlyPresence:
		return fmt.Sprintf("%d files not found in archive, %d files in archive not found",
			e.NotInArchive, e.ArchiveNotFound)
	default:
		return fmt.Sprintf("%d files missing or changed, %d files not found in archive",
			e.MissingOrChanged, e.New)
	}
}

// archiveDigests returns the set of digests the archive recorded: every
// Unchanged and Missing record plus the previous record of every Modified
// outcome. New outcomes contribute nothing; they were never archived.
func archiveDigests(outcomes []CheckOutcome) map[Digest]struct{} {
	archive := make(map[Digest]struct{})
	for i := range outcomes {
		switch outcomes[i].Kind {
		case OutcomeUnchanged, OutcomeMissing:
			archive[outcomes[i].Record.Digest] = struct{}{}
		case OutcomeModified:
			archive[outcomes[i].Previous.Digest] = struct{}{}
		case OutcomeNew:
		}
	}
	return archive
}

// countNotInArchive counts currently-found files whose digest is absent from
// the archive set: New files, and Modified files by their current digest
func countNotInArchive(outcomes []CheckOutcome, archive map[Digest]struct{}) uint64 {
	var notPresent uint64
	for i := range outcomes {
		switch outcomes[i].Kind {
		case OutcomeNew, OutcomeModified:
			if _, ok := archive[outcomes[i].Record.Digest]; !ok {
				notPresent++
			}
		case OutcomeUnchanged, OutcomeMissing:
		}
	}
	return notPresent
}

// evaluateVerify applies the policy's rule to the full outcome list. The
// outcomes must have been computed with every file fully re-read:
// verification never trusts metadata. A nil return means the rule passed.
func evaluateVerify(outcomes []CheckOutcome, policy VerifyPolicy) error {
	archive := archiveDigests(outcomes)

	switch {
	case policy.IgnoreMissing && policy.OnlyPresence:
		// Every file found on disk must exist somewhere in the archive,
		// path irrelevant
		notPresent := countNotInArchive(outcomes, archive)
		if notPresent > 0 {
			return &VerifyError{Policy: policy, NotInArchive: notPresent}
		}

	case policy.IgnoreMissing:
		// Archived files must not have changed in place. New untracked
		// files never fail this rule; their count is reported only when a
		// changed file already failed it.
		var changed, newFiles uint64
		for i := range outcomes {
			switch outcomes[i].Kind {
			case OutcomeModified:
				changed++
			case OutcomeNew:
				newFiles++
			case OutcomeUnchanged, OutcomeMissing:
			}
		}
		if changed > 0 {
			return &VerifyError{Policy: policy, Changed: changed, New: newFiles}
		}

	case policy.OnlyPresence:
		// Two-way digest presence: every found digest must be archived and
		// every archived digest must be found somewhere
		notPresent := countNotInArchive(outcomes, archive)

		missing := make(map[Digest]struct{}, len(archive))
		for digest := range archive {
			missing[digest] = struct{}{}
		}
		for i := range outcomes {
			switch outcomes[i].Kind {
			case OutcomeNew, OutcomeUnchanged, OutcomeModified:
				delete(missing, outcomes[i].Record.Digest)
			case OutcomeMissing:
			}
		}

		if notPresent > 0 || len(missing) > 0 {
			return &VerifyError{
				Policy:          policy,
				NotInArchive:    notPresent,
				ArchiveNotFound: uint64(len(missing)),
			}
		}

	default:
		// Strict: every archived file unchanged at its recorded path, no
		// untracked files
		var missingOrChanged, newFiles uint64
		for i := range outcomes {
			switch outcomes[i].Kind {
			case OutcomeMissing, OutcomeModified:
				missingOrChanged++
			case OutcomeNew:
				newFiles++
			case OutcomeUnchanged:
			}
		}
		if missingOrChanged > 0 || newFiles > 0 {
			return &VerifyError{Policy: policy, MissingOrChanged: missingOrChanged, New: newFiles}
		}
	}

	return nil
}
