// Package statehash maintains content-addressed integrity snapshots of a
// directory tree: one SHA-256 digest, size and modification time per file,
// persisted as timestamp-named snapshot generations.
//
// # Core API
//
// The main entry point is Archive, which binds a snapshot directory to a
// directory tree:
//
//	a, err := statehash.NewArchive("/backup/state", "/data", nil)
//	if err != nil {
//		...
//	}
//
// # Basic Operations
//
// Record the current tree state as a new snapshot generation:
//
//	err := a.Update(false)
//
// Verify the tree against the latest snapshot:
//
//	err := a.Verify(statehash.VerifyPolicy{})
//	var ve *statehash.VerifyError
//	if errors.As(err, &ve) {
//		// integrity violation, counts in ve
//	}
//
// Update classifies every file as new, unchanged, modified or missing
// relative to the latest snapshot, reclassifies missing/modified files whose
// content survives under another path, and writes a new `.state` generation
// plus `.modified`/`.missing` side logs. Verify re-reads every file and
// evaluates one of four policies selected by VerifyPolicy.
//
// # Configuration
//
// An optional ini file at `<state-dir>/config` supplies defaults for the
// worker count and read buffer size; Options passed to NewArchive and CLI
// flags override it. Debug output is controlled with SetVerboseLevel and
// SetDebugFlags.
package statehash
