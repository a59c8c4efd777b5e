package statehash

import (
	"io"
	"testing"
)

func digestOf(fill byte) Digest {
	var d Digest
	for i := range d {
		d[i] = fill
	}
	return d
}

func outcome(kind OutcomeKind, relPath string, fill byte) CheckOutcome {
	return CheckOutcome{
		Kind:   kind,
		Record: FileRecord{RelPath: relPath, Digest: digestOf(fill)},
	}
}

func modifiedOutcome(relPath string, currentFill, previousFill byte) CheckOutcome {
	previous := FileRecord{RelPath: relPath, Digest: digestOf(previousFill)}
	return CheckOutcome{
		Kind:     OutcomeModified,
		Record:   FileRecord{RelPath: relPath, Digest: digestOf(currentFill)},
		Previous: &previous,
	}
}

func TestSortOutcomesByPath(t *testing.T) {
	outcomes := []CheckOutcome{
		outcome(OutcomeNew, "zz", 1),
		outcome(OutcomeMissing, "aa", 2),
		outcome(OutcomeUnchanged, "mm", 3),
	}
	sortOutcomes(outcomes)

	for i, expected := range []string{"aa", "mm", "zz"} {
		if outcomes[i].Record.RelPath != expected {
			t.Errorf("position %d: expected %q, got %q", i, expected, outcomes[i].Record.RelPath)
		}
	}
}

func TestDedupMovedFileDropsMissing(t *testing.T) {
	// old/f vanished but its content reappeared as new/f: treated as a move,
	// the Missing entry disappears
	outcomes := []CheckOutcome{
		outcome(OutcomeNew, "new/f", 1),
		outcome(OutcomeMissing, "old/f", 1),
	}

	stats := newStatsCollector(io.Discard)
	deduped := dedupOutcomes(outcomes, stats)

	if len(deduped) != 1 || deduped[0].Kind != OutcomeNew {
		t.Fatalf("expected only the New outcome to survive, got %+v", deduped)
	}
	if stats.Results().FilesDuplicateRemoved != 1 {
		t.Errorf("expected 1 duplicate removed, got %d", stats.Results().FilesDuplicateRemoved)
	}
}

func TestDedupGenuinelyMissingKept(t *testing.T) {
	outcomes := []CheckOutcome{
		outcome(OutcomeNew, "new/f", 1),
		outcome(OutcomeMissing, "old/f", 2),
	}

	stats := newStatsCollector(io.Discard)
	deduped := dedupOutcomes(outcomes, stats)

	if len(deduped) != 2 {
		t.Fatalf("expected both outcomes kept, got %+v", deduped)
	}
	if stats.Results().FilesDuplicateRemoved != 0 {
		t.Errorf("expected no duplicates removed, got %d", stats.Results().FilesDuplicateRemoved)
	}
}

func TestDedupModifiedReclassifiedAsNew(t *testing.T) {
	// a/f's old content still exists unchanged at b/f, so the rewrite of a/f
	// is really a fresh file appearing there
	outcomes := []CheckOutcome{
		modifiedOutcome("a/f", 9, 1),
		outcome(OutcomeUnchanged, "b/f", 1),
	}

	stats := newStatsCollector(io.Discard)
	deduped := dedupOutcomes(outcomes, stats)

	if len(deduped) != 2 {
		t.Fatalf("expected 2 outcomes, got %+v", deduped)
	}
	var reclassified *CheckOutcome
	for i := range deduped {
		if deduped[i].Record.RelPath == "a/f" {
			reclassified = &deduped[i]
		}
	}
	if reclassified == nil || reclassified.Kind != OutcomeNew {
		t.Fatalf("expected a/f reclassified as New, got %+v", deduped)
	}
	if reclassified.Previous != nil {
		t.Error("reclassified outcome must not keep a previous record")
	}
	if reclassified.Record.Digest != digestOf(9) {
		t.Error("reclassified outcome must carry the current digest")
	}
	if stats.Results().FilesDuplicateRemoved != 1 {
		t.Errorf("expected 1 duplicate removed, got %d", stats.Results().FilesDuplicateRemoved)
	}
}

func TestDedupModifiedWithoutSurvivorKept(t *testing.T) {
	outcomes := []CheckOutcome{
		modifiedOutcome("a/f", 9, 1),
	}

	stats := newStatsCollector(io.Discard)
	deduped := dedupOutcomes(outcomes, stats)

	if len(deduped) != 1 || deduped[0].Kind != OutcomeModified {
		t.Fatalf("expected the Modified outcome kept, got %+v", deduped)
	}
}

func TestDedupNotTransitive(t *testing.T) {
	// Two copies of the same content both vanish: neither is present any
	// more, so both stay Missing. The present-set is fixed before the pass;
	// removals never cascade.
	outcomes := []CheckOutcome{
		outcome(OutcomeMissing, "copy1", 1),
		outcome(OutcomeMissing, "copy2", 1),
	}

	stats := newStatsCollector(io.Discard)
	deduped := dedupOutcomes(outcomes, stats)

	if len(deduped) != 2 {
		t.Fatalf("expected both Missing outcomes kept, got %+v", deduped)
	}
	if stats.Results().FilesDuplicateRemoved != 0 {
		t.Errorf("expected no duplicates removed, got %d", stats.Results().FilesDuplicateRemoved)
	}
}

func TestDedupReclassifiedNewNotInPresentSet(t *testing.T) {
	// The digest a Modified outcome gains by reclassification does not rescue
	// a Missing entry in the same pass unless it was already present
	outcomes := []CheckOutcome{
		modifiedOutcome("a/f", 9, 1),
		outcome(OutcomeUnchanged, "b/f", 1),
		outcome(OutcomeMissing, "c/f", 9),
	}

	stats := newStatsCollector(io.Discard)
	deduped := dedupOutcomes(outcomes, stats)

	// c/f's digest 9 is present (a/f's current content), so it is dropped
	// regardless of the reclassification; this pins the present-set to what
	// is on disk, not to outcome kinds after rewriting
	for _, o := range deduped {
		if o.Kind == OutcomeMissing {
			t.Errorf("missing outcome with a present digest should be dropped: %+v", o)
		}
	}
	if stats.Results().FilesDuplicateRemoved != 2 {
		t.Errorf("expected 2 duplicates removed, got %d", stats.Results().FilesDuplicateRemoved)
	}
}

func TestDedupIdempotent(t *testing.T) {
	outcomes := []CheckOutcome{
		outcome(OutcomeNew, "new/f", 1),
		outcome(OutcomeMissing, "old/f", 1),
		modifiedOutcome("a/f", 9, 1),
		outcome(OutcomeMissing, "gone/f", 3),
	}

	stats := newStatsCollector(io.Discard)
	once := dedupOutcomes(outcomes, stats)
	twice := dedupOutcomes(once, stats)

	if len(once) != len(twice) {
		t.Fatalf("dedup is not idempotent: %d then %d outcomes", len(once), len(twice))
	}
	for i := range once {
		if once[i].Kind != twice[i].Kind || once[i].Record.RelPath != twice[i].Record.RelPath {
			t.Errorf("position %d changed on second pass: %+v vs %+v", i, once[i], twice[i])
		}
	}
}
