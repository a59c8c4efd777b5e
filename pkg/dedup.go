package statehash

import "sort"

// sortOutcomes orders outcomes by path so the result is independent of
// worker scheduling. Modified outcomes sort by the current record's path;
// Missing outcomes carry the prior record, whose path is the only one they
// have.
func sortOutcomes(outcomes []CheckOutcome) {
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Record.RelPath < outcomes[j].Record.RelPath
	})
}

// presentDigests returns the set of digests confirmed to exist on disk this
// run: every New, Unchanged and Modified-current record
func presentDigests(outcomes []CheckOutcome) map[Digest]struct{} {
	present := make(map[Digest]struct{})
	for i := range outcomes {
		switch outcomes[i].Kind {
		case OutcomeNew, OutcomeUnchanged, OutcomeModified:
			present[outcomes[i].Record.Digest] = struct{}{}
		case OutcomeMissing:
		}
	}
	return present
}

// dedupOutcomes reconciles missing and modified outcomes against the
// present-set (update mode only):
//
//   - a Missing record whose digest is still present somewhere is dropped
//     entirely — its content survives under another path
//   - a Modified outcome whose previous digest is still present somewhere is
//     reclassified as New with the current record — the old content lives on
//     elsewhere, so this location is better modelled as a fresh file
//
// Both cases count as duplicate-removed. This is a single pass over a fixed
// present-set, not a transitive closure: two files that vanish together and
// were duplicates only of each other both remain Missing.
func dedupOutcomes(outcomes []CheckOutcome, stats *StatsCollector) []CheckOutcome {
	present := presentDigests(outcomes)

	var removed uint64
	deduped := make([]CheckOutcome, 0, len(outcomes))
	for _, outcome := range outcomes {
		switch outcome.Kind {
		case OutcomeMissing:
			if _, ok := present[outcome.Record.Digest]; ok {
				removed++
				continue
			}
			deduped = append(deduped, outcome)
		case OutcomeModified:
			if _, ok := present[outcome.Previous.Digest]; ok {
				removed++
				deduped = append(deduped, CheckOutcome{Kind: OutcomeNew, Record: outcome.Record})
			} else {
				deduped = append(deduped, outcome)
			}
		case OutcomeNew, OutcomeUnchanged:
			deduped = append(deduped, outcome)
		}
	}

	stats.DuplicatesRemoved(removed)
	return deduped
}
