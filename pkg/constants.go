package statehash

const (
	// Snapshot file suffixes within the state directory
	StateSuffix    = ".state"    // authoritative snapshot, one per run
	ModifiedSuffix = ".modified" // previous records of files changed this run
	MissingSuffix  = ".missing"  // records of files that vanished this run

	// SnapshotTimeLayout names snapshot files by local time; lexical order
	// of the names is chronological order.
	SnapshotTimeLayout = "20060102 150405"

	// DigestSize is the SHA-256 digest length in bytes
	DigestSize = 32

	// DefaultThreads is the hash worker count when neither the config file
	// nor the caller sets one. Reading with one worker is the safe default
	// for spinning disks; SSDs benefit from around 8.
	DefaultThreads = 1

	// DefaultReadBuffer is the per-worker read buffer size ("4M")
	DefaultReadBuffer = 4 * 1024 * 1024
)
