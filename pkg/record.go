package statehash

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Digest is a SHA-256 content digest. The array form is comparable, so it
// can key the present-set and archive-set maps directly.
type Digest [DigestSize]byte

// String returns the digest as lowercase hex
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// FileRecord is one tracked file: its snapshot-relative path, content
// digest, and the metadata observed when the content was last fully read.
// Digest is only ever set from a completed full read of the file's bytes;
// it is never inferred from metadata.
type FileRecord struct {
	RelPath   string    // slash-separated, no leading slash, unique per snapshot
	Digest    Digest    // SHA-256 of the full content
	MTime     time.Time // modification time at last full read (ns precision)
	Size      uint64    // byte length at last full read
	FullyRead time.Time // when the content was last fully read (s precision on disk)
	LastSeen  time.Time // when the file was last observed present (s precision on disk)
}

// Equal reports whether two records carry the same data. Times are compared
// with time.Time.Equal so records survive an encode/parse round trip through
// different time zone representations.
func (r *FileRecord) Equal(other *FileRecord) bool {
	return r.RelPath == other.RelPath &&
		r.Digest == other.Digest &&
		r.MTime.Equal(other.MTime) &&
		r.Size == other.Size &&
		r.FullyRead.Equal(other.FullyRead) &&
		r.LastSeen.Equal(other.LastSeen)
}

// ParseError reports a snapshot line that does not match the record grammar.
// It always carries the offending line for diagnostics.
type ParseError struct {
	Line   string // the raw line that failed to parse
	Reason string // which part of the grammar was violated
	Err    error  // underlying parse failure, if any
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid line (%s): '%s'", e.Reason, e.Line)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// mtimeSep separates the path from the metadata fields. A path may itself
// contain this byte sequence; the encoder is greedy, so the parser splits at
// the last occurrence.
const mtimeSep = " # mtime "

// EncodeLine encodes the record as one newline-terminated snapshot line:
//
//	<64 hex> <rel-path> # mtime <secs>.<9-digit nanos> size <bytes> fully_read <secs> last_seen <secs>
//
// fully_read and last_seen are truncated to whole seconds on write.
func (r *FileRecord) EncodeLine() []byte {
	return fmt.Appendf(nil, "%s %s # mtime %d.%09d size %d fully_read %d last_seen %d\n",
		hex.EncodeToString(r.Digest[:]),
		r.RelPath,
		r.MTime.Unix(),
		r.MTime.Nanosecond(),
		r.Size,
		r.FullyRead.Unix(),
		r.LastSeen.Unix())
}

// ParseRecord decodes one snapshot line. Any line not matching the grammar
// fails with a *ParseError carrying the raw line. The parser is hand-rolled
// rather than a regular expression: the digest is fixed-width hex, the
// delimiters are literals and the remaining fields are plain integers, so
// there is nothing for a regex engine to do except cost backtracking time on
// hostile input.
func ParseRecord(line string) (FileRecord, error) {
	line = strings.TrimSuffix(line, "\n")

	var rec FileRecord

	// 64 hex digest characters, then a single space
	if len(line) < 65 || line[64] != ' ' {
		return rec, &ParseError{Line: line, Reason: "truncated or missing digest field"}
	}
	digestHex := line[:64]
	for i := 0; i < 64; i++ {
		c := digestHex[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return rec, &ParseError{Line: line, Reason: "couldn't parse sha256 digest"}
		}
	}
	if _, err := hex.Decode(rec.Digest[:], []byte(digestHex)); err != nil {
		return rec, &ParseError{Line: line, Reason: "couldn't parse sha256 digest", Err: err}
	}

	// Relative path: a single leading slash is tolerated and stripped
	rest := strings.TrimPrefix(line[65:], "/")
	if strings.HasPrefix(rest, "/") {
		return rec, &ParseError{Line: line, Reason: "path starts with '/'"}
	}

	sep := strings.LastIndex(rest, mtimeSep)
	if sep <= 0 {
		return rec, &ParseError{Line: line, Reason: "missing path or mtime field"}
	}
	rec.RelPath = rest[:sep]
	meta := rest[sep+len(mtimeSep):]

	// "<secs>.<nanos> size <bytes> fully_read <secs> last_seen <secs>"
	fields := strings.Split(meta, " ")
	if len(fields) != 7 || fields[1] != "size" || fields[3] != "fully_read" || fields[5] != "last_seen" {
		return rec, &ParseError{Line: line, Reason: "malformed metadata fields"}
	}

	mtimeSec, mtimeNsec, err := parseMTime(fields[0])
	if err != nil {
		return rec, &ParseError{Line: line, Reason: "couldn't parse mtime", Err: err}
	}
	rec.MTime = time.Unix(mtimeSec, mtimeNsec)

	rec.Size, err = strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return rec, &ParseError{Line: line, Reason: "couldn't parse size", Err: err}
	}

	fullyRead, err := parseSeconds(fields[4])
	if err != nil {
		return rec, &ParseError{Line: line, Reason: "couldn't parse fully_read", Err: err}
	}
	rec.FullyRead = time.Unix(fullyRead, 0)

	lastSeen, err := parseSeconds(fields[6])
	if err != nil {
		return rec, &ParseError{Line: line, Reason: "couldn't parse last_seen", Err: err}
	}
	rec.LastSeen = time.Unix(lastSeen, 0)

	return rec, nil
}

// parseMTime parses "<secs>.<nanos>". The fractional part may be shorter
// than nine digits; it is scaled as a decimal fraction of a second.
func parseMTime(field string) (sec int64, nsec int64, err error) {
	dot := strings.IndexByte(field, '.')
	if dot < 0 {
		return 0, 0, fmt.Errorf("missing fractional part: %s", field)
	}

	sec, err = strconv.ParseInt(field[:dot], 10, 64)
	if err != nil {
		return 0, 0, err
	}

	frac := field[dot+1:]
	if len(frac) == 0 || len(frac) > 9 {
		return 0, 0, fmt.Errorf("fractional part must be 1-9 digits: %s", field)
	}
	nsec, err = strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	for i := len(frac); i < 9; i++ {
		nsec *= 10
	}
	return sec, nsec, nil
}

// parseSeconds parses a whole-second timestamp, tolerating (and discarding)
// a trailing fractional part that older snapshot writers emitted.
func parseSeconds(field string) (int64, error) {
	if dot := strings.IndexByte(field, '.'); dot >= 0 {
		frac := field[dot+1:]
		if frac == "" {
			return 0, fmt.Errorf("empty fractional part: %s", field)
		}
		for i := 0; i < len(frac); i++ {
			if frac[i] < '0' || frac[i] > '9' {
				return 0, fmt.Errorf("non-digit fractional part: %s", field)
			}
		}
		field = field[:dot]
	}
	return strconv.ParseInt(field, 10, 64)
}
