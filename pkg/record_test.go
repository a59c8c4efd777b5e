package statehash

import (
	"strings"
	"testing"
	"time"
)

func testRecord() FileRecord {
	var digest Digest
	for i := range digest {
		digest[i] = 5
	}
	return FileRecord{
		RelPath:   "test/äöüß/#!,.\"§$%&()=?{[]}/something",
		Digest:    digest,
		MTime:     time.Unix(0, 1653660805133248800),
		Size:      123456,
		FullyRead: time.Unix(1653660817, 0),
		LastSeen:  time.Unix(1653660810, 0),
	}
}

func TestRecordRoundTrip(t *testing.T) {
	rec := testRecord()

	line := rec.EncodeLine()
	parsed, err := ParseRecord(string(line))
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}

	if !rec.Equal(&parsed) {
		t.Errorf("round trip mismatch:\n  original: %+v\n  parsed:   %+v", rec, parsed)
	}

	// Re-encoding the parsed record must reproduce the exact line
	line2 := parsed.EncodeLine()
	if string(line) != string(line2) {
		t.Errorf("re-encoded line differs:\n  first:  %s\n  second: %s", line, line2)
	}
}

func TestEncodeLineFormat(t *testing.T) {
	rec := FileRecord{
		RelPath:   "dir/file.txt",
		MTime:     time.Unix(1653660805, 5),
		Size:      42,
		FullyRead: time.Unix(1653660817, 999999999), // truncated on write
		LastSeen:  time.Unix(1653660810, 123),       // truncated on write
	}

	line := string(rec.EncodeLine())
	expected := strings.Repeat("0", 64) +
		" dir/file.txt # mtime 1653660805.000000005 size 42 fully_read 1653660817 last_seen 1653660810\n"
	if line != expected {
		t.Errorf("unexpected encoding:\n  got:  %q\n  want: %q", line, expected)
	}
}

func TestParseRecordLeadingSlashStripped(t *testing.T) {
	line := strings.Repeat("ab", 32) +
		" /some/path # mtime 10.5 size 1 fully_read 20 last_seen 30"

	rec, err := ParseRecord(line)
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	if rec.RelPath != "some/path" {
		t.Errorf("expected leading slash stripped, got %q", rec.RelPath)
	}
}

func TestParseRecordShortFraction(t *testing.T) {
	// A single fractional digit scales as a decimal fraction of a second
	line := strings.Repeat("ab", 32) +
		" f # mtime 10.5 size 1 fully_read 20 last_seen 30"

	rec, err := ParseRecord(line)
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	if got := rec.MTime.Nanosecond(); got != 500000000 {
		t.Errorf("expected 500000000 nanoseconds, got %d", got)
	}
	if got := rec.MTime.Unix(); got != 10 {
		t.Errorf("expected 10 seconds, got %d", got)
	}
}

func TestParseRecordFractionalTimestampsTolerated(t *testing.T) {
	line := strings.Repeat("ab", 32) +
		" f # mtime 10.000000001 size 1 fully_read 20.25 last_seen 30.999"

	rec, err := ParseRecord(line)
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	if got := rec.FullyRead.Unix(); got != 20 {
		t.Errorf("expected fully_read truncated to 20, got %d", got)
	}
	if got := rec.LastSeen.Unix(); got != 30 {
		t.Errorf("expected last_seen truncated to 30, got %d", got)
	}
}

func TestParseRecordPathContainingSeparator(t *testing.T) {
	// The encoder is greedy, so the parser splits at the last separator
	rec := FileRecord{
		RelPath:   "weird # mtime 1.1 size 1 fully_read 1 last_seen 1/file",
		MTime:     time.Unix(7, 0),
		Size:      9,
		FullyRead: time.Unix(8, 0),
		LastSeen:  time.Unix(9, 0),
	}

	parsed, err := ParseRecord(string(rec.EncodeLine()))
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	if !rec.Equal(&parsed) {
		t.Errorf("round trip mismatch for separator-bearing path: got %+v", parsed)
	}
}

func TestParseRecordFailures(t *testing.T) {
	validDigest := strings.Repeat("ab", 32)

	testCases := []struct {
		name string
		line string
	}{
		{"empty line", ""},
		{"truncated digest", "abcdef"},
		{"uppercase digest", strings.ToUpper(validDigest) + " f # mtime 1.1 size 1 fully_read 1 last_seen 1"},
		{"non-hex digest", strings.Repeat("zz", 32) + " f # mtime 1.1 size 1 fully_read 1 last_seen 1"},
		{"missing path", validDigest + "  # mtime 1.1 size 1 fully_read 1 last_seen 1"},
		{"double leading slash", validDigest + " //f # mtime 1.1 size 1 fully_read 1 last_seen 1"},
		{"missing mtime separator", validDigest + " f 1.1 size 1 fully_read 1 last_seen 1"},
		{"mtime without fraction", validDigest + " f # mtime 1 size 1 fully_read 1 last_seen 1"},
		{"fraction too long", validDigest + " f # mtime 1.0000000001 size 1 fully_read 1 last_seen 1"},
		{"non-numeric size", validDigest + " f # mtime 1.1 size x fully_read 1 last_seen 1"},
		{"negative size", validDigest + " f # mtime 1.1 size -1 fully_read 1 last_seen 1"},
		{"non-numeric fully_read", validDigest + " f # mtime 1.1 size 1 fully_read x last_seen 1"},
		{"non-digit fully_read fraction", validDigest + " f # mtime 1.1 size 1 fully_read 1.x last_seen 1"},
		{"missing last_seen", validDigest + " f # mtime 1.1 size 1 fully_read 1"},
		{"trailing field", validDigest + " f # mtime 1.1 size 1 fully_read 1 last_seen 1 extra"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRecord(tc.line)
			if err == nil {
				t.Fatalf("expected a parse error for %q", tc.line)
			}
			parseErr, ok := err.(*ParseError)
			if !ok {
				t.Fatalf("expected *ParseError, got %T: %v", err, err)
			}
			if parseErr.Line != tc.line {
				t.Errorf("ParseError should carry the offending line, got %q", parseErr.Line)
			}
		})
	}
}
