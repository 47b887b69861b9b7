package binio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ManifestEntry is one parsed line of a gallery manifest.
type ManifestEntry struct {
	Seq     int
	ClassID int32
	Size    int
	Offset  int64
}

// WriteManifest walks records in order, emitting one line per non-refused
// record: "<seq>_<class_id> <D> <byte_offset>". seq is the record's index in
// the source descriptor file (not re-indexed after skipping refusals), and
// offset is PayloadOffset(seq, descSize).
func WriteManifest(w io.Writer, records []Record, descSize int) error {
	bw := bufio.NewWriter(w)
	for seq, rec := range records {
		if rec.Refused() {
			continue
		}
		if _, err := fmt.Fprintf(bw, "%d_%d %d %d\n", seq, rec.ClassID(), descSize, PayloadOffset(seq, descSize)); err != nil {
			return fmt.Errorf("binio: write manifest line for seq %d: %w", seq, err)
		}
	}
	return bw.Flush()
}

// ReadManifest parses a gallery manifest written by WriteManifest.
func ReadManifest(r io.Reader) ([]ManifestEntry, error) {
	scanner := bufio.NewScanner(r)
	var entries []ManifestEntry
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("binio: manifest line %d: want 3 fields, got %d", lineNo, len(fields))
		}
		seq, classID, ok := parseSeqClassID(fields[0])
		if !ok {
			return nil, fmt.Errorf("binio: manifest line %d: malformed id %q", lineNo, fields[0])
		}
		size, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("binio: manifest line %d: malformed size: %w", lineNo, err)
		}
		offset, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("binio: manifest line %d: malformed offset: %w", lineNo, err)
		}
		entries = append(entries, ManifestEntry{Seq: seq, ClassID: int32(classID), Size: size, Offset: offset})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("binio: scan manifest: %w", err)
	}
	return entries, nil
}

func parseSeqClassID(s string) (seq, classID int, ok bool) {
	i := strings.IndexByte(s, '_')
	if i < 0 {
		return 0, 0, false
	}
	seq, err1 := strconv.Atoi(s[:i])
	classID, err2 := strconv.Atoi(s[i+1:])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return seq, classID, true
}
