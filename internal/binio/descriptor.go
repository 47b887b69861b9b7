// Package binio implements the harness's fixed-record binary descriptor
// file format, the parallel-safe write protocol workers use to assemble a
// shared descriptor file, the gallery manifest writer, and raw little-endian
// score-vector I/O.
package binio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Record is one fixed-width descriptor record: a label and its D-byte
// payload.
//
//   - Label > 0: successful extraction; the value is the subject (class) id.
//   - Label < 0: the extraction was electively refused; abs(Label) is the
//     subject id and Payload is all zero bytes.
//   - Label == 0: reserved/invalid.
type Record struct {
	Label   int32
	Payload []byte
}

// Refused reports whether this record encodes an elective refusal.
func (r Record) Refused() bool { return r.Label < 0 }

// ClassID returns the subject id regardless of refusal (abs of Label).
func (r Record) ClassID() int32 {
	if r.Label < 0 {
		return -r.Label
	}
	return r.Label
}

// RecordSize returns the on-disk size of one record for the given payload
// size D.
func RecordSize(descSize int) int64 { return 4 + int64(descSize) }

// PayloadOffset returns the byte offset of record seq's payload within a
// descriptor file whose records are descSize bytes: 4 + seq*(4+D).
func PayloadOffset(seq int, descSize int) int64 {
	return 4 + int64(seq)*RecordSize(descSize)
}

// RecordOffset returns the byte offset of record seq's label (start of the
// record).
func RecordOffset(seq int, descSize int) int64 {
	return int64(seq) * RecordSize(descSize)
}

// SharedDescriptorFile coordinates writes from multiple concurrent workers
// into one pre-created descriptor file. Each worker computes a disjoint
// byte region in advance (from bucketing templates across workers) and
// writes only there, so no locking is needed at this layer; the auxiliary
// log appends that accompany extraction are serialized by AuxLogger's own
// mutex instead.
type SharedDescriptorFile struct {
	f        *os.File
	descSize int
}

// OpenShared pre-creates (or truncates) the descriptor file at path, sized
// for n records of descSize bytes, ready for every worker to open for
// random-access update.
func OpenShared(path string, n, descSize int) (*SharedDescriptorFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("binio: open shared descriptor file: %w", err)
	}
	if err := f.Truncate(int64(n) * RecordSize(descSize)); err != nil {
		f.Close()
		return nil, fmt.Errorf("binio: truncate shared descriptor file: %w", err)
	}
	return &SharedDescriptorFile{f: f, descSize: descSize}, nil
}

// WriteBucket writes records contiguously starting at the byte offset for
// sequence seqStart. The write targets a byte region disjoint from every
// other bucket, so no lock is required for the write itself.
func (s *SharedDescriptorFile) WriteBucket(seqStart int, records []Record) error {
	off := RecordOffset(seqStart, s.descSize)
	buf := make([]byte, RecordSize(s.descSize)*int64(len(records)))
	for i, rec := range records {
		if len(rec.Payload) != s.descSize {
			return fmt.Errorf("binio: record %d payload length %d, want %d", seqStart+i, len(rec.Payload), s.descSize)
		}
		base := i * int(RecordSize(s.descSize))
		binary.LittleEndian.PutUint32(buf[base:], uint32(rec.Label))
		copy(buf[base+4:], rec.Payload)
	}
	if _, err := s.f.WriteAt(buf, off); err != nil {
		return fmt.Errorf("binio: write bucket at seq %d: %w", seqStart, err)
	}
	return nil
}

// Close closes the underlying file.
func (s *SharedDescriptorFile) Close() error { return s.f.Close() }

// ReadDescriptors sequentially reads (label, payload) records from r until
// EOF. A short read (a trailing partial record) is an error, as is an empty
// file. refusals reports how many records had label < 0.
func ReadDescriptors(r io.Reader, descSize int) (records []Record, refusals int, err error) {
	labelBuf := make([]byte, 4)
	n := 0
	for {
		if _, err := io.ReadFull(r, labelBuf); err != nil {
			if err == io.EOF {
				break
			}
			return nil, 0, fmt.Errorf("binio: short read of label for record %d: %w", n, err)
		}
		label := int32(binary.LittleEndian.Uint32(labelBuf))
		payload := make([]byte, descSize)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, 0, fmt.Errorf("binio: short read of payload for record %d: %w", n, err)
		}
		rec := Record{Label: label, Payload: payload}
		if rec.Refused() {
			refusals++
		}
		records = append(records, rec)
		n++
	}
	if n == 0 {
		return nil, 0, fmt.Errorf("binio: empty descriptor file")
	}
	return records, refusals, nil
}
