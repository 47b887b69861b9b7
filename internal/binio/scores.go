package binio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// WriteScores persists a score vector as raw little-endian float32 bytes.
func WriteScores(w io.Writer, scores []float64) error {
	buf := make([]byte, 4*len(scores))
	for i, s := range scores {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(s)))
	}
	_, err := w.Write(buf)
	if err != nil {
		return fmt.Errorf("binio: write score vector: %w", err)
	}
	return nil
}

// ReadScores reads a raw little-endian float32 stream, inferring the
// element count from the number of bytes read.
func ReadScores(r io.Reader) ([]float64, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("binio: read score vector: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("binio: score file length %d not a multiple of 4", len(raw))
	}
	n := len(raw) / 4
	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		scores[i] = float64(math.Float32frombits(bits))
	}
	return scores, nil
}
