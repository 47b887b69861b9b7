package metric

import (
	"math/rand"
	"sort"
	"testing"
)

func TestNthElementMatchesSort(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	data := make([]float64, 200)
	for i := range data {
		data[i] = rng.Float64()
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)

	for _, k := range []int{0, 1, 50, 100, 199} {
		work := append([]float64(nil), data...)
		got := NthElement(work, k)
		if got != sorted[k] {
			t.Errorf("NthElement(k=%d) = %v, want %v", k, got, sorted[k])
		}
	}
}

func TestMedianOddLength(t *testing.T) {
	scores := []float64{5, 1, 3}
	if got := Median(scores); got != 3 {
		t.Errorf("Median = %v, want 3", got)
	}
}

func TestMedianEvenLengthPicksLowerCenter(t *testing.T) {
	scores := []float64{1, 2, 3, 4}
	if got := Median(scores); got != 2 {
		t.Errorf("Median = %v, want 2 (lower of the two central order statistics)", got)
	}
}

func TestMedianEmpty(t *testing.T) {
	if got := Median(nil); got != 0 {
		t.Errorf("Median(nil) = %v, want 0", got)
	}
}
