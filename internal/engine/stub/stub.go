// Package stub provides a deterministic in-memory reference engine used by
// the harness's own scenario tests and by `--engine=stub` runs. It is not a
// recognition implementation (extraction, alignment and matching are
// trivial placeholders) — it exists only to exercise every stage of the
// pipeline without a real engine.
package stub

import (
	"container/heap"
	"context"
	"encoding/binary"
	"os"
	"sort"
	"sync"

	"github.com/chervyakov/facebench"
	"github.com/chervyakov/facebench/internal/binio"
	"github.com/chervyakov/facebench/internal/engine"
)

// DescSize is the fixed descriptor payload size this stub produces. The
// class id is embedded in the first 4 bytes; the rest is padding.
const DescSize = 16

const (
	matedScore    = 0.95
	nonMatedScore = 0.10
)

// Engine implements both engine.VerificationEngine and
// engine.IdentificationEngine. RefuseClassIDs, when non-nil, names class ids
// that CreateTemplate should refuse (engine.RefuseInput) to exercise the
// refusal path deterministically.
type Engine struct {
	RefuseClassIDs map[int]bool

	mu      sync.Mutex
	gallery []galleryEntry
}

type galleryEntry struct {
	templateID string
	classID    int
	payload    []byte
}

func New() *Engine { return &Engine{} }

func (e *Engine) Initialize(ctx context.Context, configDir string) engine.ErrorCode {
	return engine.Success
}

func (e *Engine) InitializeTemplateCreation(ctx context.Context, configDir string, role facebench.TemplateRole) engine.ErrorCode {
	return engine.Success
}

func (e *Engine) Train(ctx context.Context, configDir, trainedConfigDir string) engine.ErrorCode {
	return engine.Success
}

func (e *Engine) CreateTemplate(ctx context.Context, faces facebench.Multiface, role facebench.TemplateRole) engine.CreateResult {
	if err := faces.Validate(); err != nil {
		return engine.CreateResult{Code: engine.FaceDetectionError}
	}
	classID := classIDFromImage(faces[0])
	if e.RefuseClassIDs[classID] {
		return engine.CreateResult{Code: engine.RefuseInput}
	}
	payload := make([]byte, DescSize)
	binary.LittleEndian.PutUint32(payload, uint32(classID))
	quality := 0.9
	if role == facebench.RoleInitI || role == facebench.RoleIdentification {
		quality = 0
	}
	return engine.CreateResult{
		Code:     engine.Success,
		Template: payload,
		Eyes:     engine.EyePair{LeftX: 10, LeftY: 10, RightX: 20, RightY: 10},
		Quality:  quality,
	}
}

func (e *Engine) MatchTemplates(ctx context.Context, a, b []byte) (float64, engine.ErrorCode) {
	if len(a) < 4 || len(b) < 4 {
		return 0, engine.TemplateFormatError
	}
	ca := int32(binary.LittleEndian.Uint32(a))
	cb := int32(binary.LittleEndian.Uint32(b))
	if ca == cb {
		return matedScore, engine.Success
	}
	return nonMatedScore, engine.Success
}

func (e *Engine) FinalizeInit(ctx context.Context, configDir, initDir, edbFile, manifestFile string) engine.ErrorCode {
	descFile, err := os.Open(edbFile)
	if err != nil {
		return engine.InitDirError
	}
	defer descFile.Close()
	records, _, err := binio.ReadDescriptors(descFile, DescSize)
	if err != nil {
		return engine.InitDirError
	}
	manifestR, err := os.Open(manifestFile)
	if err != nil {
		return engine.InitDirError
	}
	defer manifestR.Close()
	entries, err := binio.ReadManifest(manifestR)
	if err != nil {
		return engine.InitDirError
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.gallery = e.gallery[:0]
	for _, entry := range entries {
		rec := records[entry.Seq]
		e.gallery = append(e.gallery, galleryEntry{
			templateID: facebench.FormatTemplateID(entry.Seq, int(entry.ClassID)),
			classID:    int(entry.ClassID),
			payload:    rec.Payload,
		})
	}
	return engine.Success
}

func (e *Engine) InitializeIdentification(ctx context.Context, configDir, initDir string) engine.ErrorCode {
	return engine.Success
}

// candHeap is a min-heap over similarity (with template id as tie-breaker)
// used to keep the top-k candidates without collapsing same-score ties the
// way a plain map keyed by similarity would.
type candHeap []facebench.Candidate

func (h candHeap) Len() int { return len(h) }
func (h candHeap) Less(i, j int) bool {
	if h[i].SimilarityScore != h[j].SimilarityScore {
		return h[i].SimilarityScore < h[j].SimilarityScore
	}
	return h[i].TemplateID > h[j].TemplateID
}
func (h candHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candHeap) Push(x any)        { *h = append(*h, x.(facebench.Candidate)) }
func (h *candHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

func (e *Engine) IdentifyTemplate(ctx context.Context, template []byte, k int) ([]facebench.Candidate, bool, engine.ErrorCode) {
	if len(template) < 4 {
		return nil, false, engine.TemplateFormatError
	}
	queryClass := int32(binary.LittleEndian.Uint32(template))

	e.mu.Lock()
	gallery := append([]galleryEntry(nil), e.gallery...)
	e.mu.Unlock()

	h := &candHeap{}
	heap.Init(h)
	for _, g := range gallery {
		score := nonMatedScore
		if int32(g.classID) == queryClass {
			score = matedScore
		}
		heap.Push(h, facebench.Candidate{Assigned: true, TemplateID: g.templateID, SimilarityScore: score})
		if h.Len() > k {
			heap.Pop(h)
		}
	}
	out := make([]facebench.Candidate, h.Len())
	copy(out, *h)
	sort.Slice(out, func(i, j int) bool {
		if out[i].SimilarityScore != out[j].SimilarityScore {
			return out[i].SimilarityScore > out[j].SimilarityScore
		}
		return out[i].TemplateID < out[j].TemplateID
	})
	decision := len(out) > 0 && out[0].SimilarityScore >= matedScore
	return out, decision, engine.Success
}

func (e *Engine) GalleryInsertID(ctx context.Context, template []byte, id string) engine.ErrorCode {
	if len(template) < 4 {
		return engine.TemplateFormatError
	}
	_, classID, ok := facebench.ParseTemplateID(id)
	if !ok {
		return engine.ParseError
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gallery = append(e.gallery, galleryEntry{templateID: id, classID: classID, payload: template})
	return engine.Success
}

func (e *Engine) GalleryDeleteID(ctx context.Context, id string) engine.ErrorCode {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, g := range e.gallery {
		if g.templateID == id {
			e.gallery = append(e.gallery[:i], e.gallery[i+1:]...)
			return engine.Success
		}
	}
	return engine.NumDataError
}

func classIDFromImage(img facebench.Image) int {
	if len(img.Data) == 0 {
		return 0
	}
	return int(img.Data[0])
}
