// Package extractor fans a parsed template list out across a pool of
// goroutines, calling into an engine's createTemplate for each template and
// assembling the results into one shared descriptor file.
//
// Each worker owns one contiguous bucket of templates (see
// internal/inputlist.Bucket) and computes its own disjoint byte region of
// the descriptor file in advance, so the only cross-worker contention is the
// auxiliary log appends guarded by binio.AuxLogger's mutex. One goroutine
// runs per worker, each with its own Timer for the lifetime of its bucket; a
// worker panic is recovered and reported as that worker's error rather than
// taking down the whole run. Every worker runs to completion, and the errors
// of all failing workers are joined into one error in worker-index order.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chervyakov/facebench"
	"github.com/chervyakov/facebench/internal/binio"
	"github.com/chervyakov/facebench/internal/engine"
	"github.com/chervyakov/facebench/internal/imageio"
	"github.com/chervyakov/facebench/internal/inputlist"
	"github.com/chervyakov/facebench/internal/timer"
)

// TemplateCreator is the minimal engine surface the extractor needs; both
// engine.VerificationEngine and engine.IdentificationEngine satisfy it.
type TemplateCreator interface {
	CreateTemplate(ctx context.Context, faces facebench.Multiface, role facebench.TemplateRole) engine.CreateResult
}

// Config controls one extraction run.
type Config struct {
	DescSize   int // D, the fixed descriptor payload size
	Role       facebench.TemplateRole
	NumWorkers int
	Grayscale  bool
	Extended   bool    // retain per-template timing samples for percentile reporting
	Percentile float64 // ExtendedInfo percentile, only used when Extended is set
}

// Stats summarizes one completed extraction run.
type Stats struct {
	Total    int
	Refused  int
	Average  time.Duration
	Extended timer.ExtendedStats
}

// Run decodes every template's images, extracts a descriptor via creator,
// and writes the resulting records into desc at each template's byte
// offset. aux may be nil, in which case no auxiliary logs are written.
//
// The returned Stats.Total/Refused are exact; Average and Extended summarize
// per-template createTemplate latency across every worker combined.
func Run(ctx context.Context, creator TemplateCreator, templates []inputlist.Template, cfg Config, desc *binio.SharedDescriptorFile, aux *binio.AuxLogger) (Stats, error) {
	numWorkers := cfg.NumWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}
	buckets := inputlist.Bucket(templates, numWorkers)

	var refused atomic.Int64
	var totalNanos atomic.Int64
	var totalCount atomic.Int64
	var samplesMu sync.Mutex
	var allSamples []time.Duration

	g, gctx := errgroup.WithContext(ctx)
	workerErrs := make([]error, len(buckets))

	seqStart := 0
	for workerIdx, bucket := range buckets {
		bucket := bucket
		start := seqStart
		seqStart += len(bucket)
		workerIdx := workerIdx

		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("extractor: worker %d: panic: %v", workerIdx, r)
				}
				workerErrs[workerIdx] = err
			}()

			n, r, samples, berr := extractBucket(gctx, creator, bucket, cfg, aux, desc, start)
			totalNanos.Add(int64(n))
			totalCount.Add(int64(len(bucket)))
			refused.Add(int64(r))
			if len(samples) > 0 {
				samplesMu.Lock()
				allSamples = append(allSamples, samples...)
				samplesMu.Unlock()
			}
			if berr != nil {
				return fmt.Errorf("extractor: worker %d: %w", workerIdx, berr)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Stats{}, errors.Join(workerErrs...)
	}

	stats := Stats{Total: len(templates), Refused: int(refused.Load())}
	if c := totalCount.Load(); c > 0 {
		stats.Average = time.Duration(totalNanos.Load() / c)
	} else {
		stats.Average = timer.Average_None
	}
	if cfg.Extended {
		stats.Extended = timer.ExtendedInfoOf(allSamples, cfg.Percentile)
	}
	return stats, nil
}

// extractBucket runs one worker's contiguous slice of templates, then writes
// the resulting records into desc at seqStart — the worker's disjoint byte
// region, so no lock is needed for the write itself. On a fatal engine error
// it returns the error immediately, abandoning the rest of the bucket
// without writing anything for it.
func extractBucket(ctx context.Context, creator TemplateCreator, bucket []inputlist.Template, cfg Config, aux *binio.AuxLogger, desc *binio.SharedDescriptorFile, seqStart int) (totalNanos int64, refused int, samples []time.Duration, err error) {
	// Every elective refusal in this bucket writes the same all-zero
	// payload; one buffer can be shared read-only across them.
	zero := make([]byte, cfg.DescSize)

	t := timer.New(cfg.Extended)
	records := make([]binio.Record, len(bucket))

	for i, tmpl := range bucket {
		faces, derr := decodeMultiface(tmpl, cfg.Grayscale)
		if derr != nil {
			return totalNanos, refused, t.Samples(), fmt.Errorf("decode template %d: %w", tmpl.TemplateID, derr)
		}

		t.Start()
		result := creator.CreateTemplate(ctx, faces, cfg.Role)
		elapsed := t.Stop()
		totalNanos += int64(elapsed)

		templateID := facebench.FormatTemplateID(seqStart+i, tmpl.ClassID)

		switch result.Code {
		case engine.Success:
			if len(result.Template) != cfg.DescSize {
				return totalNanos, refused, t.Samples(), fmt.Errorf(
					"template %d: createTemplate returned %d-byte payload, want %d",
					tmpl.TemplateID, len(result.Template), cfg.DescSize)
			}
			records[i] = binio.Record{Label: int32(tmpl.ClassID), Payload: result.Template}
			if aux != nil {
				aux.Debug(templateID, int32(tmpl.ClassID), elapsed.Milliseconds())
				aux.ExtractInfo(templateID, int32(tmpl.ClassID), result.Eyes.LeftX, result.Eyes.LeftY, result.Quality)
			}
		case engine.RefuseInput:
			refused++
			records[i] = binio.Record{Label: -int32(tmpl.ClassID), Payload: zero}
			if aux != nil {
				aux.Fail(templateID, tmpl.ImagePaths)
			}
		default:
			return totalNanos, refused, t.Samples(), &engine.Error{Code: result.Code, Info: fmt.Sprintf("template %d", tmpl.TemplateID)}
		}
	}

	if len(records) == 0 {
		return totalNanos, refused, t.Samples(), nil
	}
	if err := desc.WriteBucket(seqStart, records); err != nil {
		return totalNanos, refused, t.Samples(), err
	}
	return totalNanos, refused, t.Samples(), nil
}

func decodeMultiface(tmpl inputlist.Template, grayscale bool) (facebench.Multiface, error) {
	faces := make(facebench.Multiface, len(tmpl.ImagePaths))
	for i, path := range tmpl.ImagePaths {
		img, err := imageio.Decode(path, grayscale)
		if err != nil {
			return nil, err
		}
		faces[i] = img
	}
	return faces, nil
}
