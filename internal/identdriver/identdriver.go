// Package identdriver implements the identification pipeline's gallery
// finalize, insert/remove stress, mate/non-mate search, and TPIR reporting
// stages.
package identdriver

import (
	"context"
	"fmt"
	"io"

	"github.com/chervyakov/facebench"
	"github.com/chervyakov/facebench/internal/binio"
	"github.com/chervyakov/facebench/internal/engine"
	"github.com/chervyakov/facebench/internal/metric"
)

// Identifier is the engine surface this driver calls into.
type Identifier interface {
	FinalizeInit(ctx context.Context, configDir, initDir, edbFile, manifestFile string) engine.ErrorCode
	InitializeIdentification(ctx context.Context, configDir, initDir string) engine.ErrorCode
	IdentifyTemplate(ctx context.Context, template []byte, k int) (candidates []facebench.Candidate, decision bool, code engine.ErrorCode)
	GalleryInsertID(ctx context.Context, template []byte, id string) engine.ErrorCode
	GalleryDeleteID(ctx context.Context, id string) engine.ErrorCode
}

// Ranks are the fixed identification ranks the search stage reports
// mate-query results at, short of the general (nearest_count) rank.
var Ranks = []int{1, 5, 20}

// General is the rank key used for the nearest_count-wide result, reported
// to "matches_true.bin" rather than a "matches_true_r<r>.bin" file.
const General = 0

// FinalizeInit converts an on-disk descriptor file and its manifest into the
// engine's internal gallery representation.
func FinalizeInit(ctx context.Context, ident Identifier, configDir, initDir, edbFile, manifestFile string) error {
	if code := ident.FinalizeInit(ctx, configDir, initDir, edbFile, manifestFile); code != engine.Success {
		return &engine.Error{Code: code, Info: "finalizeInit"}
	}
	return nil
}

// InitIdentification prepares the engine for identification queries
// following a successful FinalizeInit.
func InitIdentification(ctx context.Context, ident Identifier, configDir, initDir string) error {
	if code := ident.InitializeIdentification(ctx, configDir, initDir); code != engine.Success {
		return &engine.Error{Code: code, Info: "initializeIdentification"}
	}
	return nil
}

// Query is one identification probe: its extracted template and the class
// id used to judge whether a candidate is a correct hit. Label < 0 marks an
// electively-refused extraction.
type Query struct {
	Label    int32
	ClassID  int32
	Template []byte
}

// SearchResult collects mate-query scores per rank plus the non-mate score
// vector, ready to persist and feed into TPIR.
type SearchResult struct {
	MatchesTrueByRank map[int][]float64 // keyed by Ranks entries plus General
	MatchesFalse      []float64
}

// Search runs every mate query then every non-mate query through
// identifyTemplate, classifying results by rank.
func Search(ctx context.Context, ident Identifier, mates, nonmates []Query, nearestCount int) (SearchResult, error) {
	result := SearchResult{MatchesTrueByRank: map[int][]float64{General: {}}}
	for _, r := range Ranks {
		result.MatchesTrueByRank[r] = []float64{}
	}

	for _, q := range mates {
		candidates, err := identify(ctx, ident, q, nearestCount)
		if err != nil {
			return SearchResult{}, err
		}
		for _, r := range Ranks {
			result.MatchesTrueByRank[r] = append(result.MatchesTrueByRank[r], firstMatchScore(candidates, q.ClassID, r))
		}
		result.MatchesTrueByRank[General] = append(result.MatchesTrueByRank[General], firstMatchScore(candidates, q.ClassID, nearestCount))
	}

	for _, q := range nonmates {
		candidates, err := identify(ctx, ident, q, nearestCount)
		if err != nil {
			return SearchResult{}, err
		}
		score := 0.0
		if len(candidates) > 0 {
			score = candidates[0].SimilarityScore
		}
		result.MatchesFalse = append(result.MatchesFalse, score)
	}

	return result, nil
}

// identify calls identifyTemplate for non-refused queries, or synthesizes
// the stub candidate list a refused query short-circuits to.
func identify(ctx context.Context, ident Identifier, q Query, nearestCount int) ([]facebench.Candidate, error) {
	if q.Label < 0 {
		stub := make([]facebench.Candidate, nearestCount)
		for i := range stub {
			stub[i] = facebench.Candidate{Assigned: false, TemplateID: "none", SimilarityScore: 0}
		}
		return stub, nil
	}
	candidates, _, code := ident.IdentifyTemplate(ctx, q.Template, nearestCount)
	if code != engine.Success {
		return nil, &engine.Error{Code: code, Info: "identifyTemplate"}
	}
	return candidates, nil
}

// firstMatchScore searches the top-r candidates (candidates is already
// sorted descending by similarity) for the first one whose parsed class id
// equals classID, returning its score or 0 if none match.
func firstMatchScore(candidates []facebench.Candidate, classID int32, r int) float64 {
	if r > len(candidates) {
		r = len(candidates)
	}
	for _, c := range candidates[:r] {
		_, cid, ok := facebench.ParseTemplateID(c.TemplateID)
		if ok && int32(cid) == classID {
			return c.SimilarityScore
		}
	}
	return 0
}

// InsertStress calls galleryInsertID for every non-refused insert-list
// record, assigning each id "<dbSize+seq>_<classID>" in list order (seq is
// the record's index in records); refused records are skipped. Any
// non-Success code is fatal.
func InsertStress(ctx context.Context, ident Identifier, dbSize int, records []binio.Record) error {
	for seq, rec := range records {
		if rec.Refused() {
			continue
		}
		id := facebench.FormatTemplateID(dbSize+seq, int(rec.ClassID()))
		if code := ident.GalleryInsertID(ctx, rec.Payload, id); code != engine.Success {
			return &engine.Error{Code: code, Info: fmt.Sprintf("galleryInsertID(%s)", id)}
		}
	}
	return nil
}

// RemoveStress calls galleryDeleteID for each id in ids, in order; any
// non-Success code is fatal.
func RemoveStress(ctx context.Context, ident Identifier, ids []string) error {
	for _, id := range ids {
		if code := ident.GalleryDeleteID(ctx, id); code != engine.Success {
			return &engine.Error{Code: code, Info: fmt.Sprintf("galleryDeleteID(%s)", id)}
		}
	}
	return nil
}

// TPIRFPRs are the FPR decades the TPIR report is computed at.
var TPIRFPRs = []uint32{1, 2, 3}

// WriteTPIRReport computes FastTPIR for rank against the shared non-mate
// vector and writes one "Rank r:"/"General:" prefixed text report.
func WriteTPIRReport(w io.Writer, rank int, matchesTrue, matchesFalse []float64) error {
	tprs := metric.FastTPIR(matchesTrue, append([]float64(nil), matchesFalse...), TPIRFPRs)

	if rank == General {
		if _, err := fmt.Fprintln(w, "General:"); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Fprintf(w, "Rank %d:\n", rank); err != nil {
			return err
		}
	}
	for i, fpr := range TPIRFPRs {
		tpr := "none"
		if tprs[i] != metric.Sentinel {
			tpr = fmt.Sprintf("%g", tprs[i])
		}
		if _, err := fmt.Fprintf(w, "-%d %s\n", fpr, tpr); err != nil {
			return err
		}
	}
	return nil
}
