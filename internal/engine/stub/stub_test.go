package stub

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/chervyakov/facebench"
	"github.com/chervyakov/facebench/internal/binio"
	"github.com/chervyakov/facebench/internal/engine"
)

func imageForClass(classID byte) facebench.Multiface {
	return facebench.Multiface{{Width: 1, Height: 1, Depth: facebench.Depth8, Data: []byte{classID}}}
}

func TestCreateTemplateDeterministic(t *testing.T) {
	e := New()
	ctx := context.Background()
	r1 := e.CreateTemplate(ctx, imageForClass(7), facebench.RoleInitV)
	r2 := e.CreateTemplate(ctx, imageForClass(7), facebench.RoleInitV)
	if r1.Code != engine.Success || r2.Code != engine.Success {
		t.Fatalf("unexpected codes: %v %v", r1.Code, r2.Code)
	}
	if string(r1.Template) != string(r2.Template) {
		t.Errorf("CreateTemplate not deterministic: %x vs %x", r1.Template, r2.Template)
	}
}

func TestCreateTemplateRefusal(t *testing.T) {
	e := New()
	e.RefuseClassIDs = map[int]bool{9: true}
	r := e.CreateTemplate(context.Background(), imageForClass(9), facebench.RoleInitV)
	if r.Code != engine.RefuseInput {
		t.Errorf("code = %v, want RefuseInput", r.Code)
	}
}

func TestMatchTemplatesMatedVsNonMated(t *testing.T) {
	e := New()
	ctx := context.Background()
	a := e.CreateTemplate(ctx, imageForClass(1), facebench.RoleVerification).Template
	b := e.CreateTemplate(ctx, imageForClass(1), facebench.RoleVerification).Template
	c := e.CreateTemplate(ctx, imageForClass(2), facebench.RoleVerification).Template

	sim, code := e.MatchTemplates(ctx, a, b)
	if code != engine.Success || sim != matedScore {
		t.Errorf("mated match = (%v, %v), want (%v, Success)", sim, code, matedScore)
	}
	sim, code = e.MatchTemplates(ctx, a, c)
	if code != engine.Success || sim != nonMatedScore {
		t.Errorf("non-mated match = (%v, %v), want (%v, Success)", sim, code, nonMatedScore)
	}
}

func TestFinalizeInitAndIdentify(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	e := New()

	// Build a 2-template db: class 1 and class 2.
	records := []binio.Record{
		{Label: 1, Payload: e.CreateTemplate(ctx, imageForClass(1), facebench.RoleInitI).Template},
		{Label: 2, Payload: e.CreateTemplate(ctx, imageForClass(2), facebench.RoleInitI).Template},
	}
	edbPath := filepath.Join(dir, "db.bin")
	sdf, err := binio.OpenShared(edbPath, len(records), DescSize)
	if err != nil {
		t.Fatal(err)
	}
	if err := sdf.WriteBucket(0, records); err != nil {
		t.Fatal(err)
	}
	sdf.Close()

	manifestPath := filepath.Join(dir, "manifest.txt")
	mf, err := os.Create(manifestPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := binio.WriteManifest(mf, records, DescSize); err != nil {
		t.Fatal(err)
	}
	mf.Close()

	if code := e.FinalizeInit(ctx, "", "", edbPath, manifestPath); code != engine.Success {
		t.Fatalf("FinalizeInit = %v", code)
	}

	query := e.CreateTemplate(ctx, imageForClass(1), facebench.RoleIdentification).Template
	candidates, decision, code := e.IdentifyTemplate(ctx, query, 2)
	if code != engine.Success {
		t.Fatalf("IdentifyTemplate code = %v", code)
	}
	if !decision {
		t.Error("expected positive decision for mated query")
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}
	if candidates[0].SimilarityScore != matedScore {
		t.Errorf("top candidate score = %v, want %v", candidates[0].SimilarityScore, matedScore)
	}
}

func TestGalleryInsertAndDelete(t *testing.T) {
	e := New()
	ctx := context.Background()
	tmpl := e.CreateTemplate(ctx, imageForClass(3), facebench.RoleIdentification).Template
	if code := e.GalleryInsertID(ctx, tmpl, "0_3"); code != engine.Success {
		t.Fatalf("insert code = %v", code)
	}
	query := e.CreateTemplate(ctx, imageForClass(3), facebench.RoleIdentification).Template
	candidates, decision, _ := e.IdentifyTemplate(ctx, query, 1)
	if !decision || len(candidates) != 1 || candidates[0].TemplateID != "0_3" {
		t.Fatalf("expected mated hit on inserted id, got %+v decision=%v", candidates, decision)
	}

	if code := e.GalleryDeleteID(ctx, "0_3"); code != engine.Success {
		t.Fatalf("delete code = %v", code)
	}
	candidates, decision, _ = e.IdentifyTemplate(ctx, query, 1)
	if decision || len(candidates) != 0 {
		t.Fatalf("expected no candidates after delete, got %+v decision=%v", candidates, decision)
	}
}

func TestIdentifyTemplateNoTieCollapse(t *testing.T) {
	// Two gallery entries with identical (non-mated) similarity must both
	// survive a top-k search instead of collapsing into one slot.
	e := New()
	ctx := context.Background()
	a := e.CreateTemplate(ctx, imageForClass(5), facebench.RoleIdentification).Template
	b := e.CreateTemplate(ctx, imageForClass(6), facebench.RoleIdentification).Template
	if err := e.GalleryInsertID(ctx, a, "0_5"); err != engine.Success {
		t.Fatal(err)
	}
	if err := e.GalleryInsertID(ctx, b, "1_6"); err != engine.Success {
		t.Fatal(err)
	}
	query := e.CreateTemplate(ctx, imageForClass(99), facebench.RoleIdentification).Template
	candidates, _, _ := e.IdentifyTemplate(ctx, query, 2)
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2 (no tie collapse)", len(candidates))
	}
}
