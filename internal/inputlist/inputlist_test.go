package inputlist

import (
	"strings"
	"testing"
)

func TestParseSingleImageTemplates(t *testing.T) {
	in := "a.jpg 1 0\nb.jpg 2 0\n"
	got, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d templates, want 2", len(got))
	}
	if got[0].ClassID != 1 || len(got[0].ImagePaths) != 1 {
		t.Errorf("template 0 = %+v", got[0])
	}
}

func TestParseGroupsByTemplateID(t *testing.T) {
	in := "a.jpg 1 5\nb.jpg 1 5\nc.jpg 2 0\nd.jpg 1 5\n"
	got, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d templates, want 2", len(got))
	}
	if len(got[0].ImagePaths) != 3 {
		t.Errorf("grouped template has %d paths, want 3: %+v", len(got[0].ImagePaths), got[0])
	}
	if got[1].ClassID != 2 {
		t.Errorf("second template class = %d, want 2", got[1].ClassID)
	}
}

func TestParseConflictingClassIDIsFatal(t *testing.T) {
	in := "a.jpg 1 5\nb.jpg 2 5\n"
	_, err := Parse(strings.NewReader(in))
	if err == nil {
		t.Fatal("expected fatal error for conflicting class_id within a template group")
	}
}

func TestParseNegativeIDsAreFatal(t *testing.T) {
	for _, in := range []string{"a.jpg -1 0\n", "a.jpg 1 -1\n"} {
		if _, err := Parse(strings.NewReader(in)); err == nil {
			t.Errorf("expected fatal error for input %q", in)
		}
	}
}

func TestParseIgnoresTrailingBlankLines(t *testing.T) {
	in := "a.jpg 1 0\n\n\n"
	got, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d templates, want 1", len(got))
	}
}

func TestBucketSizesDifferByAtMostOne(t *testing.T) {
	templates := make([]Template, 10)
	for i := range templates {
		templates[i] = Template{ClassID: i, TemplateID: 0, ImagePaths: []string{"x"}}
	}
	for _, p := range []int{1, 2, 3, 4, 8} {
		buckets := Bucket(templates, p)
		total := 0
		min, max := len(buckets[0]), len(buckets[0])
		for _, b := range buckets {
			total += len(b)
			if len(b) < min {
				min = len(b)
			}
			if len(b) > max {
				max = len(b)
			}
		}
		if total != len(templates) {
			t.Errorf("P=%d: total bucketed = %d, want %d", p, total, len(templates))
		}
		if max-min > 1 {
			t.Errorf("P=%d: bucket sizes differ by more than one: min=%d max=%d", p, min, max)
		}
	}
}

func TestBucketConcatenationPreservesOrder(t *testing.T) {
	templates := make([]Template, 17)
	for i := range templates {
		templates[i] = Template{ClassID: i}
	}
	buckets := Bucket(templates, 4)
	var flat []Template
	for _, b := range buckets {
		flat = append(flat, b...)
	}
	for i := range templates {
		if flat[i].ClassID != templates[i].ClassID {
			t.Fatalf("order not preserved at %d: got class %d, want %d", i, flat[i].ClassID, templates[i].ClassID)
		}
	}
}
