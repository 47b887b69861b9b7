package facebench

import "testing"

func TestImageValidate(t *testing.T) {
	img := Image{Width: 2, Height: 2, Depth: Depth8, Data: make([]byte, 4)}
	if err := img.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := Image{Width: 2, Height: 2, Depth: Depth24, Data: make([]byte, 4)}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for short data")
	}
}

func TestMultifaceValidate(t *testing.T) {
	var empty Multiface
	if err := empty.Validate(); err == nil {
		t.Fatal("expected error for empty multiface")
	}
	m := Multiface{{Width: 1, Height: 1, Depth: Depth8, Data: []byte{0}}}
	if err := m.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseTemplateID(t *testing.T) {
	tests := []struct {
		id      string
		seq     int
		classID int
		ok      bool
	}{
		{"0_1", 0, 1, true},
		{"12_345", 12, 345, true},
		{"none", 0, 0, false},
		{"1_2_3", 0, 0, false}, // first underscore only; class-id "2_3" is non-numeric
		{"garbage", 0, 0, false},
	}
	for _, tt := range tests {
		seq, classID, ok := ParseTemplateID(tt.id)
		if tt.id == "1_2_3" {
			// class-id portion "2_3" contains a non-digit underscore, so parse fails.
			if ok {
				t.Errorf("ParseTemplateID(%q) expected ok=false, got seq=%d classID=%d", tt.id, seq, classID)
			}
			continue
		}
		if ok != tt.ok || seq != tt.seq || classID != tt.classID {
			t.Errorf("ParseTemplateID(%q) = (%d, %d, %v), want (%d, %d, %v)", tt.id, seq, classID, ok, tt.seq, tt.classID, tt.ok)
		}
	}
}

func TestFormatTemplateID(t *testing.T) {
	if got := FormatTemplateID(3, 7); got != "3_7" {
		t.Errorf("FormatTemplateID(3,7) = %q, want %q", got, "3_7")
	}
}
