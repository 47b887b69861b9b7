package facebench

import "fmt"

// Depth is the bits-per-pixel of an Image. Grayscale mode forces Depth8.
type Depth int

const (
	Depth8  Depth = 8
	Depth24 Depth = 24
)

// Image is a raw, row-major, top-to-bottom bitmap. Data is contiguous and has
// length Width*Height*Depth/8. Images are shared read-only among workers that
// derive from the same source and are decoded just-in-time per work-unit.
type Image struct {
	Width  uint16
	Height uint16
	Depth  Depth
	Data   []byte
}

// Validate checks that Data is exactly the length implied by Width, Height
// and Depth.
func (img Image) Validate() error {
	want := int(img.Width) * int(img.Height) * int(img.Depth) / 8
	if len(img.Data) != want {
		return fmt.Errorf("facebench: image data length %d, want %d (w=%d h=%d depth=%d)",
			len(img.Data), want, img.Width, img.Height, img.Depth)
	}
	return nil
}

// Multiface is a finite ordered sequence of Images that together represent
// one subject for template creation. It must contain at least one Image.
type Multiface []Image

// Validate checks that the Multiface is non-empty and every Image in it is
// well-formed.
func (m Multiface) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("facebench: multiface has no images")
	}
	for i, img := range m {
		if err := img.Validate(); err != nil {
			return fmt.Errorf("facebench: multiface[%d]: %w", i, err)
		}
	}
	return nil
}

// TemplateRole is a closed enumeration purely used for engine routing; the
// harness never interprets it beyond passing it through to createTemplate.
type TemplateRole int

const (
	RoleInitV TemplateRole = iota
	RoleVerification
	RoleInitI
	RoleIdentification
)

func (r TemplateRole) String() string {
	switch r {
	case RoleInitV:
		return "Init_V"
	case RoleVerification:
		return "Verification"
	case RoleInitI:
		return "Init_I"
	case RoleIdentification:
		return "Identification"
	default:
		return fmt.Sprintf("TemplateRole(%d)", int(r))
	}
}

// Candidate is one entry returned by an identification search: the engine's
// best guesses for a query template's identity.
type Candidate struct {
	Assigned        bool
	TemplateID      string
	SimilarityScore float64
}

// ParseTemplateID splits a "<seq>_<class_id>" template ID on the first
// underscore. "none" means unassigned and returns ok=false.
func ParseTemplateID(id string) (seq int, classID int, ok bool) {
	if id == "none" {
		return 0, 0, false
	}
	for i := 0; i < len(id); i++ {
		if id[i] == '_' {
			var err1, err2 error
			seq, err1 = atoiStrict(id[:i])
			classID, err2 = atoiStrict(id[i+1:])
			if err1 != nil || err2 != nil {
				return 0, 0, false
			}
			return seq, classID, true
		}
	}
	return 0, 0, false
}

func atoiStrict(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("non-digit")
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

// FormatTemplateID formats a "<seq>_<class_id>" template ID.
func FormatTemplateID(seq, classID int) string {
	return fmt.Sprintf("%d_%d", seq, classID)
}
