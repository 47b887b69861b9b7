package imageio

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPNG(t *testing.T, path string, w, h int, fill color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeColor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "solid.png")
	writeTestPNG(t, path, 4, 3, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	img, err := Decode(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != 4 || img.Height != 3 {
		t.Errorf("dims = %dx%d, want 4x3", img.Width, img.Height)
	}
	if img.Depth != 24 {
		t.Errorf("depth = %v, want 24", img.Depth)
	}
	if len(img.Data) != 4*3*3 {
		t.Fatalf("data len = %d, want %d", len(img.Data), 4*3*3)
	}
	if img.Data[0] != 10 || img.Data[1] != 20 || img.Data[2] != 30 {
		t.Errorf("first pixel = %v, want [10 20 30]", img.Data[:3])
	}
}

func TestDecodeGrayscale(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "solid.png")
	writeTestPNG(t, path, 2, 2, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	img, err := Decode(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(img.Data) != 2*2 {
		t.Fatalf("data len = %d, want 4", len(img.Data))
	}
	if img.Data[0] != 255 {
		t.Errorf("white pixel luminance = %d, want 255", img.Data[0])
	}
}

func TestDecodeMissingFile(t *testing.T) {
	if _, err := Decode("/nonexistent/path.png", false); err == nil {
		t.Fatal("expected error for missing file")
	}
}
