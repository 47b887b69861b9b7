// Package imageio decodes list-file image paths into facebench.Image,
// delegating to the standard library's image codecs (plus
// golang.org/x/image/bmp, registered for its side effect of adding BMP
// support to image.Decode) rather than reimplementing any decoder.
package imageio

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"

	"github.com/chervyakov/facebench"
)

// Decode reads and decodes the image at path. When grayscale is true the
// result is forced to Depth8 (luminance only); otherwise it is Depth24
// (packed RGB, row-major, top-to-bottom).
func Decode(path string, grayscale bool) (facebench.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return facebench.Image{}, fmt.Errorf("imageio: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return facebench.Image{}, fmt.Errorf("imageio: decode %s: %w", path, err)
	}
	return fromImage(img, grayscale), nil
}

func fromImage(img image.Image, grayscale bool) facebench.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if grayscale {
		data := make([]byte, w*h)
		idx := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r, g, bl, _ := img.At(x, y).RGBA()
				lum := (299*uint32(r>>8) + 587*uint32(g>>8) + 114*uint32(bl>>8)) / 1000
				data[idx] = byte(lum)
				idx++
			}
		}
		return facebench.Image{Width: uint16(w), Height: uint16(h), Depth: facebench.Depth8, Data: data}
	}

	data := make([]byte, w*h*3)
	idx := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			data[idx] = byte(r >> 8)
			data[idx+1] = byte(g >> 8)
			data[idx+2] = byte(bl >> 8)
			idx += 3
		}
	}
	return facebench.Image{Width: uint16(w), Height: uint16(h), Depth: facebench.Depth24, Data: data}
}
