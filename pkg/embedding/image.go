package embedding

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// DefaultMaxEdge is the longest image edge fed to the dlib pipeline.
// Larger captures are downscaled before detection; dlib gains nothing
// from more pixels and slows down considerably.
const DefaultMaxEdge = 1024

// NormalizeImage decodes an image (JPEG, PNG, GIF or BMP), downscales it so
// the longest edge does not exceed maxEdge, and re-encodes it as JPEG, which
// is the format the dlib engine consumes.
func NormalizeImage(data []byte, maxEdge int) ([]byte, error) {
	if maxEdge < 1 {
		maxEdge = DefaultMaxEdge
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img = downscale(img, maxEdge)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// downscale resizes img so its longest edge is maxEdge, preserving aspect
// ratio. Images already within bounds are returned unchanged.
func downscale(img image.Image, maxEdge int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxEdge && h <= maxEdge {
		return img
	}

	longest := w
	if h > longest {
		longest = h
	}
	scale := float64(maxEdge) / float64(longest)

	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
