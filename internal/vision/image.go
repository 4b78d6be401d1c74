// Package vision holds the frame processing used by camera monitors and the
// liveness gate: grayscale conversion, brightness, histogram equalisation,
// Laplacian variance and a running-average motion model.
package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
)

// DefaultJPEGQuality is used when frames are persisted
const DefaultJPEGQuality = 90

// ToGray converts img to 8-bit grayscale. A *image.Gray is returned as is.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g.SetGray(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(img.At(x, y)).(color.Gray))
		}
	}
	return g
}

// Brightness returns the mean gray level scaled to [0, 1]
func Brightness(g *image.Gray) float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	var sum uint64
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for _, p := range row {
			sum += uint64(p)
		}
	}
	return float64(sum) / float64(w*h) / 255
}

// Equalize spreads the gray histogram of g over the full range. It brightens
// low-light frames before they are analysed.
func Equalize(g *image.Gray) *image.Gray {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	total := w * h
	if total == 0 {
		return out
	}

	var hist [256]int
	for y := 0; y < h; y++ {
		for _, p := range g.Pix[y*g.Stride : y*g.Stride+w] {
			hist[p]++
		}
	}

	cdfMin := 0
	for _, n := range hist {
		if n > 0 {
			cdfMin = n
			break
		}
	}

	var lut [256]uint8
	cdf := 0
	for i, n := range hist {
		cdf += n
		if total == cdfMin {
			lut[i] = uint8(i)
			continue
		}
		v := float64(cdf-cdfMin) / float64(total-cdfMin) * 255
		if v < 0 {
			v = 0
		}
		lut[i] = uint8(v + 0.5)
	}

	for y := 0; y < h; y++ {
		src := g.Pix[y*g.Stride : y*g.Stride+w]
		dst := out.Pix[y*out.Stride : y*out.Stride+w]
		for x, p := range src {
			dst[x] = lut[p]
		}
	}
	return out
}

// LaplacianVariance is the variance of the 4-neighbour Laplacian over the
// interior of g. Sharp, textured images score high; flat or blurred ones low.
func LaplacianVariance(g *image.Gray) float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	at := func(x, y int) float64 {
		return float64(g.Pix[y*g.Stride+x])
	}

	var sum, sumSq float64
	n := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			v := at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
			sum += v
			sumSq += v * v
			n++
		}
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

// EncodeJPEG encodes img as JPEG
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decodes a JPEG or PNG image
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
