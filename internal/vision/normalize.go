package vision

import (
	"image"

	"golang.org/x/image/draw"
)

// CropSize is the edge length of every normalized face crop.
const CropSize = 100

// Normalize turns a face region into the canonical crop used for enrollment, training
// and live matching: CropSize x CropSize, 8-bit grayscale, histogram equalized.
// The same function must be used at all three points or recognition quietly degrades.
func Normalize(img image.Image) *image.Gray {
	gray := ToGray(img)
	if gray.Rect.Dx() != CropSize || gray.Rect.Dy() != CropSize {
		resized := image.NewGray(image.Rect(0, 0, CropSize, CropSize))
		draw.BiLinear.Scale(resized, resized.Bounds(), gray, gray.Bounds(), draw.Src, nil)
		gray = resized
	}
	return EqualizeHist(gray)
}

// ToGray converts img to a grayscale copy whose bounds start at (0,0).
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// EqualizeHist spreads the intensity histogram over the full 0..255 range.
// A single-intensity image is returned unchanged.
func EqualizeHist(src *image.Gray) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	total := b.Dx() * b.Dy()
	if total == 0 {
		return dst
	}

	var hist [256]int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := src.Pix[src.PixOffset(b.Min.X, y):src.PixOffset(b.Max.X, y)]
		for _, v := range row {
			hist[v]++
		}
	}

	first := 0
	for hist[first] == 0 {
		first++
	}

	var lut [256]uint8
	if hist[first] == total {
		for i := range lut {
			lut[i] = uint8(i)
		}
	} else {
		scale := 255.0 / float64(total-hist[first])
		sum := 0
		for i := first + 1; i < 256; i++ {
			sum += hist[i]
			v := float64(sum)*scale + 0.5
			if v > 255 {
				v = 255
			}
			lut[i] = uint8(v)
		}
	}

	for y := 0; y < b.Dy(); y++ {
		srow := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):src.PixOffset(b.Max.X, b.Min.Y+y)]
		drow := dst.Pix[dst.PixOffset(0, y):dst.PixOffset(b.Dx(), y)]
		for x, v := range srow {
			drow[x] = lut[v]
		}
	}
	return dst
}

// Crop copies the part of g inside r. The result starts at (0,0).
func Crop(g *image.Gray, r image.Rectangle) *image.Gray {
	r = r.Intersect(g.Bounds())
	sub, ok := g.SubImage(r).(*image.Gray)
	if !ok || r.Empty() {
		return image.NewGray(image.Rectangle{})
	}
	return ToGray(sub)
}

// IsBlank reports whether img has no area or contains only black pixels.
func IsBlank(img image.Image) bool {
	if img == nil || img.Bounds().Empty() {
		return true
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		gray = ToGray(img)
	}
	b := gray.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for _, v := range gray.Pix[gray.PixOffset(b.Min.X, y):gray.PixOffset(b.Max.X, y)] {
			if v != 0 {
				return false
			}
		}
	}
	return true
}
