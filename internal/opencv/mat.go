// Package opencv adapts gocv to the detector and camera interfaces used by the
// rest of the service. It is the only package that links OpenCV.
package opencv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// grayMat copies img into a single-channel Mat. The Mat must be closed by the caller.
func grayMat(img *image.Gray) (gocv.Mat, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	buf := make([]byte, w*h)
	for y := 0; y < h; y++ {
		copy(buf[y*w:(y+1)*w], img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, buf)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("gray to mat: %w", err)
	}
	return mat, nil
}

// offset moves rects from Mat coordinates into the coordinate space of bounds.
func offset(rects []image.Rectangle, bounds image.Rectangle) []image.Rectangle {
	out := make([]image.Rectangle, len(rects))
	for i, r := range rects {
		out[i] = r.Add(bounds.Min)
	}
	return out
}
