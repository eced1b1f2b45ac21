package opencv

import (
	"fmt"
	"image"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"
)

// HOGPersonDetector finds pedestrians with OpenCV's default people SVM.
type HOGPersonDetector struct {
	mu     sync.Mutex
	hog    gocv.HOGDescriptor
	logger *slog.Logger
}

func NewHOGPersonDetector(logger *slog.Logger) (*HOGPersonDetector, error) {
	hog := gocv.NewHOGDescriptor()
	people := gocv.HOGDefaultPeopleDetector()
	defer people.Close()
	if err := hog.SetSVMDetector(people); err != nil {
		hog.Close()
		return nil, fmt.Errorf("hog people detector: %w", err)
	}
	return &HOGPersonDetector{hog: hog, logger: logger}, nil
}

// DetectPeople implements vision.PersonDetector with an 8x8 window stride.
func (d *HOGPersonDetector) DetectPeople(img *image.Gray) []image.Rectangle {
	if img.Bounds().Empty() {
		return nil
	}
	mat, err := grayMat(img)
	if err != nil {
		d.logger.Warn("person detection skipped", slog.String("error", err.Error()))
		return nil
	}
	defer mat.Close()

	d.mu.Lock()
	rects := d.hog.DetectMultiScaleWithParams(mat, 0, image.Pt(8, 8), image.Pt(0, 0), 1.05, 2, false)
	d.mu.Unlock()

	return offset(rects, img.Bounds())
}

func (d *HOGPersonDetector) Close() error {
	return d.hog.Close()
}
