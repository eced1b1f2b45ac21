package opencv

import (
	"fmt"
	"image"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"
)

// Haar cascade parameters, tuned for recall.
const (
	CascadeScaleFactor  = 1.2
	CascadeMinNeighbors = 5
	CascadeMinFace      = 50
)

// CascadeFaceDetector finds upright faces with a Haar cascade.
type CascadeFaceDetector struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
	logger     *slog.Logger
}

func NewCascadeFaceDetector(path string, logger *slog.Logger) (*CascadeFaceDetector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("load haar cascade %s", path)
	}
	return &CascadeFaceDetector{classifier: classifier, logger: logger}, nil
}

// DetectFaces implements vision.FaceDetector. Safe for concurrent use: enrollment and
// the live loop share one detector.
func (d *CascadeFaceDetector) DetectFaces(img *image.Gray) []image.Rectangle {
	if img.Bounds().Empty() {
		return nil
	}
	mat, err := grayMat(img)
	if err != nil {
		d.logger.Warn("face detection skipped", slog.String("error", err.Error()))
		return nil
	}
	defer mat.Close()

	d.mu.Lock()
	rects := d.classifier.DetectMultiScaleWithParams(
		mat,
		CascadeScaleFactor,
		CascadeMinNeighbors,
		0,
		image.Pt(CascadeMinFace, CascadeMinFace),
		image.Pt(0, 0),
	)
	d.mu.Unlock()

	return offset(rects, img.Bounds())
}

func (d *CascadeFaceDetector) Close() error {
	return d.classifier.Close()
}
