package main

import (
	"fmt"
	"log/slog"

	"github.com/veerdrishti/veerdrishti/internal/classifier"
	"github.com/veerdrishti/veerdrishti/internal/config"
	"github.com/veerdrishti/veerdrishti/internal/gallery"
	"github.com/veerdrishti/veerdrishti/internal/opencv"
	"github.com/veerdrishti/veerdrishti/internal/vision"
)

// runtime holds the components a command needs. Close releases the OpenCV objects.
type runtime struct {
	pipeline *vision.Pipeline
	store    *gallery.Store
	models   *classifier.Manager
	closers  []func() error
}

// newRuntime builds the gallery and classifier. The gallery is left without a
// trainer so bulk commands can train once at the end.
func newRuntime(cfg *config.Config, logger *slog.Logger, withPeople bool) (*runtime, error) {
	rt := &runtime{}

	faces, err := opencv.NewCascadeFaceDetector(cfg.HaarCascadePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load face detector: %w", err)
	}
	rt.closers = append(rt.closers, faces.Close)

	var people vision.PersonDetector
	if withPeople {
		hog, err := opencv.NewHOGPersonDetector(logger)
		if err != nil {
			logger.Warn("person detector unavailable", slog.Any("error", err))
		} else {
			rt.closers = append(rt.closers, hog.Close)
			people = hog
		}
	}

	rt.pipeline = vision.NewPipeline(faces, people, logger)
	rt.store = gallery.New(cfg.FacesDir(), rt.pipeline, logger)
	if err := rt.store.Init(); err != nil {
		rt.Close()
		return nil, err
	}
	rt.models = classifier.New(rt.store, cfg.ModelPath(), cfg.LabelsPath(), logger).
		WithThreshold(cfg.MatchThreshold)

	return rt, nil
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		_ = rt.closers[i]()
	}
}
