// Package classifier owns the trained face classifier and its label mapping.
//
// Every training run builds a new immutable state and publishes it with a single
// atomic store, so a Match running concurrently with Train sees either the old model
// and mapping or the new ones, never a mix.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/veerdrishti/veerdrishti/internal/domain"
	"github.com/veerdrishti/veerdrishti/internal/gallery"
	"github.com/veerdrishti/veerdrishti/internal/lbph"
	"github.com/veerdrishti/veerdrishti/internal/vision"
)

const DefaultThreshold = 85.0

// Source enumerates the enrolled identities. Implemented by gallery.Store.
type Source interface {
	Snapshot() ([]domain.Identity, error)
}

type state struct {
	model     *lbph.Model
	labels    []label
	samples   int
	trainedAt time.Time
}

type label struct {
	ID       string
	Category domain.Category
}

// Stats describes the published state.
type Stats struct {
	Trained    bool       `json:"trained"`
	Identities int        `json:"identities"`
	Samples    int        `json:"samples"`
	TrainedAt  *time.Time `json:"trained_at,omitempty"`
	Threshold  float64    `json:"threshold"`
}

type Manager struct {
	source     Source
	modelPath  string
	labelsPath string
	threshold  float64
	logger     *slog.Logger

	current  atomic.Pointer[state]
	trainMu  sync.Mutex
	loadOnce sync.Once
}

func New(source Source, modelPath, labelsPath string, logger *slog.Logger) *Manager {
	return &Manager{
		source:     source,
		modelPath:  modelPath,
		labelsPath: labelsPath,
		threshold:  DefaultThreshold,
		logger:     logger,
	}
}

// WithThreshold sets the distance below which a prediction counts as a match.
func (m *Manager) WithThreshold(threshold float64) *Manager {
	m.threshold = threshold
	return m
}

func (m *Manager) Threshold() float64 {
	return m.threshold
}

// Train rebuilds the classifier from scratch over the whole gallery.
func (m *Manager) Train(ctx context.Context) error {
	m.trainMu.Lock()
	defer m.trainMu.Unlock()

	// A finished training run supersedes anything still on disk.
	m.loadOnce.Do(func() {})

	identities, err := m.source.Snapshot()
	if err != nil {
		return fmt.Errorf("enumerate gallery: %w", err)
	}

	var (
		images []*image.Gray
		ids    []int
		labels []label
	)
	for _, identity := range identities {
		if err := ctx.Err(); err != nil {
			return err
		}
		crops := m.readCrops(identity)
		if len(crops) == 0 {
			continue
		}
		internal := len(labels)
		labels = append(labels, label{ID: identity.ID, Category: identity.Category})
		for _, c := range crops {
			images = append(images, c)
			ids = append(ids, internal)
		}
	}

	if len(images) == 0 {
		m.current.Store(nil)
		if err := m.removeArtifacts(); err != nil {
			return err
		}
		m.logger.Info("gallery is empty, classifier cleared")
		return nil
	}

	model, err := lbph.Train(images, ids)
	if err != nil {
		return fmt.Errorf("fit model: %w", err)
	}

	next := &state{
		model:     model,
		labels:    labels,
		samples:   len(images),
		trainedAt: time.Now().UTC(),
	}
	if err := m.save(next); err != nil {
		return err
	}
	m.current.Store(next)

	m.logger.Info("classifier trained",
		slog.Int("identities", len(labels)),
		slog.Int("samples", len(images)),
	)
	return nil
}

func (m *Manager) readCrops(identity domain.Identity) []*image.Gray {
	crops := make([]*image.Gray, 0, len(identity.CropPaths))
	for _, path := range identity.CropPaths {
		img, err := gallery.ReadCrop(path)
		if err != nil {
			m.logger.Warn("skipping unreadable crop",
				slog.String("identity", identity.ID),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		if vision.IsBlank(img) {
			continue
		}
		crops = append(crops, vision.Normalize(img))
	}
	return crops
}

// Match identifies one face crop. It never fails: every problem yields the unknown outcome.
func (m *Manager) Match(crop image.Image) domain.MatchResult {
	if crop == nil || vision.IsBlank(crop) {
		return domain.UnknownMatch()
	}

	st := m.loaded()
	if st == nil {
		return domain.UnknownMatch()
	}

	internal, distance, err := st.model.Predict(vision.Normalize(crop))
	if err != nil || internal < 0 || internal >= len(st.labels) {
		m.logger.Debug("prediction failed", slog.Any("error", err), slog.Int("label", internal))
		return domain.UnknownMatch()
	}

	if distance >= m.threshold {
		return domain.MatchResult{
			Label:      domain.UnknownLabel,
			Confidence: distance,
			IsMatch:    false,
			Category:   domain.CategoryUnknown,
		}
	}

	l := st.labels[internal]
	return domain.MatchResult{
		Label:      l.ID,
		Confidence: distance,
		IsMatch:    true,
		Category:   l.Category,
	}
}

// loaded returns the current state, reading persisted artifacts the first time
// nothing is in memory.
func (m *Manager) loaded() *state {
	if st := m.current.Load(); st != nil {
		return st
	}
	m.loadOnce.Do(func() {
		if err := m.load(); err != nil {
			m.logger.Warn("load classifier", slog.String("error", err.Error()))
		}
	})
	return m.current.Load()
}

// Load reads persisted artifacts when both exist. Missing artifacts leave the
// classifier empty and are not an error.
func (m *Manager) Load() error {
	m.trainMu.Lock()
	defer m.trainMu.Unlock()
	m.loadOnce.Do(func() {})
	return m.load()
}

func (m *Manager) load() error {
	st, err := m.readArtifacts()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	m.current.Store(st)
	m.logger.Info("classifier loaded",
		slog.Int("identities", len(st.labels)),
		slog.Int("samples", st.samples),
	)
	return nil
}

func (m *Manager) Stats() Stats {
	s := Stats{Threshold: m.threshold}
	st := m.current.Load()
	if st == nil {
		return s
	}
	at := st.trainedAt
	s.Trained = true
	s.Identities = len(st.labels)
	s.Samples = st.samples
	s.TrainedAt = &at
	return s
}
