// Package gallery keeps enrolled face crops on disk, one directory per category and
// one per identity:
//
//	faces/{category}/{identity}/{uuid}.png
//
// Identities written by older releases directly under faces/{identity} are still read
// and reported as citizens.
package gallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/veerdrishti/veerdrishti/internal/domain"
	"github.com/veerdrishti/veerdrishti/internal/vision"
)

// FaceDetector locates faces in a full grayscale image.
type FaceDetector interface {
	DetectFaces(gray *image.Gray) []image.Rectangle
}

// Trainer rebuilds the classifier from the current gallery contents.
type Trainer interface {
	Train(ctx context.Context) error
}

type Store struct {
	root     string
	detector FaceDetector
	trainer  Trainer
	logger   *slog.Logger

	// mu serializes writers. Snapshot takes it shared so a relocation is never
	// observed half done.
	mu sync.RWMutex
}

func New(root string, detector FaceDetector, logger *slog.Logger) *Store {
	return &Store{
		root:     root,
		detector: detector,
		logger:   logger,
	}
}

// WithTrainer sets the classifier retrained after every change to the gallery.
func (s *Store) WithTrainer(t Trainer) *Store {
	s.trainer = t
	return s
}

func (s *Store) Root() string {
	return s.root
}

// Init creates the gallery root. Safe to call more than once.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("init gallery %s: %w", s.root, err)
	}
	return nil
}

// Enroll stores one normalized crop per face found in raw and retrains when at least
// one crop was written. An image without faces is not an error: it yields 0.
func (s *Store) Enroll(ctx context.Context, identityID string, category domain.Category, raw []byte) (int, error) {
	if err := domain.ValidateIdentityID(identityID); err != nil {
		return 0, err
	}
	category = domain.ParseCategory(string(category))

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return 0, domain.ErrDecodeImage.WithError(err)
	}

	gray := vision.ToGray(img)
	boxes := s.detector.DetectFaces(gray)
	if len(boxes) == 0 {
		s.logger.Info("no face found in enrollment image", slog.String("identity", identityID))
		return 0, nil
	}

	added, err := s.writeCrops(identityID, category, gray, boxes)
	if err != nil {
		return added, err
	}

	s.logger.Info("identity enrolled",
		slog.String("identity", identityID),
		slog.String("category", string(category)),
		slog.Int("crops", added),
	)

	if err := s.retrain(ctx); err != nil {
		return added, err
	}
	return added, nil
}

func (s *Store) writeCrops(identityID string, category domain.Category, gray *image.Gray, boxes []image.Rectangle) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.root, string(category), identityID)
	if err := s.relocate(identityID, category); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create identity dir: %w", err)
	}

	added := 0
	for _, box := range boxes {
		crop := vision.Normalize(vision.Crop(gray, box))
		path := filepath.Join(dir, uuid.New().String()+".png")
		if err := writePNG(path, crop); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// relocate moves an identity enrolled under another category into category, so that
// an identity is only ever filed once.
func (s *Store) relocate(identityID string, category domain.Category) error {
	target := filepath.Join(s.root, string(category), identityID)
	for _, c := range domain.EnrollCategories {
		if c == category {
			continue
		}
		src := filepath.Join(s.root, string(c), identityID)
		if !isDir(src) {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create category dir: %w", err)
		}
		if !isDir(target) {
			if err := os.Rename(src, target); err != nil {
				return fmt.Errorf("move identity %s to %s: %w", identityID, category, err)
			}
		} else if err := mergeDir(src, target); err != nil {
			return err
		}
		s.logger.Info("identity moved",
			slog.String("identity", identityID),
			slog.String("from", string(c)),
			slog.String("to", string(category)),
		)
	}
	return nil
}

// Delete removes an identity from every layout and retrains.
func (s *Store) Delete(ctx context.Context, identityID string) (bool, error) {
	if err := domain.ValidateIdentityID(identityID); err != nil {
		return false, err
	}

	removed, err := s.remove(identityID)
	if err != nil || !removed {
		return removed, err
	}

	s.logger.Info("identity deleted", slog.String("identity", identityID))
	return true, s.retrain(ctx)
}

func (s *Store) remove(identityID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dirs := []string{filepath.Join(s.root, identityID)}
	for _, c := range domain.EnrollCategories {
		dirs = append(dirs, filepath.Join(s.root, string(c), identityID))
	}

	removed := false
	for _, dir := range dirs {
		if !isDir(dir) || isCategoryDir(s.root, dir) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return removed, fmt.Errorf("remove %s: %w", dir, err)
		}
		removed = true
	}
	return removed, nil
}

// ListIdentities returns every enrolled identity once, sorted.
func (s *Store) ListIdentities() ([]string, error) {
	identities, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(identities))
	for i, id := range identities {
		ids[i] = id.ID
	}
	return ids, nil
}

// Snapshot walks the tree and returns every identity with its crop files, sorted by id.
// An identity present in both layouts is reported once under its category with the
// legacy crops merged in. One filed under several categories is reported under the
// first in domain.EnrollCategories order.
func (s *Store) Snapshot() ([]domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byID := make(map[string]*domain.Identity)

	for _, c := range domain.EnrollCategories {
		entries, err := readDirs(filepath.Join(s.root, string(c)))
		if err != nil {
			return nil, err
		}
		for _, name := range entries {
			crops, err := listCrops(filepath.Join(s.root, string(c), name))
			if err != nil {
				return nil, err
			}
			if existing, ok := byID[name]; ok {
				existing.CropPaths = append(existing.CropPaths, crops...)
				continue
			}
			byID[name] = &domain.Identity{ID: name, Category: c, CropPaths: crops}
		}
	}

	legacy, err := readDirs(s.root)
	if err != nil {
		return nil, err
	}
	for _, name := range legacy {
		if domain.Category(name).IsEnrollable() {
			continue
		}
		crops, err := listCrops(filepath.Join(s.root, name))
		if err != nil {
			return nil, err
		}
		if existing, ok := byID[name]; ok {
			existing.CropPaths = append(existing.CropPaths, crops...)
			continue
		}
		byID[name] = &domain.Identity{ID: name, Category: domain.CategoryCitizen, CropPaths: crops}
	}

	out := make([]domain.Identity, 0, len(byID))
	for _, id := range byID {
		out = append(out, *id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) retrain(ctx context.Context) error {
	if s.trainer == nil {
		return nil
	}
	if err := s.trainer.Train(ctx); err != nil {
		return fmt.Errorf("retrain: %w", err)
	}
	return nil
}

// ReadCrop decodes a stored crop.
func ReadCrop(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

var cropExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
}

func listCrops(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var crops []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !cropExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		crops = append(crops, filepath.Join(dir, e.Name()))
	}
	return crops, nil
}

// readDirs lists subdirectory names of dir in lexical order. A missing dir is empty.
func readDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func writePNG(path string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode crop: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write crop: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write crop: %w", err)
	}
	return nil
}

func mergeDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	for _, e := range entries {
		if err := os.Rename(filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return fmt.Errorf("move %s: %w", e.Name(), err)
		}
	}
	return os.Remove(src)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isCategoryDir(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	return err == nil && domain.Category(rel).IsEnrollable()
}
