package classifier

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/veerdrishti/veerdrishti/internal/domain"
	"github.com/veerdrishti/veerdrishti/internal/lbph"
)

// labelFile is the on-disk label mapping. Internal ids are positions in Labels.
// ModelSHA256 pins the mapping to the model file written alongside it.
type labelFile struct {
	ModelSHA256 string       `json:"model_sha256"`
	TrainedAt   time.Time    `json:"trained_at"`
	Samples     int          `json:"samples"`
	Labels      []labelEntry `json:"labels"`
}

type labelEntry struct {
	ID       int             `json:"id"`
	Identity string          `json:"identity"`
	Category domain.Category `json:"category"`
}

func (m *Manager) save(st *state) error {
	var model bytes.Buffer
	if err := st.model.Save(&model); err != nil {
		return fmt.Errorf("save model: %w", err)
	}

	lf := labelFile{
		ModelSHA256: modelChecksum(model.Bytes()),
		TrainedAt:   st.trainedAt,
		Samples:     st.samples,
	}
	for i, l := range st.labels {
		lf.Labels = append(lf.Labels, labelEntry{ID: i, Identity: l.ID, Category: l.Category})
	}
	mapping, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return fmt.Errorf("save labels: %w", err)
	}

	if err := writeFileAtomic(m.modelPath, model.Bytes()); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	if err := writeFileAtomic(m.labelsPath, mapping); err != nil {
		return fmt.Errorf("save labels: %w", err)
	}
	return nil
}

func (m *Manager) readArtifacts() (*state, error) {
	modelRaw, err := os.ReadFile(m.modelPath)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(m.labelsPath)
	if err != nil {
		return nil, err
	}

	var lf labelFile
	if err := json.Unmarshal(raw, &lf); err != nil {
		return nil, fmt.Errorf("read %s: %w", m.labelsPath, err)
	}
	if lf.ModelSHA256 != modelChecksum(modelRaw) {
		return nil, fmt.Errorf("%s does not belong to %s", m.labelsPath, m.modelPath)
	}

	model, err := lbph.Load(bytes.NewReader(modelRaw))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", m.modelPath, err)
	}

	labels := make([]label, len(lf.Labels))
	seen := make([]bool, len(lf.Labels))
	for _, e := range lf.Labels {
		if e.ID < 0 || e.ID >= len(labels) || seen[e.ID] {
			return nil, fmt.Errorf("read %s: invalid label id %d", m.labelsPath, e.ID)
		}
		seen[e.ID] = true
		labels[e.ID] = label{ID: e.Identity, Category: domain.ParseCategory(string(e.Category))}
	}
	for id := range model.LabelSet() {
		if id < 0 || id >= len(labels) {
			return nil, fmt.Errorf("model label %d has no mapping in %s", id, m.labelsPath)
		}
	}

	return &state{
		model:     model,
		labels:    labels,
		samples:   len(model.Labels),
		trainedAt: lf.TrainedAt,
	}, nil
}

func modelChecksum(model []byte) string {
	sum := sha256.Sum256(model)
	return hex.EncodeToString(sum[:])
}

func (m *Manager) removeArtifacts() error {
	for _, path := range []string{m.modelPath, m.labelsPath} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
