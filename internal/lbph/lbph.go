// Package lbph implements a local binary patterns histogram face recognizer.
//
// Distances use the same units as OpenCV's LBPHFaceRecognizer (radius 1, 8 neighbours,
// 8x8 grid, per-cell normalized histograms compared with the alternative chi-square
// metric), so thresholds tuned against OpenCV carry over. Lower is more similar.
package lbph

import (
	"errors"
	"fmt"
	"image"
	"math"
)

const (
	DefaultRadius    = 1
	DefaultNeighbors = 8
	DefaultGridX     = 8
	DefaultGridY     = 8
)

var (
	ErrNoSamples    = errors.New("lbph: no training samples")
	ErrNotTrained   = errors.New("lbph: model is not trained")
	ErrSizeMismatch = errors.New("lbph: image size does not match training samples")
	ErrEmptyImage   = errors.New("lbph: empty image")
)

// Model is a trained recognizer. It is immutable after Train or Load and safe for
// concurrent Predict calls.
type Model struct {
	Radius     int         `yaml:"radius"`
	Neighbors  int         `yaml:"neighbors"`
	GridX      int         `yaml:"grid_x"`
	GridY      int         `yaml:"grid_y"`
	Width      int         `yaml:"width"`
	Height     int         `yaml:"height"`
	Labels     []int       `yaml:"labels"`
	Histograms [][]float32 `yaml:"histograms,flow"`
}

// Train fits a model. All images must have the same dimensions; labels[i] belongs to images[i].
func Train(images []*image.Gray, labels []int) (*Model, error) {
	if len(images) == 0 {
		return nil, ErrNoSamples
	}
	if len(images) != len(labels) {
		return nil, fmt.Errorf("lbph: %d images but %d labels", len(images), len(labels))
	}

	m := &Model{
		Radius:    DefaultRadius,
		Neighbors: DefaultNeighbors,
		GridX:     DefaultGridX,
		GridY:     DefaultGridY,
		Width:     images[0].Bounds().Dx(),
		Height:    images[0].Bounds().Dy(),
		Labels:    append([]int(nil), labels...),
	}
	if m.Width <= 2*m.Radius || m.Height <= 2*m.Radius {
		return nil, ErrEmptyImage
	}

	m.Histograms = make([][]float32, len(images))
	for i, img := range images {
		if img.Bounds().Dx() != m.Width || img.Bounds().Dy() != m.Height {
			return nil, fmt.Errorf("sample %d: %w", i, ErrSizeMismatch)
		}
		m.Histograms[i] = m.spatialHistogram(img)
	}
	return m, nil
}

// Predict returns the label of the nearest training sample and its distance.
func (m *Model) Predict(img *image.Gray) (int, float64, error) {
	if m == nil || len(m.Histograms) == 0 {
		return -1, 0, ErrNotTrained
	}
	if img == nil || img.Bounds().Empty() {
		return -1, 0, ErrEmptyImage
	}
	if img.Bounds().Dx() != m.Width || img.Bounds().Dy() != m.Height {
		return -1, 0, ErrSizeMismatch
	}

	query := m.spatialHistogram(img)
	best := -1
	bestDist := math.MaxFloat64
	for i, h := range m.Histograms {
		if len(h) != len(query) {
			return -1, 0, fmt.Errorf("sample %d: %w", i, ErrSizeMismatch)
		}
		d := chiSquareAlt(h, query)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return m.Labels[best], bestDist, nil
}

// LabelSet returns the distinct labels the model was trained on.
func (m *Model) LabelSet() map[int]struct{} {
	set := make(map[int]struct{}, len(m.Labels))
	for _, l := range m.Labels {
		set[l] = struct{}{}
	}
	return set
}

func (m *Model) validate() error {
	if m.Radius < 1 || m.Neighbors < 1 || m.Neighbors > 16 || m.GridX < 1 || m.GridY < 1 {
		return fmt.Errorf("lbph: invalid parameters radius=%d neighbors=%d grid=%dx%d", m.Radius, m.Neighbors, m.GridX, m.GridY)
	}
	if len(m.Labels) != len(m.Histograms) {
		return fmt.Errorf("lbph: %d labels but %d histograms", len(m.Labels), len(m.Histograms))
	}
	want := m.GridX * m.GridY * (1 << m.Neighbors)
	for i, h := range m.Histograms {
		if len(h) != want {
			return fmt.Errorf("lbph: histogram %d has %d bins, want %d", i, len(h), want)
		}
	}
	return nil
}

// lbpImage computes the extended (circular, bilinear-interpolated) LBP codes.
// The result is (w-2r) x (h-2r).
func (m *Model) lbpImage(img *image.Gray) ([]uint16, int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	r := m.Radius
	ow, oh := w-2*r, h-2*r
	codes := make([]uint16, ow*oh)

	at := func(x, y int) float64 {
		return float64(img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)])
	}

	for n := 0; n < m.Neighbors; n++ {
		x := float64(r) * math.Cos(2*math.Pi*float64(n)/float64(m.Neighbors))
		y := -float64(r) * math.Sin(2*math.Pi*float64(n)/float64(m.Neighbors))
		fx, fy := int(math.Floor(x)), int(math.Floor(y))
		cx, cy := int(math.Ceil(x)), int(math.Ceil(y))
		ty, tx := y-float64(fy), x-float64(fx)
		w1 := (1 - tx) * (1 - ty)
		w2 := tx * (1 - ty)
		w3 := (1 - tx) * ty
		w4 := tx * ty

		for i := r; i < h-r; i++ {
			for j := r; j < w-r; j++ {
				t := w1*at(j+fx, i+fy) + w2*at(j+cx, i+fy) + w3*at(j+fx, i+cy) + w4*at(j+cx, i+cy)
				c := at(j, i)
				if t > c || math.Abs(t-c) < 1.1920929e-07 {
					codes[(i-r)*ow+(j-r)] |= 1 << n
				}
			}
		}
	}
	return codes, ow, oh
}

func (m *Model) spatialHistogram(img *image.Gray) []float32 {
	codes, w, h := m.lbpImage(img)
	bins := 1 << m.Neighbors
	cw, ch := w/m.GridX, h/m.GridY
	hist := make([]float32, m.GridX*m.GridY*bins)
	if cw == 0 || ch == 0 {
		return hist
	}

	total := float32(cw * ch)
	cell := 0
	for gy := 0; gy < m.GridY; gy++ {
		for gx := 0; gx < m.GridX; gx++ {
			out := hist[cell*bins : (cell+1)*bins]
			for y := gy * ch; y < (gy+1)*ch; y++ {
				row := codes[y*w+gx*cw : y*w+(gx+1)*cw]
				for _, code := range row {
					out[code]++
				}
			}
			for k := range out {
				out[k] /= total
			}
			cell++
		}
	}
	return hist
}

// chiSquareAlt matches OpenCV HISTCMP_CHISQR_ALT: 2 * sum((a-b)^2 / (a+b)).
func chiSquareAlt(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		s := float64(a[i]) + float64(b[i])
		if math.Abs(s) > 2.220446049250313e-16 {
			sum += d * d / s
		}
	}
	return 2 * sum
}
