package vision

import (
	"image"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFaces returns the configured boxes that lie fully inside the searched region.
type fakeFaces struct {
	boxes []image.Rectangle
	calls []image.Rectangle
}

func (f *fakeFaces) DetectFaces(img *image.Gray) []image.Rectangle {
	f.calls = append(f.calls, img.Bounds())
	var out []image.Rectangle
	for _, b := range f.boxes {
		if b.In(img.Bounds()) {
			out = append(out, b)
		}
	}
	return out
}

type fakePeople struct {
	boxes []image.Rectangle
}

func (f *fakePeople) DetectPeople(img *image.Gray) []image.Rectangle {
	return f.boxes
}

func TestPipeline_FallsBackToWholeFrame(t *testing.T) {
	faces := &fakeFaces{boxes: []image.Rectangle{image.Rect(300, 200, 400, 300)}}
	p := NewPipeline(faces, &fakePeople{}, testLogger())

	frame := noiseRGBA(640, 480, 1)
	gray, boxes := p.Locate(frame)

	assert.Equal(t, image.Rect(0, 0, 640, 480), gray.Bounds())
	assert.Equal(t, []image.Rectangle{image.Rect(300, 200, 400, 300)}, boxes)
	require.Len(t, faces.calls, 1)
	assert.Equal(t, image.Rect(0, 0, 640, 480), faces.calls[0])
}

func TestPipeline_NilPersonDetector(t *testing.T) {
	faces := &fakeFaces{boxes: []image.Rectangle{image.Rect(10, 10, 70, 70)}}
	p := NewPipeline(faces, nil, testLogger())

	_, boxes := p.Locate(noiseRGBA(200, 200, 2))
	assert.Equal(t, []image.Rectangle{image.Rect(10, 10, 70, 70)}, boxes)
}

func TestPipeline_SearchesInsidePersons(t *testing.T) {
	faces := &fakeFaces{boxes: []image.Rectangle{
		image.Rect(120, 60, 180, 120), // inside person 1
		image.Rect(500, 50, 560, 110), // not inside any person
	}}
	people := &fakePeople{boxes: []image.Rectangle{image.Rect(100, 40, 220, 400)}}
	p := NewPipeline(faces, people, testLogger())

	_, boxes := p.Locate(noiseRGBA(640, 480, 3))

	assert.Equal(t, []image.Rectangle{image.Rect(120, 60, 180, 120)}, boxes)
	require.Len(t, faces.calls, 1)
	assert.Equal(t, image.Rect(100, 40, 220, 400), faces.calls[0], "face search must be restricted to the person region")
}

func TestPipeline_OverlappingPersonsDeduplicateFaces(t *testing.T) {
	faces := &fakeFaces{boxes: []image.Rectangle{image.Rect(150, 80, 210, 140)}}
	people := &fakePeople{boxes: []image.Rectangle{
		image.Rect(100, 40, 260, 460),
		image.Rect(120, 50, 280, 470),
	}}
	p := NewPipeline(faces, people, testLogger())

	_, boxes := p.Locate(noiseRGBA(640, 480, 4))
	assert.Equal(t, []image.Rectangle{image.Rect(150, 80, 210, 140)}, boxes)
	assert.Len(t, faces.calls, 2)
}

func TestPipeline_ClipsPersonsToFrame(t *testing.T) {
	faces := &fakeFaces{}
	people := &fakePeople{boxes: []image.Rectangle{image.Rect(-20, -20, 100, 700), image.Rect(900, 900, 1000, 1000)}}
	p := NewPipeline(faces, people, testLogger())

	_, boxes := p.Locate(noiseRGBA(320, 240, 5))
	assert.Empty(t, boxes)
	require.Len(t, faces.calls, 1, "the person outside the frame is dropped")
	assert.Equal(t, image.Rect(0, 0, 100, 240), faces.calls[0])
}

func TestPipeline_Faces(t *testing.T) {
	faces := &fakeFaces{boxes: []image.Rectangle{image.Rect(20, 30, 80, 90)}}
	p := NewPipeline(faces, nil, testLogger())

	_, located := p.Faces(noiseRGBA(200, 200, 6))
	require.Len(t, located, 1)
	assert.Equal(t, image.Rect(20, 30, 80, 90), located[0].Box)
	assert.Equal(t, image.Rect(0, 0, 60, 60), located[0].Crop.Bounds())
}
