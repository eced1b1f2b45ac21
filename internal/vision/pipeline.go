package vision

import (
	"image"
	"log/slog"
)

// FaceDetector finds upright faces. Returned rectangles are in the coordinate space of
// img.Bounds(), so detecting on a SubImage yields frame coordinates directly.
type FaceDetector interface {
	DetectFaces(img *image.Gray) []image.Rectangle
}

// PersonDetector finds full-body pedestrians, same coordinate contract as FaceDetector.
type PersonDetector interface {
	DetectPeople(img *image.Gray) []image.Rectangle
}

// DefaultMergeIoU is the overlap above which two face boxes are treated as the same face.
const DefaultMergeIoU = 0.5

// Face is one located face: its box in the frame and an un-normalized grayscale crop.
type Face struct {
	Box  image.Rectangle
	Crop *image.Gray
}

// Pipeline localizes faces in two stages: people first, then faces inside each person.
// When no person is found, faces are searched on the whole frame so that close-ups,
// where no full body is visible, are not missed.
type Pipeline struct {
	faces    FaceDetector
	people   PersonDetector
	mergeIoU float64
	logger   *slog.Logger
}

// NewPipeline builds a pipeline. people may be nil, in which case every frame is
// searched for faces directly.
func NewPipeline(faces FaceDetector, people PersonDetector, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		faces:    faces,
		people:   people,
		mergeIoU: DefaultMergeIoU,
		logger:   logger,
	}
}

// DetectFaces runs only the face detector over the whole image. Used at enrollment,
// where the upload is usually a portrait.
func (p *Pipeline) DetectFaces(gray *image.Gray) []image.Rectangle {
	return sortBoxes(p.clip(gray.Bounds(), p.faces.DetectFaces(gray)))
}

// Locate returns the grayscale frame and the face boxes found in it.
func (p *Pipeline) Locate(frame image.Image) (*image.Gray, []image.Rectangle) {
	gray := ToGray(frame)
	bounds := gray.Bounds()

	var persons []image.Rectangle
	if p.people != nil {
		persons = p.clip(bounds, p.people.DetectPeople(gray))
	}

	if len(persons) == 0 {
		return gray, MergeOverlapping(p.clip(bounds, p.faces.DetectFaces(gray)), p.mergeIoU)
	}

	var boxes []image.Rectangle
	for _, person := range persons {
		roi, ok := gray.SubImage(person).(*image.Gray)
		if !ok {
			continue
		}
		boxes = append(boxes, p.clip(person, p.faces.DetectFaces(roi))...)
	}

	p.logger.Debug("located faces",
		slog.Int("persons", len(persons)),
		slog.Int("faces", len(boxes)),
	)

	return gray, MergeOverlapping(boxes, p.mergeIoU)
}

// Faces locates faces and crops each one from the grayscale frame.
func (p *Pipeline) Faces(frame image.Image) (*image.Gray, []Face) {
	gray, boxes := p.Locate(frame)
	faces := make([]Face, 0, len(boxes))
	for _, box := range boxes {
		faces = append(faces, Face{Box: box, Crop: Crop(gray, box)})
	}
	return gray, faces
}

// clip intersects boxes with bounds and drops the ones left empty.
func (p *Pipeline) clip(bounds image.Rectangle, boxes []image.Rectangle) []image.Rectangle {
	out := boxes[:0:0]
	for _, b := range boxes {
		b = b.Canon().Intersect(bounds)
		if !b.Empty() {
			out = append(out, b)
		}
	}
	return out
}
