package vision

import (
	"image"
	"sort"

	flatbush "github.com/bmharper/flatbush-go"
)

// IOU is intersection over union of two boxes.
func IOU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	ia := area(inter)
	if ia == 0 {
		return 0
	}
	return float64(ia) / float64(area(a)+area(b)-ia)
}

func area(r image.Rectangle) int {
	if r.Empty() {
		return 0
	}
	return r.Dx() * r.Dy()
}

// MergeOverlapping drops boxes that overlap a larger box by at least minIoU.
// Person regions often overlap, so the same face can be found once per region.
// The result is ordered top-to-bottom, then left-to-right.
func MergeOverlapping(boxes []image.Rectangle, minIoU float64) []image.Rectangle {
	if len(boxes) < 2 {
		return sortBoxes(append([]image.Rectangle(nil), boxes...))
	}

	fb := flatbush.NewFlatbush[int32]()
	fb.Reserve(len(boxes))
	for _, b := range boxes {
		fb.Add(int32(b.Min.X), int32(b.Min.Y), int32(b.Max.X), int32(b.Max.Y))
	}
	fb.Finish()

	deleted := make([]bool, len(boxes))
	for i, b := range boxes {
		if deleted[i] {
			continue
		}
		for _, j := range fb.Search(int32(b.Min.X), int32(b.Min.Y), int32(b.Max.X), int32(b.Max.Y)) {
			if i == j || deleted[j] {
				continue
			}
			if IOU(b, boxes[j]) < minIoU {
				continue
			}
			// Keep the larger box; on a tie keep the earlier one.
			if area(boxes[j]) > area(b) {
				deleted[i] = true
				break
			}
			deleted[j] = true
		}
	}

	kept := make([]image.Rectangle, 0, len(boxes))
	for i, b := range boxes {
		if !deleted[i] {
			kept = append(kept, b)
		}
	}
	return sortBoxes(kept)
}

func sortBoxes(boxes []image.Rectangle) []image.Rectangle {
	sort.SliceStable(boxes, func(i, j int) bool {
		if boxes[i].Min.Y != boxes[j].Min.Y {
			return boxes[i].Min.Y < boxes[j].Min.Y
		}
		return boxes[i].Min.X < boxes[j].Min.X
	})
	return boxes
}
