package live

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"github.com/fogleman/gg"

	"github.com/veerdrishti/veerdrishti/internal/domain"
)

var (
	colorOfficial = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	colorCitizen  = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	colorCriminal = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	colorUnknown  = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	colorPlate    = color.RGBA{A: 255}
)

// BoxColor is the outline colour for an event.
func BoxColor(ev domain.DetectionEvent) color.RGBA {
	if !ev.IsMatch {
		return colorUnknown
	}
	switch ev.Category {
	case domain.CategoryOfficial:
		return colorOfficial
	case domain.CategoryCitizen:
		return colorCitizen
	case domain.CategoryCriminal:
		return colorCriminal
	}
	return colorUnknown
}

// LabelText is the caption drawn next to a box.
func LabelText(ev domain.DetectionEvent) string {
	if !ev.IsMatch {
		return "Intruder"
	}
	var prefix string
	switch ev.Category {
	case domain.CategoryOfficial:
		prefix = "Official"
	case domain.CategoryCitizen:
		prefix = "Citizen"
	case domain.CategoryCriminal:
		prefix = "Criminal"
	default:
		prefix = "Known"
	}
	return fmt.Sprintf("%s: %s (%.1f)", prefix, ev.Label, ev.Confidence)
}

// Annotate draws every event onto a copy of frame.
func Annotate(frame image.Image, events []domain.DetectionEvent) *image.RGBA {
	b := frame.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), frame, b.Min, draw.Src)

	dc := gg.NewContextForRGBA(canvas)
	for _, ev := range events {
		col := BoxColor(ev)
		x, y := float64(ev.BBox.X), float64(ev.BBox.Y)
		w, h := float64(ev.BBox.Width), float64(ev.BBox.Height)

		dc.SetColor(col)
		dc.SetLineWidth(2)
		dc.DrawRectangle(x, y, w, h)
		dc.Stroke()

		text := LabelText(ev)
		tw, th := dc.MeasureString(text)
		tx, ty := plateOrigin(x, y, h, th)

		dc.SetColor(colorPlate)
		dc.DrawRectangle(tx-2, ty-th-4, tw+4, th+8)
		dc.Fill()

		dc.SetColor(col)
		dc.DrawString(text, tx, ty)
	}
	return canvas
}

// plateOrigin returns the text baseline: above the box, or below it when the box
// touches the top of the frame.
func plateOrigin(x, y, h, textHeight float64) (float64, float64) {
	if y-10 > 10 {
		return x, y - 10
	}
	return x, y + h + textHeight + 6
}

func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
