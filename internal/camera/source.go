// Package camera provides the frame sources the live loop reads from.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/veerdrishti/veerdrishti/internal/config"
)

// ErrNoFrame is returned when the device produced no usable frame this time.
var ErrNoFrame = errors.New("camera: no frame")

// Source yields frames. Only one goroutine calls Read at a time.
type Source interface {
	Read(ctx context.Context) (image.Image, error)
	Close() error
}

// SourceType selects a Source implementation.
type SourceType string

const (
	// SourceTypeDevice reads from a local capture device (OpenCV VideoCapture).
	SourceTypeDevice SourceType = "device"
	// SourceTypeFile cycles through still images, for demos and tests without a camera.
	SourceTypeFile SourceType = "file"
)

// DeviceOpener opens capture device index. The OpenCV implementation lives in
// internal/opencv so that this package builds without cgo.
type DeviceOpener func(index int) (Source, error)

// NewSource creates the Source configured by CAMERA_SOURCE.
//
// Environment variables:
//   - CAMERA_SOURCE: "device" or "file" (default: "device")
//   - CAMERA_INDEX: capture device index for "device" (default: 0)
//   - CAMERA_FILES: glob of still images for "file"
func NewSource(cfg *config.Config, openDevice DeviceOpener) (Source, error) {
	switch SourceType(cfg.CameraSource) {
	case SourceTypeDevice, "":
		return createDeviceSource(cfg, openDevice)

	case SourceTypeFile:
		return NewFileSource(cfg.CameraFiles)

	default:
		return nil, fmt.Errorf("unknown camera source: %s (supported: %s, %s)",
			cfg.CameraSource, SourceTypeDevice, SourceTypeFile)
	}
}

func createDeviceSource(cfg *config.Config, openDevice DeviceOpener) (Source, error) {
	if openDevice == nil {
		return nil, errors.New("camera: no device opener configured")
	}
	src, err := openDevice(cfg.CameraIndex)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", cfg.CameraIndex, err)
	}
	return src, nil
}
