package opencv

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/veerdrishti/veerdrishti/internal/camera"
)

const (
	FrameWidth  = 1280
	FrameHeight = 720
)

// Camera reads frames from a local capture device. The device is opened on the
// first Read and reopened after it drops, so a camera that is missing at boot or
// unplugged later is picked up by the live loop's retry.
type Camera struct {
	mu      sync.Mutex
	index   int
	capture *gocv.VideoCapture
	frame   gocv.Mat
	closed  bool
}

// OpenCamera implements camera.DeviceOpener. It does not touch the device.
func OpenCamera(index int) (camera.Source, error) {
	return &Camera{index: index, frame: gocv.NewMat()}, nil
}

func (c *Camera) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, camera.ErrNoFrame
	}
	if c.capture == nil {
		if err := c.open(); err != nil {
			return nil, fmt.Errorf("%w: %v", camera.ErrNoFrame, err)
		}
	}

	if ok := c.capture.Read(&c.frame); !ok || c.frame.Empty() {
		if !c.capture.IsOpened() {
			c.release()
		}
		return nil, camera.ErrNoFrame
	}

	img, err := c.frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", camera.ErrNoFrame, err)
	}
	return img, nil
}

func (c *Camera) open() error {
	vc, err := gocv.OpenVideoCapture(c.index)
	if err != nil {
		return fmt.Errorf("open video capture %d: %w", c.index, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return fmt.Errorf("video capture %d not opened", c.index)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, FrameWidth)
	vc.Set(gocv.VideoCaptureFrameHeight, FrameHeight)
	c.capture = vc
	return nil
}

func (c *Camera) release() {
	if c.capture == nil {
		return
	}
	_ = c.capture.Close()
	c.capture = nil
}

// Close releases the device. Safe to call more than once.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.frame.Close()

	var err error
	if c.capture != nil {
		err = c.capture.Close()
		c.capture = nil
	}
	return err
}
