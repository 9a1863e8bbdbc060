// Package capture grabs the action bar region from the screen.
package capture

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"github.com/cabeard21/autommo-sub000/internal/bar"
)

// Source produces frames of the configured capture region.
type Source interface {
	// Start prepares the source for a capture session. Stateless backends
	// may treat it as a no-op.
	Start() error
	// Grab captures the box, given in display-relative coordinates.
	Grab(display int, box bar.BoundingBox) (bar.Frame, error)
	// Stop releases any session resources.
	Stop()
}

// ScreenSource captures from a physical display. kbinani/screenshot opens
// the display connection per call, so the session lifecycle is a no-op.
type ScreenSource struct{}

func (ScreenSource) Start() error { return nil }

func (ScreenSource) Stop() {}

// NumDisplays returns the number of active displays.
func NumDisplays() int {
	return screenshot.NumActiveDisplays()
}

// DisplayBounds returns the virtual-desktop rectangle of one display.
func DisplayBounds(display int) (image.Rectangle, error) {
	if display < 0 || display >= screenshot.NumActiveDisplays() {
		return image.Rectangle{}, fmt.Errorf("display %d out of range", display)
	}
	return screenshot.GetDisplayBounds(display), nil
}

// GrabDisplayImage captures a whole display as an image, for the region
// picker preview.
func GrabDisplayImage(display int) (image.Image, error) {
	bounds, err := DisplayBounds(display)
	if err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("capture display %d: %w", display, err)
	}
	return img, nil
}

// Grab captures box from the given display. The box is clamped to the
// display, so a bar configured near an edge still yields what is visible.
func (ScreenSource) Grab(display int, box bar.BoundingBox) (bar.Frame, error) {
	if box.Width <= 0 || box.Height <= 0 {
		return bar.Frame{}, fmt.Errorf("empty capture box %dx%d", box.Width, box.Height)
	}
	bounds, err := DisplayBounds(display)
	if err != nil {
		return bar.Frame{}, err
	}

	// kbinani/screenshot handles multi-monitor bounds correctly
	rect := image.Rect(
		bounds.Min.X+box.Left,
		bounds.Min.Y+box.Top,
		bounds.Min.X+box.Left+box.Width,
		bounds.Min.Y+box.Top+box.Height,
	).Intersect(bounds)
	if rect.Empty() {
		return bar.Frame{}, fmt.Errorf("capture box outside display %d", display)
	}

	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return bar.Frame{}, fmt.Errorf("capture display %d: %w", display, err)
	}
	return bar.FrameFromRGBA(img), nil
}
