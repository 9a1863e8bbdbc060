package panel

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"github.com/cabeard21/autommo-sub000/internal/bar"
	"github.com/cabeard21/autommo-sub000/internal/capture"
)

// RegionSelector shows a screenshot and lets the user drag out the action
// bar rectangle. Coordinates are reported in screenshot pixels.
type RegionSelector struct {
	widget.BaseWidget

	img        image.Image
	dragStart  fyne.Position
	dragNow    fyne.Position
	dragging   bool
	preview    *canvas.Image
	selection  *canvas.Rectangle
	OnSelected func(rect image.Rectangle)
}

func NewRegionSelector(img image.Image, onSelected func(image.Rectangle)) *RegionSelector {
	r := &RegionSelector{
		img:        img,
		OnSelected: onSelected,
	}
	r.ExtendBaseWidget(r)

	r.preview = canvas.NewImageFromImage(img)
	r.preview.ScaleMode = canvas.ImageScalePixels // Crucial: No interpolation/smoothing
	r.preview.FillMode = canvas.ImageFillContain

	r.selection = canvas.NewRectangle(color.RGBA{R: 255, G: 0, B: 0, A: 60})
	r.selection.StrokeColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	r.selection.StrokeWidth = 2
	r.selection.Hide()

	return r
}

func (r *RegionSelector) CreateRenderer() fyne.WidgetRenderer {
	return &regionRenderer{
		selector: r,
		objects:  []fyne.CanvasObject{r.preview, r.selection},
	}
}

func (r *RegionSelector) Dragged(e *fyne.DragEvent) {
	if !r.dragging {
		r.dragging = true
		r.dragStart = e.Position.Subtract(e.Dragged) // Approx start
		r.selection.Show()
	}
	r.dragNow = e.Position
	r.Refresh()
}

func (r *RegionSelector) DragEnd() {
	r.dragging = false
	r.Refresh()
	r.reportSelection()
	// Keep the box visible so the user sees what they picked
}

func (r *RegionSelector) Tapped(e *fyne.PointEvent) {
	r.dragStart = e.Position
	r.dragNow = e.Position
	r.selection.Hide() // Click resets
	r.Refresh()
}

func (r *RegionSelector) Cursor() desktop.Cursor {
	return desktop.CrosshairCursor
}

// drawArea is where the contained image actually lands inside the widget.
type drawArea struct {
	offX, offY float32
	width      float32
	height     float32
}

func (r *RegionSelector) imageDrawArea() drawArea {
	wBound := r.Size().Width
	hBound := r.Size().Height
	if wBound == 0 || hBound == 0 {
		return drawArea{}
	}

	imgW := float32(r.img.Bounds().Dx())
	imgH := float32(r.img.Bounds().Dy())
	aspect := imgW / imgH

	if wBound/hBound > aspect {
		// View is wider: fit height
		h := hBound
		w := h * aspect
		return drawArea{offX: (wBound - w) / 2, width: w, height: h}
	}
	// View is taller: fit width
	w := wBound
	h := w / aspect
	return drawArea{offY: (hBound - h) / 2, width: w, height: h}
}

func (r *RegionSelector) reportSelection() {
	if r.OnSelected == nil {
		return
	}

	area := r.imageDrawArea()
	if area.width <= 0 || area.height <= 0 {
		return
	}

	selMinX := minf(r.dragStart.X, r.dragNow.X)
	selMinY := minf(r.dragStart.Y, r.dragNow.Y)
	selMaxX := maxf(r.dragStart.X, r.dragNow.X)
	selMaxY := maxf(r.dragStart.Y, r.dragNow.Y)

	// Clip the drag rectangle to the drawn image
	x0 := maxf(area.offX, selMinX)
	y0 := maxf(area.offY, selMinY)
	x1 := minf(area.offX+area.width, selMaxX)
	y1 := minf(area.offY+area.height, selMaxY)
	if x1-x0 <= 0 || y1-y0 <= 0 {
		return
	}

	scaleX := float32(r.img.Bounds().Dx()) / area.width
	scaleY := float32(r.img.Bounds().Dy()) / area.height

	picked := image.Rect(
		int((x0-area.offX)*scaleX),
		int((y0-area.offY)*scaleY),
		int((x1-area.offX)*scaleX),
		int((y1-area.offY)*scaleY),
	).Intersect(r.img.Bounds()) // float math can overshoot

	if !picked.Empty() {
		r.OnSelected(picked)
	}
}

type regionRenderer struct {
	selector *RegionSelector
	objects  []fyne.CanvasObject
}

func (rr *regionRenderer) Layout(s fyne.Size) {
	rr.objects[0].Resize(s)
	rr.objects[0].Move(fyne.NewPos(0, 0))
	rr.placeSelection()
}

func (rr *regionRenderer) MinSize() fyne.Size {
	return fyne.NewSize(100, 100)
}

func (rr *regionRenderer) Refresh() {
	rr.placeSelection()
	canvas.Refresh(rr.selector)
}

func (rr *regionRenderer) placeSelection() {
	s := rr.selector
	minX := minf(s.dragStart.X, s.dragNow.X)
	minY := minf(s.dragStart.Y, s.dragNow.Y)
	maxX := maxf(s.dragStart.X, s.dragNow.X)
	maxY := maxf(s.dragStart.Y, s.dragNow.Y)

	rr.objects[1].Move(fyne.NewPos(minX, minY))
	rr.objects[1].Resize(fyne.NewSize(maxX-minX, maxY-minY))
}

func (rr *regionRenderer) Objects() []fyne.CanvasObject {
	return rr.objects
}

func (rr *regionRenderer) Destroy() {}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// ShowRegionPicker screenshots the display and opens a selector dialog.
// The callback receives the picked rectangle as a display-relative box.
func ShowRegionPicker(win fyne.Window, display int, onPicked func(bar.BoundingBox)) {
	img, err := capture.GrabDisplayImage(display)
	if err != nil {
		dialog.ShowError(err, win)
		return
	}

	var picked *image.Rectangle
	selector := NewRegionSelector(img, func(rect image.Rectangle) {
		picked = &rect
	})

	d := dialog.NewCustomConfirm("Drag over the action bar", "Use Selection", "Cancel",
		selector,
		func(ok bool) {
			if !ok || picked == nil {
				return
			}
			onPicked(bar.BoundingBox{
				Top:    picked.Min.Y,
				Left:   picked.Min.X,
				Width:  picked.Dx(),
				Height: picked.Dy(),
			})
		}, win)
	d.Resize(fyne.NewSize(960, 560))
	d.Show()
}
