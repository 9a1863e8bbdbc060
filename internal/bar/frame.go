package bar

import "image"

// Frame is an owned BGR raster of the captured action bar region:
// Height rows of Width pixels, 3 bytes per pixel in B,G,R order.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// Empty reports whether the frame holds no pixels.
func (f Frame) Empty() bool {
	return f.Width <= 0 || f.Height <= 0 || len(f.Pix) < f.Width*f.Height*3
}

// At returns the B,G,R bytes of pixel (x, y). Caller must ensure bounds.
func (f Frame) At(x, y int) (b, g, r byte) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// Crop returns an owned copy of the rectangle clamped to the frame bounds.
// An out-of-bounds rectangle yields an empty frame.
func (f Frame) Crop(x, y, w, h int) Frame {
	if f.Empty() {
		return Frame{}
	}
	if x < 0 {
		w += x
		x = 0
	}
	if y < 0 {
		h += y
		y = 0
	}
	if x+w > f.Width {
		w = f.Width - x
	}
	if y+h > f.Height {
		h = f.Height - y
	}
	if w <= 0 || h <= 0 {
		return Frame{}
	}
	out := Frame{Width: w, Height: h, Pix: make([]byte, w*h*3)}
	for row := 0; row < h; row++ {
		src := ((y+row)*f.Width + x) * 3
		dst := row * w * 3
		copy(out.Pix[dst:dst+w*3], f.Pix[src:src+w*3])
	}
	return out
}

// GrayImage is a single-channel brightness raster (0-255 per pixel).
type GrayImage struct {
	Width  int
	Height int
	Pix    []byte
}

// Empty reports whether the image holds no pixels.
func (g GrayImage) Empty() bool {
	return g.Width <= 0 || g.Height <= 0 || len(g.Pix) < g.Width*g.Height
}

// SameShape reports whether two rasters have identical dimensions.
func (g GrayImage) SameShape(o GrayImage) bool {
	return g.Width == o.Width && g.Height == o.Height
}

// Clone returns an owned copy.
func (g GrayImage) Clone() GrayImage {
	out := GrayImage{Width: g.Width, Height: g.Height, Pix: make([]byte, len(g.Pix))}
	copy(out.Pix, g.Pix)
	return out
}

// TopLeftQuadrant returns the top-left half-by-half sub-region, used when
// detection is restricted to the corner a cooldown sweep reaches last.
func (g GrayImage) TopLeftQuadrant() GrayImage {
	w := g.Width / 2
	h := g.Height / 2
	if w < 1 {
		w = g.Width
	}
	if h < 1 {
		h = g.Height
	}
	out := GrayImage{Width: w, Height: h, Pix: make([]byte, w*h)}
	for row := 0; row < h; row++ {
		copy(out.Pix[row*w:(row+1)*w], g.Pix[row*g.Width:row*g.Width+w])
	}
	return out
}

// Gray converts the frame to a brightness raster using the standard
// luma weights (0.299 R + 0.587 G + 0.114 B).
func (f Frame) Gray() GrayImage {
	if f.Empty() {
		return GrayImage{}
	}
	out := GrayImage{Width: f.Width, Height: f.Height, Pix: make([]byte, f.Width*f.Height)}
	for i := 0; i < f.Width*f.Height; i++ {
		b := int(f.Pix[i*3])
		g := int(f.Pix[i*3+1])
		r := int(f.Pix[i*3+2])
		out.Pix[i] = byte((299*r + 587*g + 114*b + 500) / 1000)
	}
	return out
}

// FrameFromRGBA repacks an *image.RGBA capture into an owned BGR frame.
func FrameFromRGBA(img *image.RGBA) Frame {
	if img == nil {
		return Frame{}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return Frame{}
	}
	out := Frame{Width: w, Height: h, Pix: make([]byte, w*h*3)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			dst := (y*w + x) * 3
			out.Pix[dst] = img.Pix[src+2]   // B
			out.Pix[dst+1] = img.Pix[src+1] // G
			out.Pix[dst+2] = img.Pix[src]   // R
		}
	}
	return out
}

// bgrToHSV converts one pixel to OpenCV-convention HSV: hue 0-179,
// saturation and value 0-255.
func bgrToHSV(b, g, r byte) (hue, sat, val int) {
	bi, gi, ri := int(b), int(g), int(r)
	maxC := bi
	if gi > maxC {
		maxC = gi
	}
	if ri > maxC {
		maxC = ri
	}
	minC := bi
	if gi < minC {
		minC = gi
	}
	if ri < minC {
		minC = ri
	}
	val = maxC
	diff := maxC - minC
	if maxC == 0 {
		return 0, 0, val
	}
	sat = (255*diff + maxC/2) / maxC
	if diff == 0 {
		return 0, sat, val
	}
	var h int
	switch maxC {
	case ri:
		h = (60 * (gi - bi)) / diff
	case gi:
		h = 120 + (60*(bi-ri))/diff
	default:
		h = 240 + (60*(ri-gi))/diff
	}
	if h < 0 {
		h += 360
	}
	return h / 2, sat, val
}
