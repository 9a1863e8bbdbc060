package bar

// SlotRegion is the pixel region of one slot relative to the captured
// action bar frame (not screen coordinates).
type SlotRegion struct {
	Index  int
	X      int
	Y      int
	Width  int
	Height int
}

// Layout divides a width x height frame into count equal slots separated by
// gap pixels. Slot width uses floor division, so the final slot may clip a
// few pixels when the width is not evenly divisible; that error is accepted.
// Regions never overlap and never have zero width.
func Layout(width, height, count, gap int) []SlotRegion {
	if count <= 0 {
		return nil
	}
	if gap < 0 {
		gap = 0
	}
	slotW := (width - (count-1)*gap) / count
	if slotW < 1 {
		slotW = 1
	}
	if height < 1 {
		height = 1
	}
	regions := make([]SlotRegion, count)
	for i := 0; i < count; i++ {
		regions[i] = SlotRegion{
			Index:  i,
			X:      i * (slotW + gap),
			Y:      0,
			Width:  slotW,
			Height: height,
		}
	}
	return regions
}
