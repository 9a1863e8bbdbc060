package bar

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cabeard21/autommo-sub000/internal/constants"
)

// DetectorConfig is the immutable per-cycle settings snapshot the detector
// works from. Zero values fall back to the documented defaults.
type DetectorConfig struct {
	Box         BoundingBox
	SlotCount   int
	SlotGap     int
	SlotPadding int

	// A pixel counts as darkened when its brightness dropped by strictly
	// more than this (0-255). Merely darker pixels are flicker, not cooldown.
	BrightnessDropThreshold int
	// Slot is ON_COOLDOWN when at least this fraction of pixels darkened.
	CooldownPixelFraction float64

	DropThresholdBySlot    map[int]int
	CooldownFractionBySlot map[int]float64

	// DetectionRegion is "full" or "top_left". The top-left quadrant is the
	// corner a radial cooldown sweep clears last, so restricting detection
	// there keeps a slot ON_COOLDOWN until the sweep truly finishes.
	DetectionRegion       string
	DetectionRegionBySlot map[int]string

	// A fresh darkening must persist this long before it counts as a real
	// cooldown; until then the slot reports GCD instead of READY.
	CooldownMinDuration time.Duration
	// Once on cooldown, the darkened fraction must fall below
	// fraction*CooldownReleaseFactor before the slot can return to READY.
	CooldownReleaseFactor float64
	// The release must hold this long unless pixels are clearly at baseline.
	CooldownReleaseConfirm time.Duration

	GlowEnabled               bool
	GlowRingThickness         int
	GlowValueDelta            int
	GlowValueDeltaBySlot      map[int]int
	GlowSaturationMin         int
	GlowRingFraction          float64
	GlowRingFractionBySlot    map[int]float64
	GlowRedRingFraction       float64
	GlowYellowHueMin          int
	GlowYellowHueMax          int
	GlowRedHueMaxLow          int
	GlowRedHueMinHigh         int
	GlowConfirmFrames         int
	GlowOverrideCooldownSlots []int

	LockReadyWhileCasting bool

	BuffROIs []BuffROI
}

// BuffROI is one calibrated buff region of interest, positioned relative to
// the captured frame's origin.
type BuffROI struct {
	ID             string
	Name           string
	Enabled        bool
	Left           int
	Top            int
	Width          int
	Height         int
	MatchThreshold float64
	ConfirmFrames  int
	// Template is the calibrated grayscale "buff present" reference.
	// Empty means uncalibrated.
	Template GrayImage
}

func (c DetectorConfig) withDefaults() DetectorConfig {
	if c.DetectionRegion != "full" && c.DetectionRegion != "top_left" {
		c.DetectionRegion = "top_left"
	}
	if c.CooldownReleaseFactor <= 0 {
		c.CooldownReleaseFactor = constants.CooldownReleaseFactor
	}
	if c.CooldownReleaseFactor < 0.25 {
		c.CooldownReleaseFactor = 0.25
	}
	if c.CooldownReleaseFactor > 1.0 {
		c.CooldownReleaseFactor = 1.0
	}
	if c.CooldownReleaseConfirm <= 0 {
		c.CooldownReleaseConfirm = constants.CooldownReleaseConfirm
	}
	if c.GlowRingThickness <= 0 {
		c.GlowRingThickness = constants.GlowRingThickness
	}
	if c.GlowValueDelta <= 0 {
		c.GlowValueDelta = constants.GlowValueDelta
	}
	if c.GlowSaturationMin <= 0 {
		c.GlowSaturationMin = constants.GlowSaturationMin
	}
	if c.GlowRingFraction <= 0 {
		c.GlowRingFraction = constants.GlowRingFraction
	}
	if c.GlowRedRingFraction <= 0 {
		c.GlowRedRingFraction = c.GlowRingFraction
	}
	if c.GlowYellowHueMin <= 0 {
		c.GlowYellowHueMin = 18
	}
	if c.GlowYellowHueMax <= 0 {
		c.GlowYellowHueMax = 42
	}
	if c.GlowRedHueMaxLow <= 0 {
		c.GlowRedHueMaxLow = 12
	}
	if c.GlowRedHueMinHigh <= 0 {
		c.GlowRedHueMinHigh = 168
	}
	if c.GlowConfirmFrames < 1 {
		c.GlowConfirmFrames = constants.GlowConfirmFrames
	}
	return c
}

// StateRefiner is a pluggable extension of the detector that may rewrite
// slot states after the cooldown pass (e.g. a casting/channeling classifier
// built on the same confirm-frame discipline). castActive gates dispatch.
type StateRefiner interface {
	Refine(frame Frame, now time.Time, slots []SlotSnapshot) (refined []SlotSnapshot, castActive bool)
}

type slotRuntime struct {
	state                  SlotState
	wasCooldown            bool
	cooldownCandidateStart time.Time
	releaseCandidateStart  time.Time
	glowFrames             int
	yellowGlowFrames       int
	redGlowFrames          int
}

type buffRuntime struct {
	candidateFrames int
	redGlowFrames   int
}

// Detector turns captured frames into per-slot readiness states by comparing
// each slot crop against a calibrated brightness baseline.
//
// The baseline table is owned exclusively by the detector and replaced
// wholesale on calibration or layout change. Not safe for concurrent use;
// the cycle engine serializes all calls.
type Detector struct {
	cfg        DetectorConfig
	regions    []SlotRegion
	baselines  map[int]GrayImage
	slots      map[int]*slotRuntime
	buffs      map[string]*buffRuntime
	buffStates map[string]BuffState
	refiner    StateRefiner

	debugFunc func(string, ...interface{})
	now       func() time.Time

	frameCount int
}

// NewDetector creates a detector for the given settings with no baselines.
func NewDetector(cfg DetectorConfig) *Detector {
	d := &Detector{
		baselines:  make(map[int]GrayImage),
		slots:      make(map[int]*slotRuntime),
		buffs:      make(map[string]*buffRuntime),
		buffStates: make(map[string]BuffState),
		debugFunc:  func(string, ...interface{}) {},
		now:        time.Now,
	}
	d.cfg = cfg.withDefaults()
	d.recomputeLayout()
	return d
}

// SetDebugFunc sets the debug logging callback.
func (d *Detector) SetDebugFunc(f func(string, ...interface{})) {
	if f != nil {
		d.debugFunc = f
	}
}

// SetRefiner installs an optional cast-state classifier.
func (d *Detector) SetRefiner(r StateRefiner) { d.refiner = r }

func (d *Detector) recomputeLayout() {
	d.regions = Layout(d.cfg.Box.Width, d.cfg.Box.Height, d.cfg.SlotCount, d.cfg.SlotGap)
	for _, r := range d.regions {
		if _, ok := d.slots[r.Index]; !ok {
			d.slots[r.Index] = &slotRuntime{state: StateUnknown}
		}
	}
}

// SetConfig swaps in a new settings snapshot. Changing slot count, gap, or
// padding invalidates every baseline: the crops no longer line up, so the
// old rasters would compare garbage.
func (d *Detector) SetConfig(cfg DetectorConfig) {
	cfg = cfg.withDefaults()
	layoutChanged := cfg.SlotCount != d.cfg.SlotCount ||
		cfg.SlotGap != d.cfg.SlotGap ||
		cfg.SlotPadding != d.cfg.SlotPadding
	d.cfg = cfg
	d.recomputeLayout()
	if layoutChanged {
		d.baselines = make(map[int]GrayImage)
		d.slots = make(map[int]*slotRuntime)
		for _, r := range d.regions {
			d.slots[r.Index] = &slotRuntime{state: StateUnknown}
		}
		d.debugFunc("Slot layout changed; baselines cleared (recalibrate required)")
	}
	d.buffs = make(map[string]*buffRuntime)
	d.buffStates = make(map[string]BuffState)
}

// Regions returns the current slot layout.
func (d *Detector) Regions() []SlotRegion {
	out := make([]SlotRegion, len(d.regions))
	copy(out, d.regions)
	return out
}

func (d *Detector) cropSlot(frame Frame, region SlotRegion) Frame {
	pad := d.cfg.SlotPadding
	w := region.Width - 2*pad
	if w < 1 {
		w = 1
	}
	h := region.Height - 2*pad
	if h < 1 {
		h = 1
	}
	return frame.Crop(region.X+pad, region.Y+pad, w, h)
}

// Calibrate captures the frame as the "ready" baseline for every slot,
// replacing the baseline table wholesale. Call when all abilities are off
// cooldown.
func (d *Detector) Calibrate(frame Frame) {
	next := make(map[int]GrayImage, len(d.regions))
	for _, region := range d.regions {
		gray := d.cropSlot(frame, region).Gray()
		if gray.Empty() {
			d.debugFunc("Skipping baseline for slot %d: empty crop", region.Index)
			continue
		}
		next[region.Index] = gray
		d.slots[region.Index] = &slotRuntime{state: StateUnknown}
	}
	d.baselines = next
	d.debugFunc("Calibrated brightness baselines for %d slots", len(next))
}

// CalibrateSlot overwrites the baseline for one slot only.
func (d *Detector) CalibrateSlot(frame Frame, index int) {
	if index < 0 || index >= len(d.regions) {
		d.debugFunc("CalibrateSlot: invalid slot index %d", index)
		return
	}
	gray := d.cropSlot(frame, d.regions[index]).Gray()
	if gray.Empty() {
		d.debugFunc("CalibrateSlot: empty crop for slot %d", index)
		return
	}
	next := make(map[int]GrayImage, len(d.baselines)+1)
	for k, v := range d.baselines {
		next[k] = v
	}
	next[index] = gray
	d.baselines = next
	d.slots[index] = &slotRuntime{state: StateUnknown}
	d.debugFunc("Calibrated baseline for slot %d", index)
}

// Baselines returns a copy of the baseline table for persistence.
func (d *Detector) Baselines() map[int]GrayImage {
	out := make(map[int]GrayImage, len(d.baselines))
	for k, v := range d.baselines {
		out[k] = v.Clone()
	}
	return out
}

// SetBaselines loads baselines from a previous session, replacing the table.
func (d *Detector) SetBaselines(baselines map[int]GrayImage) {
	next := make(map[int]GrayImage, len(baselines))
	for k, v := range baselines {
		next[k] = v.Clone()
	}
	d.baselines = next
	d.debugFunc("Loaded %d slot baselines", len(next))
}

// BuffStates returns the buff ROI states from the most recent Analyze call.
func (d *Detector) BuffStates() map[string]BuffState {
	out := make(map[string]BuffState, len(d.buffStates))
	for k, v := range d.buffStates {
		out[k] = v
	}
	return out
}

func (d *Detector) dropThreshold(slot int) int {
	if v, ok := d.cfg.DropThresholdBySlot[slot]; ok {
		return v
	}
	return d.cfg.BrightnessDropThreshold
}

func (d *Detector) fractionThreshold(slot int) float64 {
	if v, ok := d.cfg.CooldownFractionBySlot[slot]; ok {
		return v
	}
	return d.cfg.CooldownPixelFraction
}

func (d *Detector) regionMode(slot int) string {
	if v, ok := d.cfg.DetectionRegionBySlot[slot]; ok && (v == "full" || v == "top_left") {
		return v
	}
	return d.cfg.DetectionRegion
}

func (d *Detector) glowOverrideSlot(slot int) bool {
	for _, s := range d.cfg.GlowOverrideCooldownSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// Analyze classifies every slot of one frame and returns the complete
// ActionBarState. It never fails: missing or mismatched baselines yield
// UNKNOWN with zero magnitude.
func (d *Detector) Analyze(frame Frame) ActionBarState {
	now := d.now()
	d.analyzeBuffs(frame)

	snapshots := make([]SlotSnapshot, 0, len(d.regions))
	for _, region := range d.regions {
		snapshots = append(snapshots, d.analyzeSlot(frame, region, now))
	}

	castActive := false
	if d.refiner != nil {
		snapshots, castActive = d.refiner.Refine(frame, now, snapshots)
	}
	if castActive && d.cfg.LockReadyWhileCasting {
		for i := range snapshots {
			if snapshots[i].State == StateReady {
				snapshots[i].State = StateLocked
			}
		}
	}

	d.frameCount++
	if d.frameCount%30 == 0 {
		parts := make([]string, 0, len(snapshots))
		for _, s := range snapshots {
			parts = append(parts, "s"+strconv.Itoa(s.Index)+"="+s.State.String())
		}
		d.debugFunc("Slots: %s", strings.Join(parts, ", "))
	}

	return ActionBarState{Slots: snapshots, Timestamp: now, CastActive: castActive}
}

func (d *Detector) analyzeSlot(frame Frame, region SlotRegion, now time.Time) SlotSnapshot {
	rt := d.slots[region.Index]
	if rt == nil {
		rt = &slotRuntime{state: StateUnknown}
		d.slots[region.Index] = rt
	}

	crop := d.cropSlot(frame, region)
	gray := crop.Gray()
	baseline, haveBaseline := d.baselines[region.Index]

	detectCur := gray
	detectBase := baseline
	if d.regionMode(region.Index) == "top_left" && haveBaseline {
		detectCur = gray.TopLeftQuadrant()
		detectBase = baseline.TopLeftQuadrant()
	}

	if detectCur.Empty() || !haveBaseline || !detectBase.SameShape(detectCur) {
		rt.state = StateUnknown
		rt.glowFrames = 0
		rt.yellowGlowFrames = 0
		rt.redGlowFrames = 0
		return SlotSnapshot{Index: region.Index, State: StateUnknown, Timestamp: now}
	}

	thresh := d.dropThreshold(region.Index)
	fracThresh := d.fractionThreshold(region.Index)

	darkened := 0
	total := len(detectCur.Pix)
	for i := 0; i < total; i++ {
		if int(detectBase.Pix[i])-int(detectCur.Pix[i]) > thresh {
			darkened++
		}
	}
	fraction := 0.0
	if total > 0 {
		fraction = float64(darkened) / float64(total)
	}

	rawCooldown := fraction >= fracThresh

	// Release hysteresis: once on cooldown, hold until the darkened fraction
	// clears a lower release threshold, and then only after the release has
	// persisted for the confirm window (skipped when pixels are clearly back
	// at baseline, so a clean GCD end releases without added latency).
	if rt.wasCooldown {
		releaseThresh := fracThresh * d.cfg.CooldownReleaseFactor
		if fraction >= releaseThresh {
			rawCooldown = true
		}
		if !rawCooldown {
			if fraction < releaseThresh*0.5 {
				rt.releaseCandidateStart = time.Time{}
			} else if rt.releaseCandidateStart.IsZero() {
				rt.releaseCandidateStart = now
				rawCooldown = true
			} else if now.Sub(rt.releaseCandidateStart) < d.cfg.CooldownReleaseConfirm {
				rawCooldown = true
			} else {
				rt.releaseCandidateStart = time.Time{}
			}
		} else {
			rt.releaseCandidateStart = time.Time{}
		}
	}

	// Entry debounce: a darkening that has not yet persisted for
	// CooldownMinDuration is reported as GCD, not a confirmed cooldown.
	pending := false
	if rawCooldown {
		if rt.cooldownCandidateStart.IsZero() {
			rt.cooldownCandidateStart = now
		}
		if !rt.wasCooldown && d.cfg.CooldownMinDuration > 0 &&
			now.Sub(rt.cooldownCandidateStart) < d.cfg.CooldownMinDuration {
			pending = true
		}
	} else {
		rt.cooldownCandidateStart = time.Time{}
	}

	state := StateReady
	if rawCooldown && !pending {
		state = StateOnCooldown
	} else if pending {
		state = StateGCD
	}

	snap := SlotSnapshot{
		Index:            region.Index,
		State:            state,
		DarkenedFraction: fraction,
		Timestamp:        now,
	}

	if d.cfg.GlowEnabled && crop.Width == baseline.Width && crop.Height == baseline.Height {
		yellowFrac, redFrac := d.glowFractions(region.Index, crop, baseline)
		glowThresh := d.cfg.GlowRingFraction
		if v, ok := d.cfg.GlowRingFractionBySlot[region.Index]; ok {
			glowThresh = v
		}
		yellowCand := yellowFrac >= glowThresh
		redCand := redFrac >= d.cfg.GlowRedRingFraction

		if yellowCand {
			rt.yellowGlowFrames++
		} else {
			rt.yellowGlowFrames = 0
		}
		if redCand {
			rt.redGlowFrames++
		} else {
			rt.redGlowFrames = 0
		}
		if yellowCand || redCand {
			rt.glowFrames++
		} else {
			rt.glowFrames = 0
		}

		snap.YellowGlowReady = rt.yellowGlowFrames >= d.cfg.GlowConfirmFrames
		snap.RedGlowReady = rt.redGlowFrames >= d.cfg.GlowConfirmFrames
		snap.GlowReady = rt.glowFrames >= d.cfg.GlowConfirmFrames
		snap.GlowCandidate = yellowCand || redCand
		snap.GlowFraction = yellowFrac
		if redFrac > snap.GlowFraction {
			snap.GlowFraction = redFrac
		}

		// Red glow is an explicit "refresh now" cue; it overrides a cooldown
		// reading. Designated slots extend the override to any glow.
		if (snap.RedGlowReady || (d.glowOverrideSlot(region.Index) && snap.GlowReady)) &&
			snap.State == StateOnCooldown {
			snap.State = StateReady
			state = StateReady
		}
	} else {
		rt.glowFrames = 0
		rt.yellowGlowFrames = 0
		rt.redGlowFrames = 0
	}

	if state == StateOnCooldown {
		rt.wasCooldown = true
	}
	if !rawCooldown {
		rt.wasCooldown = false
		rt.cooldownCandidateStart = time.Time{}
		rt.releaseCandidateStart = time.Time{}
	}
	rt.state = snap.State
	return snap
}

// glowFractions measures the yellow and red glow coverage of the slot's
// border ring: pixels markedly brighter than baseline, saturated, and in
// the target hue band.
func (d *Detector) glowFractions(slot int, crop Frame, baseline GrayImage) (yellow, red float64) {
	w, h := crop.Width, crop.Height
	thickness := ringThickness(w, h, d.cfg.GlowRingThickness)
	valueDelta := d.cfg.GlowValueDelta
	if v, ok := d.cfg.GlowValueDeltaBySlot[slot]; ok {
		valueDelta = v
	}

	ringCount, yellowCount, redCount := 0, 0, 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !inRing(x, y, w, h, thickness) {
				continue
			}
			ringCount++
			b, g, r := crop.At(x, y)
			hue, sat, val := bgrToHSV(b, g, r)
			base := int(baseline.Pix[y*w+x])
			if val < base+valueDelta || sat < d.cfg.GlowSaturationMin {
				continue
			}
			if hue >= d.cfg.GlowYellowHueMin && hue <= d.cfg.GlowYellowHueMax {
				yellowCount++
			}
			if hue <= d.cfg.GlowRedHueMaxLow || hue >= d.cfg.GlowRedHueMinHigh {
				redCount++
			}
		}
	}
	if ringCount == 0 {
		return 0, 0
	}
	return float64(yellowCount) / float64(ringCount), float64(redCount) / float64(ringCount)
}

func ringThickness(w, h, configured int) int {
	limit := w
	if h < limit {
		limit = h
	}
	limit /= 3
	if limit < 1 {
		limit = 1
	}
	t := configured
	if t < 1 {
		t = 1
	}
	if t > limit {
		t = limit
	}
	return t
}

func inRing(x, y, w, h, thickness int) bool {
	return x < thickness || y < thickness || x >= w-thickness || y >= h-thickness
}

func (d *Detector) analyzeBuffs(frame Frame) {
	states := make(map[string]BuffState, len(d.cfg.BuffROIs))
	for _, roi := range d.cfg.BuffROIs {
		id := strings.ToLower(strings.TrimSpace(roi.ID))
		if id == "" {
			continue
		}
		rt := d.buffs[id]
		if rt == nil {
			rt = &buffRuntime{}
			d.buffs[id] = rt
		}
		state := BuffState{ID: id, Status: "ok", Calibrated: !roi.Template.Empty()}

		switch {
		case !roi.Enabled:
			state.Status = "off"
			rt.candidateFrames = 0
			rt.redGlowFrames = 0
		case roi.Width <= 1 || roi.Height <= 1:
			state.Status = "invalid-roi"
			rt.candidateFrames = 0
			rt.redGlowFrames = 0
		case !state.Calibrated:
			state.Status = "uncalibrated"
			rt.candidateFrames = 0
			rt.redGlowFrames = 0
		default:
			crop := frame.Crop(roi.Left, roi.Top, roi.Width, roi.Height)
			if crop.Width != roi.Width || crop.Height != roi.Height {
				state.Status = "out-of-frame"
				rt.candidateFrames = 0
				rt.redGlowFrames = 0
				break
			}
			gray := crop.Gray()
			state.Similarity = templateSimilarity(gray, roi.Template)

			threshold := roi.MatchThreshold
			if threshold <= 0 {
				threshold = 0.88
			}
			if threshold > 1 {
				threshold = 1
			}
			confirm := roi.ConfirmFrames
			if confirm < 1 {
				confirm = 2
			}
			if state.Similarity >= threshold {
				rt.candidateFrames++
			} else {
				rt.candidateFrames = 0
			}
			state.Present = rt.candidateFrames >= confirm

			if d.buffRedGlow(crop) {
				rt.redGlowFrames++
			} else {
				rt.redGlowFrames = 0
			}
			state.RedGlowReady = rt.redGlowFrames >= d.cfg.GlowConfirmFrames
		}

		states[id] = state
	}
	d.buffStates = states
}

// buffRedGlow reports a saturated red border ring on the ROI, the cue a
// buff-sourced DoT refresh rule keys on. The brightness floor adapts to the
// ring's own 60th percentile so dim UI themes still register.
func (d *Detector) buffRedGlow(crop Frame) bool {
	w, h := crop.Width, crop.Height
	thickness := ringThickness(w, h, d.cfg.GlowRingThickness)

	var ringVals []int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if inRing(x, y, w, h, thickness) {
				b, g, r := crop.At(x, y)
				_, _, val := bgrToHSV(b, g, r)
				ringVals = append(ringVals, val)
			}
		}
	}
	if len(ringVals) == 0 {
		return false
	}
	sorted := make([]int, len(ringVals))
	copy(sorted, ringVals)
	sort.Ints(sorted)
	valFloor := sorted[(len(sorted)*60)/100]
	if valFloor < 64 {
		valFloor = 64
	}

	redCount, ringCount := 0, 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !inRing(x, y, w, h, thickness) {
				continue
			}
			ringCount++
			b, g, r := crop.At(x, y)
			hue, sat, val := bgrToHSV(b, g, r)
			if (hue <= d.cfg.GlowRedHueMaxLow || hue >= d.cfg.GlowRedHueMinHigh) &&
				sat >= d.cfg.GlowSaturationMin && val >= valFloor {
				redCount++
			}
		}
	}
	return float64(redCount)/float64(ringCount) >= d.cfg.GlowRedRingFraction
}

// templateSimilarity scores how closely a grayscale ROI matches its
// calibrated template: the minimum of a mean-absolute-difference score and
// a normalized correlation, so flat global similarity alone cannot mark an
// unrelated ROI as present.
func templateSimilarity(roi, template GrayImage) float64 {
	if roi.Empty() || template.Empty() {
		return 0
	}
	if !template.SameShape(roi) {
		template = resizeNearest(template, roi.Width, roi.Height)
	}
	n := len(roi.Pix)

	sumAbs := 0
	var sumA, sumB float64
	for i := 0; i < n; i++ {
		d := int(roi.Pix[i]) - int(template.Pix[i])
		if d < 0 {
			d = -d
		}
		sumAbs += d
		sumA += float64(roi.Pix[i])
		sumB += float64(template.Pix[i])
	}
	diffScore := 1.0 - float64(sumAbs)/float64(n)/255.0
	if diffScore < 0 {
		diffScore = 0
	}

	meanA := sumA / float64(n)
	meanB := sumB / float64(n)
	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := float64(roi.Pix[i]) - meanA
		db := float64(template.Pix[i]) - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA < 1e-6 || varB < 1e-6 {
		return diffScore
	}
	corr := cov / math.Sqrt(varA*varB)
	corrScore := (corr + 1) * 0.5
	if corrScore < 0 {
		corrScore = 0
	}
	if corrScore > 1 {
		corrScore = 1
	}
	if corrScore < diffScore {
		return corrScore
	}
	return diffScore
}

func resizeNearest(src GrayImage, w, h int) GrayImage {
	out := GrayImage{Width: w, Height: h, Pix: make([]byte, w*h)}
	for y := 0; y < h; y++ {
		sy := y * src.Height / h
		for x := 0; x < w; x++ {
			sx := x * src.Width / w
			out.Pix[y*w+x] = src.Pix[sy*src.Width+sx]
		}
	}
	return out
}
