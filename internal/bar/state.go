// Package bar models the monitored action bar: slot geometry, captured
// frames, and the per-slot readiness detector.
package bar

import "time"

// SlotState is the detected readiness of one slot.
type SlotState int

const (
	StateUnknown SlotState = iota
	StateReady
	StateOnCooldown
	StateCasting
	StateChanneling
	StateLocked
	StateGCD
)

func (s SlotState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateOnCooldown:
		return "on_cooldown"
	case StateCasting:
		return "casting"
	case StateChanneling:
		return "channeling"
	case StateLocked:
		return "locked"
	case StateGCD:
		return "gcd"
	default:
		return "unknown"
	}
}

// BoundingBox is the screen-relative capture region for the action bar.
type BoundingBox struct {
	Top    int `toml:"top"`
	Left   int `toml:"left"`
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// SlotSnapshot is the analyzed state of a single slot at one instant.
// Immutable once built.
type SlotSnapshot struct {
	Index            int
	State            SlotState
	DarkenedFraction float64
	// CastEndsAt is the estimated end of an in-flight cast, zero when unknown.
	CastEndsAt time.Time

	GlowCandidate   bool
	GlowFraction    float64
	GlowReady       bool
	YellowGlowReady bool
	RedGlowReady    bool

	Timestamp time.Time
}

// IsReady reports whether the slot can be activated.
func (s SlotSnapshot) IsReady() bool { return s.State == StateReady }

// IsCasting reports whether the slot is mid-cast or channeling.
func (s SlotSnapshot) IsCasting() bool {
	return s.State == StateCasting || s.State == StateChanneling
}

// ActionBarState is the complete per-cycle result: one snapshot per slot.
type ActionBarState struct {
	Slots      []SlotSnapshot
	Timestamp  time.Time
	CastActive bool
}

// Slot returns the snapshot for index i.
func (a ActionBarState) Slot(i int) (SlotSnapshot, bool) {
	for _, s := range a.Slots {
		if s.Index == i {
			return s, true
		}
	}
	return SlotSnapshot{}, false
}

// ReadySlots returns the snapshots currently in StateReady.
func (a ActionBarState) ReadySlots() []SlotSnapshot {
	var out []SlotSnapshot
	for _, s := range a.Slots {
		if s.IsReady() {
			out = append(out, s)
		}
	}
	return out
}

// BuffState is the analyzed state of one buff region of interest, read-only
// to the rule evaluator.
type BuffState struct {
	ID         string
	Calibrated bool
	Present    bool
	// Status is "ok" when the region was analyzed; any other tag
	// ("off", "invalid-roi", "uncalibrated", "out-of-frame") closes the
	// buff gate.
	Status       string
	Similarity   float64
	RedGlowReady bool
}
