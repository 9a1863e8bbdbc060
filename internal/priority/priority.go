// Package priority evaluates the ranked action list against the analyzed
// action bar and buff states, yielding the single next intention.
package priority

import (
	"strings"

	"github.com/cabeard21/autommo-sub000/internal/bar"
)

// ItemKind distinguishes bar-slot items from manual key actions.
type ItemKind string

const (
	KindSlot   ItemKind = "slot"
	KindManual ItemKind = "manual"
)

// ActivationRule restricts when an otherwise-ready item may fire.
type ActivationRule string

const (
	// RuleAlways fires whenever the readiness source allows.
	RuleAlways ActivationRule = "always"
	// RuleDotRefresh fires when there is no glow at all or a red glow;
	// a yellow-only glow means the effect is still running, so hold.
	RuleDotRefresh ActivationRule = "dot_refresh"
	// RuleRequireGlow fires only while the slot shows a confirmed glow.
	RuleRequireGlow ActivationRule = "require_glow"
)

// ReadySource selects what "ready" means for an item.
type ReadySource string

const (
	// SourceSlot uses the slot's detected readiness state.
	SourceSlot ReadySource = "slot"
	// SourceAlways skips the readiness gate entirely.
	SourceAlways ReadySource = "always"
	// SourceBuffPresent gates on a calibrated buff ROI reading present.
	SourceBuffPresent ReadySource = "buff_present"
	// SourceBuffMissing gates on a calibrated buff ROI reading absent.
	SourceBuffMissing ReadySource = "buff_missing"
)

// Item is one ranked entry of the priority list.
type Item struct {
	Kind      ItemKind       `toml:"kind"`
	SlotIndex int            `toml:"slot_index"`
	ActionID  string         `toml:"action_id"`
	Rule      ActivationRule `toml:"activation_rule"`
	Source    ReadySource    `toml:"ready_source"`
	BuffID    string         `toml:"buff_roi_id"`
}

// NormalizeRule maps unknown or empty rule strings to RuleAlways.
func NormalizeRule(raw ActivationRule) ActivationRule {
	switch ActivationRule(strings.ToLower(strings.TrimSpace(string(raw)))) {
	case RuleDotRefresh:
		return RuleDotRefresh
	case RuleRequireGlow:
		return RuleRequireGlow
	default:
		return RuleAlways
	}
}

// NormalizeSource maps unknown or empty source strings to SourceSlot for
// slot items; manual items default to SourceAlways.
func NormalizeSource(raw ReadySource, kind ItemKind) ReadySource {
	switch ReadySource(strings.ToLower(strings.TrimSpace(string(raw)))) {
	case SourceAlways:
		return SourceAlways
	case SourceBuffPresent:
		return SourceBuffPresent
	case SourceBuffMissing:
		return SourceBuffMissing
	case SourceSlot:
		return SourceSlot
	default:
		if kind == KindManual {
			return SourceAlways
		}
		return SourceSlot
	}
}

// Normalize returns the item with its kind, rule, source, and buff ID in
// canonical form.
func Normalize(it Item) Item {
	if it.Kind != KindManual {
		it.Kind = KindSlot
	}
	it.Rule = NormalizeRule(it.Rule)
	it.Source = NormalizeSource(it.Source, it.Kind)
	it.BuffID = strings.ToLower(strings.TrimSpace(it.BuffID))
	return it
}

// dotRefreshEligible: refresh when there is no glow at all, or a red glow.
// A yellow-only glow means the effect is still ticking.
func dotRefreshEligible(yellow, red bool) bool {
	return (!yellow && !red) || red
}

func ruleSatisfied(rule ActivationRule, slot bar.SlotSnapshot) bool {
	switch rule {
	case RuleDotRefresh:
		return dotRefreshEligible(slot.YellowGlowReady, slot.RedGlowReady)
	case RuleRequireGlow:
		return slot.GlowReady
	default:
		return true
	}
}

// buffGateOK reports whether the buff readiness gate passes: the ROI must
// exist, be calibrated, have an ok status, and match the wanted presence.
func buffGateOK(source ReadySource, buff bar.BuffState, found bool) bool {
	if !found || !buff.Calibrated || buff.Status != "ok" {
		return false
	}
	wantPresent := source == SourceBuffPresent
	return buff.Present == wantPresent
}

// ItemEligible reports whether a single item may fire right now.
//
// Buff-gated dot_refresh items honor the buff's red glow as an urgent
// refresh cue: it overrides a failed gate only while the slot itself is
// READY, and with a passing gate it substitutes for the slot-glow rule.
// The always rule never uses the red override.
func ItemEligible(it Item, state bar.ActionBarState, buffs map[string]bar.BuffState) bool {
	it = Normalize(it)

	if it.Kind == KindManual {
		switch it.Source {
		case SourceBuffPresent, SourceBuffMissing:
			buff, found := buffs[it.BuffID]
			return buffGateOK(it.Source, buff, found)
		default:
			return true
		}
	}

	slot, found := state.Slot(it.SlotIndex)

	switch it.Source {
	case SourceAlways:
		if !found {
			return it.Rule == RuleAlways
		}
		return ruleSatisfied(it.Rule, slot)

	case SourceBuffPresent, SourceBuffMissing:
		buff, haveBuff := buffs[it.BuffID]
		gateOK := buffGateOK(it.Source, buff, haveBuff)
		redOverride := it.Rule == RuleDotRefresh && haveBuff && buff.RedGlowReady
		if !found {
			return false
		}
		if !gateOK {
			// The buff's red glow may bypass a failed gate, but only for a
			// slot that is actually ready to press.
			return redOverride && slot.IsReady()
		}
		if redOverride {
			return true
		}
		return slot.IsReady() && ruleSatisfied(it.Rule, slot)

	default: // SourceSlot
		if !found || !slot.IsReady() {
			return false
		}
		return ruleSatisfied(it.Rule, slot)
	}
}

// Evaluate scans the ranked list top-down and returns the first eligible
// item and its rank. ok is false when nothing is eligible. The scan is
// deterministic: identical inputs always pick the same item.
func Evaluate(items []Item, state bar.ActionBarState, buffs map[string]bar.BuffState) (Item, int, bool) {
	for rank, it := range items {
		if ItemEligible(it, state, buffs) {
			return Normalize(it), rank, true
		}
	}
	return Item{}, -1, false
}

// RankedSlots returns the slot indices referenced by slot items, in rank
// order, for consumers that need to know which slots the list covers.
func RankedSlots(items []Item) []int {
	seen := make(map[int]bool)
	var out []int
	for _, it := range items {
		if Normalize(it).Kind != KindSlot {
			continue
		}
		if !seen[it.SlotIndex] {
			seen[it.SlotIndex] = true
			out = append(out, it.SlotIndex)
		}
	}
	return out
}
