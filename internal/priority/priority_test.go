package priority

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabeard21/autommo-sub000/internal/bar"
)

func barWith(slots ...bar.SlotSnapshot) bar.ActionBarState {
	return bar.ActionBarState{Slots: slots}
}

func readySlot(index int) bar.SlotSnapshot {
	return bar.SlotSnapshot{Index: index, State: bar.StateReady}
}

func cooldownSlot(index int) bar.SlotSnapshot {
	return bar.SlotSnapshot{Index: index, State: bar.StateOnCooldown}
}

func okBuff(present bool) bar.BuffState {
	return bar.BuffState{ID: "dot1", Calibrated: true, Present: present, Status: "ok"}
}

func TestManualAlwaysEligibleWithoutBuffState(t *testing.T) {
	item := Item{Kind: KindManual, ActionID: "manual_1", Source: SourceAlways}
	assert.True(t, ItemEligible(item, bar.ActionBarState{}, nil))
}

func TestManualBuffPresentRequiresCalibratedPresentOK(t *testing.T) {
	item := Item{Kind: KindManual, ActionID: "manual_1", Source: SourceBuffPresent, BuffID: "dot1"}
	buffs := map[string]bar.BuffState{"dot1": okBuff(true)}
	assert.True(t, ItemEligible(item, bar.ActionBarState{}, buffs))
}

func TestManualBuffMissingRequiresCalibratedMissingOK(t *testing.T) {
	item := Item{Kind: KindManual, ActionID: "manual_1", Source: SourceBuffMissing, BuffID: "dot1"}
	buffs := map[string]bar.BuffState{"dot1": okBuff(false)}
	assert.True(t, ItemEligible(item, bar.ActionBarState{}, buffs))
}

func TestManualBuffPresentBlockedWhenUncalibrated(t *testing.T) {
	item := Item{Kind: KindManual, ActionID: "manual_1", Source: SourceBuffPresent, BuffID: "dot1"}
	buffs := map[string]bar.BuffState{"dot1": {ID: "dot1", Present: true, Status: "ok"}}
	assert.False(t, ItemEligible(item, bar.ActionBarState{}, buffs))
}

func TestManualBuffPresentBlockedWhenStatusNotOK(t *testing.T) {
	item := Item{Kind: KindManual, ActionID: "manual_1", Source: SourceBuffPresent, BuffID: "dot1"}
	buffs := map[string]bar.BuffState{
		"dot1": {ID: "dot1", Calibrated: true, Present: true, Status: "out-of-frame"},
	}
	assert.False(t, ItemEligible(item, bar.ActionBarState{}, buffs))
}

func TestBuffGatedDotRefreshCannotBypassFailedGateWhenSlotNotReady(t *testing.T) {
	item := Item{Kind: KindSlot, SlotIndex: 0, Rule: RuleDotRefresh, Source: SourceBuffMissing, BuffID: "dot1"}
	slot := cooldownSlot(0)
	slot.RedGlowReady = true
	buffs := map[string]bar.BuffState{"dot1": okBuff(true)}
	assert.False(t, ItemEligible(item, barWith(slot), buffs))
}

func TestBuffGatedDotRefreshBypassesFailedGateWhenSlotReady(t *testing.T) {
	item := Item{Kind: KindSlot, SlotIndex: 0, Rule: RuleDotRefresh, Source: SourceBuffMissing, BuffID: "dot1"}
	buff := okBuff(true)
	buff.RedGlowReady = true
	buffs := map[string]bar.BuffState{"dot1": buff}
	assert.True(t, ItemEligible(item, barWith(readySlot(0)), buffs))
}

func TestBuffGatedDotRefreshStaysBlockedWithoutRedGlow(t *testing.T) {
	item := Item{Kind: KindSlot, SlotIndex: 0, Rule: RuleDotRefresh, Source: SourceBuffMissing, BuffID: "dot1"}
	buffs := map[string]bar.BuffState{"dot1": okBuff(true)}
	assert.False(t, ItemEligible(item, barWith(cooldownSlot(0)), buffs))
}

func TestBuffGatedDotRefreshRequiresSlotReadyWithoutRedOverride(t *testing.T) {
	item := Item{Kind: KindSlot, SlotIndex: 0, Rule: RuleDotRefresh, Source: SourceBuffMissing, BuffID: "dot1"}
	buffs := map[string]bar.BuffState{"dot1": okBuff(false)}
	assert.False(t, ItemEligible(item, barWith(cooldownSlot(0)), buffs))
}

func TestBuffGatedDotRefreshRedOverrideWorksWhenGatePasses(t *testing.T) {
	item := Item{Kind: KindSlot, SlotIndex: 0, Rule: RuleDotRefresh, Source: SourceBuffMissing, BuffID: "dot1"}
	buff := okBuff(false)
	buff.RedGlowReady = true
	buffs := map[string]bar.BuffState{"dot1": buff}
	assert.True(t, ItemEligible(item, barWith(cooldownSlot(0)), buffs))
}

func TestBuffGatedAlwaysRequiresSlotReadyEvenWhenGatePasses(t *testing.T) {
	item := Item{Kind: KindSlot, SlotIndex: 0, Rule: RuleAlways, Source: SourceBuffMissing, BuffID: "dot1"}
	buffs := map[string]bar.BuffState{"dot1": okBuff(false)}
	assert.False(t, ItemEligible(item, barWith(cooldownSlot(0)), buffs))
}

func TestBuffGatedEligibleWhenGateAndSlotReady(t *testing.T) {
	item := Item{Kind: KindSlot, SlotIndex: 0, Rule: RuleAlways, Source: SourceBuffMissing, BuffID: "dot1"}
	buffs := map[string]bar.BuffState{"dot1": okBuff(false)}
	assert.True(t, ItemEligible(item, barWith(readySlot(0)), buffs))
}

func TestBuffGatedAlwaysNeverUsesRedOverride(t *testing.T) {
	item := Item{Kind: KindSlot, SlotIndex: 0, Rule: RuleAlways, Source: SourceBuffMissing, BuffID: "dot1"}
	slot := cooldownSlot(0)
	slot.RedGlowReady = true
	buffs := map[string]bar.BuffState{"dot1": okBuff(true)}
	assert.False(t, ItemEligible(item, barWith(slot), buffs))
}

func TestBuffMissingBlockedWhenBuffStatusNotOK(t *testing.T) {
	item := Item{Kind: KindSlot, SlotIndex: 0, Rule: RuleAlways, Source: SourceBuffMissing, BuffID: "dot1"}
	buffs := map[string]bar.BuffState{
		"dot1": {ID: "dot1", Calibrated: true, Present: false, Status: "out-of-frame"},
	}
	assert.False(t, ItemEligible(item, barWith(readySlot(0)), buffs))
}

func TestSlotSourceDotRefreshYellowGlowBlocks(t *testing.T) {
	item := Item{Kind: KindSlot, SlotIndex: 0, Rule: RuleDotRefresh, Source: SourceSlot}
	slot := readySlot(0)
	slot.YellowGlowReady = true
	assert.False(t, ItemEligible(item, barWith(slot), nil))
}

func TestSlotSourceDotRefreshRedGlowAllows(t *testing.T) {
	item := Item{Kind: KindSlot, SlotIndex: 0, Rule: RuleDotRefresh, Source: SourceSlot}
	slot := readySlot(0)
	slot.YellowGlowReady = true
	slot.RedGlowReady = true
	assert.True(t, ItemEligible(item, barWith(slot), nil))

	slot.YellowGlowReady = false
	slot.RedGlowReady = false
	assert.True(t, ItemEligible(item, barWith(slot), nil))
}

func TestRequireGlowNeedsReadyAndGlow(t *testing.T) {
	item := Item{Kind: KindSlot, SlotIndex: 0, Rule: RuleRequireGlow, Source: SourceSlot}

	glowing := readySlot(0)
	glowing.GlowReady = true
	assert.True(t, ItemEligible(item, barWith(glowing), nil))

	assert.False(t, ItemEligible(item, barWith(readySlot(0)), nil))

	coolGlow := cooldownSlot(0)
	coolGlow.GlowReady = true
	assert.False(t, ItemEligible(item, barWith(coolGlow), nil))
}

func TestSlotSourceMissingSlotNotEligible(t *testing.T) {
	item := Item{Kind: KindSlot, SlotIndex: 7, Rule: RuleAlways, Source: SourceSlot}
	assert.False(t, ItemEligible(item, barWith(readySlot(0)), nil))
}

func TestSlotSourceGCDNotReady(t *testing.T) {
	item := Item{Kind: KindSlot, SlotIndex: 0, Rule: RuleAlways, Source: SourceSlot}
	assert.False(t, ItemEligible(item, barWith(bar.SlotSnapshot{Index: 0, State: bar.StateGCD}), nil))
}

func TestEvaluatePicksHighestRankedEligible(t *testing.T) {
	items := []Item{
		{Kind: KindSlot, SlotIndex: 0, Source: SourceSlot},
		{Kind: KindSlot, SlotIndex: 1, Source: SourceSlot},
		{Kind: KindSlot, SlotIndex: 2, Source: SourceSlot},
	}
	state := barWith(cooldownSlot(0), readySlot(1), readySlot(2))

	got, rank, ok := Evaluate(items, state, nil)
	require.True(t, ok)
	assert.Equal(t, 1, rank)
	assert.Equal(t, 1, got.SlotIndex)
}

func TestEvaluateNothingEligible(t *testing.T) {
	items := []Item{
		{Kind: KindSlot, SlotIndex: 0, Source: SourceSlot},
		{Kind: KindSlot, SlotIndex: 1, Source: SourceSlot},
	}
	state := barWith(cooldownSlot(0), cooldownSlot(1))

	_, rank, ok := Evaluate(items, state, nil)
	assert.False(t, ok)
	assert.Equal(t, -1, rank)
}

func TestEvaluateDeterministic(t *testing.T) {
	items := []Item{
		{Kind: KindSlot, SlotIndex: 0, Source: SourceSlot},
		{Kind: KindManual, ActionID: "pot", Source: SourceAlways},
		{Kind: KindSlot, SlotIndex: 1, Source: SourceSlot},
	}
	state := barWith(cooldownSlot(0), readySlot(1))

	first, rank, ok := Evaluate(items, state, nil)
	require.True(t, ok)
	for i := 0; i < 20; i++ {
		got, gotRank, gotOK := Evaluate(items, state, nil)
		assert.Equal(t, first, got)
		assert.Equal(t, rank, gotRank)
		assert.Equal(t, ok, gotOK)
	}
	assert.Equal(t, KindManual, first.Kind)
	assert.Equal(t, 1, rank)
}

func TestNormalizeDefaults(t *testing.T) {
	it := Normalize(Item{Kind: "bogus", Rule: " Always ", Source: "", BuffID: " Dot1 "})
	assert.Equal(t, KindSlot, it.Kind)
	assert.Equal(t, RuleAlways, it.Rule)
	assert.Equal(t, SourceSlot, it.Source)
	assert.Equal(t, "dot1", it.BuffID)

	manual := Normalize(Item{Kind: KindManual})
	assert.Equal(t, SourceAlways, manual.Source)
}

func TestRankedSlots(t *testing.T) {
	items := []Item{
		{Kind: KindSlot, SlotIndex: 3},
		{Kind: KindManual, ActionID: "pot"},
		{Kind: KindSlot, SlotIndex: 0},
		{Kind: KindSlot, SlotIndex: 3},
	}
	assert.Equal(t, []int{3, 0}, RankedSlots(items))
}
