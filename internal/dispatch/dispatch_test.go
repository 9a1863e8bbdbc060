package dispatch

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabeard21/autommo-sub000/internal/bar"
	"github.com/cabeard21/autommo-sub000/internal/priority"
)

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(bind string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, bind)
	return nil
}

type fakeTitler struct {
	title string
	err   error
}

func (f *fakeTitler) ForegroundTitle() (string, error) { return f.title, f.err }

type testEngine struct {
	*Engine
	sender *fakeSender
	titler *fakeTitler
	clock  time.Time
	slept  []time.Duration
}

func newTestEngine() *testEngine {
	te := &testEngine{
		sender: &fakeSender{},
		titler: &fakeTitler{title: "World of Warcraft"},
		clock:  time.Unix(5000, 0),
	}
	te.Engine = NewEngine(te.sender, te.titler, nil, nil)
	te.Engine.now = func() time.Time { return te.clock }
	te.Engine.sleep = func(d time.Duration) { te.slept = append(te.slept, d) }
	return te
}

func (te *testEngine) advance(d time.Duration) { te.clock = te.clock.Add(d) }

func readyBar(indices ...int) bar.ActionBarState {
	var slots []bar.SlotSnapshot
	for _, i := range indices {
		slots = append(slots, bar.SlotSnapshot{Index: i, State: bar.StateReady})
	}
	return bar.ActionBarState{Slots: slots}
}

func slotItems(indices ...int) []priority.Item {
	var items []priority.Item
	for _, i := range indices {
		items = append(items, priority.Item{Kind: priority.KindSlot, SlotIndex: i, Source: priority.SourceSlot})
	}
	return items
}

func baseSettings() Settings {
	return Settings{
		AutomationEnabled: true,
		MinPressInterval:  150 * time.Millisecond,
		SlotKeybinds:      []string{"1", "2", "3", "4", "5"},
	}
}

func TestSendsHighestRankedReadySlot(t *testing.T) {
	te := newTestEngine()
	state := readyBar(2, 4)

	res, queuedSent, ok := te.Evaluate(state, slotItems(0, 2, 4), nil, nil, baseSettings())
	require.True(t, ok)
	assert.False(t, queuedSent)
	assert.Equal(t, "sent", res.Action)
	assert.Equal(t, "3", res.Keybind)
	assert.Equal(t, 2, res.SlotIndex)
	assert.Equal(t, []string{"3"}, te.sender.sent)
}

func TestAutomationOffSendsNothing(t *testing.T) {
	te := newTestEngine()
	s := baseSettings()
	s.AutomationEnabled = false

	_, _, ok := te.Evaluate(readyBar(0), slotItems(0), nil, nil, s)
	assert.False(t, ok)
	assert.Empty(t, te.sender.sent)
}

func TestSingleFireWorksWhileAutomationOff(t *testing.T) {
	te := newTestEngine()
	s := baseSettings()
	s.AutomationEnabled = false
	te.RequestSingleFire()

	res, _, ok := te.Evaluate(readyBar(0), slotItems(0), nil, nil, s)
	require.True(t, ok)
	assert.Equal(t, "sent", res.Action)

	// The arm is consumed: the next cycle sends nothing.
	te.advance(time.Second)
	_, _, ok = te.Evaluate(readyBar(0), slotItems(0), nil, nil, s)
	assert.False(t, ok)
	assert.Equal(t, []string{"1"}, te.sender.sent)
}

func TestRateGateBlocksRapidSends(t *testing.T) {
	te := newTestEngine()
	state := readyBar(0)
	items := slotItems(0)
	s := baseSettings()

	_, _, ok := te.Evaluate(state, items, nil, nil, s)
	require.True(t, ok)

	// 100ms later: under the 150ms interval, nothing is sent.
	te.advance(100 * time.Millisecond)
	_, _, ok = te.Evaluate(state, items, nil, nil, s)
	assert.False(t, ok)

	// 60ms more: interval satisfied.
	te.advance(60 * time.Millisecond)
	_, _, ok = te.Evaluate(state, items, nil, nil, s)
	assert.True(t, ok)
	assert.Equal(t, []string{"1", "1"}, te.sender.sent)
}

func TestCastingBlocksUnlessAllowed(t *testing.T) {
	te := newTestEngine()
	state := readyBar(0)
	state.Slots = append(state.Slots, bar.SlotSnapshot{Index: 1, State: bar.StateCasting})

	res, _, ok := te.Evaluate(state, slotItems(0), nil, nil, baseSettings())
	require.True(t, ok)
	assert.Equal(t, "blocked", res.Action)
	assert.Equal(t, "casting", res.Reason)
	assert.Equal(t, 1, res.SlotIndex)
	assert.Empty(t, te.sender.sent)

	s := baseSettings()
	s.AllowCastWhileCasting = true
	res, _, ok = te.Evaluate(state, slotItems(0), nil, nil, s)
	require.True(t, ok)
	assert.Equal(t, "sent", res.Action)
}

func TestCastingGraceWindowPastEstimatedEnd(t *testing.T) {
	te := newTestEngine()
	state := readyBar(0)
	castEnd := te.clock.Add(-200 * time.Millisecond)
	state.Slots = append(state.Slots, bar.SlotSnapshot{
		Index: 1, State: bar.StateChanneling, CastEndsAt: castEnd,
	})

	// 200ms past the estimated end, beyond the 120ms grace: send proceeds
	// even though the state still reads channeling.
	res, _, ok := te.Evaluate(state, slotItems(0), nil, nil, baseSettings())
	require.True(t, ok)
	assert.Equal(t, "sent", res.Action)
}

func TestWindowGateBlocksWithCandidate(t *testing.T) {
	te := newTestEngine()
	te.titler.title = "Notepad"
	s := baseSettings()
	s.TargetWindowTitle = "warcraft"

	res, _, ok := te.Evaluate(readyBar(0), slotItems(0), nil, nil, s)
	require.True(t, ok)
	assert.Equal(t, "blocked", res.Action)
	assert.Equal(t, "window", res.Reason)
	assert.Equal(t, "1", res.Keybind)
	assert.Empty(t, te.sender.sent)
}

func TestWindowGateMatchIsCaseInsensitiveSubstring(t *testing.T) {
	te := newTestEngine()
	te.titler.title = "World of Warcraft - Retail"
	s := baseSettings()
	s.TargetWindowTitle = "WARCRAFT"

	res, _, ok := te.Evaluate(readyBar(0), slotItems(0), nil, nil, s)
	require.True(t, ok)
	assert.Equal(t, "sent", res.Action)
}

func TestEmptyTargetSkipsWindowGate(t *testing.T) {
	te := newTestEngine()
	te.titler.err = errors.New("no accessibility permission")

	res, _, ok := te.Evaluate(readyBar(0), slotItems(0), nil, nil, baseSettings())
	require.True(t, ok)
	assert.Equal(t, "sent", res.Action)
}

func TestSendFailureLeavesRateStateUntouched(t *testing.T) {
	te := newTestEngine()
	te.sender.err = errors.New("uinput unavailable")
	state := readyBar(0)
	items := slotItems(0)

	_, _, ok := te.Evaluate(state, items, nil, nil, baseSettings())
	assert.False(t, ok)

	// The failed attempt did not advance the rate gate: fixing the
	// sender lets the very next cycle send without waiting.
	te.sender.err = nil
	te.advance(10 * time.Millisecond)
	res, _, ok := te.Evaluate(state, items, nil, nil, baseSettings())
	require.True(t, ok)
	assert.Equal(t, "sent", res.Action)
}

func TestEmptyBindSkippedForLowerRank(t *testing.T) {
	te := newTestEngine()
	s := baseSettings()
	s.SlotKeybinds = []string{"", "2"}

	res, _, ok := te.Evaluate(readyBar(0, 1), slotItems(0, 1), nil, nil, s)
	require.True(t, ok)
	assert.Equal(t, "2", res.Keybind)
	assert.Equal(t, 1, res.SlotIndex)
}

func TestManualActionResolvedByID(t *testing.T) {
	te := newTestEngine()
	s := baseSettings()
	s.ManualActions = []ManualAction{{ID: "pot", Name: "Healing Potion", Keybind: "ctrl+h"}}
	items := []priority.Item{{Kind: priority.KindManual, ActionID: "Pot", Source: priority.SourceAlways}}

	res, _, ok := te.Evaluate(bar.ActionBarState{}, items, nil, nil, s)
	require.True(t, ok)
	assert.Equal(t, "sent", res.Action)
	assert.Equal(t, "ctrl+h", res.Keybind)
	assert.Equal(t, "Healing Potion", res.DisplayName)
	assert.Equal(t, -1, res.SlotIndex)
}

func TestQueuedWhitelistFiresWhenRankedSlotReady(t *testing.T) {
	te := newTestEngine()
	queued := &QueuedKey{Key: "q", Source: "whitelist"}
	s := baseSettings()
	s.QueueFireDelay = 100 * time.Millisecond

	res, queuedSent, ok := te.Evaluate(readyBar(0), slotItems(0), nil, queued, s)
	require.True(t, ok)
	assert.True(t, queuedSent)
	assert.True(t, res.Queued)
	assert.Equal(t, "q", res.Keybind)
	assert.Equal(t, []string{"q"}, te.sender.sent)
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, te.slept)
}

func TestQueuedHeldUntilRankedSlotReady(t *testing.T) {
	te := newTestEngine()
	queued := &QueuedKey{Key: "q", Source: "whitelist"}
	state := bar.ActionBarState{Slots: []bar.SlotSnapshot{{Index: 0, State: bar.StateOnCooldown}}}

	_, queuedSent, ok := te.Evaluate(state, slotItems(0), nil, queued, baseSettings())
	assert.False(t, ok)
	assert.False(t, queuedSent)
	assert.Empty(t, te.sender.sent)
}

func TestQueuedNeverFallsThroughToRankedSend(t *testing.T) {
	te := newTestEngine()
	// Tracked entry whose own slot is on cooldown: held, and the ready
	// ranked slot must NOT fire in its place.
	queued := &QueuedKey{Key: "q", SlotIndex: 1, Source: "tracked"}
	state := bar.ActionBarState{Slots: []bar.SlotSnapshot{
		{Index: 0, State: bar.StateReady},
		{Index: 1, State: bar.StateOnCooldown},
	}}

	_, _, ok := te.Evaluate(state, slotItems(0, 1), nil, queued, baseSettings())
	assert.False(t, ok)
	assert.Empty(t, te.sender.sent)
}

func TestQueuedTrackedFiresWhenItsSlotReady(t *testing.T) {
	te := newTestEngine()
	queued := &QueuedKey{Key: "4", SlotIndex: 1, Source: "tracked"}

	res, queuedSent, ok := te.Evaluate(readyBar(0, 1), slotItems(0, 1), nil, queued, baseSettings())
	require.True(t, ok)
	assert.True(t, queuedSent)
	assert.Equal(t, 1, res.SlotIndex)
}

func TestQueuedSendSuppressesRankedForGCD(t *testing.T) {
	te := newTestEngine()
	queued := &QueuedKey{Key: "q", Source: "whitelist"}

	_, queuedSent, ok := te.Evaluate(readyBar(0), slotItems(0), nil, queued, baseSettings())
	require.True(t, ok)
	require.True(t, queuedSent)

	// 1s later: inside the 1.5s suppression, ranked send is held.
	te.advance(time.Second)
	_, _, ok = te.Evaluate(readyBar(0), slotItems(0), nil, nil, baseSettings())
	assert.False(t, ok)

	// 600ms more: suppression over.
	te.advance(600 * time.Millisecond)
	res, _, ok := te.Evaluate(readyBar(0), slotItems(0), nil, nil, baseSettings())
	require.True(t, ok)
	assert.Equal(t, "sent", res.Action)
	assert.Equal(t, []string{"q", "1"}, te.sender.sent)
}

func TestEstimatedGCDMedianOfSendIntervals(t *testing.T) {
	te := newTestEngine()
	assert.Equal(t, time.Duration(0), te.EstimatedGCD())

	state := readyBar(0)
	items := slotItems(0)
	for _, gap := range []time.Duration{
		1500 * time.Millisecond,
		1450 * time.Millisecond,
		1550 * time.Millisecond,
		1500 * time.Millisecond,
	} {
		_, _, ok := te.Evaluate(state, items, nil, nil, baseSettings())
		require.True(t, ok)
		te.advance(gap)
	}
	_, _, ok := te.Evaluate(state, items, nil, nil, baseSettings())
	require.True(t, ok)

	assert.Equal(t, 1500*time.Millisecond, te.EstimatedGCD())
}

func TestIneligibleItemsSkipped(t *testing.T) {
	te := newTestEngine()
	items := []priority.Item{
		{Kind: priority.KindSlot, SlotIndex: 0, Rule: priority.RuleRequireGlow, Source: priority.SourceSlot},
		{Kind: priority.KindSlot, SlotIndex: 1, Source: priority.SourceSlot},
	}

	res, _, ok := te.Evaluate(readyBar(0, 1), items, nil, nil, baseSettings())
	require.True(t, ok)
	assert.Equal(t, 1, res.SlotIndex)
}
