package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabeard21/autommo-sub000/internal/bar"
	"github.com/cabeard21/autommo-sub000/internal/config"
	"github.com/cabeard21/autommo-sub000/internal/constants"
	"github.com/cabeard21/autommo-sub000/internal/dispatch"
	"github.com/cabeard21/autommo-sub000/internal/priority"
)

type fakeSource struct {
	frame    bar.Frame
	err      error
	startErr error
	stopped  bool
	// block, when set, stalls Grab until the channel closes, simulating a
	// capture call stuck inside the OS.
	block chan struct{}
}

func (f *fakeSource) Start() error { return f.startErr }

func (f *fakeSource) Stop() { f.stopped = true }

func (f *fakeSource) Grab(int, bar.BoundingBox) (bar.Frame, error) {
	if f.block != nil {
		<-f.block
	}
	return f.frame, f.err
}

type fakeSender struct {
	sent []string
}

func (f *fakeSender) Send(bind string) error {
	f.sent = append(f.sent, bind)
	return nil
}

func grayFrame(w, h int, v byte) bar.Frame {
	f := bar.Frame{Width: w, Height: h, Pix: make([]byte, w*h*3)}
	for i := range f.Pix {
		f.Pix[i] = v
	}
	return f
}

func darken(f bar.Frame, x, w int, v byte) {
	for y := 0; y < f.Height; y++ {
		for col := x; col < x+w; col++ {
			i := (y*f.Width + col) * 3
			f.Pix[i], f.Pix[i+1], f.Pix[i+2] = v, v, v
		}
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Box = bar.BoundingBox{Width: 80, Height: 40}
	cfg.Slots.Count = 2
	cfg.Slots.GapPixels = 0
	cfg.Slots.Padding = 0
	cfg.Slots.Keybinds = []string{"1", "2"}
	cfg.Detection.DetectionRegion = "full"
	cfg.Detection.CooldownMinDurationMS = 0
	cfg.AutomationEnabled = true
	cfg.Profiles = []config.Profile{{
		Name: "Default",
		Items: []priority.Item{
			{Kind: priority.KindSlot, SlotIndex: 0, Source: priority.SourceSlot},
			{Kind: priority.KindSlot, SlotIndex: 1, Source: priority.SourceSlot},
		},
	}}
	return cfg
}

type botHarness struct {
	bot    *Bot
	source *fakeSource
	sender *fakeSender
	states []bar.ActionBarState
	acted  []dispatch.Result
	logs   []string
}

func newBotHarness(cfg config.Config) *botHarness {
	h := &botHarness{
		source: &fakeSource{frame: grayFrame(80, 40, 200)},
		sender: &fakeSender{},
	}
	h.bot = NewBot(cfg, h.source, h.sender, nil,
		func(msg string) { h.logs = append(h.logs, msg) },
		func(string) {},
		func(string, ...interface{}) {},
	)
	h.bot.StateFunc = func(s bar.ActionBarState, _ map[string]bar.BuffState) {
		h.states = append(h.states, s)
	}
	h.bot.ActionFunc = func(r dispatch.Result) { h.acted = append(h.acted, r) }
	return h
}

func TestCycleUncalibratedSendsNothing(t *testing.T) {
	h := newBotHarness(testConfig())
	h.bot.process()

	require.Len(t, h.states, 1)
	for _, s := range h.states[0].Slots {
		assert.Equal(t, bar.StateUnknown, s.State)
	}
	assert.Empty(t, h.sender.sent)
}

func TestCycleSendsFirstReadySlot(t *testing.T) {
	h := newBotHarness(testConfig())
	h.bot.Calibrate()
	h.bot.process()

	require.Len(t, h.states, 1)
	s0, _ := h.states[0].Slot(0)
	assert.Equal(t, bar.StateReady, s0.State)

	require.Len(t, h.acted, 1)
	assert.Equal(t, "sent", h.acted[0].Action)
	assert.Equal(t, []string{"1"}, h.sender.sent)
}

func TestCycleSkipsCooldownSlot(t *testing.T) {
	h := newBotHarness(testConfig())
	h.bot.Calibrate()

	// Slot 0 (x 0-39) fully darkened; slot 1 untouched.
	frame := grayFrame(80, 40, 200)
	darken(frame, 0, 40, 100)
	h.source.frame = frame
	h.bot.process()

	s0, _ := h.states[0].Slot(0)
	s1, _ := h.states[0].Slot(1)
	assert.Equal(t, bar.StateOnCooldown, s0.State)
	assert.Equal(t, bar.StateReady, s1.State)
	assert.Equal(t, []string{"2"}, h.sender.sent)
}

func TestCaptureErrorSkipsCycle(t *testing.T) {
	h := newBotHarness(testConfig())
	h.source.err = assert.AnError
	h.bot.process()

	assert.Empty(t, h.states)
	assert.Empty(t, h.sender.sent)
}

func TestAutomationOffStillReportsState(t *testing.T) {
	cfg := testConfig()
	cfg.AutomationEnabled = false
	h := newBotHarness(cfg)
	h.bot.Calibrate()
	h.bot.process()

	require.Len(t, h.states, 1)
	assert.Empty(t, h.sender.sent)
}

func TestCalibrationPersistsIntoConfig(t *testing.T) {
	h := newBotHarness(testConfig())
	h.bot.Calibrate()

	cfg := h.bot.Config()
	assert.Len(t, cfg.Baselines, 2)

	decoded := cfg.DecodeBaselines()
	require.Contains(t, decoded, 0)
	assert.Equal(t, 40, decoded[0].Width)
}

func TestQueuedKeyConsumedAfterSend(t *testing.T) {
	cfg := testConfig()
	cfg.Queue.Whitelist = []string{"q"}
	cfg.Queue.FireDelayMS = 0
	h := newBotHarness(cfg)
	h.bot.Calibrate()

	h.bot.Queue().HandleKeyDown("q")
	_, pending := h.bot.Queue().Get()
	require.True(t, pending)

	h.bot.process()

	assert.Equal(t, []string{"q"}, h.sender.sent)
	_, pending = h.bot.Queue().Get()
	assert.False(t, pending, "queued entry cleared once dispatched")
}

func TestToggleAutomation(t *testing.T) {
	cfg := testConfig()
	cfg.AutomationEnabled = false
	h := newBotHarness(cfg)

	assert.True(t, h.bot.ToggleAutomation())
	assert.True(t, h.bot.AutomationEnabled())
	assert.False(t, h.bot.ToggleAutomation())
}

func TestStartFailsWhenSourceCannotStart(t *testing.T) {
	h := newBotHarness(testConfig())
	h.source.startErr = assert.AnError

	h.bot.Start()

	assert.Equal(t, StatusStopped, h.bot.Status)
	assert.Empty(t, h.sender.sent)
}

func TestStopReleasesSource(t *testing.T) {
	h := newBotHarness(testConfig())
	h.bot.Start()
	h.bot.Stop()
	assert.True(t, h.source.stopped)
}

func TestStopBoundedWhileCaptureStuck(t *testing.T) {
	h := newBotHarness(testConfig())
	h.source.block = make(chan struct{})
	defer close(h.source.block)

	h.bot.Start()
	time.Sleep(100 * time.Millisecond) // let the loop enter Grab

	start := time.Now()
	h.bot.Stop()
	elapsed := time.Since(start)

	assert.Less(t, elapsed, constants.StopWaitTimeout+time.Second)
	assert.Equal(t, StatusStopped, h.bot.Status)
}

func TestUpdateConfigLayoutChangeRequiresRecalibration(t *testing.T) {
	h := newBotHarness(testConfig())
	h.bot.Calibrate()
	h.bot.process()
	require.Len(t, h.sender.sent, 1)
	require.NotEmpty(t, h.bot.Config().Baselines)

	// Widen the bar from 2 to 4 slots. The crops keep their 40x40 shape,
	// so the persisted baselines would still pass the shape check even
	// though they were captured from different screen pixels.
	cfg := h.bot.Config()
	cfg.Box.Width = 160
	cfg.Slots.Count = 4
	cfg.Slots.Keybinds = []string{"1", "2", "3", "4"}
	h.bot.UpdateConfig(cfg)
	h.source.frame = grayFrame(160, 40, 200)

	assert.Empty(t, h.bot.Config().Baselines)

	h.states = nil
	h.bot.process()
	require.Len(t, h.states, 1)
	require.Len(t, h.states[0].Slots, 4)
	for _, s := range h.states[0].Slots {
		assert.Equal(t, bar.StateUnknown, s.State)
	}
}
