package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/cabeard21/autommo-sub000/internal/bar"
	"github.com/cabeard21/autommo-sub000/internal/capture"
	"github.com/cabeard21/autommo-sub000/internal/config"
	"github.com/cabeard21/autommo-sub000/internal/constants"
	"github.com/cabeard21/autommo-sub000/internal/dispatch"
	"github.com/cabeard21/autommo-sub000/internal/priority"
	"github.com/cabeard21/autommo-sub000/internal/spellqueue"
)

// BotStatus represents the current state of the watcher
type BotStatus int

const (
	StatusStopped BotStatus = iota
	StatusRunning
)

type calibrationKind int

const (
	calibrateAll calibrationKind = iota
	calibrateOne
	calibrateBuff
)

type calibrationRequest struct {
	kind   calibrationKind
	slot   int
	buffID string
}

// Bot runs the watch cycle: capture the action bar, classify every slot,
// evaluate the priority list, and dispatch at most one key press.
type Bot struct {
	Status BotStatus

	// Callbacks for UI updates
	LogFunc    func(string)                 // For persistent logs (History)
	StatusFunc func(string)                 // For transient status (Label)
	DebugFunc  func(string, ...interface{}) // For console debug
	// StateFunc receives every analyzed frame for the slot grid display.
	StateFunc func(bar.ActionBarState, map[string]bar.BuffState)
	// ActionFunc receives each dispatch result for the last-action history.
	ActionFunc func(dispatch.Result)
	// ConfigChangedFunc fires after calibration mutates the config
	// (baselines, buff templates) so the owner can persist it.
	ConfigChangedFunc func(config.Config)

	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex

	cfg        config.Config
	source     capture.Source
	detector   *bar.Detector
	dispatcher *dispatch.Engine
	queue      *spellqueue.Listener

	calibrations chan calibrationRequest
}

// NewBot creates a stopped watcher over the given capture source and
// key sender.
func NewBot(
	cfg config.Config,
	source capture.Source,
	sender dispatch.Sender,
	titler dispatch.WindowTitler,
	logFunc func(string),
	statusFunc func(string),
	debugFunc func(string, ...interface{}),
) *Bot {
	cfg.Normalize()
	b := &Bot{
		Status:       StatusStopped,
		LogFunc:      logFunc,
		StatusFunc:   statusFunc,
		DebugFunc:    debugFunc,
		stopChan:     make(chan struct{}),
		cfg:          cfg,
		source:       source,
		detector:     bar.NewDetector(cfg.DetectorConfig()),
		calibrations: make(chan calibrationRequest, 8),
	}
	b.detector.SetDebugFunc(debugFunc)
	b.detector.SetBaselines(cfg.DecodeBaselines())

	logf := func(format string, args ...interface{}) {
		b.LogFunc(fmt.Sprintf(format, args...))
	}
	b.dispatcher = dispatch.NewEngine(sender, titler, logf, debugFunc)

	b.queue = spellqueue.NewListener(b.queueSettings, nil)
	b.queue.SetDebugFunc(debugFunc)
	return b
}

// Queue returns the spell queue listener, for wiring to the input hook and
// the UI.
func (b *Bot) Queue() *spellqueue.Listener { return b.queue }

// Dispatcher returns the dispatch engine, for the single-fire hotkey and
// the GCD readout.
func (b *Bot) Dispatcher() *dispatch.Engine { return b.dispatcher }

// Config returns a snapshot of the current configuration.
func (b *Bot) Config() config.Config {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg
}

// UpdateConfig swaps in new settings. A slot layout change invalidates
// every baseline, persisted blobs included: even when the new crops keep
// the old shape they cover different screen pixels, so reinstalling them
// would drive dispatch from garbage.
func (b *Bot) UpdateConfig(cfg config.Config) {
	cfg.Normalize()
	b.mu.Lock()
	defer b.mu.Unlock()
	layoutChanged := cfg.Slots.Count != b.cfg.Slots.Count ||
		cfg.Slots.GapPixels != b.cfg.Slots.GapPixels ||
		cfg.Slots.Padding != b.cfg.Slots.Padding
	if layoutChanged {
		cfg.Baselines = nil
	}
	b.cfg = cfg
	b.detector.SetConfig(cfg.DetectorConfig())
	b.detector.SetBaselines(cfg.DecodeBaselines())
	if layoutChanged {
		b.notifyConfigChanged()
	}
}

// AutomationEnabled reports the automation toggle.
func (b *Bot) AutomationEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg.AutomationEnabled
}

// SetAutomationEnabled flips the automation toggle.
func (b *Bot) SetAutomationEnabled(enabled bool) {
	b.mu.Lock()
	b.cfg.AutomationEnabled = enabled
	b.mu.Unlock()
	if enabled {
		b.LogFunc("Automation ON")
	} else {
		b.LogFunc("Automation OFF")
	}
}

// ToggleAutomation flips the toggle and returns the new state.
func (b *Bot) ToggleAutomation() bool {
	b.mu.Lock()
	b.cfg.AutomationEnabled = !b.cfg.AutomationEnabled
	enabled := b.cfg.AutomationEnabled
	b.mu.Unlock()
	if enabled {
		b.LogFunc("Automation ON")
	} else {
		b.LogFunc("Automation OFF")
	}
	return enabled
}

// RequestSingleFire arms one key send even while automation is off.
func (b *Bot) RequestSingleFire() {
	b.dispatcher.RequestSingleFire()
	b.LogFunc("Single fire armed")
}

// Calibrate schedules a full baseline calibration against the next frame.
// All abilities should be off cooldown when this runs.
func (b *Bot) Calibrate() {
	b.requestCalibration(calibrationRequest{kind: calibrateAll})
}

// CalibrateSlot schedules a baseline calibration for one slot.
func (b *Bot) CalibrateSlot(slot int) {
	b.requestCalibration(calibrationRequest{kind: calibrateOne, slot: slot})
}

// CalibrateBuff schedules a template capture for one buff ROI; the buff
// should be visibly active when this runs.
func (b *Bot) CalibrateBuff(id string) {
	b.requestCalibration(calibrationRequest{kind: calibrateBuff, buffID: id})
}

func (b *Bot) requestCalibration(req calibrationRequest) {
	b.mu.Lock()
	running := b.Status == StatusRunning
	b.mu.Unlock()
	if running {
		select {
		case b.calibrations <- req:
		default:
			b.DebugFunc("Calibration queue full; request dropped")
		}
		return
	}

	// Stopped: grab one frame and calibrate synchronously.
	b.mu.Lock()
	defer b.mu.Unlock()
	frame, err := b.source.Grab(b.cfg.Monitor, b.cfg.Box)
	if err != nil {
		b.LogFunc(fmt.Sprintf("Calibration capture failed: %v", err))
		return
	}
	b.applyCalibration(req, frame)
}

// applyCalibration runs with b.mu held.
func (b *Bot) applyCalibration(req calibrationRequest, frame bar.Frame) {
	switch req.kind {
	case calibrateAll:
		b.detector.Calibrate(frame)
		b.LogFunc(fmt.Sprintf("Calibrated %d slot baselines", b.cfg.Slots.Count))
	case calibrateOne:
		b.detector.CalibrateSlot(frame, req.slot)
		b.LogFunc(fmt.Sprintf("Calibrated baseline for slot %d", req.slot+1))
	case calibrateBuff:
		b.calibrateBuffTemplate(req.buffID, frame)
		return
	}
	b.cfg.EncodeBaselines(b.detector.Baselines())
	b.notifyConfigChanged()
}

// calibrateBuffTemplate runs with b.mu held.
func (b *Bot) calibrateBuffTemplate(id string, frame bar.Frame) {
	for _, roi := range b.cfg.BuffROIs {
		if roi.ID != id {
			continue
		}
		crop := frame.Crop(roi.Left, roi.Top, roi.Width, roi.Height)
		if crop.Width != roi.Width || crop.Height != roi.Height {
			b.LogFunc(fmt.Sprintf("Buff %q region is outside the capture box", id))
			return
		}
		b.cfg.SetBuffTemplate(id, crop.Gray())
		b.detector.SetConfig(b.cfg.DetectorConfig())
		b.detector.SetBaselines(b.cfg.DecodeBaselines())
		b.LogFunc(fmt.Sprintf("Captured template for buff %q", id))
		b.notifyConfigChanged()
		return
	}
	b.LogFunc(fmt.Sprintf("No buff region named %q", id))
}

// notifyConfigChanged runs with b.mu held.
func (b *Bot) notifyConfigChanged() {
	if b.ConfigChangedFunc == nil {
		return
	}
	cfg := b.cfg
	go b.ConfigChangedFunc(cfg)
}

// Start begins the watch loop
func (b *Bot) Start() {
	b.mu.Lock()
	if b.Status == StatusRunning {
		b.mu.Unlock()
		return
	}
	b.Status = StatusRunning
	b.stopChan = make(chan struct{}) // Re-make channel for restart ability
	fps := b.cfg.Detection.PollingFPS
	b.mu.Unlock()

	if err := b.source.Start(); err != nil {
		b.mu.Lock()
		b.Status = StatusStopped
		b.mu.Unlock()
		b.LogFunc(fmt.Sprintf("Capture source failed to start: %v", err))
		b.StatusFunc("Status: Capture failed")
		return
	}

	b.LogFunc(fmt.Sprintf("Watcher started at %d fps.", fps))
	b.DebugFunc("Watch loop started")
	b.wg.Add(1)

	go b.loop()
}

// Stop signals the watch loop to end. The wait is bounded: a capture call
// stuck inside the OS must not hang the UI, so after StopWaitTimeout the
// loop goroutine is abandoned and left to exit on its own.
func (b *Bot) Stop() {
	b.mu.Lock()
	if b.Status == StatusStopped {
		b.mu.Unlock()
		return
	}
	close(b.stopChan)
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait() // Wait for loop to finish
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(constants.StopWaitTimeout):
		b.LogFunc("Watcher stop timed out; abandoning watch loop.")
	}

	b.source.Stop()

	b.mu.Lock()
	b.Status = StatusStopped
	b.mu.Unlock()
	b.queue.Clear()
	b.LogFunc("Watcher stopped.")
	b.StatusFunc("Status: Stopped")
}

// loop is the main watch loop
func (b *Bot) loop() {
	defer b.wg.Done()

	b.mu.Lock()
	fps := b.cfg.Detection.PollingFPS
	b.mu.Unlock()
	if fps < 1 {
		fps = constants.DefaultPollingFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.process()
		}
	}
}

// process performs one capture-analyze-dispatch cycle
func (b *Bot) process() {
	b.mu.Lock()
	cfg := b.cfg
	b.mu.Unlock()

	frame, err := b.source.Grab(cfg.Monitor, cfg.Box)
	if err != nil {
		errMsg := fmt.Sprintf("Error capturing bar: %v", err)
		b.StatusFunc("Status: Capture failed")
		b.DebugFunc(errMsg)
		return
	}

	// Calibration requests apply against the frame they were issued for.
	for {
		select {
		case req := <-b.calibrations:
			b.mu.Lock()
			b.applyCalibration(req, frame)
			b.mu.Unlock()
			continue
		default:
		}
		break
	}

	b.mu.Lock()
	state := b.detector.Analyze(frame)
	buffs := b.detector.BuffStates()
	b.mu.Unlock()

	if b.StateFunc != nil {
		b.StateFunc(state, buffs)
	}

	var queued *dispatch.QueuedKey
	if entry, ok := b.queue.Get(); ok {
		queued = &dispatch.QueuedKey{Key: entry.Key, SlotIndex: entry.SlotIndex, Source: entry.Source}
	}

	items := cfg.Active().Items
	res, queuedSent, acted := b.dispatcher.Evaluate(state, items, buffs, queued, dispatchSettings(cfg))
	if queuedSent {
		b.queue.Clear()
	}
	if acted {
		if b.ActionFunc != nil {
			b.ActionFunc(res)
		}
		if res.Action == "blocked" {
			b.StatusFunc(fmt.Sprintf("Status: Blocked (%s)", res.Reason))
			return
		}
	}

	ready := len(state.ReadySlots())
	if cfg.AutomationEnabled {
		b.StatusFunc(fmt.Sprintf("Status: Watching (%d ready)", ready))
	} else {
		b.StatusFunc(fmt.Sprintf("Status: Paused (%d ready)", ready))
	}
}

func (b *Bot) queueSettings() spellqueue.Settings {
	b.mu.Lock()
	cfg := b.cfg
	b.mu.Unlock()
	return spellqueue.Settings{
		AutomationEnabled: cfg.AutomationEnabled,
		Whitelist:         cfg.Queue.Whitelist,
		SlotKeybinds:      cfg.Slots.Keybinds,
		RankedSlots:       priority.RankedSlots(cfg.Active().Items),
		Timeout:           time.Duration(cfg.Queue.TimeoutMS) * time.Millisecond,
	}
}

func dispatchSettings(cfg config.Config) dispatch.Settings {
	active := cfg.Active()
	manuals := make([]dispatch.ManualAction, 0, len(active.ManualActions))
	for _, a := range active.ManualActions {
		manuals = append(manuals, dispatch.ManualAction{ID: a.ID, Name: a.Name, Keybind: a.Keybind})
	}
	return dispatch.Settings{
		AutomationEnabled:     cfg.AutomationEnabled,
		MinPressInterval:      time.Duration(cfg.MinPressIntervalMS) * time.Millisecond,
		AllowCastWhileCasting: cfg.Detection.AllowCastWhileCasting,
		QueueWindow:           time.Duration(cfg.Detection.QueueWindowMS) * time.Millisecond,
		QueueFireDelay:        time.Duration(cfg.Queue.FireDelayMS) * time.Millisecond,
		PostQueuedSuppress:    constants.PostQueuedSuppress,
		TargetWindowTitle:     cfg.TargetWindowTitle,
		SlotKeybinds:          cfg.Slots.Keybinds,
		ManualActions:         manuals,
	}
}
