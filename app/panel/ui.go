// Package panel is the main watcher UI: slot states, automation controls,
// calibration, and the log history.
package panel

import (
	"fmt"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/data/binding"
	"fyne.io/fyne/v2/widget"

	"github.com/cabeard21/autommo-sub000/internal/bar"
	"github.com/cabeard21/autommo-sub000/internal/capture"
	"github.com/cabeard21/autommo-sub000/internal/config"
	"github.com/cabeard21/autommo-sub000/internal/dispatch"
	"github.com/cabeard21/autommo-sub000/internal/engine"
	"github.com/cabeard21/autommo-sub000/internal/hotkey"
	"github.com/cabeard21/autommo-sub000/internal/logger"
	"github.com/cabeard21/autommo-sub000/internal/priority"
	"github.com/cabeard21/autommo-sub000/internal/spellqueue"
)

// stateGlyphs map each slot state to its one-character grid cell.
var stateGlyphs = map[bar.SlotState]string{
	bar.StateReady:      "R",
	bar.StateOnCooldown: "C",
	bar.StateCasting:    "*",
	bar.StateChanneling: "~",
	bar.StateLocked:     "L",
	bar.StateGCD:        "g",
	bar.StateUnknown:    "?",
}

// NewWatcherPanel builds the main panel and wires the watcher, the global
// hotkey hub, and config persistence together. The returned Bot is shared
// with the other tabs so there is one config owner.
func NewWatcherPanel(win fyne.Window, cfgPath string) (fyne.CanvasObject, *engine.Bot) {
	// --- Data Binding ---
	logData := binding.NewStringList()
	statusData := binding.NewString()
	statusData.Set("Status: Ready")
	slotsData := binding.NewString()
	slotsData.Set("(not calibrated)")
	intentData := binding.NewString()
	intentData.Set("Next: -")
	queueData := binding.NewString()
	queueData.Set("Queue: empty")

	appLogger := logger.NewAppLogger(logData)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		appLogger.Error("Config load failed, using defaults: %v", err)
		cfg = config.Default()
	}

	// --- Watcher Initialization ---
	logCallback := func(msg string) { appLogger.Info("%s", msg) }
	statusCallback := func(msg string) { statusData.Set(msg) }
	debugCallback := func(format string, args ...interface{}) { appLogger.Debug(format, args...) }

	bot := engine.NewBot(
		cfg,
		capture.ScreenSource{},
		dispatch.RobotgoSender{},
		dispatch.RobotgoTitler{},
		logCallback, statusCallback, debugCallback,
	)
	bot.ConfigChangedFunc = func(c config.Config) {
		if err := c.Save(cfgPath); err != nil {
			appLogger.Error("Config save failed: %v", err)
		}
	}

	bot.StateFunc = func(state bar.ActionBarState, buffs map[string]bar.BuffState) {
		slotsData.Set(renderSlots(state))
		current := bot.Config()
		if item, rank, ok := priority.Evaluate(current.Active().Items, state, buffs); ok {
			intentData.Set(fmt.Sprintf("Next: #%d %s", rank+1, describeItem(item, current)))
		} else {
			intentData.Set("Next: -")
		}
	}
	bot.ActionFunc = func(res dispatch.Result) {
		if res.Action != "sent" {
			return
		}
		if res.Queued {
			appLogger.Info("Queued press delivered: %s", res.Keybind)
		}
	}
	bot.Queue().SetDebugFunc(debugCallback)
	bot.Queue().SetUpdateFunc(func(e *spellqueue.Entry) {
		if e == nil {
			queueData.Set("Queue: empty")
			return
		}
		if e.SlotIndex >= 0 {
			queueData.Set(fmt.Sprintf("Queue: %s (slot %d)", e.Key, e.SlotIndex+1))
			return
		}
		queueData.Set("Queue: " + e.Key)
	})

	// --- Global hotkeys ---
	hub := hotkey.NewHub()
	hub.SetDebugFunc(debugCallback)

	// Manual presses feed the spell queue.
	hub.Register(func(ev hotkey.KeyEvent) {
		if ev.Down {
			bot.Queue().HandleKeyDown(ev.Key)
		}
	})

	toggle := hotkey.NewToggleListener(
		func() []string {
			c := bot.Config()
			if c.AutomationToggleBind == "" {
				return nil
			}
			return []string{c.AutomationToggleBind}
		},
		func(string) {
			c := bot.Config()
			if c.AutomationHotkeyMode == config.HotkeyModeSingleFire {
				bot.RequestSingleFire()
				return
			}
			bot.ToggleAutomation()
		},
	)
	toggle.Start(hub)

	// --- UI Components ---

	// 1. Screen Selector
	numDisplays := capture.NumDisplays()
	var displayOptions []string
	for i := 0; i < numDisplays; i++ {
		if bounds, err := capture.DisplayBounds(i); err == nil {
			displayOptions = append(displayOptions,
				fmt.Sprintf("Display %d (%dx%d)", i, bounds.Dx(), bounds.Dy()))
		}
	}
	if len(displayOptions) == 0 {
		displayOptions = []string{"Display 0 (Default)"}
	}

	displaySelect := widget.NewSelect(displayOptions, func(selected string) {
		var id int
		if _, err := fmt.Sscanf(selected, "Display %d", &id); err != nil {
			id = 0
		}
		c := bot.Config()
		c.Monitor = id
		bot.UpdateConfig(c)
		appLogger.Info("Switched to Display %d", id)
	})
	if len(displayOptions) > 0 {
		displaySelect.SetSelected(displayOptions[min(bot.Config().Monitor, len(displayOptions)-1)])
	}

	// 2. Status readouts
	statusLabel := widget.NewLabelWithData(statusData)
	statusLabel.TextStyle = fyne.TextStyle{Bold: true}
	slotsLabel := widget.NewLabelWithData(slotsData)
	slotsLabel.TextStyle = fyne.TextStyle{Monospace: true}
	intentLabel := widget.NewLabelWithData(intentData)
	queueLabel := widget.NewLabelWithData(queueData)

	logList := widget.NewListWithData(
		logData,
		func() fyne.CanvasObject { return widget.NewLabel("Log entry template") },
		func(i binding.DataItem, o fyne.CanvasObject) { o.(*widget.Label).Bind(i.(binding.String)) },
	)

	// Auto-scroll
	logData.AddListener(binding.NewDataListener(func() {
		list, _ := logData.Get()
		if len(list) > 0 {
			logList.ScrollToBottom()
		}
	}))

	// 3. Controls
	automationCheck := widget.NewCheck("Automation", func(on bool) {
		bot.SetAutomationEnabled(on)
	})
	automationCheck.SetChecked(bot.Config().AutomationEnabled)

	singleFireBtn := widget.NewButton("Fire Once", func() {
		bot.RequestSingleFire()
	})

	calibrateBtn := widget.NewButton("Calibrate", func() {
		bot.Calibrate()
	})

	profileNames := func() []string {
		c := bot.Config()
		names := make([]string, 0, len(c.Profiles))
		for _, p := range c.Profiles {
			names = append(names, p.Name)
		}
		return names
	}
	profileSelect := widget.NewSelect(profileNames(), func(name string) {
		c := bot.Config()
		if c.ActiveProfile == name {
			return
		}
		c.ActiveProfile = name
		bot.UpdateConfig(c)
		appLogger.Info("Profile: %s", name)
	})
	profileSelect.SetSelected(bot.Config().ActiveProfile)

	regionBtn := widget.NewButton("Pick Region", func() {
		c := bot.Config()
		ShowRegionPicker(win, c.Monitor, func(box bar.BoundingBox) {
			c = bot.Config()
			c.Box = box
			bot.UpdateConfig(c)
			appLogger.Info("Capture region set to %dx%d at (%d,%d)",
				box.Width, box.Height, box.Left, box.Top)
		})
	})

	settingsBtn := widget.NewButton("Settings", func() {
		showSettingsDialog(win, bot, hub, appLogger)
	})

	startBtn := widget.NewButton("Start Watching", nil)
	stopBtn := widget.NewButton("Stop", nil)
	stopBtn.Disable()

	startBtn.OnTapped = func() {
		statusData.Set("Status: Running")
		startBtn.Disable()
		stopBtn.Enable()
		displaySelect.Disable()
		hub.Start()
		bot.Start()
	}

	stopBtn.OnTapped = func() {
		bot.Stop()
		hub.Stop()
		stopBtn.Disable()
		startBtn.Enable()
		displaySelect.Enable()
		if err := func() error { c := bot.Config(); return c.Save(cfgPath) }(); err != nil {
			appLogger.Error("Config save failed: %v", err)
		}
	}

	// --- Layout ---
	controls := container.NewVBox(
		container.NewHBox(widget.NewLabel("Screen:"), displaySelect, regionBtn, settingsBtn),
		container.NewHBox(widget.NewLabel("Profile:"), profileSelect, automationCheck, singleFireBtn),
		statusLabel,
		slotsLabel,
		intentLabel,
		queueLabel,
		container.NewHBox(startBtn, stopBtn, calibrateBtn),
		widget.NewSeparator(),
		widget.NewLabel("History:"),
	)

	return container.NewBorder(controls, nil, nil, nil, logList), bot
}

// renderSlots draws the one-line slot grid, 1-based labels over glyphs.
func renderSlots(state bar.ActionBarState) string {
	var b strings.Builder
	for i, s := range state.Slots {
		if i > 0 {
			b.WriteByte(' ')
		}
		glyph, ok := stateGlyphs[s.State]
		if !ok {
			glyph = "?"
		}
		b.WriteString(strconv.Itoa(s.Index+1) + ":" + glyph)
	}
	if b.Len() == 0 {
		return "(no slots)"
	}
	return b.String()
}

func describeItem(item priority.Item, cfg config.Config) string {
	if item.Kind == priority.KindManual {
		for _, a := range cfg.Active().ManualActions {
			if a.ID == strings.ToLower(strings.TrimSpace(item.ActionID)) && a.Name != "" {
				return a.Name
			}
		}
		return "Manual " + item.ActionID
	}
	names := cfg.Slots.DisplayNames
	if item.SlotIndex >= 0 && item.SlotIndex < len(names) && strings.TrimSpace(names[item.SlotIndex]) != "" {
		return names[item.SlotIndex]
	}
	return "Slot " + strconv.Itoa(item.SlotIndex+1)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
