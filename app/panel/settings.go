package panel

import (
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/cabeard21/autommo-sub000/internal/config"
	"github.com/cabeard21/autommo-sub000/internal/engine"
	"github.com/cabeard21/autommo-sub000/internal/hotkey"
	"github.com/cabeard21/autommo-sub000/internal/logger"
)

// showSettingsDialog edits the detection and input knobs. Values are
// clamped by config normalization on apply, so junk input degrades to
// defaults instead of erroring.
func showSettingsDialog(win fyne.Window, bot *engine.Bot, hub *hotkey.Hub, log *logger.AppLogger) {
	cfg := bot.Config()

	fpsEntry := widget.NewEntry()
	fpsEntry.SetText(strconv.Itoa(cfg.Detection.PollingFPS))
	dropEntry := widget.NewEntry()
	dropEntry.SetText(strconv.Itoa(cfg.Detection.BrightnessDropThreshold))
	fracEntry := widget.NewEntry()
	fracEntry.SetText(strconv.FormatFloat(cfg.Detection.CooldownPixelFraction, 'f', 2, 64))
	regionSelect := widget.NewSelect([]string{"top_left", "full"}, nil)
	regionSelect.SetSelected(cfg.Detection.DetectionRegion)

	slotCountEntry := widget.NewEntry()
	slotCountEntry.SetText(strconv.Itoa(cfg.Slots.Count))
	keybindsEntry := widget.NewEntry()
	keybindsEntry.SetText(strings.Join(cfg.Slots.Keybinds, ", "))

	whitelistEntry := widget.NewEntry()
	whitelistEntry.SetText(strings.Join(cfg.Queue.Whitelist, ", "))

	toggleBindEntry := widget.NewEntry()
	toggleBindEntry.SetText(cfg.AutomationToggleBind)
	recordBtn := widget.NewButton("Record", nil)
	recordBtn.OnTapped = func() {
		recordBtn.SetText("Press a key...")
		recordBtn.Disable()
		ownsHub := !hub.Running()
		if ownsHub {
			hub.Start()
		}
		hotkey.CaptureOneKey(hub, func(bind string) {
			// Runs on the hook goroutine; Stop must not be called from there.
			go func() {
				if ownsHub {
					hub.Stop()
				}
				fyne.Do(func() {
					toggleBindEntry.SetText(bind)
					recordBtn.SetText("Record")
					recordBtn.Enable()
				})
			}()
		})
	}
	toggleBindRow := container.NewBorder(nil, nil, nil, recordBtn, toggleBindEntry)
	modeSelect := widget.NewSelect(
		[]string{config.HotkeyModeToggle, config.HotkeyModeSingleFire}, nil)
	modeSelect.SetSelected(cfg.AutomationHotkeyMode)

	windowEntry := widget.NewEntry()
	windowEntry.SetText(cfg.TargetWindowTitle)
	windowEntry.SetPlaceHolder("empty = any window")

	intervalEntry := widget.NewEntry()
	intervalEntry.SetText(strconv.Itoa(cfg.MinPressIntervalMS))

	items := []*widget.FormItem{
		widget.NewFormItem("Polling FPS", fpsEntry),
		widget.NewFormItem("Brightness drop", dropEntry),
		widget.NewFormItem("Cooldown fraction", fracEntry),
		widget.NewFormItem("Detection region", regionSelect),
		widget.NewFormItem("Slot count", slotCountEntry),
		widget.NewFormItem("Slot keybinds", keybindsEntry),
		widget.NewFormItem("Queue whitelist", whitelistEntry),
		widget.NewFormItem("Toggle bind", toggleBindRow),
		widget.NewFormItem("Hotkey mode", modeSelect),
		widget.NewFormItem("Target window", windowEntry),
		widget.NewFormItem("Min press interval ms", intervalEntry),
	}

	dialog.ShowForm("Settings", "Apply", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		c := bot.Config()
		c.Detection.PollingFPS = atoiOr(fpsEntry.Text, c.Detection.PollingFPS)
		c.Detection.BrightnessDropThreshold = atoiOr(dropEntry.Text, c.Detection.BrightnessDropThreshold)
		if f, err := strconv.ParseFloat(strings.TrimSpace(fracEntry.Text), 64); err == nil {
			c.Detection.CooldownPixelFraction = f
		}
		c.Detection.DetectionRegion = regionSelect.Selected
		c.Slots.Count = atoiOr(slotCountEntry.Text, c.Slots.Count)
		c.Slots.Keybinds = splitList(keybindsEntry.Text)
		c.Queue.Whitelist = splitList(whitelistEntry.Text)
		c.AutomationToggleBind = toggleBindEntry.Text
		c.AutomationHotkeyMode = modeSelect.Selected
		c.TargetWindowTitle = windowEntry.Text
		c.MinPressIntervalMS = atoiOr(intervalEntry.Text, c.MinPressIntervalMS)

		bot.UpdateConfig(c)
		log.Info("Settings applied")
	}, win)
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
