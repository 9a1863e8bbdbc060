// Package priorities is the ranked-list editor tab: priority items, manual
// actions, and buff regions for the active profile.
package priorities

import (
	"fmt"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/cabeard21/autommo-sub000/internal/config"
	"github.com/cabeard21/autommo-sub000/internal/engine"
	"github.com/cabeard21/autommo-sub000/internal/priority"
)

// NewPriorityPanel builds the editor tab. All edits go through the shared
// Bot so the running watcher picks them up immediately, then persist to
// cfgPath.
func NewPriorityPanel(win fyne.Window, bot *engine.Bot, cfgPath string) fyne.CanvasObject {
	var itemList *widget.List
	selected := -1

	items := func() []priority.Item {
		c := bot.Config()
		return c.Active().Items
	}

	save := func(mutate func(*config.Config)) {
		c := bot.Config()
		mutate(&c)
		bot.UpdateConfig(c)
		c = bot.Config()
		if err := c.Save(cfgPath); err != nil {
			dialog.ShowError(err, win)
		}
		itemList.Refresh()
	}

	itemList = widget.NewList(
		func() int { return len(items()) },
		func() fyne.CanvasObject { return widget.NewLabel("priority item template") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			list := items()
			if i >= len(list) {
				return
			}
			o.(*widget.Label).SetText(fmt.Sprintf("%d. %s", i+1, describe(list[i])))
		},
	)
	itemList.OnSelected = func(i widget.ListItemID) { selected = i }
	itemList.OnUnselected = func(widget.ListItemID) { selected = -1 }

	addSlotBtn := widget.NewButton("Add Slot", func() {
		showItemDialog(win, bot, priority.Item{Kind: priority.KindSlot}, func(it priority.Item) {
			save(func(c *config.Config) {
				p := c.Active()
				p.Items = append(p.Items, it)
			})
		})
	})

	addManualBtn := widget.NewButton("Add Manual", func() {
		showItemDialog(win, bot, priority.Item{Kind: priority.KindManual}, func(it priority.Item) {
			save(func(c *config.Config) {
				p := c.Active()
				p.Items = append(p.Items, it)
			})
		})
	})

	editBtn := widget.NewButton("Edit", func() {
		i := selected
		list := items()
		if i < 0 || i >= len(list) {
			return
		}
		showItemDialog(win, bot, list[i], func(it priority.Item) {
			save(func(c *config.Config) {
				p := c.Active()
				if i < len(p.Items) {
					p.Items[i] = it
				}
			})
		})
	})

	removeBtn := widget.NewButton("Remove", func() {
		i := selected
		if i < 0 {
			return
		}
		save(func(c *config.Config) {
			p := c.Active()
			if i < len(p.Items) {
				p.Items = append(p.Items[:i], p.Items[i+1:]...)
			}
		})
		itemList.UnselectAll()
	})

	upBtn := widget.NewButton("Up", func() { moveSelected(bot, &selected, -1, save, itemList) })
	downBtn := widget.NewButton("Down", func() { moveSelected(bot, &selected, 1, save, itemList) })

	manualBtn := widget.NewButton("Manual Actions", func() {
		showManualActionsDialog(win, bot, save)
	})
	buffBtn := widget.NewButton("Buff Regions", func() {
		showBuffDialog(win, bot, save)
	})

	header := container.NewVBox(
		widget.NewLabel("Ranked priority list (top fires first):"),
		container.NewHBox(addSlotBtn, addManualBtn, editBtn, removeBtn, upBtn, downBtn),
		container.NewHBox(manualBtn, buffBtn),
		widget.NewSeparator(),
	)

	return container.NewBorder(header, nil, nil, nil, itemList)
}

func moveSelected(bot *engine.Bot, selected *int, dir int,
	save func(func(*config.Config)), list *widget.List) {
	i := *selected
	if i < 0 {
		return
	}
	j := i + dir
	save(func(c *config.Config) {
		p := c.Active()
		if i < 0 || i >= len(p.Items) || j < 0 || j >= len(p.Items) {
			return
		}
		p.Items[i], p.Items[j] = p.Items[j], p.Items[i]
	})
	cfg := bot.Config()
	if j >= 0 && j < len(cfg.Active().Items) {
		*selected = j
		list.Select(j)
	}
}

func describe(it priority.Item) string {
	var base string
	if it.Kind == priority.KindManual {
		base = "manual " + it.ActionID
	} else {
		base = "slot " + strconv.Itoa(it.SlotIndex+1)
	}
	var tags []string
	if it.Rule != "" && it.Rule != priority.RuleAlways {
		tags = append(tags, string(it.Rule))
	}
	switch it.Source {
	case priority.SourceBuffPresent:
		tags = append(tags, "if buff "+it.BuffID)
	case priority.SourceBuffMissing:
		tags = append(tags, "if no buff "+it.BuffID)
	case priority.SourceAlways:
		if it.Kind == priority.KindSlot {
			tags = append(tags, "ignore cooldown")
		}
	}
	if len(tags) == 0 {
		return base
	}
	return base + " (" + strings.Join(tags, ", ") + ")"
}

// showItemDialog edits one priority item. Passing a zero SlotIndex item
// with only Kind set works as the "add" path.
func showItemDialog(win fyne.Window, bot *engine.Bot, it priority.Item, onDone func(priority.Item)) {
	it = priority.Normalize(it)
	cfg := bot.Config()

	ruleSelect := widget.NewSelect([]string{
		string(priority.RuleAlways),
		string(priority.RuleDotRefresh),
		string(priority.RuleRequireGlow),
	}, nil)
	ruleSelect.SetSelected(string(it.Rule))

	sourceOptions := []string{
		string(priority.SourceSlot),
		string(priority.SourceAlways),
		string(priority.SourceBuffPresent),
		string(priority.SourceBuffMissing),
	}
	if it.Kind == priority.KindManual {
		sourceOptions = sourceOptions[1:]
	}
	sourceSelect := widget.NewSelect(sourceOptions, nil)
	sourceSelect.SetSelected(string(it.Source))

	buffEntry := widget.NewEntry()
	buffEntry.SetText(it.BuffID)
	buffEntry.SetPlaceHolder("buff region id")

	var items []*widget.FormItem
	var slotEntry, actionEntry *widget.Entry
	if it.Kind == priority.KindSlot {
		slotEntry = widget.NewEntry()
		slotEntry.SetText(strconv.Itoa(it.SlotIndex + 1))
		items = append(items, widget.NewFormItem("Slot number", slotEntry))
	} else {
		actionEntry = widget.NewEntry()
		actionEntry.SetText(it.ActionID)
		actionEntry.SetPlaceHolder("manual action id")
		items = append(items, widget.NewFormItem("Action ID", actionEntry))
	}
	items = append(items,
		widget.NewFormItem("Activation rule", ruleSelect),
		widget.NewFormItem("Ready source", sourceSelect),
		widget.NewFormItem("Buff region", buffEntry),
	)

	title := "Slot item"
	if it.Kind == priority.KindManual {
		title = "Manual item"
	}
	dialog.ShowForm(title, "Save", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		if slotEntry != nil {
			n, err := strconv.Atoi(strings.TrimSpace(slotEntry.Text))
			if err != nil || n < 1 || n > cfg.Slots.Count {
				dialog.ShowError(fmt.Errorf("slot number must be 1-%d", cfg.Slots.Count), win)
				return
			}
			it.SlotIndex = n - 1
		}
		if actionEntry != nil {
			it.ActionID = strings.TrimSpace(actionEntry.Text)
			if it.ActionID == "" {
				dialog.ShowError(fmt.Errorf("manual items need an action id"), win)
				return
			}
		}
		it.Rule = priority.ActivationRule(ruleSelect.Selected)
		it.Source = priority.ReadySource(sourceSelect.Selected)
		it.BuffID = strings.TrimSpace(buffEntry.Text)
		onDone(priority.Normalize(it))
	}, win)
}

func showManualActionsDialog(win fyne.Window, bot *engine.Bot, save func(func(*config.Config))) {
	c := bot.Config()
	actions := c.Active().ManualActions

	var lines []string
	for _, a := range actions {
		lines = append(lines, fmt.Sprintf("%s = %s (%s)", a.ID, a.Keybind, a.Name))
	}
	current := widget.NewLabel(strings.Join(lines, "\n"))
	if len(lines) == 0 {
		current.SetText("(none)")
	}

	idEntry := widget.NewEntry()
	idEntry.SetPlaceHolder("id, e.g. trinket")
	nameEntry := widget.NewEntry()
	nameEntry.SetPlaceHolder("display name")
	bindEntry := widget.NewEntry()
	bindEntry.SetPlaceHolder("keybind, e.g. ctrl+t")

	items := []*widget.FormItem{
		widget.NewFormItem("Existing", current),
		widget.NewFormItem("ID", idEntry),
		widget.NewFormItem("Name", nameEntry),
		widget.NewFormItem("Keybind", bindEntry),
	}

	dialog.ShowForm("Manual actions", "Add / Replace", "Close", items, func(ok bool) {
		if !ok {
			return
		}
		id := strings.ToLower(strings.TrimSpace(idEntry.Text))
		if id == "" {
			return
		}
		save(func(c *config.Config) {
			p := c.Active()
			action := config.ManualAction{ID: id, Name: nameEntry.Text, Keybind: bindEntry.Text}
			for i, a := range p.ManualActions {
				if a.ID == id {
					p.ManualActions[i] = action
					return
				}
			}
			p.ManualActions = append(p.ManualActions, action)
		})
	}, win)
}

func showBuffDialog(win fyne.Window, bot *engine.Bot, save func(func(*config.Config))) {
	c := bot.Config()

	var lines []string
	for _, roi := range c.BuffROIs {
		state := "uncalibrated"
		if roi.TemplateData != "" {
			state = "calibrated"
		}
		lines = append(lines, fmt.Sprintf("%s: %dx%d at (%d,%d), %s",
			roi.ID, roi.Width, roi.Height, roi.Left, roi.Top, state))
	}
	current := widget.NewLabel(strings.Join(lines, "\n"))
	if len(lines) == 0 {
		current.SetText("(none)")
	}

	idEntry := widget.NewEntry()
	idEntry.SetPlaceHolder("id, e.g. renew")
	leftEntry := widget.NewEntry()
	topEntry := widget.NewEntry()
	widthEntry := widget.NewEntry()
	heightEntry := widget.NewEntry()

	calibrateID := widget.NewEntry()
	calibrateID.SetPlaceHolder("id to calibrate (buff must be active now)")

	items := []*widget.FormItem{
		widget.NewFormItem("Existing", current),
		widget.NewFormItem("ID", idEntry),
		widget.NewFormItem("Left", leftEntry),
		widget.NewFormItem("Top", topEntry),
		widget.NewFormItem("Width", widthEntry),
		widget.NewFormItem("Height", heightEntry),
		widget.NewFormItem("Calibrate", calibrateID),
	}

	dialog.ShowForm("Buff regions", "Apply", "Close", items, func(ok bool) {
		if !ok {
			return
		}
		if id := strings.ToLower(strings.TrimSpace(idEntry.Text)); id != "" {
			left, _ := strconv.Atoi(strings.TrimSpace(leftEntry.Text))
			top, _ := strconv.Atoi(strings.TrimSpace(topEntry.Text))
			width, _ := strconv.Atoi(strings.TrimSpace(widthEntry.Text))
			height, _ := strconv.Atoi(strings.TrimSpace(heightEntry.Text))
			if width > 0 && height > 0 {
				save(func(c *config.Config) {
					roi := config.BuffROISettings{
						ID: id, Name: id, Enabled: true,
						Left: left, Top: top, Width: width, Height: height,
					}
					for i, existing := range c.BuffROIs {
						if existing.ID == id {
							roi.MatchThreshold = existing.MatchThreshold
							roi.ConfirmFrames = existing.ConfirmFrames
							c.BuffROIs[i] = roi
							return
						}
					}
					c.BuffROIs = append(c.BuffROIs, roi)
				})
			}
		}
		if id := strings.ToLower(strings.TrimSpace(calibrateID.Text)); id != "" {
			bot.CalibrateBuff(id)
		}
	}, win)
}
