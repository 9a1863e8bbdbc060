package main

import (
	"os"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"

	"github.com/cabeard21/autommo-sub000/app/panel"
	"github.com/cabeard21/autommo-sub000/app/priorities"
)

func main() {
	myApp := app.New()
	myWindow := myApp.NewWindow("Action Bar Watcher")
	myWindow.Resize(fyne.NewSize(640, 700))

	cfgPath := configPath()

	watcherTab, bot := panel.NewWatcherPanel(myWindow, cfgPath)
	tabs := container.NewAppTabs(
		container.NewTabItem("Watcher", watcherTab),
		container.NewTabItem("Priorities", priorities.NewPriorityPanel(myWindow, bot, cfgPath)),
	)
	tabs.SetTabLocation(container.TabLocationTop)

	myWindow.SetContent(tabs)
	myWindow.ShowAndRun()
}

func configPath() string {
	if p := os.Getenv("BARWATCHER_CONFIG"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "barwatcher.toml"
	}
	return filepath.Join(dir, "barwatcher", "config.toml")
}
