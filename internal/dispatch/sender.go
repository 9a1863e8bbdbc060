package dispatch

import (
	"fmt"

	"github.com/go-vgo/robotgo"

	"github.com/cabeard21/autommo-sub000/internal/binds"
)

// RobotgoSender delivers binds as OS-level synthetic input.
type RobotgoSender struct{}

// Send presses a normalized bind: modifiers held, primary tapped. Mouse
// primaries click instead.
func (RobotgoSender) Send(bind string) error {
	mods, primary, ok := binds.Parse(bind)
	if !ok {
		return fmt.Errorf("unparseable bind %q", bind)
	}

	switch primary {
	case "left", "right":
		robotgo.Click(primary)
		return nil
	case "middle":
		robotgo.Click("center")
		return nil
	case "x1", "x2":
		return fmt.Errorf("cannot send extra mouse button %q", primary)
	}

	var modifiers []interface{}
	for _, m := range []string{"ctrl", "shift", "alt"} {
		if mods[m] {
			modifiers = append(modifiers, m)
		}
	}
	if err := robotgo.KeyTap(primary, modifiers...); err != nil {
		return fmt.Errorf("key tap %q: %w", bind, err)
	}
	return nil
}

// RobotgoTitler reads the foreground window title via the OS accessibility
// APIs robotgo wraps.
type RobotgoTitler struct{}

func (RobotgoTitler) ForegroundTitle() (string, error) {
	return robotgo.GetTitle(), nil
}
