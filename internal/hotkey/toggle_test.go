package hotkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(h *Hub, key string) {
	h.dispatch(KeyEvent{Key: key, Down: true})
	h.dispatch(KeyEvent{Key: key, Down: false})
}

func TestToggleListenerFiresOnBareBind(t *testing.T) {
	hub := NewHub()
	var fired []string
	l := NewToggleListener(
		func() []string { return []string{"f8"} },
		func(bind string) { fired = append(fired, bind) },
	)
	l.Start(hub)
	defer l.Stop()

	press(hub, "f8")
	press(hub, "f9")

	assert.Equal(t, []string{"f8"}, fired)
}

func TestToggleListenerMatchesModifierCombo(t *testing.T) {
	hub := NewHub()
	var fired []string
	l := NewToggleListener(
		func() []string { return []string{"ctrl+shift+a"} },
		func(bind string) { fired = append(fired, bind) },
	)
	l.Start(hub)
	defer l.Stop()

	// Bare "a" does not match the combo.
	press(hub, "a")
	require.Empty(t, fired)

	hub.dispatch(KeyEvent{Key: "ctrl", Down: true})
	hub.dispatch(KeyEvent{Key: "shift", Down: true})
	press(hub, "a")
	hub.dispatch(KeyEvent{Key: "shift", Down: false})
	hub.dispatch(KeyEvent{Key: "ctrl", Down: false})

	// With the modifiers released, "a" no longer matches.
	press(hub, "a")

	assert.Equal(t, []string{"ctrl+shift+a"}, fired)
}

func TestToggleListenerNormalizesConfiguredBinds(t *testing.T) {
	hub := NewHub()
	var fired []string
	l := NewToggleListener(
		func() []string { return []string{" Control + F8 "} },
		func(bind string) { fired = append(fired, bind) },
	)
	l.Start(hub)
	defer l.Stop()

	hub.dispatch(KeyEvent{Key: "ctrl", Down: true})
	press(hub, "f8")

	assert.Equal(t, []string{"ctrl+f8"}, fired)
}

func TestToggleListenerIgnoresMouseBinds(t *testing.T) {
	hub := NewHub()
	var fired []string
	l := NewToggleListener(
		func() []string { return []string{"x1"} },
		func(bind string) { fired = append(fired, bind) },
	)
	l.Start(hub)
	defer l.Stop()

	press(hub, "x1")
	assert.Empty(t, fired)
}

func TestToggleListenerStopDetaches(t *testing.T) {
	hub := NewHub()
	var fired []string
	l := NewToggleListener(
		func() []string { return []string{"f8"} },
		func(bind string) { fired = append(fired, bind) },
	)
	l.Start(hub)
	l.Stop()

	press(hub, "f8")
	assert.Empty(t, fired)
}

func TestCaptureOneKeyReportsCombo(t *testing.T) {
	hub := NewHub()
	var captured []string
	CaptureOneKey(hub, func(bind string) { captured = append(captured, bind) })

	hub.dispatch(KeyEvent{Key: "shift", Down: true})
	hub.dispatch(KeyEvent{Key: "g", Down: true})
	hub.dispatch(KeyEvent{Key: "g", Down: false})
	hub.dispatch(KeyEvent{Key: "shift", Down: false})

	require.Equal(t, []string{"shift+g"}, captured)

	// The capture is one-shot: further presses do nothing.
	press(hub, "h")
	assert.Len(t, captured, 1)
}

func TestCaptureOneKeyCancel(t *testing.T) {
	hub := NewHub()
	var captured []string
	cancel := CaptureOneKey(hub, func(bind string) { captured = append(captured, bind) })
	cancel()

	press(hub, "g")
	assert.Empty(t, captured)
}

func TestHubRepeatSuppression(t *testing.T) {
	hub := NewHub()

	// OS auto-repeat delivers multiple downs before the up.
	assert.False(t, hub.markHeld(30))
	assert.True(t, hub.markHeld(30))
	assert.True(t, hub.markHeld(30))
	hub.clearHeld(30)
	assert.False(t, hub.markHeld(30))
}
