package hotkey

import (
	"sync"

	"github.com/cabeard21/autommo-sub000/internal/binds"
)

// Mouse button tokens never participate in global hotkeys; only keyboard
// binds are listened for (a mouse key remapped to e.g. F24 still works).
var mouseBindNames = map[string]bool{
	"x1": true, "x2": true, "left": true, "right": true, "middle": true,
}

func isKeyboardBind(bind string) bool {
	_, primary, ok := binds.Parse(bind)
	return ok && !mouseBindNames[primary]
}

// ToggleListener fires a callback when any configured bind is pressed,
// regardless of which window has focus. Modifier-qualified binds match the
// modifiers held at the moment the primary key goes down.
type ToggleListener struct {
	mu        sync.Mutex
	getBinds  func() []string
	onTrigger func(bind string)

	heldMods    map[string]bool
	unsubscribe func()
}

// NewToggleListener builds a listener over the hub. onTrigger runs on the
// hook goroutine with the normalized bind that matched.
func NewToggleListener(getBinds func() []string, onTrigger func(string)) *ToggleListener {
	return &ToggleListener{
		getBinds:  getBinds,
		onTrigger: onTrigger,
		heldMods:  make(map[string]bool),
	}
}

// Start registers with the hub. No-op when already started.
func (l *ToggleListener) Start(hub *Hub) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unsubscribe != nil {
		return
	}
	l.unsubscribe = hub.Register(l.handle)
}

// Stop unregisters from the hub.
func (l *ToggleListener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
	l.heldMods = make(map[string]bool)
}

func (l *ToggleListener) handle(ev KeyEvent) {
	token := binds.NormalizeToken(ev.Key)
	if token == "" || mouseBindNames[token] {
		return
	}

	l.mu.Lock()
	if binds.IsModifier(token) {
		if ev.Down {
			l.heldMods[token] = true
		} else {
			delete(l.heldMods, token)
		}
		l.mu.Unlock()
		return
	}
	if !ev.Down {
		l.mu.Unlock()
		return
	}
	mods := make(map[string]bool, len(l.heldMods))
	for m := range l.heldMods {
		mods[m] = true
	}
	l.mu.Unlock()

	candidate := binds.NormalizeFromParts(mods, token)
	if candidate == "" {
		return
	}
	for _, b := range l.getBinds() {
		if isKeyboardBind(b) && binds.Normalize(b) == candidate {
			l.onTrigger(candidate)
			return
		}
	}
}

// CaptureOneKey waits for the next keyboard combo and reports it as a
// normalized bind. The returned cancel func stops the capture; done is
// called at most once.
func CaptureOneKey(hub *Hub, done func(bind string)) (cancel func()) {
	var (
		mu       sync.Mutex
		heldMods = make(map[string]bool)
		finished bool
	)
	var unsubscribe func()

	finish := func(bind string) {
		mu.Lock()
		if finished {
			mu.Unlock()
			return
		}
		finished = true
		mu.Unlock()
		unsubscribe()
		if bind != "" {
			done(bind)
		}
	}

	unsubscribe = hub.Register(func(ev KeyEvent) {
		token := binds.NormalizeToken(ev.Key)
		if token == "" || mouseBindNames[token] {
			return
		}
		mu.Lock()
		if finished {
			mu.Unlock()
			return
		}
		if binds.IsModifier(token) {
			if ev.Down {
				heldMods[token] = true
			} else {
				delete(heldMods, token)
			}
			mu.Unlock()
			return
		}
		if !ev.Down {
			mu.Unlock()
			return
		}
		mods := make(map[string]bool, len(heldMods))
		for m := range heldMods {
			mods[m] = true
		}
		mu.Unlock()
		finish(binds.NormalizeFromParts(mods, token))
	})

	return func() { finish("") }
}
