// Package hotkey owns the process-wide input hook and the listeners built
// on it: the global automation toggle and one-shot bind capture.
//
// The OS allows a single low-level hook per process, so every consumer
// registers with the Hub instead of hooking directly.
package hotkey

import (
	"sync"

	hook "github.com/robotn/gohook"
)

// KeyEvent is one key or mouse button transition from the global hook.
// Key is a normalized lowercase token; mouse buttons arrive as "left",
// "right", "middle", "x1", "x2".
type KeyEvent struct {
	Key  string
	Down bool
}

// Hub fans the single gohook event stream out to registered listeners.
// Repeat key-down events from the OS auto-repeat are suppressed: listeners
// see exactly one Down per physical press.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]func(KeyEvent)
	nextID int

	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	held map[uint16]bool

	debugFunc func(string, ...interface{})
}

// NewHub creates a stopped hub.
func NewHub() *Hub {
	return &Hub{
		subs:      make(map[int]func(KeyEvent)),
		held:      make(map[uint16]bool),
		debugFunc: func(string, ...interface{}) {},
	}
}

// SetDebugFunc sets the debug logging callback.
func (h *Hub) SetDebugFunc(f func(string, ...interface{})) {
	if f != nil {
		h.debugFunc = f
	}
}

// Register adds a listener and returns its unsubscribe func. Listeners run
// on the hook goroutine and must not block.
func (h *Hub) Register(fn func(KeyEvent)) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// Running reports whether the hook stream is open.
func (h *Hub) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

// Start opens the global hook and begins dispatching. No-op when running.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.stopChan = make(chan struct{})
	h.mu.Unlock()

	h.wg.Add(1)
	go h.run()
}

// Stop closes the hook and waits for the dispatch goroutine to exit.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	close(h.stopChan)
	h.mu.Unlock()

	hook.End()
	h.wg.Wait()
}

func (h *Hub) run() {
	defer h.wg.Done()
	events := hook.Start()
	h.debugFunc("Global input hook started")

	for {
		select {
		case <-h.stopChan:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.handle(ev)
		}
	}
}

func (h *Hub) handle(ev hook.Event) {
	switch ev.Kind {
	case hook.KeyDown:
		if h.markHeld(ev.Rawcode) {
			return
		}
		if key := keyName(ev); key != "" {
			h.dispatch(KeyEvent{Key: key, Down: true})
		}
	case hook.KeyUp:
		h.clearHeld(ev.Rawcode)
		if key := keyName(ev); key != "" {
			h.dispatch(KeyEvent{Key: key, Down: false})
		}
	case hook.MouseDown:
		if name := mouseButtonName(ev.Button); name != "" {
			h.dispatch(KeyEvent{Key: name, Down: true})
		}
	case hook.MouseUp:
		if name := mouseButtonName(ev.Button); name != "" {
			h.dispatch(KeyEvent{Key: name, Down: false})
		}
	}
}

// markHeld records the key as held; true means this was an auto-repeat.
func (h *Hub) markHeld(rawcode uint16) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.held[rawcode] {
		return true
	}
	h.held[rawcode] = true
	return false
}

func (h *Hub) clearHeld(rawcode uint16) {
	h.mu.Lock()
	delete(h.held, rawcode)
	h.mu.Unlock()
}

func (h *Hub) dispatch(ev KeyEvent) {
	h.mu.Lock()
	subs := make([]func(KeyEvent), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func keyName(ev hook.Event) string {
	if ev.Keychar != 0 && ev.Keychar != 65535 {
		return string(ev.Keychar)
	}
	return hook.RawcodetoKeychar(ev.Rawcode)
}

func mouseButtonName(button uint16) string {
	switch button {
	case 1:
		return "left"
	case 2:
		return "right"
	case 3:
		return "middle"
	case 4:
		return "x1"
	case 5:
		return "x2"
	default:
		return ""
	}
}
