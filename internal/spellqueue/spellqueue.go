// Package spellqueue turns manual key presses into a single queued override
// that fires at the next global cooldown boundary.
package spellqueue

import (
	"sync"
	"time"

	"github.com/cabeard21/autommo-sub000/internal/binds"
	"github.com/cabeard21/autommo-sub000/internal/constants"
)

// Entry sources.
const (
	SourceWhitelist = "whitelist"
	SourceTracked   = "tracked"
)

// Entry is the single queued press. SlotIndex is -1 for whitelist entries.
type Entry struct {
	Key       string
	SlotIndex int
	Source    string
	CreatedAt time.Time
}

// Settings is the snapshot the listener consults on every key press.
type Settings struct {
	AutomationEnabled bool
	// Whitelist keys queue directly without a tracked slot.
	Whitelist []string
	// SlotKeybinds maps slot index to its bind.
	SlotKeybinds []string
	// RankedSlots are slot indices covered by the priority list; their
	// keys are the automation's own output and never queue.
	RankedSlots []int
	Timeout     time.Duration
}

// Left mouse button names as global hooks report them. Clicking must never
// queue anything.
var leftMouseNames = map[string]bool{
	"left":       true,
	"left click": true,
	"mouse left": true,
}

// Listener holds at most one queued entry. A new qualifying press replaces
// the previous entry; an expired entry clears itself on read and is never
// re-armed. Safe for concurrent use.
type Listener struct {
	mu          sync.Mutex
	getSettings func() Settings
	entry       *Entry

	// onUpdate fires outside the lock with the new entry, or nil on clear.
	onUpdate  func(*Entry)
	debugFunc func(string, ...interface{})
	now       func() time.Time
}

// NewListener builds a listener over a settings snapshot provider. onUpdate
// may be nil.
func NewListener(getSettings func() Settings, onUpdate func(*Entry)) *Listener {
	if onUpdate == nil {
		onUpdate = func(*Entry) {}
	}
	return &Listener{
		getSettings: getSettings,
		onUpdate:    onUpdate,
		debugFunc:   func(string, ...interface{}) {},
		now:         time.Now,
	}
}

// SetDebugFunc sets the debug logging callback.
func (l *Listener) SetDebugFunc(f func(string, ...interface{})) {
	if f != nil {
		l.debugFunc = f
	}
}

// SetUpdateFunc replaces the update callback. Call before the hook starts
// feeding key events.
func (l *Listener) SetUpdateFunc(f func(*Entry)) {
	if f == nil {
		f = func(*Entry) {}
	}
	l.onUpdate = f
}

// HandleKeyDown processes one key-down from the global hook. Presses are
// ignored while automation is off, for left mouse, and for keys the ranked
// priority list already owns.
func (l *Listener) HandleKeyDown(key string) {
	key = binds.NormalizeToken(key)
	if key == "" || leftMouseNames[key] {
		return
	}

	s := l.getSettings()
	if !s.AutomationEnabled {
		return
	}

	ranked := make(map[int]bool, len(s.RankedSlots))
	for _, i := range s.RankedSlots {
		ranked[i] = true
	}
	for _, i := range s.RankedSlots {
		if i >= 0 && i < len(s.SlotKeybinds) {
			if bind := binds.Normalize(s.SlotKeybinds[i]); bind != "" && bind == key {
				return
			}
		}
	}

	for _, w := range s.Whitelist {
		if binds.NormalizeToken(w) == key {
			l.set(Entry{Key: key, SlotIndex: -1, Source: SourceWhitelist})
			return
		}
	}

	for slotIndex, bind := range s.SlotKeybinds {
		if ranked[slotIndex] {
			continue
		}
		if normalized := binds.Normalize(bind); normalized != "" && normalized == key {
			l.set(Entry{Key: key, SlotIndex: slotIndex, Source: SourceTracked})
			return
		}
	}
}

func (l *Listener) set(e Entry) {
	l.mu.Lock()
	if existing := l.entry; existing != nil &&
		existing.Source == e.Source &&
		existing.Key == e.Key &&
		existing.SlotIndex == e.SlotIndex {
		l.mu.Unlock()
		return
	}
	e.CreatedAt = l.now()
	l.entry = &e
	l.mu.Unlock()
	l.debugFunc("Queued %s key %q (slot %d)", e.Source, e.Key, e.SlotIndex)
	l.onUpdate(&e)
}

// Get returns the queued entry, clearing and reporting nothing if it has
// outlived its timeout.
func (l *Listener) Get() (Entry, bool) {
	s := l.getSettings()
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = constants.QueueTimeout
	}

	l.mu.Lock()
	if l.entry == nil {
		l.mu.Unlock()
		return Entry{}, false
	}
	if l.now().Sub(l.entry.CreatedAt) >= timeout {
		l.entry = nil
		l.mu.Unlock()
		l.debugFunc("Queued key expired")
		l.onUpdate(nil)
		return Entry{}, false
	}
	e := *l.entry
	l.mu.Unlock()
	return e, true
}

// Clear drops the queued entry, typically after dispatch consumed it.
func (l *Listener) Clear() {
	l.mu.Lock()
	had := l.entry != nil
	l.entry = nil
	l.mu.Unlock()
	if had {
		l.onUpdate(nil)
	}
}
