// Package dispatch turns the per-cycle intention into at most one synthetic
// key press, guarded by rate, cast, focus, and queue-override gates.
package dispatch

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cabeard21/autommo-sub000/internal/bar"
	"github.com/cabeard21/autommo-sub000/internal/constants"
	"github.com/cabeard21/autommo-sub000/internal/priority"
)

// Sender delivers one synthetic input to the OS.
type Sender interface {
	Send(bind string) error
}

// WindowTitler reports the current foreground window title.
type WindowTitler interface {
	ForegroundTitle() (string, error)
}

// ManualAction is a named key press with no tracked slot behind it.
type ManualAction struct {
	ID      string
	Name    string
	Keybind string
}

// QueuedKey is a pending manually-queued press awaiting dispatch.
type QueuedKey struct {
	Key       string
	SlotIndex int
	// Source is "whitelist" or "tracked".
	Source string
}

// Settings is the per-cycle dispatch configuration snapshot.
type Settings struct {
	AutomationEnabled     bool
	MinPressInterval      time.Duration
	AllowCastWhileCasting bool
	// QueueWindow extends the casting block slightly past the estimated
	// cast end so a just-finished cast still swallows the next press.
	QueueWindow time.Duration
	// QueueFireDelay is slept before a queued send; the bar can look
	// ready one frame before the game accepts input.
	QueueFireDelay time.Duration
	// PostQueuedSuppress holds ranked sends after a queued send so the
	// game receives only the queued key for that global cooldown.
	PostQueuedSuppress time.Duration
	TargetWindowTitle  string
	SlotKeybinds       []string
	ManualActions      []ManualAction
}

func (s Settings) withDefaults() Settings {
	if s.MinPressInterval <= 0 {
		s.MinPressInterval = constants.MinPressInterval
	}
	if s.QueueWindow <= 0 {
		s.QueueWindow = constants.QueueWindow
	}
	if s.QueueFireDelay < 0 {
		s.QueueFireDelay = 0
	}
	if s.PostQueuedSuppress <= 0 {
		s.PostQueuedSuppress = constants.PostQueuedSuppress
	}
	return s
}

// Result reports what one Evaluate cycle did, for logging and the UI.
type Result struct {
	Action      string // "sent" or "blocked"
	Reason      string // "casting" or "window" when blocked
	Keybind     string
	DisplayName string
	ItemKind    priority.ItemKind
	SlotIndex   int // -1 when not slot-backed
	Queued      bool
	Timestamp   time.Time
}

// Engine owns the send-side state: rate limit clock, queued-send
// suppression, single-fire arm, and the recent send intervals the GCD
// estimate derives from. Safe for concurrent use.
type Engine struct {
	mu            sync.Mutex
	sender        Sender
	titler        WindowTitler
	lastSend      time.Time
	suppressUntil time.Time
	singleFire    bool
	intervals     []time.Duration

	logFunc   func(string, ...interface{})
	debugFunc func(string, ...interface{})
	now       func() time.Time
	sleep     func(time.Duration)
}

const maxTrackedIntervals = 8

// NewEngine builds a dispatch engine over the given sender and window
// titler. titler may be nil, which disables the focus gate.
func NewEngine(sender Sender, titler WindowTitler, logFunc, debugFunc func(string, ...interface{})) *Engine {
	if logFunc == nil {
		logFunc = func(string, ...interface{}) {}
	}
	if debugFunc == nil {
		debugFunc = func(string, ...interface{}) {}
	}
	return &Engine{
		sender:    sender,
		titler:    titler,
		logFunc:   logFunc,
		debugFunc: debugFunc,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// RequestSingleFire arms exactly one ranked send even while automation is
// off. The arm survives until a ranked key is actually sent.
func (e *Engine) RequestSingleFire() {
	e.mu.Lock()
	e.singleFire = true
	e.mu.Unlock()
}

// EstimatedGCD returns the median interval between recent sends, or zero
// when there is not enough data yet.
func (e *Engine) EstimatedGCD() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.intervals) < 3 {
		return 0
	}
	sorted := make([]time.Duration, len(e.intervals))
	copy(sorted, e.intervals)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return sorted[len(sorted)/2]
}

// windowActive reports whether sends are allowed: an empty target always
// allows, otherwise the foreground title must contain the target
// case-insensitively. A titler failure blocks rather than risking keys
// into the wrong application.
func (e *Engine) windowActive(target string) bool {
	target = strings.TrimSpace(target)
	if target == "" || e.titler == nil {
		return true
	}
	title, err := e.titler.ForegroundTitle()
	if err != nil {
		e.debugFunc("Foreground window check failed: %v", err)
		return false
	}
	return strings.Contains(strings.ToLower(title), strings.ToLower(target))
}

func findBlockingCast(state bar.ActionBarState) (bar.SlotSnapshot, bool) {
	for _, s := range state.Slots {
		if s.IsCasting() {
			return s, true
		}
	}
	return bar.SlotSnapshot{}, false
}

func (e *Engine) recordSend(now time.Time) {
	if !e.lastSend.IsZero() {
		iv := now.Sub(e.lastSend)
		if iv >= 500*time.Millisecond && iv <= 2500*time.Millisecond {
			e.intervals = append(e.intervals, iv)
			if len(e.intervals) > maxTrackedIntervals {
				e.intervals = e.intervals[1:]
			}
		}
	}
	e.lastSend = now
}

// Evaluate runs one dispatch cycle: at most one key press leaves this
// method. queuedSent reports that the queued entry was consumed and must be
// cleared by the caller. ok is false when nothing was sent or blocked.
func (e *Engine) Evaluate(
	state bar.ActionBarState,
	items []priority.Item,
	buffs map[string]bar.BuffState,
	queued *QueuedKey,
	settings Settings,
) (res Result, queuedSent bool, ok bool) {
	settings = settings.withDefaults()

	e.mu.Lock()
	defer e.mu.Unlock()

	singleFire := e.singleFire
	if !settings.AutomationEnabled && !singleFire {
		return Result{}, false, false
	}

	now := e.now()
	if now.Sub(e.lastSend) < settings.MinPressInterval {
		return Result{}, false, false
	}

	if !settings.AllowCastWhileCasting {
		if blocking, casting := findBlockingCast(state); casting {
			// Hold for a short grace past the estimated cast end; with no
			// estimate the cast blocks until the state clears.
			if blocking.CastEndsAt.IsZero() || now.Before(blocking.CastEndsAt.Add(settings.QueueWindow)) {
				return Result{
					Action:    "blocked",
					Reason:    "casting",
					SlotIndex: blocking.Index,
					Timestamp: now,
				}, false, true
			}
		}
	}

	if queued != nil {
		return e.evaluateQueued(state, items, queued, settings, now)
	}

	if now.Before(e.suppressUntil) {
		return Result{}, false, false
	}

	return e.evaluateRanked(state, items, buffs, settings, now, singleFire)
}

// evaluateQueued handles a pending queued key. A queued entry never falls
// through to a ranked send: either it fires or nothing does this cycle.
func (e *Engine) evaluateQueued(
	state bar.ActionBarState,
	items []priority.Item,
	queued *QueuedKey,
	settings Settings,
	now time.Time,
) (Result, bool, bool) {
	key := strings.TrimSpace(queued.Key)
	if key == "" {
		return Result{}, false, false
	}

	// The queued key fires only once some ranked slot reads READY: that is
	// the sign the global cooldown is over and the game accepts input.
	anyRankedReady := false
	for _, it := range items {
		it = priority.Normalize(it)
		if it.Kind != priority.KindSlot {
			continue
		}
		if slot, found := state.Slot(it.SlotIndex); found && slot.IsReady() {
			anyRankedReady = true
			break
		}
	}

	slotOK := true
	slotIndex := -1
	if queued.Source == "tracked" {
		slotIndex = queued.SlotIndex
		slot, found := state.Slot(queued.SlotIndex)
		slotOK = found && slot.IsReady()
	} else if queued.Source != "whitelist" {
		return Result{}, false, false
	}

	if !anyRankedReady || !slotOK || !e.windowActive(settings.TargetWindowTitle) {
		e.debugFunc("Queued key %q held: ranked_ready=%v slot_ok=%v", key, anyRankedReady, slotOK)
		return Result{}, false, false
	}

	if settings.QueueFireDelay > 0 {
		e.sleep(settings.QueueFireDelay)
	}
	if err := e.sender.Send(key); err != nil {
		e.logFunc("Queued send %q failed: %v", key, err)
		return Result{}, false, false
	}
	e.recordSend(now)
	e.suppressUntil = now.Add(settings.PostQueuedSuppress)
	e.logFunc("Sent queued key: %s", key)
	return Result{
		Action:    "sent",
		Keybind:   key,
		SlotIndex: slotIndex,
		Queued:    true,
		Timestamp: now,
	}, true, true
}

func (e *Engine) evaluateRanked(
	state bar.ActionBarState,
	items []priority.Item,
	buffs map[string]bar.BuffState,
	settings Settings,
	now time.Time,
	singleFire bool,
) (Result, bool, bool) {
	manualByID := make(map[string]ManualAction, len(settings.ManualActions))
	for _, a := range settings.ManualActions {
		id := strings.ToLower(strings.TrimSpace(a.ID))
		if id != "" {
			manualByID[id] = a
		}
	}

	for _, it := range items {
		it = priority.Normalize(it)
		if !priority.ItemEligible(it, state, buffs) {
			continue
		}

		keybind := ""
		displayName := "Unidentified"
		slotIndex := -1
		switch it.Kind {
		case priority.KindSlot:
			slotIndex = it.SlotIndex
			if slotIndex >= 0 && slotIndex < len(settings.SlotKeybinds) {
				keybind = settings.SlotKeybinds[slotIndex]
			}
			// Slot labels are 1-based in the UI.
			displayName = "Slot " + strconv.Itoa(slotIndex+1)
		case priority.KindManual:
			action, found := manualByID[strings.ToLower(strings.TrimSpace(it.ActionID))]
			if !found {
				continue
			}
			keybind = action.Keybind
			if name := strings.TrimSpace(action.Name); name != "" {
				displayName = name
			} else {
				displayName = "Manual Action"
			}
		}

		keybind = strings.TrimSpace(keybind)
		if keybind == "" {
			continue
		}

		if !e.windowActive(settings.TargetWindowTitle) {
			return Result{
				Action:      "blocked",
				Reason:      "window",
				Keybind:     keybind,
				DisplayName: displayName,
				ItemKind:    it.Kind,
				SlotIndex:   slotIndex,
				Timestamp:   now,
			}, false, true
		}

		if err := e.sender.Send(keybind); err != nil {
			e.logFunc("Send %q failed: %v", keybind, err)
			return Result{}, false, false
		}
		e.recordSend(now)
		if singleFire {
			e.singleFire = false
		}
		e.logFunc("Sent key: %s", keybind)
		return Result{
			Action:      "sent",
			Keybind:     keybind,
			DisplayName: displayName,
			ItemKind:    it.Kind,
			SlotIndex:   slotIndex,
			Timestamp:   now,
		}, false, true
	}

	return Result{}, false, false
}
