// Package binds parses, normalizes, and formats keybind strings.
//
// The canonical form is lowercase tokens joined by "+", with modifiers
// ordered ctrl, shift, alt and exactly one primary key at the end
// (e.g. "ctrl+shift+1"). The empty string means "unbound".
package binds

import "strings"

// Modifier order in a canonical bind.
var modOrder = [...]string{"ctrl", "shift", "alt"}

var modAliases = map[string]string{
	"ctrl":          "ctrl",
	"control":       "ctrl",
	"left ctrl":     "ctrl",
	"right ctrl":    "ctrl",
	"ctrl l":        "ctrl",
	"ctrl r":        "ctrl",
	"left control":  "ctrl",
	"right control": "ctrl",
	"shift":         "shift",
	"left shift":    "shift",
	"right shift":   "shift",
	"shift l":       "shift",
	"shift r":       "shift",
	"alt":           "alt",
	"left alt":      "alt",
	"right alt":     "alt",
	"alt l":         "alt",
	"alt r":         "alt",
	"alt gr":        "alt",
	"altgr":         "alt",
}

var keyAliases = map[string]string{
	"esc":      "escape",
	"return":   "enter",
	"pgup":     "page up",
	"pageup":   "page up",
	"pgdn":     "page down",
	"pagedown": "page down",
	"ins":      "insert",
	"del":      "delete",
	"spacebar": "space",

	// Reverse of mouseDisplayNames, so displayed binds normalize back.
	"mouse 4": "x1",
	"mouse 5": "x2",
	"lmb":     "left",
	"rmb":     "right",
	"mmb":     "middle",
}

var mouseDisplayNames = map[string]string{
	"x1":     "Mouse 4",
	"x2":     "Mouse 5",
	"left":   "LMB",
	"right":  "RMB",
	"middle": "MMB",
}

// NormalizeToken normalizes one key token (modifier or primary key) to
// canonical lowercase. Unknown tokens pass through lowercased.
func NormalizeToken(token string) string {
	t := strings.ToLower(strings.TrimSpace(token))
	t = strings.ReplaceAll(t, "_", " ")
	t = strings.Join(strings.Fields(t), " ")
	if t == "" {
		return ""
	}
	if m, ok := modAliases[t]; ok {
		return m
	}
	if k, ok := keyAliases[t]; ok {
		return k
	}
	return t
}

// IsModifier reports whether token normalizes to ctrl, shift, or alt.
func IsModifier(token string) bool {
	t := NormalizeToken(token)
	for _, m := range modOrder {
		if t == m {
			return true
		}
	}
	return false
}

// NormalizeFromParts builds a canonical bind from explicit modifiers and a
// primary key. Returns "" when the primary key is empty or itself a modifier.
func NormalizeFromParts(modifiers map[string]bool, primary string) string {
	key := NormalizeToken(primary)
	if key == "" || IsModifier(key) {
		return ""
	}
	have := make(map[string]bool, len(modifiers))
	for m := range modifiers {
		n := NormalizeToken(m)
		if IsModifier(n) {
			have[n] = true
		}
	}
	parts := make([]string, 0, len(have)+1)
	for _, m := range modOrder {
		if have[m] {
			parts = append(parts, m)
		}
	}
	parts = append(parts, key)
	return strings.Join(parts, "+")
}

// Normalize canonicalizes a free-form bind string
// (e.g. "Control + 1" -> "ctrl+1"). Inputs with no primary key, or more
// than one primary key, normalize to "".
func Normalize(bind string) string {
	if bind == "" {
		return ""
	}
	mods := make(map[string]bool)
	primary := ""
	for _, raw := range strings.Split(bind, "+") {
		part := NormalizeToken(raw)
		if part == "" {
			continue
		}
		if IsModifier(part) {
			mods[part] = true
			continue
		}
		if primary != "" {
			return ""
		}
		primary = part
	}
	return NormalizeFromParts(mods, primary)
}

// Parse splits a bind into its modifier set and primary key.
// ok is false for invalid or empty binds.
func Parse(bind string) (modifiers map[string]bool, primary string, ok bool) {
	normalized := Normalize(bind)
	if normalized == "" {
		return nil, "", false
	}
	parts := strings.Split(normalized, "+")
	primary = parts[len(parts)-1]
	modifiers = make(map[string]bool, len(parts)-1)
	for _, m := range parts[:len(parts)-1] {
		modifiers[m] = true
	}
	return modifiers, primary, true
}

// FormatForDisplay converts a stored bind string into UI display text.
// Unbound returns "Set" (the button label prompting the user to record one).
func FormatForDisplay(bind string) string {
	normalized := Normalize(bind)
	if normalized == "" {
		return "Set"
	}
	parts := strings.Split(normalized, "+")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		switch {
		case part == "ctrl":
			tokens = append(tokens, "Ctrl")
		case part == "shift":
			tokens = append(tokens, "Shift")
		case part == "alt":
			tokens = append(tokens, "Alt")
		case mouseDisplayNames[part] != "":
			tokens = append(tokens, mouseDisplayNames[part])
		case isFunctionKey(part):
			tokens = append(tokens, strings.ToUpper(part))
		case len(part) <= 2:
			tokens = append(tokens, strings.ToUpper(part))
		default:
			tokens = append(tokens, strings.ToUpper(part[:1])+part[1:])
		}
	}
	return strings.Join(tokens, "+")
}

func isFunctionKey(part string) bool {
	if len(part) < 2 || part[0] != 'f' {
		return false
	}
	for _, c := range part[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
