package binds

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Control + 1", "ctrl+1"},
		{"ctrl+shift+1", "ctrl+shift+1"},
		{"Shift + Ctrl + 1", "ctrl+shift+1"},
		{"ALT+F4", "alt+f4"},
		{"1", "1"},
		{"Esc", "escape"},
		{"Return", "enter"},
		{"PgUp", "page up"},
		{"spacebar", "space"},
		{"Left Shift + a", "shift+a"},
		{"ctrl_l + x", "ctrl+x"},
		{"", ""},
		{"ctrl", ""},       // modifier only, no primary
		{"ctrl+shift", ""}, // modifiers only
		{"1+2", ""},        // two primary keys
		{"a+b", ""},        // two primary keys
		{"ctrl+1+2", ""},   // two primary keys with modifier
		{" + ", ""},
		{"x1", "x1"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "Normalize(%q)", tc.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Control + 1", "ctrl+shift+f12", "ALT+Return", "junk+more", "q", ""}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "Normalize not idempotent for %q", in)
	}
}

func TestDisplayRoundTripStable(t *testing.T) {
	// normalize(format(normalize(x))) must equal normalize(x) for any x
	// that normalizes to a non-empty bind.
	inputs := []string{"Control + 1", "shift+f5", "alt+page up", "x1", "ctrl+shift+alt+z", "Middle"}
	for _, in := range inputs {
		n := Normalize(in)
		if n == "" {
			continue
		}
		assert.Equal(t, n, Normalize(FormatForDisplay(n)), "display round trip for %q", in)
	}
}

func TestFormatForDisplay(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ctrl+1", "Ctrl+1"},
		{"ctrl+shift+f12", "Ctrl+Shift+F12"},
		{"x1", "Mouse 4"},
		{"x2", "Mouse 5"},
		{"left", "LMB"},
		{"page up", "Page up"},
		{"", "Set"},
		{"ctrl", "Set"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatForDisplay(tc.in), "FormatForDisplay(%q)", tc.in)
	}
}

func TestParse(t *testing.T) {
	mods, primary, ok := Parse("Shift + Ctrl + F")
	assert.True(t, ok)
	assert.Equal(t, "f", primary)
	assert.Equal(t, map[string]bool{"ctrl": true, "shift": true}, mods)

	_, _, ok = Parse("ctrl+shift")
	assert.False(t, ok)
	_, _, ok = Parse("")
	assert.False(t, ok)
}

func TestNormalizeFromParts(t *testing.T) {
	assert.Equal(t, "ctrl+alt+t", NormalizeFromParts(map[string]bool{"Alt": true, "Control": true}, "T"))
	assert.Equal(t, "5", NormalizeFromParts(nil, "5"))
	assert.Equal(t, "", NormalizeFromParts(map[string]bool{"ctrl": true}, "shift"))
	assert.Equal(t, "", NormalizeFromParts(nil, ""))
}

func TestIsModifier(t *testing.T) {
	assert.True(t, IsModifier("Left Ctrl"))
	assert.True(t, IsModifier("altgr"))
	assert.False(t, IsModifier("f5"))
	assert.False(t, IsModifier(""))
}
