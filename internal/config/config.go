// Package config persists all tunable state as a TOML file: capture
// geometry, detection thresholds, keybinds, priority profiles, buff
// regions, and calibrated baselines.
package config

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/cabeard21/autommo-sub000/internal/bar"
	"github.com/cabeard21/autommo-sub000/internal/binds"
	"github.com/cabeard21/autommo-sub000/internal/constants"
	"github.com/cabeard21/autommo-sub000/internal/priority"
)

// Hotkey modes for the global automation bind.
const (
	HotkeyModeToggle     = "toggle"
	HotkeyModeSingleFire = "single_fire"
)

// SlotSettings describes the action bar grid.
type SlotSettings struct {
	Count     int `toml:"count"`
	GapPixels int `toml:"gap_pixels"`
	Padding   int `toml:"padding"`
	// Keybinds[i] is the bind for slot i; empty means unbound.
	Keybinds     []string `toml:"keybinds"`
	DisplayNames []string `toml:"display_names"`
}

// DetectionSettings are the readiness detector thresholds. Per-slot
// override maps are keyed by the slot index as a string (TOML requirement).
type DetectionSettings struct {
	PollingFPS               int                `toml:"polling_fps"`
	BrightnessDropThreshold  int                `toml:"brightness_drop_threshold"`
	CooldownPixelFraction    float64            `toml:"cooldown_pixel_fraction"`
	CooldownMinDurationMS    int                `toml:"cooldown_min_duration_ms"`
	CooldownReleaseFactor    float64            `toml:"cooldown_release_factor"`
	CooldownReleaseConfirmMS int                `toml:"cooldown_release_confirm_ms"`
	DetectionRegion          string             `toml:"detection_region"`
	DropThresholdBySlot      map[string]int     `toml:"drop_threshold_by_slot"`
	FractionBySlot           map[string]float64 `toml:"fraction_by_slot"`
	RegionBySlot             map[string]string  `toml:"region_by_slot"`
	AllowCastWhileCasting    bool               `toml:"allow_cast_while_casting"`
	LockReadyWhileCasting    bool               `toml:"lock_ready_while_cast_bar_active"`
	QueueWindowMS            int                `toml:"queue_window_ms"`
}

// GlowSettings tune the ability-glow ring detector.
type GlowSettings struct {
	Enabled               bool               `toml:"enabled"`
	RingThickness         int                `toml:"ring_thickness"`
	ValueDelta            int                `toml:"value_delta"`
	ValueDeltaBySlot      map[string]int     `toml:"value_delta_by_slot"`
	SaturationMin         int                `toml:"saturation_min"`
	RingFraction          float64            `toml:"ring_fraction"`
	RingFractionBySlot    map[string]float64 `toml:"ring_fraction_by_slot"`
	RedRingFraction       float64            `toml:"red_ring_fraction"`
	YellowHueMin          int                `toml:"yellow_hue_min"`
	YellowHueMax          int                `toml:"yellow_hue_max"`
	RedHueMaxLow          int                `toml:"red_hue_max_low"`
	RedHueMinHigh         int                `toml:"red_hue_min_high"`
	ConfirmFrames         int                `toml:"confirm_frames"`
	OverrideCooldownSlots []int              `toml:"override_cooldown_slots"`
}

// QueueSettings tune the manual spell queue.
type QueueSettings struct {
	Whitelist   []string `toml:"whitelist"`
	TimeoutMS   int      `toml:"timeout_ms"`
	FireDelayMS int      `toml:"fire_delay_ms"`
}

// ManualAction is a persisted named key press.
type ManualAction struct {
	ID      string `toml:"id"`
	Name    string `toml:"name"`
	Keybind string `toml:"keybind"`
}

// Profile bundles a priority list with its manual actions under a name so
// users can switch loadouts without re-ranking.
type Profile struct {
	Name          string          `toml:"name"`
	Items         []priority.Item `toml:"items"`
	ManualActions []ManualAction  `toml:"manual_actions"`
}

// BuffROISettings is the persisted form of one buff region, template
// included as base64 grayscale bytes.
type BuffROISettings struct {
	ID             string  `toml:"id"`
	Name           string  `toml:"name"`
	Enabled        bool    `toml:"enabled"`
	Left           int     `toml:"left"`
	Top            int     `toml:"top"`
	Width          int     `toml:"width"`
	Height         int     `toml:"height"`
	MatchThreshold float64 `toml:"match_threshold"`
	ConfirmFrames  int     `toml:"confirm_frames"`
	TemplateWidth  int     `toml:"template_width"`
	TemplateHeight int     `toml:"template_height"`
	TemplateData   string  `toml:"template_data"`
}

// BaselineBlob is one slot's persisted calibration baseline.
type BaselineBlob struct {
	Slot   int    `toml:"slot"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Data   string `toml:"data"`
}

// Config is the whole persisted application state.
type Config struct {
	Monitor int             `toml:"monitor_index"`
	Box     bar.BoundingBox `toml:"bounding_box"`

	Slots     SlotSettings      `toml:"slots"`
	Detection DetectionSettings `toml:"detection"`
	Glow      GlowSettings      `toml:"glow"`
	Queue     QueueSettings     `toml:"queue"`

	AutomationEnabled    bool   `toml:"automation_enabled"`
	AutomationToggleBind string `toml:"automation_toggle_bind"`
	AutomationHotkeyMode string `toml:"automation_hotkey_mode"`
	MinPressIntervalMS   int    `toml:"min_press_interval_ms"`
	TargetWindowTitle    string `toml:"target_window_title"`

	ActiveProfile string    `toml:"active_profile"`
	Profiles      []Profile `toml:"profiles"`

	BuffROIs  []BuffROISettings `toml:"buff_rois"`
	Baselines []BaselineBlob    `toml:"slot_baselines"`
}

// Default returns a config with the stock thresholds and one empty profile.
func Default() Config {
	return Config{
		Monitor: 0,
		Box:     bar.BoundingBox{Top: 900, Left: 500, Width: 400, Height: 50},
		Slots: SlotSettings{
			Count:     10,
			GapPixels: 2,
			Padding:   3,
			Keybinds:  make([]string, 10),
		},
		Detection: DetectionSettings{
			PollingFPS:               constants.DefaultPollingFPS,
			BrightnessDropThreshold:  constants.DefaultBrightnessDropThreshold,
			CooldownPixelFraction:    constants.DefaultCooldownPixelFraction,
			CooldownMinDurationMS:    int(constants.CooldownMinDuration / time.Millisecond),
			CooldownReleaseFactor:    constants.CooldownReleaseFactor,
			CooldownReleaseConfirmMS: int(constants.CooldownReleaseConfirm / time.Millisecond),
			DetectionRegion:          "top_left",
			QueueWindowMS:            int(constants.QueueWindow / time.Millisecond),
		},
		Glow: GlowSettings{
			Enabled:         true,
			RingThickness:   constants.GlowRingThickness,
			ValueDelta:      constants.GlowValueDelta,
			SaturationMin:   constants.GlowSaturationMin,
			RingFraction:    constants.GlowRingFraction,
			RedRingFraction: constants.GlowRingFraction,
			YellowHueMin:    18,
			YellowHueMax:    42,
			RedHueMaxLow:    12,
			RedHueMinHigh:   168,
			ConfirmFrames:   constants.GlowConfirmFrames,
		},
		Queue: QueueSettings{
			TimeoutMS:   int(constants.QueueTimeout / time.Millisecond),
			FireDelayMS: int(constants.QueueFireDelay / time.Millisecond),
		},
		AutomationHotkeyMode: HotkeyModeToggle,
		MinPressIntervalMS:   int(constants.MinPressInterval / time.Millisecond),
		ActiveProfile:        "Default",
		Profiles:             []Profile{{Name: "Default"}},
	}
}

// Load reads a config file. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes the config atomically (temp file then rename).
func (c *Config) Save(path string) error {
	c.Normalize()
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// Normalize clamps thresholds into their valid ranges, canonicalizes
// binds and profile items, and guarantees an active profile exists.
func (c *Config) Normalize() {
	if c.Slots.Count < 1 {
		c.Slots.Count = 1
	}
	if c.Slots.Count > 24 {
		c.Slots.Count = 24
	}
	if c.Slots.GapPixels < 0 {
		c.Slots.GapPixels = 0
	}
	if c.Slots.Padding < 0 {
		c.Slots.Padding = 0
	}
	for len(c.Slots.Keybinds) < c.Slots.Count {
		c.Slots.Keybinds = append(c.Slots.Keybinds, "")
	}
	c.Slots.Keybinds = c.Slots.Keybinds[:c.Slots.Count]
	for i, b := range c.Slots.Keybinds {
		c.Slots.Keybinds[i] = binds.Normalize(b)
	}

	if c.Detection.PollingFPS < 1 {
		c.Detection.PollingFPS = constants.DefaultPollingFPS
	}
	if c.Detection.PollingFPS > constants.MaxPollingFPS {
		c.Detection.PollingFPS = constants.MaxPollingFPS
	}
	if c.Detection.BrightnessDropThreshold < 1 {
		c.Detection.BrightnessDropThreshold = constants.DefaultBrightnessDropThreshold
	}
	if c.Detection.BrightnessDropThreshold > 255 {
		c.Detection.BrightnessDropThreshold = 255
	}
	if c.Detection.CooldownPixelFraction <= 0 || c.Detection.CooldownPixelFraction > 1 {
		c.Detection.CooldownPixelFraction = constants.DefaultCooldownPixelFraction
	}
	if c.Detection.DetectionRegion != "full" && c.Detection.DetectionRegion != "top_left" {
		c.Detection.DetectionRegion = "top_left"
	}
	if c.Detection.CooldownReleaseFactor <= 0 || c.Detection.CooldownReleaseFactor > 1 {
		c.Detection.CooldownReleaseFactor = constants.CooldownReleaseFactor
	}

	if c.MinPressIntervalMS < 10 {
		c.MinPressIntervalMS = int(constants.MinPressInterval / time.Millisecond)
	}
	if c.AutomationHotkeyMode != HotkeyModeSingleFire {
		c.AutomationHotkeyMode = HotkeyModeToggle
	}
	c.AutomationToggleBind = binds.Normalize(c.AutomationToggleBind)

	if c.Queue.TimeoutMS < 100 {
		c.Queue.TimeoutMS = int(constants.QueueTimeout / time.Millisecond)
	}
	if c.Queue.FireDelayMS < 0 {
		c.Queue.FireDelayMS = 0
	}
	for i, w := range c.Queue.Whitelist {
		c.Queue.Whitelist[i] = binds.NormalizeToken(w)
	}

	if len(c.Profiles) == 0 {
		c.Profiles = []Profile{{Name: "Default"}}
	}
	for pi := range c.Profiles {
		p := &c.Profiles[pi]
		if strings.TrimSpace(p.Name) == "" {
			p.Name = "Profile " + strconv.Itoa(pi+1)
		}
		for ii := range p.Items {
			p.Items[ii] = priority.Normalize(p.Items[ii])
		}
		for ai := range p.ManualActions {
			a := &p.ManualActions[ai]
			a.ID = strings.ToLower(strings.TrimSpace(a.ID))
			a.Keybind = binds.Normalize(a.Keybind)
		}
	}
	if c.ProfileByName(c.ActiveProfile) == nil {
		c.ActiveProfile = c.Profiles[0].Name
	}

	for bi := range c.BuffROIs {
		roi := &c.BuffROIs[bi]
		roi.ID = strings.ToLower(strings.TrimSpace(roi.ID))
		if roi.MatchThreshold <= 0 || roi.MatchThreshold > 1 {
			roi.MatchThreshold = 0.88
		}
		if roi.ConfirmFrames < 1 {
			roi.ConfirmFrames = 2
		}
	}
}

// ProfileByName returns the named profile, or nil.
func (c *Config) ProfileByName(name string) *Profile {
	for i := range c.Profiles {
		if c.Profiles[i].Name == name {
			return &c.Profiles[i]
		}
	}
	return nil
}

// Active returns the active profile, falling back to the first.
func (c *Config) Active() *Profile {
	if p := c.ProfileByName(c.ActiveProfile); p != nil {
		return p
	}
	if len(c.Profiles) == 0 {
		c.Profiles = []Profile{{Name: "Default"}}
	}
	return &c.Profiles[0]
}

func intKeyedInts(m map[string]int) map[int]int {
	if len(m) == 0 {
		return nil
	}
	out := make(map[int]int, len(m))
	for k, v := range m {
		if i, err := strconv.Atoi(k); err == nil {
			out[i] = v
		}
	}
	return out
}

func intKeyedFloats(m map[string]float64) map[int]float64 {
	if len(m) == 0 {
		return nil
	}
	out := make(map[int]float64, len(m))
	for k, v := range m {
		if i, err := strconv.Atoi(k); err == nil {
			out[i] = v
		}
	}
	return out
}

func intKeyedStrings(m map[string]string) map[int]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[int]string, len(m))
	for k, v := range m {
		if i, err := strconv.Atoi(k); err == nil {
			out[i] = v
		}
	}
	return out
}

// DetectorConfig converts the persisted settings into the detector's form,
// decoding buff templates along the way.
func (c *Config) DetectorConfig() bar.DetectorConfig {
	rois := make([]bar.BuffROI, 0, len(c.BuffROIs))
	for _, s := range c.BuffROIs {
		roi := bar.BuffROI{
			ID:             s.ID,
			Name:           s.Name,
			Enabled:        s.Enabled,
			Left:           s.Left,
			Top:            s.Top,
			Width:          s.Width,
			Height:         s.Height,
			MatchThreshold: s.MatchThreshold,
			ConfirmFrames:  s.ConfirmFrames,
		}
		if s.TemplateData != "" && s.TemplateWidth > 0 && s.TemplateHeight > 0 {
			if data, err := base64.StdEncoding.DecodeString(s.TemplateData); err == nil &&
				len(data) == s.TemplateWidth*s.TemplateHeight {
				roi.Template = bar.GrayImage{Width: s.TemplateWidth, Height: s.TemplateHeight, Pix: data}
			}
		}
		rois = append(rois, roi)
	}

	return bar.DetectorConfig{
		Box:                       c.Box,
		SlotCount:                 c.Slots.Count,
		SlotGap:                   c.Slots.GapPixels,
		SlotPadding:               c.Slots.Padding,
		BrightnessDropThreshold:   c.Detection.BrightnessDropThreshold,
		CooldownPixelFraction:     c.Detection.CooldownPixelFraction,
		DropThresholdBySlot:       intKeyedInts(c.Detection.DropThresholdBySlot),
		CooldownFractionBySlot:    intKeyedFloats(c.Detection.FractionBySlot),
		DetectionRegion:           c.Detection.DetectionRegion,
		DetectionRegionBySlot:     intKeyedStrings(c.Detection.RegionBySlot),
		CooldownMinDuration:       time.Duration(c.Detection.CooldownMinDurationMS) * time.Millisecond,
		CooldownReleaseFactor:     c.Detection.CooldownReleaseFactor,
		CooldownReleaseConfirm:    time.Duration(c.Detection.CooldownReleaseConfirmMS) * time.Millisecond,
		GlowEnabled:               c.Glow.Enabled,
		GlowRingThickness:         c.Glow.RingThickness,
		GlowValueDelta:            c.Glow.ValueDelta,
		GlowValueDeltaBySlot:      intKeyedInts(c.Glow.ValueDeltaBySlot),
		GlowSaturationMin:         c.Glow.SaturationMin,
		GlowRingFraction:          c.Glow.RingFraction,
		GlowRingFractionBySlot:    intKeyedFloats(c.Glow.RingFractionBySlot),
		GlowRedRingFraction:       c.Glow.RedRingFraction,
		GlowYellowHueMin:          c.Glow.YellowHueMin,
		GlowYellowHueMax:          c.Glow.YellowHueMax,
		GlowRedHueMaxLow:          c.Glow.RedHueMaxLow,
		GlowRedHueMinHigh:         c.Glow.RedHueMinHigh,
		GlowConfirmFrames:         c.Glow.ConfirmFrames,
		GlowOverrideCooldownSlots: append([]int(nil), c.Glow.OverrideCooldownSlots...),
		LockReadyWhileCasting:     c.Detection.LockReadyWhileCasting,
		BuffROIs:                  rois,
	}
}

// SetBuffTemplate stores a captured template on the matching ROI entry.
func (c *Config) SetBuffTemplate(id string, img bar.GrayImage) bool {
	id = strings.ToLower(strings.TrimSpace(id))
	for i := range c.BuffROIs {
		if c.BuffROIs[i].ID != id {
			continue
		}
		c.BuffROIs[i].TemplateWidth = img.Width
		c.BuffROIs[i].TemplateHeight = img.Height
		c.BuffROIs[i].TemplateData = base64.StdEncoding.EncodeToString(img.Pix)
		return true
	}
	return false
}

// EncodeBaselines replaces the stored baseline blobs with the given table.
func (c *Config) EncodeBaselines(baselines map[int]bar.GrayImage) {
	c.Baselines = c.Baselines[:0]
	for slot, img := range baselines {
		if img.Empty() {
			continue
		}
		c.Baselines = append(c.Baselines, BaselineBlob{
			Slot:   slot,
			Width:  img.Width,
			Height: img.Height,
			Data:   base64.StdEncoding.EncodeToString(img.Pix),
		})
	}
	sort.Slice(c.Baselines, func(i, j int) bool {
		return c.Baselines[i].Slot < c.Baselines[j].Slot
	})
}

// DecodeBaselines rebuilds the baseline table from the stored blobs,
// silently skipping corrupt entries.
func (c *Config) DecodeBaselines() map[int]bar.GrayImage {
	out := make(map[int]bar.GrayImage, len(c.Baselines))
	for _, blob := range c.Baselines {
		data, err := base64.StdEncoding.DecodeString(blob.Data)
		if err != nil || len(data) != blob.Width*blob.Height || blob.Width <= 0 {
			continue
		}
		out[blob.Slot] = bar.GrayImage{Width: blob.Width, Height: blob.Height, Pix: data}
	}
	return out
}
