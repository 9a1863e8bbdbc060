package constants

import "time"

// Global Watcher Configuration
const (
	// Capture
	DefaultPollingFPS = 20 // Frames per second the action bar is sampled at
	MaxPollingFPS     = 60

	// Cooldown Detection
	DefaultBrightnessDropThreshold = 40                     // 0-255 brightness drop for a pixel to count as darkened
	DefaultCooldownPixelFraction   = 0.30                   // Fraction of darkened pixels for ON_COOLDOWN
	CooldownMinDuration            = 2 * time.Second        // Darkening shorter than this reads as GCD
	CooldownReleaseFactor          = 0.70                   // Release threshold = entry threshold * factor
	CooldownReleaseConfirm         = 260 * time.Millisecond // Release must hold this long

	// Glow Detection
	GlowRingThickness = 4
	GlowValueDelta    = 35
	GlowSaturationMin = 80
	GlowRingFraction  = 0.18
	GlowConfirmFrames = 2

	// Dispatch
	MinPressInterval   = 150 * time.Millisecond  // Floor between synthetic presses
	QueueWindow        = 120 * time.Millisecond  // Casting-block grace past the estimated cast end
	QueueFireDelay     = 100 * time.Millisecond  // Wait before a queued send (visual ready runs a frame early)
	PostQueuedSuppress = 1500 * time.Millisecond // Hold ranked sends for one GCD after a queued send

	// Spell Queue
	QueueTimeout = 5 * time.Second // A queued press older than this is dropped

	// Shutdown
	StopWaitTimeout = 2 * time.Second // Max wait for background goroutines on Stop

	// Logging
	MaxLogLines   = 100
	LogTimeFormat = "15:04:05"
)
