// debug_detect runs the readiness detector over saved screenshots so
// thresholds can be tuned without the game running.
//
// Usage:
//
//	debug_detect -config config.toml -baseline baseline.png frame1.png frame2.png
//
// The baseline image calibrates every slot; each frame argument is then
// analyzed and its per-slot readings printed.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"sort"

	"github.com/cabeard21/autommo-sub000/internal/bar"
	"github.com/cabeard21/autommo-sub000/internal/config"
)

func main() {
	cfgPath := flag.String("config", "config.toml", "config file to take layout and thresholds from")
	baselinePath := flag.String("baseline", "", "screenshot of the bar with every ability ready")
	verbose := flag.Bool("v", false, "print detector debug output")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	detector := bar.NewDetector(cfg.DetectorConfig())
	if *verbose {
		detector.SetDebugFunc(func(format string, args ...interface{}) {
			fmt.Printf("[debug] "+format+"\n", args...)
		})
	}

	if *baselinePath == "" {
		fmt.Println("A -baseline image is required")
		os.Exit(1)
	}
	baseline, err := loadFrame(*baselinePath)
	if err != nil {
		fmt.Printf("Failed to load baseline: %v\n", err)
		os.Exit(1)
	}
	detector.Calibrate(baseline)
	fmt.Printf("Calibrated %d slots from %s (%dx%d)\n",
		cfg.Slots.Count, *baselinePath, baseline.Width, baseline.Height)

	if flag.NArg() == 0 {
		fmt.Println("No frames given, analyzing the baseline against itself")
		printAnalysis(detector, baseline, "baseline")
		return
	}

	for _, path := range flag.Args() {
		frame, err := loadFrame(path)
		if err != nil {
			fmt.Printf("Failed to load %s: %v\n", path, err)
			continue
		}
		printAnalysis(detector, frame, path)
	}
}

func printAnalysis(detector *bar.Detector, frame bar.Frame, name string) {
	state := detector.Analyze(frame)
	fmt.Printf("\n=== %s ===\n", name)
	for _, slot := range state.Slots {
		line := fmt.Sprintf("  slot %2d: %-11s darkened=%.2f", slot.Index+1, slot.State, slot.DarkenedFraction)
		if slot.GlowCandidate {
			glow := "yellow"
			if slot.RedGlowReady {
				glow = "red"
			}
			line += fmt.Sprintf(" glow=%s (%.2f, confirmed=%v)", glow, slot.GlowFraction, slot.GlowReady)
		}
		fmt.Println(line)
	}

	buffs := detector.BuffStates()
	if len(buffs) == 0 {
		return
	}
	ids := make([]string, 0, len(buffs))
	for id := range buffs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		b := buffs[id]
		fmt.Printf("  buff %s: present=%v similarity=%.3f status=%s red_glow=%v\n",
			id, b.Present, b.Similarity, b.Status, b.RedGlowReady)
	}
}

func loadFrame(path string) (bar.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return bar.Frame{}, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return bar.Frame{}, err
	}
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(img.Bounds())
		draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	}
	return bar.FrameFromRGBA(rgba), nil
}
