// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package main

import (
	"testing"

	"motionhost/pkg/config"
	"motionhost/pkg/motion"
)

func TestDrainTimingFromBoard(t *testing.T) {
	timing := drainTiming(config.DefaultBoardTiming())

	if timing.PulseWidth != 2e-6 {
		t.Errorf("pulse width = %g, want board minimum 2e-6", timing.PulseWidth)
	}
	if timing.StepInterval != 2e-6 {
		t.Errorf("step interval = %g, want 1/500000", timing.StepInterval)
	}
	if timing.DirSetup != 1e-6 {
		t.Errorf("dir setup = %g, want half a pulse", timing.DirSetup)
	}

	// A slower board stretches the step interval accordingly.
	slow := config.BoardTiming{MaxStepRate: 100000, MinPulseWidth: 4e-6, Baud: 250000}
	timing = drainTiming(slow)
	if timing.StepInterval != 1e-5 {
		t.Errorf("step interval = %g, want 1e-5", timing.StepInterval)
	}
	if timing.PulseWidth != 4e-6 || timing.DirSetup != 2e-6 {
		t.Errorf("pulse/dir = %g/%g, want 4e-6/2e-6", timing.PulseWidth, timing.DirSetup)
	}
}

func TestParseMode(t *testing.T) {
	for name, want := range map[string]motion.Mode{
		"basic":       motion.ModeBasic,
		"adaptive":    motion.ModeAdaptive,
		"snapcrackle": motion.ModeSnapCrackle,
	} {
		got, err := parseMode(name)
		if err != nil {
			t.Fatalf("parseMode(%q): %v", name, err)
		}
		if got != want {
			t.Errorf("parseMode(%q) = %v, want %v", name, got, want)
		}
	}
	if _, err := parseMode("warp"); err == nil {
		t.Error("unknown mode should be rejected")
	}
}
