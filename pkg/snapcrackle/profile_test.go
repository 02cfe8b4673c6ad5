package snapcrackle

import (
	"context"
	"math"
	"testing"

	"motionhost/pkg/config"
)

func TestPhaseSumEqualsTotalTime(t *testing.T) {
	cfg := config.DefaultSnapCrackleConfig()

	for _, distance := range []float64{1, 42.5, 100, 1234.5} {
		p, err := Solve(0, 0, distance, cfg)
		if err != nil {
			t.Fatalf("Solve(%g): %v", distance, err)
		}

		want := distance / p.VLimit
		if math.Abs(p.PhaseSum()-want) > 1e-9*want {
			t.Errorf("distance %g: phase sum %g, want %g", distance, p.PhaseSum(), want)
		}
		if math.Abs(p.TotalTime-want) > 1e-12 {
			t.Errorf("distance %g: TotalTime %g, want %g", distance, p.TotalTime, want)
		}
	}
}

func TestPhasesEqualDuration(t *testing.T) {
	p, err := Solve(0, 0, 50, config.DefaultSnapCrackleConfig())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	want := p.TotalTime / NumPhases
	for i, ph := range p.Phases {
		if math.Abs(ph.Duration-want) > 1e-15 {
			t.Errorf("phase %d duration %g, want %g", i, ph.Duration, want)
		}
	}
}

func TestBindingVelocity(t *testing.T) {
	// With a very low accel limit, sqrt(accel) binds below max velocity
	cfg := config.SnapCrackleConfig{
		MaxVelocity: 300,
		MaxAccel:    25, // v_1 = sqrt(25) = 5
		MaxJerk:     1e6,
		MaxSnap:     1e8,
		MaxCrackle:  1e10,
	}
	p, err := Solve(0, 0, 100, cfg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if math.Abs(p.VLimit-5) > 1e-12 {
		t.Errorf("VLimit = %g, want 5 (accel-bound)", p.VLimit)
	}

	// With generous derivative limits the configured velocity binds
	p, err = Solve(0, 0, 100, config.SnapCrackleConfig{
		MaxVelocity: 10, MaxAccel: 1e6, MaxJerk: 1e9, MaxSnap: 1e12, MaxCrackle: 1e15,
	})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if p.VLimit != 10 {
		t.Errorf("VLimit = %g, want configured 10", p.VLimit)
	}
}

func TestCracklePattern(t *testing.T) {
	if len(cracklePattern) != NumPhases {
		t.Fatalf("pattern length %d, want %d", len(cracklePattern), NumPhases)
	}

	// The pattern is antisymmetric and sums to zero
	sum := 0.0
	for i, v := range cracklePattern {
		sum += v
		if v != 0 && v != 1 && v != -1 {
			t.Fatalf("pattern[%d] = %g, want -1, 0, or 1", i, v)
		}
	}
	if sum != 0 {
		t.Errorf("pattern sum = %g, want 0", sum)
	}
}

func TestQueriesWalkPhases(t *testing.T) {
	cfg := config.DefaultSnapCrackleConfig()
	p, err := Solve(5, 8, 100, cfg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	dt := p.TotalTime / NumPhases

	// Mid-phase queries return that phase's constant rate
	for _, i := range []int{0, 7, 15, 30} {
		tm := (float64(i) + 0.5) * dt
		if got := p.VelocityAt(tm); got != p.Phases[i].Velocity {
			t.Errorf("VelocityAt(phase %d) = %g, want %g", i, got, p.Phases[i].Velocity)
		}
		if got := p.CrackleAt(tm); got != p.Phases[i].Crackle {
			t.Errorf("CrackleAt(phase %d) = %g, want %g", i, got, p.Phases[i].Crackle)
		}
		if got := p.SnapAt(tm); got != p.Phases[i].Snap {
			t.Errorf("SnapAt(phase %d) = %g, want %g", i, got, p.Phases[i].Snap)
		}
		if got := p.JerkAt(tm); got != p.Phases[i].Jerk {
			t.Errorf("JerkAt(phase %d) = %g, want %g", i, got, p.Phases[i].Jerk)
		}
	}

	// Past the last phase: end velocity, zero derivatives
	after := p.TotalTime * 1.5
	if got := p.VelocityAt(after); got != 8 {
		t.Errorf("VelocityAt(past end) = %g, want end velocity 8", got)
	}
	if p.AccelerationAt(after) != 0 || p.JerkAt(after) != 0 || p.CrackleAt(after) != 0 {
		t.Error("derivatives past the end should be zero")
	}
}

func TestVelocityEndpointsAndPeak(t *testing.T) {
	p, err := Solve(5, 8, 100, config.DefaultSnapCrackleConfig())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	if p.Phases[0].Velocity != 5 {
		t.Errorf("first phase velocity = %g, want start 5", p.Phases[0].Velocity)
	}
	if got := p.Phases[NumPhases-1].Velocity; math.Abs(got-8) > 1e-9 {
		t.Errorf("last phase velocity = %g, want end 8", got)
	}

	peak := 0.0
	for _, ph := range p.Phases {
		if ph.Velocity > peak {
			peak = ph.Velocity
		}
	}
	if math.Abs(peak-p.VLimit) > 1e-12 {
		t.Errorf("peak velocity = %g, want VLimit %g", peak, p.VLimit)
	}
}

func TestDerivativesWithinLimits(t *testing.T) {
	cfg := config.DefaultSnapCrackleConfig()
	p, err := Solve(0, 0, 100, cfg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}

	for i, ph := range p.Phases {
		if math.Abs(ph.Crackle) > cfg.MaxCrackle*(1+1e-9) {
			t.Errorf("phase %d crackle %g exceeds limit", i, ph.Crackle)
		}
		if math.Abs(ph.Snap) > cfg.MaxSnap*(1+1e-9) {
			t.Errorf("phase %d snap %g exceeds limit", i, ph.Snap)
		}
		if math.Abs(ph.Jerk) > cfg.MaxJerk*(1+1e-9) {
			t.Errorf("phase %d jerk %g exceeds limit", i, ph.Jerk)
		}
		if math.Abs(ph.Accel) > cfg.MaxAccel*(1+1e-9) {
			t.Errorf("phase %d accel %g exceeds limit", i, ph.Accel)
		}
	}
}

func TestSolveRejections(t *testing.T) {
	cfg := config.DefaultSnapCrackleConfig()

	if _, err := Solve(0, 0, 0, cfg); err == nil {
		t.Error("zero distance should be rejected")
	}
	if _, err := Solve(0, 0, -5, cfg); err == nil {
		t.Error("negative distance should be rejected")
	}
	if _, err := Solve(-1, 0, 10, cfg); err == nil {
		t.Error("negative start velocity should be rejected")
	}
	if _, err := Solve(0, 0, math.NaN(), cfg); err == nil {
		t.Error("NaN distance should be rejected")
	}

	bad := cfg
	bad.MaxJerk = -1
	if _, err := Solve(0, 0, 10, bad); err == nil {
		t.Error("negative jerk limit should be rejected")
	}
}

func TestZeroLimitsClampedNotDivided(t *testing.T) {
	// All-zero limits are clamped to epsilon rather than reaching a division
	p, err := Solve(0, 0, 1, config.SnapCrackleConfig{})
	if err != nil {
		t.Fatalf("Solve with zero limits: %v", err)
	}
	if math.IsNaN(p.TotalTime) || math.IsInf(p.TotalTime, 0) {
		t.Errorf("TotalTime = %g, want finite", p.TotalTime)
	}
}

func TestIdentityOptimizer(t *testing.T) {
	c := config.DefaultMotionConstraints()
	got, err := IdentityOptimizer{}.Optimize(context.Background(), MotionState{}, MotionState{}, c)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if got != c {
		t.Error("identity optimizer must return constraints unchanged")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (IdentityOptimizer{}).Optimize(ctx, MotionState{}, MotionState{}, c); err == nil {
		t.Error("cancelled context should surface an error")
	}
}

func TestIdentityCanceller(t *testing.T) {
	wps := []Waypoint{{Time: 0, Position: 0}, {Time: 1, Position: 5}}
	got, err := IdentityCanceller{}.Filter(context.Background(), wps)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if len(got) != 2 || got[1] != wps[1] {
		t.Error("identity canceller must return waypoints unchanged")
	}
}
