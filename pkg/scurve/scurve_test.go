package scurve

import (
	"math"
	"testing"

	"motionhost/pkg/errors"
	"motionhost/pkg/sched"
	"motionhost/pkg/stepgen"
)

func testGen(t *testing.T) *Generator {
	t.Helper()
	g, err := NewGenerator(3000, 100000, 1e-3)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	return g
}

func TestGenerateCoversDistance(t *testing.T) {
	g := testGen(t)

	points, err := g.Generate(100, 0, 0, 50)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(points) < 10 {
		t.Fatalf("expected a dense profile, got %d points", len(points))
	}

	last := points[len(points)-1]
	if math.Abs(last.Position-100) > 1e-6 {
		t.Errorf("final position = %g, want 100", last.Position)
	}
	if math.Abs(last.Velocity) > 1e-6 {
		t.Errorf("final velocity = %g, want 0", last.Velocity)
	}
}

func TestTimesStrictlyIncreasing(t *testing.T) {
	g := testGen(t)
	points, err := g.Generate(20, 0, 0, 40)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for i := 1; i < len(points); i++ {
		if points[i].Time <= points[i-1].Time {
			t.Fatalf("time not strictly increasing at %d: %g then %g",
				i, points[i-1].Time, points[i].Time)
		}
	}
}

func TestLimitsRespected(t *testing.T) {
	const (
		maxAccel = 3000.0
		maxJerk  = 100000.0
	)
	g, _ := NewGenerator(maxAccel, maxJerk, 1e-3)
	points, err := g.Generate(100, 0, 0, 80)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, p := range points {
		if math.Abs(p.Accel) > maxAccel*(1+1e-9) {
			t.Fatalf("accel %g exceeds limit at t=%g", p.Accel, p.Time)
		}
		if math.Abs(p.Jerk) > maxJerk*(1+1e-9) {
			t.Fatalf("jerk %g exceeds limit at t=%g", p.Jerk, p.Time)
		}
	}
}

func TestVelocityPeaksAtCruise(t *testing.T) {
	g := testGen(t)
	points, _ := g.Generate(100, 0, 0, 50)

	peak := 0.0
	for _, p := range points {
		if p.Velocity > peak {
			peak = p.Velocity
		}
	}
	if math.Abs(peak-50) > 1e-6 {
		t.Errorf("peak velocity = %g, want cruise 50", peak)
	}
}

func TestNonZeroBoundaryVelocities(t *testing.T) {
	g := testGen(t)
	points, err := g.Generate(50, 10, 20, 40)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if math.Abs(points[0].Velocity-10) > 1e-9 {
		t.Errorf("start velocity = %g, want 10", points[0].Velocity)
	}
	last := points[len(points)-1]
	if math.Abs(last.Velocity-20) > 1e-6 {
		t.Errorf("end velocity = %g, want 20", last.Velocity)
	}
	if math.Abs(last.Position-50) > 1e-6 {
		t.Errorf("final position = %g, want 50", last.Position)
	}
}

func TestUnreachableCruiseRejected(t *testing.T) {
	// Tiny distance with a high cruise demand cannot fit the ramps
	g, _ := NewGenerator(1000, 10000, 1e-3)
	_, err := g.Generate(0.01, 0, 0, 200)
	if err == nil {
		t.Fatal("unreachable cruise velocity should be rejected")
	}
	if !errors.IsInvalid(err) {
		t.Errorf("expected invalid-parameters, got %v", err)
	}
}

func TestFeasibleCruise(t *testing.T) {
	g := testGen(t)

	// Long move: the requested cruise fits outright.
	if v := g.FeasibleCruise(100, 50); v != 50 {
		t.Errorf("FeasibleCruise(100, 50) = %g, want 50", v)
	}

	// Short move: the cruise is lowered until Generate accepts it.
	v := g.FeasibleCruise(0.5, 200)
	if v <= 0 || v >= 200 {
		t.Fatalf("FeasibleCruise(0.5, 200) = %g, want a reduced positive velocity", v)
	}
	if _, err := g.Generate(0.5, 0, 0, v); err != nil {
		t.Errorf("Generate rejected the feasible cruise %g: %v", v, err)
	}

	for _, tc := range []struct{ distance, limit float64 }{
		{0, 50},
		{-1, 50},
		{10, 0},
		{math.NaN(), 50},
		{10, math.NaN()},
	} {
		if v := g.FeasibleCruise(tc.distance, tc.limit); v != 0 {
			t.Errorf("FeasibleCruise(%g, %g) = %g, want 0", tc.distance, tc.limit, v)
		}
	}
}

func TestInvalidInputsRejected(t *testing.T) {
	g := testGen(t)

	cases := []struct {
		name                          string
		distance, startV, endV, cruise float64
	}{
		{"zero distance", 0, 0, 0, 50},
		{"negative distance", -10, 0, 0, 50},
		{"NaN distance", math.NaN(), 0, 0, 50},
		{"negative start", 10, -1, 0, 50},
		{"zero cruise", 10, 0, 0, 0},
		{"cruise below start", 10, 60, 0, 50},
	}
	for _, tc := range cases {
		if _, err := g.Generate(tc.distance, tc.startV, tc.endV, tc.cruise); err == nil {
			t.Errorf("%s: expected rejection", tc.name)
		}
	}
}

func TestTriangularAccelRamp(t *testing.T) {
	// Small velocity change never saturates maxAccel
	g, _ := NewGenerator(3000, 100000, 1e-4)
	points, err := g.Generate(100, 0, 0, 1)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	peakA := 0.0
	for _, p := range points {
		if a := math.Abs(p.Accel); a > peakA {
			peakA = a
		}
	}
	want := math.Sqrt(1 * 100000) // sqrt(dv*jerk)
	if peakA > want*(1+1e-9) {
		t.Errorf("peak accel %g exceeds triangular bound %g", peakA, want)
	}
}

func TestScheduleSteps(t *testing.T) {
	g := testGen(t)
	points, _ := g.Generate(10, 0, 0, 50)

	q := sched.NewQueue()
	n, err := ScheduleSteps(q, points, 0, 80, 2.0)
	if err != nil {
		t.Fatalf("ScheduleSteps: %v", err)
	}
	if n == 0 {
		t.Fatal("no step events scheduled")
	}
	if q.Len() != n {
		t.Errorf("queue has %d events, want %d", q.Len(), n)
	}

	// Events are timestamped after startTime and total steps match the
	// discretized distance
	total := int64(0)
	prev := 0.0
	for _, e := range q.Drain() {
		if e.Timestamp < 2.0 {
			t.Fatalf("event at %g before start time", e.Timestamp)
		}
		if e.Timestamp < prev {
			t.Fatal("events out of order")
		}
		prev = e.Timestamp
		cmd := e.Payload.(stepgen.StepCommand)
		if cmd.Dir {
			total += int64(cmd.Steps)
		} else {
			total -= int64(cmd.Steps)
		}
	}
	if total != 800 { // 10 mm * 80 steps/mm
		t.Errorf("net steps = %d, want 800", total)
	}
}

func TestScheduleStepsValidation(t *testing.T) {
	g := testGen(t)
	points, _ := g.Generate(10, 0, 0, 50)

	if _, err := ScheduleSteps(nil, points, 0, 80, 0); err == nil {
		t.Error("nil queue should be rejected")
	}
	q := sched.NewQueue()
	if _, err := ScheduleSteps(q, points, 0, 0, 0); err == nil {
		t.Error("zero steps/mm should be rejected")
	}
}
