// motionhost is the motion-planning core of a printer control host,
// run standalone against a simulated transport. It queues moves
// through the selected profile generator, emits step commands into a
// time-ordered event queue and drains them at their timestamps.
//
// Usage:
//
//	motionhost [options]
//
// Options:
//
//	-mode string       Profile mode: basic, adaptive, snapcrackle (default "basic")
//	-kinematics string Geometry: cartesian or corexy (default "cartesian")
//	-metrics string    Prometheus exposition address (default ":9100")
//	-telemetry string  Status/stream server address (default ":7130")
//	-logfile string    Log file path with rotation (default: stderr)
//	-blend float       Max corner blend deviation in mm, 0 disables
//	-demo              Queue a demo perimeter loop through the pipeline
//	-rt                Raise process priority for the drain loop (linux)
//
// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"motionhost/pkg/config"
	"motionhost/pkg/kinematics"
	"motionhost/pkg/log"
	"motionhost/pkg/metrics"
	"motionhost/pkg/motion"
	"motionhost/pkg/sched"
	"motionhost/pkg/stepgen"
	"motionhost/pkg/telemetry"
	"motionhost/pkg/trajectory"
)

func main() {
	modeFlag := flag.String("mode", "basic", "Profile mode: basic, adaptive, snapcrackle")
	kinFlag := flag.String("kinematics", "cartesian", "Geometry: cartesian or corexy")
	metricsAddr := flag.String("metrics", ":9100", "Prometheus exposition address")
	telemetryAddr := flag.String("telemetry", ":7130", "Status/stream server address")
	logFile := flag.String("logfile", "", "Log file path with rotation (default: stderr)")
	blendDev := flag.Float64("blend", 0, "Max corner blend deviation in mm, 0 disables")
	demo := flag.Bool("demo", false, "Queue a demo perimeter loop through the pipeline")
	rt := flag.Bool("rt", false, "Raise process priority for the drain loop (linux)")
	flag.Parse()

	if *logFile != "" {
		fileLogger, w, err := log.NewFileLogger("motionhost", log.RotationConfig{
			Filename:   *logFile,
			MaxBackups: 4,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer w.Close()
		log.SetDefaultLogger(fileLogger)
	}
	logger := log.GetLogger("motionhost")
	log.ConfigureFromEnv(logger)

	mode, err := parseMode(*modeFlag)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	met := metrics.NewMotionMetrics()
	ctrl, err := motion.NewController(motion.Config{
		Mode:           mode,
		Constraints:    config.DefaultMotionConstraints(),
		Trajectory:     config.DefaultTrajectoryConfig(),
		SnapCrackle:    config.DefaultSnapCrackleConfig(),
		KinematicsType: kinematics.Type(*kinFlag),
		AxisLimits:     config.DefaultAxisLimits(),
		StepsPerMM:     [config.NumAxes]float64{80, 80, 400, 100},
		BufferCapacity: 256,
		BlendDeviation: *blendDev,
		Metrics:        met,
	})
	if err != nil {
		logger.Error("controller: %v", err)
		os.Exit(1)
	}

	if *rt {
		if err := raisePriority(); err != nil {
			logger.Warn("could not raise process priority: %v", err)
		} else {
			logger.Info("process priority raised for drain loop")
		}
	}

	logger.Info("motionhost starting: mode=%s kinematics=%s", mode, *kinFlag)

	metricsServer := metrics.NewServer(met.Registry(), *metricsAddr)
	go func() {
		if err := metricsServer.Start(); err != nil {
			logger.Error("metrics server: %v", err)
		}
	}()

	start := time.Now()
	telemetryServer := telemetry.NewServer(telemetry.Config{
		Addr: *telemetryAddr,
		Source: telemetry.SourceFunc(func() telemetry.Status {
			stats := ctrl.QueueStats()
			pos := ctrl.CurrentPosition()
			return telemetry.Status{
				Position:       [4]float64(pos),
				QueueLength:    stats.Length,
				MaxQueueLength: stats.MaxLength,
				LastCommand:    stats.LastCommand,
				Mode:           ctrl.Mode().String(),
				BufferPending:  ctrl.BufferPending(),
				BufferFree:     ctrl.BufferFree(),
				Stopped:        ctrl.Stopped(),
			}
		}),
	})
	go func() {
		if err := telemetryServer.Start(); err != nil {
			logger.Error("telemetry server: %v", err)
		}
	}()

	stop := make(chan struct{})
	go met.RuntimeCollector(10*time.Second, stop)

	queue := sched.NewQueue()
	go drainLoop(ctrl, queue, start, stop, logger)

	if *demo {
		// Priming z-hop scheduled directly at its profile times; the
		// perimeter loop then runs through the planner.
		if n, err := ctrl.ScheduleAxisMove(queue, 2, 5, 10, 0.5); err != nil {
			logger.Warn("priming move: %v", err)
		} else {
			logger.Info("scheduled %d priming step events on z", n)
		}
		go demoLoop(ctrl, stop, logger)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	logger.Info("signal %v: shutting down", s)

	ctrl.EmergencyStop()
	close(stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = telemetryServer.Stop()
	_ = metricsServer.Shutdown(ctx)
	logger.Info("motionhost stopped")
}

func parseMode(s string) (motion.Mode, error) {
	switch s {
	case "basic":
		return motion.ModeBasic, nil
	case "adaptive":
		return motion.ModeAdaptive, nil
	case "snapcrackle":
		return motion.ModeSnapCrackle, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want basic, adaptive or snapcrackle)", s)
	}
}

// drainTiming derives the per-step electrical timing from the board
// limits: steps are paced at the board's maximum rate with its minimum
// pulse width, and direction changes settle in half a pulse.
func drainTiming(b config.BoardTiming) stepgen.StepTiming {
	return stepgen.StepTiming{
		PulseWidth:   b.MinPulseWidth,
		StepInterval: 1 / b.MaxStepRate,
		DirSetup:     b.MinPulseWidth / 2,
	}
}

// drainLoop is the simulated transport: it pulls segments through the
// controller into the step buffer, schedules the resulting commands on
// the event queue at their emission time, and pops them when due.
func drainLoop(ctrl *motion.Controller, queue *sched.Queue, start time.Time, stop <-chan struct{}, logger *log.Logger) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	timing := drainTiming(config.DefaultBoardTiming())

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		now := time.Since(start).Seconds()

		// Move pending segments into the step buffer. Backpressure is
		// transient: leave the segment queued and retry next tick.
		for {
			emitted, err := ctrl.EmitNextSegment()
			if err != nil {
				logger.Debug("emission paused: %v", err)
				break
			}
			if !emitted {
				break
			}
		}

		// Schedule buffered commands at their earliest transmit time.
		at := now
		for {
			cmd, ok := ctrl.NextStepCommand()
			if !ok {
				break
			}
			at += stepgen.MinimumTransmitTime([]stepgen.StepCommand{cmd}, timing)
			queue.Push(sched.Event{Timestamp: at, Kind: sched.KindStep, Payload: cmd})
		}

		// Fire everything due by now.
		for {
			ev, ok := queue.PopDue(now)
			if !ok {
				break
			}
			cmd := ev.Payload.(stepgen.StepCommand)
			logger.Debug("t=%.6f %s", ev.Timestamp, cmd)
			if cmd.OnDone != nil {
				cmd.OnDone()
			}
		}
	}
}

// demoLoop queues a square perimeter over and over so the pipeline has
// work without an external G-code layer.
func demoLoop(ctrl *motion.Controller, stop <-chan struct{}, logger *log.Logger) {
	corners := []kinematics.Position{
		{150, 50, 0, 0},
		{150, 150, 0, 0},
		{50, 150, 0, 0},
		{50, 50, 0, 0},
	}

	ctx := context.Background()
	i := 0
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		// Keep a modest backlog; the drain side works it off.
		if ctrl.QueueStats().Length >= 8 {
			continue
		}
		req := motion.MoveRequest{
			Target:   corners[i%len(corners)],
			Feedrate: 100,
			MoveType: trajectory.MovePrint,
		}
		if err := ctrl.QueueLinearMove(ctx, req); err != nil {
			logger.Warn("demo move rejected: %v", err)
		}
		i++
	}
}
