//go:build linux

// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package main

import (
	"golang.org/x/sys/unix"
)

// raisePriority lowers the nice value of the whole process so the drain
// loop keeps its timing under load. Needs CAP_SYS_NICE or root.
func raisePriority() error {
	return unix.Setpriority(unix.PRIO_PROCESS, 0, -10)
}
