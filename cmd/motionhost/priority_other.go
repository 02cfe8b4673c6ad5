//go:build !linux

// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package main

import "errors"

func raisePriority() error {
	return errors.New("process priority control is only implemented on linux")
}
