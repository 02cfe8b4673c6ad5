// Log file rotation for the motion host
//
// Copyright (C) 2026  Motionhost Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// RotatingFileWriter writes to a file and rotates it once it exceeds a
// configured size, keeping a bounded number of timestamped backups.
type RotatingFileWriter struct {
	mu       sync.Mutex
	config   RotationConfig
	file     *os.File
	size     int64
}

// RotationConfig controls rotation behavior
type RotationConfig struct {
	// Filename is the path of the active log file
	Filename string

	// MaxSize is the size in bytes at which the file is rotated
	MaxSize int64

	// MaxBackups is the number of rotated files to keep (0 keeps all)
	MaxBackups int
}

// NewRotatingFileWriter opens (or creates) the log file for appending
func NewRotatingFileWriter(config RotationConfig) (*RotatingFileWriter, error) {
	if config.Filename == "" {
		return nil, fmt.Errorf("rotation: filename is required")
	}
	if config.MaxSize <= 0 {
		config.MaxSize = 16 << 20 // 16 MiB
	}

	w := &RotatingFileWriter{config: config}
	if err := w.openFile(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingFileWriter) openFile() error {
	if err := os.MkdirAll(filepath.Dir(w.config.Filename), 0o755); err != nil {
		return fmt.Errorf("rotation: creating log directory: %w", err)
	}
	f, err := os.OpenFile(w.config.Filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("rotation: opening log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("rotation: stat log file: %w", err)
	}
	w.file = f
	w.size = info.Size()
	return nil
}

// Write implements io.Writer, rotating first if the write would exceed MaxSize
func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size+int64(len(p)) > w.config.MaxSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *RotatingFileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("rotation: closing active file: %w", err)
	}

	ext := filepath.Ext(w.config.Filename)
	base := strings.TrimSuffix(w.config.Filename, ext)
	backup := fmt.Sprintf("%s.%s%s", base, time.Now().Format("20060102-150405.000"), ext)
	if err := os.Rename(w.config.Filename, backup); err != nil {
		return fmt.Errorf("rotation: renaming to backup: %w", err)
	}

	w.cleanOldBackups()
	return w.openFile()
}

func (w *RotatingFileWriter) cleanOldBackups() {
	if w.config.MaxBackups <= 0 {
		return
	}

	ext := filepath.Ext(w.config.Filename)
	base := strings.TrimSuffix(filepath.Base(w.config.Filename), ext)
	dir := filepath.Dir(w.config.Filename)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var backups []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, base+".") && strings.HasSuffix(name, ext) && name != filepath.Base(w.config.Filename) {
			backups = append(backups, name)
		}
	}

	if len(backups) <= w.config.MaxBackups {
		return
	}

	// Timestamped names sort oldest first
	sort.Strings(backups)
	for _, name := range backups[:len(backups)-w.config.MaxBackups] {
		os.Remove(filepath.Join(dir, name))
	}
}

// CurrentSize returns the size of the active log file
func (w *RotatingFileWriter) CurrentSize() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Close closes the active log file
func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// NewFileLogger creates a logger writing to a rotating file
func NewFileLogger(prefix string, config RotationConfig) (*Logger, *RotatingFileWriter, error) {
	w, err := NewRotatingFileWriter(config)
	if err != nil {
		return nil, nil, err
	}
	l := New(prefix)
	l.SetWriter(w)
	l.SetColorize(false)
	return l, w, nil
}
