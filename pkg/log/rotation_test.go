package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotatingWriterRequiresFilename(t *testing.T) {
	if _, err := NewRotatingFileWriter(RotationConfig{}); err == nil {
		t.Fatal("expected error for empty filename")
	}
}

func TestRotationOnSize(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "motion.log")

	w, err := NewRotatingFileWriter(RotationConfig{Filename: file, MaxSize: 64})
	if err != nil {
		t.Fatalf("NewRotatingFileWriter: %v", err)
	}
	defer w.Close()

	line := bytes.Repeat([]byte("x"), 40)
	line = append(line, '\n')
	for i := 0; i < 3; i++ {
		if _, err := w.Write(line); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) < 2 {
		t.Errorf("expected active file plus at least one backup, got %d files", len(entries))
	}

	if w.CurrentSize() > 64 {
		t.Errorf("active file size %d exceeds MaxSize", w.CurrentSize())
	}
}

func TestMaxBackups(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "motion.log")

	w, err := NewRotatingFileWriter(RotationConfig{Filename: file, MaxSize: 16, MaxBackups: 1})
	if err != nil {
		t.Fatalf("NewRotatingFileWriter: %v", err)
	}
	defer w.Close()

	for i := 0; i < 6; i++ {
		if _, err := w.Write([]byte("0123456789abcd\n")); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}

	entries, _ := os.ReadDir(dir)
	backups := 0
	for _, e := range entries {
		if e.Name() != "motion.log" && strings.HasPrefix(e.Name(), "motion.") {
			backups++
		}
	}
	if backups > 1 {
		t.Errorf("expected at most 1 backup, found %d", backups)
	}
}

func TestNewFileLogger(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "host.log")

	l, w, err := NewFileLogger("host", RotationConfig{Filename: file, MaxSize: 1 << 20})
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	defer w.Close()

	l.Info("starting")

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "host: starting") {
		t.Errorf("log file missing entry, got: %q", string(data))
	}
}
