package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetup_WritesJSONLog(t *testing.T) {
	root := t.TempDir()

	cleanup, err := Setup(Config{Root: root, Debug: true})
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	if err := IsReady(); err != nil {
		t.Fatalf("expected ready logger: %v", err)
	}

	want := filepath.Join(root, Dir, "logs", "pytmc.log")
	if Path() != want {
		t.Fatalf("expected log at %s, got %s", want, Path())
	}

	L().Debug("tmc.loaded", "symbols", 3)
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	b, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !bytes.Contains(b, []byte(`"msg":"tmc.loaded"`)) || !bytes.Contains(b, []byte(`"msg":"logger.initialized"`)) {
		t.Fatalf("unexpected log content:\n%s", b)
	}
	if IsReady() == nil {
		t.Fatalf("expected logger reset after cleanup")
	}
}

func TestSetup_FallsBackToDiscard(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, Dir)
	if err := os.WriteFile(blocker, []byte("not a dir"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Setup(Config{Root: root}); err == nil {
		t.Fatalf("expected error when the log dir cannot be created")
	}
	if L() == nil {
		t.Fatalf("expected a usable logger after failure")
	}
	if IsReady() == nil {
		t.Fatalf("logger must not report ready after failure")
	}
}

func TestSetup_MirrorsToConsole(t *testing.T) {
	root := t.TempDir()
	var console bytes.Buffer

	cleanup, err := Setup(Config{Root: root, Console: &console, ConsoleLevel: slog.LevelWarn})
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	defer func() { _ = cleanup() }()

	L().Info("records.built", "records", 3)
	L().Warn("pvpack.incomplete", "pv", "TEST:X")

	out := console.String()
	if strings.Contains(out, "records.built") {
		t.Fatalf("info record should not reach the console:\n%s", out)
	}
	if !strings.Contains(out, "msg=pvpack.incomplete pv=TEST:X") {
		t.Fatalf("expected warning on console:\n%s", out)
	}
	if strings.Contains(out, "time=") {
		t.Fatalf("console output should omit timestamps:\n%s", out)
	}

	b, err := os.ReadFile(Path())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !bytes.Contains(b, []byte(`"msg":"records.built"`)) {
		t.Fatalf("expected info record in file:\n%s", b)
	}
}

func TestSetup_ConsoleSurvivesFileFailure(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, Dir), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var console bytes.Buffer

	if _, err := Setup(Config{Root: root, Console: &console}); err == nil {
		t.Fatalf("expected error")
	}
	L().Info("still.logged")
	if !strings.Contains(console.String(), "still.logged") {
		t.Fatalf("expected console logging after file failure, got %q", console.String())
	}
}
