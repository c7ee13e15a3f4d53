package logfinder

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/eftlog/eftlog-go/pkg/eftlog/event"
)

func resolved(t *testing.T, dir string) string {
	t.Helper()
	r, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestLogDirForExecutable(t *testing.T) {
	exe := filepath.Join("games", "eft", "EscapeFromTarkov.exe")
	want := filepath.Join("games", "eft", "Logs")
	if got := LogDirForExecutable(exe); got != want {
		t.Errorf("LogDirForExecutable() = %q, want %q", got, want)
	}
	if got := LogDirForExecutable(""); got != "" {
		t.Errorf("LogDirForExecutable(\"\") = %q, want empty", got)
	}
}

func TestFindLogDir_FromExecutable(t *testing.T) {
	t.Setenv(EnvLogDir, "")
	gameDir := t.TempDir()
	logs := filepath.Join(gameDir, LogsDirName)
	if err := os.Mkdir(logs, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := FindLogDir("", filepath.Join(gameDir, "EscapeFromTarkov.exe"))
	if err != nil {
		t.Fatalf("FindLogDir() error = %v", err)
	}
	if want := resolved(t, logs); got != want {
		t.Errorf("FindLogDir() = %v, want %v", got, want)
	}
}

func TestFindLogDir_EnvVar(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvLogDir, dir)

	got, err := FindLogDir("", "/nowhere/EscapeFromTarkov.exe")
	if err != nil {
		t.Fatalf("FindLogDir() error = %v", err)
	}
	if want := resolved(t, dir); got != want {
		t.Errorf("FindLogDir() = %v, want %v", got, want)
	}
}

func TestFindLogDir_Explicit(t *testing.T) {
	dir := t.TempDir()
	// Explicit takes priority over env
	t.Setenv(EnvLogDir, "/some/other/path")

	got, err := FindLogDir(dir, "")
	if err != nil {
		t.Fatalf("FindLogDir() error = %v", err)
	}
	if want := resolved(t, dir); got != want {
		t.Errorf("FindLogDir() = %v, want %v", got, want)
	}
}

func TestFindLogDir_ExplicitInvalid(t *testing.T) {
	_, err := FindLogDir("/nonexistent/path", "")
	if !errors.Is(err, ErrLogDirNotFound) {
		t.Errorf("FindLogDir() error = %v, want %v", err, ErrLogDirNotFound)
	}
}

func TestFindLogDir_EnvVarInvalid(t *testing.T) {
	t.Setenv(EnvLogDir, "/nonexistent/path")

	_, err := FindLogDir("", "")
	if !errors.Is(err, ErrLogDirNotFound) {
		t.Errorf("FindLogDir() error = %v, want %v", err, ErrLogDirNotFound)
	}
}

func TestFindLogDir_MissingLogsFolder(t *testing.T) {
	t.Setenv(EnvLogDir, "")
	_, err := FindLogDir("", filepath.Join(t.TempDir(), "EscapeFromTarkov.exe"))
	if !errors.Is(err, ErrLogDirNotFound) {
		t.Errorf("FindLogDir() error = %v, want %v", err, ErrLogDirNotFound)
	}
}

func TestLatestSessionDir(t *testing.T) {
	dir := t.TempDir()
	sessions := []string{
		"log_2024.01.02_10-00-00_0.14.0",
		"log_2024.01.03_09-00-00_0.14.0",
		"log_2024.01.01_23-00-00_0.14.0",
	}
	for _, s := range sessions {
		if err := os.Mkdir(filepath.Join(dir, s), 0755); err != nil {
			t.Fatal(err)
		}
	}
	// A stray file sorting after every folder must be ignored
	if err := os.WriteFile(filepath.Join(dir, "zzz.txt"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	got, err := LatestSessionDir(dir)
	if err != nil {
		t.Fatalf("LatestSessionDir() error = %v", err)
	}
	if filepath.Base(got) != sessions[1] {
		t.Errorf("LatestSessionDir() = %v, want %v", filepath.Base(got), sessions[1])
	}
}

func TestLatestSessionDir_Empty(t *testing.T) {
	_, err := LatestSessionDir(t.TempDir())
	if !errors.Is(err, ErrNoSessions) {
		t.Errorf("LatestSessionDir() error = %v, want %v", err, ErrNoSessions)
	}
}

func TestLatestSessionDir_Missing(t *testing.T) {
	if _, err := LatestSessionDir("/nonexistent/path"); err == nil {
		t.Error("LatestSessionDir() expected error for missing directory")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		want event.StreamKind
	}{
		{"2024.01.01_10-00-00_0.14.0 application.log", event.StreamApplication},
		{"2024.01.01_10-00-00_0.14.0 notifications.log", event.StreamNotifications},
		{"application_000.log", event.StreamApplication},
		{"2024.01.01_10-00-00_0.14.0 backend.log", event.StreamUnknown},
		{"application.log.bak", event.StreamUnknown},
		{"", event.StreamUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.name); got != tt.want {
				t.Errorf("KindOf(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestSessionLogs(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"x application.log",
		"x notifications.log",
		"x backend.log",
		"x application_001.log",
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("test"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := SessionLogs(dir)
	if err != nil {
		t.Fatalf("SessionLogs() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("SessionLogs() returned %d kinds, want 2: %v", len(got), got)
	}
	if filepath.Base(got[event.StreamApplication]) != "x application_001.log" {
		t.Errorf("application log = %q", got[event.StreamApplication])
	}
	if filepath.Base(got[event.StreamNotifications]) != "x notifications.log" {
		t.Errorf("notifications log = %q", got[event.StreamNotifications])
	}
}
