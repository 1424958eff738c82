package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

// chdir switches the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func reset(t *testing.T) {
	t.Helper()
	viper.Reset()
	C = Config{}
	t.Cleanup(viper.Reset)
}

func TestInitDefaults(t *testing.T) {
	reset(t)
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	if err := Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if C.Output != "print" || GetOutput() != "print" {
		t.Errorf("expected output print, got %q", C.Output)
	}
	if GetKeywordCache() != 256 {
		t.Errorf("expected keyword cache 256, got %d", GetKeywordCache())
	}
	if GetScanWorkers() != 8 {
		t.Errorf("expected 8 scan workers, got %d", GetScanWorkers())
	}
	if GetColor() != "auto" {
		t.Errorf("expected color auto, got %q", GetColor())
	}
	if GetHighlightStyle() != "monokai" {
		t.Errorf("expected monokai, got %q", GetHighlightStyle())
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".local/share/mmdsync"); GetStore() != want {
		t.Errorf("expected store %q, got %q", want, GetStore())
	}
}

func TestInitReadsFileAndEnv(t *testing.T) {
	reset(t)
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", t.TempDir())

	yaml := "output: copy\nscan_workers: 3\ncolor: NEVER\n"
	if err := os.WriteFile(filepath.Join(dir, "mmdsync.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MMDSYNC_LOG_LEVEL", "debug")

	if err := Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if GetOutput() != "copy" {
		t.Errorf("expected output copy, got %q", GetOutput())
	}
	if GetScanWorkers() != 3 {
		t.Errorf("expected 3 workers, got %d", GetScanWorkers())
	}
	if GetColor() != "never" {
		t.Errorf("expected color never, got %q", GetColor())
	}
	if GetLogLevel() != "debug" {
		t.Errorf("expected log level from env, got %q", GetLogLevel())
	}
}

func TestInitToleratesMalformedFile(t *testing.T) {
	reset(t)
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", t.TempDir())

	if err := os.WriteFile(filepath.Join(dir, "mmdsync.yaml"), []byte("output: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if GetOutput() != "print" {
		t.Errorf("expected default output, got %q", GetOutput())
	}
}

func TestSetOutput(t *testing.T) {
	reset(t)
	SetOutput("copy")
	if GetOutput() != "copy" || C.Output != "copy" {
		t.Errorf("SetOutput not applied")
	}
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := []struct {
		in, expected string
	}{
		{"~", home},
		{"~/x/y", filepath.Join(home, "x/y")},
		{"~user/x", "~user/x"},
		{"/abs", "/abs"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := expandTilde(tt.in); got != tt.expected {
			t.Errorf("expandTilde(%q): expected %q, got %q", tt.in, tt.expected, got)
		}
	}
}
