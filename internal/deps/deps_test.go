package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckNotInstalled(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	status := Check("pw-record", "--version")
	if status.Installed {
		t.Error("expected Installed=false with an empty PATH")
	}
	if status.Path != "" {
		t.Error("expected empty path when not installed")
	}
}

func TestCheckReadsVersion(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "ffplay")
	if err := os.WriteFile(script, []byte("#!/bin/sh\necho\necho 'ffplay version 6.1'\n"), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)

	status := Check("ffplay", "-version")
	if !status.Installed {
		t.Fatal("ffplay in PATH but Installed=false")
	}
	if status.Path != script {
		t.Errorf("Path = %q, want %q", status.Path, script)
	}
	if status.Version != "ffplay version 6.1" {
		t.Errorf("Version = %q", status.Version)
	}
}

func TestMissing(t *testing.T) {
	statuses := map[string]Status{
		"pw-record": {Installed: true, Path: "/usr/bin/pw-record"},
	}
	missing := Missing(statuses)
	if len(missing) != 1 || missing[0].Name != "pw-play" {
		t.Errorf("Missing() = %+v, want only pw-play", missing)
	}
}

func TestCheckAllCoversTools(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	all := CheckAll()
	if len(all) != len(Tools) {
		t.Errorf("CheckAll() returned %d entries, want %d", len(all), len(Tools))
	}
}
