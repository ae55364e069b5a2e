package testutil

import (
	"os"
	"testing"
	"time"
)

func TestCreateTempConfigFile(t *testing.T) {
	path := CreateTempConfigFile(t, "[interview]\nid = \"x\"\n")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[interview]\nid = \"x\"\n" {
		t.Errorf("content = %q", data)
	}
}

func TestWaitForCondition(t *testing.T) {
	start := time.Now()
	calls := 0
	WaitForCondition(t, func() bool {
		calls++
		return calls == 3
	}, time.Second)
	if calls != 3 {
		t.Errorf("calls = %d", calls)
	}
	if time.Since(start) > time.Second {
		t.Error("took too long")
	}
}

func TestIsolateRuntimeDirs(t *testing.T) {
	IsolateRuntimeDirs(t)
	if dir, err := os.UserCacheDir(); err != nil || dir != os.Getenv("XDG_CACHE_HOME") {
		t.Errorf("UserCacheDir = %q, %v", dir, err)
	}
}
