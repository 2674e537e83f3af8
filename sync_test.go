package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gamedex/gamedex-mcp/index"
)

func Test_detectDrift_InSync(t *testing.T) {
	rootDir := writeLibrary(t)
	matcher := testMatcher(rootDir)
	snap := loadLibrary(t, rootDir, matcher)

	result, err := detectDrift(rootDir, snap, matcher)
	if err != nil {
		t.Fatalf("detectDrift failed: %v", err)
	}

	if result.drifted() {
		t.Errorf("expected no drift, got %+v", result)
	}
	if result.Duration == 0 {
		t.Error("expected Duration to be set")
	}
}

func Test_detectDrift_NewFile(t *testing.T) {
	rootDir := writeLibrary(t)
	matcher := testMatcher(rootDir)
	snap := loadLibrary(t, rootDir, matcher)

	writeCatalog(t, rootDir, "Atari - 2600.xml", `<datafile><game name="Pitfall!"/></datafile>`)

	result, err := detectDrift(rootDir, snap, matcher)
	if err != nil {
		t.Fatalf("detectDrift failed: %v", err)
	}

	if result.NewFiles != 1 {
		t.Errorf("expected 1 new file, got %+v", result)
	}
	if result.MissingFiles != 0 || result.ModifiedFiles != 0 {
		t.Errorf("expected only new files, got %+v", result)
	}
}

func Test_detectDrift_MissingFile(t *testing.T) {
	rootDir := writeLibrary(t)
	matcher := testMatcher(rootDir)
	snap := loadLibrary(t, rootDir, matcher)

	if err := os.Remove(filepath.Join(rootDir, "Nintendo - NES.xml")); err != nil {
		t.Fatalf("failed to remove catalog: %v", err)
	}

	result, err := detectDrift(rootDir, snap, matcher)
	if err != nil {
		t.Fatalf("detectDrift failed: %v", err)
	}

	if result.MissingFiles != 1 {
		t.Errorf("expected 1 missing file, got %+v", result)
	}
}

func Test_detectDrift_ModifiedFile(t *testing.T) {
	rootDir := writeLibrary(t)
	matcher := testMatcher(rootDir)
	snap := loadLibrary(t, rootDir, matcher)

	// Push the mtime forward; content-equal rewrites within the filesystem's
	// timestamp granularity would otherwise make this flaky.
	path := filepath.Join(rootDir, "Nintendo - NES.xml")
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("failed to change mtime: %v", err)
	}

	result, err := detectDrift(rootDir, snap, matcher)
	if err != nil {
		t.Fatalf("detectDrift failed: %v", err)
	}

	if result.ModifiedFiles != 1 {
		t.Errorf("expected 1 modified file, got %+v", result)
	}
}

func Test_detectDrift_SkippedFileNotNew(t *testing.T) {
	rootDir := t.TempDir()
	writeCatalog(t, rootDir, "Nintendo - NES.xml", nesCatalog)
	writeCatalog(t, rootDir, "Corrupt Dump.xml", "<datafile>\x00\x01\x02")

	matcher := testMatcher(rootDir)
	snap := loadLibrary(t, rootDir, matcher)

	result, err := detectDrift(rootDir, snap, matcher)
	if err != nil {
		t.Fatalf("detectDrift failed: %v", err)
	}

	// The binary file was skipped by the load; flagging it as new would
	// trigger a reload on every check forever.
	if result.drifted() {
		t.Errorf("expected no drift with a permanently skipped file, got %+v", result)
	}
}

func Test_detectDrift_MissingRoot(t *testing.T) {
	rootDir := writeLibrary(t)
	matcher := testMatcher(rootDir)
	snap := loadLibrary(t, rootDir, matcher)

	gone := filepath.Join(t.TempDir(), "vanished")
	if _, err := detectDrift(gone, snap, matcher); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func Test_runPeriodicSync_TriggersReloadOnDrift(t *testing.T) {
	rootDir := writeLibrary(t)
	matcher := testMatcher(rootDir)
	snap := loadLibrary(t, rootDir, matcher)
	holder := index.NewHolder(snap)

	writeCatalog(t, rootDir, "Atari - 2600.xml", `<datafile><game name="Pitfall!"/></datafile>`)

	triggered := make(chan string, 1)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		runPeriodicSync(20*time.Millisecond, rootDir, holder, matcher, func(reason string) {
			select {
			case triggered <- reason:
			default:
			}
		}, testLogger(), stop)
		close(done)
	}()

	select {
	case reason := <-triggered:
		if reason != "periodic sync" {
			t.Errorf("unexpected trigger reason %q", reason)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("periodic sync did not detect drift within 3 seconds")
	}

	close(stop)
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("runPeriodicSync did not stop within 3 seconds after closing stop channel")
	}
}

func Test_runPeriodicSync_StopsOnChannelClose(t *testing.T) {
	rootDir := writeLibrary(t)
	matcher := testMatcher(rootDir)
	snap := loadLibrary(t, rootDir, matcher)
	holder := index.NewHolder(snap)

	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		runPeriodicSync(time.Second, rootDir, holder, matcher, func(string) {}, testLogger(), stop)
		close(done)
	}()

	close(stop)

	select {
	case <-done:
		// OK - goroutine stopped cleanly
	case <-time.After(3 * time.Second):
		t.Fatal("runPeriodicSync did not stop within 3 seconds after closing stop channel")
	}
}
