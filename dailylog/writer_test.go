package dailylog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	trimmed := strings.TrimRight(string(data), "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func TestWriteLineAppendsToDatedFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "user_activity")
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}
	defer w.Close()

	clock := time.Date(2025, 3, 10, 12, 0, 0, 0, time.Local)
	w.now = func() time.Time { return clock }

	if err := w.WriteLine(`{"a":1}`); err != nil {
		t.Fatalf("WriteLine returned error: %v", err)
	}
	if err := w.WriteLine(`{"b":2}`); err != nil {
		t.Fatalf("WriteLine returned error: %v", err)
	}

	lines := readLines(t, filepath.Join(dir, "user_activity-2025-03-10.log"))
	if len(lines) != 2 || lines[0] != `{"a":1}` || lines[1] != `{"b":2}` {
		t.Fatalf("unexpected file contents: %v", lines)
	}
}

func TestRotationAtMidnight(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "app")
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}
	defer w.Close()

	clock := time.Date(2025, 3, 10, 23, 59, 59, 0, time.Local)
	w.now = func() time.Time { return clock }

	var want1, want2 []string
	for i := 0; i < 5; i++ {
		line := fmt.Sprintf("before-%d", i)
		if err := w.WriteLine(line); err != nil {
			t.Fatalf("WriteLine returned error: %v", err)
		}
		want1 = append(want1, line)
	}

	// Cross midnight. The very next write must land in the new day's file.
	clock = time.Date(2025, 3, 11, 0, 0, 1, 0, time.Local)
	for i := 0; i < 5; i++ {
		line := fmt.Sprintf("after-%d", i)
		if err := w.WriteLine(line); err != nil {
			t.Fatalf("WriteLine returned error: %v", err)
		}
		want2 = append(want2, line)
	}

	got1 := readLines(t, filepath.Join(dir, "app-2025-03-10.log"))
	got2 := readLines(t, filepath.Join(dir, "app-2025-03-11.log"))

	if len(got1) != len(want1) || len(got2) != len(want2) {
		t.Fatalf("line counts: day1=%d day2=%d, want %d and %d", len(got1), len(got2), len(want1), len(want2))
	}
	for i := range want1 {
		if got1[i] != want1[i] {
			t.Errorf("day1 line %d = %q, want %q", i, got1[i], want1[i])
		}
	}
	for i := range want2 {
		if got2[i] != want2[i] {
			t.Errorf("day2 line %d = %q, want %q", i, got2[i], want2[i])
		}
	}
}

func TestConcurrentWritesNotInterleaved(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "user_activity")
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}
	defer w.Close()

	const goroutines = 8
	const perGoroutine = 50

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				line := fmt.Sprintf("writer-%d-line-%d-%s", g, i, strings.Repeat("x", 64))
				if err := w.WriteLine(line); err != nil {
					t.Errorf("WriteLine returned error: %v", err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	lines := readLines(t, w.Filename())
	if len(lines) != goroutines*perGoroutine {
		t.Fatalf("got %d lines, want %d", len(lines), goroutines*perGoroutine)
	}
	for i, line := range lines {
		if !strings.HasPrefix(line, "writer-") || !strings.HasSuffix(line, strings.Repeat("x", 64)) {
			t.Fatalf("line %d looks interleaved or split: %q", i, line)
		}
	}
}

func TestReopenAppendsAfterClose(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir, "app")
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}
	if err := w.WriteLine("first"); err != nil {
		t.Fatalf("WriteLine returned error: %v", err)
	}
	path := w.Filename()
	if err := w.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	w2, err := NewWriter(dir, "app")
	if err != nil {
		t.Fatalf("NewWriter (reopen) returned error: %v", err)
	}
	defer w2.Close()
	if err := w2.WriteLine("second"); err != nil {
		t.Fatalf("WriteLine returned error: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 2 || lines[0] != "first" || lines[1] != "second" {
		t.Fatalf("reopen did not append: %v", lines)
	}
}
