// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// startWatcher runs w until the test ends and returns the channel Run's
// result is sent on.
func startWatcher(t *testing.T, w *Watcher) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	return cancel, errCh
}

func TestWatcherDebounce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "conjure.cue"), "a")

	var (
		mu    sync.Mutex
		calls [][]string
	)
	done := make(chan struct{}, 1)

	w, err := New(Config{
		Dir:      dir,
		Files:    []string{"conjure.cue", "mise.toml"},
		Debounce: 100 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			mu.Lock()
			calls = append(calls, changed)
			mu.Unlock()
			select {
			case done <- struct{}{}:
			default:
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "conjure.cue"), "b")
	time.Sleep(10 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "mise.toml"), "[tools]")
	time.Sleep(10 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "conjure.cue"), "c")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("OnChange was not called")
	}
	// Leave room for a spurious second callback.
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 {
		t.Fatalf("OnChange called %d times, want 1: %v", len(calls), calls)
	}
	if want := []string{"conjure.cue", "mise.toml"}; !slices.Equal(calls[0], want) {
		t.Errorf("changed = %v, want %v", calls[0], want)
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	called := make(chan []string, 4)

	w, err := New(Config{
		Dir:      dir,
		Files:    []string{"conjure.cue"},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			called <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "notes.txt"), "x")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "sub", "conjure.cue"), "x")

	select {
	case changed := <-called:
		t.Fatalf("OnChange called for %v", changed)
	case <-time.After(400 * time.Millisecond):
	}

	writeFile(t, filepath.Join(dir, "conjure.cue"), "created")
	select {
	case changed := <-called:
		if !slices.Equal(changed, []string{"conjure.cue"}) {
			t.Errorf("changed = %v", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("creating a watched file was not reported")
	}
}

func TestWatcherCallbackError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	calls := make(chan struct{}, 4)

	w, err := New(Config{
		Dir:      dir,
		Files:    []string{"conjure.cue"},
		Debounce: 50 * time.Millisecond,
		OnChange: func(context.Context, []string) error {
			calls <- struct{}{}
			return errors.New("reload failed")
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	cancel, errCh := startWatcher(t, w)

	for i := range 2 {
		writeFile(t, filepath.Join(dir, "conjure.cue"), "v"+string(rune('0'+i)))
		select {
		case <-calls:
		case <-time.After(5 * time.Second):
			t.Fatalf("change %d was not reported after a failing callback", i)
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() = %v, want nil on cancellation", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestWatcherRunTwice(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Dir: t.TempDir(), Files: []string{"conjure.cue"}})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	cancel, errCh := startWatcher(t, w)

	// Wait for the first Run to claim the watcher.
	for !w.started.Load() {
		time.Sleep(time.Millisecond)
	}
	if err := w.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() = %v, want ErrAlreadyRunning", err)
	}
	cancel()
	<-errCh
}

func TestNewErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no files", Config{Dir: dir}},
		{"nested name", Config{Dir: dir, Files: []string{"sub/conjure.cue"}}},
		{"missing directory", Config{Dir: filepath.Join(dir, "missing"), Files: []string{"conjure.cue"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w, err := New(tt.cfg)
			if err == nil {
				_ = w.Close()
				t.Fatal("New() succeeded")
			}
		})
	}
}
