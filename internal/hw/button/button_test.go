package button

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Chandru0712/SelfieBooth/internal/hw/gpio"
)

const testPin = 17

func runWatcher(t *testing.T, driver gpio.Driver, debounce time.Duration, presses *atomic.Int32) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	w := NewWatcher(driver, testPin, time.Millisecond, debounce, func() {
		presses.Add(1)
	})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	t.Cleanup(func() {
		stop()
		<-done
	})
	return stop
}

func waitForPresses(t *testing.T, presses *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for presses.Load() != want {
		select {
		case <-deadline:
			t.Fatalf("press count = %d, want %d", presses.Load(), want)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestPressFiresOnce(t *testing.T) {
	driver := gpio.NewMockDriver()
	var presses atomic.Int32
	runWatcher(t, driver, 0, &presses)

	driver.SetLevel(testPin, gpio.Low)
	waitForPresses(t, &presses, 1)

	// Held down: still one press.
	time.Sleep(30 * time.Millisecond)
	if got := presses.Load(); got != 1 {
		t.Errorf("press count while held = %d, want 1", got)
	}
}

func TestReleaseRearms(t *testing.T) {
	driver := gpio.NewMockDriver()
	var presses atomic.Int32
	runWatcher(t, driver, 0, &presses)

	driver.SetLevel(testPin, gpio.Low)
	waitForPresses(t, &presses, 1)

	driver.SetLevel(testPin, gpio.High)
	time.Sleep(10 * time.Millisecond)
	driver.SetLevel(testPin, gpio.Low)
	waitForPresses(t, &presses, 2)
}

func TestDebounceIgnoresGlitch(t *testing.T) {
	driver := gpio.NewMockDriver()
	var presses atomic.Int32
	runWatcher(t, driver, 20*time.Millisecond, &presses)

	// A dip shorter than the debounce window must not count.
	driver.SetLevel(testPin, gpio.Low)
	time.Sleep(5 * time.Millisecond)
	driver.SetLevel(testPin, gpio.High)

	time.Sleep(60 * time.Millisecond)
	if got := presses.Load(); got != 0 {
		t.Errorf("press count after glitch = %d, want 0", got)
	}

	// A real press outlasting the window counts.
	driver.SetLevel(testPin, gpio.Low)
	waitForPresses(t, &presses, 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	driver := gpio.NewMockDriver()
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWatcher(driver, testPin, time.Millisecond, 0, nil)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run never returned after cancel")
	}
}
