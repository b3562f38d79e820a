// Package button watches a physical shutter button wired between a GPIO
// pin and ground. The pin is pulled up, so a press reads Low.
package button

import (
	"context"
	"fmt"
	"time"

	"github.com/Chandru0712/SelfieBooth/internal/debug"
	"github.com/Chandru0712/SelfieBooth/internal/hw/gpio"
)

// Watcher polls one pin and fires the callback once per press.
// After a press it waits for the release before re-arming, so holding
// the button down produces a single shot.
type Watcher struct {
	driver   gpio.Driver
	pin      int
	poll     time.Duration
	debounce time.Duration
	onPress  func()
}

func NewWatcher(driver gpio.Driver, pin int, poll, debounce time.Duration, onPress func()) *Watcher {
	if poll <= 0 {
		poll = 20 * time.Millisecond
	}
	return &Watcher{
		driver:   driver,
		pin:      pin,
		poll:     poll,
		debounce: debounce,
		onPress:  onPress,
	}
}

// Run blocks until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.driver.SetupPin(w.pin, gpio.InputPullUp); err != nil {
		return fmt.Errorf("setup button pin %d: %w", w.pin, err)
	}
	debug.Info("Watching shutter button on pin %d (poll %v)", w.pin, w.poll)

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	armed := true
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		level, err := w.driver.ReadPin(w.pin)
		if err != nil {
			debug.Error(fmt.Errorf("read button pin %d: %w", w.pin, err))
			continue
		}

		if level == gpio.High {
			armed = true
			continue
		}
		if !armed {
			continue
		}

		// Contact bounce: require the pin to still be low after the
		// debounce window before counting the press.
		if w.debounce > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.debounce):
			}
			level, err = w.driver.ReadPin(w.pin)
			if err != nil || level == gpio.High {
				continue
			}
		}

		armed = false
		debug.Live("Shutter button pressed")
		if w.onPress != nil {
			w.onPress()
		}
	}
}
