package pdfquiz

import (
	"sync"
	"time"
)

// Countdown fires a timeout callback once after a fixed duration unless it is
// stopped first, reporting the remaining time at every tick.
type Countdown struct {
	mu       sync.Mutex
	deadline time.Time
	stopped  bool
	fired    bool
	stop     chan struct{}
	done     chan struct{}
}

// StartCountdown begins a countdown of total. onTick receives the remaining
// time every tick interval; onTimeout runs once when the time is up. Either
// callback may be nil.
func StartCountdown(total, tick time.Duration, onTick func(remaining time.Duration), onTimeout func()) *Countdown {
	c := &Countdown{
		deadline: time.Now().Add(total),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.run(total, tick, onTick, onTimeout)
	return c
}

func (c *Countdown) run(total, tick time.Duration, onTick func(time.Duration), onTimeout func()) {
	defer close(c.done)

	timer := time.NewTimer(total)
	defer timer.Stop()

	var tickC <-chan time.Time
	if tick > 0 && onTick != nil {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for {
		select {
		case <-c.stop:
			return
		case <-tickC:
			if remaining := c.Remaining(); remaining > 0 {
				onTick(remaining)
			}
		case <-timer.C:
			c.mu.Lock()
			if c.stopped {
				c.mu.Unlock()
				return
			}
			c.fired = true
			c.mu.Unlock()
			if onTimeout != nil {
				onTimeout()
			}
			return
		}
	}
}

// Remaining returns the time left before the timeout fires
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.fired {
		return 0
	}
	remaining := time.Until(c.deadline)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Stop cancels the countdown. It reports true if the timeout had not fired yet.
func (c *Countdown) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.fired {
		return false
	}
	c.stopped = true
	close(c.stop)
	return true
}

// Done is closed once the countdown has fired or been stopped
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}
