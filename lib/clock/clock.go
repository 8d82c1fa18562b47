// Copyright 2026 The Tailcast Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the daemon's time source. Two things consume it: the line
// handler stamps stream lines with Now, and the subscriber keepalive
// loop paces pings with NewTicker. Production code injects Real();
// tests inject Fake() and advance it by hand, so rendered timestamps
// and ping cadence are exact rather than sampled.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// NewTicker returns a Ticker that delivers ticks on its C channel
	// at the given interval. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker wraps a periodic timer. Read ticks from C; call Stop when
// done with it.
//
// C has capacity 1, matching time.Ticker: a consumer that falls
// behind misses ticks rather than queueing them.
type Ticker struct {
	// C delivers ticks.
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. No more ticks arrive on C after Stop
// returns; C is not closed.
func (t *Ticker) Stop() { t.stopFunc() }
