// Copyright (c) 2024  Internet Go Server contributors
//
// This file is part of go-igs.
//
// go-igs is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.

package game

import "time"

// Clock is one player's countdown timer, measured in whole
// milliseconds the way the wire protocol reports it. Elapsed time is
// the round trip between a move request going out and the reply
// coming back, less a fixed leeway that absorbs ordinary network
// jitter so a fast engine on a slow link is not flagged for lag it
// did not cause.
type Clock struct {
	remainMs int64
	leewayMs int64
}

// NewClock starts a clock with budgetMs on it.
func NewClock(budgetMs, leewayMs int64) *Clock {
	return &Clock{remainMs: budgetMs, leewayMs: leewayMs}
}

// Remaining is the time left, in milliseconds.
func (c *Clock) Remaining() int64 { return c.remainMs }

// Charge deducts elapsed (with the leeway subtracted first) from the
// clock and reports whether time has run out. Elapsed time below the
// leeway costs nothing, the way a ping well within tolerance is free.
func (c *Clock) Charge(elapsed time.Duration) (flagged bool) {
	ms := elapsed.Milliseconds() - c.leewayMs
	if ms < 0 {
		ms = 0
	}
	c.remainMs -= ms
	flagged = c.remainMs < 0
	if c.remainMs < 0 {
		c.remainMs = 0
	}
	return flagged
}
