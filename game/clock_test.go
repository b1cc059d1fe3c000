package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChargeExactlyZeroRemainingIsNotFlagged(t *testing.T) {
	c := NewClock(2000, 0)
	flagged := c.Charge(2000 * time.Millisecond)
	assert.False(t, flagged)
	assert.Equal(t, int64(0), c.Remaining())
}

func TestChargeOneMillisecondOverFlags(t *testing.T) {
	c := NewClock(2000, 0)
	flagged := c.Charge(2001 * time.Millisecond)
	assert.True(t, flagged)
	assert.Equal(t, int64(0), c.Remaining(), "remaining is still clamped for display")
}

func TestChargeWithinLeewayCostsNothing(t *testing.T) {
	c := NewClock(1000, 500)
	flagged := c.Charge(400 * time.Millisecond)
	assert.False(t, flagged)
	assert.Equal(t, int64(1000), c.Remaining())
}
