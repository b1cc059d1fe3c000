package rating_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-igs"
	"go-igs/rating"
)

var bounds = rating.Bounds{Min: 10, Max: 40}

func TestEqualRatingDrawIsZeroDelta(t *testing.T) {
	a := rating.Side{Rating: 1800, K: 20, Outcome: 0.5}
	b := rating.Side{Rating: 1800, K: 20, Outcome: 0.5}

	ra := rating.Update(a, b, bounds)
	rb := rating.Update(b, a, bounds)

	assert.InDelta(t, 1800, ra.Rating, 1e-9)
	assert.InDelta(t, 1800, rb.Rating, 1e-9)
}

func TestSwappingColorsSwapsDeltas(t *testing.T) {
	white := rating.Side{Rating: 1700, K: 20, Outcome: 1.0}
	black := rating.Side{Rating: 1900, K: 20, Outcome: 0.0}

	rw := rating.Update(white, black, bounds)
	rb := rating.Update(black, white, bounds)

	dw := rw.Rating - white.Rating
	db := rb.Rating - black.Rating

	// Swap the colors/outcomes and the deltas should swap too.
	white2 := rating.Side{Rating: 1900, K: 20, Outcome: 0.0}
	black2 := rating.Side{Rating: 1700, K: 20, Outcome: 1.0}
	rw2 := rating.Update(white2, black2, bounds)
	rb2 := rating.Update(black2, white2, bounds)

	assert.InDelta(t, db, rw2.Rating-white2.Rating, 1e-9)
	assert.InDelta(t, dw, rb2.Rating-black2.Rating, 1e-9)
}

func TestAnchorAlwaysResetsExactly(t *testing.T) {
	anchor := rating.Side{Rating: 2500, K: 30, Outcome: 1.0, IsAnchor: true, Anchor: 2200}
	opp := rating.Side{Rating: 1500, K: 20, Outcome: 0.0}

	out := rating.Update(anchor, opp, bounds)
	assert.Equal(t, 2200.0, out.Rating)
	assert.Equal(t, bounds.Min, out.K)
}

func TestWinnerGainsLoserLoses(t *testing.T) {
	winner := rating.Side{Rating: 1600, K: 20, Outcome: 1.0}
	loser := rating.Side{Rating: 1600, K: 20, Outcome: 0.0}

	rw := rating.Update(winner, loser, bounds)
	rl := rating.Update(loser, winner, bounds)

	assert.Greater(t, rw.Rating, winner.Rating)
	assert.Less(t, rl.Rating, loser.Rating)
}

func TestBatchAppliesEachGameInOrder(t *testing.T) {
	players := map[string]rating.Snapshot{
		"alice": {Rating: 1800, K: 20},
		"bob":   {Rating: 1800, K: 20},
	}
	rows := []rating.GameRow{
		{GID: 1, White: "alice", Black: "bob", Result: igs.WinBy(igs.White, "Resign")},
	}

	out := rating.Batch(rows, players, bounds)
	assert.Greater(t, out["alice"].Rating, 1800.0)
	assert.Less(t, out["bob"].Rating, 1800.0)
}
