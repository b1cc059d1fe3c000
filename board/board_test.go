package board_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-igs/board"
)

func TestPassTwiceEndsGame(t *testing.T) {
	b := board.New(9, 6.5, board.SimpleKo)
	require.Equal(t, 0, b.Make("pass"))
	require.False(t, b.TwoPass())
	require.Equal(t, 0, b.Make("pass"))
	assert.True(t, b.TwoPass())
}

func TestOccupiedPointIsIllegal(t *testing.T) {
	b := board.New(9, 6.5, board.SimpleKo)
	require.GreaterOrEqual(t, b.Make("e5"), 0)
	assert.Equal(t, board.ErrOccupied, b.Make("e5"))
}

func TestMalformedMove(t *testing.T) {
	b := board.New(9, 6.5, board.SimpleKo)
	assert.Equal(t, board.ErrMalformed, b.Make("z99"))
	assert.Equal(t, board.ErrMalformed, b.Make("!!"))
}

// TestSuicideIsRejectedWithoutMutation surrounds the corner point a1
// with white stones at b1 and a2 (a corner has only two liberties),
// then has black play into it: no capture results, so the move must
// be rejected as suicide and the point must remain playable by no one
// (the attempt itself must not have placed a stone).
func TestSuicideIsRejectedWithoutMutation(t *testing.T) {
	b := board.New(5, 0, board.SimpleKo)
	for _, mv := range []string{"e1", "b1", "e2", "a2"} {
		require.GreaterOrEqual(t, b.Make(mv), board.ErrKo, mv)
	}
	assert.Equal(t, board.ErrSuicide, b.Make("a1"))
	// Unchanged: the same move is still rejected the same way, proving
	// no black stone was left behind at a1.
	assert.Equal(t, board.ErrSuicide, b.Make("a1"))
}

// TestCaptureCornerStone surrounds the corner a1 (occupied by white,
// two liberties) with black stones at b1 then a2, capturing it on the
// second of the two surrounding moves.
func TestCaptureCornerStone(t *testing.T) {
	b := board.New(5, 0, board.SimpleKo)
	moves := []string{"e1", "a1", "e2", "d1", "b1", "d2"}
	for _, mv := range moves {
		require.GreaterOrEqual(t, b.Make(mv), board.ErrKo, mv)
	}
	assert.Equal(t, 1, b.Make("a2"))
}

func TestScoreAreaAfterTwoPasses(t *testing.T) {
	b := board.New(5, 0, board.SimpleKo)
	b.Make("pass")
	b.Make("pass")
	assert.True(t, b.TwoPass())
	assert.Equal(t, 0, b.Score())
}

func TestToMoveAlternates(t *testing.T) {
	b := board.New(9, 6.5, board.SimpleKo)
	assert.Equal(t, board.Black, b.ToMove())
	b.Make("pass")
	assert.Equal(t, board.White, b.ToMove())
}
