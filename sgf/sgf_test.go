package sgf_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"go-igs"
	"go-igs/sgf"
)

func TestRenderContainsMoveAndResult(t *testing.T) {
	r := sgf.Record{
		GID:   7,
		Size:  9,
		Komi:  6.5,
		White: "alpha",
		Black: "beta",
		Started: time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC),
		Result:  igs.WinBy(igs.Black, "Resign"),
		Moves: []igs.Move{
			{Text: "e5", RemainMs: 59000, Timestamp: time.Now()},
		},
	}

	out := sgf.Render(r)
	assert.True(t, strings.HasPrefix(out, "(;FF[4]"))
	assert.Contains(t, out, "SZ[9]")
	assert.Contains(t, out, "KM[6.5]")
	assert.Contains(t, out, "RE[B+Resign]")
	assert.Contains(t, out, ";B[")
}

func TestRenderInProgressUsesQuestionMarkResult(t *testing.T) {
	r := sgf.Record{Size: 9, Komi: 6.5, White: "a", Black: "b"}
	out := sgf.Render(r)
	assert.Contains(t, out, "RE[?]")
}

func TestPathLayout(t *testing.T) {
	when := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	p := sgf.Path("/srv/html", "sgf", 42, when)
	assert.Equal(t, "/srv/html/sgf/2026/07/30/42.sgf", p)
}
