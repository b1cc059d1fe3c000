package proto_test

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-igs/proto"
)

func dialViewer(t *testing.T) (*proto.Conn, *bufio.Reader, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	return proto.NewConn(a), bufio.NewReader(b), b
}

func readLine(t *testing.T, r *bufio.Reader, c net.Conn) string {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return line
}

func TestMoveMadeOnlyReachesObservers(t *testing.T) {
	view := proto.NewViewers()

	watching, watchingClient, watchingConn := dialViewer(t)
	defer watchingConn.Close()
	idle, _, idleConn := dialViewer(t)
	defer idleConn.Close()

	view.Add(watching)
	view.Add(idle)
	view.Observe(watching, 7)

	done := make(chan struct{})
	go func() {
		view.MoveMade(7, "q4", 58000)
		close(done)
	}()

	assert.Contains(t, readLine(t, watchingClient, watchingConn), "update 7 q4 58000")
	<-done
}

func TestGameOverBroadcastsThenFinalUpdateToObservers(t *testing.T) {
	view := proto.NewViewers()

	watching, watchingClient, watchingConn := dialViewer(t)
	defer watchingConn.Close()
	other, otherClient, otherConn := dialViewer(t)
	defer otherConn.Close()

	view.Add(watching)
	view.Add(other)
	view.Observe(watching, 9)

	done := make(chan struct{})
	go func() {
		view.GameOver(9, "W+Resign", 12000, 34000)
		close(done)
	}()

	otherLine := make(chan string, 1)
	go func() { otherLine <- readLine(t, otherClient, otherConn) }()

	assert.Contains(t, readLine(t, watchingClient, watchingConn), "gameover 9 W+Resign 12000 34000")
	assert.Contains(t, readLine(t, watchingClient, watchingConn), "update 9 W+Resign")
	assert.Contains(t, <-otherLine, "gameover 9 W+Resign 12000 34000")
	<-done
}

func TestObserveSwitchesAwayFromPriorGame(t *testing.T) {
	view := proto.NewViewers()

	watching, watchingClient, watchingConn := dialViewer(t)
	defer watchingConn.Close()

	view.Add(watching)
	view.Observe(watching, 1)
	view.Observe(watching, 2)

	done := make(chan struct{})
	go func() {
		view.MoveMade(1, "pass", 1000)
		view.MoveMade(2, "q4", 2000)
		close(done)
	}()

	assert.Contains(t, readLine(t, watchingClient, watchingConn), "update 2 q4 2000")
	<-done
}
