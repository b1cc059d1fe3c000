// Line-oriented connection framing
//
// Copyright (c) 2024  Internet Go Server contributors
//
// This file is part of go-igs.
//
// go-igs is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// go-igs is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with go-igs. If not, see
// <http://www.gnu.org/licenses/>

// Package proto implements the wire protocol described in spec.md
// §4.2 and §4.7: one line per message, a per-connection session state
// machine, an admin console sharing the same listener, and a viewer
// broadcast fan-out. It follows the shape of the teacher's own
// proto/client.go -- a small struct wrapping an io.ReadWriteCloser,
// one goroutine reading lines, writes serialized behind a mutex --
// adapted to the CGOS-style line grammar this server speaks instead
// of go-kgp's S-expression messages.
package proto

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// Conn is a line-oriented duplex wrapped around a TCP connection.
// Reads happen on a dedicated goroutine pushed into a channel; writes
// are serialized with a mutex the way cli.iolock guards the teacher's
// client writes.
type Conn struct {
	rwc net.Conn
	r   *bufio.Reader

	wlock sync.Mutex

	lines  chan string
	closed chan struct{}
	once   sync.Once
}

// NewConn wraps rwc and starts its reader goroutine.
func NewConn(rwc net.Conn) *Conn {
	c := &Conn{
		rwc:    rwc,
		r:      bufio.NewReader(rwc),
		lines:  make(chan string, 4),
		closed: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	defer close(c.lines)
	for {
		line, err := c.r.ReadString('\n')
		if line != "" {
			select {
			case c.lines <- trimEOL(line):
			case <-c.closed:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// ReadLine blocks until a line arrives, done is closed, or the
// connection is closed (in the last two cases ok is false).
func (c *Conn) ReadLine(done <-chan struct{}) (line string, ok bool) {
	select {
	case line, ok = <-c.lines:
		return line, ok
	case <-done:
		return "", false
	}
}

// Send writes one line, formatted with fmt.Sprintf, terminated by
// "\r\n" as spec.md §4.2 requires.
func (c *Conn) Send(format string, args ...interface{}) error {
	c.wlock.Lock()
	defer c.wlock.Unlock()

	msg := fmt.Sprintf(format, args...)
	_, err := io.WriteString(c.rwc, msg+"\r\n")
	return err
}

// Close shuts the connection down; safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closed)
		err = c.rwc.Close()
	})
	return err
}

// RemoteAddr identifies the peer, for logging.
func (c *Conn) RemoteAddr() string {
	return c.rwc.RemoteAddr().String()
}

// SetReadDeadline proxies to the underlying connection's read
// deadline.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.rwc.SetReadDeadline(t)
}
