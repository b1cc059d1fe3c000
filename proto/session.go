// Per-connection session state machine
//
// Copyright (c) 2024  Internet Go Server contributors
//
// This file is part of go-igs.
//
// go-igs is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.

package proto

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-igs"
	"go-igs/conf"
	"go-igs/game"
)

// state is a session's position in the protocol state machine
// (spec.md §4.2): protocol -> username -> password -> ok -> genmove
// -> gameover, with "ok" reused for both "idle, available to be
// paired" and "in a game, waiting on the opponent", distinguished by
// whether gid is zero.
type state int

const (
	stateProtocol state = iota
	stateUsername
	statePassword
	stateOK
	stateGenmove
	stateGameOver
	stateViewer
	stateAdmin
)

var validName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9._-]{2,17}$`)

func (st state) String() string {
	switch st {
	case stateProtocol:
		return "protocol"
	case stateUsername:
		return "username"
	case statePassword:
		return "password"
	case stateOK:
		return "ok"
	case stateGenmove:
		return "genmove"
	case stateGameOver:
		return "gameover"
	case stateViewer:
		return "viewer"
	case stateAdmin:
		return "admin"
	default:
		return "?"
	}
}

// Session is one logged-in (or logging-in) TCP connection. It
// implements game.Seat so the game package can ask it for moves
// without knowing anything about sockets.
type Session struct {
	conn   *Conn
	cfg    *conf.Config
	db     conf.DatabaseManager
	reg    *Registry
	view   *Viewers
	op     Operator
	connID uuid.UUID

	mu           sync.Mutex
	state        state
	name         string
	rating       float64
	k            float64
	useAnalyze   bool
	lastActivity time.Time

	gid   int64
	color igs.Color
	game  *game.Game

	moveCh chan string
	done   chan struct{}
}

// NewSession wraps conn and readies it to run Serve. op may be nil if
// the admin console is not wired up (it is then unreachable: a login
// under cfg.AdminName falls back to an ordinary, unprivileged player
// session).
func NewSession(conn *Conn, cfg *conf.Config, db conf.DatabaseManager, reg *Registry, view *Viewers, op Operator) *Session {
	return &Session{
		conn:         conn,
		cfg:          cfg,
		db:           db,
		reg:          reg,
		view:         view,
		op:           op,
		connID:       uuid.New(),
		lastActivity: time.Now(),
		moveCh:       make(chan string, 1),
		done:         make(chan struct{}),
	}
}

// ConnID is a per-connection UUID, an identifier distinct from the
// sequential, guessable game id. No log line prints it.
func (s *Session) ConnID() uuid.UUID { return s.connID }

// IdleFor reports how long it has been since the session last sent a
// line the dispatcher acted on.
func (s *Session) IdleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// Name satisfies game.Seat.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Serve drives the connection until it disconnects.
func (s *Session) Serve() {
	defer s.teardown()

	if err := s.conn.Send("protocol genmove_analyze"); err != nil {
		return
	}

	for {
		line, ok := s.conn.ReadLine(s.done)
		if !ok {
			return
		}
		s.dispatch(line)
	}
}

func (s *Session) setState(st state) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) getState() state {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) dispatch(line string) {
	s.touch()
	switch s.getState() {
	case stateProtocol:
		s.handleProtocol(line)
	case stateUsername:
		s.handleUsername(line)
	case statePassword:
		s.handlePassword(line)
	case stateGameOver:
		s.handleGameOver(line)
	case stateGenmove:
		select {
		case s.moveCh <- line:
		default:
		}
	case stateViewer:
		s.handleViewerLine(line)
	case stateAdmin:
		s.handleAdminLine(line)
	case stateOK:
		// Passive: the player is either idle or mid-game waiting on
		// its opponent, and nothing is expected from it right now.
	}
}

func (s *Session) handleProtocol(line string) {
	msg := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(msg, "v1"):
		s.becomeViewer()
	case strings.HasPrefix(msg, "e1"):
		fields := strings.Fields(msg)
		for _, f := range fields[1:] {
			if f == "genmove_analyze" {
				s.useAnalyze = true
			}
		}
		s.setState(stateUsername)
		s.conn.Send("username")
	default:
		s.conn.Send("Error: invalid response")
		s.Close()
	}
}

func (s *Session) handleUsername(line string) {
	name := strings.TrimSpace(line)
	if !validName.MatchString(name) {
		s.conn.Send("Error: invalid user name")
		s.Close()
		return
	}
	if s.cfg.Badwords != nil && s.cfg.Badwords.Contains(name) {
		s.conn.Send("Error: that name is not welcome here")
		s.Close()
		return
	}

	s.mu.Lock()
	s.name = name
	s.mu.Unlock()

	s.setState(statePassword)
	s.conn.Send("password")
}

func (s *Session) handlePassword(line string) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 || len(fields) > 2 {
		s.conn.Send("Error: send <password> or <old_password new_password>")
		s.Close()
		return
	}

	pw := fields[0]
	var newPw string
	if len(fields) == 2 {
		newPw = fields[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, found, err := s.db.Player(ctx, s.Name())
	if err != nil {
		s.conn.Send("Error: internal error")
		s.Close()
		return
	}

	if !found {
		p = igs.Player{Name: s.Name(), Rating: s.cfg.DefaultRating, K: s.cfg.KMax}
		p.Secret = s.storedSecret(pw)
		if err := s.db.UpsertPlayer(ctx, p); err != nil {
			s.conn.Send("Error: internal error")
			s.Close()
			return
		}
	} else if !s.verifySecret(p.Secret, pw) {
		s.conn.Send("Error: Sorry, password doesn't match")
		s.Close()
		return
	}

	if newPw != "" {
		p.Secret = s.storedSecret(newPw)
		if err := s.db.UpsertPlayer(ctx, p); err != nil {
			s.conn.Send("Error: internal error")
			s.Close()
			return
		}
	}

	s.mu.Lock()
	s.rating = p.Rating
	s.k = p.K
	s.mu.Unlock()

	s.conn.Send("ok")
	if s.op != nil && s.cfg.AdminName != "" && s.Name() == s.cfg.AdminName {
		s.setState(stateAdmin)
		return
	}

	if s.op != nil {
		if g, color, ok := s.op.Rejoin(s.Name()); ok {
			s.rejoin(g, color)
			return
		}
	}

	s.setState(stateOK)
	s.reg.MarkWaiting(s)
}

// rejoin implements spec.md §4.2's Rejoin: the authenticated name is a
// participant in a live game, so it is attached back to that game
// instead of entering the waiting pool. The catch-up setup line
// (including the full move history) is sent before AttachRejoined lets
// the game's Play loop see this session as the new occupant, so a
// reissued genmove for this gid can never arrive ahead of its setup.
func (s *Session) rejoin(g *game.Game, color igs.Color) {
	s.mu.Lock()
	s.game = g
	s.gid = g.ID
	s.color = color
	s.mu.Unlock()

	s.setState(stateOK)
	s.reg.MarkWaiting(s)
	s.conn.Send("%s", setupLine(g))

	s.op.AttachRejoined(g.ID, color, s)
}

func (s *Session) handleGameOver(line string) {
	if strings.TrimSpace(line) == "ready" {
		s.mu.Lock()
		s.gid = 0
		s.game = nil
		s.mu.Unlock()
		s.setState(stateOK)
		s.reg.MarkWaiting(s)
	}
}

// becomeViewer implements spec.md §4.4's viewer handshake: register
// for broadcast, then catch the new spectator up with one "match" line
// per recently archived game (most recent 40) and one per game still
// in progress, so it can pick a gid to "observe" without having
// watched the pairing happen live.
func (s *Session) becomeViewer() {
	s.setState(stateViewer)
	s.view.Add(s.conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if recent, err := s.db.RecentGames(ctx, 40); err == nil {
		for _, rec := range recent {
			s.conn.Send("match %d %s %s %d %.1f %s(%s) %s(%s) %s",
				rec.GID, rec.Started.UTC().Format("2006-01-02"), rec.Started.UTC().Format("15:04:05"),
				rec.Size, rec.Komi, rec.White, rec.WhiteRating, rec.Black, rec.BlackRating, rec.Result)
		}
	}

	if s.op != nil {
		for _, g := range s.op.ActiveGames() {
			s.conn.Send("match %d - - %d %.1f %s(%s) %s(%s) -",
				g.GID, g.Size, g.Komi, g.White, g.WhiteRating, g.Black, g.BlackRating)
		}
	}
}

// handleViewerLine parses the only command a spectator may send:
// "observe <gid>", spec.md §4.4.
func (s *Session) handleViewerLine(line string) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) != 2 || fields[0] != "observe" {
		return
	}
	var gid int64
	if _, err := fmt.Sscanf(fields[1], "%d", &gid); err != nil {
		return
	}
	s.observe(gid)
}

// observe switches this viewer to gid's moves and sends the setup
// line it needs to render the board: a live game's current state if
// it is still running, or the archived record (including its full
// move history) if it has already finished.
func (s *Session) observe(gid int64) {
	s.view.Observe(s.conn, gid)

	if s.op != nil {
		if g, ok := s.op.LiveGame(gid); ok {
			s.conn.Send("%s", setupLine(g))
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rec, moves, found, err := s.db.GameByID(ctx, gid)
	if err != nil || !found {
		s.conn.Send("setup %d ?", gid)
		return
	}
	s.conn.Send("%s", archiveSetupLine(rec, moves))
}

// archiveSetupLine renders the same "setup" shape as setupLine, for a
// finished game that has no live game.Game to read from. The clock
// field is always 0: an archived game has no time left to report.
func archiveSetupLine(rec igs.GameRecord, moves []igs.Move) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "setup %d %d %.1f 0 %s(%s) %s(%s)",
		rec.GID, rec.Size, rec.Komi,
		rec.White, rec.WhiteRating, rec.Black, rec.BlackRating)
	for _, mv := range moves {
		fmt.Fprintf(&sb, " %s %d", mv.Text, mv.RemainMs)
	}
	return sb.String()
}

// EnterGame pulls the session out of the waiting pool and attaches it
// to an in-progress game as the given color.
func (s *Session) EnterGame(g *game.Game, c igs.Color) {
	s.reg.Unmark(s.Name())
	s.mu.Lock()
	s.game = g
	s.gid = g.ID
	s.color = c
	s.mu.Unlock()
	s.setState(stateOK)
	s.conn.Send("%s", setupLine(g))
}

// setupLine renders spec.md §4.3/§6's full setup announcement:
// "setup <gid> <N> <komi> <L> <w>(<wr>) <b>(<br>) [<mv1> <t1> ...]",
// shared between a fresh pairing's EnterGame and a reconnecting
// player's catch-up line.
func setupLine(g *game.Game) string {
	wr, wk := ratingOf(g.White)
	br, bk := ratingOf(g.Black)

	var sb strings.Builder
	fmt.Fprintf(&sb, "setup %d %d %.1f %d %s(%s) %s(%s)",
		g.ID, g.Board.Size(), g.Board.Komi(), g.ClockMs,
		g.White.Name(), igs.Printable(wr, wk),
		g.Black.Name(), igs.Printable(br, bk))
	for _, mv := range g.Moves {
		fmt.Fprintf(&sb, " %s %d", mv.Text, mv.RemainMs)
	}
	return sb.String()
}

// ratedSeat is the subset of game.Seat that *Session additionally
// satisfies; setupLine uses it to print a rating without widening
// game.Seat itself (the game package has no notion of ratings).
type ratedSeat interface {
	Rating() (float64, float64)
}

func ratingOf(seat game.Seat) (float64, float64) {
	if rs, ok := seat.(ratedSeat); ok {
		return rs.Rating()
	}
	return 0, 0
}

// RequestMove satisfies game.Seat: it sends genmove with remainMs and
// blocks until the client replies, ctx is cancelled or the connection
// drops. It sets no deadline of its own.
func (s *Session) RequestMove(ctx context.Context, boardText string, remainMs int64) (string, string, error) {
	color := "b"
	s.mu.Lock()
	if s.color == igs.White {
		color = "w"
	}
	s.mu.Unlock()

	s.setState(stateGenmove)
	if err := s.conn.Send("genmove %s %d", color, remainMs); err != nil {
		return "", "", err
	}

	select {
	case <-ctx.Done():
		return "", "", ctx.Err()
	case line, ok := <-s.moveCh:
		if !ok {
			// The connection dropped: game.Play treats this as
			// retryable rather than a forfeit, in case the same
			// player logs back in and is attached to this seat again.
			return "", "", game.ErrSeatDisconnected
		}
		s.setState(stateOK)
		return parseMoveLine(line, s.useAnalyze)
	}
}

// parseMoveLine splits a genmove reply into the move text and, if
// useAnalyze negotiated genmove_analyze, a trailing JSON comment.
func parseMoveLine(line string, useAnalyze bool) (mv, analysis string, err error) {
	line = strings.TrimSpace(line)
	if !useAnalyze {
		return line, "", nil
	}
	parts := strings.SplitN(line, " ", 2)
	if len(parts) == 2 {
		// Malformed analysis is dropped; the move itself still stands.
		if !json.Valid([]byte(parts[1])) {
			return parts[0], "", nil
		}
		return parts[0], parts[1], nil
	}
	return parts[0], "", nil
}

// Notify sends an unsolicited line to the player (e.g. "play b q4
// 58000" after the opponent's move, or "gameover ... "). It never
// blocks on the protocol state machine.
func (s *Session) Notify(format string, args ...interface{}) {
	s.conn.Send(format, args...)
}

// GameOver transitions the session into the gameover state, reporting
// the result the way spec.md §4.2 specifies, and waits for the
// client's "ready" before it becomes available again.
func (s *Session) GameOver(result igs.Result) {
	s.setState(stateGameOver)
	s.conn.Send("gameover %s %s", time.Now().UTC().Format("2006-01-02 15:04:05"), result)
}

// Close tears the connection down; idempotent.
func (s *Session) Close() {
	s.conn.Close()
}

func (s *Session) teardown() {
	close(s.done)
	close(s.moveCh)
	s.reg.Forget(s.Name(), s)
	s.conn.Close()
}

func (s *Session) String() string {
	name := s.Name()
	if name == "" {
		name = s.conn.RemoteAddr()
	}
	return fmt.Sprintf("session(%s)", name)
}

// Rating returns the session's last-known rating and K-factor.
func (s *Session) Rating() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rating, s.k
}

// idleGID reports the game id a session is currently attached to, or
// 0 if it is not in a game.
func (s *Session) idleGID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gid
}
