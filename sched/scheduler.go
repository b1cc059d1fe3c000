// Round scheduler: pairing, rating batches, snapshot, kill-file
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

// Package sched runs the periodic round loop described in spec.md
// §4.5: a timeout sweep, round-boundary rating batch, bad-user reload,
// AUTO pairing and snapshot rewrite, same general shape as the
// teacher's sched.scheduler fanning work out across a worker pool per
// round -- except a round here is a fixed wall-clock tick rather than
// a fixed game list, and isolation is a per-connection socket instead
// of the teacher's Docker sandboxing (out of scope, see
// SPEC_FULL.md's non-goals).
package sched

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"go-igs"
	"go-igs/conf"
	"go-igs/game"
	"go-igs/proto"
	"go-igs/rating"
	"go-igs/sgf"
	"go-igs/web"
)

// liveGame is one in-progress match the scheduler is tracking for the
// admin console and for round-boundary gating (round-boundary actions
// only fire once the live set is empty).
type liveGame struct {
	g      *game.Game
	cancel context.CancelFunc

	// mu guards white/black: a Rejoin swaps the occupant of a side
	// from whatever goroutine handles that session's login, while
	// MoveMade/GameOver/writeSnapshot read it from the scheduler's own
	// goroutines.
	mu    sync.Mutex
	white *proto.Session
	black *proto.Session
}

func (lg *liveGame) White() *proto.Session {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	return lg.white
}

func (lg *liveGame) Black() *proto.Session {
	lg.mu.Lock()
	defer lg.mu.Unlock()
	return lg.black
}

func (lg *liveGame) setSeat(c igs.Color, sess *proto.Session) {
	lg.mu.Lock()
	if c == igs.White {
		lg.white = sess
	} else {
		lg.black = sess
	}
	lg.mu.Unlock()
}

// Scheduler implements conf.SchedManager and proto.Operator: the same
// value both runs the periodic round loop and answers the admin
// console's "match"/"abort"/"games" commands.
type Scheduler struct {
	cfg  *conf.Config
	db   conf.DatabaseManager
	reg  *proto.Registry
	view *proto.Viewers
	snap *web.Writer

	presets []conf.Preset

	mu       sync.Mutex
	live     map[int64]*liveGame
	lastInfo time.Time

	stop chan struct{}
	wg   sync.WaitGroup
}

// New builds a Scheduler wired to the registry and viewer hub the
// proto.Server already owns, so pairing can pull straight from the
// same waiting pool the admin console lists.
func New(cfg *conf.Config, db conf.DatabaseManager, reg *proto.Registry, view *proto.Viewers) *Scheduler {
	presets, err := conf.LoadPresets(cfg.PresetsPath)
	if err != nil {
		cfg.Log.Printf("sched: loading presets: %v", err)
	}
	return &Scheduler{
		cfg:      cfg,
		db:       db,
		reg:      reg,
		view:     view,
		snap:     web.NewWriter(cfg.SnapshotPath),
		presets:  presets,
		live:     make(map[int64]*liveGame),
		stop:     make(chan struct{}),
	}
}

func (s *Scheduler) String() string { return "sched" }

// Start runs the round loop: first fire after cfg.RoundFirstDelay,
// then every cfg.RoundInterval, until Shutdown or the process context
// is cancelled.
func (s *Scheduler) Start() {
	if err := s.reloadBadwords(); err != nil {
		s.cfg.Log.Printf("sched: loading badwords: %v", err)
	}

	timer := time.NewTimer(s.cfg.RoundFirstDelay)
	defer timer.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-s.cfg.Ctx.Done():
			return
		case <-timer.C:
			s.tick()
			timer.Reset(s.cfg.RoundInterval)
		}
	}
}

// Shutdown stops the round loop and waits for every in-flight game
// goroutine to return. It does not cancel those games itself: one that
// is still running ends when it finishes on its own or when the
// process context is cancelled, which Play reports as an operator
// abort.
func (s *Scheduler) Shutdown() {
	close(s.stop)
	s.wg.Wait()
}

// tick is one invocation of spec.md §4.5's per-round algorithm. The
// timeout sweep (step 1) runs on every invocation, live games or not;
// everything after it only runs at a round boundary, once the sweep
// has cleared out anything that timed out since the last tick.
func (s *Scheduler) tick() {
	s.sweepTimeouts()

	if s.liveCount() > 0 {
		s.infoBroadcast()
		return
	}

	ctx := s.cfg.Ctx

	if err := s.reloadBadwords(); err != nil {
		s.cfg.Log.Printf("sched: reload badwords: %v", err)
	}
	s.kickBadwordNames()

	var g errgroup.Group
	g.Go(func() error { return s.ratingBatch(ctx) })
	g.Go(func() error { return s.writeSnapshot(ctx) })
	if err := g.Wait(); err != nil {
		s.cfg.Log.Printf("sched: round-boundary actions: %v", err)
	}

	if s.killFileExists() {
		s.cfg.Log.Println("sched: kill-file present, shutting down")
		s.cfg.Kill()
		return
	}

	if strings.EqualFold(s.cfg.MatchMode, "AUTO") {
		s.autoPair(ctx)
	}
}

func (s *Scheduler) liveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// sweepTimeouts is spec.md §4.5 step 1: for every live game, debit
// elapsed time since the side-to-move's request began from that
// side's clock; if it would go negative, terminate the game with the
// corresponding time forfeit. This is the only backstop for a side
// that stops responding entirely -- the per-move elapsed-time charge
// in game.Game.Play only fires once a reply (or a disconnect) actually
// arrives.
func (s *Scheduler) sweepTimeouts() {
	now := time.Now()

	s.mu.Lock()
	games := make([]*liveGame, 0, len(s.live))
	for _, lg := range s.live {
		games = append(games, lg)
	}
	s.mu.Unlock()

	for _, lg := range games {
		if seat, timedOut := lg.g.CheckTimeout(now); timedOut {
			lg.g.MarkTimedOut(seat.Name())
			lg.cancel()
		}
	}
}

// infoBroadcast sends the "time until next round" notice to viewers
// at most once a minute, using the longest combined remaining clock
// across every live game.
func (s *Scheduler) infoBroadcast() {
	s.mu.Lock()
	quiet := time.Since(s.lastInfo) < 60*time.Second
	var maxRemain int64
	for _, lg := range s.live {
		r := lg.g.Remaining(igs.White) + lg.g.Remaining(igs.Black)
		if r > maxRemain {
			maxRemain = r
		}
	}
	s.mu.Unlock()
	if quiet {
		return
	}

	d := time.Duration(maxRemain) * time.Millisecond
	s.view.Broadcast("info Maximum time until next round: %02d:%02d", int(d.Minutes()), int(d.Seconds())%60)

	s.mu.Lock()
	s.lastInfo = time.Now()
	s.mu.Unlock()
}

// reloadBadwords re-reads the shared cfg.Badwords list. The list
// itself is also consulted directly at login time (proto.Session's
// handleUsername), so a name that is already on the
// list is rejected before it is ever paired; this reload only catches
// a name that becomes bad *after* a session logged in under it.
func (s *Scheduler) reloadBadwords() error {
	return s.cfg.Badwords.Reload(s.cfg.BadwordsPath)
}

// kickBadwordNames evicts any waiting session whose name newly
// appears on the reloaded list, spec.md §4.5.3b.
func (s *Scheduler) kickBadwordNames() {
	for _, w := range s.reg.Waiting() {
		if s.cfg.Badwords.Contains(w.Name()) {
			w.Notify("info your user name is no longer welcome here")
			w.Close()
		}
	}
}

func (s *Scheduler) killFileExists() bool {
	if s.cfg.KillFilePath == "" {
		return false
	}
	_, err := os.Stat(s.cfg.KillFilePath)
	return err == nil
}

// ratingBatch folds every finished-but-unrated game into the Elo
// batch (rating.Batch) and persists the result, spec.md §4.6.
func (s *Scheduler) ratingBatch(ctx context.Context) error {
	rows, err := s.db.UnratedGames(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	players, err := s.db.Players(ctx)
	if err != nil {
		return err
	}

	byName := make(map[string]igs.Player, len(players))
	snaps := make(map[string]rating.Snapshot, len(players))
	for _, p := range players {
		byName[p.Name] = p
		snaps[p.Name] = rating.Snapshot{Rating: p.Rating, K: p.K, IsAnchor: p.IsAnchor, Anchor: p.Anchor}
	}

	played := make(map[string]int, len(players))
	for _, row := range rows {
		played[row.White]++
		played[row.Black]++
	}

	bounds := rating.Bounds{Min: s.cfg.KMin, Max: s.cfg.KMax}
	updated := rating.Batch(rows, snaps, bounds)

	for name, n := range played {
		p, ok := byName[name]
		if !ok {
			continue
		}
		snap := updated[name]
		p.Rating, p.K = snap.Rating, snap.K
		p.Games += n
		if err := s.db.UpsertPlayer(ctx, p); err != nil {
			return err
		}
	}

	gids := make([]int64, 0, len(rows))
	for _, row := range rows {
		gids = append(gids, row.GID)
	}
	return s.db.MarkRated(ctx, gids)
}

// writeSnapshot rewrites the atomic snapshot file with current
// standings and whatever is live at the moment it is called.
func (s *Scheduler) writeSnapshot(ctx context.Context) error {
	players, err := s.db.Players(ctx)
	if err != nil {
		return err
	}
	standings := make([]web.Standing, 0, len(players))
	for _, p := range players {
		standings = append(standings, web.Standing{Name: p.Name, Rating: p.Rating, K: p.K, Games: p.Games})
	}

	s.mu.Lock()
	games := make([]*liveGame, 0, len(s.live))
	for _, lg := range s.live {
		games = append(games, lg)
	}
	s.mu.Unlock()

	running := make([]web.Running, 0, len(games))
	for _, lg := range games {
		running = append(running, web.Running{
			GID: lg.g.ID, White: lg.White().Name(), Black: lg.Black().Name(),
			Size: lg.g.Board.Size(), Komi: lg.g.Board.Komi(),
		})
	}

	return s.snap.Write(standings, running)
}

// autoPair implements spec.md §4.5's AUTO pairing: a dynamic
// rating-window (RANGE) that widens when the field is thin and tight
// when it's crowded, a jittered sort to avoid the same few players
// meeting every round, and a prior-color lookup so the side that has
// had white less often gets it this time.
func (s *Scheduler) autoPair(ctx context.Context) {
	waiting := s.reg.Waiting()
	if len(waiting) < 2 {
		return
	}

	type cand struct {
		sess   *proto.Session
		rating float64
	}
	cands := make([]cand, 0, len(waiting))
	sum := 0.0
	for _, w := range waiting {
		r, _ := w.Rating()
		cands = append(cands, cand{sess: w, rating: r})
		sum += r
	}
	avg := s.cfg.DefaultRating
	if len(cands) > 0 {
		avg = sum / float64(len(cands))
	}
	s.cfg.Debug.Printf("sched: pairing %d waiting, average rating %.0f", len(cands), avg)

	sort.Slice(cands, func(i, j int) bool { return cands[i].rating > cands[j].rating })

	const skip = 4
	rangeVal := 2000.0
	if len(cands) > skip {
		maxDiff := 0.0
		for i := 0; i+skip < len(cands); i++ {
			if d := cands[i].rating - cands[i+skip].rating; d > maxDiff {
				maxDiff = d
			}
		}
		rangeVal = maxDiff
	}
	rangeVal *= 1.5
	if rangeVal < 500.0 {
		rangeVal = 500.0
	}

	type keyed struct {
		cand
		key float64
	}
	jittered := make([]keyed, len(cands))
	for i, c := range cands {
		jittered[i] = keyed{c, c.rating + rangeVal*rand.Float64()}
	}
	sort.Slice(jittered, func(i, j int) bool { return jittered[i].key > jittered[j].key })

	started := 0
	for i := 0; i+1 < len(jittered); i += 2 {
		if s.startPair(ctx, jittered[i].sess, jittered[i+1].sess) {
			started++
		}
	}

	if started > 0 {
		s.cfg.Debug.Printf("sched: started %d games, %d viewers watching", started, s.view.Count())
		time.Sleep(3 * time.Second)
	}
}

// startPair instantiates one game between a and b, applying the
// anchor-drop rule and the prior-color lookup. Returns false if the
// pair was skipped (both anchors, randomly dropped) or a lookup
// failed.
func (s *Scheduler) startPair(ctx context.Context, a, b *proto.Session) bool {
	pa, foundA, err := s.db.Player(ctx, a.Name())
	if err != nil || !foundA {
		return false
	}
	pb, foundB, err := s.db.Player(ctx, b.Name())
	if err != nil || !foundB {
		return false
	}

	if pa.IsAnchor && pb.IsAnchor && rand.Float64() > s.cfg.AnchorMatchRate {
		return false
	}

	white, black := a, b
	if asDealt, asFlipped, err := s.db.HeadToHead(ctx, a.Name(), b.Name()); err == nil && asDealt > asFlipped {
		white, black = b, a
	}

	size, komi, clockMs := s.cfg.Board.Size, s.cfg.Board.Komi, s.cfg.ClockMillis
	if preset := s.pickPreset(); preset != nil {
		size, komi, clockMs = preset.Size, preset.Komi, preset.Millis
	}

	gid, err := s.db.StartGame(ctx, white.Name(), black.Name(), size, komi)
	if err != nil {
		s.cfg.Log.Printf("sched: starting game: %v", err)
		return false
	}

	g := game.New(gid, size, komi, s.cfg.KoRule, white, black, clockMs, s.cfg.LeewayMs)

	gctx, cancel := context.WithCancel(s.cfg.Ctx)
	lg := &liveGame{g: g, white: white, black: black, cancel: cancel}
	g.Observers = append(g.Observers, &gameObserver{sched: s, gid: gid, lg: lg})

	white.EnterGame(g, igs.White)
	black.EnterGame(g, igs.Black)
	wr, wk := white.Rating()
	br, bk := black.Rating()
	s.view.MatchStarted(gid, size, komi, white.Name(), igs.Printable(wr, wk), black.Name(), igs.Printable(br, bk))

	s.mu.Lock()
	s.live[gid] = lg
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		g.Play(gctx)
		s.mu.Lock()
		delete(s.live, gid)
		s.mu.Unlock()
	}()

	return true
}

func (s *Scheduler) pickPreset() *conf.Preset {
	if len(s.presets) == 0 {
		return nil
	}
	return &s.presets[rand.Intn(len(s.presets))]
}

// Pair satisfies proto.Operator: a forced admin "match" between two
// sessions that must both currently be in the waiting pool.
func (s *Scheduler) Pair(white, black string) error {
	if white == black {
		return fmt.Errorf("cannot pair %s against itself", white)
	}
	a, ok := s.reg.GetWaiting(white)
	if !ok {
		return fmt.Errorf("%s is not waiting", white)
	}
	b, ok := s.reg.GetWaiting(black)
	if !ok {
		return fmt.Errorf("%s is not waiting", black)
	}
	if !s.startPair(s.cfg.Ctx, a, b) {
		return fmt.Errorf("could not start %s vs %s", white, black)
	}
	return nil
}

// Abort satisfies proto.Operator: cancel the game's context, which
// unblocks game.Game.Play's select on ctx.Done and ends it by
// forfeit.
func (s *Scheduler) Abort(gid int64) error {
	s.mu.Lock()
	lg, ok := s.live[gid]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("no such game %d", gid)
	}
	lg.cancel()
	return nil
}

// ActiveGames satisfies proto.Operator, for the admin console's
// "games" command.
func (s *Scheduler) ActiveGames() []proto.ActiveGame {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]proto.ActiveGame, 0, len(s.live))
	for gid, lg := range s.live {
		wr, wk := lg.White().Rating()
		br, bk := lg.Black().Rating()
		out = append(out, proto.ActiveGame{
			GID: gid, White: lg.White().Name(), Black: lg.Black().Name(), Ply: lg.g.Board.Ply(),
			Size: lg.g.Board.Size(), Komi: lg.g.Board.Komi(),
			WhiteRating: igs.Printable(wr, wk), BlackRating: igs.Printable(br, bk),
		})
	}
	return out
}

// LiveGame satisfies proto.Operator, for a viewer's "observe <gid>"
// against a game that is still running.
func (s *Scheduler) LiveGame(gid int64) (*game.Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lg, ok := s.live[gid]
	if !ok {
		return nil, false
	}
	return lg.g, true
}

// Rejoin satisfies proto.Operator: spec.md §4.2's login-time scan of
// live games for the authenticated name. It only looks; it does not
// disturb the game, so the caller can send the catch-up setup line
// before AttachRejoined lets Play's retry loop see the new seat.
func (s *Scheduler) Rejoin(name string) (*game.Game, igs.Color, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, lg := range s.live {
		switch name {
		case lg.White().Name():
			return lg.g, igs.White, true
		case lg.Black().Name():
			return lg.g, igs.Black, true
		}
	}
	return nil, igs.Black, false
}

// AttachRejoined satisfies proto.Operator: swap sess in as the
// occupant of color in gid's live game, both on the Game itself (so
// Play's retry loop re-fetches it and, if it's that side's turn,
// reissues genmove) and in the scheduler's own bookkeeping (so
// opponent notifications, admin "who"/"games" and the eventual SGF
// record reflect the reconnected session rather than the dead one).
func (s *Scheduler) AttachRejoined(gid int64, color igs.Color, sess *proto.Session) {
	s.mu.Lock()
	lg, ok := s.live[gid]
	s.mu.Unlock()
	if !ok {
		return
	}
	lg.setSeat(color, sess)
	lg.g.ReplaceSeat(color, sess)
}

var _ conf.SchedManager = (*Scheduler)(nil)
var _ proto.Operator = (*Scheduler)(nil)

// gameObserver is the per-game game.Observer: it notifies the
// opponent of each accepted move, records it, and on game-over writes
// the archival record (database row, SGF file, viewer broadcast,
// both players' "gameover" lines).
type gameObserver struct {
	sched *Scheduler
	gid   int64
	lg    *liveGame
}

func (o *gameObserver) MoveMade(g *game.Game, color igs.Color, mv igs.Move) {
	ctx := o.sched.cfg.Ctx
	ply := len(g.Moves) - 1

	if err := o.sched.db.RecordMove(ctx, o.gid, ply, mv); err != nil {
		o.sched.cfg.Log.Printf("sched: recording move %d/%d: %v", o.gid, ply, err)
	}

	opponent := o.lg.White()
	if color == igs.White {
		opponent = o.lg.Black()
	}
	opponent.Notify("play %s %s %d", color, mv.Text, mv.RemainMs)
	o.sched.view.MoveMade(o.gid, mv.Text, mv.RemainMs)

	if o.sched.cfg.SGFSaveInterval > 0 && (ply+1)%o.sched.cfg.SGFSaveInterval == 0 {
		o.writeSGF(g, "?")
	}
}

func (o *gameObserver) GameOver(g *game.Game, result igs.Result) {
	ctx := o.sched.cfg.Ctx
	if err := o.sched.db.FinishGame(ctx, o.gid, result); err != nil {
		o.sched.cfg.Log.Printf("sched: finishing game %d: %v", o.gid, err)
	}
	whiteUsed := g.ClockMs - g.Remaining(igs.White)
	blackUsed := g.ClockMs - g.Remaining(igs.Black)
	o.sched.view.GameOver(o.gid, string(result), whiteUsed, blackUsed)
	o.writeSGF(g, string(result))

	o.lg.White().GameOver(result)
	o.lg.Black().GameOver(result)
}

func (o *gameObserver) writeSGF(g *game.Game, result string) {
	white, black := o.lg.White(), o.lg.Black()
	wr, wk := white.Rating()
	br, bk := black.Rating()
	rec := sgf.Record{
		GID:         o.gid,
		Size:        g.Board.Size(),
		Komi:        g.Board.Komi(),
		White:       white.Name(),
		Black:       black.Name(),
		WhiteRating: igs.Printable(wr, wk),
		BlackRating: igs.Printable(br, bk),
		Started:     g.Started,
		Result:      igs.Result(result),
		Moves:       g.Moves,
	}
	path := sgf.Path(o.sched.cfg.HTMLDir, o.sched.cfg.SGFDir, o.gid, time.Now())
	if err := sgf.WriteFile(path, rec, o.sched.cfg.Gzip); err != nil {
		o.sched.cfg.Log.Printf("sched: writing sgf for %d: %v", o.gid, err)
	}
}
