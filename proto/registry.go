// Copyright (c) 2024  Internet Go Server contributors
//
// This file is part of go-igs.
//
// go-igs is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.

package proto

import "sync"

// Registry tracks every session currently available to be paired
// into a new game, plus every logged-in session by name (for the
// admin console's "who" and for rejecting a second concurrent login).
type Registry struct {
	mu      sync.Mutex
	waiting map[string]*Session
	loggedIn map[string]*Session
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		waiting:  make(map[string]*Session),
		loggedIn: make(map[string]*Session),
	}
}

// MarkWaiting records s as both logged in and available for pairing.
// Calling it for a name that is already logged in from a different
// session evicts the old one, mirroring the "another login is being
// attempted using this user name" behaviour in the original server.
func (r *Registry) MarkWaiting(s *Session) {
	name := s.Name()

	r.mu.Lock()
	if old, ok := r.loggedIn[name]; ok && old != s {
		r.mu.Unlock()
		old.Notify("info another login is being attempted using this user name")
		old.Close()
		r.mu.Lock()
	}
	r.loggedIn[name] = s
	r.waiting[name] = s
	r.mu.Unlock()
}

// Unmark removes name from the waiting pool (it stays logged in if
// still connected under the same name).
func (r *Registry) Unmark(name string) {
	if name == "" {
		return
	}
	r.mu.Lock()
	delete(r.waiting, name)
	r.mu.Unlock()
}

// Forget removes name from both the waiting pool and the logged-in
// set; called when a session's connection closes for good.
func (r *Registry) Forget(name string, s *Session) {
	if name == "" {
		return
	}
	r.mu.Lock()
	if r.loggedIn[name] == s {
		delete(r.loggedIn, name)
	}
	if r.waiting[name] == s {
		delete(r.waiting, name)
	}
	r.mu.Unlock()
}

// Waiting returns a snapshot of every session currently available to
// be paired into a new game.
func (r *Registry) Waiting() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Session, 0, len(r.waiting))
	for _, s := range r.waiting {
		if s.idleGID() == 0 {
			out = append(out, s)
		}
	}
	return out
}

// GetWaiting looks up a session by name among those currently
// available to be paired, the pool both AUTO pairing and a forced
// admin "match" draw from.
func (r *Registry) GetWaiting(name string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.waiting[name]
	if !ok || s.idleGID() != 0 {
		return nil, false
	}
	return s, true
}

// LoggedIn returns a snapshot of every currently logged-in session,
// for the admin console's "who".
func (r *Registry) LoggedIn() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Session, 0, len(r.loggedIn))
	for _, s := range r.loggedIn {
		out = append(out, s)
	}
	return out
}
