// Listener and connection acceptance
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
	"fmt"
	"net"

	"go-igs/conf"
)

// Server accepts TCP connections and spins a Session up for each one.
// It registers itself as a conf.Manager so the daemon's main loop
// starts and stops it together with every other subsystem.
type Server struct {
	cfg  *conf.Config
	db   conf.DatabaseManager
	Reg  *Registry
	View *Viewers
	op   Operator

	ln net.Listener
}

// NewServer builds a Server; op may be nil until the scheduler is
// constructed, and can be attached with SetOperator before Start.
func NewServer(cfg *conf.Config, db conf.DatabaseManager) *Server {
	return &Server{
		cfg:  cfg,
		db:   db,
		Reg:  NewRegistry(),
		View: NewViewers(),
	}
}

// SetOperator wires the admin console to a scheduler.
func (s *Server) SetOperator(op Operator) { s.op = op }

func (s *Server) String() string { return fmt.Sprintf("proto(:%d)", s.cfg.TCPPort) }

// Start listens on cfg.TCPPort and accepts connections until
// Shutdown closes the listener.
func (s *Server) Start() {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.TCPPort))
	if err != nil {
		s.cfg.Log.Printf("proto: listen: %v", err)
		return
	}
	s.ln = ln

	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		s.cfg.Debug.Printf("accepted %s", conn.RemoteAddr())
		sess := NewSession(NewConn(conn), s.cfg, s.db, s.Reg, s.View, s.op)
		go sess.Serve()
	}
}

// Shutdown closes the listener, which unblocks Start's Accept loop.
func (s *Server) Shutdown() {
	if s.ln != nil {
		s.ln.Close()
	}
}
