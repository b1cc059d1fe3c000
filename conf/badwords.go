// Shared badwords list
//
// Copyright (c) 2024  Internet Go Server contributors
//
// This file is part of go-igs.
//
// go-igs is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.

package conf

import (
	"os"
	"strings"
	"sync"
)

// Badlist is the reloadable set of disallowed user names, shared
// between the login path (which must reject a bad name before it ever
// reaches the waiting pool) and the scheduler (which reloads the file
// every round and evicts anyone already waiting under a name that
// newly appears on it).
type Badlist struct {
	mu  sync.RWMutex
	set map[string]struct{}
}

// NewBadlist returns an empty list; Reload populates it.
func NewBadlist() *Badlist {
	return &Badlist{set: make(map[string]struct{})}
}

// Contains reports whether name (case-insensitively) is on the list.
func (b *Badlist) Contains(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, bad := b.set[strings.ToLower(name)]
	return bad
}

// Reload re-reads path, one name per line, replacing the current set.
// A missing path is not an error: it means no badwords list is
// configured.
func (b *Badlist) Reload(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	set := make(map[string]struct{})
	for _, line := range strings.Split(string(data), "\n") {
		w := strings.ToLower(strings.TrimSpace(line))
		if w != "" {
			set[w] = struct{}{}
		}
	}

	b.mu.Lock()
	b.set = set
	b.mu.Unlock()
	return nil
}
