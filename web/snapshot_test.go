// Copyright (c) 2024  Internet Go Server contributors
//
// This file is part of go-igs.
//
// go-igs is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.

package web

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSortsStandingsByRatingDescending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	w := NewWriter(path)

	err := w.Write([]Standing{
		{Name: "low", Rating: 1200, K: 32, Games: 1},
		{Name: "high", Rating: 1800, K: 16, Games: 10},
	}, nil)
	require.NoError(t, err)

	body, err := os.ReadFile(path)
	require.NoError(t, err)

	highIdx := indexOf(t, string(body), "player high")
	lowIdx := indexOf(t, string(body), "player low")
	assert.Less(t, highIdx, lowIdx)
}

func TestWriteIncludesRunningGames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	w := NewWriter(path)

	err := w.Write(nil, []Running{{GID: 7, White: "alice", Black: "bob", Size: 19, Komi: 7.5}})
	require.NoError(t, err)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "game 7 alice bob 19 7.5")
}

func TestWriteIsAtomicAcrossRewrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	w := NewWriter(path)

	require.NoError(t, w.Write([]Standing{{Name: "a", Rating: 1500, K: 32}}, nil))
	require.NoError(t, w.Write([]Standing{{Name: "b", Rating: 1500, K: 32}}, nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no leftover temp files after a rewrite")

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "player b")
}

func TestWriteCreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.txt")
	w := NewWriter(path)
	require.NoError(t, w.Write(nil, nil))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func indexOf(t *testing.T, haystack, needle string) int {
	t.Helper()
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	t.Fatalf("%q not found in %q", needle, haystack)
	return -1
}
