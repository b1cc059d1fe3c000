// Named board/clock presets
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

	"gopkg.in/yaml.v3"
)

// Preset names one combination of board size, komi and clock budget
// that a scheduler round can draw matches from, following the CGOS
// convention of a handful of named rule sets (e.g. "9x9", "19x19
// slow") rather than one fixed board for the whole server.
type Preset struct {
	Name   string  `yaml:"name"`
	Size   int     `yaml:"size"`
	Komi   float64 `yaml:"komi"`
	Millis int64   `yaml:"millis"`
}

// LoadPresets reads a YAML list of presets from path. A missing path
// is not an error: it simply yields no presets, and the scheduler
// falls back to the single board configured on Config.
func LoadPresets(path string) ([]Preset, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var presets []Preset
	if err := yaml.Unmarshal(b, &presets); err != nil {
		return nil, err
	}
	return presets, nil
}
