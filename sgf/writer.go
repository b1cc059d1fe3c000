// Copyright (c) 2024  Internet Go Server contributors
//
// This file is part of go-igs.
//
// go-igs is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.

package sgf

import (
	"compress/gzip"
	"os"
	"path/filepath"
)

// WriteFile renders r and writes it to disk at the path computed by
// Path, creating parent directories as needed. When gzip is true the
// file is suffixed with .gz and compressed.
func WriteFile(path string, r Record, gzipped bool) error {
	if gzipped {
		path += ".gz"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	text := Render(r)
	if !gzipped {
		_, err = f.WriteString(text)
		return err
	}

	gw := gzip.NewWriter(f)
	defer gw.Close()
	_, err = gw.Write([]byte(text))
	return err
}
