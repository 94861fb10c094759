// Copyright 2026 The mdkcompdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package gen runs the dependency-file to compilation-database
// pipeline: read the .dep file, parse the records of one target,
// synthesize entries and write the database.
package gen

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"mdkcompdb/compdb"
	"mdkcompdb/toolsupport/mdkutil"
	"mdkcompdb/toolsupport/shutil"
)

// Params are the resolved inputs of one generation run. All paths are
// absolute; resolving them against flags, config and the current
// directory is the caller's job.
type Params struct {
	Root        string // project root, used as entry working directory
	Project     string // project name in the .dep file; empty matches any
	Target      string // target name in the .dep file; empty matches any
	DepFile     string // .dep file path
	OutDir      string // directory the database is written into
	CompilerExe string
	SysInclude  string
}

// Once runs one parse+synthesize+write pass and returns the number of
// entries written. Nothing is written when parsing fails, so a failed
// run leaves any existing database untouched.
func Once(ctx context.Context, p Params) (int, error) {
	b, err := os.ReadFile(p.DepFile)
	if err != nil {
		return 0, err
	}
	records, err := mdkutil.ParseDeps(b, p.Project, p.Target)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", p.DepFile, err)
	}
	if len(records) == 0 {
		log.Warnf("no compiled files found for target %q in %s", p.Target, p.DepFile)
	}
	entries, err := compdb.Generate(records, compdb.Options{
		ProjectRoot: p.Root,
		CompilerExe: p.CompilerExe,
		SysInclude:  p.SysInclude,
	})
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		log.Debugf("compdb %s: %s", e.File, shutil.Join(e.Arguments))
	}
	err = compdb.WriteFile(p.OutDir, entries)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// FindDepFile searches root for a *.dep file. When several exist the
// lexically first one wins, with a warning; use an explicit flag to
// pick another.
func FindDepFile(root string) (string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".dep") {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no .dep file found in %s", root)
	}
	if len(found) > 1 {
		log.Warnf("multiple .dep files found in %s, using %s", root, found[0])
	}
	return found[0], nil
}
