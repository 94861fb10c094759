// Copyright 2026 The mdkcompdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package compdb synthesizes clang compilation databases
// (compile_commands.json) from parsed dependency records.
package compdb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mdkcompdb/toolsupport/mdkutil"
)

// Filename is the database filename expected by clangd.
const Filename = "compile_commands.json"

// Entry is one compilation database entry.
// https://clang.llvm.org/docs/JSONCompilationDatabase.html
type Entry struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Arguments []string `json:"arguments"`
}

// Options configures Generate.
type Options struct {
	// ProjectRoot is the absolute path used as the working directory of
	// every entry. Relative source paths are resolved against it.
	ProjectRoot string
	// CompilerExe is the compiler executable recorded as argv[0] of
	// every entry. It is an opaque string here; callers resolve and
	// validate the toolchain location.
	CompilerExe string
	// SysInclude is the compiler's own include directory, appended as
	// the last include search path of every entry when set.
	SysInclude string
}

// Generate synthesizes one entry per record, preserving record order.
// Each entry's arguments are the compiler, the record's include dirs,
// defines and remaining flags in recorded order, and the source file
// last. records are not modified.
func Generate(records []mdkutil.Record, opts Options) ([]Entry, error) {
	if opts.CompilerExe == "" {
		return nil, fmt.Errorf("compiler executable not configured")
	}
	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		file := resolvePath(opts.ProjectRoot, rec.Source)
		args := make([]string, 0, len(rec.Includes)+len(rec.Defines)+len(rec.Flags)+3)
		args = append(args, opts.CompilerExe)
		for _, dir := range rec.Includes {
			args = append(args, "-I"+dir)
		}
		for _, d := range rec.Defines {
			args = append(args, "-D"+d.String())
		}
		args = append(args, rec.Flags...)
		if opts.SysInclude != "" {
			args = append(args, "-I"+opts.SysInclude)
		}
		args = append(args, file)
		entries = append(entries, Entry{
			Directory: opts.ProjectRoot,
			File:      file,
			Arguments: args,
		})
	}
	return entries, nil
}

// resolvePath resolves a path recorded in a dependency file against the
// project root. Recorded paths use Windows separators regardless of the
// host platform.
func resolvePath(root, p string) string {
	p = filepath.FromSlash(strings.ReplaceAll(p, `\`, "/"))
	if filepath.IsAbs(p) || isWindowsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// isWindowsAbs reports whether p is a Windows drive-letter path, which
// filepath.IsAbs does not recognize on non-Windows hosts.
func isWindowsAbs(p string) bool {
	return len(p) >= 3 && p[1] == ':' && (p[2] == '/' || p[2] == '\\')
}

// Marshal encodes entries as an indented JSON array. Output is
// deterministic: equal entries yield identical bytes. nil encodes as an
// empty array, not null, so a target with no compiled files still
// produces a valid database.
func Marshal(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// WriteFile writes the database into dir, creating dir if needed and
// fully replacing any previous database there.
func WriteFile(dir string, entries []Entry) error {
	b, err := Marshal(entries)
	if err != nil {
		return err
	}
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, Filename), b, 0644)
}
