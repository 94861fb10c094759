// Copyright 2026 The mdkcompdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package mdkutil provides utilities for Keil MDK dependency files.
//
// The MDK build step records one section per project/target in a *.dep
// file:
//
//	Dependencies for Project 'blinky', Target 'STM32F103': (DO NOT MODIFY !)
//	CompilerVersion: 5060960::V5.06 update 7 (build 960)::ARMCC
//	F (.\Src\main.c)(0x63A1B2C3)(--c99 -c --cpu Cortex-M3 -I .\Inc ...)
//	I (.\Inc\main.h)(0x63A1B2C0)
//
// An `F` line opens a block for one compiled source file and carries the
// compiler arguments used for it. `I` lines list the headers that file
// depended on.
package mdkutil

import (
	"bytes"
	"fmt"
	"io/fs"
	"strings"

	"mdkcompdb/toolsupport/shutil"
)

// Define is a preprocessor macro recorded in a dependency file.
type Define struct {
	Name     string
	Value    string
	HasValue bool
}

func (d Define) String() string {
	if d.HasValue {
		return d.Name + "=" + d.Value
	}
	return d.Name
}

// Record is the compiler invocation recorded for one source file.
// Includes, Defines and Flags keep the order they appeared in.
type Record struct {
	Source   string
	Includes []string
	Defines  []Define
	Flags    []string
}

// TargetNotFoundError is an error of a project/target section missing
// from a dependency file.
type TargetNotFoundError struct {
	Project string
	Target  string
}

func (e TargetNotFoundError) Error() string {
	if e.Project == "" && e.Target == "" {
		return "no dependency sections found"
	}
	return fmt.Sprintf("target %q (project %q) not found", e.Target, e.Project)
}

// MalformedRecordError is an error of a broken per-file record.
type MalformedRecordError struct {
	Line   int
	Reason string
}

func (e MalformedRecordError) Error() string {
	return fmt.Sprintf("line:%d: %s", e.Line, e.Reason)
}

// ParseDepsFile parses the *.dep file in fname on fsys and returns the
// records of the section for project/target.
func ParseDepsFile(fsys fs.FS, fname, project, target string) ([]Record, error) {
	b, err := fs.ReadFile(fsys, fname)
	if err != nil {
		return nil, err
	}
	records, err := ParseDeps(b, project, target)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", fname, err)
	}
	return records, nil
}

// ParseDeps parses dependency file contents and returns one record per
// compiled source file of the section for project/target, in textual
// order. An empty project or target matches any section. It never
// modifies b.
func ParseDeps(b []byte, project, target string) ([]Record, error) {
	sec, err := targetSection(b, project, target)
	if err != nil {
		return nil, err
	}
	var records []Record
	seen := make(map[string]bool)
	for _, blk := range fileBlocks(b, sec) {
		rec, err := parseFileBlock(b, blk)
		if err != nil {
			return nil, err
		}
		if seen[rec.Source] {
			return nil, MalformedRecordError{
				Line:   lineno(b, blk.s),
				Reason: fmt.Sprintf("duplicate source file %q", rec.Source),
			}
		}
		seen[rec.Source] = true
		records = append(records, rec)
	}
	return records, nil
}

type span struct {
	s, e int
}

const sectionPrefix = "Dependencies for Project '"

// parseSectionHeader parses a section header line like
//
//	Dependencies for Project 'blinky', Target 'STM32F103': (DO NOT MODIFY !)
func parseSectionHeader(line []byte) (project, target string, ok bool) {
	s, ok := strings.CutPrefix(string(line), sectionPrefix)
	if !ok {
		return "", "", false
	}
	project, s, ok = strings.Cut(s, "'")
	if !ok {
		return "", "", false
	}
	s, ok = strings.CutPrefix(s, ", Target '")
	if !ok {
		return "", "", false
	}
	target, _, ok = strings.Cut(s, "'")
	if !ok {
		return "", "", false
	}
	return project, target, true
}

// targetSection returns the offsets in b of the section body belonging
// to project/target. The body starts after the header line and runs to
// the next section header or EOF.
func targetSection(b []byte, project, target string) (span, error) {
	for pos := 0; pos < len(b); {
		next := nextLine(b, pos)
		p, t, ok := parseSectionHeader(trimLine(b[pos:next]))
		pos = next
		if !ok {
			continue
		}
		if project != "" && p != project {
			continue
		}
		if target != "" && t != target {
			continue
		}
		e := pos
		for e < len(b) {
			n := nextLine(b, e)
			if _, _, ok := parseSectionHeader(trimLine(b[e:n])); ok {
				break
			}
			e = n
		}
		return span{s: pos, e: e}, nil
	}
	return span{}, TargetNotFoundError{Project: project, Target: target}
}

// fileBlocks returns the offsets of each per-file block in the section.
// A block starts at a line beginning with `F ` and runs to the next such
// line or the end of the section.
func fileBlocks(b []byte, sec span) []span {
	var blocks []span
	cur := -1
	for pos := sec.s; pos < sec.e; {
		next := nextLine(b, pos)
		if bytes.HasPrefix(b[pos:next], []byte("F ")) {
			if cur >= 0 {
				blocks = append(blocks, span{s: cur, e: pos})
			}
			cur = pos
		}
		pos = next
	}
	if cur >= 0 {
		blocks = append(blocks, span{s: cur, e: sec.e})
	}
	return blocks
}

// parseFileBlock extracts the record of one `F` block.
//
//	F (<source>)(<hex mtime>)(<args...>)
//
// The args group is the first parenthesized group starting with `-`;
// it may span lines. Arguments the dialect does not model are kept
// verbatim in Flags.
func parseFileBlock(b []byte, blk span) (Record, error) {
	block := b[blk.s:blk.e]
	rest, ok := bytes.CutPrefix(block, []byte("F ("))
	if !ok {
		return Record{}, MalformedRecordError{Line: lineno(b, blk.s), Reason: "no source file in record"}
	}
	i := bytes.IndexByte(rest, ')')
	if i < 0 {
		return Record{}, MalformedRecordError{Line: lineno(b, blk.s), Reason: "unterminated source file path"}
	}
	source := string(rest[:i])
	if source == "" {
		return Record{}, MalformedRecordError{Line: lineno(b, blk.s), Reason: "empty source file path"}
	}
	rest = rest[i+1:]
	j := bytes.Index(rest, []byte("(-"))
	if j < 0 {
		return Record{}, MalformedRecordError{Line: lineno(b, blk.s), Reason: fmt.Sprintf("no compiler arguments for %q", source)}
	}
	rest = rest[j+1:]
	k := bytes.IndexByte(rest, ')')
	if k < 0 {
		return Record{}, MalformedRecordError{Line: lineno(b, blk.s), Reason: fmt.Sprintf("unterminated compiler arguments for %q", source)}
	}
	args, err := shutil.Split(string(rest[:k]))
	if err != nil {
		return Record{}, MalformedRecordError{Line: lineno(b, blk.s), Reason: fmt.Sprintf("bad compiler arguments for %q: %v", source, err)}
	}
	rec := Record{Source: source}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-I", "-D":
			if i+1 >= len(args) {
				return Record{}, MalformedRecordError{Line: lineno(b, blk.s), Reason: fmt.Sprintf("missing argument after %s for %q", arg, source)}
			}
			i++
			if arg == "-I" {
				rec.Includes = append(rec.Includes, args[i])
			} else {
				rec.Defines = append(rec.Defines, parseDefine(args[i]))
			}
			continue
		}
		switch {
		case strings.HasPrefix(arg, "-I"):
			rec.Includes = append(rec.Includes, strings.TrimPrefix(arg, "-I"))
		case strings.HasPrefix(arg, "-D"):
			rec.Defines = append(rec.Defines, parseDefine(strings.TrimPrefix(arg, "-D")))
		default:
			rec.Flags = append(rec.Flags, arg)
		}
	}
	return rec, nil
}

func parseDefine(arg string) Define {
	name, value, ok := strings.Cut(arg, "=")
	return Define{Name: name, Value: value, HasValue: ok}
}

// nextLine returns the offset of the line after the one at pos.
func nextLine(b []byte, pos int) int {
	i := bytes.IndexByte(b[pos:], '\n')
	if i < 0 {
		return len(b)
	}
	return pos + i + 1
}

func trimLine(line []byte) []byte {
	return bytes.TrimRight(line, "\r\n")
}

func lineno(buf []byte, i int) int {
	n := bytes.Count(buf[:i], []byte{'\n'})
	return n + 1
}
