// Copyright 2026 The mdkcompdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package shutil provides utilities for compiler command lines.
package shutil

import (
	"fmt"
	"strings"
)

// Split splits a compiler command line into arguments.
// Double quotes group an argument containing spaces. A backslash is an
// ordinary character; the command lines come out of Windows build tools
// and are full of `\`-separated paths, so it must never act as an
// escape. An unterminated quote indicates a truncated record and is
// an error.
func Split(cmdline string) ([]string, error) {
	var args []string
	var sb strings.Builder
	inquote := false
	quoted := false
	for _, ch := range cmdline {
		if inquote {
			if ch == '"' {
				inquote = false
				continue
			}
			sb.WriteRune(ch)
			continue
		}
		switch ch {
		case '"':
			inquote = true
			quoted = true
		case ' ', '\t', '\r', '\n':
			if sb.Len() > 0 || quoted {
				args = append(args, sb.String())
				sb.Reset()
				quoted = false
			}
		default:
			sb.WriteRune(ch)
		}
	}
	if inquote {
		return nil, fmt.Errorf("unterminated quote in %q", cmdline)
	}
	if sb.Len() > 0 || quoted {
		args = append(args, sb.String())
	}
	return args, nil
}
