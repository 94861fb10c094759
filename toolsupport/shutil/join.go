// Copyright 2026 The mdkcompdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package shutil

import "strings"

// Join joins command line args to a single string, quoting args that
// contain whitespace.
func Join(args []string) string {
	var sb strings.Builder
	for i, arg := range args {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if strings.ContainsAny(arg, " \t") {
			sb.WriteByte('"')
			sb.WriteString(arg)
			sb.WriteByte('"')
			continue
		}
		sb.WriteString(arg)
	}
	return sb.String()
}
