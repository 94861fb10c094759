// Copyright 2026 The mdkcompdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/maruel/subcommands"

	"mdkcompdb/subcmd/generate"
	"mdkcompdb/subcmd/version"
	"mdkcompdb/subcmd/watch"
)

// Mdkcompdb generates clang compilation databases from Keil MDK
// dependency files, so clangd can navigate firmware projects that are
// built inside the IDE.

const versionString = "0.3.0"

func main() {
	os.Exit(mdkMain())
}

func mdkMain() int {
	if v := os.Getenv("MDKCOMPDB_LOG"); v != "" {
		lvl, err := log.ParseLevel(v)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad $MDKCOMPDB_LOG %q: %v\n", v, err)
			return 2
		}
		log.SetLevel(lvl)
	}
	app := &subcommands.DefaultApplication{
		Name:  "mdkcompdb",
		Title: "tool to generate compile_commands.json from Keil MDK .dep files",
		Commands: []*subcommands.Command{
			generate.Cmd(),
			watch.Cmd(),
			version.Cmd(versionString),
			subcommands.CmdHelp,
		},
	}
	return subcommands.Run(app, nil)
}
