// Copyright 2026 The mdkcompdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package watch provides the watch subcommand: keep the compilation
// database in sync with the .dep file while builds run in the IDE.
package watch

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/system/signals"

	"mdkcompdb/gen"
	"mdkcompdb/subcmd/generate"
)

const usage = `regenerate compile_commands.json whenever the .dep file changes

 $ mdkcompdb watch -C <dir> -project <name> -target <name>

polls the .dep file and reruns generation after each MDK build step,
so clangd always sees the flags of the last build. Stop with ^C.
`

// Cmd returns the Command for the `watch` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "watch [-C <dir>] [-project <name>] [-target <name>]",
		ShortDesc: "regenerate compile_commands.json on .dep changes",
		LongDesc:  usage,
		CommandRun: func() subcommands.CommandRun {
			c := &run{}
			c.init()
			return c
		},
	}
}

type run struct {
	subcommands.CommandRunBase

	dir      string
	project  string
	target   string
	depFile  string
	cfgFile  string
	outDir   string
	interval time.Duration
	debounce time.Duration
}

func (c *run) init() {
	c.Flags.StringVar(&c.dir, "C", ".", "project root directory")
	c.Flags.StringVar(&c.project, "project", "", "project name in the .dep file (default: any)")
	c.Flags.StringVar(&c.target, "target", "", "target name in the .dep file (default: any)")
	c.Flags.StringVar(&c.depFile, "dep_file", "", ".dep file (relative to -C; default: search under -C)")
	c.Flags.StringVar(&c.cfgFile, "config", "mdkcompdb.yaml", "toolchain settings file (relative to -C)")
	c.Flags.StringVar(&c.outDir, "o", "build", "output directory for compile_commands.json (relative to -C)")
	c.Flags.DurationVar(&c.interval, "interval", 1*time.Second, "poll interval for .dep changes")
	c.Flags.DurationVar(&c.debounce, "debounce", 200*time.Millisecond, "settle time after a change before regenerating")
}

func (c *run) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	err := c.run(ctx)
	if err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			fmt.Fprintf(os.Stderr, "%v\n%s\n", err, usage)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (c *run) run(ctx context.Context) error {
	p, err := generate.Params(c.dir, c.project, c.target, c.depFile, c.cfgFile, c.outDir)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer signals.HandleInterrupt(cancel)()
	return c.watch(ctx, p)
}

// stamp identifies one observed state of the .dep file.
type stamp struct {
	mtime int64
	size  int64
}

func statFile(fname string) (stamp, error) {
	fi, err := os.Stat(fname)
	if err != nil {
		return stamp{}, err
	}
	return stamp{mtime: fi.ModTime().UnixNano(), size: fi.Size()}, nil
}

func (c *run) watch(ctx context.Context, p gen.Params) error {
	count := 0
	regenerate := func() {
		started := time.Now()
		n, err := gen.Once(ctx, p)
		if err != nil {
			// keep watching. the .dep file is rewritten in place by
			// the build step, so a half-written file shows up as a
			// parse error until the next change.
			log.Errorf("generate: %v", err)
			return
		}
		count++
		log.Infof("generated %d entries in %s (count=%d)", n, time.Since(started), count)
	}

	regenerate()
	last, err := statFile(p.DepFile)
	if err != nil {
		return err
	}
	log.Infof("watching %s every %s", p.DepFile, c.interval)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Infof("stopped after %d generations", count)
			return nil
		case <-ticker.C:
		}
		st, err := statFile(p.DepFile)
		if err != nil {
			log.Warnf("stat %s: %v", p.DepFile, err)
			continue
		}
		if st == last {
			continue
		}
		// let the build step finish writing before reparsing.
		select {
		case <-ctx.Done():
			log.Infof("stopped after %d generations", count)
			return nil
		case <-time.After(c.debounce):
		}
		st, err = statFile(p.DepFile)
		if err != nil {
			continue
		}
		last = st
		regenerate()
	}
}
