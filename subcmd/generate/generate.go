// Copyright 2026 The mdkcompdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package generate provides the generate subcommand.
package generate

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"

	"mdkcompdb/compdb"
	"mdkcompdb/config"
	"mdkcompdb/gen"
)

const usage = `generate compile_commands.json from a Keil MDK .dep file

 $ mdkcompdb generate -C <dir> -project <name> -target <name>

reads the .dep file produced by the MDK build step, extracts the
compiler invocation recorded for every source file of the given
project/target, and writes <dir>/build/compile_commands.json for
clangd. The compiler location comes from the settings file (-config).
`

// Cmd returns the Command for the `generate` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "generate [-C <dir>] [-project <name>] [-target <name>]",
		ShortDesc: "generate compile_commands.json from a .dep file",
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

	dir     string
	project string
	target  string
	depFile string
	cfgFile string
	outDir  string
}

func (c *run) init() {
	c.Flags.StringVar(&c.dir, "C", ".", "project root directory")
	c.Flags.StringVar(&c.project, "project", "", "project name in the .dep file (default: any)")
	c.Flags.StringVar(&c.target, "target", "", "target name in the .dep file (default: any)")
	c.Flags.StringVar(&c.depFile, "dep_file", "", ".dep file (relative to -C; default: search under -C)")
	c.Flags.StringVar(&c.cfgFile, "config", "mdkcompdb.yaml", "toolchain settings file (relative to -C)")
	c.Flags.StringVar(&c.outDir, "o", "build", "output directory for compile_commands.json (relative to -C)")
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
	p, err := Params(c.dir, c.project, c.target, c.depFile, c.cfgFile, c.outDir)
	if err != nil {
		return err
	}
	started := time.Now()
	n, err := gen.Once(ctx, p)
	if err != nil {
		return err
	}
	log.Infof("wrote %s: %d entries in %s", filepath.Join(p.OutDir, compdb.Filename), n, time.Since(started))
	return nil
}

// Params resolves the command line and the settings file into pipeline
// parameters. Relative paths are taken against the project root.
func Params(dir, project, target, depFile, cfgFile, outDir string) (gen.Params, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return gen.Params{}, err
	}
	_, err = os.Stat(root)
	if err != nil {
		return gen.Params{}, fmt.Errorf("project root: %w", err)
	}
	cfgPath := resolve(root, cfgFile)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return gen.Params{}, err
	}
	err = cfg.Validate()
	if err != nil {
		return gen.Params{}, fmt.Errorf("%s: %w", cfgPath, err)
	}
	if depFile == "" {
		depFile, err = gen.FindDepFile(root)
		if err != nil {
			return gen.Params{}, err
		}
	} else {
		depFile = resolve(root, depFile)
	}
	return gen.Params{
		Root:        root,
		Project:     project,
		Target:      target,
		DepFile:     depFile,
		OutDir:      resolve(root, outDir),
		CompilerExe: cfg.Compiler.Exe,
		SysInclude:  cfg.Compiler.IncludeDir,
	}, nil
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
