// Copyright 2026 The mdkcompdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package config loads the toolchain settings file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the tool configuration, read from a YAML settings file.
//
//	compiler:
//	  exe: /opt/arm/armcc/bin/armcc
//	  include_dir: /opt/arm/armcc/include
type Config struct {
	Compiler CompilerConfig `yaml:"compiler"`
}

// CompilerConfig locates the toolchain recorded in the compilation
// database. The tool never probes the filesystem for these paths; they
// are copied into the database as given.
type CompilerConfig struct {
	// Exe is the compiler executable path recorded in every entry.
	Exe string `yaml:"exe"`
	// IncludeDir is the compiler's own include directory, added as the
	// last include search path of every entry when set.
	IncludeDir string `yaml:"include_dir"`
}

// Load reads the configuration from fname.
func Load(fname string) (*Config, error) {
	b, err := os.ReadFile(fname)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	err = yaml.Unmarshal(b, cfg)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", fname, err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable for generation.
func (c *Config) Validate() error {
	if c.Compiler.Exe == "" {
		return fmt.Errorf("compiler.exe is not set")
	}
	return nil
}
