// Copyright 2026 The mdkcompdb Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package mdkutil

import (
	"bytes"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

const blinkyDep = `Dependencies for Project 'blinky', Target 'STM32F103': (DO NOT MODIFY !)
CompilerVersion: 5060960::V5.06 update 7 (build 960)::ARMCC
F (.\Src\main.c)(0x63A1B2C3)(--c99 -c --cpu Cortex-M3 -D__MICROLIB -g -O0 -I .\Inc -I .\Drivers\CMSIS\Include -D STM32F10X_MD -DUSE_STDPERIPH_DRIVER=1 -o .\Objects\main.o --depend .\Objects\main.d)
I (.\Inc\main.h)(0x63A1B2C0)
I (.\Drivers\CMSIS\Include\core_cm3.h)(0x5F1E2D3C)
F (.\Src\stm32f10x_it.c)(0x63A1B2C4)(--c99 -c --cpu Cortex-M3 -I .\Inc -o .\Objects\stm32f10x_it.o)
I (.\Inc\stm32f10x_it.h)(0x63A1B2C1)
F (.\Src\startup_stm32f10x_md.s)(0x63A1B2C5)(--cpu Cortex-M3 -g --pd "__MICROLIB SETA 1" -I .\Drivers\CMSIS\Include -o .\Objects\startup_stm32f10x_md.o)
`

func TestParseDeps(t *testing.T) {
	for _, tc := range []struct {
		name            string
		dep             string
		project, target string
		want            []Record
	}{
		{
			name:    "blinky",
			dep:     blinkyDep,
			project: "blinky",
			target:  "STM32F103",
			want: []Record{
				{
					Source:   `.\Src\main.c`,
					Includes: []string{`.\Inc`, `.\Drivers\CMSIS\Include`},
					Defines: []Define{
						{Name: "__MICROLIB"},
						{Name: "STM32F10X_MD"},
						{Name: "USE_STDPERIPH_DRIVER", Value: "1", HasValue: true},
					},
					Flags: []string{"--c99", "-c", "--cpu", "Cortex-M3", "-g", "-O0", "-o", `.\Objects\main.o`, "--depend", `.\Objects\main.d`},
				},
				{
					Source:   `.\Src\stm32f10x_it.c`,
					Includes: []string{`.\Inc`},
					Flags:    []string{"--c99", "-c", "--cpu", "Cortex-M3", "-o", `.\Objects\stm32f10x_it.o`},
				},
				{
					Source:   `.\Src\startup_stm32f10x_md.s`,
					Includes: []string{`.\Drivers\CMSIS\Include`},
					Flags:    []string{"--cpu", "Cortex-M3", "-g", "--pd", "__MICROLIB SETA 1", "-o", `.\Objects\startup_stm32f10x_md.o`},
				},
			},
		},
		{
			name:    "anyproject",
			dep:     blinkyDep,
			project: "",
			target:  "STM32F103",
			want: []Record{
				{
					Source:   `.\Src\main.c`,
					Includes: []string{`.\Inc`, `.\Drivers\CMSIS\Include`},
					Defines: []Define{
						{Name: "__MICROLIB"},
						{Name: "STM32F10X_MD"},
						{Name: "USE_STDPERIPH_DRIVER", Value: "1", HasValue: true},
					},
					Flags: []string{"--c99", "-c", "--cpu", "Cortex-M3", "-g", "-O0", "-o", `.\Objects\main.o`, "--depend", `.\Objects\main.d`},
				},
				{
					Source:   `.\Src\stm32f10x_it.c`,
					Includes: []string{`.\Inc`},
					Flags:    []string{"--c99", "-c", "--cpu", "Cortex-M3", "-o", `.\Objects\stm32f10x_it.o`},
				},
				{
					Source:   `.\Src\startup_stm32f10x_md.s`,
					Includes: []string{`.\Drivers\CMSIS\Include`},
					Flags:    []string{"--cpu", "Cortex-M3", "-g", "--pd", "__MICROLIB SETA 1", "-o", `.\Objects\startup_stm32f10x_md.o`},
				},
			},
		},
		{
			name: "secondsection",
			dep: `Dependencies for Project 'blinky', Target 'Debug': (DO NOT MODIFY !)
F (.\Src\main.c)(0x63A1B2C3)(-g -O0 -I .\Inc -o .\Objects\main.o)
Dependencies for Project 'blinky', Target 'Release': (DO NOT MODIFY !)
F (.\Src\main.c)(0x63A1B2C3)(-O2 -I .\Inc -o .\Objects\main.o)
`,
			project: "blinky",
			target:  "Release",
			want: []Record{
				{
					Source:   `.\Src\main.c`,
					Includes: []string{`.\Inc`},
					Flags:    []string{"-O2", "-o", `.\Objects\main.o`},
				},
			},
		},
		{
			name: "emptysection",
			dep: `Dependencies for Project 'blinky', Target 'Empty': (DO NOT MODIFY !)
CompilerVersion: 5060960::V5.06 update 7 (build 960)::ARMCC
`,
			project: "blinky",
			target:  "Empty",
			want:    nil,
		},
		{
			name: "argsjoined",
			dep: `Dependencies for Project 'p', Target 't': (DO NOT MODIFY !)
F (main.c)(0x0)(-I.\Inc -DFOO -DBAR=2 -c)
`,
			project: "p",
			target:  "t",
			want: []Record{
				{
					Source:   "main.c",
					Includes: []string{`.\Inc`},
					Defines: []Define{
						{Name: "FOO"},
						{Name: "BAR", Value: "2", HasValue: true},
					},
					Flags: []string{"-c"},
				},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDeps([]byte(tc.dep), tc.project, tc.target)
			if err != nil {
				t.Fatalf("ParseDeps=%v; want nil error", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ParseDeps -want +got:\n%s", diff)
			}
		})
	}
}

func TestParseDepsTargetNotFound(t *testing.T) {
	for _, tc := range []struct {
		name            string
		dep             string
		project, target string
	}{
		{
			name:    "wrongtarget",
			dep:     blinkyDep,
			project: "blinky",
			target:  "Release",
		},
		{
			name:    "wrongproject",
			dep:     blinkyDep,
			project: "other",
			target:  "STM32F103",
		},
		{
			name:    "nosections",
			dep:     "not a dep file\n",
			project: "blinky",
			target:  "STM32F103",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDeps([]byte(tc.dep), tc.project, tc.target)
			var tnf TargetNotFoundError
			if !errors.As(err, &tnf) {
				t.Fatalf("ParseDeps=%v; want TargetNotFoundError", err)
			}
			if tnf.Target != tc.target || tnf.Project != tc.project {
				t.Errorf("TargetNotFoundError{%q, %q}; want {%q, %q}", tnf.Project, tnf.Target, tc.project, tc.target)
			}
		})
	}
}

func TestParseDepsMalformed(t *testing.T) {
	const header = "Dependencies for Project 'p', Target 't': (DO NOT MODIFY !)\n"
	for _, tc := range []struct {
		name     string
		dep      string
		wantLine int
	}{
		{
			name:     "nosourcegroup",
			dep:      header + "F missing.c(0x0)(-c)\n",
			wantLine: 2,
		},
		{
			name:     "unterminatedsource",
			dep:      header + "F (main.c\n",
			wantLine: 2,
		},
		{
			name:     "emptysource",
			dep:      header + "F ()(0x0)(-c)\n",
			wantLine: 2,
		},
		{
			name:     "noargs",
			dep:      header + "F (main.c)(0x0)\n",
			wantLine: 2,
		},
		{
			name:     "unterminatedargs",
			dep:      header + "F (main.c)(0x0)(-c -I .\\Inc\n",
			wantLine: 2,
		},
		{
			name:     "danglinginclude",
			dep:      header + "F (main.c)(0x0)(-c -I)\n",
			wantLine: 2,
		},
		{
			name:     "duplicatesource",
			dep:      header + "F (main.c)(0x0)(-c)\nF (main.c)(0x1)(-c)\n",
			wantLine: 3,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDeps([]byte(tc.dep), "p", "t")
			var mr MalformedRecordError
			if !errors.As(err, &mr) {
				t.Fatalf("ParseDeps=%v; want MalformedRecordError", err)
			}
			if mr.Line != tc.wantLine {
				t.Errorf("MalformedRecordError.Line=%d; want %d: %v", mr.Line, tc.wantLine, err)
			}
		})
	}
}

func TestParseDepsIdempotent(t *testing.T) {
	b := []byte(blinkyDep)
	orig := bytes.Clone(b)
	first, err := ParseDeps(b, "blinky", "STM32F103")
	if err != nil {
		t.Fatal(err)
	}
	second, err := ParseDeps(b, "blinky", "STM32F103")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("ParseDeps not idempotent -first +second:\n%s", diff)
	}
	if !bytes.Equal(orig, b) {
		t.Error("ParseDeps modified its input")
	}
}

func TestParseDepsFile(t *testing.T) {
	fsys := fstest.MapFS{
		"Objects/blinky.dep": &fstest.MapFile{
			Data: []byte(blinkyDep),
		},
	}
	records, err := ParseDepsFile(fsys, "Objects/blinky.dep", "blinky", "STM32F103")
	if err != nil {
		t.Fatalf("ParseDepsFile=%v; want nil error", err)
	}
	if len(records) != 3 {
		t.Errorf("len(records)=%d; want 3", len(records))
	}
}

func TestParseDepsFileNotFound(t *testing.T) {
	fsys := fstest.MapFS{}
	_, err := ParseDepsFile(fsys, "Objects/blinky.dep", "blinky", "STM32F103")
	if err == nil {
		t.Error("ParseDepsFile succeeded for missing file; want error")
	}
}
