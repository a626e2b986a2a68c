// Copyright (C) 2017 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// preproc is the illustrative CLI spec §6 describes: conformance to any
// particular cc invocation is explicitly not a goal, only a recognizable
// shape — `preproc [-Idir]* [-Dname[=value]]* [-U name]* input_file`.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"

	preproc "github.com/cparanoid/cpreproc"
	"github.com/cparanoid/cpreproc/internal/loader"
	"github.com/cparanoid/cpreproc/internal/perr"
	"github.com/cparanoid/cpreproc/internal/plog"
	"github.com/cparanoid/cpreproc/internal/source"
	"github.com/cparanoid/cpreproc/internal/token"
)

var (
	includeDirs []string
	defines     []string
	undefines   []string
	maxDepth    = flag.Int("max-include-depth", 0, "override the default #include nesting limit")
	verbose     = flag.Bool("v", false, "log #include resolution and macro redefinitions to stderr")
)

func init() {
	flag.Var(&repeatedFlag{&includeDirs}, "I", "add a directory (or doublestar glob) to the include search path, repeatable")
	flag.Var(&repeatedFlag{&defines}, "D", "define NAME or NAME=VALUE before preprocessing, repeatable")
	flag.Var(&repeatedFlag{&undefines}, "U", "undefine NAME before preprocessing, repeatable")
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: preproc [-Idir]* [-Dname[=value]]* [-U name]* input_file\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(3)
	}

	os.Exit(run(args[0]))
}

// run preprocesses input and writes the resulting token stream to
// stdout, returning the exit code spec §6 assigns: 0 success, 1 user
// source error, 2 I/O error, 3 internal error.
func run(inputPath string) int {
	logFilter := plog.Warning
	if *verbose {
		logFilter = plog.Debug
	}
	logger := plog.New(os.Stderr, logFilter).With("input", inputPath)

	fs, err := loader.NewFileSystem(nil, includeDirs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "preproc: %v\n", err)
		return 3
	}

	src, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "preproc: %v\n", err)
		return 2
	}

	p := preproc.New(fs, preproc.Options{MaxIncludeDepth: *maxDepth, Log: logger})
	p.WithSource(inputPath, src)

	for _, d := range defines {
		if err := p.Define(defineText(d)); err != nil {
			return report(p, err)
		}
	}
	for _, name := range undefines {
		p.Undef(name)
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	if err := emit(p, out); err != nil {
		return report(p, err)
	}
	return 0
}

// defineText turns a -D operand ("NAME" or "NAME=VALUE") into the
// "NAME replacement..." form Preprocessor.Define expects — the same
// text a `#define` line would carry after the directive name.
func defineText(d string) string {
	if name, value, ok := strings.Cut(d, "="); ok {
		return name + " " + value
	}
	return d
}

// emit drives the preprocessor to completion, writing each token's
// literal to out, inserting a newline whenever the next token's source
// line differs from the previous one so the output stays readable.
func emit(p *preproc.Preprocessor, out *bufio.Writer) error {
	lastLine := -1
	lastFile := -1
	for {
		t, err := p.NextToken()
		if err != nil {
			return err
		}
		if t.Kind == token.EOF {
			out.WriteByte('\n')
			return nil
		}
		if t.Location.FileIndex != lastFile || t.Location.Line != lastLine {
			if lastLine != -1 {
				out.WriteByte('\n')
			}
			lastFile, lastLine = t.Location.FileIndex, t.Location.Line
		} else {
			out.WriteByte(' ')
		}
		out.WriteString(t.Literal)
	}
}

// report prints a single diagnostic (spec §7: "exactly one diagnostic
// per run") and classifies err into the exit code its Kind belongs to.
func report(p *preproc.Preprocessor, err error) int {
	if loc, ok := err.(*perr.Located); ok {
		where := loc.Kind.Error()
		if l, ok := loc.Loc.(source.Location); ok {
			where = l.Format(p.Registry())
		}
		fmt.Fprintf(os.Stderr, "preproc: %s: %s [%s]\n", where, loc.Message, loc.Kind)
	} else {
		fmt.Fprintf(os.Stderr, "preproc: %v\n", err)
	}

	kind, ok := errors.Cause(err).(perr.Kind)
	if !ok {
		return 3
	}
	switch kind {
	case perr.FileNotFound, perr.ReadFailed:
		return 2
	default:
		return 1
	}
}
