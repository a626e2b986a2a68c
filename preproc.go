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

// Package preproc is the driver (spec §4.8) and programmatic interface
// (spec §6) tying together the lexer stack, macro table, expansion
// engine, and directive parser into one preprocessor instance. It plays
// the role preprocessor.go's Preprocessor wrapper does for the teacher:
// a thin Peek/Next façade in front of the actual work, done one layer
// down.
package preproc

import (
	"context"
	"os"

	"github.com/cparanoid/cpreproc/internal/directive"
	"github.com/cparanoid/cpreproc/internal/expand"
	"github.com/cparanoid/cpreproc/internal/lexer"
	"github.com/cparanoid/cpreproc/internal/loader"
	"github.com/cparanoid/cpreproc/internal/macro"
	"github.com/cparanoid/cpreproc/internal/plog"
	"github.com/cparanoid/cpreproc/internal/source"
	"github.com/cparanoid/cpreproc/internal/stack"
	"github.com/cparanoid/cpreproc/internal/token"
)

// Options configures a Preprocessor at construction (spec §6).
type Options struct {
	// MaxIncludeDepth overrides directive.DefaultMaxIncludeDepth when
	// non-zero.
	MaxIncludeDepth int
	// Log receives non-fatal diagnostics (e.g. macro redefinition
	// warnings). A nil Log falls back to a stderr Logger at Warning
	// severity.
	Log *plog.Logger
}

// Preprocessor is the programmatic interface spec §6 names: a single
// instance owns one Macro Table, one File Registry, and one Lexer Stack
// (spec §5: "A single Macro Table and a single File Registry... owned by
// the preprocessor").
type Preprocessor struct {
	ctx       context.Context
	registry  *source.Registry
	macros    *macro.Table
	stack     *stack.Stack
	expand    *expand.Engine
	directive *directive.Parser
}

// New constructs a Preprocessor whose #include directives are resolved
// by ld (spec §1's "source loader" external collaborator; spec §6:
// "Preprocessor::new(loader, options)").
func New(ld loader.Source, opts Options) *Preprocessor {
	reg := source.NewRegistry()
	macros := macro.NewTable()
	st := stack.New()
	eng := expand.New(macros, st)

	log := opts.Log
	if log == nil {
		log = plog.New(os.Stderr, plog.Warning)
	}
	ctx := plog.NewContext(context.Background(), log)

	dp := directive.New(ctx, macros, st, reg, ld, eng)
	if opts.MaxIncludeDepth > 0 {
		dp.MaxIncludeDepth = opts.MaxIncludeDepth
	}

	return &Preprocessor{
		ctx:       ctx,
		registry:  reg,
		macros:    macros,
		stack:     st,
		expand:    eng,
		directive: dp,
	}
}

// WithSource registers name/bytes as the base frame (spec §6). Call this
// once, before the first NextToken, to supply the file being
// preprocessed; a second call would push a second base-level frame,
// which spec §3's frame invariant forbids ("frame [0] is always the
// base"), so callers should only ever call it once per Preprocessor.
func (p *Preprocessor) WithSource(name string, bytes []byte) {
	plog.I(p.ctx, "preprocessing %q (%d bytes)", name, len(bytes))
	file := p.registry.Add(name, bytes)
	p.stack.PushSource(file)
}

// Define installs a macro as if the source had carried
// `#define <replacementText>` before its first token (spec §6:
// "Preprocessor::define(name, replacement_text) — equivalent to
// processing a #define"). replacementText is everything that would
// follow `#define ` on a line, e.g. "FOO 1" or "CONCAT(a,b) a##b" — the
// form a `-D` command-line flag carries.
func (p *Preprocessor) Define(replacementText string) error {
	file := &source.File{Index: -1, Name: "<command-line>", Bytes: []byte(replacementText)}
	m, err := directive.ParseMacroText(lexer.NewRawLexer(file))
	if err != nil {
		return err
	}
	p.macros.Define(m)
	return nil
}

// Undef disables a macro as if the source had carried `#undef NAME`
// before its first token, for a `-U` command-line flag.
func (p *Preprocessor) Undef(name string) {
	p.macros.Undef(name)
}

// Registry exposes the file registry so a caller (e.g. the CLI) can
// resolve a Location's FileIndex back to a file name when formatting a
// diagnostic (spec §7: "Diagnostic formatting... is the caller's
// responsibility given the Location").
func (p *Preprocessor) Registry() *source.Registry {
	return p.registry
}

// NextToken returns the next preprocessed token (spec §4.8's driver
// loop): it pulls from the Lexer Stack, dispatches '#'-led source lines
// to the Directive Parser, runs the Expansion Engine on identifiers, and
// silently discards anything inside a conditional branch that was not
// taken. The terminal EOF (spec §3: frame 0's EOF) is returned like any
// other token, with a nil error.
func (p *Preprocessor) NextToken() (token.Token, error) {
	for {
		t, err := p.stack.Next()
		if err != nil {
			return token.Token{}, err
		}

		if t.Kind == token.HASH {
			if _, ok := p.stack.TopRaw(); ok {
				if err := p.directive.Handle(t); err != nil {
					return token.Token{}, err
				}
				continue
			}
		}

		if t.Kind == token.EOF {
			if err := p.directive.CheckEOF(); err != nil {
				return token.Token{}, err
			}
			return t, nil
		}

		if p.directive.Skipping() {
			continue
		}

		if t.IsIdent() {
			expanded, err := p.expand.TryExpand(t)
			if err != nil {
				return token.Token{}, err
			}
			if expanded {
				continue
			}
		}

		return t, nil
	}
}

// ReadAll drives NextToken to completion and returns every token up to
// (not including) the terminal EOF — the batch equivalent of spec §4.8's
// "streaming equivalent" driver operation.
func (p *Preprocessor) ReadAll() ([]token.Token, error) {
	var out []token.Token
	for {
		t, err := p.NextToken()
		if err != nil {
			return out, err
		}
		if t.Kind == token.EOF {
			return out, nil
		}
		out = append(out, t)
	}
}
