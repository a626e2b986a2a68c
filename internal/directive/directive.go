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

// Package directive implements the Directive Parser (spec §4.7,
// component C10): it consumes preprocessor lines and mutates the shared
// macro table, include stack, and conditional-compilation state.
// Grounded on preprocessorImpl.go's processDirective switch and its
// ifEntry/ifStack handling, restructured around this spec's Stack/Table
// types in place of that file's map[string]macroDefinition and a single
// combined preprocessorImpl.
package directive

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/cparanoid/cpreproc/internal/expand"
	"github.com/cparanoid/cpreproc/internal/lexer"
	"github.com/cparanoid/cpreproc/internal/loader"
	"github.com/cparanoid/cpreproc/internal/macro"
	"github.com/cparanoid/cpreproc/internal/perr"
	"github.com/cparanoid/cpreproc/internal/plog"
	"github.com/cparanoid/cpreproc/internal/source"
	"github.com/cparanoid/cpreproc/internal/stack"
	"github.com/cparanoid/cpreproc/internal/token"
)

// DefaultMaxIncludeDepth is the #include nesting limit spec §4.7
// names ("a depth limit, default 200").
const DefaultMaxIncludeDepth = 200

// condState is one entry of the #if/#ifdef/#elif/#else/#endif stack,
// grounded on preprocessorImpl.go's ifEntry: skipping/skipElse encode the
// three-state "ACTIVE | SKIPPING | DONE" machine spec §4.7 describes in
// two booleans the way the teacher does, and hadElse records that the
// group's #else has been seen.
type condState struct {
	hadElse  bool
	skipping bool
	skipElse bool
	loc      source.Location
}

// Parser is the directive parser (spec §4.7, component C10). It shares
// its Macros table, Stack, and Registry with the rest of the
// preprocessor; once preprocessing has started, only Parser mutates
// Macros or pushes #include frames, and only between tokens (spec §5's
// "Shared resources" rule). Preprocessor.Define/Undef also write Macros,
// for command-line definitions.
type Parser struct {
	Macros   *macro.Table
	Stack    *stack.Stack
	Registry *source.Registry
	Loader   loader.Source
	Expand   *expand.Engine

	// ctx carries the Logger non-fatal diagnostics are written through
	// (spec's macro-redefinition warning, #include resolution tracing),
	// the way core/log threads a context.Context alongside its driver
	// rather than holding a logger field directly.
	ctx context.Context

	MaxIncludeDepth int

	ifStack []condState
}

// New returns a directive parser sharing macros, st, and reg with the
// rest of the preprocessor. eng is used to pre-expand macros appearing
// in #if/#elif conditions; ld resolves #include paths. ctx carries the
// Logger diagnostics are written through (plog.From(ctx)).
func New(ctx context.Context, macros *macro.Table, st *stack.Stack, reg *source.Registry, ld loader.Source, eng *expand.Engine) *Parser {
	return &Parser{
		Macros:          macros,
		Stack:           st,
		Registry:        reg,
		Loader:          ld,
		Expand:          eng,
		ctx:             ctx,
		MaxIncludeDepth: DefaultMaxIncludeDepth,
	}
}

// Skipping reports whether the current position is inside a conditional
// branch that was not taken. The driver must discard (not forward to
// its caller) any ordinary token it pulls while this is true.
func (p *Parser) Skipping() bool {
	if len(p.ifStack) == 0 {
		return false
	}
	return p.ifStack[len(p.ifStack)-1].skipping
}

// CheckEOF reports MissingEndif if any #if/#ifdef/#ifndef is still open
// when the base frame's terminal EOF is reached (spec §7 taxonomy).
func (p *Parser) CheckEOF() error {
	if len(p.ifStack) == 0 {
		return nil
	}
	top := p.ifStack[len(p.ifStack)-1]
	return perr.At(perr.MissingEndif, top.loc, "missing #endif (or #elif/#else) for conditional opened here")
}

// Handle is invoked by the driver immediately after it pulls a HASH
// token from a source-backed frame. The driver does not track line
// starts, so a '#' in the middle of a source line is handled as a
// directive too. Handle consumes the rest of the directive line itself
// and mutates Macros/Stack/ifStack as appropriate; the driver should
// simply pull again afterward.
// Handle assumes the driver has already confirmed the current top frame
// is source-backed (stack.TopRaw's second return) — a HASH pulled from a
// macro-expansion frame is an ordinary literal token (e.g. the trailing
// '#' in the body of `#define X a #`) and must never reach here; that
// check is the driver's, since this package has no reason to see such a
// token at all.
func (p *Parser) Handle(hashTok token.Token) error {
	raw, _ := p.Stack.TopRaw()

	old := raw.PreserveNewline
	raw.PreserveNewline = true
	defer func() { raw.PreserveNewline = old }()

	nameTok, err := p.Stack.Next()
	if err != nil {
		return err
	}

	switch nameTok.Kind {
	case token.NEWLINE:
		return nil // a bare '#' on its own line is a legal no-op
	case token.NUMERIC:
		// GCC-style linemarker `# 42 "file.c"`, the numeric form of the
		// #line directive this tool does not act on (spec §1 Non-goals).
		return p.discardLine()
	}

	switch nameTok.Literal {
	case "define":
		return p.handleDefine(nameTok)
	case "undef":
		return p.handleUndef()
	case "include":
		return p.handleInclude(raw)
	case "if":
		return p.handleIf(hashTok)
	case "elif":
		return p.handleElif(hashTok)
	case "ifdef":
		return p.handleIfdef(false, hashTok)
	case "ifndef":
		return p.handleIfdef(true, hashTok)
	case "else":
		return p.handleElse(hashTok)
	case "endif":
		return p.handleEndif(hashTok)
	case "error":
		return p.handleError(hashTok)
	case "line", "pragma":
		// §1 Non-goal (#line) / unspecified (#pragma): tokenize and
		// discard rather than hard error, the same treatment
		// preprocessorImpl.go's ppLine case gives it.
		return p.discardLine()
	default:
		if p.Skipping() {
			return p.discardLine()
		}
		return perr.At(perr.UnknownDirective, nameTok.Location, "unknown preprocessing directive %q", nameTok.Literal)
	}
}

// consumeLine reads tokens up to (and consuming) the line-ending NEWLINE,
// returning everything before it. Reaching EOF ends the line too, for
// the rare case of a directive on the file's last, newline-less line.
func (p *Parser) consumeLine() ([]token.Token, error) {
	// Bounded to the directive's own source frame, so an included file's
	// EOF ends the line instead of popping into the including file.
	floor := p.Stack.Depth() - 1
	var out []token.Token
	for {
		t, err := p.Stack.NextAbove(floor)
		if err != nil {
			return nil, err
		}
		if t.Kind == token.NEWLINE || t.Kind == token.EOF {
			return out, nil
		}
		out = append(out, t)
	}
}

func (p *Parser) discardLine() error {
	_, err := p.consumeLine()
	return err
}

// handleDefine implements spec §4.7's #define grammar: object-like when
// '(' does not immediately follow the name, function-like otherwise.
func (p *Parser) handleDefine(hashNameTok token.Token) error {
	nameTok, err := p.Stack.Next()
	if err != nil {
		return err
	}
	if !nameTok.IsWord() {
		return perr.At(perr.MalformedDefine, nameTok.Location, "#define requires a macro name")
	}

	peek, err := p.Stack.Peek()
	if err != nil {
		return err
	}

	m := &macro.Macro{Name: nameTok.Literal, Kind: macro.Object}
	if peek.Kind == token.LPAREN && adjacent(nameTok, peek) {
		if _, err := p.Stack.Next(); err != nil { // consume '('
			return err
		}
		params, variadic, err := parseParamList(p.Stack)
		if err != nil {
			return err
		}
		m.Kind = macro.Function
		m.Parameters = params
		if variadic {
			m.VariadicName = "__VA_ARGS__"
		}
	}

	body, err := p.consumeLine()
	if err != nil {
		return err
	}
	m.Replacement = body

	if p.Skipping() {
		return nil
	}

	if prev, ok := p.Macros.Lookup(m.Name); ok && !sameReplacement(prev, m) {
		plog.W(p.ctx, "%s: redefinition of macro %q with a different body", nameTok.Location, m.Name)
	}
	plog.D(p.ctx, "defining macro %q", m.Name)
	p.Macros.Define(m)
	return nil
}

// handleUndef implements #undef NAME (spec §4.7): disable, don't error,
// on an unknown name (spec §4.6: "undef on an unknown name is a no-op").
func (p *Parser) handleUndef() error {
	nameTok, err := p.Stack.Next()
	if err != nil {
		return err
	}
	if !nameTok.IsWord() {
		return perr.At(perr.MalformedDefine, nameTok.Location, "#undef requires a macro name")
	}
	if err := p.discardLine(); err != nil {
		return err
	}
	if p.Skipping() {
		return nil
	}
	plog.D(p.ctx, "undefining macro %q", nameTok.Literal)
	p.Macros.Undef(nameTok.Literal)
	return nil
}

// handleInclude implements #include "path"/<path> (spec §4.7): resolve
// via Loader and push a new source frame for the loaded bytes.
func (p *Parser) handleInclude(raw *lexer.RawLexer) error {
	path, angled, loc, err := raw.ScanHeaderName()
	if err != nil {
		return err
	}
	if err := p.discardLine(); err != nil {
		return err
	}
	if p.Skipping() {
		return nil
	}

	if p.Stack.SourceDepth() >= p.MaxIncludeDepth {
		return perr.At(perr.IncludeDepthExceeded, loc, "#include nesting exceeds the limit of %d", p.MaxIncludeDepth)
	}

	fromDir := ""
	if f := p.Registry.File(loc.FileIndex); f != nil {
		fromDir = filepath.Dir(f.Name)
	}

	name, data, err := p.Loader.Load(path, angled, fromDir)
	if err != nil {
		plog.E(p.ctx, "cannot open include file %q: %v", path, err)
		return perr.Wrap(err, perr.FileNotFound, loc, "cannot open include file %q", path)
	}
	plog.D(p.ctx, "including %q (angled=%v) from %q", path, angled, fromDir)

	file := p.Registry.Add(name, data)
	p.Stack.PushSource(file)
	return nil
}

// handleIf implements #if EXPR (spec §4.7).
func (p *Parser) handleIf(hashTok token.Token) error {
	tokens, err := p.consumeLine()
	if err != nil {
		return err
	}
	if p.Skipping() {
		// Per spec: "We intentionally do not evaluate the condition since
		// it might be invalid" when the parent branch is already skipped.
		p.ifStack = append(p.ifStack, condState{skipping: true, skipElse: true, loc: hashTok.Location})
		return nil
	}
	val, err := p.evaluateCondition(tokens)
	if err != nil {
		return err
	}
	p.ifStack = append(p.ifStack, condState{skipping: !val, skipElse: val, loc: hashTok.Location})
	return nil
}

// handleIfdef implements #ifdef/#ifndef NAME (spec §4.7).
func (p *Parser) handleIfdef(negate bool, hashTok token.Token) error {
	tokens, err := p.consumeLine()
	if err != nil {
		return err
	}
	if p.Skipping() {
		p.ifStack = append(p.ifStack, condState{skipping: true, skipElse: true, loc: hashTok.Location})
		return nil
	}
	if len(tokens) == 0 || !tokens[0].IsWord() {
		return perr.At(perr.MalformedDefine, hashTok.Location, "#ifdef/#ifndef requires a macro name")
	}
	defined := p.Macros.IsDefined(tokens[0].Literal)
	val := defined
	if negate {
		val = !defined
	}
	p.ifStack = append(p.ifStack, condState{skipping: !val, skipElse: val, loc: hashTok.Location})
	return nil
}

// handleElif implements #elif EXPR (spec §4.7).
func (p *Parser) handleElif(hashTok token.Token) error {
	tokens, err := p.consumeLine()
	if err != nil {
		return err
	}
	if len(p.ifStack) == 0 {
		return perr.At(perr.UnmatchedElifElseEndif, hashTok.Location, "#elif without a matching #if")
	}
	entry := &p.ifStack[len(p.ifStack)-1]
	if entry.hadElse {
		return perr.At(perr.UnmatchedElifElseEndif, hashTok.Location, "#elif after #else")
	}
	if entry.skipElse {
		// A previous branch already matched (or an enclosing conditional
		// is itself skipping, which set skipElse at push time) — every
		// later branch in this group skips without evaluation.
		entry.skipping = true
		return nil
	}
	val, err := p.evaluateCondition(tokens)
	if err != nil {
		return err
	}
	entry.skipping = !val
	entry.skipElse = val
	return nil
}

// handleElse implements #else (spec §4.7).
func (p *Parser) handleElse(hashTok token.Token) error {
	if err := p.discardLine(); err != nil {
		return err
	}
	if len(p.ifStack) == 0 {
		return perr.At(perr.UnmatchedElifElseEndif, hashTok.Location, "#else without a matching #if")
	}
	entry := &p.ifStack[len(p.ifStack)-1]
	if entry.hadElse {
		return perr.At(perr.UnmatchedElifElseEndif, hashTok.Location, "multiple #else for one #if")
	}
	entry.hadElse = true
	entry.skipping = entry.skipElse
	return nil
}

// handleEndif implements #endif (spec §4.7).
func (p *Parser) handleEndif(hashTok token.Token) error {
	if err := p.discardLine(); err != nil {
		return err
	}
	if len(p.ifStack) == 0 {
		return perr.At(perr.UnmatchedElifElseEndif, hashTok.Location, "#endif without a matching #if")
	}
	p.ifStack = p.ifStack[:len(p.ifStack)-1]
	return nil
}

// handleError implements #error message-tokens (spec §4.7).
func (p *Parser) handleError(hashTok token.Token) error {
	tokens, err := p.consumeLine()
	if err != nil {
		return err
	}
	if p.Skipping() {
		return nil
	}
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.Literal
	}
	loc := hashTok.Location
	if len(tokens) > 0 {
		loc = tokens[0].Location
	}
	return perr.At(perr.UserError, loc, "%s", strings.Join(parts, " "))
}

// evaluateCondition implements the #if/#elif expression grammar of spec
// §4.7: resolve defined(...)/defined NAME first (its operand must never
// macro-expand), then macro-expand what's left, then evaluate the
// resulting arithmetic/logical expression.
func (p *Parser) evaluateCondition(tokens []token.Token) (bool, error) {
	resolved, err := resolveDefined(p.Macros, tokens)
	if err != nil {
		return false, err
	}
	expanded, err := p.expandConditionTokens(resolved)
	if err != nil {
		return false, err
	}
	if len(expanded) == 0 {
		return false, nil
	}
	v, err := evaluate(expanded)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (p *Parser) expandConditionTokens(tokens []token.Token) ([]token.Token, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	floor := p.Stack.Depth()
	p.Stack.PushTokens(tokens, tokens[0], nil)
	defer p.Stack.Unwind(floor)
	var out []token.Token
	for {
		t, err := p.Stack.NextAbove(floor)
		if err != nil {
			return nil, err
		}
		if t.Kind == token.EOF {
			return out, nil
		}
		if t.IsIdent() {
			expanded, err := p.Expand.TryExpand(t)
			if err != nil {
				return nil, err
			}
			if expanded {
				continue
			}
		}
		out = append(out, t)
	}
}
