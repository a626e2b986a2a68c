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

// Package expand implements the macro expansion engine (spec §4.4,
// component C8) and the stringize/paste operators (spec §4.5, component
// C9). It is grounded on preprocessorImpl.go's processMacro/
// parseMacroCallArgs/readMacroArgs, restructured around this spec's
// simpler per-token blocked-set model (spec §9) instead of that file's
// Dave-Prosser-style intersecting hide sets.
package expand

import (
	"strings"

	"github.com/cparanoid/cpreproc/internal/lexer"
	"github.com/cparanoid/cpreproc/internal/macro"
	"github.com/cparanoid/cpreproc/internal/perr"
	"github.com/cparanoid/cpreproc/internal/source"
	"github.com/cparanoid/cpreproc/internal/stack"
	"github.com/cparanoid/cpreproc/internal/token"
)

// Engine recognizes macro invocations on IDENTIFIER tokens pulled from a
// Stack and, when one is found, pushes the fully substituted replacement
// as a new frame so the stack's own pull loop rescans it.
type Engine struct {
	macros *macro.Table
	stack  *stack.Stack
}

// New returns an expansion engine sharing macros and st with the rest of
// the preprocessor.
func New(macros *macro.Table, st *stack.Stack) *Engine {
	return &Engine{macros: macros, stack: st}
}

// binding is one parameter's resolved argument: its raw (unexpanded)
// tokens, used by # and by operands of ##, and its pre-expanded tokens,
// spliced in for any other occurrence (spec §4.4's "replacement-list
// expansion rules").
type binding struct {
	raw         []token.Token
	preExpanded []token.Token
	omitComma   bool
	err         error // pre-expansion failure, reported where preExpanded is used
}

// TryExpand inspects ident (just pulled from e's stack as an
// IDENTIFIER) and, if it names a currently-eligible macro, pushes the
// substituted replacement frame and returns true (the caller should pull
// again). It returns false when ident is not a macro invocation here —
// the caller should yield ident as-is.
func (e *Engine) TryExpand(ident token.Token) (bool, error) {
	name := ident.Literal
	m, ok := e.macros.Lookup(name)
	if !ok {
		return false, nil
	}
	if ident.Blocks(name) {
		// Step 2: already active somewhere enclosing; never re-expand it
		// for the lifetime of this token (spec §4.4, prevents #define A A
		// and mutual recursion loops).
		return false, nil
	}

	var bindings map[string]binding
	if m.Kind == macro.Function {
		next, err := e.stack.Peek()
		if err != nil {
			return false, err
		}
		if next.Kind != token.LPAREN {
			// Function macros are not expanded unless invoked with '('.
			return false, nil
		}
		if _, err := e.stack.Next(); err != nil { // consume '('
			return false, err
		}
		bindings, err = e.parseArguments(m, ident.Location)
		if err != nil {
			return false, err
		}
	}

	body, err := e.substitute(m, bindings)
	if err != nil {
		return false, err
	}

	e.stack.PushExpansion(name, body, ident)
	return true, nil
}

// parseArguments reads and binds one macro call's arguments (spec §4.4's
// "Argument Parser"), honoring nested parenthesis depth and variadic
// collection, then pre-expands each bound argument's tokens.
func (e *Engine) parseArguments(m *macro.Macro, callLoc source.Location) (map[string]binding, error) {
	groups, err := e.readArgumentGroups(callLoc)
	if err != nil {
		return nil, err
	}

	// `F()` for a zero-parameter, non-variadic macro supplies zero
	// arguments, not one empty argument.
	if len(groups) == 1 && len(groups[0]) == 0 && len(m.Parameters) == 0 && !m.Variadic() {
		groups = nil
	}

	bindings := make(map[string]binding, len(m.Parameters)+1)

	if m.Variadic() {
		if len(groups) < len(m.Parameters) {
			return nil, perr.At(perr.ArgCountMismatch, callLoc,
				"macro %q expected at least %d arguments, got %d", m.Name, len(m.Parameters), len(groups))
		}
		for i, p := range m.Parameters {
			bindings[p] = e.preExpand(groups[i])
		}
		rest := groups[len(m.Parameters):]
		var va []token.Token
		for i, g := range rest {
			if i > 0 {
				va = append(va, token.Token{Kind: token.COMMA, Literal: ",", Location: callLoc})
			}
			va = append(va, g...)
		}
		b := e.preExpand(va)
		b.omitComma = len(rest) == 0
		bindings[m.VariadicName] = b
	} else {
		if len(groups) != len(m.Parameters) {
			return nil, perr.At(perr.ArgCountMismatch, callLoc,
				"macro %q expected %d arguments, got %d", m.Name, len(m.Parameters), len(groups))
		}
		for i, p := range m.Parameters {
			bindings[p] = e.preExpand(groups[i])
		}
	}
	return bindings, nil
}

// readArgumentGroups reads comma-separated raw token groups up to the
// matching close paren, tracking nested-parenthesis depth (spec §4.4).
func (e *Engine) readArgumentGroups(callLoc source.Location) ([][]token.Token, error) {
	var groups [][]token.Token
	var cur []token.Token
	depth := 0
	for {
		t, err := e.stack.Peek()
		if err != nil {
			return nil, err
		}
		if t.Kind == token.EOF {
			return nil, perr.At(perr.UnterminatedArgumentList, callLoc, "unexpected end of input in macro argument list")
		}
		if depth == 0 {
			switch t.Kind {
			case token.RPAREN:
				e.stack.Next()
				groups = append(groups, cur)
				return groups, nil
			case token.LPAREN:
				depth++
				cur = append(cur, t)
				e.stack.Next()
				continue
			case token.COMMA:
				e.stack.Next()
				groups = append(groups, cur)
				cur = nil
				continue
			}
		}
		switch t.Kind {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		}
		cur = append(cur, t)
		e.stack.Next()
	}
}

// preExpand fully macro-expands raw argument tokens (spec §4.4: argument
// tokens are "re-fed through the expansion engine" before substitution
// into a plain parameter reference), while keeping raw around for # and
// ## operands.
func (e *Engine) preExpand(raw []token.Token) binding {
	if len(raw) == 0 {
		return binding{}
	}
	eofLoc := raw[0]
	floor := e.stack.Depth()
	e.stack.PushTokens(raw, eofLoc, nil)
	defer e.stack.Unwind(floor)
	var out []token.Token
	for {
		t, err := e.stack.NextAbove(floor)
		if err != nil {
			// A malformed argument fails at the point of use: substitute
			// returns this error if the parameter is referenced outside a
			// # or ## operand.
			return binding{raw: raw, err: err}
		}
		if t.Kind == token.EOF {
			break
		}
		if t.IsIdent() {
			expanded, err := e.TryExpand(t)
			if err != nil {
				return binding{raw: raw, err: err}
			}
			if expanded {
				continue
			}
		}
		out = append(out, t)
	}
	return binding{raw: raw, preExpanded: out}
}

// substitute builds the fully-substituted replacement body for m given
// bindings: stringize and parameter substitution happen in one pass over
// m.Replacement, then ## pasting resolves left-to-right over the result
// (spec §4.4/§4.5).
func (e *Engine) substitute(m *macro.Macro, bindings map[string]binding) ([]token.Token, error) {
	repl := m.Replacement
	var staged []token.Token

	isParam := func(t token.Token) (binding, bool) {
		if !t.IsIdent() {
			return binding{}, false
		}
		b, ok := bindings[t.Literal]
		return b, ok
	}

	for i := 0; i < len(repl); i++ {
		t := repl[i]

		if t.Kind == token.HASH && i+1 < len(repl) {
			if b, ok := isParam(repl[i+1]); ok {
				staged = append(staged, stringize(t, b.raw))
				i++
				continue
			}
			return nil, perr.At(perr.StringizeRequiresParameter, t.Location, "'#' must be followed by a macro parameter")
		}

		// The `, ## __VA_ARGS__` idiom: drop the preceding comma when the
		// variadic argument is empty, otherwise just emit comma+args
		// without attempting a literal paste.
		if t.Kind == token.COMMA && i+2 < len(repl) && repl[i+1].Kind == token.HASHHASH {
			if b, ok := isParam(repl[i+2]); ok && m.Variadic() && repl[i+2].Literal == m.VariadicName {
				if b.omitComma {
					i += 2
					continue
				}
				staged = append(staged, t)
				staged = append(staged, b.raw...)
				i += 2
				continue
			}
		}

		if b, ok := isParam(t); ok {
			adjacentPaste := (i+1 < len(repl) && repl[i+1].Kind == token.HASHHASH) ||
				(i > 0 && repl[i-1].Kind == token.HASHHASH)
			if adjacentPaste {
				staged = append(staged, b.raw...)
			} else {
				if b.err != nil {
					return nil, b.err
				}
				staged = append(staged, b.preExpanded...)
			}
			continue
		}

		if t.Kind == token.HASHHASH && emptyOperand(repl, bindings, i) {
			// One side of this ## is a parameter bound to zero tokens — a
			// placemarker in C terms. Pasting a placemarker with anything
			// (or with another placemarker) just yields the other side
			// unchanged, so drop the operator instead of handing a bare
			// '##' to paste, which has no real operand to merge it with.
			continue
		}

		staged = append(staged, t)
	}

	return paste(staged)
}

// emptyOperand reports whether the token adjacent to repl[i] (a HASHHASH)
// on either side is a macro parameter bound to zero tokens, e.g. CAT(,x)
// with `#define CAT(a,b) a##b`.
func emptyOperand(repl []token.Token, bindings map[string]binding, i int) bool {
	isEmptyParam := func(t token.Token) bool {
		if !t.IsIdent() {
			return false
		}
		b, ok := bindings[t.Literal]
		return ok && len(b.raw) == 0
	}
	if i > 0 && isEmptyParam(repl[i-1]) {
		return true
	}
	if i+1 < len(repl) && isEmptyParam(repl[i+1]) {
		return true
	}
	return false
}

// stringize implements the # operator: one STRING token whose literal is
// `"` + the raw argument tokens joined by single spaces + `"`, with `\`
// and `"` escaped. Location is the `#` token's location (spec §4.5).
func stringize(hash token.Token, raw []token.Token) token.Token {
	var parts []string
	for _, t := range raw {
		parts = append(parts, t.Literal)
	}
	joined := strings.Join(parts, " ")
	joined = strings.ReplaceAll(joined, `\`, `\\`)
	joined = strings.ReplaceAll(joined, `"`, `\"`)
	return token.Token{Kind: token.STRING, Literal: `"` + joined + `"`, Location: hash.Location}
}

// paste resolves ## left-associatively over list: each L ## R pair's
// literals are concatenated and re-tokenized; the result must be exactly
// one token (spec §4.5) or InvalidPaste is returned.
func paste(list []token.Token) ([]token.Token, error) {
	out := append([]token.Token{}, list...)
	for i := 0; i < len(out); i++ {
		for i+1 < len(out) && out[i+1].Kind == token.HASHHASH {
			if i+2 >= len(out) {
				return nil, perr.At(perr.InvalidPaste, out[i].Location, "'##' has no right-hand operand")
			}
			merged, err := pasteOne(out[i], out[i+2])
			if err != nil {
				return nil, err
			}
			out = append(out[:i], append([]token.Token{merged}, out[i+3:]...)...)
		}
	}
	return out, nil
}

func pasteOne(lhs, rhs token.Token) (token.Token, error) {
	text := lhs.Literal + rhs.Literal
	file := &source.File{Index: lhs.Location.FileIndex, Name: "<paste>", Bytes: []byte(text)}
	raw := lexer.NewRawLexer(file)
	first, err := raw.Next()
	if err != nil {
		return token.Token{}, perr.Wrap(err, perr.InvalidPaste, lhs.Location, "pasting %q and %q did not produce a valid token", lhs.Literal, rhs.Literal)
	}
	second, err := raw.Next()
	if err != nil {
		return token.Token{}, perr.Wrap(err, perr.InvalidPaste, lhs.Location, "pasting %q and %q did not produce a single token", lhs.Literal, rhs.Literal)
	}
	if second.Kind != token.EOF {
		return token.Token{}, perr.At(perr.InvalidPaste, lhs.Location, "pasting %q and %q produced more than one token", lhs.Literal, rhs.Literal)
	}
	first.Location = lhs.Location
	return first, nil
}
