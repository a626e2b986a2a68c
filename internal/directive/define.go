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

package directive

import (
	"github.com/cparanoid/cpreproc/internal/macro"
	"github.com/cparanoid/cpreproc/internal/perr"
	"github.com/cparanoid/cpreproc/internal/token"
)

// tokenReader is the minimal pull interface both stack.Stack and
// lexer.RawLexer satisfy, letting the parameter-list grammar (spec
// §4.7's "params is a comma-separated list of identifiers") be shared
// between #define seen in source and the -D command-line form (see
// ParseMacroText), without either depending on the other's concrete
// type.
type tokenReader interface {
	Next() (token.Token, error)
	Peek() (token.Token, error)
}

// parseParamList reads a macro parameter list up to and including the
// closing ')' (the '(' itself must already have been consumed). Spec
// §4.7: "params is a comma-separated list of identifiers, optionally
// ending with `...`"; __VA_ARGS__ is accepted as a synonym for `...` in
// final position (spec §3: "variadic_name ... exposes its arguments
// under the synthetic name __VA_ARGS__").
func parseParamList(r tokenReader) (params []string, variadic bool, err error) {
	first, err := r.Peek()
	if err != nil {
		return nil, false, err
	}
	if first.Kind == token.RPAREN {
		r.Next()
		return nil, false, nil
	}

	seen := map[string]bool{}
	for {
		t, err := r.Next()
		if err != nil {
			return nil, false, err
		}
		if variadic {
			return nil, false, perr.At(perr.VaArgsNotLast, t.Location, "'...' must be the last macro parameter")
		}
		switch {
		case t.Kind == token.ELLIPSIS:
			variadic = true
		case t.IsWord() && t.Literal == "__VA_ARGS__":
			variadic = true
		case t.IsWord():
			if seen[t.Literal] {
				return nil, false, perr.At(perr.DuplicateParameter, t.Location, "duplicate macro parameter %q", t.Literal)
			}
			seen[t.Literal] = true
			params = append(params, t.Literal)
		default:
			return nil, false, perr.At(perr.MalformedDefine, t.Location, "expected a parameter name in macro parameter list")
		}

		next, err := r.Next()
		if err != nil {
			return nil, false, err
		}
		switch next.Kind {
		case token.RPAREN:
			return params, variadic, nil
		case token.COMMA:
			continue
		default:
			return nil, false, perr.At(perr.MalformedDefine, next.Location, "expected ',' or ')' in macro parameter list")
		}
	}
}

// adjacent reports whether b immediately follows a (no whitespace, same
// line) — the rule spec §4.7 uses to tell a function-like macro's `(`
// apart from an object-like macro whose replacement happens to start
// with `(`.
func adjacent(a, b token.Token) bool {
	return b.Location.FileIndex == a.Location.FileIndex &&
		b.Location.Line == a.Location.Line &&
		b.Location.Column == a.Location.Column+len(a.Literal)
}

// sameReplacement reports whether two macros have textually identical
// shape (kind, parameters, replacement tokens) — the test spec §3's
// lifecycle section uses to decide whether a redefinition is silent or
// warning-worthy: "an implementation may warn but must not error unless
// the two replacement lists differ textually".
func sameReplacement(a, b *macro.Macro) bool {
	if a.Kind != b.Kind || a.VariadicName != b.VariadicName || len(a.Parameters) != len(b.Parameters) {
		return false
	}
	for i := range a.Parameters {
		if a.Parameters[i] != b.Parameters[i] {
			return false
		}
	}
	if len(a.Replacement) != len(b.Replacement) {
		return false
	}
	for i := range a.Replacement {
		if a.Replacement[i].Kind != b.Replacement[i].Kind || a.Replacement[i].Literal != b.Replacement[i].Literal {
			return false
		}
	}
	return true
}

// ParseMacroText parses "NAME replacement..." or "NAME(params) repl..."
// — the grammar a -D command-line definition carries (spec §6:
// "Preprocessor::define(name, replacement_text) — equivalent to
// processing a #define") — entirely independent of any Stack, since at
// -D parse time there is no source file it could belong to.
func ParseMacroText(raw tokenReader) (*macro.Macro, error) {
	nameTok, err := raw.Next()
	if err != nil {
		return nil, err
	}
	if !nameTok.IsWord() {
		return nil, perr.At(perr.MalformedDefine, nameTok.Location, "macro definition must start with a name")
	}

	m := &macro.Macro{Name: nameTok.Literal, Kind: macro.Object}

	peek, err := raw.Peek()
	if err != nil {
		return nil, err
	}
	if peek.Kind == token.LPAREN && adjacent(nameTok, peek) {
		raw.Next()
		params, variadic, err := parseParamList(raw)
		if err != nil {
			return nil, err
		}
		m.Kind = macro.Function
		m.Parameters = params
		if variadic {
			m.VariadicName = "__VA_ARGS__"
		}
	}

	for {
		t, err := raw.Next()
		if err != nil {
			return nil, err
		}
		if t.Kind == token.EOF {
			break
		}
		m.Replacement = append(m.Replacement, t)
	}
	if len(m.Replacement) == 0 {
		// `-DFOO` with no `=value` means FOO expands to 1, the
		// conventional `cc -D` meaning this tool carries over (spec
		// leaves the -D CLI flag's semantics to the caller; §6 only
		// specifies Define as "equivalent to processing #define").
		m.Replacement = []token.Token{{Kind: token.NUMERIC, Literal: "1", Location: nameTok.Location}}
	}
	return m, nil
}
