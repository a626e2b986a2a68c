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

package expand

import (
	"testing"

	"github.com/cparanoid/cpreproc/internal/lexer"
	"github.com/cparanoid/cpreproc/internal/macro"
	"github.com/cparanoid/cpreproc/internal/source"
	"github.com/cparanoid/cpreproc/internal/stack"
	"github.com/cparanoid/cpreproc/internal/token"
)

// runExpansion preprocesses src against the given macro table and returns
// the literal sequence of every output token (EOF excluded), driving the
// stack/engine pair the way preproc.Preprocessor.NextToken does, but
// inline so expand's behavior can be tested without the root package.
func runExpansion(t *testing.T, macros *macro.Table, src string) []string {
	t.Helper()
	file := &source.File{Index: 0, Name: "t.c", Bytes: []byte(src)}
	st := stack.New()
	st.PushSource(file)
	eng := New(macros, st)

	var out []string
	for {
		tok, err := st.Next()
		if err != nil {
			t.Fatalf("unexpected error expanding %q: %v", src, err)
		}
		if tok.Kind == token.EOF {
			return out
		}
		if tok.IsIdent() {
			expanded, err := eng.TryExpand(tok)
			if err != nil {
				t.Fatalf("TryExpand error on %q: %v", src, err)
			}
			if expanded {
				continue
			}
		}
		out = append(out, tok.Literal)
	}
}

func tokenizeReplacement(t *testing.T, text string) []token.Token {
	t.Helper()
	file := &source.File{Index: 0, Name: "<repl>", Bytes: []byte(text)}
	l := lexer.NewRawLexer(file)
	var out []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			t.Fatalf("tokenizing %q: %v", text, err)
		}
		if tok.Kind == token.EOF {
			return out
		}
		out = append(out, tok)
	}
}

func TestObjectLikeMacroExpansion(t *testing.T) {
	macros := macro.NewTable()
	macros.Define(&macro.Macro{Name: "N", Kind: macro.Object, Replacement: tokenizeReplacement(t, "42")})

	got := runExpansion(t, macros, "int x = N;")
	want := []string{"int", "x", "=", "42", ";"}
	assertLiterals(t, got, want)
}

func TestFunctionLikeMacroWithNestedCommaArgument(t *testing.T) {
	macros := macro.NewTable()
	macros.Define(&macro.Macro{
		Name: "PAIR", Kind: macro.Function,
		Parameters:  []string{"a", "b"},
		Replacement: tokenizeReplacement(t, "a,b"),
	})

	got := runExpansion(t, macros, "PAIR((1,2),3)")
	want := []string{"(", "1", ",", "2", ")", ",", "3"}
	assertLiterals(t, got, want)
}

func TestVariadicMacroOmitsCommaOnEmptyVarargs(t *testing.T) {
	macros := macro.NewTable()
	macros.Define(&macro.Macro{
		Name: "LOG", Kind: macro.Function,
		Parameters:   []string{"fmt"},
		VariadicName: "__VA_ARGS__",
		Replacement:  tokenizeReplacement(t, `f(fmt, ##__VA_ARGS__)`),
	})

	got := runExpansion(t, macros, `LOG("x")`)
	assertLiterals(t, got, []string{"f", "(", `"x"`, ")"})

	got2 := runExpansion(t, macros, `LOG("x",1,2)`)
	assertLiterals(t, got2, []string{"f", "(", `"x"`, ",", "1", ",", "2", ")"})
}

func TestStringizeOperator(t *testing.T) {
	macros := macro.NewTable()
	macros.Define(&macro.Macro{
		Name: "STR", Kind: macro.Function,
		Parameters:  []string{"x"},
		Replacement: tokenizeReplacement(t, "#x"),
	})

	got := runExpansion(t, macros, "STR(hello world)")
	assertLiterals(t, got, []string{`"hello world"`})
}

func TestPasteOperatorProducesSingleToken(t *testing.T) {
	macros := macro.NewTable()
	macros.Define(&macro.Macro{
		Name: "CONCAT", Kind: macro.Function,
		Parameters:  []string{"a", "b"},
		Replacement: tokenizeReplacement(t, "a##b"),
	})

	got := runExpansion(t, macros, "CONCAT(foo,bar)")
	assertLiterals(t, got, []string{"foobar"})
}

func TestPasteOperatorWithEmptyOperandCollapsesToOtherSide(t *testing.T) {
	macros := macro.NewTable()
	macros.Define(&macro.Macro{
		Name: "CAT", Kind: macro.Function,
		Parameters:  []string{"a", "b"},
		Replacement: tokenizeReplacement(t, "a##b"),
	})

	got := runExpansion(t, macros, "CAT(,x)")
	assertLiterals(t, got, []string{"x"})

	got2 := runExpansion(t, macros, "CAT(x,)")
	assertLiterals(t, got2, []string{"x"})

	got3 := runExpansion(t, macros, "CAT(,)")
	assertLiterals(t, got3, nil)
}

func TestPasteOperatorInvalidCombinationErrors(t *testing.T) {
	macros := macro.NewTable()
	macros.Define(&macro.Macro{
		Name: "CONCAT", Kind: macro.Function,
		Parameters:  []string{"a", "b"},
		Replacement: tokenizeReplacement(t, "a##b"),
	})

	file := &source.File{Index: 0, Name: "t.c", Bytes: []byte("CONCAT(+,-)")}
	st := stack.New()
	st.PushSource(file)
	eng := New(macros, st)

	for {
		tok, err := st.Next()
		if err != nil {
			return // expected: pasting "+" and "-" does not form a single valid token
		}
		if tok.Kind == token.EOF {
			t.Fatal("expected an InvalidPaste error, got clean EOF")
		}
		if tok.IsIdent() {
			if _, err := eng.TryExpand(tok); err != nil {
				return
			}
		}
	}
}

func TestSelfReferentialMacroDoesNotRecurseInfinitely(t *testing.T) {
	macros := macro.NewTable()
	macros.Define(&macro.Macro{Name: "A", Kind: macro.Object, Replacement: tokenizeReplacement(t, "A")})

	got := runExpansion(t, macros, "A")
	assertLiterals(t, got, []string{"A"})
}

func TestMutualRecursionTerminatesViaBlockedSet(t *testing.T) {
	macros := macro.NewTable()
	macros.Define(&macro.Macro{Name: "A", Kind: macro.Object, Replacement: tokenizeReplacement(t, "B")})
	macros.Define(&macro.Macro{Name: "B", Kind: macro.Object, Replacement: tokenizeReplacement(t, "A")})

	got := runExpansion(t, macros, "A")
	assertLiterals(t, got, []string{"A"})
}

func TestArgumentPreExpansionDoesNotLeakPastItsOwnBoundary(t *testing.T) {
	// Regression test for the frame-floor bug: preExpand must read exactly
	// the argument's own tokens, not fall through into the tokens that
	// follow the macro invocation in the real source.
	macros := macro.NewTable()
	macros.Define(&macro.Macro{Name: "ID", Kind: macro.Function, Parameters: []string{"x"}, Replacement: tokenizeReplacement(t, "x")})

	got := runExpansion(t, macros, "ID(1) REST")
	assertLiterals(t, got, []string{"1", "REST"})
}

func TestDeterministicReExpansionOfSameArguments(t *testing.T) {
	macros := macro.NewTable()
	macros.Define(&macro.Macro{
		Name: "ADD", Kind: macro.Function,
		Parameters:  []string{"a", "b"},
		Replacement: tokenizeReplacement(t, "a+b"),
	})

	first := runExpansion(t, macros, "ADD(1,2)")
	second := runExpansion(t, macros, "ADD(1,2)")
	assertLiterals(t, first, []string{"1", "+", "2"})
	assertLiterals(t, second, []string{"1", "+", "2"})
}

func assertLiterals(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("at %d: got %v, want %v (full: %v vs %v)", i, got[i], want[i], got, want)
		}
	}
}
