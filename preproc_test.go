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

package preproc

import (
	"testing"

	"github.com/cparanoid/cpreproc/internal/token"
)

// nullLoader resolves no #include at all; tests that don't exercise
// #include pass this so a stray inclusion fails loudly instead of
// silently reading from disk.
type nullLoader struct{}

func (nullLoader) Load(path string, angled bool, fromDir string) (string, []byte, error) {
	return "", nil, errNoSuchInclude(path)
}

type errNoSuchInclude string

func (e errNoSuchInclude) Error() string { return "no such include in test: " + string(e) }

func literals(t *testing.T, src string) []string {
	t.Helper()
	p := New(nullLoader{}, Options{})
	p.WithSource("t.c", []byte(src))
	toks, err := p.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll(%q): %v", src, err)
	}
	out := make([]string, len(toks))
	for i, tok := range toks {
		out[i] = tok.Literal
	}
	return out
}

func assertEq(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("at %d: got %v, want %v (full %v vs %v)", i, got[i], want[i], got, want)
		}
	}
}

// The six concrete scenarios spec §8 names.

func TestScenarioObjectLike(t *testing.T) {
	assertEq(t, literals(t, "#define N 42\nint x = N;\n"), []string{"int", "x", "=", "42", ";"})
}

func TestScenarioFunctionLikeWithNestedComma(t *testing.T) {
	assertEq(t, literals(t, "#define PAIR(a,b) a,b\nPAIR((1,2),3)"),
		[]string{"(", "1", ",", "2", ")", ",", "3"})
}

func TestScenarioVariadicOmitComma(t *testing.T) {
	assertEq(t, literals(t, "#define LOG(fmt, ...) f(fmt, ##__VA_ARGS__)\nLOG(\"x\")\nLOG(\"x\",1,2)\n"),
		[]string{"f", "(", `"x"`, ")", "f", "(", `"x"`, ",", "1", ",", "2", ")"})
}

func TestScenarioStringize(t *testing.T) {
	assertEq(t, literals(t, "#define STR(x) #x\nSTR(a b  c)\n"), []string{`"a b c"`})
}

func TestScenarioPaste(t *testing.T) {
	assertEq(t, literals(t, "#define CAT(a,b) a##b\nCAT(foo,bar)\n"), []string{"foobar"})
}

func TestScenarioSelfReference(t *testing.T) {
	assertEq(t, literals(t, "#define A A\nA\n"), []string{"A"})
}

// Testable properties from spec §8.

func TestNextTokenEventuallyReturnsEOFOnWellFormedInput(t *testing.T) {
	p := New(nullLoader{}, Options{})
	p.WithSource("t.c", []byte("a b c"))
	for i := 0; i < 10; i++ {
		tok, err := p.NextToken()
		if err != nil {
			t.Fatal(err)
		}
		if tok.Kind == token.EOF {
			return
		}
	}
	t.Fatal("NextToken did not reach EOF within a bounded number of pulls")
}

func TestDeterministicReExpansion(t *testing.T) {
	src := "#define ADD(a,b) a+b\nADD(1,2) ADD(1,2)\n"
	got := literals(t, src)
	want := []string{"1", "+", "2", "1", "+", "2"}
	assertEq(t, got, want)
}

func TestRoundTripWithNoDirectives(t *testing.T) {
	src := "int main ( ) { return 0 ; }"
	got := literals(t, src)
	want := []string{"int", "main", "(", ")", "{", "return", "0", ";", "}"}
	assertEq(t, got, want)
}

func TestStringizeEscapesQuotesAndBackslashes(t *testing.T) {
	got := literals(t, "#define STR(x) #x\nSTR(\"a\\b\")\n")
	want := []string{`"\"a\\b\""`}
	assertEq(t, got, want)
}

func TestInvalidPasteReturnsAnError(t *testing.T) {
	p := New(nullLoader{}, Options{})
	p.WithSource("t.c", []byte("#define CAT(a,b) a##b\nCAT(+,-)\n"))
	if _, err := p.ReadAll(); err == nil {
		t.Fatal("expected an error: '+' ## '-' does not retokenize to a single token")
	}
}

// Programmatic interface (spec §6).

func TestDefineEquivalentToHashDefine(t *testing.T) {
	p := New(nullLoader{}, Options{})
	if err := p.Define("GREETING hello"); err != nil {
		t.Fatal(err)
	}
	p.WithSource("t.c", []byte("GREETING\n"))
	toks, err := p.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(toks) != 1 || toks[0].Literal != "hello" {
		t.Fatalf("got %v", toks)
	}
}

func TestDefineWithNoReplacementDefaultsToOne(t *testing.T) {
	p := New(nullLoader{}, Options{})
	if err := p.Define("FLAG"); err != nil {
		t.Fatal(err)
	}
	p.WithSource("t.c", []byte("FLAG\n"))
	toks, err := p.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(toks) != 1 || toks[0].Literal != "1" {
		t.Fatalf("got %v, want a single token \"1\"", toks)
	}
}

func TestUndefEquivalentToHashUndef(t *testing.T) {
	p := New(nullLoader{}, Options{})
	if err := p.Define("N 42"); err != nil {
		t.Fatal(err)
	}
	p.Undef("N")
	p.WithSource("t.c", []byte("N\n"))
	toks, err := p.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(toks) != 1 || toks[0].Literal != "N" {
		t.Fatalf("got %v, want the bare identifier N since it was undef'd", toks)
	}
}

func TestFunctionLikeDefineViaDefine(t *testing.T) {
	p := New(nullLoader{}, Options{})
	if err := p.Define("TWICE(x) x+x"); err != nil {
		t.Fatal(err)
	}
	p.WithSource("t.c", []byte("TWICE(1)\n"))
	toks, err := p.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	out := make([]string, len(toks))
	for i, tok := range toks {
		out[i] = tok.Literal
	}
	assertEq(t, out, []string{"1", "+", "1"})
}

func TestRegistryResolvesSourceFileNames(t *testing.T) {
	p := New(nullLoader{}, Options{})
	p.WithSource("main.c", []byte("x"))
	if _, err := p.ReadAll(); err != nil {
		t.Fatal(err)
	}
	f := p.Registry().File(0)
	if f == nil || f.Name != "main.c" {
		t.Fatalf("got %v, want the registered main.c file", f)
	}
}
