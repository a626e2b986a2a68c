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

package token

import "testing"

func TestIsIdentOnlyIdentifierKind(t *testing.T) {
	if !(Token{Kind: IDENTIFIER, Literal: "foo"}).IsIdent() {
		t.Fatal("IDENTIFIER should be IsIdent")
	}
	if (Token{Kind: KwIf, Literal: "if"}).IsIdent() {
		t.Fatal("keyword kind should not be IsIdent: keywords are recognized only by the identifier classifier")
	}
	if (Token{Kind: NUMERIC, Literal: "1"}).IsIdent() {
		t.Fatal("NUMERIC should not be IsIdent")
	}
}

func TestIsWordAcceptsIdentifiersAndKeywordKinds(t *testing.T) {
	if !(Token{Kind: IDENTIFIER, Literal: "foo"}).IsWord() {
		t.Fatal("IDENTIFIER should be IsWord")
	}
	if !(Token{Kind: KwIf, Literal: "if"}).IsWord() {
		t.Fatal("a keyword-classified identifier spelling should still be IsWord")
	}
	if !(Token{Kind: KwElse, Literal: "else"}).IsWord() {
		t.Fatal("a keyword-classified identifier spelling should still be IsWord")
	}
	if (Token{Kind: NUMERIC, Literal: "1"}).IsWord() {
		t.Fatal("NUMERIC should not be IsWord")
	}
	if (Token{Kind: LPAREN, Literal: "("}).IsWord() {
		t.Fatal("a punctuator should not be IsWord")
	}
}

func TestBlocksReportsHideSetMembership(t *testing.T) {
	tok := Token{Kind: IDENTIFIER, Literal: "A"}
	if tok.Blocks("A") {
		t.Fatal("fresh token should not block anything")
	}
	blocked := tok.WithBlocked(map[string]struct{}{"A": {}})
	if !blocked.Blocks("A") {
		t.Fatal("WithBlocked should make Blocks(\"A\") true")
	}
	if blocked.Blocks("B") {
		t.Fatal("Blocks(\"B\") should be false when only A is blocked")
	}
}

func TestWithBlockedUnionsExistingAndExtra(t *testing.T) {
	tok := Token{Blocked: map[string]struct{}{"A": {}}}
	merged := tok.WithBlocked(map[string]struct{}{"B": {}})
	if !merged.Blocks("A") || !merged.Blocks("B") {
		t.Fatalf("expected both A and B blocked, got %v", merged.Blocked)
	}
	// original must be unmodified (WithBlocked copies).
	if tok.Blocks("B") {
		t.Fatal("WithBlocked must not mutate the receiver's hide set")
	}
}

func TestWithBlockedNoExtraReturnsSameValue(t *testing.T) {
	tok := Token{Kind: IDENTIFIER, Literal: "x"}
	if got := tok.WithBlocked(nil); got.Blocked != nil {
		t.Fatalf("WithBlocked(nil) should not allocate a hide set, got %v", got.Blocked)
	}
}

func TestKeywordAndDirectiveTablesAgreeWithKindNames(t *testing.T) {
	for lit, kind := range Keywords {
		if kind.String() != lit {
			t.Errorf("Keywords[%q] = %v, String() = %q", lit, kind, kind.String())
		}
	}
	for lit, kind := range DirectiveNames {
		if kind.String() != lit {
			t.Errorf("DirectiveNames[%q] = %v, String() = %q", lit, kind, kind.String())
		}
	}
}
