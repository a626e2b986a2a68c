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

package stack

import (
	"testing"

	"github.com/cparanoid/cpreproc/internal/source"
	"github.com/cparanoid/cpreproc/internal/token"
)

func TestBaseFrameEOFIsTerminal(t *testing.T) {
	s := New()
	file := &source.File{Index: 0, Name: "t.c", Bytes: []byte("a")}
	s.PushSource(file)

	tok, err := s.Next()
	if err != nil || tok.Literal != "a" {
		t.Fatalf("got %v, %v", tok, err)
	}
	for i := 0; i < 3; i++ {
		eof, err := s.Next()
		if err != nil || eof.Kind != token.EOF {
			t.Fatalf("iteration %d: got %v, %v, want EOF forever", i, eof, err)
		}
	}
}

func TestPushExpansionPopsTransparentlyOnEOF(t *testing.T) {
	s := New()
	file := &source.File{Index: 0, Name: "t.c", Bytes: []byte("tail")}
	s.PushSource(file)

	body := []token.Token{{Kind: token.IDENTIFIER, Literal: "expanded"}}
	s.PushExpansion("M", body, token.Token{Kind: token.IDENTIFIER, Literal: "M"})

	first, err := s.Next()
	if err != nil || first.Literal != "expanded" {
		t.Fatalf("got %v, %v, want the expansion's token", first, err)
	}
	// The expansion frame is now exhausted; Next should transparently pop
	// it and reveal the base frame's next real token.
	second, err := s.Next()
	if err != nil || second.Literal != "tail" {
		t.Fatalf("got %v, %v, want the base frame's token to surface after pop", second, err)
	}
}

func TestPushExpansionBlocksOwnName(t *testing.T) {
	s := New()
	file := &source.File{Index: 0, Name: "t.c", Bytes: []byte("")}
	s.PushSource(file)
	s.PushExpansion("SELF", []token.Token{{Kind: token.IDENTIFIER, Literal: "SELF"}}, token.Token{})

	tok, err := s.Next()
	if err != nil {
		t.Fatal(err)
	}
	if !tok.Blocks("SELF") {
		t.Fatal("a token pulled from the SELF expansion frame should have SELF in its hide set")
	}
}

func TestBlockedSetNestsAcrossExpansions(t *testing.T) {
	s := New()
	file := &source.File{Index: 0, Name: "t.c", Bytes: []byte("")}
	s.PushSource(file)
	s.PushExpansion("OUTER", nil, token.Token{})
	s.PushExpansion("INNER", []token.Token{{Kind: token.IDENTIFIER, Literal: "x"}}, token.Token{})

	tok, err := s.Next()
	if err != nil {
		t.Fatal(err)
	}
	if !tok.Blocks("OUTER") || !tok.Blocks("INNER") {
		t.Fatalf("expected both OUTER and INNER blocked, got %v", tok.Blocked)
	}
}

func TestNextAboveStopsAtFloorInsteadOfPoppingThrough(t *testing.T) {
	s := New()
	file := &source.File{Index: 0, Name: "t.c", Bytes: []byte("leaked")}
	s.PushSource(file)

	floor := s.Depth()
	s.PushTokens([]token.Token{{Kind: token.IDENTIFIER, Literal: "bounded"}}, token.Token{}, nil)

	first, err := s.NextAbove(floor)
	if err != nil || first.Literal != "bounded" {
		t.Fatalf("got %v, %v", first, err)
	}
	eof, err := s.NextAbove(floor)
	if err != nil || eof.Kind != token.EOF {
		t.Fatalf("got %v, %v, want the temporary frame's own EOF, not a pop-through to the source frame", eof, err)
	}
	// The frame must still be present (not auto-popped) until Unwind.
	if s.Depth() != floor+1 {
		t.Fatalf("Depth() = %d, want %d (NextAbove must not pop the floor frame itself)", s.Depth(), floor+1)
	}

	s.Unwind(floor)
	if s.Depth() != floor {
		t.Fatalf("Depth() after Unwind = %d, want %d", s.Depth(), floor)
	}
	// Only now should the real source token become reachable.
	tok, err := s.Next()
	if err != nil || tok.Literal != "leaked" {
		t.Fatalf("got %v, %v, want the base frame's token now that the bounded frame is unwound", tok, err)
	}
}

func TestSourceDepthCountsOnlySourceBackedFrames(t *testing.T) {
	s := New()
	file := &source.File{Index: 0, Name: "a.c", Bytes: []byte("")}
	s.PushSource(file)
	if s.SourceDepth() != 1 {
		t.Fatalf("SourceDepth() = %d, want 1", s.SourceDepth())
	}
	s.PushExpansion("M", nil, token.Token{})
	if s.SourceDepth() != 1 {
		t.Fatalf("SourceDepth() should not count a token-list frame, got %d", s.SourceDepth())
	}
	file2 := &source.File{Index: 1, Name: "b.c", Bytes: []byte("")}
	s.PushSource(file2)
	if s.SourceDepth() != 2 {
		t.Fatalf("SourceDepth() = %d, want 2 after a nested #include", s.SourceDepth())
	}
}

func TestTopRawReportsFalseForTokenListFrame(t *testing.T) {
	s := New()
	file := &source.File{Index: 0, Name: "t.c", Bytes: []byte("")}
	s.PushSource(file)
	if _, ok := s.TopRaw(); !ok {
		t.Fatal("top of a freshly pushed source frame should be raw")
	}
	s.PushExpansion("M", []token.Token{{Kind: token.IDENTIFIER, Literal: "x"}}, token.Token{})
	if _, ok := s.TopRaw(); ok {
		t.Fatal("top of a token-list frame should not report as raw")
	}
}

func TestBlocksChecksCurrentTopFrame(t *testing.T) {
	s := New()
	file := &source.File{Index: 0, Name: "t.c", Bytes: []byte("")}
	s.PushSource(file)
	if s.Blocks("ANY") {
		t.Fatal("a fresh source frame should have no blocked names")
	}
	s.PushExpansion("M", nil, token.Token{})
	if !s.Blocks("M") {
		t.Fatal("after PushExpansion(\"M\", ...), Blocks(\"M\") should be true")
	}
}
