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

// Package stack implements the Lexer Stack (spec §4.3, component C6):
// an ordered collection of regional-lexer frames, each either source-
// backed or token-list-backed, with transparent pop-on-EOF. Grounded on
// the original Rust preprocessor's RegionalLexer/LexerMode stack
// (original_source/src/lexer.rs) and on the Go teacher's listReader
// chaining in preprocessorImpl.go, reworked as values owned by one
// vector (spec §9: "frames are values in a vector owned by the
// preprocessor", not back-pointer-linked).
package stack

import (
	"github.com/cparanoid/cpreproc/internal/lexer"
	"github.com/cparanoid/cpreproc/internal/source"
	"github.com/cparanoid/cpreproc/internal/token"
)

type frame struct {
	lex     lexer.Lexer
	raw     *lexer.RawLexer  // non-nil only for source-backed frames
	list    *lexer.ListLexer // non-nil only for token-list-backed frames
	macro   string           // name of the macro this frame expands, "" for source frames
	blocked map[string]struct{}
}

// Stack owns the frame vector. Frame 0 is always the base input file and
// is never popped; its EOF is the terminal EOF (spec §3 invariant).
type Stack struct {
	frames []*frame
}

// New returns a stack with no frames; call PushSource to install the
// base frame before pulling any tokens.
func New() *Stack {
	return &Stack{}
}

// Depth returns the number of frames currently on the stack.
func (s *Stack) Depth() int { return len(s.frames) }

// PushSource pushes a new source-backed frame for file, e.g. for the
// base input or an #include. The returned *lexer.RawLexer is exposed so
// the directive parser can toggle its scan modes (TopRaw).
func (s *Stack) PushSource(file *source.File) *lexer.RawLexer {
	raw := lexer.NewRawLexer(file)
	s.frames = append(s.frames, &frame{lex: raw, raw: raw})
	return raw
}

// PushExpansion pushes a token-list-backed frame replaying the already-
// argument-substituted body of a macro invocation of name, found at
// origin. By the time this is called, internal/expand has already
// resolved parameter references, stringizing, and token pasting into a
// flat token list (the teacher's processMacro builds this same way,
// in-memory, before pushing); this frame only needs to replay it and let
// the stack's own identifier handling rescan it for further macro calls.
// The pushed frame's blocked set is the union of the current top frame's
// blocked set and name, so the expansion engine's lookup check (spec
// §4.4 step 2) sees it via any token pulled from this frame or any frame
// nested inside it.
func (s *Stack) PushExpansion(name string, body []token.Token, origin token.Token) {
	blocked := map[string]struct{}{name: {}}
	if top := s.top(); top != nil {
		for k := range top.blocked {
			blocked[k] = struct{}{}
		}
	}
	list := lexer.NewListLexer(body, origin)
	s.frames = append(s.frames, &frame{lex: list, list: list, macro: name, blocked: blocked})
}

// PushTokens pushes a token-list-backed frame with no macro identity,
// whose blocked set is the current top frame's set plus the names in
// blocked (nil adds none), used for re-scanning an already-assembled
// token list (e.g. a macro's fully substituted body before recursive
// re-expansion, or a stringize/paste result).
func (s *Stack) PushTokens(tokens []token.Token, eofLoc token.Token, blocked map[string]struct{}) {
	merged := map[string]struct{}{}
	if top := s.top(); top != nil {
		for k := range top.blocked {
			merged[k] = struct{}{}
		}
	}
	for k := range blocked {
		merged[k] = struct{}{}
	}
	list := lexer.NewListLexer(tokens, eofLoc)
	s.frames = append(s.frames, &frame{lex: list, list: list, blocked: merged})
}

func (s *Stack) top() *frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Next pulls from the top frame; on EOF it pops (unless the top is the
// base frame, whose EOF is terminal) and restarts the pull.
func (s *Stack) Next() (token.Token, error) {
	for {
		top := s.top()
		t, err := top.lex.Next()
		if err != nil {
			return token.Token{}, err
		}
		if t.Kind == token.EOF {
			if len(s.frames) == 1 {
				return t, nil
			}
			s.frames = s.frames[:len(s.frames)-1]
			continue
		}
		return t.WithBlocked(top.blocked), nil
	}
}

// Peek returns the next token without consuming it, popping exhausted
// non-base frames exactly as Next does.
func (s *Stack) Peek() (token.Token, error) {
	for {
		top := s.top()
		t, err := top.lex.Peek()
		if err != nil {
			return token.Token{}, err
		}
		if t.Kind == token.EOF && len(s.frames) > 1 {
			s.frames = s.frames[:len(s.frames)-1]
			continue
		}
		return t.WithBlocked(top.blocked), nil
	}
}

// NextAbove is Next's bounded counterpart: a caller that pushed its own
// token-list frame (macro argument pre-expansion, #if condition
// evaluation) and wants to read exactly that frame's contents — not
// whatever frame is nested beneath it — records floor := s.Depth() right
// before pushing, then drains with NextAbove(floor) instead of Next.
// Frames pushed and exhausted above the temporary one (nested macro
// expansions encountered while draining it) still pop transparently; only
// popping the temporary frame itself is suppressed, surfacing its EOF to
// the caller instead. The caller must follow up with Unwind(floor) once
// done, since the exhausted frame is left in place, not popped, by this
// call.
func (s *Stack) NextAbove(floor int) (token.Token, error) {
	for {
		top := s.top()
		t, err := top.lex.Next()
		if err != nil {
			return token.Token{}, err
		}
		if t.Kind == token.EOF {
			if len(s.frames) <= floor+1 {
				return t, nil
			}
			s.frames = s.frames[:len(s.frames)-1]
			continue
		}
		return t.WithBlocked(top.blocked), nil
	}
}

// Unwind pops frames down to floor (a frame count captured by Depth()
// immediately before a temporary token-list frame was pushed), once
// NextAbove has reported that frame's own EOF. A no-op if nothing is
// left above floor.
func (s *Stack) Unwind(floor int) {
	if len(s.frames) > floor {
		s.frames = s.frames[:floor]
	}
}

// SourceDepth returns the number of source-backed (file) frames currently
// on the stack — the #include nesting depth the directive parser checks
// against its depth limit (spec §4.7).
func (s *Stack) SourceDepth() int {
	n := 0
	for _, f := range s.frames {
		if f.raw != nil {
			n++
		}
	}
	return n
}

// TopRaw returns the current top frame's RawLexer and true if it is
// source-backed, so the directive parser can toggle PreserveNewline for
// the duration of a directive line. Directives only ever appear while
// scanning source, never inside a macro body, so callers may assume this
// is only called when the top is source-backed.
func (s *Stack) TopRaw() (*lexer.RawLexer, bool) {
	top := s.top()
	if top == nil || top.raw == nil {
		return nil, false
	}
	return top.raw, true
}

// Blocks reports whether name is in the current top frame's blocked set,
// i.e. whether a macro by that name is already being expanded somewhere
// on the active stack (spec §4.4 step 2).
func (s *Stack) Blocks(name string) bool {
	top := s.top()
	if top == nil {
		return false
	}
	_, ok := top.blocked[name]
	return ok
}
