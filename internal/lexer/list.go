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

package lexer

import "github.com/cparanoid/cpreproc/internal/token"

// ListLexer replays an already-tokenized list as if it were source,
// spec component C5. It never re-tokenizes: every token it yields is one
// produced earlier by a RawLexer (or synthesized by the ## paste
// operator), so a macro's replacement list is scanned exactly once, ever.
type ListLexer struct {
	tokens []token.Token
	pos    int
	eof    token.Token

	// PrevToken is the last non-EOF token this frame yielded (spec §4.2's
	// previous_token). The ## operator does not read it: internal/expand
	// resolves pasting before the frame is pushed.
	PrevToken token.Token
	havePrev  bool
}

// NewListLexer returns a lexer replaying tokens, yielding EOF forever
// once exhausted. eofLoc is the location reported on every EOF token
// (normally the invoking macro name's location).
func NewListLexer(tokens []token.Token, eofLoc token.Token) *ListLexer {
	eof := eofLoc
	eof.Kind = token.EOF
	return &ListLexer{tokens: tokens, eof: eof}
}

// Next returns the next token, advancing past it.
func (l *ListLexer) Next() (token.Token, error) {
	t, err := l.Peek()
	if l.pos < len(l.tokens) {
		l.pos++
	}
	if t.Kind != token.EOF {
		l.PrevToken = t
		l.havePrev = true
	}
	return t, err
}

// Peek returns the next token without consuming it.
func (l *ListLexer) Peek() (token.Token, error) {
	if l.pos >= len(l.tokens) {
		return l.eof, nil
	}
	return l.tokens[l.pos], nil
}

// Exhausted reports whether every token in the list has been consumed.
func (l *ListLexer) Exhausted() bool { return l.pos >= len(l.tokens) }
