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

// Package lexer implements the two regional-lexer kinds spec §4.1/§4.2
// describe: RawLexer scans a source byte buffer, ListLexer replays a
// pre-tokenized list. Both satisfy the Lexer interface so the stack
// (internal/stack) can hold either behind one pull operation, the tagged-
// variant redesign spec §9 asks for in place of frame-to-frame
// polymorphism.
package lexer

import (
	"github.com/cparanoid/cpreproc/internal/perr"
	"github.com/cparanoid/cpreproc/internal/source"
	"github.com/cparanoid/cpreproc/internal/token"
)

// Lexer is the common pull interface for both regional-lexer kinds.
type Lexer interface {
	Next() (token.Token, error)
	Peek() (token.Token, error)
}

// twoCharOps lists the two-character operators in the maximal-munch
// priority order spec §4.1 rule 9 gives, ellipsis checked separately
// since it is three characters.
var twoCharOps = []struct {
	text string
	kind token.Kind
}{
	{"->", token.ARROW}, {"++", token.INC}, {"--", token.DEC},
	{"+=", token.PLUSASSIGN}, {"-=", token.MINUSASSIGN},
	{"|=", token.ORASSIGN}, {"&=", token.ANDASSIGN},
	{"==", token.EQ}, {"!=", token.NE}, {"<=", token.LE}, {">=", token.GE},
	{"<<", token.SHL}, {">>", token.SHR}, {"&&", token.AMPAMP}, {"||", token.PIPEPIPE},
}

var oneCharOps = map[byte]token.Kind{
	'(': token.LPAREN, ')': token.RPAREN, '{': token.LBRACE, '}': token.RBRACE,
	'[': token.LBRACKET, ']': token.RBRACKET, ',': token.COMMA, ';': token.SEMICOLON,
	':': token.COLON, '?': token.QUESTION, '.': token.DOT,
	'+': token.PLUS, '-': token.MINUS, '*': token.STAR, '/': token.SLASH, '%': token.PERCENT,
	'&': token.AMP, '|': token.PIPE, '^': token.CARET, '~': token.TILDE, '!': token.BANG,
	'<': token.LT, '>': token.GT, '=': token.ASSIGN,
}

func isDigit(b byte) bool   { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool   { return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') }
func isAlnum(b byte) bool   { return isAlpha(b) || isDigit(b) }
func isNumCont(b byte) bool { return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F') || b == 'x' || b == 'X' }

// RawLexer scans one source file buffer, spec component C4.
type RawLexer struct {
	file   *source.File
	data   []byte
	pos    int
	cursor source.Cursor

	// Modes toggled by the caller (spec §4.1).
	SkipBackslashNewline bool
	PreserveNewline      bool

	cached    *token.Token
	cachedErr error
	haveCache bool
}

// NewRawLexer returns a lexer over file's bytes, starting at its first
// byte, with the default mode settings (splice newlines, discard
// newlines).
func NewRawLexer(file *source.File) *RawLexer {
	return &RawLexer{
		file:                 file,
		data:                 file.Bytes,
		cursor:               source.NewCursor(file.Index),
		SkipBackslashNewline: true,
		PreserveNewline:      false,
	}
}

func (l *RawLexer) loc() source.Location { return l.cursor.Loc() }

func (l *RawLexer) atEOF() bool { return l.pos >= len(l.data) }

func (l *RawLexer) byteAt(offset int) (byte, bool) {
	p := l.pos + offset
	if p >= len(l.data) {
		return 0, false
	}
	return l.data[p], true
}

// consume advances past exactly one raw byte, updating cursor and pos.
func (l *RawLexer) consume() byte {
	b := l.data[l.pos]
	l.pos++
	l.cursor.Advance(b)
	return b
}

// hasLiteral reports whether s occurs at the current position.
func (l *RawLexer) hasLiteral(s string) bool {
	if l.pos+len(s) > len(l.data) {
		return false
	}
	return string(l.data[l.pos:l.pos+len(s)]) == s
}

// consumeLiteral consumes len(s) bytes, assumed already matched by
// hasLiteral.
func (l *RawLexer) consumeLiteral(s string) {
	for range s {
		l.consume()
	}
}

// skipWhitespaceAndComments implements scan rules 1-4: it eats spaces,
// tabs, backslash-newline splices, and comments in a loop, stopping
// either at EOF or at the first byte that starts a real token (or, in
// PreserveNewline mode, at an unescaped newline).
func (l *RawLexer) skipWhitespaceAndComments() error {
	for {
		progressed := false
		for !l.atEOF() {
			b := l.data[l.pos]
			if b == ' ' || b == '\t' || b == '\v' || b == '\f' {
				l.consume()
				progressed = true
				continue
			}
			if b == '\r' {
				l.consume()
				progressed = true
				continue
			}
			if b == '\n' {
				if l.PreserveNewline {
					break
				}
				l.consume()
				progressed = true
				continue
			}
			break
		}

		if l.SkipBackslashNewline && l.hasLiteral("\\\n") {
			l.consumeLiteral("\\\n")
			progressed = true
			continue
		}

		if l.hasLiteral("/*") {
			start := l.loc()
			l.consumeLiteral("/*")
			closed := false
			for !l.atEOF() {
				if l.hasLiteral("*/") {
					l.consumeLiteral("*/")
					closed = true
					break
				}
				l.consume()
			}
			if !closed {
				return perr.At(perr.UnterminatedComment, start, "unterminated block comment")
			}
			progressed = true
			continue
		}

		if l.hasLiteral("//") {
			for !l.atEOF() && l.data[l.pos] != '\n' {
				l.consume()
			}
			progressed = true
			continue
		}

		if !progressed {
			return nil
		}
	}
}

func (l *RawLexer) scanIdentifier() token.Token {
	start := l.loc()
	begin := l.pos
	for !l.atEOF() && isAlnum(l.data[l.pos]) {
		l.consume()
	}
	lit := string(l.data[begin:l.pos])
	kind := token.IDENTIFIER
	if k, ok := token.Keywords[lit]; ok {
		kind = k
	}
	return token.Token{Kind: kind, Literal: lit, Location: start}
}

func (l *RawLexer) scanNumber() token.Token {
	start := l.loc()
	begin := l.pos
	l.consume() // leading digit
	for !l.atEOF() && isNumCont(l.data[l.pos]) {
		l.consume()
	}
	return token.Token{Kind: token.NUMERIC, Literal: string(l.data[begin:l.pos]), Location: start}
}

func (l *RawLexer) scanString() (token.Token, error) {
	start := l.loc()
	begin := l.pos
	l.consume() // opening quote
	for {
		if l.atEOF() {
			return token.Token{}, perr.At(perr.UnterminatedString, start, "unterminated string literal")
		}
		b := l.data[l.pos]
		if b == '\\' {
			l.consume()
			if !l.atEOF() {
				l.consume()
			}
			continue
		}
		if b == '"' {
			l.consume()
			break
		}
		if b == '\n' {
			return token.Token{}, perr.At(perr.UnterminatedString, start, "unterminated string literal")
		}
		l.consume()
	}
	return token.Token{Kind: token.STRING, Literal: string(l.data[begin:l.pos]), Location: start}, nil
}

func (l *RawLexer) scanChar() (token.Token, error) {
	start := l.loc()
	begin := l.pos
	l.consume() // opening quote
	if l.atEOF() {
		return token.Token{}, perr.At(perr.UnterminatedChar, start, "unterminated character literal")
	}
	if l.data[l.pos] == '\\' {
		l.consume()
		if l.atEOF() {
			return token.Token{}, perr.At(perr.UnterminatedChar, start, "unterminated character literal")
		}
	}
	if l.atEOF() {
		return token.Token{}, perr.At(perr.UnterminatedChar, start, "unterminated character literal")
	}
	l.consume()
	if l.atEOF() || l.data[l.pos] != '\'' {
		return token.Token{}, perr.At(perr.UnterminatedChar, start, "unterminated character literal")
	}
	l.consume()
	return token.Token{Kind: token.CHAR, Literal: string(l.data[begin:l.pos]), Location: start}, nil
}

func (l *RawLexer) scanOperator() (token.Token, bool) {
	start := l.loc()
	if l.hasLiteral("...") {
		l.consumeLiteral("...")
		return token.Token{Kind: token.ELLIPSIS, Literal: "...", Location: start}, true
	}
	for _, op := range twoCharOps {
		if l.hasLiteral(op.text) {
			l.consumeLiteral(op.text)
			return token.Token{Kind: op.kind, Literal: op.text, Location: start}, true
		}
	}
	if b, ok := l.byteAt(0); ok {
		if kind, ok := oneCharOps[b]; ok {
			l.consume()
			return token.Token{Kind: kind, Literal: string(b), Location: start}, true
		}
	}
	return token.Token{}, false
}

// scan implements the priority-ordered rules of spec §4.1.
func (l *RawLexer) scan() (token.Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return token.Token{}, err
	}

	if l.atEOF() {
		return token.Token{Kind: token.EOF, Location: l.loc()}, nil
	}

	if l.PreserveNewline && l.data[l.pos] == '\n' {
		loc := l.loc()
		l.consume()
		return token.Token{Kind: token.NEWLINE, Literal: "\n", Location: loc}, nil
	}

	if !l.SkipBackslashNewline && l.data[l.pos] == '\\' {
		loc := l.loc()
		l.consume()
		return token.Token{Kind: token.BACKSLASH, Literal: "\\", Location: loc}, nil
	}

	if l.hasLiteral("##") {
		loc := l.loc()
		l.consumeLiteral("##")
		return token.Token{Kind: token.HASHHASH, Literal: "##", Location: loc}, nil
	}
	if l.data[l.pos] == '#' {
		loc := l.loc()
		l.consume()
		return token.Token{Kind: token.HASH, Literal: "#", Location: loc}, nil
	}

	b := l.data[l.pos]
	switch {
	case isDigit(b):
		return l.scanNumber(), nil
	case b == '"':
		return l.scanString()
	case b == '\'':
		return l.scanChar()
	case isAlpha(b):
		return l.scanIdentifier(), nil
	}

	if tok, ok := l.scanOperator(); ok {
		return tok, nil
	}

	loc := l.loc()
	bad := l.consume()
	return token.Token{}, perr.At(perr.UnexpectedByte, loc, "unexpected byte %q", bad)
}

// ScanHeaderName scans an #include operand directly from the raw buffer:
// a quoted "path" or a bracketed <path>. It bypasses the normal token
// scan because header paths routinely contain bytes (`/`, `.`) that are
// not valid inside a single C token, so the usual punctuator/identifier
// rules cannot tokenize them as one unit. Only the directive parser
// calls this, and only immediately after consuming the "include"
// identifier, before any ordinary Peek has cached a token.
func (l *RawLexer) ScanHeaderName() (path string, angled bool, loc source.Location, err error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return "", false, source.Location{}, err
	}
	loc = l.loc()
	if l.atEOF() {
		return "", false, loc, perr.At(perr.MalformedDefine, loc, "expected \"FILENAME\" or <FILENAME> after #include")
	}
	var closeB byte
	switch l.data[l.pos] {
	case '"':
		closeB = '"'
	case '<':
		angled = true
		closeB = '>'
	default:
		return "", false, loc, perr.At(perr.MalformedDefine, loc, "expected \"FILENAME\" or <FILENAME> after #include")
	}
	l.consume()
	begin := l.pos
	for {
		if l.atEOF() || l.data[l.pos] == '\n' {
			return "", false, loc, perr.At(perr.MalformedDefine, loc, "unterminated #include path")
		}
		if l.data[l.pos] == closeB {
			path = string(l.data[begin:l.pos])
			l.consume()
			return path, angled, loc, nil
		}
		l.consume()
	}
}

// Next returns the next token, advancing the cursor.
func (l *RawLexer) Next() (token.Token, error) {
	if l.haveCache {
		l.haveCache = false
		return *l.cached, l.cachedErr
	}
	return l.scan()
}

// Peek returns the next token without consuming it.
func (l *RawLexer) Peek() (token.Token, error) {
	if !l.haveCache {
		t, err := l.scan()
		l.cached, l.cachedErr, l.haveCache = &t, err, true
	}
	return *l.cached, l.cachedErr
}
