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

// Package token defines the closed set of terminals the lexer and
// preprocessor pass around, and the keyword/punctuator/directive-name
// tables the raw lexer classifies identifiers against.
package token

import "github.com/cparanoid/cpreproc/internal/source"

// Kind is a closed enumeration of terminal kinds (spec §3 TokenKind).
type Kind int

const (
	// START is synthetic: it is only ever observed before the first real
	// token of a frame and never escapes to a caller.
	START Kind = iota
	EOF
	NUMERIC
	IDENTIFIER
	STRING
	CHAR

	// Punctuators and operators.
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
	COMMA
	SEMICOLON
	COLON
	QUESTION
	DOT
	ARROW
	ELLIPSIS
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	AMP
	PIPE
	CARET
	TILDE
	BANG
	AMPAMP
	PIPEPIPE
	SHL
	SHR
	LT
	GT
	LE
	GE
	EQ
	NE
	ASSIGN
	PLUSASSIGN
	MINUSASSIGN
	ANDASSIGN
	ORASSIGN
	INC
	DEC

	// Keywords.
	KwIf
	KwElse
	KwWhile
	KwFor
	KwDo
	KwReturn
	KwTypedef
	KwEnum
	KwStruct
	KwSizeof
	KwSwitch
	KwCase
	KwBreak
	KwDefault
	KwContinue

	// Preprocessor tokens.
	HASH
	HASHHASH
	DirInclude
	DirDefine
	DirUndef
	DirError
	DirIf
	DirElif
	DirElse
	DirEndif
	DirIfdef
	DirIfndef
	DirLine
	DirPragma

	// Whitespace hints.
	NEWLINE
	BACKSLASH
)

var kindNames = map[Kind]string{
	START: "START", EOF: "EOF", NUMERIC: "NUMERIC", IDENTIFIER: "IDENTIFIER",
	STRING: "STRING", CHAR: "CHAR",
	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}", LBRACKET: "[", RBRACKET: "]",
	COMMA: ",", SEMICOLON: ";", COLON: ":", QUESTION: "?", DOT: ".", ARROW: "->",
	ELLIPSIS: "...", PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%",
	AMP: "&", PIPE: "|", CARET: "^", TILDE: "~", BANG: "!", AMPAMP: "&&", PIPEPIPE: "||",
	SHL: "<<", SHR: ">>", LT: "<", GT: ">", LE: "<=", GE: ">=", EQ: "==", NE: "!=",
	ASSIGN: "=", PLUSASSIGN: "+=", MINUSASSIGN: "-=", ANDASSIGN: "&=", ORASSIGN: "|=",
	INC: "++", DEC: "--",
	KwIf: "if", KwElse: "else", KwWhile: "while", KwFor: "for", KwDo: "do",
	KwReturn: "return", KwTypedef: "typedef", KwEnum: "enum", KwStruct: "struct",
	KwSizeof: "sizeof", KwSwitch: "switch", KwCase: "case", KwBreak: "break",
	KwDefault: "default", KwContinue: "continue",
	HASH: "#", HASHHASH: "##",
	DirInclude: "include", DirDefine: "define", DirUndef: "undef", DirError: "error",
	DirIf: "if", DirElif: "elif", DirElse: "else", DirEndif: "endif",
	DirIfdef: "ifdef", DirIfndef: "ifndef", DirLine: "line", DirPragma: "pragma",
	NEWLINE: "NEWLINE", BACKSLASH: "BACKSLASH",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

// Keywords maps the spelling of each language keyword to its Kind. The
// raw lexer never recognizes these directly; they fall out of the
// identifier classifier (spec §3: "Keywords and directive names are
// recognized only by the identifier classifier").
var Keywords = map[string]Kind{
	"if": KwIf, "else": KwElse, "while": KwWhile, "for": KwFor, "do": KwDo,
	"return": KwReturn, "typedef": KwTypedef, "enum": KwEnum, "struct": KwStruct,
	"sizeof": KwSizeof, "switch": KwSwitch, "case": KwCase, "break": KwBreak,
	"default": KwDefault, "continue": KwContinue,
}

// keywordKinds is the reverse of Keywords, letting IsWord recognize a
// keyword-classified token as the identifier spelling it came from.
var keywordKinds = func() map[Kind]struct{} {
	m := make(map[Kind]struct{}, len(Keywords))
	for _, k := range Keywords {
		m[k] = struct{}{}
	}
	return m
}()

// DirectiveNames maps the spelling following a '#' to its Kind. Only
// consulted by the directive parser, never by the raw lexer's general
// scan.
var DirectiveNames = map[string]Kind{
	"include": DirInclude, "define": DirDefine, "undef": DirUndef, "error": DirError,
	"if": DirIf, "elif": DirElif, "else": DirElse, "endif": DirEndif,
	"ifdef": DirIfdef, "ifndef": DirIfndef, "line": DirLine, "pragma": DirPragma,
}

// Token is a single lexical unit: a Kind, the literal text it came from
// (verbatim for numeric/string/identifier, canonical for punctuators),
// and the Location of its origin in an original source file.
//
// A synthesized token (the product of ## pasting or # stringizing) still
// carries a Location — the location of the operator or operand that
// produced it — never a "location inside a macro body",
// per spec §3's invariant.
type Token struct {
	Kind     Kind
	Literal  string
	Location source.Location

	// Blocked is the hide set inherited from the expansion that produced
	// this token: the set of macro names this token must never be
	// re-expanded against (spec §4.4, the "blocked set" rescue).
	Blocked map[string]struct{}
}

// Blocks reports whether name is in t's hide set.
func (t Token) Blocks(name string) bool {
	if t.Blocked == nil {
		return false
	}
	_, ok := t.Blocked[name]
	return ok
}

// WithBlocked returns a copy of t whose hide set is the union of t's
// current hide set and extra.
func (t Token) WithBlocked(extra map[string]struct{}) Token {
	if len(extra) == 0 {
		return t
	}
	merged := make(map[string]struct{}, len(t.Blocked)+len(extra))
	for k := range t.Blocked {
		merged[k] = struct{}{}
	}
	for k := range extra {
		merged[k] = struct{}{}
	}
	t.Blocked = merged
	return t
}

// IsIdent reports whether t is a plain IDENTIFIER — a candidate macro
// name for the expansion engine. A keyword-classified spelling (KwIf,
// KwElse, ...) is deliberately excluded: this implementation's closed
// Kind enumeration gives keywords their own Kind at scan time (spec §3),
// so a macro can never be named after one.
func (t Token) IsIdent() bool {
	return t.Kind == IDENTIFIER
}

// IsWord reports whether t is any word-shaped token — a plain IDENTIFIER
// or a keyword-classified identifier spelling (KwIf, KwElse, ...).
// Directive names and macro/parameter names are spelled as ordinary
// identifiers (spec §3: "Keywords and directive names are recognized
// only by the identifier classifier"), so recognizing them must not
// reject a spelling just because the general scanner happened to
// reclassify it as a keyword Kind — e.g. "#if"/"#else" consume the
// literal identifiers "if"/"else", which the raw lexer's scanIdentifier
// tags KwIf/KwElse.
func (t Token) IsWord() bool {
	if t.Kind == IDENTIFIER {
		return true
	}
	_, ok := keywordKinds[t.Kind]
	return ok
}
