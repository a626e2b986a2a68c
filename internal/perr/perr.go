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

// Package perr defines the preprocessor's error taxonomy (spec §7) as a
// set of sentinel Kind constants, in the style of core/fault.Const: a
// named string type that satisfies the error interface on its own, so
// callers can branch on identity (errors.Cause(err) == perr.UnexpectedByte)
// without a type switch.
package perr

import "github.com/pkg/errors"

// Kind is a sentinel error identifying one taxonomy entry from spec §7.
type Kind string

// Error implements error for Kind, returning its name.
func (k Kind) Error() string { return string(k) }

// Lexical errors.
const (
	UnterminatedComment Kind = "unterminated comment"
	UnterminatedString  Kind = "unterminated string literal"
	UnterminatedChar    Kind = "unterminated character literal"
	UnexpectedByte      Kind = "unexpected byte"
)

// Directive errors.
const (
	UnknownDirective        Kind = "unknown directive"
	MalformedDefine         Kind = "malformed #define"
	DuplicateParameter      Kind = "duplicate macro parameter"
	VaArgsNotLast           Kind = "__VA_ARGS__ not last parameter"
	IncludeDepthExceeded    Kind = "include depth exceeded"
	MissingEndif            Kind = "missing #endif"
	UnmatchedElifElseEndif  Kind = "unmatched #elif/#else/#endif"
)

// Expansion errors.
const (
	ArgCountMismatch           Kind = "macro argument count mismatch"
	UnterminatedArgumentList   Kind = "unterminated macro argument list"
	StringizeRequiresParameter Kind = "# requires a macro parameter"
	InvalidPaste               Kind = "## did not produce a single token"
	UserError                  Kind = "#error"
)

// I/O errors, surfaced from the source loader collaborator.
const (
	FileNotFound Kind = "file not found"
	ReadFailed   Kind = "read failed"
)

// Located is a Kind wrapped with the source Location that caused it, and
// a causal chain through pkg/errors back to whatever lower-level error
// (if any) triggered it. Locations always point to the invocation site
// in an original source file, never inside a macro replacement — spec §7
// requires that propagation discipline.
type Located struct {
	Kind    Kind
	Loc     stringer
	Message string
	cause   error
}

// stringer avoids importing fmt just for the Stringer name; any type
// with String() string (source.Location satisfies it) works.
type stringer interface{ String() string }

func (e *Located) Error() string {
	if e.Loc != nil {
		return e.Loc.String() + ": " + e.Message
	}
	return e.Message
}

// Cause lets errors.Cause climb through a Located to the sentinel Kind.
func (e *Located) Cause() error { return e.Kind }

// Unwrap supports errors.Is/As against both the sentinel Kind and any
// wrapped lower-level cause.
func (e *Located) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return e.Kind
}

// At constructs a Located error for kind at loc with a formatted message.
func At(kind Kind, loc stringer, format string, args ...interface{}) error {
	return &Located{Kind: kind, Loc: loc, Message: errors.Errorf(format, args...).Error()}
}

// Wrap attaches loc and kind to a lower-level cause (e.g. an os.Open
// failure surfaced by the source loader), keeping the original error
// reachable via Unwrap/errors.Cause the way core/app/run.go unwraps to
// its Restart sentinel.
func Wrap(cause error, kind Kind, loc stringer, format string, args ...interface{}) error {
	return &Located{
		Kind:    kind,
		Loc:     loc,
		Message: errors.Wrapf(cause, format, args...).Error(),
		cause:   cause,
	}
}
