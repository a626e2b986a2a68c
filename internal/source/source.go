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

// Package source owns the set of files the preprocessor has read and the
// byte-range/line/column bookkeeping used to report diagnostics against
// them.
package source

import "fmt"

// File is an immutable buffer registered with a Registry. Index is a
// stable, dense identifier assigned at registration time; it is what a
// Location refers back to.
type File struct {
	Index int
	Name  string
	Bytes []byte
}

// Registry is an append-only map from file index to File. It is the only
// thing in the preprocessor that owns source bytes; everything else
// (lexers, frames, tokens) only ever holds a Location into it.
type Registry struct {
	files []*File
}

// NewRegistry returns an empty file registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a new file and returns it. The returned File.Index is
// stable for the lifetime of the Registry.
func (r *Registry) Add(name string, bytes []byte) *File {
	f := &File{Index: len(r.files), Name: name, Bytes: bytes}
	r.files = append(r.files, f)
	return f
}

// File returns the file registered under index, or nil if index is out
// of range.
func (r *Registry) File(index int) *File {
	if index < 0 || index >= len(r.files) {
		return nil
	}
	return r.files[index]
}

// Location is a purely informational pointer into a registered file,
// used only for diagnostics; it is never a position inside a macro
// replacement list.
type Location struct {
	FileIndex int
	Line      int
	Column    int
}

// String formats the location as "index:line:col", printing the raw
// FileIndex; use Format to resolve it to a file name.
func (l Location) String() string {
	return fmt.Sprintf("%d:%d:%d", l.FileIndex, l.Line, l.Column)
}

// Format resolves l against reg and renders "name:line:col".
func (l Location) Format(reg *Registry) string {
	name := fmt.Sprintf("<file %d>", l.FileIndex)
	if reg != nil {
		if f := reg.File(l.FileIndex); f != nil {
			name = f.Name
		}
	}
	return fmt.Sprintf("%s:%d:%d", name, l.Line, l.Column)
}

// Cursor tracks a line/column position while scanning a byte buffer. It
// advances on '\n' the way spec §3 requires: line increments, column
// resets to 1.
type Cursor struct {
	FileIndex int
	Line      int
	Column    int
}

// NewCursor returns a cursor positioned at the first byte of fileIndex.
func NewCursor(fileIndex int) Cursor {
	return Cursor{FileIndex: fileIndex, Line: 1, Column: 1}
}

// Loc returns the current position as a Location.
func (c Cursor) Loc() Location {
	return Location{FileIndex: c.FileIndex, Line: c.Line, Column: c.Column}
}

// Advance moves the cursor past a single byte b.
func (c *Cursor) Advance(b byte) {
	if b == '\n' {
		c.Line++
		c.Column = 1
	} else {
		c.Column++
	}
}
