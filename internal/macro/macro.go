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

// Package macro implements the macro table (spec §4.6, component C7):
// a name -> definition store with #undef tombstones, grounded on
// preprocessorImpl.go's map[string]macroDefinition but split into its
// own package since both the directive parser and the expansion engine
// need it.
package macro

import "github.com/cparanoid/cpreproc/internal/token"

// Kind distinguishes object-like from function-like macros.
type Kind int

const (
	Object Kind = iota
	Function
)

// Macro is one #define entry (spec §3).
type Macro struct {
	Name         string
	Kind         Kind
	Parameters   []string // ordered parameter names, excluding the variadic one
	VariadicName string   // non-empty ("__VA_ARGS__") if the macro is variadic
	Replacement  []token.Token
	Disabled     bool // set by #undef; kept as a tombstone, not deleted
}

// Variadic reports whether m accepts a trailing ... argument.
func (m *Macro) Variadic() bool { return m.VariadicName != "" }

// Argument is one parsed macro-call argument (spec §3).
type Argument struct {
	ParameterName string
	Tokens        []token.Token // raw, unexpanded
	IsVariadic    bool
	OmitComma     bool // true when __VA_ARGS__ was empty, for `, ## __VA_ARGS__`
}

// Table is the macro name -> definition store (spec §4.6).
type Table struct {
	entries map[string]*Macro
}

// NewTable returns an empty macro table.
func NewTable() *Table {
	return &Table{entries: make(map[string]*Macro)}
}

// Define installs m, overwriting (not erroring on) any previous
// definition of the same name — redefinition detection with a textual-
// difference check is the directive parser's job, not the table's.
func (t *Table) Define(m *Macro) {
	t.entries[m.Name] = m
}

// Undef disables name's macro if present. A no-op for an unknown name.
// The entry is kept as a tombstone (Disabled=true) rather than removed,
// so later diagnostics can still say "previously defined here".
func (t *Table) Undef(name string) {
	if m, ok := t.entries[name]; ok {
		m.Disabled = true
	}
}

// Lookup returns the enabled macro named name, if any.
func (t *Table) Lookup(name string) (*Macro, bool) {
	m, ok := t.entries[name]
	if !ok || m.Disabled {
		return nil, false
	}
	return m, true
}

// IsDefined reports whether name currently has an enabled definition.
func (t *Table) IsDefined(name string) bool {
	_, ok := t.Lookup(name)
	return ok
}

// Tombstone returns the entry for name even if it has been #undef'd, for
// diagnostics that want to say where a macro used to be defined.
func (t *Table) Tombstone(name string) (*Macro, bool) {
	m, ok := t.entries[name]
	return m, ok
}
