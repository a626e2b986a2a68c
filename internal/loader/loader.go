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

// Package loader implements the "source loader" external collaborator
// spec §1 and §6 describe: something that maps a logical #include path
// to a byte buffer. The preprocessor never touches the filesystem
// directly; it only holds a loader.Source.
package loader

import (
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

// Source resolves one #include operand to a registrable name and its
// bytes. angled distinguishes `<path>` from `"path"` (spec §4.7); fromDir
// is the directory of the including file, used for quote-form resolution.
type Source interface {
	Load(path string, angled bool, fromDir string) (name string, data []byte, err error)
}

// FileSystem is the default Source: quote-form includes are resolved
// relative to the including file's directory first, then QuoteRoots,
// then SystemRoots; angle-form includes are resolved only against
// SystemRoots. Both root lists are searched in order, first match wins — the same precedence
// `cc -I` and `cc -isystem` give.
type FileSystem struct {
	QuoteRoots  []string
	SystemRoots []string
}

// NewFileSystem builds a FileSystem, expanding every root in quoteRoots
// and systemRoots as a doublestar glob pattern against the working
// directory (grounded on gazelle_cc's use of doublestar.FilepathGlob to
// expand BUILD file glob attributes) — so a single `-Ivendor/**/include`
// installs every matching directory as a search root. A pattern that
// matches nothing, or that is not a glob at all (an ordinary directory
// name), is kept verbatim so plain `-Iinclude` still behaves exactly
// like it always has.
func NewFileSystem(quoteRoots, systemRoots []string) (*FileSystem, error) {
	q, err := expandRoots(quoteRoots)
	if err != nil {
		return nil, errors.Wrap(err, "expanding quote include roots")
	}
	s, err := expandRoots(systemRoots)
	if err != nil {
		return nil, errors.Wrap(err, "expanding system include roots")
	}
	return &FileSystem{QuoteRoots: q, SystemRoots: s}, nil
}

func expandRoots(patterns []string) ([]string, error) {
	var out []string
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			out = append(out, p)
			continue
		}
		matches, err := doublestar.FilepathGlob(p)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid include root pattern %q", p)
		}
		if len(matches) == 0 {
			out = append(out, p)
			continue
		}
		out = append(out, matches...)
	}
	return out, nil
}

// Load implements Source by reading path off disk, trying each candidate
// directory in order.
func (fs *FileSystem) Load(path string, angled bool, fromDir string) (string, []byte, error) {
	var dirs []string
	if !angled {
		if fromDir != "" {
			dirs = append(dirs, fromDir)
		}
		dirs = append(dirs, fs.QuoteRoots...)
	}
	dirs = append(dirs, fs.SystemRoots...)

	var firstErr error
	for _, dir := range dirs {
		full := filepath.Join(dir, path)
		data, err := os.ReadFile(full)
		if err == nil {
			return full, data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = os.ErrNotExist
	}
	return "", nil, errors.Wrapf(firstErr, "include file %q not found in any search root", path)
}
