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

package loader

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	full := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return full
}

func TestQuoteFormPrefersIncludingDirectory(t *testing.T) {
	base := t.TempDir()
	sysRoot := filepath.Join(base, "sys")
	writeFile(t, base, "a.h", "from including dir\n")
	writeFile(t, sysRoot, "a.h", "from system root\n")

	fs, err := NewFileSystem(nil, []string{sysRoot})
	if err != nil {
		t.Fatal(err)
	}
	name, data, err := fs.Load("a.h", false, base)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "from including dir\n" {
		t.Fatalf("got %q, want the including-directory copy (name=%s)", data, name)
	}
}

func TestQuoteFormFallsBackToQuoteRoots(t *testing.T) {
	base := t.TempDir()
	quoteRoot := filepath.Join(base, "include")
	writeFile(t, quoteRoot, "b.h", "quote root copy\n")

	fs, err := NewFileSystem([]string{quoteRoot}, nil)
	if err != nil {
		t.Fatal(err)
	}
	// fromDir has no b.h, so resolution should fall through to QuoteRoots.
	_, data, err := fs.Load("b.h", false, base)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "quote root copy\n" {
		t.Fatalf("got %q", data)
	}
}

func TestAngleFormNeverConsultsIncludingDirectory(t *testing.T) {
	base := t.TempDir()
	sysRoot := filepath.Join(base, "sys")
	writeFile(t, base, "c.h", "including dir copy, must not be used for <c.h>\n")
	writeFile(t, sysRoot, "c.h", "system root copy\n")

	fs, err := NewFileSystem(nil, []string{sysRoot})
	if err != nil {
		t.Fatal(err)
	}
	_, data, err := fs.Load("c.h", true, base)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "system root copy\n" {
		t.Fatalf("angle-form include resolved to %q, want the system root copy", data)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	fs, err := NewFileSystem(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := fs.Load("does-not-exist.h", false, t.TempDir()); err == nil {
		t.Fatal("expected an error for a file that exists in no search root")
	}
}

func TestNewFileSystemExpandsGlobRoots(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "vendor", "one", "include"), "x.h", "one\n")
	writeFile(t, filepath.Join(base, "vendor", "two", "include"), "x.h", "two\n")

	pattern := filepath.Join(base, "vendor", "*", "include")
	fs, err := NewFileSystem(nil, []string{pattern})
	if err != nil {
		t.Fatal(err)
	}
	if len(fs.SystemRoots) < 2 {
		t.Fatalf("expected the glob pattern to expand to at least 2 roots, got %v", fs.SystemRoots)
	}
	if _, _, err := fs.Load("x.h", true, ""); err != nil {
		t.Fatalf("expected x.h to resolve via one of the expanded glob roots: %v", err)
	}
}

func TestNewFileSystemKeepsNonGlobRootVerbatim(t *testing.T) {
	fs, err := NewFileSystem(nil, []string{"plain/include"})
	if err != nil {
		t.Fatal(err)
	}
	if len(fs.SystemRoots) != 1 || fs.SystemRoots[0] != "plain/include" {
		t.Fatalf("got %v, want [\"plain/include\"] unchanged", fs.SystemRoots)
	}
}
