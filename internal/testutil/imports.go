// Package testutil holds test helpers that guard the package layering.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// Internal matches any import path under an internal/ directory.
func Internal(path string) bool {
	return strings.Contains(path, "/internal/") || strings.HasSuffix(path, "/internal")
}

// Prefix matches prefix itself and every package below it.
func Prefix(prefix string) func(string) bool {
	return func(path string) bool {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
}

// AssertNoDirectImports fails when a non-test file in dir imports a path
// matched by forbidden.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	if len(viols) > 0 {
		t.Fatalf("forbidden imports (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}

// AssertNoTransitiveDependency loads pattern with its dependencies and fails
// when any package it reaches is matched by forbidden.
func AssertNoTransitiveDependency(t testing.TB, pattern string, forbidden func(string) bool, reason string) {
	t.Helper()
	viols, err := transitiveViolations(pattern, forbidden)
	if err != nil {
		t.Fatalf("load %s: %v", pattern, err)
	}
	if len(viols) > 0 {
		t.Fatalf("forbidden dependencies of %s (%s):\n%s", pattern, reason, strings.Join(viols, "\n"))
	}
}

func directImportViolations(dir string, forbidden func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ImportsOnly)
		if err != nil {
			return nil, err
		}
		for _, imp := range file.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				return nil, err
			}
			if forbidden(path) {
				viols = append(viols, path+" (in "+name+")")
			}
		}
	}
	return viols, nil
}

func transitiveViolations(pattern string, forbidden func(string) bool) ([]string, error) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports | packages.NeedDeps}
	roots, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	packages.Visit(roots, nil, func(p *packages.Package) {
		if forbidden(p.PkgPath) {
			seen[p.PkgPath] = struct{}{}
		}
	})
	viols := make([]string, 0, len(seen))
	for path := range seen {
		viols = append(viols, path)
	}
	sort.Strings(viols)
	return viols, nil
}
