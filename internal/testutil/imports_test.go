package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPredicates(t *testing.T) {
	if !Internal("sigcore/internal/core") || Internal("sigcore/pkg/domain") {
		t.Fatalf("Internal predicate misclassified")
	}
	infra := Prefix("sigcore/internal/infra")
	if !infra("sigcore/internal/infra") || !infra("sigcore/internal/infra/blob/s3") || infra("sigcore/internal/infrastructure") {
		t.Fatalf("Prefix predicate misclassified")
	}
}

func TestDirectImportViolations(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("a.go", "package a\n\nimport (\n\t\"fmt\"\n\t\"sigcore/internal/core\"\n)\n\nvar _ = fmt.Sprint\nvar _ core.Option\n")
	write("a_test.go", "package a\n\nimport _ \"sigcore/internal/engine\"\n")
	write("notes.txt", "import \"sigcore/internal/x\"")

	viols, err := directImportViolations(dir, Internal)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || !strings.HasPrefix(viols[0], "sigcore/internal/core (in a.go)") {
		t.Fatalf("unexpected violations %v", viols)
	}
	if _, err := directImportViolations(filepath.Join(dir, "missing"), Internal); err == nil {
		t.Fatalf("expected an error for a missing dir")
	}
}

func TestTransitiveGuardOnThisPackage(t *testing.T) {
	AssertNoTransitiveDependency(t, "sigcore/internal/testutil", Prefix("sigcore/internal/core"), "testutil stays a leaf")
}
