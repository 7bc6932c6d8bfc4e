package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInternalImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"anomalycore/internal/core", true},
		{"example.com/mod/internal/x", true},
		{"anomalycore/pkg/domain", false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.want {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestPersistenceImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"anomalycore/internal/infra/persistence/sqlite", true},
		{"anomalycore/internal/infra/persistence/memory", true},
		{"anomalycore/internal/core", false},
	}
	for _, c := range cases {
		if got := PersistenceImportForbidden(c.in); got != c.want {
			t.Fatalf("PersistenceImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestThirdPartyImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"github.com/google/uuid", true},
		{"gopkg.in/yaml.v3", true},
		{"anomalycore/pkg/domain", false},
		{"encoding/json", false},
		{"fmt", false},
	}
	for _, c := range cases {
		if got := ThirdPartyImportForbidden(c.in); got != c.want {
			t.Fatalf("ThirdPartyImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

// TestAssertNoDirectImports exercises the parser path against a tiny temp package.
func TestAssertNoDirectImports(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	AssertNoDirectImports(t, dir, func(string) bool { return false }, "none")
}

func TestDirectImportViolationsReportsOffender(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport _ \"anomalycore/internal/infra/persistence/sqlite\"\n")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	viols, err := directImportViolations(dir, PersistenceImportForbidden)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(viols) != 1 {
		t.Fatalf("violations = %v, want exactly one", viols)
	}
}

func TestTransitiveViolationsWithStubbedList(t *testing.T) {
	orig := goListDeps
	defer func() { goListDeps = orig }()
	goListDeps = func(pattern string) ([]byte, error) {
		return []byte("fmt\nanomalycore/pkg/domain\nanomalycore/internal/infra/persistence/memory\n"), nil
	}
	viols, _, err := transitiveViolations("./...", PersistenceImportForbidden)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(viols) != 1 || viols[0] != "anomalycore/internal/infra/persistence/memory" {
		t.Fatalf("violations = %v", viols)
	}
}
