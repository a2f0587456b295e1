package domain

import (
	"testing"

	"sigcore/internal/testutil"
)

func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.Internal, "pkg/domain is the shared vocabulary")
	testutil.AssertNoTransitiveDependency(t, "sigcore/pkg/domain", testutil.Internal, "pkg/domain is the shared vocabulary")
}
