package engine

import (
	"testing"

	"sigcore/internal/testutil"
)

func TestEngineStaysPure(t *testing.T) {
	for _, forbidden := range []string{"sigcore/internal/infra", "sigcore/internal/core", "sigcore/internal/blob", "go.uber.org/zap"} {
		testutil.AssertNoTransitiveDependency(t, "sigcore/internal/engine", testutil.Prefix(forbidden), "rules are evaluated without I/O")
	}
}
