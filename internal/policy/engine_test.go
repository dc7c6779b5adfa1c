package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	decision, _, err := engine.Evaluate(ctx, Input{ToolName: "CHECK_CUSTOMER", Args: []string{"85010112345"}})
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision)

	decision, _, err = engine.Evaluate(ctx, Input{ToolName: "CREATE_ORDER", Args: []string{"1", "2", "3"}})
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision)

	big := []string{"1"}
	for i := 0; i < 11; i++ {
		big = append(big, "5")
	}
	decision, reason, err := engine.Evaluate(ctx, Input{ToolName: "CREATE_ORDER", Args: big})
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, decision)
	assert.Equal(t, "too many products in one order", reason)
}

func TestStringDecision(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, `
package tool_policy

default decision = "allow"

decision = "block" {
	input.tool_name == "GET_CATALOG"
	input.session_id == "blocked"
}
`)
	require.NoError(t, err)

	decision, reason, err := engine.Evaluate(ctx, Input{ToolName: "GET_CATALOG", SessionID: "blocked"})
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, decision)
	assert.Empty(t, reason)

	decision, _, err = engine.Evaluate(ctx, Input{ToolName: "GET_CATALOG", SessionID: "other"})
	require.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision)
}

func TestNewEngineFromFile(t *testing.T) {
	ctx := context.Background()

	_, err := NewEngineFromFile(ctx, "")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "policy.rego")
	require.NoError(t, os.WriteFile(path, []byte("package tool_policy\n\ndefault decision = \"block\"\n"), 0o600))
	engine, err := NewEngineFromFile(ctx, path)
	require.NoError(t, err)

	decision, _, err := engine.Evaluate(ctx, Input{ToolName: "CHECK_INVOICES"})
	require.NoError(t, err)
	assert.Equal(t, DecisionBlock, decision)

	_, err = NewEngineFromFile(ctx, filepath.Join(t.TempDir(), "missing.rego"))
	assert.Error(t, err)

	_, err = NewEngine(ctx, "package tool_policy\n\ndecision = {")
	assert.Error(t, err)
}
