package agents

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptsForRoleKnownAndUnknown(t *testing.T) {
	architect := PromptsForRole("architect")
	assert.Contains(t, architect.System("Ada"), "systems architect")

	generic := PromptsForRole("astronaut")
	assert.Contains(t, generic.System("Ada"), "senior engineer")
}

func TestPromptBuildersIncludeInputs(t *testing.T) {
	prompts := PromptsForRole("skeptic")

	propose := prompts.Propose("shard the db", "Q: scale?\nA: big", "prior work")
	assert.Contains(t, propose, "shard the db")
	assert.Contains(t, propose, "Q: scale?")
	assert.Contains(t, propose, "prior work")

	critique := prompts.Critique("shard the db", "Bob", "use one big server")
	assert.Contains(t, critique, "Bob")
	assert.Contains(t, critique, "use one big server")

	refine := prompts.Refine("shard the db", "my proposal", "too slow")
	assert.Contains(t, refine, "my proposal")
	assert.Contains(t, refine, "too slow")
}

func TestLoadRolePreambleBuiltIn(t *testing.T) {
	prompts, provenance, err := LoadRolePreamble("architect", "")
	require.NoError(t, err)
	assert.Equal(t, "built-in", provenance.Source)
	assert.Empty(t, provenance.Path)
	assert.Contains(t, prompts.System("Ada"), "systems architect")
}

func TestLoadRolePreambleFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "role.txt")
	require.NoError(t, os.WriteFile(path, []byte("You are a database specialist."), 0o644))

	prompts, provenance, err := LoadRolePreamble("architect", path)
	require.NoError(t, err)
	assert.Equal(t, "file", provenance.Source)
	assert.Equal(t, path, provenance.Path)
	assert.Contains(t, prompts.System("Ada"), "database specialist")
}

func TestLoadRolePreambleRejectsMissingOrEmptyFile(t *testing.T) {
	_, _, err := LoadRolePreamble("architect", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("   \n"), 0o644))
	_, _, err = LoadRolePreamble("architect", empty)
	require.Error(t, err)
}
