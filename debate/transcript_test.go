package debate

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptRecordAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.db")
	tr, err := NewTranscript(path)
	require.NoError(t, err)
	defer tr.Close()

	now := time.Now().UTC()
	require.NoError(t, tr.Record("d1", 1, Contribution{
		AgentID:   "a1",
		AgentRole: "architect",
		Type:      ContributionProposal,
		Content:   "proposal body",
		CreatedAt: now,
	}))
	require.NoError(t, tr.Record("d1", 1, Contribution{
		AgentID:       "a2",
		AgentRole:     "skeptic",
		Type:          ContributionCritique,
		TargetAgentID: "a1",
		Content:       "critique body",
		CreatedAt:     now,
	}))
	require.NoError(t, tr.Record("d2", 1, Contribution{
		AgentID:   "a1",
		AgentRole: "architect",
		Type:      ContributionProposal,
		Content:   "other debate",
		CreatedAt: now,
	}))

	rows, err := tr.ByDebate("d1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a1", rows[0].AgentID)
	assert.Equal(t, ContributionProposal, rows[0].Type)
	assert.Equal(t, len("proposal body"), rows[0].Chars)
	assert.Equal(t, ContributionCritique, rows[1].Type)

	byAgent, err := tr.ByAgent("a1")
	require.NoError(t, err)
	assert.Len(t, byAgent, 2)
}
