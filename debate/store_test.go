package debate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	mgr, err := NewManager(dir)
	require.NoError(t, err)
	return mgr, dir
}

func TestCreateDebateInitialDocument(t *testing.T) {
	mgr, _ := newTestManager(t)
	state, err := mgr.CreateDebate("Design a cache")
	require.NoError(t, err)
	assert.NotEmpty(t, state.ID)
	assert.Equal(t, StatusRunning, state.Status)
	assert.Equal(t, "Design a cache", state.Problem)
	assert.Empty(t, state.Rounds)

	loaded, err := mgr.Load(state.ID)
	require.NoError(t, err)
	assert.Equal(t, state.ID, loaded.ID)
}

func TestCreateDebateRejectsBlankProblem(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.CreateDebate("   ")
	require.Error(t, err)
}

func TestLoadUnknownDebate(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, err := mgr.Load("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMutationsRequireActiveRound(t *testing.T) {
	mgr, _ := newTestManager(t)
	state, err := mgr.CreateDebate("Design a cache")
	require.NoError(t, err)

	err = mgr.AddContribution(state.ID, Contribution{
		AgentID: "a1",
		Type:    ContributionProposal,
		Content: "use an LRU",
	})
	assert.ErrorIs(t, err, ErrNoActiveRound)

	err = mgr.AddSummary(state.ID, Summary{AgentID: "a1", Text: "summary"})
	assert.ErrorIs(t, err, ErrNoActiveRound)
}

func TestBeginRoundNumbersSequentially(t *testing.T) {
	mgr, _ := newTestManager(t)
	state, err := mgr.CreateDebate("Design a cache")
	require.NoError(t, err)

	first, err := mgr.BeginRound(state.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := mgr.BeginRound(state.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, second)

	loaded, err := mgr.Load(state.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Rounds, 2)
	assert.Equal(t, 1, loaded.Rounds[0].Number)
	assert.Equal(t, 2, loaded.Rounds[1].Number)
}

func TestPersistedStateRoundTripsAcrossManagers(t *testing.T) {
	mgr, dir := newTestManager(t)
	state, err := mgr.CreateDebate("Design a cache")
	require.NoError(t, err)
	_, err = mgr.BeginRound(state.ID)
	require.NoError(t, err)

	require.NoError(t, mgr.AddContribution(state.ID, Contribution{
		AgentID:   "a1",
		AgentRole: "architect",
		Type:      ContributionProposal,
		Content:   "layered cache with write-through",
	}))
	require.NoError(t, mgr.AddContribution(state.ID, Contribution{
		AgentID:       "a2",
		AgentRole:     "skeptic",
		Type:          ContributionCritique,
		TargetAgentID: "a1",
		Content:       "write-through doubles latency",
	}))
	require.NoError(t, mgr.AddSummary(state.ID, Summary{
		AgentID:     "a1",
		Text:        "prefers layered caching",
		BeforeChars: 120,
		AfterChars:  23,
		Method:      "llm",
	}))

	// A fresh manager over the same directory must observe everything.
	fresh, err := NewManager(dir)
	require.NoError(t, err)
	loaded, err := fresh.Load(state.ID)
	require.NoError(t, err)

	require.Len(t, loaded.Rounds, 1)
	round := loaded.Rounds[0]
	require.Len(t, round.Contributions, 2)
	assert.Equal(t, "layered cache with write-through", round.Contributions[0].Content)
	assert.Equal(t, "a1", round.Contributions[1].TargetAgentID)
	require.Contains(t, round.Summaries, "a1")
	assert.Equal(t, "prefers layered caching", round.Summaries["a1"].Text)
	assert.Equal(t, 120, round.Summaries["a1"].BeforeChars)
}

func TestAddSummaryOverwrites(t *testing.T) {
	mgr, _ := newTestManager(t)
	state, err := mgr.CreateDebate("Design a cache")
	require.NoError(t, err)
	_, err = mgr.BeginRound(state.ID)
	require.NoError(t, err)

	require.NoError(t, mgr.AddSummary(state.ID, Summary{AgentID: "a1", Text: "first"}))
	require.NoError(t, mgr.AddSummary(state.ID, Summary{AgentID: "a1", Text: "second"}))

	loaded, err := mgr.Load(state.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Rounds[0].Summaries, 1)
	assert.Equal(t, "second", loaded.Rounds[0].Summaries["a1"].Text)
}

func TestTerminalStateRejectsStructuralMutation(t *testing.T) {
	mgr, _ := newTestManager(t)
	state, err := mgr.CreateDebate("Design a cache")
	require.NoError(t, err)
	require.NoError(t, mgr.SetStatus(state.ID, StatusCompleted))

	_, err = mgr.BeginRound(state.ID)
	assert.ErrorIs(t, err, ErrTerminal)

	// Feedback is the one post-completion mutation.
	require.NoError(t, mgr.SetUserFeedback(state.ID, 4))
	loaded, err := mgr.Load(state.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.UserFeedback)
	assert.Equal(t, 4, *loaded.UserFeedback)
}

func TestSuspensionClearedOnTerminalStatus(t *testing.T) {
	mgr, _ := newTestManager(t)
	state, err := mgr.CreateDebate("Design a cache")
	require.NoError(t, err)

	require.NoError(t, mgr.SetSuspension(state.ID, &Suspension{Phase: "clarify", Round: 1}))
	require.NoError(t, mgr.SetStatus(state.ID, StatusSuspended))

	loaded, err := mgr.Load(state.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Suspension)
	assert.Equal(t, "clarify", loaded.Suspension.Phase)

	require.NoError(t, mgr.SetStatus(state.ID, StatusCompleted))
	loaded, err = mgr.Load(state.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.Suspension)
}

func TestClarificationsPersist(t *testing.T) {
	mgr, _ := newTestManager(t)
	state, err := mgr.CreateDebate("Design a cache")
	require.NoError(t, err)

	set := ClarificationSet{
		"a1": {
			{Question: "What is the expected read/write ratio?", Answer: "90/10", Answered: true},
			{Question: "Is persistence required?"},
		},
	}
	require.NoError(t, mgr.SetClarifications(state.ID, set))

	loaded, err := mgr.Load(state.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Clarifications["a1"], 2)
	assert.Equal(t, 1, loaded.Clarifications.AnsweredCount())
}

func TestListReturnsSortedIDs(t *testing.T) {
	mgr, _ := newTestManager(t)
	a, err := mgr.CreateDebate("first")
	require.NoError(t, err)
	b, err := mgr.CreateDebate("second")
	require.NoError(t, err)

	ids, err := mgr.List()
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, a.ID)
	assert.Contains(t, ids, b.ID)
}
