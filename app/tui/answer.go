package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lexcodex/parley/debate"
)

// Answerer walks the user through the agents' clarification questions in the
// terminal, one question at a time. Skipped questions stay unanswered; the
// debate carries on without them.
type Answerer struct{}

// NewAnswerer builds the interactive answerer.
func NewAnswerer() *Answerer {
	return &Answerer{}
}

// Answer runs the prompt loop and returns the question set with the user's
// answers filled in.
func (a *Answerer) Answer(ctx context.Context, problem string, questions debate.ClarificationSet) (debate.ClarificationSet, error) {
	items := flatten(questions)
	if len(items) == 0 {
		return questions, nil
	}
	program := tea.NewProgram(newAnswerModel(problem, items), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		return nil, fmt.Errorf("clarification prompt: %w", err)
	}
	m, ok := final.(answerModel)
	if !ok {
		return nil, fmt.Errorf("clarification prompt: unexpected final model %T", final)
	}
	return rebuild(m.items), nil
}

type questionItem struct {
	agentID  string
	question string
	answer   string
	answered bool
}

func flatten(set debate.ClarificationSet) []questionItem {
	agentIDs := make([]string, 0, len(set))
	for agentID := range set {
		agentIDs = append(agentIDs, agentID)
	}
	sort.Strings(agentIDs)

	var items []questionItem
	for _, agentID := range agentIDs {
		for _, q := range set[agentID] {
			items = append(items, questionItem{agentID: agentID, question: q.Question, answer: q.Answer, answered: q.Answered})
		}
	}
	return items
}

func rebuild(items []questionItem) debate.ClarificationSet {
	set := debate.ClarificationSet{}
	for _, item := range items {
		set[item.agentID] = append(set[item.agentID], debate.ClarificationQuestion{
			Question: item.question,
			Answer:   item.answer,
			Answered: item.answered,
		})
	}
	return set
}

type answerModel struct {
	problem string
	items   []questionItem
	index   int
	input   textinput.Model
	done    bool
}

func newAnswerModel(problem string, items []questionItem) answerModel {
	input := textinput.New()
	input.Placeholder = "answer (enter to submit, tab to skip)"
	input.CharLimit = 500
	input.Width = 72
	input.Focus()
	return answerModel{problem: problem, items: items, input: input}
}

func (m answerModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m answerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.done {
		return m, tea.Quit
	}
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.done = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit(strings.TrimSpace(m.input.Value())).maybeQuit()
		case tea.KeyTab:
			return m.submit("").maybeQuit()
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit records the current answer (blank means skip) and advances.
func (m answerModel) submit(answer string) answerModel {
	if answer != "" {
		m.items[m.index].answer = answer
		m.items[m.index].answered = true
	}
	m.input.SetValue("")
	m.index++
	if m.index >= len(m.items) {
		m.done = true
	}
	return m
}

func (m answerModel) maybeQuit() (tea.Model, tea.Cmd) {
	if m.done {
		return m, tea.Quit
	}
	return m, nil
}

func (m answerModel) View() string {
	if m.done {
		return ""
	}
	item := m.items[m.index]
	var sb strings.Builder
	sb.WriteString(headerStyle.Render("Clarification questions") + "\n")
	sb.WriteString(dimStyle.Render(fmt.Sprintf("Problem: %s", m.problem)) + "\n\n")
	sb.WriteString(progressStyle.Render(fmt.Sprintf("Question %d of %d", m.index+1, len(m.items))) + "\n")
	sb.WriteString(agentStyle.Render(fmt.Sprintf("asked by %s", item.agentID)) + "\n\n")
	sb.WriteString(questionStyle.Render(item.question) + "\n\n")
	sb.WriteString(m.input.View() + "\n\n")
	sb.WriteString(dimStyle.Render("enter: submit · tab: skip · esc: finish early"))
	return sb.String()
}
