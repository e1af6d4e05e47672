package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexcodex/parley/app/tui"
	"github.com/lexcodex/parley/debate"
	"github.com/lexcodex/parley/orchestrator"
)

func newRunCmd() *cobra.Command {
	var rounds int
	var impl string
	var clarify bool
	var noInput bool

	cmd := &cobra.Command{
		Use:   "run [problem]",
		Short: "Run a debate over a design problem",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			problem := strings.TrimSpace(strings.Join(args, " "))
			if problem == "" {
				return fmt.Errorf("problem statement required")
			}

			if cmd.Flags().Changed("rounds") {
				globalCfg.Debate.Rounds = rounds
			}
			if cmd.Flags().Changed("impl") {
				globalCfg.Debate.Implementation = impl
			}
			if cmd.Flags().Changed("clarify") {
				globalCfg.Debate.ClarificationEnabled = clarify
			}

			var answerer orchestrator.Answerer
			if globalCfg.Debate.ClarificationEnabled && !noInput {
				answerer = tui.NewAnswerer()
			}

			rt, err := buildRuntime(answerer)
			if err != nil {
				return err
			}
			defer rt.Close()

			st, err := rt.orch.Run(cmd.Context(), problem)
			if err != nil {
				return err
			}
			printOutcome(cmd, st)
			return nil
		},
	}
	cmd.Flags().IntVar(&rounds, "rounds", 2, "Number of debate rounds")
	cmd.Flags().StringVar(&impl, "impl", "", "Orchestrator implementation (classic|machine)")
	cmd.Flags().BoolVar(&clarify, "clarify", false, "Gather clarifying questions before round one")
	cmd.Flags().BoolVar(&noInput, "no-input", false, "Never prompt interactively; suspend instead")
	return cmd
}

func printOutcome(cmd *cobra.Command, st *debate.State) {
	switch st.Status {
	case debate.StatusSuspended:
		cmd.Printf("Debate %s suspended: %d clarification questions await answers.\n", st.ID, pendingQuestions(st))
		cmd.Printf("Answer them with: parley resume %s\n", st.ID)
	case debate.StatusCompleted:
		cmd.Printf("Debate %s completed after %d round(s).\n\n", st.ID, len(st.Rounds))
		if st.Synthesis != nil {
			cmd.Println(st.Synthesis.Recommendation)
		}
	default:
		cmd.Printf("Debate %s finished with status %s.\n", st.ID, st.Status)
	}
}

func pendingQuestions(st *debate.State) int {
	count := 0
	for _, questions := range st.Clarifications {
		for _, q := range questions {
			if !q.Answered {
				count++
			}
		}
	}
	return count
}
