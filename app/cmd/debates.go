package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lexcodex/parley/debate"
)

func newDebatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debates",
		Short: "Inspect stored debates",
	}
	cmd.AddCommand(newDebatesListCmd(), newDebatesShowCmd(), newDebatesFeedbackCmd())
	return cmd
}

func openStore() (*debate.Manager, error) {
	if globalCfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return debate.NewManager(globalCfg.StateDir)
}

func newDebatesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored debates",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			ids, err := store.List()
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				cmd.Println("No debates stored.")
				return nil
			}
			for _, id := range ids {
				st, err := store.Load(id)
				if err != nil {
					cmd.Printf("%s  (unreadable: %v)\n", id, err)
					continue
				}
				cmd.Printf("%s  %-10s  rounds=%d  %s\n", st.ID, st.Status, len(st.Rounds), firstLine(st.Problem))
			}
			return nil
		},
	}
}

func newDebatesShowCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "show <debate-id>",
		Short: "Show a debate's rounds and synthesis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			st, err := store.Load(args[0])
			if err != nil {
				return err
			}
			cmd.Printf("Debate:  %s\nStatus:  %s\nProblem: %s\n", st.ID, st.Status, st.Problem)
			if st.Clarifications.AnsweredCount() > 0 {
				cmd.Printf("Clarifications answered: %d\n", st.Clarifications.AnsweredCount())
			}
			for _, round := range st.Rounds {
				cmd.Printf("\nRound %d (%d contributions)\n", round.Number, len(round.Contributions))
				for _, c := range round.Contributions {
					header := fmt.Sprintf("  [%s] %s", c.Type, c.AgentID)
					if c.TargetAgentID != "" {
						header += " -> " + c.TargetAgentID
					}
					cmd.Println(header)
					if full {
						cmd.Println(indent(c.Content, "    "))
					}
				}
				for agentID, summary := range round.Summaries {
					cmd.Printf("  [summary] %s (%d -> %d chars)\n", agentID, summary.BeforeChars, summary.AfterChars)
				}
			}
			if st.Synthesis != nil {
				cmd.Printf("\nSynthesis (%s):\n%s\n", st.Synthesis.Method, st.Synthesis.Recommendation)
			}
			if st.UserFeedback != nil {
				cmd.Printf("\nUser feedback: %d\n", *st.UserFeedback)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Print full contribution text")
	return cmd
}

func newDebatesFeedbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feedback <debate-id> <score>",
		Short: "Record an integer feedback score for a finished debate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("score must be an integer: %w", err)
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.SetUserFeedback(args[0], score); err != nil {
				return err
			}
			cmd.Printf("Recorded feedback %d for debate %s.\n", score, args[0])
			return nil
		},
	}
}
