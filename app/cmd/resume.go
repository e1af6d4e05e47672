package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lexcodex/parley/app/tui"
	"github.com/lexcodex/parley/orchestrator"
)

func newResumeCmd() *cobra.Command {
	var noInput bool

	cmd := &cobra.Command{
		Use:   "resume <debate-id>",
		Short: "Resume a suspended debate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// only the state-machine lifecycle can pick a debate back up
			globalCfg.Debate.Implementation = orchestrator.ImplMachine

			var answerer orchestrator.Answerer
			if !noInput {
				answerer = tui.NewAnswerer()
			}
			rt, err := buildRuntime(answerer)
			if err != nil {
				return err
			}
			defer rt.Close()

			st, err := rt.orch.Resume(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printOutcome(cmd, st)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noInput, "no-input", false, "Never prompt interactively")
	return cmd
}
