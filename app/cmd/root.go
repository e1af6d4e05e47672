package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lexcodex/parley/agents"
	"github.com/lexcodex/parley/llm"
)

var (
	cfgFile   string
	workspace string

	globalCfg *agents.GlobalConfig
)

// Execute is the entry point for the CLI. Missing credentials are a
// configuration mistake, not a runtime failure, and exit with their own code
// so wrappers can tell the two apart.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, llm.ErrMissingAPIKey) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// NewRootCmd wires the cobra tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "parley",
		Short:         "Multi-agent debate orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if workspace == "" {
				if wd, err := os.Getwd(); err == nil {
					workspace = wd
				} else {
					return err
				}
			}
			if cfgFile == "" {
				cfgFile = agents.DefaultConfigPath(workspace)
			}
			cfg, err := agents.LoadGlobalConfig(cfgFile, workspace)
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			globalCfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&workspace, "workspace", "", "Workspace directory")
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to parley config file")

	root.AddCommand(
		newRunCmd(),
		newResumeCmd(),
		newDebatesCmd(),
		newConfigCmd(),
	)
	return root
}
