package commands

import (
	"github.com/spf13/cobra"

	"github.com/trialforge/supplyline/pkg/interfaces/cli/output"
)

func newScenarioCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Manage trial scenarios",
	}
	cmd.AddCommand(newScenarioCreateCommand(), newScenarioListCommand())
	return cmd
}

func newScenarioCreateCommand() *cobra.Command {
	var trialCode, name, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a scenario identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			scenario, err := a.store.CreateScenario(cmd.Context(), trialCode, name, description)
			if err != nil {
				return err
			}
			return output.Scenario(cmd.OutOrStdout(), scenario, jsonOutput())
		},
	}
	cmd.Flags().StringVar(&trialCode, "trial", "", "trial code (required)")
	cmd.Flags().StringVar(&name, "name", "", "scenario name (required)")
	cmd.Flags().StringVar(&description, "description", "", "free-form description")
	_ = cmd.MarkFlagRequired("trial")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newScenarioListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			scenarios, err := a.store.ListScenarios(cmd.Context())
			if err != nil {
				return err
			}
			return output.Scenarios(cmd.OutOrStdout(), scenarios, jsonOutput())
		},
	}
}
