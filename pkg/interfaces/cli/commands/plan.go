package commands

import (
	"github.com/spf13/cobra"

	"github.com/trialforge/supplyline/pkg/application/dto"
	"github.com/trialforge/supplyline/pkg/interfaces/cli/output"
)

func newPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate supply plans",
	}
	cmd.AddCommand(newPlanGenerateCommand())
	return cmd
}

func newPlanGenerateCommand() *cobra.Command {
	var version int
	var detail bool

	cmd := &cobra.Command{
		Use:   "generate <scenario-id>",
		Short: "Project inventory and recommend shipments for a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarioID, err := parseScenarioID(args[0])
			if err != nil {
				return err
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			plan, run, err := a.planning.Generate(cmd.Context(), scenarioID, version)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return output.PlanJSON(cmd.OutOrStdout(), dto.NewPlanResult(plan, run, detail))
			}
			return output.Plan(cmd.OutOrStdout(), plan)
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "version number (0 = latest)")
	cmd.Flags().BoolVar(&detail, "detail", false, "include full projected curves in JSON output")
	return cmd
}
