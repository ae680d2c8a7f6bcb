package commands

import (
	"github.com/spf13/cobra"

	"github.com/trialforge/supplyline/pkg/application/dto"
	"github.com/trialforge/supplyline/pkg/interfaces/cli/output"
)

func newForecastCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Run the demand forecast",
	}
	cmd.AddCommand(newForecastRunCommand())
	return cmd
}

func newForecastRunCommand() *cobra.Command {
	var version int
	var detail bool

	cmd := &cobra.Command{
		Use:   "run <scenario-id>",
		Short: "Forecast enrollment, visits and demand for a version",
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
			run, err := a.forecasts.Run(cmd.Context(), scenarioID, version)
			if err != nil {
				return err
			}
			return output.Run(cmd.OutOrStdout(), dto.NewRunResult(run, detail), jsonOutput())
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "version number (0 = latest)")
	cmd.Flags().BoolVar(&detail, "detail", false, "include full per-bucket series")
	return cmd
}
