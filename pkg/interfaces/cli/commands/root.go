package commands

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/trialforge/supplyline/pkg/application/services"
	"github.com/trialforge/supplyline/pkg/forecast"
	"github.com/trialforge/supplyline/pkg/infrastructure/events"
	"github.com/trialforge/supplyline/pkg/infrastructure/repositories/memory"
	"github.com/trialforge/supplyline/pkg/infrastructure/repositories/sqlite"
	"github.com/trialforge/supplyline/pkg/supplyplan"
	"github.com/trialforge/supplyline/pkg/versionstore"
)

// app bundles the wired services the subcommands share. It is built lazily
// on first use so flag parsing and help never touch the workspace.
type app struct {
	db        *sql.DB
	store     *versionstore.Store
	forecasts *services.ForecastService
	planning  *services.PlanningService
	log       *zap.Logger
}

var current *app

// NewRootCommand builds the supplyline command tree
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "supplyline",
		Short: "Clinical trial supply planning",
		Long: `supplyline versions trial scenarios, forecasts enrollment and drug
demand, and projects inventory to recommend replenishment shipments.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeApp()
		},
	}

	flags := root.PersistentFlags()
	flags.String("workspace", defaultWorkspace(), "directory holding the scenario database")
	flags.Bool("json", false, "emit JSON instead of tables")
	flags.Bool("verbose", false, "verbose logging")
	flags.Int("workers", 0, "forecast worker pool size (0 = number of CPUs)")
	flags.Int("vial-unit-cap", 0, "max units per vial-optimized dispense (0 = default)")

	viper.SetEnvPrefix("SUPPLYLINE")
	viper.AutomaticEnv()
	for _, name := range []string{"workspace", "json", "verbose", "workers", "vial-unit-cap"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		newScenarioCommand(),
		newVersionCommand(),
		newForecastCommand(),
		newPlanCommand(),
	)
	return root
}

func defaultWorkspace() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".supplyline"
	}
	return filepath.Join(home, ".supplyline")
}

func getApp() (*app, error) {
	if current != nil {
		return current, nil
	}

	log := zap.NewNop()
	if viper.GetBool("verbose") {
		var err error
		log, err = zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	db, err := sqlite.Open(filepath.Join(viper.GetString("workspace"), "supplyline.db"))
	if err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}

	eventStore := events.NewInMemoryEventStore(log)
	store := versionstore.NewStore(sqlite.NewScenarioRepository(db), eventStore, log)
	engine := forecast.NewEngineWithConfig(forecast.Config{
		VialUnitCap: viper.GetInt("vial-unit-cap"),
	}, log)

	forecasts, err := services.NewForecastService(
		store, engine, memory.NewRunRepository(), eventStore, viper.GetInt("workers"), log)
	if err != nil {
		db.Close()
		return nil, err
	}
	planner := supplyplan.NewPlanner(log)

	current = &app{
		db:        db,
		store:     store,
		forecasts: forecasts,
		planning:  services.NewPlanningService(store, forecasts, planner, eventStore, log),
		log:       log,
	}
	return current, nil
}

func closeApp() {
	if current == nil {
		return
	}
	current.forecasts.Close()
	current.db.Close()
	current = nil
}

func jsonOutput() bool {
	return viper.GetBool("json")
}
