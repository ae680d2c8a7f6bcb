package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/trialforge/supplyline/pkg/interfaces/cli/output"
	"github.com/trialforge/supplyline/pkg/versionstore"
)

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Manage immutable scenario versions",
	}
	cmd.AddCommand(
		newVersionCreateCommand(),
		newVersionListCommand(),
		newVersionForkCommand(),
		newVersionExportCommand(),
	)
	return cmd
}

func parseScenarioID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid scenario id %q: %w", arg, err)
	}
	return id, nil
}

func parseVersionNumber(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid version number %q", arg)
	}
	return n, nil
}

func newVersionCreateCommand() *cobra.Command {
	var payloadFile, label, createdBy string

	cmd := &cobra.Command{
		Use:   "create <scenario-id>",
		Short: "Create a version from a payload document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarioID, err := parseScenarioID(args[0])
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(payloadFile)
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			v, err := a.store.CreateVersionRaw(cmd.Context(), scenarioID, raw, versionstore.VersionOptions{
				Label:     label,
				CreatedBy: createdBy,
			})
			if err != nil {
				return err
			}
			return output.Version(cmd.OutOrStdout(), v, jsonOutput())
		},
	}
	cmd.Flags().StringVarP(&payloadFile, "file", "f", "", "payload JSON file (required)")
	cmd.Flags().StringVar(&label, "label", "", "version label")
	cmd.Flags().StringVar(&createdBy, "by", "", "creator")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newVersionListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <scenario-id>",
		Short: "List a scenario's versions",
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
			versions, err := a.store.List(cmd.Context(), scenarioID)
			if err != nil {
				return err
			}
			return output.Versions(cmd.OutOrStdout(), versions, jsonOutput())
		},
	}
}

func newVersionForkCommand() *cobra.Command {
	var patchFile, label, createdBy string

	cmd := &cobra.Command{
		Use:   "fork <scenario-id> <base-version>",
		Short: "Fork a version through a JSON merge patch",
		Long: `Fork loads the base version, applies an RFC 7396 merge patch, and
creates a new version through the normal validation and hashing path.
Object fields merge recursively, null deletes a field, arrays replace
wholesale.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarioID, err := parseScenarioID(args[0])
			if err != nil {
				return err
			}
			base, err := parseVersionNumber(args[1])
			if err != nil {
				return err
			}
			patch, err := os.ReadFile(patchFile)
			if err != nil {
				return fmt.Errorf("read patch: %w", err)
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			v, err := a.store.Fork(cmd.Context(), scenarioID, base, patch, versionstore.VersionOptions{
				Label:     label,
				CreatedBy: createdBy,
			})
			if err != nil {
				return err
			}
			return output.Version(cmd.OutOrStdout(), v, jsonOutput())
		},
	}
	cmd.Flags().StringVarP(&patchFile, "file", "f", "", "merge patch JSON file (required)")
	cmd.Flags().StringVar(&label, "label", "", "version label")
	cmd.Flags().StringVar(&createdBy, "by", "", "creator")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newVersionExportCommand() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "export <scenario-id> <version>",
		Short: "Export a version's canonical payload bytes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarioID, err := parseScenarioID(args[0])
			if err != nil {
				return err
			}
			version, err := parseVersionNumber(args[1])
			if err != nil {
				return err
			}
			a, err := getApp()
			if err != nil {
				return err
			}
			raw, err := a.store.Export(cmd.Context(), scenarioID, version)
			if err != nil {
				return err
			}
			if outFile == "" {
				_, err = cmd.OutOrStdout().Write(append(raw, '\n'))
				return err
			}
			return os.WriteFile(outFile, raw, 0o644)
		},
	}
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "write to file instead of stdout")
	return cmd
}
