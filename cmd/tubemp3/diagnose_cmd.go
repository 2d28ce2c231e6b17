// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/tubemp3/internal/api"
	"github.com/ManuGH/tubemp3/internal/config"
	"github.com/ManuGH/tubemp3/internal/version"
)

// newDiagnoseCmd prints the same report as GET /debug without starting a server.
func newDiagnoseCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Print the resolved configuration and binary report as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader := config.NewLoader(flags.configPath, version.Version)
			if flags.envFile != "" {
				loader = loader.WithEnvFile(flags.envFile)
			}
			cfg, err := loader.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			rt, err := api.BuildRuntime(cfg, api.RuntimeDeps{})
			if err != nil {
				return fmt.Errorf("failed to build runtime: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(api.BuildReport(rt, version.Version))
		},
	}
}
