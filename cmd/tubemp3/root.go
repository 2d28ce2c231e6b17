// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"github.com/spf13/cobra"

	"github.com/ManuGH/tubemp3/internal/daemon"
	xglog "github.com/ManuGH/tubemp3/internal/log"
	"github.com/ManuGH/tubemp3/internal/version"
)

type rootFlags struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "tubemp3",
		Short:         "Stream YouTube audio as MP3",
		Long:          "tubemp3 resolves a video through an ordered chain of providers and streams it as MP3.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(flags)
		},
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to config file (YAML)")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "path to a dotenv file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server (default)",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				return runServe(flags)
			},
		},
		newHealthcheckCmd(),
		newDiagnoseCmd(flags),
		newVersionCmd(),
	)
	return root
}

func runServe(flags *rootFlags) error {
	ctx, stop := daemon.WaitForShutdown()
	defer stop()

	app, err := daemon.Bootstrap(ctx, daemon.Options{
		Version:    version.Version,
		ConfigPath: flags.configPath,
		EnvFile:    flags.envFile,
	})
	if err != nil {
		return err
	}
	if err := app.Run(ctx); err != nil {
		logger := xglog.WithComponent("daemon")
		logger.Error().Err(err).Msg("daemon exited with error")
		return err
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(version.String())
		},
	}
}
