// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/tubemp3/internal/platform/httpx"
)

type healthcheckOptions struct {
	mode    string
	addr    string
	timeout time.Duration
}

func newHealthcheckCmd() *cobra.Command {
	opts := &healthcheckOptions{}
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Probe a running server (for container health checks)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := runHealthcheck(cmd.Context(), opts); err != nil {
				return err
			}
			cmd.Printf("Healthcheck successful (%s)\n", opts.mode)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.mode, "mode", "ready", "healthcheck mode: ready or live")
	cmd.Flags().StringVar(&opts.addr, "addr", "127.0.0.1:8080", "server address (host:port)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "check timeout")
	return cmd
}

func healthcheckURL(opts *healthcheckOptions) (string, error) {
	path := "/healthz"
	switch opts.mode {
	case "ready":
		path = "/readyz"
	case "live":
	default:
		return "", fmt.Errorf("unknown healthcheck mode %q", opts.mode)
	}

	host, port, err := net.SplitHostPort(opts.addr)
	if err != nil {
		return "", fmt.Errorf("invalid addr %q: %w", opts.addr, err)
	}
	// A wildcard listen address is probed on loopback.
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + path, nil
}

func runHealthcheck(ctx context.Context, opts *healthcheckOptions) error {
	url, err := healthcheckURL(opts)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := httpx.NewClient(opts.timeout).Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck failed (network): %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck failed (status): %s", resp.Status)
	}
	return nil
}
