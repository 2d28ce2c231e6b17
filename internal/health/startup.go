// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/ManuGH/tubemp3/internal/config"
	"github.com/ManuGH/tubemp3/internal/log"
	"github.com/ManuGH/tubemp3/internal/transcode"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// PerformStartupChecks validates the environment before the server starts.
// A missing ffmpeg is only logged: /info keeps working and /readyz reports it.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")

	if err := checkListenAddr(logger, "listenAddr", cfg.ListenAddr); err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		if err := checkListenAddr(logger, "metricsAddr", cfg.MetricsAddr); err != nil {
			return err
		}
	}

	if path, err := transcode.ResolveBinary(cfg.Transcode.FFmpegBin); err != nil {
		logger.Warn().Err(err).Msg("ffmpeg not available, /convert will fail until it is installed")
	} else {
		logger.Info().Str("ffmpeg", path).Msg("ffmpeg resolved")
	}

	enabled := lo.Filter(cfg.Providers, func(p config.ProviderConfig, _ int) bool { return !p.Disabled })
	if lo.ContainsBy(enabled, func(p config.ProviderConfig) bool { return p.Kind == config.KindYtdlp }) {
		if _, err := NewPathChecker("yt-dlp", "yt-dlp", true).resolve(); err != nil {
			logger.Warn().Msg("yt-dlp provider enabled but yt-dlp is not on PATH; it will always fail")
		}
	}

	logger.Info().
		Strs("providers", lo.Map(enabled, func(p config.ProviderConfig, _ int) string { return p.Name })).
		Str("mode", cfg.Resolver.Mode).
		Msg("startup checks passed")
	return nil
}

func checkListenAddr(logger zerolog.Logger, field, addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", field, addr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid %s port %q", field, port)
	}
	logger.Debug().Str(field, addr).Msg("listen address valid")
	return nil
}
