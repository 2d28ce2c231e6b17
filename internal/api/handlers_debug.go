// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/samber/lo"

	"github.com/ManuGH/tubemp3/internal/config"
)

// Report is the /debug diagnostic document.
type Report struct {
	Version   string          `json:"version"`
	GoVersion string          `json:"goVersion"`
	Platform  string          `json:"platform"`
	Cwd       string          `json:"cwd"`
	Time      time.Time       `json:"time"`
	FFmpeg    BinaryReport    `json:"ffmpeg"`
	Ytdlp     BinaryReport    `json:"ytdlp"`
	Resolver  ResolverReport  `json:"resolver"`
	Providers []ProviderEntry `json:"providers"`
}

// BinaryReport describes an external binary.
type BinaryReport struct {
	Configured string `json:"configured,omitempty"`
	Path       string `json:"path,omitempty"`
	Found      bool   `json:"found"`
	Error      string `json:"error,omitempty"`
}

// ResolverReport summarises chain behaviour.
type ResolverReport struct {
	Mode           string   `json:"mode"`
	Order          []string `json:"order"`
	FallbackPolicy string   `json:"fallbackPolicy"`
	DownloadTier   bool     `json:"downloadTier"`
	InputMode      string   `json:"inputMode"`
	BitrateKbps    int      `json:"bitrateKbps"`
}

// ProviderEntry is one provider table row without headers or endpoints.
type ProviderEntry struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Capabilities []string `json:"capabilities"`
	Endpoints    int      `json:"endpoints"`
	Disabled     bool     `json:"disabled,omitempty"`
}

// BuildReport collects the diagnostic report for rt.
func BuildReport(rt *Runtime, version string) Report {
	cfg := rt.Config
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "error: " + err.Error()
	}

	ff := BinaryReport{Configured: cfg.Transcode.FFmpegBin, Path: rt.FFmpeg, Found: rt.FFmpegErr == nil}
	if rt.FFmpegErr != nil {
		ff.Error = rt.FFmpegErr.Error()
	}

	yt := BinaryReport{}
	if path, err := exec.LookPath("yt-dlp"); err != nil {
		yt.Error = "not found on PATH"
	} else {
		yt.Path, yt.Found = path, true
	}

	return Report{
		Version:   version,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Cwd:       cwd,
		Time:      time.Now().UTC(),
		FFmpeg:    ff,
		Ytdlp:     yt,
		Resolver: ResolverReport{
			Mode:           cfg.Resolver.Mode,
			Order:          rt.Media.Providers(),
			FallbackPolicy: cfg.Fallback.Policy,
			DownloadTier:   rt.Media.HasDownloads(),
			InputMode:      cfg.Transcode.InputMode,
			BitrateKbps:    cfg.Transcode.BitrateKbps,
		},
		Providers: lo.Map(cfg.Providers, func(p config.ProviderConfig, _ int) ProviderEntry {
			return ProviderEntry{
				Name:         p.Name,
				Kind:         p.Kind,
				Capabilities: p.Capabilities,
				Endpoints:    len(p.Endpoints),
				Disabled:     p.Disabled,
			}
		}),
	}
}

func (s *Server) handleDebug(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, BuildReport(s.Runtime(), s.opts.Version))
}
