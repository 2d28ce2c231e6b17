// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultBinary is looked up on PATH when nothing is configured.
const DefaultBinary = "ffmpeg"

// ResolveBinary returns an absolute path for the configured ffmpeg binary.
// A value containing a path separator must point at an executable file;
// anything else is looked up on PATH.
func ResolveBinary(configured string) (string, error) {
	name := strings.TrimSpace(configured)
	if name == "" {
		name = DefaultBinary
	}

	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		info, err := os.Stat(name)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrBinaryNotFound, err)
		}
		if info.IsDir() || info.Mode()&0o111 == 0 {
			return "", fmt.Errorf("%w: %s is not executable", ErrBinaryNotFound, name)
		}
		abs, err := filepath.Abs(name)
		if err != nil {
			return name, nil
		}
		return abs, nil
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBinaryNotFound, err)
	}
	return path, nil
}
