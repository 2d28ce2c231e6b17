// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package delivery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Never Gonna Give You Up", "Never Gonna Give You Up"},
		{"AC/DC - Back In Black (Official Video)", "ACDC - Back In Black Official Video"},
		{"  spaced\t\tout  ", "spaced out"},
		{"Café", "Café"},
		{"日本語のタイトル", "日本語のタイトル"},
		{"\"quoted\"; evil\r\nheader", "quoted evil header"},
		{"", FallbackFilename},
		{"!!!", FallbackFilename},
		{"snake_case-name", "snake_case-name"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFilename(tt.in), tt.in)
	}
}

func TestSanitizeFilenameLength(t *testing.T) {
	got := SanitizeFilename(strings.Repeat("a", 500))
	assert.Len(t, got, maxFilenameRunes)
}

func TestContentDispositionNonASCIIOnly(t *testing.T) {
	assert.Equal(t,
		`attachment; filename="audio.mp3"; filename*=UTF-8''%E6%97%A5%E6%9C%AC.mp3`,
		ContentDisposition("日本"))
}
