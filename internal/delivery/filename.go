// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package delivery

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// FallbackFilename is used when a title has nothing printable left.
const FallbackFilename = "audio"

const maxFilenameRunes = 120

// SanitizeFilename reduces a title to letters, digits, underscores, spaces and
// hyphens, NFC normalised, with runs of whitespace collapsed.
func SanitizeFilename(title string) string {
	var b strings.Builder
	space := false
	n := 0
	for _, r := range norm.NFC.String(title) {
		if n >= maxFilenameRunes {
			break
		}
		switch {
		case unicode.IsSpace(r):
			space = b.Len() > 0
			continue
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_', r == '-':
		default:
			continue
		}
		if space {
			b.WriteByte(' ')
			n++
			space = false
		}
		b.WriteRune(r)
		n++
	}
	if b.Len() == 0 {
		return FallbackFilename
	}
	return b.String()
}

// asciiFilename keeps the ASCII subset for the plain filename parameter.
func asciiFilename(name string) string {
	out := strings.Join(strings.Fields(strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII {
			return r
		}
		return -1
	}, name)), " ")
	if out == "" {
		return FallbackFilename
	}
	return out
}

// ContentDisposition builds an attachment header for name.mp3 with an
// RFC 5987 filename* for non-ASCII titles.
func ContentDisposition(name string) string {
	name = SanitizeFilename(name)
	v := `attachment; filename="` + asciiFilename(name) + `.mp3"`
	return v + "; filename*=UTF-8''" + url.PathEscape(name+".mp3")
}
