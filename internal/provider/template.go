// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/ManuGH/tubemp3/internal/videoref"
)

// Expand fills the {id} and {url} placeholders of an endpoint template.
// {url} is the query-escaped canonical watch URL.
func Expand(tmpl string, ref videoref.Ref) string {
	r := strings.NewReplacer(
		"{id}", url.PathEscape(ref.ID),
		"{url}", url.QueryEscape(ref.WatchURL()),
	)
	return r.Replace(tmpl)
}

// joinEndpoint appends path to a base URL without doubling slashes.
func joinEndpoint(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func toHeader(m map[string]string) http.Header {
	h := make(http.Header, len(m))
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}
