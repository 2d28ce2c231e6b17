// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorCollectsErrors(t *testing.T) {
	v := New()
	v.URL("providers[0].endpoints[0]", "ftp://example.com", []string{"http", "https"})
	v.ListenAddr("listenAddr", ":99999")
	v.PositiveDuration("resolver.providerTimeout", 0)
	v.OneOf("resolver.mode", "parallel", []string{"sequential", "race"})
	v.Unique("providers.name", []string{"a", "b", "a"})
	v.NotEmpty("transcode.ffmpegBin", " ")

	require.False(t, v.IsValid())
	assert.Len(t, v.Errors(), 6)

	err := v.Err()
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors(), 6)
	assert.Contains(t, err.Error(), "resolver.mode")
	assert.Contains(t, err.Error(), `duplicate value "a"`)
}

func TestValidatorAcceptsValidInput(t *testing.T) {
	v := New()
	v.URL("u", "https://yewtu.be/api/v1/videos/{id}", []string{"https"})
	v.ListenAddr("listenAddr", ":8080")
	v.ListenAddr("metricsAddr", "127.0.0.1:9090")
	v.PositiveDuration("d", time.Second)
	v.Range("bitrate", 128, 32, 320)
	v.Unique("names", []string{"a", "b"})

	assert.True(t, v.IsValid())
	assert.NoError(t, v.Err())
}

func TestValidationErrorSingle(t *testing.T) {
	v := New()
	v.Port("port", 0)
	assert.Equal(t, "validation failed for port: port must be between 1 and 65535, got 0", v.Err().Error())
}
