package datauri

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1の透過PNG
var tinyPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

func TestEncode_PNG(t *testing.T) {
	e := NewEncoder(1024)

	got, err := e.Encode(bytes.NewReader(tinyPNG))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "data:image/png;base64,"))

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(got, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, tinyPNG, decoded)
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		max     int64
		body    []byte
		wantErr error
	}{
		{name: "empty", max: 1024, body: nil, wantErr: ErrEmpty},
		{name: "too large", max: 10, body: tinyPNG, wantErr: ErrTooLarge},
		{name: "text", max: 1024, body: []byte("hello, pantry"), wantErr: ErrNotImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEncoder(tt.max).Encode(bytes.NewReader(tt.body))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	uri, err := NewEncoder(1024).Encode(bytes.NewReader(tinyPNG))
	require.NoError(t, err)

	mime, raw, err := Decode(uri)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, tinyPNG, raw)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		wantErr error
	}{
		{name: "no scheme", uri: "image/png;base64,AAA", wantErr: ErrMalformed},
		{name: "no comma", uri: "data:image/png;base64", wantErr: ErrMalformed},
		{name: "not base64", uri: "data:image/png,AAA", wantErr: ErrMalformed},
		{name: "bad payload", uri: "data:image/png;base64,!!!", wantErr: ErrMalformed},
		{name: "not image", uri: "data:text/html;base64,AAA", wantErr: ErrNotImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.uri)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
