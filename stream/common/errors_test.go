package common

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStreamError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStreamError(StreamTypeHLS, "https://example.com/a.m3u8",
		ErrCodeConnection, "fetch failed", cause)

	assert.Equal(t, "fetch failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeConnection, ErrorCode(err))

	bare := NewStreamError(StreamTypeHLS, "", ErrCodeNotAPlaylist, "no header", nil)
	assert.Equal(t, "no header", bare.Error())
	assert.Nil(t, errors.Unwrap(bare))
}

func TestErrorCode(t *testing.T) {
	assert.Empty(t, ErrorCode(nil))
	assert.Empty(t, ErrorCode(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w",
		NewStreamError(StreamTypeHLS, "", ErrCodeTimeout, "deadline", nil))
	assert.Equal(t, ErrCodeTimeout, ErrorCode(wrapped))
	assert.True(t, IsTimeout(wrapped))
	assert.False(t, IsNotAPlaylist(wrapped))

	twice := fmt.Errorf("retry: %w", wrapped)
	assert.Equal(t, ErrCodeTimeout, ErrorCode(twice))
}

func TestResolveURL(t *testing.T) {
	base := "https://cdn.example.com/live/master.m3u8"

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{"relative", "chunks.m3u8", "https://cdn.example.com/live/chunks.m3u8"},
		{"subdir", "720p/chunks.m3u8", "https://cdn.example.com/live/720p/chunks.m3u8"},
		{"root relative", "/other/a.m3u8", "https://cdn.example.com/other/a.m3u8"},
		{"absolute kept", "https://other.example.com/x.m3u8", "https://other.example.com/x.m3u8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveURL(base, tt.ref))
		})
	}
}

func TestIsValidURL(t *testing.T) {
	assert.True(t, IsValidURL("https://example.com/a.m3u8"))
	assert.True(t, IsValidURL("http://example.com/a.m3u8"))
	assert.False(t, IsValidURL("ftp://example.com/a.m3u8"))
	assert.False(t, IsValidURL("not a url"))
	assert.False(t, IsValidURL(""))
}

func TestExtractContentType(t *testing.T) {
	assert.Equal(t, "application/vnd.apple.mpegurl",
		ExtractContentType("application/vnd.apple.mpegurl; charset=UTF-8"))
	assert.Equal(t, "application/x-mpegurl", ExtractContentType("Application/X-MpegURL"))
	assert.Empty(t, ExtractContentType(""))
}

func TestCleanHeaderValue(t *testing.T) {
	assert.Equal(t, "value", CleanHeaderValue(`"value"`))
	assert.Equal(t, "value", CleanHeaderValue("  value  "))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "500ms", FormatDuration(500*time.Millisecond))
	assert.Equal(t, "7s", FormatDuration(7*time.Second))
	assert.Equal(t, "2m", FormatDuration(2*time.Minute))
	assert.Equal(t, "2m30s", FormatDuration(150*time.Second))
}
