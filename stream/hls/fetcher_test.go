package hls

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arterberry/metaview-core/stream/common"
)

func TestFetcherFetch(t *testing.T) {
	t.Run("successful fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NotEmpty(t, r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
			w.Write([]byte(TestVodPlaylist))
		}))
		defer server.Close()

		result, err := NewFetcher(nil).Fetch(context.Background(), server.URL+"/chunks.m3u8")
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, result.StatusCode)
		assert.Equal(t, TestVodPlaylist, result.Body)
		assert.Equal(t, "application/vnd.apple.mpegurl", result.ContentType)
		assert.Contains(t, result.Headers, "content-type")
	})

	t.Run("http error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := NewFetcher(nil).Fetch(context.Background(), server.URL)
		require.Error(t, err)
		assert.Equal(t, common.ErrCodeHTTPStatus, common.ErrorCode(err))
	})

	t.Run("not a playlist", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>not a playlist</html>"))
		}))
		defer server.Close()

		_, err := NewFetcher(nil).Fetch(context.Background(), server.URL)
		require.Error(t, err)
		assert.Equal(t, common.ErrCodeNotAPlaylist, common.ErrorCode(err))
		assert.True(t, common.IsNotAPlaylist(err))
	})

	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(TestVodPlaylist))
		}))
		defer server.Close()

		config := DefaultConfig()
		config.HTTP.RequestTimeout = 20 * time.Millisecond

		_, err := NewFetcher(config).Fetch(context.Background(), server.URL)
		require.Error(t, err)
		assert.Equal(t, common.ErrCodeTimeout, common.ErrorCode(err))
		assert.True(t, common.IsTimeout(err))
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := NewFetcher(nil).Fetch(context.Background(), "not a url")
		require.Error(t, err)
		assert.Equal(t, common.ErrCodeConnection, common.ErrorCode(err))
	})

	t.Run("connection refused", func(t *testing.T) {
		_, err := NewFetcher(nil).Fetch(context.Background(), "http://127.0.0.1:1/nothing.m3u8")
		require.Error(t, err)
	})
}

func TestDetector(t *testing.T) {
	t.Run("url pattern match", func(t *testing.T) {
		detector := NewDetector()
		assert.Equal(t, common.StreamTypeHLS, detector.DetectFromURL("https://example.com/live/master.m3u8"))
		assert.Equal(t, common.StreamTypeHLS, detector.DetectFromURL("https://example.com/index.m3u8?token=x"))
		assert.Equal(t, common.StreamTypeUnsupported, detector.DetectFromURL("https://example.com/video.mp4"))
	})

	t.Run("header detection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/x-mpegURL; charset=utf-8")
		}))
		defer server.Close()

		detector := NewDetector()
		streamType, err := detector.DetectType(context.Background(), server.URL+"/stream")
		require.NoError(t, err)
		assert.Equal(t, common.StreamTypeHLS, streamType)
	})

	t.Run("unsupported", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "video/mp4")
		}))
		defer server.Close()

		streamType, err := NewDetector().DetectType(context.Background(), server.URL+"/stream")
		require.NoError(t, err)
		assert.Equal(t, common.StreamTypeUnsupported, streamType)
	})
}

func TestProbeStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl; charset=utf-8")
		w.Header().Set("Server", "unit-origin")
	}))
	defer server.Close()

	metadata, err := NewDetector().ProbeStream(context.Background(), server.URL+"/stream")
	require.NoError(t, err)

	assert.Equal(t, common.StreamTypeHLS, metadata.Type)
	assert.Equal(t, common.PlaylistKindUnknown, metadata.Kind)
	assert.Equal(t, "application/vnd.apple.mpegurl", metadata.ContentType)
	assert.Equal(t, "unit-origin", metadata.Headers["server"])
	assert.False(t, metadata.Timestamp.IsZero())
}

func TestConfigValidate(t *testing.T) {
	t.Run("default config is valid", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})

	t.Run("bad refresh factor", func(t *testing.T) {
		config := DefaultConfig()
		config.Tracker.RefreshFactor = 1.5
		assert.Error(t, config.Validate())
	})

	t.Run("unknown variant policy", func(t *testing.T) {
		config := DefaultConfig()
		config.Tracker.VariantPolicy = "round_robin"
		assert.Error(t, config.Validate())
	})

	t.Run("zero timeout", func(t *testing.T) {
		config := DefaultConfig()
		config.HTTP.RequestTimeout = 0
		assert.Error(t, config.Validate())
	})
}

func TestConfigFromMap(t *testing.T) {
	config := ConfigFromMap(map[string]any{
		"stream": map[string]any{
			"user_agent":      "inspector-test/2.0",
			"request_timeout": 5 * time.Second,
		},
		"hls": map[string]any{
			"tracker": map[string]any{
				"refresh_factor": 0.5,
				"variant_policy": "max_bandwidth",
			},
		},
	})

	assert.Equal(t, "inspector-test/2.0", config.HTTP.UserAgent)
	assert.Equal(t, 5*time.Second, config.HTTP.RequestTimeout)
	assert.Equal(t, 0.5, config.Tracker.RefreshFactor)
	assert.Equal(t, "max_bandwidth", config.Tracker.VariantPolicy)
	assert.NoError(t, config.Validate())
}

func TestRefreshInterval(t *testing.T) {
	tracker := DefaultConfig().Tracker

	t.Run("scaled by target duration", func(t *testing.T) {
		assert.InDelta(t, 7.0, tracker.RefreshInterval(10).Seconds(), 0.01)
	})

	t.Run("floor applies", func(t *testing.T) {
		assert.Equal(t, time.Second, tracker.RefreshInterval(1))
	})

	t.Run("default when unknown", func(t *testing.T) {
		assert.Equal(t, 3*time.Second, tracker.RefreshInterval(0))
	})
}
