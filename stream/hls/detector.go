package hls

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/arterberry/metaview-core/stream/common"
)

// Detector decides whether a URL points at an HLS stream, using URL patterns
// first and response headers as a fallback. It backs the flow that classifies
// an initially-unknown root URL after the fact.
type Detector struct {
	config *DetectionConfig
	client *http.Client
}

var _ common.StreamDetector = (*Detector)(nil)

// NewDetector creates a detector with default configuration.
func NewDetector() *Detector {
	return NewDetectorWithConfig(nil)
}

// NewDetectorWithConfig creates a detector with custom configuration.
func NewDetectorWithConfig(config *DetectionConfig) *Detector {
	if config == nil {
		config = DefaultConfig().Detection
	}
	return &Detector{
		config: config,
		client: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}
}

// DetectType determines whether the URL is an HLS stream. URL patterns are
// checked first (no network), then a HEAD request's Content-Type.
func (d *Detector) DetectType(ctx context.Context, streamURL string) (common.StreamType, error) {
	if d.DetectFromURL(streamURL) == common.StreamTypeHLS {
		return common.StreamTypeHLS, nil
	}
	if d.DetectFromHeaders(ctx, streamURL) == common.StreamTypeHLS {
		return common.StreamTypeHLS, nil
	}
	return common.StreamTypeUnsupported, nil
}

// ProbeStream issues a HEAD request and gathers basic stream info without
// downloading the playlist body.
func (d *Detector) ProbeStream(ctx context.Context, streamURL string) (*common.StreamMetadata, error) {
	metadata := &common.StreamMetadata{
		URL:       streamURL,
		Type:      d.DetectFromURL(streamURL),
		Kind:      common.PlaylistKindUnknown,
		Format:    "m3u8",
		Timestamp: time.Now(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, streamURL, nil)
	if err != nil {
		return nil, common.NewStreamError(common.StreamTypeHLS, streamURL,
			common.ErrCodeConnection, "probe request failed", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, common.NewStreamError(common.StreamTypeHLS, streamURL,
			common.ErrCodeConnection, "probe failed", err)
	}
	defer resp.Body.Close()

	metadata.ContentType = common.ExtractContentType(resp.Header.Get("Content-Type"))
	metadata.Headers = map[string]string{}
	for _, key := range []string{"Content-Type", "Cache-Control", "Server"} {
		if value := resp.Header.Get(key); value != "" {
			metadata.Headers[strings.ToLower(key)] = common.CleanHeaderValue(value)
		}
	}

	if metadata.Type != common.StreamTypeHLS {
		for _, candidate := range d.config.ContentTypes {
			if strings.EqualFold(metadata.ContentType, candidate) {
				metadata.Type = common.StreamTypeHLS
				break
			}
		}
	}

	return metadata, nil
}

// DetectFromURL matches the URL against the configured playlist patterns.
func (d *Detector) DetectFromURL(streamURL string) common.StreamType {
	for _, pattern := range d.config.URLPatterns {
		if matched, err := regexp.MatchString(pattern, streamURL); err == nil && matched {
			return common.StreamTypeHLS
		}
	}
	return common.StreamTypeUnsupported
}

// DetectFromHeaders issues a HEAD request and matches the Content-Type
// against the configured playlist content types.
func (d *Detector) DetectFromHeaders(ctx context.Context, streamURL string) common.StreamType {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, streamURL, nil)
	if err != nil {
		return common.StreamTypeUnsupported
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return common.StreamTypeUnsupported
	}
	defer resp.Body.Close()

	contentType := common.ExtractContentType(resp.Header.Get("Content-Type"))
	for _, candidate := range d.config.ContentTypes {
		if strings.EqualFold(contentType, candidate) {
			return common.StreamTypeHLS
		}
	}
	return common.StreamTypeUnsupported
}
