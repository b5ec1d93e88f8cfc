package common

import (
	"context"
	"time"
)

// StreamType represents the type of a stream ('hls', 'unsupported')
type StreamType string

const (
	StreamTypeHLS         StreamType = "hls"
	StreamTypeUnsupported StreamType = "unsupported"
)

// PlaylistKind classifies an HLS playlist body.
type PlaylistKind string

const (
	PlaylistKindMaster  PlaylistKind = "master"
	PlaylistKindMedia   PlaylistKind = "media"
	PlaylistKindUnknown PlaylistKind = "unknown"
)

// StreamMetadata contains metadata and info about the stream
type StreamMetadata struct {
	URL            string            `json:"url"`
	Type           StreamType        `json:"type"`
	Kind           PlaylistKind      `json:"kind"`
	Format         string            `json:"format"`
	Bandwidth      int               `json:"bandwidth,omitempty"`
	Codec          string            `json:"codec,omitempty"`
	Resolution     string            `json:"resolution,omitempty"`
	ContentType    string            `json:"content_type,omitempty"`
	TargetDuration int               `json:"target_duration,omitempty"`
	Live           bool              `json:"live"`
	Headers        map[string]string `json:"headers,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
}

// SessionStats contains tracking statistics for one stream session
type SessionStats struct {
	BytesReceived     int64         `json:"bytes_received"`
	PlaylistRefreshes int           `json:"playlist_refreshes"`
	SegmentsObserved  int           `json:"segments_observed"`
	Discontinuities   int           `json:"discontinuities"`
	CuesDetected      int           `json:"cues_detected"`
	CueDecodeErrors   int           `json:"cue_decode_errors"`
	FetchErrors       int           `json:"fetch_errors"`
	ConnectionTime    time.Duration `json:"connection_time"`
}

// StreamDetector defines the interface for detecting stream types
type StreamDetector interface {
	// DetectType determines the stream type for URL, headers, and stream parsing
	DetectType(ctx context.Context, url string) (StreamType, error)

	// ProbeStream performs a lightweight probe to gather basic info
	ProbeStream(ctx context.Context, url string) (*StreamMetadata, error)
}
