package hls

import (
	"time"

	"github.com/arterberry/metaview-core/stream/common"
)

// MasterPlaylist is a parsed multivariant playlist.
type MasterPlaylist struct {
	URL      string                 `json:"url"`
	Version  int                    `json:"version"`
	Variants []Variant              `json:"variants"`
	Headers  map[string]string      `json:"headers,omitempty"`
	Metadata *common.StreamMetadata `json:"metadata,omitempty"`
}

// Variant is one stream alternative listed by a master playlist.
type Variant struct {
	URI              string  `json:"uri"`
	URL              string  `json:"url"` // resolved against the playlist URL
	Bandwidth        int     `json:"bandwidth"`
	AverageBandwidth int     `json:"average_bandwidth,omitempty"`
	Resolution       string  `json:"resolution,omitempty"`
	Codecs           string  `json:"codecs,omitempty"`
	FrameRate        float64 `json:"frame_rate,omitempty"`
	Audio            string  `json:"audio,omitempty"`
	Video            string  `json:"video,omitempty"`
	Subtitles        string  `json:"subtitles,omitempty"`
	ClosedCaptions   string  `json:"closed_captions,omitempty"`
}

// MediaPlaylist is a parsed media playlist. For a live stream the session
// mutates it in place across refreshes: the segment list grows, segments are
// never replaced.
type MediaPlaylist struct {
	URL                   string                 `json:"url"`
	Version               int                    `json:"version"`
	TargetDuration        int                    `json:"target_duration"`
	MediaSequence         int64                  `json:"media_sequence"`
	DiscontinuitySequence int64                  `json:"discontinuity_sequence"`
	Segments              []Segment              `json:"segments"`
	Live                  bool                   `json:"live"`
	Headers               map[string]string      `json:"headers,omitempty"`
	Metadata              *common.StreamMetadata `json:"metadata,omitempty"`
}

// LastSequence returns the highest media-sequence number currently held, or
// -1 for an empty playlist.
func (p *MediaPlaylist) LastSequence() int64 {
	if len(p.Segments) == 0 {
		return -1
	}
	return p.Segments[len(p.Segments)-1].Sequence
}

// TotalDuration sums the segment durations in seconds.
func (p *MediaPlaylist) TotalDuration() float64 {
	var total float64
	for i := range p.Segments {
		total += p.Segments[i].Duration
	}
	return total
}

// Segment is a single media segment. Immutable once parsed.
type Segment struct {
	URL             string     `json:"url"` // resolved against the playlist URL
	Duration        float64    `json:"duration"`
	Sequence        int64      `json:"sequence"`
	Title           string     `json:"title,omitempty"`
	Discontinuity   bool       `json:"discontinuity,omitempty"`
	ByteRange       *ByteRange `json:"byte_range,omitempty"`
	Key             *Key       `json:"key,omitempty"`
	Map             *MediaMap  `json:"map,omitempty"`
	ProgramDateTime *time.Time `json:"program_date_time,omitempty"`
}

// ByteRange is a sub-range of a segment resource. A nil Offset means the
// range is contiguous with the previous one.
type ByteRange struct {
	Length int64  `json:"length"`
	Offset *int64 `json:"offset,omitempty"`
}

// Key is the encryption context in effect for a segment.
type Key struct {
	Method            string `json:"method"`
	URI               string `json:"uri,omitempty"`
	IV                string `json:"iv,omitempty"`
	KeyFormat         string `json:"key_format,omitempty"`
	KeyFormatVersions string `json:"key_format_versions,omitempty"`
}

// MediaMap is the initialization-segment context for a segment.
type MediaMap struct {
	URI       string     `json:"uri"`
	ByteRange *ByteRange `json:"byte_range,omitempty"`
}

// LineKind distinguishes the three kinds of playlist line.
type LineKind int

const (
	LineTag LineKind = iota
	LineComment
	LineURI
)

// Line is one tokenized playlist line.
type Line struct {
	Kind  LineKind
	Name  string // tag name including the leading #EXT prefix, empty otherwise
	Value string // text after the first colon on a tag line
	Raw   string
}
