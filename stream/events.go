package stream

import (
	"time"

	"github.com/arterberry/metaview-core/logging"
	"github.com/arterberry/metaview-core/scte35"
	"github.com/arterberry/metaview-core/stream/common"
)

// EventType names the kinds of events a session emits.
type EventType string

const (
	EventPlaylistParsed     EventType = "playlist_parsed"
	EventSegmentAdded       EventType = "segment_added"
	EventStatusUpdate       EventType = "status_update"
	EventDiscontinuity      EventType = "discontinuity_detected"
	EventCue                EventType = "cue"
	EventSegmentTypeUpdated EventType = "segment_type_updated"
)

// Event is one session occurrence. Exactly one of the payload pointers is
// set, matching Type. Events for a given playlist are emitted in the order
// segments and cues were discovered within that parse pass.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	PlaylistParsed     *PlaylistParsedEvent     `json:"playlist_parsed,omitempty"`
	SegmentAdded       *SegmentAddedEvent       `json:"segment_added,omitempty"`
	StatusUpdate       *StatusUpdateEvent       `json:"status_update,omitempty"`
	Discontinuity      *DiscontinuityEvent      `json:"discontinuity,omitempty"`
	Cue                *CueEvent                `json:"cue,omitempty"`
	SegmentTypeUpdated *SegmentTypeUpdatedEvent `json:"segment_type_updated,omitempty"`
}

// PlaylistParsedEvent reports a successfully parsed playlist body.
type PlaylistParsedEvent struct {
	Kind         common.PlaylistKind `json:"kind"`
	URL          string              `json:"url"`
	VariantCount int                 `json:"variant_count,omitempty"`
	SegmentCount int                 `json:"segment_count,omitempty"`
	Live         bool                `json:"live,omitempty"`
}

// SegmentAddedEvent reports one newly discovered segment.
type SegmentAddedEvent struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	Sequence        int64      `json:"sequence"`
	Duration        float64    `json:"duration"`
	Discontinuity   bool       `json:"discontinuity,omitempty"`
	Encrypted       bool       `json:"encrypted,omitempty"`
	ProgramDateTime *time.Time `json:"program_date_time,omitempty"`
}

// StatusUpdateEvent carries human-readable progress or error text.
type StatusUpdateEvent struct {
	Message string `json:"message"`
	IsError bool   `json:"is_error,omitempty"`
}

// DiscontinuityEvent reports a timeline discontinuity on a segment.
type DiscontinuityEvent struct {
	SegmentID string `json:"segment_id"`
	Sequence  int64  `json:"sequence"`
}

// CueSource says how a cue event was obtained.
type CueSource string

const (
	CueSourceManifest      CueSource = "manifest"
	CueSourceDiscontinuity CueSource = "discontinuity"
)

// CueEvent is one detected ad-boundary occurrence. Heuristic events come
// from the discontinuity-alternation fallback and carry low confidence;
// decode failures carry the error text and raw bytes instead of a section.
type CueEvent struct {
	ID             string                    `json:"id"`
	Source         CueSource                 `json:"source"`
	Classification scte35.Classification     `json:"classification"`
	Description    string                    `json:"description"`
	Section        *scte35.SpliceInfoSection `json:"section,omitempty"`
	Tag            string                    `json:"tag,omitempty"`
	Heuristic      bool                      `json:"heuristic,omitempty"`
	Error          string                    `json:"error,omitempty"`
	Raw            []byte                    `json:"raw,omitempty"`
}

// SegmentTypeUpdatedEvent reports that an initially-unknown root URL has
// been classified from its content.
type SegmentTypeUpdatedEvent struct {
	URL   string              `json:"url"`
	Kind  common.PlaylistKind `json:"kind"`
	Title string              `json:"title,omitempty"`
}

// EventSink receives session events. Publish must not retain the event past
// the call.
type EventSink interface {
	Publish(event Event)
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(Event)

func (f SinkFunc) Publish(event Event) { f(event) }

// ChannelSink delivers events to a buffered channel. When the buffer is
// full the event is dropped rather than blocking the session.
type ChannelSink struct {
	ch     chan Event
	logger logging.Logger
}

// NewChannelSink creates a channel sink with the given buffer size.
func NewChannelSink(bufferSize int) *ChannelSink {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &ChannelSink{
		ch:     make(chan Event, bufferSize),
		logger: logging.WithFields(logging.Fields{"component": "event_sink"}),
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

func (s *ChannelSink) Publish(event Event) {
	select {
	case s.ch <- event:
	default:
		s.logger.Warn("event buffer full, dropping event", logging.Fields{
			"event_type": string(event.Type),
		})
	}
}
