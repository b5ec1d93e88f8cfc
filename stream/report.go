package stream

import (
	"time"

	"github.com/arterberry/metaview-core/stream/common"
)

// Report is a point-in-time summary of a session, suitable for rendering
// through the output formatters.
type Report struct {
	SessionID   string    `json:"session_id" yaml:"session_id"`
	URL         string    `json:"url" yaml:"url"`
	State       State     `json:"state" yaml:"state"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	Variant *VariantReport `json:"variant,omitempty" yaml:"variant,omitempty"`
	Media   *MediaReport   `json:"media,omitempty" yaml:"media,omitempty"`

	Stats common.SessionStats `json:"stats" yaml:"stats"`
}

// VariantReport summarizes the variant the session follows.
type VariantReport struct {
	URI        string `json:"uri" yaml:"uri"`
	Bandwidth  int    `json:"bandwidth" yaml:"bandwidth"`
	Resolution string `json:"resolution,omitempty" yaml:"resolution,omitempty"`
	Codecs     string `json:"codecs,omitempty" yaml:"codecs,omitempty"`
	OfVariants int    `json:"of_variants" yaml:"of_variants"`
}

// MediaReport summarizes the tracked media playlist.
type MediaReport struct {
	TargetDuration int     `json:"target_duration" yaml:"target_duration"`
	Live           bool    `json:"live" yaml:"live"`
	SegmentCount   int     `json:"segment_count" yaml:"segment_count"`
	FirstSequence  int64   `json:"first_sequence" yaml:"first_sequence"`
	LastSequence   int64   `json:"last_sequence" yaml:"last_sequence"`
	TotalDuration  float64 `json:"total_duration_s" yaml:"total_duration_s"`
}

// Report builds a summary snapshot of the session's current state.
func (s *Session) Report() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &Report{
		SessionID:   s.id,
		URL:         s.rootURL,
		State:       s.state,
		GeneratedAt: time.Now(),
		Stats:       s.stats,
	}

	if s.selected != nil {
		report.Variant = &VariantReport{
			URI:        s.selected.URI,
			Bandwidth:  s.selected.Bandwidth,
			Resolution: s.selected.Resolution,
			Codecs:     s.selected.Codecs,
		}
		if s.master != nil {
			report.Variant.OfVariants = len(s.master.Variants)
		}
	}

	if s.media != nil {
		media := &MediaReport{
			TargetDuration: s.media.TargetDuration,
			Live:           s.media.Live,
			SegmentCount:   len(s.media.Segments),
			TotalDuration:  s.media.TotalDuration(),
			LastSequence:   s.media.LastSequence(),
		}
		if len(s.media.Segments) > 0 {
			media.FirstSequence = s.media.Segments[0].Sequence
		} else {
			media.FirstSequence = -1
		}
		report.Media = media
	}

	return report
}
