package stream

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arterberry/metaview-core/logging"
	"github.com/arterberry/metaview-core/scte35"
	"github.com/arterberry/metaview-core/stream/hls"
)

const (
	// payloadDedupWindow suppresses a cue whose payload was already seen
	// recently; live refreshes re-deliver the same tags on every fetch.
	payloadDedupWindow = 10 * time.Second
	// heuristicDedupWindow suppresses a repeated same-type heuristic guess;
	// a burst of discontinuities yields at most one start and one end.
	heuristicDedupWindow = 2 * time.Second
)

// cueTracker runs the extract → decode → interpret pipeline over playlist
// lines, de-duplicates against recent occurrences and maintains the
// discontinuity alternation heuristic. Not safe for concurrent use; the
// session serializes calls.
type cueTracker struct {
	emit   func(CueEvent)
	logger logging.Logger
	now    func() time.Time

	recentPayloads map[string]time.Time

	lastHeuristic map[scte35.Classification]time.Time
	// nextHeuristicStart tracks the alternation: discontinuities classify
	// as start, end, start... within a session. Known to misclassify when
	// breaks do not strictly alternate, which is why heuristic events are
	// flagged low-confidence instead.
	nextHeuristicStart bool
}

func newCueTracker(emit func(CueEvent), logger logging.Logger) *cueTracker {
	return &cueTracker{
		emit:               emit,
		logger:             logger,
		now:                time.Now,
		recentPayloads:     make(map[string]time.Time),
		lastHeuristic:      make(map[scte35.Classification]time.Time),
		nextHeuristicStart: true,
	}
}

// ScanLine offers one raw playlist line to the pipeline. Returns true when
// a cue event was emitted.
func (ct *cueTracker) ScanLine(line string) bool {
	raw, ok := hls.ExtractCue(line)
	if !ok {
		return false
	}

	if ct.seenPayload(raw.Payload) {
		return false
	}

	section, err := scte35.Decode(raw.Payload)
	if err != nil {
		ct.logger.Warn("cue decode failed", logging.Fields{
			"tag":   raw.Tag,
			"bytes": len(raw.Payload),
			"error": err.Error(),
		})
		ct.emit(CueEvent{
			ID:     uuid.NewString(),
			Source: CueSourceManifest,
			Tag:    raw.Tag,
			Error:  err.Error(),
			Raw:    raw.Payload,
		})
		return true
	}

	ct.emit(CueEvent{
		ID:             uuid.NewString(),
		Source:         CueSourceManifest,
		Classification: section.Classify(),
		Description:    section.Describe(),
		Section:        section,
		Tag:            raw.Tag,
	})
	return true
}

// ScanBody offers every line of a playlist body to the pipeline. The return
// counts lines carrying an extractable cue, whether or not the dedup window
// suppressed the event, so callers can tell cue-bearing playlists apart from
// bare-discontinuity ones.
func (ct *cueTracker) ScanBody(body string) int {
	var found int
	for _, line := range hls.Lines(body) {
		if line.Kind != hls.LineTag {
			continue
		}
		if _, ok := hls.ExtractCue(line.Raw); ok {
			found++
		}
		ct.ScanLine(line.Raw)
	}
	return found
}

// Discontinuity feeds the fallback heuristic: a bare discontinuity with no
// parseable cue alternates ad-start / ad-end within the session.
func (ct *cueTracker) Discontinuity() {
	classification := scte35.ClassificationAdEnd
	if ct.nextHeuristicStart {
		classification = scte35.ClassificationAdStart
	}

	now := ct.now()
	if last, ok := ct.lastHeuristic[classification]; ok && now.Sub(last) < heuristicDedupWindow {
		// Suppressed repeats do not advance the alternation.
		return
	}

	ct.nextHeuristicStart = !ct.nextHeuristicStart
	ct.lastHeuristic[classification] = now

	description := "discontinuity: probable ad end"
	if classification == scte35.ClassificationAdStart {
		description = "discontinuity: probable ad start"
	}

	ct.emit(CueEvent{
		ID:             uuid.NewString(),
		Source:         CueSourceDiscontinuity,
		Classification: classification,
		Description:    fmt.Sprintf("%s (heuristic, low confidence)", description),
		Heuristic:      true,
	})
}

func (ct *cueTracker) seenPayload(payload []byte) bool {
	now := ct.now()
	key := string(payload)

	for k, t := range ct.recentPayloads {
		if now.Sub(t) > payloadDedupWindow {
			delete(ct.recentPayloads, k)
		}
	}

	if t, ok := ct.recentPayloads[key]; ok && now.Sub(t) <= payloadDedupWindow {
		return true
	}
	ct.recentPayloads[key] = now
	return false
}
