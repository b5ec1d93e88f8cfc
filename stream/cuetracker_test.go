package stream

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arterberry/metaview-core/logging"
	"github.com/arterberry/metaview-core/scte35"
)

func newTestCueTracker() (*cueTracker, *[]CueEvent, *time.Time) {
	var events []CueEvent
	clock := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	tracker := newCueTracker(func(cue CueEvent) {
		events = append(events, cue)
	}, logging.NewNopLogger())
	tracker.now = func() time.Time { return clock }

	return tracker, &events, &clock
}

func adStartLine(t *testing.T, eventID uint32) string {
	t.Helper()
	payload := base64.StdEncoding.EncodeToString(scte35.NewAdBreakStart(eventID, 15.0).Encode())
	return "#EXT-X-CUE-OUT:" + payload
}

func TestCueTrackerScanLine(t *testing.T) {
	tracker, events, _ := newTestCueTracker()

	assert.False(t, tracker.ScanLine("#EXTINF:6.0,"))
	assert.False(t, tracker.ScanLine("segment0.ts"))
	assert.Empty(t, *events)

	require.True(t, tracker.ScanLine(adStartLine(t, 42)))
	require.Len(t, *events, 1)

	cue := (*events)[0]
	assert.Equal(t, CueSourceManifest, cue.Source)
	assert.Equal(t, scte35.ClassificationAdStart, cue.Classification)
	assert.False(t, cue.Heuristic)
	assert.Empty(t, cue.Error)
	require.NotNil(t, cue.Section)
	id, ok := cue.Section.EventID()
	require.True(t, ok)
	assert.Equal(t, uint32(42), id)
	assert.NotEmpty(t, cue.ID)
	assert.NotEmpty(t, cue.Description)
}

func TestCueTrackerDecodeError(t *testing.T) {
	tracker, events, _ := newTestCueTracker()

	require.True(t, tracker.ScanLine(`#EXT-X-DATERANGE:ID="b",SCTE35-OUT=0xFC3020`))
	require.Len(t, *events, 1)

	cue := (*events)[0]
	assert.NotEmpty(t, cue.Error)
	assert.Equal(t, []byte{0xFC, 0x30, 0x20}, cue.Raw)
	assert.Nil(t, cue.Section)
	assert.Equal(t, "#EXT-X-DATERANGE", cue.Tag)
}

func TestCueTrackerPayloadDedup(t *testing.T) {
	tracker, events, clock := newTestCueTracker()
	line := adStartLine(t, 7)

	require.True(t, tracker.ScanLine(line))
	assert.False(t, tracker.ScanLine(line), "same payload inside window is suppressed")
	assert.Len(t, *events, 1)

	// Still inside the window after 5s.
	*clock = clock.Add(5 * time.Second)
	assert.False(t, tracker.ScanLine(line))
	assert.Len(t, *events, 1)

	// Past the window the payload counts as a new occurrence.
	*clock = clock.Add(payloadDedupWindow + time.Second)
	assert.True(t, tracker.ScanLine(line))
	assert.Len(t, *events, 2)
}

func TestCueTrackerDistinctPayloadsNotDeduped(t *testing.T) {
	tracker, events, _ := newTestCueTracker()

	require.True(t, tracker.ScanLine(adStartLine(t, 1)))
	require.True(t, tracker.ScanLine(adStartLine(t, 2)))
	assert.Len(t, *events, 2)
}

func TestCueTrackerScanBodyCountsSuppressedCues(t *testing.T) {
	tracker, events, _ := newTestCueTracker()
	line := adStartLine(t, 9)
	body := "#EXTM3U\n" + line + "\n#EXTINF:6.0,\nseg0.ts"

	assert.Equal(t, 1, tracker.ScanBody(body))
	assert.Len(t, *events, 1)

	// A refresh re-delivers the same tag: no new event, but the body still
	// reports that it carries a cue.
	assert.Equal(t, 1, tracker.ScanBody(body))
	assert.Len(t, *events, 1)
}

func TestCueTrackerHeuristicAlternation(t *testing.T) {
	tracker, events, clock := newTestCueTracker()

	tracker.Discontinuity()
	*clock = clock.Add(10 * time.Second)
	tracker.Discontinuity()
	*clock = clock.Add(10 * time.Second)
	tracker.Discontinuity()

	require.Len(t, *events, 3)
	assert.Equal(t, scte35.ClassificationAdStart, (*events)[0].Classification)
	assert.Equal(t, scte35.ClassificationAdEnd, (*events)[1].Classification)
	assert.Equal(t, scte35.ClassificationAdStart, (*events)[2].Classification)

	for _, cue := range *events {
		assert.True(t, cue.Heuristic)
		assert.Equal(t, CueSourceDiscontinuity, cue.Source)
		assert.Contains(t, cue.Description, "low confidence")
	}
}

func TestCueTrackerHeuristicDedup(t *testing.T) {
	tracker, events, clock := newTestCueTracker()

	// A burst of three discontinuities at the same instant yields one
	// start and one end; the wrap-around "start" is suppressed.
	tracker.Discontinuity()
	tracker.Discontinuity()
	tracker.Discontinuity()
	require.Len(t, *events, 2)
	assert.Equal(t, scte35.ClassificationAdStart, (*events)[0].Classification)
	assert.Equal(t, scte35.ClassificationAdEnd, (*events)[1].Classification)

	// Outside the window the suppressed guess fires, and the alternation
	// picks up where it left off.
	*clock = clock.Add(heuristicDedupWindow + time.Second)
	tracker.Discontinuity()
	require.Len(t, *events, 3)
	assert.Equal(t, scte35.ClassificationAdStart, (*events)[2].Classification)
}
