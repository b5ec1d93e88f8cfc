package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arterberry/metaview-core/logging"
	"github.com/arterberry/metaview-core/stream/common"
	"github.com/arterberry/metaview-core/stream/hls"
)

// State is the session lifecycle phase.
type State string

const (
	StateIdle             State = "idle"
	StateMasterLoading    State = "master_loading"
	StateVariantSelecting State = "variant_selecting"
	StateMediaLoading     State = "media_loading"
	StateVod              State = "vod"
	StateLive             State = "live"
	StateFailed           State = "failed"
)

// SessionOptions configures a Session. Zero-value fields get defaults.
type SessionOptions struct {
	Config   *hls.Config
	Sink     EventSink
	Selector VariantSelector
	Metrics  *Metrics
	Logger   logging.Logger
}

// Session tracks one stream at a time: it loads a root URL, follows a master
// playlist into a selected variant, and keeps a live media playlist current
// through periodic refresh. The session is the sole writer of the playlist
// model; loading a new URL resets all prior state.
type Session struct {
	id       string
	config   *hls.Config
	fetcher  *hls.Fetcher
	parser   *hls.Parser
	detector *hls.Detector
	selector VariantSelector
	sink     EventSink
	metrics  *Metrics
	logger   logging.Logger

	mu       sync.Mutex
	state    State
	rootURL  string
	master   *hls.MasterPlaylist
	media    *hls.MediaPlaylist
	selected *hls.Variant
	lastBody string
	stats    common.SessionStats
	cues     *cueTracker

	cancelRefresh context.CancelFunc
	refreshWG     sync.WaitGroup
}

// NewSession creates a session. opts may be nil.
func NewSession(opts *SessionOptions) *Session {
	if opts == nil {
		opts = &SessionOptions{}
	}
	config := opts.Config
	if config == nil {
		config = hls.DefaultConfig()
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	selector := opts.Selector
	if selector == nil {
		selector = SelectorForPolicy(config.Tracker.VariantPolicy)
	}

	s := &Session{
		id:       uuid.NewString(),
		config:   config,
		fetcher:  hls.NewFetcher(config),
		parser:   hls.NewParser(),
		detector: hls.NewDetectorWithConfig(config.Detection),
		selector: selector,
		sink:     opts.Sink,
		metrics:  opts.Metrics,
		logger:   logger.WithFields(logging.Fields{"component": "tracker_session"}),
		state:    StateIdle,
	}
	s.cues = newCueTracker(s.publishCue, s.logger)
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Master returns the master playlist, nil for single-playlist streams.
func (s *Session) Master() *hls.MasterPlaylist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.master
}

// Media returns a snapshot of the tracked media playlist, nil before a
// successful load. The snapshot is safe to read while the refresh loop
// keeps merging new segments.
func (s *Session) Media() *hls.MediaPlaylist {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.media == nil {
		return nil
	}
	snapshot := *s.media
	snapshot.Segments = make([]hls.Segment, len(s.media.Segments))
	copy(snapshot.Segments, s.media.Segments)
	return &snapshot
}

// SelectedVariant returns the variant being followed, nil for media-only
// streams.
func (s *Session) SelectedVariant() *hls.Variant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() common.SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Load points the session at a new stream root URL. Any previous stream's
// state and refresh loop are discarded first. ctx bounds the initial load
// only; the live refresh loop runs until Reset, Close or an end-of-list
// marker.
func (s *Session) Load(ctx context.Context, rootURL string) error {
	s.Reset()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rootURL = rootURL
	s.setState(StateMasterLoading)
	s.publishStatus(fmt.Sprintf("loading %s", rootURL), false)

	urlType := s.detector.DetectFromURL(rootURL)

	result, err := s.fetcher.Fetch(ctx, rootURL)
	if err != nil {
		return s.fail("initial fetch failed", err)
	}
	s.stats.BytesReceived += int64(len(result.Body))
	s.stats.ConnectionTime = result.Elapsed

	kind := hls.Classify(result.Body)
	if urlType == common.StreamTypeUnsupported {
		// The URL alone did not look like a playlist; the content settled it.
		s.publish(Event{
			Type: EventSegmentTypeUpdated,
			SegmentTypeUpdated: &SegmentTypeUpdatedEvent{
				URL:   rootURL,
				Kind:  kind,
				Title: fmt.Sprintf("%s playlist", kind),
			},
		})
	}

	if kind == common.PlaylistKindMaster {
		return s.loadMaster(ctx, rootURL, result.Body)
	}

	s.setState(StateMediaLoading)
	return s.loadMedia(rootURL, result.Body)
}

func (s *Session) loadMaster(ctx context.Context, url, body string) error {
	master, err := s.parser.ParseMasterPlaylist(body, url)
	if err != nil {
		return s.fail("master playlist parse failed", err)
	}
	s.master = master

	s.publish(Event{
		Type: EventPlaylistParsed,
		PlaylistParsed: &PlaylistParsedEvent{
			Kind:         common.PlaylistKindMaster,
			URL:          url,
			VariantCount: len(master.Variants),
		},
	})
	s.cues.ScanBody(body)

	s.setState(StateVariantSelecting)
	variant, ok := s.selector.Select(master.Variants)
	if !ok {
		return s.fail("master playlist has no variants", nil)
	}
	s.selected = &variant
	s.publishStatus(fmt.Sprintf("selected variant %s (%d bps, policy %s)",
		variant.URI, variant.Bandwidth, s.selector.Name()), false)

	s.setState(StateMediaLoading)
	result, err := s.fetcher.Fetch(ctx, variant.URL)
	if err != nil {
		return s.fail("variant playlist fetch failed", err)
	}
	s.stats.BytesReceived += int64(len(result.Body))

	return s.loadMedia(variant.URL, result.Body)
}

// loadMedia parses the initial media playlist body and, for live streams,
// starts the refresh loop. Called with the session lock held.
func (s *Session) loadMedia(url, body string) error {
	media, err := s.parser.ParseMediaPlaylist(body, url, 0)
	if err != nil {
		return s.fail("media playlist parse failed", err)
	}
	s.media = media
	s.lastBody = body

	s.publish(Event{
		Type: EventPlaylistParsed,
		PlaylistParsed: &PlaylistParsedEvent{
			Kind:         common.PlaylistKindMedia,
			URL:          url,
			SegmentCount: len(media.Segments),
			Live:         media.Live,
		},
	})

	hadManifestCues := s.cues.ScanBody(body) > 0
	for i := range media.Segments {
		s.publishSegment(&media.Segments[i], hadManifestCues)
	}
	s.metrics.SegmentsAdded(len(media.Segments))

	if !media.Live {
		s.setState(StateVod)
		s.publishStatus("stream finished (VOD), no refresh scheduled", false)
		return nil
	}

	s.setState(StateLive)
	s.metrics.SessionStarted()

	interval := s.config.Tracker.RefreshInterval(media.TargetDuration)
	s.publishStatus(fmt.Sprintf("live stream, refreshing every %s", common.FormatDuration(interval)), false)

	refreshCtx, cancel := context.WithCancel(context.Background())
	s.cancelRefresh = cancel
	s.refreshWG.Add(1)
	go s.refreshLoop(refreshCtx, url, interval)

	return nil
}

// refreshLoop re-fetches a live media playlist on a fixed cadence. A tick
// that fires while a fetch is still in flight is skipped, not queued.
func (s *Session) refreshLoop(ctx context.Context, url string, interval time.Duration) {
	defer s.refreshWG.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshOnce(ctx, url)
			// Drop any tick that accumulated while the fetch ran.
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}

func (s *Session) refreshOnce(ctx context.Context, url string) {
	result, err := s.fetcher.Fetch(ctx, url)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLive {
		return
	}

	if err != nil {
		// Best effort: nothing is lost, only delayed. The loop continues at
		// the next tick with no backoff.
		s.stats.FetchErrors++
		s.metrics.FetchError()
		s.logger.Warn("playlist refresh failed", logging.Fields{
			"url":   url,
			"error": err.Error(),
		})
		s.publishStatus(fmt.Sprintf("refresh failed: %v", err), true)
		return
	}

	s.stats.PlaylistRefreshes++
	s.metrics.PlaylistRefreshed()
	s.stats.BytesReceived += int64(len(result.Body))

	if result.Body == s.lastBody {
		return
	}
	s.lastBody = result.Body

	parsed, err := s.parser.ParseMediaPlaylist(result.Body, url, 0)
	if err != nil {
		s.logger.Warn("refresh parse failed", logging.Fields{
			"url":   url,
			"error": err.Error(),
		})
		s.publishStatus(fmt.Sprintf("refresh parse failed: %v", err), true)
		return
	}

	s.mergeRefresh(parsed, result.Body)
}

// mergeRefresh appends segments whose sequence exceeds the highest already
// known. Existing segments are never replaced. Called with the lock held.
func (s *Session) mergeRefresh(parsed *hls.MediaPlaylist, body string) {
	highest := s.media.LastSequence()

	hadManifestCues := s.cues.ScanBody(body) > 0

	var added int
	for i := range parsed.Segments {
		segment := parsed.Segments[i]
		if segment.Sequence <= highest {
			continue
		}
		s.media.Segments = append(s.media.Segments, segment)
		s.publishSegment(&s.media.Segments[len(s.media.Segments)-1], hadManifestCues)
		added++
	}
	s.metrics.SegmentsAdded(added)

	// Scalar metadata follows the latest fetch.
	s.media.MediaSequence = parsed.MediaSequence
	if parsed.TargetDuration > 0 {
		s.media.TargetDuration = parsed.TargetDuration
	}

	if !parsed.Live {
		s.media.Live = false
		s.stopRefreshLocked()
		s.setState(StateVod)
		s.publishStatus("end of list observed, refresh stopped", false)
	}
}

// publishSegment emits SegmentAdded plus discontinuity events. Called with
// the lock held.
func (s *Session) publishSegment(segment *hls.Segment, hadManifestCues bool) {
	id := uuid.NewString()
	s.stats.SegmentsObserved++

	s.publish(Event{
		Type: EventSegmentAdded,
		SegmentAdded: &SegmentAddedEvent{
			ID:              id,
			URL:             segment.URL,
			Sequence:        segment.Sequence,
			Duration:        segment.Duration,
			Discontinuity:   segment.Discontinuity,
			Encrypted:       segment.Key != nil,
			ProgramDateTime: segment.ProgramDateTime,
		},
	})

	if segment.Discontinuity {
		s.stats.Discontinuities++
		s.metrics.DiscontinuityObserved()
		s.publish(Event{
			Type: EventDiscontinuity,
			Discontinuity: &DiscontinuityEvent{
				SegmentID: id,
				Sequence:  segment.Sequence,
			},
		})
		// Fallback heuristic only when the playlist carried no decodable
		// cue; otherwise the manifest cue already reported the boundary.
		if !hadManifestCues {
			s.cues.Discontinuity()
		}
	}
}

// publishCue is the cue tracker's emit hook. Called with the lock held.
func (s *Session) publishCue(cue CueEvent) {
	if cue.Error != "" {
		s.stats.CueDecodeErrors++
		s.metrics.CueDecodeError()
	} else {
		s.stats.CuesDetected++
		s.metrics.CueDecoded()
	}
	s.publish(Event{Type: EventCue, Cue: &cue})
}

func (s *Session) publishStatus(message string, isError bool) {
	s.publish(Event{
		Type:         EventStatusUpdate,
		StatusUpdate: &StatusUpdateEvent{Message: message, IsError: isError},
	})
}

func (s *Session) publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if s.sink != nil {
		s.sink.Publish(event)
	}
}

func (s *Session) setState(state State) {
	s.state = state
}

// fail marks the session terminally failed. A new Load is required to
// recover; the very first fetch is never retried automatically.
func (s *Session) fail(message string, cause error) error {
	if cause != nil {
		s.stats.FetchErrors++
		s.metrics.FetchError()
		message = fmt.Sprintf("%s: %v", message, cause)
	}
	s.setState(StateFailed)
	s.publishStatus(message, true)
	s.logger.Error(cause, "session failed", logging.Fields{"session_id": s.id})
	if cause != nil {
		return cause
	}
	return common.NewStreamError(common.StreamTypeHLS, "", common.ErrCodeUnsupported, message, nil)
}

func (s *Session) stopRefreshLocked() {
	if s.cancelRefresh != nil {
		s.cancelRefresh()
		s.cancelRefresh = nil
		s.metrics.SessionStopped()
	}
}

// Reset discards all playlist and cue state and returns the session to
// Idle. Any in-flight refresh for the superseded stream is cancelled first.
func (s *Session) Reset() {
	s.mu.Lock()
	cancel := s.cancelRefresh
	s.cancelRefresh = nil
	wasLive := s.state == StateLive
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.refreshWG.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rootURL = ""
	s.master = nil
	s.media = nil
	s.selected = nil
	s.lastBody = ""
	s.stats = common.SessionStats{}
	s.cues = newCueTracker(s.publishCue, s.logger)
	s.setState(StateIdle)
	if wasLive {
		s.metrics.SessionStopped()
	}
}

// Close stops the session. Equivalent to Reset.
func (s *Session) Close() {
	s.Reset()
}
