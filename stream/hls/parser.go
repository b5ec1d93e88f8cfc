package hls

import (
	"strconv"
	"strings"
	"time"

	"github.com/arterberry/metaview-core/logging"
	"github.com/arterberry/metaview-core/stream/common"
)

// Parser parses M3U8 playlist bodies through a table of tag handlers.
type Parser struct {
	tagHandlers map[string]TagHandler
}

// TagHandler defines how to handle a specific M3U8 tag.
type TagHandler struct {
	Name        string
	Handler     func(value string, context *ParseContext) error
	Description string
}

// ParseContext holds the running parser state for one pass over a body.
// Key, map and program-date-time contexts are scoped from the tag that
// introduces them until superseded or end of playlist.
type ParseContext struct {
	BaseURL    string
	LineNumber int

	Media  *MediaPlaylist
	Master *MasterPlaylist

	pendingSegment       *Segment
	pendingVariant       *Variant
	pendingDiscontinuity bool

	nextSequence    int64
	sequenceFromTag bool
	endListSeen     bool

	key             *Key
	mediaMap        *MediaMap
	programDateTime *time.Time
}

// NewParser creates a parser with the default tag handlers registered.
func NewParser() *Parser {
	p := &Parser{tagHandlers: make(map[string]TagHandler)}
	p.registerDefaultTagHandlers()
	return p
}

// RegisterTagHandler registers or replaces a tag handler.
func (p *Parser) RegisterTagHandler(handler TagHandler) {
	p.tagHandlers[handler.Name] = handler
}

// GetRegisteredTags lists all registered tag names.
func (p *Parser) GetRegisteredTags() []string {
	tags := make([]string, 0, len(p.tagHandlers))
	for tag := range p.tagHandlers {
		tags = append(tags, tag)
	}
	return tags
}

// ParseMediaPlaylist parses a media playlist body. Sequence numbers start
// from the playlist's media-sequence tag when present, otherwise from
// startingSequence.
func (p *Parser) ParseMediaPlaylist(body, baseURL string, startingSequence int64) (*MediaPlaylist, error) {
	context := &ParseContext{
		BaseURL: baseURL,
		Media: &MediaPlaylist{
			URL:      baseURL,
			Segments: make([]Segment, 0),
			Headers:  make(map[string]string),
		},
		nextSequence: startingSequence,
	}

	if err := p.parse(body, context); err != nil {
		return nil, err
	}

	context.Media.Live = !context.endListSeen
	return context.Media, nil
}

// ParseMasterPlaylist parses a multivariant playlist body. Variant URIs are
// resolved against baseURL; source order is preserved.
func (p *Parser) ParseMasterPlaylist(body, baseURL string) (*MasterPlaylist, error) {
	context := &ParseContext{
		BaseURL: baseURL,
		Master: &MasterPlaylist{
			URL:      baseURL,
			Variants: make([]Variant, 0),
			Headers:  make(map[string]string),
		},
	}

	if err := p.parse(body, context); err != nil {
		return nil, err
	}

	if context.pendingVariant != nil {
		// Variant tag with no URI line before end of file: malformed entry,
		// dropped rather than fatal.
		logging.Debug("discarding variant without URI", logging.Fields{
			"url":       baseURL,
			"bandwidth": context.pendingVariant.Bandwidth,
		})
	}

	return context.Master, nil
}

func (p *Parser) parse(body string, context *ParseContext) error {
	lines := Lines(body)
	if len(lines) == 0 {
		return common.NewStreamError(common.StreamTypeHLS, context.BaseURL,
			common.ErrCodeInvalidFormat, "empty playlist", nil)
	}

	if lines[0].Raw != "#EXTM3U" {
		return common.NewStreamErrorWithFields(common.StreamTypeHLS, context.BaseURL,
			common.ErrCodeInvalidFormat, "missing #EXTM3U header", nil,
			logging.Fields{"first_line": lines[0].Raw})
	}

	for _, line := range lines[1:] {
		context.LineNumber++

		switch line.Kind {
		case LineComment:
			continue
		case LineTag:
			if err := p.parseTag(line, context); err != nil {
				return err
			}
		case LineURI:
			p.handleURI(line.Raw, context)
		}
	}

	return nil
}

func (p *Parser) parseTag(line Line, context *ParseContext) error {
	if handler, exists := p.tagHandlers[line.Name]; exists {
		return handler.Handler(line.Value, context)
	}
	p.handleUnknownTag(line.Name, line.Value, context)
	return nil
}

// handleURI closes the pending segment or variant, or records a bare URI as
// a zero-duration segment.
func (p *Parser) handleURI(uri string, context *ParseContext) {
	switch {
	case context.pendingSegment != nil:
		segment := context.pendingSegment
		segment.URL = common.ResolveURL(context.BaseURL, uri)
		segment.Sequence = context.nextSequence
		context.nextSequence++

		if context.pendingDiscontinuity {
			segment.Discontinuity = true
			context.pendingDiscontinuity = false
		}

		if context.Media != nil {
			context.Media.Segments = append(context.Media.Segments, *segment)
		}
		context.pendingSegment = nil

	case context.pendingVariant != nil:
		variant := context.pendingVariant
		variant.URI = uri
		variant.URL = common.ResolveURL(context.BaseURL, uri)
		if context.Master != nil {
			context.Master.Variants = append(context.Master.Variants, *variant)
		}
		context.pendingVariant = nil

	case context.Media != nil:
		// URI without a preceding duration tag: keep it, with zero duration.
		context.Media.Segments = append(context.Media.Segments, Segment{
			URL:      common.ResolveURL(context.BaseURL, uri),
			Sequence: context.nextSequence,
		})
		context.nextSequence++
	}
}

func (p *Parser) handleUnknownTag(tag, value string, context *ParseContext) {
	headers := p.headers(context)
	if headers == nil {
		return
	}
	if cleanTag, found := strings.CutPrefix(tag, "#EXT-X-"); found {
		headers["custom_"+strings.ToLower(cleanTag)] = value
	} else if cleanTag, found := strings.CutPrefix(tag, "#EXT"); found {
		headers["ext_"+strings.ToLower(cleanTag)] = value
	}
}

func (p *Parser) headers(context *ParseContext) map[string]string {
	if context.Media != nil {
		return context.Media.Headers
	}
	if context.Master != nil {
		return context.Master.Headers
	}
	return nil
}

// openSegment starts the pending segment with the current contexts attached.
func (context *ParseContext) openSegment() *Segment {
	segment := &Segment{
		Key:             context.key,
		Map:             context.mediaMap,
		ProgramDateTime: context.programDateTime,
	}
	context.pendingSegment = segment
	return segment
}

func (p *Parser) registerDefaultTagHandlers() {
	handlers := []TagHandler{
		{
			Name:        "#EXT-X-VERSION",
			Description: "Playlist version",
			Handler: func(value string, context *ParseContext) error {
				if v, err := strconv.Atoi(value); err == nil {
					if context.Media != nil {
						context.Media.Version = v
					}
					if context.Master != nil {
						context.Master.Version = v
					}
				}
				return nil
			},
		},
		{
			Name:        "#EXT-X-TARGETDURATION",
			Description: "Target segment duration",
			Handler: func(value string, context *ParseContext) error {
				if context.Media == nil {
					return nil
				}
				if v, err := strconv.Atoi(value); err == nil {
					context.Media.TargetDuration = v
				}
				return nil
			},
		},
		{
			Name:        "#EXT-X-MEDIA-SEQUENCE",
			Description: "Media sequence number",
			Handler: func(value string, context *ParseContext) error {
				if context.Media == nil {
					return nil
				}
				if v, err := strconv.ParseInt(value, 10, 64); err == nil {
					context.Media.MediaSequence = v
					if !context.sequenceFromTag {
						context.nextSequence = v
						context.sequenceFromTag = true
					}
				}
				return nil
			},
		},
		{
			Name:        "#EXT-X-DISCONTINUITY-SEQUENCE",
			Description: "Discontinuity sequence base",
			Handler: func(value string, context *ParseContext) error {
				if context.Media == nil {
					return nil
				}
				if v, err := strconv.ParseInt(value, 10, 64); err == nil {
					context.Media.DiscontinuitySequence = v
				}
				return nil
			},
		},
		{
			Name:        "#EXT-X-ENDLIST",
			Description: "End of playlist marker",
			Handler: func(value string, context *ParseContext) error {
				context.endListSeen = true
				return nil
			},
		},
		{
			Name:        "#EXT-X-START",
			Description: "Playback start point",
			Handler: func(value string, context *ParseContext) error {
				attrs := parseAttributes(value)
				if offset := attributeValue(attrs, "TIME-OFFSET"); offset != "" {
					if headers := p.headers(context); headers != nil {
						headers["start_time_offset"] = offset
					}
				}
				return nil
			},
		},
		{
			Name:        "#EXTINF",
			Description: "Segment duration and title",
			Handler: func(value string, context *ParseContext) error {
				segment := context.openSegment()

				parts := strings.SplitN(value, ",", 2)
				if len(parts) > 0 {
					if duration, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err == nil {
						segment.Duration = duration
					}
				}
				if len(parts) > 1 {
					segment.Title = strings.TrimSpace(parts[1])
				}
				return nil
			},
		},
		{
			Name:        "#EXT-X-BYTERANGE",
			Description: "Byte range for the pending segment",
			Handler: func(value string, context *ParseContext) error {
				if context.pendingSegment != nil {
					context.pendingSegment.ByteRange = parseByteRange(value)
				}
				return nil
			},
		},
		{
			Name:        "#EXT-X-KEY",
			Description: "Encryption key context",
			Handler: func(value string, context *ParseContext) error {
				context.key = parseKey(value)
				if context.pendingSegment != nil {
					context.pendingSegment.Key = context.key
				}
				return nil
			},
		},
		{
			Name:        "#EXT-X-MAP",
			Description: "Initialization segment context",
			Handler: func(value string, context *ParseContext) error {
				attrs := parseAttributes(value)
				mediaMap := &MediaMap{URI: attributeValue(attrs, "URI")}
				if br := attributeValue(attrs, "BYTERANGE"); br != "" {
					mediaMap.ByteRange = parseByteRange(br)
				}
				context.mediaMap = mediaMap
				if context.pendingSegment != nil {
					context.pendingSegment.Map = mediaMap
				}
				return nil
			},
		},
		{
			Name:        "#EXT-X-PROGRAM-DATE-TIME",
			Description: "Program date and time context",
			Handler: func(value string, context *ParseContext) error {
				if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value)); err == nil {
					context.programDateTime = &t
					if context.pendingSegment != nil {
						context.pendingSegment.ProgramDateTime = &t
					}
				}
				return nil
			},
		},
		{
			Name:        "#EXT-X-DISCONTINUITY",
			Description: "Content discontinuity",
			Handler: func(value string, context *ParseContext) error {
				if context.Media != nil {
					context.Media.DiscontinuitySequence++
				}
				if context.pendingSegment != nil {
					context.pendingSegment.Discontinuity = true
				} else {
					// Tag arrived before the segment's duration tag; applies
					// to the next segment.
					context.pendingDiscontinuity = true
				}
				return nil
			},
		},
		{
			Name:        "#EXT-X-STREAM-INF",
			Description: "Stream variant information",
			Handler: func(value string, context *ParseContext) error {
				if context.Master == nil {
					return nil
				}
				if context.pendingVariant != nil {
					// Previous variant tag had no URI line: malformed,
					// dropped.
					logging.Debug("discarding variant without URI", logging.Fields{
						"url":       context.BaseURL,
						"bandwidth": context.pendingVariant.Bandwidth,
					})
				}
				context.pendingVariant = parseVariantAttributes(value)
				return nil
			},
		},
		{
			Name:        "#EXT-X-I-FRAME-STREAM-INF",
			Description: "I-frame variant information",
			Handler: func(value string, context *ParseContext) error {
				if context.Master == nil {
					return nil
				}
				// Carries its URI as an attribute, no following URI line.
				variant := parseVariantAttributes(value)
				attrs := parseAttributes(value)
				if uri := attributeValue(attrs, "URI"); uri != "" {
					variant.URI = uri
					variant.URL = common.ResolveURL(context.BaseURL, uri)
					context.Master.Variants = append(context.Master.Variants, *variant)
				}
				return nil
			},
		},
		{
			Name:        "#EXT-X-MEDIA",
			Description: "Alternative rendition",
			Handler: func(value string, context *ParseContext) error {
				attrs := parseAttributes(value)
				if headers := p.headers(context); headers != nil {
					groupID := attributeValue(attrs, "GROUP-ID")
					mediaType := strings.ToLower(attributeValue(attrs, "TYPE"))
					if groupID != "" && mediaType != "" {
						headers["media_"+mediaType+"_"+groupID] = attributeValue(attrs, "NAME")
					}
				}
				return nil
			},
		},
	}

	for _, handler := range handlers {
		p.RegisterTagHandler(handler)
	}
}

func parseVariantAttributes(value string) *Variant {
	attrs := parseAttributes(value)
	variant := &Variant{}

	if bandwidth, exists := attrs["BANDWIDTH"]; exists {
		if b, err := strconv.Atoi(bandwidth); err == nil {
			variant.Bandwidth = b
		}
	}
	if average, exists := attrs["AVERAGE-BANDWIDTH"]; exists {
		if b, err := strconv.Atoi(average); err == nil {
			variant.AverageBandwidth = b
		}
	}
	if frameRate, exists := attrs["FRAME-RATE"]; exists {
		if f, err := strconv.ParseFloat(frameRate, 64); err == nil {
			variant.FrameRate = f
		}
	}

	variant.Resolution = attributeValue(attrs, "RESOLUTION")
	variant.Codecs = attributeValue(attrs, "CODECS")
	variant.Audio = attributeValue(attrs, "AUDIO")
	variant.Video = attributeValue(attrs, "VIDEO")
	variant.Subtitles = attributeValue(attrs, "SUBTITLES")
	variant.ClosedCaptions = attributeValue(attrs, "CLOSED-CAPTIONS")

	return variant
}

// parseByteRange parses "length[@offset]". A missing offset means contiguous
// with the previous range.
func parseByteRange(value string) *ByteRange {
	parts := strings.SplitN(strings.TrimSpace(value), "@", 2)
	length, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil
	}
	byteRange := &ByteRange{Length: length}
	if len(parts) > 1 {
		if offset, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
			byteRange.Offset = &offset
		}
	}
	return byteRange
}

func parseKey(value string) *Key {
	attrs := parseAttributes(value)
	key := &Key{
		Method:            attributeValue(attrs, "METHOD"),
		URI:               attributeValue(attrs, "URI"),
		IV:                attributeValue(attrs, "IV"),
		KeyFormat:         attributeValue(attrs, "KEYFORMAT"),
		KeyFormatVersions: attributeValue(attrs, "KEYFORMATVERSIONS"),
	}
	if key.Method == "NONE" {
		return nil
	}
	return key
}
