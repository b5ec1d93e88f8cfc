package hls

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// CueEncoding identifies how a cue payload was carried in the playlist.
type CueEncoding int

const (
	CueEncodingHex CueEncoding = iota
	CueEncodingBase64
)

// CueHint is the direction the carrying tag claims, before decoding.
type CueHint int

const (
	CueHintNone CueHint = iota
	CueHintOut
	CueHintIn
)

// RawCue is an SCTE-35 payload lifted out of a playlist line, not yet
// decoded.
type RawCue struct {
	Payload  []byte
	Encoding CueEncoding
	Hint     CueHint
	Tag      string // tag name the payload was found in
}

// ExtractCue scans one playlist line for an embedded SCTE-35 payload. Three
// carriages are recognized: EXT-X-DATERANGE with SCTE35-OUT/IN/CMD hex
// attributes, cue tags carrying base64 directly after the colon
// (EXT-X-CUE-OUT, EXT-X-CUE, EXT-OATCLS-SCTE35, EXT-X-SPLICEPOINT-SCTE35),
// and any line with an SCTE35= attribute. Malformed encodings are treated as
// no cue present, not an error.
func ExtractCue(raw string) (*RawCue, bool) {
	line := LexLine(raw)
	if line.Kind != LineTag {
		return nil, false
	}

	switch line.Name {
	case "#EXT-X-DATERANGE":
		return extractDateRangeCue(line)
	case "#EXT-X-CUE-OUT", "#EXT-X-CUE-OUT-CONT":
		return extractCueValue(line, CueHintOut)
	case "#EXT-X-CUE-IN":
		return extractCueValue(line, CueHintIn)
	case "#EXT-X-CUE", "#EXT-X-SCTE35":
		return extractCueValue(line, CueHintNone)
	case "#EXT-OATCLS-SCTE35", "#EXT-X-SPLICEPOINT-SCTE35":
		if payload, ok := decodeBase64Payload(line.Value); ok {
			return &RawCue{Payload: payload, Encoding: CueEncodingBase64, Tag: line.Name}, true
		}
		return nil, false
	}

	// Any other tag carrying an SCTE35= attribute.
	if strings.Contains(line.Value, "SCTE35=") {
		attrs := parseAttributes(line.Value)
		if payload, ok := decodeBase64Payload(attributeValue(attrs, "SCTE35")); ok {
			return &RawCue{Payload: payload, Encoding: CueEncodingBase64, Tag: line.Name}, true
		}
	}

	return nil, false
}

func extractDateRangeCue(line Line) (*RawCue, bool) {
	attrs := parseAttributes(line.Value)

	candidates := []struct {
		attr string
		hint CueHint
	}{
		{"SCTE35-OUT", CueHintOut},
		{"SCTE35-IN", CueHintIn},
		{"SCTE35-CMD", CueHintNone},
		{"SCTE35", CueHintNone},
	}

	for _, candidate := range candidates {
		value := attributeValue(attrs, candidate.attr)
		if value == "" {
			continue
		}
		if payload, ok := decodeHexPayload(value); ok {
			return &RawCue{
				Payload:  payload,
				Encoding: CueEncodingHex,
				Hint:     candidate.hint,
				Tag:      line.Name,
			}, true
		}
	}

	return nil, false
}

// extractCueValue handles cue tags whose payload follows the colon, either
// bare base64 or inside a SCTE35=/CUE= attribute.
func extractCueValue(line Line, hint CueHint) (*RawCue, bool) {
	value := strings.TrimSpace(line.Value)
	if value == "" {
		return nil, false
	}

	// Bare base64 first: padding contains '=', so the presence of '=' alone
	// cannot distinguish a payload from an attribute list. The table-id gate
	// inside decodeBase64Payload rejects attribute lists and duration values.
	if payload, ok := decodeBase64Payload(value); ok {
		return &RawCue{Payload: payload, Encoding: CueEncodingBase64, Hint: hint, Tag: line.Name}, true
	}

	attrs := parseAttributes(value)
	for _, attr := range []string{"SCTE35", "CUE"} {
		if payload, ok := decodeBase64Payload(attributeValue(attrs, attr)); ok {
			return &RawCue{Payload: payload, Encoding: CueEncodingBase64, Hint: hint, Tag: line.Name}, true
		}
	}
	return nil, false
}

func decodeHexPayload(value string) ([]byte, bool) {
	value = strings.Trim(strings.TrimSpace(value), "\"")
	value = strings.TrimPrefix(value, "0x")
	value = strings.TrimPrefix(value, "0X")
	if value == "" {
		return nil, false
	}
	payload, err := hex.DecodeString(value)
	if err != nil {
		return nil, false
	}
	return payload, true
}

func decodeBase64Payload(value string) ([]byte, bool) {
	value = strings.Trim(strings.TrimSpace(value), "\"")
	if value == "" {
		return nil, false
	}
	payload, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		payload, err = base64.RawStdEncoding.DecodeString(value)
	}
	if err != nil {
		return nil, false
	}
	// Cue-out values like "30" (a duration) are valid base64 but not splice
	// sections; anything without the table id is treated as no cue present.
	if len(payload) == 0 || payload[0] != 0xFC {
		return nil, false
	}
	return payload, true
}
