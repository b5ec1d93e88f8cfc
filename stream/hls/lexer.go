package hls

import (
	"strings"

	"github.com/arterberry/metaview-core/stream/common"
)

// LexLine tokenizes one playlist line. Lines starting with #EXT are tags,
// other # lines are comments passed through untouched, everything else is a
// URI.
func LexLine(raw string) Line {
	trimmed := strings.TrimSpace(raw)

	if strings.HasPrefix(trimmed, "#EXT") {
		parts := strings.SplitN(trimmed, ":", 2)
		line := Line{Kind: LineTag, Name: parts[0], Raw: trimmed}
		if len(parts) > 1 {
			line.Value = parts[1]
		}
		return line
	}

	if strings.HasPrefix(trimmed, "#") {
		return Line{Kind: LineComment, Raw: trimmed}
	}

	return Line{Kind: LineURI, Raw: trimmed}
}

// Lines tokenizes a playlist body, dropping empty lines.
func Lines(body string) []Line {
	var lines []Line
	for _, raw := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		lines = append(lines, LexLine(trimmed))
	}
	return lines
}

// Classify decides whether a playlist body is a master or media playlist.
// A body carrying a stream-variant tag is master, everything else media.
// Deterministic: the same body always classifies the same way.
func Classify(body string) common.PlaylistKind {
	for _, line := range Lines(body) {
		if line.Kind != LineTag {
			continue
		}
		switch line.Name {
		case "#EXT-X-STREAM-INF", "#EXT-X-I-FRAME-STREAM-INF":
			return common.PlaylistKindMaster
		}
	}
	return common.PlaylistKindMedia
}

// parseAttributes parses M3U8 attribute lists like
// 'BANDWIDTH=1280000,CODECS="avc1.42e00a,mp4a.40.2"'. Commas inside quoted
// values do not split.
func parseAttributes(attrString string) map[string]string {
	attrs := make(map[string]string)

	var parts []string
	var current strings.Builder
	inQuotes := false

	for _, char := range attrString {
		switch char {
		case '"':
			inQuotes = !inQuotes
			current.WriteRune(char)
		case ',':
			if inQuotes {
				current.WriteRune(char)
			} else {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(char)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	for _, part := range parts {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 {
			attrs[kv[0]] = kv[1]
		}
	}

	return attrs
}

// attributeValue returns an attribute with surrounding quotes stripped.
func attributeValue(attrs map[string]string, key string) string {
	return strings.Trim(attrs[key], "\"")
}
