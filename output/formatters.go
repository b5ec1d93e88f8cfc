package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arterberry/metaview-core/stream"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any, prettyPrint bool) ([]byte, error)
}

// FormatterFor returns the formatter registered under name ("json", "yaml",
// "csv", "table"). Unknown names fall back to JSON.
func FormatterFor(name string) Formatter {
	switch strings.ToLower(name) {
	case "yaml", "yml":
		return &YAMLFormatter{}
	case "csv":
		return &CSVFormatter{}
	case "table", "text":
		return &TableFormatter{}
	default:
		return &JSONFormatter{}
	}
}

// JSONFormatter formats output as JSON
type JSONFormatter struct{}

func (f *JSONFormatter) Format(data any, prettyPrint bool) ([]byte, error) {
	if prettyPrint {
		return json.MarshalIndent(data, "", "  ")
	}
	return json.Marshal(data)
}

// YAMLFormatter formats output as YAML
type YAMLFormatter struct{}

func (f *YAMLFormatter) Format(data any, prettyPrint bool) ([]byte, error) {
	return yaml.Marshal(data)
}

// CSVFormatter renders session reports as one header row plus one record
// per report. Other data types are rejected.
type CSVFormatter struct{}

func (f *CSVFormatter) Format(data any, prettyPrint bool) ([]byte, error) {
	var reports []*stream.Report
	switch v := data.(type) {
	case *stream.Report:
		reports = []*stream.Report{v}
	case []*stream.Report:
		reports = v
	default:
		return nil, fmt.Errorf("csv formatter requires a session report, got %T", data)
	}

	records := [][]string{{
		"session_id",
		"url",
		"state",
		"live",
		"segments",
		"duration_s",
		"playlist_refreshes",
		"cues_detected",
		"cue_decode_errors",
		"discontinuities",
		"fetch_errors",
		"bytes_received",
		"generated_at",
	}}

	for _, report := range reports {
		live, segments, duration := "", "", ""
		if report.Media != nil {
			live = strconv.FormatBool(report.Media.Live)
			segments = strconv.Itoa(report.Media.SegmentCount)
			duration = strconv.FormatFloat(report.Media.TotalDuration, 'f', 3, 64)
		}
		records = append(records, []string{
			report.SessionID,
			report.URL,
			string(report.State),
			live,
			segments,
			duration,
			strconv.Itoa(report.Stats.PlaylistRefreshes),
			strconv.Itoa(report.Stats.CuesDetected),
			strconv.Itoa(report.Stats.CueDecodeErrors),
			strconv.Itoa(report.Stats.Discontinuities),
			strconv.Itoa(report.Stats.FetchErrors),
			strconv.FormatInt(report.Stats.BytesReceived, 10),
			report.GeneratedAt.Format(time.RFC3339),
		})
	}

	var result strings.Builder
	writer := csv.NewWriter(&result)
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return []byte(result.String()), nil
}

// TableFormatter formats a session report as a human-readable table.
type TableFormatter struct{}

func (f *TableFormatter) Format(data any, prettyPrint bool) ([]byte, error) {
	report, ok := data.(*stream.Report)
	if !ok {
		return nil, fmt.Errorf("table formatter requires a session report, got %T", data)
	}

	var result strings.Builder
	result.WriteString("STREAM SESSION\n")
	result.WriteString("==============\n\n")

	fmt.Fprintf(&result, "Session:  %s\n", report.SessionID)
	fmt.Fprintf(&result, "URL:      %s\n", report.URL)
	fmt.Fprintf(&result, "State:    %s\n", report.State)
	result.WriteString("\n")

	if report.Variant != nil {
		result.WriteString("Variant:\n")
		result.WriteString("--------\n")
		fmt.Fprintf(&result, "URI:        %s\n", report.Variant.URI)
		fmt.Fprintf(&result, "Bandwidth:  %d bps\n", report.Variant.Bandwidth)
		if report.Variant.Resolution != "" {
			fmt.Fprintf(&result, "Resolution: %s\n", report.Variant.Resolution)
		}
		if report.Variant.Codecs != "" {
			fmt.Fprintf(&result, "Codecs:     %s\n", report.Variant.Codecs)
		}
		fmt.Fprintf(&result, "Selected from %d variants\n", report.Variant.OfVariants)
		result.WriteString("\n")
	}

	if report.Media != nil {
		result.WriteString("Playlist:\n")
		result.WriteString("---------\n")
		kind := "VOD"
		if report.Media.Live {
			kind = "live"
		}
		fmt.Fprintf(&result, "Kind:            %s\n", kind)
		fmt.Fprintf(&result, "Target duration: %ds\n", report.Media.TargetDuration)
		fmt.Fprintf(&result, "Segments:        %d (seq %d-%d)\n",
			report.Media.SegmentCount, report.Media.FirstSequence, report.Media.LastSequence)
		fmt.Fprintf(&result, "Total duration:  %.1fs\n", report.Media.TotalDuration)
		result.WriteString("\n")
	}

	result.WriteString("Counters:\n")
	result.WriteString("---------\n")
	fmt.Fprintf(&result, "Refreshes:       %d\n", report.Stats.PlaylistRefreshes)
	fmt.Fprintf(&result, "Cues:            %d (%d decode errors)\n",
		report.Stats.CuesDetected, report.Stats.CueDecodeErrors)
	fmt.Fprintf(&result, "Discontinuities: %d\n", report.Stats.Discontinuities)
	fmt.Fprintf(&result, "Fetch errors:    %d\n", report.Stats.FetchErrors)
	fmt.Fprintf(&result, "Received:        %s\n", FormatBytes(report.Stats.BytesReceived))

	return []byte(result.String()), nil
}

// FormatDuration formats a duration for human-readable output
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d.Nanoseconds())/1e6)
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}

// FormatBytes formats bytes for human-readable output
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
