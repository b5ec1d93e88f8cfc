package hls

import (
	"fmt"
	"maps"
	"time"
)

// Config holds configuration for HLS playlist processing.
type Config struct {
	Parser    *ParserConfig    `json:"parser"`
	Detection *DetectionConfig `json:"detection"`
	HTTP      *HTTPConfig      `json:"http"`
	Tracker   *TrackerConfig   `json:"tracker"`
}

// ParserConfig holds configuration for M3U8 parsing.
type ParserConfig struct {
	StrictMode        bool `json:"strict_mode"`
	MaxSegments       int  `json:"max_segments"`
	IgnoreUnknownTags bool `json:"ignore_unknown_tags"`
}

// DetectionConfig holds configuration for stream type detection.
type DetectionConfig struct {
	URLPatterns    []string `json:"url_patterns"`
	ContentTypes   []string `json:"content_types"`
	TimeoutSeconds int      `json:"timeout_seconds"`
}

// HTTPConfig holds HTTP-related configuration for playlist fetches.
type HTTPConfig struct {
	UserAgent      string            `json:"user_agent"`
	AcceptHeader   string            `json:"accept_header"`
	RequestTimeout time.Duration     `json:"request_timeout"`
	MaxRedirects   int               `json:"max_redirects"`
	CustomHeaders  map[string]string `json:"custom_headers"`
	MaxBodySize    int64             `json:"max_body_size"`
}

// TrackerConfig holds configuration for the live refresh loop.
type TrackerConfig struct {
	// RefreshFactor scales the target duration into a refresh interval.
	RefreshFactor float64 `json:"refresh_factor"`
	// MinRefreshInterval is the floor applied to the computed interval.
	MinRefreshInterval time.Duration `json:"min_refresh_interval"`
	// DefaultRefreshInterval is used when target duration is unknown.
	DefaultRefreshInterval time.Duration `json:"default_refresh_interval"`
	// VariantPolicy names the variant selection policy ("first", "max_bandwidth").
	VariantPolicy string `json:"variant_policy"`
	// EventBufferSize sizes the channel event sink.
	EventBufferSize int `json:"event_buffer_size"`
}

// DefaultConfig returns the default HLS configuration.
func DefaultConfig() *Config {
	return &Config{
		Parser: &ParserConfig{
			StrictMode:        false,
			MaxSegments:       0, // unlimited
			IgnoreUnknownTags: false,
		},
		Detection: &DetectionConfig{
			URLPatterns: []string{
				`\.m3u8$`,
				`\.m3u8\?`,
				`/playlist\.m3u8`,
				`/master\.m3u8`,
				`/index\.m3u8`,
			},
			ContentTypes: []string{
				"application/vnd.apple.mpegurl",
				"application/x-mpegurl",
				"audio/mpegurl",
				"vnd.apple.mpegurl",
			},
			TimeoutSeconds: 5,
		},
		HTTP: &HTTPConfig{
			UserAgent:      "metaview-core/1.0",
			AcceptHeader:   "application/vnd.apple.mpegurl,application/x-mpegurl,text/plain",
			RequestTimeout: 10 * time.Second,
			MaxRedirects:   5,
			CustomHeaders:  make(map[string]string),
			MaxBodySize:    8 << 20,
		},
		Tracker: &TrackerConfig{
			RefreshFactor:          0.7,
			MinRefreshInterval:     time.Second,
			DefaultRefreshInterval: 3 * time.Second,
			VariantPolicy:          "first",
			EventBufferSize:        256,
		},
	}
}

// ConfigFromAppConfig creates an HLS config from application config. The HLS
// library stays standalone while still integrating with a host application's
// config map.
func ConfigFromAppConfig(appConfig any) *Config {
	config := DefaultConfig()

	appCfg, ok := appConfig.(map[string]any)
	if !ok {
		return config
	}

	if streamCfg, exists := appCfg["stream"].(map[string]any); exists {
		if userAgent, ok := streamCfg["user_agent"].(string); ok && userAgent != "" {
			config.HTTP.UserAgent = userAgent
		}
		if headers, ok := streamCfg["headers"].(map[string]string); ok {
			config.HTTP.CustomHeaders = headers
		}
		if timeout, ok := streamCfg["request_timeout"].(time.Duration); ok {
			config.HTTP.RequestTimeout = timeout
		}
		if maxRedirects, ok := streamCfg["max_redirects"].(int); ok {
			config.HTTP.MaxRedirects = maxRedirects
		}
	}

	if hlsCfg, exists := appCfg["hls"].(map[string]any); exists {
		applyHLSSpecificConfig(config, hlsCfg)
	}

	return config
}

// ConfigFromMap creates an HLS config from a map.
func ConfigFromMap(configMap map[string]any) *Config {
	return ConfigFromAppConfig(configMap)
}

func applyHLSSpecificConfig(config *Config, hlsCfg map[string]any) {
	if parserCfg, exists := hlsCfg["parser"].(map[string]any); exists {
		if strictMode, ok := parserCfg["strict_mode"].(bool); ok {
			config.Parser.StrictMode = strictMode
		}
		if maxSegments, ok := parserCfg["max_segments"].(int); ok {
			config.Parser.MaxSegments = maxSegments
		}
		if ignoreUnknown, ok := parserCfg["ignore_unknown_tags"].(bool); ok {
			config.Parser.IgnoreUnknownTags = ignoreUnknown
		}
	}

	if detectionCfg, exists := hlsCfg["detection"].(map[string]any); exists {
		if patterns, ok := detectionCfg["url_patterns"].([]string); ok {
			config.Detection.URLPatterns = patterns
		}
		if contentTypes, ok := detectionCfg["content_types"].([]string); ok {
			config.Detection.ContentTypes = contentTypes
		}
		if timeout, ok := detectionCfg["timeout_seconds"].(int); ok {
			config.Detection.TimeoutSeconds = timeout
		}
	}

	if trackerCfg, exists := hlsCfg["tracker"].(map[string]any); exists {
		if factor, ok := trackerCfg["refresh_factor"].(float64); ok {
			config.Tracker.RefreshFactor = factor
		}
		if minInterval, ok := trackerCfg["min_refresh_interval"].(time.Duration); ok {
			config.Tracker.MinRefreshInterval = minInterval
		}
		if defaultInterval, ok := trackerCfg["default_refresh_interval"].(time.Duration); ok {
			config.Tracker.DefaultRefreshInterval = defaultInterval
		}
		if policy, ok := trackerCfg["variant_policy"].(string); ok && policy != "" {
			config.Tracker.VariantPolicy = policy
		}
		if bufferSize, ok := trackerCfg["event_buffer_size"].(int); ok {
			config.Tracker.EventBufferSize = bufferSize
		}
	}
}

// GetHTTPHeaders returns the headers to apply to playlist requests.
func (c *Config) GetHTTPHeaders() map[string]string {
	headers := map[string]string{
		"User-Agent": c.HTTP.UserAgent,
		"Accept":     c.HTTP.AcceptHeader,
	}
	maps.Copy(headers, c.HTTP.CustomHeaders)
	return headers
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.HTTP == nil || c.Parser == nil || c.Detection == nil || c.Tracker == nil {
		return fmt.Errorf("config sections must not be nil")
	}
	if c.HTTP.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.Tracker.RefreshFactor <= 0 || c.Tracker.RefreshFactor > 1 {
		return fmt.Errorf("refresh_factor must be in (0, 1]")
	}
	if c.Tracker.MinRefreshInterval <= 0 {
		return fmt.Errorf("min_refresh_interval must be positive")
	}
	if c.Tracker.DefaultRefreshInterval <= 0 {
		return fmt.Errorf("default_refresh_interval must be positive")
	}
	switch c.Tracker.VariantPolicy {
	case "first", "max_bandwidth":
	default:
		return fmt.Errorf("unknown variant_policy %q", c.Tracker.VariantPolicy)
	}
	if c.Parser.MaxSegments < 0 {
		return fmt.Errorf("max_segments must not be negative")
	}
	return nil
}

// RefreshInterval computes the live refresh cadence for a playlist with the
// given target duration (seconds). Unknown target duration falls back to the
// default interval; the floor always applies.
func (c *TrackerConfig) RefreshInterval(targetDuration int) time.Duration {
	if targetDuration <= 0 {
		return c.DefaultRefreshInterval
	}
	interval := time.Duration(float64(targetDuration) * c.RefreshFactor * float64(time.Second))
	if interval < c.MinRefreshInterval {
		return c.MinRefreshInterval
	}
	return interval
}
