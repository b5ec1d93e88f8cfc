package hls

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/arterberry/metaview-core/logging"
	"github.com/arterberry/metaview-core/stream/common"
)

// FetchResult is one successful playlist retrieval.
type FetchResult struct {
	URL         string
	StatusCode  int
	Body        string
	ContentType string
	Headers     map[string]string // lowercased keys
	Elapsed     time.Duration
}

// Fetcher retrieves playlist bodies over HTTP with a hard timeout. It does
// not retry; retry policy belongs to the tracking session.
type Fetcher struct {
	client *http.Client
	config *Config
	logger logging.Logger
}

// NewFetcher creates a fetcher from the given config (nil for defaults).
func NewFetcher(config *Config) *Fetcher {
	if config == nil {
		config = DefaultConfig()
	}

	client := &http.Client{
		Timeout: config.HTTP.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= config.HTTP.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", config.HTTP.MaxRedirects)
			}
			return nil
		},
	}

	return &Fetcher{
		client: client,
		config: config,
		logger: logging.WithFields(logging.Fields{"component": "hls_fetcher"}),
	}
}

// Fetch retrieves a playlist body. Non-2xx statuses, timeouts, transport
// failures and bodies without the leading #EXTM3U marker all map to typed
// stream errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	if !common.IsValidURL(url) {
		return nil, common.NewStreamError(common.StreamTypeHLS, url,
			common.ErrCodeConnection, "invalid URL", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, common.NewStreamError(common.StreamTypeHLS, url,
			common.ErrCodeConnection, "failed to create request", err)
	}
	for key, value := range f.config.GetHTTPHeaders() {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.transportError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, common.NewStreamErrorWithFields(common.StreamTypeHLS, url,
			common.ErrCodeHTTPStatus, fmt.Sprintf("HTTP %d", resp.StatusCode), nil,
			logging.Fields{"status_code": resp.StatusCode})
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, f.config.HTTP.MaxBodySize))
	if err != nil {
		return nil, f.transportError(url, err)
	}
	elapsed := time.Since(start)

	body := string(bodyBytes)
	if !strings.HasPrefix(strings.TrimSpace(body), "#EXTM3U") {
		return nil, common.NewStreamErrorWithFields(common.StreamTypeHLS, url,
			common.ErrCodeNotAPlaylist, "body does not start with #EXTM3U", nil,
			logging.Fields{"content_type": resp.Header.Get("Content-Type")})
	}

	headers := make(map[string]string, len(resp.Header))
	for key, values := range resp.Header {
		if len(values) > 0 {
			headers[strings.ToLower(key)] = common.CleanHeaderValue(values[0])
		}
	}

	f.logger.Debug("playlist fetched", logging.Fields{
		"url":         url,
		"status_code": resp.StatusCode,
		"bytes":       len(body),
		"elapsed_ms":  elapsed.Milliseconds(),
	})

	return &FetchResult{
		URL:         url,
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: common.ExtractContentType(resp.Header.Get("Content-Type")),
		Headers:     headers,
		Elapsed:     elapsed,
	}, nil
}

func (f *Fetcher) transportError(url string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return common.NewStreamError(common.StreamTypeHLS, url,
			common.ErrCodeTimeout, "request timed out", err)
	}
	return common.NewStreamError(common.StreamTypeHLS, url,
		common.ErrCodeConnection, "request failed", err)
}
