package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, logrus.InfoLevel)

	logger.Debug("not visible")
	logger.Info("hello", Fields{"url": "https://example.com/a.m3u8"})
	logger.Warn("careful")

	out := buf.String()
	assert.NotContains(t, out, "not visible")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "url=")
	assert.Contains(t, out, "careful")
}

func TestLoggerError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, logrus.InfoLevel)

	logger.Error(errors.New("boom"), "failed")
	assert.Contains(t, buf.String(), "boom")

	// nil error must not panic and still logs the message
	buf.Reset()
	logger.Error(nil, "failed without cause")
	assert.Contains(t, buf.String(), "failed without cause")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, logrus.InfoLevel).WithFields(Fields{"component": "hls_parser"})

	logger.Info("parsed")
	assert.Contains(t, buf.String(), "component=hls_parser")
}

func TestGlobalLogger(t *testing.T) {
	original := GetGlobalLogger()
	defer SetGlobalLogger(original)

	var buf bytes.Buffer
	SetGlobalLogger(NewLogger(&buf, logrus.DebugLevel))

	Debug("d")
	Info("i")
	Warn("w")
	Error(errors.New("e"), "msg")

	out := buf.String()
	for _, want := range []string{"d", "i", "w", "msg"} {
		assert.Contains(t, out, want)
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.Info("dropped")
		logger.Error(errors.New("x"), "dropped")
	})
}
