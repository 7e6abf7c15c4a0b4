package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(NewFilteringHandler(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func TestFilteringHandler(t *testing.T) {
	t.Run("enabled section passes debug records", func(t *testing.T) {
		buf := &bytes.Buffer{}
		newBufferLogger(buf).With("section", "bindings.merge").Debug("merged")
		assert.Contains(t, buf.String(), "merged")
	})

	t.Run("unknown section drops debug records", func(t *testing.T) {
		buf := &bytes.Buffer{}
		newBufferLogger(buf).With("section", "parser").Debug("token")
		assert.Empty(t, buf.String())
	})

	t.Run("section given per record", func(t *testing.T) {
		buf := &bytes.Buffer{}
		newBufferLogger(buf).Debug("loaded", "section", "problem")
		assert.Contains(t, buf.String(), "loaded")
	})

	t.Run("warnings always pass", func(t *testing.T) {
		buf := &bytes.Buffer{}
		newBufferLogger(buf).Warn("careful")
		assert.Contains(t, buf.String(), "careful")
	})
}
