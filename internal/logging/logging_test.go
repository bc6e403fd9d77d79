package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		" warn": slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		assert.NilError(t, err, in)
		assert.Equal(t, got, want, in)
	}

	_, err := ParseLevel("loud")
	assert.ErrorContains(t, err, `unknown log level "loud"`)
}

func TestSetupWritesJSONToNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup := Setup(Options{Level: slog.LevelInfo, Writer: &buf})
	defer cleanup()

	logger.Debug("hidden")
	logger.Info("permuted", "rows", 3)

	var record map[string]any
	assert.NilError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, record["msg"], "permuted")
	assert.Equal(t, record["rows"], float64(3))
}

type recordingHandler struct {
	level   slog.Level
	records *[]slog.Record
	attrs   []slog.Attr
}

func (h recordingHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }

func (h recordingHandler) Handle(_ context.Context, r slog.Record) error {
	r.AddAttrs(h.attrs...)
	*h.records = append(*h.records, r)
	return nil
}

func (h recordingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.attrs = append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)
	return h
}

func (h recordingHandler) WithGroup(string) slog.Handler { return h }

func TestMultiHandlerFansOut(t *testing.T) {
	var quiet, loud []slog.Record
	m := &multiHandler{handlers: []slog.Handler{
		recordingHandler{level: slog.LevelWarn, records: &quiet},
		recordingHandler{level: slog.LevelDebug, records: &loud},
	}}
	logger := slog.New(m).With("run", "r1")

	logger.Info("info")
	logger.Warn("warn")

	assert.Check(t, is.Len(quiet, 1))
	assert.Check(t, is.Len(loud, 2))
	assert.Assert(t, !m.Enabled(context.Background(), slog.LevelDebug-1))

	var run string
	loud[0].Attrs(func(a slog.Attr) bool {
		if a.Key == "run" {
			run = a.Value.String()
		}
		return true
	})
	assert.Equal(t, run, "r1")
}
