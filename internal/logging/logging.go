// Package logging builds the slog logger used by the command line tool.
// Records go to stderr and, when a Seq URL is configured, to Seq as well.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	slogseq "github.com/sokkalf/slog-seq"
	"golang.org/x/term"
)

// Options configures Setup.
type Options struct {
	Level slog.Level
	// Writer receives console records; stderr when nil.
	Writer io.Writer
	// SeqURL is the Seq ingestion endpoint; empty disables Seq.
	SeqURL string
}

// multiHandler forwards log records to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// ParseLevel accepts debug, info, warn and error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// Setup returns the logger and a cleanup function that flushes pending Seq
// batches. Terminals get the text handler, everything else JSON.
func Setup(opts Options) (*slog.Logger, func()) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	var console slog.Handler
	if isTerminal(w) {
		console = slog.NewTextHandler(w, handlerOpts)
	} else {
		console = slog.NewJSONHandler(w, handlerOpts)
	}

	if opts.SeqURL == "" {
		return slog.New(console), func() {}
	}

	_, seqHandler := slogseq.NewLogger(
		opts.SeqURL,
		slogseq.WithBatchSize(50),
		slogseq.WithFlushInterval(500*time.Millisecond),
		slogseq.WithHandlerOptions(handlerOpts),
	)
	if seqHandler == nil {
		return slog.New(console), func() {}
	}

	logger := slog.New(&multiHandler{handlers: []slog.Handler{console, seqHandler}})
	return logger, func() {
		seqHandler.Close()
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
