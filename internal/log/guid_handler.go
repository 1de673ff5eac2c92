package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
)

// guidPattern matches a full 8-4-4-4-12 GUID.
var guidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// abbrevLen is how many characters of a GUID survive abbreviation.
// Eight characters match the instance-folder naming convention and are
// unique in practice within a single case.
const abbrevLen = 8

// GUIDHandler wraps an slog.Handler and abbreviates GUID-valued string
// attributes before they reach the underlying handler.
//
// Design decision: A handler wrapper rather than shortening at each call
// site because:
//  1. It integrates with standard slog APIs; call sites stay clean
//  2. One place to change if the abbreviation convention changes
//  3. Group and attr structure is preserved for downstream handlers
type GUIDHandler struct {
	inner slog.Handler
}

// NewGUIDHandler wraps the given handler.
func NewGUIDHandler(inner slog.Handler) *GUIDHandler {
	return &GUIDHandler{inner: inner}
}

// NewLogger builds the standard kadcrawl logger: a text handler on w at
// the given level, wrapped with GUID abbreviation.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewGUIDHandler(h))
}

// Enabled implements slog.Handler.
func (h *GUIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler, rewriting GUID attribute values.
func (h *GUIDHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(abbreviateAttr(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *GUIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	rewritten := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		rewritten = append(rewritten, abbreviateAttr(a))
	}
	return &GUIDHandler{inner: h.inner.WithAttrs(rewritten)}
}

// WithGroup implements slog.Handler.
func (h *GUIDHandler) WithGroup(name string) slog.Handler {
	return &GUIDHandler{inner: h.inner.WithGroup(name)}
}

// abbreviateAttr shortens GUID string values, recursing into groups.
func abbreviateAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		if v := a.Value.String(); guidPattern.MatchString(v) {
			return slog.String(a.Key, v[:abbrevLen])
		}
	case slog.KindGroup:
		attrs := a.Value.Group()
		rewritten := make([]any, 0, len(attrs))
		for _, ga := range attrs {
			rewritten = append(rewritten, abbreviateAttr(ga))
		}
		return slog.Group(a.Key, rewritten...)
	}
	return a
}
