package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestGUIDHandlerAbbreviates(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("fetched document",
		slog.String("docGuid", "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"),
		slog.String("url", "https://kad.arbitr.ru/x"),
	)

	out := buf.String()
	if !strings.Contains(out, "docGuid=aaaaaaaa") {
		t.Errorf("output missing abbreviated GUID: %s", out)
	}
	if strings.Contains(out, "aaaaaaaa-bbbb") {
		t.Errorf("output still contains full GUID: %s", out)
	}
	if !strings.Contains(out, "https://kad.arbitr.ru/x") {
		t.Errorf("non-GUID string rewritten: %s", out)
	}
}

func TestGUIDHandlerWithAttrsAndGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).With(
		slog.String("caseGuid", "11111111-2222-3333-4444-555555555555"),
	)

	logger.Info("tab parsed", slog.Group("doc",
		slog.String("guid", "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"),
		slog.Int("page", 2),
	))

	out := buf.String()
	if !strings.Contains(out, "caseGuid=11111111") || strings.Contains(out, "11111111-2222") {
		t.Errorf("WithAttrs GUID not abbreviated: %s", out)
	}
	if !strings.Contains(out, "doc.guid=aaaaaaaa") || strings.Contains(out, "aaaaaaaa-bbbb") {
		t.Errorf("group GUID not abbreviated: %s", out)
	}
	if !strings.Contains(out, "doc.page=2") {
		t.Errorf("non-string group attr lost: %s", out)
	}
}

func TestGUIDHandlerLevelGate(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug record written at info level: %s", buf.String())
	}
}

func TestGUIDHandlerNonGUIDUntouched(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	// Shorter than a GUID, GUID-like but wrong grouping, and non-hex.
	logger.Info("check",
		slog.String("a", "aaaaaaaa-bbbb"),
		slog.String("b", "zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz"),
	)

	out := buf.String()
	if !strings.Contains(out, "a=aaaaaaaa-bbbb") {
		t.Errorf("short value rewritten: %s", out)
	}
	if !strings.Contains(out, "b=zzzzzzzz-zzzz-zzzz-zzzz-zzzzzzzzzzzz") {
		t.Errorf("non-hex value rewritten: %s", out)
	}
}
