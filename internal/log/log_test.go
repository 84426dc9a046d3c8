package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentFeed, Output: &buf})
	l.Info("snapshot applied", FieldRevision, 3)

	out := buf.String()
	if !strings.Contains(out, "component=feed") || !strings.Contains(out, "revision=3") {
		t.Fatalf("unexpected output: %s", out)
	}

	buf.Reset()
	l.WithComponent(ComponentAuth).Warn("login failed")
	if !strings.Contains(buf.String(), "component=auth") || strings.Contains(buf.String(), "component=feed") {
		t.Fatalf("component not replaced: %s", buf.String())
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Output: &buf})
	l.Info("hidden")
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at warn level: %s", buf.String())
	}
	l.Error("shown")
	if !strings.Contains(buf.String(), "component=app") {
		t.Fatalf("default component missing: %s", buf.String())
	}
}

func TestWithLoggerAndFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf, Component: ComponentHTTP})

	ctx := WithLogger(context.Background(), l.With(FieldRequestID, "req-1"))
	FromContext(ctx).Info("handled")

	if !strings.Contains(buf.String(), "request_id=req-1") || !strings.Contains(buf.String(), "component=http") {
		t.Fatalf("request logger not propagated: %s", buf.String())
	}
	if FromContext(context.Background()).Component() != ComponentApp {
		t.Fatalf("fallback logger must report the app component")
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	actor := New(Config{Output: &buf}).With(NewFields().WithUser("admin@caja.org", "admin").ToSlice()...)
	sl := NewStructuredLogger(actor)
	ctx := context.Background()

	sl.LogEntryCreated(ctx, "id-1", "Egreso", "2025-01-15", 10000, "TARJETAS", "Visa")
	sl.LogEntryDeleted(ctx, "id-1", "2025")
	sl.LogError(ctx, "store failed", errors.New("boom"), ComponentStorage, OpCreate, NewFields())

	out := buf.String()
	for _, want := range []string{"entry_id=id-1", "amount_cents=10000", "operation=delete", "error=boom", "component=storage", "year=2025"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
	if strings.Count(out, "user=admin@caja.org") != 3 || strings.Count(out, "role=admin") != 3 {
		t.Errorf("every record must carry the acting user once: %s", out)
	}
	if strings.Count(out, "component=") != 3 {
		t.Errorf("each record must carry exactly one component: %s", out)
	}
}
