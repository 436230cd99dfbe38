package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	logger := Get()
	if logger == nil {
		t.Fatal("logger is nil after initialization")
	}
}

// Basic logging test (slog-backed; no Sugar)
func TestLoggerBasic(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	Get().Info(ctx, "submission applied",
		String("user", "alice"),
		Int64("count", 3),
		Float64("rating", 1016),
		Bool("duplicate", false),
		Duration("took", time.Millisecond),
		Strings("order", []string{"a", "b"}),
	)

	out := buf.String()
	if !strings.Contains(out, "submission applied") {
		t.Fatalf("missing message in output: %q", out)
	}
	if !strings.Contains(out, "user=alice") {
		t.Fatalf("missing field in output: %q", out)
	}
}

func TestLoggerNamed(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	namedLogger := Named("selector")
	if namedLogger == nil {
		t.Fatal("named logger is nil")
	}

	ctx := context.Background()
	namedLogger.Info(ctx, "combo picked")
	if !strings.Contains(buf.String(), "combo picked") {
		t.Fatalf("missing message in output: %q", buf.String())
	}
}

func TestSetLevelString(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	for _, lvl := range []string{"debug", "info", "warn", "warning", "error", ""} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("level %q rejected: %v", lvl, err)
		}
	}
	if err := SetLevelString("shout"); err == nil {
		t.Error("bogus level accepted")
	}

	if err := SetLevelString("error"); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	Get().Info(context.Background(), "filtered out")
	if buf.Len() != 0 {
		t.Fatalf("info logged at error level: %q", buf.String())
	}
}
